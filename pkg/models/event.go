package models

import (
	"time"

	"github.com/google/uuid"
)

// Event names recorded by the server itself.
const (
	EventStaffCrossTenantAccess = "staff.cross_tenant_access"
	EventTenantStatusChanged    = "tenant.status_changed"
)

// Event is an analytics/audit record. TenantID is nil for events that are
// not attributable to a single tenant (e.g. staff-wide listings).
type Event struct {
	ID         uuid.UUID `db:"id"          json:"id"`
	TenantID   *int64    `db:"tenant_id"   json:"tenant_id,omitempty"`
	Actor      string    `db:"actor"       json:"actor"`
	Name       string    `db:"name"        json:"name"`
	Payload    Metadata  `db:"payload"     json:"payload,omitempty"`
	OccurredAt time.Time `db:"occurred_at" json:"occurred_at"`
}
