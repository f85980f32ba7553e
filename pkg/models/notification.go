package models

import (
	"time"

	"github.com/google/uuid"
)

// Notification is a message delivered to a tenant, optionally targeted at a
// specific user within it.
type Notification struct {
	ID        uuid.UUID  `db:"id"         json:"id"`
	TenantID  int64      `db:"tenant_id"  json:"tenant_id"`
	UserID    *uuid.UUID `db:"user_id"    json:"user_id,omitempty"`
	Kind      string     `db:"kind"       json:"kind"`
	Title     string     `db:"title"      json:"title"`
	Body      string     `db:"body"       json:"body,omitempty"`
	ReadAt    *time.Time `db:"read_at"    json:"read_at,omitempty"`
	Metadata  Metadata   `db:"metadata"   json:"metadata,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}
