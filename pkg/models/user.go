package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a person inside a tenant organization. Vehicles reference their
// owning user; a vehicle and its owner always share a tenant.
type User struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	TenantID  int64     `db:"tenant_id"  json:"tenant_id"`
	Email     string    `db:"email"      json:"email"`
	Name      string    `db:"name"       json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
