package models

import "time"

// TenantStatus is the lifecycle state of a tenant account.
type TenantStatus string

const (
	TenantActive   TenantStatus = "active"
	TenantInactive TenantStatus = "inactive"
	TenantPending  TenantStatus = "pending"
)

// Valid reports whether s is a known tenant status.
func (s TenantStatus) Valid() bool {
	switch s {
	case TenantActive, TenantInactive, TenantPending:
		return true
	}
	return false
}

// Tenant represents a customer organization. Every business entity belongs
// to exactly one tenant; tenant IDs travel on the wire in the X-Tenant-ID
// header as decimal integers.
type Tenant struct {
	ID           int64        `db:"id"            json:"id"`
	Name         string       `db:"name"          json:"name"`
	ContactEmail string       `db:"contact_email" json:"contact_email"`
	ContactPhone string       `db:"contact_phone" json:"contact_phone,omitempty"`
	Address      string       `db:"address"       json:"address,omitempty"`
	Status       TenantStatus `db:"status"        json:"status"`
	CreatedAt    time.Time    `db:"created_at"    json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"    json:"updated_at"`
}
