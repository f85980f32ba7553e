package models

import (
	"time"

	"github.com/google/uuid"
)

// EmployeeRole is the role of an internal staff member.
type EmployeeRole string

const (
	RoleSupport  EmployeeRole = "support"
	RoleOperator EmployeeRole = "operator"
	RoleAdmin    EmployeeRole = "admin"
)

func (r EmployeeRole) Valid() bool {
	switch r {
	case RoleSupport, RoleOperator, RoleAdmin:
		return true
	}
	return false
}

// InternalEmployee is a staff identity, deliberately outside the tenant ID
// space. Staff authenticate with a bcrypt-hashed API key; cross-tenant data
// access additionally requires CanAccessAllTenants and is always audited.
type InternalEmployee struct {
	ID                  uuid.UUID    `db:"id"                     json:"id"`
	Email               string       `db:"email"                  json:"email"`
	Name                string       `db:"name"                   json:"name"`
	Role                EmployeeRole `db:"role"                   json:"role"`
	CanAccessAllTenants bool         `db:"can_access_all_tenants" json:"can_access_all_tenants"`
	KeyHash             string       `db:"key_hash"               json:"-"`
	KeyPrefix           string       `db:"key_prefix"             json:"key_prefix"`
	LastUsedAt          *time.Time   `db:"last_used_at"           json:"last_used_at,omitempty"`
	DeletedAt           *time.Time   `db:"deleted_at"             json:"-"`
	CreatedAt           time.Time    `db:"created_at"             json:"created_at"`
	UpdatedAt           time.Time    `db:"updated_at"             json:"updated_at"`
}
