package models

import (
	"time"

	"github.com/google/uuid"
)

// VehicleStatus is the operational state of a vehicle.
type VehicleStatus string

const (
	VehicleActive         VehicleStatus = "active"
	VehicleInMaintenance  VehicleStatus = "in_maintenance"
	VehicleDecommissioned VehicleStatus = "decommissioned"
)

func (s VehicleStatus) Valid() bool {
	switch s {
	case VehicleActive, VehicleInMaintenance, VehicleDecommissioned:
		return true
	}
	return false
}

// Vehicle is a fleet vehicle. Registration numbers are unique per tenant,
// not globally.
type Vehicle struct {
	ID                 uuid.UUID     `db:"id"                   json:"id"`
	TenantID           int64         `db:"tenant_id"            json:"tenant_id"`
	OwnerID            uuid.UUID     `db:"owner_id"             json:"owner_id"`
	Registration       string        `db:"registration"         json:"registration"`
	Make               string        `db:"make"                 json:"make"`
	Model              string        `db:"model"                json:"model"`
	Year               int           `db:"year"                 json:"year"`
	Status             VehicleStatus `db:"status"               json:"status"`
	Mileage            int64         `db:"mileage"              json:"mileage"`
	InsuranceExpiresAt *time.Time    `db:"insurance_expires_at" json:"insurance_expires_at,omitempty"`
	NextInspectionAt   *time.Time    `db:"next_inspection_at"   json:"next_inspection_at,omitempty"`
	Metadata           Metadata      `db:"metadata"             json:"metadata,omitempty"`
	CreatedAt          time.Time     `db:"created_at"           json:"created_at"`
	UpdatedAt          time.Time     `db:"updated_at"           json:"updated_at"`
}

// VehicleStats is the per-tenant dashboard summary.
type VehicleStats struct {
	Total            int `json:"total"`
	Active           int `json:"active"`
	InMaintenance    int `json:"in_maintenance"`
	Decommissioned   int `json:"decommissioned"`
	InsuranceExpired int `json:"insurance_expired"`
}
