package models

import (
	"time"

	"github.com/google/uuid"
)

// MaintenanceKind distinguishes routine service, repairs, and mandated
// technical inspections. They share one table and one lifecycle.
type MaintenanceKind string

const (
	MaintenanceService    MaintenanceKind = "service"
	MaintenanceRepair     MaintenanceKind = "repair"
	MaintenanceInspection MaintenanceKind = "inspection"
)

func (k MaintenanceKind) Valid() bool {
	switch k {
	case MaintenanceService, MaintenanceRepair, MaintenanceInspection:
		return true
	}
	return false
}

// MaintenanceStatus is the lifecycle state of a maintenance record.
type MaintenanceStatus string

const (
	MaintenanceScheduled  MaintenanceStatus = "scheduled"
	MaintenanceInProgress MaintenanceStatus = "in_progress"
	MaintenanceCompleted  MaintenanceStatus = "completed"
	MaintenanceCanceled   MaintenanceStatus = "canceled"
)

func (s MaintenanceStatus) Valid() bool {
	switch s {
	case MaintenanceScheduled, MaintenanceInProgress, MaintenanceCompleted, MaintenanceCanceled:
		return true
	}
	return false
}

// Maintenance is a service, repair, or inspection performed on a vehicle.
type Maintenance struct {
	ID          uuid.UUID         `db:"id"           json:"id"`
	TenantID    int64             `db:"tenant_id"    json:"tenant_id"`
	VehicleID   uuid.UUID         `db:"vehicle_id"   json:"vehicle_id"`
	Kind        MaintenanceKind   `db:"kind"         json:"kind"`
	Status      MaintenanceStatus `db:"status"       json:"status"`
	Garage      string            `db:"garage"       json:"garage,omitempty"`
	Notes       string            `db:"notes"        json:"notes,omitempty"`
	CostCents   int64             `db:"cost_cents"   json:"cost_cents"`
	ScheduledAt time.Time         `db:"scheduled_at" json:"scheduled_at"`
	CompletedAt *time.Time        `db:"completed_at" json:"completed_at,omitempty"`
	Metadata    Metadata          `db:"metadata"     json:"metadata,omitempty"`
	CreatedAt   time.Time         `db:"created_at"   json:"created_at"`
	UpdatedAt   time.Time         `db:"updated_at"   json:"updated_at"`
}
