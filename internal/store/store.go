package store

import (
	"context"
	"errors"
	"time"

	"github.com/fleetward/fleetward/pkg/models"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicate = errors.New("duplicate key violation")
var ErrInvalidTransition = errors.New("invalid status transition")

// Store is the data access interface. All database operations go through
// here. Every tenant-scoped method takes the tenant ID as an explicit
// argument; a lookup for a row owned by another tenant returns ErrNotFound,
// indistinguishable from the row not existing. The only cross-tenant reads
// are the staff methods, reachable solely through staff-authenticated routes.
type Store interface {
	Ping(ctx context.Context) error

	// Tenants. GetTenant backs the request resolver; the rest are staff
	// administration.
	GetTenant(ctx context.Context, id int64) (*models.Tenant, error)
	ListTenants(ctx context.Context, filter TenantFilter) ([]*models.Tenant, int, error)
	CreateTenant(ctx context.Context, t *models.Tenant) error
	UpdateTenantStatus(ctx context.Context, id int64, status models.TenantStatus) error
	DeleteTenant(ctx context.Context, id int64) error

	// Users.
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, tenantID int64, id uuid.UUID) (*models.User, error)

	// Vehicles.
	CreateVehicle(ctx context.Context, v *models.Vehicle) error
	GetVehicle(ctx context.Context, tenantID int64, id uuid.UUID) (*models.Vehicle, error)
	ListVehicles(ctx context.Context, filter VehicleFilter) ([]*models.Vehicle, int, error)
	UpdateVehicle(ctx context.Context, v *models.Vehicle) error
	DeleteVehicle(ctx context.Context, tenantID int64, id uuid.UUID) error
	GetVehicleStats(ctx context.Context, tenantID int64) (*models.VehicleStats, error)

	// ListVehiclesAllTenants ignores tenant scoping. Staff bypass only;
	// callers must hold can_access_all_tenants and record an audit event.
	ListVehiclesAllTenants(ctx context.Context, filter VehicleFilter) ([]*models.Vehicle, int, error)

	// Maintenances (services, repairs, inspections).
	CreateMaintenance(ctx context.Context, m *models.Maintenance) error
	GetMaintenance(ctx context.Context, tenantID int64, id uuid.UUID) (*models.Maintenance, error)
	ListMaintenances(ctx context.Context, filter MaintenanceFilter) ([]*models.Maintenance, int, error)
	UpdateMaintenanceStatus(ctx context.Context, tenantID int64, id uuid.UUID, status models.MaintenanceStatus) error

	// Invoices.
	CreateInvoice(ctx context.Context, inv *models.Invoice) error
	GetInvoice(ctx context.Context, tenantID int64, id uuid.UUID) (*models.Invoice, error)
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]*models.Invoice, int, error)
	MarkInvoicePaid(ctx context.Context, tenantID int64, id uuid.UUID) error

	// Subscriptions.
	CreateSubscription(ctx context.Context, s *models.Subscription) error
	GetCurrentSubscription(ctx context.Context, tenantID int64) (*models.Subscription, error)

	// Notifications.
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, filter NotificationFilter) ([]*models.Notification, int, error)
	MarkNotificationRead(ctx context.Context, tenantID int64, id uuid.UUID) error

	// Internal employees (staff identity space, not tenant-scoped).
	GetEmployeesByKeyPrefix(ctx context.Context, prefix string) ([]*models.InternalEmployee, error)
	UpdateEmployeeLastUsed(ctx context.Context, id uuid.UUID) error
	CreateEmployee(ctx context.Context, e *models.InternalEmployee) error
	ListEmployees(ctx context.Context) ([]*models.InternalEmployee, error)
	RevokeEmployee(ctx context.Context, id uuid.UUID) error

	// Events (analytics + staff audit trail).
	RecordEvent(ctx context.Context, e *models.Event) error
	ListEvents(ctx context.Context, filter EventFilter) ([]*models.Event, int, error)
}

// TenantFilter narrows staff tenant listings.
type TenantFilter struct {
	Status models.TenantStatus
	Page   int
	Limit  int
}

// VehicleFilter narrows vehicle listings. TenantID is ignored by
// ListVehiclesAllTenants and mandatory everywhere else.
type VehicleFilter struct {
	TenantID     int64
	Status       models.VehicleStatus
	OwnerID      uuid.UUID
	Registration string
	Page         int
	Limit        int
}

type MaintenanceFilter struct {
	TenantID  int64
	VehicleID uuid.UUID
	Kind      models.MaintenanceKind
	Status    models.MaintenanceStatus
	Since     time.Time
	Page      int
	Limit     int
}

type InvoiceFilter struct {
	TenantID int64
	Status   models.InvoiceStatus
	DueSince time.Time
	Page     int
	Limit    int
}

type NotificationFilter struct {
	TenantID   int64
	UserID     uuid.UUID
	UnreadOnly bool
	Page       int
	Limit      int
}

type EventFilter struct {
	TenantID int64 // zero means all tenants (staff audit view)
	Name     string
	Since    time.Time
	Page     int
	Limit    int
}
