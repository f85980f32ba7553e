package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fleetward/fleetward/internal/api/handler"
	mw "github.com/fleetward/fleetward/internal/api/middleware"
	"github.com/fleetward/fleetward/internal/metrics"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	TenantResolver *mw.TenantResolver
	StaffAuth      *mw.StaffAuth
	RateLimit      *mw.RateLimit
	Metrics        *metrics.Metrics
	MetricsHandler http.Handler

	Health        http.HandlerFunc
	Users         *handler.Users
	Vehicles      *handler.Vehicles
	Maintenances  *handler.Maintenances
	Invoices      *handler.Invoices
	Notifications *handler.Notifications
	Subscriptions *handler.Subscriptions
	Tenants       *handler.Tenants
	Employees     *handler.Employees
}

// NewRouter builds the chi router with the middleware stack and all routes.
// The tenant group and the staff group never share an auth path: tenant
// routes require a resolved active tenant, staff routes require an employee
// key, and cross-tenant staff reads additionally require the explicit
// bypass flag.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(mw.Instrument(deps.Metrics))

	// Public endpoints
	r.Get("/api/v1/health", deps.Health)
	r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)

	// Tenant routes
	r.Group(func(r chi.Router) {
		r.Use(deps.TenantResolver.Resolve)
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/users", deps.Users.Create)
		r.Get("/api/v1/users/{userID}", deps.Users.Get)

		r.Get("/api/v1/vehicles", deps.Vehicles.List)
		r.Post("/api/v1/vehicles", deps.Vehicles.Create)
		r.Get("/api/v1/vehicles/{vehicleID}", deps.Vehicles.Get)
		r.Put("/api/v1/vehicles/{vehicleID}", deps.Vehicles.Update)
		r.Delete("/api/v1/vehicles/{vehicleID}", deps.Vehicles.Delete)
		r.Get("/api/v1/stats/vehicles", deps.Vehicles.Stats)

		r.Get("/api/v1/maintenances", deps.Maintenances.List)
		r.Post("/api/v1/maintenances", deps.Maintenances.Create)
		r.Get("/api/v1/maintenances/{maintenanceID}", deps.Maintenances.Get)
		r.Patch("/api/v1/maintenances/{maintenanceID}/status", deps.Maintenances.UpdateStatus)

		r.Get("/api/v1/invoices", deps.Invoices.List)
		r.Post("/api/v1/invoices", deps.Invoices.Create)
		r.Get("/api/v1/invoices/{invoiceID}", deps.Invoices.Get)
		r.Post("/api/v1/invoices/{invoiceID}/pay", deps.Invoices.Pay)

		r.Get("/api/v1/notifications", deps.Notifications.List)
		r.Post("/api/v1/notifications/{notificationID}/read", deps.Notifications.MarkRead)

		r.Get("/api/v1/subscription", deps.Subscriptions.Current)
	})

	// Staff routes
	r.Route("/api/v1/internal", func(r chi.Router) {
		r.Use(deps.StaffAuth.Authenticate)

		r.Get("/tenants", deps.Tenants.List)
		r.Get("/tenants/{tenantID}", deps.Tenants.Get)
		r.Patch("/tenants/{tenantID}/status", deps.Tenants.UpdateStatus)
		r.Post("/tenants/{tenantID}/notifications", deps.Tenants.Notify)
		r.Post("/tenants/{tenantID}/subscriptions", deps.Tenants.Subscribe)
		r.Get("/events", deps.Tenants.Events)

		// Cross-tenant reads need the explicit bypass flag
		r.Group(func(r chi.Router) {
			r.Use(deps.StaffAuth.RequireAllTenantAccess)
			r.Get("/vehicles", deps.Tenants.ListAllVehicles)
		})

		// Admin-only
		r.Group(func(r chi.Router) {
			r.Use(deps.StaffAuth.RequireRole("admin"))

			r.Post("/tenants", deps.Tenants.Create)
			r.Delete("/tenants/{tenantID}", deps.Tenants.Delete)

			r.Post("/employees", deps.Employees.Create)
			r.Get("/employees", deps.Employees.List)
			r.Delete("/employees/{employeeID}", deps.Employees.Revoke)
		})
	})

	return r
}
