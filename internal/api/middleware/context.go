package middleware

import (
	"context"
	"net/http"

	"github.com/fleetward/fleetward/pkg/models"
)

type contextKey string

const (
	tenantKey   contextKey = "tenant"
	employeeKey contextKey = "employee"
	notesKey    contextKey = "notes"
)

// requestNotes carries identity attributes up to the access logger. Inner
// middleware derives new requests via WithContext, so the logger's own request
// never sees those contexts; it sees this holder instead.
type requestNotes struct {
	tenantID int64
	staff    string
}

func withNotes(ctx context.Context) context.Context {
	return context.WithValue(ctx, notesKey, &requestNotes{})
}

func getNotes(ctx context.Context) *requestNotes {
	n, _ := ctx.Value(notesKey).(*requestNotes)
	return n
}

// SetTenant binds the resolved tenant to the request context. The context is
// the only place the active tenant lives; there is no process-wide current
// tenant.
func SetTenant(ctx context.Context, t *models.Tenant) context.Context {
	if n := getNotes(ctx); n != nil {
		n.tenantID = t.ID
	}
	return context.WithValue(ctx, tenantKey, t)
}

// GetTenant returns the tenant bound to the request, if any.
func GetTenant(r *http.Request) (*models.Tenant, bool) {
	t, ok := r.Context().Value(tenantKey).(*models.Tenant)
	return t, ok
}

// SetEmployee binds the authenticated staff identity to the request context.
func SetEmployee(ctx context.Context, e *models.InternalEmployee) context.Context {
	if n := getNotes(ctx); n != nil {
		n.staff = e.Email
	}
	return context.WithValue(ctx, employeeKey, e)
}

// GetEmployee returns the staff identity bound to the request, if any.
func GetEmployee(r *http.Request) (*models.InternalEmployee, bool) {
	e, ok := r.Context().Value(employeeKey).(*models.InternalEmployee)
	return e, ok
}
