package middleware

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/fleetward/fleetward/internal/api/response"
	"github.com/fleetward/fleetward/internal/metrics"
	"github.com/fleetward/fleetward/internal/store"
)

const keyPrefixLen = 8

// StaffAuth authenticates internal employees on the /internal route group.
// Staff identity is entirely separate from the tenant identity space; an
// employee key never resolves a tenant by itself.
type StaffAuth struct {
	store   store.Store
	metrics *metrics.Metrics
}

// NewStaffAuth creates the staff authentication middleware.
func NewStaffAuth(s store.Store, m *metrics.Metrics) *StaffAuth {
	return &StaffAuth{store: s, metrics: m}
}

// Authenticate validates the Bearer key against the internal_employees table
// and binds the employee to the request context.
func (a *StaffAuth) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawKey := extractBearerToken(r)
		if rawKey == "" || len(rawKey) < keyPrefixLen {
			response.Error(w, http.StatusUnauthorized,
				response.CodeInvalidToken, "Missing or invalid Authorization header", nil)
			return
		}

		prefix := rawKey[:keyPrefixLen]

		employees, err := a.store.GetEmployeesByKeyPrefix(r.Context(), prefix)
		if err != nil {
			response.Error(w, http.StatusInternalServerError,
				response.CodeInternal, "Failed to validate staff key", nil)
			return
		}

		for _, e := range employees {
			if bcrypt.CompareHashAndPassword([]byte(e.KeyHash), []byte(rawKey)) == nil {
				// last_used is bookkeeping, not part of the request
				go a.store.UpdateEmployeeLastUsed(context.Background(), e.ID)

				next.ServeHTTP(w, r.WithContext(SetEmployee(r.Context(), e)))
				return
			}
		}

		response.Error(w, http.StatusUnauthorized,
			response.CodeInvalidToken, "Invalid staff key", nil)
	})
}

// RequireRole returns middleware that restricts a route to the given role.
func (a *StaffAuth) RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			e, ok := GetEmployee(r)
			if !ok || string(e.Role) != role {
				response.Error(w, http.StatusForbidden,
					response.CodeForbidden, "Insufficient permissions", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAllTenantAccess gates the cross-tenant bypass. Only employees with
// can_access_all_tenants pass; every pass is counted so bypass usage stays
// visible on the dashboard in addition to the audit event the handler writes.
func (a *StaffAuth) RequireAllTenantAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e, ok := GetEmployee(r)
		if !ok || !e.CanAccessAllTenants {
			response.Error(w, http.StatusForbidden,
				response.CodeForbidden, "Cross-tenant access not granted", nil)
			return
		}
		a.metrics.StaffBypassUses.Inc()
		next.ServeHTTP(w, r)
	})
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
