package middleware

import (
	"errors"
	"net/http"

	"github.com/fleetward/fleetward/internal/api/response"
	"github.com/fleetward/fleetward/internal/metrics"
	"github.com/fleetward/fleetward/internal/tenant"
)

// TenantResolver resolves the X-Tenant-ID header on every request in the
// tenant route group and rejects requests that do not map to an active
// tenant. Unknown and missing identifiers produce the identical response
// body, so the endpoint cannot be used to probe which tenant IDs exist.
type TenantResolver struct {
	resolver *tenant.Resolver
	metrics  *metrics.Metrics
}

// NewTenantResolver creates the tenant resolution middleware.
func NewTenantResolver(r *tenant.Resolver, m *metrics.Metrics) *TenantResolver {
	return &TenantResolver{resolver: r, metrics: m}
}

// Resolve binds the resolved tenant to the request context or rejects with
// 401. Database failures surface as 500; they are not resolution outcomes.
func (tr *TenantResolver) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headerValue := r.Header.Get(tenant.Header)

		resolved, err := tr.resolver.Resolve(r.Context(), headerValue)
		switch {
		case errors.Is(err, tenant.ErrNoTenant):
			if headerValue == "" {
				tr.metrics.TenantResolutions.WithLabelValues(metrics.OutcomeMissing).Inc()
			} else {
				tr.metrics.TenantResolutions.WithLabelValues(metrics.OutcomeUnknown).Inc()
			}
			response.Error(w, http.StatusUnauthorized,
				response.CodeTenantRequired, "A valid X-Tenant-ID header is required", nil)
			return
		case errors.Is(err, tenant.ErrTenantInactive):
			tr.metrics.TenantResolutions.WithLabelValues(metrics.OutcomeInactive).Inc()
			// same body as unknown: do not reveal that the tenant exists
			response.Error(w, http.StatusUnauthorized,
				response.CodeTenantRequired, "A valid X-Tenant-ID header is required", nil)
			return
		case err != nil:
			response.Error(w, http.StatusInternalServerError,
				response.CodeInternal, "Failed to resolve tenant", nil)
			return
		}

		tr.metrics.TenantResolutions.WithLabelValues(metrics.OutcomeResolved).Inc()
		next.ServeHTTP(w, r.WithContext(SetTenant(r.Context(), resolved)))
	})
}
