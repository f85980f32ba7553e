// Package metrics holds the Prometheus instruments for the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Resolution outcome label values.
const (
	OutcomeResolved = "resolved"
	OutcomeMissing  = "missing"
	OutcomeUnknown  = "unknown"
	OutcomeInactive = "inactive"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	TenantResolutions *prometheus.CounterVec
	CrossTenantMisses prometheus.Counter
	StaffBypassUses   prometheus.Counter
	RequestDuration   *prometheus.HistogramVec
}

// New creates and registers all metrics against reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TenantResolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fleetward_tenant_resolutions_total",
			Help: "Tenant resolution attempts by outcome",
		}, []string{"outcome"}),
		CrossTenantMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "fleetward_cross_tenant_misses_total",
			Help: "Scoped lookups that found no row for the active tenant",
		}),
		StaffBypassUses: factory.NewCounter(prometheus.CounterOpts{
			Name: "fleetward_staff_bypass_uses_total",
			Help: "Uses of the can_access_all_tenants staff bypass",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fleetward_request_duration_seconds",
			Help:    "HTTP request latency by method and route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}
