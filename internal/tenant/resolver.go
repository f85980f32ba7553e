// Package tenant maps inbound requests to the tenant whose data they may
// touch. Resolution is a pure function of the X-Tenant-ID header value and
// the tenant store; the result lives in the request context and nowhere
// else, so concurrent requests can never observe each other's tenant.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fleetward/fleetward/internal/store"
	"github.com/fleetward/fleetward/pkg/models"
)

// Header is the request header carrying the tenant identifier.
const Header = "X-Tenant-ID"

// ErrNoTenant covers every recoverable resolution failure: missing header,
// malformed identifier, and unknown tenant. Callers must not be able to tell
// these apart, otherwise the error becomes a tenant-enumeration oracle.
var ErrNoTenant = errors.New("no tenant resolved")

// ErrTenantInactive means the identifier resolved but the tenant is not
// active. The HTTP layer maps it to the same rejection as ErrNoTenant.
var ErrTenantInactive = errors.New("tenant is not active")

// Store is the subset of the data layer the resolver needs.
type Store interface {
	GetTenant(ctx context.Context, id int64) (*models.Tenant, error)
}

// Resolver resolves X-Tenant-ID header values against the tenant store.
// Lookups are never cached: a tenant flipped to inactive must be rejected on
// the very next request.
type Resolver struct {
	store Store
}

// NewResolver creates a Resolver backed by the given store.
func NewResolver(s Store) *Resolver {
	return &Resolver{store: s}
}

// Resolve maps a raw header value to a tenant. It returns ErrNoTenant for a
// missing, malformed, or unknown identifier, ErrTenantInactive for a known
// but non-active tenant, and wraps only infrastructure failures.
func (r *Resolver) Resolve(ctx context.Context, headerValue string) (*models.Tenant, error) {
	raw := strings.TrimSpace(headerValue)
	if raw == "" {
		return nil, ErrNoTenant
	}

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, ErrNoTenant
	}

	t, err := r.store.GetTenant(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoTenant
	}
	if err != nil {
		return nil, fmt.Errorf("look up tenant %d: %w", id, err)
	}

	if t.Status != models.TenantActive {
		return nil, ErrTenantInactive
	}
	return t, nil
}
