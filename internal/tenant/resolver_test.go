package tenant_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetward/fleetward/internal/store"
	"github.com/fleetward/fleetward/internal/tenant"
	"github.com/fleetward/fleetward/pkg/models"
)

// tenantStore is an in-memory Store that counts lookups.
type tenantStore struct {
	mu      sync.Mutex
	tenants map[int64]*models.Tenant
	lookups int
	err     error
}

func (s *tenantStore) GetTenant(_ context.Context, id int64) (*models.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	if s.err != nil {
		return nil, s.err
	}
	t, ok := s.tenants[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func newTenantStore(tenants ...*models.Tenant) *tenantStore {
	s := &tenantStore{tenants: make(map[int64]*models.Tenant)}
	for _, t := range tenants {
		s.tenants[t.ID] = t
	}
	return s
}

func activeTenant(id int64, name string) *models.Tenant {
	return &models.Tenant{ID: id, Name: name, Status: models.TenantActive}
}

func TestResolve_ActiveTenant(t *testing.T) {
	s := newTenantStore(activeTenant(42, "acme"))
	r := tenant.NewResolver(s)

	resolved, err := r.Resolve(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), resolved.ID)
	assert.Equal(t, "acme", resolved.Name)
}

func TestResolve_MissingHeader(t *testing.T) {
	s := newTenantStore(activeTenant(42, "acme"))
	r := tenant.NewResolver(s)

	for _, headerValue := range []string{"", "   ", "\t"} {
		_, err := r.Resolve(context.Background(), headerValue)
		assert.ErrorIs(t, err, tenant.ErrNoTenant, "header %q", headerValue)
	}
	// no store round-trip for an absent identifier
	assert.Equal(t, 0, s.lookups)
}

func TestResolve_MalformedHeader(t *testing.T) {
	s := newTenantStore(activeTenant(42, "acme"))
	r := tenant.NewResolver(s)

	for _, headerValue := range []string{"abc", "42abc", "-7", "0", "1e3"} {
		_, err := r.Resolve(context.Background(), headerValue)
		assert.ErrorIs(t, err, tenant.ErrNoTenant, "header %q", headerValue)
	}
}

func TestResolve_UnknownTenant(t *testing.T) {
	s := newTenantStore(activeTenant(42, "acme"))
	r := tenant.NewResolver(s)

	_, err := r.Resolve(context.Background(), "9999")
	// unknown must be indistinguishable from missing
	assert.ErrorIs(t, err, tenant.ErrNoTenant)
}

func TestResolve_InactiveTenant(t *testing.T) {
	inactive := &models.Tenant{ID: 7, Name: "dormant", Status: models.TenantInactive}
	pending := &models.Tenant{ID: 8, Name: "onboarding", Status: models.TenantPending}
	r := tenant.NewResolver(newTenantStore(inactive, pending))

	_, err := r.Resolve(context.Background(), "7")
	assert.ErrorIs(t, err, tenant.ErrTenantInactive)

	_, err = r.Resolve(context.Background(), "8")
	assert.ErrorIs(t, err, tenant.ErrTenantInactive)
}

func TestResolve_StoreFailurePropagates(t *testing.T) {
	s := newTenantStore()
	s.err = errors.New("connection refused")
	r := tenant.NewResolver(s)

	_, err := r.Resolve(context.Background(), "42")
	require.Error(t, err)
	assert.NotErrorIs(t, err, tenant.ErrNoTenant)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestResolve_NoCachingAcrossStatusChange(t *testing.T) {
	s := newTenantStore(activeTenant(42, "acme"))
	r := tenant.NewResolver(s)

	resolved, err := r.Resolve(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), resolved.ID)

	// flip to inactive; the next resolution must see it
	s.mu.Lock()
	s.tenants[42].Status = models.TenantInactive
	s.mu.Unlock()

	_, err = r.Resolve(context.Background(), "42")
	assert.ErrorIs(t, err, tenant.ErrTenantInactive)
	assert.Equal(t, 2, s.lookups)
}

func TestResolve_ConcurrentResolutionsDoNotBleed(t *testing.T) {
	s := newTenantStore(activeTenant(1, "first"), activeTenant(2, "second"))
	r := tenant.NewResolver(s)

	const iterations = 200
	var wg sync.WaitGroup
	errs := make(chan error, 2*iterations)

	resolveLoop := func(header string, wantID int64, wantName string) {
		defer wg.Done()
		for i := 0; i < iterations; i++ {
			resolved, err := r.Resolve(context.Background(), header)
			if err != nil {
				errs <- err
				return
			}
			if resolved.ID != wantID || resolved.Name != wantName {
				errs <- errors.New("resolved wrong tenant")
				return
			}
		}
	}

	wg.Add(2)
	go resolveLoop("1", 1, "first")
	go resolveLoop("2", 2, "second")
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent resolution: %v", err)
	}
}
