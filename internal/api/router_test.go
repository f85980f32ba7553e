package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fleetward/fleetward/internal/api"
	"github.com/fleetward/fleetward/internal/api/handler"
	mw "github.com/fleetward/fleetward/internal/api/middleware"
	"github.com/fleetward/fleetward/internal/metrics"
	"github.com/fleetward/fleetward/internal/store"
	"github.com/fleetward/fleetward/internal/tenant"
	"github.com/fleetward/fleetward/pkg/models"
)

// fakeStore is an in-memory store.Store for exercising the full route tree
// without Postgres. It mirrors the scoping contract: tenant-scoped reads that
// miss the tenant filter return ErrNotFound.
type fakeStore struct {
	mu        sync.Mutex
	tenants   map[int64]*models.Tenant
	nextID    int64
	users     map[uuid.UUID]*models.User
	vehicles  map[uuid.UUID]*models.Vehicle
	employees []*models.InternalEmployee
	events    []*models.Event
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tenants:  make(map[int64]*models.Tenant),
		nextID:   1,
		users:    make(map[uuid.UUID]*models.User),
		vehicles: make(map[uuid.UUID]*models.Vehicle),
	}
}

func (f *fakeStore) Ping(_ context.Context) error { return nil }

func (f *fakeStore) GetTenant(_ context.Context, id int64) (*models.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tenants[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeStore) ListTenants(_ context.Context, _ store.TenantFilter) ([]*models.Tenant, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Tenant
	for _, t := range f.tenants {
		cp := *t
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (f *fakeStore) CreateTenant(_ context.Context, t *models.Tenant) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = f.nextID
	f.nextID++
	cp := *t
	f.tenants[t.ID] = &cp
	return nil
}

func (f *fakeStore) UpdateTenantStatus(_ context.Context, id int64, status models.TenantStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tenants[id]
	if !ok {
		return store.ErrNotFound
	}
	t.Status = status
	return nil
}

func (f *fakeStore) DeleteTenant(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tenants[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.tenants, id)
	for vid, v := range f.vehicles {
		if v.TenantID == id {
			delete(f.vehicles, vid)
		}
	}
	return nil
}

func (f *fakeStore) CreateUser(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeStore) GetUser(_ context.Context, tenantID int64, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok || u.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) CreateVehicle(_ context.Context, v *models.Vehicle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	owner, ok := f.users[v.OwnerID]
	if !ok || owner.TenantID != v.TenantID {
		return store.ErrNotFound
	}
	cp := *v
	f.vehicles[v.ID] = &cp
	return nil
}

func (f *fakeStore) GetVehicle(_ context.Context, tenantID int64, id uuid.UUID) (*models.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vehicles[id]
	if !ok || v.TenantID != tenantID {
		return nil, store.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (f *fakeStore) ListVehicles(_ context.Context, filter store.VehicleFilter) ([]*models.Vehicle, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Vehicle
	for _, v := range f.vehicles {
		if v.TenantID != filter.TenantID {
			continue
		}
		cp := *v
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (f *fakeStore) UpdateVehicle(_ context.Context, v *models.Vehicle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cur, ok := f.vehicles[v.ID]
	if !ok || cur.TenantID != v.TenantID {
		return store.ErrNotFound
	}
	cp := *v
	cp.CreatedAt = cur.CreatedAt
	cp.UpdatedAt = time.Now().UTC()
	f.vehicles[v.ID] = &cp
	return nil
}

func (f *fakeStore) DeleteVehicle(_ context.Context, tenantID int64, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.vehicles[id]
	if !ok || v.TenantID != tenantID {
		return store.ErrNotFound
	}
	delete(f.vehicles, id)
	return nil
}

func (f *fakeStore) GetVehicleStats(_ context.Context, tenantID int64) (*models.VehicleStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st := &models.VehicleStats{}
	for _, v := range f.vehicles {
		if v.TenantID != tenantID {
			continue
		}
		st.Total++
		switch v.Status {
		case models.VehicleActive:
			st.Active++
		case models.VehicleInMaintenance:
			st.InMaintenance++
		case models.VehicleDecommissioned:
			st.Decommissioned++
		}
	}
	return st, nil
}

func (f *fakeStore) ListVehiclesAllTenants(_ context.Context, _ store.VehicleFilter) ([]*models.Vehicle, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Vehicle
	for _, v := range f.vehicles {
		cp := *v
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (f *fakeStore) CreateMaintenance(_ context.Context, _ *models.Maintenance) error { return nil }
func (f *fakeStore) GetMaintenance(_ context.Context, _ int64, _ uuid.UUID) (*models.Maintenance, error) {
	return nil, store.ErrNotFound
}
func (f *fakeStore) ListMaintenances(_ context.Context, _ store.MaintenanceFilter) ([]*models.Maintenance, int, error) {
	return nil, 0, nil
}
func (f *fakeStore) UpdateMaintenanceStatus(_ context.Context, _ int64, _ uuid.UUID, _ models.MaintenanceStatus) error {
	return store.ErrNotFound
}
func (f *fakeStore) CreateInvoice(_ context.Context, _ *models.Invoice) error { return nil }
func (f *fakeStore) GetInvoice(_ context.Context, _ int64, _ uuid.UUID) (*models.Invoice, error) {
	return nil, store.ErrNotFound
}
func (f *fakeStore) ListInvoices(_ context.Context, _ store.InvoiceFilter) ([]*models.Invoice, int, error) {
	return nil, 0, nil
}
func (f *fakeStore) MarkInvoicePaid(_ context.Context, _ int64, _ uuid.UUID) error {
	return store.ErrNotFound
}
func (f *fakeStore) CreateSubscription(_ context.Context, _ *models.Subscription) error { return nil }
func (f *fakeStore) GetCurrentSubscription(_ context.Context, _ int64) (*models.Subscription, error) {
	return nil, store.ErrNotFound
}
func (f *fakeStore) CreateNotification(_ context.Context, _ *models.Notification) error { return nil }
func (f *fakeStore) ListNotifications(_ context.Context, _ store.NotificationFilter) ([]*models.Notification, int, error) {
	return nil, 0, nil
}
func (f *fakeStore) MarkNotificationRead(_ context.Context, _ int64, _ uuid.UUID) error {
	return store.ErrNotFound
}

func (f *fakeStore) GetEmployeesByKeyPrefix(_ context.Context, prefix string) ([]*models.InternalEmployee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.InternalEmployee
	for _, e := range f.employees {
		if e.KeyPrefix == prefix {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateEmployeeLastUsed(_ context.Context, _ uuid.UUID) error { return nil }

func (f *fakeStore) CreateEmployee(_ context.Context, e *models.InternalEmployee) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *e
	f.employees = append(f.employees, &cp)
	return nil
}

func (f *fakeStore) ListEmployees(_ context.Context) ([]*models.InternalEmployee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.InternalEmployee, 0, len(f.employees))
	for _, e := range f.employees {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeStore) RevokeEmployee(_ context.Context, _ uuid.UUID) error { return nil }

func (f *fakeStore) RecordEvent(_ context.Context, e *models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *e
	f.events = append(f.events, &cp)
	return nil
}

func (f *fakeStore) ListEvents(_ context.Context, _ store.EventFilter) ([]*models.Event, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Event, 0, len(f.events))
	for _, e := range f.events {
		cp := *e
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (f *fakeStore) eventNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.events))
	for _, e := range f.events {
		names = append(names, e.Name)
	}
	return names
}

// fakeCache never rate-limits and never caches.
type fakeCache struct{}

func (fakeCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error { return nil }
func (fakeCache) Get(_ context.Context, _ string) ([]byte, bool, error)            { return nil, false, nil }
func (fakeCache) Delete(_ context.Context, _ string) error                         { return nil }
func (fakeCache) Ping(_ context.Context) error                                     { return nil }
func (fakeCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 1, nil
}

func newTestServer(t *testing.T, fs *fakeStore) http.Handler {
	t.Helper()
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	c := fakeCache{}

	deps := api.Dependencies{
		TenantResolver: mw.NewTenantResolver(tenant.NewResolver(fs), m),
		StaffAuth:      mw.NewStaffAuth(fs, m),
		RateLimit:      mw.NewRateLimit(c, 1000),
		Metrics:        m,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),

		Health:        handler.NewHealth(fs, c),
		Users:         handler.NewUsers(fs, m),
		Vehicles:      handler.NewVehicles(fs, c, m, time.Minute),
		Maintenances:  handler.NewMaintenances(fs, m),
		Invoices:      handler.NewInvoices(fs, m),
		Notifications: handler.NewNotifications(fs, m),
		Subscriptions: handler.NewSubscriptions(fs),
		Tenants:       handler.NewTenants(fs),
		Employees:     handler.NewEmployees(fs),
	}
	return api.NewRouter(deps)
}

func seedTenant(fs *fakeStore, id int64, status models.TenantStatus) {
	fs.tenants[id] = &models.Tenant{
		ID:           id,
		Name:         "tenant",
		ContactEmail: "ops@tenant.test",
		Status:       status,
	}
	if id >= fs.nextID {
		fs.nextID = id + 1
	}
}

func seedUser(fs *fakeStore, tenantID int64) uuid.UUID {
	id := uuid.New()
	fs.users[id] = &models.User{
		ID:       id,
		TenantID: tenantID,
		Email:    "driver@tenant.test",
		Name:     "Driver",
	}
	return id
}

func seedVehicle(fs *fakeStore, tenantID int64, ownerID uuid.UUID) uuid.UUID {
	id := uuid.New()
	fs.vehicles[id] = &models.Vehicle{
		ID:           id,
		TenantID:     tenantID,
		OwnerID:      ownerID,
		Registration: "AB-123-CD",
		Status:       models.VehicleActive,
	}
	return id
}

func seedStaff(t *testing.T, fs *fakeStore, rawKey string, role models.EmployeeRole, allTenants bool) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(rawKey), bcrypt.MinCost)
	require.NoError(t, err)
	fs.employees = append(fs.employees, &models.InternalEmployee{
		ID:                  uuid.New(),
		Email:               "staff@fleetward.io",
		Name:                "Staff",
		Role:                role,
		CanAccessAllTenants: allTenants,
		KeyHash:             string(hash),
		KeyPrefix:           rawKey[:8],
	})
}

func do(h http.Handler, method, target, tenantHeader string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	if tenantHeader != "" {
		req.Header.Set(tenant.Header, tenantHeader)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_HealthIsPublic(t *testing.T) {
	h := newTestServer(t, newFakeStore())
	rec := do(h, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_ActiveTenantListsVehicles(t *testing.T) {
	fs := newFakeStore()
	seedTenant(fs, 42, models.TenantActive)
	owner := seedUser(fs, 42)
	seedVehicle(fs, 42, owner)
	h := newTestServer(t, fs)

	rec := do(h, http.MethodGet, "/api/v1/vehicles", "42", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []models.Vehicle `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, int64(42), body.Data[0].TenantID)
}

func TestRouter_MissingHeaderRejected(t *testing.T) {
	fs := newFakeStore()
	seedTenant(fs, 42, models.TenantActive)
	h := newTestServer(t, fs)

	rec := do(h, http.MethodGet, "/api/v1/vehicles", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_UnknownTenantRejected(t *testing.T) {
	fs := newFakeStore()
	seedTenant(fs, 42, models.TenantActive)
	h := newTestServer(t, fs)

	rec := do(h, http.MethodGet, "/api/v1/vehicles", "9999", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRouter_CrossTenantVehicleIs404(t *testing.T) {
	fs := newFakeStore()
	seedTenant(fs, 1, models.TenantActive)
	seedTenant(fs, 2, models.TenantActive)
	owner := seedUser(fs, 1)
	vehicleID := seedVehicle(fs, 1, owner)
	h := newTestServer(t, fs)

	// owning tenant sees it
	rec := do(h, http.MethodGet, "/api/v1/vehicles/"+vehicleID.String(), "1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// the other tenant gets a plain not-found, never a 403
	rec = do(h, http.MethodGet, "/api/v1/vehicles/"+vehicleID.String(), "2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_StatusFlipTakesEffectNextRequest(t *testing.T) {
	fs := newFakeStore()
	seedTenant(fs, 5, models.TenantInactive)
	h := newTestServer(t, fs)

	rec := do(h, http.MethodGet, "/api/v1/vehicles", "5", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	require.NoError(t, fs.UpdateTenantStatus(context.Background(), 5, models.TenantActive))

	rec = do(h, http.MethodGet, "/api/v1/vehicles", "5", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_VehicleOwnerMustShareTenant(t *testing.T) {
	fs := newFakeStore()
	seedTenant(fs, 1, models.TenantActive)
	seedTenant(fs, 2, models.TenantActive)
	foreignOwner := seedUser(fs, 2)
	h := newTestServer(t, fs)

	rec := do(h, http.MethodPost, "/api/v1/vehicles", "1", map[string]any{
		"owner_id":     foreignOwner.String(),
		"registration": "ZZ-999-XX",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_StaffRoutesNeedKey(t *testing.T) {
	h := newTestServer(t, newFakeStore())
	rec := do(h, http.MethodGet, "/api/v1/internal/tenants", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func doStaff(h http.Handler, method, target, key string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Authorization", "Bearer "+key)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_CrossTenantBypassIsGatedAndAudited(t *testing.T) {
	const grantedKey = "fw_aaaa0000000000000000000000000000"
	const plainKey = "fw_bbbb0000000000000000000000000000"
	fs := newFakeStore()
	seedTenant(fs, 1, models.TenantActive)
	seedTenant(fs, 2, models.TenantActive)
	seedVehicle(fs, 1, seedUser(fs, 1))
	seedVehicle(fs, 2, seedUser(fs, 2))
	seedStaff(t, fs, grantedKey, models.RoleOperator, true)
	seedStaff(t, fs, plainKey, models.RoleOperator, false)
	h := newTestServer(t, fs)

	rec := doStaff(h, http.MethodGet, "/api/v1/internal/vehicles", plainKey, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, fs.eventNames())

	rec = doStaff(h, http.MethodGet, "/api/v1/internal/vehicles", grantedKey, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []models.Vehicle `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data, 2)
	assert.Contains(t, fs.eventNames(), models.EventStaffCrossTenantAccess)
}

func TestRouter_AdminOnlyRoutes(t *testing.T) {
	const supportKey = "fw_cccc0000000000000000000000000000"
	const adminKey = "fw_dddd0000000000000000000000000000"
	fs := newFakeStore()
	seedStaff(t, fs, supportKey, models.RoleSupport, false)
	seedStaff(t, fs, adminKey, models.RoleAdmin, false)
	h := newTestServer(t, fs)

	body := map[string]any{"name": "new fleet co", "contact_email": "boss@fleet.test"}

	rec := doStaff(h, http.MethodPost, "/api/v1/internal/tenants", supportKey, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doStaff(h, http.MethodPost, "/api/v1/internal/tenants", adminKey, body)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created struct {
		Data models.Tenant `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, models.TenantPending, created.Data.Status)
}

func TestRouter_TenantStatusChangeIsAudited(t *testing.T) {
	const adminKey = "fw_eeee0000000000000000000000000000"
	fs := newFakeStore()
	seedTenant(fs, 9, models.TenantActive)
	seedStaff(t, fs, adminKey, models.RoleAdmin, false)
	h := newTestServer(t, fs)

	rec := doStaff(h, http.MethodPatch, "/api/v1/internal/tenants/9/status", adminKey,
		map[string]any{"status": "inactive"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, fs.eventNames(), models.EventTenantStatusChanged)

	got, err := fs.GetTenant(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, models.TenantInactive, got.Status)
}

func TestRouter_MetricsEndpointIsPublic(t *testing.T) {
	h := newTestServer(t, newFakeStore())
	rec := do(h, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
