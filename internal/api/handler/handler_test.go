package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mw "github.com/fleetward/fleetward/internal/api/middleware"
	"github.com/fleetward/fleetward/internal/metrics"
	"github.com/fleetward/fleetward/internal/store"
	"github.com/fleetward/fleetward/pkg/models"
)

func TestStoreError_Mapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", store.ErrNotFound, http.StatusNotFound},
		{"duplicate", store.ErrDuplicate, http.StatusConflict},
		{"anything else", assert.AnError, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			storeError(rec, tc.err)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=3&limit=abc&empty=", nil)
	assert.Equal(t, 3, queryInt(req, "page"))
	assert.Equal(t, 0, queryInt(req, "limit"))
	assert.Equal(t, 0, queryInt(req, "empty"))
	assert.Equal(t, 0, queryInt(req, "missing"))
}

func TestRequireTenant_RejectsUnboundRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/vehicles", nil)
	rec := httptest.NewRecorder()

	_, ok := requireTenant(rec, req)
	assert.False(t, ok)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// statsStore counts GetVehicleStats hits; everything else is unreachable in
// these tests.
type statsStore struct {
	store.Store
	hits int
}

func (s *statsStore) GetVehicleStats(_ context.Context, _ int64) (*models.VehicleStats, error) {
	s.hits++
	return &models.VehicleStats{Total: 7, Active: 5}, nil
}

type memoryCache struct {
	data map[string][]byte
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string][]byte)}
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.data[key] = value
	return nil
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memoryCache) Delete(_ context.Context, key string) error {
	delete(c.data, key)
	return nil
}

func (c *memoryCache) Ping(_ context.Context) error { return nil }

func (c *memoryCache) IncrWithExpiry(_ context.Context, _ string, _ time.Duration) (int64, error) {
	return 1, nil
}

func TestVehicleStats_CachesSnapshot(t *testing.T) {
	ss := &statsStore{}
	mc := newMemoryCache()
	h := NewVehicles(ss, mc, metrics.New(prometheus.NewRegistry()), time.Minute)

	get := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/stats/vehicles", nil)
		req = req.WithContext(mw.SetTenant(req.Context(),
			&models.Tenant{ID: 42, Status: models.TenantActive}))
		rec := httptest.NewRecorder()
		h.Stats(rec, req)
		return rec
	}

	rec := get()
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, ss.hits)

	// second read is served from the cache
	rec = get()
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, ss.hits)

	var body struct {
		Data models.VehicleStats `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 7, body.Data.Total)
	assert.Equal(t, 5, body.Data.Active)
}
