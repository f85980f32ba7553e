package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/fleetward/fleetward/internal/api/response"
	"github.com/fleetward/fleetward/internal/cache"
	"github.com/fleetward/fleetward/internal/metrics"
	"github.com/fleetward/fleetward/internal/store"
	"github.com/fleetward/fleetward/pkg/models"
)

// Vehicles serves the tenant-facing vehicle endpoints.
type Vehicles struct {
	store    store.Store
	cache    cache.Cache
	metrics  *metrics.Metrics
	statsTTL time.Duration
}

// NewVehicles creates the vehicle handlers.
func NewVehicles(s store.Store, c cache.Cache, m *metrics.Metrics, statsTTL time.Duration) *Vehicles {
	return &Vehicles{store: s, cache: c, metrics: m, statsTTL: statsTTL}
}

type vehicleRequest struct {
	OwnerID            string           `json:"owner_id"`
	Registration       string           `json:"registration"`
	Make               string           `json:"make"`
	Model              string           `json:"model"`
	Year               int              `json:"year"`
	Status             string           `json:"status"`
	Mileage            int64            `json:"mileage"`
	InsuranceExpiresAt *time.Time       `json:"insurance_expires_at"`
	NextInspectionAt   *time.Time       `json:"next_inspection_at"`
	Metadata           models.Metadata  `json:"metadata"`
}

func (req *vehicleRequest) validate() (uuid.UUID, models.VehicleStatus, string) {
	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		return uuid.Nil, "", "owner_id must be a valid UUID"
	}
	if req.Registration == "" {
		return uuid.Nil, "", "registration is required"
	}
	status := models.VehicleStatus(req.Status)
	if req.Status == "" {
		status = models.VehicleActive
	}
	if !status.Valid() {
		return uuid.Nil, "", "status must be one of active, in_maintenance, decommissioned"
	}
	return ownerID, status, ""
}

// List handles GET /api/v1/vehicles.
func (h *Vehicles) List(w http.ResponseWriter, r *http.Request) {
	t, ok := requireTenant(w, r)
	if !ok {
		return
	}

	filter := store.VehicleFilter{
		TenantID:     t.ID,
		Status:       models.VehicleStatus(r.URL.Query().Get("status")),
		Registration: r.URL.Query().Get("registration"),
		Page:         queryInt(r, "page"),
		Limit:        queryInt(r, "limit"),
	}
	if owner := r.URL.Query().Get("owner_id"); owner != "" {
		id, err := uuid.Parse(owner)
		if err != nil {
			response.Error(w, http.StatusBadRequest,
				response.CodeInvalidRequest, "owner_id must be a valid UUID", nil)
			return
		}
		filter.OwnerID = id
	}

	vehicles, total, err := h.store.ListVehicles(r.Context(), filter)
	if err != nil {
		storeError(w, err)
		return
	}
	if vehicles == nil {
		vehicles = []*models.Vehicle{}
	}
	response.Collection(w, vehicles, response.NewMeta(filter.Page, filter.Limit, total))
}

// Get handles GET /api/v1/vehicles/{vehicleID}.
func (h *Vehicles) Get(w http.ResponseWriter, r *http.Request) {
	t, ok := requireTenant(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "vehicleID")
	if !ok {
		return
	}

	v, err := h.store.GetVehicle(r.Context(), t.ID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.metrics.CrossTenantMisses.Inc()
		}
		storeError(w, err)
		return
	}
	response.JSON(w, v)
}

// Create handles POST /api/v1/vehicles.
func (h *Vehicles) Create(w http.ResponseWriter, r *http.Request) {
	t, ok := requireTenant(w, r)
	if !ok {
		return
	}

	var req vehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			response.CodeInvalidRequest, "Invalid JSON body", nil)
		return
	}
	ownerID, status, problem := req.validate()
	if problem != "" {
		response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, problem, nil)
		return
	}

	now := time.Now().UTC()
	v := &models.Vehicle{
		ID:                 uuid.New(),
		TenantID:           t.ID,
		OwnerID:            ownerID,
		Registration:       req.Registration,
		Make:               req.Make,
		Model:              req.Model,
		Year:               req.Year,
		Status:             status,
		Mileage:            req.Mileage,
		InsuranceExpiresAt: req.InsuranceExpiresAt,
		NextInspectionAt:   req.NextInspectionAt,
		Metadata:           req.Metadata,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := h.store.CreateVehicle(r.Context(), v); err != nil {
		storeError(w, err)
		return
	}

	h.invalidateStats(r, t.ID)
	response.Created(w, v)
}

// Update handles PUT /api/v1/vehicles/{vehicleID}.
func (h *Vehicles) Update(w http.ResponseWriter, r *http.Request) {
	t, ok := requireTenant(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "vehicleID")
	if !ok {
		return
	}

	var req vehicleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			response.CodeInvalidRequest, "Invalid JSON body", nil)
		return
	}
	ownerID, status, problem := req.validate()
	if problem != "" {
		response.Error(w, http.StatusBadRequest, response.CodeInvalidRequest, problem, nil)
		return
	}

	v := &models.Vehicle{
		ID:                 id,
		TenantID:           t.ID,
		OwnerID:            ownerID,
		Registration:       req.Registration,
		Make:               req.Make,
		Model:              req.Model,
		Year:               req.Year,
		Status:             status,
		Mileage:            req.Mileage,
		InsuranceExpiresAt: req.InsuranceExpiresAt,
		NextInspectionAt:   req.NextInspectionAt,
		Metadata:           req.Metadata,
	}

	if err := h.store.UpdateVehicle(r.Context(), v); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.metrics.CrossTenantMisses.Inc()
		}
		storeError(w, err)
		return
	}

	h.invalidateStats(r, t.ID)

	updated, err := h.store.GetVehicle(r.Context(), t.ID, id)
	if err != nil {
		storeError(w, err)
		return
	}
	response.JSON(w, updated)
}

// Delete handles DELETE /api/v1/vehicles/{vehicleID}.
func (h *Vehicles) Delete(w http.ResponseWriter, r *http.Request) {
	t, ok := requireTenant(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "vehicleID")
	if !ok {
		return
	}

	if err := h.store.DeleteVehicle(r.Context(), t.ID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.metrics.CrossTenantMisses.Inc()
		}
		storeError(w, err)
		return
	}

	h.invalidateStats(r, t.ID)
	response.NoContent(w)
}

// Stats handles GET /api/v1/stats/vehicles. The snapshot is cached per
// tenant and invalidated on every vehicle write.
func (h *Vehicles) Stats(w http.ResponseWriter, r *http.Request) {
	t, ok := requireTenant(w, r)
	if !ok {
		return
	}

	key := cache.VehicleStatsKey(t.ID)
	if raw, found, err := h.cache.Get(r.Context(), key); err == nil && found {
		var st models.VehicleStats
		if json.Unmarshal(raw, &st) == nil {
			response.JSON(w, &st)
			return
		}
	}

	st, err := h.store.GetVehicleStats(r.Context(), t.ID)
	if err != nil {
		storeError(w, err)
		return
	}

	if raw, err := json.Marshal(st); err == nil {
		// best effort; a cache miss next time is fine
		h.cache.Set(r.Context(), key, raw, h.statsTTL)
	}
	response.JSON(w, st)
}

func (h *Vehicles) invalidateStats(r *http.Request, tenantID int64) {
	h.cache.Delete(r.Context(), cache.VehicleStatsKey(tenantID))
}
