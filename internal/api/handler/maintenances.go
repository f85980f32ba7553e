package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/fleetward/fleetward/internal/api/response"
	"github.com/fleetward/fleetward/internal/metrics"
	"github.com/fleetward/fleetward/internal/store"
	"github.com/fleetward/fleetward/pkg/models"
)

// Maintenances serves the tenant-facing maintenance endpoints. Services,
// repairs, and technical inspections all live here, distinguished by kind.
type Maintenances struct {
	store   store.Store
	metrics *metrics.Metrics
}

// NewMaintenances creates the maintenance handlers.
func NewMaintenances(s store.Store, m *metrics.Metrics) *Maintenances {
	return &Maintenances{store: s, metrics: m}
}

// List handles GET /api/v1/maintenances.
func (h *Maintenances) List(w http.ResponseWriter, r *http.Request) {
	t, ok := requireTenant(w, r)
	if !ok {
		return
	}

	filter := store.MaintenanceFilter{
		TenantID: t.ID,
		Kind:     models.MaintenanceKind(r.URL.Query().Get("kind")),
		Status:   models.MaintenanceStatus(r.URL.Query().Get("status")),
		Page:     queryInt(r, "page"),
		Limit:    queryInt(r, "limit"),
	}
	if vid := r.URL.Query().Get("vehicle_id"); vid != "" {
		id, err := uuid.Parse(vid)
		if err != nil {
			response.Error(w, http.StatusBadRequest,
				response.CodeInvalidRequest, "vehicle_id must be a valid UUID", nil)
			return
		}
		filter.VehicleID = id
	}
	if since := r.URL.Query().Get("since"); since != "" {
		ts, err := time.Parse(time.RFC3339, since)
		if err != nil {
			response.Error(w, http.StatusBadRequest,
				response.CodeInvalidRequest, "since must be a valid RFC3339 timestamp", nil)
			return
		}
		filter.Since = ts
	}

	items, total, err := h.store.ListMaintenances(r.Context(), filter)
	if err != nil {
		storeError(w, err)
		return
	}
	if items == nil {
		items = []*models.Maintenance{}
	}
	response.Collection(w, items, response.NewMeta(filter.Page, filter.Limit, total))
}

// Get handles GET /api/v1/maintenances/{maintenanceID}.
func (h *Maintenances) Get(w http.ResponseWriter, r *http.Request) {
	t, ok := requireTenant(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "maintenanceID")
	if !ok {
		return
	}

	m, err := h.store.GetMaintenance(r.Context(), t.ID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.metrics.CrossTenantMisses.Inc()
		}
		storeError(w, err)
		return
	}
	response.JSON(w, m)
}

// Create handles POST /api/v1/maintenances.
func (h *Maintenances) Create(w http.ResponseWriter, r *http.Request) {
	t, ok := requireTenant(w, r)
	if !ok {
		return
	}

	var req struct {
		VehicleID   string          `json:"vehicle_id"`
		Kind        string          `json:"kind"`
		Garage      string          `json:"garage"`
		Notes       string          `json:"notes"`
		CostCents   int64           `json:"cost_cents"`
		ScheduledAt *time.Time      `json:"scheduled_at"`
		Metadata    models.Metadata `json:"metadata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			response.CodeInvalidRequest, "Invalid JSON body", nil)
		return
	}

	vehicleID, err := uuid.Parse(req.VehicleID)
	if err != nil {
		response.Error(w, http.StatusBadRequest,
			response.CodeInvalidRequest, "vehicle_id must be a valid UUID", nil)
		return
	}
	kind := models.MaintenanceKind(req.Kind)
	if !kind.Valid() {
		response.Error(w, http.StatusBadRequest,
			response.CodeInvalidRequest, "kind must be one of service, repair, inspection", nil)
		return
	}
	if req.ScheduledAt == nil {
		response.Error(w, http.StatusBadRequest,
			response.CodeInvalidRequest, "scheduled_at is required", nil)
		return
	}

	now := time.Now().UTC()
	m := &models.Maintenance{
		ID:          uuid.New(),
		TenantID:    t.ID,
		VehicleID:   vehicleID,
		Kind:        kind,
		Status:      models.MaintenanceScheduled,
		Garage:      req.Garage,
		Notes:       req.Notes,
		CostCents:   req.CostCents,
		ScheduledAt: req.ScheduledAt.UTC(),
		Metadata:    req.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.store.CreateMaintenance(r.Context(), m); err != nil {
		// a vehicle in another tenant is indistinguishable from no vehicle
		if errors.Is(err, store.ErrNotFound) {
			h.metrics.CrossTenantMisses.Inc()
		}
		storeError(w, err)
		return
	}
	response.Created(w, m)
}

// UpdateStatus handles PATCH /api/v1/maintenances/{maintenanceID}/status.
func (h *Maintenances) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	t, ok := requireTenant(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "maintenanceID")
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			response.CodeInvalidRequest, "Invalid JSON body", nil)
		return
	}
	status := models.MaintenanceStatus(req.Status)
	if !status.Valid() {
		response.Error(w, http.StatusBadRequest,
			response.CodeInvalidRequest, "status must be one of scheduled, in_progress, completed, canceled", nil)
		return
	}

	err := h.store.UpdateMaintenanceStatus(r.Context(), t.ID, id, status)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.metrics.CrossTenantMisses.Inc()
			storeError(w, err)
			return
		}
		if errors.Is(err, store.ErrInvalidTransition) {
			response.Error(w, http.StatusUnprocessableEntity,
				response.CodeInvalidRequest, err.Error(), nil)
			return
		}
		storeError(w, err)
		return
	}

	m, err := h.store.GetMaintenance(r.Context(), t.ID, id)
	if err != nil {
		storeError(w, err)
		return
	}
	response.JSON(w, m)
}
