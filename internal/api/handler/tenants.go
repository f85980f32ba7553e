package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mw "github.com/fleetward/fleetward/internal/api/middleware"
	"github.com/fleetward/fleetward/internal/api/response"
	"github.com/fleetward/fleetward/internal/store"
	"github.com/fleetward/fleetward/pkg/models"
)

// Tenants serves the staff-only tenant administration endpoints under
// /api/v1/internal. These are the only routes that touch tenant rows
// directly or read across tenants, and cross-tenant reads leave an audit
// event behind.
type Tenants struct {
	store store.Store
}

// NewTenants creates the staff tenant-administration handlers.
func NewTenants(s store.Store) *Tenants {
	return &Tenants{store: s}
}

func urlTenantID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "tenantID"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(w, http.StatusBadRequest,
			response.CodeInvalidRequest, "tenantID must be a positive integer", nil)
		return 0, false
	}
	return id, true
}

// recordAudit writes a staff audit event. Failures are logged, not fatal:
// the action itself already happened.
func (h *Tenants) recordAudit(r *http.Request, name string, tenantID *int64, payload models.Metadata) {
	e, _ := mw.GetEmployee(r)
	actor := "unknown"
	if e != nil {
		actor = e.Email
	}
	err := h.store.RecordEvent(r.Context(), &models.Event{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Actor:      actor,
		Name:       name,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		slog.Error("record audit event", "name", name, "error", err)
	}
}

// List handles GET /api/v1/internal/tenants.
func (h *Tenants) List(w http.ResponseWriter, r *http.Request) {
	filter := store.TenantFilter{
		Status: models.TenantStatus(r.URL.Query().Get("status")),
		Page:   queryInt(r, "page"),
		Limit:  queryInt(r, "limit"),
	}

	tenants, total, err := h.store.ListTenants(r.Context(), filter)
	if err != nil {
		storeError(w, err)
		return
	}
	if tenants == nil {
		tenants = []*models.Tenant{}
	}
	response.Collection(w, tenants, response.NewMeta(filter.Page, filter.Limit, total))
}

// Create handles POST /api/v1/internal/tenants.
func (h *Tenants) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         string `json:"name"`
		ContactEmail string `json:"contact_email"`
		ContactPhone string `json:"contact_phone"`
		Address      string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			response.CodeInvalidRequest, "Invalid JSON body", nil)
		return
	}
	if req.Name == "" {
		response.Error(w, http.StatusBadRequest,
			response.CodeInvalidRequest, "name is required", nil)
		return
	}
	if req.ContactEmail == "" {
		response.Error(w, http.StatusBadRequest,
			response.CodeInvalidRequest, "contact_email is required", nil)
		return
	}

	now := time.Now().UTC()
	t := &models.Tenant{
		Name:         req.Name,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		Address:      req.Address,
		Status:       models.TenantPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := h.store.CreateTenant(r.Context(), t); err != nil {
		storeError(w, err)
		return
	}
	response.Created(w, t)
}

// Get handles GET /api/v1/internal/tenants/{tenantID}.
func (h *Tenants) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := urlTenantID(w, r)
	if !ok {
		return
	}

	t, err := h.store.GetTenant(r.Context(), id)
	if err != nil {
		storeError(w, err)
		return
	}
	response.JSON(w, t)
}

// UpdateStatus handles PATCH /api/v1/internal/tenants/{tenantID}/status.
// Status changes take effect on the next resolution; there is no cache to
// invalidate.
func (h *Tenants) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := urlTenantID(w, r)
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
	status := models.TenantStatus(req.Status)
	if !status.Valid() {
		response.Error(w, http.StatusBadRequest,
			response.CodeInvalidRequest, "status must be one of active, inactive, pending", nil)
		return
	}

	if err := h.store.UpdateTenantStatus(r.Context(), id, status); err != nil {
		storeError(w, err)
		return
	}

	h.recordAudit(r, models.EventTenantStatusChanged, &id,
		models.Metadata{"status": string(status)})

	t, err := h.store.GetTenant(r.Context(), id)
	if err != nil {
		storeError(w, err)
		return
	}
	response.JSON(w, t)
}

// Delete handles DELETE /api/v1/internal/tenants/{tenantID}. All dependent
// rows cascade with the tenant.
func (h *Tenants) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := urlTenantID(w, r)
	if !ok {
		return
	}

	if err := h.store.DeleteTenant(r.Context(), id); err != nil {
		storeError(w, err)
		return
	}
	response.NoContent(w)
}

// ListAllVehicles handles GET /api/v1/internal/vehicles — the sanctioned
// cross-tenant read. The route is gated by RequireAllTenantAccess, and each
// use lands in the audit trail.
func (h *Tenants) ListAllVehicles(w http.ResponseWriter, r *http.Request) {
	filter := store.VehicleFilter{
		Status: models.VehicleStatus(r.URL.Query().Get("status")),
		Page:   queryInt(r, "page"),
		Limit:  queryInt(r, "limit"),
	}

	vehicles, total, err := h.store.ListVehiclesAllTenants(r.Context(), filter)
	if err != nil {
		storeError(w, err)
		return
	}
	if vehicles == nil {
		vehicles = []*models.Vehicle{}
	}

	h.recordAudit(r, models.EventStaffCrossTenantAccess, nil,
		models.Metadata{"resource": "vehicles", "total": total})

	response.Collection(w, vehicles, response.NewMeta(filter.Page, filter.Limit, total))
}

// Notify handles POST /api/v1/internal/tenants/{tenantID}/notifications —
// staff-created notifications delivered into a tenant's feed.
func (h *Tenants) Notify(w http.ResponseWriter, r *http.Request) {
	id, ok := urlTenantID(w, r)
	if !ok {
		return
	}

	var req struct {
		Kind     string          `json:"kind"`
		Title    string          `json:"title"`
		Body     string          `json:"body"`
		Metadata models.Metadata `json:"metadata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			response.CodeInvalidRequest, "Invalid JSON body", nil)
		return
	}
	if req.Kind == "" || req.Title == "" {
		response.Error(w, http.StatusBadRequest,
			response.CodeInvalidRequest, "kind and title are required", nil)
		return
	}

	// the tenant must exist; notifications for unknown tenants are a 404
	if _, err := h.store.GetTenant(r.Context(), id); err != nil {
		storeError(w, err)
		return
	}

	n := &models.Notification{
		ID:        uuid.New(),
		TenantID:  id,
		Kind:      req.Kind,
		Title:     req.Title,
		Body:      req.Body,
		Metadata:  req.Metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.store.CreateNotification(r.Context(), n); err != nil {
		storeError(w, err)
		return
	}
	response.Created(w, n)
}

// Subscribe handles POST /api/v1/internal/tenants/{tenantID}/subscriptions.
func (h *Tenants) Subscribe(w http.ResponseWriter, r *http.Request) {
	id, ok := urlTenantID(w, r)
	if !ok {
		return
	}

	var req struct {
		Plan     string     `json:"plan"`
		Status   string     `json:"status"`
		StartsAt *time.Time `json:"starts_at"`
		EndsAt   *time.Time `json:"ends_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			response.CodeInvalidRequest, "Invalid JSON body", nil)
		return
	}
	if req.Plan == "" {
		response.Error(w, http.StatusBadRequest,
			response.CodeInvalidRequest, "plan is required", nil)
		return
	}
	status := models.SubscriptionStatus(req.Status)
	if req.Status == "" {
		status = models.SubscriptionTrialing
	}
	if !status.Valid() {
		response.Error(w, http.StatusBadRequest,
			response.CodeInvalidRequest, "status must be one of trialing, active, past_due, canceled, expired", nil)
		return
	}

	if _, err := h.store.GetTenant(r.Context(), id); err != nil {
		storeError(w, err)
		return
	}

	startsAt := time.Now().UTC()
	if req.StartsAt != nil {
		startsAt = req.StartsAt.UTC()
	}

	now := time.Now().UTC()
	sub := &models.Subscription{
		ID:        uuid.New(),
		TenantID:  id,
		Plan:      req.Plan,
		Status:    status,
		StartsAt:  startsAt,
		EndsAt:    req.EndsAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.CreateSubscription(r.Context(), sub); err != nil {
		storeError(w, err)
		return
	}
	response.Created(w, sub)
}

// Events handles GET /api/v1/internal/events — the audit trail view.
func (h *Tenants) Events(w http.ResponseWriter, r *http.Request) {
	filter := store.EventFilter{
		Name:  r.URL.Query().Get("name"),
		Page:  queryInt(r, "page"),
		Limit: queryInt(r, "limit"),
	}
	if tid := r.URL.Query().Get("tenant_id"); tid != "" {
		id, err := strconv.ParseInt(tid, 10, 64)
		if err != nil || id <= 0 {
			response.Error(w, http.StatusBadRequest,
				response.CodeInvalidRequest, "tenant_id must be a positive integer", nil)
			return
		}
		filter.TenantID = id
	}

	events, total, err := h.store.ListEvents(r.Context(), filter)
	if err != nil {
		storeError(w, err)
		return
	}
	if events == nil {
		events = []*models.Event{}
	}
	response.Collection(w, events, response.NewMeta(filter.Page, filter.Limit, total))
}
