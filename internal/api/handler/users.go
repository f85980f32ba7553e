package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fleetward/fleetward/internal/api/response"
	"github.com/fleetward/fleetward/internal/metrics"
	"github.com/fleetward/fleetward/internal/store"
	"github.com/fleetward/fleetward/pkg/models"
)

// Users serves the tenant-facing user endpoints.
type Users struct {
	store   store.Store
	metrics *metrics.Metrics
}

// NewUsers creates the user handlers.
func NewUsers(s store.Store, m *metrics.Metrics) *Users {
	return &Users{store: s, metrics: m}
}

// Create handles POST /api/v1/users.
func (h *Users) Create(w http.ResponseWriter, r *http.Request) {
	t, ok := requireTenant(w, r)
	if !ok {
		return
	}

	var req struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			response.CodeInvalidRequest, "Invalid JSON body", nil)
		return
	}
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		response.Error(w, http.StatusBadRequest,
			response.CodeInvalidRequest, "a valid email is required", nil)
		return
	}
	if req.Name == "" {
		response.Error(w, http.StatusBadRequest,
			response.CodeInvalidRequest, "name is required", nil)
		return
	}

	now := time.Now().UTC()
	u := &models.User{
		ID:        uuid.New(),
		TenantID:  t.ID,
		Email:     req.Email,
		Name:      req.Name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := h.store.CreateUser(r.Context(), u); err != nil {
		storeError(w, err)
		return
	}
	response.Created(w, u)
}

// Get handles GET /api/v1/users/{userID}.
func (h *Users) Get(w http.ResponseWriter, r *http.Request) {
	t, ok := requireTenant(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "userID")
	if !ok {
		return
	}

	u, err := h.store.GetUser(r.Context(), t.ID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.metrics.CrossTenantMisses.Inc()
		}
		storeError(w, err)
		return
	}
	response.JSON(w, u)
}
