package handler

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/fleetward/fleetward/internal/api/response"
	"github.com/fleetward/fleetward/internal/store"
	"github.com/fleetward/fleetward/pkg/models"
)

// Employees serves staff key administration. Admin role only.
type Employees struct {
	store store.Store
}

// NewEmployees creates the employee administration handlers.
func NewEmployees(s store.Store) *Employees {
	return &Employees{store: s}
}

// generateStaffKey returns a fresh raw key. The prefix portion is stored in
// clear for lookup; the full key only ever leaves as part of the create
// response.
func generateStaffKey() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate staff key: %w", err)
	}
	return "fw_" + hex.EncodeToString(buf), nil
}

// Create handles POST /api/v1/internal/employees.
func (h *Employees) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email               string `json:"email"`
		Name                string `json:"name"`
		Role                string `json:"role"`
		CanAccessAllTenants bool   `json:"can_access_all_tenants"`
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
	role := models.EmployeeRole(req.Role)
	if req.Role == "" {
		role = models.RoleSupport
	}
	if !role.Valid() {
		response.Error(w, http.StatusBadRequest,
			response.CodeInvalidRequest, "role must be one of support, operator, admin", nil)
		return
	}

	rawKey, err := generateStaffKey()
	if err != nil {
		response.Error(w, http.StatusInternalServerError,
			response.CodeInternal, "Failed to generate key", nil)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(rawKey), bcrypt.DefaultCost)
	if err != nil {
		response.Error(w, http.StatusInternalServerError,
			response.CodeInternal, "Failed to hash key", nil)
		return
	}

	now := time.Now().UTC()
	e := &models.InternalEmployee{
		ID:                  uuid.New(),
		Email:               req.Email,
		Name:                req.Name,
		Role:                role,
		CanAccessAllTenants: req.CanAccessAllTenants,
		KeyHash:             string(hash),
		KeyPrefix:           rawKey[:8],
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := h.store.CreateEmployee(r.Context(), e); err != nil {
		storeError(w, err)
		return
	}

	// raw key is shown exactly once
	response.Created(w, map[string]any{
		"employee": e,
		"key":      rawKey,
	})
}

// List handles GET /api/v1/internal/employees.
func (h *Employees) List(w http.ResponseWriter, r *http.Request) {
	employees, err := h.store.ListEmployees(r.Context())
	if err != nil {
		storeError(w, err)
		return
	}
	if employees == nil {
		employees = []*models.InternalEmployee{}
	}
	response.JSON(w, employees)
}

// Revoke handles DELETE /api/v1/internal/employees/{employeeID}.
func (h *Employees) Revoke(w http.ResponseWriter, r *http.Request) {
	id, ok := urlUUID(w, r, "employeeID")
	if !ok {
		return
	}

	if err := h.store.RevokeEmployee(r.Context(), id); err != nil {
		storeError(w, err)
		return
	}
	response.NoContent(w)
}
