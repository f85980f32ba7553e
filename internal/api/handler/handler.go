// Package handler contains the HTTP handlers. Every tenant-facing handler
// reads the active tenant from the request context and passes its ID
// explicitly into the store; there is no implicit scoping anywhere below
// this layer.
package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mw "github.com/fleetward/fleetward/internal/api/middleware"
	"github.com/fleetward/fleetward/internal/api/response"
	"github.com/fleetward/fleetward/internal/store"
	"github.com/fleetward/fleetward/pkg/models"
)

// requireTenant fetches the tenant bound by the resolution middleware. A
// missing tenant here means the route was wired outside the tenant group;
// reject rather than fall through unscoped.
func requireTenant(w http.ResponseWriter, r *http.Request) (*models.Tenant, bool) {
	t, ok := mw.GetTenant(r)
	if !ok {
		response.Error(w, http.StatusUnauthorized,
			response.CodeTenantRequired, "A valid X-Tenant-ID header is required", nil)
		return nil, false
	}
	return t, true
}

// urlUUID parses a uuid path parameter, writing a 400 on failure.
func urlUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		response.Error(w, http.StatusBadRequest,
			response.CodeInvalidRequest, name+" must be a valid UUID", nil)
		return uuid.Nil, false
	}
	return id, true
}

// storeError maps store failures to responses. Cross-tenant lookups arrive
// here as ErrNotFound and stay a plain 404; existence is never confirmed
// across tenant boundaries.
func storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound,
			response.CodeNotFound, "Resource not found", nil)
	case errors.Is(err, store.ErrDuplicate):
		response.Error(w, http.StatusConflict,
			response.CodeConflict, "Resource already exists", nil)
	default:
		response.Error(w, http.StatusInternalServerError,
			response.CodeInternal, "An unexpected error occurred", nil)
	}
}

func queryInt(r *http.Request, name string) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0
	}
	var n int
	for _, c := range v {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}
