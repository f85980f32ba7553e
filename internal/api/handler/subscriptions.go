package handler

import (
	"net/http"

	"github.com/fleetward/fleetward/internal/api/response"
	"github.com/fleetward/fleetward/internal/store"
)

// Subscriptions serves the tenant-facing subscription endpoint. Enrollment
// changes go through staff; tenants read their current plan.
type Subscriptions struct {
	store store.Store
}

// NewSubscriptions creates the subscription handlers.
func NewSubscriptions(s store.Store) *Subscriptions {
	return &Subscriptions{store: s}
}

// Current handles GET /api/v1/subscription.
func (h *Subscriptions) Current(w http.ResponseWriter, r *http.Request) {
	t, ok := requireTenant(w, r)
	if !ok {
		return
	}

	sub, err := h.store.GetCurrentSubscription(r.Context(), t.ID)
	if err != nil {
		storeError(w, err)
		return
	}
	response.JSON(w, sub)
}
