package handler

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/fleetward/fleetward/internal/api/response"
	"github.com/fleetward/fleetward/internal/metrics"
	"github.com/fleetward/fleetward/internal/store"
	"github.com/fleetward/fleetward/pkg/models"
)

// Notifications serves the tenant-facing notification endpoints. Creation
// happens server-side (staff broadcasts, reminders), so tenants only list
// and acknowledge.
type Notifications struct {
	store   store.Store
	metrics *metrics.Metrics
}

// NewNotifications creates the notification handlers.
func NewNotifications(s store.Store, m *metrics.Metrics) *Notifications {
	return &Notifications{store: s, metrics: m}
}

// List handles GET /api/v1/notifications.
func (h *Notifications) List(w http.ResponseWriter, r *http.Request) {
	t, ok := requireTenant(w, r)
	if !ok {
		return
	}

	filter := store.NotificationFilter{
		TenantID:   t.ID,
		UnreadOnly: r.URL.Query().Get("unread") == "true",
		Page:       queryInt(r, "page"),
		Limit:      queryInt(r, "limit"),
	}
	if uid := r.URL.Query().Get("user_id"); uid != "" {
		id, err := uuid.Parse(uid)
		if err != nil {
			response.Error(w, http.StatusBadRequest,
				response.CodeInvalidRequest, "user_id must be a valid UUID", nil)
			return
		}
		filter.UserID = id
	}

	items, total, err := h.store.ListNotifications(r.Context(), filter)
	if err != nil {
		storeError(w, err)
		return
	}
	if items == nil {
		items = []*models.Notification{}
	}
	response.Collection(w, items, response.NewMeta(filter.Page, filter.Limit, total))
}

// MarkRead handles POST /api/v1/notifications/{notificationID}/read.
func (h *Notifications) MarkRead(w http.ResponseWriter, r *http.Request) {
	t, ok := requireTenant(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "notificationID")
	if !ok {
		return
	}

	if err := h.store.MarkNotificationRead(r.Context(), t.ID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.metrics.CrossTenantMisses.Inc()
		}
		storeError(w, err)
		return
	}
	response.NoContent(w)
}
