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

// Invoices serves the tenant-facing invoice endpoints.
type Invoices struct {
	store   store.Store
	metrics *metrics.Metrics
}

// NewInvoices creates the invoice handlers.
func NewInvoices(s store.Store, m *metrics.Metrics) *Invoices {
	return &Invoices{store: s, metrics: m}
}

// List handles GET /api/v1/invoices.
func (h *Invoices) List(w http.ResponseWriter, r *http.Request) {
	t, ok := requireTenant(w, r)
	if !ok {
		return
	}

	filter := store.InvoiceFilter{
		TenantID: t.ID,
		Status:   models.InvoiceStatus(r.URL.Query().Get("status")),
		Page:     queryInt(r, "page"),
		Limit:    queryInt(r, "limit"),
	}

	invoices, total, err := h.store.ListInvoices(r.Context(), filter)
	if err != nil {
		storeError(w, err)
		return
	}
	if invoices == nil {
		invoices = []*models.Invoice{}
	}
	response.Collection(w, invoices, response.NewMeta(filter.Page, filter.Limit, total))
}

// Get handles GET /api/v1/invoices/{invoiceID}.
func (h *Invoices) Get(w http.ResponseWriter, r *http.Request) {
	t, ok := requireTenant(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "invoiceID")
	if !ok {
		return
	}

	inv, err := h.store.GetInvoice(r.Context(), t.ID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.metrics.CrossTenantMisses.Inc()
		}
		storeError(w, err)
		return
	}
	response.JSON(w, inv)
}

// Create handles POST /api/v1/invoices.
func (h *Invoices) Create(w http.ResponseWriter, r *http.Request) {
	t, ok := requireTenant(w, r)
	if !ok {
		return
	}

	var req struct {
		MaintenanceID *string         `json:"maintenance_id"`
		Number        string          `json:"number"`
		AmountCents   int64           `json:"amount_cents"`
		Currency      string          `json:"currency"`
		Status        string          `json:"status"`
		IssuedAt      *time.Time      `json:"issued_at"`
		DueAt         *time.Time      `json:"due_at"`
		Metadata      models.Metadata `json:"metadata"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest,
			response.CodeInvalidRequest, "Invalid JSON body", nil)
		return
	}

	if req.Number == "" {
		response.Error(w, http.StatusBadRequest,
			response.CodeInvalidRequest, "number is required", nil)
		return
	}
	if req.AmountCents <= 0 {
		response.Error(w, http.StatusBadRequest,
			response.CodeInvalidRequest, "amount_cents must be positive", nil)
		return
	}

	var maintenanceID *uuid.UUID
	if req.MaintenanceID != nil {
		id, err := uuid.Parse(*req.MaintenanceID)
		if err != nil {
			response.Error(w, http.StatusBadRequest,
				response.CodeInvalidRequest, "maintenance_id must be a valid UUID", nil)
			return
		}
		maintenanceID = &id
	}

	status := models.InvoiceStatus(req.Status)
	if req.Status == "" {
		status = models.InvoiceDraft
	}
	if !status.Valid() {
		response.Error(w, http.StatusBadRequest,
			response.CodeInvalidRequest, "status must be one of draft, issued, paid, void", nil)
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = "EUR"
	}

	now := time.Now().UTC()
	inv := &models.Invoice{
		ID:            uuid.New(),
		TenantID:      t.ID,
		MaintenanceID: maintenanceID,
		Number:        req.Number,
		AmountCents:   req.AmountCents,
		Currency:      currency,
		Status:        status,
		IssuedAt:      req.IssuedAt,
		DueAt:         req.DueAt,
		Metadata:      req.Metadata,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := h.store.CreateInvoice(r.Context(), inv); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			h.metrics.CrossTenantMisses.Inc()
		}
		storeError(w, err)
		return
	}
	response.Created(w, inv)
}

// Pay handles POST /api/v1/invoices/{invoiceID}/pay.
func (h *Invoices) Pay(w http.ResponseWriter, r *http.Request) {
	t, ok := requireTenant(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "invoiceID")
	if !ok {
		return
	}

	err := h.store.MarkInvoicePaid(r.Context(), t.ID, id)
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

	inv, err := h.store.GetInvoice(r.Context(), t.ID, id)
	if err != nil {
		storeError(w, err)
		return
	}
	response.JSON(w, inv)
}
