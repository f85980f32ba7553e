package models

import (
	"time"

	"github.com/google/uuid"
)

// InvoiceStatus is the billing state of an invoice.
type InvoiceStatus string

const (
	InvoiceDraft  InvoiceStatus = "draft"
	InvoiceIssued InvoiceStatus = "issued"
	InvoicePaid   InvoiceStatus = "paid"
	InvoiceVoid   InvoiceStatus = "void"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceDraft, InvoiceIssued, InvoicePaid, InvoiceVoid:
		return true
	}
	return false
}

// Invoice is a billing document, optionally tied to a maintenance record.
// Invoice numbers are unique per tenant.
type Invoice struct {
	ID            uuid.UUID     `db:"id"             json:"id"`
	TenantID      int64         `db:"tenant_id"      json:"tenant_id"`
	MaintenanceID *uuid.UUID    `db:"maintenance_id" json:"maintenance_id,omitempty"`
	Number        string        `db:"number"         json:"number"`
	AmountCents   int64         `db:"amount_cents"   json:"amount_cents"`
	Currency      string        `db:"currency"       json:"currency"`
	Status        InvoiceStatus `db:"status"         json:"status"`
	IssuedAt      *time.Time    `db:"issued_at"      json:"issued_at,omitempty"`
	DueAt         *time.Time    `db:"due_at"         json:"due_at,omitempty"`
	PaidAt        *time.Time    `db:"paid_at"        json:"paid_at,omitempty"`
	Metadata      Metadata      `db:"metadata"       json:"metadata,omitempty"`
	CreatedAt     time.Time     `db:"created_at"     json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at"     json:"updated_at"`
}
