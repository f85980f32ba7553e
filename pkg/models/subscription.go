package models

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionStatus is the billing lifecycle state of a tenant subscription.
type SubscriptionStatus string

const (
	SubscriptionTrialing SubscriptionStatus = "trialing"
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionExpired  SubscriptionStatus = "expired"
)

func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionTrialing, SubscriptionActive, SubscriptionPastDue,
		SubscriptionCanceled, SubscriptionExpired:
		return true
	}
	return false
}

// Subscription is a tenant's plan enrollment. One row per enrollment;
// the current subscription is the newest by starts_at.
type Subscription struct {
	ID        uuid.UUID          `db:"id"         json:"id"`
	TenantID  int64              `db:"tenant_id"  json:"tenant_id"`
	Plan      string             `db:"plan"       json:"plan"`
	Status    SubscriptionStatus `db:"status"     json:"status"`
	StartsAt  time.Time          `db:"starts_at"  json:"starts_at"`
	EndsAt    *time.Time         `db:"ends_at"    json:"ends_at,omitempty"`
	CreatedAt time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt time.Time          `db:"updated_at" json:"updated_at"`
}
