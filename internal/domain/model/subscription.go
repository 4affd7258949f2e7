package model

import (
	"time"

	"iptv-client-portal/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusExpired   SubscriptionStatus = "expired"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
	SubscriptionStatusSuspended SubscriptionStatus = "suspended"
)

// Subscription is one IPTV login slot. Multi-login plans are represented as
// several rows sharing a user and plan type; a qualifying payment extends
// all of the user's active rows identically.
type Subscription struct {
	ID             string
	UserID         string
	PlanType       string // ponto_unico | ponto_duplo | ponto_triplo
	AppUsername    string
	AppPassword    string
	PanelName      string
	Status         SubscriptionStatus
	ExpirationDate time.Time
	MonthlyValue   float64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (s *Subscription) IsZero() bool { return s == nil || s.ID == "" }

// Extend pushes the expiration forward by d days. A renewal before expiry
// counts from the old expiry; a lapsed renewal counts from now, never from
// a stale past date. The result is always >= now + d.
func (s *Subscription) Extend(days int, now time.Time) error {
	if days <= 0 {
		return domain.ErrInvalidArgument
	}
	base := s.ExpirationDate
	if base.Before(now) {
		base = now
	}
	s.ExpirationDate = base.AddDate(0, 0, days)
	s.UpdatedAt = now
	return nil
}

// IsPastDue reports whether an active subscription has lapsed.
func (s *Subscription) IsPastDue(now time.Time) bool {
	return s.Status == SubscriptionStatusActive && s.ExpirationDate.Before(now)
}
