package model

import "time"

// Referral links a referrer to one referred account and accumulates the
// commission that account's payments have earned.
type Referral struct {
	ID                    string
	ReferrerID            string
	ReferredID            string
	TotalCommissionEarned float64
	LastCommissionDate    *time.Time
	CreatedAt             time.Time
}
