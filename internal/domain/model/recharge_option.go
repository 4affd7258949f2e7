package model

import "time"

// RechargeOption is a purchasable renewal period for a plan type.
type RechargeOption struct {
	ID           string
	PlanType     string // ponto_unico | ponto_duplo | ponto_triplo
	Period       string // mensal | trimestral | semestral | anual
	DurationDays int
	Price        float64
	DisplayName  string
	Active       bool
	CreatedAt    time.Time
}

// Months converts the option duration to whole subscription-months,
// rounding down but never below one.
func (o *RechargeOption) Months() int {
	m := o.DurationDays / 30
	if m < 1 {
		m = 1
	}
	return m
}
