package model

import "time"

type RaffleStatus string

const (
	RaffleStatusActive RaffleStatus = "active"
	RaffleStatusDrawn  RaffleStatus = "drawn"
	RaffleStatusPaid   RaffleStatus = "paid"
)

type RaffleEntryReason string

const (
	RaffleEntryReasonPayment  RaffleEntryReason = "payment"
	RaffleEntryReasonReferral RaffleEntryReason = "referral"
)

// Raffle is the monthly prize draw. Month is "2006-01".
type Raffle struct {
	ID            string
	Month         string
	PrizeAmount   float64
	Status        RaffleStatus
	WinnerID      *string
	WinningNumber *int
	DrawDate      *time.Time
	CreatedAt     time.Time
}

// MaxLuckyNumber bounds the lucky numbers handed out per raffle.
const MaxLuckyNumber = 99999

// RaffleEntry is one lucky number held by a user in a raffle. Numbers are
// unique per raffle; users earn them by paying or by referring.
type RaffleEntry struct {
	ID          string
	RaffleID    string
	UserID      string
	LuckyNumber int
	Reason      RaffleEntryReason
	CreatedAt   time.Time
}
