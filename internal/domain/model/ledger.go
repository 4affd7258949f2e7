package model

import (
	"crypto/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// CashLedgerEntry is an append-only cash-movement record. Exactly one credit
// entry is written per qualifying payment; entries are never updated.
type CashLedgerEntry struct {
	ID            string
	EntryDate     time.Time
	Description   string
	CreditAmount  float64
	DebitAmount   float64
	TransactionID string
	CreatedAt     time.Time
}

// CreditsLedgerEntry records subscription-months sold, tagged with the panel
// the credits were consumed from. Append-only like the cash ledger.
type CreditsLedgerEntry struct {
	ID            string
	EntryDate     time.Time
	Description   string
	Panel         string
	Quantity      int
	TransactionID string
	CreatedAt     time.Time
}

// NewLedgerID returns a lexicographically sortable id so ledger scans read
// in insertion order.
func NewLedgerID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), rand.Reader).String()
}

func NewCashCredit(now time.Time, description string, amount float64, transactionID string) *CashLedgerEntry {
	return &CashLedgerEntry{
		ID:            NewLedgerID(now),
		EntryDate:     now,
		Description:   description,
		CreditAmount:  amount,
		DebitAmount:   0,
		TransactionID: transactionID,
		CreatedAt:     now,
	}
}

func NewCreditsSold(now time.Time, description, panel string, quantity int, transactionID string) *CreditsLedgerEntry {
	return &CreditsLedgerEntry{
		ID:            NewLedgerID(now),
		EntryDate:     now,
		Description:   description,
		Panel:         panel,
		Quantity:      quantity,
		TransactionID: transactionID,
		CreatedAt:     now,
	}
}
