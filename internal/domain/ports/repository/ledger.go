package repository

import (
	"context"

	"iptv-client-portal/internal/domain/model"
)

// LedgerRepository owns the two append-only reporting tables. Entries are
// written once per qualifying payment and never updated or deleted.
type LedgerRepository interface {
	AppendCash(ctx context.Context, tx Tx, e *model.CashLedgerEntry) error
	AppendCredits(ctx context.Context, tx Tx, e *model.CreditsLedgerEntry) error
	ListCashByTransaction(ctx context.Context, tx Tx, transactionID string) ([]*model.CashLedgerEntry, error)
}
