package repository

import (
	"context"
	"time"

	"iptv-client-portal/internal/domain/model"
)

type TransactionRepository interface {
	Save(ctx context.Context, tx Tx, t *model.Transaction) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Transaction, error)
	ListByUser(ctx context.Context, tx Tx, userID string, offset, limit int) ([]*model.Transaction, error)

	// Complete atomically transitions a transaction to completed and merges
	// meta into the metadata bag, but only when the row is not already
	// completed. The returned bool reports whether this call performed the
	// transition; side effects are gated on it, never on a prior read.
	Complete(ctx context.Context, tx Tx, id string, meta model.TransactionMetadata) (bool, error)

	// UpdateStatusUnlessCompleted writes a non-completed status and merges
	// meta, leaving completed rows untouched apart from the metadata merge.
	// completed is a sink state for the status field. The returned status is
	// the one stored after the write, so callers can report the clamped
	// value on an already-completed row.
	UpdateStatusUnlessCompleted(ctx context.Context, tx Tx, id string, status model.TransactionStatus, meta model.TransactionMetadata) (model.TransactionStatus, error)

	// MergeMetadata merges meta into the bag without touching status. Safe
	// to repeat; existing keys written by other steps survive.
	MergeMetadata(ctx context.Context, tx Tx, id string, meta model.TransactionMetadata) error

	// ListPendingWithPaymentOlderThan feeds the reconciler: pending rows
	// that already carry a processor payment id.
	ListPendingWithPaymentOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Transaction, error)

	SumCompletedByPeriod(ctx context.Context, tx Tx, period string) (float64, error)
}
