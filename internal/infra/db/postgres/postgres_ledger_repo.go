package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"iptv-client-portal/internal/domain"
	"iptv-client-portal/internal/domain/model"
	"iptv-client-portal/internal/domain/ports/repository"
)

var _ repository.LedgerRepository = (*ledgerRepo)(nil)

type ledgerRepo struct{ pool *pgxpool.Pool }

func NewLedgerRepo(pool *pgxpool.Pool) *ledgerRepo {
	return &ledgerRepo{pool: pool}
}

func (r *ledgerRepo) AppendCash(ctx context.Context, tx repository.Tx, e *model.CashLedgerEntry) error {
	const q = `
INSERT INTO cash_ledger (id, entry_date, description, credit_amount, debit_amount, transaction_id, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7);`

	_, err := execSQL(ctx, r.pool, tx, q, e.ID, e.EntryDate, e.Description, e.CreditAmount, e.DebitAmount, e.TransactionID, e.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *ledgerRepo) AppendCredits(ctx context.Context, tx repository.Tx, e *model.CreditsLedgerEntry) error {
	const q = `
INSERT INTO credits_ledger (id, entry_date, description, panel, quantity, transaction_id, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7);`

	_, err := execSQL(ctx, r.pool, tx, q, e.ID, e.EntryDate, e.Description, e.Panel, e.Quantity, e.TransactionID, e.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *ledgerRepo) ListCashByTransaction(ctx context.Context, tx repository.Tx, transactionID string) ([]*model.CashLedgerEntry, error) {
	const q = `SELECT id, entry_date, description, credit_amount, debit_amount, transaction_id, created_at
  FROM cash_ledger WHERE transaction_id=$1 ORDER BY id ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, transactionID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.CashLedgerEntry
	for rows.Next() {
		e := &model.CashLedgerEntry{}
		if err := rows.Scan(&e.ID, &e.EntryDate, &e.Description, &e.CreditAmount, &e.DebitAmount, &e.TransactionID, &e.CreatedAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, domain.ErrNotFound
			}
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}
