package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"iptv-client-portal/internal/domain"
	"iptv-client-portal/internal/domain/model"
	"iptv-client-portal/internal/domain/ports/repository"
)

var _ repository.TransactionRepository = (*transactionRepo)(nil)

type transactionRepo struct{ pool *pgxpool.Pool }

func NewTransactionRepo(pool *pgxpool.Pool) *transactionRepo {
	return &transactionRepo{pool: pool}
}

const transactionColumns = `id, user_id, type, amount, payment_method, status, description, metadata, created_at, updated_at`

func (r *transactionRepo) Save(ctx context.Context, tx repository.Tx, t *model.Transaction) error {
	meta, err := json.Marshal(t.Metadata)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	const q = `
INSERT INTO transactions (id, user_id, type, amount, payment_method, status, description, metadata, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  payment_method=$5, status=$6, description=$7, metadata=$8, updated_at=$10;`

	_, err = execSQL(ctx, r.pool, tx, q, t.ID, t.UserID, t.Type, t.Amount, t.PaymentMethod, t.Status, t.Description, meta, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *transactionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Transaction, error) {
	q := `SELECT ` + transactionColumns + ` FROM transactions WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanTransaction(row)
}

func (r *transactionRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, offset, limit int) ([]*model.Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	q := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id=$1 ORDER BY created_at DESC OFFSET $2 LIMIT $3;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, offset, limit)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

// Complete is the single write that decides whether completion side effects
// run. The WHERE clause makes redelivery and concurrent duplicates collapse
// onto one winner: only the invocation whose UPDATE changed a row applies
// side effects. Metadata is merged at the SQL level so keys written by the
// recharge and preference steps survive.
func (r *transactionRepo) Complete(ctx context.Context, tx repository.Tx, id string, meta model.TransactionMetadata) (bool, error) {
	b, err := json.Marshal(meta)
	if err != nil {
		return false, domain.ErrInvalidArgument
	}
	const q = `
UPDATE transactions
   SET status = 'completed',
       metadata = COALESCE(metadata, '{}'::jsonb) || $2::jsonb,
       updated_at = NOW()
 WHERE id = $1
   AND status <> 'completed';`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, b)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

// UpdateStatusUnlessCompleted writes a non-completed status. completed is a
// sink for the status field: a late "in_process" after an "approved" must
// not downgrade the row. The metadata merge still happens so the freshest
// processor payload is recorded either way, and RETURNING reports the
// status actually stored.
func (r *transactionRepo) UpdateStatusUnlessCompleted(ctx context.Context, tx repository.Tx, id string, status model.TransactionStatus, meta model.TransactionMetadata) (model.TransactionStatus, error) {
	if status == model.TransactionStatusCompleted {
		return "", domain.ErrInvalidArgument
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return "", domain.ErrInvalidArgument
	}
	const q = `
UPDATE transactions
   SET status = CASE WHEN status = 'completed' THEN status ELSE $2 END,
       metadata = COALESCE(metadata, '{}'::jsonb) || $3::jsonb,
       updated_at = NOW()
 WHERE id = $1
RETURNING status;`

	row, err := pickRow(ctx, r.pool, tx, q, id, status, b)
	if err != nil {
		return "", domain.ErrInvalidExecContext
	}
	var stored model.TransactionStatus
	if err := row.Scan(&stored); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", domain.ErrOperationFailed
	}
	return stored, nil
}

func (r *transactionRepo) MergeMetadata(ctx context.Context, tx repository.Tx, id string, meta model.TransactionMetadata) error {
	b, err := json.Marshal(meta)
	if err != nil {
		return domain.ErrInvalidArgument
	}
	const q = `
UPDATE transactions
   SET metadata = COALESCE(metadata, '{}'::jsonb) || $2::jsonb,
       updated_at = NOW()
 WHERE id = $1;`

	_, err = execSQL(ctx, r.pool, tx, q, id, b)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *transactionRepo) ListPendingWithPaymentOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	q := `SELECT ` + transactionColumns + `
  FROM transactions
 WHERE status='pending'
   AND metadata ? 'mercado_pago_id'
   AND created_at < $1
 ORDER BY created_at ASC
 LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		switch err {
		case pgx.ErrNoRows:
			return nil, domain.ErrNotFound
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *transactionRepo) SumCompletedByPeriod(ctx context.Context, tx repository.Tx, period string) (float64, error) {
	const q = `SELECT COALESCE(SUM(amount),0) FROM transactions WHERE status='completed' AND type IN ('recharge','subscription') AND updated_at >= DATE_TRUNC($1, NOW());`
	row, err := pickRow(ctx, r.pool, tx, q, period)
	if err != nil {
		return 0, err
	}
	var sum float64
	if err := row.Scan(&sum); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return sum, nil
}

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	t := &model.Transaction{}
	var meta []byte
	if err := row.Scan(&t.ID, &t.UserID, &t.Type, &t.Amount, &t.PaymentMethod, &t.Status, &t.Description, &meta, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &t.Metadata); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
	}
	return t, nil
}
