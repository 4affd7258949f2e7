package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"iptv-client-portal/internal/domain"
	"iptv-client-portal/internal/domain/model"
	"iptv-client-portal/internal/domain/ports/repository"
)

var _ repository.ReferralRepository = (*referralRepo)(nil)

type referralRepo struct{ pool *pgxpool.Pool }

func NewReferralRepo(pool *pgxpool.Pool) *referralRepo {
	return &referralRepo{pool: pool}
}

const referralColumns = `id, referrer_id, referred_id, total_commission_earned, last_commission_date, created_at`

func (r *referralRepo) Save(ctx context.Context, tx repository.Tx, ref *model.Referral) error {
	const q = `
INSERT INTO referrals (id, referrer_id, referred_id, total_commission_earned, last_commission_date, created_at)
VALUES ($1,$2,$3,$4,$5,$6);`

	_, err := execSQL(ctx, r.pool, tx, q, ref.ID, ref.ReferrerID, ref.ReferredID, ref.TotalCommissionEarned, ref.LastCommissionDate, ref.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrAlreadyExists
		}
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *referralRepo) FindByReferred(ctx context.Context, tx repository.Tx, referredID string) (*model.Referral, error) {
	q := `SELECT ` + referralColumns + ` FROM referrals WHERE referred_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, referredID)
	if err != nil {
		return nil, err
	}
	return scanReferral(row)
}

func (r *referralRepo) ListByReferrer(ctx context.Context, tx repository.Tx, referrerID string) ([]*model.Referral, error) {
	q := `SELECT ` + referralColumns + ` FROM referrals WHERE referrer_id=$1 ORDER BY created_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, referrerID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.Referral
	for rows.Next() {
		ref, err := scanReferral(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *referralRepo) AddCommission(ctx context.Context, tx repository.Tx, id string, amount float64, at time.Time) error {
	const q = `
UPDATE referrals
   SET total_commission_earned = total_commission_earned + $2,
       last_commission_date = $3
 WHERE id = $1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, amount, at)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanReferral(row pgx.Row) (*model.Referral, error) {
	ref := &model.Referral{}
	if err := row.Scan(&ref.ID, &ref.ReferrerID, &ref.ReferredID, &ref.TotalCommissionEarned, &ref.LastCommissionDate, &ref.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return ref, nil
}
