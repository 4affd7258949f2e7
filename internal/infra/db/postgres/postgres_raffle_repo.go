package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"iptv-client-portal/internal/domain"
	"iptv-client-portal/internal/domain/model"
	"iptv-client-portal/internal/domain/ports/repository"
)

var _ repository.RaffleRepository = (*raffleRepo)(nil)

type raffleRepo struct{ pool *pgxpool.Pool }

func NewRaffleRepo(pool *pgxpool.Pool) *raffleRepo {
	return &raffleRepo{pool: pool}
}

func (r *raffleRepo) Save(ctx context.Context, tx repository.Tx, raf *model.Raffle) error {
	const q = `
INSERT INTO raffles (id, month, prize_amount, status, winner_id, winning_number, draw_date, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  prize_amount=$3, status=$4, winner_id=$5, winning_number=$6, draw_date=$7;`

	_, err := execSQL(ctx, r.pool, tx, q, raf.ID, raf.Month, raf.PrizeAmount, raf.Status, raf.WinnerID, raf.WinningNumber, raf.DrawDate, raf.CreatedAt)
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

func (r *raffleRepo) FindActiveByMonth(ctx context.Context, tx repository.Tx, month string) (*model.Raffle, error) {
	const q = `SELECT id, month, prize_amount, status, winner_id, winning_number, draw_date, created_at
  FROM raffles WHERE month=$1 AND status='active';`
	row, err := pickRow(ctx, r.pool, tx, q, month)
	if err != nil {
		return nil, err
	}
	raf := &model.Raffle{}
	if err := row.Scan(&raf.ID, &raf.Month, &raf.PrizeAmount, &raf.Status, &raf.WinnerID, &raf.WinningNumber, &raf.DrawDate, &raf.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return raf, nil
}

// SaveEntry relies on the (raffle_id, lucky_number) unique index; a unique
// violation surfaces as ErrAlreadyExists so the caller can draw again.
func (r *raffleRepo) SaveEntry(ctx context.Context, tx repository.Tx, e *model.RaffleEntry) error {
	const q = `
INSERT INTO raffle_entries (id, raffle_id, user_id, lucky_number, reason, created_at)
VALUES ($1,$2,$3,$4,$5,$6);`

	_, err := execSQL(ctx, r.pool, tx, q, e.ID, e.RaffleID, e.UserID, e.LuckyNumber, e.Reason, e.CreatedAt)
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

func (r *raffleRepo) ListEntriesByUser(ctx context.Context, tx repository.Tx, raffleID, userID string) ([]*model.RaffleEntry, error) {
	const q = `SELECT id, raffle_id, user_id, lucky_number, reason, created_at
  FROM raffle_entries WHERE raffle_id=$1 AND user_id=$2 ORDER BY created_at ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, raffleID, userID)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.RaffleEntry
	for rows.Next() {
		e := &model.RaffleEntry{}
		if err := rows.Scan(&e.ID, &e.RaffleID, &e.UserID, &e.LuckyNumber, &e.Reason, &e.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func (r *raffleRepo) CountEntries(ctx context.Context, tx repository.Tx, raffleID string) (int, error) {
	const q = `SELECT COUNT(*) FROM raffle_entries WHERE raffle_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, raffleID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}
