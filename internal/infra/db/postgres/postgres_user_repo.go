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

var _ repository.UserRepository = (*userRepo)(nil)

type userRepo struct{ pool *pgxpool.Pool }

func NewUserRepo(pool *pgxpool.Pool) *userRepo {
	return &userRepo{pool: pool}
}

const userColumns = `id, full_name, email, password_hash, phone, cpf, birth_date, referral_code, referred_by, total_commission, created_at, updated_at`

func (r *userRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (id, full_name, email, password_hash, phone, cpf, birth_date, referral_code, referred_by, total_commission, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (id) DO UPDATE SET
  full_name=$2, email=$3, password_hash=$4, phone=$5, cpf=$6, birth_date=$7, total_commission=$10, updated_at=$12;`

	_, err := execSQL(ctx, r.pool, tx, q, u.ID, u.FullName, u.Email, u.PasswordHash, u.Phone, u.CPF, u.BirthDate, u.ReferralCode, u.ReferredBy, u.TotalCommission, u.CreatedAt, u.UpdatedAt)
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

func (r *userRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanUser(row)
}

func (r *userRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE LOWER(email)=LOWER($1);`
	row, err := pickRow(ctx, r.pool, tx, q, email)
	if err != nil {
		return nil, err
	}
	return scanUser(row)
}

func (r *userRepo) FindByReferralCode(ctx context.Context, tx repository.Tx, code string) (*model.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE referral_code=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, code)
	if err != nil {
		return nil, err
	}
	return scanUser(row)
}

func (r *userRepo) AddCommission(ctx context.Context, tx repository.Tx, id string, delta float64) error {
	const q = `UPDATE users SET total_commission = total_commission + $2, updated_at = NOW() WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, delta)
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

func (r *userRepo) UpdateProfile(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `UPDATE users SET full_name=$2, phone=$3, cpf=$4, birth_date=$5, updated_at=$6 WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, u.ID, u.FullName, u.Phone, u.CPF, u.BirthDate, u.UpdatedAt)
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

func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	if err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.PasswordHash, &u.Phone, &u.CPF, &u.BirthDate, &u.ReferralCode, &u.ReferredBy, &u.TotalCommission, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return u, nil
}
