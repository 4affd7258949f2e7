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

var _ repository.RechargeOptionRepository = (*rechargeOptionRepo)(nil)

type rechargeOptionRepo struct{ pool *pgxpool.Pool }

func NewRechargeOptionRepo(pool *pgxpool.Pool) *rechargeOptionRepo {
	return &rechargeOptionRepo{pool: pool}
}

const rechargeColumns = `id, plan_type, period, duration_days, price, display_name, active, created_at`

func (r *rechargeOptionRepo) Save(ctx context.Context, tx repository.Tx, o *model.RechargeOption) error {
	const q = `
INSERT INTO recharge_options (id, plan_type, period, duration_days, price, display_name, active, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  plan_type=$2, period=$3, duration_days=$4, price=$5, display_name=$6, active=$7;`

	_, err := execSQL(ctx, r.pool, tx, q, o.ID, o.PlanType, o.Period, o.DurationDays, o.Price, o.DisplayName, o.Active, o.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *rechargeOptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.RechargeOption, error) {
	q := `SELECT ` + rechargeColumns + ` FROM recharge_options WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanRechargeOption(row)
}

func (r *rechargeOptionRepo) ListActiveByPlanType(ctx context.Context, tx repository.Tx, planType string) ([]*model.RechargeOption, error) {
	q := `SELECT ` + rechargeColumns + ` FROM recharge_options WHERE plan_type=$1 AND active ORDER BY duration_days ASC;`
	rows, err := queryRows(ctx, r.pool, tx, q, planType)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return nil, err
		}
		return nil, domain.ErrOperationFailed
	}
	defer rows.Close()

	var out []*model.RechargeOption
	for rows.Next() {
		o, err := scanRechargeOption(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return out, nil
}

func scanRechargeOption(row pgx.Row) (*model.RechargeOption, error) {
	o := &model.RechargeOption{}
	if err := row.Scan(&o.ID, &o.PlanType, &o.Period, &o.DurationDays, &o.Price, &o.DisplayName, &o.Active, &o.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return o, nil
}
