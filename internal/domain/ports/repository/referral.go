package repository

import (
	"context"
	"time"

	"iptv-client-portal/internal/domain/model"
)

type ReferralRepository interface {
	Save(ctx context.Context, tx Tx, r *model.Referral) error
	FindByReferred(ctx context.Context, tx Tx, referredID string) (*model.Referral, error)
	ListByReferrer(ctx context.Context, tx Tx, referrerID string) ([]*model.Referral, error)
	AddCommission(ctx context.Context, tx Tx, id string, amount float64, at time.Time) error
}
