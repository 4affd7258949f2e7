package repository

import (
	"context"

	"iptv-client-portal/internal/domain/model"
)

type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	FindByEmail(ctx context.Context, tx Tx, email string) (*model.User, error)
	FindByReferralCode(ctx context.Context, tx Tx, code string) (*model.User, error)
	// AddCommission adjusts the redeemable balance; delta may be negative
	// for redemptions.
	AddCommission(ctx context.Context, tx Tx, id string, delta float64) error
	UpdateProfile(ctx context.Context, tx Tx, u *model.User) error
}
