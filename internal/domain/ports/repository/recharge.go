package repository

import (
	"context"

	"iptv-client-portal/internal/domain/model"
)

type RechargeOptionRepository interface {
	Save(ctx context.Context, tx Tx, o *model.RechargeOption) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.RechargeOption, error)
	ListActiveByPlanType(ctx context.Context, tx Tx, planType string) ([]*model.RechargeOption, error)
}
