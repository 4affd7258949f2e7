package repository

import (
	"context"
	"time"

	"iptv-client-portal/internal/domain/model"
)

type SubscriptionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Subscription) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	// FindActiveByUser returns every active login slot the user owns,
	// oldest first. Multi-login plans have several rows.
	FindActiveByUser(ctx context.Context, tx Tx, userID string) ([]*model.Subscription, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.Subscription, error)
	UpdateExpiration(ctx context.Context, tx Tx, id string, expiration, updatedAt time.Time) error
	// MarkExpiredPastDue flips active rows whose expiration has passed and
	// returns how many were flipped.
	MarkExpiredPastDue(ctx context.Context, tx Tx, now time.Time) (int, error)
	CountByStatus(ctx context.Context, tx Tx) (map[model.SubscriptionStatus]int, error)
}
