package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"iptv-client-portal/internal/domain"
	"iptv-client-portal/internal/domain/model"
	"iptv-client-portal/internal/domain/ports/repository"
	"iptv-client-portal/internal/infra/logging"
	"iptv-client-portal/internal/infra/metrics"
)

var _ SubscriptionUseCase = (*subscriptionUC)(nil)

type SubscriptionUseCase interface {
	List(ctx context.Context, userID string) ([]*model.Subscription, error)

	// ExtendAllActive pushes every active login slot of the user forward by
	// days. All slots move or none do.
	ExtendAllActive(ctx context.Context, userID string, days int) (int, error)

	// FinishExpired flips active subscriptions whose expiration has passed
	// and refreshes the status gauge. Run on a timer.
	FinishExpired(ctx context.Context) (int, error)
}

type subscriptionUC struct {
	subscriptions repository.SubscriptionRepository
	txManager     repository.TransactionManager
	log           *zerolog.Logger
}

func NewSubscriptionUseCase(subscriptions repository.SubscriptionRepository, txManager repository.TransactionManager, log *zerolog.Logger) *subscriptionUC {
	return &subscriptionUC{subscriptions: subscriptions, txManager: txManager, log: log}
}

func (u *subscriptionUC) List(ctx context.Context, userID string) ([]*model.Subscription, error) {
	return u.subscriptions.ListByUser(ctx, repository.NoTX, userID)
}

func (u *subscriptionUC) ExtendAllActive(ctx context.Context, userID string, days int) (int, error) {
	if days <= 0 {
		return 0, domain.ErrInvalidArgument
	}
	subs, err := u.subscriptions.FindActiveByUser(ctx, repository.NoTX, userID)
	if err != nil {
		return 0, err
	}
	if len(subs) == 0 {
		return 0, domain.ErrNoActiveSubscription
	}
	now := time.Now()
	err = u.txManager.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		for _, s := range subs {
			if err := s.Extend(days, now); err != nil {
				return err
			}
			if err := u.subscriptions.UpdateExpiration(ctx, tx, s.ID, s.ExpirationDate, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	metrics.AddSubscriptionsExtended(len(subs))
	return len(subs), nil
}

func (u *subscriptionUC) FinishExpired(ctx context.Context) (int, error) {
	n, err := u.subscriptions.MarkExpiredPastDue(ctx, repository.NoTX, time.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.IncSubscriptionsExpired(n)
		logging.With(ctx, u.log).Info().Int("expired", n).Msg("subscriptions expired")
	}
	if counts, err := u.subscriptions.CountByStatus(ctx, repository.NoTX); err == nil {
		metrics.SetSubscriptionsTotal(counts)
	}
	return n, nil
}
