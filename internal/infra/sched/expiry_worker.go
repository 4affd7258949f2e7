package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"iptv-client-portal/internal/usecase"
)

const defaultExpiryInterval = 5 * time.Minute

// ExpiryWorker flips active subscriptions whose expiration date has passed.
// The interval only bounds how stale the status column may get; queries that
// matter compare expiration_date directly.
type ExpiryWorker struct {
	interval time.Duration
	subUC    usecase.SubscriptionUseCase
	log      *zerolog.Logger
}

func NewExpiryWorker(interval time.Duration, subUC usecase.SubscriptionUseCase, logger *zerolog.Logger) *ExpiryWorker {
	if interval <= 0 {
		interval = defaultExpiryInterval
	}
	l := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{interval: interval, subUC: subUC, log: &l}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("expiry worker started")
	w.tick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("expiry worker stopped")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *ExpiryWorker) tick(ctx context.Context) {
	n, err := w.subUC.FinishExpired(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("finish expired subscriptions")
		return
	}
	if n > 0 {
		w.log.Info().Int("count", n).Msg("subscriptions expired")
	}
}
