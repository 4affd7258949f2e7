package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"iptv-client-portal/internal/domain/ports/repository"
	"iptv-client-portal/internal/usecase"
)

// PaymentReconciler periodically scans for stale pending transactions that
// already carry a processor payment id and re-runs the reconciliation path
// for them. This covers notifications that were lost, answered 5xx past the
// processor's retry horizon, or crashed mid-apply. Reconciliation shares
// the webhook's conditional-update gate, so racing a late redelivery is
// harmless.
type PaymentReconciler struct {
	webhookUC    usecase.WebhookUseCase
	transactions repository.TransactionRepository
	interval     time.Duration // how often to scan
	staleAfter   time.Duration // how old a pending transaction must be to retry
	log          *zerolog.Logger
}

func NewPaymentReconciler(webhookUC usecase.WebhookUseCase, transactions repository.TransactionRepository, interval, staleAfter time.Duration, logger *zerolog.Logger) *PaymentReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	recLog := logger.With().Str("component", "PaymentReconciler").Logger()
	return &PaymentReconciler{
		webhookUC:    webhookUC,
		transactions: transactions,
		interval:     interval,
		staleAfter:   staleAfter,
		log:          &recLog,
	}
}

func (w *PaymentReconciler) Run(ctx context.Context) error {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *PaymentReconciler) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	pending, err := w.transactions.ListPendingWithPaymentOlderThan(ctx, repository.NoTX, cutoff, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("list stale pending transactions")
		return
	}
	for _, t := range pending {
		res, err := w.webhookUC.Reconcile(ctx, t.ID)
		if err != nil {
			w.log.Error().Err(err).Str("transaction_id", t.ID).Msg("reconcile failed")
			continue
		}
		if res.Outcome == usecase.OutcomeApplied {
			w.log.Info().Str("transaction_id", t.ID).Msg("reconciled stale transaction")
		}
	}
}
