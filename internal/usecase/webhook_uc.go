package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"iptv-client-portal/internal/domain"
	"iptv-client-portal/internal/domain/model"
	"iptv-client-portal/internal/domain/ports/adapter"
	"iptv-client-portal/internal/domain/ports/repository"
	"iptv-client-portal/internal/infra/logging"
	"iptv-client-portal/internal/infra/metrics"
	infraredis "iptv-client-portal/internal/infra/redis"
)

// WebhookOutcome classifies what a notification did.
type WebhookOutcome string

const (
	OutcomeApplied   WebhookOutcome = "applied"   // this call won the completion and ran side effects
	OutcomeDuplicate WebhookOutcome = "duplicate" // transaction already completed; nothing to do
	OutcomeUpdated   WebhookOutcome = "updated"   // non-approved status recorded
	OutcomeUnmatched WebhookOutcome = "unmatched" // no transaction matches external_reference
	OutcomeIgnored   WebhookOutcome = "ignored"   // not a payment event
)

// WebhookResult is returned to the HTTP layer, which maps it onto the
// processor-facing response contract.
type WebhookResult struct {
	Outcome       WebhookOutcome
	TransactionID string
	Status        model.TransactionStatus
}

var _ WebhookUseCase = (*webhookUC)(nil)

type WebhookUseCase interface {
	// ProcessNotification handles one processor notification. It is safe to
	// call any number of times for the same payment: completion side effects
	// run at most once, gated on the conditional status transition.
	ProcessNotification(ctx context.Context, eventType, paymentID string) (*WebhookResult, error)

	// Reconcile re-runs the decision path for a pending transaction that
	// already carries a payment id, fetching the current processor state.
	Reconcile(ctx context.Context, transactionID string) (*WebhookResult, error)
}

type webhookUC struct {
	transactions  repository.TransactionRepository
	subscriptions repository.SubscriptionRepository
	users         repository.UserRepository
	ledger        repository.LedgerRepository
	txManager     repository.TransactionManager
	provider      adapter.PaymentProvider
	referrals     ReferralUseCase
	raffles       RaffleUseCase
	locker        infraredis.Locker
	log           *zerolog.Logger
}

func NewWebhookUseCase(
	transactions repository.TransactionRepository,
	subscriptions repository.SubscriptionRepository,
	users repository.UserRepository,
	ledger repository.LedgerRepository,
	txManager repository.TransactionManager,
	provider adapter.PaymentProvider,
	referrals ReferralUseCase,
	raffles RaffleUseCase,
	locker infraredis.Locker,
	log *zerolog.Logger,
) *webhookUC {
	return &webhookUC{
		transactions:  transactions,
		subscriptions: subscriptions,
		users:         users,
		ledger:        ledger,
		txManager:     txManager,
		provider:      provider,
		referrals:     referrals,
		raffles:       raffles,
		locker:        locker,
		log:           log,
	}
}

const webhookLockTTL = 30 * time.Second

func (u *webhookUC) ProcessNotification(ctx context.Context, eventType, paymentID string) (*WebhookResult, error) {
	if eventType != "payment" {
		metrics.IncWebhookNotification(string(OutcomeIgnored))
		return &WebhookResult{Outcome: OutcomeIgnored}, nil
	}
	if paymentID == "" {
		return nil, domain.ErrInvalidArgument
	}

	// The notification body is a hint only. Fetch the authoritative payment
	// before making any decision.
	pay, err := u.provider.GetPayment(ctx, paymentID)
	if err != nil {
		metrics.IncWebhookNotification("upstream_error")
		return nil, err
	}
	return u.apply(ctx, pay)
}

func (u *webhookUC) Reconcile(ctx context.Context, transactionID string) (*WebhookResult, error) {
	t, err := u.transactions.FindByID(ctx, repository.NoTX, transactionID)
	if err != nil {
		return nil, err
	}
	if t.Metadata.PaymentID == "" {
		return nil, domain.ErrInvalidArgument
	}
	pay, err := u.provider.GetPayment(ctx, t.Metadata.PaymentID)
	if err != nil {
		return nil, err
	}
	return u.apply(ctx, pay)
}

// apply maps the fetched payment onto the owning transaction. The completed
// transition and its side effects are guarded twice: a best-effort Redis
// lock keeps concurrent deliveries from racing the fetch, and the
// conditional update in Complete decides the single winner even when the
// lock is lost.
func (u *webhookUC) apply(ctx context.Context, pay *adapter.Payment) (*WebhookResult, error) {
	log := logging.With(ctx, u.log)

	if pay.ExternalReference == "" {
		metrics.IncWebhookNotification(string(OutcomeUnmatched))
		log.Warn().Str("payment_id", pay.ID).Msg("payment carries no external reference")
		return &WebhookResult{Outcome: OutcomeUnmatched}, nil
	}

	t, err := u.transactions.FindByID(ctx, repository.NoTX, pay.ExternalReference)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.IncWebhookNotification(string(OutcomeUnmatched))
			log.Warn().
				Str("payment_id", pay.ID).
				Str("external_reference", pay.ExternalReference).
				Msg("no transaction matches external reference")
			return &WebhookResult{Outcome: OutcomeUnmatched}, nil
		}
		return nil, err
	}

	meta := model.TransactionMetadata{
		PaymentID:       pay.ID,
		ProcessorStatus: pay.Status,
		RawPayment:      pay.Raw,
	}
	mapped := model.MapProcessorStatus(pay.Status)

	if mapped != model.TransactionStatusCompleted {
		stored, err := u.transactions.UpdateStatusUnlessCompleted(ctx, repository.NoTX, t.ID, mapped, meta)
		if err != nil {
			return nil, err
		}
		metrics.IncWebhookNotification(string(OutcomeUpdated))
		metrics.IncPayment(string(mapped))
		log.Info().
			Str("transaction_id", t.ID).
			Str("payment_id", pay.ID).
			Str("processor_status", pay.Status).
			Str("status", string(stored)).
			Msg("payment status recorded")
		// stored may differ from mapped when the row is already completed;
		// the response reports what the row actually holds.
		return &WebhookResult{Outcome: OutcomeUpdated, TransactionID: t.ID, Status: stored}, nil
	}

	if u.locker != nil {
		token, lockErr := u.locker.TryLock(ctx, "webhook:tx:"+t.ID, webhookLockTTL)
		if lockErr == nil {
			defer func() { _ = u.locker.Unlock(ctx, "webhook:tx:"+t.ID, token) }()
		}
		// A busy or unreachable lock is not fatal; Complete stays the gate.
	}

	won, err := u.transactions.Complete(ctx, repository.NoTX, t.ID, meta)
	if err != nil {
		return nil, err
	}
	if !won {
		metrics.IncWebhookNotification(string(OutcomeDuplicate))
		log.Info().
			Str("transaction_id", t.ID).
			Str("payment_id", pay.ID).
			Msg("duplicate completion notification")
		return &WebhookResult{Outcome: OutcomeDuplicate, TransactionID: t.ID, Status: model.TransactionStatusCompleted}, nil
	}

	u.runCompletionSideEffects(ctx, t, pay)

	metrics.IncWebhookNotification(string(OutcomeApplied))
	metrics.IncPayment(string(model.TransactionStatusCompleted))
	metrics.AddPaymentRevenue("brl", t.Amount)
	log.Info().
		Str("transaction_id", t.ID).
		Str("payment_id", pay.ID).
		Float64("amount", t.Amount).
		Msg("payment completed")
	return &WebhookResult{Outcome: OutcomeApplied, TransactionID: t.ID, Status: model.TransactionStatusCompleted}, nil
}

// runCompletionSideEffects performs the business effects of a completed
// payment. The transaction is already completed at this point; a failing
// step is logged and counted but never rolls the status back, and the
// remaining steps still run.
func (u *webhookUC) runCompletionSideEffects(ctx context.Context, t *model.Transaction, pay *adapter.Payment) {
	log := logging.With(ctx, u.log)
	now := time.Now()

	if t.UserID == nil {
		log.Warn().Str("transaction_id", t.ID).Msg("completed transaction has no user; skipping side effects")
		return
	}
	userID := *t.UserID

	subs, err := u.subscriptions.FindActiveByUser(ctx, repository.NoTX, userID)
	if err != nil {
		metrics.IncWebhookSideEffectFailure("load_subscriptions")
		log.Error().Err(err).Str("transaction_id", t.ID).Msg("load active subscriptions")
		subs = nil
	}

	days := t.DurationDays()
	extended := 0
	var panel string
	for _, s := range subs {
		if panel == "" {
			panel = s.PanelName
		}
		if err := s.Extend(days, now); err != nil {
			metrics.IncWebhookSideEffectFailure("extend")
			log.Error().Err(err).Str("subscription_id", s.ID).Msg("extend subscription")
			continue
		}
		if err := u.subscriptions.UpdateExpiration(ctx, repository.NoTX, s.ID, s.ExpirationDate, now); err != nil {
			metrics.IncWebhookSideEffectFailure("extend")
			log.Error().Err(err).Str("subscription_id", s.ID).Msg("persist subscription extension")
			continue
		}
		extended++
	}
	if extended > 0 {
		metrics.AddSubscriptionsExtended(extended)
	}

	// Extension and both ledger writes only make sense against active
	// subscriptions. With none (or when the load failed above) the completed
	// status stands alone and no financial rows are booked.
	if len(subs) == 0 {
		log.Warn().Str("transaction_id", t.ID).Str("user_id", userID).Msg("completed payment with no active subscription; ledger skipped")
	} else {
		// One cash entry and one credits entry per payment, regardless of
		// how many login slots the payment extended.
		desc := t.Description
		if desc == "" {
			desc = fmt.Sprintf("Pagamento %s", t.ID)
		}
		months := days / 30
		if months < 1 {
			months = 1
		}
		quantity := months * len(subs)
		err = u.txManager.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			if err := u.ledger.AppendCash(ctx, tx, model.NewCashCredit(now, desc, t.Amount, t.ID)); err != nil {
				return err
			}
			return u.ledger.AppendCredits(ctx, tx, model.NewCreditsSold(now, desc, panel, quantity, t.ID))
		})
		if err != nil {
			metrics.IncWebhookSideEffectFailure("ledger")
			log.Error().Err(err).Str("transaction_id", t.ID).Msg("append ledger entries")
		}
	}

	if u.referrals != nil {
		if err := u.referrals.CreditCommission(ctx, userID, t.ID, t.Amount); err != nil && !errors.Is(err, domain.ErrNotFound) {
			metrics.IncWebhookSideEffectFailure("commission")
			log.Error().Err(err).Str("transaction_id", t.ID).Msg("credit referral commission")
		}
	}

	if u.raffles != nil {
		if _, err := u.raffles.GrantEntry(ctx, userID, model.RaffleEntryReasonPayment); err != nil && !errors.Is(err, domain.ErrRaffleClosed) {
			metrics.IncWebhookSideEffectFailure("raffle")
			log.Error().Err(err).Str("transaction_id", t.ID).Msg("grant raffle entry")
		}
	}
}
