package usecase

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"iptv-client-portal/internal/domain"
	"iptv-client-portal/internal/domain/model"
	"iptv-client-portal/internal/domain/ports/adapter"
	"iptv-client-portal/internal/domain/ports/repository"
	"iptv-client-portal/internal/infra/logging"
)

var _ PaymentUseCase = (*paymentUC)(nil)

type PaymentUseCase interface {
	// ListRechargeOptions returns the purchasable periods for the user's
	// plan type, derived from their oldest active subscription.
	ListRechargeOptions(ctx context.Context, userID string) ([]*model.RechargeOption, error)

	// InitiateRecharge creates a pending transaction for a recharge option.
	// No processor call happens here; the checkout session comes later.
	InitiateRecharge(ctx context.Context, userID, optionID, method string) (*model.Transaction, error)

	// CreatePreference opens the hosted checkout for a pending transaction
	// the caller owns. The claimed amount must match the stored one to the
	// cent. Repeatable; a fresh preference replaces the stored id.
	CreatePreference(ctx context.Context, userID, transactionID string, amount float64) (*adapter.Preference, error)

	ListTransactions(ctx context.Context, userID string, offset, limit int) ([]*model.Transaction, error)
}

type paymentUC struct {
	transactions  repository.TransactionRepository
	subscriptions repository.SubscriptionRepository
	users         repository.UserRepository
	options       repository.RechargeOptionRepository
	provider      adapter.PaymentProvider
	minAmount     float64
	maxAmount     float64
	log           *zerolog.Logger
}

func NewPaymentUseCase(
	transactions repository.TransactionRepository,
	subscriptions repository.SubscriptionRepository,
	users repository.UserRepository,
	options repository.RechargeOptionRepository,
	provider adapter.PaymentProvider,
	minAmount, maxAmount float64,
	log *zerolog.Logger,
) *paymentUC {
	return &paymentUC{
		transactions:  transactions,
		subscriptions: subscriptions,
		users:         users,
		options:       options,
		provider:      provider,
		minAmount:     minAmount,
		maxAmount:     maxAmount,
		log:           log,
	}
}

func (u *paymentUC) ListRechargeOptions(ctx context.Context, userID string) ([]*model.RechargeOption, error) {
	subs, err := u.subscriptions.FindActiveByUser(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, domain.ErrNoActiveSubscription
	}
	return u.options.ListActiveByPlanType(ctx, repository.NoTX, subs[0].PlanType)
}

func (u *paymentUC) InitiateRecharge(ctx context.Context, userID, optionID, method string) (*model.Transaction, error) {
	switch method {
	case "pix", "credit_card", "boleto":
	default:
		return nil, domain.ErrInvalidArgument
	}
	opt, err := u.options.FindByID(ctx, repository.NoTX, optionID)
	if err != nil {
		return nil, err
	}
	if !opt.Active {
		return nil, domain.ErrNotFound
	}
	subs, err := u.subscriptions.FindActiveByUser(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	if len(subs) == 0 {
		return nil, domain.ErrNoActiveSubscription
	}
	if subs[0].PlanType != opt.PlanType {
		return nil, domain.ErrInvalidArgument
	}

	t, err := model.NewRechargeTransaction(userID, opt.Price, method,
		fmt.Sprintf("Recarga %s - %d dias", opt.DisplayName, opt.DurationDays),
		model.TransactionMetadata{
			Period:       opt.Period,
			DurationDays: opt.DurationDays,
		})
	if err != nil {
		return nil, err
	}
	if err := u.transactions.Save(ctx, repository.NoTX, t); err != nil {
		return nil, err
	}
	logging.With(ctx, u.log).Info().
		Str("transaction_id", t.ID).
		Str("option_id", opt.ID).
		Float64("amount", t.Amount).
		Msg("recharge initiated")
	return t, nil
}

func (u *paymentUC) CreatePreference(ctx context.Context, userID, transactionID string, amount float64) (*adapter.Preference, error) {
	if amount < u.minAmount || amount > u.maxAmount {
		return nil, domain.ErrInvalidArgument
	}
	t, err := u.transactions.FindByID(ctx, repository.NoTX, transactionID)
	if err != nil {
		return nil, err
	}
	if t.UserID == nil || *t.UserID != userID {
		return nil, domain.ErrNotFound
	}
	if t.Status != model.TransactionStatusPending {
		return nil, domain.ErrTransactionNotOpen
	}
	// The stored amount is authoritative. The claimed amount only proves
	// the client is looking at the same charge.
	if math.Abs(t.Amount-amount) > 0.01 {
		return nil, domain.ErrAmountMismatch
	}

	user, err := u.users.FindByID(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	pref, err := u.provider.CreatePreference(ctx, adapter.PreferenceRequest{
		TransactionID: t.ID,
		Title:         t.Description,
		Amount:        t.Amount,
		PayerEmail:    user.Email,
		PaymentMethod: t.PaymentMethod,
	})
	if err != nil {
		return nil, err
	}
	if err := u.transactions.MergeMetadata(ctx, repository.NoTX, t.ID, model.TransactionMetadata{PreferenceID: pref.ID}); err != nil {
		logging.With(ctx, u.log).Error().Err(err).Str("transaction_id", t.ID).Msg("record preference id")
	}
	return pref, nil
}

func (u *paymentUC) ListTransactions(ctx context.Context, userID string, offset, limit int) ([]*model.Transaction, error) {
	return u.transactions.ListByUser(ctx, repository.NoTX, userID, offset, limit)
}
