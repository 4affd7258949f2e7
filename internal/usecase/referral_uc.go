package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"iptv-client-portal/internal/domain"
	"iptv-client-portal/internal/domain/model"
	"iptv-client-portal/internal/domain/ports/repository"
	"iptv-client-portal/internal/infra/logging"
)

// ReferralSummary is the portal view of a user's referral program state.
type ReferralSummary struct {
	ReferralCode    string
	ReferredCount   int
	TotalEarned     float64
	Redeemable      float64
	MinPayoutAmount float64
}

var _ ReferralUseCase = (*referralUC)(nil)

type ReferralUseCase interface {
	// RegisterReferral links a newly signed-up user to the owner of the
	// referral code they presented. Unknown codes are ignored silently so a
	// typo never blocks signup.
	RegisterReferral(ctx context.Context, referredID, code string) error

	// CreditCommission pays the referrer their cut of a completed payment.
	// Returns ErrNotFound when the payer was not referred by anyone.
	CreditCommission(ctx context.Context, payerID, transactionID string, amount float64) error

	Summary(ctx context.Context, userID string) (*ReferralSummary, error)

	// RequestPayout redeems accumulated commission, either as a pix payout
	// request (bounded below by the configured minimum) or as subscription
	// credit applied immediately.
	RequestPayout(ctx context.Context, userID, method, pixKey string) (*model.Transaction, error)
}

type referralUC struct {
	referrals     repository.ReferralRepository
	users         repository.UserRepository
	transactions  repository.TransactionRepository
	subscriptions repository.SubscriptionRepository
	txManager     repository.TransactionManager
	raffles       RaffleUseCase
	rate          float64
	minPayout     float64
	log           *zerolog.Logger
}

func NewReferralUseCase(
	referrals repository.ReferralRepository,
	users repository.UserRepository,
	transactions repository.TransactionRepository,
	subscriptions repository.SubscriptionRepository,
	txManager repository.TransactionManager,
	raffles RaffleUseCase,
	rate, minPayout float64,
	log *zerolog.Logger,
) *referralUC {
	return &referralUC{
		referrals:     referrals,
		users:         users,
		transactions:  transactions,
		subscriptions: subscriptions,
		txManager:     txManager,
		raffles:       raffles,
		rate:          rate,
		minPayout:     minPayout,
		log:           log,
	}
}

func (u *referralUC) RegisterReferral(ctx context.Context, referredID, code string) error {
	if code == "" {
		return nil
	}
	referrer, err := u.users.FindByReferralCode(ctx, repository.NoTX, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logging.With(ctx, u.log).Warn().Str("code", code).Msg("unknown referral code at signup")
			return nil
		}
		return err
	}
	if referrer.ID == referredID {
		return domain.ErrInvalidArgument
	}
	ref := &model.Referral{
		ID:         uuid.NewString(),
		ReferrerID: referrer.ID,
		ReferredID: referredID,
		CreatedAt:  time.Now(),
	}
	if err := u.referrals.Save(ctx, repository.NoTX, ref); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil
		}
		return err
	}
	if u.raffles != nil {
		if _, err := u.raffles.GrantEntry(ctx, referrer.ID, model.RaffleEntryReasonReferral); err != nil && !errors.Is(err, domain.ErrRaffleClosed) {
			logging.With(ctx, u.log).Error().Err(err).Str("referrer_id", referrer.ID).Msg("grant referral raffle entry")
		}
	}
	return nil
}

// CreditCommission books the referrer's cut in one database transaction:
// the referral row accumulates, the referrer's redeemable balance grows,
// and a commission transaction records the movement for the statement.
func (u *referralUC) CreditCommission(ctx context.Context, payerID, transactionID string, amount float64) error {
	ref, err := u.referrals.FindByReferred(ctx, repository.NoTX, payerID)
	if err != nil {
		return err
	}
	commission := math.Round(amount*u.rate*100) / 100
	if commission <= 0 {
		return nil
	}
	now := time.Now()
	record := &model.Transaction{
		ID:            uuid.NewString(),
		UserID:        &ref.ReferrerID,
		Type:          model.TransactionTypeCommission,
		Amount:        commission,
		PaymentMethod: "manual",
		Status:        model.TransactionStatusCompleted,
		Description:   fmt.Sprintf("Comissão de indicação (%.0f%%)", u.rate*100),
		Metadata:      model.TransactionMetadata{RequestedAt: &now},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return u.txManager.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		if err := u.referrals.AddCommission(ctx, tx, ref.ID, commission, now); err != nil {
			return err
		}
		if err := u.users.AddCommission(ctx, tx, ref.ReferrerID, commission); err != nil {
			return err
		}
		return u.transactions.Save(ctx, tx, record)
	})
}

func (u *referralUC) Summary(ctx context.Context, userID string) (*ReferralSummary, error) {
	user, err := u.users.FindByID(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	refs, err := u.referrals.ListByReferrer(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	var earned float64
	for _, r := range refs {
		earned += r.TotalCommissionEarned
	}
	return &ReferralSummary{
		ReferralCode:    user.ReferralCode,
		ReferredCount:   len(refs),
		TotalEarned:     earned,
		Redeemable:      user.TotalCommission,
		MinPayoutAmount: u.minPayout,
	}, nil
}

func (u *referralUC) RequestPayout(ctx context.Context, userID, method, pixKey string) (*model.Transaction, error) {
	user, err := u.users.FindByID(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}
	balance := user.TotalCommission
	now := time.Now()

	switch method {
	case "pix":
		if pixKey == "" {
			return nil, domain.ErrInvalidArgument
		}
		if balance < u.minPayout {
			return nil, domain.ErrInsufficientBalance
		}
		payout := &model.Transaction{
			ID:            uuid.NewString(),
			UserID:        &userID,
			Type:          model.TransactionTypeCommissionPayout,
			Amount:        balance,
			PaymentMethod: "pix",
			Status:        model.TransactionStatusPending,
			Description:   "Resgate de comissão via Pix",
			Metadata: model.TransactionMetadata{
				RedeemType:  "pix",
				RequestedAt: &now,
			},
			CreatedAt: now,
			UpdatedAt: now,
		}
		err = u.txManager.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			if err := u.users.AddCommission(ctx, tx, userID, -balance); err != nil {
				return err
			}
			return u.transactions.Save(ctx, tx, payout)
		})
		if err != nil {
			return nil, err
		}
		return payout, nil

	case "credit":
		if balance <= 0 {
			return nil, domain.ErrInsufficientBalance
		}
		subs, err := u.subscriptions.FindActiveByUser(ctx, repository.NoTX, userID)
		if err != nil {
			return nil, err
		}
		if len(subs) == 0 {
			return nil, domain.ErrNoActiveSubscription
		}
		// The balance buys whole days at the oldest slot's daily rate; every
		// active slot moves together like a paid renewal.
		daily := subs[0].MonthlyValue / 30
		if daily <= 0 {
			return nil, domain.ErrOperationFailed
		}
		days := int(balance / daily)
		if days < 1 {
			return nil, domain.ErrInsufficientBalance
		}
		spent := math.Round(float64(days)*daily*100) / 100

		redemption := &model.Transaction{
			ID:            uuid.NewString(),
			UserID:        &userID,
			Type:          model.TransactionTypeCommissionPayout,
			Amount:        spent,
			PaymentMethod: "manual",
			Status:        model.TransactionStatusCompleted,
			Description:   fmt.Sprintf("Resgate de comissão em créditos (%d dias)", days),
			Metadata: model.TransactionMetadata{
				RedeemType:  "credit",
				DaysAdded:   days,
				RequestedAt: &now,
			},
			CreatedAt: now,
			UpdatedAt: now,
		}
		err = u.txManager.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			if err := u.users.AddCommission(ctx, tx, userID, -spent); err != nil {
				return err
			}
			for _, s := range subs {
				if err := s.Extend(days, now); err != nil {
					return err
				}
				if err := u.subscriptions.UpdateExpiration(ctx, tx, s.ID, s.ExpirationDate, now); err != nil {
					return err
				}
			}
			return u.transactions.Save(ctx, tx, redemption)
		})
		if err != nil {
			return nil, err
		}
		return redemption, nil

	default:
		return nil, domain.ErrInvalidArgument
	}
}
