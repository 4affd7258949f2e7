package usecase

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"iptv-client-portal/internal/domain"
	"iptv-client-portal/internal/domain/model"
	"iptv-client-portal/internal/domain/ports/repository"
	"iptv-client-portal/internal/infra/logging"
)

var _ RaffleUseCase = (*raffleUC)(nil)

type RaffleUseCase interface {
	// GrantEntry hands the user one lucky number in the current month's
	// raffle, creating the raffle on first use. Collisions on the number
	// redraw; exhaustion surfaces as ErrRaffleClosed.
	GrantEntry(ctx context.Context, userID string, reason model.RaffleEntryReason) (*model.RaffleEntry, error)

	// MyEntries lists the user's lucky numbers for the current month.
	MyEntries(ctx context.Context, userID string) (*model.Raffle, []*model.RaffleEntry, error)
}

type raffleUC struct {
	raffles     repository.RaffleRepository
	prizeAmount float64
	log         *zerolog.Logger
}

func NewRaffleUseCase(raffles repository.RaffleRepository, prizeAmount float64, log *zerolog.Logger) *raffleUC {
	return &raffleUC{raffles: raffles, prizeAmount: prizeAmount, log: log}
}

const luckyNumberDrawAttempts = 10

func (u *raffleUC) GrantEntry(ctx context.Context, userID string, reason model.RaffleEntryReason) (*model.RaffleEntry, error) {
	raf, err := u.ensureCurrentRaffle(ctx)
	if err != nil {
		return nil, err
	}
	for i := 0; i < luckyNumberDrawAttempts; i++ {
		e := &model.RaffleEntry{
			ID:          uuid.NewString(),
			RaffleID:    raf.ID,
			UserID:      userID,
			LuckyNumber: drawLuckyNumber(),
			Reason:      reason,
			CreatedAt:   time.Now(),
		}
		err := u.raffles.SaveEntry(ctx, repository.NoTX, e)
		if err == nil {
			logging.With(ctx, u.log).Info().
				Str("raffle_id", raf.ID).
				Str("user_id", userID).
				Int("lucky_number", e.LuckyNumber).
				Str("reason", string(reason)).
				Msg("raffle entry granted")
			return e, nil
		}
		if !errors.Is(err, domain.ErrAlreadyExists) {
			return nil, err
		}
		// Taken number; draw again.
	}
	return nil, domain.ErrRaffleClosed
}

func (u *raffleUC) MyEntries(ctx context.Context, userID string) (*model.Raffle, []*model.RaffleEntry, error) {
	raf, err := u.raffles.FindActiveByMonth(ctx, repository.NoTX, currentMonth())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	entries, err := u.raffles.ListEntriesByUser(ctx, repository.NoTX, raf.ID, userID)
	if err != nil {
		return nil, nil, err
	}
	return raf, entries, nil
}

// ensureCurrentRaffle returns this month's active raffle, creating it on
// demand. Two concurrent creators race on the month's unique index; the
// loser re-reads the winner's row.
func (u *raffleUC) ensureCurrentRaffle(ctx context.Context) (*model.Raffle, error) {
	month := currentMonth()
	raf, err := u.raffles.FindActiveByMonth(ctx, repository.NoTX, month)
	if err == nil {
		return raf, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	raf = &model.Raffle{
		ID:          uuid.NewString(),
		Month:       month,
		PrizeAmount: u.prizeAmount,
		Status:      model.RaffleStatusActive,
		CreatedAt:   time.Now(),
	}
	if err := u.raffles.Save(ctx, repository.NoTX, raf); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return u.raffles.FindActiveByMonth(ctx, repository.NoTX, month)
		}
		return nil, err
	}
	return raf, nil
}

func currentMonth() string { return time.Now().Format("2006-01") }

func drawLuckyNumber() int {
	n, err := rand.Int(rand.Reader, big.NewInt(model.MaxLuckyNumber))
	if err != nil {
		return int(time.Now().UnixNano()%model.MaxLuckyNumber) + 1
	}
	return int(n.Int64()) + 1
}
