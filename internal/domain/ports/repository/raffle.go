package repository

import (
	"context"

	"iptv-client-portal/internal/domain/model"
)

type RaffleRepository interface {
	Save(ctx context.Context, tx Tx, r *model.Raffle) error
	FindActiveByMonth(ctx context.Context, tx Tx, month string) (*model.Raffle, error)
	// SaveEntry persists one lucky number; returns ErrAlreadyExists when the
	// number is taken in that raffle so callers can redraw.
	SaveEntry(ctx context.Context, tx Tx, e *model.RaffleEntry) error
	ListEntriesByUser(ctx context.Context, tx Tx, raffleID, userID string) ([]*model.RaffleEntry, error)
	CountEntries(ctx context.Context, tx Tx, raffleID string) (int, error)
}
