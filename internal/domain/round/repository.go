package round

import (
	"context"
	"time"
)

// Repository describes round persistence needs from use cases.
type Repository interface {
	GetByID(ctx context.Context, roundID string) (Round, bool, error)
	// CurrentAt returns the round whose [start, end] window contains the
	// given instant, if any.
	CurrentAt(ctx context.Context, at time.Time) (Round, bool, error)
	// GetByMatch returns the round the match is attributed to for scoring.
	// A match may belong to several rounds; the first linked one wins.
	GetByMatch(ctx context.Context, matchID string) (Round, bool, error)
	List(ctx context.Context) ([]Round, error)
	Upsert(ctx context.Context, item Round) error
	LinkMatch(ctx context.Context, roundID, matchID string) error
}
