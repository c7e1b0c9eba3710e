package match

import (
	"context"
	"time"
)

// StateUpdate is one poll-tick mutation for a single match.
type StateUpdate struct {
	MatchID   string
	Status    Status
	HomeScore *int
	AwayScore *int
}

// Repository describes match persistence needs from use cases.
type Repository interface {
	GetByID(ctx context.Context, matchID string) (Match, bool, error)
	GetByExternalRef(ctx context.Context, externalRef string) (Match, bool, error)
	List(ctx context.Context) ([]Match, error)
	ListByStatus(ctx context.Context, status Status) ([]Match, error)
	// NextScheduledByTeam returns the earliest SCHEDULED match for the team
	// kicking off after the given instant.
	NextScheduledByTeam(ctx context.Context, teamID string, after time.Time) (Match, bool, error)
	ListFinishedByTeam(ctx context.Context, teamID string) ([]Match, error)
	Upsert(ctx context.Context, item Match) error
	// ApplyStateUpdates commits one poll tick's worth of status/score
	// changes as a single transaction.
	ApplyStateUpdates(ctx context.Context, updates []StateUpdate) error
}
