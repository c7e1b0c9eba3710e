package playerstats

import "context"

// Repository describes stat-row persistence needs from use cases.
type Repository interface {
	// UpsertBatch writes a finished match's stat rows in one transaction,
	// keyed by (match_id, player_id); existing rows are overwritten.
	UpsertBatch(ctx context.Context, items []Stats) error
	ListByMatch(ctx context.Context, matchID string) ([]Stats, error)
	// ListRecentByPlayer returns the player's stat rows ordered by match
	// kickoff descending, capped at limit.
	ListRecentByPlayer(ctx context.Context, playerID string, limit int) ([]Stats, error)
	GetSeasonTotals(ctx context.Context, playerID string) (SeasonTotals, error)
}
