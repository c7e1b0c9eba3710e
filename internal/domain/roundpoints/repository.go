package roundpoints

import "context"

// Repository describes round-point persistence needs from use cases.
type Repository interface {
	GetBySquadAndRound(ctx context.Context, squadID, roundID string) (RoundPoints, bool, error)
	ListByRound(ctx context.Context, roundID string) ([]RoundPoints, error)
	// ApplyMatchPoints reconciles the squad's total for the round against
	// the per-match ledger in one transaction: the round total moves by
	// (points - previously applied points for the match) and the ledger row
	// is set to the new value. Re-applying identical input is a no-op.
	ApplyMatchPoints(ctx context.Context, squadID, roundID, matchID string, points int) error
	// HasMatchPoints reports whether any squad has ledger rows for the match,
	// i.e. whether the match has ever been aggregated.
	HasMatchPoints(ctx context.Context, matchID string) (bool, error)
	// AddPenalty shifts the squad's round total by delta (negative for the
	// transfer penalty), creating the row at zero first when absent.
	AddPenalty(ctx context.Context, squadID, roundID string, delta int) error
}
