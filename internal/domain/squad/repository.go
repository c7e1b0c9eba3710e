package squad

import (
	"context"
	"errors"
)

// ErrStaleSquad signals that a guarded mutation observed squad state that
// changed since the caller's snapshot. The caller re-reads and re-runs its
// guards.
var ErrStaleSquad = errors.New("squad state changed concurrently")

// TransferApplication carries one fully-decided transfer. The repository
// applies every effect in a single transaction, holding the squad row lock,
// and rejects with ErrStaleSquad when the snapshot guards no longer hold.
type TransferApplication struct {
	SquadID     string
	PlayerOutID string
	PlayerInID  string
	NewBudget   int64

	ConsumeFreeTransfer bool
	// PenaltyPoints is subtracted from the squad's round points row for
	// PenaltyRoundID, creating the row at zero first when absent.
	PenaltyPoints  int
	PenaltyRoundID string

	// Snapshot guards observed by the caller before deciding.
	ExpectedBudget        int64
	ExpectedFreeTransfers int
}

// Repository describes squad persistence needs from use cases.
type Repository interface {
	GetByID(ctx context.Context, squadID string) (Squad, bool, error)
	GetByUserAndLeague(ctx context.Context, userID, leagueID string) (Squad, bool, error)
	ListMembers(ctx context.Context, squadID string) ([]Member, error)
	// ListHoldersByPlayer returns every roster slot referencing the player
	// across all squads.
	ListHoldersByPlayer(ctx context.Context, playerID string) ([]Member, error)
	// Replace deletes any pre-existing squad for (user, league) and inserts
	// the new squad with its members within one transaction.
	Replace(ctx context.Context, item Squad, members []Member) error
	UpdateName(ctx context.Context, squadID, name string) error
	// SetLineup resets all starting/captaincy flags for the squad and
	// applies the submitted member flags, atomically.
	SetLineup(ctx context.Context, squadID string, members []Member) error
	ApplyTransfer(ctx context.Context, app TransferApplication) error
	// ActivateWildcard marks the wildcard used and binds it to the round.
	ActivateWildcard(ctx context.Context, squadID, roundID string) error
}
