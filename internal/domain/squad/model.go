package squad

import (
	"fmt"
	"time"

	"github.com/wcfantasy/backend/internal/domain/player"
)

// Squad is the aggregate root owning one user's roster, remaining budget
// and transfer economy state for one league. Exactly one squad exists per
// (user, league).
type Squad struct {
	ID                     string
	UserID                 string
	LeagueID               string
	Name                   string
	BudgetRemaining        int64
	FreeTransfersRemaining int
	WildcardUsed           bool
	// WildcardRoundID identifies the round the wildcard is active for.
	// Empty when the wildcard has never been activated.
	WildcardRoundID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (s Squad) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("squad id is required")
	}
	if s.UserID == "" {
		return fmt.Errorf("user id is required")
	}
	if s.LeagueID == "" {
		return fmt.Errorf("league id is required")
	}
	if s.BudgetRemaining < 0 {
		return fmt.Errorf("budget remaining cannot be negative")
	}
	if s.FreeTransfersRemaining < 0 {
		return fmt.Errorf("free transfers remaining cannot be negative")
	}

	return nil
}

// WildcardActiveFor reports whether the wildcard covers the given round.
func (s Squad) WildcardActiveFor(roundID string) bool {
	return roundID != "" && s.WildcardRoundID == roundID
}

// Member is one roster slot. BenchOrder is meaningful only for non-starters;
// zero means unset.
type Member struct {
	SquadID       string
	PlayerID      string
	IsStarting    bool
	BenchOrder    int
	IsCaptain     bool
	IsViceCaptain bool
}

// Pick carries the player attributes composition rules need.
type Pick struct {
	PlayerID string
	TeamID   string
	Position player.Position
	Price    int64
}
