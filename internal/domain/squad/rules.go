package squad

import (
	"errors"
	"fmt"

	"github.com/wcfantasy/backend/internal/domain/player"
)

var (
	ErrInvalidComposition = errors.New("invalid squad composition")
	ErrTeamCapExceeded    = errors.New("max players from same team exceeded")
	ErrBudgetExceeded     = errors.New("budget exceeded")
)

// Rules stores squad composition parameters.
type Rules struct {
	Size              int
	BudgetCap         int64
	MaxPlayersPerTeam int
	QuotaByPosition   map[player.Position]int
}

func DefaultRules() Rules {
	return Rules{
		Size:              15,
		BudgetCap:         1000,
		MaxPlayersPerTeam: 2,
		QuotaByPosition: map[player.Position]int{
			player.PositionGoalkeeper: 2,
			player.PositionDefender:   5,
			player.PositionMidfielder: 5,
			player.PositionForward:    3,
		},
	}
}

// ValidateComposition checks a candidate 15-player roster against position
// quotas, the per-team cap and the budget ceiling. Pure and deterministic.
func ValidateComposition(picks []Pick, rules Rules) error {
	if len(picks) != rules.Size {
		return fmt.Errorf("%w: expected %d players, got %d", ErrInvalidComposition, rules.Size, len(picks))
	}

	teamCounter := make(map[string]int)
	positionCounter := make(map[player.Position]int)
	playerSet := make(map[string]struct{}, len(picks))
	var totalPrice int64

	for _, pick := range picks {
		if pick.PlayerID == "" {
			return fmt.Errorf("%w: player id is required", ErrInvalidComposition)
		}
		if _, exists := playerSet[pick.PlayerID]; exists {
			return fmt.Errorf("%w: duplicate player %s", ErrInvalidComposition, pick.PlayerID)
		}
		playerSet[pick.PlayerID] = struct{}{}

		if _, ok := player.AllPositions[pick.Position]; !ok {
			return fmt.Errorf("%w: unknown position %s", ErrInvalidComposition, pick.Position)
		}
		if pick.TeamID == "" {
			return fmt.Errorf("%w: team id is required for player %s", ErrInvalidComposition, pick.PlayerID)
		}

		teamCounter[pick.TeamID]++
		if teamCounter[pick.TeamID] > rules.MaxPlayersPerTeam {
			return fmt.Errorf("%w: team=%s max=%d", ErrTeamCapExceeded, pick.TeamID, rules.MaxPlayersPerTeam)
		}

		positionCounter[pick.Position]++
		totalPrice += pick.Price
	}

	for pos, required := range rules.QuotaByPosition {
		if positionCounter[pos] != required {
			return fmt.Errorf("%w: pos=%s required=%d got=%d", ErrInvalidComposition, pos, required, positionCounter[pos])
		}
	}

	if totalPrice > rules.BudgetCap {
		return fmt.Errorf("%w: cap=%d used=%d", ErrBudgetExceeded, rules.BudgetCap, totalPrice)
	}

	return nil
}
