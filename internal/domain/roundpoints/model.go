package roundpoints

import "fmt"

// RoundPoints is one squad's accumulated total for one round. Created
// lazily the first time the squad scores (or is penalized) in the round.
type RoundPoints struct {
	SquadID string
	RoundID string
	Points  int
	Rank    int
}

func (r RoundPoints) Validate() error {
	if r.SquadID == "" {
		return fmt.Errorf("round points squad id is required")
	}
	if r.RoundID == "" {
		return fmt.Errorf("round points round id is required")
	}

	return nil
}

// MatchPoints is the per-(squad, match) applied-points ledger entry. It
// records how many points a finished match has already contributed to the
// squad's round total, so reprocessing the match applies only the delta.
type MatchPoints struct {
	SquadID string
	MatchID string
	Points  int
}
