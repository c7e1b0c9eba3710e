package playerstats

import "fmt"

// Stats is one player's box score for one match, plus the computed fantasy
// points. One row per (match, player); written only by the stats sync job.
type Stats struct {
	MatchID         string
	PlayerID        string
	MinutesPlayed   int
	Goals           int
	Assists         int
	CleanSheet      bool
	GoalsConceded   int
	YellowCards     int
	RedCards        int
	OwnGoals        int
	PenaltiesScored int
	PenaltiesMissed int
	Saves           int
	// Rating is the feed's 0-10 performance rating; zero when the feed
	// omitted it.
	Rating        float64
	FantasyPoints int
}

func (s Stats) Validate() error {
	if s.MatchID == "" {
		return fmt.Errorf("stats match id is required")
	}
	if s.PlayerID == "" {
		return fmt.Errorf("stats player id is required")
	}
	if s.MinutesPlayed < 0 {
		return fmt.Errorf("minutes played cannot be negative")
	}

	return nil
}

// SeasonTotals aggregates a player's stats across all recorded matches.
type SeasonTotals struct {
	PlayerID      string
	MatchesPlayed int
	Goals         int
	Assists       int
	Points        int
	Minutes       int
	Saves         int
	YellowCards   int
	RedCards      int
	GoalsConceded int
}
