package usecase

import (
	"context"
	"time"
)

// LiveScoreProvider is the thin feed the poller consumes: every tracked
// fixture's current status and score.
type LiveScoreProvider interface {
	FetchMatches(ctx context.Context) ([]ExternalMatch, error)
}

// BoxScoreProvider is the richer per-match feed the stats sync consumes.
type BoxScoreProvider interface {
	FetchBoxScore(ctx context.Context, matchExternalRef string) ([]ExternalPlayerLine, error)
}

// TournamentProvider exposes the feed's tournament catalog used for
// seeding: teams, per-team squads and the full fixture list.
type TournamentProvider interface {
	FetchTeams(ctx context.Context) ([]ExternalTeam, error)
	FetchSquad(ctx context.Context, teamExternalRef string) ([]ExternalSquadPlayer, error)
	FetchFixtures(ctx context.Context) ([]ExternalMatch, error)
}

type ExternalTeam struct {
	ExternalRef string
	Name        string
	CountryCode string
	FlagURL     string
}

type ExternalSquadPlayer struct {
	ExternalRef string
	Name        string
	Position    string
}

type ExternalMatch struct {
	ExternalRef string
	HomeTeamRef string
	AwayTeamRef string
	KickoffAt   time.Time
	Venue       string
	StatusLabel string
	HomeScore   *int
	AwayScore   *int
	RoundName   string
}

type ExternalPlayerLine struct {
	PlayerExternalRef string
	MinutesPlayed     int
	Goals             int
	Assists           int
	CleanSheet        bool
	GoalsConceded     int
	YellowCards       int
	RedCards          int
	OwnGoals          int
	PenaltiesScored   int
	PenaltiesMissed   int
	Saves             int
	// Rating is the 0-10 performance rating; nil when the feed omitted it.
	Rating *float64
}
