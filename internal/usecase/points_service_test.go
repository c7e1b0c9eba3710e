package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wcfantasy/backend/internal/domain/match"
	"github.com/wcfantasy/backend/internal/domain/playerstats"
	"github.com/wcfantasy/backend/internal/domain/round"
	"github.com/wcfantasy/backend/internal/domain/squad"
	"github.com/wcfantasy/backend/internal/infrastructure/repository/memory"
	"github.com/wcfantasy/backend/internal/platform/logging"
)

type pointsFixture struct {
	service    *PointsService
	matchRepo  *memory.MatchRepository
	statsRepo  *memory.PlayerStatsRepository
	squadRepo  *memory.SquadRepository
	pointsRepo *memory.RoundPointsRepository
}

// newPointsFixture wires one finished match linked to round-1 and two squads
// holding overlapping starters:
//
//	sq-1: striker-a starting captain, mid-b starting, def-c benched
//	sq-2: striker-a starting vice-captain
func newPointsFixture(t *testing.T) *pointsFixture {
	t.Helper()

	kickoff := time.Date(2026, time.June, 15, 18, 0, 0, 0, time.UTC)
	matchRepo := memory.NewMatchRepository([]match.Match{{
		ID:          "m-1",
		ExternalRef: "ext-1",
		HomeTeamID:  "t-1",
		AwayTeamID:  "t-2",
		KickoffAt:   kickoff,
		Status:      match.StatusFinished,
	}})

	roundRepo := memory.NewRoundRepository([]round.Round{{
		ID:         "round-1",
		Name:       "Group Stage 1",
		StartAt:    kickoff.Add(-24 * time.Hour),
		DeadlineAt: kickoff.Add(-2 * time.Hour),
		EndAt:      kickoff.Add(72 * time.Hour),
	}})
	if err := roundRepo.LinkMatch(context.Background(), "round-1", "m-1"); err != nil {
		t.Fatalf("link match: %v", err)
	}

	pointsRepo := memory.NewRoundPointsRepository()
	squadRepo := memory.NewSquadRepository(pointsRepo)
	seedSquad := func(id string, members []squad.Member) {
		t.Helper()
		err := squadRepo.Replace(context.Background(), squad.Squad{
			ID:       id,
			UserID:   "user-" + id,
			LeagueID: "wc-2026",
			Name:     id,
		}, members)
		if err != nil {
			t.Fatalf("seed squad %s: %v", id, err)
		}
	}
	seedSquad("sq-1", []squad.Member{
		{SquadID: "sq-1", PlayerID: "striker-a", IsStarting: true, IsCaptain: true},
		{SquadID: "sq-1", PlayerID: "mid-b", IsStarting: true},
		{SquadID: "sq-1", PlayerID: "def-c", BenchOrder: 1},
	})
	seedSquad("sq-2", []squad.Member{
		{SquadID: "sq-2", PlayerID: "striker-a", IsStarting: true, IsViceCaptain: true},
	})

	statsRepo := memory.NewPlayerStatsRepository()
	service := NewPointsService(matchRepo, roundRepo, statsRepo, squadRepo, pointsRepo, logging.NewNop())

	return &pointsFixture{
		service:    service,
		matchRepo:  matchRepo,
		statsRepo:  statsRepo,
		squadRepo:  squadRepo,
		pointsRepo: pointsRepo,
	}
}

func (f *pointsFixture) seedStats(t *testing.T, rows []playerstats.Stats) {
	t.Helper()
	if err := f.statsRepo.UpsertBatch(context.Background(), rows); err != nil {
		t.Fatalf("seed stats: %v", err)
	}
}

func (f *pointsFixture) roundTotal(t *testing.T, squadID string) int {
	t.Helper()
	row, _, err := f.pointsRepo.GetBySquadAndRound(context.Background(), squadID, "round-1")
	if err != nil {
		t.Fatalf("get round points: %v", err)
	}
	return row.Points
}

func TestPointsService_AggregateMatch(t *testing.T) {
	t.Parallel()

	f := newPointsFixture(t)
	f.seedStats(t, []playerstats.Stats{
		{MatchID: "m-1", PlayerID: "striker-a", FantasyPoints: 9},
		{MatchID: "m-1", PlayerID: "mid-b", FantasyPoints: 5},
		{MatchID: "m-1", PlayerID: "def-c", FantasyPoints: 6},
	})

	if err := f.service.AggregateMatch(context.Background(), "m-1"); err != nil {
		t.Fatalf("AggregateMatch error: %v", err)
	}

	// sq-1: captain striker 9x2 + mid 5 + benched def 6.
	if got := f.roundTotal(t, "sq-1"); got != 29 {
		t.Fatalf("sq-1 total: got=%d want=29", got)
	}
	// sq-2: vice striker 9*3/2 truncated.
	if got := f.roundTotal(t, "sq-2"); got != 13 {
		t.Fatalf("sq-2 total: got=%d want=13", got)
	}
}

func TestPointsService_AggregateMatch_BenchScores(t *testing.T) {
	t.Parallel()

	f := newPointsFixture(t)
	f.seedStats(t, []playerstats.Stats{
		{MatchID: "m-1", PlayerID: "def-c", FantasyPoints: 6},
	})

	if err := f.service.AggregateMatch(context.Background(), "m-1"); err != nil {
		t.Fatalf("AggregateMatch error: %v", err)
	}

	// def-c sits on sq-1's bench without an armband, so his points land
	// unmultiplied.
	if got := f.roundTotal(t, "sq-1"); got != 6 {
		t.Fatalf("sq-1 total: got=%d want=6", got)
	}
}

func TestPointsService_AggregateMatch_IsIdempotent(t *testing.T) {
	t.Parallel()

	f := newPointsFixture(t)
	f.seedStats(t, []playerstats.Stats{
		{MatchID: "m-1", PlayerID: "striker-a", FantasyPoints: 9},
	})

	for i := 0; i < 3; i++ {
		if err := f.service.AggregateMatch(context.Background(), "m-1"); err != nil {
			t.Fatalf("AggregateMatch run %d: %v", i+1, err)
		}
	}

	if got := f.roundTotal(t, "sq-1"); got != 18 {
		t.Fatalf("reruns must not double-apply: got=%d want=18", got)
	}
}

func TestPointsService_AggregateMatch_ReappliesDelta(t *testing.T) {
	t.Parallel()

	f := newPointsFixture(t)
	f.seedStats(t, []playerstats.Stats{
		{MatchID: "m-1", PlayerID: "striker-a", FantasyPoints: 9},
	})
	if err := f.service.AggregateMatch(context.Background(), "m-1"); err != nil {
		t.Fatalf("first AggregateMatch: %v", err)
	}

	// A corrected box score lowers the striker's points; the re-run moves
	// the round total by the difference only.
	f.seedStats(t, []playerstats.Stats{
		{MatchID: "m-1", PlayerID: "striker-a", FantasyPoints: 4},
	})
	if err := f.service.AggregateMatch(context.Background(), "m-1"); err != nil {
		t.Fatalf("second AggregateMatch: %v", err)
	}

	if got := f.roundTotal(t, "sq-1"); got != 8 {
		t.Fatalf("corrected total: got=%d want=8", got)
	}
}

func TestPointsService_AggregateMatch_Guards(t *testing.T) {
	t.Parallel()

	f := newPointsFixture(t)

	if err := f.service.AggregateMatch(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	kickoff := time.Date(2026, time.June, 16, 18, 0, 0, 0, time.UTC)
	if err := f.matchRepo.Upsert(context.Background(), match.Match{
		ID: "m-live", ExternalRef: "ext-live", HomeTeamID: "t-1", AwayTeamID: "t-2",
		KickoffAt: kickoff, Status: match.StatusLive,
	}); err != nil {
		t.Fatalf("seed live match: %v", err)
	}
	if err := f.service.AggregateMatch(context.Background(), "m-live"); !errors.Is(err, ErrInconsistentState) {
		t.Fatalf("expected ErrInconsistentState for live match, got %v", err)
	}

	if err := f.matchRepo.Upsert(context.Background(), match.Match{
		ID: "m-orphan", ExternalRef: "ext-orphan", HomeTeamID: "t-1", AwayTeamID: "t-2",
		KickoffAt: kickoff, Status: match.StatusFinished,
	}); err != nil {
		t.Fatalf("seed orphan match: %v", err)
	}
	if err := f.service.AggregateMatch(context.Background(), "m-orphan"); !errors.Is(err, ErrInconsistentState) {
		t.Fatalf("expected ErrInconsistentState for unlinked match, got %v", err)
	}
}

func TestPointsService_ReconcileFinishedMatches_PicksUpStrandedStats(t *testing.T) {
	t.Parallel()

	f := newPointsFixture(t)
	f.seedStats(t, []playerstats.Stats{
		{MatchID: "m-1", PlayerID: "striker-a", FantasyPoints: 9},
	})

	// The stat lines landed but the aggregation never ran, as after a crash
	// between the two writes. The poller will not report m-1 again.
	if err := f.service.ReconcileFinishedMatches(context.Background()); err != nil {
		t.Fatalf("ReconcileFinishedMatches error: %v", err)
	}
	if got := f.roundTotal(t, "sq-1"); got != 18 {
		t.Fatalf("sq-1 total after reconcile: got=%d want=18", got)
	}

	// A second pass sees the ledger rows and leaves totals alone.
	if err := f.service.ReconcileFinishedMatches(context.Background()); err != nil {
		t.Fatalf("second reconcile: %v", err)
	}
	if got := f.roundTotal(t, "sq-1"); got != 18 {
		t.Fatalf("sq-1 total after second reconcile: got=%d want=18", got)
	}
}

func TestPointsService_ReconcileFinishedMatches_IgnoresMatchesWithoutStats(t *testing.T) {
	t.Parallel()

	f := newPointsFixture(t)

	if err := f.service.ReconcileFinishedMatches(context.Background()); err != nil {
		t.Fatalf("ReconcileFinishedMatches error: %v", err)
	}

	if _, exists, err := f.pointsRepo.GetBySquadAndRound(context.Background(), "sq-1", "round-1"); err != nil || exists {
		t.Fatalf("expected no round points without stats, exists=%v err=%v", exists, err)
	}
}

func TestPointsService_RoundStandings(t *testing.T) {
	t.Parallel()

	f := newPointsFixture(t)
	seed := map[string]int{"sq-1": 40, "sq-2": 55, "sq-3": 40}
	for squadID, points := range seed {
		if err := f.pointsRepo.ApplyMatchPoints(context.Background(), squadID, "round-1", "m-1", points); err != nil {
			t.Fatalf("seed points for %s: %v", squadID, err)
		}
	}

	rows, err := f.service.RoundStandings(context.Background(), "round-1")
	if err != nil {
		t.Fatalf("RoundStandings error: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	if rows[0].SquadID != "sq-2" || rows[0].Rank != 1 {
		t.Fatalf("unexpected leader: %+v", rows[0])
	}
	// Tied squads share a dense rank, ordered by squad id.
	if rows[1].SquadID != "sq-1" || rows[1].Rank != 2 {
		t.Fatalf("unexpected second row: %+v", rows[1])
	}
	if rows[2].SquadID != "sq-3" || rows[2].Rank != 2 {
		t.Fatalf("unexpected third row: %+v", rows[2])
	}
}

func TestPointsService_SquadRoundPoints_ZeroWhenUnscored(t *testing.T) {
	t.Parallel()

	f := newPointsFixture(t)
	row, err := f.service.SquadRoundPoints(context.Background(), "sq-1", "round-1")
	if err != nil {
		t.Fatalf("SquadRoundPoints error: %v", err)
	}
	if row.Points != 0 || row.SquadID != "sq-1" || row.RoundID != "round-1" {
		t.Fatalf("expected zero row, got %+v", row)
	}
}
