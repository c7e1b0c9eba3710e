package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/wcfantasy/backend/internal/domain/match"
	"github.com/wcfantasy/backend/internal/domain/player"
	"github.com/wcfantasy/backend/internal/domain/round"
	"github.com/wcfantasy/backend/internal/domain/team"
	idgen "github.com/wcfantasy/backend/internal/platform/id"
	"github.com/wcfantasy/backend/internal/platform/logging"
)

// Starting prices in fixed-point tenths, keyed by position.
var seedPriceByPosition = map[player.Position]int64{
	player.PositionGoalkeeper: 45,
	player.PositionDefender:   50,
	player.PositionMidfielder: 55,
	player.PositionForward:    60,
}

var positionByFeedLabel = map[string]player.Position{
	"GOALKEEPER": player.PositionGoalkeeper,
	"DEFENCE":    player.PositionDefender,
	"DEFENDER":   player.PositionDefender,
	"MIDFIELD":   player.PositionMidfielder,
	"MIDFIELDER": player.PositionMidfielder,
	"OFFENCE":    player.PositionForward,
	"ATTACKER":   player.PositionForward,
	"FORWARD":    player.PositionForward,
}

// SeedService loads the tournament catalog (teams, squads, fixtures,
// rounds) from the feed into local storage. Everything upserts by external
// ref, so re-running a seed refreshes rather than duplicates.
type SeedService struct {
	teamRepo   team.Repository
	playerRepo player.Repository
	matchRepo  match.Repository
	roundRepo  round.Repository
	feed       TournamentProvider
	idGen      idgen.Generator
	logger     *logging.Logger
	workers    int
}

func NewSeedService(
	teamRepo team.Repository,
	playerRepo player.Repository,
	matchRepo match.Repository,
	roundRepo round.Repository,
	feed TournamentProvider,
	idGen idgen.Generator,
	logger *logging.Logger,
	workers int,
) *SeedService {
	if logger == nil {
		logger = logging.Default()
	}
	if workers <= 0 {
		workers = 4
	}

	return &SeedService{
		teamRepo:   teamRepo,
		playerRepo: playerRepo,
		matchRepo:  matchRepo,
		roundRepo:  roundRepo,
		feed:       feed,
		idGen:      idGen,
		logger:     logger,
		workers:    workers,
	}
}

// SeedTournament ingests teams, squads and fixtures in that order. Squad
// fetches fan out over a bounded worker pool since they dominate the feed
// round-trips.
func (s *SeedService) SeedTournament(ctx context.Context) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.SeedService.SeedTournament")
	defer span.End()

	teams, err := s.seedTeams(ctx)
	if err != nil {
		return err
	}
	if err := s.seedSquads(ctx, teams); err != nil {
		return err
	}
	if err := s.seedFixtures(ctx); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "tournament seeded", "teams", len(teams))
	return nil
}

func (s *SeedService) seedTeams(ctx context.Context) ([]team.Team, error) {
	reported, err := s.feed.FetchTeams(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: teams: %v", ErrExternalFetch, err)
	}

	teams := make([]team.Team, 0, len(reported))
	for _, item := range reported {
		local, exists, err := s.teamRepo.GetByExternalRef(ctx, item.ExternalRef)
		if err != nil {
			return nil, fmt.Errorf("get team by external ref: %w", err)
		}
		if !exists {
			id, err := s.idGen.NewID()
			if err != nil {
				return nil, fmt.Errorf("generate team id: %w", err)
			}
			local = team.Team{ID: id, ExternalRef: item.ExternalRef}
		}
		local.Name = item.Name
		local.CountryCode = item.CountryCode
		local.FlagURL = item.FlagURL
		if err := s.teamRepo.Upsert(ctx, local); err != nil {
			return nil, fmt.Errorf("upsert team %s: %w", item.ExternalRef, err)
		}
		teams = append(teams, local)
	}

	return teams, nil
}

func (s *SeedService) seedSquads(ctx context.Context, teams []team.Team) error {
	p := pool.New().WithMaxGoroutines(s.workers).WithErrors().WithContext(ctx)
	for _, t := range teams {
		t := t
		p.Go(func(ctx context.Context) error {
			return s.seedTeamSquad(ctx, t)
		})
	}
	if err := p.Wait(); err != nil {
		return fmt.Errorf("seed squads: %w", err)
	}

	return nil
}

func (s *SeedService) seedTeamSquad(ctx context.Context, t team.Team) error {
	reported, err := s.feed.FetchSquad(ctx, t.ExternalRef)
	if err != nil {
		return fmt.Errorf("%w: squad for team %s: %v", ErrExternalFetch, t.ExternalRef, err)
	}

	for _, item := range reported {
		pos, ok := positionByFeedLabel[strings.ToUpper(strings.TrimSpace(item.Position))]
		if !ok {
			s.logger.WarnContext(ctx, "skipping player with unknown position",
				"player_ref", item.ExternalRef,
				"position", item.Position,
			)
			continue
		}

		local, exists, err := s.playerRepo.GetByExternalRef(ctx, item.ExternalRef)
		if err != nil {
			return fmt.Errorf("get player by external ref: %w", err)
		}
		if !exists {
			id, err := s.idGen.NewID()
			if err != nil {
				return fmt.Errorf("generate player id: %w", err)
			}
			local = player.Player{
				ID:          id,
				ExternalRef: item.ExternalRef,
				Price:       seedPriceByPosition[pos],
				Active:      true,
			}
		}
		local.TeamID = t.ID
		local.Name = item.Name
		local.Position = pos
		if err := s.playerRepo.Upsert(ctx, local); err != nil {
			return fmt.Errorf("upsert player %s: %w", item.ExternalRef, err)
		}
	}

	return nil
}

func (s *SeedService) seedFixtures(ctx context.Context) error {
	reported, err := s.feed.FetchFixtures(ctx)
	if err != nil {
		return fmt.Errorf("%w: fixtures: %v", ErrExternalFetch, err)
	}

	type roundWindow struct {
		earliest time.Time
		latest   time.Time
		matchIDs []string
	}
	windows := make(map[string]*roundWindow)
	order := make([]string, 0)

	for _, item := range reported {
		home, exists, err := s.teamRepo.GetByExternalRef(ctx, item.HomeTeamRef)
		if err != nil {
			return fmt.Errorf("get home team: %w", err)
		}
		if !exists {
			continue
		}
		away, exists, err := s.teamRepo.GetByExternalRef(ctx, item.AwayTeamRef)
		if err != nil {
			return fmt.Errorf("get away team: %w", err)
		}
		if !exists {
			continue
		}

		local, exists, err := s.matchRepo.GetByExternalRef(ctx, item.ExternalRef)
		if err != nil {
			return fmt.Errorf("get match by external ref: %w", err)
		}
		if !exists {
			id, err := s.idGen.NewID()
			if err != nil {
				return fmt.Errorf("generate match id: %w", err)
			}
			local = match.Match{ID: id, ExternalRef: item.ExternalRef, Status: match.StatusScheduled}
		}
		local.HomeTeamID = home.ID
		local.AwayTeamID = away.ID
		local.KickoffAt = item.KickoffAt
		local.Venue = item.Venue
		local.RoundName = item.RoundName
		local.Status = match.NextStatus(local.Status, match.StatusFromFeed(item.StatusLabel))
		if err := s.matchRepo.Upsert(ctx, local); err != nil {
			return fmt.Errorf("upsert match %s: %w", item.ExternalRef, err)
		}

		if groupName := groupFromRoundName(item.RoundName); groupName != "" {
			if home.GroupName != groupName {
				if err := s.teamRepo.UpdateGroup(ctx, home.ID, groupName); err != nil {
					return fmt.Errorf("update home group: %w", err)
				}
			}
			if away.GroupName != groupName {
				if err := s.teamRepo.UpdateGroup(ctx, away.ID, groupName); err != nil {
					return fmt.Errorf("update away group: %w", err)
				}
			}
		}

		if item.RoundName != "" {
			window, ok := windows[item.RoundName]
			if !ok {
				window = &roundWindow{earliest: local.KickoffAt, latest: local.KickoffAt}
				windows[item.RoundName] = window
				order = append(order, item.RoundName)
			}
			if local.KickoffAt.Before(window.earliest) {
				window.earliest = local.KickoffAt
			}
			if local.KickoffAt.After(window.latest) {
				window.latest = local.KickoffAt
			}
			window.matchIDs = append(window.matchIDs, local.ID)
		}
	}

	for _, name := range order {
		window := windows[name]
		if err := s.seedRound(ctx, name, window.earliest, window.latest, window.matchIDs); err != nil {
			return err
		}
	}

	return nil
}

// seedRound makes the round window cover its fixtures: transfers lock at
// the first kickoff and the round stays current until a few hours past the
// last one.
func (s *SeedService) seedRound(ctx context.Context, name string, earliest, latest time.Time, matchIDs []string) error {
	rounds, err := s.roundRepo.List(ctx)
	if err != nil {
		return fmt.Errorf("list rounds: %w", err)
	}

	var existing *round.Round
	for i := range rounds {
		if rounds[i].Name == name {
			existing = &rounds[i]
			break
		}
	}

	item := round.Round{
		Name:       name,
		StartAt:    earliest,
		DeadlineAt: earliest,
		EndAt:      latest.Add(4 * time.Hour),
	}
	if existing != nil {
		item.ID = existing.ID
	} else {
		id, err := s.idGen.NewID()
		if err != nil {
			return fmt.Errorf("generate round id: %w", err)
		}
		item.ID = id
	}
	if err := s.roundRepo.Upsert(ctx, item); err != nil {
		return fmt.Errorf("upsert round %s: %w", name, err)
	}

	for _, matchID := range matchIDs {
		if err := s.roundRepo.LinkMatch(ctx, item.ID, matchID); err != nil {
			return fmt.Errorf("link match to round: %w", err)
		}
	}

	return nil
}

// groupFromRoundName extracts the group letter from labels like
// "Group A - 1"; empty for knockout-stage names.
func groupFromRoundName(name string) string {
	name = strings.TrimSpace(name)
	if !strings.HasPrefix(strings.ToUpper(name), "GROUP ") {
		return ""
	}
	rest := strings.TrimSpace(name[len("Group "):])
	if rest == "" {
		return ""
	}
	fields := strings.Fields(rest)
	return strings.ToUpper(fields[0])
}
