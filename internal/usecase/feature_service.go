package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/wcfantasy/backend/internal/domain/player"
	"github.com/wcfantasy/backend/internal/domain/playerstats"
	"github.com/wcfantasy/backend/internal/platform/cache"
	"github.com/wcfantasy/backend/internal/platform/logging"
)

const formWindow = 5

// PlayerFeatures is the season-to-date summary consumed by advisory
// tooling.
type PlayerFeatures struct {
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
	AvgPoints     float64
}

// PlayerForm captures recent output plus the next fixture's difficulty.
type PlayerForm struct {
	PlayerID string
	// LastPoints holds per-match points, oldest first, at most 5 entries.
	LastPoints  []int
	SeasonTotal int
	// UpcomingFDR is nil when the player's team has no scheduled match.
	UpcomingFDR *int
}

type FeatureService struct {
	playerRepo player.Repository
	statsRepo  playerstats.Repository
	fdr        *FDRService
	cache      *cache.Store
	logger     *logging.Logger
}

func NewFeatureService(
	playerRepo player.Repository,
	statsRepo playerstats.Repository,
	fdr *FDRService,
	store *cache.Store,
	logger *logging.Logger,
) *FeatureService {
	if logger == nil {
		logger = logging.Default()
	}

	return &FeatureService{
		playerRepo: playerRepo,
		statsRepo:  statsRepo,
		fdr:        fdr,
		cache:      store,
		logger:     logger,
	}
}

func (s *FeatureService) PlayerFeatures(ctx context.Context, playerID string) (PlayerFeatures, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FeatureService.PlayerFeatures")
	defer span.End()

	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return PlayerFeatures{}, fmt.Errorf("%w: player_id is required", ErrInvalidInput)
	}

	value, err := s.cache.GetOrLoad(ctx, "features:"+playerID, func(ctx context.Context) (any, error) {
		return s.loadFeatures(ctx, playerID)
	})
	if err != nil {
		return PlayerFeatures{}, err
	}

	return value.(PlayerFeatures), nil
}

func (s *FeatureService) loadFeatures(ctx context.Context, playerID string) (PlayerFeatures, error) {
	if _, err := s.mustGetPlayer(ctx, playerID); err != nil {
		return PlayerFeatures{}, err
	}

	totals, err := s.statsRepo.GetSeasonTotals(ctx, playerID)
	if err != nil {
		return PlayerFeatures{}, fmt.Errorf("get season totals: %w", err)
	}

	features := PlayerFeatures{
		PlayerID:      playerID,
		MatchesPlayed: totals.MatchesPlayed,
		Goals:         totals.Goals,
		Assists:       totals.Assists,
		Points:        totals.Points,
		Minutes:       totals.Minutes,
		Saves:         totals.Saves,
		YellowCards:   totals.YellowCards,
		RedCards:      totals.RedCards,
		GoalsConceded: totals.GoalsConceded,
	}
	if totals.MatchesPlayed > 0 {
		features.AvgPoints = float64(totals.Points) / float64(totals.MatchesPlayed)
	}

	return features, nil
}

func (s *FeatureService) PlayerForm(ctx context.Context, playerID string) (PlayerForm, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.FeatureService.PlayerForm")
	defer span.End()

	playerID = strings.TrimSpace(playerID)
	if playerID == "" {
		return PlayerForm{}, fmt.Errorf("%w: player_id is required", ErrInvalidInput)
	}

	value, err := s.cache.GetOrLoad(ctx, "form:"+playerID, func(ctx context.Context) (any, error) {
		return s.loadForm(ctx, playerID)
	})
	if err != nil {
		return PlayerForm{}, err
	}

	return value.(PlayerForm), nil
}

func (s *FeatureService) loadForm(ctx context.Context, playerID string) (PlayerForm, error) {
	p, err := s.mustGetPlayer(ctx, playerID)
	if err != nil {
		return PlayerForm{}, err
	}

	recent, err := s.statsRepo.ListRecentByPlayer(ctx, playerID, formWindow)
	if err != nil {
		return PlayerForm{}, fmt.Errorf("list recent stats: %w", err)
	}

	// Recent rows arrive newest first; present them oldest first.
	lastPoints := make([]int, len(recent))
	for i, row := range recent {
		lastPoints[len(recent)-1-i] = row.FantasyPoints
	}

	totals, err := s.statsRepo.GetSeasonTotals(ctx, playerID)
	if err != nil {
		return PlayerForm{}, fmt.Errorf("get season totals: %w", err)
	}

	form := PlayerForm{
		PlayerID:    playerID,
		LastPoints:  lastPoints,
		SeasonTotal: totals.Points,
	}

	rating, ok, err := s.fdr.TeamUpcomingFDR(ctx, p.TeamID)
	if err != nil {
		return PlayerForm{}, err
	}
	if ok {
		form.UpcomingFDR = &rating
	}

	return form, nil
}

// InvalidateMatch drops cached features for every player with a stat row in
// the match. The stats sync calls it after a finished match lands.
func (s *FeatureService) InvalidateMatch(ctx context.Context, matchID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.FeatureService.InvalidateMatch")
	defer span.End()

	rows, err := s.statsRepo.ListByMatch(ctx, matchID)
	if err != nil {
		return fmt.Errorf("list match stats: %w", err)
	}
	for _, row := range rows {
		s.cache.Delete(ctx, "features:"+row.PlayerID)
		s.cache.Delete(ctx, "form:"+row.PlayerID)
	}

	return nil
}

func (s *FeatureService) mustGetPlayer(ctx context.Context, playerID string) (player.Player, error) {
	p, exists, err := s.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		return player.Player{}, fmt.Errorf("get player: %w", err)
	}
	if !exists {
		return player.Player{}, fmt.Errorf("%w: player=%s", ErrNotFound, playerID)
	}

	return p, nil
}
