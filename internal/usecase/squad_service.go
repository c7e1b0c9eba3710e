package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/wcfantasy/backend/internal/domain/league"
	"github.com/wcfantasy/backend/internal/domain/player"
	"github.com/wcfantasy/backend/internal/domain/squad"
	idgen "github.com/wcfantasy/backend/internal/platform/id"
	"github.com/wcfantasy/backend/internal/platform/logging"
)

// CreateSquadInput is the incoming payload for squad creation.
type CreateSquadInput struct {
	UserID    string   `validate:"required"`
	LeagueID  string   `validate:"required"`
	TeamName  string   `validate:"omitempty,max=64"`
	PlayerIDs []string `validate:"required,len=15,unique"`
	Formation string   `validate:"omitempty"`
}

// LineupSlot is one submitted roster flag set for UpdateLineup.
type LineupSlot struct {
	PlayerID      string `validate:"required"`
	IsStarting    bool
	BenchOrder    int `validate:"min=0,max=4"`
	IsCaptain     bool
	IsViceCaptain bool
}

// UpdateLineupInput is the incoming payload for a lineup update.
type UpdateLineupInput struct {
	SquadID   string       `validate:"required"`
	Formation string       `validate:"omitempty"`
	Slots     []LineupSlot `validate:"required,min=11,max=15,dive"`
}

type SquadService struct {
	leagueRepo league.Repository
	playerRepo player.Repository
	squadRepo  squad.Repository
	rules      squad.Rules
	idGen      idgen.Generator
	validate   *validator.Validate
	logger     *logging.Logger
	now        func() time.Time
}

func NewSquadService(
	leagueRepo league.Repository,
	playerRepo player.Repository,
	squadRepo squad.Repository,
	rules squad.Rules,
	idGen idgen.Generator,
	logger *logging.Logger,
) *SquadService {
	if logger == nil {
		logger = logging.Default()
	}

	return &SquadService{
		leagueRepo: leagueRepo,
		playerRepo: playerRepo,
		squadRepo:  squadRepo,
		rules:      rules,
		idGen:      idGen,
		validate:   validator.New(),
		logger:     logger,
		now:        time.Now,
	}
}

// CreateSquad validates the 15-player roster, replaces any pre-existing
// squad for (user, league) and assigns the default lineup. The remaining
// budget is seeded from the rules cap minus roster cost.
func (s *SquadService) CreateSquad(ctx context.Context, input CreateSquadInput) (squad.Squad, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SquadService.CreateSquad")
	defer span.End()

	input.UserID = strings.TrimSpace(input.UserID)
	input.LeagueID = strings.TrimSpace(input.LeagueID)
	input.TeamName = strings.TrimSpace(input.TeamName)
	if err := s.validate.StructCtx(ctx, input); err != nil {
		return squad.Squad{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err := s.ensureLeague(ctx, input.LeagueID, input.UserID); err != nil {
		return squad.Squad{}, err
	}

	picks, err := s.resolvePicks(ctx, input.PlayerIDs)
	if err != nil {
		return squad.Squad{}, err
	}

	if err := squad.ValidateComposition(picks, s.rules); err != nil {
		return squad.Squad{}, err
	}

	formation, err := squad.FormationByName(input.Formation)
	if err != nil {
		return squad.Squad{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	squadID, err := s.idGen.NewID()
	if err != nil {
		return squad.Squad{}, fmt.Errorf("generate squad id: %w", err)
	}

	var rosterCost int64
	for _, pick := range picks {
		rosterCost += pick.Price
	}

	name := input.TeamName
	if name == "" {
		name = "My Team"
	}

	now := s.now().UTC()
	item := squad.Squad{
		ID:                     squadID,
		UserID:                 input.UserID,
		LeagueID:               input.LeagueID,
		Name:                   name,
		BudgetRemaining:        s.rules.BudgetCap - rosterCost,
		FreeTransfersRemaining: 1,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := item.Validate(); err != nil {
		return squad.Squad{}, fmt.Errorf("validate squad: %w", err)
	}

	members := squad.AutoLineup(squadID, picks, formation)
	if err := s.squadRepo.Replace(ctx, item, members); err != nil {
		return squad.Squad{}, fmt.Errorf("replace squad: %w", err)
	}

	s.logger.InfoContext(ctx, "squad created",
		"user_id", input.UserID,
		"league_id", input.LeagueID,
		"squad_id", squadID,
		"budget_remaining", item.BudgetRemaining,
	)

	return item, nil
}

func (s *SquadService) GetUserSquad(ctx context.Context, userID, leagueID string) (squad.Squad, []squad.Member, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SquadService.GetUserSquad")
	defer span.End()

	userID = strings.TrimSpace(userID)
	leagueID = strings.TrimSpace(leagueID)
	if userID == "" || leagueID == "" {
		return squad.Squad{}, nil, fmt.Errorf("%w: user_id and league_id are required", ErrInvalidInput)
	}

	item, exists, err := s.squadRepo.GetByUserAndLeague(ctx, userID, leagueID)
	if err != nil {
		return squad.Squad{}, nil, fmt.Errorf("get squad: %w", err)
	}
	if !exists {
		return squad.Squad{}, nil, fmt.Errorf("%w: squad not found", ErrNotFound)
	}

	members, err := s.squadRepo.ListMembers(ctx, item.ID)
	if err != nil {
		return squad.Squad{}, nil, fmt.Errorf("list squad members: %w", err)
	}

	return item, members, nil
}

func (s *SquadService) UpdateTeamName(ctx context.Context, squadID, name string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.SquadService.UpdateTeamName")
	defer span.End()

	squadID = strings.TrimSpace(squadID)
	name = strings.TrimSpace(name)
	if squadID == "" || name == "" {
		return fmt.Errorf("%w: squad_id and name are required", ErrInvalidInput)
	}

	if _, err := s.mustGetSquad(ctx, squadID); err != nil {
		return err
	}

	if err := s.squadRepo.UpdateName(ctx, squadID, name); err != nil {
		return fmt.Errorf("update squad name: %w", err)
	}

	return nil
}

// UpdateLineup resets every starting/captaincy flag for the squad and
// applies the submitted flags, after checking the starters actually satisfy
// the named formation: 11 starters with exact per-position counts, captain
// and vice-captain distinct starters.
func (s *SquadService) UpdateLineup(ctx context.Context, input UpdateLineupInput) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.SquadService.UpdateLineup")
	defer span.End()

	input.SquadID = strings.TrimSpace(input.SquadID)
	if err := s.validate.StructCtx(ctx, input); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	item, err := s.mustGetSquad(ctx, input.SquadID)
	if err != nil {
		return err
	}

	formation, err := squad.FormationByName(input.Formation)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	members, err := s.buildLineupMembers(ctx, item.ID, input.Slots, formation)
	if err != nil {
		return err
	}

	if err := s.squadRepo.SetLineup(ctx, item.ID, members); err != nil {
		return fmt.Errorf("set lineup: %w", err)
	}

	s.logger.InfoContext(ctx, "lineup updated", "squad_id", item.ID, "slot_count", len(members))
	return nil
}

func (s *SquadService) buildLineupMembers(
	ctx context.Context,
	squadID string,
	slots []LineupSlot,
	formation squad.Formation,
) ([]squad.Member, error) {
	existing, err := s.squadRepo.ListMembers(ctx, squadID)
	if err != nil {
		return nil, fmt.Errorf("list squad members: %w", err)
	}
	rostered := make(map[string]struct{}, len(existing))
	for _, member := range existing {
		rostered[member.PlayerID] = struct{}{}
	}

	playerIDs := make([]string, 0, len(slots))
	seen := make(map[string]struct{}, len(slots))
	for _, slot := range slots {
		playerID := strings.TrimSpace(slot.PlayerID)
		if _, dup := seen[playerID]; dup {
			return nil, fmt.Errorf("%w: duplicate player %s in lineup", ErrInvalidInput, playerID)
		}
		seen[playerID] = struct{}{}
		if _, ok := rostered[playerID]; !ok {
			return nil, fmt.Errorf("%w: player %s is not on the squad roster", ErrInvalidInput, playerID)
		}
		playerIDs = append(playerIDs, playerID)
	}

	players, err := s.playerRepo.GetByIDs(ctx, playerIDs)
	if err != nil {
		return nil, fmt.Errorf("get lineup players: %w", err)
	}
	if len(players) != len(playerIDs) {
		return nil, fmt.Errorf("%w: some lineup players do not exist", ErrInvalidInput)
	}
	positionByID := make(map[string]player.Position, len(players))
	for _, p := range players {
		positionByID[p.ID] = p.Position
	}

	starterCounts := make(map[player.Position]int, 4)
	starterTotal := 0
	captainCount := 0
	viceCount := 0
	var captainID, viceID string

	members := make([]squad.Member, 0, len(slots))
	for _, slot := range slots {
		playerID := strings.TrimSpace(slot.PlayerID)
		if slot.IsStarting {
			starterTotal++
			starterCounts[positionByID[playerID]]++
		}
		if slot.IsCaptain {
			captainCount++
			captainID = playerID
			if !slot.IsStarting {
				return nil, fmt.Errorf("%w: captain must be a starter", ErrInvalidInput)
			}
		}
		if slot.IsViceCaptain {
			viceCount++
			viceID = playerID
			if !slot.IsStarting {
				return nil, fmt.Errorf("%w: vice-captain must be a starter", ErrInvalidInput)
			}
		}
		members = append(members, squad.Member{
			SquadID:       squadID,
			PlayerID:      playerID,
			IsStarting:    slot.IsStarting,
			BenchOrder:    slot.BenchOrder,
			IsCaptain:     slot.IsCaptain,
			IsViceCaptain: slot.IsViceCaptain,
		})
	}

	if starterTotal != 11 {
		return nil, fmt.Errorf("%w: starting lineup must contain 11 players, got %d", ErrInvalidInput, starterTotal)
	}
	for pos, required := range formation {
		if starterCounts[pos] != required {
			return nil, fmt.Errorf("%w: formation needs %d %s starters, got %d", ErrInvalidInput, required, pos, starterCounts[pos])
		}
	}
	if captainCount > 1 || viceCount > 1 {
		return nil, fmt.Errorf("%w: at most one captain and one vice-captain", ErrInvalidInput)
	}
	if captainID != "" && captainID == viceID {
		return nil, fmt.Errorf("%w: captain and vice-captain must be different", ErrInvalidInput)
	}

	return members, nil
}

func (s *SquadService) mustGetSquad(ctx context.Context, squadID string) (squad.Squad, error) {
	item, exists, err := s.squadRepo.GetByID(ctx, squadID)
	if err != nil {
		return squad.Squad{}, fmt.Errorf("get squad: %w", err)
	}
	if !exists {
		return squad.Squad{}, fmt.Errorf("%w: squad=%s", ErrNotFound, squadID)
	}

	return item, nil
}

func (s *SquadService) ensureLeague(ctx context.Context, leagueID, userID string) error {
	_, exists, err := s.leagueRepo.GetByID(ctx, leagueID)
	if err != nil {
		return fmt.Errorf("get league by id: %w", err)
	}
	if exists {
		return nil
	}
	if leagueID != league.DefaultLeagueID {
		return fmt.Errorf("%w: league=%s", ErrNotFound, leagueID)
	}

	code, err := s.idGen.NewID()
	if err != nil {
		return fmt.Errorf("generate league code: %w", err)
	}
	item := league.League{
		ID:      league.DefaultLeagueID,
		Name:    "Global League",
		Code:    "DEFAULT-" + code[:8],
		OwnerID: userID,
	}
	if err := s.leagueRepo.Create(ctx, item); err != nil {
		return fmt.Errorf("create default league: %w", err)
	}

	return nil
}

func (s *SquadService) resolvePicks(ctx context.Context, playerIDs []string) ([]squad.Pick, error) {
	cleaned := make([]string, 0, len(playerIDs))
	for _, id := range playerIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("%w: player id cannot be empty", ErrInvalidInput)
		}
		cleaned = append(cleaned, id)
	}

	players, err := s.playerRepo.GetByIDs(ctx, cleaned)
	if err != nil {
		return nil, fmt.Errorf("get players by ids: %w", err)
	}
	if len(players) != len(cleaned) {
		return nil, fmt.Errorf("%w: some players do not exist", ErrInvalidInput)
	}

	pickByID := make(map[string]squad.Pick, len(players))
	for _, p := range players {
		pickByID[p.ID] = squad.Pick{
			PlayerID: p.ID,
			TeamID:   p.TeamID,
			Position: p.Position,
			Price:    p.Price,
		}
	}

	picks := make([]squad.Pick, 0, len(cleaned))
	for _, id := range cleaned {
		picks = append(picks, pickByID[id])
	}

	return picks, nil
}
