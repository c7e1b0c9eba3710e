package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wcfantasy/backend/internal/domain/player"
	"github.com/wcfantasy/backend/internal/domain/round"
	"github.com/wcfantasy/backend/internal/domain/squad"
	"github.com/wcfantasy/backend/internal/platform/logging"
)

const transferPenaltyPoints = 4

// maxTransferRetries bounds the retry loop when a concurrent transfer wins
// the race on the same squad.
const maxTransferRetries = 3

// TransferInput names the swap: PlayerOutID leaves the roster, PlayerInID
// joins it.
type TransferInput struct {
	SquadID     string
	PlayerOutID string
	PlayerInID  string
}

// TransferResult reports how the applied transfer was paid for.
type TransferResult struct {
	BudgetRemaining        int64
	FreeTransfersRemaining int
	PenaltyPoints          int
	WildcardApplied        bool
}

type TransferService struct {
	squadRepo  squad.Repository
	playerRepo player.Repository
	roundRepo  round.Repository
	rules      squad.Rules
	logger     *logging.Logger
	now        func() time.Time
}

func NewTransferService(
	squadRepo squad.Repository,
	playerRepo player.Repository,
	roundRepo round.Repository,
	rules squad.Rules,
	logger *logging.Logger,
) *TransferService {
	if logger == nil {
		logger = logging.Default()
	}

	return &TransferService{
		squadRepo:  squadRepo,
		playerRepo: playerRepo,
		roundRepo:  roundRepo,
		rules:      rules,
		logger:     logger,
		now:        time.Now,
	}
}

// MakeTransfer swaps one rostered player for another. Guards run in a fixed
// order: roster membership, the round deadline when a round is active,
// post-swap composition, then budget. The economy is decided last: a
// wildcard active for the current round makes the transfer free, otherwise
// one free transfer is consumed, otherwise a 4-point penalty lands on the
// current round. Between rounds there is no deadline to miss and no round to
// penalize, so a transfer still consumes a free transfer when one remains
// and is free otherwise. The whole decision is applied transactionally and
// retried when a concurrent transfer changed the squad underneath us.
func (s *TransferService) MakeTransfer(ctx context.Context, input TransferInput) (TransferResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.TransferService.MakeTransfer")
	defer span.End()

	input.SquadID = strings.TrimSpace(input.SquadID)
	input.PlayerOutID = strings.TrimSpace(input.PlayerOutID)
	input.PlayerInID = strings.TrimSpace(input.PlayerInID)
	if input.SquadID == "" || input.PlayerOutID == "" || input.PlayerInID == "" {
		return TransferResult{}, fmt.Errorf("%w: squad_id, player_out_id and player_in_id are required", ErrInvalidInput)
	}
	if input.PlayerOutID == input.PlayerInID {
		return TransferResult{}, fmt.Errorf("%w: player %s", ErrDuplicatePlayer, input.PlayerInID)
	}

	var lastErr error
	for attempt := 0; attempt <= maxTransferRetries; attempt++ {
		result, err := s.tryTransfer(ctx, input)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, squad.ErrStaleSquad) {
			return TransferResult{}, err
		}
		lastErr = err
		s.logger.WarnContext(ctx, "transfer lost race, retrying",
			"squad_id", input.SquadID,
			"attempt", attempt+1,
		)
	}

	return TransferResult{}, fmt.Errorf("apply transfer: %w", lastErr)
}

func (s *TransferService) tryTransfer(ctx context.Context, input TransferInput) (TransferResult, error) {
	item, exists, err := s.squadRepo.GetByID(ctx, input.SquadID)
	if err != nil {
		return TransferResult{}, fmt.Errorf("get squad: %w", err)
	}
	if !exists {
		return TransferResult{}, fmt.Errorf("%w: squad=%s", ErrNotFound, input.SquadID)
	}

	members, err := s.squadRepo.ListMembers(ctx, item.ID)
	if err != nil {
		return TransferResult{}, fmt.Errorf("list squad members: %w", err)
	}

	onSquad := false
	for _, member := range members {
		if member.PlayerID == input.PlayerInID {
			return TransferResult{}, fmt.Errorf("%w: player %s", ErrDuplicatePlayer, input.PlayerInID)
		}
		if member.PlayerID == input.PlayerOutID {
			onSquad = true
		}
	}
	if !onSquad {
		return TransferResult{}, fmt.Errorf("%w: player %s is not on the squad", ErrInvalidInput, input.PlayerOutID)
	}

	current, roundActive, err := s.roundRepo.CurrentAt(ctx, s.now())
	if err != nil {
		return TransferResult{}, fmt.Errorf("get current round: %w", err)
	}
	if roundActive && current.DeadlinePassed(s.now()) {
		return TransferResult{}, fmt.Errorf("%w: round=%s", ErrDeadlinePassed, current.ID)
	}

	picks, playerIn, playerOut, err := s.swappedPicks(ctx, members, input.PlayerOutID, input.PlayerInID)
	if err != nil {
		return TransferResult{}, err
	}
	if err := squad.ValidateComposition(picks, s.rules); err != nil {
		return TransferResult{}, err
	}

	newBudget := item.BudgetRemaining + playerOut.Price - playerIn.Price
	if newBudget < 0 {
		return TransferResult{}, fmt.Errorf("%w: short by %d", squad.ErrBudgetExceeded, -newBudget)
	}

	app := squad.TransferApplication{
		SquadID:               item.ID,
		PlayerOutID:           input.PlayerOutID,
		PlayerInID:            input.PlayerInID,
		NewBudget:             newBudget,
		ExpectedBudget:        item.BudgetRemaining,
		ExpectedFreeTransfers: item.FreeTransfersRemaining,
	}
	result := TransferResult{
		BudgetRemaining:        newBudget,
		FreeTransfersRemaining: item.FreeTransfersRemaining,
	}

	switch {
	case roundActive && item.WildcardActiveFor(current.ID):
		result.WildcardApplied = true
	case item.FreeTransfersRemaining > 0:
		app.ConsumeFreeTransfer = true
		result.FreeTransfersRemaining = item.FreeTransfersRemaining - 1
	case roundActive:
		app.PenaltyPoints = transferPenaltyPoints
		app.PenaltyRoundID = current.ID
		result.PenaltyPoints = transferPenaltyPoints
	}

	if err := s.squadRepo.ApplyTransfer(ctx, app); err != nil {
		return TransferResult{}, err
	}

	s.logger.InfoContext(ctx, "transfer applied",
		"squad_id", item.ID,
		"player_out", input.PlayerOutID,
		"player_in", input.PlayerInID,
		"penalty", result.PenaltyPoints,
		"wildcard", result.WildcardApplied,
	)

	return result, nil
}

func (s *TransferService) swappedPicks(
	ctx context.Context,
	members []squad.Member,
	playerOutID, playerInID string,
) ([]squad.Pick, player.Player, player.Player, error) {
	ids := make([]string, 0, len(members)+1)
	for _, member := range members {
		if member.PlayerID == playerOutID {
			continue
		}
		ids = append(ids, member.PlayerID)
	}
	ids = append(ids, playerInID, playerOutID)

	players, err := s.playerRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, player.Player{}, player.Player{}, fmt.Errorf("get players by ids: %w", err)
	}
	byID := make(map[string]player.Player, len(players))
	for _, p := range players {
		byID[p.ID] = p
	}

	playerIn, ok := byID[playerInID]
	if !ok {
		return nil, player.Player{}, player.Player{}, fmt.Errorf("%w: player=%s", ErrNotFound, playerInID)
	}
	playerOut, ok := byID[playerOutID]
	if !ok {
		return nil, player.Player{}, player.Player{}, fmt.Errorf("%w: player=%s", ErrNotFound, playerOutID)
	}
	if !playerIn.Active {
		return nil, player.Player{}, player.Player{}, fmt.Errorf("%w: player %s is not available", ErrInvalidInput, playerInID)
	}

	picks := make([]squad.Pick, 0, len(members))
	for _, member := range members {
		if member.PlayerID == playerOutID {
			continue
		}
		p, ok := byID[member.PlayerID]
		if !ok {
			return nil, player.Player{}, player.Player{}, fmt.Errorf("%w: player %s missing from catalog", ErrInconsistentState, member.PlayerID)
		}
		picks = append(picks, squad.Pick{PlayerID: p.ID, TeamID: p.TeamID, Position: p.Position, Price: p.Price})
	}
	picks = append(picks, squad.Pick{
		PlayerID: playerIn.ID,
		TeamID:   playerIn.TeamID,
		Position: playerIn.Position,
		Price:    playerIn.Price,
	})

	return picks, playerIn, playerOut, nil
}

// ActivateWildcard marks the squad's single wildcard as used and binds it to
// the current round, making that round's transfers free. Activation after
// the deadline would be pointless so it is rejected too.
func (s *TransferService) ActivateWildcard(ctx context.Context, squadID string) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.TransferService.ActivateWildcard")
	defer span.End()

	squadID = strings.TrimSpace(squadID)
	if squadID == "" {
		return fmt.Errorf("%w: squad_id is required", ErrInvalidInput)
	}

	item, exists, err := s.squadRepo.GetByID(ctx, squadID)
	if err != nil {
		return fmt.Errorf("get squad: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: squad=%s", ErrNotFound, squadID)
	}
	if item.WildcardUsed {
		return fmt.Errorf("%w: squad=%s", ErrWildcardAlreadyUsed, squadID)
	}

	current, exists, err := s.roundRepo.CurrentAt(ctx, s.now())
	if err != nil {
		return fmt.Errorf("get current round: %w", err)
	}
	if !exists {
		return ErrNoActiveRound
	}
	if current.DeadlinePassed(s.now()) {
		return fmt.Errorf("%w: round=%s", ErrDeadlinePassed, current.ID)
	}

	if err := s.squadRepo.ActivateWildcard(ctx, squadID, current.ID); err != nil {
		return fmt.Errorf("activate wildcard: %w", err)
	}

	s.logger.InfoContext(ctx, "wildcard activated", "squad_id", squadID, "round_id", current.ID)
	return nil
}
