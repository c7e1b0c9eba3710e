package memory

import (
	"context"
	"sync"

	"github.com/wcfantasy/backend/internal/domain/roundpoints"
	"github.com/wcfantasy/backend/internal/domain/squad"
)

type SquadRepository struct {
	mu      sync.RWMutex
	items   map[string]squad.Squad
	members map[string][]squad.Member
	// points receives the transfer penalty, mirroring how the SQL
	// implementation writes it to the round totals in the same transaction.
	points roundpoints.Repository
}

func NewSquadRepository(points roundpoints.Repository) *SquadRepository {
	return &SquadRepository{
		items:   make(map[string]squad.Squad),
		members: make(map[string][]squad.Member),
		points:  points,
	}
}

func (r *SquadRepository) GetByID(_ context.Context, squadID string) (squad.Squad, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.items[squadID]
	if !ok {
		return squad.Squad{}, false, nil
	}

	return s, true, nil
}

func (r *SquadRepository) GetByUserAndLeague(_ context.Context, userID, leagueID string) (squad.Squad, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.items {
		if s.UserID == userID && s.LeagueID == leagueID {
			return s, true, nil
		}
	}

	return squad.Squad{}, false, nil
}

func (r *SquadRepository) ListMembers(_ context.Context, squadID string) ([]squad.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]squad.Member, len(r.members[squadID]))
	copy(out, r.members[squadID])

	return out, nil
}

func (r *SquadRepository) ListHoldersByPlayer(_ context.Context, playerID string) ([]squad.Member, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []squad.Member
	for _, members := range r.members {
		for _, member := range members {
			if member.PlayerID == playerID {
				out = append(out, member)
			}
		}
	}

	return out, nil
}

func (r *SquadRepository) Replace(_ context.Context, item squad.Squad, members []squad.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, s := range r.items {
		if s.UserID == item.UserID && s.LeagueID == item.LeagueID {
			delete(r.items, id)
			delete(r.members, id)
		}
	}

	r.items[item.ID] = item
	stored := make([]squad.Member, len(members))
	copy(stored, members)
	r.members[item.ID] = stored

	return nil
}

func (r *SquadRepository) UpdateName(_ context.Context, squadID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.items[squadID]
	if !ok {
		return nil
	}
	s.Name = name
	r.items[squadID] = s

	return nil
}

func (r *SquadRepository) SetLineup(_ context.Context, squadID string, members []squad.Member) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	submitted := make(map[string]squad.Member, len(members))
	for _, member := range members {
		submitted[member.PlayerID] = member
	}

	current := r.members[squadID]
	for idx := range current {
		member, ok := submitted[current[idx].PlayerID]
		if !ok {
			current[idx].IsStarting = false
			current[idx].BenchOrder = 0
			current[idx].IsCaptain = false
			current[idx].IsViceCaptain = false
			continue
		}
		current[idx].IsStarting = member.IsStarting
		current[idx].BenchOrder = member.BenchOrder
		current[idx].IsCaptain = member.IsCaptain
		current[idx].IsViceCaptain = member.IsViceCaptain
	}

	return nil
}

func (r *SquadRepository) ApplyTransfer(ctx context.Context, app squad.TransferApplication) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.items[app.SquadID]
	if !ok {
		return squad.ErrStaleSquad
	}
	if s.BudgetRemaining != app.ExpectedBudget ||
		s.FreeTransfersRemaining != app.ExpectedFreeTransfers {
		return squad.ErrStaleSquad
	}

	members := r.members[app.SquadID]
	swapped := false
	for idx := range members {
		if members[idx].PlayerID == app.PlayerOutID {
			members[idx] = squad.Member{
				SquadID:  app.SquadID,
				PlayerID: app.PlayerInID,
			}
			swapped = true
			break
		}
	}
	if !swapped {
		return squad.ErrStaleSquad
	}

	s.BudgetRemaining = app.NewBudget
	if app.ConsumeFreeTransfer {
		s.FreeTransfersRemaining--
	}
	r.items[app.SquadID] = s

	if app.PenaltyPoints > 0 && app.PenaltyRoundID != "" {
		if err := r.points.AddPenalty(ctx, app.SquadID, app.PenaltyRoundID, -app.PenaltyPoints); err != nil {
			return err
		}
	}

	return nil
}

func (r *SquadRepository) ActivateWildcard(_ context.Context, squadID, roundID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.items[squadID]
	if !ok || s.WildcardUsed {
		return squad.ErrStaleSquad
	}
	s.WildcardUsed = true
	s.WildcardRoundID = roundID
	r.items[squadID] = s

	return nil
}
