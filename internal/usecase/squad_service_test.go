package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/wcfantasy/backend/internal/domain/league"
	"github.com/wcfantasy/backend/internal/domain/player"
	"github.com/wcfantasy/backend/internal/domain/squad"
	"github.com/wcfantasy/backend/internal/infrastructure/repository/memory"
	idgen "github.com/wcfantasy/backend/internal/platform/id"
	"github.com/wcfantasy/backend/internal/platform/logging"
)

// testPlayerPool builds a legal pool: per team one GK, two DEF, two MID and
// one FWD, so a 15-player roster can be drawn without tripping the team cap.
func testPlayerPool(teams int) []player.Player {
	layout := []player.Position{
		player.PositionGoalkeeper,
		player.PositionDefender,
		player.PositionDefender,
		player.PositionMidfielder,
		player.PositionMidfielder,
		player.PositionForward,
	}

	var pool []player.Player
	for t := 0; t < teams; t++ {
		for slot, pos := range layout {
			pool = append(pool, player.Player{
				ID:       fmt.Sprintf("p-%d-%d", t, slot),
				TeamID:   fmt.Sprintf("team-%d", t),
				Name:     fmt.Sprintf("Player %d-%d", t, slot),
				Position: pos,
				Price:    55,
				Active:   true,
			})
		}
	}
	return pool
}

// rosterIDs picks player ids matching the default quota from the pool.
func rosterIDs(pool []player.Player) []string {
	need := map[player.Position]int{
		player.PositionGoalkeeper: 2,
		player.PositionDefender:   5,
		player.PositionMidfielder: 5,
		player.PositionForward:    3,
	}
	perTeam := make(map[string]int)

	var ids []string
	for _, p := range pool {
		if need[p.Position] == 0 || perTeam[p.TeamID] == 2 {
			continue
		}
		need[p.Position]--
		perTeam[p.TeamID]++
		ids = append(ids, p.ID)
		if len(ids) == 15 {
			break
		}
	}
	return ids
}

func newSquadServiceForTest(t *testing.T, pool []player.Player) (*SquadService, *memory.SquadRepository) {
	t.Helper()

	squadRepo := memory.NewSquadRepository(memory.NewRoundPointsRepository())
	service := NewSquadService(
		memory.NewLeagueRepository([]league.League{{ID: "wc-2026", Name: "World Cup 2026"}}),
		memory.NewPlayerRepository(pool),
		squadRepo,
		squad.DefaultRules(),
		idgen.NewSequenceGenerator("generated"),
		logging.NewNop(),
	)
	return service, squadRepo
}

func TestSquadService_CreateSquad(t *testing.T) {
	t.Parallel()

	pool := testPlayerPool(10)
	service, squadRepo := newSquadServiceForTest(t, pool)

	created, err := service.CreateSquad(context.Background(), CreateSquadInput{
		UserID:    "user-1",
		LeagueID:  "wc-2026",
		TeamName:  "Los Galacticos",
		PlayerIDs: rosterIDs(pool),
	})
	if err != nil {
		t.Fatalf("CreateSquad error: %v", err)
	}

	if created.Name != "Los Galacticos" {
		t.Fatalf("unexpected squad name: %q", created.Name)
	}
	if created.BudgetRemaining != 1000-15*55 {
		t.Fatalf("unexpected budget remaining: %d", created.BudgetRemaining)
	}
	if created.FreeTransfersRemaining != 1 {
		t.Fatalf("expected 1 free transfer, got %d", created.FreeTransfersRemaining)
	}

	members, err := squadRepo.ListMembers(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 15 {
		t.Fatalf("expected 15 members, got %d", len(members))
	}

	starters := 0
	captains := 0
	for _, m := range members {
		if m.IsStarting {
			starters++
		}
		if m.IsCaptain {
			captains++
		}
	}
	if starters != 11 {
		t.Fatalf("expected 11 starters, got %d", starters)
	}
	if captains != 1 {
		t.Fatalf("expected exactly one captain, got %d", captains)
	}
}

func TestSquadService_CreateSquad_ReplacesExisting(t *testing.T) {
	t.Parallel()

	pool := testPlayerPool(10)
	service, squadRepo := newSquadServiceForTest(t, pool)

	input := CreateSquadInput{UserID: "user-1", LeagueID: "wc-2026", PlayerIDs: rosterIDs(pool)}
	first, err := service.CreateSquad(context.Background(), input)
	if err != nil {
		t.Fatalf("first CreateSquad error: %v", err)
	}
	second, err := service.CreateSquad(context.Background(), input)
	if err != nil {
		t.Fatalf("second CreateSquad error: %v", err)
	}
	if first.ID == second.ID {
		t.Fatalf("expected a fresh squad id on replace")
	}

	if _, exists, err := squadRepo.GetByID(context.Background(), first.ID); err != nil || exists {
		t.Fatalf("expected first squad to be gone, exists=%v err=%v", exists, err)
	}
	got, exists, err := squadRepo.GetByUserAndLeague(context.Background(), "user-1", "wc-2026")
	if err != nil || !exists {
		t.Fatalf("expected replacement squad, exists=%v err=%v", exists, err)
	}
	if got.ID != second.ID {
		t.Fatalf("unexpected surviving squad: %s", got.ID)
	}
}

func TestSquadService_CreateSquad_InvalidInput(t *testing.T) {
	t.Parallel()

	pool := testPlayerPool(10)
	service, _ := newSquadServiceForTest(t, pool)
	ids := rosterIDs(pool)

	tests := []struct {
		name  string
		input CreateSquadInput
	}{
		{"missing user", CreateSquadInput{LeagueID: "wc-2026", PlayerIDs: ids}},
		{"wrong roster size", CreateSquadInput{UserID: "u", LeagueID: "wc-2026", PlayerIDs: ids[:14]}},
		{"duplicate player", CreateSquadInput{UserID: "u", LeagueID: "wc-2026", PlayerIDs: append(append([]string{}, ids[:14]...), ids[0])}},
		{"unknown formation", CreateSquadInput{UserID: "u", LeagueID: "wc-2026", PlayerIDs: ids, Formation: "9-0-1"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := service.CreateSquad(context.Background(), tc.input)
			if !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestSquadService_CreateSquad_UnknownPlayer(t *testing.T) {
	t.Parallel()

	pool := testPlayerPool(10)
	service, _ := newSquadServiceForTest(t, pool)

	ids := rosterIDs(pool)
	ids[14] = "ghost"
	_, err := service.CreateSquad(context.Background(), CreateSquadInput{
		UserID:    "user-1",
		LeagueID:  "wc-2026",
		PlayerIDs: ids,
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown player, got %v", err)
	}
}

func TestSquadService_CreateSquad_UnknownLeague(t *testing.T) {
	t.Parallel()

	pool := testPlayerPool(10)
	service, _ := newSquadServiceForTest(t, pool)

	_, err := service.CreateSquad(context.Background(), CreateSquadInput{
		UserID:    "user-1",
		LeagueID:  "nope",
		PlayerIDs: rosterIDs(pool),
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSquadService_CreateSquad_AutoCreatesDefaultLeague(t *testing.T) {
	t.Parallel()

	pool := testPlayerPool(10)
	leagueRepo := memory.NewLeagueRepository(nil)
	service := NewSquadService(
		leagueRepo,
		memory.NewPlayerRepository(pool),
		memory.NewSquadRepository(memory.NewRoundPointsRepository()),
		squad.DefaultRules(),
		idgen.NewSequenceGenerator("generated"),
		logging.NewNop(),
	)

	_, err := service.CreateSquad(context.Background(), CreateSquadInput{
		UserID:    "user-1",
		LeagueID:  league.DefaultLeagueID,
		PlayerIDs: rosterIDs(pool),
	})
	if err != nil {
		t.Fatalf("CreateSquad error: %v", err)
	}

	if _, exists, err := leagueRepo.GetByID(context.Background(), league.DefaultLeagueID); err != nil || !exists {
		t.Fatalf("expected default league to be created, exists=%v err=%v", exists, err)
	}
}

func TestSquadService_GetUserSquad_NotFound(t *testing.T) {
	t.Parallel()

	service, _ := newSquadServiceForTest(t, testPlayerPool(10))
	_, _, err := service.GetUserSquad(context.Background(), "user-1", "wc-2026")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSquadService_UpdateTeamName(t *testing.T) {
	t.Parallel()

	pool := testPlayerPool(10)
	service, squadRepo := newSquadServiceForTest(t, pool)

	created, err := service.CreateSquad(context.Background(), CreateSquadInput{
		UserID:    "user-1",
		LeagueID:  "wc-2026",
		PlayerIDs: rosterIDs(pool),
	})
	if err != nil {
		t.Fatalf("CreateSquad error: %v", err)
	}

	if err := service.UpdateTeamName(context.Background(), created.ID, "The Underdogs"); err != nil {
		t.Fatalf("UpdateTeamName error: %v", err)
	}
	got, _, err := squadRepo.GetByID(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("get squad: %v", err)
	}
	if got.Name != "The Underdogs" {
		t.Fatalf("unexpected name: %q", got.Name)
	}

	if err := service.UpdateTeamName(context.Background(), "missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSquadService_UpdateLineup(t *testing.T) {
	t.Parallel()

	pool := testPlayerPool(10)
	service, squadRepo := newSquadServiceForTest(t, pool)

	created, err := service.CreateSquad(context.Background(), CreateSquadInput{
		UserID:    "user-1",
		LeagueID:  "wc-2026",
		PlayerIDs: rosterIDs(pool),
	})
	if err != nil {
		t.Fatalf("CreateSquad error: %v", err)
	}

	members, err := squadRepo.ListMembers(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}

	// Resubmit the auto lineup with captain and vice swapped onto two
	// different starters.
	posByID := playerPositions(pool)
	slots := make([]LineupSlot, 0, len(members))
	var newCaptain, newVice string
	for _, m := range members {
		slot := LineupSlot{
			PlayerID:   m.PlayerID,
			IsStarting: m.IsStarting,
			BenchOrder: m.BenchOrder,
		}
		if m.IsStarting && posByID[m.PlayerID] == player.PositionDefender && newCaptain == "" {
			slot.IsCaptain = true
			newCaptain = m.PlayerID
		} else if m.IsStarting && posByID[m.PlayerID] == player.PositionMidfielder && newVice == "" {
			slot.IsViceCaptain = true
			newVice = m.PlayerID
		}
		slots = append(slots, slot)
	}

	err = service.UpdateLineup(context.Background(), UpdateLineupInput{SquadID: created.ID, Slots: slots})
	if err != nil {
		t.Fatalf("UpdateLineup error: %v", err)
	}

	updated, err := squadRepo.ListMembers(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("list members after update: %v", err)
	}
	for _, m := range updated {
		if m.IsCaptain && m.PlayerID != newCaptain {
			t.Fatalf("unexpected captain %s, want %s", m.PlayerID, newCaptain)
		}
		if m.IsViceCaptain && m.PlayerID != newVice {
			t.Fatalf("unexpected vice-captain %s, want %s", m.PlayerID, newVice)
		}
	}
}

func TestSquadService_UpdateLineup_Rejections(t *testing.T) {
	t.Parallel()

	pool := testPlayerPool(10)
	service, squadRepo := newSquadServiceForTest(t, pool)

	created, err := service.CreateSquad(context.Background(), CreateSquadInput{
		UserID:    "user-1",
		LeagueID:  "wc-2026",
		PlayerIDs: rosterIDs(pool),
	})
	if err != nil {
		t.Fatalf("CreateSquad error: %v", err)
	}
	members, err := squadRepo.ListMembers(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}

	baseSlots := func() []LineupSlot {
		slots := make([]LineupSlot, 0, len(members))
		for _, m := range members {
			slots = append(slots, LineupSlot{
				PlayerID:   m.PlayerID,
				IsStarting: m.IsStarting,
				BenchOrder: m.BenchOrder,
			})
		}
		return slots
	}

	t.Run("captain on the bench", func(t *testing.T) {
		slots := baseSlots()
		for idx := range slots {
			if !slots[idx].IsStarting {
				slots[idx].IsCaptain = true
				break
			}
		}
		err := service.UpdateLineup(context.Background(), UpdateLineupInput{SquadID: created.ID, Slots: slots})
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("wrong starter count", func(t *testing.T) {
		slots := baseSlots()
		for idx := range slots {
			if !slots[idx].IsStarting {
				slots[idx].IsStarting = true
				break
			}
		}
		err := service.UpdateLineup(context.Background(), UpdateLineupInput{SquadID: created.ID, Slots: slots})
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("player off the roster", func(t *testing.T) {
		slots := baseSlots()
		slots[0].PlayerID = "ghost"
		err := service.UpdateLineup(context.Background(), UpdateLineupInput{SquadID: created.ID, Slots: slots})
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("same captain and vice", func(t *testing.T) {
		slots := baseSlots()
		for idx := range slots {
			if slots[idx].IsStarting {
				slots[idx].IsCaptain = true
				slots[idx].IsViceCaptain = true
				break
			}
		}
		err := service.UpdateLineup(context.Background(), UpdateLineupInput{SquadID: created.ID, Slots: slots})
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func playerPositions(pool []player.Player) map[string]player.Position {
	out := make(map[string]player.Position, len(pool))
	for _, p := range pool {
		out[p.ID] = p.Position
	}
	return out
}
