package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/wcfantasy/backend/internal/domain/squad"
)

func seedSquad(t *testing.T, repo *SquadRepository) squad.Squad {
	t.Helper()

	item := squad.Squad{
		ID:                     "sq-1",
		UserID:                 "user-1",
		LeagueID:               "wc-2026",
		Name:                   "Test XI",
		BudgetRemaining:        100,
		FreeTransfersRemaining: 1,
	}
	members := []squad.Member{
		{SquadID: "sq-1", PlayerID: "p-out", IsStarting: true},
		{SquadID: "sq-1", PlayerID: "p-keep", IsStarting: true},
	}
	if err := repo.Replace(context.Background(), item, members); err != nil {
		t.Fatalf("seed squad: %v", err)
	}

	return item
}

func TestSquadRepositoryApplyTransfer_RejectsStaleSnapshot(t *testing.T) {
	t.Parallel()

	repo := NewSquadRepository(NewRoundPointsRepository())
	seedSquad(t, repo)

	err := repo.ApplyTransfer(context.Background(), squad.TransferApplication{
		SquadID:               "sq-1",
		PlayerOutID:           "p-out",
		PlayerInID:            "p-in",
		NewBudget:             90,
		ExpectedBudget:        50,
		ExpectedFreeTransfers: 1,
	})
	if !errors.Is(err, squad.ErrStaleSquad) {
		t.Fatalf("expected ErrStaleSquad for a stale budget snapshot, got %v", err)
	}

	err = repo.ApplyTransfer(context.Background(), squad.TransferApplication{
		SquadID:               "sq-1",
		PlayerOutID:           "ghost",
		PlayerInID:            "p-in",
		NewBudget:             90,
		ExpectedBudget:        100,
		ExpectedFreeTransfers: 1,
	})
	if !errors.Is(err, squad.ErrStaleSquad) {
		t.Fatalf("expected ErrStaleSquad when the outgoing player left the roster, got %v", err)
	}
}

func TestSquadRepositoryApplyTransfer_SwapsAndConsumesFreeTransfer(t *testing.T) {
	t.Parallel()

	repo := NewSquadRepository(NewRoundPointsRepository())
	seedSquad(t, repo)

	err := repo.ApplyTransfer(context.Background(), squad.TransferApplication{
		SquadID:               "sq-1",
		PlayerOutID:           "p-out",
		PlayerInID:            "p-in",
		NewBudget:             80,
		ConsumeFreeTransfer:   true,
		ExpectedBudget:        100,
		ExpectedFreeTransfers: 1,
	})
	if err != nil {
		t.Fatalf("apply transfer: %v", err)
	}

	item, exists, err := repo.GetByID(context.Background(), "sq-1")
	if err != nil || !exists {
		t.Fatalf("reload squad: exists=%v err=%v", exists, err)
	}
	if item.BudgetRemaining != 80 {
		t.Fatalf("unexpected budget: %d", item.BudgetRemaining)
	}
	if item.FreeTransfersRemaining != 0 {
		t.Fatalf("expected the free transfer consumed, got %d", item.FreeTransfersRemaining)
	}

	members, err := repo.ListMembers(context.Background(), "sq-1")
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	var sawIn, sawOut bool
	for _, member := range members {
		switch member.PlayerID {
		case "p-in":
			sawIn = true
		case "p-out":
			sawOut = true
		}
	}
	if !sawIn || sawOut {
		t.Fatalf("expected p-in to replace p-out, members=%+v", members)
	}
}

func TestSquadRepositoryApplyTransfer_RecordsPenalty(t *testing.T) {
	t.Parallel()

	pointsRepo := NewRoundPointsRepository()
	repo := NewSquadRepository(pointsRepo)
	seedSquad(t, repo)

	err := repo.ApplyTransfer(context.Background(), squad.TransferApplication{
		SquadID:               "sq-1",
		PlayerOutID:           "p-out",
		PlayerInID:            "p-in",
		NewBudget:             100,
		PenaltyPoints:         4,
		PenaltyRoundID:        "round-1",
		ExpectedBudget:        100,
		ExpectedFreeTransfers: 1,
	})
	if err != nil {
		t.Fatalf("apply transfer: %v", err)
	}

	row, exists, err := pointsRepo.GetBySquadAndRound(context.Background(), "sq-1", "round-1")
	if err != nil {
		t.Fatalf("get round points: %v", err)
	}
	if !exists || row.Points != -4 {
		t.Fatalf("expected the -4 penalty on the round total, exists=%v points=%d", exists, row.Points)
	}

	item, _, err := repo.GetByID(context.Background(), "sq-1")
	if err != nil {
		t.Fatalf("reload squad: %v", err)
	}
	if item.FreeTransfersRemaining != 1 {
		t.Fatalf("penalty transfer must not consume a free transfer, got %d", item.FreeTransfersRemaining)
	}
}

func TestSquadRepositoryReplace_DropsPreviousSquadForUser(t *testing.T) {
	t.Parallel()

	repo := NewSquadRepository(NewRoundPointsRepository())
	seedSquad(t, repo)

	fresh := squad.Squad{
		ID:                     "sq-2",
		UserID:                 "user-1",
		LeagueID:               "wc-2026",
		BudgetRemaining:        100,
		FreeTransfersRemaining: 1,
	}
	err := repo.Replace(context.Background(), fresh, []squad.Member{
		{SquadID: "sq-2", PlayerID: "p-new", IsStarting: true},
	})
	if err != nil {
		t.Fatalf("replace squad: %v", err)
	}

	if _, exists, _ := repo.GetByID(context.Background(), "sq-1"); exists {
		t.Fatalf("expected the previous squad removed")
	}
	item, exists, err := repo.GetByUserAndLeague(context.Background(), "user-1", "wc-2026")
	if err != nil || !exists {
		t.Fatalf("lookup fresh squad: exists=%v err=%v", exists, err)
	}
	if item.ID != "sq-2" {
		t.Fatalf("unexpected squad id: %s", item.ID)
	}
}

func TestSquadRepositoryActivateWildcard_SecondActivationIsStale(t *testing.T) {
	t.Parallel()

	repo := NewSquadRepository(NewRoundPointsRepository())
	seedSquad(t, repo)

	if err := repo.ActivateWildcard(context.Background(), "sq-1", "round-2"); err != nil {
		t.Fatalf("activate wildcard: %v", err)
	}
	item, _, err := repo.GetByID(context.Background(), "sq-1")
	if err != nil {
		t.Fatalf("reload squad: %v", err)
	}
	if !item.WildcardUsed || item.WildcardRoundID != "round-2" {
		t.Fatalf("unexpected wildcard state: used=%v round=%s", item.WildcardUsed, item.WildcardRoundID)
	}

	err = repo.ActivateWildcard(context.Background(), "sq-1", "round-3")
	if !errors.Is(err, squad.ErrStaleSquad) {
		t.Fatalf("expected ErrStaleSquad on a second activation, got %v", err)
	}
}
