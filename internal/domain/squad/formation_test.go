package squad

import (
	"testing"

	"github.com/wcfantasy/backend/internal/domain/player"
)

func TestFormationByName(t *testing.T) {
	t.Parallel()

	formation, err := FormationByName("")
	if err != nil {
		t.Fatalf("default formation: %v", err)
	}
	if formation[player.PositionDefender] != 4 || formation[player.PositionForward] != 2 {
		t.Fatalf("expected 4-4-2 default, got %v", formation)
	}

	if _, err := FormationByName("2-2-6"); err == nil {
		t.Fatalf("expected error for unknown formation")
	}

	for name, formation := range formationsByName {
		total := 0
		for _, count := range formation {
			total += count
		}
		if total != 11 {
			t.Fatalf("formation %s does not field 11 starters: %d", name, total)
		}
		if formation[player.PositionGoalkeeper] != 1 {
			t.Fatalf("formation %s must field exactly one keeper", name)
		}
	}
}

func TestAutoLineup(t *testing.T) {
	t.Parallel()

	picks := validPicks()
	// Make prices distinct so the ordering is observable. Later picks within
	// a position group get cheaper.
	for idx := range picks {
		picks[idx].Price = int64(100 - idx)
	}

	formation, err := FormationByName("4-4-2")
	if err != nil {
		t.Fatalf("formation: %v", err)
	}

	members := AutoLineup("sq-1", picks, formation)
	if len(members) != len(picks) {
		t.Fatalf("expected %d members, got %d", len(picks), len(members))
	}

	starters := 0
	benchOrders := make(map[int]bool)
	var captainID, viceID string
	for _, m := range members {
		if m.SquadID != "sq-1" {
			t.Fatalf("unexpected squad id %q", m.SquadID)
		}
		if m.IsStarting {
			starters++
			if m.BenchOrder != 0 {
				t.Fatalf("starter %s has bench order %d", m.PlayerID, m.BenchOrder)
			}
		} else {
			if m.BenchOrder < 1 || m.BenchOrder > 4 {
				t.Fatalf("bench order out of range for %s: %d", m.PlayerID, m.BenchOrder)
			}
			if benchOrders[m.BenchOrder] {
				t.Fatalf("duplicate bench order %d", m.BenchOrder)
			}
			benchOrders[m.BenchOrder] = true
		}
		if m.IsCaptain {
			if captainID != "" {
				t.Fatalf("two captains: %s and %s", captainID, m.PlayerID)
			}
			captainID = m.PlayerID
		}
		if m.IsViceCaptain {
			if viceID != "" {
				t.Fatalf("two vice-captains: %s and %s", viceID, m.PlayerID)
			}
			viceID = m.PlayerID
		}
	}

	if starters != 11 {
		t.Fatalf("expected 11 starters, got %d", starters)
	}

	// Priciest forward and midfielder are the first of their groups in
	// validPicks after the price rewrite.
	if captainID != "FWD-1" {
		t.Fatalf("expected captain FWD-1, got %q", captainID)
	}
	if viceID != "MID-1" {
		t.Fatalf("expected vice-captain MID-1, got %q", viceID)
	}

	// Cheapest keeper must sit on the bench.
	for _, m := range members {
		if m.PlayerID == "GK-2" && m.IsStarting {
			t.Fatalf("second keeper should be benched")
		}
	}
}

func TestAutoLineup_IsDeterministic(t *testing.T) {
	t.Parallel()

	picks := validPicks()
	formation, err := FormationByName("3-5-2")
	if err != nil {
		t.Fatalf("formation: %v", err)
	}

	first := AutoLineup("sq-1", picks, formation)
	second := AutoLineup("sq-1", picks, formation)
	if len(first) != len(second) {
		t.Fatalf("lineup lengths differ: %d vs %d", len(first), len(second))
	}
	for idx := range first {
		if first[idx] != second[idx] {
			t.Fatalf("lineup differs at %d: %+v vs %+v", idx, first[idx], second[idx])
		}
	}
}
