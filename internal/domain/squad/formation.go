package squad

import (
	"fmt"
	"sort"

	"github.com/wcfantasy/backend/internal/domain/player"
)

// Formation maps position to starter count. GK is always 1 and outfield
// counts sum to 10.
type Formation map[player.Position]int

const DefaultFormationName = "4-4-2"

var formationsByName = map[string]Formation{
	"4-4-2": {player.PositionGoalkeeper: 1, player.PositionDefender: 4, player.PositionMidfielder: 4, player.PositionForward: 2},
	"4-3-3": {player.PositionGoalkeeper: 1, player.PositionDefender: 4, player.PositionMidfielder: 3, player.PositionForward: 3},
	"3-5-2": {player.PositionGoalkeeper: 1, player.PositionDefender: 3, player.PositionMidfielder: 5, player.PositionForward: 2},
	"5-3-2": {player.PositionGoalkeeper: 1, player.PositionDefender: 5, player.PositionMidfielder: 3, player.PositionForward: 2},
	"3-4-3": {player.PositionGoalkeeper: 1, player.PositionDefender: 3, player.PositionMidfielder: 4, player.PositionForward: 3},
	"5-4-1": {player.PositionGoalkeeper: 1, player.PositionDefender: 5, player.PositionMidfielder: 4, player.PositionForward: 1},
	"4-5-1": {player.PositionGoalkeeper: 1, player.PositionDefender: 4, player.PositionMidfielder: 5, player.PositionForward: 1},
}

// FormationByName resolves a named formation; empty name falls back to the
// default 4-4-2.
func FormationByName(name string) (Formation, error) {
	if name == "" {
		name = DefaultFormationName
	}
	formation, ok := formationsByName[name]
	if !ok {
		return nil, fmt.Errorf("unknown formation %q", name)
	}
	return formation, nil
}

// AutoLineup builds the deterministic default lineup for a fresh roster:
// rank each position group by price descending, fill starter slots per the
// formation, bench the rest in fill order. Captain is the priciest starting
// forward, vice-captain the priciest starting midfielder.
func AutoLineup(squadID string, picks []Pick, formation Formation) []Member {
	byPosition := make(map[player.Position][]Pick, 4)
	for _, pick := range picks {
		byPosition[pick.Position] = append(byPosition[pick.Position], pick)
	}
	for pos := range byPosition {
		group := byPosition[pos]
		sort.SliceStable(group, func(i, j int) bool {
			if group[i].Price != group[j].Price {
				return group[i].Price > group[j].Price
			}
			return group[i].PlayerID < group[j].PlayerID
		})
	}

	positionOrder := []player.Position{
		player.PositionGoalkeeper,
		player.PositionDefender,
		player.PositionMidfielder,
		player.PositionForward,
	}

	members := make([]Member, 0, len(picks))
	var bench []Pick
	var captainID, viceCaptainID string

	for _, pos := range positionOrder {
		group := byPosition[pos]
		starterCount := formation[pos]
		for idx, pick := range group {
			if idx < starterCount {
				members = append(members, Member{
					SquadID:    squadID,
					PlayerID:   pick.PlayerID,
					IsStarting: true,
				})
				if pos == player.PositionForward && captainID == "" {
					captainID = pick.PlayerID
				}
				if pos == player.PositionMidfielder && viceCaptainID == "" {
					viceCaptainID = pick.PlayerID
				}
				continue
			}
			bench = append(bench, pick)
		}
	}

	for order, pick := range bench {
		members = append(members, Member{
			SquadID:    squadID,
			PlayerID:   pick.PlayerID,
			BenchOrder: order + 1,
		})
	}

	for idx := range members {
		if members[idx].PlayerID == captainID {
			members[idx].IsCaptain = true
		}
		if members[idx].PlayerID == viceCaptainID {
			members[idx].IsViceCaptain = true
		}
	}

	return members
}
