package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/wcfantasy/backend/internal/domain/roundpoints"
)

type roundKey struct {
	squadID string
	roundID string
}

type matchKey struct {
	squadID string
	matchID string
}

type RoundPointsRepository struct {
	mu     sync.RWMutex
	totals map[roundKey]int
	ledger map[matchKey]int
}

func NewRoundPointsRepository() *RoundPointsRepository {
	return &RoundPointsRepository{
		totals: make(map[roundKey]int),
		ledger: make(map[matchKey]int),
	}
}

func (r *RoundPointsRepository) GetBySquadAndRound(_ context.Context, squadID, roundID string) (roundpoints.RoundPoints, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	points, ok := r.totals[roundKey{squadID: squadID, roundID: roundID}]
	if !ok {
		return roundpoints.RoundPoints{}, false, nil
	}

	return roundpoints.RoundPoints{
		SquadID: squadID,
		RoundID: roundID,
		Points:  points,
	}, true, nil
}

func (r *RoundPointsRepository) ListByRound(_ context.Context, roundID string) ([]roundpoints.RoundPoints, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []roundpoints.RoundPoints
	for key, points := range r.totals {
		if key.roundID != roundID {
			continue
		}
		out = append(out, roundpoints.RoundPoints{
			SquadID: key.squadID,
			RoundID: roundID,
			Points:  points,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].SquadID < out[j].SquadID
	})

	return out, nil
}

func (r *RoundPointsRepository) ApplyMatchPoints(_ context.Context, squadID, roundID, matchID string, points int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	mk := matchKey{squadID: squadID, matchID: matchID}
	delta := points - r.ledger[mk]
	if delta == 0 {
		return nil
	}
	r.ledger[mk] = points
	r.totals[roundKey{squadID: squadID, roundID: roundID}] += delta

	return nil
}

func (r *RoundPointsRepository) HasMatchPoints(_ context.Context, matchID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for key := range r.ledger {
		if key.matchID == matchID {
			return true, nil
		}
	}

	return false, nil
}

func (r *RoundPointsRepository) AddPenalty(_ context.Context, squadID, roundID string, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.totals[roundKey{squadID: squadID, roundID: roundID}] += delta

	return nil
}
