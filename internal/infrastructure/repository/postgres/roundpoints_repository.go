package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/wcfantasy/backend/internal/domain/roundpoints"
	qb "github.com/wcfantasy/backend/internal/platform/querybuilder"
)

type roundPointsTableModel struct {
	SquadID string `db:"squad_id"`
	RoundID string `db:"round_id"`
	Points  int    `db:"points"`
}

func (m roundPointsTableModel) toDomain() roundpoints.RoundPoints {
	return roundpoints.RoundPoints{
		SquadID: m.SquadID,
		RoundID: m.RoundID,
		Points:  m.Points,
	}
}

type RoundPointsRepository struct {
	db *sqlx.DB
}

func NewRoundPointsRepository(db *sqlx.DB) *RoundPointsRepository {
	return &RoundPointsRepository{db: db}
}

func (r *RoundPointsRepository) GetBySquadAndRound(ctx context.Context, squadID, roundID string) (roundpoints.RoundPoints, bool, error) {
	query, args, err := qb.Select("squad_id", "round_id", "points").From("squad_round_points").
		Where(qb.Eq("squad_id", squadID), qb.Eq("round_id", roundID)).
		ToSQL()
	if err != nil {
		return roundpoints.RoundPoints{}, false, fmt.Errorf("build select round points query: %w", err)
	}

	var row roundPointsTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return roundpoints.RoundPoints{}, false, nil
		}
		return roundpoints.RoundPoints{}, false, fmt.Errorf("get round points: %w", err)
	}

	return row.toDomain(), true, nil
}

func (r *RoundPointsRepository) ListByRound(ctx context.Context, roundID string) ([]roundpoints.RoundPoints, error) {
	query, args, err := qb.Select("squad_id", "round_id", "points").From("squad_round_points").
		Where(qb.Eq("round_id", roundID)).
		OrderBy("points DESC", "squad_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select round standings query: %w", err)
	}

	var rows []roundPointsTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select round standings: %w", err)
	}

	out := make([]roundpoints.RoundPoints, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}

	return out, nil
}

// ApplyMatchPoints moves the round total by the difference between the new
// per-match value and whatever the ledger already recorded for the match, then
// sets the ledger row. Locking the ledger row first serializes concurrent
// re-aggregations of the same match.
func (r *RoundPointsRepository) ApplyMatchPoints(ctx context.Context, squadID, roundID, matchID string, points int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx for match points: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const insertLedgerQuery = `
INSERT INTO squad_match_points (squad_id, match_id, points)
VALUES ($1, $2, 0)
ON CONFLICT (squad_id, match_id) DO NOTHING`
	if _, err := tx.ExecContext(ctx, insertLedgerQuery, squadID, matchID); err != nil {
		return fmt.Errorf("ensure match ledger row: %w", err)
	}

	const lockLedgerQuery = `
SELECT points
FROM squad_match_points
WHERE squad_id = $1
  AND match_id = $2
FOR UPDATE`
	var applied int
	if err := tx.GetContext(ctx, &applied, lockLedgerQuery, squadID, matchID); err != nil {
		return fmt.Errorf("lock match ledger row: %w", err)
	}

	delta := points - applied
	if delta == 0 {
		return tx.Commit()
	}

	const updateLedgerQuery = `
UPDATE squad_match_points
SET points = $1,
    updated_at = NOW()
WHERE squad_id = $2
  AND match_id = $3`
	if _, err := tx.ExecContext(ctx, updateLedgerQuery, points, squadID, matchID); err != nil {
		return fmt.Errorf("update match ledger row: %w", err)
	}

	const updateTotalQuery = `
INSERT INTO squad_round_points (squad_id, round_id, points)
VALUES ($1, $2, $3)
ON CONFLICT (squad_id, round_id)
DO UPDATE SET
    points = squad_round_points.points + EXCLUDED.points,
    updated_at = NOW()`
	if _, err := tx.ExecContext(ctx, updateTotalQuery, squadID, roundID, delta); err != nil {
		return fmt.Errorf("update round total: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit match points: %w", err)
	}

	return nil
}

func (r *RoundPointsRepository) HasMatchPoints(ctx context.Context, matchID string) (bool, error) {
	const query = `
SELECT EXISTS (
    SELECT 1
    FROM squad_match_points
    WHERE match_id = $1
)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, matchID); err != nil {
		return false, fmt.Errorf("check match ledger rows: %w", err)
	}

	return exists, nil
}

func (r *RoundPointsRepository) AddPenalty(ctx context.Context, squadID, roundID string, delta int) error {
	const query = `
INSERT INTO squad_round_points (squad_id, round_id, points)
VALUES ($1, $2, $3)
ON CONFLICT (squad_id, round_id)
DO UPDATE SET
    points = squad_round_points.points + EXCLUDED.points,
    updated_at = NOW()`

	if _, err := r.db.ExecContext(ctx, query, squadID, roundID, delta); err != nil {
		return fmt.Errorf("apply round points adjustment: %w", err)
	}

	return nil
}
