package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/wcfantasy/backend/internal/domain/round"
	qb "github.com/wcfantasy/backend/internal/platform/querybuilder"
)

type roundTableModel struct {
	ID         string    `db:"id"`
	Name       string    `db:"name"`
	StartAt    time.Time `db:"start_at"`
	DeadlineAt time.Time `db:"deadline_at"`
	EndAt      time.Time `db:"end_at"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (m roundTableModel) toDomain() round.Round {
	return round.Round{
		ID:         m.ID,
		Name:       m.Name,
		StartAt:    m.StartAt,
		DeadlineAt: m.DeadlineAt,
		EndAt:      m.EndAt,
	}
}

type RoundRepository struct {
	db *sqlx.DB
}

func NewRoundRepository(db *sqlx.DB) *RoundRepository {
	return &RoundRepository{db: db}
}

func (r *RoundRepository) GetByID(ctx context.Context, roundID string) (round.Round, bool, error) {
	query, args, err := qb.Select("*").From("rounds").Where(qb.Eq("id", roundID)).ToSQL()
	if err != nil {
		return round.Round{}, false, fmt.Errorf("build select round query: %w", err)
	}

	return r.getOne(ctx, query, args)
}

func (r *RoundRepository) CurrentAt(ctx context.Context, at time.Time) (round.Round, bool, error) {
	const query = `
SELECT *
FROM rounds
WHERE start_at <= $1
  AND end_at >= $1
ORDER BY start_at
LIMIT 1`

	return r.getOne(ctx, query, []any{at})
}

func (r *RoundRepository) GetByMatch(ctx context.Context, matchID string) (round.Round, bool, error) {
	const query = `
SELECT r.*
FROM rounds r
JOIN round_matches rm ON rm.round_id = r.id
WHERE rm.match_id = $1
ORDER BY r.start_at
LIMIT 1`

	return r.getOne(ctx, query, []any{matchID})
}

func (r *RoundRepository) List(ctx context.Context) ([]round.Round, error) {
	query, args, err := qb.Select("*").From("rounds").OrderBy("start_at").ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select rounds query: %w", err)
	}

	var rows []roundTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select rounds: %w", err)
	}

	out := make([]round.Round, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}

	return out, nil
}

func (r *RoundRepository) Upsert(ctx context.Context, item round.Round) error {
	const query = `
INSERT INTO rounds (id, name, start_at, deadline_at, end_at)
VALUES (:id, :name, :start_at, :deadline_at, :end_at)
ON CONFLICT (id)
DO UPDATE SET
    name = EXCLUDED.name,
    start_at = EXCLUDED.start_at,
    deadline_at = EXCLUDED.deadline_at,
    end_at = EXCLUDED.end_at,
    updated_at = NOW()`

	args := map[string]any{
		"id":          item.ID,
		"name":        item.Name,
		"start_at":    item.StartAt,
		"deadline_at": item.DeadlineAt,
		"end_at":      item.EndAt,
	}
	if _, err := r.db.NamedExecContext(ctx, query, args); err != nil {
		return fmt.Errorf("upsert round: %w", err)
	}

	return nil
}

func (r *RoundRepository) LinkMatch(ctx context.Context, roundID, matchID string) error {
	const query = `
INSERT INTO round_matches (round_id, match_id)
VALUES ($1, $2)
ON CONFLICT (round_id, match_id) DO NOTHING`

	if _, err := r.db.ExecContext(ctx, query, roundID, matchID); err != nil {
		return fmt.Errorf("link match to round: %w", err)
	}

	return nil
}

func (r *RoundRepository) getOne(ctx context.Context, query string, args []any) (round.Round, bool, error) {
	var row roundTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return round.Round{}, false, nil
		}
		return round.Round{}, false, fmt.Errorf("get round: %w", err)
	}

	return row.toDomain(), true, nil
}
