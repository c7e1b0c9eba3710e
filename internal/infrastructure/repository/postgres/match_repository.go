package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/wcfantasy/backend/internal/domain/match"
	qb "github.com/wcfantasy/backend/internal/platform/querybuilder"
)

type matchTableModel struct {
	ID          string    `db:"id"`
	ExternalRef string    `db:"external_ref"`
	HomeTeamID  string    `db:"home_team_id"`
	AwayTeamID  string    `db:"away_team_id"`
	KickoffAt   time.Time `db:"kickoff_at"`
	Venue       string    `db:"venue"`
	Status      string    `db:"status"`
	HomeScore   *int      `db:"home_score"`
	AwayScore   *int      `db:"away_score"`
	RoundName   string    `db:"round_name"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (m matchTableModel) toDomain() match.Match {
	return match.Match{
		ID:          m.ID,
		ExternalRef: m.ExternalRef,
		HomeTeamID:  m.HomeTeamID,
		AwayTeamID:  m.AwayTeamID,
		KickoffAt:   m.KickoffAt,
		Venue:       m.Venue,
		Status:      match.Status(m.Status),
		HomeScore:   m.HomeScore,
		AwayScore:   m.AwayScore,
		RoundName:   m.RoundName,
	}
}

type MatchRepository struct {
	db *sqlx.DB
}

func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

func (r *MatchRepository) GetByID(ctx context.Context, matchID string) (match.Match, bool, error) {
	return r.getOne(ctx, qb.Eq("id", matchID))
}

func (r *MatchRepository) GetByExternalRef(ctx context.Context, externalRef string) (match.Match, bool, error) {
	return r.getOne(ctx, qb.Eq("external_ref", externalRef))
}

func (r *MatchRepository) List(ctx context.Context) ([]match.Match, error) {
	query, args, err := qb.Select("*").From("matches").OrderBy("kickoff_at").ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select matches query: %w", err)
	}

	return r.selectMany(ctx, query, args)
}

func (r *MatchRepository) ListByStatus(ctx context.Context, status match.Status) ([]match.Match, error) {
	query, args, err := qb.Select("*").From("matches").
		Where(qb.Eq("status", string(status))).
		OrderBy("kickoff_at").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select matches by status query: %w", err)
	}

	return r.selectMany(ctx, query, args)
}

func (r *MatchRepository) NextScheduledByTeam(ctx context.Context, teamID string, after time.Time) (match.Match, bool, error) {
	const query = `
SELECT *
FROM matches
WHERE status = $1
  AND kickoff_at > $2
  AND (home_team_id = $3 OR away_team_id = $3)
ORDER BY kickoff_at
LIMIT 1`

	var row matchTableModel
	if err := r.db.GetContext(ctx, &row, query, string(match.StatusScheduled), after, teamID); err != nil {
		if isNotFound(err) {
			return match.Match{}, false, nil
		}
		return match.Match{}, false, fmt.Errorf("get next scheduled match: %w", err)
	}

	return row.toDomain(), true, nil
}

func (r *MatchRepository) ListFinishedByTeam(ctx context.Context, teamID string) ([]match.Match, error) {
	const query = `
SELECT *
FROM matches
WHERE status = $1
  AND (home_team_id = $2 OR away_team_id = $2)
ORDER BY kickoff_at`

	var rows []matchTableModel
	if err := r.db.SelectContext(ctx, &rows, query, string(match.StatusFinished), teamID); err != nil {
		return nil, fmt.Errorf("select finished matches by team: %w", err)
	}

	out := make([]match.Match, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}

	return out, nil
}

func (r *MatchRepository) Upsert(ctx context.Context, item match.Match) error {
	const query = `
INSERT INTO matches (id, external_ref, home_team_id, away_team_id, kickoff_at, venue, status, home_score, away_score, round_name)
VALUES (:id, :external_ref, :home_team_id, :away_team_id, :kickoff_at, :venue, :status, :home_score, :away_score, :round_name)
ON CONFLICT (external_ref)
DO UPDATE SET
    home_team_id = EXCLUDED.home_team_id,
    away_team_id = EXCLUDED.away_team_id,
    kickoff_at = EXCLUDED.kickoff_at,
    venue = EXCLUDED.venue,
    status = EXCLUDED.status,
    home_score = EXCLUDED.home_score,
    away_score = EXCLUDED.away_score,
    round_name = EXCLUDED.round_name,
    updated_at = NOW()`

	args := map[string]any{
		"id":           item.ID,
		"external_ref": item.ExternalRef,
		"home_team_id": item.HomeTeamID,
		"away_team_id": item.AwayTeamID,
		"kickoff_at":   item.KickoffAt,
		"venue":        item.Venue,
		"status":       string(item.Status),
		"home_score":   item.HomeScore,
		"away_score":   item.AwayScore,
		"round_name":   item.RoundName,
	}
	if _, err := r.db.NamedExecContext(ctx, query, args); err != nil {
		return fmt.Errorf("upsert match: %w", err)
	}

	return nil
}

func (r *MatchRepository) ApplyStateUpdates(ctx context.Context, updates []match.StateUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx for match state updates: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const query = `
UPDATE matches
SET status = $1,
    home_score = COALESCE($2, home_score),
    away_score = COALESCE($3, away_score),
    updated_at = NOW()
WHERE id = $4`

	for _, update := range updates {
		if _, err := tx.ExecContext(ctx, query, string(update.Status), update.HomeScore, update.AwayScore, update.MatchID); err != nil {
			return fmt.Errorf("apply match state update %s: %w", update.MatchID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit match state updates: %w", err)
	}

	return nil
}

func (r *MatchRepository) getOne(ctx context.Context, cond qb.Condition) (match.Match, bool, error) {
	query, args, err := qb.Select("*").From("matches").Where(cond).ToSQL()
	if err != nil {
		return match.Match{}, false, fmt.Errorf("build select match query: %w", err)
	}

	var row matchTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return match.Match{}, false, nil
		}
		return match.Match{}, false, fmt.Errorf("get match: %w", err)
	}

	return row.toDomain(), true, nil
}

func (r *MatchRepository) selectMany(ctx context.Context, query string, args []any) ([]match.Match, error) {
	var rows []matchTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select matches: %w", err)
	}

	out := make([]match.Match, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}

	return out, nil
}
