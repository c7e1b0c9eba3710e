package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/wcfantasy/backend/internal/domain/player"
	qb "github.com/wcfantasy/backend/internal/platform/querybuilder"
)

type playerTableModel struct {
	ID          string    `db:"id"`
	ExternalRef string    `db:"external_ref"`
	TeamID      string    `db:"team_id"`
	Name        string    `db:"name"`
	Position    string    `db:"position"`
	Price       int64     `db:"price"`
	Active      bool      `db:"active"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (m playerTableModel) toDomain() player.Player {
	return player.Player{
		ID:          m.ID,
		ExternalRef: m.ExternalRef,
		TeamID:      m.TeamID,
		Name:        m.Name,
		Position:    player.Position(m.Position),
		Price:       m.Price,
		Active:      m.Active,
	}
}

type PlayerRepository struct {
	db *sqlx.DB
}

func NewPlayerRepository(db *sqlx.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

func (r *PlayerRepository) List(ctx context.Context) ([]player.Player, error) {
	query, args, err := qb.Select("*").From("players").OrderBy("name").ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select players query: %w", err)
	}

	return r.selectMany(ctx, query, args)
}

func (r *PlayerRepository) ListByTeam(ctx context.Context, teamID string) ([]player.Player, error) {
	query, args, err := qb.Select("*").From("players").
		Where(qb.Eq("team_id", teamID)).
		OrderBy("position", "name").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select players by team query: %w", err)
	}

	return r.selectMany(ctx, query, args)
}

func (r *PlayerRepository) GetByID(ctx context.Context, playerID string) (player.Player, bool, error) {
	return r.getOne(ctx, qb.Eq("id", playerID))
}

func (r *PlayerRepository) GetByIDs(ctx context.Context, playerIDs []string) ([]player.Player, error) {
	if len(playerIDs) == 0 {
		return nil, nil
	}

	values := make([]any, 0, len(playerIDs))
	for _, id := range playerIDs {
		values = append(values, id)
	}
	query, args, err := qb.Select("*").From("players").
		Where(qb.In("id", values)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select players by ids query: %w", err)
	}

	return r.selectMany(ctx, query, args)
}

func (r *PlayerRepository) GetByExternalRef(ctx context.Context, externalRef string) (player.Player, bool, error) {
	return r.getOne(ctx, qb.Eq("external_ref", externalRef))
}

func (r *PlayerRepository) Upsert(ctx context.Context, item player.Player) error {
	const query = `
INSERT INTO players (id, external_ref, team_id, name, position, price, active)
VALUES (:id, :external_ref, :team_id, :name, :position, :price, :active)
ON CONFLICT (external_ref)
DO UPDATE SET
    team_id = EXCLUDED.team_id,
    name = EXCLUDED.name,
    position = EXCLUDED.position,
    price = EXCLUDED.price,
    active = EXCLUDED.active,
    updated_at = NOW()`

	args := map[string]any{
		"id":           item.ID,
		"external_ref": item.ExternalRef,
		"team_id":      item.TeamID,
		"name":         item.Name,
		"position":     string(item.Position),
		"price":        item.Price,
		"active":       item.Active,
	}
	if _, err := r.db.NamedExecContext(ctx, query, args); err != nil {
		return fmt.Errorf("upsert player: %w", err)
	}

	return nil
}

func (r *PlayerRepository) getOne(ctx context.Context, cond qb.Condition) (player.Player, bool, error) {
	query, args, err := qb.Select("*").From("players").Where(cond).ToSQL()
	if err != nil {
		return player.Player{}, false, fmt.Errorf("build select player query: %w", err)
	}

	var row playerTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return player.Player{}, false, nil
		}
		return player.Player{}, false, fmt.Errorf("get player: %w", err)
	}

	return row.toDomain(), true, nil
}

func (r *PlayerRepository) selectMany(ctx context.Context, query string, args []any) ([]player.Player, error) {
	var rows []playerTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select players: %w", err)
	}

	out := make([]player.Player, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}

	return out, nil
}
