package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/wcfantasy/backend/internal/domain/league"
	qb "github.com/wcfantasy/backend/internal/platform/querybuilder"
)

type leagueTableModel struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	Code      string    `db:"code"`
	OwnerID   string    `db:"owner_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

type LeagueRepository struct {
	db *sqlx.DB
}

func NewLeagueRepository(db *sqlx.DB) *LeagueRepository {
	return &LeagueRepository{db: db}
}

func (r *LeagueRepository) GetByID(ctx context.Context, leagueID string) (league.League, bool, error) {
	query, args, err := qb.Select("*").From("leagues").Where(qb.Eq("id", leagueID)).ToSQL()
	if err != nil {
		return league.League{}, false, fmt.Errorf("build select league query: %w", err)
	}

	var row leagueTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return league.League{}, false, nil
		}
		return league.League{}, false, fmt.Errorf("get league: %w", err)
	}

	return league.League{
		ID:      row.ID,
		Name:    row.Name,
		Code:    row.Code,
		OwnerID: row.OwnerID,
	}, true, nil
}

func (r *LeagueRepository) Create(ctx context.Context, item league.League) error {
	const query = `
INSERT INTO leagues (id, name, code, owner_id)
VALUES (:id, :name, :code, :owner_id)
ON CONFLICT (id) DO NOTHING`

	args := map[string]any{
		"id":       item.ID,
		"name":     item.Name,
		"code":     item.Code,
		"owner_id": item.OwnerID,
	}
	if _, err := r.db.NamedExecContext(ctx, query, args); err != nil {
		return fmt.Errorf("create league: %w", err)
	}

	return nil
}
