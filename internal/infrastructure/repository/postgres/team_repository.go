package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/wcfantasy/backend/internal/domain/team"
	qb "github.com/wcfantasy/backend/internal/platform/querybuilder"
)

type teamTableModel struct {
	ID          string    `db:"id"`
	ExternalRef string    `db:"external_ref"`
	Name        string    `db:"name"`
	CountryCode string    `db:"country_code"`
	GroupName   string    `db:"group_name"`
	FlagURL     string    `db:"flag_url"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (m teamTableModel) toDomain() team.Team {
	return team.Team{
		ID:          m.ID,
		ExternalRef: m.ExternalRef,
		Name:        m.Name,
		CountryCode: m.CountryCode,
		GroupName:   m.GroupName,
		FlagURL:     m.FlagURL,
	}
}

type TeamRepository struct {
	db *sqlx.DB
}

func NewTeamRepository(db *sqlx.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

func (r *TeamRepository) List(ctx context.Context) ([]team.Team, error) {
	query, args, err := qb.Select("*").From("teams").OrderBy("name").ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select teams query: %w", err)
	}

	var rows []teamTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select teams: %w", err)
	}

	out := make([]team.Team, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}

	return out, nil
}

func (r *TeamRepository) GetByID(ctx context.Context, teamID string) (team.Team, bool, error) {
	return r.getOne(ctx, qb.Eq("id", teamID))
}

func (r *TeamRepository) GetByExternalRef(ctx context.Context, externalRef string) (team.Team, bool, error) {
	return r.getOne(ctx, qb.Eq("external_ref", externalRef))
}

func (r *TeamRepository) getOne(ctx context.Context, cond qb.Condition) (team.Team, bool, error) {
	query, args, err := qb.Select("*").From("teams").Where(cond).ToSQL()
	if err != nil {
		return team.Team{}, false, fmt.Errorf("build select team query: %w", err)
	}

	var row teamTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return team.Team{}, false, nil
		}
		return team.Team{}, false, fmt.Errorf("get team: %w", err)
	}

	return row.toDomain(), true, nil
}

func (r *TeamRepository) Upsert(ctx context.Context, item team.Team) error {
	const query = `
INSERT INTO teams (id, external_ref, name, country_code, group_name, flag_url)
VALUES (:id, :external_ref, :name, :country_code, :group_name, :flag_url)
ON CONFLICT (external_ref)
DO UPDATE SET
    name = EXCLUDED.name,
    country_code = EXCLUDED.country_code,
    flag_url = EXCLUDED.flag_url,
    updated_at = NOW()`

	args := map[string]any{
		"id":           item.ID,
		"external_ref": item.ExternalRef,
		"name":         item.Name,
		"country_code": item.CountryCode,
		"group_name":   item.GroupName,
		"flag_url":     item.FlagURL,
	}
	if _, err := r.db.NamedExecContext(ctx, query, args); err != nil {
		return fmt.Errorf("upsert team: %w", err)
	}

	return nil
}

func (r *TeamRepository) UpdateGroup(ctx context.Context, teamID, groupName string) error {
	query, args, err := qb.Update("teams").
		Set("group_name", groupName).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("id", teamID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update team group query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update team group: %w", err)
	}

	return nil
}
