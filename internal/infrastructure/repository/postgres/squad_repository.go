package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/wcfantasy/backend/internal/domain/squad"
	qb "github.com/wcfantasy/backend/internal/platform/querybuilder"
)

type squadTableModel struct {
	ID                     string    `db:"id"`
	UserID                 string    `db:"user_id"`
	LeagueID               string    `db:"league_id"`
	Name                   string    `db:"name"`
	BudgetRemaining        int64     `db:"budget_remaining"`
	FreeTransfersRemaining int       `db:"free_transfers_remaining"`
	WildcardUsed           bool      `db:"wildcard_used"`
	WildcardRoundID        string    `db:"wildcard_round_id"`
	CreatedAt              time.Time `db:"created_at"`
	UpdatedAt              time.Time `db:"updated_at"`
}

func (m squadTableModel) toDomain() squad.Squad {
	return squad.Squad{
		ID:                     m.ID,
		UserID:                 m.UserID,
		LeagueID:               m.LeagueID,
		Name:                   m.Name,
		BudgetRemaining:        m.BudgetRemaining,
		FreeTransfersRemaining: m.FreeTransfersRemaining,
		WildcardUsed:           m.WildcardUsed,
		WildcardRoundID:        m.WildcardRoundID,
		CreatedAt:              m.CreatedAt,
		UpdatedAt:              m.UpdatedAt,
	}
}

type squadMemberTableModel struct {
	SquadID       string `db:"squad_id"`
	PlayerID      string `db:"player_id"`
	IsStarting    bool   `db:"is_starting"`
	BenchOrder    int    `db:"bench_order"`
	IsCaptain     bool   `db:"is_captain"`
	IsViceCaptain bool   `db:"is_vice_captain"`
}

func (m squadMemberTableModel) toDomain() squad.Member {
	return squad.Member{
		SquadID:       m.SquadID,
		PlayerID:      m.PlayerID,
		IsStarting:    m.IsStarting,
		BenchOrder:    m.BenchOrder,
		IsCaptain:     m.IsCaptain,
		IsViceCaptain: m.IsViceCaptain,
	}
}

type SquadRepository struct {
	db *sqlx.DB
}

func NewSquadRepository(db *sqlx.DB) *SquadRepository {
	return &SquadRepository{db: db}
}

func (r *SquadRepository) GetByID(ctx context.Context, squadID string) (squad.Squad, bool, error) {
	return r.getOne(ctx, qb.Eq("id", squadID))
}

func (r *SquadRepository) GetByUserAndLeague(ctx context.Context, userID, leagueID string) (squad.Squad, bool, error) {
	query, args, err := qb.Select("*").From("squads").
		Where(qb.Eq("user_id", userID), qb.Eq("league_id", leagueID)).
		ToSQL()
	if err != nil {
		return squad.Squad{}, false, fmt.Errorf("build select squad query: %w", err)
	}

	var row squadTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return squad.Squad{}, false, nil
		}
		return squad.Squad{}, false, fmt.Errorf("get squad: %w", err)
	}

	return row.toDomain(), true, nil
}

func (r *SquadRepository) ListMembers(ctx context.Context, squadID string) ([]squad.Member, error) {
	query, args, err := qb.Select("*").From("squad_players").
		Where(qb.Eq("squad_id", squadID)).
		OrderBy("player_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select squad members query: %w", err)
	}

	var rows []squadMemberTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select squad members: %w", err)
	}

	out := make([]squad.Member, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}

	return out, nil
}

func (r *SquadRepository) ListHoldersByPlayer(ctx context.Context, playerID string) ([]squad.Member, error) {
	query, args, err := qb.Select("*").From("squad_players").
		Where(qb.Eq("player_id", playerID)).
		OrderBy("squad_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select holders query: %w", err)
	}

	var rows []squadMemberTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select squads holding player: %w", err)
	}

	out := make([]squad.Member, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}

	return out, nil
}

func (r *SquadRepository) Replace(ctx context.Context, item squad.Squad, members []squad.Member) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx for squad replace: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const deleteMembersQuery = `
DELETE FROM squad_players
WHERE squad_id IN (SELECT id FROM squads WHERE user_id = $1 AND league_id = $2)`
	if _, err := tx.ExecContext(ctx, deleteMembersQuery, item.UserID, item.LeagueID); err != nil {
		return fmt.Errorf("delete previous squad members: %w", err)
	}

	const deleteSquadQuery = `DELETE FROM squads WHERE user_id = $1 AND league_id = $2`
	if _, err := tx.ExecContext(ctx, deleteSquadQuery, item.UserID, item.LeagueID); err != nil {
		return fmt.Errorf("delete previous squad: %w", err)
	}

	const insertSquadQuery = `
INSERT INTO squads (id, user_id, league_id, name, budget_remaining, free_transfers_remaining, wildcard_used, wildcard_round_id)
VALUES (:id, :user_id, :league_id, :name, :budget_remaining, :free_transfers_remaining, :wildcard_used, :wildcard_round_id)`
	squadArgs := map[string]any{
		"id":                       item.ID,
		"user_id":                  item.UserID,
		"league_id":                item.LeagueID,
		"name":                     item.Name,
		"budget_remaining":         item.BudgetRemaining,
		"free_transfers_remaining": item.FreeTransfersRemaining,
		"wildcard_used":            item.WildcardUsed,
		"wildcard_round_id":        item.WildcardRoundID,
	}
	if _, err := tx.NamedExecContext(ctx, insertSquadQuery, squadArgs); err != nil {
		return fmt.Errorf("insert squad: %w", err)
	}

	if err := insertMembers(ctx, tx, members); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit squad replace: %w", err)
	}

	return nil
}

func (r *SquadRepository) UpdateName(ctx context.Context, squadID, name string) error {
	query, args, err := qb.Update("squads").
		Set("name", name).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("id", squadID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update squad name query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update squad name: %w", err)
	}

	return nil
}

func (r *SquadRepository) SetLineup(ctx context.Context, squadID string, members []squad.Member) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx for lineup update: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const resetQuery = `
UPDATE squad_players
SET is_starting = FALSE,
    bench_order = 0,
    is_captain = FALSE,
    is_vice_captain = FALSE
WHERE squad_id = $1`
	if _, err := tx.ExecContext(ctx, resetQuery, squadID); err != nil {
		return fmt.Errorf("reset lineup flags: %w", err)
	}

	const applyQuery = `
UPDATE squad_players
SET is_starting = $1,
    bench_order = $2,
    is_captain = $3,
    is_vice_captain = $4
WHERE squad_id = $5
  AND player_id = $6`
	for _, member := range members {
		if _, err := tx.ExecContext(ctx, applyQuery,
			member.IsStarting, member.BenchOrder, member.IsCaptain, member.IsViceCaptain,
			squadID, member.PlayerID,
		); err != nil {
			return fmt.Errorf("apply lineup flags for player %s: %w", member.PlayerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit lineup update: %w", err)
	}

	return nil
}

// ApplyTransfer holds the squad row lock for the whole mutation. The
// snapshot guards catch a concurrent transfer that slipped in between the
// caller's read and this lock: the loser returns squad.ErrStaleSquad and
// the caller re-runs its decision against fresh state.
func (r *SquadRepository) ApplyTransfer(ctx context.Context, app squad.TransferApplication) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx for transfer: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const lockQuery = `
SELECT budget_remaining, free_transfers_remaining
FROM squads
WHERE id = $1
FOR UPDATE`
	var current struct {
		BudgetRemaining        int64 `db:"budget_remaining"`
		FreeTransfersRemaining int   `db:"free_transfers_remaining"`
	}
	if err := tx.GetContext(ctx, &current, lockQuery, app.SquadID); err != nil {
		return fmt.Errorf("lock squad row: %w", err)
	}
	if current.BudgetRemaining != app.ExpectedBudget ||
		current.FreeTransfersRemaining != app.ExpectedFreeTransfers {
		return squad.ErrStaleSquad
	}

	const swapQuery = `
UPDATE squad_players
SET player_id = $1,
    is_starting = FALSE,
    bench_order = 0,
    is_captain = FALSE,
    is_vice_captain = FALSE
WHERE squad_id = $2
  AND player_id = $3`
	result, err := tx.ExecContext(ctx, swapQuery, app.PlayerInID, app.SquadID, app.PlayerOutID)
	if err != nil {
		return fmt.Errorf("swap squad player: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("read swap result: %w", err)
	}
	if affected == 0 {
		return squad.ErrStaleSquad
	}

	freeTransfers := current.FreeTransfersRemaining
	if app.ConsumeFreeTransfer {
		freeTransfers--
	}
	const updateSquadQuery = `
UPDATE squads
SET budget_remaining = $1,
    free_transfers_remaining = $2,
    updated_at = NOW()
WHERE id = $3`
	if _, err := tx.ExecContext(ctx, updateSquadQuery, app.NewBudget, freeTransfers, app.SquadID); err != nil {
		return fmt.Errorf("update squad economy: %w", err)
	}

	if app.PenaltyPoints > 0 && app.PenaltyRoundID != "" {
		const penaltyQuery = `
INSERT INTO squad_round_points (squad_id, round_id, points)
VALUES ($1, $2, $3)
ON CONFLICT (squad_id, round_id)
DO UPDATE SET
    points = squad_round_points.points + EXCLUDED.points,
    updated_at = NOW()`
		if _, err := tx.ExecContext(ctx, penaltyQuery, app.SquadID, app.PenaltyRoundID, -app.PenaltyPoints); err != nil {
			return fmt.Errorf("apply transfer penalty: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transfer: %w", err)
	}

	return nil
}

func (r *SquadRepository) ActivateWildcard(ctx context.Context, squadID, roundID string) error {
	const query = `
UPDATE squads
SET wildcard_used = TRUE,
    wildcard_round_id = $1,
    updated_at = NOW()
WHERE id = $2
  AND wildcard_used = FALSE`

	result, err := r.db.ExecContext(ctx, query, roundID, squadID)
	if err != nil {
		return fmt.Errorf("activate wildcard: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("read wildcard activation result: %w", err)
	}
	if affected == 0 {
		return squad.ErrStaleSquad
	}

	return nil
}

func (r *SquadRepository) getOne(ctx context.Context, cond qb.Condition) (squad.Squad, bool, error) {
	query, args, err := qb.Select("*").From("squads").Where(cond).ToSQL()
	if err != nil {
		return squad.Squad{}, false, fmt.Errorf("build select squad query: %w", err)
	}

	var row squadTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return squad.Squad{}, false, nil
		}
		return squad.Squad{}, false, fmt.Errorf("get squad: %w", err)
	}

	return row.toDomain(), true, nil
}

func insertMembers(ctx context.Context, tx *sqlx.Tx, members []squad.Member) error {
	const query = `
INSERT INTO squad_players (squad_id, player_id, is_starting, bench_order, is_captain, is_vice_captain)
VALUES (:squad_id, :player_id, :is_starting, :bench_order, :is_captain, :is_vice_captain)`

	for _, member := range members {
		args := map[string]any{
			"squad_id":        member.SquadID,
			"player_id":       member.PlayerID,
			"is_starting":     member.IsStarting,
			"bench_order":     member.BenchOrder,
			"is_captain":      member.IsCaptain,
			"is_vice_captain": member.IsViceCaptain,
		}
		if _, err := tx.NamedExecContext(ctx, query, args); err != nil {
			return fmt.Errorf("insert squad member %s: %w", member.PlayerID, err)
		}
	}

	return nil
}
