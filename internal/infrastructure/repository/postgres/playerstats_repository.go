package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/wcfantasy/backend/internal/domain/playerstats"
	qb "github.com/wcfantasy/backend/internal/platform/querybuilder"
)

type statsTableModel struct {
	MatchID         string  `db:"match_id"`
	PlayerID        string  `db:"player_id"`
	MinutesPlayed   int     `db:"minutes_played"`
	Goals           int     `db:"goals"`
	Assists         int     `db:"assists"`
	CleanSheet      bool    `db:"clean_sheet"`
	GoalsConceded   int     `db:"goals_conceded"`
	YellowCards     int     `db:"yellow_cards"`
	RedCards        int     `db:"red_cards"`
	OwnGoals        int     `db:"own_goals"`
	PenaltiesScored int     `db:"penalties_scored"`
	PenaltiesMissed int     `db:"penalties_missed"`
	Saves           int     `db:"saves"`
	Rating          float64 `db:"rating"`
	FantasyPoints   int     `db:"fantasy_points"`
}

func (m statsTableModel) toDomain() playerstats.Stats {
	return playerstats.Stats{
		MatchID:         m.MatchID,
		PlayerID:        m.PlayerID,
		MinutesPlayed:   m.MinutesPlayed,
		Goals:           m.Goals,
		Assists:         m.Assists,
		CleanSheet:      m.CleanSheet,
		GoalsConceded:   m.GoalsConceded,
		YellowCards:     m.YellowCards,
		RedCards:        m.RedCards,
		OwnGoals:        m.OwnGoals,
		PenaltiesScored: m.PenaltiesScored,
		PenaltiesMissed: m.PenaltiesMissed,
		Saves:           m.Saves,
		Rating:          m.Rating,
		FantasyPoints:   m.FantasyPoints,
	}
}

type PlayerStatsRepository struct {
	db *sqlx.DB
}

func NewPlayerStatsRepository(db *sqlx.DB) *PlayerStatsRepository {
	return &PlayerStatsRepository{db: db}
}

func (r *PlayerStatsRepository) UpsertBatch(ctx context.Context, items []playerstats.Stats) error {
	if len(items) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx for stats upsert: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	const query = `
INSERT INTO player_match_stats (
    match_id, player_id, minutes_played, goals, assists, clean_sheet,
    goals_conceded, yellow_cards, red_cards, own_goals, penalties_scored,
    penalties_missed, saves, rating, fantasy_points
) VALUES (
    :match_id, :player_id, :minutes_played, :goals, :assists, :clean_sheet,
    :goals_conceded, :yellow_cards, :red_cards, :own_goals, :penalties_scored,
    :penalties_missed, :saves, :rating, :fantasy_points
)
ON CONFLICT (match_id, player_id)
DO UPDATE SET
    minutes_played = EXCLUDED.minutes_played,
    goals = EXCLUDED.goals,
    assists = EXCLUDED.assists,
    clean_sheet = EXCLUDED.clean_sheet,
    goals_conceded = EXCLUDED.goals_conceded,
    yellow_cards = EXCLUDED.yellow_cards,
    red_cards = EXCLUDED.red_cards,
    own_goals = EXCLUDED.own_goals,
    penalties_scored = EXCLUDED.penalties_scored,
    penalties_missed = EXCLUDED.penalties_missed,
    saves = EXCLUDED.saves,
    rating = EXCLUDED.rating,
    fantasy_points = EXCLUDED.fantasy_points,
    updated_at = NOW()`

	for _, item := range items {
		args := map[string]any{
			"match_id":         item.MatchID,
			"player_id":        item.PlayerID,
			"minutes_played":   item.MinutesPlayed,
			"goals":            item.Goals,
			"assists":          item.Assists,
			"clean_sheet":      item.CleanSheet,
			"goals_conceded":   item.GoalsConceded,
			"yellow_cards":     item.YellowCards,
			"red_cards":        item.RedCards,
			"own_goals":        item.OwnGoals,
			"penalties_scored": item.PenaltiesScored,
			"penalties_missed": item.PenaltiesMissed,
			"saves":            item.Saves,
			"rating":           item.Rating,
			"fantasy_points":   item.FantasyPoints,
		}
		if _, err := tx.NamedExecContext(ctx, query, args); err != nil {
			return fmt.Errorf("upsert stats for player %s: %w", item.PlayerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit stats upsert: %w", err)
	}

	return nil
}

func (r *PlayerStatsRepository) ListByMatch(ctx context.Context, matchID string) ([]playerstats.Stats, error) {
	query, args, err := qb.Select("*").From("player_match_stats").
		Where(qb.Eq("match_id", matchID)).
		OrderBy("player_id").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build select match stats query: %w", err)
	}

	var rows []statsTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select match stats: %w", err)
	}

	out := make([]playerstats.Stats, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}

	return out, nil
}

func (r *PlayerStatsRepository) ListRecentByPlayer(ctx context.Context, playerID string, limit int) ([]playerstats.Stats, error) {
	const query = `
SELECT s.match_id, s.player_id, s.minutes_played, s.goals, s.assists,
       s.clean_sheet, s.goals_conceded, s.yellow_cards, s.red_cards,
       s.own_goals, s.penalties_scored, s.penalties_missed, s.saves,
       s.rating, s.fantasy_points
FROM player_match_stats s
JOIN matches m ON m.id = s.match_id
WHERE s.player_id = $1
ORDER BY m.kickoff_at DESC
LIMIT $2`

	var rows []statsTableModel
	if err := r.db.SelectContext(ctx, &rows, query, playerID, limit); err != nil {
		return nil, fmt.Errorf("select recent player stats: %w", err)
	}

	out := make([]playerstats.Stats, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}

	return out, nil
}

func (r *PlayerStatsRepository) GetSeasonTotals(ctx context.Context, playerID string) (playerstats.SeasonTotals, error) {
	const query = `
SELECT COUNT(*) AS matches_played,
       COALESCE(SUM(goals), 0) AS goals,
       COALESCE(SUM(assists), 0) AS assists,
       COALESCE(SUM(fantasy_points), 0) AS points,
       COALESCE(SUM(minutes_played), 0) AS minutes,
       COALESCE(SUM(saves), 0) AS saves,
       COALESCE(SUM(yellow_cards), 0) AS yellow_cards,
       COALESCE(SUM(red_cards), 0) AS red_cards,
       COALESCE(SUM(goals_conceded), 0) AS goals_conceded
FROM player_match_stats
WHERE player_id = $1`

	var row struct {
		MatchesPlayed int `db:"matches_played"`
		Goals         int `db:"goals"`
		Assists       int `db:"assists"`
		Points        int `db:"points"`
		Minutes       int `db:"minutes"`
		Saves         int `db:"saves"`
		YellowCards   int `db:"yellow_cards"`
		RedCards      int `db:"red_cards"`
		GoalsConceded int `db:"goals_conceded"`
	}
	if err := r.db.GetContext(ctx, &row, query, playerID); err != nil {
		return playerstats.SeasonTotals{}, fmt.Errorf("aggregate season totals: %w", err)
	}

	return playerstats.SeasonTotals{
		PlayerID:      playerID,
		MatchesPlayed: row.MatchesPlayed,
		Goals:         row.Goals,
		Assists:       row.Assists,
		Points:        row.Points,
		Minutes:       row.Minutes,
		Saves:         row.Saves,
		YellowCards:   row.YellowCards,
		RedCards:      row.RedCards,
		GoalsConceded: row.GoalsConceded,
	}, nil
}
