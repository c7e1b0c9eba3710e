package scoring

import (
	"github.com/wcfantasy/backend/internal/domain/player"
	"github.com/wcfantasy/backend/internal/domain/playerstats"
)

// Position-weighted goal values.
var goalPointsByPosition = map[player.Position]int{
	player.PositionGoalkeeper: 6,
	player.PositionDefender:   6,
	player.PositionMidfielder: 5,
	player.PositionForward:    4,
}

const (
	assistPoints         = 3
	cleanSheetDefensive  = 4
	cleanSheetMidfielder = 1
	penaltyScoredPoints  = 3
	penaltyMissedPoints  = 2
	yellowCardPoints     = 1
	redCardPoints        = 3
	ownGoalPoints        = 2
	fullAppearanceMins   = 60
)

// ComputePoints converts one player's raw match stats into fantasy points.
// Pure integer arithmetic; division truncates.
func ComputePoints(pos player.Position, stats playerstats.Stats) int {
	points := 0

	if stats.MinutesPlayed >= 1 {
		points++
	}
	if stats.MinutesPlayed >= fullAppearanceMins {
		points++
	}

	goalValue, ok := goalPointsByPosition[pos]
	if !ok {
		goalValue = goalPointsByPosition[player.PositionForward]
	}
	points += stats.Goals * goalValue
	points += stats.Assists * assistPoints

	if stats.CleanSheet && stats.MinutesPlayed >= fullAppearanceMins {
		switch pos {
		case player.PositionGoalkeeper, player.PositionDefender:
			points += cleanSheetDefensive
		case player.PositionMidfielder:
			points += cleanSheetMidfielder
		}
	}

	if pos == player.PositionGoalkeeper || pos == player.PositionDefender {
		points -= stats.GoalsConceded / 2
	}
	if pos == player.PositionGoalkeeper {
		points += stats.Saves / 3
	}

	points += stats.PenaltiesScored * penaltyScoredPoints
	points -= stats.PenaltiesMissed * penaltyMissedPoints
	points -= stats.YellowCards * yellowCardPoints
	points -= stats.RedCards * redCardPoints
	points -= stats.OwnGoals * ownGoalPoints

	return points
}

// RatingBonus maps an externally-reported 0-10 performance rating to bonus
// points. Zero rating means the feed reported none.
func RatingBonus(rating float64) int {
	switch {
	case rating >= 8.0:
		return 3
	case rating >= 7.0:
		return 2
	case rating >= 6.5:
		return 1
	default:
		return 0
	}
}

// Multiply applies the captaincy multiplier: captain x2, vice-captain x1.5
// rounded toward zero.
func Multiply(points int, isCaptain, isViceCaptain bool) int {
	if isCaptain {
		return points * 2
	}
	if isViceCaptain {
		return points * 3 / 2
	}
	return points
}
