package match

import (
	"fmt"
	"strings"
	"time"
)

// Status is the local match lifecycle. It is monotonic: once FINISHED a
// match never regresses to an earlier status.
type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusLive      Status = "LIVE"
	StatusFinished  Status = "FINISHED"
)

// Match is one tournament fixture. Mutated only by the live-score sync.
type Match struct {
	ID          string
	ExternalRef string
	HomeTeamID  string
	AwayTeamID  string
	KickoffAt   time.Time
	Venue       string
	Status      Status
	HomeScore   *int
	AwayScore   *int
	RoundName   string
}

func (m Match) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("match id is required")
	}
	if m.HomeTeamID == "" || m.AwayTeamID == "" {
		return fmt.Errorf("match team ids are required")
	}
	if m.KickoffAt.IsZero() {
		return fmt.Errorf("match kickoff is required")
	}
	switch m.Status {
	case StatusScheduled, StatusLive, StatusFinished:
	default:
		return fmt.Errorf("invalid match status: %s", m.Status)
	}

	return nil
}

// feed status label -> local status. Unknown labels stay SCHEDULED so a
// flaky feed can never finish a match by accident.
var statusByFeedLabel = map[string]Status{
	"SCHEDULED": StatusScheduled,
	"TIMED":     StatusScheduled,
	"SUSPENDED": StatusScheduled,
	"POSTPONED": StatusScheduled,
	"CANCELLED": StatusScheduled,
	"IN_PLAY":   StatusLive,
	"PAUSED":    StatusLive,
	"LIVE":      StatusLive,
	"FINISHED":  StatusFinished,
	"AWARDED":   StatusFinished,
}

// StatusFromFeed maps an external feed status label to the local lifecycle.
func StatusFromFeed(label string) Status {
	status, ok := statusByFeedLabel[strings.ToUpper(strings.TrimSpace(label))]
	if !ok {
		return StatusScheduled
	}
	return status
}

// NextStatus enforces the monotonic lifecycle: a FINISHED match keeps its
// status no matter what the feed reports later.
func NextStatus(current, reported Status) Status {
	if current == StatusFinished {
		return StatusFinished
	}
	return reported
}
