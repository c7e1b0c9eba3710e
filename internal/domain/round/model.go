package round

import (
	"fmt"
	"time"
)

// Round is a fixed competition window with a transfer deadline.
// Invariant: start <= deadline <= end.
type Round struct {
	ID         string
	Name       string
	StartAt    time.Time
	DeadlineAt time.Time
	EndAt      time.Time
}

func (r Round) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("round id is required")
	}
	if r.Name == "" {
		return fmt.Errorf("round name is required")
	}
	if r.StartAt.IsZero() || r.DeadlineAt.IsZero() || r.EndAt.IsZero() {
		return fmt.Errorf("round timestamps are required")
	}
	if r.DeadlineAt.Before(r.StartAt) {
		return fmt.Errorf("round deadline cannot precede start")
	}
	if r.EndAt.Before(r.DeadlineAt) {
		return fmt.Errorf("round end cannot precede deadline")
	}

	return nil
}

// Contains reports whether the instant falls inside the round window.
func (r Round) Contains(at time.Time) bool {
	return !at.Before(r.StartAt) && !at.After(r.EndAt)
}

// DeadlinePassed reports whether transfers are closed for the round.
func (r Round) DeadlinePassed(at time.Time) bool {
	return at.After(r.DeadlineAt)
}
