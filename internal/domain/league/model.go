package league

import "fmt"

// DefaultLeagueID is the placeholder league auto-created for users who
// build a squad without joining a named league.
const DefaultLeagueID = "default"

// League groups competing squads. Membership CRUD lives outside this core.
type League struct {
	ID      string
	Name    string
	Code    string
	OwnerID string
}

func (l League) Validate() error {
	if l.ID == "" {
		return fmt.Errorf("league id is required")
	}
	if l.Name == "" {
		return fmt.Errorf("league name is required")
	}

	return nil
}
