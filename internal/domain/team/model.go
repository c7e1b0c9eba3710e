package team

import "fmt"

// Team is one national side seeded for the tournament.
type Team struct {
	ID          string
	ExternalRef string
	Name        string
	CountryCode string
	GroupName   string
	FlagURL     string
}

func (t Team) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("team id is required")
	}
	if t.Name == "" {
		return fmt.Errorf("team name is required")
	}

	return nil
}
