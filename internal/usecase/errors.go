package usecase

import "errors"

var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("resource not found")
	ErrDeadlinePassed      = errors.New("transfer deadline has passed")
	ErrDuplicatePlayer     = errors.New("player already in squad")
	ErrWildcardAlreadyUsed = errors.New("wildcard already used this season")
	ErrNoActiveRound       = errors.New("no active round")
	ErrExternalFetch       = errors.New("external feed fetch failed")
	// ErrDependencyUnavailable is returned when a feed's circuit breaker is
	// open and the call was never attempted.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrInconsistentState     = errors.New("inconsistent state")
)
