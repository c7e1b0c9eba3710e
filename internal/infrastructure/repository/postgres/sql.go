package postgres

import (
	"database/sql"
	"errors"
)

// isNotFound distinguishes an empty result from a real query failure so
// repos can return (zero, false, nil) for missing rows.
func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
