package storage

import (
	"database/sql"
	"time"
)

// Null scanner helpers - reduce repetitive nil-checking code

func scanNullTime(nt sql.NullTime) *time.Time {
	if nt.Valid {
		return &nt.Time
	}
	return nil
}
