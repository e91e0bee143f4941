package storage

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect isolates the SQL that differs between backends. All timestamp
// expressions are offset-adjusted so the database and the game server
// agree on what "now" means regardless of the host timezone.
type Dialect interface {
	Name() string

	// Now is the expression for the current adjusted timestamp.
	Now() string

	// CutoffDays is an expression with one placeholder: the adjusted
	// timestamp N days in the past.
	CutoffDays() string

	// Bucket expressions over a timestamp column.
	HourBucket(col string) string    // integer 0-23
	DateBucket(col string) string    // 'YYYY-MM-DD' string
	WeekdayBucket(col string) string // integer, 0 = Sunday

	// OpenDurationMS is the elapsed milliseconds since col, used by the
	// crash-recovery sweep to close sessions whose quit was never seen.
	OpenDurationMS(col string) string

	// Rebind rewrites ? placeholders into the backend's native style.
	Rebind(query string) string
}

// parseOffset parses a whole-hour timezone offset like "+3" or "-5".
// Empty means no adjustment.
func parseOffset(offset string) (int, error) {
	if offset == "" {
		return 0, nil
	}
	hours, err := strconv.Atoi(offset)
	if err != nil {
		return 0, fmt.Errorf("invalid timezone offset %q: %w", offset, err)
	}
	if hours < -23 || hours > 23 {
		return 0, fmt.Errorf("timezone offset %q out of range", offset)
	}
	return hours, nil
}

type sqliteDialect struct {
	// modifier is the sqlite datetime modifier for the configured
	// offset, e.g. ", '+3 hours'", or empty for UTC.
	modifier string
}

func newSQLiteDialect(offsetHours int) *sqliteDialect {
	d := &sqliteDialect{}
	if offsetHours != 0 {
		d.modifier = fmt.Sprintf(", '%+d hours'", offsetHours)
	}
	return d
}

func (d *sqliteDialect) Name() string { return "sqlite" }

func (d *sqliteDialect) Now() string {
	return "datetime('now'" + d.modifier + ")"
}

func (d *sqliteDialect) CutoffDays() string {
	return "datetime('now'" + d.modifier + ", '-' || ? || ' days')"
}

func (d *sqliteDialect) HourBucket(col string) string {
	return "CAST(strftime('%H', " + col + ") AS INTEGER)"
}

func (d *sqliteDialect) DateBucket(col string) string {
	return "date(" + col + ")"
}

func (d *sqliteDialect) WeekdayBucket(col string) string {
	return "CAST(strftime('%w', " + col + ") AS INTEGER)"
}

func (d *sqliteDialect) OpenDurationMS(col string) string {
	return "CAST((julianday('now'" + d.modifier + ") - julianday(" + col + ")) * 86400000 AS INTEGER)"
}

func (d *sqliteDialect) Rebind(query string) string { return query }

type postgresDialect struct {
	offsetHours int
}

func newPostgresDialect(offsetHours int) *postgresDialect {
	return &postgresDialect{offsetHours: offsetHours}
}

func (d *postgresDialect) Name() string { return "postgres" }

func (d *postgresDialect) Now() string {
	if d.offsetHours == 0 {
		return "NOW()"
	}
	return fmt.Sprintf("(NOW() + INTERVAL '%d hours')", d.offsetHours)
}

func (d *postgresDialect) CutoffDays() string {
	return "(" + d.Now() + " - make_interval(days => ?))"
}

func (d *postgresDialect) HourBucket(col string) string {
	return "CAST(EXTRACT(HOUR FROM " + col + ") AS INTEGER)"
}

func (d *postgresDialect) DateBucket(col string) string {
	return "to_char(" + col + ", 'YYYY-MM-DD')"
}

func (d *postgresDialect) WeekdayBucket(col string) string {
	return "CAST(EXTRACT(DOW FROM " + col + ") AS INTEGER)"
}

func (d *postgresDialect) OpenDurationMS(col string) string {
	return "CAST(EXTRACT(EPOCH FROM (" + d.Now() + " - " + col + ")) * 1000 AS BIGINT)"
}

// Rebind rewrites ? placeholders into $1..$n for the pgx driver
func (d *postgresDialect) Rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		} else {
			b.WriteByte(query[i])
		}
	}
	return b.String()
}
