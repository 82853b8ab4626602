package query

import (
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

// Dialect captures the SQL differences between the supported backends.
type Dialect struct {
	Name        string
	Placeholder sq.PlaceholderFormat
	// Except is the set-difference keyword. SQLite has no EXCEPT ALL; the
	// compiled id queries are DISTINCT so plain EXCEPT is equivalent there.
	Except string
	// textTime is set when timestamps are stored as text and must be
	// normalized with the date/time functions before comparison.
	textTime bool
}

var (
	Postgres = Dialect{Name: "postgres", Placeholder: sq.Dollar, Except: "EXCEPT ALL"}
	SQLite   = Dialect{Name: "sqlite", Placeholder: sq.Question, Except: "EXCEPT", textTime: true}
	DuckDB   = Dialect{Name: "duckdb", Placeholder: sq.Question, Except: "EXCEPT ALL"}
)

// TimestampExpr wraps a timestamp column so comparisons happen in UTC.
func (d Dialect) TimestampExpr(col string) string {
	if d.textTime {
		return fmt.Sprintf("datetime(%s)", col)
	}
	return col
}

// DateExpr wraps a date column so comparisons ignore any time component.
func (d Dialect) DateExpr(col string) string {
	if d.textTime {
		return fmt.Sprintf("date(%s)", col)
	}
	return fmt.Sprintf("CAST(%s AS DATE)", col)
}

// TextExpr casts an expression to text for pattern matching.
func (d Dialect) TextExpr(col string) string {
	return fmt.Sprintf("CAST(%s AS TEXT)", col)
}

// TimeArg converts a timestamp to a bind argument comparable with TimestampExpr.
func (d Dialect) TimeArg(t time.Time) any {
	if d.textTime {
		return t.UTC().Format("2006-01-02 15:04:05")
	}
	return t.UTC()
}

// DateArg converts a date to a bind argument comparable with DateExpr.
func (d Dialect) DateArg(t time.Time) any {
	if d.textTime {
		return t.Format("2006-01-02")
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Rebind replaces ? placeholders with the dialect's format.
func (d Dialect) Rebind(sql string) (string, error) {
	return d.Placeholder.ReplacePlaceholders(sql)
}
