package repository

import (
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver
)

// Dialect captures the driver-specific bits of the fixed projections.
type Dialect struct {
	Name   string
	Driver string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
}

// SQLite is the modernc.org/sqlite dialect.
var SQLite = Dialect{
	Name:        "sqlite",
	Driver:      "sqlite",
	Placeholder: func(int) string { return "?" },
}

// Postgres is the pgx stdlib dialect.
var Postgres = Dialect{
	Name:        "postgres",
	Driver:      "pgx",
	Placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
}

// DialectFor maps a configured driver name to its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "pgx", "postgres", "postgresql":
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}
