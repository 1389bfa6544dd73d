package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"
)

// Dialect maps a database/sql driver name to the bun dialect that has to
// accompany the raw handle when building the persistence client.
func Dialect(driver string) (schema.Dialect, error) {
	_, dialect, err := resolveDriver(driver)
	return dialect, err
}

// Open opens a database handle for the given driver and DSN using the SQL
// drivers this package links in, and returns the matching bun dialect.
func Open(driver, dsn string) (*sql.DB, schema.Dialect, error) {
	name, dialect, err := resolveDriver(driver)
	if err != nil {
		return nil, nil, err
	}
	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("sqlstore: open %s database: %w", name, err)
	}
	return db, dialect, nil
}

func resolveDriver(driver string) (string, schema.Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql", "pg":
		return "postgres", pgdialect.New(), nil
	case "sqlite", "sqlite3":
		return "sqlite3", sqlitedialect.New(), nil
	default:
		return "", nil, fmt.Errorf("sqlstore: unsupported sql driver %q", driver)
	}
}
