package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// PersistentStore records finished transfers in SQLite (default) or
// Postgres. It is a write-only audit trail: nothing in the dispatch path
// reads from it.
type PersistentStore struct {
	db     *sql.DB
	driver string
}

func NewPersistentStore(driver, dsn string) (*PersistentStore, error) {
	var db *sql.DB
	var err error

	switch driver {
	case "sqlite":
		// Ensure the database directory exists
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}

		db, err = sql.Open("sqlite", dsn+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)")
	case "postgres":
		db, err = sql.Open("pgx", dsn)
	default:
		return nil, fmt.Errorf("unsupported history driver: %q", driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", driver, err)
	}

	// Ping makes sure the target is actually reachable and the DSN is valid
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	store := &PersistentStore{db: db, driver: driver}

	if err := store.RunMigrations(); err != nil {
		return nil, fmt.Errorf("could not migrate database: %w", err)
	}

	return store, nil
}

func (s *PersistentStore) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to $1..$n for Postgres. Queries are written
// in the SQLite style the way the rest of the codebase expects.
func (s *PersistentStore) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
