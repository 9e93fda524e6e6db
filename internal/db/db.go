package db

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	_ "modernc.org/sqlite"

	"github.com/banshee-data/scanrig/internal/timeutil"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// schemaFS returns the embedded scan schema migrations.
func schemaFS() fs.FS {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		panic(fmt.Sprintf("embedded migrations missing: %v", err))
	}
	return sub
}

type DB struct {
	*sql.DB
	path  string
	clock timeutil.Clock
}

// OpenDB opens the sqlite database at path without touching the schema.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// sqlite serialises writers; a single connection also keeps :memory:
	// databases alive across queries.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	return &DB{DB: db, path: path, clock: timeutil.RealClock{}}, nil
}

// SetClock replaces the clock used for scan timestamps.
func (db *DB) SetClock(c timeutil.Clock) {
	db.clock = c
}

// NewDB opens the database at path and applies all pending migrations.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
