package db

import (
	"errors"
	"fmt"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// MigrateUp applies every pending scan schema migration. An up-to-date schema
// is not an error.
func (db *DB) MigrateUp() error {
	return db.withSchema("up", (*migrate.Migrate).Up)
}

// MigrateDown reverts the newest applied migration.
func (db *DB) MigrateDown() error {
	return db.withSchema("down", func(m *migrate.Migrate) error { return m.Steps(-1) })
}

// MigrateForce records version as applied without running anything, clearing
// the dirty flag a failed migration leaves behind.
func (db *DB) MigrateForce(version int) error {
	return db.withSchema(fmt.Sprintf("force %d", version), func(m *migrate.Migrate) error {
		return m.Force(version)
	})
}

// MigrateVersion reports the applied schema version; 0 means an empty schema.
func (db *DB) MigrateVersion() (version uint, dirty bool, err error) {
	err = db.withSchema("version", func(m *migrate.Migrate) error {
		var verr error
		version, dirty, verr = m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			return nil
		}
		return verr
	})
	return version, dirty, err
}

// withSchema runs op against the embedded migrations on this connection. The
// migrate instance is not closed since that would close db.DB as well.
func (db *DB) withSchema(name string, op func(*migrate.Migrate) error) error {
	source, err := iofs.New(schemaFS(), ".")
	if err != nil {
		return fmt.Errorf("failed to open migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = schemaLog{}

	if err := op(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("schema %s: %w", name, err)
	}
	return nil
}

// schemaLog sends golang-migrate output to the standard logger.
type schemaLog struct{}

func (schemaLog) Printf(format string, v ...any) { log.Printf("db: schema: "+format, v...) }

func (schemaLog) Verbose() bool { return false }
