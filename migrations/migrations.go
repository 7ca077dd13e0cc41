// Package migrations embeds the SQL schema and applies it with golang-migrate.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"
)

//go:embed *.sql
var files embed.FS

// Migrator wraps a migrate.Migrate bound to the embedded schema.
type Migrator struct {
	m *migrate.Migrate
}

// New builds a Migrator on an open *sql.DB. Close closes db as well.
func New(db *sql.DB) (*Migrator, error) {
	src, err := iofs.New(files, ".")
	if err != nil {
		return nil, fmt.Errorf("migrations: source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("migrations: postgres driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("migrations: init: %w", err)
	}
	return &Migrator{m: m}, nil
}

// NewFromURL opens its own connection from a postgres:// URL.
func NewFromURL(databaseURL string) (*Migrator, error) {
	src, err := iofs.New(files, ".")
	if err != nil {
		return nil, fmt.Errorf("migrations: source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("migrations: init: %w", err)
	}
	return &Migrator{m: m}, nil
}

// Up applies every pending migration.
func (mg *Migrator) Up() error {
	err := mg.m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info().Msg("migrations: schema up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrations: up: %w", err)
	}
	mg.logVersion("migrations: applied")
	return nil
}

// Steps moves n migrations forward (n > 0) or back (n < 0).
func (mg *Migrator) Steps(n int) error {
	err := mg.m.Steps(n)
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrations: steps %d: %w", n, err)
	}
	mg.logVersion("migrations: stepped")
	return nil
}

// Down rolls back every migration.
func (mg *Migrator) Down() error {
	err := mg.m.Down()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrations: down: %w", err)
	}
	log.Warn().Msg("migrations: all migrations rolled back")
	return nil
}

// Version returns the current schema version; 0 when nothing was applied.
func (mg *Migrator) Version() (uint, bool, error) {
	v, dirty, err := mg.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

func (mg *Migrator) logVersion(msg string) {
	v, dirty, err := mg.Version()
	if err != nil {
		log.Warn().Err(err).Msg("migrations: version unavailable")
		return
	}
	log.Info().Uint("version", v).Bool("dirty", dirty).Msg(msg)
}

// Close releases the source and the database connection.
func (mg *Migrator) Close() error {
	srcErr, dbErr := mg.m.Close()
	return errors.Join(srcErr, dbErr)
}
