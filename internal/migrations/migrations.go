// Package migrations owns the versioned schema of the aggregate_events table.
package migrations

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// MigrationFiles holds the versioned schema of the event log.
//
//go:embed *.sql
var MigrationFiles embed.FS

// ErrSchemaDirty is returned when a previous migration was interrupted and
// auto-migration is off, so nothing is allowed to repair it.
var ErrSchemaDirty = errors.New("aggregate_events schema is dirty")

// Versions lists the embedded schema versions in ascending order.
func Versions() ([]uint, error) {
	src, err := iofs.New(MigrationFiles, ".")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	defer src.Close()

	v, err := src.First()
	if err != nil {
		return nil, fmt.Errorf("read first migration: %w", err)
	}
	versions := []uint{v}
	for {
		v, err = src.Next(v)
		if errors.Is(err, fs.ErrNotExist) {
			return versions, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read migration after %d: %w", v, err)
		}
		versions = append(versions, v)
	}
}

// replayTarget is the version to force a dirty schema back to so the
// interrupted version runs again. Before the first version that is the nil
// version.
func replayTarget(versions []uint, dirty uint) int {
	target := database.NilVersion
	for _, v := range versions {
		if v >= dirty {
			break
		}
		target = int(v)
	}
	return target
}

// pending counts embedded versions newer than current.
func pending(versions []uint, current uint, hasVersion bool) int {
	if !hasVersion {
		return len(versions)
	}
	n := 0
	for _, v := range versions {
		if v > current {
			n++
		}
	}
	return n
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(MigrationFiles, ".")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

// RunMigrations brings aggregate_events up to the newest embedded version.
// With autoMigrate off it only reports how far behind the schema is; the
// postgres adapter's own schema check then decides whether startup continues.
func RunMigrations(db *sql.DB, autoMigrate bool) error {
	versions, err := Versions()
	if err != nil {
		return err
	}
	latest := versions[len(versions)-1]

	m, err := newMigrator(db)
	if err != nil {
		return err
	}

	current, dirty, err := m.Version()
	hasVersion := true
	if errors.Is(err, migrate.ErrNilVersion) {
		hasVersion, err = false, nil
	}
	if err != nil {
		return fmt.Errorf("read aggregate_events schema version: %w", err)
	}

	if dirty {
		if !autoMigrate {
			return fmt.Errorf("%w at version %d: enable auto_migrate or repair it by hand", ErrSchemaDirty, current)
		}
		// The aggregate_events DDL is guarded by IF [NOT] EXISTS, so the
		// interrupted version can simply run again.
		target := replayTarget(versions, current)
		slog.Warn("[Migrations] aggregate_events schema left dirty, replaying interrupted version",
			"dirty_version", current,
			"forced_to", target,
		)
		if err := m.Force(target); err != nil {
			return fmt.Errorf("reset dirty schema version %d: %w", current, err)
		}
		hasVersion = target != database.NilVersion
		if hasVersion {
			current = uint(target)
		}
	}

	behind := pending(versions, current, hasVersion)
	if !autoMigrate {
		if behind > 0 {
			slog.Warn("[Migrations] aggregate_events schema is behind, auto_migrate is off",
				"current_version", current,
				"latest_version", latest,
				"pending", behind,
			)
		}
		return nil
	}
	if behind == 0 {
		slog.Info("[Migrations] aggregate_events schema is current", "version", current)
		return nil
	}

	slog.Info("[Migrations] Applying aggregate_events migrations",
		"from_version", current,
		"to_version", latest,
		"pending", behind,
	)
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply aggregate_events migrations: %w", err)
	}
	slog.Info("[Migrations] aggregate_events schema migrated", "version", latest)
	return nil
}
