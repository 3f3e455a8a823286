// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package migration applies the SQL schema migrations with golang-migrate
// before the server accepts traffic.
//
// Migrations come from the files embedded in the binary unless a source URL
// (file://, github:// ...) overrides them.
package migration

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// pgx5 driver registers "pgx5" scheme for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	// file source reads .sql files from disk.
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/taibuivan/trailhead/data/migrations"
)

// RunUp migrates the database at dsn to the latest version. A dirty database
// is reported instead of being forced.
func RunUp(dsn string, source string, logger *slog.Logger) error {
	migrator, err := open(dsn, source)
	if err != nil {
		return err
	}
	migrator.Log = &migrateLogger{logger: logger}
	defer closeMigrator(migrator, logger)

	from, dirty, err := migrator.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		from = 0
	case err != nil:
		return fmt.Errorf("migration: failed to read version: %w", err)
	case dirty:
		return fmt.Errorf("migration: database is dirty at version %d, fix it by hand and force the version", from)
	}

	err = migrator.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("migration_up_to_date", slog.Uint64("version", uint64(from)))
		return nil
	}
	if err != nil {
		return fmt.Errorf("migration: up failed: %w", err)
	}

	to, _, _ := migrator.Version()
	logger.Info("migration_applied",
		slog.Uint64("from_version", uint64(from)),
		slog.Uint64("to_version", uint64(to)),
	)
	return nil
}

// open builds the migrator over the embedded files, or over source when set.
func open(dsn, source string) (*migrate.Migrate, error) {
	if source != "" {
		migrator, err := migrate.New(SourceURL(source), DatabaseURL(dsn))
		if err != nil {
			return nil, fmt.Errorf("migration: failed to open %s: %w", source, err)
		}
		return migrator, nil
	}

	files, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("migration: failed to read embedded files: %w", err)
	}
	migrator, err := migrate.NewWithSourceInstance("iofs", files, DatabaseURL(dsn))
	if err != nil {
		return nil, fmt.Errorf("migration: failed to initialize: %w", err)
	}
	return migrator, nil
}

func closeMigrator(migrator *migrate.Migrate, logger *slog.Logger) {
	sourceErr, databaseErr := migrator.Close()
	if err := errors.Join(sourceErr, databaseErr); err != nil {
		logger.Warn("migration_close_failed", slog.Any("error", err))
	}
}

// DatabaseURL rewrites a postgres:// or postgresql:// DSN to the pgx5:// scheme.
func DatabaseURL(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(dsn, prefix); ok {
			return "pgx5://" + rest
		}
	}
	return dsn
}

// SourceURL treats a value without a scheme as a directory.
func SourceURL(source string) string {
	if strings.Contains(source, "://") {
		return source
	}
	return "file://" + source
}

// migrateLogger routes golang-migrate output to slog at debug level.
type migrateLogger struct {
	logger *slog.Logger
}

func (l *migrateLogger) Printf(format string, args ...any) {
	l.logger.Debug("migration_progress", slog.String("detail", strings.TrimSpace(fmt.Sprintf(format, args...))))
}

func (l *migrateLogger) Verbose() bool {
	return false
}
