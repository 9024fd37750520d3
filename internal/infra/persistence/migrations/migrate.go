// Package migrations wires golang-migrate execution for the boxoffice sales store.
package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	pgxv5 "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file" // file:// migrations loader
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/stagepass/boxoffice/internal/observability"
)

var errNotDirectory = errors.New("migrations path must be a directory")

// Apply ensures the migrations located at migrationsDir are applied to the
// Postgres instance reachable via dsn.
func Apply(ctx context.Context, dsn, migrationsDir string) error {
	resolvedDir, err := resolveDir(migrationsDir)
	if err != nil {
		return err
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migrations connection: %w", err)
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			observability.Log().Error("database migrations close", observability.Field{Key: "error", Value: cerr})
		}
	}()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping migrations database: %w", err)
	}

	var driverConfig pgxv5.Config
	driver, err := pgxv5.WithInstance(db, &driverConfig)
	if err != nil {
		return fmt.Errorf("initialise pgx v5 driver: %w", err)
	}

	sourceURL := fileURL(resolvedDir)
	m, err := migrate.NewWithDatabaseInstance(sourceURL, "pgx5", driver)
	if err != nil {
		return fmt.Errorf("initialise migrate instance: %w", err)
	}
	defer func() {
		sourceErr, dbErr := m.Close()
		if sourceErr != nil {
			observability.Log().Error("database migrations source close", observability.Field{Key: "error", Value: sourceErr})
		}
		if dbErr != nil {
			observability.Log().Error("database migrations db close", observability.Field{Key: "error", Value: dbErr})
		}
	}()

	observability.Log().Info("running database migrations", observability.Field{Key: "path", Value: resolvedDir})

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			countMigration("noop")
			observability.Log().Info("database migrations up-to-date")
			return nil
		}
		countMigration("failed")
		return fmt.Errorf("apply migrations: %w", err)
	}

	observability.Log().Info("database migrations applied successfully")
	countMigration("applied")

	return nil
}

func countMigration(result string) {
	observability.Telemetry().IncCounter("boxoffice_db_migrations_total", 1, map[string]string{
		"result":      result,
		"environment": strings.TrimSpace(os.Getenv("BOXOFFICE_ENV")),
	})
}

func resolveDir(dir string) (string, error) {
	clean := strings.TrimSpace(dir)
	if clean == "" {
		return "", fmt.Errorf("migrations path required")
	}

	abs, err := filepath.Abs(clean)
	if err != nil {
		return "", fmt.Errorf("resolve migrations path: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("migrations directory: %w", err)
		}
		return "", fmt.Errorf("stat migrations directory: %w", err)
	}

	if !info.IsDir() {
		return "", fmt.Errorf("migrations directory: %w", errNotDirectory)
	}

	return abs, nil
}

func fileURL(path string) string {
	slashed := filepath.ToSlash(path)
	if !strings.HasPrefix(slashed, "/") {
		slashed = "/" + slashed
	}
	u := new(url.URL)
	u.Scheme = "file"
	u.Path = slashed
	return u.String()
}

