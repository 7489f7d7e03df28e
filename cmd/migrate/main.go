package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/lib/pq"

	"github.com/pageza/larder/backend/config"
	"github.com/pageza/larder/backend/internal/logger"
)

// migration is a NNN_name.up.sql file and its optional .down.sql twin.
type migration struct {
	Version string
	Name    string
	Up      string
	Down    string
}

func main() {
	rollback := flag.Bool("rollback", false, "Rollback the last migration")
	dir := flag.String("dir", "migrations", "Directory holding NNN_name.up.sql/.down.sql files")
	flag.Parse()

	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		dsn = cfg.PostgresDSN()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	migrations, err := loadMigrations(*dir)
	if err != nil {
		log.Error("failed to read migrations", "dir", *dir, "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := ensureTable(ctx, db); err != nil {
		log.Error("failed to prepare schema_migrations", "error", err)
		os.Exit(1)
	}

	if *rollback {
		name, err := rollbackLast(ctx, db, migrations)
		if err != nil {
			log.Error("rollback failed", "error", err)
			os.Exit(1)
		}
		log.Info("rolled back migration", "name", name)
		return
	}

	applied, err := applyPending(ctx, db, migrations, log)
	if err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("all migrations applied", "applied", applied)
}

// loadMigrations pairs up/down files and sorts them by version.
func loadMigrations(dir string) ([]migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	byVersion := map[string]*migration{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".sql" {
			continue
		}
		var kind string
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			kind = "up"
		case strings.HasSuffix(name, ".down.sql"):
			kind = "down"
		default:
			continue
		}
		version, _, ok := strings.Cut(name, "_")
		if !ok {
			return nil, fmt.Errorf("migration %s: expected VERSION_name.%s.sql", name, kind)
		}
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		m := byVersion[version]
		if m == nil {
			m = &migration{Version: version, Name: strings.TrimSuffix(name, "."+kind+".sql")}
			byVersion[version] = m
		}
		if kind == "up" {
			m.Up = string(content)
		} else {
			m.Down = string(content)
		}
	}

	out := make([]migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.Up == "" {
			return nil, fmt.Errorf("migration %s has no up file", m.Name)
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func ensureTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    text PRIMARY KEY,
			name       text NOT NULL,
			applied_at timestamptz NOT NULL DEFAULT now()
		)`)
	return err
}

func applyPending(ctx context.Context, db *sql.DB, migrations []migration, log *logger.Logger) (int, error) {
	applied := 0
	for _, m := range migrations {
		var exists bool
		err := db.QueryRowContext(ctx,
			"SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)", m.Version,
		).Scan(&exists)
		if err != nil {
			return applied, fmt.Errorf("failed to check migration status: %w", err)
		}
		if exists {
			log.Debug("migration already applied", "name", m.Name)
			continue
		}

		err = inTx(ctx, db, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.Up); err != nil {
				return fmt.Errorf("failed to apply migration %s: %w", m.Name, err)
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (version, name) VALUES ($1, $2)", m.Version, m.Name)
			return err
		})
		if err != nil {
			return applied, err
		}
		log.Info("applied migration", "name", m.Name)
		applied++
	}
	return applied, nil
}

func rollbackLast(ctx context.Context, db *sql.DB, migrations []migration) (string, error) {
	var version string
	err := db.QueryRowContext(ctx,
		"SELECT version FROM schema_migrations ORDER BY version DESC LIMIT 1",
	).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errors.New("no migrations to rollback")
	}
	if err != nil {
		return "", fmt.Errorf("failed to get last migration: %w", err)
	}

	m, ok := findVersion(migrations, version)
	if !ok || m.Down == "" {
		return "", fmt.Errorf("no down file for migration version %s", version)
	}

	err = inTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, m.Down); err != nil {
			return fmt.Errorf("failed to execute rollback: %w", err)
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = $1", version)
		return err
	})
	return m.Name, err
}

func findVersion(migrations []migration, version string) (migration, bool) {
	for _, m := range migrations {
		if m.Version == version {
			return m, true
		}
	}
	return migration{}, false
}

func inTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
