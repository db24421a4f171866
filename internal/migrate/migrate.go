// Package migrate applies the SQL files in migrations to a PostgreSQL database.
//
// Incremental files are named NNN_description.up.sql and applied in lexical
// order; each applied name is recorded in schema_migrations. The matching
// NNN_description.down.sql reverts it. The special files
// 000_drop_all.sql and 000_consolidated.sql support the reset workflow.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	dropAllFile      = "000_drop_all.sql"
	consolidatedFile = "000_consolidated.sql"
	upSuffix         = ".up.sql"
	downSuffix       = ".down.sql"
)

// Conn is the subset of pgxpool.Pool used by the migrator.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Migrator runs migrations from an fs.FS.
type Migrator struct {
	conn   Conn
	files  fs.FS
	logger *slog.Logger
}

// New creates a Migrator reading SQL files from the root of files.
func New(conn Conn, files fs.FS, logger *slog.Logger) *Migrator {
	return &Migrator{conn: conn, files: files, logger: logger}
}

// Up applies every .up.sql file not yet recorded and returns how many ran.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	if err := m.ensureSchemaMigrations(ctx); err != nil {
		return 0, err
	}
	names, err := m.upFiles()
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, filename := range names {
		name := strings.TrimSuffix(filename, upSuffix)

		var exists bool
		if err := m.conn.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE name=$1)", name,
		).Scan(&exists); err != nil {
			return applied, fmt.Errorf("check migration %s: %w", name, err)
		}
		if exists {
			continue
		}

		if err := m.execFile(ctx, filename); err != nil {
			return applied, err
		}
		if _, err := m.conn.Exec(ctx, "INSERT INTO schema_migrations (name) VALUES ($1)", name); err != nil {
			return applied, fmt.Errorf("record migration %s: %w", name, err)
		}
		applied++
		m.logger.Info("migration applied", "migration", name)
	}

	if applied == 0 {
		m.logger.Info("all migrations already applied")
	} else {
		m.logger.Info("migrations completed", "count", applied)
	}
	return applied, nil
}

// Down reverts the most recently applied migration and returns its name.
// It returns "" when nothing is applied.
func (m *Migrator) Down(ctx context.Context) (string, error) {
	if err := m.ensureSchemaMigrations(ctx); err != nil {
		return "", err
	}

	var name string
	err := m.conn.QueryRow(ctx,
		"SELECT name FROM schema_migrations ORDER BY name DESC LIMIT 1",
	).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		m.logger.Info("no migrations to revert")
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("find latest migration: %w", err)
	}

	if err := m.execFile(ctx, name+downSuffix); err != nil {
		return "", err
	}
	if _, err := m.conn.Exec(ctx, "DELETE FROM schema_migrations WHERE name=$1", name); err != nil {
		return "", fmt.Errorf("unrecord migration %s: %w", name, err)
	}
	m.logger.Info("migration reverted", "migration", name)
	return name, nil
}

// DropAll drops every table owned by the application.
func (m *Migrator) DropAll(ctx context.Context) error {
	m.logger.Info("dropping all tables")
	if err := m.execFile(ctx, dropAllFile); err != nil {
		return err
	}
	m.logger.Info("all tables dropped")
	return nil
}

// Consolidated applies the consolidated schema and marks every incremental
// migration as applied.
func (m *Migrator) Consolidated(ctx context.Context) error {
	m.logger.Info("applying consolidated schema")
	if err := m.execFile(ctx, consolidatedFile); err != nil {
		return err
	}
	if err := m.ensureSchemaMigrations(ctx); err != nil {
		return err
	}
	names, err := m.upFiles()
	if err != nil {
		return err
	}
	for _, filename := range names {
		name := strings.TrimSuffix(filename, upSuffix)
		if _, err := m.conn.Exec(ctx,
			"INSERT INTO schema_migrations (name) VALUES ($1) ON CONFLICT DO NOTHING", name,
		); err != nil {
			return fmt.Errorf("mark migration %s: %w", name, err)
		}
	}
	m.logger.Info("consolidated schema applied", "migrations_marked", len(names))
	return nil
}

func (m *Migrator) ensureSchemaMigrations(ctx context.Context) error {
	_, err := m.conn.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		name TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return nil
}

func (m *Migrator) upFiles() ([]string, error) {
	entries, err := fs.ReadDir(m.files, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), upSuffix) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (m *Migrator) execFile(ctx context.Context, filename string) error {
	sql, err := fs.ReadFile(m.files, filename)
	if err != nil {
		return fmt.Errorf("read %s: %w", filename, err)
	}
	if _, err := m.conn.Exec(ctx, string(sql)); err != nil {
		return fmt.Errorf("apply %s: %w", filename, err)
	}
	return nil
}
