package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// CurrentSchemaVersion is the schema version this build migrates to.
const CurrentSchemaVersion = 1

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS categories (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					name TEXT UNIQUE NOT NULL,
					icon TEXT,
					color TEXT,
					is_default INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					amount REAL NOT NULL CHECK (amount > 0),
					description TEXT NOT NULL,
					date TEXT NOT NULL,
					type TEXT NOT NULL CHECK (type IN ('income', 'expense')),
					category_id INTEGER REFERENCES categories(id),
					is_manually_set INTEGER NOT NULL DEFAULT 0,
					source TEXT NOT NULL DEFAULT 'manual' CHECK (source IN ('manual', 'sms', 'upload')),
					raw_data TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS budgets (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					category_id INTEGER NOT NULL REFERENCES categories(id),
					amount REAL NOT NULL CHECK (amount > 0),
					period TEXT NOT NULL CHECK (period IN ('monthly', 'weekly')),
					start_date TEXT NOT NULL,
					end_date TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS settings (
					key TEXT PRIMARY KEY,
					value TEXT NOT NULL,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions(date)`,
				`CREATE INDEX IF NOT EXISTS idx_transactions_category_id ON transactions(category_id)`,
				`CREATE INDEX IF NOT EXISTS idx_transactions_type ON transactions(type)`,
				`CREATE INDEX IF NOT EXISTS idx_budgets_category_id ON budgets(category_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query '%s': %w", query, err)
				}
			}
			return nil
		},
	},
}

// dropOrder lists tables with foreign keys before the tables they reference.
var dropOrder = []string{"transactions", "budgets", "categories", "settings"}

// Migrator applies the schema and tracks its version in the settings table.
type Migrator struct {
	conn       *Conn
	migrations []Migration
	target     int
}

// NewMigrator returns a migrator for the current schema.
func NewMigrator(conn *Conn) *Migrator {
	return &Migrator{conn: conn, migrations: migrations, target: CurrentSchemaVersion}
}

// Version returns the persisted schema version, or 0 when the settings
// table does not exist yet or holds no version.
func (m *Migrator) Version(ctx context.Context) (int, error) {
	db, err := m.conn.Open(ctx)
	if err != nil {
		return 0, err
	}
	return readVersion(ctx, db)
}

func readVersion(ctx context.Context, q queryable) (int, error) {
	var tables int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'settings'`,
	).Scan(&tables)
	if err != nil {
		return 0, wrapExecErr("version", err, "check settings table")
	}
	if tables == 0 {
		return 0, nil
	}

	var raw string
	err = q.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, model.SettingDBVersion).Scan(&raw)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, wrapExecErr("version", err, "read schema version")
	}

	version, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("stored schema version %q is not a number: %w", raw, err)
	}
	return version, nil
}

// IsFirstLaunch reports whether no schema version has been persisted yet.
func (m *Migrator) IsFirstLaunch(ctx context.Context) (bool, error) {
	version, err := m.Version(ctx)
	if err != nil {
		return false, err
	}
	return version == 0, nil
}

// RunMigrations brings the schema up to the current version. Each pending
// migration commits together with its version bump; an up-to-date schema is
// left untouched.
func (m *Migrator) RunMigrations(ctx context.Context) error {
	current, err := m.Version(ctx)
	if err != nil {
		return err
	}

	if current > m.target {
		return fmt.Errorf("database schema version %d is newer than supported version %d", current, m.target)
	}
	if current == m.target {
		slog.Debug("schema is up to date", "version", current)
		return nil
	}

	for _, migration := range m.migrations {
		if migration.Version <= current || migration.Version > m.target {
			continue
		}

		err := m.conn.WithTx(ctx, func(tx *sql.Tx) error {
			if upErr := migration.Up(tx); upErr != nil {
				return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
			}
			return writeVersion(ctx, tx, migration.Version)
		})
		if err != nil {
			return err
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	final, err := m.Version(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}
	if final != m.target {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", m.target, final)
	}
	return nil
}

func writeVersion(ctx context.Context, tx *sql.Tx, version int) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		model.SettingDBVersion, strconv.Itoa(version), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update schema version: %w", err)
	}
	return nil
}

// DropAllTables removes every table, dependents first. Test isolation only.
func (m *Migrator) DropAllTables(ctx context.Context) error {
	return m.conn.WithTx(ctx, func(tx *sql.Tx) error {
		for _, table := range dropOrder {
			if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
				return fmt.Errorf("failed to drop table %s: %w", table, err)
			}
		}
		slog.Info("dropped all tables")
		return nil
	})
}
