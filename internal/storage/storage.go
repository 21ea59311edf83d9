package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/spice-ledger/internal/service"
)

// Compile-time interface checks.
var (
	_ service.CategoryRepository    = (*CategoryStore)(nil)
	_ service.TransactionRepository = (*TransactionStore)(nil)
	_ service.BudgetRepository      = (*BudgetStore)(nil)
	_ service.SettingsRepository    = (*SettingsStore)(nil)
	_ service.Lifecycle             = (*Storage)(nil)
)

// Storage bundles the stores that share one connection.
type Storage struct {
	Conn         *Conn
	Schema       *Migrator
	Categories   *CategoryStore
	Transactions *TransactionStore
	Budgets      *BudgetStore
	Settings     *SettingsStore
}

// New wires every store to a single, not yet opened connection at path.
func New(path string) *Storage {
	return NewWithConn(NewConn(path))
}

// NewWithConn wires every store to conn.
func NewWithConn(conn *Conn) *Storage {
	return &Storage{
		Conn:         conn,
		Schema:       NewMigrator(conn),
		Categories:   NewCategoryStore(conn),
		Transactions: NewTransactionStore(conn),
		Budgets:      NewBudgetStore(conn),
		Settings:     NewSettingsStore(conn),
	}
}

// Initialize opens the database, brings the schema up to date and, on the
// very first launch, seeds default categories and settings.
func (s *Storage) Initialize(ctx context.Context) error {
	if _, err := s.Conn.Open(ctx); err != nil {
		return err
	}

	firstLaunch, err := s.Schema.IsFirstLaunch(ctx)
	if err != nil {
		return fmt.Errorf("failed to detect first launch: %w", err)
	}

	if err := s.Schema.RunMigrations(ctx); err != nil {
		return err
	}

	if !firstLaunch {
		slog.Debug("database initialized", "path", s.Conn.Path())
		return nil
	}

	categories, err := s.Categories.SeedDefaults(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed default categories: %w", err)
	}
	settings, err := s.Settings.InitializeDefaults(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed default settings: %w", err)
	}

	slog.Info("first launch setup complete",
		"path", s.Conn.Path(),
		"categories", categories,
		"settings", settings)
	return nil
}

// Shutdown closes the connection. It is safe to call more than once.
func (s *Storage) Shutdown() error {
	return s.Conn.Close()
}
