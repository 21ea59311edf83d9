// Package service defines the contracts collaborators use to reach the
// persistence layer.
package service

import (
	"context"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// CategoryRepository manages transaction categories.
type CategoryRepository interface {
	Create(ctx context.Context, in model.CategoryInput) (*model.Category, error)
	GetByID(ctx context.Context, id int64) (*model.Category, error)
	GetByName(ctx context.Context, name string) (*model.Category, error)
	GetAll(ctx context.Context) ([]model.Category, error)
	Update(ctx context.Context, id int64, upd model.CategoryUpdate) (*model.Category, error)
	Delete(ctx context.Context, id int64) error
	CountDependents(ctx context.Context, id int64) (model.CategoryDependents, error)
	SeedDefaults(ctx context.Context) (int, error)
}

// TransactionRepository manages income and expense records.
type TransactionRepository interface {
	Create(ctx context.Context, in model.TransactionInput) (*model.Transaction, error)
	GetByID(ctx context.Context, id int64) (*model.Transaction, error)
	GetAll(ctx context.Context, filter model.TransactionFilter) ([]model.Transaction, error)
	Count(ctx context.Context, filter model.TransactionFilter) (int, error)
	GetByDateRange(ctx context.Context, start, end string) ([]model.Transaction, error)
	GetByCategory(ctx context.Context, categoryID int64) ([]model.Transaction, error)
	Update(ctx context.Context, id int64, upd model.TransactionUpdate) (*model.Transaction, error)
	Delete(ctx context.Context, id int64) error
	GetSummary(ctx context.Context, start, end string) (*model.TransactionSummary, error)
	GetSpendingByCategory(ctx context.Context, start, end string) ([]model.CategorySpending, error)
}

// BudgetRepository manages spending limits and reports progress against them.
type BudgetRepository interface {
	Create(ctx context.Context, in model.BudgetInput) (*model.Budget, error)
	GetByID(ctx context.Context, id int64) (*model.Budget, error)
	GetAll(ctx context.Context) ([]model.Budget, error)
	GetActive(ctx context.Context, date string) ([]model.Budget, error)
	Update(ctx context.Context, id int64, upd model.BudgetUpdate) (*model.Budget, error)
	Delete(ctx context.Context, id int64) error
	GetProgress(ctx context.Context, id int64, periodStart, periodEnd string) (*model.BudgetProgress, error)
	GetActiveProgress(ctx context.Context, date string) ([]model.BudgetProgress, error)
}

// SettingsRepository stores application preferences.
type SettingsRepository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value any) error
	GetAll(ctx context.Context) (map[string]string, error)
	Delete(ctx context.Context, key string) error
	GetWithDefault(ctx context.Context, key, fallback string) string
	GetMultiple(ctx context.Context, keys []string) (map[string]string, error)
	SetMultiple(ctx context.Context, values map[string]any) error
	InitializeDefaults(ctx context.Context) (int, error)
	GetString(ctx context.Context, key, fallback string) (string, error)
	GetBool(ctx context.Context, key string, fallback bool) (bool, error)
	GetNumber(ctx context.Context, key string, fallback float64) (float64, error)
}

// Lifecycle is driven by the host application at startup and teardown.
type Lifecycle interface {
	Initialize(ctx context.Context) error
	Shutdown() error
}
