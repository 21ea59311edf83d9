// Package testutil provides helpers for tests that need a live ledger database.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/storage"
)

// TestDB is an initialized ledger database scoped to one test.
type TestDB struct {
	Storage *storage.Storage
	t       *testing.T
}

// SetupTestDB creates an in-memory database with the schema applied and the
// default categories and settings seeded. It is closed when the test ends.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	return setup(t, storage.MemoryPath)
}

// SetupFileDB is SetupTestDB backed by a file in a per-test directory, for
// tests that reopen the database by path.
func SetupFileDB(t *testing.T) (*TestDB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ledger.db")
	return setup(t, path), path
}

func setup(t *testing.T, path string) *TestDB {
	t.Helper()

	store := storage.New(path)
	require.NoError(t, store.Initialize(context.Background()), "failed to initialize test database")
	t.Cleanup(func() { _ = store.Shutdown() })

	return &TestDB{Storage: store, t: t}
}

// MustCategory returns the category with the given name or fails the test.
func (db *TestDB) MustCategory(name string) *model.Category {
	db.t.Helper()
	cat, err := db.Storage.Categories.GetByName(context.Background(), name)
	require.NoError(db.t, err)
	require.NotNil(db.t, cat, "category %q does not exist", name)
	return cat
}

// AddTransaction records a transaction and fails the test on error. An empty
// category name leaves it uncategorized.
func (db *TestDB) AddTransaction(txnType model.TransactionType, amount, date, category string) *model.Transaction {
	db.t.Helper()

	in := model.TransactionInput{
		Amount:      decimal.RequireFromString(amount),
		Description: string(txnType) + " " + amount,
		Date:        date,
		Type:        txnType,
	}
	if category != "" {
		in.CategoryID = &db.MustCategory(category).ID
	}

	txn, err := db.Storage.Transactions.Create(context.Background(), in)
	require.NoError(db.t, err)
	return txn
}

// AddBudget creates a monthly budget and fails the test on error.
func (db *TestDB) AddBudget(category, amount, start string) *model.Budget {
	db.t.Helper()

	budget, err := db.Storage.Budgets.Create(context.Background(), model.BudgetInput{
		CategoryID: db.MustCategory(category).ID,
		Amount:     decimal.RequireFromString(amount),
		Period:     model.BudgetPeriodMonthly,
		StartDate:  start,
	})
	require.NoError(db.t, err)
	return budget
}
