package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/storage"
	"github.com/Veraticus/spice-ledger/internal/testutil"
)

// runCLI executes the root command against dbPath and returns everything it
// wrote to stdout and stderr.
func runCLI(t *testing.T, dbPath, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--db", dbPath, "--log-level", "error"}, args...))

	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func tempDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "ledger.db")
}

func findCommand(cmd *cobra.Command, name string) *cobra.Command {
	for _, sub := range cmd.Commands() {
		if sub.Name() == name {
			return sub
		}
	}
	return nil
}

func TestRootCmd(t *testing.T) {
	cmd := newRootCmd()

	for _, name := range []string{"init", "migrate", "reset", "categories", "transactions", "budgets", "settings", "version"} {
		assert.NotNil(t, findCommand(cmd, name), "%s subcommand should exist", name)
	}

	for _, flag := range []string{"config", "db", "log-level", "log-format"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "--%s flag should exist", flag)
	}
}

func TestSubcommands(t *testing.T) {
	tests := []struct {
		parent string
		want   []string
	}{
		{"categories", []string{"list", "add", "update", "delete", "seed"}},
		{"transactions", []string{"list", "add", "update", "delete", "summary", "spending"}},
		{"budgets", []string{"list", "active", "add", "update", "delete", "progress"}},
		{"settings", []string{"list", "get", "set", "delete"}},
	}

	root := newRootCmd()
	for _, tt := range tests {
		t.Run(tt.parent, func(t *testing.T) {
			parent := findCommand(root, tt.parent)
			require.NotNil(t, parent)
			for _, name := range tt.want {
				assert.NotNil(t, findCommand(parent, name), "%s %s should exist", tt.parent, name)
			}
		})
	}
}

func TestAddTransactionCmd_Defaults(t *testing.T) {
	cmd := addTransactionCmd(&app{})

	assert.Equal(t, "expense", cmd.Flag("type").DefValue)
	assert.Equal(t, "manual", cmd.Flag("source").DefValue)
	assert.Equal(t, "", cmd.Flag("date").DefValue)
}

func TestAddBudgetCmd_Defaults(t *testing.T) {
	cmd := addBudgetCmd(&app{})

	assert.Equal(t, "monthly", cmd.Flag("period").DefValue)
	assert.Equal(t, "", cmd.Flag("end").DefValue)
}

func TestVersionCmd(t *testing.T) {
	out, err := runCLI(t, tempDB(t), "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "ledger dev")
	assert.Contains(t, out, "schema v1")
}

func TestInitCmd(t *testing.T) {
	dbPath := tempDB(t)

	out, err := runCLI(t, dbPath, "", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Created ledger at "+dbPath)
	assert.FileExists(t, dbPath)

	out, err = runCLI(t, dbPath, "", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Ledger already initialized")
}

func TestMigrateCmd(t *testing.T) {
	dbPath := tempDB(t)

	out, err := runCLI(t, dbPath, "", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "Database is at schema version 1")

	out, err = runCLI(t, dbPath, "", "migrate", "--status")
	require.NoError(t, err)
	assert.Contains(t, out, "Current version: 1")
	assert.Contains(t, out, "Latest version:  1")
	assert.NotContains(t, out, "pending")
}

func TestResetCmd(t *testing.T) {
	t.Run("declined", func(t *testing.T) {
		dbPath := tempDB(t)
		_, err := runCLI(t, dbPath, "", "init")
		require.NoError(t, err)

		out, err := runCLI(t, dbPath, "n\n", "reset")
		require.NoError(t, err)
		assert.Contains(t, out, "[y/N]")
		assert.Contains(t, out, "Reset canceled.")
		assert.FileExists(t, dbPath)
	})

	t.Run("confirmed", func(t *testing.T) {
		dbPath := tempDB(t)
		_, err := runCLI(t, dbPath, "", "init")
		require.NoError(t, err)

		out, err := runCLI(t, dbPath, "y\n", "reset")
		require.NoError(t, err)
		assert.Contains(t, out, "Deleted "+dbPath)
		assert.NoFileExists(t, dbPath)
	})

	t.Run("yes flag", func(t *testing.T) {
		dbPath := tempDB(t)
		_, err := runCLI(t, dbPath, "", "init")
		require.NoError(t, err)

		_, err = runCLI(t, dbPath, "", "reset", "--yes")
		require.NoError(t, err)
		assert.NoFileExists(t, dbPath)

		out, err := runCLI(t, dbPath, "", "init")
		require.NoError(t, err)
		assert.Contains(t, out, "Created ledger at")
	})

	t.Run("drop tables", func(t *testing.T) {
		dbPath := tempDB(t)
		_, err := runCLI(t, dbPath, "", "init")
		require.NoError(t, err)

		out, err := runCLI(t, dbPath, "", "reset", "-y", "--drop-tables")
		require.NoError(t, err)
		assert.Contains(t, out, "Dropped all tables")
		assert.FileExists(t, dbPath)
	})
}

func TestCategoriesFlow(t *testing.T) {
	dbPath := tempDB(t)

	out, err := runCLI(t, dbPath, "", "categories", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Groceries")
	assert.Contains(t, out, "Uncategorized")

	out, err = runCLI(t, dbPath, "", "categories", "add", "Pets", "--icon", "paw", "--color", "#AABBCC")
	require.NoError(t, err)
	assert.Contains(t, out, "Pets")

	_, err = runCLI(t, dbPath, "", "categories", "add", "Pets")
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrConstraint)

	_, err = runCLI(t, dbPath, "", "categories", "add", "Bad", "--color", "blue")
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrValidation)
	assert.True(t, strings.HasPrefix(common.UserMessage(err), "Invalid input: "))

	store := storage.New(dbPath)
	t.Cleanup(func() { _ = store.Shutdown() })
	pets, err := store.Categories.GetByName(context.Background(), "Pets")
	require.NoError(t, err)
	require.NotNil(t, pets)
	require.NoError(t, store.Shutdown())

	id := itoa(pets.ID)
	_, err = runCLI(t, dbPath, "", "categories", "update", id, "--name", "Pet Care")
	require.NoError(t, err)

	out, err = runCLI(t, dbPath, "", "categories", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Pet Care")

	out, err = runCLI(t, dbPath, "", "categories", "delete", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted category "+id)

	_, err = runCLI(t, dbPath, "", "categories", "delete", id)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = runCLI(t, dbPath, "", "categories", "delete", "abc")
	var userErr *common.UserError
	require.ErrorAs(t, err, &userErr)
	assert.Contains(t, userErr.UserMessage, `Invalid category ID "abc"`)

	out, err = runCLI(t, dbPath, "", "categories", "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "All default categories are present")
}

func TestTransactionsFlow(t *testing.T) {
	db, dbPath := testutil.SetupFileDB(t)
	db.AddTransaction(model.TransactionTypeIncome, "1000", "2026-03-01", "Salary")
	require.NoError(t, db.Storage.Shutdown())

	out, err := runCLI(t, dbPath, "", "transactions", "add", "42.50", "Lunch",
		"--category", "Food", "--date", "2026-03-05")
	require.NoError(t, err)
	assert.Contains(t, out, "expense 42.50 on 2026-03-05")

	_, err = runCLI(t, dbPath, "", "transactions", "add", "7.5", "Coffee", "--date", "2026-03-06")
	require.NoError(t, err)

	out, err = runCLI(t, dbPath, "", "transactions", "list", "--from", "2026-03-01", "--to", "2026-03-31")
	require.NoError(t, err)
	assert.Contains(t, out, "Lunch")
	assert.Contains(t, out, "Coffee")
	assert.Contains(t, out, "(uncategorized)")
	assert.Contains(t, out, "Showing 3 of 3")

	out, err = runCLI(t, dbPath, "", "transactions", "list", "--category", "Food")
	require.NoError(t, err)
	assert.Contains(t, out, "Lunch")
	assert.NotContains(t, out, "Coffee")

	out, err = runCLI(t, dbPath, "", "transactions", "summary", "--from", "2026-03-01", "--to", "2026-03-31")
	require.NoError(t, err)
	assert.Contains(t, out, "1000.00")
	assert.Contains(t, out, "50.00")
	assert.Contains(t, out, "950.00")

	out, err = runCLI(t, dbPath, "", "transactions", "spending", "--from", "2026-03-01", "--to", "2026-03-31")
	require.NoError(t, err)
	assert.Contains(t, out, "Food")
	assert.Contains(t, out, "42.50")
	assert.NotContains(t, out, "Salary")

	out, err = runCLI(t, dbPath, "", "transactions", "spending", "--from", "2025-01-01", "--to", "2025-01-31")
	require.NoError(t, err)
	assert.Contains(t, out, "No expenses between 2025-01-01 and 2025-01-31")

	_, err = runCLI(t, dbPath, "", "transactions", "summary", "--from", "2026-03-31", "--to", "2026-03-01")
	assert.ErrorIs(t, err, storage.ErrValidation)

	_, err = runCLI(t, dbPath, "", "transactions", "add", "ten", "Bad")
	var userErr *common.UserError
	require.ErrorAs(t, err, &userErr)
	assert.Contains(t, userErr.UserMessage, `Invalid amount "ten"`)

	_, err = runCLI(t, dbPath, "", "transactions", "add", "0", "Nothing")
	assert.ErrorIs(t, err, storage.ErrValidation)

	_, err = runCLI(t, dbPath, "", "transactions", "add", "5", "Nowhere", "--category", "Missing")
	require.ErrorAs(t, err, &userErr)
	assert.Contains(t, userErr.UserMessage, `Category "Missing" not found`)
}

func TestTransactionUpdateAndDelete(t *testing.T) {
	db, dbPath := testutil.SetupFileDB(t)
	txn := db.AddTransaction(model.TransactionTypeExpense, "20", "2026-04-02", "Food")
	require.NoError(t, db.Storage.Shutdown())
	id := itoa(txn.ID)

	out, err := runCLI(t, dbPath, "", "transactions", "update", id, "--amount", "25", "--uncategorize")
	require.NoError(t, err)
	assert.Contains(t, out, "Updated transaction "+id)

	got, err := db.Storage.Transactions.GetByID(context.Background(), txn.ID)
	require.NoError(t, err)
	assert.Equal(t, "25.00", got.Amount.StringFixed(2))
	assert.Nil(t, got.CategoryID)
	assert.Equal(t, "2026-04-02", got.Date)
	require.NoError(t, db.Storage.Shutdown())

	out, err = runCLI(t, dbPath, "", "transactions", "delete", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted transaction "+id)

	_, err = runCLI(t, dbPath, "", "transactions", "delete", id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, "Not found: transaction "+id+" not found", common.UserMessage(err))
}

func TestBudgetsFlow(t *testing.T) {
	db, dbPath := testutil.SetupFileDB(t)
	db.AddTransaction(model.TransactionTypeExpense, "85", "2026-03-10", "Food")
	db.AddTransaction(model.TransactionTypeExpense, "40", "2026-03-12", "Transport")
	require.NoError(t, db.Storage.Shutdown())

	out, err := runCLI(t, dbPath, "", "budgets", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No budgets found")

	out, err = runCLI(t, dbPath, "", "budgets", "add", "Food", "100", "--start", "2026-03-01", "--end", "2026-03-31")
	require.NoError(t, err)
	assert.Contains(t, out, "Created monthly budget")
	assert.Contains(t, out, "Food: 100.00")

	budgets, err := db.Storage.Budgets.GetAll(context.Background())
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	require.NoError(t, db.Storage.Shutdown())
	id := itoa(budgets[0].ID)

	out, err = runCLI(t, dbPath, "", "budgets", "progress", id, "--from", "2026-03-01", "--to", "2026-03-31")
	require.NoError(t, err)
	assert.Contains(t, out, "85.00")
	assert.Contains(t, out, "85.0%")
	assert.Contains(t, out, "warning")

	out, err = runCLI(t, dbPath, "", "budgets", "active", "--date", "2026-03-15")
	require.NoError(t, err)
	assert.Contains(t, out, "Food")

	out, err = runCLI(t, dbPath, "", "budgets", "active", "--date", "2026-04-15")
	require.NoError(t, err)
	assert.Contains(t, out, "No active budgets.")

	_, err = runCLI(t, dbPath, "", "budgets", "update", id, "--amount", "80", "--clear-end")
	require.NoError(t, err)

	out, err = runCLI(t, dbPath, "", "budgets", "progress", id, "--from", "2026-03-01", "--to", "2026-03-31")
	require.NoError(t, err)
	assert.Contains(t, out, "exceeded")

	out, err = runCLI(t, dbPath, "", "budgets", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "80.00")
	assert.Contains(t, out, "-")

	_, err = runCLI(t, dbPath, "", "budgets", "add", "Food", "0")
	assert.ErrorIs(t, err, storage.ErrValidation)

	_, err = runCLI(t, dbPath, "", "budgets", "add", "Food", "50", "--period", "yearly")
	assert.ErrorIs(t, err, storage.ErrValidation)

	out, err = runCLI(t, dbPath, "", "budgets", "delete", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted budget "+id)

	_, err = runCLI(t, dbPath, "", "budgets", "progress", id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCategoryDeleteBlockedByBudget(t *testing.T) {
	db, dbPath := testutil.SetupFileDB(t)
	food := db.MustCategory("Food")
	db.AddBudget("Food", "100", "2026-03-01")
	require.NoError(t, db.Storage.Shutdown())

	_, err := runCLI(t, dbPath, "", "categories", "delete", itoa(food.ID))
	require.ErrorIs(t, err, storage.ErrConstraint)
	assert.Contains(t, common.UserMessage(err), "Not allowed: ")
}

func TestSettingsFlow(t *testing.T) {
	dbPath := tempDB(t)

	out, err := runCLI(t, dbPath, "", "settings", "list")
	require.NoError(t, err)
	for _, key := range []string{"currency", "theme", "notifications_enabled", "db_version"} {
		assert.Contains(t, out, key)
	}

	out, err = runCLI(t, dbPath, "", "settings", "get", "currency")
	require.NoError(t, err)
	assert.Equal(t, "USD\n", out)

	_, err = runCLI(t, dbPath, "", "settings", "set", "currency", "EUR")
	require.NoError(t, err)

	out, err = runCLI(t, dbPath, "", "settings", "get", "currency")
	require.NoError(t, err)
	assert.Equal(t, "EUR\n", out)

	_, err = runCLI(t, dbPath, "", "settings", "delete", "currency")
	require.NoError(t, err)

	_, err = runCLI(t, dbPath, "", "settings", "get", "currency")
	var userErr *common.UserError
	require.ErrorAs(t, err, &userErr)
	assert.Contains(t, userErr.UserMessage, `Setting "currency" is not set`)

	_, err = runCLI(t, dbPath, "", "settings", "set", "db_version", "9")
	assert.ErrorIs(t, err, storage.ErrValidation)

	_, err = runCLI(t, dbPath, "", "settings", "delete", "db_version")
	assert.ErrorIs(t, err, storage.ErrValidation)
}

func TestConfigFromEnvironment(t *testing.T) {
	dbPath := tempDB(t)
	t.Setenv("LEDGER_DATABASE_PATH", dbPath)
	t.Setenv("HOME", t.TempDir())

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--log-level", "error", "init"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	assert.Contains(t, out.String(), "Created ledger at "+dbPath)
	_, err := os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := runCLI(t, tempDB(t), "", "--log-level", "loud", "version")
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestParseID(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		want    int64
		wantErr bool
	}{
		{"valid", "42", 42, false},
		{"padded", " 7 ", 7, false},
		{"zero", "0", 0, true},
		{"negative", "-3", 0, true},
		{"word", "seven", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseID(tt.arg, "budget")
			if tt.wantErr {
				var userErr *common.UserError
				require.ErrorAs(t, err, &userErr)
				assert.Contains(t, userErr.UserMessage, "Invalid budget ID")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveCategory(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	food := db.MustCategory("Food")

	id, err := resolveCategory(ctx, db.Storage, "Food")
	require.NoError(t, err)
	assert.Equal(t, food.ID, id)

	id, err = resolveCategory(ctx, db.Storage, itoa(food.ID))
	require.NoError(t, err)
	assert.Equal(t, food.ID, id)

	_, err = resolveCategory(ctx, db.Storage, "9999")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = resolveCategory(ctx, db.Storage, "Nope")
	var userErr *common.UserError
	assert.ErrorAs(t, err, &userErr)
}

func TestMonthBounds(t *testing.T) {
	tests := []struct {
		date      time.Time
		wantStart string
		wantEnd   string
	}{
		{time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC), "2026-02-01", "2026-02-28"},
		{time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), "2024-02-01", "2024-02-29"},
		{time.Date(2026, 12, 31, 23, 0, 0, 0, time.UTC), "2026-12-01", "2026-12-31"},
	}

	for _, tt := range tests {
		start, end := monthBounds(tt.date)
		assert.Equal(t, tt.wantStart, start)
		assert.Equal(t, tt.wantEnd, end)
	}
}

func TestWindowFlags(t *testing.T) {
	from, to := windowFlags("2026-01-01", "2026-01-15")
	assert.Equal(t, "2026-01-01", from)
	assert.Equal(t, "2026-01-15", to)

	start, end := monthBounds(time.Now())
	from, to = windowFlags("", "")
	assert.Equal(t, start, from)
	assert.Equal(t, end, to)
}
