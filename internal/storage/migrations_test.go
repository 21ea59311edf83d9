package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-ledger/internal/model"
)

func countSchemaObjects(t *testing.T, conn *Conn, kind, pattern string) int64 {
	t.Helper()
	res, err := conn.Execute(context.Background(),
		`SELECT COUNT(*) AS n FROM sqlite_master WHERE type = ? AND name LIKE ? AND name NOT LIKE 'sqlite_%'`,
		kind, pattern)
	require.NoError(t, err)
	return res.Row(0).Int64("n")
}

func TestMigrator_FreshDatabase(t *testing.T) {
	ctx := context.Background()
	conn := NewConn(MemoryPath)
	t.Cleanup(func() { _ = conn.Close() })
	migrator := NewMigrator(conn)

	version, err := migrator.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, version)

	first, err := migrator.IsFirstLaunch(ctx)
	require.NoError(t, err)
	assert.True(t, first)

	require.NoError(t, migrator.RunMigrations(ctx))

	version, err = migrator.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, version)

	first, err = migrator.IsFirstLaunch(ctx)
	require.NoError(t, err)
	assert.False(t, first)

	assert.Equal(t, int64(4), countSchemaObjects(t, conn, "table", "%"))
	assert.Equal(t, int64(4), countSchemaObjects(t, conn, "index", "idx_%"))
}

func TestMigrator_RunMigrationsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := createEmptyStorage(t)

	_, err := store.Categories.Create(ctx, model.CategoryInput{Name: "Travel"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Schema.RunMigrations(ctx))
	}

	assert.Equal(t, int64(4), countSchemaObjects(t, store.Conn, "table", "%"))
	assert.Equal(t, int64(4), countSchemaObjects(t, store.Conn, "index", "idx_%"))

	travel, err := store.Categories.GetByName(ctx, "Travel")
	require.NoError(t, err)
	assert.NotNil(t, travel, "data must survive re-running migrations")
}

func TestMigrator_RefusesNewerSchema(t *testing.T) {
	ctx := context.Background()
	store := createEmptyStorage(t)

	_, err := store.Conn.Execute(ctx, `UPDATE settings SET value = '7' WHERE key = ?`, model.SettingDBVersion)
	require.NoError(t, err)

	err = store.Schema.RunMigrations(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than supported")
}

func TestMigrator_AppliesPendingInOrder(t *testing.T) {
	ctx := context.Background()
	store := createEmptyStorage(t)

	var applied []int
	pending := append([]Migration{}, migrations...)
	pending = append(pending,
		Migration{
			Version:     2,
			Description: "Add receipts table",
			Up: func(tx *sql.Tx) error {
				applied = append(applied, 2)
				_, err := tx.Exec(`CREATE TABLE receipts (id INTEGER PRIMARY KEY)`)
				return err
			},
		},
		Migration{
			Version:     3,
			Description: "Add receipt path",
			Up: func(tx *sql.Tx) error {
				applied = append(applied, 3)
				_, err := tx.Exec(`ALTER TABLE receipts ADD COLUMN path TEXT`)
				return err
			},
		},
	)

	migrator := &Migrator{conn: store.Conn, migrations: pending, target: 3}
	require.NoError(t, migrator.RunMigrations(ctx))
	assert.Equal(t, []int{2, 3}, applied)

	version, err := migrator.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, version)
	assert.Equal(t, int64(1), countSchemaObjects(t, store.Conn, "table", "receipts"))
}

func TestMigrator_FailedMigrationKeepsVersion(t *testing.T) {
	ctx := context.Background()
	store := createEmptyStorage(t)

	boom := errors.New("boom")
	pending := append([]Migration{}, migrations...)
	pending = append(pending, Migration{
		Version:     2,
		Description: "Broken",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`CREATE TABLE half_done (id INTEGER)`); err != nil {
				return err
			}
			return boom
		},
	})

	migrator := &Migrator{conn: store.Conn, migrations: pending, target: 2}
	err := migrator.RunMigrations(ctx)
	require.ErrorIs(t, err, boom)

	version, err := migrator.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
	assert.Equal(t, int64(0), countSchemaObjects(t, store.Conn, "table", "half_done"))
}

func TestMigrator_DropAllTables(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	food, err := store.Categories.GetByName(ctx, "Food")
	require.NoError(t, err)
	createTransaction(t, store, expense("12.50", "2024-01-05", &food.ID))

	require.NoError(t, store.Schema.DropAllTables(ctx))
	assert.Equal(t, int64(0), countSchemaObjects(t, store.Conn, "table", "%"))

	first, err := store.Schema.IsFirstLaunch(ctx)
	require.NoError(t, err)
	assert.True(t, first)

	require.NoError(t, store.Schema.RunMigrations(ctx))
	count, err := store.Transactions.Count(ctx, model.TransactionFilter{})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
