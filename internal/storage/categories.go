package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// DefaultCategories is the catalog seeded on first launch.
var DefaultCategories = []model.CategoryInput{
	{Name: "Food", Icon: "restaurant", Color: "#FF6B6B"},
	{Name: "Transport", Icon: "car", Color: "#4ECDC4"},
	{Name: "Shopping", Icon: "cart", Color: "#FFD93D"},
	{Name: "Bills", Icon: "receipt", Color: "#6C5CE7"},
	{Name: "Entertainment", Icon: "film", Color: "#FD79A8"},
	{Name: "Health", Icon: "medkit", Color: "#00B894"},
	{Name: "Education", Icon: "school", Color: "#0984E3"},
	{Name: "Groceries", Icon: "basket", Color: "#E17055"},
	{Name: "Salary", Icon: "cash", Color: "#2ECC71"},
	{Name: "Other Income", Icon: "wallet", Color: "#27AE60"},
	{Name: "Uncategorized", Icon: "help-circle", Color: "#95A5A6"},
}

const categoryColumns = `id, name, icon, color, is_default, created_at`

// CategoryStore manages category records.
type CategoryStore struct {
	conn *Conn
}

// NewCategoryStore returns a category store backed by conn.
func NewCategoryStore(conn *Conn) *CategoryStore {
	return &CategoryStore{conn: conn}
}

// Create inserts a new user category. Names are unique after trimming.
func (s *CategoryStore) Create(ctx context.Context, in model.CategoryInput) (*model.Category, error) {
	const op = "create category"
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Icon = strings.TrimSpace(in.Icon)
	in.Color = strings.TrimSpace(in.Color)
	if err := validateStruct(op, in); err != nil {
		return nil, err
	}

	var category *model.Category
	err := s.conn.WithTx(ctx, func(tx *sql.Tx) error {
		existing, err := getCategoryByName(ctx, tx, in.Name)
		if err != nil {
			return err
		}
		if existing != nil {
			return constraintError(op, nil, "category %q already exists", in.Name)
		}

		now := time.Now().UTC()
		result, err := tx.ExecContext(ctx, `
			INSERT INTO categories (name, icon, color, is_default, created_at)
			VALUES (?, ?, ?, 0, ?)`,
			in.Name, nullString(in.Icon), nullString(in.Color), now)
		if err != nil {
			if isUniqueViolation(err) {
				return constraintError(op, err, "category %q already exists", in.Name)
			}
			return wrapExecErr(op, err, "create category")
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get category ID: %w", err)
		}

		category = &model.Category{
			ID:        id,
			Name:      in.Name,
			Icon:      in.Icon,
			Color:     in.Color,
			CreatedAt: now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("created new category", "name", category.Name, "id", category.ID)
	return category, nil
}

// GetByID returns the category with the given id.
func (s *CategoryStore) GetByID(ctx context.Context, id int64) (*model.Category, error) {
	const op = "get category"
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(op, "id", id); err != nil {
		return nil, err
	}

	db, err := s.conn.Open(ctx)
	if err != nil {
		return nil, err
	}

	category, err := getCategoryByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, notFoundError(op, "category", id)
	}
	return category, nil
}

// GetByName returns the category with exactly this (trimmed) name, or nil
// if there is none.
func (s *CategoryStore) GetByName(ctx context.Context, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("get category", "name is required")
	}

	db, err := s.conn.Open(ctx)
	if err != nil {
		return nil, err
	}
	return getCategoryByName(ctx, db, name)
}

// GetAll returns every category, defaults first and then by name.
func (s *CategoryStore) GetAll(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	db, err := s.conn.Open(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT `+categoryColumns+`
		FROM categories
		ORDER BY is_default DESC, name ASC`)
	if err != nil {
		return nil, wrapExecErr("list categories", err, "query categories")
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	slog.Debug("retrieved categories", "count", len(categories))
	return categories, nil
}

// Update changes the non-nil fields of a category and returns the result.
func (s *CategoryStore) Update(ctx context.Context, id int64, upd model.CategoryUpdate) (*model.Category, error) {
	const op = "update category"
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(op, "id", id); err != nil {
		return nil, err
	}

	trimPtr(upd.Name)
	trimPtr(upd.Icon)
	trimPtr(upd.Color)
	if upd.Name != nil && *upd.Name == "" {
		return nil, validationError(op, "name is required")
	}
	check := upd
	if check.Color != nil && *check.Color == "" {
		check.Color = nil
	}
	if err := validateStruct(op, check); err != nil {
		return nil, err
	}

	var updated *model.Category
	err := s.conn.WithTx(ctx, func(tx *sql.Tx) error {
		current, err := getCategoryByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return notFoundError(op, "category", id)
		}

		if upd.Name != nil && *upd.Name != current.Name {
			clash, err := getCategoryByName(ctx, tx, *upd.Name)
			if err != nil {
				return err
			}
			if clash != nil {
				return constraintError(op, nil, "category %q already exists", *upd.Name)
			}
			current.Name = *upd.Name
		}
		if upd.Icon != nil {
			current.Icon = *upd.Icon
		}
		if upd.Color != nil {
			current.Color = *upd.Color
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE categories SET name = ?, icon = ?, color = ?
			WHERE id = ?`,
			current.Name, nullString(current.Icon), nullString(current.Color), id)
		if err != nil {
			if isUniqueViolation(err) {
				return constraintError(op, err, "category %q already exists", current.Name)
			}
			return wrapExecErr(op, err, "update category")
		}

		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("updated category", "id", id, "name", updated.Name)
	return updated, nil
}

// Delete removes a category that no transaction or budget references.
// It never cascades.
func (s *CategoryStore) Delete(ctx context.Context, id int64) error {
	const op = "delete category"
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(op, "id", id); err != nil {
		return err
	}

	err := s.conn.WithTx(ctx, func(tx *sql.Tx) error {
		current, err := getCategoryByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return notFoundError(op, "category", id)
		}

		deps, err := countDependents(ctx, tx, id)
		if err != nil {
			return err
		}
		if deps.Total() > 0 {
			return constraintError(op, nil,
				"cannot delete category %q: %d dependents (%d transactions, %d budgets)",
				current.Name, deps.Total(), deps.Transactions, deps.Budgets)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
			if isForeignKeyViolation(err) {
				return constraintError(op, err, "cannot delete category %q: it is still referenced", current.Name)
			}
			return wrapExecErr(op, err, "delete category")
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("deleted category", "id", id)
	return nil
}

// CountDependents returns how many transactions and budgets reference a category.
func (s *CategoryStore) CountDependents(ctx context.Context, id int64) (model.CategoryDependents, error) {
	if err := validateContext(ctx); err != nil {
		return model.CategoryDependents{}, err
	}
	db, err := s.conn.Open(ctx)
	if err != nil {
		return model.CategoryDependents{}, err
	}
	return countDependents(ctx, db, id)
}

// SeedDefaults inserts the default catalog, skipping names that already
// exist. It returns how many categories were added.
func (s *CategoryStore) SeedDefaults(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	inserted := 0
	err := s.conn.WithTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		for _, cat := range DefaultCategories {
			result, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO categories (name, icon, color, is_default, created_at)
				VALUES (?, ?, ?, 1, ?)`,
				cat.Name, nullString(cat.Icon), nullString(cat.Color), now)
			if err != nil {
				return wrapExecErr("seed categories", err, fmt.Sprintf("seed category %q", cat.Name))
			}
			n, _ := result.RowsAffected()
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	slog.Info("seeded default categories", "inserted", inserted, "catalog", len(DefaultCategories))
	return inserted, nil
}

func getCategoryByID(ctx context.Context, q queryable, id int64) (*model.Category, error) {
	row := q.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
	cat, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return cat, err
}

func getCategoryByName(ctx context.Context, q queryable, name string) (*model.Category, error) {
	row := q.QueryRowContext(ctx, `SELECT `+categoryColumns+` FROM categories WHERE name = ?`, name)
	cat, err := scanCategory(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return cat, err
}

func countDependents(ctx context.Context, q queryable, id int64) (model.CategoryDependents, error) {
	var deps model.CategoryDependents
	err := q.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM transactions WHERE category_id = ?),
			(SELECT COUNT(*) FROM budgets WHERE category_id = ?)`,
		id, id).Scan(&deps.Transactions, &deps.Budgets)
	if err != nil {
		return deps, wrapExecErr("count dependents", err, "count category dependents")
	}
	return deps, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCategory(row scanner) (*model.Category, error) {
	var (
		cat         model.Category
		icon, color sql.NullString
		createdAt   sql.NullTime
	)
	err := row.Scan(&cat.ID, &cat.Name, &icon, &color, &cat.IsDefault, &createdAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan category: %w", err)
	}
	cat.Icon = icon.String
	cat.Color = color.String
	cat.CreatedAt = createdAt.Time
	return &cat, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
