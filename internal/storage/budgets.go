package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/spice-ledger/internal/model"
)

const budgetSelect = `
	SELECT b.id, b.category_id, b.amount, b.period, b.start_date, b.end_date,
	       b.created_at, b.updated_at, c.name, c.icon, c.color
	FROM budgets b
	LEFT JOIN categories c ON c.id = b.category_id`

var hundred = decimal.NewFromInt(100)

// BudgetStore manages budgets and derives their progress from transactions.
type BudgetStore struct {
	conn *Conn
}

// NewBudgetStore returns a budget store backed by conn.
func NewBudgetStore(conn *Conn) *BudgetStore {
	return &BudgetStore{conn: conn}
}

// Create validates and inserts a budget. The category must exist.
// Overlapping budgets for the same category are allowed.
func (s *BudgetStore) Create(ctx context.Context, in model.BudgetInput) (*model.Budget, error) {
	const op = "create budget"
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	in.StartDate = strings.TrimSpace(in.StartDate)
	trimPtr(in.EndDate)
	if err := validateStruct(op, in); err != nil {
		return nil, err
	}
	if err := validateBudgetWindow(op, in.StartDate, in.EndDate); err != nil {
		return nil, err
	}

	var created *model.Budget
	err := s.conn.WithTx(ctx, func(tx *sql.Tx) error {
		if err := requireCategory(ctx, tx, op, in.CategoryID); err != nil {
			return err
		}

		now := time.Now().UTC()
		result, err := tx.ExecContext(ctx, `
			INSERT INTO budgets (category_id, amount, period, start_date, end_date, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			in.CategoryID, in.Amount, string(in.Period), in.StartDate, nullStringPtr(in.EndDate), now, now)
		if err != nil {
			return wrapExecErr(op, err, "insert budget")
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get budget ID: %w", err)
		}

		created, err = getBudgetByID(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("created budget",
		"id", created.ID,
		"category_id", created.CategoryID,
		"amount", created.Amount.String(),
		"period", created.Period)
	return created, nil
}

// GetByID returns a budget joined with its category.
func (s *BudgetStore) GetByID(ctx context.Context, id int64) (*model.Budget, error) {
	const op = "get budget"
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

	budget, err := getBudgetByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if budget == nil {
		return nil, notFoundError(op, "budget", id)
	}
	return budget, nil
}

// GetAll returns every budget, newest window first.
func (s *BudgetStore) GetAll(ctx context.Context) ([]model.Budget, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.list(ctx, "list budgets", budgetSelect+`
	ORDER BY b.start_date DESC, b.id DESC`)
}

// GetActive returns the budgets whose window contains date (YYYY-MM-DD).
// An empty date means today.
func (s *BudgetStore) GetActive(ctx context.Context, date string) ([]model.Budget, error) {
	const op = "list active budgets"
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	date = strings.TrimSpace(date)
	if date == "" {
		date = today()
	}
	if err := validateDate(op, "date", date); err != nil {
		return nil, err
	}

	return s.list(ctx, op, budgetSelect+`
	WHERE b.start_date <= ? AND (b.end_date IS NULL OR b.end_date >= ?)
	ORDER BY c.name ASC, b.start_date ASC, b.id ASC`, date, date)
}

func (s *BudgetStore) list(ctx context.Context, op, query string, args ...any) ([]model.Budget, error) {
	db, err := s.conn.Open(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapExecErr(op, err, "query budgets")
	}
	defer func() { _ = rows.Close() }()

	var budgets []model.Budget
	for rows.Next() {
		budget, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, *budget)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating budgets: %w", err)
	}

	slog.Debug("retrieved budgets", "count", len(budgets))
	return budgets, nil
}

// Update changes the non-nil fields of a budget and returns the result.
func (s *BudgetStore) Update(ctx context.Context, id int64, upd model.BudgetUpdate) (*model.Budget, error) {
	const op = "update budget"
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(op, "id", id); err != nil {
		return nil, err
	}

	trimPtr(upd.StartDate)
	trimPtr(upd.EndDate)
	if upd.ClearEndDate && upd.EndDate != nil {
		return nil, validationError(op, "cannot both set and clear the end date")
	}
	if err := validateStruct(op, upd); err != nil {
		return nil, err
	}

	var updated *model.Budget
	err := s.conn.WithTx(ctx, func(tx *sql.Tx) error {
		current, err := getBudgetByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return notFoundError(op, "budget", id)
		}

		if upd.CategoryID != nil && *upd.CategoryID != current.CategoryID {
			if err := requireCategory(ctx, tx, op, *upd.CategoryID); err != nil {
				return err
			}
			current.CategoryID = *upd.CategoryID
		}
		if upd.Amount != nil {
			current.Amount = *upd.Amount
		}
		if upd.Period != nil {
			current.Period = *upd.Period
		}
		if upd.StartDate != nil {
			current.StartDate = *upd.StartDate
		}
		switch {
		case upd.ClearEndDate:
			current.EndDate = nil
		case upd.EndDate != nil:
			end := *upd.EndDate
			current.EndDate = &end
		}

		// The merged window must still be ordered.
		if err := validateBudgetWindow(op, current.StartDate, current.EndDate); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE budgets SET
				category_id = ?, amount = ?, period = ?, start_date = ?, end_date = ?, updated_at = ?
			WHERE id = ?`,
			current.CategoryID, current.Amount, string(current.Period), current.StartDate,
			nullStringPtr(current.EndDate), time.Now().UTC(), id)
		if err != nil {
			return wrapExecErr(op, err, "update budget")
		}

		updated, err = getBudgetByID(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("updated budget", "id", id)
	return updated, nil
}

// Delete removes a budget.
func (s *BudgetStore) Delete(ctx context.Context, id int64) error {
	const op = "delete budget"
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(op, "id", id); err != nil {
		return err
	}

	err := s.conn.WithTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
		if err != nil {
			return wrapExecErr(op, err, "delete budget")
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return notFoundError(op, "budget", id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("deleted budget", "id", id)
	return nil
}

// GetProgress computes how much of a budget has been spent between
// periodStart and periodEnd (YYYY-MM-DD). Empty bounds default to the
// budget's start date and today.
func (s *BudgetStore) GetProgress(ctx context.Context, id int64, periodStart, periodEnd string) (*model.BudgetProgress, error) {
	const op = "budget progress"
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(op, "id", id); err != nil {
		return nil, err
	}
	periodStart = strings.TrimSpace(periodStart)
	periodEnd = strings.TrimSpace(periodEnd)
	if periodStart != "" {
		if err := validateDate(op, "start_date", periodStart); err != nil {
			return nil, err
		}
	}
	if periodEnd != "" {
		if err := validateDate(op, "end_date", periodEnd); err != nil {
			return nil, err
		}
	}
	if periodStart != "" && periodEnd != "" && periodEnd < periodStart {
		return nil, validationError(op, "end date %s is before start date %s", periodEnd, periodStart)
	}

	db, err := s.conn.Open(ctx)
	if err != nil {
		return nil, err
	}

	budget, err := getBudgetByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if budget == nil {
		return nil, notFoundError(op, "budget", id)
	}

	return budgetProgress(ctx, db, budget, periodStart, periodEnd)
}

// GetActiveProgress computes progress for every budget active on date,
// each over its own start date up to date.
func (s *BudgetStore) GetActiveProgress(ctx context.Context, date string) ([]model.BudgetProgress, error) {
	budgets, err := s.GetActive(ctx, date)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(date) == "" {
		date = today()
	}

	db, err := s.conn.Open(ctx)
	if err != nil {
		return nil, err
	}

	progress := make([]model.BudgetProgress, 0, len(budgets))
	for i := range budgets {
		p, err := budgetProgress(ctx, db, &budgets[i], "", date)
		if err != nil {
			return nil, err
		}
		progress = append(progress, *p)
	}
	return progress, nil
}

func budgetProgress(ctx context.Context, q queryable, budget *model.Budget, periodStart, periodEnd string) (*model.BudgetProgress, error) {
	if periodStart == "" {
		periodStart = budget.StartDate
	}
	if periodEnd == "" {
		periodEnd = today()
	}

	var spent decimal.Decimal
	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE category_id = ? AND type = ? AND date BETWEEN ? AND ?`,
		budget.CategoryID, string(model.TransactionTypeExpense), periodStart, periodEnd).Scan(&spent)
	if err != nil {
		return nil, wrapExecErr("budget progress", err, "sum budget spending")
	}
	spent = roundMoney(spent)

	percentage := decimal.Zero
	if !budget.Amount.IsZero() {
		percentage = spent.Div(budget.Amount).Mul(hundred).Round(2)
	}

	return &model.BudgetProgress{
		Budget:      *budget,
		Spent:       spent,
		Remaining:   budget.Amount.Sub(spent),
		Percentage:  percentage,
		IsExceeded:  spent.GreaterThan(budget.Amount),
		Status:      model.ClassifyProgress(percentage),
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
	}, nil
}

func validateBudgetWindow(op, start string, end *string) error {
	if end != nil && *end < start {
		return validationError(op, "end date %s is before start date %s", *end, start)
	}
	return nil
}

// requireCategory fails with a not-found error naming the category id.
func requireCategory(ctx context.Context, q queryable, op string, categoryID int64) error {
	category, err := getCategoryByID(ctx, q, categoryID)
	if err != nil {
		return err
	}
	if category == nil {
		return notFoundError(op, "category", categoryID)
	}
	return nil
}

func getBudgetByID(ctx context.Context, q queryable, id int64) (*model.Budget, error) {
	row := q.QueryRowContext(ctx, budgetSelect+`
	WHERE b.id = ?`, id)
	budget, err := scanBudget(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return budget, err
}

func scanBudget(row scanner) (*model.Budget, error) {
	var (
		budget               model.Budget
		period               string
		endDate              sql.NullString
		createdAt, updatedAt sql.NullTime
		name, icon, color    sql.NullString
	)
	err := row.Scan(
		&budget.ID, &budget.CategoryID, &budget.Amount, &period, &budget.StartDate, &endDate,
		&createdAt, &updatedAt, &name, &icon, &color,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan budget: %w", err)
	}

	budget.Period = model.BudgetPeriod(period)
	if endDate.Valid {
		end := endDate.String
		budget.EndDate = &end
	}
	budget.CreatedAt = createdAt.Time
	budget.UpdatedAt = updatedAt.Time
	budget.CategoryName = name.String
	budget.CategoryIcon = icon.String
	budget.CategoryColor = color.String
	return &budget, nil
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
