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

const transactionSelect = `
	SELECT t.id, t.amount, t.description, t.date, t.type, t.category_id,
	       t.is_manually_set, t.source, t.raw_data, t.created_at, t.updated_at,
	       c.name, c.icon, c.color
	FROM transactions t
	LEFT JOIN categories c ON c.id = t.category_id`

// TransactionStore manages financial transactions.
type TransactionStore struct {
	conn *Conn
}

// NewTransactionStore returns a transaction store backed by conn.
func NewTransactionStore(conn *Conn) *TransactionStore {
	return &TransactionStore{conn: conn}
}

// Create validates and inserts a transaction from any entry path.
func (s *TransactionStore) Create(ctx context.Context, in model.TransactionInput) (*model.Transaction, error) {
	const op = "create transaction"
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	in.Description = strings.TrimSpace(in.Description)
	in.Date = strings.TrimSpace(in.Date)
	if in.Date == "" {
		in.Date = today()
	}
	if in.Source == "" {
		in.Source = model.SourceManual
	}
	if err := validateStruct(op, in); err != nil {
		return nil, err
	}

	var created *model.Transaction
	err := s.conn.WithTx(ctx, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		result, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (
				amount, description, date, type, category_id,
				is_manually_set, source, raw_data, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			in.Amount, in.Description, in.Date, string(in.Type), nullInt64(in.CategoryID),
			in.IsManuallySet, string(in.Source), nullString(in.RawData), now, now)
		if err != nil {
			if isForeignKeyViolation(err) {
				return constraintError(op, err, "category %d does not exist", derefID(in.CategoryID))
			}
			return wrapExecErr(op, err, "insert transaction")
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get transaction ID: %w", err)
		}

		created, err = getTransactionByID(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("created transaction",
		"id", created.ID,
		"type", created.Type,
		"amount", created.Amount.String(),
		"source", created.Source)
	return created, nil
}

// GetByID returns a transaction joined with its category display fields.
func (s *TransactionStore) GetByID(ctx context.Context, id int64) (*model.Transaction, error) {
	const op = "get transaction"
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

	txn, err := getTransactionByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if txn == nil {
		return nil, notFoundError(op, "transaction", id)
	}
	return txn, nil
}

// GetAll lists transactions matching every set filter field, most recent
// first (date, then creation time).
func (s *TransactionStore) GetAll(ctx context.Context, filter model.TransactionFilter) ([]model.Transaction, error) {
	const op = "list transactions"
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateFilter(op, filter); err != nil {
		return nil, err
	}

	db, err := s.conn.Open(ctx)
	if err != nil {
		return nil, err
	}

	where, args := filterClause(filter)
	query := transactionSelect + where + `
	ORDER BY t.date DESC, t.created_at DESC, t.id DESC`

	switch {
	case filter.Limit > 0:
		query += " LIMIT ? OFFSET ?"
		args = append(args, filter.Limit, filter.Offset)
	case filter.Offset > 0:
		query += " LIMIT -1 OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapExecErr(op, err, "query transactions")
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	slog.Debug("retrieved transactions", "count", len(transactions))
	return transactions, nil
}

// Count returns how many transactions match the filter, ignoring paging.
func (s *TransactionStore) Count(ctx context.Context, filter model.TransactionFilter) (int, error) {
	const op = "count transactions"
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateFilter(op, filter); err != nil {
		return 0, err
	}

	db, err := s.conn.Open(ctx)
	if err != nil {
		return 0, err
	}

	where, args := filterClause(filter)
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions t`+where, args...).Scan(&count); err != nil {
		return 0, wrapExecErr(op, err, "count transactions")
	}
	return count, nil
}

// GetByDateRange lists transactions dated within [start, end].
func (s *TransactionStore) GetByDateRange(ctx context.Context, start, end string) ([]model.Transaction, error) {
	if err := validateDateRange("list transactions by date", start, end); err != nil {
		return nil, err
	}
	return s.GetAll(ctx, model.TransactionFilter{StartDate: start, EndDate: end})
}

// GetByCategory lists the transactions of one category.
func (s *TransactionStore) GetByCategory(ctx context.Context, categoryID int64) ([]model.Transaction, error) {
	if err := validateID("list transactions by category", "category_id", categoryID); err != nil {
		return nil, err
	}
	return s.GetAll(ctx, model.TransactionFilter{CategoryID: &categoryID})
}

// Update changes the non-nil fields of a transaction and returns the result.
func (s *TransactionStore) Update(ctx context.Context, id int64, upd model.TransactionUpdate) (*model.Transaction, error) {
	const op = "update transaction"
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(op, "id", id); err != nil {
		return nil, err
	}

	trimPtr(upd.Description)
	trimPtr(upd.Date)
	if upd.Description != nil && *upd.Description == "" {
		return nil, validationError(op, "description is required")
	}
	if upd.ClearCategory && upd.CategoryID != nil {
		return nil, validationError(op, "cannot both set and clear the category")
	}
	if err := validateStruct(op, upd); err != nil {
		return nil, err
	}

	var updated *model.Transaction
	err := s.conn.WithTx(ctx, func(tx *sql.Tx) error {
		current, err := getTransactionByID(ctx, tx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return notFoundError(op, "transaction", id)
		}

		applyTransactionUpdate(current, upd)

		_, err = tx.ExecContext(ctx, `
			UPDATE transactions SET
				amount = ?, description = ?, date = ?, type = ?, category_id = ?,
				is_manually_set = ?, source = ?, raw_data = ?, updated_at = ?
			WHERE id = ?`,
			current.Amount, current.Description, current.Date, string(current.Type),
			nullInt64(current.CategoryID), current.IsManuallySet, string(current.Source),
			nullString(current.RawData), time.Now().UTC(), id)
		if err != nil {
			if isForeignKeyViolation(err) {
				return constraintError(op, err, "category %d does not exist", derefID(current.CategoryID))
			}
			return wrapExecErr(op, err, "update transaction")
		}

		updated, err = getTransactionByID(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("updated transaction", "id", id)
	return updated, nil
}

// Delete removes a transaction.
func (s *TransactionStore) Delete(ctx context.Context, id int64) error {
	const op = "delete transaction"
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(op, "id", id); err != nil {
		return err
	}

	err := s.conn.WithTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
		if err != nil {
			return wrapExecErr(op, err, "delete transaction")
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return notFoundError(op, "transaction", id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.Info("deleted transaction", "id", id)
	return nil
}

// GetSummary totals income and expense within [start, end]. An empty window
// yields zeros.
func (s *TransactionStore) GetSummary(ctx context.Context, start, end string) (*model.TransactionSummary, error) {
	const op = "summarize transactions"
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateDateRange(op, start, end); err != nil {
		return nil, err
	}

	db, err := s.conn.Open(ctx)
	if err != nil {
		return nil, err
	}

	var summary model.TransactionSummary
	err = db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN type = 'income' THEN amount END), 0),
			COALESCE(SUM(CASE WHEN type = 'expense' THEN amount END), 0),
			COUNT(*)
		FROM transactions
		WHERE date BETWEEN ? AND ?`,
		start, end).Scan(&summary.TotalIncome, &summary.TotalExpense, &summary.TotalCount)
	if err != nil {
		return nil, wrapExecErr(op, err, "summarize transactions")
	}

	summary.TotalIncome = roundMoney(summary.TotalIncome)
	summary.TotalExpense = roundMoney(summary.TotalExpense)
	summary.Balance = summary.TotalIncome.Sub(summary.TotalExpense)
	return &summary, nil
}

// GetSpendingByCategory totals expenses per category within [start, end],
// largest first. Income rows never count.
func (s *TransactionStore) GetSpendingByCategory(ctx context.Context, start, end string) ([]model.CategorySpending, error) {
	const op = "spending by category"
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateDateRange(op, start, end); err != nil {
		return nil, err
	}

	db, err := s.conn.Open(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT t.category_id, c.name, c.icon, c.color, SUM(t.amount) AS total, COUNT(*)
		FROM transactions t
		LEFT JOIN categories c ON c.id = t.category_id
		WHERE t.type = ? AND t.date BETWEEN ? AND ?
		GROUP BY t.category_id
		ORDER BY total DESC`,
		string(model.TransactionTypeExpense), start, end)
	if err != nil {
		return nil, wrapExecErr(op, err, "query category spending")
	}
	defer func() { _ = rows.Close() }()

	var spending []model.CategorySpending
	for rows.Next() {
		var (
			item              model.CategorySpending
			categoryID        sql.NullInt64
			name, icon, color sql.NullString
		)
		if err := rows.Scan(&categoryID, &name, &icon, &color, &item.Total, &item.Count); err != nil {
			return nil, fmt.Errorf("failed to scan category spending: %w", err)
		}
		if categoryID.Valid {
			id := categoryID.Int64
			item.CategoryID = &id
		}
		item.CategoryName = name.String
		item.CategoryIcon = icon.String
		item.CategoryColor = color.String
		item.Total = roundMoney(item.Total)
		spending = append(spending, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category spending: %w", err)
	}
	return spending, nil
}

func validateFilter(op string, filter model.TransactionFilter) error {
	if err := validateStruct(op, filter); err != nil {
		return err
	}
	if filter.CategoryID != nil {
		if err := validateID(op, "category_id", *filter.CategoryID); err != nil {
			return err
		}
	}
	if filter.StartDate != "" && filter.EndDate != "" && filter.EndDate < filter.StartDate {
		return validationError(op, "end date %s is before start date %s", filter.EndDate, filter.StartDate)
	}
	return nil
}

// filterClause builds the AND-joined WHERE clause for a filter.
func filterClause(filter model.TransactionFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.StartDate != "" {
		conds = append(conds, "t.date >= ?")
		args = append(args, filter.StartDate)
	}
	if filter.EndDate != "" {
		conds = append(conds, "t.date <= ?")
		args = append(args, filter.EndDate)
	}
	if filter.CategoryID != nil {
		conds = append(conds, "t.category_id = ?")
		args = append(args, *filter.CategoryID)
	}
	if filter.Type != "" {
		conds = append(conds, "t.type = ?")
		args = append(args, string(filter.Type))
	}
	if len(conds) == 0 {
		return "", args
	}
	return "\n\tWHERE " + strings.Join(conds, " AND "), args
}

func applyTransactionUpdate(t *model.Transaction, upd model.TransactionUpdate) {
	if upd.Amount != nil {
		t.Amount = *upd.Amount
	}
	if upd.Description != nil {
		t.Description = *upd.Description
	}
	if upd.Date != nil {
		t.Date = *upd.Date
	}
	if upd.Type != nil {
		t.Type = *upd.Type
	}
	if upd.Source != nil {
		t.Source = *upd.Source
	}
	if upd.RawData != nil {
		t.RawData = *upd.RawData
	}
	if upd.IsManuallySet != nil {
		t.IsManuallySet = *upd.IsManuallySet
	}
	switch {
	case upd.ClearCategory:
		t.CategoryID = nil
	case upd.CategoryID != nil:
		id := *upd.CategoryID
		t.CategoryID = &id
	}
}

func getTransactionByID(ctx context.Context, q queryable, id int64) (*model.Transaction, error) {
	row := q.QueryRowContext(ctx, transactionSelect+`
	WHERE t.id = ?`, id)
	txn, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return txn, err
}

func scanTransaction(row scanner) (*model.Transaction, error) {
	var (
		txn                  model.Transaction
		txnType, source      string
		categoryID           sql.NullInt64
		rawData              sql.NullString
		createdAt, updatedAt sql.NullTime
		name, icon, color    sql.NullString
	)
	err := row.Scan(
		&txn.ID, &txn.Amount, &txn.Description, &txn.Date, &txnType, &categoryID,
		&txn.IsManuallySet, &source, &rawData, &createdAt, &updatedAt,
		&name, &icon, &color,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	txn.Type = model.TransactionType(txnType)
	txn.Source = model.TransactionSource(source)
	if categoryID.Valid {
		id := categoryID.Int64
		txn.CategoryID = &id
	}
	txn.RawData = rawData.String
	txn.CreatedAt = createdAt.Time
	txn.UpdatedAt = updatedAt.Time
	txn.CategoryName = name.String
	txn.CategoryIcon = icon.String
	txn.CategoryColor = color.String
	return &txn, nil
}

// roundMoney rounds a summed amount to cents; SQLite sums REAL columns in
// binary floating point.
func roundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func nullInt64(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

func derefID(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}
