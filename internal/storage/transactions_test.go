package storage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-ledger/internal/model"
)

func TestTransactionStore_CreateDefaults(t *testing.T) {
	ctx := context.Background()
	store := createTestStorage(t)

	food, err := store.Categories.GetByName(ctx, "Food")
	require.NoError(t, err)

	txn, err := store.Transactions.Create(ctx, model.TransactionInput{
		Amount:      decimal.RequireFromString("12.34"),
		Description: "  Lunch  ",
		Type:        model.TransactionTypeExpense,
		CategoryID:  &food.ID,
	})
	require.NoError(t, err)

	assert.Positive(t, txn.ID)
	assertDecimal(t, "12.34", txn.Amount)
	assert.Equal(t, "Lunch", txn.Description)
	assert.Equal(t, time.Now().Format(model.DateLayout), txn.Date)
	assert.Equal(t, model.SourceManual, txn.Source)
	assert.False(t, txn.IsManuallySet)
	assert.Equal(t, "Food", txn.CategoryName)
	assert.Equal(t, food.Color, txn.CategoryColor)
	assert.False(t, txn.CreatedAt.IsZero())
	assert.False(t, txn.UpdatedAt.IsZero())
}

func TestTransactionStore_CreateFromSMS(t *testing.T) {
	ctx := context.Background()
	store := createEmptyStorage(t)

	txn, err := store.Transactions.Create(ctx, model.TransactionInput{
		Amount:      decimal.RequireFromString("250"),
		Description: "Card purchase",
		Date:        "2024-05-10",
		Type:        model.TransactionTypeExpense,
		Source:      model.SourceSMS,
		RawData:     "Your card was charged 250.00",
	})
	require.NoError(t, err)

	got, err := store.Transactions.GetByID(ctx, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SourceSMS, got.Source)
	assert.Equal(t, "Your card was charged 250.00", got.RawData)
	assert.True(t, got.IsUncategorized())
	assert.Empty(t, got.CategoryName)
}

func TestTransactionStore_CreateValidation(t *testing.T) {
	ctx := context.Background()
	store := createEmptyStorage(t)

	valid := func() model.TransactionInput {
		return model.TransactionInput{
			Amount:      decimal.RequireFromString("10"),
			Description: "Coffee",
			Date:        "2024-01-01",
			Type:        model.TransactionTypeExpense,
		}
	}

	tests := []struct {
		mutate  func(*model.TransactionInput)
		name    string
		wantMsg string
	}{
		{name: "zero amount", mutate: func(in *model.TransactionInput) { in.Amount = decimal.Zero }, wantMsg: "amount must be greater than 0"},
		{name: "negative amount", mutate: func(in *model.TransactionInput) { in.Amount = decimal.RequireFromString("-5") }, wantMsg: "amount must be greater than 0"},
		{name: "blank description", mutate: func(in *model.TransactionInput) { in.Description = "   " }, wantMsg: "description is required"},
		{name: "missing type", mutate: func(in *model.TransactionInput) { in.Type = "" }, wantMsg: "type is required"},
		{name: "unknown type", mutate: func(in *model.TransactionInput) { in.Type = "transfer" }, wantMsg: "type must be one of"},
		{name: "bad month", mutate: func(in *model.TransactionInput) { in.Date = "2024-13-01" }, wantMsg: "YYYY-MM-DD"},
		{name: "us date", mutate: func(in *model.TransactionInput) { in.Date = "01/02/2024" }, wantMsg: "YYYY-MM-DD"},
		{name: "unknown source", mutate: func(in *model.TransactionInput) { in.Source = "email" }, wantMsg: "source must be one of"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid()
			tt.mutate(&in)
			_, err := store.Transactions.Create(ctx, in)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}

	count, err := store.Transactions.Count(ctx, model.TransactionFilter{})
	require.NoError(t, err)
	assert.Zero(t, count, "rejected input must not be written")
}

func TestTransactionStore_CreateUnknownCategory(t *testing.T) {
	ctx := context.Background()
	store := createEmptyStorage(t)

	missing := int64(9999)
	_, err := store.Transactions.Create(ctx, expense("10", "2024-01-01", &missing))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConstraint)
	assert.Contains(t, err.Error(), "category 9999 does not exist")
}

func TestTransactionStore_GetAllOrdering(t *testing.T) {
	ctx := context.Background()
	store := createEmptyStorage(t)

	jan := createTransaction(t, store, expense("1", "2024-01-01", nil))
	mar := createTransaction(t, store, expense("3", "2024-03-01", nil))
	feb := createTransaction(t, store, expense("2", "2024-02-01", nil))
	marLater := createTransaction(t, store, expense("4", "2024-03-01", nil))

	txns, err := store.Transactions.GetAll(ctx, model.TransactionFilter{})
	require.NoError(t, err)

	ids := make([]int64, 0, len(txns))
	for _, txn := range txns {
		ids = append(ids, txn.ID)
	}
	assert.Equal(t, []int64{marLater.ID, mar.ID, feb.ID, jan.ID}, ids)
}

func TestTransactionStore_GetAllFilters(t *testing.T) {
	ctx := context.Background()
	store := createEmptyStorage(t)
	food := createCategory(t, store, "Food")
	salary := createCategory(t, store, "Salary")

	createTransaction(t, store, expense("10", "2024-01-10", &food.ID))
	createTransaction(t, store, expense("20", "2024-02-10", &food.ID))
	createTransaction(t, store, income("1000", "2024-02-01", &salary.ID))
	createTransaction(t, store, expense("5", "2024-02-15", nil))
	createTransaction(t, store, expense("7", "2024-03-01", &food.ID))

	tests := []struct {
		name       string
		filter     model.TransactionFilter
		wantAmount []string
	}{
		{
			name:       "no filter",
			filter:     model.TransactionFilter{},
			wantAmount: []string{"7", "5", "20", "1000", "10"},
		},
		{
			name:       "category",
			filter:     model.TransactionFilter{CategoryID: &food.ID},
			wantAmount: []string{"7", "20", "10"},
		},
		{
			name:       "type",
			filter:     model.TransactionFilter{Type: model.TransactionTypeIncome},
			wantAmount: []string{"1000"},
		},
		{
			name:       "inclusive date range",
			filter:     model.TransactionFilter{StartDate: "2024-02-01", EndDate: "2024-02-15"},
			wantAmount: []string{"5", "20", "1000"},
		},
		{
			name:       "open ended start",
			filter:     model.TransactionFilter{StartDate: "2024-02-15"},
			wantAmount: []string{"7", "5"},
		},
		{
			name: "all predicates",
			filter: model.TransactionFilter{
				CategoryID: &food.ID,
				Type:       model.TransactionTypeExpense,
				StartDate:  "2024-02-01",
				EndDate:    "2024-03-31",
			},
			wantAmount: []string{"7", "20"},
		},
		{
			name:       "limit",
			filter:     model.TransactionFilter{Limit: 2},
			wantAmount: []string{"7", "5"},
		},
		{
			name:       "limit and offset",
			filter:     model.TransactionFilter{Limit: 2, Offset: 2},
			wantAmount: []string{"20", "1000"},
		},
		{
			name:       "offset only",
			filter:     model.TransactionFilter{Offset: 3},
			wantAmount: []string{"1000", "10"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txns, err := store.Transactions.GetAll(ctx, tt.filter)
			require.NoError(t, err)
			require.Len(t, txns, len(tt.wantAmount))
			for i, want := range tt.wantAmount {
				assertDecimal(t, want, txns[i].Amount)
			}
		})
	}

	count, err := store.Transactions.Count(ctx, model.TransactionFilter{CategoryID: &food.ID, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestTransactionStore_GetAllInvalidFilter(t *testing.T) {
	ctx := context.Background()
	store := createEmptyStorage(t)
	badID := int64(-1)

	tests := []struct {
		name   string
		filter model.TransactionFilter
	}{
		{name: "bad start date", filter: model.TransactionFilter{StartDate: "2024-1-1"}},
		{name: "end before start", filter: model.TransactionFilter{StartDate: "2024-02-01", EndDate: "2024-01-01"}},
		{name: "unknown type", filter: model.TransactionFilter{Type: "refund"}},
		{name: "negative limit", filter: model.TransactionFilter{Limit: -1}},
		{name: "negative category", filter: model.TransactionFilter{CategoryID: &badID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Transactions.GetAll(ctx, tt.filter)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestTransactionStore_GetByDateRangeAndCategory(t *testing.T) {
	ctx := context.Background()
	store := createEmptyStorage(t)
	food := createCategory(t, store, "Food")

	createTransaction(t, store, expense("1", "2024-01-31", &food.ID))
	createTransaction(t, store, expense("2", "2024-02-01", nil))
	createTransaction(t, store, expense("3", "2024-02-29", &food.ID))
	createTransaction(t, store, expense("4", "2024-03-01", nil))

	feb, err := store.Transactions.GetByDateRange(ctx, "2024-02-01", "2024-02-29")
	require.NoError(t, err)
	require.Len(t, feb, 2)
	assert.Equal(t, "2024-02-29", feb[0].Date)
	assert.Equal(t, "2024-02-01", feb[1].Date)

	_, err = store.Transactions.GetByDateRange(ctx, "2024-03-01", "2024-02-01")
	assert.ErrorIs(t, err, ErrValidation)

	byCategory, err := store.Transactions.GetByCategory(ctx, food.ID)
	require.NoError(t, err)
	require.Len(t, byCategory, 2)
	for _, txn := range byCategory {
		assert.Equal(t, "Food", txn.CategoryName)
	}

	none, err := store.Transactions.GetByCategory(ctx, 9999)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTransactionStore_Update(t *testing.T) {
	ctx := context.Background()
	store := createEmptyStorage(t)
	food := createCategory(t, store, "Food")
	txn := createTransaction(t, store, expense("10", "2024-01-01", &food.ID))

	amount := decimal.RequireFromString("15.75")
	manual := true
	updated, err := store.Transactions.Update(ctx, txn.ID, model.TransactionUpdate{
		Amount:        &amount,
		Description:   strPtr(" Dinner "),
		IsManuallySet: &manual,
	})
	require.NoError(t, err)
	assertDecimal(t, "15.75", updated.Amount)
	assert.Equal(t, "Dinner", updated.Description)
	assert.True(t, updated.IsManuallySet)
	assert.Equal(t, "2024-01-01", updated.Date)
	assert.Equal(t, "Food", updated.CategoryName)

	cleared, err := store.Transactions.Update(ctx, txn.ID, model.TransactionUpdate{ClearCategory: true})
	require.NoError(t, err)
	assert.True(t, cleared.IsUncategorized())
	assert.Empty(t, cleared.CategoryName)

	missingCategory := int64(777)
	zero := decimal.Zero
	badType := model.TransactionType("gift")
	tests := []struct {
		want error
		name string
		upd  model.TransactionUpdate
		id   int64
	}{
		{name: "missing", id: 999, upd: model.TransactionUpdate{Description: strPtr("x")}, want: ErrNotFound},
		{name: "blank description", id: txn.ID, upd: model.TransactionUpdate{Description: strPtr(" ")}, want: ErrValidation},
		{name: "zero amount", id: txn.ID, upd: model.TransactionUpdate{Amount: &zero}, want: ErrValidation},
		{name: "bad type", id: txn.ID, upd: model.TransactionUpdate{Type: &badType}, want: ErrValidation},
		{name: "bad date", id: txn.ID, upd: model.TransactionUpdate{Date: strPtr("yesterday")}, want: ErrValidation},
		{name: "set and clear", id: txn.ID, upd: model.TransactionUpdate{CategoryID: &food.ID, ClearCategory: true}, want: ErrValidation},
		{name: "unknown category", id: txn.ID, upd: model.TransactionUpdate{CategoryID: &missingCategory}, want: ErrConstraint},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Transactions.Update(ctx, tt.id, tt.upd)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	got, err := store.Transactions.GetByID(ctx, txn.ID)
	require.NoError(t, err)
	assertDecimal(t, "15.75", got.Amount)
	assert.True(t, got.IsUncategorized())
}

func TestTransactionStore_Delete(t *testing.T) {
	ctx := context.Background()
	store := createEmptyStorage(t)
	txn := createTransaction(t, store, expense("10", "2024-01-01", nil))

	require.NoError(t, store.Transactions.Delete(ctx, txn.ID))

	_, err := store.Transactions.GetByID(ctx, txn.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = store.Transactions.Delete(ctx, txn.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransactionStore_GetSummary(t *testing.T) {
	ctx := context.Background()
	store := createEmptyStorage(t)

	createTransaction(t, store, income("300", "2024-01-05", nil))
	createTransaction(t, store, expense("100", "2024-01-10", nil))
	createTransaction(t, store, expense("50", "2024-01-31", nil))
	createTransaction(t, store, expense("999", "2024-02-01", nil))

	summary, err := store.Transactions.GetSummary(ctx, "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	assertDecimal(t, "300", summary.TotalIncome)
	assertDecimal(t, "150", summary.TotalExpense)
	assertDecimal(t, "150", summary.Balance)
	assert.Equal(t, 3, summary.TotalCount)

	empty, err := store.Transactions.GetSummary(ctx, "2023-01-01", "2023-12-31")
	require.NoError(t, err)
	assert.True(t, empty.TotalIncome.IsZero())
	assert.True(t, empty.TotalExpense.IsZero())
	assert.True(t, empty.Balance.IsZero())
	assert.Zero(t, empty.TotalCount)

	_, err = store.Transactions.GetSummary(ctx, "2024-02-01", "2024-01-01")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTransactionStore_GetSummaryRoundsToCents(t *testing.T) {
	ctx := context.Background()
	store := createEmptyStorage(t)

	for i := 0; i < 3; i++ {
		createTransaction(t, store, expense("0.1", "2024-01-01", nil))
	}
	createTransaction(t, store, income("0.2", "2024-01-01", nil))

	summary, err := store.Transactions.GetSummary(ctx, "2024-01-01", "2024-01-01")
	require.NoError(t, err)
	assertDecimal(t, "0.3", summary.TotalExpense)
	assertDecimal(t, "-0.1", summary.Balance)
}

func TestTransactionStore_GetSpendingByCategory(t *testing.T) {
	ctx := context.Background()
	store := createEmptyStorage(t)
	food := createCategory(t, store, "Food")
	rent := createCategory(t, store, "Rent")
	salary := createCategory(t, store, "Salary")

	createTransaction(t, store, expense("30", "2024-01-02", &food.ID))
	createTransaction(t, store, expense("20", "2024-01-03", &food.ID))
	createTransaction(t, store, expense("800", "2024-01-01", &rent.ID))
	createTransaction(t, store, expense("15", "2024-01-04", nil))
	createTransaction(t, store, income("3000", "2024-01-01", &salary.ID))
	createTransaction(t, store, income("40", "2024-01-05", &food.ID))
	createTransaction(t, store, expense("500", "2024-02-01", &food.ID))

	spending, err := store.Transactions.GetSpendingByCategory(ctx, "2024-01-01", "2024-01-31")
	require.NoError(t, err)
	require.Len(t, spending, 3)

	assert.Equal(t, "Rent", spending[0].CategoryName)
	assertDecimal(t, "800", spending[0].Total)
	assert.Equal(t, 1, spending[0].Count)

	assert.Equal(t, "Food", spending[1].CategoryName)
	require.NotNil(t, spending[1].CategoryID)
	assert.Equal(t, food.ID, *spending[1].CategoryID)
	assertDecimal(t, "50", spending[1].Total)
	assert.Equal(t, 2, spending[1].Count)

	assert.Nil(t, spending[2].CategoryID)
	assert.Empty(t, spending[2].CategoryName)
	assertDecimal(t, "15", spending[2].Total)

	for _, item := range spending {
		if item.CategoryID != nil {
			assert.NotEqual(t, salary.ID, *item.CategoryID, "income must not count as spending")
		}
	}
}
