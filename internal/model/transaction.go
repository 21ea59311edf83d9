// Package model defines the core domain models used throughout the application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the ISO calendar date format used for every stored date.
const DateLayout = "2006-01-02"

// TransactionType tells whether money came in or went out.
type TransactionType string

// Transaction types.
const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// TransactionSource records which entry path created a transaction.
type TransactionSource string

// Transaction sources.
const (
	SourceManual TransactionSource = "manual"
	SourceSMS    TransactionSource = "sms"
	SourceUpload TransactionSource = "upload"
)

// Transaction represents a single financial transaction from any entry path.
type Transaction struct {
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CategoryID  *int64
	Amount      decimal.Decimal
	Description string
	Date        string // YYYY-MM-DD
	Type        TransactionType
	Source      TransactionSource
	RawData     string // Original text, e.g. the SMS body

	// Display fields joined from categories; empty when uncategorized.
	CategoryName  string
	CategoryIcon  string
	CategoryColor string

	ID            int64
	IsManuallySet bool
}

// IsUncategorized reports whether the transaction has no category.
func (t *Transaction) IsUncategorized() bool {
	return t.CategoryID == nil
}

// TransactionInput holds the fields for a new transaction.
// Date defaults to today and Source to manual when empty.
type TransactionInput struct {
	CategoryID    *int64
	Amount        decimal.Decimal   `validate:"gt=0"`
	Description   string            `validate:"required"`
	Date          string            `validate:"omitempty,datetime=2006-01-02"`
	Type          TransactionType   `validate:"required,oneof=income expense"`
	Source        TransactionSource `validate:"omitempty,oneof=manual sms upload"`
	RawData       string
	IsManuallySet bool
}

// TransactionUpdate holds the fields to change on an existing transaction.
// Nil fields are left untouched; ClearCategory moves the row to uncategorized.
type TransactionUpdate struct {
	Amount        *decimal.Decimal   `validate:"omitnil,gt=0"`
	Description   *string
	Date          *string            `validate:"omitnil,datetime=2006-01-02"`
	Type          *TransactionType   `validate:"omitnil,oneof=income expense"`
	Source        *TransactionSource `validate:"omitnil,oneof=manual sms upload"`
	RawData       *string
	CategoryID    *int64
	IsManuallySet *bool
	ClearCategory bool
}

// TransactionFilter narrows a transaction listing. Zero values mean "no filter".
type TransactionFilter struct {
	CategoryID *int64
	StartDate  string          `validate:"omitempty,datetime=2006-01-02"`
	EndDate    string          `validate:"omitempty,datetime=2006-01-02"`
	Type       TransactionType `validate:"omitempty,oneof=income expense"`
	Limit      int             `validate:"gte=0"`
	Offset     int             `validate:"gte=0"`
}

// TransactionSummary totals a date window.
type TransactionSummary struct {
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	Balance      decimal.Decimal
	TotalCount   int
}

// CategorySpending is the expense total for one category in a window.
type CategorySpending struct {
	CategoryID    *int64
	Total         decimal.Decimal
	CategoryName  string
	CategoryIcon  string
	CategoryColor string
	Count         int
}
