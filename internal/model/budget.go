package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// BudgetPeriod is the cadence a budget cap applies to.
type BudgetPeriod string

// Budget periods.
const (
	BudgetPeriodMonthly BudgetPeriod = "monthly"
	BudgetPeriodWeekly  BudgetPeriod = "weekly"
)

// BudgetStatus classifies how much of a budget has been consumed.
type BudgetStatus string

// Budget statuses, ordered by severity.
const (
	BudgetStatusOnTrack  BudgetStatus = "on_track"
	BudgetStatusWarning  BudgetStatus = "warning"
	BudgetStatusExceeded BudgetStatus = "exceeded"
)

var (
	warningThreshold  = decimal.NewFromInt(80)
	exceededThreshold = decimal.NewFromInt(100)
)

// ClassifyProgress maps a consumed percentage to a status:
// below 80 is on track, [80, 100) is a warning, 100 and above is exceeded.
func ClassifyProgress(percentage decimal.Decimal) BudgetStatus {
	switch {
	case percentage.GreaterThanOrEqual(exceededThreshold):
		return BudgetStatusExceeded
	case percentage.GreaterThanOrEqual(warningThreshold):
		return BudgetStatusWarning
	default:
		return BudgetStatusOnTrack
	}
}

// Budget caps spending in one category over a date window.
type Budget struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	EndDate   *string // nil means open-ended
	Amount    decimal.Decimal
	Period    BudgetPeriod
	StartDate string

	CategoryName  string
	CategoryIcon  string
	CategoryColor string

	ID         int64
	CategoryID int64
}

// IsActiveOn reports whether date (YYYY-MM-DD) falls inside the budget window.
func (b *Budget) IsActiveOn(date string) bool {
	if b.StartDate > date {
		return false
	}
	return b.EndDate == nil || *b.EndDate >= date
}

// BudgetInput holds the fields for a new budget.
type BudgetInput struct {
	EndDate    *string         `validate:"omitnil,datetime=2006-01-02"`
	Amount     decimal.Decimal `validate:"gt=0"`
	Period     BudgetPeriod    `validate:"required,oneof=monthly weekly"`
	StartDate  string          `validate:"required,datetime=2006-01-02"`
	CategoryID int64           `validate:"required"`
}

// BudgetUpdate holds the fields to change on an existing budget.
// ClearEndDate makes the budget open-ended.
type BudgetUpdate struct {
	CategoryID   *int64           `validate:"omitnil,gt=0"`
	Amount       *decimal.Decimal `validate:"omitnil,gt=0"`
	Period       *BudgetPeriod    `validate:"omitnil,oneof=monthly weekly"`
	StartDate    *string          `validate:"omitnil,datetime=2006-01-02"`
	EndDate      *string          `validate:"omitnil,datetime=2006-01-02"`
	ClearEndDate bool
}

// BudgetProgress is derived on demand from transaction history and never stored.
type BudgetProgress struct {
	Budget      Budget
	Spent       decimal.Decimal
	Remaining   decimal.Decimal
	Percentage  decimal.Decimal
	Status      BudgetStatus
	PeriodStart string
	PeriodEnd   string
	IsExceeded  bool
}
