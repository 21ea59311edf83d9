package model

import "time"

// Category groups transactions and budgets. Seeded categories carry IsDefault.
type Category struct {
	CreatedAt time.Time
	Name      string
	Icon      string
	Color     string
	ID        int64
	IsDefault bool
}

// CategoryInput holds the user-supplied fields for a new category.
type CategoryInput struct {
	Name  string `validate:"required"`
	Icon  string
	Color string `validate:"omitempty,hex_color"`
}

// CategoryUpdate holds the fields to change on an existing category.
// Nil fields are left untouched; an empty Icon or Color clears it.
type CategoryUpdate struct {
	Name  *string
	Icon  *string
	Color *string `validate:"omitnil,hex_color"`
}

// CategoryDependents counts the rows that reference a category.
type CategoryDependents struct {
	Transactions int
	Budgets      int
}

// Total returns the number of referencing rows across both tables.
func (d CategoryDependents) Total() int {
	return d.Transactions + d.Budgets
}
