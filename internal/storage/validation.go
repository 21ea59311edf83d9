// Package storage is the on-device persistence layer for the ledger: the
// connection manager, schema migrations, and the category, transaction,
// budget, and settings stores.
package storage

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// Validation errors.
var (
	ErrNilContext = errors.New("context cannot be nil")
)

var hexColorRegex = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Amounts are validated as numbers.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		d, ok := field.Interface().(decimal.Decimal)
		if !ok {
			return nil
		}
		f, _ := d.Float64()
		return f
	}, decimal.Decimal{})
	_ = v.RegisterValidation("hex_color", func(fl validator.FieldLevel) bool {
		return hexColorRegex.MatchString(fl.Field().String())
	})
	return v
}

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateStruct runs the struct tags and turns the first failure into a
// validation *Error that names the field.
func validateStruct(op string, s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &Error{Kind: KindValidation, Op: op, Msg: "invalid input", Err: err}
	}
	return &Error{Kind: KindValidation, Op: op, Msg: describeFieldError(verrs[0])}
}

func describeFieldError(fe validator.FieldError) string {
	field := toSnake(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fmt.Sprint(fe.Value()))
	case "datetime":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format, got %q", field, fmt.Sprint(fe.Value()))
	case "hex_color":
		return fmt.Sprintf("%s must be a hex color like #RRGGBB, got %q", field, fmt.Sprint(fe.Value()))
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// toSnake converts a Go field name to its column name.
func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && !(s[i-1] >= 'A' && s[i-1] <= 'Z') {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// validateDate checks a single YYYY-MM-DD value.
func validateDate(op, field, value string) error {
	if _, err := time.Parse(model.DateLayout, value); err != nil {
		return validationError(op, "%s must be a date in YYYY-MM-DD format, got %q", field, value)
	}
	return nil
}

// validateDateRange checks both bounds and their order.
func validateDateRange(op, start, end string) error {
	if err := validateDate(op, "start_date", start); err != nil {
		return err
	}
	if err := validateDate(op, "end_date", end); err != nil {
		return err
	}
	if end < start {
		return validationError(op, "end date %s is before start date %s", end, start)
	}
	return nil
}

func validateID(op, field string, id int64) error {
	if id <= 0 {
		return validationError(op, "%s must be positive, got %d", field, id)
	}
	return nil
}

// today returns the current local calendar date.
func today() string {
	return time.Now().Format(model.DateLayout)
}

func trimPtr(s *string) {
	if s != nil {
		*s = strings.TrimSpace(*s)
	}
}
