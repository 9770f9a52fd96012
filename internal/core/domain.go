package core

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  Category = "income"
	Expense Category = "expense"
)

// DateLayout is the ISO-8601 calendar date format used for Transaction.Date.
const DateLayout = "2006-01-02"

type (
	// Category decides which total a transaction contributes to.
	Category string

	Transaction struct {
		Name     string
		Category Category
		Date     string // ISO-8601 date, no timezone
		Amount   decimal.Decimal
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidDate     = errors.New("invalid date")
)

// Categories lists the recognized categories in display order.
func Categories() []Category {
	return []Category{Income, Expense}
}

// IsValid reports whether c is one of the two recognized categories.
func (c Category) IsValid() bool {
	switch c {
	case Income, Expense:
		return true
	default:
		return false
	}
}

func (c Category) String() string {
	return string(c)
}

// ParseCategory accepts only the recognized categories.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.IsValid() {
		return "", ErrInvalidCategory
	}
	return c, nil
}

// ValidateDate accepts an empty date or a YYYY-MM-DD calendar date.
func ValidateDate(s string) error {
	if s == "" {
		return nil
	}
	if _, err := time.Parse(DateLayout, s); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// Equal compares two transactions field by field.
func (t Transaction) Equal(o Transaction) bool {
	return t.Name == o.Name &&
		t.Category == o.Category &&
		t.Date == o.Date &&
		t.Amount.Equal(o.Amount)
}

func (t Transaction) Validate() error {
	if !t.Category.IsValid() {
		return ErrInvalidCategory
	}
	if err := ValidateDate(t.Date); err != nil {
		return err
	}
	if t.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}
