package ledger

import (
	"ledger/internal/core"

	"github.com/shopspring/decimal"
)

// Chart bucket labels, in series order.
const (
	LabelIncomeTotal  = "income total"
	LabelExpenseTotal = "expense total"
)

// Summary holds the derived totals of a transaction list.
type Summary struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Balance decimal.Decimal
}

// Summarize recomputes the totals from scratch. Records whose category is
// not recognized count towards neither total.
func Summarize(list []core.Transaction) Summary {
	income := decimal.Zero
	expense := decimal.Zero
	for _, t := range list {
		switch t.Category {
		case core.Income:
			income = income.Add(t.Amount)
		case core.Expense:
			expense = expense.Add(t.Amount)
		}
	}
	return Summary{
		Income:  income,
		Expense: expense,
		Balance: income.Sub(expense),
	}
}

// CategorySeries returns the two chart buckets, income first, regardless of
// which categories occur in list.
func CategorySeries(list []core.Transaction) ([]string, []decimal.Decimal) {
	sum := Summarize(list)
	return []string{LabelIncomeTotal, LabelExpenseTotal},
		[]decimal.Decimal{sum.Income, sum.Expense}
}
