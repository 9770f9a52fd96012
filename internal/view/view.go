// Package view projects a ledger snapshot into the values the page
// templates display. Nothing here mutates ledger state.
package view

import (
	"fmt"
	"html/template"

	"ledger/internal/core"
	"ledger/internal/ledger"

	"github.com/shopspring/decimal"
)

type (
	Row struct {
		Index    int // position in the store, not in the filtered table
		Name     string
		Category string
		Date     string
		Amount   string
	}

	Totals struct {
		Income  string
		Expense string
		Balance string
		// Negative is set when the balance is below zero.
		Negative bool
	}

	FilterState struct {
		Category string
		Date     string
		Active   bool
	}

	Option struct {
		Value    string
		Label    string
		Selected bool
	}

	// Model is everything the ledger templates need.
	Model struct {
		Version    uint64
		Rows       []Row
		Total      int // rows in the unfiltered ledger
		Totals     Totals
		Chart      template.JS
		Filter     FilterState
		Draft      core.Draft
		Categories []Option // form select, draft category selected
		Filters    []Option // filter select, active filter selected
		Theme      Theme
		Error      string
	}
)

// Renderer owns the display policy: amount format and chart backend.
type Renderer struct {
	format Formatter
	chart  ChartRenderer
}

func NewRenderer(f Formatter, chart ChartRenderer) *Renderer {
	if chart == nil {
		chart = ChartJS{}
	}
	return &Renderer{format: f, chart: chart}
}

// Formatter returns the amount formatter in use.
func (r *Renderer) Formatter() Formatter { return r.format }

// Project builds the view model. The table honours the filter; totals and
// chart always cover the whole ledger.
func (r *Renderer) Project(snap ledger.Snapshot, c ledger.Criteria, draft core.Draft) (Model, error) {
	entries := ledger.FilterIndexed(snap.Transactions, c)
	rows := make([]Row, len(entries))
	for i, e := range entries {
		rows[i] = Row{
			Index:    e.Index,
			Name:     e.Transaction.Name,
			Category: string(e.Transaction.Category),
			Date:     e.Transaction.Date,
			Amount:   r.format.Format(e.Transaction.Amount),
		}
	}

	sum := ledger.Summarize(snap.Transactions)
	labels, series := ledger.CategorySeries(snap.Transactions)
	chart, err := r.chart.Render(labels, floats(series))
	if err != nil {
		return Model{}, fmt.Errorf("render chart: %w", err)
	}

	return Model{
		Version: snap.Version,
		Rows:    rows,
		Total:   len(snap.Transactions),
		Totals: Totals{
			Income:   r.format.Format(sum.Income),
			Expense:  r.format.Format(sum.Expense),
			Balance:  r.format.Format(sum.Balance),
			Negative: sum.Balance.IsNegative(),
		},
		Chart: chart,
		Filter: FilterState{
			Category: string(c.Category),
			Date:     c.Date,
			Active:   !c.IsZero(),
		},
		Draft:      draft,
		Categories: categoryOptions(draft.Category, false),
		Filters:    categoryOptions(string(c.Category), true),
		Theme:      ThemeLight,
	}, nil
}

func categoryOptions(selected string, withAll bool) []Option {
	var out []Option
	if withAll {
		out = append(out, Option{Value: "", Label: "all", Selected: selected == ""})
	}
	for _, c := range core.Categories() {
		out = append(out, Option{Value: string(c), Label: string(c), Selected: string(c) == selected})
	}
	return out
}

func floats(ds []decimal.Decimal) []float64 {
	out := make([]float64, len(ds))
	for i, d := range ds {
		out[i] = d.InexactFloat64()
	}
	return out
}
