package view

import (
	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

const (
	DefaultCurrencySymbol = "R$"
	// DefaultAmountFormat is a go-humanize pattern: no thousands separator,
	// comma decimal separator, two decimals.
	DefaultAmountFormat = "####,##"
)

// Formatter renders amounts for display. It never feeds back into the
// stored values.
type Formatter struct {
	Symbol  string
	Pattern string
}

func NewFormatter(symbol, pattern string) Formatter {
	if symbol == "" {
		symbol = DefaultCurrencySymbol
	}
	if pattern == "" {
		pattern = DefaultAmountFormat
	}
	return Formatter{Symbol: symbol, Pattern: pattern}
}

// Format returns e.g. "R$ 1000,00" or "R$ -400,00".
func (f Formatter) Format(d decimal.Decimal) string {
	v, _ := d.Round(2).Float64()
	return f.Symbol + " " + humanize.FormatFloat(f.Pattern, v)
}
