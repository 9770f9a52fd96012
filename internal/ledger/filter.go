package ledger

import "ledger/internal/core"

// Criteria narrows the displayed list. Empty fields do not constrain.
type Criteria struct {
	Category core.Category
	Date     string // exact ISO date, not a range
}

// IsZero reports whether no constraint is set.
func (c Criteria) IsZero() bool {
	return c.Category == "" && c.Date == ""
}

func (c Criteria) Match(t core.Transaction) bool {
	return (c.Category == "" || t.Category == c.Category) &&
		(c.Date == "" || t.Date == c.Date)
}

// Entry is a transaction together with its position in the store.
type Entry struct {
	Index       int
	Transaction core.Transaction
}

// Filter returns the matching records in their original relative order.
// The input is never modified.
func Filter(list []core.Transaction, c Criteria) []core.Transaction {
	out := make([]core.Transaction, 0, len(list))
	for _, t := range list {
		if c.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

// FilterIndexed is Filter keeping each record's store index, so actions on
// a filtered row resolve to the right record.
func FilterIndexed(list []core.Transaction, c Criteria) []Entry {
	out := make([]Entry, 0, len(list))
	for i, t := range list {
		if c.Match(t) {
			out = append(out, Entry{Index: i, Transaction: t})
		}
	}
	return out
}
