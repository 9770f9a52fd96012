package ledger

import (
	"testing"

	"ledger/internal/core"
)

func sample() []core.Transaction {
	return []core.Transaction{
		tx("Salary", core.Income, "2024-01-01", "1000"),
		tx("Rent", core.Expense, "2024-01-02", "400"),
		tx("Bonus", core.Income, "2024-01-02", "50"),
		tx("Coffee", core.Expense, "", "3.5"),
	}
}

func TestFilter(t *testing.T) {
	cases := []struct {
		name string
		c    Criteria
		want []string
	}{
		{"no criteria", Criteria{}, []string{"Salary", "Rent", "Bonus", "Coffee"}},
		{"income", Criteria{Category: core.Income}, []string{"Salary", "Bonus"}},
		{"expense", Criteria{Category: core.Expense}, []string{"Rent", "Coffee"}},
		{"date", Criteria{Date: "2024-01-02"}, []string{"Rent", "Bonus"}},
		{"both", Criteria{Category: core.Income, Date: "2024-01-02"}, []string{"Bonus"}},
		{"no match", Criteria{Date: "1999-01-01"}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			equalNames(t, Filter(sample(), tc.c), tc.want...)
		})
	}
}

func TestFilterDoesNotModifyInput(t *testing.T) {
	list := sample()
	_ = Filter(list, Criteria{Category: core.Expense})
	equalNames(t, list, "Salary", "Rent", "Bonus", "Coffee")
}

func TestFilterIncomeIsSubsetOfAll(t *testing.T) {
	list := sample()
	for _, got := range Filter(list, Criteria{Category: core.Income}) {
		if got.Category != core.Income {
			t.Fatalf("unexpected category %q", got.Category)
		}
		found := false
		for _, t2 := range list {
			if t2.Equal(got) {
				found = true
			}
		}
		if !found {
			t.Fatalf("%s not in source list", got.Name)
		}
	}
}

func TestFilterIndexedKeepsStoreIndex(t *testing.T) {
	entries := FilterIndexed(sample(), Criteria{Category: core.Expense})
	if len(entries) != 2 {
		t.Fatalf("len = %d", len(entries))
	}
	if entries[0].Index != 1 || entries[1].Index != 3 {
		t.Fatalf("indexes = %d, %d", entries[0].Index, entries[1].Index)
	}
}

func TestCriteriaIsZero(t *testing.T) {
	if !(Criteria{}).IsZero() {
		t.Fatal("empty criteria should be zero")
	}
	if (Criteria{Date: "2024-01-01"}).IsZero() {
		t.Fatal("date criteria should not be zero")
	}
}
