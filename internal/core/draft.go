package core

// Draft holds the raw values of the transaction form. It is what an edit
// loads back into the form and what a submit turns into a Transaction.
type Draft struct {
	Name     string
	Category string
	Date     string
	Amount   string
}

// DefaultDraft is the state the form resets to after a submit.
func DefaultDraft() Draft {
	return Draft{Category: string(Income)}
}

// DraftFrom copies a stored transaction into form state.
func DraftFrom(t Transaction) Draft {
	return Draft{
		Name:     t.Name,
		Category: string(t.Category),
		Date:     t.Date,
		Amount:   t.Amount.String(),
	}
}

// Transaction builds a Transaction from the draft. Only the amount is
// parsed; name and date are taken as entered.
func (d Draft) Transaction() (Transaction, error) {
	cat, err := ParseCategory(d.Category)
	if err != nil {
		return Transaction{}, err
	}
	if err := ValidateDate(d.Date); err != nil {
		return Transaction{}, err
	}
	amount, err := ParseAmount(d.Amount)
	if err != nil {
		return Transaction{}, err
	}
	return Transaction{
		Name:     d.Name,
		Category: cat,
		Date:     d.Date,
		Amount:   amount,
	}, nil
}
