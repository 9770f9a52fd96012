package storage

import (
	"bytes"
	"encoding/json"
	"fmt"

	"ledger/internal/core"

	"github.com/shopspring/decimal"
)

// record is the persisted shape of one transaction. Amount is written as a
// bare JSON number.
type record struct {
	Name     string      `json:"name"`
	Category string      `json:"category"`
	Date     string      `json:"date"`
	Amount   json.Number `json:"amount"`
}

// Encode serialises list as a JSON array.
func Encode(list []core.Transaction) ([]byte, error) {
	recs := make([]record, len(list))
	for i, t := range list {
		recs[i] = record{
			Name:     t.Name,
			Category: string(t.Category),
			Date:     t.Date,
			Amount:   json.Number(t.Amount.String()),
		}
	}
	return json.Marshal(recs)
}

// Decode parses a snapshot. Categories are kept verbatim, even unrecognized
// ones; an amount that is not a number fails the whole snapshot.
func Decode(data []byte) ([]core.Transaction, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	var recs []record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	list := make([]core.Transaction, 0, len(recs))
	for i, r := range recs {
		amount, err := decimal.NewFromString(r.Amount.String())
		if err != nil {
			return nil, fmt.Errorf("%w: record %d amount %q: %w", ErrMalformed, i, r.Amount, core.ErrInvalidAmount)
		}
		list = append(list, core.Transaction{
			Name:     r.Name,
			Category: core.Category(r.Category),
			Date:     r.Date,
			Amount:   amount,
		})
	}
	return list, nil
}
