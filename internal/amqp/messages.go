package amqp

import (
	"encoding/json"
	"time"

	"ledger/internal/ledger"

	"github.com/shopspring/decimal"
)

// LedgerEvent is published after every persisted mutation. It carries the
// derived totals, not the transactions themselves.
type LedgerEvent struct {
	Operation    string          `json:"operation"`
	Version      uint64          `json:"version"`
	Count        int             `json:"count"`
	IncomeTotal  decimal.Decimal `json:"income_total"`
	ExpenseTotal decimal.Decimal `json:"expense_total"`
	Balance      decimal.Decimal `json:"balance"`
	Timestamp    time.Time       `json:"timestamp"`
}

// NewLedgerEvent builds an event from a ledger change.
func NewLedgerEvent(c ledger.Change) *LedgerEvent {
	return &LedgerEvent{
		Operation:    string(c.Op),
		Version:      c.Version,
		Count:        c.Count,
		IncomeTotal:  c.Summary.Income,
		ExpenseTotal: c.Summary.Expense,
		Balance:      c.Summary.Balance,
		Timestamp:    time.Now().UTC(),
	}
}

func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
