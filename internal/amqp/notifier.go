package amqp

import (
	"context"

	"ledger/internal/ledger"
)

// Publisher is what the notifier needs from a Client.
type Publisher interface {
	PublishLedgerEvent(ctx context.Context, ev *LedgerEvent) error
}

// Notifier turns ledger changes into published events.
type Notifier struct {
	pub Publisher
}

var _ ledger.Observer = (*Notifier)(nil)

func NewNotifier(pub Publisher) *Notifier {
	return &Notifier{pub: pub}
}

func (n *Notifier) LedgerChanged(ctx context.Context, c ledger.Change) error {
	return n.pub.PublishLedgerEvent(ctx, NewLedgerEvent(c))
}
