package storage

import (
	"context"
	"errors"
	"fmt"

	"ledger/internal/core"
)

// SlotBackend stores the JSON-encoded list under one key of a Slot.
type SlotBackend struct {
	slot Slot
	key  string
}

var _ Backend = (*SlotBackend)(nil)

func NewSlotBackend(slot Slot, key string) *SlotBackend {
	if key == "" {
		key = DefaultSlotName
	}
	return &SlotBackend{slot: slot, key: key}
}

func (b *SlotBackend) Read(ctx context.Context) ([]core.Transaction, error) {
	data, err := b.slot.Get(ctx, b.key)
	if errors.Is(err, ErrSlotEmpty) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read slot %q: %w", b.key, err)
	}
	return Decode(data)
}

func (b *SlotBackend) Write(ctx context.Context, list []core.Transaction) error {
	data, err := Encode(list)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := b.slot.Put(ctx, b.key, data); err != nil {
		return fmt.Errorf("write slot %q: %w", b.key, err)
	}
	return nil
}
