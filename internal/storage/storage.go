// Package storage persists the transaction list as one snapshot in a named
// slot and reads it back.
package storage

import (
	"context"
	"errors"
	"fmt"

	"ledger/internal/core"
	"ledger/internal/log"
)

// DefaultSlotName is the key the list is stored under.
const DefaultSlotName = "transactions"

var (
	// ErrSlotEmpty is returned by a Slot when nothing was ever written to key.
	ErrSlotEmpty = errors.New("slot is empty")

	// ErrMalformed marks a snapshot that was read but is not a valid list.
	ErrMalformed = errors.New("malformed snapshot")
)

type (
	// Slot is a raw named key/value slot.
	Slot interface {
		Get(ctx context.Context, key string) ([]byte, error)
		Put(ctx context.Context, key string, value []byte) error
	}

	// Backend reads and writes the whole list at once.
	Backend interface {
		Read(ctx context.Context) ([]core.Transaction, error)
		Write(ctx context.Context, list []core.Transaction) error
	}
)

// Snapshots is the storage adapter the ledger service talks to. Loading
// fails open on a missing or malformed snapshot only; a backend that cannot
// be read is an error, so an outage never looks like an empty ledger.
type Snapshots struct {
	backend Backend
	logger  *log.Logger
}

func NewSnapshots(backend Backend, logger *log.Logger) *Snapshots {
	if logger == nil {
		logger = log.Discard()
	}
	return &Snapshots{backend: backend, logger: logger.WithComponent(log.ComponentStorage)}
}

// Load returns the persisted list, or an empty list when the slot is
// missing or malformed. Any other read failure is returned.
func (s *Snapshots) Load(ctx context.Context) ([]core.Transaction, error) {
	list, err := s.backend.Read(ctx)
	switch {
	case errors.Is(err, ErrSlotEmpty):
		list = nil
	case errors.Is(err, ErrMalformed):
		s.logger.WarnContext(ctx, "Snapshot malformed, starting with an empty ledger",
			log.FieldOperation, log.OpLoad,
			log.FieldError, err)
		return []core.Transaction{}, nil
	case err != nil:
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if list == nil {
		list = []core.Transaction{}
	}
	s.logger.DebugContext(ctx, "Snapshot loaded",
		log.FieldOperation, log.OpLoad,
		log.FieldCount, len(list))
	return list, nil
}

// Save overwrites the persisted snapshot with list.
func (s *Snapshots) Save(ctx context.Context, list []core.Transaction) error {
	if err := s.backend.Write(ctx, list); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	s.logger.DebugContext(ctx, "Snapshot saved",
		log.FieldOperation, log.OpSave,
		log.FieldCount, len(list))
	return nil
}
