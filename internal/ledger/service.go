// Package ledger owns the transaction list and the operations derived from
// it: mutation, aggregation and filtering.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ledger/internal/core"
	"ledger/internal/log"
)

// ErrStaleVersion is returned when a row action refers to a snapshot that
// is no longer current.
var ErrStaleVersion = errors.New("ledger changed since the view was rendered")

// Op names a mutation.
type Op string

const (
	OpAdd    Op = "add"
	OpDelete Op = "delete"
	OpEdit   Op = "edit"
)

type (
	// Snapshotter persists the whole list as one unit.
	Snapshotter interface {
		Load(ctx context.Context) ([]core.Transaction, error)
		Save(ctx context.Context, list []core.Transaction) error
	}

	// Observer is told about every mutation after it was persisted.
	Observer interface {
		LedgerChanged(ctx context.Context, c Change) error
	}

	Change struct {
		Op      Op
		Version uint64
		Count   int
		Summary Summary
	}

	// Snapshot is an immutable copy of the list at a given version.
	Snapshot struct {
		Version      uint64
		Transactions []core.Transaction
	}

	// Ref addresses a row as it was rendered. A zero Version skips the
	// staleness check.
	Ref struct {
		Index   int
		Version uint64
	}
)

// Option configures a Service.
type Option func(*Service)

func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// Service is the explicitly owned ledger: it is built from the persisted
// snapshot, runs every mutation through persist then notify, and flushes on
// Close.
type Service struct {
	mu        sync.Mutex
	store     *Store
	snapshots Snapshotter
	observers []Observer
	version   uint64
	closed    bool
	mutated   bool
	logger    *log.Logger
}

// Open builds the service from whatever the snapshotter loads. A snapshot
// that cannot be read fails Open rather than starting empty.
func Open(ctx context.Context, snapshots Snapshotter, opts ...Option) (*Service, error) {
	s := &Service{
		snapshots: snapshots,
		version:   1,
		logger:    log.New(log.DefaultConfig()).WithComponent(log.ComponentLedger),
	}
	for _, opt := range opts {
		opt(s)
	}
	list, err := snapshots.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	s.store = NewStore(list)
	s.logger.InfoContext(ctx, "Ledger opened",
		log.FieldOperation, log.OpStartup,
		log.FieldCount, s.store.Len())
	return s, nil
}

// Snapshot returns the current list and version.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Service) snapshotLocked() Snapshot {
	return Snapshot{Version: s.version, Transactions: s.store.All()}
}

// Add appends t and persists the result.
func (s *Service) Add(ctx context.Context, t core.Transaction) (Snapshot, error) {
	var change *Change
	defer func() { s.notify(ctx, change) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.store.Len()
	s.store.Add(t)
	change, err := s.commitLocked(ctx, OpAdd, func() { s.store.truncate(n) })
	if err != nil {
		return s.snapshotLocked(), err
	}
	s.logger.InfoContext(ctx, "Transaction added",
		log.FieldOperation, log.OpCreate,
		log.FieldName, t.Name,
		log.FieldCategory, t.Category.String(),
		log.FieldAmount, t.Amount.String(),
		log.FieldVersion, s.version)
	return s.snapshotLocked(), nil
}

// Delete removes the referenced row. An index outside the list is a silent
// no-op and reports false.
func (s *Service) Delete(ctx context.Context, ref Ref) (Snapshot, bool, error) {
	var change *Change
	defer func() { s.notify(ctx, change) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkVersionLocked(ref); err != nil {
		return s.snapshotLocked(), false, err
	}
	removed, ok := s.store.RemoveAt(ref.Index)
	if !ok {
		s.logger.WarnContext(ctx, "Delete ignored, index out of range",
			log.FieldIndex, ref.Index, log.FieldCount, s.store.Len())
		return s.snapshotLocked(), false, nil
	}
	change, err := s.commitLocked(ctx, OpDelete, func() { s.store.insertAt(ref.Index, removed) })
	if err != nil {
		return s.snapshotLocked(), false, err
	}
	s.logger.InfoContext(ctx, "Transaction deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldIndex, ref.Index,
		log.FieldVersion, s.version)
	return s.snapshotLocked(), true, nil
}

// Edit loads the referenced row into a draft and removes it from the list.
// The caller hands the draft back to the form; resubmitting it is an Add.
func (s *Service) Edit(ctx context.Context, ref Ref) (core.Draft, Snapshot, bool, error) {
	var change *Change
	defer func() { s.notify(ctx, change) }()
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkVersionLocked(ref); err != nil {
		return core.Draft{}, s.snapshotLocked(), false, err
	}
	if ref.Index < 0 || ref.Index >= s.store.Len() {
		s.logger.WarnContext(ctx, "Edit ignored, index out of range",
			log.FieldIndex, ref.Index, log.FieldCount, s.store.Len())
		return core.Draft{}, s.snapshotLocked(), false, nil
	}
	removed := s.store.All()[ref.Index]
	draft, _ := s.store.EditAt(ref.Index)
	change, err := s.commitLocked(ctx, OpEdit, func() { s.store.insertAt(ref.Index, removed) })
	if err != nil {
		return core.Draft{}, s.snapshotLocked(), false, err
	}
	s.logger.InfoContext(ctx, "Transaction loaded for editing",
		log.FieldOperation, log.OpUpdate,
		log.FieldIndex, ref.Index,
		log.FieldVersion, s.version)
	return draft, s.snapshotLocked(), true, nil
}

// Close flushes the current list when anything was mutated since Open.
// Further mutations are still accepted but Close is expected to be the last
// call.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if !s.mutated {
		return nil
	}
	if err := s.snapshots.Save(ctx, s.store.All()); err != nil {
		return fmt.Errorf("flush ledger: %w", err)
	}
	s.logger.InfoContext(ctx, "Ledger flushed",
		log.FieldOperation, log.OpShutdown,
		log.FieldCount, s.store.Len())
	return nil
}

func (s *Service) checkVersionLocked(ref Ref) error {
	if ref.Version != 0 && ref.Version != s.version {
		return ErrStaleVersion
	}
	return nil
}

// commitLocked persists the list and bumps the version. On a failed persist
// the mutation is undone. The returned change is for notify, which runs
// after the lock is released.
func (s *Service) commitLocked(ctx context.Context, op Op, undo func()) (*Change, error) {
	list := s.store.All()
	if err := s.snapshots.Save(ctx, list); err != nil {
		undo()
		s.logger.ErrorContext(ctx, "Persisting snapshot failed, mutation rolled back",
			log.FieldOperation, string(op),
			log.FieldError, err)
		return nil, fmt.Errorf("persist snapshot: %w", err)
	}
	s.version++
	s.mutated = true
	return &Change{Op: op, Version: s.version, Count: len(list), Summary: Summarize(list)}, nil
}

// notify hands a persisted change to every observer. It must be called
// without s.mu held: a slow observer never blocks readers.
func (s *Service) notify(ctx context.Context, c *Change) {
	if c == nil {
		return
	}
	for _, o := range s.observers {
		if err := o.LedgerChanged(ctx, *c); err != nil {
			s.logger.WarnContext(ctx, "Ledger observer failed",
				log.FieldOperation, string(c.Op),
				log.FieldVersion, c.Version,
				log.FieldError, err)
		}
	}
}
