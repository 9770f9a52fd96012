// Package memory is a process-local slot. Nothing survives a restart.
package memory

import (
	"context"
	"sync"

	"ledger/internal/storage"
)

type Slot struct {
	mu   sync.Mutex
	data map[string][]byte
}

var _ storage.Slot = (*Slot)(nil)

func New() *Slot {
	return &Slot{data: map[string][]byte{}}
}

// Seed returns a slot whose key already holds value.
func Seed(key string, value []byte) *Slot {
	s := New()
	s.data[key] = append([]byte(nil), value...)
	return s
}

func (s *Slot) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return nil, storage.ErrSlotEmpty
	}
	return append([]byte(nil), v...), nil
}

func (s *Slot) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), value...)
	return nil
}
