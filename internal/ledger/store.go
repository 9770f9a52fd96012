package ledger

import "ledger/internal/core"

// Store is the ordered, in-memory list of transactions. It is not safe for
// concurrent use; Service serialises access to it.
type Store struct {
	items []core.Transaction
}

func NewStore(items []core.Transaction) *Store {
	s := &Store{}
	s.Replace(items)
	return s
}

// Add appends t to the end of the list.
func (s *Store) Add(t core.Transaction) {
	s.items = append(s.items, t)
}

// RemoveAt deletes the element at index i. Out-of-range indexes are a no-op
// and report false.
func (s *Store) RemoveAt(i int) (core.Transaction, bool) {
	if i < 0 || i >= len(s.items) {
		return core.Transaction{}, false
	}
	t := s.items[i]
	s.items = append(s.items[:i], s.items[i+1:]...)
	return t, true
}

// EditAt loads the record at index i into form state and removes it from
// the list. Resubmitting the draft goes through Add, so the edited record
// ends up last.
func (s *Store) EditAt(i int) (core.Draft, bool) {
	if i < 0 || i >= len(s.items) {
		return core.Draft{}, false
	}
	draft := core.DraftFrom(s.items[i])
	s.RemoveAt(i)
	return draft, true
}

// insertAt puts t back at index i. Used to undo a removal whose persist
// step failed.
func (s *Store) insertAt(i int, t core.Transaction) {
	if i >= len(s.items) {
		s.items = append(s.items, t)
		return
	}
	s.items = append(s.items, core.Transaction{})
	copy(s.items[i+1:], s.items[i:])
	s.items[i] = t
}

// truncate drops everything from index n on.
func (s *Store) truncate(n int) {
	if n < len(s.items) {
		s.items = s.items[:n]
	}
}

// All returns a copy of the list.
func (s *Store) All() []core.Transaction {
	out := make([]core.Transaction, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) Len() int {
	return len(s.items)
}

// Replace swaps the whole list for a copy of items.
func (s *Store) Replace(items []core.Transaction) {
	s.items = make([]core.Transaction, len(items))
	copy(s.items, items)
}
