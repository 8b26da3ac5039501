package memory

import (
	"context"
	"fmt"
	"sync"

	ports "bilancio/internal/sheets"
)

// Store is an in-memory StatementAppender for tests and local runs
// without a spreadsheet.
type Store struct {
	mu      sync.Mutex
	entries []ports.StatementEntry
}

func New() *Store {
	return &Store{}
}

// Append stores the entry and returns a synthetic row reference.
func (s *Store) Append(_ context.Context, entry ports.StatementEntry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return fmt.Sprintf("mem:%d", len(s.entries)), nil
}

// Entries returns a copy of everything appended so far.
func (s *Store) Entries() []ports.StatementEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ports.StatementEntry(nil), s.entries...)
}
