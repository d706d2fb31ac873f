package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/domain/entities"
	domainerrors "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/domain/errors"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/ballot-ledger/ports"
)

type Store struct {
	mu         sync.RWMutex
	entries    map[int64]entities.LedgerEntry
	rejections []entities.Rejection
}

func NewStore() *Store {
	return &Store{
		entries: make(map[int64]entities.LedgerEntry),
	}
}

func (s *Store) Append(_ context.Context, entry entities.LedgerEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[entry.Position]; exists {
		return domainerrors.ErrConflict
	}
	s.entries[entry.Position] = entry
	return nil
}

func (s *Store) LoadAll(_ context.Context) ([]entities.LedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.LedgerEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		items = append(items, entry)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Position < items[j].Position })
	return items, nil
}

func (s *Store) SetActive(_ context.Context, position int64, active bool, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[position]
	if !ok {
		return domainerrors.ErrNotFound
	}
	entry.Active = active
	entry.InactiveReason = reason
	if active {
		entry.InactiveReason = ""
	}
	s.entries[position] = entry
	return nil
}

func (s *Store) RecordRejection(_ context.Context, rejection entities.Rejection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejections = append(s.rejections, rejection)
	return nil
}

func (s *Store) LoadRejections(_ context.Context) ([]entities.Rejection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.Rejection(nil), s.rejections...), nil
}

func (s *Store) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[int64]entities.LedgerEntry)
	s.rejections = nil
	return nil
}

// Tamper overwrites a stored entry without any checks. Tests use it to
// simulate a corrupted log.
func (s *Store) Tamper(entry entities.LedgerEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.Position] = entry
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

var _ ports.LogStore = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
