package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-trust/reputation-engine/domain/entities"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-trust/reputation-engine/ports"
)

const SourceName = "civic-registry"

// Store is an in-process credential registry. It serves as a credential source,
// an optional external tier oracle, and a system clock.
type Store struct {
	mu sync.RWMutex

	name        string
	credentials map[string][]entities.CredentialEntry
	tierHints   map[string]string
}

func NewStore(seed map[string][]entities.CredentialEntry) *Store {
	return NewNamedStore(SourceName, seed)
}

func NewNamedStore(name string, seed map[string][]entities.CredentialEntry) *Store {
	store := &Store{
		name:        strings.TrimSpace(name),
		credentials: make(map[string][]entities.CredentialEntry, len(seed)),
		tierHints:   make(map[string]string),
	}
	for identity, entries := range seed {
		for _, entry := range entries {
			store.AddCredential(identity, entry)
		}
	}
	return store
}

func (s *Store) AddCredential(identity string, entry entities.CredentialEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity = strings.TrimSpace(identity)
	if entry.Source == "" {
		entry.Source = s.name
	}
	entry.IssuedAt = entry.IssuedAt.UTC()
	s.credentials[identity] = append(s.credentials[identity], entry)
}

// SetTierHint stores a raw, unvalidated tier answer for LookupTier.
func (s *Store) SetTierHint(identity string, raw string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tierHints[strings.TrimSpace(identity)] = raw
}

func (s *Store) Name() string {
	return s.name
}

func (s *Store) Fetch(ctx context.Context, identity string) ([]entities.CredentialEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := append([]entities.CredentialEntry(nil), s.credentials[strings.TrimSpace(identity)]...)
	sort.Slice(items, func(i, j int) bool {
		return items[i].IssuedAt.Before(items[j].IssuedAt)
	})
	return items, nil
}

func (s *Store) LookupTier(_ context.Context, identity string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.tierHints[strings.TrimSpace(identity)]
	return raw, ok, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

var _ ports.CredentialSource = (*Store)(nil)
var _ ports.TierLookup = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
