package memory

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/vote-issuance/domain/entities"
	domainerrors "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/vote-issuance/domain/errors"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-ballot/vote-issuance/ports"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/internal/shared/outbox"

	"github.com/google/uuid"
)

type Store struct {
	mu sync.RWMutex

	reservations map[string]entities.Reservation
	outbox       map[string]outbox.Message
	sequence     map[string]int64
	nextSeq      int64
}

func NewStore() *Store {
	return &Store{
		reservations: make(map[string]entities.Reservation),
		outbox:       make(map[string]outbox.Message),
		sequence:     make(map[string]int64),
	}
}

func (s *Store) Claim(_ context.Context, candidate entities.Reservation, now time.Time) (entities.Reservation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := entities.SlotKey(strings.TrimSpace(candidate.BallotID), strings.TrimSpace(candidate.AnonymizedIdentity))
	if existing, ok := s.reservations[key]; ok && existing.Blocks(now) {
		return existing, false, nil
	}
	candidate.Committed = false
	s.reservations[key] = candidate
	return candidate, true, nil
}

func (s *Store) Commit(_ context.Context, ballotID string, anonymizedIdentity string, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := entities.SlotKey(strings.TrimSpace(ballotID), strings.TrimSpace(anonymizedIdentity))
	existing, ok := s.reservations[key]
	if !ok || existing.TokenID != strings.TrimSpace(tokenID) {
		return domainerrors.ErrReservationNotFound
	}
	existing.Committed = true
	s.reservations[key] = existing
	return nil
}

func (s *Store) Release(_ context.Context, ballotID string, anonymizedIdentity string, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := entities.SlotKey(strings.TrimSpace(ballotID), strings.TrimSpace(anonymizedIdentity))
	existing, ok := s.reservations[key]
	if !ok || existing.TokenID != strings.TrimSpace(tokenID) || existing.Committed {
		return nil
	}
	delete(s.reservations, key)
	return nil
}

func (s *Store) PruneExpired(_ context.Context, now time.Time, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 500
	}
	pruned := 0
	for key, reservation := range s.reservations {
		if pruned >= limit {
			break
		}
		if reservation.Blocks(now) {
			continue
		}
		delete(s.reservations, key)
		pruned++
	}
	return pruned, nil
}

// Reservation returns the current slot holder, for tests and diagnostics.
func (s *Store) Reservation(ballotID string, anonymizedIdentity string) (entities.Reservation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.reservations[entities.SlotKey(ballotID, anonymizedIdentity)]
	return item, ok
}

func (s *Store) AppendOutbox(_ context.Context, message outbox.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := strings.TrimSpace(message.ID)
	if id == "" {
		id = uuid.NewString()
	}
	if existing, ok := s.outbox[id]; ok {
		if !bytes.Equal(existing.Payload, message.Payload) {
			return domainerrors.ErrConflict
		}
		return nil
	}
	message.ID = id
	message.Status = outbox.StatusPending
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	s.outbox[id] = message
	s.nextSeq++
	s.sequence[id] = s.nextSeq
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]outbox.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	items := make([]outbox.Message, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.Status != outbox.StatusPending {
			continue
		}
		items = append(items, row)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return s.sequence[items[i].ID] < s.sequence[items[j].ID]
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxAttempt(_ context.Context, id string, lastError string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(id)]
	if !ok {
		return domainerrors.ErrOutboxNotFound
	}
	row.Attempts++
	row.LastError = lastError
	s.outbox[row.ID] = row
	return nil
}

func (s *Store) SettleOutbox(_ context.Context, id string, status outbox.Status, reason string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.outbox[strings.TrimSpace(id)]
	if !ok {
		return domainerrors.ErrOutboxNotFound
	}
	if row.Status != outbox.StatusPending {
		return nil
	}
	settled := at.UTC()
	row.Status = status
	row.LastError = reason
	row.SettledAt = &settled
	s.outbox[row.ID] = row
	return nil
}

// OutboxMessage returns a stored row, for tests and diagnostics.
func (s *Store) OutboxMessage(id string) (outbox.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.outbox[id]
	return row, ok
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.ReservationRegistry = (*Store)(nil)
var _ ports.Outbox = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
