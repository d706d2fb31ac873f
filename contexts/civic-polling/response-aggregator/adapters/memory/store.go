package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/domain/entities"
	domainerrors "github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/domain/errors"
	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/ports"

	"github.com/google/uuid"
)

type Store struct {
	mu sync.RWMutex

	polls     map[string]entities.Poll
	responses map[string][]entities.PollResponse
	responder map[string]int
}

func NewStore() *Store {
	return &Store{
		polls:     make(map[string]entities.Poll),
		responses: make(map[string][]entities.PollResponse),
		responder: make(map[string]int),
	}
}

func (s *Store) CreatePoll(_ context.Context, poll entities.Poll) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.polls[poll.PollID]; ok {
		return domainerrors.ErrConflict
	}
	poll.Options = append([]string(nil), poll.Options...)
	s.polls[poll.PollID] = poll
	return nil
}

func (s *Store) GetPoll(_ context.Context, pollID string) (entities.Poll, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	poll, ok := s.polls[strings.TrimSpace(pollID)]
	if !ok {
		return entities.Poll{}, domainerrors.ErrNotFound
	}
	poll.Options = append([]string(nil), poll.Options...)
	return poll, nil
}

func (s *Store) AppendResponse(_ context.Context, response entities.PollResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.polls[response.PollID]; !ok {
		return domainerrors.ErrNotFound
	}
	key := responderKey(response.PollID, response.ResponderHash)
	if _, ok := s.responder[key]; ok {
		return domainerrors.ErrConflict
	}
	response.Selected = append([]string(nil), response.Selected...)
	s.responder[key] = len(s.responses[response.PollID])
	s.responses[response.PollID] = append(s.responses[response.PollID], response)
	return nil
}

func (s *Store) FindResponse(_ context.Context, pollID string, responderHash string) (entities.PollResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pollID = strings.TrimSpace(pollID)
	index, ok := s.responder[responderKey(pollID, strings.TrimSpace(responderHash))]
	if !ok {
		return entities.PollResponse{}, domainerrors.ErrNotFound
	}
	return cloneResponse(s.responses[pollID][index]), nil
}

func (s *Store) ListResponses(_ context.Context, pollID string) ([]entities.PollResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.responses[strings.TrimSpace(pollID)]
	items := make([]entities.PollResponse, 0, len(stored))
	for _, response := range stored {
		items = append(items, cloneResponse(response))
	}
	return items, nil
}

// Tamper overwrites a stored response in place, bypassing every check.
func (s *Store) Tamper(response entities.PollResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	index, ok := s.responder[responderKey(response.PollID, response.ResponderHash)]
	if !ok {
		return
	}
	s.responses[response.PollID][index] = response
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func responderKey(pollID string, responderHash string) string {
	return pollID + "|" + responderHash
}

func cloneResponse(response entities.PollResponse) entities.PollResponse {
	response.Selected = append([]string(nil), response.Selected...)
	return response
}

var (
	_ ports.PollRepository = (*Store)(nil)
	_ ports.Clock          = (*Store)(nil)
	_ ports.IDGenerator    = (*Store)(nil)
)
