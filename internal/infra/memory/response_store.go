package memory

import (
	"context"
	"sync"

	"survey-response-service/internal/domain"
)

// ResponseStore keeps participants, submissions and responses in memory,
// mirroring the semantics of the Postgres store for tests and the
// no-database demo mode: phone dedup per organization and a
// submission-level uniqueness guard on (phone, survey).
type ResponseStore struct {
	mu           sync.Mutex
	participants map[string]domain.Participant // key: orgID + "|" + phone
	byID         map[string]domain.Participant
	submissions  map[string]struct{} // key: phone + "|" + surveyID
	responses    []domain.Response
}

func NewResponseStore() *ResponseStore {
	return &ResponseStore{
		participants: make(map[string]domain.Participant),
		byID:         make(map[string]domain.Participant),
		submissions:  make(map[string]struct{}),
	}
}

func (s *ResponseStore) FindParticipantByPhone(_ context.Context, phone, organizationID string) (*domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.participants[organizationID+"|"+phone]; ok {
		return &p, nil
	}
	return nil, nil
}

func (s *ResponseStore) InsertParticipant(_ context.Context, p domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.Phone != "" {
		s.participants[p.OrganizationID+"|"+p.Phone] = p
	}
	s.byID[p.ID] = p
	return nil
}

func (s *ResponseStore) HasResponse(_ context.Context, phone, surveyID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.submissions[phone+"|"+surveyID]
	return ok, nil
}

func (s *ResponseStore) BeginSubmission(_ context.Context, phone, surveyID, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := phone + "|" + surveyID
	if _, ok := s.submissions[key]; ok {
		return domain.ErrAlreadyResponded
	}
	s.submissions[key] = struct{}{}
	return nil
}

func (s *ResponseStore) InsertResponses(_ context.Context, batch []domain.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses = append(s.responses, batch...)
	return nil
}

// Responses returns a snapshot of everything written, for assertions.
func (s *ResponseStore) Responses() []domain.Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Response, len(s.responses))
	copy(out, s.responses)
	return out
}

// Participants returns a snapshot of all created participants.
func (s *ResponseStore) Participants() []domain.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Participant, 0, len(s.byID))
	for _, p := range s.byID {
		out = append(out, p)
	}
	return out
}
