package app

import (
	"context"

	"github.com/google/uuid"

	"survey-response-service/internal/domain"
)

// DefinitionRepository loads survey definitions (from cache/backing store).
type DefinitionRepository interface {
	GetDefinition(ctx context.Context, surveyID, organizationID string) (domain.Definition, error)
}

// SurveyService contains the survey-response use cases exposed to
// transports: open a session over a definition, edit its matrix, validate
// and submit.
type SurveyService struct {
	definitions DefinitionRepository
	sessions    SessionStore
	pipeline    *Pipeline
	newID       func() string
}

func NewSurveyService(definitions DefinitionRepository, sessions SessionStore, pipeline *Pipeline) *SurveyService {
	return &SurveyService{
		definitions: definitions,
		sessions:    sessions,
		pipeline:    pipeline,
		newID:       uuid.NewString,
	}
}

// StartSession loads the survey definition and opens a response session
// with a freshly built answer matrix.
func (s *SurveyService) StartSession(ctx context.Context, surveyID, organizationID string, meta domain.SubmissionMeta) (*Session, error) {
	def, err := s.definitions.GetDefinition(ctx, surveyID, organizationID)
	if err != nil {
		return nil, err
	}
	session := NewSession(s.newID(), organizationID, def, meta)
	s.sessions.Put(session)
	return session, nil
}

// Answer applies one edit to the session's matrix.
func (s *SurveyService) Answer(sessionID, questionID, candidateID string, raw domain.Value) (Answer, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return Answer{}, domain.ErrSessionNotFound
	}
	return session.ApplyAnswer(questionID, candidateID, raw)
}

// Comment sets the comment of one answer.
func (s *SurveyService) Comment(sessionID, questionID, candidateID, text string) (Answer, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return Answer{}, domain.ErrSessionNotFound
	}
	return session.ApplyComment(questionID, candidateID, text)
}

// SetParticipantField records one participant-data value on the session.
func (s *SurveyService) SetParticipantField(sessionID, field, value string) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.SetParticipantField(field, value)
}

// SetOpinion records the free-text opinion on the session.
func (s *SurveyService) SetOpinion(sessionID, text string) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	return session.SetOpinion(text)
}

// Validate runs the validation engine on the session's current state.
func (s *SurveyService) Validate(sessionID string) (ValidationResult, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return ValidationResult{}, domain.ErrSessionNotFound
	}
	return session.Validate(), nil
}

// Submit validates the session and, when clean, runs the submission
// pipeline while holding exclusive ownership of the matrix. The session is
// dropped on success and released for correction on failure. Validation
// failures come back as *domain.ValidationError for the caller to
// re-render, not as pipeline faults.
func (s *SurveyService) Submit(ctx context.Context, sessionID string) (domain.SubmissionReceipt, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.SubmissionReceipt{}, domain.ErrSessionNotFound
	}

	matrix, values, opinion, meta, err := session.beginSubmit()
	if err != nil {
		return domain.SubmissionReceipt{}, err
	}

	def := session.Definition()
	if result := Validate(matrix, def.Questions, def.Candidates, def.Survey.Policy, values); !result.OK() {
		session.endSubmit()
		return domain.SubmissionReceipt{}, result.Err()
	}

	receipt, err := s.pipeline.Submit(ctx, def, session.OrganizationID(), matrix, values, opinion, meta)
	if err != nil {
		session.endSubmit()
		return domain.SubmissionReceipt{}, err
	}
	s.sessions.Delete(sessionID)
	return receipt, nil
}

// Abandon drops a session before submission; in-memory state only, so it
// has no side effects.
func (s *SurveyService) Abandon(sessionID string) {
	s.sessions.Delete(sessionID)
}
