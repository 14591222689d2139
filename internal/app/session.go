package app

import (
	"sync"
	"time"

	"survey-response-service/internal/domain"
)

// Session owns the in-flight answer matrix for one respondent plus the
// participant field values, opinion text and device metadata collected
// alongside it. All access goes through its methods; a submission takes
// exclusive advisory ownership, after which edits fail with
// domain.ErrSessionLocked. Sessions are discarded from their store on
// successful submission or abandonment.
type Session struct {
	id        string
	orgID     string
	def       domain.Definition
	createdAt time.Time
	now       func() time.Time

	mu          sync.Mutex
	matrix      *Matrix
	participant map[string]string
	opinion     string
	meta        domain.SubmissionMeta
	submitting  bool
}

// NewSession builds a session with a freshly built matrix for the
// definition.
func NewSession(id, orgID string, def domain.Definition, meta domain.SubmissionMeta) *Session {
	return NewSessionWithClock(id, orgID, def, meta, time.Now)
}

// NewSessionWithClock is test-only for deterministic timestamps.
func NewSessionWithClock(id, orgID string, def domain.Definition, meta domain.SubmissionMeta, now func() time.Time) *Session {
	return &Session{
		id:          id,
		orgID:       orgID,
		def:         def,
		createdAt:   now(),
		now:         now,
		matrix:      BuildMatrix(def.Questions, def.Candidates),
		participant: make(map[string]string),
		meta:        meta,
	}
}

func (s *Session) ID() string { return s.id }

// OrganizationID returns the organization the session was opened under.
func (s *Session) OrganizationID() string { return s.orgID }

// Definition returns the loaded survey definition. It is read-only for the
// lifetime of the session; question kinds never change mid-session.
func (s *Session) Definition() domain.Definition { return s.def }

// Answers returns an ordered snapshot of the matrix.
func (s *Session) Answers() []Answer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.matrix.Answers()
}

// ApplyAnswer routes one edit through the mutation engine.
func (s *Session) ApplyAnswer(questionID, candidateID string, raw domain.Value) (Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitting {
		return Answer{}, domain.ErrSessionLocked
	}
	return ApplyAnswer(s.matrix, s.def.Questions, questionID, candidateID, raw)
}

// ApplyComment sets the comment of one answer.
func (s *Session) ApplyComment(questionID, candidateID, text string) (Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitting {
		return Answer{}, domain.ErrSessionLocked
	}
	return ApplyComment(s.matrix, s.def.Questions, questionID, candidateID, text)
}

// SetParticipantField records one externally-collected participant value.
// Unknown field names are ignored rather than rejected; the policy decides
// what is persisted.
func (s *Session) SetParticipantField(field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitting {
		return domain.ErrSessionLocked
	}
	s.participant[field] = value
	return nil
}

// SetOpinion records the global free-text opinion.
func (s *Session) SetOpinion(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitting {
		return domain.ErrSessionLocked
	}
	s.opinion = text
	return nil
}

// Validate runs the validation engine over the current matrix state.
func (s *Session) Validate() ValidationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Validate(s.matrix, s.def.Questions, s.def.Candidates, s.def.Survey.Policy, s.participantValuesLocked())
}

func (s *Session) participantValuesLocked() map[string]string {
	values := make(map[string]string, len(s.participant))
	for k, v := range s.participant {
		values[k] = v
	}
	return values
}

// beginSubmit takes exclusive ownership of the matrix for the duration of a
// submission and hands back the state the pipeline needs.
func (s *Session) beginSubmit() (*Matrix, map[string]string, string, domain.SubmissionMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitting {
		return nil, nil, "", domain.SubmissionMeta{}, domain.ErrSessionLocked
	}
	s.submitting = true
	return s.matrix, s.participantValuesLocked(), s.opinion, s.meta, nil
}

// endSubmit releases ownership after a failed submission so the caller can
// correct and retry.
func (s *Session) endSubmit() {
	s.mu.Lock()
	s.submitting = false
	s.mu.Unlock()
}

// SessionStore abstracts how in-flight sessions are tracked (in-memory,
// Redis-marked, etc).
type SessionStore interface {
	Put(session *Session)
	Get(id string) (*Session, bool)
	Delete(id string)
}
