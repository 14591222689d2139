package app

import (
	"survey-response-service/internal/domain"
)

// AnswerKey is the composite key of one answer: the question plus the
// candidate it refers to, with an empty CandidateID when the survey has no
// candidates.
type AnswerKey struct {
	QuestionID  string `json:"questionId"`
	CandidateID string `json:"candidateId,omitempty"`
}

// Answer is one in-flight cell of the answer matrix.
type Answer struct {
	Key     AnswerKey    `json:"key"`
	Value   domain.Value `json:"value"`
	Comment string       `json:"comment,omitempty"`
}

// Matrix is the full set of in-progress answers for one response session.
// It preserves question display order then candidate order so batched
// persistence is deterministic. Mutation goes through the engine functions
// in mutate.go; the Matrix itself is not safe for concurrent use and is
// guarded by its owning session.
type Matrix struct {
	answers map[AnswerKey]*Answer
	order   []AnswerKey
}

// BuildMatrix fans questions out over candidates (questions alone when there
// are none) and seeds every pairing with its kind-specific default value.
// Pure; empty inputs yield an empty matrix.
func BuildMatrix(questions []domain.Question, candidates []domain.Candidate) *Matrix {
	m := &Matrix{answers: make(map[AnswerKey]*Answer)}
	for _, q := range questions {
		if len(candidates) == 0 {
			m.put(AnswerKey{QuestionID: q.ID}, q.DefaultValue())
			continue
		}
		for _, c := range candidates {
			m.put(AnswerKey{QuestionID: q.ID, CandidateID: c.ID}, q.DefaultValue())
		}
	}
	return m
}

func (m *Matrix) put(key AnswerKey, value domain.Value) {
	if _, ok := m.answers[key]; ok {
		return
	}
	m.answers[key] = &Answer{Key: key, Value: value}
	m.order = append(m.order, key)
}

// Get returns the answer for a key, if present.
func (m *Matrix) Get(key AnswerKey) (Answer, bool) {
	if a, ok := m.answers[key]; ok {
		return *a, true
	}
	return Answer{}, false
}

// getOrCreate looks up the answer for the key, synthesizing one with the
// question's default value when a pairing was never built (e.g. a candidate
// added after the matrix was constructed).
func (m *Matrix) getOrCreate(q domain.Question, candidateID string) *Answer {
	key := AnswerKey{QuestionID: q.ID, CandidateID: candidateID}
	if a, ok := m.answers[key]; ok {
		return a
	}
	m.put(key, q.DefaultValue())
	return m.answers[key]
}

// Len reports how many answers the matrix holds.
func (m *Matrix) Len() int { return len(m.order) }

// Answers returns an ordered snapshot of all answers.
func (m *Matrix) Answers() []Answer {
	out := make([]Answer, 0, len(m.order))
	for _, key := range m.order {
		out = append(out, *m.answers[key])
	}
	return out
}

func findQuestion(questions []domain.Question, questionID string) (domain.Question, bool) {
	for i := range questions {
		if questions[i].ID == questionID {
			return questions[i], true
		}
	}
	return domain.Question{}, false
}
