package app

import (
	"fmt"

	"survey-response-service/internal/domain"
)

// ValidationResult is the outcome of one full validation pass. All
// violations are collected in a single scan and surfaced together.
// OffendingQuestionIDs holds unique question ids in display order; required
// participant fields contribute violations only, never offending ids.
type ValidationResult struct {
	Violations           []string `json:"violations"`
	OffendingQuestionIDs []string `json:"offendingQuestionIds"`
}

// OK reports whether the matrix is submittable.
func (r ValidationResult) OK() bool { return len(r.Violations) == 0 }

// Err converts a failed result into a ValidationError, or nil when clean.
func (r ValidationResult) Err() error {
	if r.OK() {
		return nil
	}
	return &domain.ValidationError{
		Violations:           r.Violations,
		OffendingQuestionIDs: r.OffendingQuestionIDs,
	}
}

// Validate scans the matrix against per-question required flags and the
// survey's participant-data policy. When candidates exist, a required
// question must have a complete answer for every candidate. "Complete"
// means not null, not empty text, not an empty list and not NaN. Pure and
// side-effect free; focusing the offending question is a UI concern.
func Validate(
	m *Matrix,
	questions []domain.Question,
	candidates []domain.Candidate,
	policy domain.ParticipantPolicy,
	participantValues map[string]string,
) ValidationResult {
	var result ValidationResult

	for _, field := range domain.ParticipantFields {
		rule, ok := policy[field]
		if !ok || !rule.Required {
			continue
		}
		if participantValues[field] == "" {
			result.Violations = append(result.Violations,
				fmt.Sprintf("%s is required", domain.FieldLabels[field]))
		}
	}

	offending := make(map[string]struct{})
	for _, q := range questions {
		if !q.Required {
			continue
		}
		if len(candidates) == 0 {
			if answerComplete(m, AnswerKey{QuestionID: q.ID}) {
				continue
			}
			result.Violations = append(result.Violations,
				fmt.Sprintf("Question %q requires an answer", q.Prompt))
			markOffending(&result, offending, q.ID)
			continue
		}
		for _, c := range candidates {
			if answerComplete(m, AnswerKey{QuestionID: q.ID, CandidateID: c.ID}) {
				continue
			}
			result.Violations = append(result.Violations,
				fmt.Sprintf("Question %q requires an answer for %s", q.Prompt, c.Name))
			markOffending(&result, offending, q.ID)
		}
	}
	return result
}

func answerComplete(m *Matrix, key AnswerKey) bool {
	ans, ok := m.Get(key)
	return ok && !ans.Value.IsEmpty()
}

func markOffending(result *ValidationResult, seen map[string]struct{}, questionID string) {
	if _, ok := seen[questionID]; ok {
		return
	}
	seen[questionID] = struct{}{}
	result.OffendingQuestionIDs = append(result.OffendingQuestionIDs, questionID)
}
