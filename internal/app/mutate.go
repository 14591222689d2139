package app

import (
	"survey-response-service/internal/domain"
)

// ApplyAnswer applies a single user edit to one answer. Semantics branch on
// the question's kind:
//
//   - multi-select poll: the raw value is one option token, toggled in the
//     set (removal keeps the remaining insertion order, so removing and
//     re-adding moves the token to the end);
//   - vote: the raw value is coerced to a boolean; re-submitting the current
//     choice clears the answer back to null;
//   - score: the value is replaced; text input is coerced to an integer
//     with 0 on parse failure, other kinds are stored as-is;
//   - everything else: the value is replaced outright.
//
// The updated answer is returned for echoing back to the client.
func ApplyAnswer(m *Matrix, questions []domain.Question, questionID, candidateID string, raw domain.Value) (Answer, error) {
	q, ok := findQuestion(questions, questionID)
	if !ok {
		return Answer{}, domain.ErrQuestionNotFound
	}
	ans := m.getOrCreate(q, candidateID)

	switch {
	case q.Kind == domain.KindPoll && q.MultipleChoice:
		ans.Value = toggleToken(ans.Value, raw.Token())
	case q.Kind == domain.KindVote:
		next := raw.AsBool()
		if ans.Value.Kind() == domain.ValueBool && ans.Value.Bool() == next {
			ans.Value = domain.NullValue()
		} else {
			ans.Value = domain.BoolValue(next)
		}
	case q.Kind == domain.KindScore:
		if raw.Kind() == domain.ValueText {
			ans.Value = domain.NumberValue(float64(raw.AsInt()))
		} else {
			ans.Value = raw
		}
	default:
		ans.Value = raw
	}
	return *ans, nil
}

// ApplyComment sets only the answer's comment, independent of its value.
// It is a no-op when the question does not allow comments.
func ApplyComment(m *Matrix, questions []domain.Question, questionID, candidateID, text string) (Answer, error) {
	q, ok := findQuestion(questions, questionID)
	if !ok {
		return Answer{}, domain.ErrQuestionNotFound
	}
	ans := m.getOrCreate(q, candidateID)
	if q.AllowComment {
		ans.Comment = text
	}
	return *ans, nil
}

func toggleToken(current domain.Value, token string) domain.Value {
	if current.Contains(token) {
		kept := make([]string, 0, len(current.List()))
		for _, item := range current.List() {
			if item != token {
				kept = append(kept, item)
			}
		}
		return domain.ListValue(kept)
	}
	return domain.ListValue(append(append([]string{}, current.List()...), token))
}
