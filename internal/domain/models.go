package domain

import (
	"strings"
	"time"
)

// QuestionKind selects the answer shape and mutation semantics of a question.
type QuestionKind string

const (
	KindStars  QuestionKind = "stars"  // 1-5 rating, numeric
	KindScore  QuestionKind = "score"  // 0-10 rating, numeric
	KindVote   QuestionKind = "vote"   // yes/no, boolean with clear-on-reclick
	KindPoll   QuestionKind = "poll"   // option poll, single or multiple choice
	KindText   QuestionKind = "text"   // free text
	KindChoice QuestionKind = "choice" // single choice from options
)

// Option is one selectable entry of a poll or choice question.
type Option struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Order int    `json:"order"`
}

// Question is one prompt within a survey.
type Question struct {
	ID             string       `json:"id"`
	SurveyID       string       `json:"surveyId"`
	Prompt         string       `json:"prompt"`
	Kind           QuestionKind `json:"kind"`
	Options        []Option     `json:"options,omitempty"`
	MultipleChoice bool         `json:"multipleChoice"`
	Required       bool         `json:"required"`
	AllowComment   bool         `json:"allowComment"`
	Order          int          `json:"order"`
}

// Candidate is an optional subject being rated; when a survey has candidates
// every question fans out into one answer per candidate.
type Candidate struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Party    string `json:"party,omitempty"`
	Office   string `json:"office,omitempty"`
	PhotoURL string `json:"photoUrl,omitempty"`
}

// FieldRule controls one participant-data field on the response form.
type FieldRule struct {
	Visible  bool `json:"visible"`
	Required bool `json:"required"`
}

// ParticipantPolicy maps canonical participant field names to their rules.
type ParticipantPolicy map[string]FieldRule

// Canonical participant field names used by ParticipantPolicy and the
// participant values collected from the client.
const (
	FieldName         = "name"
	FieldAgeBracket   = "age_bracket"
	FieldPhone        = "phone"
	FieldPostalCode   = "postal_code"
	FieldCity         = "city"
	FieldNeighborhood = "neighborhood"
	FieldStreetNumber = "street_number"
	FieldComplement   = "complement"
	FieldNotes        = "notes"
)

// ParticipantFields lists the canonical fields in form order, so validation
// messages come out in a stable sequence.
var ParticipantFields = []string{
	FieldName,
	FieldAgeBracket,
	FieldPhone,
	FieldPostalCode,
	FieldCity,
	FieldNeighborhood,
	FieldStreetNumber,
	FieldComplement,
	FieldNotes,
}

// FieldLabels maps canonical field names to human-readable labels for
// violation messages.
var FieldLabels = map[string]string{
	FieldName:         "Name",
	FieldAgeBracket:   "Age bracket",
	FieldPhone:        "Phone",
	FieldPostalCode:   "Postal code",
	FieldCity:         "City",
	FieldNeighborhood: "Neighborhood",
	FieldStreetNumber: "Street number",
	FieldComplement:   "Complement",
	FieldNotes:        "Notes",
}

// NotificationPolicy enables the post-submission notification and carries
// its message template.
type NotificationPolicy struct {
	Active  bool   `json:"active"`
	Message string `json:"message,omitempty"`
}

// Survey is the top-level questionnaire definition. It is authored elsewhere
// and read-only to this service.
type Survey struct {
	ID           string             `json:"id"`
	Title        string             `json:"title"`
	Description  string             `json:"description,omitempty"`
	StartsAt     time.Time          `json:"startsAt"`
	EndsAt       *time.Time         `json:"endsAt,omitempty"`
	Active       bool               `json:"active"`
	Policy       ParticipantPolicy  `json:"policy"`
	Notification NotificationPolicy `json:"notification"`
}

// Definition bundles a survey with its ordered questions and candidates, the
// unit the loader produces and the cache stores.
type Definition struct {
	Survey     Survey      `json:"survey"`
	Questions  []Question  `json:"questions"`
	Candidates []Candidate `json:"candidates,omitempty"`
}

// Participant is a respondent, deduplicated by phone number within an
// organization and reused across surveys.
type Participant struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organizationId"`
	Phone          string    `json:"phone"`
	Name           string    `json:"name,omitempty"`
	AgeBracket     string    `json:"ageBracket,omitempty"`
	PostalCode     string    `json:"postalCode,omitempty"`
	City           string    `json:"city,omitempty"`
	Neighborhood   string    `json:"neighborhood,omitempty"`
	StreetNumber   string    `json:"streetNumber,omitempty"`
	Complement     string    `json:"complement,omitempty"`
	Notes          string    `json:"notes,omitempty"`
	Opinion        string    `json:"opinion,omitempty"`
	Device         string    `json:"device,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ResponseKind tags persisted response records.
type ResponseKind string

const (
	// ResponseAnswer is a regular answer to a question.
	ResponseAnswer ResponseKind = "answer"
	// ResponseOpinion is the synthetic record carrying the free-form
	// opinion text, attached to the first question id for foreign-key shape.
	ResponseOpinion ResponseKind = "opinion"
	// ResponseEmpty is the placeholder written when a submission carries
	// no answers at all.
	ResponseEmpty ResponseKind = "empty"
)

// Response is one persisted answer row.
type Response struct {
	ID            string       `json:"id"`
	SurveyID      string       `json:"surveyId"`
	QuestionID    string       `json:"questionId"`
	CandidateID   string       `json:"candidateId,omitempty"`
	ParticipantID string       `json:"participantId"`
	Phone         string       `json:"phone,omitempty"`
	Kind          ResponseKind `json:"kind"`
	Value         Value        `json:"value"`
	Comment       string       `json:"comment,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// SubmissionReceipt is returned to the caller on successful submission.
type SubmissionReceipt struct {
	ParticipantID string `json:"participantId"`
	ResponseCount int    `json:"responseCount"`
}

// SubmissionMeta captures device/context information at submission time.
type SubmissionMeta struct {
	Device     string `json:"device,omitempty"`
	RemoteAddr string `json:"remoteAddr,omitempty"`
}

// NormalizePhone strips everything but digits; the result is the dedup key.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// DefaultValue returns the initial answer value for a question per its kind:
// votes start unanswered (not false), multi-select polls start as an empty
// list, ratings start at zero, free text starts empty.
func (q Question) DefaultValue() Value {
	switch q.Kind {
	case KindVote:
		return NullValue()
	case KindPoll:
		if q.MultipleChoice {
			return ListValue([]string{})
		}
		return NullValue()
	case KindChoice:
		return NullValue()
	case KindStars, KindScore:
		return NumberValue(0)
	case KindText:
		return TextValue("")
	}
	return NullValue()
}
