package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"survey-response-service/internal/domain"
)

// BatchSize bounds the payload of a single response write. Batches are
// written in increasing index order, each as its own transactional unit;
// a failure at batch k leaves batches 1..k-1 committed (see InsertResponses).
const BatchSize = 50

// ParticipantStore resolves and creates participants keyed by
// digits-only phone number within an organization.
type ParticipantStore interface {
	// FindParticipantByPhone returns nil with no error when the phone is
	// unknown.
	FindParticipantByPhone(ctx context.Context, phone, organizationID string) (*domain.Participant, error)
	InsertParticipant(ctx context.Context, p domain.Participant) error
}

// ResponseStore persists submissions and their response rows.
type ResponseStore interface {
	// HasResponse reports whether any response already references the
	// (phone, survey) pair.
	HasResponse(ctx context.Context, phone, surveyID string) (bool, error)
	// BeginSubmission records the (phone, survey) pair before any response
	// rows are written. Implementations back it with a unique constraint
	// and return domain.ErrAlreadyResponded on conflict, closing the race
	// the HasResponse pre-check leaves open. The claim is not revoked when
	// a later batch fails: a partial submission still counts as responded
	// and a retry with the same phone returns ErrAlreadyResponded.
	BeginSubmission(ctx context.Context, phone, surveyID, participantID string) error
	// InsertResponses writes one batch in a single transaction. No
	// cross-batch atomicity: earlier batches stay committed if this one
	// fails.
	InsertResponses(ctx context.Context, batch []domain.Response) error
}

// Notifier dispatches the post-submission message. Best effort; the
// pipeline never fails a submission over it.
type Notifier interface {
	Notify(ctx context.Context, phone, message string) error
}

// Pipeline is the submission pipeline: activation gate, participant
// resolution, duplicate guard, answer formatting, batched persistence and
// optional notification, each stage short-circuiting on failure.
type Pipeline struct {
	participants ParticipantStore
	responses    ResponseStore
	notifier     Notifier
	log          *zap.Logger
	now          func() time.Time
	newID        func() string
}

func NewPipeline(participants ParticipantStore, responses ResponseStore, notifier Notifier, log *zap.Logger) *Pipeline {
	return NewPipelineWithClock(participants, responses, notifier, log, time.Now)
}

// NewPipelineWithClock is test-only for deterministic activation checks.
func NewPipelineWithClock(participants ParticipantStore, responses ResponseStore, notifier Notifier, log *zap.Logger, now func() time.Time) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		participants: participants,
		responses:    responses,
		notifier:     notifier,
		log:          log,
		now:          now,
		newID:        uuid.NewString,
	}
}

// Submit runs the pipeline for one matrix. The caller must not mutate the
// matrix while the call is outstanding; SurveyService enforces that through
// the session lock.
func (p *Pipeline) Submit(
	ctx context.Context,
	def domain.Definition,
	organizationID string,
	matrix *Matrix,
	participantValues map[string]string,
	opinion string,
	meta domain.SubmissionMeta,
) (domain.SubmissionReceipt, error) {
	survey := def.Survey
	if err := p.checkWindow(survey); err != nil {
		return domain.SubmissionReceipt{}, err
	}

	phone := domain.NormalizePhone(participantValues[domain.FieldPhone])

	participant, existing, err := p.resolveParticipant(ctx, survey, organizationID, phone, participantValues, opinion, meta)
	if err != nil {
		return domain.SubmissionReceipt{}, err
	}

	// The duplicate pre-check only applies to phones we already know;
	// participant creation above only happens for new phones, so this
	// ordering cannot orphan a participant on a duplicate.
	if existing {
		responded, err := p.responses.HasResponse(ctx, phone, survey.ID)
		if err != nil {
			return domain.SubmissionReceipt{}, fmt.Errorf("duplicate check: %w", err)
		}
		if responded {
			return domain.SubmissionReceipt{}, domain.ErrAlreadyResponded
		}
	}

	if phone != "" {
		if err := p.responses.BeginSubmission(ctx, phone, survey.ID, participant.ID); err != nil {
			return domain.SubmissionReceipt{}, err
		}
	}

	records := p.formatResponses(def, matrix, participant.ID, phone, opinion)
	for start := 0; start < len(records); start += BatchSize {
		end := start + BatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := p.responses.InsertResponses(ctx, records[start:end]); err != nil {
			return domain.SubmissionReceipt{}, &domain.PersistenceError{Batch: start/BatchSize + 1, Err: err}
		}
	}

	p.maybeNotify(ctx, survey, phone)

	return domain.SubmissionReceipt{ParticipantID: participant.ID, ResponseCount: len(records)}, nil
}

func (p *Pipeline) checkWindow(survey domain.Survey) error {
	if !survey.Active {
		return domain.ErrSurveyInactive
	}
	now := p.now()
	if now.Before(survey.StartsAt) {
		return domain.ErrNotYetOpen
	}
	if survey.EndsAt != nil && now.After(*survey.EndsAt) {
		return domain.ErrClosed
	}
	return nil
}

// resolveParticipant looks up the participant for a non-empty phone and
// creates one when the phone is new (or empty). The returned flag reports
// whether an existing participant was found.
func (p *Pipeline) resolveParticipant(
	ctx context.Context,
	survey domain.Survey,
	orgID, phone string,
	values map[string]string,
	opinion string,
	meta domain.SubmissionMeta,
) (domain.Participant, bool, error) {
	if phone != "" {
		found, err := p.participants.FindParticipantByPhone(ctx, phone, orgID)
		if err != nil {
			return domain.Participant{}, false, fmt.Errorf("find participant: %w", err)
		}
		if found != nil {
			return *found, true, nil
		}
	}

	// Invisible fields are persisted empty, never the raw client value.
	visible := func(field string) string {
		if rule, ok := survey.Policy[field]; ok && rule.Visible {
			return values[field]
		}
		return ""
	}
	participant := domain.Participant{
		ID:             p.newID(),
		OrganizationID: orgID,
		Phone:          phone,
		Name:           visible(domain.FieldName),
		AgeBracket:     visible(domain.FieldAgeBracket),
		PostalCode:     visible(domain.FieldPostalCode),
		City:           visible(domain.FieldCity),
		Neighborhood:   visible(domain.FieldNeighborhood),
		StreetNumber:   visible(domain.FieldStreetNumber),
		Complement:     visible(domain.FieldComplement),
		Notes:          visible(domain.FieldNotes),
		Opinion:        opinion,
		Device:         meta.Device,
		CreatedAt:      p.now(),
	}
	if err := p.participants.InsertParticipant(ctx, participant); err != nil {
		return domain.Participant{}, false, fmt.Errorf("insert participant: %w", err)
	}
	return participant, false, nil
}

// formatResponses re-derives the persisted shape of every answer: votes
// become strict booleans, multi-select poll values become lists (scalars
// wrapped), comments are carried as-is. A non-empty opinion becomes one
// extra record tagged domain.ResponseOpinion attached to the first question
// id; an otherwise empty record set gets a single placeholder tagged
// domain.ResponseEmpty.
func (p *Pipeline) formatResponses(def domain.Definition, matrix *Matrix, participantID, phone, opinion string) []domain.Response {
	now := p.now()
	records := make([]domain.Response, 0, matrix.Len()+1)
	for _, ans := range matrix.Answers() {
		q, ok := findQuestion(def.Questions, ans.Key.QuestionID)
		if !ok {
			continue
		}
		records = append(records, domain.Response{
			ID:            p.newID(),
			SurveyID:      def.Survey.ID,
			QuestionID:    ans.Key.QuestionID,
			CandidateID:   ans.Key.CandidateID,
			ParticipantID: participantID,
			Phone:         phone,
			Kind:          domain.ResponseAnswer,
			Value:         persistedValue(q, ans.Value),
			Comment:       ans.Comment,
			CreatedAt:     now,
		})
	}

	firstQuestionID := ""
	if len(def.Questions) > 0 {
		firstQuestionID = def.Questions[0].ID
	}
	if opinion != "" {
		records = append(records, domain.Response{
			ID:            p.newID(),
			SurveyID:      def.Survey.ID,
			QuestionID:    firstQuestionID,
			ParticipantID: participantID,
			Phone:         phone,
			Kind:          domain.ResponseOpinion,
			Value:         domain.TextValue(opinion),
			CreatedAt:     now,
		})
	}
	if len(records) == 0 {
		records = append(records, domain.Response{
			ID:            p.newID(),
			SurveyID:      def.Survey.ID,
			QuestionID:    firstQuestionID,
			ParticipantID: participantID,
			Phone:         phone,
			Kind:          domain.ResponseEmpty,
			Value:         domain.NullValue(),
			CreatedAt:     now,
		})
	}
	return records
}

func persistedValue(q domain.Question, v domain.Value) domain.Value {
	switch {
	case q.Kind == domain.KindVote:
		return domain.BoolValue(v.AsBool())
	case q.Kind == domain.KindPoll && q.MultipleChoice:
		if v.Kind() == domain.ValueList {
			return v
		}
		if v.IsNull() {
			return domain.ListValue([]string{})
		}
		return domain.ListValue([]string{v.Token()})
	}
	return v
}

func (p *Pipeline) maybeNotify(ctx context.Context, survey domain.Survey, phone string) {
	if p.notifier == nil || !survey.Notification.Active {
		return
	}
	if rule, ok := survey.Policy[domain.FieldPhone]; !ok || !rule.Visible {
		return
	}
	if phone == "" {
		return
	}
	if err := p.notifier.Notify(ctx, phone, survey.Notification.Message); err != nil {
		// Best effort: a notification failure never fails the submission.
		p.log.Warn("notification dispatch failed",
			zap.String("survey_id", survey.ID),
			zap.Error(fmt.Errorf("%w: %v", domain.ErrNotificationFailed, err)))
	}
}
