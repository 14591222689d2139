package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"survey-response-service/internal/domain"
)

// SurveyLoader reads survey definitions from Postgres.
type SurveyLoader struct {
	pool *pgxpool.Pool
}

func NewSurveyLoader(pool *pgxpool.Pool) *SurveyLoader {
	return &SurveyLoader{pool: pool}
}

// LoadDefinition fetches the survey, its questions ordered by display order
// and the candidates scoped to the organization.
func (l *SurveyLoader) LoadDefinition(ctx context.Context, surveyID, organizationID string) (domain.Definition, error) {
	survey, err := l.loadSurvey(ctx, surveyID)
	if err != nil {
		return domain.Definition{}, err
	}
	questions, err := l.loadQuestions(ctx, surveyID)
	if err != nil {
		return domain.Definition{}, err
	}
	candidates, err := l.loadCandidates(ctx, surveyID, organizationID)
	if err != nil {
		return domain.Definition{}, err
	}
	return domain.Definition{Survey: survey, Questions: questions, Candidates: candidates}, nil
}

func (l *SurveyLoader) loadSurvey(ctx context.Context, surveyID string) (domain.Survey, error) {
	var (
		survey    domain.Survey
		rawPolicy []byte
	)
	err := l.pool.QueryRow(ctx, `
		SELECT id, title, description, starts_at, ends_at, active, policy, notify_active, notify_message
		FROM surveys WHERE id=$1`, surveyID).
		Scan(&survey.ID, &survey.Title, &survey.Description, &survey.StartsAt, &survey.EndsAt,
			&survey.Active, &rawPolicy, &survey.Notification.Active, &survey.Notification.Message)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Survey{}, domain.ErrSurveyNotFound
	}
	if err != nil {
		return domain.Survey{}, fmt.Errorf("load survey: %w", err)
	}

	survey.Policy = domain.ParticipantPolicy{}
	if len(rawPolicy) > 0 {
		if err := json.Unmarshal(rawPolicy, &survey.Policy); err != nil {
			return domain.Survey{}, fmt.Errorf("unmarshal participant policy: %w", err)
		}
	}
	return survey, nil
}

func (l *SurveyLoader) loadQuestions(ctx context.Context, surveyID string) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, prompt, kind, multiple_choice, required, allow_comment, display_order, options
		FROM questions WHERE survey_id=$1 ORDER BY display_order, id`, surveyID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var (
			q          domain.Question
			rawOptions []byte
		)
		if err := rows.Scan(&q.ID, &q.Prompt, &q.Kind, &q.MultipleChoice, &q.Required, &q.AllowComment, &q.Order, &rawOptions); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.SurveyID = surveyID
		q.Options = normalizeOptions(rawOptions)
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (l *SurveyLoader) loadCandidates(ctx context.Context, surveyID, organizationID string) ([]domain.Candidate, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, name, party, office, photo_url
		FROM candidates WHERE survey_id=$1 AND organization_id=$2 ORDER BY name, id`, surveyID, organizationID)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	defer rows.Close()

	var candidates []domain.Candidate
	for rows.Next() {
		var c domain.Candidate
		if err := rows.Scan(&c.ID, &c.Name, &c.Party, &c.Office, &c.PhotoURL); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// normalizeOptions turns the heterogeneous stored option encodings into the
// canonical option list. Three encodings coexist in the data:
//
//   - a JSON array of option objects: [{"id":"o1","label":"Yes","order":1}]
//   - a JSON array of bare labels:    ["Yes","No"]
//   - a legacy semicolon-joined text:  "Yes;No" (possibly JSON-quoted)
//
// Bare labels get their label as id and their position as order. Options
// come back sorted by order then id.
func normalizeOptions(raw []byte) []domain.Option {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}

	var options []domain.Option
	switch trimmed[0] {
	case '[':
		var elements []json.RawMessage
		if err := json.Unmarshal(raw, &elements); err != nil {
			return nil
		}
		for i, element := range elements {
			var opt domain.Option
			if err := json.Unmarshal(element, &opt); err == nil && opt.ID != "" {
				options = append(options, opt)
				continue
			}
			var label string
			if err := json.Unmarshal(element, &label); err == nil {
				options = append(options, domain.Option{ID: label, Label: label, Order: i + 1})
			}
		}
	case '"':
		var joined string
		if err := json.Unmarshal(raw, &joined); err != nil {
			return nil
		}
		options = splitLegacyOptions(joined)
	default:
		options = splitLegacyOptions(trimmed)
	}

	sort.SliceStable(options, func(i, j int) bool {
		if options[i].Order != options[j].Order {
			return options[i].Order < options[j].Order
		}
		return options[i].ID < options[j].ID
	})
	return options
}

func splitLegacyOptions(joined string) []domain.Option {
	var options []domain.Option
	for i, label := range strings.Split(joined, ";") {
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}
		options = append(options, domain.Option{ID: label, Label: label, Order: i + 1})
	}
	return options
}
