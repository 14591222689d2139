package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"survey-response-service/internal/domain"
)

// pgUniqueViolation is the Postgres error code for a unique constraint hit.
const pgUniqueViolation = "23505"

type participantRow struct {
	bun.BaseModel `bun:"table:participants"`

	ID             string    `bun:"id,pk"`
	OrganizationID string    `bun:"organization_id"`
	Phone          string    `bun:"phone"`
	Name           string    `bun:"name"`
	AgeBracket     string    `bun:"age_bracket"`
	PostalCode     string    `bun:"postal_code"`
	City           string    `bun:"city"`
	Neighborhood   string    `bun:"neighborhood"`
	StreetNumber   string    `bun:"street_number"`
	Complement     string    `bun:"complement"`
	Notes          string    `bun:"notes"`
	Opinion        string    `bun:"opinion"`
	Device         string    `bun:"device"`
	CreatedAt      time.Time `bun:"created_at"`
}

type submissionRow struct {
	bun.BaseModel `bun:"table:submissions"`

	ID            string    `bun:"id,pk"`
	Phone         string    `bun:"phone"`
	SurveyID      string    `bun:"survey_id"`
	ParticipantID string    `bun:"participant_id"`
	CreatedAt     time.Time `bun:"created_at"`
}

type responseRow struct {
	bun.BaseModel `bun:"table:responses"`

	ID            string          `bun:"id,pk"`
	SurveyID      string          `bun:"survey_id"`
	QuestionID    string          `bun:"question_id,nullzero"`
	CandidateID   string          `bun:"candidate_id"`
	ParticipantID string          `bun:"participant_id"`
	Phone         string          `bun:"phone"`
	Kind          string          `bun:"kind"`
	Value         json.RawMessage `bun:"value,type:jsonb"`
	Comment       string          `bun:"comment"`
	CreatedAt     time.Time       `bun:"created_at"`
}

// ResponseStore persists participants, submissions and responses via bun.
type ResponseStore struct {
	db *bun.DB
}

func NewResponseStore(db *bun.DB) *ResponseStore {
	return &ResponseStore{db: db}
}

func (s *ResponseStore) FindParticipantByPhone(ctx context.Context, phone, organizationID string) (*domain.Participant, error) {
	row := new(participantRow)
	err := s.db.NewSelect().Model(row).
		Where("organization_id = ?", organizationID).
		Where("phone = ?", phone).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find participant: %w", err)
	}
	p := participantFromRow(row)
	return &p, nil
}

func (s *ResponseStore) InsertParticipant(ctx context.Context, p domain.Participant) error {
	row := &participantRow{
		ID:             p.ID,
		OrganizationID: p.OrganizationID,
		Phone:          p.Phone,
		Name:           p.Name,
		AgeBracket:     p.AgeBracket,
		PostalCode:     p.PostalCode,
		City:           p.City,
		Neighborhood:   p.Neighborhood,
		StreetNumber:   p.StreetNumber,
		Complement:     p.Complement,
		Notes:          p.Notes,
		Opinion:        p.Opinion,
		Device:         p.Device,
		CreatedAt:      p.CreatedAt,
	}
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert participant: %w", err)
	}
	return nil
}

func (s *ResponseStore) HasResponse(ctx context.Context, phone, surveyID string) (bool, error) {
	exists, err := s.db.NewSelect().Model((*submissionRow)(nil)).
		Where("phone = ?", phone).
		Where("survey_id = ?", surveyID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check existing submission: %w", err)
	}
	return exists, nil
}

// BeginSubmission claims the (phone, survey) pair. The submissions table
// carries a unique partial index on (phone, survey_id) where phone <> '',
// so two racing submissions with the same phone cannot both pass; the loser
// gets domain.ErrAlreadyResponded.
func (s *ResponseStore) BeginSubmission(ctx context.Context, phone, surveyID, participantID string) error {
	row := &submissionRow{
		ID:            uuid.NewString(),
		Phone:         phone,
		SurveyID:      surveyID,
		ParticipantID: participantID,
		CreatedAt:     time.Now(),
	}
	_, err := s.db.NewInsert().Model(row).Exec(ctx)
	if err != nil {
		var pgErr pgdriver.Error
		if errors.As(err, &pgErr) && pgErr.Field('C') == pgUniqueViolation {
			return domain.ErrAlreadyResponded
		}
		return fmt.Errorf("begin submission: %w", err)
	}
	return nil
}

// InsertResponses writes one batch as a single multi-row insert inside one
// transaction. Batches are independent: earlier committed batches are not
// rolled back when a later batch fails.
func (s *ResponseStore) InsertResponses(ctx context.Context, batch []domain.Response) error {
	if len(batch) == 0 {
		return nil
	}
	rows := make([]responseRow, 0, len(batch))
	for _, r := range batch {
		raw, err := json.Marshal(r.Value)
		if err != nil {
			return fmt.Errorf("marshal response value: %w", err)
		}
		rows = append(rows, responseRow{
			ID:            r.ID,
			SurveyID:      r.SurveyID,
			QuestionID:    r.QuestionID,
			CandidateID:   r.CandidateID,
			ParticipantID: r.ParticipantID,
			Phone:         r.Phone,
			Kind:          string(r.Kind),
			Value:         raw,
			Comment:       r.Comment,
			CreatedAt:     r.CreatedAt,
		})
	}
	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().Model(&rows).Exec(ctx)
		return err
	})
}

func participantFromRow(row *participantRow) domain.Participant {
	return domain.Participant{
		ID:             row.ID,
		OrganizationID: row.OrganizationID,
		Phone:          row.Phone,
		Name:           row.Name,
		AgeBracket:     row.AgeBracket,
		PostalCode:     row.PostalCode,
		City:           row.City,
		Neighborhood:   row.Neighborhood,
		StreetNumber:   row.StreetNumber,
		Complement:     row.Complement,
		Notes:          row.Notes,
		Opinion:        row.Opinion,
		Device:         row.Device,
		CreatedAt:      row.CreatedAt,
	}
}
