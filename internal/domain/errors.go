package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSurveyNotFound indicates the survey definition could not be loaded.
	ErrSurveyNotFound = errors.New("survey definition not found")
	// ErrSurveyInactive is returned when the survey has been deactivated.
	ErrSurveyInactive = errors.New("survey is not active")
	// ErrNotYetOpen is returned when now precedes the activation window.
	ErrNotYetOpen = errors.New("survey has not opened yet")
	// ErrClosed is returned when the activation window has passed.
	ErrClosed = errors.New("survey is closed")
	// ErrAlreadyResponded is returned when the phone number already
	// submitted a response for this survey.
	ErrAlreadyResponded = errors.New("phone number already responded to this survey")
	// ErrQuestionNotFound indicates an edit referenced an unknown question.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrSessionNotFound is returned when a response session id is unknown.
	ErrSessionNotFound = errors.New("response session not found")
	// ErrSessionLocked is returned for edits attempted while a submission
	// for the same session is in flight.
	ErrSessionLocked = errors.New("response session locked by in-flight submission")
	// ErrUploadFailed is propagated from the external file-storage
	// collaborator for attachment-style fields.
	ErrUploadFailed = errors.New("attachment upload failed")
	// ErrNotificationFailed wraps notifier errors; the submission pipeline
	// logs and swallows it, it never fails a submission.
	ErrNotificationFailed = errors.New("notification dispatch failed")
)

// ValidationError carries the full violation list from one validation pass.
// All violations are surfaced together, never one at a time.
type ValidationError struct {
	Violations           []string
	OffendingQuestionIDs []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Violations, "; "))
}

// PersistenceError reports a failed response batch write. Batches before
// the failing one remain committed.
type PersistenceError struct {
	Batch int
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist response batch %d: %v", e.Batch, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
