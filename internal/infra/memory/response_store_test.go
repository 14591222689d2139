package memory

import (
	"context"
	"testing"

	"survey-response-service/internal/domain"
)

func TestResponseStoreParticipantDedup(t *testing.T) {
	ctx := context.Background()
	store := NewResponseStore()

	if err := store.InsertParticipant(ctx, domain.Participant{ID: "p1", OrganizationID: "org", Phone: "119"}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	found, err := store.FindParticipantByPhone(ctx, "119", "org")
	if err != nil || found == nil || found.ID != "p1" {
		t.Fatalf("expected to find p1, got %+v / %v", found, err)
	}

	// Same phone under another organization is a different participant.
	if found, _ := store.FindParticipantByPhone(ctx, "119", "other"); found != nil {
		t.Fatalf("phone dedup is scoped per organization")
	}
}

func TestResponseStoreSubmissionGuard(t *testing.T) {
	ctx := context.Background()
	store := NewResponseStore()

	if err := store.BeginSubmission(ctx, "119", "s1", "p1"); err != nil {
		t.Fatalf("first submission: %v", err)
	}
	if err := store.BeginSubmission(ctx, "119", "s1", "p2"); err != domain.ErrAlreadyResponded {
		t.Fatalf("expected ErrAlreadyResponded, got %v", err)
	}
	// Another survey is fine.
	if err := store.BeginSubmission(ctx, "119", "s2", "p1"); err != nil {
		t.Fatalf("other survey: %v", err)
	}

	has, err := store.HasResponse(ctx, "119", "s1")
	if err != nil || !has {
		t.Fatalf("expected HasResponse true, got %v / %v", has, err)
	}
	if has, _ := store.HasResponse(ctx, "118", "s1"); has {
		t.Fatalf("unknown phone must not report a response")
	}
}
