package redis

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"survey-response-service/internal/app"
	"survey-response-service/internal/domain"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStore(client, time.Minute)

	session := app.NewSession("sess-1", "org", domain.Definition{
		Survey: domain.Survey{ID: "survey-1"},
	}, domain.SubmissionMeta{})

	store.Put(session)
	if !mr.Exists("survey:session:sess-1") {
		t.Fatalf("expected redis liveness key to be set")
	}

	got, ok := store.Get("sess-1")
	if !ok || got.ID() != "sess-1" {
		t.Fatalf("expected stored session, got %v", got)
	}

	store.Delete("sess-1")
	if mr.Exists("survey:session:sess-1") {
		t.Fatalf("expected redis liveness key to be removed")
	}
	if _, ok := store.Get("sess-1"); ok {
		t.Fatalf("expected session removed from local map")
	}
}
