package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"survey-response-service/internal/app"
	"survey-response-service/internal/domain"
	"survey-response-service/internal/infra/memory"
)

func testDefinitions() map[string]domain.Definition {
	return map[string]domain.Definition{
		"survey-1": {
			Survey: domain.Survey{
				ID:       "survey-1",
				Title:    "Service rating",
				StartsAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
				Active:   true,
				Policy: domain.ParticipantPolicy{
					domain.FieldPhone: {Visible: true},
				},
			},
			Questions: []domain.Question{
				{ID: "q1", SurveyID: "survey-1", Prompt: "Rate the service", Kind: domain.KindStars, Required: true, Order: 1},
			},
		},
	}
}

func newTestServer(t *testing.T) (*httptest.Server, *memory.ResponseStore) {
	t.Helper()
	definitions := memory.NewSurveyRepository(memory.NewStaticDefinitionLoader(testDefinitions()), time.Minute)
	store := memory.NewResponseStore()
	pipeline := app.NewPipeline(store, store, nil, nil)
	service := app.NewSurveyService(definitions, memory.NewSessionStore(), pipeline)
	handler := NewWSHandler(service, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", handler.ServeWS)
	return httptest.NewServer(mux), store
}

func dial(t *testing.T, server *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + path
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readNext(t *testing.T, conn *websocket.Conn) (string, json.RawMessage) {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg.Type, msg.Payload
}

func send(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	if err := conn.WriteJSON(map[string]any{"type": msgType, "payload": json.RawMessage(raw)}); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestWebSocketResponseFlow(t *testing.T) {
	server, store := newTestServer(t)
	defer server.Close()

	conn := dial(t, server, "/ws?surveyId=survey-1&org=org-1")
	defer conn.Close()

	msgType, payload := readNext(t, conn)
	if msgType != "session" {
		t.Fatalf("expected session snapshot first, got %s", msgType)
	}
	var session sessionPayload
	if err := json.Unmarshal(payload, &session); err != nil {
		t.Fatalf("unmarshal session: %v", err)
	}
	if session.SessionID == "" || len(session.Answers) != 1 {
		t.Fatalf("unexpected session snapshot %+v", session)
	}

	send(t, conn, "answer", map[string]any{"questionId": "q1", "value": 4})
	msgType, payload = readNext(t, conn)
	if msgType != "answer" {
		t.Fatalf("expected answer echo, got %s", msgType)
	}
	var ans app.Answer
	if err := json.Unmarshal(payload, &ans); err != nil {
		t.Fatalf("unmarshal answer: %v", err)
	}
	if ans.Value.Number() != 4 {
		t.Fatalf("expected value 4, got %+v", ans.Value)
	}

	send(t, conn, "participant", map[string]any{"field": domain.FieldPhone, "value": "11999998888"})
	send(t, conn, "submit", map[string]any{})

	msgType, payload = readNext(t, conn)
	if msgType != "receipt" {
		t.Fatalf("expected receipt, got %s: %s", msgType, payload)
	}
	var receipt domain.SubmissionReceipt
	if err := json.Unmarshal(payload, &receipt); err != nil {
		t.Fatalf("unmarshal receipt: %v", err)
	}
	if receipt.ResponseCount != 1 || receipt.ParticipantID == "" {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
	if len(store.Responses()) != 1 {
		t.Fatalf("expected one persisted response, got %d", len(store.Responses()))
	}
}

func TestWebSocketValidationFailure(t *testing.T) {
	server, store := newTestServer(t)
	defer server.Close()

	conn := dial(t, server, "/ws?surveyId=survey-1")
	defer conn.Close()

	if msgType, _ := readNext(t, conn); msgType != "session" {
		t.Fatalf("expected session snapshot")
	}

	// Clear the required rating, then submit.
	send(t, conn, "answer", map[string]any{"questionId": "q1", "value": nil})
	if msgType, _ := readNext(t, conn); msgType != "answer" {
		t.Fatalf("expected answer echo")
	}
	send(t, conn, "submit", map[string]any{})

	msgType, payload := readNext(t, conn)
	if msgType != "validation" {
		t.Fatalf("expected validation message, got %s: %s", msgType, payload)
	}
	var result app.ValidationResult
	if err := json.Unmarshal(payload, &result); err != nil {
		t.Fatalf("unmarshal validation: %v", err)
	}
	if len(result.Violations) != 1 || len(result.OffendingQuestionIDs) != 1 {
		t.Fatalf("unexpected validation result %+v", result)
	}
	if len(store.Responses()) != 0 {
		t.Fatalf("validation failure must not persist responses")
	}
}

func TestDeliverUnblocksWhenWriterExits(t *testing.T) {
	send := make(chan any, 1)
	writerDone := make(chan struct{})

	if !deliver(send, writerDone, "first") {
		t.Fatalf("expected delivery while the writer is alive")
	}

	// Buffer is now full and the writer is gone: deliver must give up
	// instead of blocking the read loop forever.
	close(writerDone)
	done := make(chan bool, 1)
	go func() { done <- deliver(send, writerDone, "second") }()
	select {
	case ok := <-done:
		if ok {
			t.Fatalf("expected delivery to fail after the writer exited")
		}
	case <-time.After(time.Second):
		t.Fatalf("deliver blocked on a full buffer with no writer")
	}
}

func TestWebSocketUnknownSurvey(t *testing.T) {
	server, _ := newTestServer(t)
	defer server.Close()

	conn := dial(t, server, "/ws?surveyId=missing")
	defer conn.Close()

	msgType, payload := readNext(t, conn)
	if msgType != "error" {
		t.Fatalf("expected error, got %s", msgType)
	}
	var errPayload errorPayload
	if err := json.Unmarshal(payload, &errPayload); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if errPayload.Code != "definition_not_found" {
		t.Fatalf("expected definition_not_found, got %s", errPayload.Code)
	}
}
