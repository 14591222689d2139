package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"survey-response-service/internal/app"
	"survey-response-service/internal/domain"
)

// WSHandler drives one response session per websocket connection: it opens
// the session on connect, applies edits as messages arrive and runs the
// submission pipeline on a submit message.
type WSHandler struct {
	service  *app.SurveyService
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.SurveyService, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID  string       `json:"questionId"`
	CandidateID string       `json:"candidateId,omitempty"`
	Value       domain.Value `json:"value"`
}

type commentPayload struct {
	QuestionID  string `json:"questionId"`
	CandidateID string `json:"candidateId,omitempty"`
	Text        string `json:"text"`
}

type participantPayload struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type opinionPayload struct {
	Text string `json:"text"`
}

type sessionPayload struct {
	SessionID  string             `json:"sessionId"`
	Survey     domain.Survey      `json:"survey"`
	Questions  []domain.Question  `json:"questions"`
	Candidates []domain.Candidate `json:"candidates,omitempty"`
	Answers    []app.Answer       `json:"answers"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServeWS upgrades the request and runs the session loop. Query params:
// surveyId (required) and org (optional organization scope).
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	surveyID := r.URL.Query().Get("surveyId")
	if surveyID == "" {
		http.Error(w, "missing surveyId", http.StatusBadRequest)
		return
	}
	orgID := r.URL.Query().Get("org")
	meta := domain.SubmissionMeta{
		Device:     r.UserAgent(),
		RemoteAddr: r.RemoteAddr,
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	session, err := h.service.StartSession(r.Context(), surveyID, orgID, meta)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: toErrorPayload(err)})
		return
	}

	send := make(chan any, 16)
	writerDone := make(chan struct{})

	// The writer goroutine owns the connection for writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	def := session.Definition()
	deliver(send, writerDone, outboundMessage[sessionPayload]{Type: "session", Payload: sessionPayload{
		SessionID:  session.ID(),
		Survey:     def.Survey,
		Questions:  def.Questions,
		Candidates: def.Candidates,
		Answers:    session.Answers(),
	}})

	submitted := h.readLoop(r, conn, session.ID(), send, writerDone)

	close(send)
	<-writerDone
	if !submitted {
		h.service.Abandon(session.ID())
	}
}

// readLoop processes inbound messages until the client disconnects, the
// writer goroutine exits or a submission succeeds; it reports whether the
// session was submitted.
func (h *WSHandler) readLoop(r *http.Request, conn *websocket.Conn, sessionID string, send chan<- any, writerDone <-chan struct{}) bool {
	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return false
		}

		switch msg.Type {
		case "answer":
			var p answerPayload
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				if !deliver(send, writerDone, errorMessage("bad_payload", err)) {
					return false
				}
				continue
			}
			ans, err := h.service.Answer(sessionID, p.QuestionID, p.CandidateID, p.Value)
			if err != nil {
				if !deliver(send, writerDone, errorMessage("", err)) {
					return false
				}
				continue
			}
			if !deliver(send, writerDone, outboundMessage[app.Answer]{Type: "answer", Payload: ans}) {
				return false
			}

		case "comment":
			var p commentPayload
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				if !deliver(send, writerDone, errorMessage("bad_payload", err)) {
					return false
				}
				continue
			}
			ans, err := h.service.Comment(sessionID, p.QuestionID, p.CandidateID, p.Text)
			if err != nil {
				if !deliver(send, writerDone, errorMessage("", err)) {
					return false
				}
				continue
			}
			if !deliver(send, writerDone, outboundMessage[app.Answer]{Type: "answer", Payload: ans}) {
				return false
			}

		case "participant":
			var p participantPayload
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				if !deliver(send, writerDone, errorMessage("bad_payload", err)) {
					return false
				}
				continue
			}
			if err := h.service.SetParticipantField(sessionID, p.Field, p.Value); err != nil {
				if !deliver(send, writerDone, errorMessage("", err)) {
					return false
				}
			}

		case "opinion":
			var p opinionPayload
			if err := json.Unmarshal(msg.Payload, &p); err != nil {
				if !deliver(send, writerDone, errorMessage("bad_payload", err)) {
					return false
				}
				continue
			}
			if err := h.service.SetOpinion(sessionID, p.Text); err != nil {
				if !deliver(send, writerDone, errorMessage("", err)) {
					return false
				}
			}

		case "submit":
			receipt, err := h.service.Submit(r.Context(), sessionID)
			if err != nil {
				var vErr *domain.ValidationError
				if errors.As(err, &vErr) {
					if !deliver(send, writerDone, outboundMessage[app.ValidationResult]{Type: "validation", Payload: app.ValidationResult{
						Violations:           vErr.Violations,
						OffendingQuestionIDs: vErr.OffendingQuestionIDs,
					}}) {
						return false
					}
					continue
				}
				if !deliver(send, writerDone, errorMessage("", err)) {
					return false
				}
				continue
			}
			deliver(send, writerDone, outboundMessage[domain.SubmissionReceipt]{Type: "receipt", Payload: receipt})
			return true

		default:
			if !deliver(send, writerDone, errorMessage("unknown_type", errors.New("unknown message type "+msg.Type))) {
				return false
			}
		}
	}
}

// deliver queues msg for the writer goroutine. It reports false when the
// writer has already exited, so callers stop reading instead of blocking on
// a full buffer.
func deliver(send chan<- any, writerDone <-chan struct{}, msg any) bool {
	select {
	case send <- msg:
		return true
	case <-writerDone:
		return false
	}
}

func errorMessage(code string, err error) outboundMessage[errorPayload] {
	p := toErrorPayload(err)
	if code != "" {
		p.Code = code
	}
	return outboundMessage[errorPayload]{Type: "error", Payload: p}
}

func toErrorPayload(err error) errorPayload {
	code := "internal"
	switch {
	case errors.Is(err, domain.ErrSurveyNotFound):
		code = "definition_not_found"
	case errors.Is(err, domain.ErrSurveyInactive):
		code = "survey_inactive"
	case errors.Is(err, domain.ErrNotYetOpen):
		code = "not_yet_open"
	case errors.Is(err, domain.ErrClosed):
		code = "closed"
	case errors.Is(err, domain.ErrAlreadyResponded):
		code = "already_responded"
	case errors.Is(err, domain.ErrQuestionNotFound):
		code = "question_not_found"
	case errors.Is(err, domain.ErrSessionNotFound):
		code = "session_not_found"
	case errors.Is(err, domain.ErrSessionLocked):
		code = "session_locked"
	case errors.Is(err, domain.ErrUploadFailed):
		code = "upload_failed"
	default:
		var pErr *domain.PersistenceError
		if errors.As(err, &pErr) {
			code = "persistence_failed"
		}
	}
	return errorPayload{Code: code, Message: err.Error()}
}
