package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"kheelo-quiz-service/internal/app"
)

// WSHandler runs timed quiz attempts over a websocket.
type WSHandler struct {
	attempts *app.AttemptService
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(attempts *app.AttemptService, log *slog.Logger) *WSHandler {
	return &WSHandler{
		attempts: attempts,
		log:      log,
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
	QuestionID string `json:"questionId"`
	Option     int    `json:"option"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`

	// close asks the writer to end the connection after this point.
	close bool
}

type errorPayload struct {
	Message string `json:"message"`
}

func errorMessage(err error) outboundMessage {
	return outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}}
}

// ServeWS upgrades the request and drives one attempt session. The session
// outlives the connection: a dropped client can reconnect before the deadline,
// and the countdown submits the attempt if nobody does.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	userID := r.URL.Query().Get("userId")
	if quizID == "" || userID == "" {
		http.Error(w, "missing quizId or userId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	session, err := h.attempts.Start(ctx, quizID, userID)
	if err != nil {
		_ = conn.WriteJSON(errorMessage(err))
		return
	}

	send := make(chan outboundMessage, 16)
	closing := make(chan struct{})
	writerDone := make(chan struct{})
	watchDone := make(chan struct{})

	push := func(msg outboundMessage) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}

	// Only this goroutine writes to conn.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if msg.close {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "attempt submitted"))
				return
			}
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write failed", slog.Any("error", err))
				return
			}
		}
	}()

	go func() {
		defer close(watchDone)
		select {
		case <-session.Done():
			result, err := session.Result()
			if err != nil {
				push(errorMessage(err))
			} else {
				push(outboundMessage{Type: "submitted", Payload: result})
			}
			push(outboundMessage{close: true})
		case <-closing:
		}
	}()

	push(outboundMessage{Type: "started", Payload: session.Snapshot()})

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				push(outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}})
				continue
			}
			if err := h.attempts.Answer(ctx, quizID, userID, payload.QuestionID, payload.Option); err != nil {
				push(errorMessage(err))
				continue
			}
			push(outboundMessage{Type: "answered", Payload: payload})
		case "submit":
			if _, err := h.attempts.Submit(ctx, quizID, userID); err != nil {
				select {
				case <-session.Done():
					// the watcher reports the outcome
				default:
					push(errorMessage(err))
				}
			}
		default:
			push(outboundMessage{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	close(closing)
	<-watchDone
	close(send)
	<-writerDone
}
