package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"vocab-quiz-service/internal/app"
	"vocab-quiz-service/internal/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WSHandler runs one quiz session engine per websocket connection and wires
// client actions into it.
type WSHandler struct {
	provider           app.QuestionProvider
	results            app.ResultSubmitter
	statuses           app.WordStatusService
	registry           app.SessionRegistry
	secondsPerQuestion int
	upgrader           websocket.Upgrader
}

func NewWSHandler(provider app.QuestionProvider, results app.ResultSubmitter, statuses app.WordStatusService, registry app.SessionRegistry, secondsPerQuestion int) *WSHandler {
	return &WSHandler{
		provider:           provider,
		results:            results,
		statuses:           statuses,
		registry:           registry,
		secondsPerQuestion: secondsPerQuestion,
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

type startPayload struct {
	QuestionType  domain.QuestionType `json:"questionType"`
	QuestionCount int                 `json:"questionCount"`
	StatusFilter  domain.WordStatus   `json:"statusFilter"`
}

type answerPayload struct {
	WordID string `json:"wordId"`
	Answer string `json:"answer"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type resultPayload struct {
	Result     domain.QuizResult    `json:"result"`
	Submission app.SubmissionStatus `json:"submission"`
}

// ServeWS upgrades HTTP requests to websockets and drives one quiz attempt
// engine for the lifetime of the connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	attemptID := uuid.NewString()
	if err := h.registry.Register(r.Context(), attemptID); err != nil {
		log.Printf("register attempt %s: %v", attemptID, err)
	}
	defer h.registry.Unregister(context.Background(), attemptID)

	engine := app.NewEngineWithTiming(h.provider, h.results, h.statuses, h.secondsPerQuestion, time.Second)
	defer engine.Reset()

	updates, cancel := engine.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		var lastState app.State
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				var frames []outboundMessage[any]
				frames = append(frames, outboundMessage[any]{Type: "snapshot", Payload: update})
				if update.State == app.StateFinished && lastState != app.StateFinished {
					if result, ok := engine.Result(); ok {
						frames = append(frames, outboundMessage[any]{Type: "result", Payload: resultPayload{
							Result:     result,
							Submission: update.Submission,
						}})
					}
				}
				lastState = update.State
				for _, frame := range frames {
					select {
					case send <- frame:
					case <-closeSignals:
						return
					}
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "start":
			var payload startPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorFrame("badPayload", "invalid start payload")
				continue
			}
			err := engine.Start(r.Context(), domain.QuizConfiguration{
				QuestionType:  payload.QuestionType,
				QuestionCount: payload.QuestionCount,
				StatusFilter:  payload.StatusFilter,
			})
			if err != nil {
				send <- startError(err)
			}
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- errorFrame("badPayload", "invalid answer payload")
				continue
			}
			if err := engine.SelectAnswer(payload.WordID, payload.Answer); err != nil {
				send <- errorFrame("rejected", err.Error())
			}
		case "next":
			if err := engine.NextQuestion(); err != nil {
				send <- errorFrame("rejected", err.Error())
			}
		case "previous":
			if err := engine.PreviousQuestion(); err != nil {
				send <- errorFrame("rejected", err.Error())
			}
		case "finish":
			if err := engine.Finish(); err != nil {
				send <- errorFrame("rejected", err.Error())
			}
		case "reset":
			engine.Reset()
		case "markReview":
			report, err := engine.MarkIncorrectForReview(r.Context())
			if err != nil {
				send <- errorFrame("rejected", err.Error())
				continue
			}
			send <- outboundMessage[any]{Type: "review", Payload: report}
		case "submitResult":
			if err := engine.RetrySubmission(); err != nil {
				send <- errorFrame("rejected", err.Error())
			}
		default:
			send <- errorFrame("unsupported", "unsupported message type")
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// startError distinguishes "nothing matches these filters" from transient
// provider failure; the client renders them differently.
func startError(err error) outboundMessage[any] {
	if errors.Is(err, domain.ErrNoQuestions) {
		return errorFrame("noQuestions", "no questions available for these filters")
	}
	if errors.Is(err, domain.ErrInvalidTransition) {
		return errorFrame("rejected", err.Error())
	}
	return errorFrame("unavailable", "something went wrong, try again")
}

func errorFrame(code, message string) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Code: code, Message: message}}
}
