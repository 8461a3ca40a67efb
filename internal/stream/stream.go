package stream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"dineoffer-api/internal/models"
)

// Event names on the wire. A stream is one start event, zero or more
// offer events, then exactly one done or error event.
const (
	EventStart = "start"
	EventOffer = "offer"
	EventDone  = "done"
	EventError = "error"
)

// StartPayload is the data for a start event.
type StartPayload struct {
	SessionID  string            `json:"session_id"`
	Restaurant string            `json:"restaurant"`
	City       string            `json:"city"`
	Platforms  []models.Platform `json:"platforms"`
	Mode       string            `json:"mode"`
}

// DonePayload is the data for a done event.
type DonePayload struct {
	Summary models.Summary `json:"summary"`
}

// ErrorPayload is the data for an error event.
type ErrorPayload struct {
	Error string `json:"error"`
}

// Writer serializes server-sent events onto one HTTP response. Writes are
// mutex-guarded so concurrent senders cannot interleave event frames, and
// every frame is flushed immediately.
type Writer struct {
	mu sync.Mutex
	w  http.ResponseWriter
	f  http.Flusher
}

// NewWriter prepares the response for server-sent events. It fails when the
// underlying writer cannot flush, which means SSE cannot work through it.
func NewWriter(w http.ResponseWriter) (*Writer, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support flushing")
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	f.Flush()

	return &Writer{w: w, f: f}, nil
}

// Send writes one event frame with a JSON data line and flushes it.
func (s *Writer) Send(event string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", event, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return err
	}
	s.f.Flush()
	return nil
}

// SendStart writes the start event for a session.
func (s *Writer) SendStart(sessionID, restaurant, city string, platforms []models.Platform, mode string) error {
	return s.Send(EventStart, StartPayload{
		SessionID:  sessionID,
		Restaurant: restaurant,
		City:       city,
		Platforms:  platforms,
		Mode:       mode,
	})
}

// SendOffer writes one offer event.
func (s *Writer) SendOffer(offer models.Offer) error {
	return s.Send(EventOffer, offer)
}

// SendDone writes the terminal done event.
func (s *Writer) SendDone(summary models.Summary) error {
	return s.Send(EventDone, DonePayload{Summary: summary})
}

// SendError writes the terminal error event.
func (s *Writer) SendError(message string) error {
	return s.Send(EventError, ErrorPayload{Error: message})
}
