package events

import (
	"context"
	"sync"
	"time"

	"dineoffer-api/internal/models"
)

// EventType represents the type of event.
type EventType string

const (
	// EventAggregationStarted is emitted when an aggregation session opens.
	EventAggregationStarted EventType = "aggregation.started"
	// EventOfferFound is emitted for every offer admitted to a session.
	EventOfferFound EventType = "aggregation.offer_found"
	// EventAggregationFinished is emitted when a session reaches a terminal state.
	EventAggregationFinished EventType = "aggregation.finished"
	// EventCardsMerged is emitted after a duplicate-card merge commits.
	EventCardsMerged EventType = "cards.merged"
)

// Event represents an event in the system.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      interface{}
}

// AggregationStartedData contains data for session-start events.
type AggregationStartedData struct {
	SessionID  string
	Restaurant string
	City       string
	Platforms  []models.Platform
}

// OfferFoundData contains data for offer-found events.
type OfferFoundData struct {
	SessionID string
	Offer     models.Offer
}

// AggregationFinishedData contains data for session-end events.
type AggregationFinishedData struct {
	SessionID   string
	TotalOffers int
	Failed      bool
}

// CardsMergedData contains data for card-merge events.
type CardsMergedData struct {
	KeptID  string
	Removed int
}

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Manager manages event handlers and event publishing.
type Manager struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	enabled  bool
}

// NewManager creates a new event manager.
func NewManager(enabled bool) *Manager {
	return &Manager{
		handlers: make(map[EventType][]Handler),
		enabled:  enabled,
	}
}

// Subscribe subscribes a handler to a specific event type.
func (m *Manager) Subscribe(eventType EventType, handler Handler) {
	if !m.enabled {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers[eventType] = append(m.handlers[eventType], handler)
}

// Publish publishes an event to all subscribed handlers.
func (m *Manager) Publish(ctx context.Context, eventType EventType, data interface{}) {
	if m == nil || !m.enabled {
		return
	}

	m.mu.RLock()
	handlers := m.handlers[eventType]
	m.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	// Handlers run asynchronously so publishing never blocks the stream.
	for _, handler := range handlers {
		go func(h Handler) {
			_ = h(ctx, event)
		}(handler)
	}
}

// PublishAggregationStarted publishes a session-start event.
func (m *Manager) PublishAggregationStarted(ctx context.Context, sessionID, restaurant, city string, platforms []models.Platform) {
	m.Publish(ctx, EventAggregationStarted, AggregationStartedData{
		SessionID:  sessionID,
		Restaurant: restaurant,
		City:       city,
		Platforms:  platforms,
	})
}

// PublishOfferFound publishes an offer-found event.
func (m *Manager) PublishOfferFound(ctx context.Context, sessionID string, offer models.Offer) {
	m.Publish(ctx, EventOfferFound, OfferFoundData{SessionID: sessionID, Offer: offer})
}

// PublishAggregationFinished publishes a session-end event.
func (m *Manager) PublishAggregationFinished(ctx context.Context, sessionID string, totalOffers int, failed bool) {
	m.Publish(ctx, EventAggregationFinished, AggregationFinishedData{
		SessionID:   sessionID,
		TotalOffers: totalOffers,
		Failed:      failed,
	})
}

// PublishCardsMerged publishes a card-merge event.
func (m *Manager) PublishCardsMerged(ctx context.Context, keptID string, removed int) {
	m.Publish(ctx, EventCardsMerged, CardsMergedData{KeptID: keptID, Removed: removed})
}

// Shutdown shuts down the event manager.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.enabled = false
	m.handlers = make(map[EventType][]Handler)
}
