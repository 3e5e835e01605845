package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType represents the kind of auction event
type EventType string

const (
	EventTypeCountdown         EventType = "countdown"
	EventTypeOpened            EventType = "opened"
	EventTypeClosed            EventType = "closed"
	EventTypeUpdated           EventType = "updated"
	EventTypeBidPlaced         EventType = "bid:placed"
	EventTypeBidRejected       EventType = "bid:rejected"
	EventTypeRegistrationAdded EventType = "registration:added"
	EventTypeConfigUpdated     EventType = "config:updated"
	EventTypeConfigReset       EventType = "config:reset"
)

// Subject returns the type in dotted form, e.g. "bid.placed", for brokers
// that use dots as subject separators.
func (t EventType) Subject() string {
	return strings.ReplaceAll(string(t), ":", ".")
}

// Event is the envelope every transport carries.
type Event struct {
	ID        string    `json:"eventId"`
	Type      EventType `json:"type"`
	ItemID    string    `json:"itemId,omitempty"` // empty for config events
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// New builds an event with a fresh id.
func New(eventType EventType, itemID string, at time.Time, data any) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		ItemID:    itemID,
		Timestamp: at,
		Data:      data,
	}
}

// Marshal encodes the event envelope as JSON.
func (e Event) Marshal() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", e.Type, err)
	}
	return b, nil
}

// Sink receives every state change the engine produces. Emit is called from
// the engine's mutation loop and must not block.
type Sink interface {
	Emit(event Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(event Event) { f(event) }

// Discard drops all events.
var Discard Sink = SinkFunc(func(Event) {})

// Fanout forwards each event to every sink in order.
type Fanout []Sink

func (f Fanout) Emit(event Event) {
	for _, s := range f {
		s.Emit(event)
	}
}

// Recorder keeps every emitted event in memory. Used in tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType returns the recorded events of type t, optionally restricted to one item.
func (r *Recorder) OfType(t EventType, itemID string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == t && (itemID == "" || e.ItemID == itemID) {
			out = append(out, e)
		}
	}
	return out
}

// Types returns the sequence of recorded event types, skipping countdowns.
func (r *Recorder) Types() []EventType {
	var out []EventType
	for _, e := range r.Events() {
		if e.Type != EventTypeCountdown {
			out = append(out, e.Type)
		}
	}
	return out
}

// Reset forgets all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
