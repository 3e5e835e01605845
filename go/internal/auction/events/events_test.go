package events

import (
	"encoding/json"
	"testing"
	"time"
)

func TestSubject(t *testing.T) {
	tests := map[EventType]string{
		EventTypeCountdown:         "countdown",
		EventTypeBidPlaced:         "bid.placed",
		EventTypeRegistrationAdded: "registration.added",
		EventTypeConfigReset:       "config.reset",
	}
	for eventType, want := range tests {
		if got := eventType.Subject(); got != want {
			t.Errorf("%s.Subject() = %q, want %q", eventType, got, want)
		}
	}
}

func TestEnvelope(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e := New(EventTypeBidRejected, "lot-3", at, BidRejectedPayload{ID: "lot-3", Reason: "bid too low"})
	if e.ID == "" {
		t.Fatal("event id not set")
	}

	data, err := e.Marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out["type"] != "bid:rejected" || out["itemId"] != "lot-3" || out["eventId"] != e.ID {
		t.Errorf("envelope = %v", out)
	}
	payload, _ := out["data"].(map[string]any)
	if payload["reason"] != "bid too low" {
		t.Errorf("data = %v", out["data"])
	}

	reset, _ := New(EventTypeConfigReset, "", at, ConfigResetPayload{}).Marshal()
	var resetOut map[string]any
	json.Unmarshal(reset, &resetOut)
	if _, ok := resetOut["itemId"]; ok {
		t.Error("config event carries an itemId")
	}
}

func TestFanoutAndRecorder(t *testing.T) {
	var a, b Recorder
	var calls int
	sink := Fanout{&a, &b, SinkFunc(func(Event) { calls++ }), Discard}

	now := time.Now()
	sink.Emit(New(EventTypeCountdown, "x", now, nil))
	sink.Emit(New(EventTypeOpened, "x", now, nil))
	sink.Emit(New(EventTypeOpened, "y", now, nil))

	if calls != 3 || len(a.Events()) != 3 || len(b.Events()) != 3 {
		t.Fatalf("calls = %d, a = %d, b = %d", calls, len(a.Events()), len(b.Events()))
	}
	if types := a.Types(); len(types) != 2 {
		t.Errorf("types = %v, want countdown skipped", types)
	}
	if got := a.OfType(EventTypeOpened, "y"); len(got) != 1 {
		t.Errorf("OfType(opened, y) = %d", len(got))
	}

	a.Reset()
	if len(a.Events()) != 0 {
		t.Error("reset did not clear recorder")
	}
}
