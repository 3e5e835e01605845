package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionhouse/go/internal/auction/engine"
	"github.com/mcdev12/auctionhouse/go/internal/auction/events"
	"github.com/mcdev12/auctionhouse/go/internal/auction/outbox"
	"github.com/mcdev12/auctionhouse/go/internal/models"
)

type fixture struct {
	router http.Handler
	clock  *clockwork.FakeClock
	rec    *events.Recorder
}

type staticRelay struct{ stats outbox.Stats }

func (s staticRelay) Stats() outbox.Stats { return s.stats }

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		clock: clockwork.NewFakeClockAt(time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)),
		rec:   &events.Recorder{},
	}
	eng := engine.New(engine.WithClock(f.clock), engine.WithSink(f.rec))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = eng.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	router := mux.NewRouter()
	NewBidderHandler(eng, staticRelay{outbox.Stats{Name: "nats", Published: 3}}).RegisterRoutes(router)
	f.router = LoggingMiddleware(router)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

const sampleConfig = `{
	"order": ["lot-1", "lot-2"],
	"items": [
		{"id": "lot-1", "title": "Harbor at dusk", "basePrice": 100, "minIncrement": 10, "durationSeconds": 30},
		{"id": "lot-2", "title": "Still life", "basePrice": 40, "minIncrement": 5, "durationSeconds": 20}
	]
}`

func TestUnconfiguredService(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/auctions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	overview := decode[models.Overview](t, rec)
	if overview.State != models.ConfigStateUnconfigured || len(overview.Items) != 0 {
		t.Errorf("overview = %+v", overview)
	}

	rec = f.do(t, http.MethodPost, "/api/auctions/lot-1/bid", `{"bidder":"ana","amount":500}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("bid without configuration: status = %d, want 404", rec.Code)
	}
}

func TestApplyAndBid(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/config", sampleConfig)
	if rec.Code != http.StatusOK {
		t.Fatalf("apply: status = %d body = %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodPost, "/api/auctions/lot-1/bid", `{"bidder":"ana","amount":110}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("bid: status = %d body = %s", rec.Code, rec.Body.String())
	}
	resp := decode[struct {
		OK   bool               `json:"ok"`
		Item models.AuctionItem `json:"item"`
	}](t, rec)
	if !resp.OK || resp.Item.CurrentPrice != 110 || len(resp.Item.Bids) != 1 {
		t.Errorf("bid response = %+v", resp)
	}

	rec = f.do(t, http.MethodGet, "/api/history", "")
	history := decode[struct {
		Items []models.HistoryEntry `json:"items"`
	}](t, rec)
	if len(history.Items) != 1 || history.Items[0].Bidder != "ana" {
		t.Errorf("history = %+v", history)
	}

	rec = f.do(t, http.MethodGet, "/api/auctions/lot-2", "")
	item := decode[models.AuctionItem](t, rec)
	if item.State != models.ItemStatePending {
		t.Errorf("lot-2 state = %s, want PENDING", item.State)
	}
}

func TestBidErrorStatuses(t *testing.T) {
	f := newFixture(t)
	if rec := f.do(t, http.MethodPost, "/api/config", sampleConfig); rec.Code != http.StatusOK {
		t.Fatalf("apply: status = %d", rec.Code)
	}

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{name: "malformed body", path: "/api/auctions/lot-1/bid", body: `{"bidder":"ana","amount":`, status: http.StatusBadRequest},
		{name: "non-numeric amount", path: "/api/auctions/lot-1/bid", body: `{"bidder":"ana","amount":"lots"}`, status: http.StatusUnprocessableEntity},
		{name: "amount of the wrong type", path: "/api/auctions/lot-1/bid", body: `{"bidder":"ana","amount":[110]}`, status: http.StatusUnprocessableEntity},
		{name: "unknown item", path: "/api/auctions/nope/bid", body: `{"bidder":"ana","amount":500}`, status: http.StatusNotFound},
		{name: "not started", path: "/api/auctions/lot-2/bid", body: `{"bidder":"ana","amount":500}`, status: http.StatusConflict},
		{name: "blank bidder", path: "/api/auctions/lot-1/bid", body: `{"bidder":" ","amount":500}`, status: http.StatusBadRequest},
		{name: "too low", path: "/api/auctions/lot-1/bid", body: `{"bidder":"ana","amount":105}`, status: http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, tt.path, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body.String())
			}
			if body := decode[map[string]string](t, rec); body["error"] == "" {
				t.Error("missing error message")
			}
		})
	}
}

func TestBidAmountAsString(t *testing.T) {
	f := newFixture(t)
	if rec := f.do(t, http.MethodPost, "/api/config", sampleConfig); rec.Code != http.StatusOK {
		t.Fatalf("apply: status = %d", rec.Code)
	}

	rec := f.do(t, http.MethodPost, "/api/auctions/lot-1/bid", `{"bidder":"ana","amount":"110"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("numeric string: status = %d body = %s", rec.Code, rec.Body.String())
	}
	body := decode[struct {
		Item models.AuctionItem `json:"item"`
	}](t, rec)
	if body.Item.CurrentPrice != 110 {
		t.Errorf("current price = %v, want 110", body.Item.CurrentPrice)
	}

	rec = f.do(t, http.MethodPost, "/api/auctions/lot-1/bid", `{"bidder":"bo","amount":"a lot"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("non-numeric string: status = %d, want 422", rec.Code)
	}
	if got := len(f.rec.OfType(events.EventTypeBidRejected, "lot-1")); got != 1 {
		t.Errorf("bid:rejected = %d, want 1", got)
	}
}

func TestRegistrationRoutes(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/config", sampleConfig)

	rec := f.do(t, http.MethodPost, "/api/auctions/lot-2/register", `{"name":"bo"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("register: status = %d body = %s", rec.Code, rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, "/api/auctions/lot-2/registrations", "")
	body := decode[struct {
		Registrations []models.Registration `json:"registrations"`
	}](t, rec)
	if len(body.Registrations) != 1 || body.Registrations[0].Name != "bo" {
		t.Errorf("registrations = %+v", body.Registrations)
	}

	// lot-1 closes after 30s
	f.clock.Advance(31 * time.Second)
	rec = f.do(t, http.MethodPost, "/api/auctions/lot-1/register", `{"name":"late"}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("register on closed item: status = %d, want 409", rec.Code)
	}
}

func TestRejectedConfigurationKeepsState(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/config", sampleConfig)

	bad := strings.Replace(sampleConfig, `"minIncrement": 10`, `"minIncrement": 0`, 1)
	rec := f.do(t, http.MethodPost, "/api/config", bad)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	rec = f.do(t, http.MethodGet, "/api/auctions/lot-1", "")
	if item := decode[models.AuctionItem](t, rec); item.MinIncrement != 10 {
		t.Errorf("min increment = %v, want previous configuration kept", item.MinIncrement)
	}
}

func TestResetAndHealth(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/api/config", sampleConfig)

	health := decode[map[string]any](t, f.do(t, http.MethodGet, "/health", ""))
	if health["configured"] != true {
		t.Errorf("health before reset = %v", health)
	}
	if relays, _ := health["relays"].([]any); len(relays) != 1 {
		t.Errorf("relays = %v", health["relays"])
	}

	if rec := f.do(t, http.MethodPost, "/api/reset", ""); rec.Code != http.StatusOK {
		t.Fatalf("reset: status = %d", rec.Code)
	}

	health = decode[map[string]any](t, f.do(t, http.MethodGet, "/health", ""))
	if health["configured"] != false {
		t.Errorf("health after reset = %v", health)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: no items", engine.ErrInvalidConfiguration), http.StatusBadRequest},
		{engine.ErrInvalidBidder, http.StatusBadRequest},
		{fmt.Errorf("%w: %q", engine.ErrNotFound, "x"), http.StatusNotFound},
		{engine.ErrNotStarted, http.StatusConflict},
		{engine.ErrClosed, http.StatusConflict},
		{fmt.Errorf("%w: amount must be at least 5", engine.ErrBidTooLow), http.StatusUnprocessableEntity},
		{engine.ErrStopped, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
