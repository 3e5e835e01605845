package manager

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionhouse/go/internal/auction/catalog"
	"github.com/mcdev12/auctionhouse/go/internal/models"
)

const catalogYAML = `
items:
  - id: lot-1
    title: Harbor at dusk
    base_price: 100
    min_increment: 10
    duration_seconds: 30
  - id: lot-2
    title: Still life
    base_price: 40
    min_increment: 5
    duration_seconds: 20
`

type fakeBidder struct {
	mu     sync.Mutex
	pushed []*models.Configuration
	resets int
	calls  []string
	err    error

	pushDelay time.Duration
}

func (f *fakeBidder) PushConfiguration(_ context.Context, cfg *models.Configuration) error {
	time.Sleep(f.pushDelay)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushed = append(f.pushed, cfg)
	f.calls = append(f.calls, "push")
	return f.err
}

func (f *fakeBidder) Reset(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	f.calls = append(f.calls, "reset")
	return f.err
}

func (f *fakeBidder) BaseURL() string { return "http://bidder.test" }

var start = time.Date(2026, 6, 10, 18, 0, 0, 0, time.UTC)

func newManager(t *testing.T, bidders ...Bidder) (*Manager, *clockwork.FakeClock) {
	t.Helper()
	items, err := catalog.Parse([]byte(catalogYAML))
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	clock := clockwork.NewFakeClockAt(start)
	return New(clock, items, bidders...), clock
}

func TestConfigureBuildsChainedTimeline(t *testing.T) {
	bidder := &fakeBidder{}
	m, _ := newManager(t, bidder)

	cfg, err := m.Configure(context.Background(), ConfigRequest{
		Order:     []string{"lot-2", "lot-1"},
		BasePrice: map[string]float64{"lot-1": 150},
		Duration:  map[string]int{"lot-2": 10},
	})
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	m.Wait()

	lot2, lot1 := cfg.Timeline["lot-2"], cfg.Timeline["lot-1"]
	if !lot2.StartAt.Equal(start) || !lot2.EndAt.Equal(start.Add(10*time.Second)) {
		t.Errorf("lot-2 window = %+v", lot2)
	}
	if !lot1.StartAt.Equal(lot2.EndAt) || !lot1.EndAt.Equal(lot2.EndAt.Add(30*time.Second)) {
		t.Errorf("lot-1 window = %+v", lot1)
	}

	if len(bidder.pushed) != 1 || bidder.pushed[0] != cfg {
		t.Fatalf("pushed = %v, want the stored configuration once", bidder.pushed)
	}

	overview := m.Auctions()
	if overview.Items[0].ID != "lot-2" || overview.Items[1].CurrentPrice != 150 {
		t.Errorf("auctions = %+v", overview.Items)
	}
}

func TestConfigureRejectsAndKeepsPrevious(t *testing.T) {
	bidder := &fakeBidder{}
	m, _ := newManager(t, bidder)

	if _, err := m.Configure(context.Background(), ConfigRequest{}); err != nil {
		t.Fatalf("configure defaults: %v", err)
	}

	tests := []struct {
		name string
		req  ConfigRequest
	}{
		{name: "price below base", req: ConfigRequest{BasePrice: map[string]float64{"lot-1": 99}}},
		{name: "zero increment", req: ConfigRequest{MinIncrement: map[string]float64{"lot-2": 0}}},
		{name: "zero duration", req: ConfigRequest{Duration: map[string]int{"lot-1": 0}}},
		{name: "partial order", req: ConfigRequest{Order: []string{"lot-1"}}},
		{name: "unknown id", req: ConfigRequest{Order: []string{"lot-1", "lot-9"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Configure(context.Background(), tt.req)
			if !errors.Is(err, catalog.ErrInvalidConfiguration) {
				t.Fatalf("err = %v, want ErrInvalidConfiguration", err)
			}
		})
	}
	m.Wait()

	if cfg := m.Configuration(); cfg == nil || cfg.Order[0] != "lot-1" {
		t.Errorf("configuration = %+v, want defaults kept", cfg)
	}
	if len(bidder.pushed) != 1 {
		t.Errorf("pushed %d times, want only the accepted configuration", len(bidder.pushed))
	}
}

func TestPushFailureDoesNotFailConfigure(t *testing.T) {
	m, _ := newManager(t, &fakeBidder{err: errors.New("connection refused")})
	if _, err := m.Configure(context.Background(), ConfigRequest{}); err != nil {
		t.Fatalf("configure: %v", err)
	}
	m.Wait()
	if m.Configuration() == nil {
		t.Error("configuration not stored")
	}
}

func TestAuctionStateFollowsClock(t *testing.T) {
	m, clock := newManager(t)
	if _, err := m.Configure(context.Background(), ConfigRequest{}); err != nil {
		t.Fatalf("configure: %v", err)
	}

	clock.Advance(35 * time.Second)

	lot1, _ := m.Auction("lot-1")
	lot2, _ := m.Auction("lot-2")
	if lot1.State != models.ItemStateClosed || lot2.State != models.ItemStateActive {
		t.Errorf("states = %s/%s, want CLOSED/ACTIVE", lot1.State, lot2.State)
	}
}

func TestResetClearsAndNotifies(t *testing.T) {
	bidder := &fakeBidder{}
	m, _ := newManager(t, bidder)
	m.Configure(context.Background(), ConfigRequest{})
	m.Reset(context.Background())
	m.Wait()

	if m.Configuration() != nil {
		t.Error("configuration survived reset")
	}
	if bidder.resets != 1 {
		t.Errorf("resets = %d, want 1", bidder.resets)
	}
	overview := m.Auctions()
	if overview.State != models.ConfigStateUnconfigured || len(overview.Items) != 2 {
		t.Errorf("overview after reset = %+v", overview)
	}
}

func TestPushesReachEachBidderInOrder(t *testing.T) {
	slow := &fakeBidder{pushDelay: 20 * time.Millisecond}
	fast := &fakeBidder{}
	m, _ := newManager(t, slow, fast)
	ctx := context.Background()

	first, err := m.Configure(ctx, ConfigRequest{})
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	m.Reset(ctx)
	last, err := m.Configure(ctx, ConfigRequest{Order: []string{"lot-2", "lot-1"}})
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	m.Wait()

	want := []string{"push", "reset", "push"}
	for name, b := range map[string]*fakeBidder{"slow": slow, "fast": fast} {
		if strings.Join(b.calls, ",") != strings.Join(want, ",") {
			t.Errorf("%s bidder calls = %v, want %v", name, b.calls, want)
		}
		if len(b.pushed) != 2 || b.pushed[0] != first || b.pushed[1] != last {
			t.Errorf("%s bidder did not receive the configurations in order", name)
		}
	}
}

func TestAuctionFallsBackToCatalog(t *testing.T) {
	m, _ := newManager(t)

	item, ok := m.Auction("lot-2")
	if !ok {
		t.Fatal("lot-2 not found in catalog")
	}
	if item.State != models.ItemStatePending || item.CurrentPrice != 40 || !item.StartAt.IsZero() {
		t.Errorf("unconfigured lot-2 = %+v", item)
	}
	if _, ok := m.Auction("lot-9"); ok {
		t.Error("unknown id found")
	}

	if _, err := m.Configure(context.Background(), ConfigRequest{
		Order:     []string{"lot-2", "lot-1"},
		BasePrice: map[string]float64{"lot-2": 45},
	}); err != nil {
		t.Fatalf("configure: %v", err)
	}
	item, ok = m.Auction("lot-2")
	if !ok || item.CurrentPrice != 45 || item.State != models.ItemStateActive {
		t.Errorf("configured lot-2 = %+v", item)
	}
}

func TestHandlerRoutes(t *testing.T) {
	m, _ := newManager(t)
	router := mux.NewRouter()
	NewHandler(m).RegisterRoutes(router)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := do(http.MethodGet, "/api/config", "")
	if !strings.Contains(rec.Body.String(), `"unconfigured"`) {
		t.Errorf("unconfigured config body = %s", rec.Body.String())
	}

	rec = do(http.MethodPost, "/api/config", `{"basePrice":{"lot-1":90}}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid config: status = %d, want 400", rec.Code)
	}

	rec = do(http.MethodPost, "/api/config", `{"order":["lot-2","lot-1"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("configure: status = %d body = %s", rec.Code, rec.Body.String())
	}

	rec = do(http.MethodGet, "/api/config", "")
	var cfg models.Configuration
	if err := json.Unmarshal(rec.Body.Bytes(), &cfg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.State != models.ConfigStateConfigured || len(cfg.Timeline) != 2 {
		t.Errorf("config = %+v", cfg)
	}

	if rec := do(http.MethodGet, "/api/auctions/lot-9", ""); rec.Code != http.StatusNotFound {
		t.Errorf("unknown auction: status = %d, want 404", rec.Code)
	}
	if rec := do(http.MethodGet, "/api/status", ""); !strings.Contains(rec.Body.String(), "true") {
		t.Errorf("status body = %s", rec.Body.String())
	}
	if rec := do(http.MethodPost, "/api/reset", ""); rec.Code != http.StatusOK {
		t.Errorf("reset: status = %d", rec.Code)
	}
}
