package manager

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionhouse/go/internal/auction/catalog"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/rs/zerolog/log"
)

// Bidder is a downstream bidder service that mirrors the configuration.
type Bidder interface {
	PushConfiguration(ctx context.Context, cfg *models.Configuration) error
	Reset(ctx context.Context) error
	BaseURL() string
}

// ConfigRequest is the operator's input for a new item set. Maps are keyed by
// item id; missing entries keep the catalog value.
type ConfigRequest struct {
	Order        []string           `json:"order"`
	BasePrice    map[string]float64 `json:"basePrice"`
	MinIncrement map[string]float64 `json:"minIncrement"`
	Duration     map[string]int     `json:"duration"`
}

// Manager owns the catalog and the authoritative configuration and keeps the
// bidder services in sync with it.
type Manager struct {
	clock   clockwork.Clock
	catalog []models.CatalogItem
	queues  []*pushQueue

	mu       sync.RWMutex
	resolved *catalog.Resolved

	pushes sync.WaitGroup
}

func New(clock clockwork.Clock, items []models.CatalogItem, bidders ...Bidder) *Manager {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	queues := make([]*pushQueue, len(bidders))
	for i, b := range bidders {
		queues[i] = &pushQueue{bidder: b}
	}
	return &Manager{
		clock:   clock,
		catalog: append([]models.CatalogItem(nil), items...),
		queues:  queues,
	}
}

// Catalog returns the catalog items in file order.
func (m *Manager) Catalog() []models.CatalogItem {
	return append([]models.CatalogItem(nil), m.catalog...)
}

// Configure builds a configuration anchored at the current time, validates
// it, stores it and pushes it to every bidder. A rejected request leaves the
// previous configuration in place.
func (m *Manager) Configure(ctx context.Context, req ConfigRequest) (*models.Configuration, error) {
	cfg := m.build(req)

	res, err := catalog.Resolve(cfg, cfg.CreatedAt)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.resolved = res
	m.mu.Unlock()

	log.Info().
		Int("items", len(res.Items)).
		Time("created_at", res.Config.CreatedAt).
		Msg("configuration stored")

	m.broadcast(ctx, "push configuration", func(ctx context.Context, b Bidder) error {
		return b.PushConfiguration(ctx, res.Config)
	})
	return res.Config, nil
}

func (m *Manager) build(req ConfigRequest) *models.Configuration {
	overrides := make(map[string]models.ItemOverride)
	touch := func(id string, fn func(*models.ItemOverride)) {
		o := overrides[id]
		fn(&o)
		overrides[id] = o
	}
	for id, v := range req.BasePrice {
		touch(id, func(o *models.ItemOverride) { o.BasePrice = &v })
	}
	for id, v := range req.MinIncrement {
		touch(id, func(o *models.ItemOverride) { o.MinIncrement = &v })
	}
	for id, v := range req.Duration {
		touch(id, func(o *models.ItemOverride) { o.DurationSeconds = &v })
	}

	return &models.Configuration{
		State:     models.ConfigStateConfigured,
		CreatedAt: m.clock.Now().Truncate(time.Millisecond),
		Order:     append([]string(nil), req.Order...),
		Overrides: overrides,
		Items:     m.Catalog(),
	}
}

// Configuration returns the stored configuration, or nil.
func (m *Manager) Configuration() *models.Configuration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.resolved == nil {
		return nil
	}
	return m.resolved.Config
}

// Reset forgets the configuration and tells every bidder to do the same.
func (m *Manager) Reset(ctx context.Context) {
	m.mu.Lock()
	m.resolved = nil
	m.mu.Unlock()

	log.Info().Msg("configuration cleared")

	m.broadcast(ctx, "reset", func(ctx context.Context, b Bidder) error {
		return b.Reset(ctx)
	})
}

// Auctions returns the configured items in order with their windows. The
// state is derived from the clock; bids live in the bidder services.
func (m *Manager) Auctions() models.Overview {
	m.mu.RLock()
	res := m.resolved
	m.mu.RUnlock()

	if res == nil {
		items := make([]models.AuctionItem, 0, len(m.catalog))
		for _, c := range m.catalog {
			items = append(items, fromCatalog(c))
		}
		return models.Overview{State: models.ConfigStateUnconfigured, Items: items}
	}

	now := m.clock.Now()
	items := make([]models.AuctionItem, len(res.Items))
	for i := range res.Items {
		items[i] = res.Items[i].Clone()
		items[i].State = stateAt(items[i], now)
	}
	return models.Overview{State: models.ConfigStateConfigured, Configuration: res.Config, Items: items}
}

// Auction returns one item from the configuration, or from the catalog when
// nothing is configured.
func (m *Manager) Auction(id string) (models.AuctionItem, bool) {
	m.mu.RLock()
	res := m.resolved
	m.mu.RUnlock()

	if res == nil {
		c, ok := catalog.Find(m.catalog, id)
		if !ok {
			return models.AuctionItem{}, false
		}
		return fromCatalog(c), true
	}

	for i := range res.Items {
		if res.Items[i].ID == id {
			item := res.Items[i].Clone()
			item.State = stateAt(item, m.clock.Now())
			return item, true
		}
	}
	return models.AuctionItem{}, false
}

// Wait blocks until in-flight pushes have finished.
func (m *Manager) Wait() {
	m.pushes.Wait()
}

// broadcast runs fn against every bidder in the background. Each bidder
// receives calls in the order broadcast was called. Failures are logged; the
// manager's own state is already committed.
func (m *Manager) broadcast(ctx context.Context, what string, fn func(context.Context, Bidder) error) {
	ctx = context.WithoutCancel(ctx)
	for _, q := range m.queues {
		b := q.bidder
		m.pushes.Add(1)
		q.enqueue(func() {
			defer m.pushes.Done()
			if err := fn(ctx, b); err != nil {
				log.Warn().Err(err).Str("bidder", b.BaseURL()).Msgf("failed to %s", what)
				return
			}
			log.Debug().Str("bidder", b.BaseURL()).Msg(what + " delivered")
		})
	}
}

// pushQueue runs the jobs for one bidder one at a time in FIFO order. A worker
// goroutine exists only while jobs are pending.
type pushQueue struct {
	bidder Bidder

	mu      sync.Mutex
	jobs    []func()
	running bool
}

func (q *pushQueue) enqueue(job func()) {
	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.mu.Unlock()

	go q.run()
}

func (q *pushQueue) run() {
	for {
		q.mu.Lock()
		if len(q.jobs) == 0 {
			q.running = false
			q.mu.Unlock()
			return
		}
		job := q.jobs[0]
		q.jobs[0] = nil
		q.jobs = q.jobs[1:]
		q.mu.Unlock()

		job()
	}
}

func fromCatalog(c models.CatalogItem) models.AuctionItem {
	return models.AuctionItem{
		ID:              c.ID,
		Title:           c.Title,
		Metadata:        c.Metadata,
		BasePrice:       c.BasePrice,
		MinIncrement:    c.MinIncrement,
		DurationSeconds: c.DurationSeconds,
		State:           models.ItemStatePending,
		CurrentPrice:    c.BasePrice,
		Bids:            []models.Bid{},
	}
}

func stateAt(item models.AuctionItem, now time.Time) models.ItemState {
	switch {
	case now.Before(item.StartAt):
		return models.ItemStatePending
	case now.Before(item.EndAt):
		return models.ItemStateActive
	default:
		return models.ItemStateClosed
	}
}
