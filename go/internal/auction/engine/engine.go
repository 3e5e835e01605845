package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/auctionhouse/go/internal/auction/catalog"
	"github.com/mcdev12/auctionhouse/go/internal/auction/events"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/rs/zerolog/log"
)

// TickInterval is the scheduler period.
const TickInterval = time.Second

// ConfigSource supplies the authoritative configuration when this process has
// none of its own.
type ConfigSource interface {
	FetchConfiguration(ctx context.Context) (*models.Configuration, error)
}

// command is a unit of work executed on the engine loop.
type command func()

// Engine owns one auction registry and serializes every mutation of it
// (scheduler ticks, bids, registrations, apply and reset) through a single
// goroutine started by Run.
type Engine struct {
	clock      clockwork.Clock
	sink       events.Sink
	source     ConfigSource
	instanceID string

	cmds chan command
	done chan struct{}

	// Owned by the Run goroutine.
	reg    *registry
	ticker clockwork.Ticker
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the real clock, typically with a clockwork.FakeClock.
func WithClock(c clockwork.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithSink sets where events are published.
func WithSink(s events.Sink) Option {
	return func(e *Engine) { e.sink = s }
}

// WithConfigSource enables pulling the configuration on queries made while
// unconfigured.
func WithConfigSource(s ConfigSource) Option {
	return func(e *Engine) { e.source = s }
}

// New creates an unconfigured engine. Call Run before using it.
func New(opts ...Option) *Engine {
	e := &Engine{
		clock:      clockwork.NewRealClock(),
		sink:       events.Discard,
		instanceID: uuid.New().String()[:8],
		cmds:       make(chan command),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run processes commands and scheduler ticks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	log.Info().Str("instance", e.instanceID).Msg("auction engine started")
	defer func() {
		e.stopTicker()
		close(e.done)
		log.Info().Str("instance", e.instanceID).Msg("auction engine stopped")
	}()

	for {
		var tickC <-chan time.Time
		if e.ticker != nil {
			tickC = e.ticker.Chan()
		}

		select {
		case <-ctx.Done():
			return nil
		case cmd := <-e.cmds:
			cmd()
		case <-tickC:
			e.tick(e.clock.Now())
		}
	}
}

// do runs fn on the engine loop and waits for it to finish.
func (e *Engine) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	cmd := func() {
		defer close(finished)
		fn()
	}

	select {
	case e.cmds <- cmd:
	case <-e.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}

// Apply validates cfg as a whole and, only if it is valid, replaces the
// current item set with it and restarts the scheduler. Nothing carries over
// from the previous set.
func (e *Engine) Apply(ctx context.Context, cfg *models.Configuration) error {
	res, err := catalog.Resolve(cfg, e.clock.Now())
	if err != nil {
		log.Warn().Err(err).Msg("rejected configuration")
		return err
	}
	return e.do(ctx, func() { e.install(res) })
}

// applyIfUnconfigured installs cfg only when no set is active, so a pulled
// configuration never overrides one pushed in the meantime.
func (e *Engine) applyIfUnconfigured(ctx context.Context, cfg *models.Configuration) error {
	res, err := catalog.Resolve(cfg, e.clock.Now())
	if err != nil {
		return err
	}
	return e.do(ctx, func() {
		if e.reg == nil {
			e.install(res)
		}
	})
}

func (e *Engine) install(res *catalog.Resolved) {
	e.stopTicker()

	e.reg = newRegistry(res)
	now := e.clock.Now()

	log.Info().
		Str("instance", e.instanceID).
		Int("items", len(res.Items)).
		Time("created_at", res.Config.CreatedAt).
		Msg("configuration applied")

	e.emit(events.EventTypeConfigUpdated, "", now, events.ConfigUpdatedPayload{Snapshot: e.reg.overview()})

	e.ticker = e.clock.NewTicker(TickInterval)
	e.tick(now)
}

// Reset drops the item set, registrations and history and stops the scheduler.
func (e *Engine) Reset(ctx context.Context) error {
	return e.do(ctx, func() {
		e.stopTicker()
		e.reg = nil
		log.Info().Str("instance", e.instanceID).Msg("configuration reset")
		e.emit(events.EventTypeConfigReset, "", e.clock.Now(), events.ConfigResetPayload{})
	})
}

// Bid submits a bid and returns the updated item.
func (e *Engine) Bid(ctx context.Context, itemID, bidder string, amount float64) (models.AuctionItem, error) {
	var (
		item models.AuctionItem
		err  error
	)
	if doErr := e.do(ctx, func() {
		item, err = e.placeBid(e.clock.Now(), itemID, bidder, amount)
	}); doErr != nil {
		return models.AuctionItem{}, doErr
	}
	return item, err
}

// Register adds name to the item's registration list and returns the list.
func (e *Engine) Register(ctx context.Context, itemID, name string) ([]models.Registration, error) {
	var (
		regs []models.Registration
		err  error
	)
	if doErr := e.do(ctx, func() {
		regs, err = e.register(e.clock.Now(), itemID, name)
	}); doErr != nil {
		return nil, doErr
	}
	return regs, err
}

// GetAll returns every item in display order together with the configuration.
func (e *Engine) GetAll(ctx context.Context) (models.Overview, error) {
	e.ensureConfigured(ctx)

	overview := models.Overview{State: models.ConfigStateUnconfigured, Items: []models.AuctionItem{}}
	err := e.do(ctx, func() {
		if e.reg == nil {
			return
		}
		now := e.clock.Now()
		for _, item := range e.reg.ordered() {
			e.advance(item, now)
		}
		overview = e.reg.overview()
	})
	return overview, err
}

// GetOne returns a single item.
func (e *Engine) GetOne(ctx context.Context, itemID string) (models.AuctionItem, error) {
	e.ensureConfigured(ctx)

	var (
		out models.AuctionItem
		err error
	)
	if doErr := e.do(ctx, func() {
		item, lookupErr := e.lookup(itemID)
		if lookupErr != nil {
			err = lookupErr
			return
		}
		e.advance(item, e.clock.Now())
		out = item.Clone()
	}); doErr != nil {
		return models.AuctionItem{}, doErr
	}
	return out, err
}

// GetRegistrations returns the registrations of one item, oldest first.
func (e *Engine) GetRegistrations(ctx context.Context, itemID string) ([]models.Registration, error) {
	e.ensureConfigured(ctx)

	var (
		regs []models.Registration
		err  error
	)
	if doErr := e.do(ctx, func() {
		if _, err = e.lookup(itemID); err != nil {
			return
		}
		regs = e.reg.registrationsOf(itemID)
	}); doErr != nil {
		return nil, doErr
	}
	return regs, err
}

// GetGlobalHistory returns every accepted bid across all items, oldest first.
func (e *Engine) GetGlobalHistory(ctx context.Context) ([]models.HistoryEntry, error) {
	e.ensureConfigured(ctx)

	history := []models.HistoryEntry{}
	err := e.do(ctx, func() {
		if e.reg != nil {
			history = append(history, e.reg.history...)
		}
	})
	return history, err
}

// State reports whether an item set is active. It never pulls.
func (e *Engine) State(ctx context.Context) (models.ConfigState, error) {
	state := models.ConfigStateUnconfigured
	err := e.do(ctx, func() {
		if e.reg != nil {
			state = models.ConfigStateConfigured
		}
	})
	return state, err
}

// ensureConfigured makes one attempt to pull the configuration from the
// source when none is active. Failures are logged and otherwise ignored.
func (e *Engine) ensureConfigured(ctx context.Context) {
	if e.source == nil {
		return
	}
	state, err := e.State(ctx)
	if err != nil || state == models.ConfigStateConfigured {
		return
	}

	cfg, err := e.source.FetchConfiguration(ctx)
	if err != nil {
		log.Debug().Err(fmt.Errorf("%w: %v", ErrCollaboratorUnavailable, err)).Msg("configuration pull failed")
		return
	}
	if cfg == nil || cfg.State != models.ConfigStateConfigured {
		return
	}
	if err := e.applyIfUnconfigured(ctx, cfg); err != nil {
		log.Warn().Err(err).Msg("pulled configuration could not be applied")
	}
}

func (e *Engine) lookup(itemID string) (*models.AuctionItem, error) {
	if e.reg == nil {
		return nil, fmt.Errorf("%w: no auctions are configured", ErrNotFound)
	}
	item, ok := e.reg.get(itemID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, itemID)
	}
	return item, nil
}

func (e *Engine) emit(eventType events.EventType, itemID string, at time.Time, data any) {
	e.sink.Emit(events.New(eventType, itemID, at, data))
}
