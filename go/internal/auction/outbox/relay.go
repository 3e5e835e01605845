package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/mcdev12/auctionhouse/go/internal/auction/events"
	"github.com/rs/zerolog/log"
)

// Publisher delivers one event to an external broker.
type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
	Close() error
}

// RelayConfig controls buffering and filtering of a Relay.
type RelayConfig struct {
	BufferSize     int
	PublishTimeout time.Duration
	// DrainTimeout bounds the whole flush of buffered events on shutdown.
	DrainTimeout     time.Duration
	IncludeCountdown bool // countdowns fire every second per item
}

func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		BufferSize:     1024,
		PublishTimeout: 5 * time.Second,
		DrainTimeout:   5 * time.Second,
	}
}

// Relay is an events.Sink that forwards engine events to a Publisher from its
// own goroutine. Delivery is best effort: a full buffer drops the event and a
// failed publish is logged.
type Relay struct {
	name      string
	publisher Publisher
	config    RelayConfig
	queue     chan events.Event

	mu        sync.Mutex
	published uint64
	dropped   uint64
	failed    uint64
	lastEvent time.Time
}

func NewRelay(name string, publisher Publisher, cfg RelayConfig) *Relay {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultRelayConfig().BufferSize
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultRelayConfig().PublishTimeout
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = DefaultRelayConfig().DrainTimeout
	}
	return &Relay{
		name:      name,
		publisher: publisher,
		config:    cfg,
		queue:     make(chan events.Event, cfg.BufferSize),
	}
}

// Emit queues the event without blocking.
func (r *Relay) Emit(event events.Event) {
	if event.Type == events.EventTypeCountdown && !r.config.IncludeCountdown {
		return
	}
	select {
	case r.queue <- event:
	default:
		r.mu.Lock()
		r.dropped++
		r.mu.Unlock()
		log.Warn().
			Str("relay", r.name).
			Str("event_type", string(event.Type)).
			Msg("relay buffer full, dropping event")
	}
}

// Run publishes queued events until ctx is cancelled, then drains what is
// already buffered for at most DrainTimeout and closes the publisher.
func (r *Relay) Run(ctx context.Context) error {
	log.Info().Str("relay", r.name).Msg("event relay started")
	defer func() {
		if err := r.publisher.Close(); err != nil {
			log.Error().Err(err).Str("relay", r.name).Msg("failed to close publisher")
		}
		log.Info().Str("relay", r.name).Msg("event relay stopped")
	}()

	for ctx.Err() == nil {
		select {
		case <-ctx.Done():
		case event := <-r.queue:
			r.publish(context.Background(), event)
		}
	}

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.config.DrainTimeout)
	defer cancel()
	r.drain(drainCtx)
	return nil
}

// Close releases the publisher of a relay that was never started. Run closes
// it on its own.
func (r *Relay) Close() error {
	return r.publisher.Close()
}

// drain publishes buffered events until the queue is empty or ctx expires.
// Events still queued at the deadline are counted as dropped.
func (r *Relay) drain(ctx context.Context) {
	for ctx.Err() == nil {
		select {
		case event := <-r.queue:
			r.publish(ctx, event)
		default:
			return
		}
	}

	var left uint64
discard:
	for {
		select {
		case <-r.queue:
			left++
		default:
			break discard
		}
	}
	if left == 0 {
		return
	}
	r.mu.Lock()
	r.dropped += left
	r.mu.Unlock()
	log.Warn().
		Str("relay", r.name).
		Uint64("dropped", left).
		Msg("drain deadline reached, dropping buffered events")
}

func (r *Relay) publish(ctx context.Context, event events.Event) {
	ctx, cancel := context.WithTimeout(ctx, r.config.PublishTimeout)
	defer cancel()

	err := r.publisher.Publish(ctx, event)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.failed++
		log.Error().
			Err(err).
			Str("relay", r.name).
			Str("event_id", event.ID).
			Str("event_type", string(event.Type)).
			Msg("failed to publish event")
		return
	}
	r.published++
	r.lastEvent = time.Now()
}

// Stats is a point-in-time view of a relay's counters.
type Stats struct {
	Name          string    `json:"name"`
	Published     uint64    `json:"published"`
	Dropped       uint64    `json:"dropped"`
	Failed        uint64    `json:"failed"`
	Pending       int       `json:"pending"`
	LastPublished time.Time `json:"last_published"`
}

func (r *Relay) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{
		Name:          r.name,
		Published:     r.published,
		Dropped:       r.dropped,
		Failed:        r.failed,
		Pending:       len(r.queue),
		LastPublished: r.lastEvent,
	}
}
