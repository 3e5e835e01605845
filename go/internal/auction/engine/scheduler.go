package engine

import (
	"time"

	"github.com/mcdev12/auctionhouse/go/internal/auction/events"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/rs/zerolog/log"
)

// stopTicker stops the scheduler of the current set, if any. Must run on the
// engine loop before a new ticker is created.
func (e *Engine) stopTicker() {
	if e.ticker != nil {
		e.ticker.Stop()
		e.ticker = nil
	}
}

// tick advances every item and publishes its countdown.
func (e *Engine) tick(now time.Time) {
	if e.reg == nil {
		return
	}
	for _, item := range e.reg.ordered() {
		e.advance(item, now)
		e.emit(events.EventTypeCountdown, item.ID, now, countdown(item, now))
	}
}

// advance applies whatever transitions are due at now. It is used both by the
// ticker and opportunistically before requests are validated.
func (e *Engine) advance(item *models.AuctionItem, now time.Time) {
	if item.State == models.ItemStatePending && !item.StartAt.IsZero() && !now.Before(item.StartAt) {
		e.open(item, now)
	}
	if item.State == models.ItemStateActive && !item.EndAt.IsZero() && !now.Before(item.EndAt) {
		e.closeItem(item, now)
	}
}

func (e *Engine) open(item *models.AuctionItem, now time.Time) {
	item.State = models.ItemStateActive

	log.Info().
		Str("item_id", item.ID).
		Time("start_at", item.StartAt).
		Time("end_at", item.EndAt).
		Msg("auction opened")

	e.emit(events.EventTypeOpened, item.ID, now, events.OpenedPayload{
		ID:           item.ID,
		State:        item.State,
		StartAt:      item.StartAt,
		EndAt:        item.EndAt,
		CurrentPrice: item.CurrentPrice,
		MinIncrement: item.MinIncrement,
	})
	e.emitUpdated(item, now)
}

// closeItem closes an ACTIVE item exactly once. The winner is the last
// accepted bid. Calling it on any other state is a no-op.
func (e *Engine) closeItem(item *models.AuctionItem, now time.Time) bool {
	if item.State != models.ItemStateActive {
		return false
	}

	item.State = models.ItemStateClosed
	if last := item.LastBid(); last != nil {
		item.Winner = &models.Winner{Bidder: last.Bidder, Amount: last.Amount}
	}
	closedAt := now
	item.ClosedAt = &closedAt

	logEvent := log.Info().
		Str("item_id", item.ID).
		Float64("final_price", item.CurrentPrice).
		Int("bids", len(item.Bids))
	if item.Winner != nil {
		logEvent = logEvent.Str("winner", item.Winner.Bidder)
	}
	logEvent.Msg("auction closed")

	e.emit(events.EventTypeClosed, item.ID, now, events.ClosedPayload{
		ID:           item.ID,
		State:        item.State,
		Winner:       item.Winner,
		CurrentPrice: item.CurrentPrice,
		ClosedAt:     closedAt,
		EndAt:        item.EndAt,
	})
	e.emitUpdated(item, now)
	return true
}

func (e *Engine) emitUpdated(item *models.AuctionItem, now time.Time) {
	e.emit(events.EventTypeUpdated, item.ID, now, events.UpdatedPayload{
		ID:           item.ID,
		State:        item.State,
		CurrentPrice: item.CurrentPrice,
		StartAt:      item.StartAt,
		EndAt:        item.EndAt,
		Winner:       item.Winner,
	})
}

func countdown(item *models.AuctionItem, now time.Time) events.CountdownPayload {
	p := events.CountdownPayload{
		ID:             item.ID,
		SecondsToStart: secondsUntil(item.StartAt, now),
		SecondsToEnd:   secondsUntil(item.EndAt, now),
		State:          item.State,
	}
	if !item.StartAt.IsZero() {
		start := item.StartAt
		p.StartAt = &start
	}
	if !item.EndAt.IsZero() {
		end := item.EndAt
		p.EndAt = &end
	}
	return p
}

// secondsUntil is max(0, ceil((t-now)/1s)) at millisecond precision, or nil
// when t is unknown.
func secondsUntil(t, now time.Time) *int64 {
	if t.IsZero() {
		return nil
	}
	var secs int64
	if ms := t.UnixMilli() - now.UnixMilli(); ms > 0 {
		secs = (ms + 999) / 1000
	}
	return &secs
}
