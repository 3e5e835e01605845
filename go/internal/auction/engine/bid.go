package engine

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/mcdev12/auctionhouse/go/internal/auction/events"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/rs/zerolog/log"
)

// placeBid validates and applies one bid. It runs on the engine loop, so the
// close-check, the price check and the update form a single atomic step and
// the first valid bid processed claims the price.
func (e *Engine) placeBid(now time.Time, itemID, bidder string, amount float64) (models.AuctionItem, error) {
	item, err := e.lookup(itemID)
	if err != nil {
		return models.AuctionItem{}, e.rejectBid(itemID, now, err)
	}

	e.advance(item, now)

	switch item.State {
	case models.ItemStatePending:
		return models.AuctionItem{}, e.rejectBid(itemID, now, ErrNotStarted)
	case models.ItemStateClosed:
		return models.AuctionItem{}, e.rejectBid(itemID, now, ErrClosed)
	}

	name := strings.TrimSpace(bidder)
	if name == "" {
		return models.AuctionItem{}, e.rejectBid(itemID, now, ErrInvalidBidder)
	}

	minimum := minimumBid(item)
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < minimum {
		return models.AuctionItem{}, e.rejectBid(itemID, now, fmt.Errorf("%w: amount must be at least %v", ErrBidTooLow, minimum))
	}

	bid := models.Bid{Bidder: name, Amount: amount, Time: now}
	item.Bids = append(item.Bids, bid)
	item.CurrentPrice = amount
	e.reg.history = append(e.reg.history, models.HistoryEntry{
		ItemID: item.ID,
		Title:  item.Title,
		Bidder: name,
		Amount: amount,
		Time:   now,
	})

	log.Debug().
		Str("item_id", item.ID).
		Str("bidder", name).
		Float64("amount", amount).
		Msg("bid accepted")

	e.emit(events.EventTypeBidPlaced, item.ID, now, events.BidPlacedPayload{
		ID:           item.ID,
		Bidder:       name,
		Amount:       amount,
		Time:         now,
		CurrentPrice: item.CurrentPrice,
	})
	e.emitUpdated(item, now)

	return item.Clone(), nil
}

// minimumBid is the lowest acceptable amount for the next bid.
func minimumBid(item *models.AuctionItem) float64 {
	current := item.CurrentPrice
	if item.LastBid() == nil {
		current = item.BasePrice
	}
	return current + item.MinIncrement
}

func (e *Engine) rejectBid(itemID string, now time.Time, err error) error {
	log.Debug().Err(err).Str("item_id", itemID).Msg("bid rejected")
	e.emit(events.EventTypeBidRejected, itemID, now, events.BidRejectedPayload{
		ID:     itemID,
		Reason: err.Error(),
	})
	return err
}
