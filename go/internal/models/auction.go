package models

import (
	"time"
)

// ItemState defines the lifecycle state of an auction item.
type ItemState string

const (
	ItemStatePending ItemState = "PENDING"
	ItemStateActive  ItemState = "ACTIVE"
	ItemStateClosed  ItemState = "CLOSED"
)

// Bid is a single accepted bid on an item.
type Bid struct {
	Bidder string    `json:"bidder"`
	Amount float64   `json:"amount"`
	Time   time.Time `json:"time"`
}

// Winner is recorded when an item closes with at least one bid.
type Winner struct {
	Bidder string  `json:"bidder"`
	Amount float64 `json:"amount"`
}

// Registration is a bidder sign-up on an item. Names are not deduplicated.
type Registration struct {
	Name string    `json:"name"`
	Time time.Time `json:"time"`
}

// HistoryEntry is one accepted bid in the process-wide history log.
type HistoryEntry struct {
	ItemID string    `json:"itemId"`
	Title  string    `json:"title"`
	Bidder string    `json:"bidder"`
	Amount float64   `json:"amount"`
	Time   time.Time `json:"time"`
}

// AuctionItem represents one timed sale unit.
type AuctionItem struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	BasePrice       float64           `json:"basePrice"`
	MinIncrement    float64           `json:"minIncrement"`
	DurationSeconds int               `json:"durationSeconds"`
	StartAt         time.Time         `json:"startAt"`
	EndAt           time.Time         `json:"endAt"`
	State           ItemState         `json:"state"`
	CurrentPrice    float64           `json:"currentPrice"`
	Bids            []Bid             `json:"bids"`
	Winner          *Winner           `json:"winner"`
	ClosedAt        *time.Time        `json:"closedAt,omitempty"`
}

// Clone returns a deep copy safe to hand out of the engine.
func (a *AuctionItem) Clone() AuctionItem {
	c := *a
	c.Bids = append([]Bid(nil), a.Bids...)
	if c.Bids == nil {
		c.Bids = []Bid{}
	}
	if a.Winner != nil {
		w := *a.Winner
		c.Winner = &w
	}
	if a.ClosedAt != nil {
		t := *a.ClosedAt
		c.ClosedAt = &t
	}
	if a.Metadata != nil {
		c.Metadata = make(map[string]string, len(a.Metadata))
		for k, v := range a.Metadata {
			c.Metadata[k] = v
		}
	}
	return c
}

// LastBid returns the most recently accepted bid, or nil.
func (a *AuctionItem) LastBid() *Bid {
	if len(a.Bids) == 0 {
		return nil
	}
	return &a.Bids[len(a.Bids)-1]
}
