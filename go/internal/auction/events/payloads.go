package events

import (
	"time"

	"github.com/mcdev12/auctionhouse/go/internal/models"
)

// Event payload types shared between the engine and the transports

// CountdownPayload is emitted for every item on every tick
type CountdownPayload struct {
	ID             string           `json:"id"`
	StartAt        *time.Time       `json:"startAt"`
	EndAt          *time.Time       `json:"endAt"`
	SecondsToStart *int64           `json:"secondsToStart"`
	SecondsToEnd   *int64           `json:"secondsToEnd"`
	State          models.ItemState `json:"state"`
}

// OpenedPayload is the payload for an opened event
type OpenedPayload struct {
	ID           string           `json:"id"`
	State        models.ItemState `json:"state"`
	StartAt      time.Time        `json:"startAt"`
	EndAt        time.Time        `json:"endAt"`
	CurrentPrice float64          `json:"currentPrice"`
	MinIncrement float64          `json:"minIncrement"`
}

// ClosedPayload is the payload for a closed event
type ClosedPayload struct {
	ID           string           `json:"id"`
	State        models.ItemState `json:"state"`
	Winner       *models.Winner   `json:"winner"`
	CurrentPrice float64          `json:"currentPrice"`
	ClosedAt     time.Time        `json:"closedAt"`
	EndAt        time.Time        `json:"endAt"`
}

// UpdatedPayload carries the externally visible state of an item after any change
type UpdatedPayload struct {
	ID           string           `json:"id"`
	State        models.ItemState `json:"state"`
	CurrentPrice float64          `json:"currentPrice"`
	StartAt      time.Time        `json:"startAt"`
	EndAt        time.Time        `json:"endAt"`
	Winner       *models.Winner   `json:"winner"`
}

// BidPlacedPayload is the payload for a bid:placed event
type BidPlacedPayload struct {
	ID           string    `json:"id"`
	Bidder       string    `json:"bidder"`
	Amount       float64   `json:"amount"`
	Time         time.Time `json:"time"`
	CurrentPrice float64   `json:"currentPrice"`
}

// BidRejectedPayload is the payload for a bid:rejected event
type BidRejectedPayload struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// RegistrationAddedPayload is the payload for a registration:added event
type RegistrationAddedPayload struct {
	ItemID        string                `json:"itemId"`
	Registrations []models.Registration `json:"registrations"`
}

// ConfigUpdatedPayload carries the full ordered snapshot after an apply
type ConfigUpdatedPayload struct {
	Snapshot models.Overview `json:"snapshot"`
}

// ConfigResetPayload is empty
type ConfigResetPayload struct{}
