package models

import "time"

// ConfigState reports whether a process currently holds an item set.
type ConfigState string

const (
	ConfigStateUnconfigured ConfigState = "unconfigured"
	ConfigStateConfigured   ConfigState = "configured"
)

// CatalogItem is the authoritative default definition of a lot.
type CatalogItem struct {
	ID              string            `json:"id" yaml:"id"`
	Title           string            `json:"title" yaml:"title"`
	Metadata        map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	BasePrice       float64           `json:"basePrice" yaml:"base_price"`
	MinIncrement    float64           `json:"minIncrement" yaml:"min_increment"`
	DurationSeconds int               `json:"durationSeconds" yaml:"duration_seconds"`
}

// ItemOverride holds per-item values that replace the catalog defaults.
// Nil fields keep the catalog value.
type ItemOverride struct {
	BasePrice       *float64 `json:"basePrice,omitempty"`
	MinIncrement    *float64 `json:"minIncrement,omitempty"`
	DurationSeconds *int     `json:"durationSeconds,omitempty"`
}

// Window is the [StartAt, EndAt) interval an item is open for bidding.
// A zero field means the value is unknown.
type Window struct {
	StartAt time.Time `json:"startAt"`
	EndAt   time.Time `json:"endAt"`
}

// Configuration is a complete item set as exchanged between the manager and
// the bidder services. Timeline values, when present, are authoritative and
// must be reused as-is by every process that applies the configuration.
type Configuration struct {
	State     ConfigState             `json:"state"`
	CreatedAt time.Time               `json:"createdAt"`
	Order     []string                `json:"order"`
	Overrides map[string]ItemOverride `json:"overrides,omitempty"`
	Timeline  map[string]Window       `json:"timeline,omitempty"`
	Items     []CatalogItem           `json:"items"`
}

// Overview is the ordered snapshot returned to clients.
type Overview struct {
	State         ConfigState    `json:"state"`
	Configuration *Configuration `json:"configuration,omitempty"`
	Items         []AuctionItem  `json:"items"`
}
