package catalog

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mcdev12/auctionhouse/go/internal/auction/timeline"
	"github.com/mcdev12/auctionhouse/go/internal/models"
)

// ErrInvalidConfiguration is returned for any malformed item set. Nothing is
// applied when it is returned.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Resolved is a validated configuration together with its fresh items.
type Resolved struct {
	// Config is a normalized copy: Order is filled in, CreatedAt is the
	// timeline base and Timeline holds the window of every item.
	Config *models.Configuration
	// Items are in Config.Order, all PENDING with no bids.
	Items []models.AuctionItem
}

// Resolve validates cfg as a whole and builds the items it describes. now is
// used as the timeline base when cfg.CreatedAt is unset.
func Resolve(cfg *models.Configuration, now time.Time) (*Resolved, error) {
	if cfg == nil || len(cfg.Items) == 0 {
		return nil, fmt.Errorf("%w: no items", ErrInvalidConfiguration)
	}

	order := cfg.Order
	if len(order) == 0 {
		order = make([]string, len(cfg.Items))
		for i, item := range cfg.Items {
			order[i] = item.ID
		}
	}
	if len(order) != len(cfg.Items) {
		return nil, fmt.Errorf("%w: order lists %d ids but there are %d items", ErrInvalidConfiguration, len(order), len(cfg.Items))
	}

	byID := make(map[string]models.CatalogItem, len(cfg.Items))
	for _, item := range cfg.Items {
		if _, dup := byID[item.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate item id %q", ErrInvalidConfiguration, item.ID)
		}
		byID[item.ID] = item
	}

	seen := make(map[string]struct{}, len(order))
	entries := make([]timeline.Entry, 0, len(order))
	items := make([]models.AuctionItem, 0, len(order))

	for _, id := range order {
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q in order", ErrInvalidConfiguration, id)
		}
		seen[id] = struct{}{}

		base, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: unknown id %q in order", ErrInvalidConfiguration, id)
		}

		item, err := applyOverride(base, cfg.Overrides[id])
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		entries = append(entries, timeline.Entry{ID: id, DurationSeconds: item.DurationSeconds})
	}

	createdAt := cfg.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	windows := timeline.Build(entries, createdAt, cfg.Timeline)

	for i := range items {
		w := windows[items[i].ID]
		items[i].StartAt = w.StartAt
		items[i].EndAt = w.EndAt
	}

	normalized := &models.Configuration{
		State:     models.ConfigStateConfigured,
		CreatedAt: createdAt,
		Order:     append([]string(nil), order...),
		Overrides: cfg.Overrides,
		Timeline:  windows,
		Items:     append([]models.CatalogItem(nil), cfg.Items...),
	}

	return &Resolved{Config: normalized, Items: items}, nil
}

func applyOverride(base models.CatalogItem, o models.ItemOverride) (models.AuctionItem, error) {
	name := base.Title
	if name == "" {
		name = base.ID
	}

	price := base.BasePrice
	if o.BasePrice != nil && isFinite(*o.BasePrice) {
		price = *o.BasePrice
	}
	increment := base.MinIncrement
	if o.MinIncrement != nil && isFinite(*o.MinIncrement) {
		increment = *o.MinIncrement
	}
	duration := base.DurationSeconds
	if o.DurationSeconds != nil {
		duration = *o.DurationSeconds
	}

	switch {
	case !isFinite(price) || price < 0:
		return models.AuctionItem{}, fmt.Errorf("%w: base price of %q must be a non-negative number", ErrInvalidConfiguration, name)
	case price < base.BasePrice:
		return models.AuctionItem{}, fmt.Errorf("%w: starting price of %q cannot be below its base price (%v)", ErrInvalidConfiguration, name, base.BasePrice)
	case !isFinite(increment) || increment <= 0:
		return models.AuctionItem{}, fmt.Errorf("%w: minimum increment of %q must be greater than 0", ErrInvalidConfiguration, name)
	case duration < 1:
		return models.AuctionItem{}, fmt.Errorf("%w: duration of %q must be at least 1 second", ErrInvalidConfiguration, name)
	}

	return models.AuctionItem{
		ID:              base.ID,
		Title:           base.Title,
		Metadata:        base.Metadata,
		BasePrice:       price,
		MinIncrement:    increment,
		DurationSeconds: duration,
		State:           models.ItemStatePending,
		CurrentPrice:    price,
		Bids:            []models.Bid{},
	}, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
