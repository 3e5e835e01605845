package engine

import (
	"strings"
	"time"

	"github.com/mcdev12/auctionhouse/go/internal/auction/events"
	"github.com/mcdev12/auctionhouse/go/internal/models"
	"github.com/rs/zerolog/log"
)

// register appends name to the item's registration list. Duplicate names are
// kept; pending items accept registrations.
func (e *Engine) register(now time.Time, itemID, name string) ([]models.Registration, error) {
	item, err := e.lookup(itemID)
	if err != nil {
		return nil, err
	}

	e.advance(item, now)
	if item.State == models.ItemStateClosed {
		return nil, ErrClosed
	}

	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, ErrInvalidBidder
	}

	e.reg.registrations[itemID] = append(e.reg.registrations[itemID], models.Registration{Name: trimmed, Time: now})
	regs := e.reg.registrationsOf(itemID)

	log.Debug().
		Str("item_id", itemID).
		Str("name", trimmed).
		Int("registrations", len(regs)).
		Msg("registration added")

	e.emit(events.EventTypeRegistrationAdded, itemID, now, events.RegistrationAddedPayload{
		ItemID:        itemID,
		Registrations: regs,
	})
	return regs, nil
}
