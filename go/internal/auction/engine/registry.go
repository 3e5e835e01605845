package engine

import (
	"github.com/mcdev12/auctionhouse/go/internal/auction/catalog"
	"github.com/mcdev12/auctionhouse/go/internal/models"
)

// registry is one configured item set. It is replaced as a whole on every
// apply and dropped on reset; only the engine loop touches it.
type registry struct {
	config *models.Configuration

	items map[string]*models.AuctionItem
	seq   []string // insertion order, used for the tail of ordered()
	order []string // configured display order

	registrations map[string][]models.Registration
	history       []models.HistoryEntry
}

func newRegistry(res *catalog.Resolved) *registry {
	r := &registry{
		config:        res.Config,
		items:         make(map[string]*models.AuctionItem, len(res.Items)),
		seq:           make([]string, 0, len(res.Items)),
		order:         append([]string(nil), res.Config.Order...),
		registrations: make(map[string][]models.Registration, len(res.Items)),
	}
	for i := range res.Items {
		item := res.Items[i]
		r.items[item.ID] = &item
		r.seq = append(r.seq, item.ID)
		r.registrations[item.ID] = []models.Registration{}
	}
	return r
}

func (r *registry) get(id string) (*models.AuctionItem, bool) {
	item, ok := r.items[id]
	return item, ok
}

// ordered returns items in display order: ids listed in the configured order
// first, then any remaining item in insertion order. Items are never dropped.
func (r *registry) ordered() []*models.AuctionItem {
	out := make([]*models.AuctionItem, 0, len(r.items))
	used := make(map[string]struct{}, len(r.items))

	for _, id := range r.order {
		item, ok := r.items[id]
		if !ok {
			continue
		}
		if _, dup := used[id]; dup {
			continue
		}
		used[id] = struct{}{}
		out = append(out, item)
	}
	for _, id := range r.seq {
		if _, ok := used[id]; ok {
			continue
		}
		out = append(out, r.items[id])
	}
	return out
}

func (r *registry) overview() models.Overview {
	items := r.ordered()
	snapshot := make([]models.AuctionItem, len(items))
	for i, item := range items {
		snapshot[i] = item.Clone()
	}
	return models.Overview{
		State:         models.ConfigStateConfigured,
		Configuration: r.config,
		Items:         snapshot,
	}
}

func (r *registry) registrationsOf(id string) []models.Registration {
	return append([]models.Registration{}, r.registrations[id]...)
}
