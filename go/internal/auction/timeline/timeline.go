package timeline

import (
	"time"

	"github.com/mcdev12/auctionhouse/go/internal/models"
)

// Entry is one item in display order with its bidding duration.
type Entry struct {
	ID              string
	DurationSeconds int
}

// Build chains the windows of entries end-to-end starting at base. The first
// item opens at base, every following item opens exactly when the previous
// one ends.
//
// A StartAt or EndAt present in overrides is reused verbatim instead of being
// recomputed, so processes mirroring the same configuration agree on the
// timestamps regardless of their local clocks.
func Build(entries []Entry, base time.Time, overrides map[string]models.Window) map[string]models.Window {
	out := make(map[string]models.Window, len(entries))
	cursor := base

	for _, e := range entries {
		w := overrides[e.ID]

		start := cursor
		if !w.StartAt.IsZero() {
			start = w.StartAt
		}
		end := start.Add(time.Duration(e.DurationSeconds) * time.Second)
		if !w.EndAt.IsZero() {
			end = w.EndAt
		}

		out[e.ID] = models.Window{StartAt: start, EndAt: end}
		cursor = end
	}

	return out
}
