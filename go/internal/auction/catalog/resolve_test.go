package catalog

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mcdev12/auctionhouse/go/internal/models"
)

func ptr[T any](v T) *T { return &v }

func sampleItems() []models.CatalogItem {
	return []models.CatalogItem{
		{ID: "mona", Title: "Mona", BasePrice: 100, MinIncrement: 10, DurationSeconds: 5},
		{ID: "scream", Title: "Scream", BasePrice: 50, MinIncrement: 5, DurationSeconds: 3},
	}
}

func TestResolveBuildsChainedPendingItems(t *testing.T) {
	cfg := &models.Configuration{
		CreatedAt: time.UnixMilli(1000),
		Order:     []string{"mona", "scream"},
		Items:     sampleItems(),
	}

	res, err := Resolve(cfg, time.UnixMilli(999_999))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(res.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(res.Items))
	}

	first, second := res.Items[0], res.Items[1]
	if first.StartAt.UnixMilli() != 1000 || first.EndAt.UnixMilli() != 6000 {
		t.Errorf("first window = [%d, %d)", first.StartAt.UnixMilli(), first.EndAt.UnixMilli())
	}
	if second.StartAt.UnixMilli() != 6000 || second.EndAt.UnixMilli() != 9000 {
		t.Errorf("second window = [%d, %d)", second.StartAt.UnixMilli(), second.EndAt.UnixMilli())
	}
	for _, item := range res.Items {
		if item.State != models.ItemStatePending {
			t.Errorf("%s state = %s", item.ID, item.State)
		}
		if item.CurrentPrice != item.BasePrice {
			t.Errorf("%s current price %v != base %v", item.ID, item.CurrentPrice, item.BasePrice)
		}
	}
	if res.Config.State != models.ConfigStateConfigured {
		t.Errorf("config state = %s", res.Config.State)
	}
	if len(res.Config.Timeline) != 2 {
		t.Errorf("timeline not filled in: %v", res.Config.Timeline)
	}
}

func TestResolveDefaultsOrderAndBase(t *testing.T) {
	now := time.UnixMilli(42_000)
	res, err := Resolve(&models.Configuration{Items: sampleItems()}, now)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := res.Config.Order; len(got) != 2 || got[0] != "mona" || got[1] != "scream" {
		t.Errorf("order = %v", got)
	}
	if !res.Items[0].StartAt.Equal(now) {
		t.Errorf("first start = %v, want %v", res.Items[0].StartAt, now)
	}
}

func TestResolveAppliesOverrides(t *testing.T) {
	cfg := &models.Configuration{
		Order: []string{"scream", "mona"},
		Overrides: map[string]models.ItemOverride{
			"mona": {BasePrice: ptr(150.0), MinIncrement: ptr(25.0), DurationSeconds: ptr(2)},
		},
		Items: sampleItems(),
	}
	res, err := Resolve(cfg, time.UnixMilli(0))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	mona := res.Items[1]
	if mona.ID != "mona" || mona.BasePrice != 150 || mona.CurrentPrice != 150 || mona.MinIncrement != 25 || mona.DurationSeconds != 2 {
		t.Fatalf("override not applied: %+v", mona)
	}
	if mona.StartAt.UnixMilli() != 3000 || mona.EndAt.UnixMilli() != 5000 {
		t.Errorf("mona window = [%d, %d)", mona.StartAt.UnixMilli(), mona.EndAt.UnixMilli())
	}
}

func TestResolveRejects(t *testing.T) {
	tests := []struct {
		name string
		cfg  *models.Configuration
		msg  string
	}{
		{"nil", nil, "no items"},
		{"no items", &models.Configuration{}, "no items"},
		{"length mismatch", &models.Configuration{Order: []string{"mona"}, Items: sampleItems()}, "order lists"},
		{"duplicate in order", &models.Configuration{Order: []string{"mona", "mona"}, Items: sampleItems()}, "duplicate id"},
		{"unknown id", &models.Configuration{Order: []string{"mona", "ghost"}, Items: sampleItems()}, "unknown id"},
		{"duplicate items", &models.Configuration{Items: []models.CatalogItem{sampleItems()[0], sampleItems()[0]}}, "duplicate item id"},
		{
			"price below base",
			&models.Configuration{Items: sampleItems(), Overrides: map[string]models.ItemOverride{"mona": {BasePrice: ptr(99.0)}}},
			"below its base price",
		},
		{
			"zero increment",
			&models.Configuration{Items: sampleItems(), Overrides: map[string]models.ItemOverride{"mona": {MinIncrement: ptr(0.0)}}},
			"greater than 0",
		},
		{
			"short duration",
			&models.Configuration{Items: sampleItems(), Overrides: map[string]models.ItemOverride{"scream": {DurationSeconds: ptr(0)}}},
			"at least 1 second",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.cfg, time.Now())
			if !errors.Is(err, ErrInvalidConfiguration) {
				t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("error %q does not mention %q", err, tt.msg)
			}
		})
	}
}

func TestParseCatalog(t *testing.T) {
	data := []byte(`
items:
  - id: mona
    title: Mona Lisa
    base_price: 100
    min_increment: 10
    duration_seconds: 30
    metadata:
      artist: Leonardo
  - id: scream
    title: The Scream
    base_price: 50
    min_increment: 5
    duration_seconds: 20
`)
	items, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Metadata["artist"] != "Leonardo" || items[0].DurationSeconds != 30 {
		t.Errorf("unexpected first item: %+v", items[0])
	}
	if _, ok := Find(items, "scream"); !ok {
		t.Error("Find did not locate scream")
	}
}

func TestParseRejectsDuplicateIDs(t *testing.T) {
	_, err := Parse([]byte("items:\n  - id: a\n  - id: a\n"))
	if err == nil {
		t.Fatal("expected duplicate id error")
	}
}
