package catalog

import (
	"fmt"
	"os"

	"github.com/mcdev12/auctionhouse/go/internal/models"
	"gopkg.in/yaml.v3"
)

// File is the on-disk catalog layout.
type File struct {
	Items []models.CatalogItem `yaml:"items"`
}

// Load reads the catalog YAML at path.
func Load(path string) ([]models.CatalogItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}

// Parse decodes catalog YAML.
func Parse(data []byte) ([]models.CatalogItem, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Items))
	for i, item := range f.Items {
		if item.ID == "" {
			return nil, fmt.Errorf("catalog item %d has no id", i)
		}
		if _, dup := seen[item.ID]; dup {
			return nil, fmt.Errorf("catalog item %q is listed twice", item.ID)
		}
		seen[item.ID] = struct{}{}
	}
	return f.Items, nil
}

// Find returns the catalog item with the given id.
func Find(items []models.CatalogItem, id string) (models.CatalogItem, bool) {
	for _, item := range items {
		if item.ID == id {
			return item, true
		}
	}
	return models.CatalogItem{}, false
}
