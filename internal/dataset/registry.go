package dataset

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
)

//go:embed database.json
var embeddedRegistry []byte

// Product describes one velocity product in the registry.
type Product struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// Kind is "combined" (one file with u and v) or "separate"
	// (independent u and v products).
	Kind      string `json:"kind"`
	CRS       string `json:"crs"`
	TimeUnits string `json:"time_units"`
	// Fields maps component roles ("u", "v") to the product's field names.
	Fields map[string]string `json:"fields"`
	URL    string            `json:"url,omitempty"`
}

// LoadRegistry loads the embedded registry of velocity products, then
// merges any extra registry files over it. Later entries win.
func LoadRegistry(extra ...string) (map[string]Product, error) {
	products := make(map[string]Product)
	if err := json.Unmarshal(embeddedRegistry, &products); err != nil {
		return nil, fmt.Errorf("embedded registry: %w", err)
	}
	for _, path := range extra {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("extra registry %s: %w", path, err)
		}
		more := make(map[string]Product)
		if err := json.Unmarshal(data, &more); err != nil {
			return nil, fmt.Errorf("extra registry %s: %w", path, err)
		}
		for key, p := range more {
			products[key] = p
		}
	}
	for key, p := range products {
		if err := p.validate(); err != nil {
			return nil, fmt.Errorf("registry entry %q: %w", key, err)
		}
	}
	return products, nil
}

func (p Product) validate() error {
	if p.Name == "" {
		return fmt.Errorf("missing name")
	}
	switch p.Kind {
	case "combined", "separate":
	default:
		return fmt.Errorf("unknown kind %q", p.Kind)
	}
	if _, ok := p.Fields["u"]; !ok {
		return fmt.Errorf("missing u component field")
	}
	if _, ok := p.Fields["v"]; !ok {
		return fmt.Errorf("missing v component field")
	}
	return nil
}
