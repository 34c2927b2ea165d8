package validation

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"contrast_engine/internal/catalog/storage"
)

// ErrNoSelectors reports a store with no configured price selectors. It is a
// configuration problem, not a fetch failure, and callers treat it as such.
var ErrNoSelectors = errors.New("no price selectors configured for store")

// SelectorRegistry maps a store to the ordered list of CSS selectors its
// product pages are probed with. Each store site renders prices differently,
// and a single store may need fallbacks after a redesign, so the list is
// tried in order.
type SelectorRegistry struct {
	selectors map[string][]string
}

func NewSelectorRegistry() *SelectorRegistry {
	return &SelectorRegistry{selectors: make(map[string][]string)}
}

// Register sets the ordered selector list for a store, replacing any prior
// entry. Store names are matched through the same normalization as the
// catalog.
func (r *SelectorRegistry) Register(store string, selectors ...string) {
	r.selectors[storage.NormalizeStoreName(store)] = selectors
}

func (r *SelectorRegistry) SelectorsFor(store string) ([]string, error) {
	selectors, ok := r.selectors[storage.NormalizeStoreName(store)]
	if !ok || len(selectors) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoSelectors, store)
	}
	return selectors, nil
}

// LoadSelectorRegistry reads a yaml file mapping store names to ordered
// selector lists:
//
//	Fitted Shop:
//	  - .product__price
//	Outfitters:
//	  - span.money
//	  - .sale-price
func LoadSelectorRegistry(filename string) (*SelectorRegistry, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read selector config: %w", err)
	}

	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse selector config: %w", err)
	}

	registry := NewSelectorRegistry()
	for store, selectors := range raw {
		registry.Register(store, selectors...)
	}
	return registry, nil
}
