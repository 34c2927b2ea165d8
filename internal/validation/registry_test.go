package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectorRegistryNormalizesStoreNames(t *testing.T) {
	registry := NewSelectorRegistry()
	registry.Register("Fitted Shop", ".product__price")

	selectors, err := registry.SelectorsFor("  FITTED SHOP ")
	require.NoError(t, err)
	assert.Equal(t, []string{".product__price"}, selectors)
}

func TestSelectorRegistryMissingStore(t *testing.T) {
	registry := NewSelectorRegistry()

	_, err := registry.SelectorsFor("unknown")
	assert.ErrorIs(t, err, ErrNoSelectors)
}

func TestSelectorRegistryRegisterReplaces(t *testing.T) {
	registry := NewSelectorRegistry()
	registry.Register("Outfitters", ".old-price")
	registry.Register("Outfitters", "span.money", ".sale-price")

	selectors, err := registry.SelectorsFor("Outfitters")
	require.NoError(t, err)
	assert.Equal(t, []string{"span.money", ".sale-price"}, selectors)
}

func TestLoadSelectorRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "selectors.yaml")
	content := `
Fitted Shop:
  - .product__price
Outfitters:
  - span.money
  - .sale-price
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	registry, err := LoadSelectorRegistry(path)
	require.NoError(t, err)

	selectors, err := registry.SelectorsFor("outfitters")
	require.NoError(t, err)
	assert.Equal(t, []string{"span.money", ".sale-price"}, selectors)
}

func TestLoadSelectorRegistryMissingFile(t *testing.T) {
	_, err := LoadSelectorRegistry(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
