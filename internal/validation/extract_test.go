package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contrast_engine/internal/catalog/business"
)

const productPage = `
<html><body>
	<div class="price-container"></div>
	<span class="money">Rs. 1,234.00</span>
	<div class="sale-price">Rs. 999</div>
</body></html>`

func TestExtractPriceSelectorOrder(t *testing.T) {
	price, err := ExtractPrice(productPage, []string{"span.money", ".sale-price"})
	require.NoError(t, err)
	assert.Equal(t, int64(123400), price)

	price, err = ExtractPrice(productPage, []string{".sale-price", "span.money"})
	require.NoError(t, err)
	assert.Equal(t, int64(99900), price)
}

func TestExtractPriceFallsThroughEmptyMatches(t *testing.T) {
	price, err := ExtractPrice(productPage, []string{".price-container", ".missing", ".sale-price"})
	require.NoError(t, err)
	assert.Equal(t, int64(99900), price)
}

func TestExtractPriceFallsThroughNonNumericText(t *testing.T) {
	html := `<div class="badge">Sale!</div><div class="amount">2,499.50</div>`
	price, err := ExtractPrice(html, []string{".badge", ".amount"})
	require.NoError(t, err)
	assert.Equal(t, int64(249950), price)
}

func TestExtractPriceNoMatch(t *testing.T) {
	_, err := ExtractPrice(`<p>out of stock</p>`, []string{".product__price"})
	assert.ErrorIs(t, err, business.ErrPriceNotFound)
}
