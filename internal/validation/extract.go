package validation

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"contrast_engine/internal/catalog/business"
)

// ExtractPrice probes the document with each selector in order and returns
// the minor-unit price from the first matching element whose text carries a
// numeric token. A selector whose element text has no usable number does not
// stop the probe; the next selector gets its chance.
func ExtractPrice(html string, selectors []string) (int64, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 0, fmt.Errorf("failed to parse product page: %w", err)
	}

	for _, selector := range selectors {
		text := strings.TrimSpace(doc.Find(selector).First().Text())
		if text == "" {
			continue
		}
		price, err := business.ParsePrice(text)
		if err != nil {
			continue
		}
		return price, nil
	}
	return 0, business.ErrPriceNotFound
}
