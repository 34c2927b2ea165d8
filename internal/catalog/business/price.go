package business

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// priceTokenRe matches the first numeric token in a raw price string:
// optional thousands separators, optional fractional part. "Rs. 1,234.00"
// yields "1,234.00"; "free" yields nothing.
var priceTokenRe = regexp.MustCompile(`[0-9]+(?:,[0-9]{3})*(?:\.[0-9]+)?`)

// ErrPriceNotFound reports that a raw price string contained no numeric token.
var ErrPriceNotFound = fmt.Errorf("no numeric price token found")

// ParsePrice extracts the first numeric token from a raw price string and
// returns it as an integer minor-unit amount ("Rs. 1,234.50" -> 123450).
// Fractional digits beyond the minor unit are truncated.
func ParsePrice(raw string) (int64, error) {
	token := priceTokenRe.FindString(raw)
	if token == "" {
		return 0, ErrPriceNotFound
	}
	token = strings.ReplaceAll(token, ",", "")

	whole := token
	frac := ""
	if i := strings.IndexByte(token, '.'); i >= 0 {
		whole = token[:i]
		frac = token[i+1:]
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", raw, err)
	}

	minor := units * 100
	switch {
	case len(frac) == 0:
	case len(frac) == 1:
		d, _ := strconv.ParseInt(frac, 10, 64)
		minor += d * 10
	default:
		d, _ := strconv.ParseInt(frac[:2], 10, 64)
		minor += d
	}
	return minor, nil
}

// ParseListingPrice converts a staging document price into minor units. The
// scrapers are not consistent about types: some emit strings ("1,499"), some
// numbers, so the decoded value is an interface{}.
func ParseListingPrice(v interface{}) (int64, error) {
	switch p := v.(type) {
	case nil:
		return 0, ErrPriceNotFound
	case string:
		return ParsePrice(p)
	case float64:
		// Rounded, not truncated: 4.35 decodes as 4.3499... in binary.
		return int64(math.Round(p * 100)), nil
	case float32:
		return int64(math.Round(float64(p) * 100)), nil
	case int:
		return int64(p) * 100, nil
	case int32:
		return int64(p) * 100, nil
	case int64:
		return p * 100, nil
	default:
		return 0, fmt.Errorf("unsupported price type %T", v)
	}
}
