package scraper

import (
	"strconv"
	"strings"
	"unicode"
)

// ExtractID pulls the listing id out of a listing URL. Listing URLs
// carry an "-oglas-<digits>" suffix; URLs without it fall back to any
// trailing digit run.
func ExtractID(listingURL string) string {
	if pos := strings.LastIndex(listingURL, "-oglas-"); pos >= 0 {
		tail := listingURL[pos+len("-oglas-"):]
		end := 0
		for end < len(tail) && tail[end] >= '0' && tail[end] <= '9' {
			end++
		}
		return tail[:end]
	}

	start := len(listingURL)
	for start > 0 && listingURL[start-1] >= '0' && listingURL[start-1] <= '9' {
		start--
	}
	return listingURL[start:]
}

// NormalizePrice parses a display price like "169.000 €" into a numeric
// value and an ISO currency code. Dots are thousands separators and the
// comma is the decimal separator. Either return value may be nil when
// the corresponding part is missing.
func NormalizePrice(s string) (*float64, *string) {
	var currency *string
	if strings.Contains(s, "€") {
		c := "EUR"
		currency = &c
	} else if strings.Contains(strings.ToLower(s), "kn") {
		c := "HRK"
		currency = &c
	}

	if !strings.ContainsFunc(s, unicode.IsDigit) {
		return nil, currency
	}

	var b strings.Builder
	for _, c := range s {
		if unicode.IsDigit(c) || c == ',' || c == '.' {
			b.WriteRune(c)
		} else {
			b.WriteRune(' ')
		}
	}
	cleaned := strings.ReplaceAll(b.String(), ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")

	for _, token := range strings.Fields(cleaned) {
		if v, err := strconv.ParseFloat(token, 64); err == nil {
			return &v, currency
		}
	}
	return nil, currency
}

// extractSqm scans a listing description for the first numeric token
// and reads it as the surface area in square meters.
func extractSqm(text string) *float64 {
	tokens := strings.FieldsFunc(text, func(c rune) bool {
		return unicode.IsSpace(c) || c == ',' || c == ';'
	})
	for _, token := range tokens {
		cleaned := strings.ReplaceAll(token, ".", "")
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
		if v, err := strconv.ParseFloat(cleaned, 64); err == nil {
			return &v
		}
	}
	return nil
}
