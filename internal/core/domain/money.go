package domain

import (
	"strconv"
	"strings"
)

// ParseCurrencyAmount converts a locale-formatted currency string into a
// numeric value. Invoices use "." as the thousands separator and "," as the
// decimal separator, e.g. "$1.234,56" parses to 1234.56. Malformed or empty
// input parses to 0 so a record with a bad amount stays usable for search.
func ParseCurrencyAmount(raw string) float64 {
	cleaned := strings.TrimSpace(strings.ReplaceAll(raw, "$", ""))
	if cleaned == "" {
		return 0
	}
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return value
}
