// internal/admin/normalize.go
package admin

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	separatorRun = regexp.MustCompile(`[\s\p{Z}_]+`)
	invalidChars = regexp.MustCompile(`[^a-z0-9-]`)
	hyphenRun    = regexp.MustCompile(`-+`)
)

// Slugify turns free text into a product id: lower-case ASCII letters,
// digits and single hyphens, never starting or ending with a hyphen.
// Accented letters are folded ("Pärla" becomes "parla").
func Slugify(value string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, value)
	if err != nil {
		folded = value
	}

	s := strings.ToLower(strings.TrimSpace(folded))
	s = separatorRun.ReplaceAllString(s, "-")
	s = invalidChars.ReplaceAllString(s, "")
	s = hyphenRun.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// FormatPrice normalizes a price to "<amount> kr".
func FormatPrice(price string) string {
	trimmed := strings.TrimSpace(price)
	if n := len(trimmed); n >= 2 && strings.EqualFold(trimmed[n-2:], "kr") {
		trimmed = strings.TrimSpace(trimmed[:n-2])
	}
	return trimmed + " kr"
}

// CoerceStock parses a stock field. Blank or non-numeric input is 0,
// fractions are floored and negatives become 0.
func CoerceStock(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	f = math.Floor(f)
	if f < 0 {
		return 0
	}
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}
