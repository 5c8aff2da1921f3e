// Package slug derives URL-safe identifiers from display names.
package slug

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)

// Make lowercases value, strips diacritics and collapses every run of other
// characters into a single dash. The result may be empty.
func Make(value string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, value)
	if err != nil {
		stripped = value
	}
	lowered := strings.ToLower(strings.TrimSpace(stripped))
	return strings.Trim(nonAlnumRe.ReplaceAllString(lowered, "-"), "-")
}

// OrFallback returns Make(value), or prefix-<random> when value has no usable characters.
func OrFallback(value, prefix string) string {
	if s := Make(value); s != "" {
		return s
	}
	return prefix + "-" + Suffix(5)
}

// Suffix returns n random lowercase hex characters (max 32).
func Suffix(n int) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n <= 0 || n > len(raw) {
		n = len(raw)
	}
	return raw[:n]
}

// Sequence reports the position candidate holds in base's numbering: 1 for
// base itself, n for base-n with n >= 2. ok is false for any other slug,
// including longer words such as base-deluxe.
func Sequence(candidate, base string) (n int, ok bool) {
	if candidate == base {
		return 1, true
	}
	rest, found := strings.CutPrefix(candidate, base+"-")
	if !found || rest == "" || rest[0] == '0' {
		return 0, false
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 2 {
		return 0, false
	}
	return n, true
}

// Next returns base while it is free, else base-(highest+1) over the taken
// slugs that belong to base's numbering.
func Next(base string, taken []string) string {
	highest, baseTaken := 0, false
	for _, candidate := range taken {
		n, ok := Sequence(candidate, base)
		if !ok {
			continue
		}
		baseTaken = baseTaken || n == 1
		highest = max(highest, n)
	}
	if !baseTaken {
		return base
	}
	return base + "-" + strconv.Itoa(highest+1)
}
