package alerts

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"silentwave/internal/models"
)

// NoneKey is the dedup key of the quiet state.
const NoneKey = "none::"

// NormalizeCity canonicalizes a place name for comparisons: niqqud and other
// combining marks are removed and whitespace is collapsed.
func NormalizeCity(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	res, _, err := transform.String(t, name)
	if err != nil {
		res = name
	}
	return strings.Join(strings.Fields(res), " ")
}

// NormalizeCities normalizes every name and drops empties and duplicates,
// keeping first-seen order.
func NormalizeCities(cities []string) []string {
	out := make([]string, 0, len(cities))
	seen := make(map[string]struct{}, len(cities))
	for _, c := range cities {
		n := NormalizeCity(c)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Key is the dedup identity of an alert: type plus the sorted city list.
func Key(a models.Alert) string {
	cities := NormalizeCities(a.Cities)
	sort.Strings(cities)
	t := a.Type
	if t == "" {
		t = models.AlertNone
	}
	return string(t) + "::" + strings.Join(cities, ",")
}

// Relevant reports whether an alert touches any of the selected cities.
// An empty selection means every city is relevant.
func Relevant(a models.Alert, selected []string) bool {
	if len(selected) == 0 {
		return true
	}
	want := make(map[string]struct{}, len(selected))
	for _, c := range selected {
		want[NormalizeCity(c)] = struct{}{}
	}
	for _, c := range a.Cities {
		if _, ok := want[NormalizeCity(c)]; ok {
			return true
		}
	}
	return false
}
