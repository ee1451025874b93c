// Package catalog indexes a business's products for name matching during
// field extraction.
package catalog

import (
	"strings"

	"quotedesk/internal"
)

type entry struct {
	product internal.ProductRecord
	lower   string
}

// Index holds a business's active products in catalog insertion order,
// which doubles as the tie-break order for matches.
type Index struct {
	entries []entry
}

func BuildIndex(products []internal.ProductRecord) *Index {
	idx := &Index{entries: make([]entry, 0, len(products))}
	for _, p := range products {
		name := strings.ToLower(strings.TrimSpace(p.Name))
		if name == "" {
			continue
		}
		idx.entries = append(idx.entries, entry{product: p, lower: name})
	}
	return idx
}

// MatchText finds the product whose name occurs in the given free text.
// The longest case-insensitive substring match wins; ties go to the
// product inserted first.
func (idx *Index) MatchText(text string) (internal.ProductRecord, bool) {
	haystack := strings.ToLower(text)
	best := -1
	bestLen := 0
	for i, e := range idx.entries {
		if !strings.Contains(haystack, e.lower) {
			continue
		}
		if len(e.lower) > bestLen {
			best = i
			bestLen = len(e.lower)
		}
	}
	if best < 0 {
		return internal.ProductRecord{}, false
	}
	return idx.entries[best].product, true
}

// ResolveName maps an extracted product name back onto the catalog. Either
// side may be the substring: "felt rug" resolves "custom felt rug" and vice
// versa. Longest product name wins, insertion order breaks ties.
func (idx *Index) ResolveName(name string) (internal.ProductRecord, bool) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return internal.ProductRecord{}, false
	}
	best := -1
	bestLen := 0
	for i, e := range idx.entries {
		if !strings.Contains(e.lower, needle) && !strings.Contains(needle, e.lower) {
			continue
		}
		if len(e.lower) > bestLen {
			best = i
			bestLen = len(e.lower)
		}
	}
	if best < 0 {
		return internal.ProductRecord{}, false
	}
	return idx.entries[best].product, true
}

// Empty reports whether the index has no products at all.
func (idx *Index) Empty() bool {
	return len(idx.entries) == 0
}
