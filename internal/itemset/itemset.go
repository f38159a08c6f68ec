// Package itemset defines the data model shared by every mining job:
// items, canonical itemsets, transactions, and the on-disk record codecs.
//
// Architecture Pattern:
// All itemsets are held in canonical form (strictly sorted, deduplicated)
// from the moment they are parsed. Jobs never re-sort mid-flight; the
// canonical invariant is established at the parse boundary and preserved
// by construction everywhere else.
package itemset

import (
	"slices"
	"strings"
)

// Separators used by the on-disk formats. The comma form is internal to
// the support counter's shuffle keys and never appears in artifact files.
const (
	ItemSeparator         = " "
	RecordFieldSeparator  = "\t"
	InternalItemSeparator = ","
)

// Itemset is a canonical set of items: strictly sorted ascending with no
// duplicates. The zero value is the empty itemset.
type Itemset []string

// New canonicalizes the given items into an Itemset. Empty strings are
// dropped, duplicates collapse, and the result is sorted.
func New(items ...string) Itemset {
	out := make(Itemset, 0, len(items))
	for _, it := range items {
		if it != "" {
			out = append(out, it)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Parse parses a space-separated itemset string into canonical form.
// Surrounding whitespace is tolerated; an all-whitespace string yields
// the empty itemset.
func Parse(s string) Itemset {
	return New(strings.Fields(s)...)
}

// ParseSep parses an itemset string using the given separator, trimming
// each field. Used for the counter's comma-separated internal keys.
func ParseSep(s, sep string) Itemset {
	parts := strings.Split(s, sep)
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return New(parts...)
}

// String renders the itemset in canonical wire form: items separated by
// single spaces.
func (s Itemset) String() string {
	return strings.Join(s, ItemSeparator)
}

// Join renders the itemset with an arbitrary separator.
func (s Itemset) Join(sep string) string {
	return strings.Join(s, sep)
}

// Len returns the number of items, i.e. the itemset's level.
func (s Itemset) Len() int { return len(s) }

// Contains reports whether the itemset contains the given item.
func (s Itemset) Contains(item string) bool {
	_, ok := slices.BinarySearch(s, item)
	return ok
}

// IsSubsetOf reports whether every item of s appears in t. Both sides
// must be canonical; the check is a linear merge over the two sorted
// slices.
func (s Itemset) IsSubsetOf(t Itemset) bool {
	if len(s) > len(t) {
		return false
	}
	j := 0
	for _, item := range s {
		for j < len(t) && t[j] < item {
			j++
		}
		if j >= len(t) || t[j] != item {
			return false
		}
		j++
	}
	return true
}

// Union returns the canonical union of s and extra items.
func (s Itemset) Union(items ...string) Itemset {
	return New(append(append([]string{}, s...), items...)...)
}

// Without returns a copy of s with the item at index i removed. The
// result stays canonical since removal preserves order.
func (s Itemset) Without(i int) Itemset {
	out := make(Itemset, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...)
}

// SplitPrefix splits a canonical itemset into its first len-1 items (the
// prefix) and its last item (the postfix). The itemset must be non-empty.
func (s Itemset) SplitPrefix() (prefix Itemset, postfix string) {
	return s[:len(s)-1], s[len(s)-1]
}

// Equal reports whether two canonical itemsets hold the same items.
func (s Itemset) Equal(t Itemset) bool {
	return slices.Equal(s, t)
}
