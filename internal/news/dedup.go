// Package news collapses near-duplicate items gathered across feeds.
// Independent agencies routinely carry the same wire story with trivial
// title differences; token-set similarity catches those where exact link
// comparison cannot.
package news

import (
	"sort"
	"strings"
	"unicode"

	"marketpulse/internal/market"
)

// similarityThreshold is the Jaccard index at or above which two titles are
// considered the same story.
const similarityThreshold = 0.8

// stopWords are removed before comparing titles; high-frequency Persian and
// English function words otherwise dominate short headline token sets.
var stopWords = map[string]struct{}{
	// Persian
	"و": {}, "در": {}, "به": {}, "از": {}, "که": {}, "با": {},
	"را": {}, "این": {}, "آن": {}, "برای": {}, "تا": {}, "بر": {},
	"یک": {}, "هم": {}, "یا": {},
	// English
	"the": {}, "a": {}, "an": {}, "of": {}, "in": {}, "on": {},
	"to": {}, "for": {}, "and": {}, "at": {}, "by": {}, "is": {},
}

// Dedupe collapses near-duplicate news items. The result is ordered
// newest-first and contains, for every cluster of similar titles, only the
// most recent item. Deduplication is idempotent: running it over its own
// output returns the same slice.
//
// The pairwise comparison is O(n²) over the combined feed pool, which stays
// under a few dozen entries; no index is warranted at that size.
func Dedupe(items []market.NewsItem) []market.NewsItem {
	if len(items) < 2 {
		return items
	}

	sorted := make([]market.NewsItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PublishedAt.After(sorted[j].PublishedAt)
	})

	seenLinks := make(map[string]struct{}, len(sorted))
	var seenTitles []map[string]struct{}
	out := make([]market.NewsItem, 0, len(sorted))

	for _, item := range sorted {
		if item.Link != "" {
			if _, dup := seenLinks[item.Link]; dup {
				continue
			}
		}

		tok := tokens(item.Title)
		dup := false
		for _, seen := range seenTitles {
			if jaccard(tok, seen) >= similarityThreshold {
				dup = true
				break
			}
		}
		if dup {
			continue
		}

		if item.Link != "" {
			seenLinks[item.Link] = struct{}{}
		}
		seenTitles = append(seenTitles, tok)
		out = append(out, item)
	}
	return out
}

// tokens splits a title into its comparable word set: lower-cased,
// punctuation trimmed from both ends, stop words removed.
func tokens(title string) map[string]struct{} {
	fields := strings.Fields(strings.ToLower(title))
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if f == "" {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		set[f] = struct{}{}
	}
	return set
}

// jaccard computes |a∩b| / |a∪b|. Two empty sets are identical.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
