// Package watchlist tests item text against a user's watchlist entries.
// Matching is deliberate naive substring containment, no tokenization: a
// keyword inside an unrelated word still matches.
package watchlist

import (
	"sort"
	"strings"

	"stockwatch/internal/core"
)

// Match returns the distinct watchlist values whose text appears,
// case-insensitively, in the item's title or summary. The result is sorted so
// alert payloads are stable. An empty watchlist or no matches yields nil.
func Match(title, summary string, items []core.WatchlistItem) []string {
	if len(items) == 0 {
		return nil
	}

	titleLower := strings.ToLower(title)
	summaryLower := strings.ToLower(summary)

	seen := make(map[string]bool)
	for _, item := range items {
		keyword := strings.ToLower(item.ItemValue)
		if keyword == "" {
			continue
		}
		if strings.Contains(titleLower, keyword) || strings.Contains(summaryLower, keyword) {
			seen[item.ItemValue] = true
		}
	}

	if len(seen) == 0 {
		return nil
	}

	matched := make([]string, 0, len(seen))
	for value := range seen {
		matched = append(matched, value)
	}
	sort.Strings(matched)

	return matched
}
