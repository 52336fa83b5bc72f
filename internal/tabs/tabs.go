// Package tabs partitions a filtered view into named buckets, usually one
// per status, and computes the counts shown on tab badges. The active tab
// belongs to the caller; this package only counts and narrows.
package tabs

import (
	"slices"
	"strings"

	"github.com/mesh-intelligence/marketdesk/pkg/types"
)

// All is the tab that shows every record.
const All = types.FilterAll

// KeyFunc extracts the bucket key of a record.
type KeyFunc func(types.Record) string

// ByStatus buckets records by status.
func ByStatus(r types.Record) string { return r.Status }

// ByCategory buckets records by lower-cased category.
func ByCategory(r types.Record) string { return strings.ToLower(r.Category) }

// Counts holds badge counts for a view. ByKey contains only keys that occur
// in the counted records; absent statuses are not zero-padded.
type Counts struct {
	Total int            `json:"total"`
	ByKey map[string]int `json:"by_key"`
}

// Get returns the count for key, or Total for the All tab.
func (c Counts) Get(key string) int {
	if key == All {
		return c.Total
	}
	return c.ByKey[key]
}

// CountsByKey counts records per key.
func CountsByKey(records []types.Record, key KeyFunc) Counts {
	c := Counts{Total: len(records), ByKey: make(map[string]int)}
	for _, r := range records {
		c.ByKey[key(r)]++
	}
	return c
}

// Narrow returns the records whose key equals tab, in input order. The All
// tab returns a copy of every record.
func Narrow(records []types.Record, tab string, key KeyFunc) []types.Record {
	out := make([]types.Record, 0, len(records))
	for _, r := range records {
		if tab == All || key(r) == tab {
			out = append(out, r)
		}
	}
	return out
}

// Tab is one badge in a tab bar.
type Tab struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Tabs lays counts out in the given key order, preceded by the All tab.
// Keys in order without records are skipped. Keys counted but missing from
// order follow, sorted by name.
func Tabs(c Counts, order []string) []Tab {
	out := []Tab{{Key: All, Count: c.Total}}
	seen := make(map[string]bool, len(order))
	for _, k := range order {
		seen[k] = true
		if n, ok := c.ByKey[k]; ok {
			out = append(out, Tab{Key: k, Count: n})
		}
	}
	var rest []string
	for k := range c.ByKey {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	slices.Sort(rest)
	for _, k := range rest {
		out = append(out, Tab{Key: k, Count: c.ByKey[k]})
	}
	return out
}
