// Package filter derives the visible view of a record collection from the
// user's filter criteria. Apply is pure: it never reorders its input and
// never mutates it.
package filter

import (
	"strings"

	"github.com/mesh-intelligence/marketdesk/pkg/types"
)

// Apply returns the records matching every predicate in criteria, in input
// order. The result is always a new slice, empty (not nil) when nothing
// matches.
func Apply(records []types.Record, criteria types.FilterCriteria) []types.Record {
	m := newMatcher(criteria)
	out := make([]types.Record, 0, len(records))
	for _, r := range records {
		if m.match(r) {
			out = append(out, r)
		}
	}
	return out
}

// Matches reports whether a single record passes criteria.
func Matches(r types.Record, criteria types.FilterCriteria) bool {
	return newMatcher(criteria).match(r)
}

// matcher holds criteria with the search text lowered once per Apply.
type matcher struct {
	criteria types.FilterCriteria
	needle   string
}

func newMatcher(c types.FilterCriteria) matcher {
	return matcher{
		criteria: c,
		needle:   strings.ToLower(strings.TrimSpace(c.SearchText)),
	}
}

func (m matcher) match(r types.Record) bool {
	if m.needle != "" && !searchHit(r, m.needle) {
		return false
	}
	if !m.criteria.AllStatuses() && r.Status != m.criteria.StatusFilter {
		return false
	}
	if !m.criteria.AllSecondary() && !strings.EqualFold(r.Category, m.criteria.SecondaryFilter) {
		return false
	}
	if m.criteria.DateRange != nil && !m.criteria.DateRange.Contains(r.CreatedAt) {
		return false
	}
	return true
}

// searchHit reports whether needle (already lowered) occurs in any
// searchable field of r.
func searchHit(r types.Record, needle string) bool {
	for _, field := range searchable(r) {
		if field != "" && strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// searchable lists the fields free-text search looks at.
func searchable(r types.Record) [5]string {
	return [5]string{r.ID, r.Reference, r.Title, r.CustomerName, r.CustomerEmail}
}
