package filter

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/mesh-intelligence/marketdesk/pkg/types"
)

// Sort keys accepted by Sort.
const (
	SortCreatedAt = "created_at"
	SortUpdatedAt = "updated_at"
	SortTotal     = "total"
	SortTitle     = "title"
	SortStatus    = "status"
)

var comparators = map[string]func(a, b types.Record) int{
	SortCreatedAt: func(a, b types.Record) int { return a.CreatedAt.Compare(b.CreatedAt) },
	SortUpdatedAt: func(a, b types.Record) int { return a.UpdatedAt.Compare(b.UpdatedAt) },
	SortTotal:     func(a, b types.Record) int { return cmp.Compare(a.Total, b.Total) },
	SortTitle: func(a, b types.Record) int {
		return cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	},
	SortStatus: func(a, b types.Record) int { return cmp.Compare(a.Status, b.Status) },
}

// Sort returns a copy of records ordered by key. Equal keys keep their
// input order in both directions. An empty key returns the input order.
// Returns ErrInvalidFilter for an unknown key.
func Sort(records []types.Record, key string, ascending bool) ([]types.Record, error) {
	out := slices.Clone(records)
	if out == nil {
		out = []types.Record{}
	}
	if key == "" {
		return out, nil
	}
	compare, ok := comparators[key]
	if !ok {
		return nil, fmt.Errorf("%w: unknown sort key %q", types.ErrInvalidFilter, key)
	}
	slices.SortStableFunc(out, func(a, b types.Record) int {
		if ascending {
			return compare(a, b)
		}
		return compare(b, a)
	})
	return out, nil
}
