package filter

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/marketdesk/pkg/types"
)

var day0 = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func fixtures() []types.Record {
	return []types.Record{
		{ID: "ORD-1001", Kind: types.KindOrders, Status: "pending", Title: "Oak dining table", CustomerName: "Ana Ruiz", CustomerEmail: "ana@example.com", Category: "Furniture", Total: 87.99, CreatedAt: day0},
		{ID: "ORD-1002", Kind: types.KindOrders, Status: "shipped", Title: "Linen curtains", CustomerName: "Ben Okafor", CustomerEmail: "ben@example.org", Category: "Textiles", Total: 42.5, CreatedAt: day0.AddDate(0, 0, 3)},
		{ID: "ORD-1003", Kind: types.KindOrders, Status: "pending", Reference: "INV-77", Title: "Desk lamp", CustomerName: "Chen Wei", CustomerEmail: "chen@example.com", Category: "Lighting", Total: 19, CreatedAt: day0.AddDate(0, 0, 7)},
		{ID: "ORD-1004", Kind: types.KindOrders, Status: "delivered", Title: "Armchair", CustomerName: "Ana Ruiz", CustomerEmail: "ana.r@example.net", Category: "furniture", Total: 310, CreatedAt: day0.AddDate(0, 0, 10)},
	}
}

func idsOf(records []types.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func TestApply(t *testing.T) {
	tests := []struct {
		name     string
		criteria types.FilterCriteria
		want     []string
	}{
		{name: "default criteria keeps everything", criteria: types.DefaultCriteria(), want: []string{"ORD-1001", "ORD-1002", "ORD-1003", "ORD-1004"}},
		{name: "zero criteria keeps everything", criteria: types.FilterCriteria{}, want: []string{"ORD-1001", "ORD-1002", "ORD-1003", "ORD-1004"}},
		{name: "status filter", criteria: types.FilterCriteria{StatusFilter: "pending"}, want: []string{"ORD-1001", "ORD-1003"}},
		{name: "search matches customer name case-insensitively", criteria: types.FilterCriteria{SearchText: "ANA"}, want: []string{"ORD-1001", "ORD-1004"}},
		{name: "search matches email", criteria: types.FilterCriteria{SearchText: "example.org"}, want: []string{"ORD-1002"}},
		{name: "search matches id", criteria: types.FilterCriteria{SearchText: "1003"}, want: []string{"ORD-1003"}},
		{name: "search matches reference", criteria: types.FilterCriteria{SearchText: "inv-77"}, want: []string{"ORD-1003"}},
		{name: "search matches title", criteria: types.FilterCriteria{SearchText: "lamp"}, want: []string{"ORD-1003"}},
		{name: "search text is trimmed", criteria: types.FilterCriteria{SearchText: "  lamp  "}, want: []string{"ORD-1003"}},
		{name: "search ignores non-searchable fields", criteria: types.FilterCriteria{SearchText: "lighting"}, want: []string{}},
		{name: "secondary filter is case-insensitive", criteria: types.FilterCriteria{SecondaryFilter: "Furniture"}, want: []string{"ORD-1001", "ORD-1004"}},
		{name: "all predicates combine", criteria: types.FilterCriteria{SearchText: "ana", StatusFilter: "delivered", SecondaryFilter: "furniture"}, want: []string{"ORD-1004"}},
		{
			name:     "date range is inclusive on both ends",
			criteria: types.FilterCriteria{DateRange: &types.DateRange{Start: day0.AddDate(0, 0, 3), End: day0.AddDate(0, 0, 7)}},
			want:     []string{"ORD-1002", "ORD-1003"},
		},
		{name: "no match returns empty", criteria: types.FilterCriteria{StatusFilter: "cancelled"}, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Apply(fixtures(), tt.criteria)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, idsOf(got))
		})
	}
}

func TestApplyEmptyCollection(t *testing.T) {
	got := Apply(nil, types.FilterCriteria{StatusFilter: "pending"})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestApplyDefaultReturnsNewSlice(t *testing.T) {
	in := fixtures()
	got := Apply(in, types.DefaultCriteria())
	assert.Equal(t, in, got)

	got[0].Status = "cancelled"
	assert.Equal(t, "pending", in[0].Status, "result must not alias the input")
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	in := fixtures()
	before := fixtures()
	_ = Apply(in, types.FilterCriteria{SearchText: "ana", StatusFilter: "pending"})
	assert.Equal(t, before, in)
}

// TestApplyIsOrderPreservingSubsequence checks the result against random
// inputs: every output record appears in the input, in the same relative
// order, and the same call yields the same output.
func TestApplyIsOrderPreservingSubsequence(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	statuses := types.KindOrders.Statuses()
	categories := []string{"furniture", "lighting", "textiles"}

	for iter := 0; iter < 200; iter++ {
		n := rng.Intn(30)
		records := make([]types.Record, n)
		for i := range records {
			records[i] = types.Record{
				ID:           fmt.Sprintf("r%d", i),
				Kind:         types.KindOrders,
				Status:       statuses[rng.Intn(len(statuses))],
				CustomerName: fmt.Sprintf("customer %d", rng.Intn(5)),
				Category:     categories[rng.Intn(len(categories))],
				CreatedAt:    day0.Add(time.Duration(rng.Intn(240)) * time.Hour),
			}
		}
		criteria := types.FilterCriteria{
			SearchText:      []string{"", "customer 1", "CUSTOMER", "zzz"}[rng.Intn(4)],
			StatusFilter:    append([]string{types.FilterAll}, statuses...)[rng.Intn(len(statuses)+1)],
			SecondaryFilter: append([]string{types.FilterAll}, categories...)[rng.Intn(len(categories)+1)],
		}
		if rng.Intn(2) == 0 {
			start := day0.Add(time.Duration(rng.Intn(120)) * time.Hour)
			criteria.DateRange = &types.DateRange{Start: start, End: start.Add(time.Duration(rng.Intn(120)) * time.Hour)}
		}

		got := Apply(records, criteria)
		assert.Equal(t, got, Apply(records, criteria), "deterministic")

		pos := 0
		for _, r := range got {
			for pos < len(records) && records[pos].ID != r.ID {
				pos++
			}
			require.Less(t, pos, len(records), "result %v is not an ordered subsequence", idsOf(got))
			assert.True(t, Matches(r, criteria))
			pos++
		}
		for _, r := range records {
			if Matches(r, criteria) {
				assert.Contains(t, idsOf(got), r.ID)
			}
		}
	}
}

func TestStatusFilterScenario(t *testing.T) {
	records := []types.Record{{ID: "1", Kind: types.KindOrders, Status: "pending", Total: 87.99}}
	assert.Empty(t, Apply(records, types.FilterCriteria{StatusFilter: "processing"}))

	records[0].Status = "processing"
	got := Apply(records, types.FilterCriteria{StatusFilter: "processing"})
	require.Len(t, got, 1)
	assert.Equal(t, 87.99, got[0].Total)
}
