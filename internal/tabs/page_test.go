package tabs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/marketdesk/pkg/types"
)

func TestPaginate(t *testing.T) {
	records := withStatus("a", "b", "c", "d", "e")

	tests := []struct {
		name      string
		page      int
		size      int
		wantIDs   []string
		wantPage  int
		wantPages int
	}{
		{name: "first page", page: 1, size: 2, wantIDs: []string{"1", "2"}, wantPage: 1, wantPages: 3},
		{name: "last partial page", page: 3, size: 2, wantIDs: []string{"5"}, wantPage: 3, wantPages: 3},
		{name: "page past the end clamps", page: 9, size: 2, wantIDs: []string{"5"}, wantPage: 3, wantPages: 3},
		{name: "page below one clamps", page: 0, size: 2, wantIDs: []string{"1", "2"}, wantPage: 1, wantPages: 3},
		{name: "size larger than input", page: 1, size: 10, wantIDs: []string{"1", "2", "3", "4", "5"}, wantPage: 1, wantPages: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Paginate(records, tt.page, tt.size)
			require.NoError(t, err)

			got := make([]string, len(p.Items))
			for i, r := range p.Items {
				got[i] = r.ID
			}
			assert.Equal(t, tt.wantIDs, got)
			assert.Equal(t, tt.wantPage, p.Number)
			assert.Equal(t, tt.wantPages, p.TotalPages)
			assert.Equal(t, 5, p.TotalItems)
		})
	}
}

func TestPaginateEmpty(t *testing.T) {
	p, err := Paginate(nil, 3, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Number)
	assert.Equal(t, 1, p.TotalPages)
	assert.Empty(t, p.Items)
	assert.NotNil(t, p.Items)
}

func TestPaginateRejectsBadSize(t *testing.T) {
	_, err := Paginate(withStatus("a"), 1, 0)
	assert.ErrorIs(t, err, types.ErrInvalidPagination)
	assert.ErrorIs(t, err, types.ErrValidation)
}
