package tabs

import (
	"github.com/mesh-intelligence/marketdesk/pkg/types"
)

// Page is one page of a view.
type Page struct {
	Items      []types.Record `json:"items"`
	Number     int            `json:"page"`
	Size       int            `json:"size"`
	TotalItems int            `json:"total_items"`
	TotalPages int            `json:"total_pages"`
}

// Paginate returns the 1-based page of records. Pages below 1 clamp to the
// first page and pages past the end clamp to the last one. An empty input
// yields page 1 of 1 with no items. Returns ErrInvalidPagination when size
// is not positive.
func Paginate(records []types.Record, page, size int) (Page, error) {
	if size <= 0 {
		return Page{}, types.ErrInvalidPagination
	}
	total := len(records)
	pages := (total + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	page = min(max(page, 1), pages)

	start := min((page-1)*size, total)
	end := min(start+size, total)
	items := make([]types.Record, end-start)
	copy(items, records[start:end])

	return Page{
		Items:      items,
		Number:     page,
		Size:       size,
		TotalItems: total,
		TotalPages: pages,
	}, nil
}
