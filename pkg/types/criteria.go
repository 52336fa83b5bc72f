package types

import (
	"fmt"
	"strings"
	"time"
)

// FilterAll disables the status or secondary filter.
const FilterAll = "all"

// DateRange is an inclusive [Start, End] interval on CreatedAt.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls within the range, bounds included.
func (d DateRange) Contains(t time.Time) bool {
	return !t.Before(d.Start) && !t.After(d.End)
}

// FilterCriteria is the set of narrowing predicates a user has selected on
// a management screen. The zero value matches every record.
type FilterCriteria struct {
	SearchText      string     `json:"search_text,omitempty"`
	StatusFilter    string     `json:"status_filter,omitempty"`
	SecondaryFilter string     `json:"secondary_filter,omitempty"`
	DateRange       *DateRange `json:"date_range,omitempty"`
}

// DefaultCriteria returns criteria that filter nothing.
func DefaultCriteria() FilterCriteria {
	return FilterCriteria{
		StatusFilter:    FilterAll,
		SecondaryFilter: FilterAll,
	}
}

// AllStatuses reports whether the status filter is disabled.
func (c FilterCriteria) AllStatuses() bool {
	return c.StatusFilter == "" || c.StatusFilter == FilterAll
}

// AllSecondary reports whether the secondary filter is disabled.
func (c FilterCriteria) AllSecondary() bool {
	return c.SecondaryFilter == "" || c.SecondaryFilter == FilterAll
}

// IsDefault reports whether c filters nothing.
func (c FilterCriteria) IsDefault() bool {
	return strings.TrimSpace(c.SearchText) == "" && c.AllStatuses() && c.AllSecondary() && c.DateRange == nil
}

// Equal compares two criteria by value. An empty status or secondary filter
// equals "all".
func (c FilterCriteria) Equal(o FilterCriteria) bool {
	if c.SearchText != o.SearchText {
		return false
	}
	if c.AllStatuses() != o.AllStatuses() || (!c.AllStatuses() && c.StatusFilter != o.StatusFilter) {
		return false
	}
	if c.AllSecondary() != o.AllSecondary() || (!c.AllSecondary() && c.SecondaryFilter != o.SecondaryFilter) {
		return false
	}
	switch {
	case c.DateRange == nil && o.DateRange == nil:
		return true
	case c.DateRange == nil || o.DateRange == nil:
		return false
	}
	return c.DateRange.Start.Equal(o.DateRange.Start) && c.DateRange.End.Equal(o.DateRange.End)
}

// Validate rejects criteria that can never be applied to records of kind:
// a status filter that is not a status of kind, or a date range ending
// before it starts.
func (c FilterCriteria) Validate(kind Kind) error {
	if !c.AllStatuses() && !kind.ValidStatus(c.StatusFilter) {
		return fmt.Errorf("%w: status %q for %s", ErrInvalidFilter, c.StatusFilter, kind)
	}
	if c.DateRange != nil && c.DateRange.End.Before(c.DateRange.Start) {
		return ErrInvalidDateRange
	}
	return nil
}
