package types

import (
	"fmt"
	"maps"
	"reflect"
	"time"
)

// Kind names the collection a record belongs to. Each management screen
// works on exactly one kind.
type Kind string

// Record kinds.
const (
	KindOrders   Kind = "orders"
	KindProducts Kind = "products"
	KindBookings Kind = "bookings"
	KindRequests Kind = "requests"
)

// Kinds lists every record kind in display order.
var Kinds = []Kind{KindOrders, KindProducts, KindBookings, KindRequests}

// Order statuses.
const (
	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
)

// Product statuses.
const (
	ProductDraft      = "draft"
	ProductActive     = "active"
	ProductOutOfStock = "out_of_stock"
	ProductArchived   = "archived"
)

// Booking statuses.
const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingCheckedIn = "checked_in"
	BookingCompleted = "completed"
	BookingCancelled = "cancelled"
)

// Request statuses.
const (
	RequestOpen     = "open"
	RequestInReview = "in_review"
	RequestApproved = "approved"
	RequestRejected = "rejected"
	RequestClosed   = "closed"
)

// statuses maps each kind to its statuses in lifecycle order.
var statuses = map[Kind][]string{
	KindOrders:   {OrderPending, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled},
	KindProducts: {ProductDraft, ProductActive, ProductOutOfStock, ProductArchived},
	KindBookings: {BookingPending, BookingConfirmed, BookingCheckedIn, BookingCompleted, BookingCancelled},
	KindRequests: {RequestOpen, RequestInReview, RequestApproved, RequestRejected, RequestClosed},
}

// terminal holds the statuses a record can never leave.
var terminal = map[Kind]map[string]bool{
	KindOrders:   {OrderDelivered: true, OrderCancelled: true},
	KindProducts: {ProductArchived: true},
	KindBookings: {BookingCompleted: true, BookingCancelled: true},
	KindRequests: {RequestRejected: true, RequestClosed: true},
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := statuses[k]
	return ok
}

// Statuses returns the statuses of kind k in lifecycle order. The first
// entry is the status assigned to newly created records.
func (k Kind) Statuses() []string {
	return append([]string(nil), statuses[k]...)
}

// ValidStatus reports whether status belongs to kind k.
func (k Kind) ValidStatus(status string) bool {
	for _, s := range statuses[k] {
		if s == status {
			return true
		}
	}
	return false
}

// InitialStatus returns the status assigned to new records of kind k.
func (k Kind) InitialStatus() string {
	if s := statuses[k]; len(s) > 0 {
		return s[0]
	}
	return ""
}

// ParseKind converts s to a Kind. Returns ErrInvalidKind when s is not a
// known kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", ErrInvalidKind
	}
	return k, nil
}

// CanTransition reports whether a record of kind k may move from one status
// to another. Staying in the same status is always allowed; leaving a
// terminal status never is.
func CanTransition(k Kind, from, to string) error {
	if !k.ValidStatus(to) {
		return ErrInvalidStatus
	}
	if from == to {
		return nil
	}
	if terminal[k][from] {
		return ErrInvalidTransition
	}
	return nil
}

// Record is a domain entity managed by a screen: an order, product,
// booking, or request.
type Record struct {
	ID            string         `json:"id"`
	Kind          Kind           `json:"kind"`
	Status        string         `json:"status"`
	Reference     string         `json:"reference,omitempty"`
	Title         string         `json:"title,omitempty"`
	CustomerName  string         `json:"customer_name,omitempty"`
	CustomerEmail string         `json:"customer_email,omitempty"`
	Category      string         `json:"category,omitempty"`
	Total         float64        `json:"total"`
	Payload       map[string]any `json:"payload,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Clone returns a copy of r that shares no mutable state with it.
// Payload values are copied shallowly.
func (r Record) Clone() Record {
	if r.Payload != nil {
		r.Payload = maps.Clone(r.Payload)
	}
	return r
}

// Equal reports whether r and o hold the same values. Timestamps are
// compared as instants and payload values deeply.
func (r Record) Equal(o Record) bool {
	return r.ID == o.ID &&
		r.Kind == o.Kind &&
		r.Status == o.Status &&
		r.Reference == o.Reference &&
		r.Title == o.Title &&
		r.CustomerName == o.CustomerName &&
		r.CustomerEmail == o.CustomerEmail &&
		r.Category == o.Category &&
		r.Total == o.Total &&
		r.CreatedAt.Equal(o.CreatedAt) &&
		r.UpdatedAt.Equal(o.UpdatedAt) &&
		len(r.Payload) == len(o.Payload) &&
		maps.EqualFunc(r.Payload, o.Payload, func(a, b any) bool { return reflect.DeepEqual(a, b) })
}

// Validate checks the record invariants: a non-empty ID, a known kind, a
// status of that kind, and UpdatedAt not before CreatedAt.
func (r Record) Validate() error {
	if r.ID == "" {
		return ErrInvalidID
	}
	if !r.Kind.Valid() {
		return ErrInvalidKind
	}
	if !r.Kind.ValidStatus(r.Status) {
		return ErrInvalidStatus
	}
	if r.UpdatedAt.Before(r.CreatedAt) {
		return fmt.Errorf("%w: updated_at before created_at", ErrValidation)
	}
	return nil
}

// Get returns the value of a patchable field by its patch key. The second
// result is false when the key does not name a field.
func (r Record) Get(field string) (any, bool) {
	switch field {
	case FieldStatus:
		return r.Status, true
	case FieldReference:
		return r.Reference, true
	case FieldTitle:
		return r.Title, true
	case FieldCustomerName:
		return r.CustomerName, true
	case FieldCustomerEmail:
		return r.CustomerEmail, true
	case FieldCategory:
		return r.Category, true
	case FieldTotal:
		return r.Total, true
	}
	if key, ok := payloadKey(field); ok {
		v, ok := r.Payload[key]
		return v, ok
	}
	return nil, false
}
