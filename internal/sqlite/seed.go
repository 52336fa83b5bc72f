package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/mesh-intelligence/marketdesk/pkg/types"
)

// demoRecord describes a record seeded by Seed. age is how long before the
// seed time the record was created.
type demoRecord struct {
	kind      types.Kind
	status    string
	reference string
	title     string
	customer  string
	email     string
	category  string
	total     float64
	age       time.Duration
	payload   map[string]any
}

const day = 24 * time.Hour

var demoRecords = []demoRecord{
	{types.KindOrders, types.OrderPending, "ORD-1001", "Weekly groceries", "Ana Ruiz", "ana@example.com", "grocery", 42.10, 2 * time.Hour, map[string]any{"items": 7.0}},
	{types.KindOrders, types.OrderPending, "ORD-1002", "Noise cancelling headphones", "Ben Okafor", "ben@example.com", "electronics", 310.00, 5 * time.Hour, map[string]any{"items": 1.0}},
	{types.KindOrders, types.OrderProcessing, "ORD-1003", "Birthday cake", "Chen Wei", "chen@example.com", "bakery", 55.00, day, map[string]any{"note": "ring twice"}},
	{types.KindOrders, types.OrderShipped, "ORD-1004", "Paperback bundle", "Dana Kim", "dana@example.com", "books", 27.50, 3 * day, nil},
	{types.KindOrders, types.OrderDelivered, "ORD-1005", "Espresso beans", "Ana Ruiz", "ana@example.com", "grocery", 18.90, 6 * day, nil},
	{types.KindOrders, types.OrderCancelled, "ORD-1006", "Phone case", "Eli Novak", "eli@example.com", "electronics", 12.00, 9 * day, map[string]any{"reason": "duplicate"}},

	{types.KindProducts, types.ProductActive, "SKU-2001", "Ceramic kettle", "", "", "kitchen", 49.00, 30 * day, map[string]any{"stock": 14.0}},
	{types.KindProducts, types.ProductOutOfStock, "SKU-2002", "Linen apron", "", "", "kitchen", 24.00, 25 * day, map[string]any{"stock": 0.0}},
	{types.KindProducts, types.ProductDraft, "SKU-2003", "Walnut cutting board", "", "", "kitchen", 65.00, day, nil},
	{types.KindProducts, types.ProductArchived, "SKU-2004", "Holiday mug", "", "", "seasonal", 9.50, 200 * day, nil},

	{types.KindBookings, types.BookingPending, "BKG-3001", "Table for four", "Fatima Zahra", "fatima@example.com", "dinner", 0, 3 * time.Hour, map[string]any{"guests": 4.0}},
	{types.KindBookings, types.BookingConfirmed, "BKG-3002", "Pottery workshop", "Gus Lind", "gus@example.com", "workshop", 80.00, 2 * day, map[string]any{"guests": 2.0}},
	{types.KindBookings, types.BookingCompleted, "BKG-3003", "Brunch", "Hana Sato", "hana@example.com", "brunch", 0, 8 * day, nil},

	{types.KindRequests, types.RequestOpen, "REQ-4001", "Refund for late delivery", "Ben Okafor", "ben@example.com", "refund", 310.00, time.Hour, nil},
	{types.KindRequests, types.RequestInReview, "REQ-4002", "Become a seller", "Ivo Petrov", "ivo@example.com", "seller", 0, 4 * day, nil},
	{types.KindRequests, types.RequestClosed, "REQ-4003", "Change delivery address", "Dana Kim", "dana@example.com", "support", 0, 12 * day, nil},
}

// Seed fills an empty backend with demo records of every kind. It does
// nothing when any record exists. Returns the number of records created.
func (b *Backend) Seed(ctx context.Context) (int, error) {
	n, err := b.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.attached {
		return 0, ErrDetached
	}

	now := b.now()
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning seed transaction: %w", err)
	}
	defer tx.Rollback()

	// Oldest first so insertion order follows creation time.
	for i := len(demoRecords) - 1; i >= 0; i-- {
		d := demoRecords[i]
		created := now.Add(-d.age)
		r := types.Record{
			ID:            generateUUID(),
			Kind:          d.kind,
			Status:        d.status,
			Reference:     d.reference,
			Title:         d.title,
			CustomerName:  d.customer,
			CustomerEmail: d.email,
			Category:      d.category,
			Total:         d.total,
			Payload:       d.payload,
			CreatedAt:     created,
			UpdatedAt:     created,
		}
		args, err := recordArgs(r)
		if err != nil {
			return 0, err
		}
		if _, err := tx.ExecContext(ctx, insertSQL, args...); err != nil {
			return 0, fmt.Errorf("seeding %s: %w", d.reference, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing seed transaction: %w", err)
	}
	if err := b.persistJSONL(ctx); err != nil {
		return 0, fmt.Errorf("persisting seeded records: %w", err)
	}
	return len(demoRecords), nil
}
