package types

import "context"

// Remote is the backend API a session reads from and confirms mutations
// against. Implementations are the REST client and the local SQLite
// backend.
type Remote interface {
	// List returns every record of the given kind in display order.
	List(ctx context.Context, kind Kind) ([]Record, error)

	// Create stores a new record. When record.ID is empty the backend
	// assigns one. Returns the record as stored.
	Create(ctx context.Context, record Record) (Record, error)

	// Update applies patch to the record with the given ID and returns the
	// stored result. Returns ErrNotFound if no such record exists, and an
	// error wrapping ErrMutationRejected or ErrInvalidTransition when the
	// backend declines the change.
	Update(ctx context.Context, kind Kind, id string, patch Patch) (Record, error)

	// Delete removes the record with the given ID.
	// Returns ErrNotFound if no such record exists.
	Delete(ctx context.Context, kind Kind, id string) error
}
