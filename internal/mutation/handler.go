// Package mutation applies user edits to a collection optimistically: the
// store changes at once, the backend is asked to confirm in the background,
// and a rejected change is rolled back to the record's prior value.
//
// Mutations on the same record run one at a time in submission order. A
// mutation submitted while another one on that record is pending waits in a
// queue and touches the store only after its predecessor has been confirmed
// or rolled back. Mutations on different records are independent.
//
// Confirmation requests are not cancellable once issued.
package mutation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mesh-intelligence/marketdesk/internal/metrics"
	"github.com/mesh-intelligence/marketdesk/pkg/types"
)

// Store is the part of a collection the handler reads and writes.
type Store interface {
	Get(id string) (types.Record, error)
	Upsert(id string, patch types.Patch) (types.Record, error)
	Swap(expected, next types.Record) bool
}

// Mutation is what the backend is asked to confirm.
type Mutation struct {
	RecordID string
	Kind     types.Kind
	Patch    types.Patch
	// Applied is the record as the store showed it after the patch.
	Applied types.Record
}

// Confirmer sends a mutation to the backend. A nil error confirms it. A
// returned record that is a valid record of the mutation's ID and kind is
// adopted as the server's version; anything else, such as a zero record or
// a partial reply, keeps the optimistic value. An error wrapping
// types.ErrMutationRejected means the backend declined the change; any
// other error is a failed request. Both roll back.
type Confirmer interface {
	Confirm(ctx context.Context, m Mutation) (types.Record, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, m Mutation) (types.Record, error)

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(ctx context.Context, m Mutation) (types.Record, error) {
	return f(ctx, m)
}

// RemoteConfirmer confirms mutations with Remote.Update.
func RemoteConfirmer(r types.Remote) Confirmer {
	return ConfirmFunc(func(ctx context.Context, m Mutation) (types.Record, error) {
		return r.Update(ctx, m.Kind, m.RecordID, m.Patch)
	})
}

// Handler runs optimistic mutations against one store.
type Handler struct {
	store     Store
	confirmer Confirmer
	timeout   time.Duration
	notify    func(*Error)
	logger    *slog.Logger

	mu      sync.Mutex
	queues  map[string][]*Ticket // record ID -> in-flight ticket followed by queued ones
	active  int                  // unresolved tickets
	drained chan struct{}        // closed when active drops to zero
}

// Option configures a Handler.
type Option func(*Handler)

// WithConfirmTimeout bounds each confirmation. A confirmation that times
// out is rolled back. Zero means no bound.
func WithConfirmTimeout(d time.Duration) Option {
	return func(h *Handler) {
		h.timeout = d
	}
}

// WithNotifier registers fn to be called exactly once for every mutation
// that ends RolledBack. fn runs on the handler's goroutine and must not
// block.
func WithNotifier(fn func(*Error)) Option {
	return func(h *Handler) {
		h.notify = fn
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = l
	}
}

// NewHandler returns a handler that patches store and confirms through c.
func NewHandler(store Store, c Confirmer, opts ...Option) *Handler {
	h := &Handler{
		store:     store,
		confirmer: c,
		logger:    slog.Default(),
		queues:    make(map[string][]*Ticket),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Submit starts a mutation of the record with the given ID.
//
// The patch is validated against the record before anything else happens;
// a malformed patch or a missing record returns an error and leaves the
// store untouched. Otherwise Submit returns a Ticket. When no other
// mutation on the record is in flight the patch is already visible in the
// store when Submit returns; otherwise the ticket is Queued.
//
// ctx carries values to the confirmer but its cancellation is ignored.
func (h *Handler) Submit(ctx context.Context, id string, patch types.Patch) (*Ticket, error) {
	current, err := h.store.Get(id)
	if err != nil {
		return nil, err
	}
	if err := patch.Validate(current.Kind); err != nil {
		metrics.Mutations.WithLabelValues(string(current.Kind), metrics.OutcomeValidationFail).Inc()
		return nil, fmt.Errorf("mutation on %s: %w", id, err)
	}

	t := newTicket(context.WithoutCancel(ctx), id, current.Kind, patch.Clone())

	h.mu.Lock()
	if h.active == 0 {
		h.drained = make(chan struct{})
	}
	h.active++
	q := h.queues[id]
	h.queues[id] = append(q, t)
	first := len(q) == 0
	if !first {
		t.setState(Queued)
	}
	h.mu.Unlock()

	if first {
		h.start(t)
	} else {
		h.logger.DebugContext(ctx, "mutation queued", slog.String("id", id), slog.Int("ahead", len(q)))
	}
	return t, nil
}

// Pending returns the number of unresolved mutations on the record,
// counting the in-flight one.
func (h *Handler) Pending(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.queues[id])
}

// Wait blocks until no mutation is unresolved or ctx is done. Mutations
// submitted while Wait blocks are waited for too.
func (h *Handler) Wait(ctx context.Context) error {
	h.mu.Lock()
	if h.active == 0 {
		h.mu.Unlock()
		return nil
	}
	drained := h.drained
	h.mu.Unlock()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// start applies t's patch to the store and launches its confirmation.
func (h *Handler) start(t *Ticket) {
	snapshot, err := h.store.Get(t.id)
	if err != nil {
		// The record went away while t was queued.
		h.fail(t, &Error{RecordID: t.id, Kind: t.kind, Patch: t.patch, Err: err})
		return
	}
	applied, err := h.store.Upsert(t.id, t.patch)
	if err != nil {
		h.fail(t, &Error{RecordID: t.id, Kind: t.kind, Patch: t.patch, Err: err})
		return
	}

	t.setState(Pending)
	metrics.PendingMutations.WithLabelValues(string(t.kind)).Inc()
	go h.confirm(t, snapshot, applied)
}

func (h *Handler) confirm(t *Ticket, snapshot, applied types.Record) {
	ctx := t.ctx
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	began := time.Now()
	server, err := h.confirmer.Confirm(ctx, Mutation{
		RecordID: t.id,
		Kind:     t.kind,
		Patch:    t.patch.Clone(),
		Applied:  applied.Clone(),
	})
	metrics.ConfirmDuration.WithLabelValues(string(t.kind)).Observe(time.Since(began).Seconds())
	metrics.PendingMutations.WithLabelValues(string(t.kind)).Dec()

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("confirmation timed out after %s: %w", h.timeout, err)
		}
		if !h.store.Swap(applied, snapshot) {
			h.logger.DebugContext(t.ctx, "record changed while pending, rollback skipped", slog.String("id", t.id))
		}
		h.fail(t, &Error{
			RecordID: t.id,
			Kind:     t.kind,
			Patch:    t.patch,
			Rejected: errors.Is(err, types.ErrMutationRejected),
			Err:      err,
		})
		return
	}

	if server.ID == t.id && server.Kind == t.kind && server.Validate() == nil {
		h.store.Swap(applied, server)
	}
	h.logger.DebugContext(t.ctx, "mutation confirmed", slog.String("id", t.id), slog.String("kind", string(t.kind)))
	metrics.Mutations.WithLabelValues(string(t.kind), metrics.OutcomeConfirmed).Inc()
	h.finish(t, Confirmed, nil)
}

// fail resolves t as RolledBack and reports it.
func (h *Handler) fail(t *Ticket, e *Error) {
	h.logger.WarnContext(t.ctx, "mutation rolled back",
		slog.String("id", t.id),
		slog.String("kind", string(t.kind)),
		slog.Any("error", e.Err),
	)
	metrics.Mutations.WithLabelValues(string(t.kind), metrics.OutcomeRolledBack).Inc()
	if h.notify != nil {
		h.notify(e)
	}
	h.finish(t, RolledBack, e)
}

// finish drops t from the head of its queue, resolves it, and starts the
// next queued mutation on the same record.
func (h *Handler) finish(t *Ticket, s State, e *Error) {
	h.mu.Lock()
	q := h.queues[t.id][1:]
	var next *Ticket
	if len(q) == 0 {
		delete(h.queues, t.id)
	} else {
		h.queues[t.id] = q
		next = q[0]
	}
	h.mu.Unlock()

	t.resolve(s, e)

	h.mu.Lock()
	h.active--
	if h.active == 0 {
		close(h.drained)
	}
	h.mu.Unlock()

	if next != nil {
		h.start(next)
	}
}
