package mutation

import (
	"context"
	"sync"

	"github.com/mesh-intelligence/marketdesk/pkg/types"
)

// Ticket tracks one submitted mutation.
type Ticket struct {
	ctx   context.Context
	id    string
	kind  types.Kind
	patch types.Patch

	mu    sync.Mutex
	state State
	err   error
	done  chan struct{}
}

func newTicket(ctx context.Context, id string, kind types.Kind, patch types.Patch) *Ticket {
	return &Ticket{
		ctx:   ctx,
		id:    id,
		kind:  kind,
		patch: patch,
		state: Idle,
		done:  make(chan struct{}),
	}
}

// RecordID returns the ID of the mutated record.
func (t *Ticket) RecordID() string { return t.id }

// Patch returns a copy of the submitted patch.
func (t *Ticket) Patch() types.Patch { return t.patch.Clone() }

// State returns the current state.
func (t *Ticket) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Err returns the *Error of a rolled back mutation, nil otherwise.
func (t *Ticket) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Done is closed once the mutation is Confirmed or RolledBack.
func (t *Ticket) Done() <-chan struct{} { return t.done }

// Wait blocks until the mutation resolves and returns its error, or returns
// ctx.Err() if ctx ends first. Giving up waiting does not cancel the
// mutation.
func (t *Ticket) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Ticket) setState(s State) {
	t.mu.Lock()
	t.state = s
	t.mu.Unlock()
}

func (t *Ticket) resolve(s State, e *Error) {
	t.mu.Lock()
	t.state = s
	if e != nil {
		t.err = e
	}
	t.mu.Unlock()
	close(t.done)
}
