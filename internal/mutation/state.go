package mutation

import (
	"fmt"
	"strings"

	"github.com/mesh-intelligence/marketdesk/pkg/types"
)

// State is the lifecycle position of a single mutation.
type State int

// Mutation states. A mutation moves Idle -> Queued (only when another
// mutation on the same record is in flight) -> Pending -> Confirmed or
// RolledBack. Confirmed and RolledBack are final.
const (
	Idle State = iota
	Queued
	Pending
	Confirmed
	RolledBack
)

var stateNames = map[State]string{
	Idle:       "idle",
	Queued:     "queued",
	Pending:    "pending",
	Confirmed:  "confirmed",
	RolledBack: "rolled_back",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Final reports whether s is Confirmed or RolledBack.
func (s State) Final() bool {
	return s == Confirmed || s == RolledBack
}

// Error describes a mutation that did not stick. The store no longer shows
// its patch unless the record was replaced while the mutation was pending.
// Rejected is true only when the backend declined the change; such errors
// match ErrMutationRejected. Failed requests and timeouts are not rejections.
type Error struct {
	RecordID string
	Kind     types.Kind
	Patch    types.Patch
	Rejected bool
	Err      error
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString("mutation on ")
	if e.Kind != "" {
		sb.WriteString(string(e.Kind))
		sb.WriteByte('/')
	}
	sb.WriteString(e.RecordID)
	if e.Rejected {
		sb.WriteString(" rejected")
	} else {
		sb.WriteString(" failed")
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

// Unwrap exposes ErrMutationRejected for rejected mutations along with the
// underlying cause.
func (e *Error) Unwrap() []error {
	if e.Rejected {
		return []error{types.ErrMutationRejected, e.Err}
	}
	return []error{e.Err}
}
