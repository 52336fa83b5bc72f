// Package session is the view-model behind one management screen. A
// Session owns the screen's record collection and mutation handler
// exclusively: it seeds the collection from the backend, derives filtered
// and tabbed views from it, and routes edits through optimistic mutations.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mesh-intelligence/marketdesk/internal/collection"
	"github.com/mesh-intelligence/marketdesk/internal/filter"
	"github.com/mesh-intelligence/marketdesk/internal/mutation"
	"github.com/mesh-intelligence/marketdesk/internal/tabs"
	"github.com/mesh-intelligence/marketdesk/pkg/types"
)

// Session is the state of one screen for one record kind.
type Session struct {
	kind    types.Kind
	remote  types.Remote
	store   *collection.Store
	handler *mutation.Handler
	logger  *slog.Logger
}

type options struct {
	storeOpts   []collection.Option
	handlerOpts []mutation.Option
	logger      *slog.Logger
}

// Option configures a Session.
type Option func(*options)

// WithClock sets the clock used to stamp local edits.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.storeOpts = append(o.storeOpts, collection.WithClock(now))
	}
}

// WithConfirmTimeout bounds how long a mutation may wait for the backend.
func WithConfirmTimeout(d time.Duration) Option {
	return func(o *options) {
		o.handlerOpts = append(o.handlerOpts, mutation.WithConfirmTimeout(d))
	}
}

// WithNotifier registers the callback that surfaces rolled back mutations
// to the user.
func WithNotifier(fn func(*mutation.Error)) Option {
	return func(o *options) {
		o.handlerOpts = append(o.handlerOpts, mutation.WithNotifier(fn))
	}
}

// WithLogger sets the logger for the session and its handler.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// New returns an empty session for kind backed by remote. Call Load to
// fill it.
func New(kind types.Kind, remote types.Remote, opts ...Option) (*Session, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("new session for %q: %w", kind, types.ErrInvalidKind)
	}
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	store := collection.New(o.storeOpts...)
	handlerOpts := append([]mutation.Option{mutation.WithLogger(o.logger)}, o.handlerOpts...)

	return &Session{
		kind:    kind,
		remote:  remote,
		store:   store,
		handler: mutation.NewHandler(store, mutation.RemoteConfirmer(remote), handlerOpts...),
		logger:  o.logger.With(slog.String("kind", string(kind))),
	}, nil
}

// Kind returns the record kind this session manages.
func (s *Session) Kind() types.Kind { return s.kind }

// Load replaces the collection with the backend's records. It does not
// wait for pending mutations; one that is rolled back later leaves the
// loaded record alone.
func (s *Session) Load(ctx context.Context) error {
	records, err := s.remote.List(ctx, s.kind)
	if err != nil {
		return fmt.Errorf("listing %s: %w", s.kind, err)
	}
	for _, r := range records {
		if r.Kind != s.kind {
			return fmt.Errorf("listing %s: record %s has kind %q: %w", s.kind, r.ID, r.Kind, types.ErrInvalidKind)
		}
	}
	if err := s.store.ReplaceAll(records); err != nil {
		return fmt.Errorf("loading %s: %w", s.kind, err)
	}
	s.logger.DebugContext(ctx, "collection loaded", slog.Int("records", len(records)))
	return nil
}

// Refresh waits for in-flight mutations to resolve and then reloads the
// collection, so a late rollback cannot overwrite fresh server data.
func (s *Session) Refresh(ctx context.Context) error {
	if err := s.handler.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for pending mutations: %w", err)
	}
	return s.Load(ctx)
}

// Records returns every record in display order.
func (s *Session) Records() []types.Record {
	return s.store.All()
}

// Get returns one record.
func (s *Session) Get(id string) (types.Record, error) {
	return s.store.Get(id)
}

// View returns the records matching criteria in display order.
func (s *Session) View(criteria types.FilterCriteria) ([]types.Record, error) {
	if err := criteria.Validate(s.kind); err != nil {
		return nil, err
	}
	return filter.Apply(s.store.All(), criteria), nil
}

// Counts returns badge counts over the records matching criteria.
func (s *Session) Counts(criteria types.FilterCriteria, key tabs.KeyFunc) (tabs.Counts, error) {
	view, err := s.View(criteria)
	if err != nil {
		return tabs.Counts{}, err
	}
	return tabs.CountsByKey(view, key), nil
}

// Query is everything a list screen asks for at once.
type Query struct {
	Criteria  types.FilterCriteria
	Tab       string // status tab; empty or "all" shows every status
	SortKey   string
	Ascending bool
	Page      int
	Size      int
}

// Result is one rendered list screen: the status tabs with their badge
// counts and the requested page of the active tab.
type Result struct {
	Tabs []tabs.Tab `json:"tabs"`
	Page tabs.Page  `json:"page"`
}

// Run filters, counts per status, narrows to the active tab, sorts, and
// paginates. Tab counts are taken after filtering and before narrowing.
func (s *Session) Run(q Query) (Result, error) {
	view, err := s.View(q.Criteria)
	if err != nil {
		return Result{}, err
	}
	counts := tabs.CountsByKey(view, tabs.ByStatus)

	tab := q.Tab
	if tab == "" {
		tab = tabs.All
	}
	if tab != tabs.All && !s.kind.ValidStatus(tab) {
		return Result{}, fmt.Errorf("%w: tab %q for %s", types.ErrInvalidFilter, tab, s.kind)
	}
	sorted, err := filter.Sort(tabs.Narrow(view, tab, tabs.ByStatus), q.SortKey, q.Ascending)
	if err != nil {
		return Result{}, err
	}
	page, err := tabs.Paginate(sorted, q.Page, q.Size)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Tabs: tabs.Tabs(counts, s.kind.Statuses()),
		Page: page,
	}, nil
}

// Update applies patch to the record optimistically. See mutation.Handler.
func (s *Session) Update(ctx context.Context, id string, patch types.Patch) (*mutation.Ticket, error) {
	return s.handler.Submit(ctx, id, patch)
}

// Pending returns the number of unresolved mutations on a record.
func (s *Session) Pending(id string) int {
	return s.handler.Pending(id)
}

// Wait blocks until every mutation submitted so far has resolved.
func (s *Session) Wait(ctx context.Context) error {
	return s.handler.Wait(ctx)
}

// Create stores a new record on the backend and appends the stored version
// to the collection. Kind is forced to the session's kind and an empty
// status becomes the kind's initial status.
func (s *Session) Create(ctx context.Context, r types.Record) (types.Record, error) {
	r.Kind = s.kind
	if r.Status == "" {
		r.Status = s.kind.InitialStatus()
	}
	if !s.kind.ValidStatus(r.Status) {
		return types.Record{}, fmt.Errorf("%w: %q for %s", types.ErrInvalidStatus, r.Status, s.kind)
	}
	created, err := s.remote.Create(ctx, r)
	if err != nil {
		return types.Record{}, fmt.Errorf("creating %s record: %w", s.kind, err)
	}
	if err := s.store.Insert(created); err != nil {
		return types.Record{}, err
	}
	return created, nil
}

// Delete removes a record on the backend, then locally. A record with
// mutations in flight cannot be deleted.
func (s *Session) Delete(ctx context.Context, id string) error {
	if n := s.handler.Pending(id); n > 0 {
		return fmt.Errorf("record %s has %d pending mutation(s): %w", id, n, ErrBusy)
	}
	if err := s.remote.Delete(ctx, s.kind, id); err != nil {
		return fmt.Errorf("deleting %s record %s: %w", s.kind, id, err)
	}
	if _, err := s.store.Remove(id); err != nil && !errors.Is(err, types.ErrNotFound) {
		return err
	}
	return nil
}

// ErrBusy is returned by Delete while mutations on the record are pending.
var ErrBusy = errors.New("record is busy")
