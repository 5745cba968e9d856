package mutation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"tasktree/internal/logging"
	"tasktree/internal/service"
	"tasktree/internal/tree"
)

var (
	// ErrSuperseded is returned by Fetch when a newer fetch of the same list
	// was issued before this one completed. The response is discarded.
	ErrSuperseded = errors.New("superseded by a newer fetch")

	// ErrSessionLost wraps every 401-class failure.
	ErrSessionLost = errors.New("session lost")
)

// SnapshotStore receives every snapshot the dispatcher hands out. Forget is
// called when the store reports that a list no longer exists.
type SnapshotStore interface {
	Save(ctx context.Context, listID string, items []service.Item, fetchedAt time.Time) error
	Forget(ctx context.Context, listID string) error
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger for store calls and discarded responses.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.log = logging.OrDiscard(l) }
}

// WithDeauthHook sets a function called whenever the store reports 401.
func WithDeauthHook(fn func()) Option {
	return func(d *Dispatcher) { d.onDeauth = fn }
}

// WithSnapshotStore sets a store that receives every applied snapshot.
func WithSnapshotStore(s SnapshotStore) Option {
	return func(d *Dispatcher) { d.snapshots = s }
}

// WithClock overrides the time source used for Snapshot.FetchedAt.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

type listState struct {
	issued uint64
	cancel context.CancelFunc
}

// Dispatcher runs mutations and fetches against a service.Service.
// It is safe for concurrent use.
type Dispatcher struct {
	svc       service.Service
	log       *slog.Logger
	onDeauth  func()
	snapshots SnapshotStore
	now       func() time.Time

	mu    sync.Mutex
	lists map[string]*listState
}

// New creates a Dispatcher for svc.
func New(svc service.Service, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		svc:   svc,
		log:   logging.Discard(),
		now:   time.Now,
		lists: make(map[string]*listState),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Lists fetches all lists of the session.
func (d *Dispatcher) Lists(ctx context.Context) ([]service.List, error) {
	d.log.Debug("store call", "op", "list-lists")
	lists, err := d.svc.ListLists(ctx)
	if err != nil {
		return nil, d.fail("fetch lists", err)
	}
	return lists, nil
}

// CreateList creates a list.
func (d *Dispatcher) CreateList(ctx context.Context, title string) (service.List, error) {
	d.log.Debug("store call", "op", "create-list", "title", title)
	l, err := d.svc.CreateList(ctx, title)
	if err != nil {
		return service.List{}, d.fail("create list", err)
	}
	return l, nil
}

// Fetch fetches and rebuilds the tree of listID.
//
// Issuing a fetch cancels the previous in-flight fetch of the same list. A
// response is returned only if no newer fetch of that list was issued in the
// meantime; otherwise Fetch returns ErrSuperseded.
func (d *Dispatcher) Fetch(ctx context.Context, listID string) (Snapshot, error) {
	d.mu.Lock()
	st, ok := d.lists[listID]
	if !ok {
		st = &listState{}
		d.lists[listID] = st
	}
	if st.cancel != nil {
		st.cancel()
	}
	st.issued++
	gen := st.issued
	fctx, cancel := context.WithCancel(ctx)
	st.cancel = cancel
	d.mu.Unlock()
	defer cancel()

	d.log.Debug("store call", "op", "list-items", "list", listID, "generation", gen)
	items, err := d.svc.ListItems(fctx, listID)

	d.mu.Lock()
	latest := st.issued == gen
	if latest {
		st.cancel = nil
	}
	d.mu.Unlock()

	if !latest {
		d.log.Debug("discarded stale response", "list", listID, "generation", gen)
		return Snapshot{}, ErrSuperseded
	}
	if err != nil {
		if errors.Is(err, service.ErrNotFound) && d.snapshots != nil {
			if ferr := d.snapshots.Forget(ctx, listID); ferr != nil {
				d.log.Warn("cache forget failed", "list", listID, "err", ferr)
			}
		}
		return Snapshot{}, d.fail("fetch list "+listID, err)
	}

	snap := Snapshot{
		ListID:     listID,
		Generation: gen,
		Tree:       tree.Build(listID, items),
		Items:      items,
		FetchedAt:  d.now(),
	}
	if n := len(snap.Tree.Dropped); n > 0 {
		d.log.Warn("dropped malformed items", "list", listID, "count", n, "ids", snap.Tree.Dropped)
	}
	if d.snapshots != nil {
		if err := d.snapshots.Save(ctx, listID, items, snap.FetchedAt); err != nil {
			d.log.Warn("cache save failed", "list", listID, "err", err)
		}
	}
	return snap, nil
}

// Dispatch performs the single store call of m and refetches every list it
// affects. Snapshots superseded by a concurrent fetch are left out of the
// result. On a store failure nothing is refetched.
func (d *Dispatcher) Dispatch(ctx context.Context, m Mutation) ([]Snapshot, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	d.log.Debug("store call", "op", m.Kind.String(), "list", m.ListID, "item", m.ItemID)
	if err := d.call(ctx, m); err != nil {
		return nil, d.fail(m.Kind.String(), err)
	}

	lists := m.Lists()
	snaps := make([]Snapshot, len(lists))
	fresh := make([]bool, len(lists))
	g, gctx := errgroup.WithContext(ctx)
	for i, listID := range lists {
		g.Go(func() error {
			s, err := d.Fetch(gctx, listID)
			if errors.Is(err, ErrSuperseded) {
				return nil
			}
			if err != nil {
				return err
			}
			snaps[i], fresh[i] = s, true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := snaps[:0]
	for i, s := range snaps {
		if fresh[i] {
			out = append(out, s)
		}
	}
	return out, nil
}

func (d *Dispatcher) call(ctx context.Context, m Mutation) error {
	switch m.Kind {
	case SetCompleted:
		return d.svc.UpdateItem(ctx, m.ListID, m.ItemID, service.Patch{Completed: service.Bool(m.Value)})
	case SetExpanded:
		return d.svc.UpdateItem(ctx, m.ListID, m.ItemID, service.Patch{Expanded: service.Bool(m.Value)})
	case SetContent:
		return d.svc.UpdateItem(ctx, m.ListID, m.ItemID, service.Patch{Content: service.String(m.Content)})
	case CreateTask:
		_, err := d.svc.CreateItem(ctx, m.ListID, m.Content, "")
		return err
	case CreateSubtask:
		_, err := d.svc.CreateItem(ctx, m.ListID, m.Content, m.ParentID)
		return err
	case Delete:
		return d.svc.DeleteItem(ctx, m.ListID, m.ItemID)
	case Move:
		p := m.Placement
		return d.svc.UpdateItem(ctx, m.ListID, m.ItemID, service.Patch{Placement: &p})
	}
	return fmt.Errorf("%w: unknown kind %d", ErrInvalid, int(m.Kind))
}

// fail logs err and fires the deauthenticate hook for 401-class failures.
func (d *Dispatcher) fail(op string, err error) error {
	if errors.Is(err, service.ErrUnauthorized) {
		d.log.Warn("session lost", "op", op)
		if d.onDeauth != nil {
			d.onDeauth()
		}
		return fmt.Errorf("%s: %w: %w", op, ErrSessionLost, err)
	}
	d.log.Error("store call failed", "op", op, "err", err)
	return fmt.Errorf("%s: %w", op, err)
}
