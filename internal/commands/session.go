package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"tasktree/internal/cache"
	"tasktree/internal/config"
	"tasktree/internal/exitcode"
	"tasktree/internal/logging"
	"tasktree/internal/mutation"
	"tasktree/internal/service"
	"tasktree/internal/view"
)

// session is the state a tree command works on: the lists of the store,
// the selected list and a view controller holding its fetched tree.
type session struct {
	cfg   *config.Config
	log   *slog.Logger
	disp  *mutation.Dispatcher
	cache *cache.Cache
	lists []service.List
	list  service.List
	ctrl  *view.Controller

	out, errOut io.Writer
}

// newSession builds the dispatcher for svc. The cache is optional; a cache
// that cannot be opened only costs the offline fallback.
func newSession(cfg *config.Config, svc service.Service, out, errOut io.Writer) *session {
	s := &session{
		cfg:    cfg,
		log:    logging.New(errOut, cfg.Debug),
		out:    out,
		errOut: errOut,
	}
	opts := []mutation.Option{mutation.WithLogger(s.log)}
	if c, err := openCache(cfg); err == nil {
		s.cache = c
		opts = append(opts, mutation.WithSnapshotStore(c))
	} else {
		s.log.Debug("cache unavailable", "err", err)
	}
	s.disp = mutation.New(svc, opts...)
	return s
}

func openCache(cfg *config.Config) (*cache.Cache, error) {
	if err := cfg.EnsureDir(); err != nil {
		return nil, err
	}
	return cache.Open(cfg.CachePath(), cfg.Backend)
}

func (s *session) Close() {
	if s.cache != nil {
		s.cache.Close()
	}
}

// loadLists fetches the lists and remembers them for offline use.
func (s *session) loadLists(ctx context.Context) error {
	lists, err := s.disp.Lists(ctx)
	if err != nil {
		return err
	}
	s.lists = lists
	if s.cache != nil {
		if err := s.cache.SaveLists(ctx, lists, time.Now()); err != nil {
			s.log.Warn("cache save failed", "err", err)
		}
	}
	return nil
}

// selectList picks the named list, or the first list when name is empty.
func (s *session) selectList(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		if len(s.lists) == 0 {
			return fmt.Errorf("%w: no lists (run: tasktree createlist <title>)", service.ErrNotFound)
		}
		s.list = s.lists[0]
	} else {
		l, err := service.FindList(s.lists, name)
		if err != nil {
			return err
		}
		s.list = l
	}
	s.ctrl = view.New(s.list.ID, s.lists)
	return nil
}

// fetch fetches the selected list into the controller.
func (s *session) fetch(ctx context.Context) error {
	snap, err := s.disp.Fetch(ctx, s.list.ID)
	if err != nil {
		return err
	}
	s.ctrl.Apply(snap)
	return nil
}

// open is loadLists, selectList and fetch in one step.
func (s *session) open(ctx context.Context, listName string) error {
	if err := s.loadLists(ctx); err != nil {
		return err
	}
	if err := s.selectList(listName); err != nil {
		return err
	}
	return s.fetch(ctx)
}

// controllerFor returns a controller holding the fetched tree of another list.
func (s *session) controllerFor(ctx context.Context, name string) (*view.Controller, error) {
	l, err := service.FindList(s.lists, name)
	if err != nil {
		return nil, err
	}
	if l.ID == s.list.ID {
		return s.ctrl, nil
	}
	snap, err := s.disp.Fetch(ctx, l.ID)
	if err != nil {
		return nil, err
	}
	c := view.New(l.ID, s.lists)
	c.Apply(snap)
	return c, nil
}

// node resolves a task reference in the selected list.
func (s *session) node(arg string) (string, int) {
	ref, err := ParseTaskRef(arg)
	if err != nil {
		fmt.Fprintf(s.errOut, "error: %v\n", err)
		return "", exitcode.UserError
	}
	n, err := ref.Resolve(s.ctrl.Tree())
	if err != nil {
		fmt.Fprintf(s.errOut, "error: %v\n", err)
		return "", exitcode.UserError
	}
	return n.ID, exitcode.Success
}

// run dispatches m, or reports why the controller refused to build one.
func (s *session) run(ctx context.Context, ctrl *view.Controller, m mutation.Mutation, ok bool) int {
	if !ok {
		return s.refused(ctrl)
	}
	if _, err := s.disp.Dispatch(ctx, m); err != nil {
		return s.fail(err)
	}
	if !s.cfg.Quiet {
		fmt.Fprintln(s.out, "ok")
	}
	return exitcode.Success
}

// refused reports the controller's message, or a no-op when it has none.
func (s *session) refused(ctrl *view.Controller) int {
	if msg := ctrl.Message(); msg != "" {
		fmt.Fprintf(s.errOut, "error: %s\n", msg)
		return exitcode.UserError
	}
	if !s.cfg.Quiet {
		fmt.Fprintln(s.out, "no change")
	}
	return exitcode.Success
}

// fail prints err and returns its exit code.
func (s *session) fail(err error) int {
	return printError(s.errOut, err)
}

func printError(errOut io.Writer, err error) int {
	code := exitcode.For(err)
	switch {
	case code == exitcode.AuthError:
		fmt.Fprintf(errOut, "error: auth error: %v (run: tasktree login)\n", err)
	case code == exitcode.BackendError && !errors.Is(err, context.Canceled):
		fmt.Fprintf(errOut, "error: backend error: %v\n", err)
	default:
		fmt.Fprintf(errOut, "error: %v\n", err)
	}
	return code
}
