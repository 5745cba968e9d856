package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"tasktree/internal/config"
	"tasktree/internal/exitcode"
	"tasktree/internal/output"
	"tasktree/internal/service"
	"tasktree/internal/tree"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `tasktree` (no args) and `tasktree list <list-name>`.
type ListCmd struct {
	cached bool
	all    bool
}

// SetCached makes the command read the local cache only (for testing).
func (c *ListCmd) SetCached(cached bool) { c.cached = cached }

// SetAll makes the command print collapsed subtrees too (for testing).
func (c *ListCmd) SetAll(all bool) { c.all = all }

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return nil }
func (c *ListCmd) Synopsis() string  { return "Print the task tree of a list" }
func (c *ListCmd) Usage() string     { return "tasktree list [--cached] [--all] [<list-name>]" }
func (c *ListCmd) NeedsAuth() bool   { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.cached, "cached", false, "")
	fs.BoolVar(&c.all, "all", false, "")
	fs.BoolVar(&c.all, "a", false, "")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	name := strings.TrimSpace(strings.Join(args, " "))

	s := newSession(cfg, svc, out, errOut)
	defer s.Close()

	if c.cached {
		t, at, err := c.fromCache(ctx, s, name)
		if err != nil {
			return s.fail(err)
		}
		c.print(cfg, s.list.Title, t, out)
		if !cfg.Quiet {
			fmt.Fprintf(errOut, "warning: cached tree from %s\n", at.Local().Format(time.DateTime))
		}
		return exitcode.Success
	}

	err := s.open(ctx, name)
	if err == nil {
		c.print(cfg, s.list.Title, s.ctrl.Tree(), out)
		if n := len(s.ctrl.Tree().Dropped); n > 0 {
			fmt.Fprintf(errOut, "warning: %d malformed tasks skipped\n", n)
		}
		return exitcode.Success
	}

	// The store is unreachable: show the last-known-good tree, never on a
	// lost session or a user error.
	if exitcode.For(err) != exitcode.BackendError {
		return s.fail(err)
	}
	t, at, cerr := c.fromCache(ctx, s, name)
	if cerr != nil {
		return s.fail(err)
	}
	code := s.fail(err)
	c.print(cfg, s.list.Title, t, out)
	fmt.Fprintf(errOut, "warning: showing cached tree from %s\n", at.Local().Format(time.DateTime))
	return code
}

// fromCache selects the list from the cached lists when the store did not
// provide them, and returns its cached tree.
func (c *ListCmd) fromCache(ctx context.Context, s *session, name string) (*tree.Tree, time.Time, error) {
	if s.cache == nil {
		return nil, time.Time{}, errors.New("cache unavailable")
	}
	if s.lists == nil {
		lists, err := s.cache.LoadLists(ctx)
		if err != nil {
			return nil, time.Time{}, err
		}
		s.lists = lists
	}
	if err := s.selectList(name); err != nil {
		return nil, time.Time{}, err
	}
	items, at, err := s.cache.Load(ctx, s.list.ID)
	if err != nil {
		return nil, time.Time{}, err
	}
	return tree.Build(s.list.ID, items), at, nil
}

func (c *ListCmd) print(cfg *config.Config, title string, t *tree.Tree, out io.Writer) {
	output.FormatListHeader(out, title)
	if len(t.Roots) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no tasks found")
		}
		return
	}
	output.FormatTree(out, t, c.all)
}
