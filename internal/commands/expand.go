package commands

import (
	"context"
	"flag"
	"io"

	"tasktree/internal/config"
	"tasktree/internal/exitcode"
	"tasktree/internal/service"
)

func init() {
	Register(&ExpandCmd{})
	Register(&CollapseCmd{})
}

// ExpandCmd implements the expand command.
type ExpandCmd struct {
	listName string
}

func (c *ExpandCmd) Name() string      { return "expand" }
func (c *ExpandCmd) Aliases() []string { return nil }
func (c *ExpandCmd) Synopsis() string  { return "Show the subtasks of a task" }
func (c *ExpandCmd) Usage() string     { return "tasktree expand [--list <list-name>] <ref>" }
func (c *ExpandCmd) NeedsAuth() bool   { return true }

func (c *ExpandCmd) RegisterFlags(fs *flag.FlagSet) { listFlag(fs, &c.listName) }

func (c *ExpandCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	return runSetExpanded(ctx, cfg, svc, c.listName, true, args, out, errOut)
}

// CollapseCmd implements the collapse command.
type CollapseCmd struct {
	listName string
}

func (c *CollapseCmd) Name() string      { return "collapse" }
func (c *CollapseCmd) Aliases() []string { return nil }
func (c *CollapseCmd) Synopsis() string  { return "Hide the subtasks of a task" }
func (c *CollapseCmd) Usage() string     { return "tasktree collapse [--list <list-name>] <ref>" }
func (c *CollapseCmd) NeedsAuth() bool   { return true }

func (c *CollapseCmd) RegisterFlags(fs *flag.FlagSet) { listFlag(fs, &c.listName) }

func (c *CollapseCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	return runSetExpanded(ctx, cfg, svc, c.listName, false, args, out, errOut)
}

func runSetExpanded(ctx context.Context, cfg *config.Config, svc service.Service, listName string, expanded bool, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		return refUsage(args, errOut)
	}

	s := newSession(cfg, svc, out, errOut)
	defer s.Close()

	if err := s.open(ctx, listName); err != nil {
		return s.fail(err)
	}
	id, code := s.node(args[0])
	if code != exitcode.Success {
		return code
	}
	if n, _ := s.ctrl.Tree().Find(id); !n.HasChildren() {
		m, ok := s.ctrl.ToggleExpand(id)
		return s.run(ctx, s.ctrl, m, ok)
	}
	m, ok := s.ctrl.SetExpanded(id, expanded)
	return s.run(ctx, s.ctrl, m, ok)
}
