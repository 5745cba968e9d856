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
	Register(&RmCmd{})
}

// RmCmd implements the rm command. The store removes the subtasks too.
type RmCmd struct {
	listName string
}

// SetListName sets the list name (for testing).
func (c *RmCmd) SetListName(name string) { c.listName = name }

func (c *RmCmd) Name() string      { return "rm" }
func (c *RmCmd) Aliases() []string { return []string{"delete"} }
func (c *RmCmd) Synopsis() string  { return "Delete a task and its subtasks" }
func (c *RmCmd) Usage() string     { return "tasktree rm [--list <list-name>] <ref>" }
func (c *RmCmd) NeedsAuth() bool   { return true }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) { listFlag(fs, &c.listName) }

func (c *RmCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		return refUsage(args, errOut)
	}

	s := newSession(cfg, svc, out, errOut)
	defer s.Close()

	if err := s.open(ctx, c.listName); err != nil {
		return s.fail(err)
	}
	id, code := s.node(args[0])
	if code != exitcode.Success {
		return code
	}
	m, ok := s.ctrl.Delete(id)
	return s.run(ctx, s.ctrl, m, ok)
}
