package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasktree/internal/config"
	"tasktree/internal/exitcode"
	"tasktree/internal/service"
)

func init() {
	Register(&DoneCmd{})
	Register(&UndoneCmd{})
}

// DoneCmd implements the done command.
type DoneCmd struct {
	listName string
}

// SetListName sets the list name (for testing).
func (c *DoneCmd) SetListName(name string) { c.listName = name }

func (c *DoneCmd) Name() string      { return "done" }
func (c *DoneCmd) Aliases() []string { return nil }
func (c *DoneCmd) Synopsis() string  { return "Mark a task completed" }
func (c *DoneCmd) Usage() string     { return "tasktree done [--list <list-name>] <ref>" }
func (c *DoneCmd) NeedsAuth() bool   { return true }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) { listFlag(fs, &c.listName) }

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	return runSetCompleted(ctx, cfg, svc, c.listName, true, args, out, errOut)
}

// UndoneCmd implements the undone command.
type UndoneCmd struct {
	listName string
}

// SetListName sets the list name (for testing).
func (c *UndoneCmd) SetListName(name string) { c.listName = name }

func (c *UndoneCmd) Name() string      { return "undone" }
func (c *UndoneCmd) Aliases() []string { return []string{"reopen"} }
func (c *UndoneCmd) Synopsis() string  { return "Mark a task not completed" }
func (c *UndoneCmd) Usage() string     { return "tasktree undone [--list <list-name>] <ref>" }
func (c *UndoneCmd) NeedsAuth() bool   { return true }

func (c *UndoneCmd) RegisterFlags(fs *flag.FlagSet) { listFlag(fs, &c.listName) }

func (c *UndoneCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	return runSetCompleted(ctx, cfg, svc, c.listName, false, args, out, errOut)
}

func runSetCompleted(ctx context.Context, cfg *config.Config, svc service.Service, listName string, completed bool, args []string, out, errOut io.Writer) int {
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
	m, ok := s.ctrl.SetCompleted(id, completed)
	return s.run(ctx, s.ctrl, m, ok)
}

// refUsage reports a missing or surplus task reference.
func refUsage(args []string, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "error: task reference required")
	} else {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[1])
	}
	return exitcode.UserError
}
