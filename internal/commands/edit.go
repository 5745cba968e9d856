package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"tasktree/internal/config"
	"tasktree/internal/exitcode"
	"tasktree/internal/service"
)

func init() {
	Register(&EditCmd{})
}

// EditCmd implements the edit command. Empty or unchanged content cancels
// the edit without a store call.
type EditCmd struct {
	listName string
}

// SetListName sets the list name (for testing).
func (c *EditCmd) SetListName(name string) { c.listName = name }

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return nil }
func (c *EditCmd) Synopsis() string  { return "Change the content of a task" }
func (c *EditCmd) Usage() string     { return "tasktree edit [--list <list-name>] <ref> <content...>" }
func (c *EditCmd) NeedsAuth() bool   { return true }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) { listFlag(fs, &c.listName) }

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "error: task reference required")
		return exitcode.UserError
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
	if !s.ctrl.BeginEdit(id) {
		return s.refused(s.ctrl)
	}
	s.ctrl.SetEditBuffer(id, strings.Join(args[1:], " "))
	m, ok := s.ctrl.CommitEdit(id)
	return s.run(ctx, s.ctrl, m, ok)
}
