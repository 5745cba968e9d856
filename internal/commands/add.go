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
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	listName string
	under    string
}

// SetListName sets the list name (for testing).
func (c *AddCmd) SetListName(name string) { c.listName = name }

// SetUnder sets the parent task reference (for testing).
func (c *AddCmd) SetUnder(ref string) { c.under = ref }

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a task or, with --under, a subtask" }
func (c *AddCmd) Usage() string {
	return "tasktree add [--list <list-name>] [--under <ref>] <content...>"
}
func (c *AddCmd) NeedsAuth() bool { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	listFlag(fs, &c.listName)
	fs.StringVar(&c.under, "under", "", "")
	fs.StringVar(&c.under, "u", "", "")
}

func (c *AddCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	content := strings.TrimSpace(strings.Join(args, " "))
	if content == "" {
		fmt.Fprintln(errOut, "error: content required")
		return exitcode.UserError
	}

	s := newSession(cfg, svc, out, errOut)
	defer s.Close()

	if c.under == "" {
		// A top-level task needs no tree
		if err := s.loadLists(ctx); err != nil {
			return s.fail(err)
		}
		if err := s.selectList(c.listName); err != nil {
			return s.fail(err)
		}
		m, ok := s.ctrl.CreateTask(content)
		return s.run(ctx, s.ctrl, m, ok)
	}

	if err := s.open(ctx, c.listName); err != nil {
		return s.fail(err)
	}
	parent, code := s.node(c.under)
	if code != exitcode.Success {
		return code
	}
	m, ok := s.ctrl.CreateSubtask(parent, content)
	return s.run(ctx, s.ctrl, m, ok)
}
