package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasktree/internal/config"
	"tasktree/internal/exitcode"
	"tasktree/internal/service"
	"tasktree/internal/tui"
)

func init() {
	Register(&UICmd{})
}

// UICmd implements the ui command: the interactive tree view.
type UICmd struct {
	listName string
}

// SetListName selects the list to open (for testing).
func (c *UICmd) SetListName(name string) { c.listName = name }

func (c *UICmd) Name() string      { return "ui" }
func (c *UICmd) Aliases() []string { return []string{"tui"} }
func (c *UICmd) Synopsis() string  { return "Open the interactive tree view" }
func (c *UICmd) Usage() string     { return "tasktree ui [--list <list-name>]" }
func (c *UICmd) NeedsAuth() bool   { return true }

func (c *UICmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.listName, "list", "", "")
	fs.StringVar(&c.listName, "l", "", "")
}

func (c *UICmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	s := newSession(cfg, svc, out, errOut)
	defer s.Close()

	if err := s.loadLists(ctx); err != nil {
		return s.fail(err)
	}
	if err := s.selectList(c.listName); err != nil {
		return s.fail(err)
	}

	code, err := tui.Run(ctx, tui.New(ctx, s.disp, s.ctrl))
	if err != nil {
		return s.fail(err)
	}
	if code == exitcode.AuthError {
		fmt.Fprintln(errOut, "error: auth error: session expired (run: tasktree login)")
	}
	return code
}
