package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"tasktree/internal/config"
	"tasktree/internal/exitcode"
	"tasktree/internal/service"
)

func init() {
	Register(&CreateListCmd{})
}

// CreateListCmd implements the createlist command.
type CreateListCmd struct{}

func (c *CreateListCmd) Name() string      { return "createlist" }
func (c *CreateListCmd) Aliases() []string { return []string{"addlist"} }
func (c *CreateListCmd) Synopsis() string  { return "Create a new list" }
func (c *CreateListCmd) Usage() string     { return "tasktree createlist [common flags] <title...>" }
func (c *CreateListCmd) NeedsAuth() bool   { return true }

func (c *CreateListCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *CreateListCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		fmt.Fprintln(errOut, "error: list name required")
		return exitcode.UserError
	}

	s := newSession(cfg, svc, out, errOut)
	defer s.Close()

	if err := s.loadLists(ctx); err != nil {
		return s.fail(err)
	}
	_, err := service.FindList(s.lists, title)
	switch {
	case err == nil, errors.Is(err, service.ErrAmbiguous):
		fmt.Fprintf(errOut, "error: list already exists: %s\n", title)
		return exitcode.UserError
	case !errors.Is(err, service.ErrNotFound):
		return s.fail(err)
	}

	l, err := s.disp.CreateList(ctx, title)
	if err != nil {
		return s.fail(err)
	}
	if !cfg.Quiet {
		fmt.Fprintf(out, "ok\t%s\n", l.ID)
	}
	return exitcode.Success
}
