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
	Register(&HelpCmd{})
}

// HelpCmd implements the help command. The command list is built from the
// default registry.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "tasktree help" }
func (c *HelpCmd) NeedsAuth() bool   { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	fmt.Fprintln(out, "Usage:")
	fmt.Fprintf(out, "  %-58s %s\n", "tasktree", "Print the tree of the first list")
	for _, cmd := range DefaultRegistry.All() {
		fmt.Fprintf(out, "  %-58s %s\n", cmd.Usage(), cmd.Synopsis())
		if aliases := cmd.Aliases(); len(aliases) > 0 {
			fmt.Fprintf(out, "  %-58s (alias: %s)\n", "", strings.Join(aliases, ", "))
		}
	}
	fmt.Fprint(out, helpFooter)
	return exitcode.Success
}

const helpFooter = `
Task references:
  2.1              Second task's first subtask, as numbered by list
  #<id>            A task by its store id

Common flags:
  --config <dir>     Override config directory
  --backend <name>   Store backend: rest or google
  --url <url>        REST store address
  --quiet            Suppress informational output
  --debug            Print debug logs to stderr
`
