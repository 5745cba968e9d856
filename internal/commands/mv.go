package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"tasktree/internal/config"
	"tasktree/internal/exitcode"
	"tasktree/internal/move"
	"tasktree/internal/service"
	"tasktree/internal/view"
)

func init() {
	Register(&MoveCmd{})
}

// MoveCmd implements the mv command. Each placement flag stands for one drop
// zone of a drag:
//
//	--into REF      lower half of REF: become its first-level child
//	--beside REF    upper half of REF: become its sibling
//	--children REF  the children area of REF
//	--top           the list background: become a top-level task
//
// --to selects the list holding the drop target.
type MoveCmd struct {
	listName string
	toList   string
	into     string
	beside   string
	children string
	top      bool
}

func (c *MoveCmd) Name() string      { return "mv" }
func (c *MoveCmd) Aliases() []string { return []string{"move"} }
func (c *MoveCmd) Synopsis() string  { return "Move a task within or between lists" }
func (c *MoveCmd) Usage() string {
	return "tasktree mv [--list <list-name>] <ref> (--into <ref> | --beside <ref> | --children <ref> | --top) [--to <list-name>]"
}
func (c *MoveCmd) NeedsAuth() bool { return true }

func (c *MoveCmd) RegisterFlags(fs *flag.FlagSet) {
	listFlag(fs, &c.listName)
	fs.StringVar(&c.toList, "to", "", "")
	fs.StringVar(&c.into, "into", "", "")
	fs.StringVar(&c.beside, "beside", "", "")
	fs.StringVar(&c.children, "children", "", "")
	fs.BoolVar(&c.top, "top", false, "")
}

// SetTarget sets the placement flags (for testing).
func (c *MoveCmd) SetTarget(toList, into, beside, children string, top bool) {
	c.toList, c.into, c.beside, c.children, c.top = toList, into, beside, children, top
}

func (c *MoveCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		return refUsage(args, errOut)
	}
	zone, targetRef, lower, code := c.zone(errOut)
	if code != exitcode.Success {
		return code
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

	dest := s.ctrl
	if c.toList != "" {
		var err error
		if dest, err = s.controllerFor(ctx, c.toList); err != nil {
			return s.fail(err)
		}
	}

	target := view.DropTarget{Zone: zone, LowerHalf: lower}
	if zone != move.ZoneContainer {
		ref, err := ParseTaskRef(targetRef)
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		n, err := ref.Resolve(dest.Tree())
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		target.NodeID = n.ID
	}

	payload, ok := s.ctrl.DragStart(id)
	if !ok {
		return s.refused(s.ctrl)
	}
	m, ok := dest.Drop(payload, target)
	s.ctrl.DragEnd()
	return s.run(ctx, dest, m, ok)
}

// zone checks that exactly one placement flag is set.
func (c *MoveCmd) zone(errOut io.Writer) (move.Zone, string, bool, int) {
	var zone move.Zone
	var ref string
	var lower bool
	set := 0
	if c.into != "" {
		zone, ref, lower = move.ZoneNode, c.into, true
		set++
	}
	if c.beside != "" {
		zone, ref = move.ZoneNode, c.beside
		set++
	}
	if c.children != "" {
		zone, ref = move.ZoneChildren, c.children
		set++
	}
	if c.top {
		zone = move.ZoneContainer
		set++
	}
	if set != 1 {
		fmt.Fprintln(errOut, "error: exactly one of --into, --beside, --children or --top required")
		return 0, "", false, exitcode.UserError
	}
	return zone, ref, lower, exitcode.Success
}
