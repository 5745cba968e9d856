// Package move turns drag gestures into validated placements.
//
// Resolve is pure: it never touches a tree or a store. Callers describe the
// dragged node and the drop target as values and receive either a Decision or
// a Rejection.
package move

import (
	"errors"

	"tasktree/internal/service"
	"tasktree/internal/tree"
)

// Zone identifies what a drag was released over.
type Zone int

const (
	// ZoneNode is the card of a node. LowerHalf picks child vs sibling.
	ZoneNode Zone = iota
	// ZoneContainer is the empty background of a list.
	ZoneContainer
	// ZoneChildren is a node's dedicated "make child" drop region.
	ZoneChildren
)

func (z Zone) String() string {
	switch z {
	case ZoneNode:
		return "node"
	case ZoneContainer:
		return "container"
	case ZoneChildren:
		return "children"
	default:
		return "unknown"
	}
}

// NodeRef describes a node as far as placement is concerned.
type NodeRef struct {
	ID       string
	ListID   string
	ParentID string
	Depth    int
	ReadOnly bool
}

// RefOf builds the NodeRef of a tree node.
func RefOf(n *tree.Node) NodeRef {
	return NodeRef{
		ID:       n.ID,
		ListID:   n.ListID,
		ParentID: n.ParentID,
		Depth:    n.Depth,
		ReadOnly: n.ReadOnly,
	}
}

// Gesture is a completed drag: what was dragged and where it was dropped.
type Gesture struct {
	Source NodeRef
	Zone   Zone
	// Target is the node dropped on. For ZoneContainer only ListID is used.
	Target    NodeRef
	LowerHalf bool
	// TargetInSourceSubtree is set when the target lies below the source.
	TargetInSourceSubtree bool
}

// Decision is the outcome of an accepted gesture.
type Decision struct {
	ItemID     string
	FromListID string
	Placement  service.Placement
	// Changed is false when the placement equals the current one; no store
	// call must be issued then.
	Changed bool
}

// CrossList reports whether the decision moves the item to another list.
func (d Decision) CrossList() bool {
	return d.FromListID != d.Placement.ListID
}

// Rejection is a move refused before any store call.
type Rejection struct {
	Reason  string
	Message string // user-facing; empty for silent no-ops
}

func (r *Rejection) Error() string {
	if r.Message != "" {
		return r.Message
	}
	return r.Reason
}

// Is matches rejections by reason so wrapped copies compare equal.
func (r *Rejection) Is(target error) bool {
	var other *Rejection
	if !errors.As(target, &other) {
		return false
	}
	return other.Reason == r.Reason
}

// Silent reports whether the rejection should not be shown to the user.
func (r *Rejection) Silent() bool {
	return r.Message == ""
}

var (
	// ErrSelfDrop is returned when a node is dropped on itself.
	ErrSelfDrop = &Rejection{Reason: "self-drop"}

	// ErrCrossListSubtask is returned when a non-top-level node is dropped
	// into another list.
	ErrCrossListSubtask = &Rejection{
		Reason:  "cross-list-subtask",
		Message: "only top-level tasks can move between lists",
	}

	// ErrChildrenZoneCrossList is returned when the children zone of a node
	// in another list receives a drop.
	ErrChildrenZoneCrossList = &Rejection{
		Reason:  "children-zone-cross-list",
		Message: "drop on the task or the list background to move between lists",
	}

	// ErrIntoOwnSubtree is returned when a node is dropped on one of its
	// own descendants.
	ErrIntoOwnSubtree = &Rejection{
		Reason:  "into-own-subtree",
		Message: "cannot move a task under its own subtask",
	}

	// ErrTargetFull is returned when the children zone of a node that cannot
	// take children receives a drop.
	ErrTargetFull = &Rejection{
		Reason:  "target-full",
		Message: "tasks can only be nested three levels deep",
	}
)

// Resolve validates a gesture and computes the resulting placement.
func Resolve(g Gesture) (Decision, error) {
	src := g.Source

	// Step 1: self-drop guard
	if g.Zone != ZoneContainer && src.ID == g.Target.ID {
		return Decision{}, ErrSelfDrop
	}

	crossList := src.ListID != g.Target.ListID

	// Step 2: only top-level tasks change lists
	if crossList && src.Depth != 0 {
		return Decision{}, ErrCrossListSubtask
	}

	var placement service.Placement
	switch g.Zone {
	case ZoneContainer:
		// Step 4: background of a list makes the node top-level
		placement = service.Placement{ParentID: "", ListID: g.Target.ListID}

	case ZoneChildren:
		// Step 5: explicit child placement, same list only
		if crossList {
			return Decision{}, ErrChildrenZoneCrossList
		}
		if !canAdopt(g.Target) {
			return Decision{}, ErrTargetFull
		}
		if g.TargetInSourceSubtree {
			return Decision{}, ErrIntoOwnSubtree
		}
		placement = service.Placement{ParentID: g.Target.ID, ListID: g.Target.ListID}

	default:
		// Step 3: lower half makes a child unless the target is at the cap
		if g.LowerHalf && canAdopt(g.Target) {
			placement = service.Placement{ParentID: g.Target.ID, ListID: g.Target.ListID}
		} else {
			placement = service.Placement{ParentID: g.Target.ParentID, ListID: g.Target.ListID}
		}
		if g.TargetInSourceSubtree || placement.ParentID == src.ID {
			return Decision{}, ErrIntoOwnSubtree
		}
	}

	// Step 6: no-op suppression
	current := service.Placement{ParentID: src.ParentID, ListID: src.ListID}
	return Decision{
		ItemID:     src.ID,
		FromListID: src.ListID,
		Placement:  placement,
		Changed:    placement != current,
	}, nil
}

// MoveToList is the move-menu shortcut: it places a node at the top level of
// another list, exactly like a drop on that list's background.
func MoveToList(src NodeRef, listID string) (Decision, error) {
	return Resolve(Gesture{
		Source: src,
		Zone:   ZoneContainer,
		Target: NodeRef{ListID: listID},
	})
}

func canAdopt(n NodeRef) bool {
	return !n.ReadOnly && n.Depth < tree.MaxDepth
}
