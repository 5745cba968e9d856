// Package view holds the per-list view controller shared by the terminal UI
// and the CLI.
//
// The controller owns the current tree of one list and a side table of
// transient per-node state. It never talks to a store: every intent either
// returns a mutation.Mutation for the dispatcher to run, or reports false when
// no store call must be made.
package view

import (
	"errors"
	"strings"

	"tasktree/internal/move"
	"tasktree/internal/mutation"
	"tasktree/internal/service"
	"tasktree/internal/tree"
)

// User-facing messages for intents refused by the controller.
const (
	MsgSubtaskDepth  = "subtasks can only be nested three levels deep"
	MsgNoSubtasks    = "task has no subtasks"
	MsgMoveTopLevel  = "only top-level tasks can move between lists"
	MsgUnknownList   = "unknown list"
	MsgNoOtherLists  = "no other list to move to"
	MsgSessionLost   = "session expired, log in again"
	MsgTaskNotFound  = "task not found"
	MsgEmptyContent  = "task content required"
	MsgEditingLocked = "finish editing before moving the task"
)

// DropTarget is where a drag was released in this controller's list.
type DropTarget struct {
	Zone move.Zone
	// NodeID is ignored for move.ZoneContainer.
	NodeID    string
	LowerHalf bool
}

// Controller is the view state of one list.
type Controller struct {
	listID     string
	lists      []service.List
	tree       *tree.Tree
	generation uint64
	applied    bool

	states map[string]*NodeState

	message string
	deauth  bool
}

// New creates a controller for listID with an empty tree.
func New(listID string, lists []service.List) *Controller {
	return &Controller{
		listID: listID,
		lists:  lists,
		tree:   tree.Empty(listID),
		states: make(map[string]*NodeState),
	}
}

// ListID returns the list shown by the controller.
func (c *Controller) ListID() string { return c.listID }

// Lists returns the known lists.
func (c *Controller) Lists() []service.List { return c.lists }

// SetLists replaces the known lists.
func (c *Controller) SetLists(lists []service.List) { c.lists = lists }

// Tree returns the current tree. It is never nil.
func (c *Controller) Tree() *tree.Tree { return c.tree }

// Generation returns the generation of the last applied snapshot.
func (c *Controller) Generation() uint64 { return c.generation }

// Message returns the last inline message, if any.
func (c *Controller) Message() string { return c.message }

// ClearMessage removes the inline message.
func (c *Controller) ClearMessage() { c.message = "" }

// Deauthenticated reports whether a session loss was reported.
func (c *Controller) Deauthenticated() bool { return c.deauth }

// State returns a copy of the transient state of a node.
func (c *Controller) State(id string) NodeState {
	if s, ok := c.states[id]; ok {
		return *s
	}
	return NodeState{}
}

func (c *Controller) state(id string) *NodeState {
	s, ok := c.states[id]
	if !ok {
		s = &NodeState{}
		c.states[id] = s
	}
	return s
}

func (c *Controller) gc(id string) {
	if s, ok := c.states[id]; ok && s.isZero() {
		delete(c.states, id)
	}
}

// SwitchList shows another list. The tree is emptied until the next Apply and
// all transient state is dropped.
func (c *Controller) SwitchList(listID string) {
	c.listID = listID
	c.tree = tree.Empty(listID)
	c.generation = 0
	c.applied = false
	c.states = make(map[string]*NodeState)
}

// Apply installs a fetched snapshot. Snapshots of another list and snapshots
// older than the one already applied are ignored. Transient state of vanished
// nodes is dropped and every drag-over flag is cleared.
func (c *Controller) Apply(s mutation.Snapshot) bool {
	if s.ListID != c.listID || s.Tree == nil {
		return false
	}
	if c.applied && s.Generation < c.generation {
		return false
	}
	c.tree = s.Tree
	c.generation = s.Generation
	c.applied = true

	kept := make(map[string]*NodeState, len(c.states))
	c.tree.Walk(func(n *tree.Node) {
		st, ok := c.states[n.ID]
		if !ok {
			return
		}
		st.clearDragOver()
		if !st.isZero() {
			kept[n.ID] = st
		}
	})
	c.states = kept
	return true
}

// ReportError records a store or session failure for display.
func (c *Controller) ReportError(err error) {
	switch {
	case err == nil, errors.Is(err, mutation.ErrSuperseded):
		return
	case errors.Is(err, mutation.ErrSessionLost), errors.Is(err, service.ErrUnauthorized):
		c.deauth = true
		c.message = MsgSessionLost
	default:
		c.message = err.Error()
	}
}

func (c *Controller) node(id string) (*tree.Node, bool) {
	n, ok := c.tree.Find(id)
	if !ok {
		c.message = MsgTaskNotFound
	}
	return n, ok
}

// ToggleComplete flips the completed flag of a node.
func (c *Controller) ToggleComplete(id string) (mutation.Mutation, bool) {
	n, ok := c.node(id)
	if !ok {
		return mutation.Mutation{}, false
	}
	return mutation.Mutation{Kind: mutation.SetCompleted, ListID: c.listID, ItemID: id, Value: !n.Completed}, true
}

// ToggleExpand flips the expanded flag of a node with children.
func (c *Controller) ToggleExpand(id string) (mutation.Mutation, bool) {
	n, ok := c.node(id)
	if !ok {
		return mutation.Mutation{}, false
	}
	if !n.HasChildren() {
		c.message = MsgNoSubtasks
		return mutation.Mutation{}, false
	}
	return mutation.Mutation{Kind: mutation.SetExpanded, ListID: c.listID, ItemID: id, Value: !n.Expanded}, true
}

// SetExpanded sets the expanded flag of a node, suppressing no-ops.
func (c *Controller) SetExpanded(id string, expanded bool) (mutation.Mutation, bool) {
	n, ok := c.node(id)
	if !ok || n.Expanded == expanded {
		return mutation.Mutation{}, false
	}
	return c.ToggleExpand(id)
}

// SetCompleted sets the completed flag of a node, suppressing no-ops.
func (c *Controller) SetCompleted(id string, completed bool) (mutation.Mutation, bool) {
	n, ok := c.node(id)
	if !ok || n.Completed == completed {
		return mutation.Mutation{}, false
	}
	return c.ToggleComplete(id)
}

// BeginEdit enters the editing state with the current content as buffer.
func (c *Controller) BeginEdit(id string) bool {
	n, ok := c.node(id)
	if !ok {
		return false
	}
	s := c.state(id)
	if s.Dragging {
		return false
	}
	s.Editing = true
	s.EditBuffer = n.Content
	return true
}

// SetEditBuffer replaces the edit buffer of a node being edited.
func (c *Controller) SetEditBuffer(id, text string) {
	if s, ok := c.states[id]; ok && s.Editing {
		s.EditBuffer = text
	}
}

// CommitEdit leaves the editing state. The trimmed buffer is saved only if it
// is non-empty and differs from the current content; otherwise the edit is
// treated as cancelled.
func (c *Controller) CommitEdit(id string) (mutation.Mutation, bool) {
	s, ok := c.states[id]
	if !ok || !s.Editing {
		return mutation.Mutation{}, false
	}
	buf := strings.TrimSpace(s.EditBuffer)
	c.CancelEdit(id)

	n, ok := c.tree.Find(id)
	if !ok || buf == "" || buf == n.Content {
		return mutation.Mutation{}, false
	}
	return mutation.Mutation{Kind: mutation.SetContent, ListID: c.listID, ItemID: id, Content: buf}, true
}

// CancelEdit leaves the editing state and discards the buffer.
func (c *Controller) CancelEdit(id string) {
	if s, ok := c.states[id]; ok {
		s.Editing = false
		s.EditBuffer = ""
		c.gc(id)
	}
}

// ToggleSubtaskForm opens or closes the create-subtask form of a node.
// Nodes that cannot take children never open the form.
func (c *Controller) ToggleSubtaskForm(id string) bool {
	n, ok := c.node(id)
	if !ok {
		return false
	}
	s := c.state(id)
	if s.SubtaskFormOpen {
		s.SubtaskFormOpen = false
		s.SubtaskBuffer = ""
		c.gc(id)
		return true
	}
	if !n.CanHaveChildren() {
		c.message = MsgSubtaskDepth
		c.gc(id)
		return false
	}
	s.SubtaskFormOpen = true
	s.SubtaskBuffer = ""
	return true
}

// SetSubtaskBuffer replaces the buffer of an open subtask form.
func (c *Controller) SetSubtaskBuffer(id, text string) {
	if s, ok := c.states[id]; ok && s.SubtaskFormOpen {
		s.SubtaskBuffer = text
	}
}

// SubmitSubtask creates a subtask from the form buffer. An empty buffer keeps
// the form open and makes no store call.
func (c *Controller) SubmitSubtask(id string) (mutation.Mutation, bool) {
	s, ok := c.states[id]
	if !ok || !s.SubtaskFormOpen {
		return mutation.Mutation{}, false
	}
	content := strings.TrimSpace(s.SubtaskBuffer)
	if content == "" {
		return mutation.Mutation{}, false
	}
	m, ok := c.CreateSubtask(id, content)
	if !ok {
		return mutation.Mutation{}, false
	}
	s.SubtaskFormOpen = false
	s.SubtaskBuffer = ""
	c.gc(id)
	return m, true
}

// CreateSubtask creates a subtask under parentID directly.
func (c *Controller) CreateSubtask(parentID, content string) (mutation.Mutation, bool) {
	n, ok := c.node(parentID)
	if !ok {
		return mutation.Mutation{}, false
	}
	if !n.CanHaveChildren() {
		c.message = MsgSubtaskDepth
		return mutation.Mutation{}, false
	}
	content = strings.TrimSpace(content)
	if content == "" {
		c.message = MsgEmptyContent
		return mutation.Mutation{}, false
	}
	return mutation.Mutation{Kind: mutation.CreateSubtask, ListID: c.listID, ParentID: parentID, Content: content}, true
}

// CreateTask creates a top-level task.
func (c *Controller) CreateTask(content string) (mutation.Mutation, bool) {
	content = strings.TrimSpace(content)
	if content == "" {
		c.message = MsgEmptyContent
		return mutation.Mutation{}, false
	}
	return mutation.Mutation{Kind: mutation.CreateTask, ListID: c.listID, Content: content}, true
}

// Delete deletes a node; the store removes its descendants.
func (c *Controller) Delete(id string) (mutation.Mutation, bool) {
	if _, ok := c.node(id); !ok {
		return mutation.Mutation{}, false
	}
	return mutation.Mutation{Kind: mutation.Delete, ListID: c.listID, ItemID: id}, true
}

// MoveTargets returns the lists a node may be moved to from the move menu:
// every other list, for top-level nodes only.
func (c *Controller) MoveTargets(id string) []service.List {
	n, ok := c.tree.Find(id)
	if !ok || n.Depth != 0 {
		return nil
	}
	var out []service.List
	for _, l := range c.lists {
		if l.ID != c.listID {
			out = append(out, l)
		}
	}
	return out
}

// ToggleMoveMenu opens or closes the move-to-list menu of a node.
func (c *Controller) ToggleMoveMenu(id string) bool {
	n, ok := c.node(id)
	if !ok {
		return false
	}
	s := c.state(id)
	if s.MoveMenuOpen {
		s.MoveMenuOpen = false
		c.gc(id)
		return true
	}
	if len(c.MoveTargets(id)) == 0 {
		c.message = MsgNoOtherLists
		if n.Depth != 0 {
			c.message = MsgMoveTopLevel
		}
		c.gc(id)
		return false
	}
	s.MoveMenuOpen = true
	return true
}

// MoveToList moves a top-level node to the top level of another list.
func (c *Controller) MoveToList(id, listID string) (mutation.Mutation, bool) {
	n, ok := c.node(id)
	if !ok {
		return mutation.Mutation{}, false
	}
	if s, ok := c.states[id]; ok {
		s.MoveMenuOpen = false
		c.gc(id)
	}
	l, err := service.FindList(c.lists, listID)
	if err != nil {
		c.message = MsgUnknownList
		return mutation.Mutation{}, false
	}
	dec, err := move.MoveToList(move.RefOf(n), l.ID)
	return c.decide(dec, err)
}

// DragStart begins dragging a node and returns the drag payload. Nodes being
// edited cannot be dragged.
func (c *Controller) DragStart(id string) (move.NodeRef, bool) {
	n, ok := c.node(id)
	if !ok {
		return move.NodeRef{}, false
	}
	s := c.state(id)
	if s.Editing {
		c.message = MsgEditingLocked
		return move.NodeRef{}, false
	}
	s.Dragging = true
	s.clearDragOver()
	return move.RefOf(n), true
}

// DragEnter marks a node as hovered by the drag described by payload. The
// node being dragged never shows itself as a target, and nodes that cannot
// take children never show the child flag.
func (c *Controller) DragEnter(payload move.NodeRef, id string, zone move.Zone) {
	n, ok := c.tree.Find(id)
	if !ok || payload.ID == id {
		return
	}
	s := c.state(id)
	defer c.gc(id)
	if s.Dragging {
		return
	}
	switch zone {
	case move.ZoneNode:
		if payload.ListID != c.listID && payload.Depth != 0 {
			s.clearDragOver()
			return
		}
		s.DragOverAsSibling = true
		s.DragOverAsChild = false
	case move.ZoneChildren:
		if payload.ListID != c.listID || !n.CanHaveChildren() {
			s.clearDragOver()
			return
		}
		s.DragOverAsChild = true
		s.DragOverAsSibling = false
	}
}

// DragLeave clears the flag of the zone the drag left.
func (c *Controller) DragLeave(id string, zone move.Zone) {
	s, ok := c.states[id]
	if !ok {
		return
	}
	switch zone {
	case move.ZoneNode:
		s.DragOverAsSibling = false
	case move.ZoneChildren:
		s.DragOverAsChild = false
	}
	c.gc(id)
}

// DragEnd clears every drag flag of the list.
func (c *Controller) DragEnd() {
	for id, s := range c.states {
		s.Dragging = false
		s.clearDragOver()
		c.gc(id)
	}
}

// Drop resolves a drag released over target. Rejections set the inline
// message; no-op placements return false.
func (c *Controller) Drop(payload move.NodeRef, target DropTarget) (mutation.Mutation, bool) {
	g := move.Gesture{Source: payload, Zone: target.Zone, LowerHalf: target.LowerHalf}

	if target.Zone == move.ZoneContainer {
		g.Target = move.NodeRef{ListID: c.listID}
	} else {
		n, ok := c.tree.Find(target.NodeID)
		if !ok {
			c.DragEnd()
			c.message = MsgTaskNotFound
			return mutation.Mutation{}, false
		}
		g.Target = move.RefOf(n)
		if payload.ListID == c.listID {
			g.TargetInSourceSubtree = c.tree.IsDescendant(payload.ID, n.ID)
		}
	}
	c.DragEnd()

	dec, err := move.Resolve(g)
	return c.decide(dec, err)
}

func (c *Controller) decide(dec move.Decision, err error) (mutation.Mutation, bool) {
	if err != nil {
		var r *move.Rejection
		if errors.As(err, &r) && !r.Silent() {
			c.message = r.Message
		}
		return mutation.Mutation{}, false
	}
	if !dec.Changed {
		return mutation.Mutation{}, false
	}
	return mutation.Mutation{
		Kind:      mutation.Move,
		ListID:    dec.FromListID,
		ItemID:    dec.ItemID,
		Placement: dec.Placement,
	}, true
}
