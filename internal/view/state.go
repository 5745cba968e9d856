package view

// NodeState is the transient UI state of one node. It lives in a side table
// keyed by node id and never on the domain node itself.
type NodeState struct {
	Editing    bool
	EditBuffer string

	Dragging          bool
	DragOverAsSibling bool
	DragOverAsChild   bool

	SubtaskFormOpen bool
	SubtaskBuffer   string

	MoveMenuOpen bool
}

func (s NodeState) isZero() bool {
	return s == NodeState{}
}

func (s *NodeState) clearDragOver() {
	s.DragOverAsSibling = false
	s.DragOverAsChild = false
}
