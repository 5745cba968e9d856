// Package tree holds the in-memory task tree of a single list.
//
// A Tree is rebuilt from the store after every mutation and never patched in
// place. Nodes carry no back-pointer to their parent so that a tree stays a
// plain value graph; parent lookups go through the tree index.
package tree

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxDepth is the deepest level a node may occupy (root = 0).
const MaxDepth = 2

// Node represents a task in a list hierarchy.
type Node struct {
	ID        string
	Content   string
	Completed bool
	Expanded  bool
	ParentID  string // "" for top-level tasks
	ListID    string
	Depth     int
	// ReadOnly is set on nodes the builder clamped to MaxDepth. They never
	// gain children.
	ReadOnly bool
	Children []*Node
}

// HasChildren reports whether the node has any children.
func (n *Node) HasChildren() bool {
	return len(n.Children) > 0
}

// CanHaveChildren reports whether a child may be placed under the node.
func (n *Node) CanHaveChildren() bool {
	return !n.ReadOnly && n.Depth < MaxDepth
}

// Progress returns the number of completed immediate children and the total
// number of immediate children. Grandchildren are not counted.
func (n *Node) Progress() (done, total int) {
	for _, c := range n.Children {
		if c.Completed {
			done++
		}
	}
	return done, len(n.Children)
}

// Tree is the task hierarchy of one list.
type Tree struct {
	ListID string
	Roots  []*Node

	// Dropped lists the ids the builder discarded: duplicates, orphans,
	// cycle members and items of a foreign list.
	Dropped []string

	index map[string]*Node
}

// Empty returns a tree with no nodes for listID.
func Empty(listID string) *Tree {
	return &Tree{ListID: listID, index: make(map[string]*Node)}
}

// Find looks up a node by id.
func (t *Tree) Find(id string) (*Node, bool) {
	if t == nil {
		return nil, false
	}
	n, ok := t.index[id]
	return n, ok
}

// Parent returns the parent of the node with the given id, or nil for roots
// and unknown ids.
func (t *Tree) Parent(id string) *Node {
	n, ok := t.Find(id)
	if !ok || n.ParentID == "" {
		return nil
	}
	p, _ := t.Find(n.ParentID)
	return p
}

// Len returns the number of nodes in the tree.
func (t *Tree) Len() int {
	if t == nil {
		return 0
	}
	return len(t.index)
}

// Walk visits every node depth-first in display order.
func (t *Tree) Walk(fn func(n *Node)) {
	if t == nil {
		return
	}
	var walk func(nodes []*Node)
	walk = func(nodes []*Node) {
		for _, n := range nodes {
			fn(n)
			walk(n.Children)
		}
	}
	walk(t.Roots)
}

// Visible returns the nodes whose ancestors are all expanded, in display order.
func (t *Tree) Visible() []*Node {
	if t == nil {
		return nil
	}
	var out []*Node
	var appendVisible func(n *Node)
	appendVisible = func(n *Node) {
		out = append(out, n)
		if n.Expanded {
			for _, c := range n.Children {
				appendVisible(c)
			}
		}
	}
	for _, r := range t.Roots {
		appendVisible(r)
	}
	return out
}

// IsDescendant reports whether id lies strictly below ancestorID.
func (t *Tree) IsDescendant(ancestorID, id string) bool {
	if ancestorID == "" || ancestorID == id {
		return false
	}
	seen := make(map[string]bool)
	for p := t.Parent(id); p != nil; p = t.Parent(p.ID) {
		if p.ID == ancestorID {
			return true
		}
		if seen[p.ID] {
			return false
		}
		seen[p.ID] = true
	}
	return false
}

// Path returns the 1-based position path of a node, such as "2.1".
func (t *Tree) Path(id string) string {
	var parts []string
	for n, ok := t.Find(id); ok; {
		siblings := t.Roots
		if p := t.Parent(n.ID); p != nil {
			siblings = p.Children
		}
		for i, s := range siblings {
			if s == n {
				parts = append([]string{strconv.Itoa(i + 1)}, parts...)
				break
			}
		}
		if n.ParentID == "" {
			break
		}
		n, ok = t.Find(n.ParentID)
	}
	return strings.Join(parts, ".")
}

// ByPath resolves a 1-based position path such as "2.1.3".
func (t *Tree) ByPath(path string) (*Node, error) {
	if t == nil {
		return nil, fmt.Errorf("task not found: %s", path)
	}
	parts := strings.Split(path, ".")
	siblings := t.Roots
	var n *Node
	for _, p := range parts {
		idx, err := strconv.Atoi(p)
		if err != nil || idx < 1 {
			return nil, fmt.Errorf("invalid task reference: %s", path)
		}
		if idx > len(siblings) {
			return nil, fmt.Errorf("task not found: %s", path)
		}
		n = siblings[idx-1]
		siblings = n.Children
	}
	return n, nil
}
