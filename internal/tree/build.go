package tree

import (
	"sort"

	"tasktree/internal/service"
)

type entry struct {
	item   service.Item
	parent string
	order  int
}

// Build converts a store payload into the tree of listID.
//
// The payload may be nested (children inside Item.Children), flat (Item.ParentID
// set) or a mix of both; a child's nesting position wins over its ParentID.
// Duplicates, items of another list, orphans whose parent is absent from the
// payload and members of parent cycles are dropped together with their
// subtrees and recorded in Tree.Dropped. Nodes deeper than MaxDepth are
// clamped to MaxDepth and marked read-only.
func Build(listID string, items []service.Item) *Tree {
	t := Empty(listID)

	// Step 1: flatten, keeping the first occurrence of every id
	var flat []entry
	seen := make(map[string]bool)
	var flatten func(items []service.Item, parent string)
	flatten = func(items []service.Item, parent string) {
		for _, it := range items {
			if it.ID == "" {
				continue
			}
			if seen[it.ID] {
				t.Dropped = append(t.Dropped, it.ID)
				continue
			}
			seen[it.ID] = true

			p := parent
			if p == "" {
				p = it.ParentID
			}
			flat = append(flat, entry{item: it, parent: p, order: len(flat)})
			flatten(it.Children, it.ID)
		}
	}
	flatten(items, "")

	// Step 2: index survivors and group them under their parents
	kept := make(map[string]bool, len(flat))
	childrenOf := make(map[string][]entry)
	var roots []entry
	for _, e := range flat {
		if e.item.ListID != "" && e.item.ListID != listID {
			continue
		}
		kept[e.item.ID] = true
	}
	for _, e := range flat {
		if !kept[e.item.ID] {
			continue
		}
		if e.parent == "" {
			roots = append(roots, e)
			continue
		}
		childrenOf[e.parent] = append(childrenOf[e.parent], e)
	}

	// Step 3: attach depth-first from the roots; anything unreachable is an
	// orphan or part of a cycle
	visited := make(map[string]bool)
	var attach func(e entry, depth int) *Node
	attach = func(e entry, depth int) *Node {
		if visited[e.item.ID] {
			return nil
		}
		visited[e.item.ID] = true

		n := &Node{
			ID:        e.item.ID,
			Content:   e.item.Content,
			Completed: e.item.Completed,
			Expanded:  e.item.Expanded,
			ParentID:  e.parent,
			ListID:    listID,
			Depth:     depth,
		}
		if depth > MaxDepth {
			n.Depth = MaxDepth
			n.ReadOnly = true
		}
		t.index[n.ID] = n

		for _, c := range ordered(childrenOf[e.item.ID]) {
			if child := attach(c, depth+1); child != nil {
				n.Children = append(n.Children, child)
			}
		}
		return n
	}
	for _, r := range ordered(roots) {
		if n := attach(r, 0); n != nil {
			t.Roots = append(t.Roots, n)
		}
	}

	for _, e := range flat {
		if !visited[e.item.ID] {
			t.Dropped = append(t.Dropped, e.item.ID)
		}
	}
	return t
}

// ordered sorts a sibling group by Position when every member carries one,
// otherwise it keeps payload order.
func ordered(group []entry) []entry {
	for _, e := range group {
		if e.item.Position == "" {
			return group
		}
	}
	out := make([]entry, len(group))
	copy(out, group)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].item.Position != out[j].item.Position {
			return out[i].item.Position < out[j].item.Position
		}
		return out[i].order < out[j].order
	})
	return out
}
