// Package service defines the backend-agnostic interface for task tree operations.
package service

import (
	"fmt"
	"strings"
)

// List represents a named task list.
type List struct {
	ID    string
	Title string
}

// Item represents a task as returned by a store.
// Payloads may be nested (Children filled) or flat (ParentID filled);
// the tree builder accepts either.
type Item struct {
	ID        string
	Content   string
	Completed bool
	Expanded  bool
	ParentID  string // "" for top-level items
	ListID    string // may be empty in nested payloads
	Position  string // optional backend ordering key
	Children  []Item
}

// Placement is the (parent, list) assignment of an item.
// An empty ParentID places the item at the top level.
type Placement struct {
	ParentID string
	ListID   string
}

// Patch is a partial update of an item. Nil fields are left untouched.
type Patch struct {
	Completed *bool
	Expanded  *bool
	Content   *string
	Placement *Placement
}

// IsZero reports whether the patch changes nothing.
func (p Patch) IsZero() bool {
	return p.Completed == nil && p.Expanded == nil && p.Content == nil && p.Placement == nil
}

// Bool returns a pointer to v, for building patches.
func Bool(v bool) *bool { return &v }

// String returns a pointer to v, for building patches.
func String(v string) *string { return &v }

// FindList finds a list by exact ID or by title (case-insensitive, trimmed).
// Returns an error wrapping ErrNotFound if nothing matches, or ErrAmbiguous
// if several titles match.
func FindList(lists []List, name string) (List, error) {
	name = strings.TrimSpace(name)
	nameLower := strings.ToLower(name)

	for _, l := range lists {
		if l.ID == name {
			return l, nil
		}
	}

	var matches []List
	for _, l := range lists {
		if strings.ToLower(strings.TrimSpace(l.Title)) == nameLower {
			matches = append(matches, l)
		}
	}

	switch len(matches) {
	case 0:
		return List{}, fmt.Errorf("list %w: %s", ErrNotFound, name)
	case 1:
		return matches[0], nil
	default:
		return List{}, fmt.Errorf("%w: %s", ErrAmbiguous, name)
	}
}
