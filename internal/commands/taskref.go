package commands

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"tasktree/internal/tree"
)

// TaskRef represents a parsed task reference.
type TaskRef struct {
	Path string // dotted 1-based position path, such as "2.1"
	ID   string // store id, from the "#<id>" form
}

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// String returns the reference as typed.
func (r TaskRef) String() string {
	if r.ID != "" {
		return "#" + r.ID
	}
	return r.Path
}

// ParseTaskRef parses a task reference.
//
// Accepted forms:
//   - a dotted position path over the tree: "2", "2.1", "2.1.3"
//   - "#<id>" naming the store id directly
func ParseTaskRef(arg string) (TaskRef, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return TaskRef{}, ErrTaskRefRequired
	}

	if id, ok := strings.CutPrefix(arg, "#"); ok {
		if id == "" {
			return TaskRef{}, fmt.Errorf("invalid task reference: %s", arg)
		}
		return TaskRef{ID: id}, nil
	}

	for _, part := range strings.Split(arg, ".") {
		if !isAllDigits(part) || strings.TrimLeft(part, "0") == "" {
			return TaskRef{}, fmt.Errorf("invalid task reference: %s", arg)
		}
	}
	if depth := strings.Count(arg, ".") + 1; depth > tree.MaxDepth+1 {
		return TaskRef{}, fmt.Errorf("invalid task reference: %s", arg)
	}
	return TaskRef{Path: arg}, nil
}

// Resolve finds the referenced node in t.
func (r TaskRef) Resolve(t *tree.Tree) (*tree.Node, error) {
	if r.ID != "" {
		n, ok := t.Find(r.ID)
		if !ok {
			return nil, fmt.Errorf("task not found: %s", r)
		}
		return n, nil
	}
	return t.ByPath(r.Path)
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
