// Package mutation executes user intents against the store and refetches the
// affected lists.
//
// Every intent maps to exactly one store call. After a successful call the
// whole tree of each affected list is fetched again and rebuilt; the local
// tree is never patched. Fetches are tagged with a per-list generation so that
// only the response to the latest request for a list is ever handed out.
package mutation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tasktree/internal/service"
	"tasktree/internal/tree"
)

// Kind is the type of a mutation.
type Kind int

const (
	SetCompleted Kind = iota
	SetExpanded
	SetContent
	CreateTask
	CreateSubtask
	Delete
	Move
)

func (k Kind) String() string {
	switch k {
	case SetCompleted:
		return "set-completed"
	case SetExpanded:
		return "set-expanded"
	case SetContent:
		return "set-content"
	case CreateTask:
		return "create-task"
	case CreateSubtask:
		return "create-subtask"
	case Delete:
		return "delete"
	case Move:
		return "move"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ErrInvalid is returned for mutations missing a required field.
var ErrInvalid = errors.New("invalid mutation")

// Mutation is a single store write.
type Mutation struct {
	Kind Kind
	// ListID is the list the item lives in, or the list to create in.
	ListID string
	ItemID string
	// ParentID is the parent of a new subtask.
	ParentID string
	Content  string
	// Value is the new flag for SetCompleted and SetExpanded.
	Value     bool
	Placement service.Placement
}

// Lists returns the lists whose trees change when m succeeds: the source list,
// plus the destination of a cross-list move.
func (m Mutation) Lists() []string {
	if m.Kind == Move && m.Placement.ListID != "" && m.Placement.ListID != m.ListID {
		return []string{m.ListID, m.Placement.ListID}
	}
	return []string{m.ListID}
}

// Validate checks that m carries the fields its kind needs.
func (m Mutation) Validate() error {
	if m.ListID == "" {
		return fmt.Errorf("%w: %s without list", ErrInvalid, m.Kind)
	}
	switch m.Kind {
	case CreateTask:
		if strings.TrimSpace(m.Content) == "" {
			return fmt.Errorf("%w: content required", ErrInvalid)
		}
	case CreateSubtask:
		if m.ParentID == "" {
			return fmt.Errorf("%w: subtask without parent", ErrInvalid)
		}
		if strings.TrimSpace(m.Content) == "" {
			return fmt.Errorf("%w: content required", ErrInvalid)
		}
	case SetContent:
		if m.ItemID == "" {
			return fmt.Errorf("%w: %s without item", ErrInvalid, m.Kind)
		}
		if strings.TrimSpace(m.Content) == "" {
			return fmt.Errorf("%w: content required", ErrInvalid)
		}
	case Move:
		if m.ItemID == "" {
			return fmt.Errorf("%w: %s without item", ErrInvalid, m.Kind)
		}
		if m.Placement.ListID == "" {
			return fmt.Errorf("%w: placement without list", ErrInvalid)
		}
	case SetCompleted, SetExpanded, Delete:
		if m.ItemID == "" {
			return fmt.Errorf("%w: %s without item", ErrInvalid, m.Kind)
		}
	default:
		return fmt.Errorf("%w: unknown kind %d", ErrInvalid, int(m.Kind))
	}
	return nil
}

// Snapshot is the result of one fetch of a list.
type Snapshot struct {
	ListID     string
	Generation uint64
	Tree       *tree.Tree
	Items      []service.Item
	FetchedAt  time.Time
}
