// Package service defines the backend-agnostic interface for task tree operations.
package service

import (
	"context"
	"errors"
)

var (
	// ErrUnauthorized means the store no longer accepts the session (HTTP 401).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound means the list or item does not exist.
	ErrNotFound = errors.New("not found")

	// ErrRejected means the store refused the mutation, typically because it
	// would violate a depth, list or cycle constraint.
	ErrRejected = errors.New("rejected by store")

	// ErrAmbiguous means a list name matches several lists.
	ErrAmbiguous = errors.New("ambiguous list name")
)

// Service defines the interface for task store operations.
// Commands and the mutation dispatcher never import a backend directly.
type Service interface {
	// ListLists returns all lists of the current session in store order.
	ListLists(ctx context.Context) ([]List, error)

	// CreateList creates a new list and returns it.
	CreateList(ctx context.Context, title string) (List, error)

	// ListItems returns the items of a list, nested or flat.
	// Order is authoritative and must not be changed by callers.
	ListItems(ctx context.Context, listID string) ([]Item, error)

	// CreateItem creates a task (parentID == "") or a subtask and returns it.
	CreateItem(ctx context.Context, listID, content, parentID string) (Item, error)

	// UpdateItem applies a partial update to an item of listID.
	UpdateItem(ctx context.Context, listID, itemID string, patch Patch) error

	// DeleteItem deletes an item and, by store contract, its descendants.
	DeleteItem(ctx context.Context, listID, itemID string) error
}
