// Package testutil provides testing utilities.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"tasktree/internal/service"
)

// Call records one store call made against a FakeService.
type Call struct {
	Method string
	ListID string
	ItemID string
	// ParentID is the parent passed to CreateItem.
	ParentID string
	Patch    service.Patch
}

func (c Call) String() string {
	s := c.Method
	if c.ListID != "" {
		s += " list=" + c.ListID
	}
	if c.ItemID != "" {
		s += " item=" + c.ItemID
	}
	return s
}

type fakeItem struct {
	service.Item
	seq int
}

// FakeService is an in-memory implementation of service.Service for testing.
//
// It enforces the store-side rules of the task API: placements must name an
// existing list and a parent in that list, cycles are refused with
// service.ErrRejected, moving a task between lists carries its subtree along,
// and deletes cascade.
type FakeService struct {
	mu     sync.RWMutex
	lists  []service.List
	items  map[string]*fakeItem
	nextID int
	seq    int
	calls  []Call

	// Flat makes ListItems return a flat payload with ParentID, ListID and
	// Position set instead of nested children.
	Flat bool

	// BeforeListItems, when set, runs before ListItems reads the store. A
	// non-nil return is returned as the call's error.
	BeforeListItems func(ctx context.Context, listID string) error

	// Error injection for testing
	ListListsErr  error
	CreateListErr error
	ListItemsErr  map[string]error // listID -> error
	CreateItemErr error
	UpdateItemErr error
	DeleteItemErr error
}

// NewFakeService creates an empty FakeService.
func NewFakeService() *FakeService {
	return &FakeService{
		items:        make(map[string]*fakeItem),
		ListItemsErr: make(map[string]error),
	}
}

// AddList adds a list to the fake service.
func (f *FakeService) AddList(id, title string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists = append(f.lists, service.List{ID: id, Title: title})
	f.bumpID(id)
}

// AddItem adds a task to a list. parentID may be empty for a top-level task.
// The new task starts expanded, like tasks created through the API.
func (f *FakeService) AddItem(listID, id, parentID, content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	f.items[id] = &fakeItem{
		Item: service.Item{
			ID:       id,
			Content:  content,
			Expanded: true,
			ParentID: parentID,
			ListID:   listID,
		},
		seq: f.seq,
	}
	f.bumpID(id)
}

// SetCompleted sets the completed flag of a task directly.
func (f *FakeService) SetCompleted(id string, completed bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if it, ok := f.items[id]; ok {
		it.Completed = completed
	}
}

// SetExpanded sets the expanded flag of a task directly.
func (f *FakeService) SetExpanded(id string, expanded bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if it, ok := f.items[id]; ok {
		it.Expanded = expanded
	}
}

// Item returns the stored state of a task.
func (f *FakeService) Item(id string) (service.Item, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	it, ok := f.items[id]
	if !ok {
		return service.Item{}, false
	}
	return it.Item, true
}

// Calls returns the store calls made so far.
func (f *FakeService) Calls() []Call {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// MutatingCalls returns the calls that write to the store.
func (f *FakeService) MutatingCalls() []Call {
	var out []Call
	for _, c := range f.Calls() {
		switch c.Method {
		case "CreateList", "CreateItem", "UpdateItem", "DeleteItem":
			out = append(out, c)
		}
	}
	return out
}

// ResetCalls clears the recorded calls.
func (f *FakeService) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *FakeService) record(c Call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

// bumpID keeps generated ids above any numeric id added by hand.
func (f *FakeService) bumpID(id string) {
	if n, err := strconv.Atoi(id); err == nil && n > f.nextID {
		f.nextID = n
	}
}

func (f *FakeService) newID() string {
	f.nextID++
	return strconv.Itoa(f.nextID)
}

func (f *FakeService) hasList(id string) bool {
	for _, l := range f.lists {
		if l.ID == id {
			return true
		}
	}
	return false
}

// ListLists implements service.Service.
func (f *FakeService) ListLists(ctx context.Context) ([]service.List, error) {
	f.record(Call{Method: "ListLists"})
	if f.ListListsErr != nil {
		return nil, f.ListListsErr
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	result := make([]service.List, len(f.lists))
	copy(result, f.lists)
	return result, nil
}

// CreateList implements service.Service.
func (f *FakeService) CreateList(ctx context.Context, title string) (service.List, error) {
	f.record(Call{Method: "CreateList"})
	if f.CreateListErr != nil {
		return service.List{}, f.CreateListErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	l := service.List{ID: f.newID(), Title: title}
	f.lists = append(f.lists, l)
	return l, nil
}

// ListItems implements service.Service.
func (f *FakeService) ListItems(ctx context.Context, listID string) ([]service.Item, error) {
	f.record(Call{Method: "ListItems", ListID: listID})
	if f.BeforeListItems != nil {
		if err := f.BeforeListItems(ctx, listID); err != nil {
			return nil, err
		}
	}
	if err := f.ListItemsErr[listID]; err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	if !f.hasList(listID) {
		return nil, fmt.Errorf("list %s: %w", listID, service.ErrNotFound)
	}

	childrenOf := make(map[string][]*fakeItem)
	var roots []*fakeItem
	for _, it := range f.items {
		if it.ListID != listID {
			continue
		}
		if it.ParentID == "" {
			roots = append(roots, it)
		} else {
			childrenOf[it.ParentID] = append(childrenOf[it.ParentID], it)
		}
	}
	sortBySeq(roots)
	for _, group := range childrenOf {
		sortBySeq(group)
	}

	if f.Flat {
		var out []service.Item
		var walk func(group []*fakeItem)
		walk = func(group []*fakeItem) {
			for i, it := range group {
				item := it.Item
				item.Position = fmt.Sprintf("%08d", i)
				out = append(out, item)
				walk(childrenOf[it.ID])
			}
		}
		walk(roots)
		return out, nil
	}

	var nest func(group []*fakeItem) []service.Item
	nest = func(group []*fakeItem) []service.Item {
		var out []service.Item
		for _, it := range group {
			out = append(out, service.Item{
				ID:        it.ID,
				Content:   it.Content,
				Completed: it.Completed,
				Expanded:  it.Expanded,
				Children:  nest(childrenOf[it.ID]),
			})
		}
		return out
	}
	return nest(roots), nil
}

func sortBySeq(group []*fakeItem) {
	sort.Slice(group, func(i, j int) bool { return group[i].seq < group[j].seq })
}

// CreateItem implements service.Service.
func (f *FakeService) CreateItem(ctx context.Context, listID, content, parentID string) (service.Item, error) {
	f.record(Call{Method: "CreateItem", ListID: listID, ParentID: parentID})
	if f.CreateItemErr != nil {
		return service.Item{}, f.CreateItemErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.hasList(listID) {
		return service.Item{}, fmt.Errorf("list %s: %w", listID, service.ErrNotFound)
	}
	if strings.TrimSpace(content) == "" {
		return service.Item{}, fmt.Errorf("content required: %w", service.ErrRejected)
	}
	if parentID != "" {
		p, ok := f.items[parentID]
		if !ok {
			return service.Item{}, fmt.Errorf("parent item %s: %w", parentID, service.ErrNotFound)
		}
		if p.ListID != listID {
			return service.Item{}, fmt.Errorf("parent item is in another list: %w", service.ErrRejected)
		}
	}

	f.seq++
	it := &fakeItem{
		Item: service.Item{
			ID:       f.newID(),
			Content:  content,
			Expanded: true,
			ParentID: parentID,
			ListID:   listID,
		},
		seq: f.seq,
	}
	f.items[it.ID] = it
	return it.Item, nil
}

// UpdateItem implements service.Service.
func (f *FakeService) UpdateItem(ctx context.Context, listID, itemID string, patch service.Patch) error {
	f.record(Call{Method: "UpdateItem", ListID: listID, ItemID: itemID, Patch: patch})
	if f.UpdateItemErr != nil {
		return f.UpdateItemErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	it, ok := f.items[itemID]
	if !ok {
		return fmt.Errorf("item %s: %w", itemID, service.ErrNotFound)
	}

	// Validate the placement before touching any field
	if p := patch.Placement; p != nil {
		if !f.hasList(p.ListID) {
			return fmt.Errorf("target list %s: %w", p.ListID, service.ErrNotFound)
		}
		if p.ParentID != "" {
			parent, ok := f.items[p.ParentID]
			if !ok {
				return fmt.Errorf("parent item %s: %w", p.ParentID, service.ErrNotFound)
			}
			if parent.ID == it.ID {
				return fmt.Errorf("cannot make item its own parent: %w", service.ErrRejected)
			}
			for cur := parent; cur != nil && cur.ParentID != ""; cur = f.items[cur.ParentID] {
				if cur.ParentID == it.ID {
					return fmt.Errorf("cannot create circular reference: %w", service.ErrRejected)
				}
			}
			if parent.ListID != p.ListID {
				return fmt.Errorf("parent item is in another list: %w", service.ErrRejected)
			}
		}
	}

	if patch.Completed != nil {
		it.Completed = *patch.Completed
	}
	if patch.Expanded != nil {
		it.Expanded = *patch.Expanded
	}
	if patch.Content != nil {
		it.Content = *patch.Content
	}
	if p := patch.Placement; p != nil {
		if it.ParentID != p.ParentID || it.ListID != p.ListID {
			f.seq++
			it.seq = f.seq
		}
		it.ParentID = p.ParentID
		if it.ListID != p.ListID {
			for _, id := range f.subtree(it.ID) {
				f.items[id].ListID = p.ListID
			}
		}
	}
	return nil
}

// DeleteItem implements service.Service.
func (f *FakeService) DeleteItem(ctx context.Context, listID, itemID string) error {
	f.record(Call{Method: "DeleteItem", ListID: listID, ItemID: itemID})
	if f.DeleteItemErr != nil {
		return f.DeleteItemErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.items[itemID]; !ok {
		return fmt.Errorf("item %s: %w", itemID, service.ErrNotFound)
	}
	for _, id := range f.subtree(itemID) {
		delete(f.items, id)
	}
	return nil
}

// subtree returns id and all of its descendants.
func (f *FakeService) subtree(id string) []string {
	out := []string{id}
	for i := 0; i < len(out); i++ {
		for _, it := range f.items {
			if it.ParentID == out[i] {
				out = append(out, it.ID)
			}
		}
	}
	return out
}
