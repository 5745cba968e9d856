package rest

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/goccy/go-json"

	"tasktree/internal/service"
)

// wireID is an id that the store may send as a number or a string. Numeric
// ids are sent back as numbers and the empty id as null.
type wireID string

func (id wireID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return []byte("null"), nil
	}
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id *wireID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = wireID(s)
		return nil
	default:
		if _, err := strconv.ParseFloat(string(data), 64); err != nil {
			return fmt.Errorf("invalid id %s", data)
		}
		*id = wireID(data)
		return nil
	}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type wireList struct {
	ID    wireID `json:"id"`
	Title string `json:"title"`
}

type wireItem struct {
	ID         wireID     `json:"id"`
	Content    string     `json:"content"`
	Completed  bool       `json:"completed"`
	IsExpanded bool       `json:"is_expanded"`
	ParentID   wireID     `json:"parent_id"`
	ListID     wireID     `json:"list_id"`
	Children   []wireItem `json:"children"`
}

type createItem struct {
	Content  string `json:"content"`
	ParentID wireID `json:"parent_id"`
}

type updateItem struct {
	Content    *string `json:"content,omitempty"`
	Completed  *bool   `json:"completed,omitempty"`
	IsExpanded *bool   `json:"is_expanded,omitempty"`
	ParentID   *wireID `json:"parent_id,omitempty"`
	ListID     *wireID `json:"list_id,omitempty"`
}

// item converts a wire item. A missing is_expanded reads as collapsed.
func (w wireItem) item() service.Item {
	return service.Item{
		ID:        string(w.ID),
		Content:   w.Content,
		Completed: w.Completed,
		Expanded:  w.IsExpanded,
		ParentID:  string(w.ParentID),
		ListID:    string(w.ListID),
		Children:  toItems(w.Children),
	}
}

func toItems(wire []wireItem) []service.Item {
	if len(wire) == 0 {
		return nil
	}
	out := make([]service.Item, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.item())
	}
	return out
}
