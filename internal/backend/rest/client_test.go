package rest_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"tasktree/internal/backend/rest"
	"tasktree/internal/config"
	"tasktree/internal/service"
	"tasktree/internal/tree"
)

type recorded struct {
	method string
	path   string
	body   map[string]any
	cookie string
	auth   string
}

type fakeStore struct {
	t        *testing.T
	mux      *http.ServeMux
	requests []recorded
}

func newFakeStore(t *testing.T) (*fakeStore, *httptest.Server) {
	t.Helper()
	fs := &fakeStore{t: t, mux: http.NewServeMux()}
	srv := httptest.NewServer(http.HandlerFunc(fs.serve))
	t.Cleanup(srv.Close)
	return fs, srv
}

func (fs *fakeStore) serve(w http.ResponseWriter, r *http.Request) {
	rec := recorded{method: r.Method, path: r.URL.Path, auth: r.Header.Get("Authorization")}
	if ck, err := r.Cookie(rest.SessionCookieName); err == nil {
		rec.cookie = ck.Value
	}
	if data, _ := io.ReadAll(r.Body); len(data) > 0 {
		if err := json.Unmarshal(data, &rec.body); err != nil {
			fs.t.Errorf("request body is not a JSON object: %s", data)
		}
	}
	fs.requests = append(fs.requests, rec)
	fs.mux.ServeHTTP(w, r)
}

func (fs *fakeStore) last() recorded {
	fs.t.Helper()
	if len(fs.requests) == 0 {
		fs.t.Fatal("no request recorded")
	}
	return fs.requests[len(fs.requests)-1]
}

func reply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}
}

func newClient(t *testing.T, srv *httptest.Server, opts ...rest.Option) *rest.Client {
	t.Helper()
	c, err := rest.NewWithHTTPClient(srv.URL, srv.Client(), opts...)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return c
}

func TestListLists_NumericIDs(t *testing.T) {
	fs, srv := newFakeStore(t)
	fs.mux.Handle("GET /api/lists", reply(200, `[{"id":1,"title":"Home"},{"id":"w2","title":"Work"}]`))

	lists, err := newClient(t, srv).ListLists(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []service.List{{ID: "1", Title: "Home"}, {ID: "w2", Title: "Work"}}
	if len(lists) != len(want) {
		t.Fatalf("expected %d lists, got %+v", len(want), lists)
	}
	for i := range want {
		if lists[i] != want[i] {
			t.Errorf("list %d: expected %+v, got %+v", i, want[i], lists[i])
		}
	}
}

func TestListItems_Nested(t *testing.T) {
	fs, srv := newFakeStore(t)
	fs.mux.Handle("GET /api/lists/1/items", reply(200, `[
		{"id":10,"content":"T1","completed":false,"is_expanded":false,"children":[
			{"id":11,"content":"T2","completed":true,"children":[]}
		]},
		{"id":12,"content":"T3","completed":false,"is_expanded":true,"children":[]}
	]`))

	items, err := newClient(t, srv).ListItems(context.Background(), "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 roots, got %+v", items)
	}
	if items[0].ID != "10" || items[0].Expanded {
		t.Errorf("unexpected first root: %+v", items[0])
	}
	if len(items[0].Children) != 1 {
		t.Fatalf("expected one child, got %+v", items[0].Children)
	}
	child := items[0].Children[0]
	if child.ID != "11" || !child.Completed || child.Expanded {
		t.Errorf("missing is_expanded should read as collapsed: %+v", child)
	}
	if !items[1].Expanded {
		t.Errorf("unexpected second root: %+v", items[1])
	}
}

func TestListItems_MissingExpandedBuildsCollapsed(t *testing.T) {
	fs, srv := newFakeStore(t)
	fs.mux.Handle("GET /api/lists/7/items", reply(200, `[
		{"id":1,"content":"a","children":[{"id":2,"content":"b","children":[]}]}
	]`))

	items, err := newClient(t, srv).ListItems(context.Background(), "7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr := tree.Build("7", items)
	n, ok := tr.Find("1")
	if !ok {
		t.Fatalf("expected node 1 in %+v", tr.Roots)
	}
	if n.Expanded {
		t.Error("a task without is_expanded should build collapsed")
	}
	if got := tr.Visible(); len(got) != 1 {
		t.Errorf("expected only the root visible, got %d nodes", len(got))
	}
}

func TestCreateItem_Body(t *testing.T) {
	fs, srv := newFakeStore(t)
	fs.mux.Handle("POST /api/lists/1/items", reply(201, `{"id":20,"content":"new","completed":false,"is_expanded":true}`))
	c := newClient(t, srv)

	it, err := c.CreateItem(context.Background(), "1", "new", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if it.ID != "20" || it.ListID != "1" {
		t.Errorf("unexpected item: %+v", it)
	}
	body := fs.last().body
	if v, ok := body["parent_id"]; !ok || v != nil {
		t.Errorf("expected explicit null parent_id, got %v", body)
	}

	it, err = c.CreateItem(context.Background(), "1", "sub", "10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if it.ParentID != "10" {
		t.Errorf("expected parent 10, got %+v", it)
	}
	if v := fs.last().body["parent_id"]; v != float64(10) {
		t.Errorf("expected numeric parent_id 10, got %#v", v)
	}
}

func TestUpdateItem_PlacementSendsBothFields(t *testing.T) {
	fs, srv := newFakeStore(t)
	fs.mux.Handle("PUT /api/items/10", reply(200, `{"message":"Item updated successfully"}`))

	patch := service.Patch{Placement: &service.Placement{ParentID: "", ListID: "2"}}
	if err := newClient(t, srv).UpdateItem(context.Background(), "1", "10", patch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body := fs.last().body
	if len(body) != 2 {
		t.Errorf("expected only parent_id and list_id, got %v", body)
	}
	if v, ok := body["parent_id"]; !ok || v != nil {
		t.Errorf("expected parent_id null, got %v", body)
	}
	if body["list_id"] != float64(2) {
		t.Errorf("expected list_id 2, got %#v", body["list_id"])
	}
}

func TestUpdateItem_PartialFields(t *testing.T) {
	fs, srv := newFakeStore(t)
	fs.mux.Handle("PUT /api/items/10", reply(200, `{}`))

	patch := service.Patch{Completed: service.Bool(false), Expanded: service.Bool(true)}
	if err := newClient(t, srv).UpdateItem(context.Background(), "1", "10", patch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body := fs.last().body
	if body["completed"] != false || body["is_expanded"] != true {
		t.Errorf("unexpected body %v", body)
	}
	if _, ok := body["parent_id"]; ok {
		t.Errorf("placement fields must be absent without a placement: %v", body)
	}
}

func TestDeleteItem(t *testing.T) {
	fs, srv := newFakeStore(t)
	fs.mux.Handle("DELETE /api/items/10", reply(200, `{"message":"Item deleted successfully"}`))

	if err := newClient(t, srv).DeleteItem(context.Background(), "1", "10"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := fs.last(); got.method != http.MethodDelete || got.path != "/api/items/10" {
		t.Errorf("unexpected request %+v", got)
	}
}

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		body   string
		want   error
		text   string
	}{
		{401, `{"error":"login required"}`, service.ErrUnauthorized, "login required"},
		{404, `{"error":"List not found"}`, service.ErrNotFound, "List not found"},
		{400, `{"error":"Cannot create circular reference"}`, service.ErrRejected, "Cannot create circular reference"},
		{409, ``, service.ErrRejected, "Conflict"},
		{422, `{"error":"bad"}`, service.ErrRejected, "bad"},
	}
	for _, tc := range cases {
		fs, srv := newFakeStore(t)
		fs.mux.Handle("GET /api/lists", reply(tc.status, tc.body))

		_, err := newClient(t, srv).ListLists(context.Background())
		if !errors.Is(err, tc.want) {
			t.Errorf("%d: expected %v, got %v", tc.status, tc.want, err)
			continue
		}
		if !strings.Contains(err.Error(), tc.text) {
			t.Errorf("%d: expected message %q in %q", tc.status, tc.text, err.Error())
		}
	}
}

func TestStatusMapping_ServerError(t *testing.T) {
	fs, srv := newFakeStore(t)
	fs.mux.Handle("GET /api/lists", reply(500, `boom`))

	_, err := newClient(t, srv).ListLists(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	for _, s := range []error{service.ErrUnauthorized, service.ErrNotFound, service.ErrRejected} {
		if errors.Is(err, s) {
			t.Errorf("500 must not map to %v", s)
		}
	}
}

func TestLogin_ReplaysSession(t *testing.T) {
	fs, srv := newFakeStore(t)
	fs.mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: rest.SessionCookieName, Value: "abc123", Path: "/"})
		reply(200, `{"message":"Logged in successfully"}`)(w, r)
	})
	fs.mux.Handle("GET /api/lists", reply(200, `[]`))
	c := newClient(t, srv)

	session, err := c.Login(context.Background(), "ann", "pw")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session != "abc123" {
		t.Errorf("expected session abc123, got %q", session)
	}
	if body := fs.last().body; body["username"] != "ann" || body["password"] != "pw" {
		t.Errorf("unexpected login body %v", body)
	}

	if _, err := c.ListLists(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := fs.last().cookie; got != "abc123" {
		t.Errorf("expected session cookie replayed, got %q", got)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	fs, srv := newFakeStore(t)
	fs.mux.Handle("POST /api/login", reply(401, `{"error":"Invalid username or password"}`))

	_, err := newClient(t, srv).Login(context.Background(), "ann", "nope")
	if !errors.Is(err, service.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestNew_TokenAndSavedSession(t *testing.T) {
	fs, srv := newFakeStore(t)
	fs.mux.Handle("GET /api/lists", reply(200, `[]`))

	cfg := &config.Config{Dir: t.TempDir(), BaseURL: srv.URL, Token: "tok", Timeout: time.Second}
	if err := cfg.SaveSession("saved"); err != nil {
		t.Fatal(err)
	}
	c, err := rest.New(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := c.ListLists(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := fs.last()
	if got.auth != "Bearer tok" {
		t.Errorf("expected bearer token, got %q", got.auth)
	}
	if got.cookie != "saved" {
		t.Errorf("expected saved session cookie, got %q", got.cookie)
	}
}

func TestTimeout(t *testing.T) {
	fs, srv := newFakeStore(t)
	fs.mux.HandleFunc("GET /api/lists", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	})

	_, err := newClient(t, srv, rest.WithTimeout(50*time.Millisecond)).ListLists(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestNewWithHTTPClient_BadURL(t *testing.T) {
	_, err := rest.NewWithHTTPClient("localhost", http.DefaultClient)
	if !errors.Is(err, config.ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}
