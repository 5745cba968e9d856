package commands_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"tasktree/internal/commands"
	"tasktree/internal/config"
	"tasktree/internal/exitcode"
	"tasktree/internal/service"
	"tasktree/internal/testutil"
)

func newConfig(t *testing.T, quiet bool) *config.Config {
	t.Helper()
	return &config.Config{
		Dir:     t.TempDir(),
		Quiet:   quiet,
		Backend: config.BackendREST,
	}
}

// runCommand is a helper to run a command with FakeService.
func runCommand(t *testing.T, cmd commands.Command, svc *testutil.FakeService, args []string, quiet bool) (stdout, stderr string, code int) {
	t.Helper()
	return runWith(t, newConfig(t, quiet), cmd, svc, args)
}

// runWith runs a command against an existing config, so that several runs
// share one cache.
func runWith(t *testing.T, cfg *config.Config, cmd commands.Command, svc *testutil.FakeService, args []string) (stdout, stderr string, code int) {
	t.Helper()

	var outBuf, errBuf bytes.Buffer
	var s service.Service
	if svc != nil {
		s = svc
	}
	code = cmd.Run(context.Background(), cfg, s, args, &outBuf, &errBuf)
	return outBuf.String(), errBuf.String(), code
}

// homeService holds the list "Home" with the tree
//
//	1   Garden
//	1.1   Weed
//	2   Shop
//
// and an empty list "Work".
func homeService() *testutil.FakeService {
	svc := testutil.NewFakeService()
	svc.AddList("1", "Home")
	svc.AddList("2", "Work")
	svc.AddItem("1", "10", "", "Garden")
	svc.AddItem("1", "11", "10", "Weed")
	svc.AddItem("1", "12", "", "Shop")
	return svc
}

const homeHeader = "------------\nHome\n------------\n"

func expectCode(t *testing.T, want, got int) {
	t.Helper()
	if got != want {
		t.Errorf("expected exit code %d, got %d", want, got)
	}
}

func expectOutput(t *testing.T, name, want, got string) {
	t.Helper()
	if got != want {
		t.Errorf("expected %s %q, got %q", name, want, got)
	}
}

func expectNoMutation(t *testing.T, svc *testutil.FakeService) {
	t.Helper()
	if calls := svc.MutatingCalls(); len(calls) != 0 {
		t.Errorf("expected no store writes, got %v", calls)
	}
}

// Tests for version command
func TestVersionCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.VersionCmd{}, nil, nil, false)

	expectCode(t, exitcode.Success, code)
	expectOutput(t, "stderr", "", stderr)
	expectOutput(t, "stdout", "tasktree 0.1.0\n", stdout)
}

// Tests for help command
func TestHelpCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.HelpCmd{}, nil, nil, false)

	expectCode(t, exitcode.Success, code)
	expectOutput(t, "stderr", "", stderr)
	for _, want := range []string{"Usage:", "tasktree mv", "tasktree add", "--backend <name>", "(alias: move)"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("help output should contain %q", want)
		}
	}
}

// Tests for lists command
func TestListsCommand(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.ListsCmd{}, homeService(), nil, false)

	expectCode(t, exitcode.Success, code)
	expectOutput(t, "stderr", "", stderr)
	expectOutput(t, "stdout", "1\tHome [default]\n2\tWork\n", stdout)
}

func TestListsCommand_AuthError(t *testing.T) {
	svc := homeService()
	svc.ListListsErr = fmt.Errorf("not logged in: %w", service.ErrUnauthorized)

	stdout, stderr, code := runCommand(t, &commands.ListsCmd{}, svc, nil, false)

	expectCode(t, exitcode.AuthError, code)
	expectOutput(t, "stdout", "", stdout)
	if !strings.HasPrefix(stderr, "error: auth error: ") || !strings.HasSuffix(stderr, "(run: tasktree login)\n") {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

// Tests for list command
func TestListCommand_DefaultList(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, homeService(), nil, false)

	expectCode(t, exitcode.Success, code)
	expectOutput(t, "stderr", "", stderr)
	expected := homeHeader +
		"1       ▾ [ ] Garden (0/1 completed)\n" +
		"1.1       • [ ] Weed\n" +
		"2       • [ ] Shop\n"
	expectOutput(t, "stdout", expected, stdout)
}

func TestListCommand_Collapsed(t *testing.T) {
	svc := homeService()
	svc.SetExpanded("10", false)
	svc.SetCompleted("11", true)

	stdout, _, code := runCommand(t, &commands.ListCmd{}, svc, nil, false)
	expectCode(t, exitcode.Success, code)
	expectOutput(t, "stdout", homeHeader+
		"1       ▸ [ ] Garden (1/1 completed)\n"+
		"2       • [ ] Shop\n", stdout)

	cmd := &commands.ListCmd{}
	cmd.SetAll(true)
	stdout, _, _ = runCommand(t, cmd, svc, nil, false)
	if !strings.Contains(stdout, "1.1       • [x] Weed\n") {
		t.Errorf("--all should print collapsed subtasks, got %q", stdout)
	}
}

func TestListCommand_EmptyList(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, homeService(), []string{"Work"}, false)

	expectCode(t, exitcode.Success, code)
	expectOutput(t, "stderr", "", stderr)
	expectOutput(t, "stdout", "------------\nWork\n------------\nno tasks found\n", stdout)
}

func TestListCommand_EmptyListQuiet(t *testing.T) {
	stdout, _, code := runCommand(t, &commands.ListCmd{}, homeService(), []string{"work"}, true)

	expectCode(t, exitcode.Success, code)
	// Quiet mode should suppress "no tasks found"
	expectOutput(t, "stdout", "------------\nWork\n------------\n", stdout)
}

func TestListCommand_ListNotFound(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, homeService(), []string{"Nope"}, false)

	expectCode(t, exitcode.UserError, code)
	expectOutput(t, "stdout", "", stdout)
	expectOutput(t, "stderr", "error: list not found: Nope\n", stderr)
}

func TestListCommand_NoLists(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.ListCmd{}, testutil.NewFakeService(), nil, false)

	expectCode(t, exitcode.UserError, code)
	expectOutput(t, "stdout", "", stdout)
	if !strings.Contains(stderr, "run: tasktree createlist") {
		t.Errorf("expected hint to create a list, got %q", stderr)
	}
}

func TestListCommand_FallsBackToCache(t *testing.T) {
	svc := homeService()
	cfg := newConfig(t, false)

	fresh, _, code := runWith(t, cfg, &commands.ListCmd{}, svc, nil)
	expectCode(t, exitcode.Success, code)

	svc.ListItemsErr["1"] = errors.New("connection refused")
	stdout, stderr, code := runWith(t, cfg, &commands.ListCmd{}, svc, nil)

	expectCode(t, exitcode.BackendError, code)
	expectOutput(t, "stdout", fresh, stdout)
	if !strings.HasPrefix(stderr, "error: backend error: ") {
		t.Errorf("expected backend error first, got %q", stderr)
	}
	if !strings.Contains(stderr, "warning: showing cached tree from ") {
		t.Errorf("expected cache warning, got %q", stderr)
	}
}

func TestListCommand_NoFallbackOnAuthError(t *testing.T) {
	svc := homeService()
	cfg := newConfig(t, false)
	runWith(t, cfg, &commands.ListCmd{}, svc, nil)

	svc.ListItemsErr["1"] = service.ErrUnauthorized
	stdout, stderr, code := runWith(t, cfg, &commands.ListCmd{}, svc, nil)

	expectCode(t, exitcode.AuthError, code)
	expectOutput(t, "stdout", "", stdout)
	if strings.Contains(stderr, "cached") {
		t.Errorf("a lost session must not show the cache, got %q", stderr)
	}
}

func TestListCommand_Cached(t *testing.T) {
	svc := homeService()
	cfg := newConfig(t, false)
	fresh, _, _ := runWith(t, cfg, &commands.ListCmd{}, svc, nil)
	svc.ResetCalls()

	cmd := &commands.ListCmd{}
	cmd.SetCached(true)
	stdout, stderr, code := runWith(t, cfg, cmd, svc, nil)

	expectCode(t, exitcode.Success, code)
	expectOutput(t, "stdout", fresh, stdout)
	if !strings.HasPrefix(stderr, "warning: cached tree from ") {
		t.Errorf("expected cache warning, got %q", stderr)
	}
	if calls := svc.Calls(); len(calls) != 0 {
		t.Errorf("--cached must not call the store, got %v", calls)
	}
}

func TestListCommand_CachedMiss(t *testing.T) {
	cmd := &commands.ListCmd{}
	cmd.SetCached(true)
	stdout, stderr, code := runCommand(t, cmd, homeService(), nil, false)

	expectCode(t, exitcode.BackendError, code)
	expectOutput(t, "stdout", "", stdout)
	if !strings.Contains(stderr, "not cached") {
		t.Errorf("expected cache miss, got %q", stderr)
	}
}

func TestListCommand_FlatPayload(t *testing.T) {
	svc := homeService()
	svc.Flat = true

	stdout, _, code := runCommand(t, &commands.ListCmd{}, svc, nil, false)
	expectCode(t, exitcode.Success, code)
	if !strings.Contains(stdout, "1.1       • [ ] Weed\n") {
		t.Errorf("flat payload should build the same tree, got %q", stdout)
	}
}

// Tests for createlist command
func TestCreateListCommand(t *testing.T) {
	svc := testutil.NewFakeService()
	svc.AddList("1", "Home")

	stdout, stderr, code := runCommand(t, &commands.CreateListCmd{}, svc, []string{"Side", "projects"}, false)

	expectCode(t, exitcode.Success, code)
	expectOutput(t, "stderr", "", stderr)
	expectOutput(t, "stdout", "ok\t2\n", stdout)
	if calls := svc.MutatingCalls(); len(calls) != 1 || calls[0].Method != "CreateList" {
		t.Errorf("expected one CreateList call, got %v", calls)
	}
}

func TestCreateListCommand_Exists(t *testing.T) {
	svc := homeService()

	stdout, stderr, code := runCommand(t, &commands.CreateListCmd{}, svc, []string{"home"}, false)

	expectCode(t, exitcode.UserError, code)
	expectOutput(t, "stdout", "", stdout)
	expectOutput(t, "stderr", "error: list already exists: home\n", stderr)
	expectNoMutation(t, svc)
}

func TestCreateListCommand_NoName(t *testing.T) {
	_, stderr, code := runCommand(t, &commands.CreateListCmd{}, homeService(), []string{" "}, false)

	expectCode(t, exitcode.UserError, code)
	expectOutput(t, "stderr", "error: list name required\n", stderr)
}

// Tests for add command
func TestAddCommand_Success(t *testing.T) {
	svc := homeService()

	stdout, stderr, code := runCommand(t, &commands.AddCmd{}, svc, []string{"Buy", "groceries"}, false)

	expectCode(t, exitcode.Success, code)
	expectOutput(t, "stderr", "", stderr)
	expectOutput(t, "stdout", "ok\n", stdout)

	calls := svc.MutatingCalls()
	if len(calls) != 1 || calls[0].Method != "CreateItem" || calls[0].ListID != "1" || calls[0].ParentID != "" {
		t.Fatalf("expected one top-level CreateItem in list 1, got %v", calls)
	}
}

func TestAddCommand_Quiet(t *testing.T) {
	stdout, stderr, code := runCommand(t, &commands.AddCmd{}, homeService(), []string{"Buy", "milk"}, true)

	expectCode(t, exitcode.Success, code)
	expectOutput(t, "stderr", "", stderr)
	expectOutput(t, "stdout", "", stdout)
}

func TestAddCommand_NoContent(t *testing.T) {
	svc := homeService()
	stdout, stderr, code := runCommand(t, &commands.AddCmd{}, svc, nil, false)

	expectCode(t, exitcode.UserError, code)
	expectOutput(t, "stdout", "", stdout)
	expectOutput(t, "stderr", "error: content required\n", stderr)
	if len(svc.Calls()) != 0 {
		t.Errorf("expected no store calls, got %v", svc.Calls())
	}
}

func TestAddCommand_ToSpecificList(t *testing.T) {
	svc := homeService()

	cmd := &commands.AddCmd{}
	cmd.SetListName("Work")
	_, _, code := runCommand(t, cmd, svc, []string{"Report"}, false)

	expectCode(t, exitcode.Success, code)
	calls := svc.MutatingCalls()
	if len(calls) != 1 || calls[0].ListID != "2" {
		t.Fatalf("expected CreateItem in list 2, got %v", calls)
	}
}

func TestAddCommand_UnknownList(t *testing.T) {
	svc := homeService()

	cmd := &commands.AddCmd{}
	cmd.SetListName("Garden")
	_, stderr, code := runCommand(t, cmd, svc, []string{"Rake"}, false)

	expectCode(t, exitcode.UserError, code)
	expectOutput(t, "stderr", "error: list not found: Garden\n", stderr)
	expectNoMutation(t, svc)
}

func TestAddCommand_Under(t *testing.T) {
	svc := homeService()

	cmd := &commands.AddCmd{}
	cmd.SetUnder("1.1")
	stdout, _, code := runCommand(t, cmd, svc, []string{"Roots"}, false)

	expectCode(t, exitcode.Success, code)
	expectOutput(t, "stdout", "ok\n", stdout)
	calls := svc.MutatingCalls()
	if len(calls) != 1 || calls[0].ParentID != "11" {
		t.Fatalf("expected CreateItem under 11, got %v", calls)
	}
}

func TestAddCommand_UnderDepthLimit(t *testing.T) {
	svc := homeService()
	svc.AddItem("1", "13", "11", "Dandelions")

	cmd := &commands.AddCmd{}
	cmd.SetUnder("1.1.1")
	stdout, stderr, code := runCommand(t, cmd, svc, []string{"Too", "deep"}, false)

	expectCode(t, exitcode.UserError, code)
	expectOutput(t, "stdout", "", stdout)
	expectOutput(t, "stderr", "error: subtasks can only be nested three levels deep\n", stderr)
	expectNoMutation(t, svc)
}

func TestAddCommand_StoreRejectsSubtask(t *testing.T) {
	svc := homeService()
	svc.CreateItemErr = fmt.Errorf("subtasks cannot have subtasks: %w", service.ErrRejected)

	cmd := &commands.AddCmd{}
	cmd.SetUnder("1.1")
	_, stderr, code := runCommand(t, cmd, svc, []string{"Roots"}, false)

	expectCode(t, exitcode.UserError, code)
	if !strings.HasPrefix(stderr, "error: ") || !strings.Contains(stderr, "subtasks cannot have subtasks") {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

// Tests for done and undone commands
func TestDoneCommand(t *testing.T) {
	svc := homeService()

	stdout, stderr, code := runCommand(t, &commands.DoneCmd{}, svc, []string{"1.1"}, false)

	expectCode(t, exitcode.Success, code)
	expectOutput(t, "stderr", "", stderr)
	expectOutput(t, "stdout", "ok\n", stdout)
	if it, _ := svc.Item("11"); !it.Completed {
		t.Error("expected task 11 completed")
	}
}

func TestDoneCommand_ByID(t *testing.T) {
	svc := homeService()

	_, _, code := runCommand(t, &commands.DoneCmd{}, svc, []string{"#12"}, false)

	expectCode(t, exitcode.Success, code)
	if it, _ := svc.Item("12"); !it.Completed {
		t.Error("expected task 12 completed")
	}
}

func TestDoneCommand_AlreadyDone(t *testing.T) {
	svc := homeService()
	svc.SetCompleted("12", true)

	stdout, stderr, code := runCommand(t, &commands.DoneCmd{}, svc, []string{"2"}, false)

	expectCode(t, exitcode.Success, code)
	expectOutput(t, "stderr", "", stderr)
	expectOutput(t, "stdout", "no change\n", stdout)
	expectNoMutation(t, svc)
}

func TestDoneCommand_BadReference(t *testing.T) {
	cases := []struct {
		args   []string
		stderr string
	}{
		{nil, "error: task reference required\n"},
		{[]string{"1", "2"}, "error: unexpected argument: 2\n"},
		{[]string{"x"}, "error: invalid task reference: x\n"},
		{[]string{"9"}, "error: task not found: 9\n"},
		{[]string{"#99"}, "error: task not found: #99\n"},
	}
	for _, tc := range cases {
		svc := homeService()
		stdout, stderr, code := runCommand(t, &commands.DoneCmd{}, svc, tc.args, false)

		expectCode(t, exitcode.UserError, code)
		expectOutput(t, "stdout", "", stdout)
		expectOutput(t, "stderr", tc.stderr, stderr)
		expectNoMutation(t, svc)
	}
}

func TestUndoneCommand(t *testing.T) {
	svc := homeService()
	svc.SetCompleted("10", true)

	stdout, _, code := runCommand(t, &commands.UndoneCmd{}, svc, []string{"1"}, false)

	expectCode(t, exitcode.Success, code)
	expectOutput(t, "stdout", "ok\n", stdout)
	if it, _ := svc.Item("10"); it.Completed {
		t.Error("expected task 10 reopened")
	}
}

func TestDoneCommand_BackendError(t *testing.T) {
	svc := homeService()
	svc.UpdateItemErr = errors.New("connection reset")

	stdout, stderr, code := runCommand(t, &commands.DoneCmd{}, svc, []string{"1"}, false)

	expectCode(t, exitcode.BackendError, code)
	expectOutput(t, "stdout", "", stdout)
	if !strings.HasPrefix(stderr, "error: backend error: ") || !strings.Contains(stderr, "connection reset") {
		t.Errorf("unexpected stderr %q", stderr)
	}
}

func TestDoneCommand_SessionLost(t *testing.T) {
	svc := homeService()
	svc.UpdateItemErr = service.ErrUnauthorized

	_, stderr, code := runCommand(t, &commands.DoneCmd{}, svc, []string{"1"}, false)

	expectCode(t, exitcode.AuthError, code)
	if !strings.Contains(stderr, "(run: tasktree login)") {
		t.Errorf("expected login hint, got %q", stderr)
	}
}

// Tests for expand and collapse commands
func TestCollapseCommand(t *testing.T) {
	svc := homeService()

	stdout, _, code := runCommand(t, &commands.CollapseCmd{}, svc, []string{"1"}, false)

	expectCode(t, exitcode.Success, code)
	expectOutput(t, "stdout", "ok\n", stdout)
	if it, _ := svc.Item("10"); it.Expanded {
		t.Error("expected task 10 collapsed")
	}
}

func TestExpandCommand_AlreadyExpanded(t *testing.T) {
	svc := homeService()

	stdout, _, code := runCommand(t, &commands.ExpandCmd{}, svc, []string{"1"}, false)

	expectCode(t, exitcode.Success, code)
	expectOutput(t, "stdout", "no change\n", stdout)
	expectNoMutation(t, svc)
}

func TestExpandCommand_Leaf(t *testing.T) {
	svc := homeService()

	_, stderr, code := runCommand(t, &commands.ExpandCmd{}, svc, []string{"2"}, false)

	expectCode(t, exitcode.UserError, code)
	expectOutput(t, "stderr", "error: task has no subtasks\n", stderr)
	expectNoMutation(t, svc)
}

// Tests for edit command
func TestEditCommand(t *testing.T) {
	svc := homeService()

	stdout, _, code := runCommand(t, &commands.EditCmd{}, svc, []string{"2", "Shop", "for", "bread"}, false)

	expectCode(t, exitcode.Success, code)
	expectOutput(t, "stdout", "ok\n", stdout)
	if it, _ := svc.Item("12"); it.Content != "Shop for bread" {
		t.Errorf("expected new content, got %q", it.Content)
	}
}

func TestEditCommand_EmptyOrUnchanged(t *testing.T) {
	for _, args := range [][]string{{"2"}, {"2", "  "}, {"2", "Shop"}} {
		svc := homeService()
		stdout, _, code := runCommand(t, &commands.EditCmd{}, svc, args, false)

		expectCode(t, exitcode.Success, code)
		expectOutput(t, "stdout", "no change\n", stdout)
		expectNoMutation(t, svc)
	}
}

func TestEditCommand_NoReference(t *testing.T) {
	_, stderr, code := runCommand(t, &commands.EditCmd{}, homeService(), nil, false)

	expectCode(t, exitcode.UserError, code)
	expectOutput(t, "stderr", "error: task reference required\n", stderr)
}

// Tests for rm command
func TestRmCommand(t *testing.T) {
	svc := homeService()

	stdout, stderr, code := runCommand(t, &commands.RmCmd{}, svc, []string{"1"}, false)

	expectCode(t, exitcode.Success, code)
	expectOutput(t, "stderr", "", stderr)
	expectOutput(t, "stdout", "ok\n", stdout)
	calls := svc.MutatingCalls()
	if len(calls) != 1 || calls[0].Method != "DeleteItem" || calls[0].ItemID != "10" {
		t.Fatalf("expected one DeleteItem of 10, got %v", calls)
	}
	for _, id := range []string{"10", "11"} {
		if _, ok := svc.Item(id); ok {
			t.Errorf("expected %s deleted", id)
		}
	}
}

func TestRmCommand_Quiet(t *testing.T) {
	stdout, _, code := runCommand(t, &commands.RmCmd{}, homeService(), []string{"2"}, true)

	expectCode(t, exitcode.Success, code)
	expectOutput(t, "stdout", "", stdout)
}

// Tests for ui command. The program itself needs a terminal; these cover
// everything before it starts.
func TestUICommand_UnexpectedArgument(t *testing.T) {
	svc := homeService()
	_, stderr, code := runCommand(t, &commands.UICmd{}, svc, []string{"Home"}, false)

	expectCode(t, exitcode.UserError, code)
	expectOutput(t, "stderr", "error: unexpected argument: Home\n", stderr)
	if len(svc.Calls()) != 0 {
		t.Errorf("expected no store calls, got %v", svc.Calls())
	}
}

func TestUICommand_NoLists(t *testing.T) {
	_, stderr, code := runCommand(t, &commands.UICmd{}, testutil.NewFakeService(), nil, false)

	expectCode(t, exitcode.UserError, code)
	if !strings.Contains(stderr, "run: tasktree createlist") {
		t.Errorf("expected hint to create a list, got %q", stderr)
	}
}

func TestUICommand_UnknownList(t *testing.T) {
	cmd := &commands.UICmd{}
	cmd.SetListName("Garage")
	_, _, code := runCommand(t, cmd, homeService(), nil, false)

	expectCode(t, exitcode.UserError, code)
}

func TestUICommand_SessionLost(t *testing.T) {
	svc := homeService()
	svc.ListListsErr = service.ErrUnauthorized
	_, stderr, code := runCommand(t, &commands.UICmd{}, svc, nil, false)

	expectCode(t, exitcode.AuthError, code)
	if !strings.HasPrefix(stderr, "error: auth error: ") {
		t.Errorf("expected auth error, got %q", stderr)
	}
}
