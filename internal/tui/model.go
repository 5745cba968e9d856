// Package tui is the terminal front end: a bubbletea program over one
// view.Controller. Keyboard gestures stand in for pointer drags; every store
// call runs as a tea.Cmd through the mutation dispatcher.
package tui

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"tasktree/internal/exitcode"
	"tasktree/internal/move"
	"tasktree/internal/mutation"
	"tasktree/internal/view"
)

type mode int

const (
	modeNormal mode = iota
	modeEdit
	modeAdd
	modeSubtask
	modeConfirmDelete
	modeMoveMenu
)

type fetchedMsg struct {
	snap mutation.Snapshot
	err  error
}

type dispatchedMsg struct {
	snaps []mutation.Snapshot
	err   error
}

// grab is a keyboard drag in progress. It survives list switches.
type grab struct {
	payload move.NodeRef
	content string
}

// Model is the bubbletea model of the tree view.
type Model struct {
	ctx    context.Context
	disp   *mutation.Dispatcher
	ctrl   *view.Controller
	keys   KeyMap
	help   help.Model
	input  textinput.Model
	styles styles

	mode     mode
	cursor   int
	selected string // id of the node under the cursor
	target   string // id the open form, menu or prompt belongs to
	menu     int
	grab     *grab

	exit int
}

// New creates a model showing ctrl's list.
func New(ctx context.Context, disp *mutation.Dispatcher, ctrl *view.Controller) *Model {
	ti := textinput.New()
	ti.CharLimit = 500
	ti.Cursor.SetMode(cursor.CursorStatic)

	return &Model{
		ctx:    ctx,
		disp:   disp,
		ctrl:   ctrl,
		keys:   DefaultKeyMap(),
		help:   help.New(),
		input:  ti,
		styles: defaultStyles(),
	}
}

// Run runs the program until the user quits or ctx ends, and returns the
// exit code.
func Run(ctx context.Context, m *Model) (int, error) {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return exitcode.BackendError, err
	}
	return m.ExitCode(), nil
}

// ExitCode returns the exit code the program ended with.
func (m *Model) ExitCode() int { return m.exit }

// Init fetches the shown list.
func (m *Model) Init() tea.Cmd {
	return m.fetch(m.ctrl.ListID())
}

func (m *Model) fetch(listID string) tea.Cmd {
	disp, ctx := m.disp, m.ctx
	return func() tea.Msg {
		snap, err := disp.Fetch(ctx, listID)
		return fetchedMsg{snap: snap, err: err}
	}
}

// dispatch runs mu when the controller produced one.
func (m *Model) dispatch(mu mutation.Mutation, ok bool) tea.Cmd {
	if !ok {
		return nil
	}
	disp, ctx := m.disp, m.ctx
	return func() tea.Msg {
		snaps, err := disp.Dispatch(ctx, mu)
		return dispatchedMsg{snaps: snaps, err: err}
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case fetchedMsg:
		if msg.err != nil {
			return m, m.report(msg.err)
		}
		m.ctrl.Apply(msg.snap)
		m.clampCursor()
		return m, nil

	case dispatchedMsg:
		if msg.err != nil {
			return m, m.report(msg.err)
		}
		for _, s := range msg.snaps {
			m.ctrl.Apply(s)
		}
		m.clampCursor()
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.ForceQuit) {
			return m, tea.Quit
		}
		switch m.mode {
		case modeEdit, modeAdd, modeSubtask:
			return m, m.updateInput(msg)
		case modeConfirmDelete:
			return m, m.updateConfirm(msg)
		case modeMoveMenu:
			return m, m.updateMenu(msg)
		}
		return m, m.updateNormal(msg)
	}
	return m, nil
}

// report shows err; a lost session ends the program.
func (m *Model) report(err error) tea.Cmd {
	m.ctrl.ReportError(err)
	if m.ctrl.Deauthenticated() {
		m.exit = exitcode.AuthError
		return tea.Quit
	}
	return nil
}

func (m *Model) updateNormal(msg tea.KeyMsg) tea.Cmd {
	m.ctrl.ClearMessage()
	id := m.selected

	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.keys.NextList):
		return m.switchList(1)
	case key.Matches(msg, m.keys.PrevList):
		return m.switchList(-1)
	case key.Matches(msg, m.keys.Refresh):
		return m.fetch(m.ctrl.ListID())
	case key.Matches(msg, m.keys.Cancel):
		if m.grab != nil {
			m.ctrl.DragEnd()
			m.grab = nil
		}
	case key.Matches(msg, m.keys.Add):
		m.openInput(modeAdd, "", "")
	case key.Matches(msg, m.keys.DropTop):
		return m.drop(view.DropTarget{Zone: move.ZoneContainer})
	}

	if id == "" {
		return nil
	}
	switch {
	case key.Matches(msg, m.keys.Complete):
		return m.dispatch(m.ctrl.ToggleComplete(id))
	case key.Matches(msg, m.keys.Expand):
		return m.dispatch(m.ctrl.ToggleExpand(id))
	case key.Matches(msg, m.keys.Edit):
		if m.ctrl.BeginEdit(id) {
			m.openInput(modeEdit, id, m.ctrl.State(id).EditBuffer)
		}
	case key.Matches(msg, m.keys.Subtask):
		if m.ctrl.ToggleSubtaskForm(id) && m.ctrl.State(id).SubtaskFormOpen {
			m.openInput(modeSubtask, id, "")
		}
	case key.Matches(msg, m.keys.MoveMenu):
		if m.ctrl.ToggleMoveMenu(id) && m.ctrl.State(id).MoveMenuOpen {
			m.mode, m.target, m.menu = modeMoveMenu, id, 0
		}
	case key.Matches(msg, m.keys.Delete):
		m.mode, m.target = modeConfirmDelete, id
	case key.Matches(msg, m.keys.Grab):
		if m.grab != nil {
			m.ctrl.DragEnd()
			m.grab = nil
		}
		if payload, ok := m.ctrl.DragStart(id); ok {
			n, _ := m.ctrl.Tree().Find(id)
			m.grab = &grab{payload: payload, content: n.Content}
		}
	case key.Matches(msg, m.keys.DropLower):
		return m.drop(view.DropTarget{Zone: move.ZoneNode, NodeID: id, LowerHalf: true})
	case key.Matches(msg, m.keys.DropUpper):
		return m.drop(view.DropTarget{Zone: move.ZoneNode, NodeID: id})
	case key.Matches(msg, m.keys.DropChildren):
		return m.drop(view.DropTarget{Zone: move.ZoneChildren, NodeID: id})
	}
	return nil
}

func (m *Model) drop(target view.DropTarget) tea.Cmd {
	if m.grab == nil {
		return nil
	}
	payload := m.grab.payload
	m.grab = nil
	return m.dispatch(m.ctrl.Drop(payload, target))
}

func (m *Model) openInput(md mode, id, value string) {
	m.mode, m.target = md, id
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
}

func (m *Model) closeInput() {
	m.mode, m.target = modeNormal, ""
	m.input.Blur()
	m.input.SetValue("")
}

func (m *Model) updateInput(msg tea.KeyMsg) tea.Cmd {
	id := m.target
	switch {
	case key.Matches(msg, m.keys.Cancel):
		switch m.mode {
		case modeEdit:
			m.ctrl.CancelEdit(id)
		case modeSubtask:
			m.ctrl.ToggleSubtaskForm(id)
		}
		m.closeInput()
		return nil

	case key.Matches(msg, m.keys.Submit):
		value := m.input.Value()
		switch m.mode {
		case modeEdit:
			m.ctrl.SetEditBuffer(id, value)
			mu, ok := m.ctrl.CommitEdit(id)
			m.closeInput()
			return m.dispatch(mu, ok)
		case modeAdd:
			mu, ok := m.ctrl.CreateTask(value)
			m.closeInput()
			return m.dispatch(mu, ok)
		case modeSubtask:
			m.ctrl.SetSubtaskBuffer(id, value)
			mu, ok := m.ctrl.SubmitSubtask(id)
			if !ok && m.ctrl.State(id).SubtaskFormOpen {
				// Empty content keeps the form open
				return nil
			}
			m.closeInput()
			return m.dispatch(mu, ok)
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	switch m.mode {
	case modeEdit:
		m.ctrl.SetEditBuffer(id, m.input.Value())
	case modeSubtask:
		m.ctrl.SetSubtaskBuffer(id, m.input.Value())
	}
	return cmd
}

func (m *Model) updateConfirm(msg tea.KeyMsg) tea.Cmd {
	id := m.target
	m.mode, m.target = modeNormal, ""
	if key.Matches(msg, m.keys.Confirm) {
		return m.dispatch(m.ctrl.Delete(id))
	}
	return nil
}

func (m *Model) updateMenu(msg tea.KeyMsg) tea.Cmd {
	id := m.target
	targets := m.ctrl.MoveTargets(id)
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.menu > 0 {
			m.menu--
		}
	case key.Matches(msg, m.keys.Down):
		if m.menu < len(targets)-1 {
			m.menu++
		}
	case key.Matches(msg, m.keys.Cancel):
		m.ctrl.ToggleMoveMenu(id)
		m.mode, m.target = modeNormal, ""
	case key.Matches(msg, m.keys.Submit):
		m.mode, m.target = modeNormal, ""
		if m.menu >= len(targets) {
			return nil
		}
		return m.dispatch(m.ctrl.MoveToList(id, targets[m.menu].ID))
	}
	return nil
}

func (m *Model) moveCursor(delta int) {
	visible := m.ctrl.Tree().Visible()
	if len(visible) == 0 {
		return
	}
	prev := m.selected
	m.cursor = max(0, min(m.cursor+delta, len(visible)-1))
	m.selected = visible[m.cursor].ID
	if m.grab != nil && prev != m.selected {
		m.ctrl.DragLeave(prev, move.ZoneNode)
		m.ctrl.DragEnter(m.grab.payload, m.selected, move.ZoneNode)
	}
}

// clampCursor keeps the cursor on the selected node, or on the same row
// when the node is gone.
func (m *Model) clampCursor() {
	visible := m.ctrl.Tree().Visible()
	for i, n := range visible {
		if n.ID == m.selected {
			m.cursor = i
			return
		}
	}
	if len(visible) == 0 {
		m.cursor, m.selected = 0, ""
		return
	}
	m.cursor = max(0, min(m.cursor, len(visible)-1))
	m.selected = visible[m.cursor].ID
}

func (m *Model) switchList(delta int) tea.Cmd {
	lists := m.ctrl.Lists()
	if len(lists) < 2 {
		return nil
	}
	cur := 0
	for i, l := range lists {
		if l.ID == m.ctrl.ListID() {
			cur = i
		}
	}
	next := lists[(cur+delta+len(lists))%len(lists)]
	m.ctrl.SwitchList(next.ID)
	m.cursor, m.selected = 0, ""
	return m.fetch(next.ID)
}
