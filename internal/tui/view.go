package tui

import (
	"fmt"
	"strings"

	"tasktree/internal/output"
	"tasktree/internal/tree"
)

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.tabs())
	b.WriteString("\n\n")

	visible := m.ctrl.Tree().Visible()
	if len(visible) == 0 {
		b.WriteString(m.styles.faint.Render("no tasks (a to add)"))
		b.WriteString("\n")
	}
	for i, n := range visible {
		m.writeNode(&b, n, i == m.cursor)
	}

	if m.mode == modeAdd {
		fmt.Fprintf(&b, "\nnew task: %s\n", m.input.View())
	}

	b.WriteString("\n")
	switch {
	case m.mode == modeConfirmDelete:
		if n, ok := m.ctrl.Tree().Find(m.target); ok {
			fmt.Fprintf(&b, "delete %q and its subtasks? (y/n)\n", output.NormalizeTitle(n.Content))
		}
	case m.ctrl.Message() != "":
		b.WriteString(m.styles.message.Render(m.ctrl.Message()))
		b.WriteString("\n")
	case m.grab != nil:
		b.WriteString(m.styles.grabbed.Render(fmt.Sprintf("moving %q: p into, P beside, c as child, b top-level, esc cancel",
			output.NormalizeTitle(m.grab.content))))
		b.WriteString("\n")
	}

	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) tabs() string {
	var parts []string
	for _, l := range m.ctrl.Lists() {
		title := l.Title
		if strings.TrimSpace(title) == "" {
			title = "(untitled)"
		}
		if l.ID == m.ctrl.ListID() {
			parts = append(parts, m.styles.activeTab.Render("["+title+"]"))
		} else {
			parts = append(parts, m.styles.tab.Render(title))
		}
	}
	return strings.Join(parts, " ")
}

func (m *Model) writeNode(b *strings.Builder, n *tree.Node, selected bool) {
	st := m.ctrl.State(n.ID)
	indent := strings.Repeat("  ", n.Depth)

	prefix := "  "
	if selected {
		prefix = m.styles.cursor.Render("> ")
	}

	check := "[ ]"
	if n.Completed {
		check = "[x]"
	}

	content := output.NormalizeTitle(n.Content)
	switch {
	case st.Editing:
		content = m.input.View()
	case n.Completed:
		content = m.styles.completed.Render(content)
	default:
		content = m.styles.forDepth(n.Depth).Render(content)
	}

	line := fmt.Sprintf("%s%s%s %s %s", prefix, indent, output.Marker(n), check, content)
	if n.HasChildren() {
		line += m.styles.faint.Render(" (" + output.Progress(n) + ")")
	}
	switch {
	case st.Dragging:
		line += m.styles.grabbed.Render("  (moving)")
	case st.DragOverAsSibling:
		line += m.styles.dropTarget.Render("  ← drop here")
	case st.DragOverAsChild:
		line += m.styles.dropTarget.Render("  ← drop as subtask")
	}
	b.WriteString(line)
	b.WriteString("\n")

	if st.SubtaskFormOpen {
		fmt.Fprintf(b, "  %s  + %s\n", indent, m.input.View())
	}
	if st.MoveMenuOpen {
		for i, l := range m.ctrl.MoveTargets(n.ID) {
			mark := "  "
			if i == m.menu {
				mark = "> "
			}
			fmt.Fprintf(b, "  %s  %s→ %s\n", indent, mark, l.Title)
		}
	}
}
