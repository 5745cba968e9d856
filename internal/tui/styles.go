package tui

import "github.com/charmbracelet/lipgloss"

// depthColors colors task content by nesting level.
var depthColors = []lipgloss.Color{
	lipgloss.Color("#4285F4"),
	lipgloss.Color("#34A853"),
	lipgloss.Color("#A142F4"),
}

type styles struct {
	depth      []lipgloss.Style
	completed  lipgloss.Style
	cursor     lipgloss.Style
	activeTab  lipgloss.Style
	tab        lipgloss.Style
	dropTarget lipgloss.Style
	grabbed    lipgloss.Style
	message    lipgloss.Style
	faint      lipgloss.Style
}

func defaultStyles() styles {
	s := styles{
		completed:  lipgloss.NewStyle().Faint(true).Strikethrough(true),
		cursor:     lipgloss.NewStyle().Bold(true),
		activeTab:  lipgloss.NewStyle().Bold(true).Underline(true),
		tab:        lipgloss.NewStyle().Faint(true),
		dropTarget: lipgloss.NewStyle().Foreground(lipgloss.Color("#FBBC04")),
		grabbed:    lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#FBBC04")),
		message:    lipgloss.NewStyle().Foreground(lipgloss.Color("#EA4335")),
		faint:      lipgloss.NewStyle().Faint(true),
	}
	for _, c := range depthColors {
		s.depth = append(s.depth, lipgloss.NewStyle().Foreground(c))
	}
	return s
}

func (s styles) forDepth(depth int) lipgloss.Style {
	if depth >= len(s.depth) {
		depth = len(s.depth) - 1
	}
	return s.depth[depth]
}
