// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"tasktree/internal/service"
	"tasktree/internal/tree"
)

const (
	// ListSeparator is the separator line for list sections.
	ListSeparator = "------------"
)

// Expand markers.
const (
	MarkerExpanded  = "▾"
	MarkerCollapsed = "▸"
	MarkerLeaf      = "•"
)

// FormatListHeader formats a list section header.
func FormatListHeader(w io.Writer, title string) {
	fmt.Fprintln(w, ListSeparator)
	fmt.Fprintln(w, normalizeListTitle(title))
	fmt.Fprintln(w, ListSeparator)
}

// FormatListName formats a list name for the lists command.
// The first list is the default target of commands without --list.
func FormatListName(w io.Writer, list service.List, isDefault bool) {
	title := normalizeListTitle(list.Title)
	if isDefault {
		title += " [default]"
	}
	fmt.Fprintf(w, "%s\t%s\n", list.ID, title)
}

// FormatTree prints the tree one node per line:
//
//	{PATH:<8}{INDENT}{MARKER} [x] {TITLE} (d/t completed)
//
// INDENT is two spaces per level. Children of collapsed nodes are left out
// unless all is set.
func FormatTree(w io.Writer, t *tree.Tree, all bool) {
	var walk func(nodes []*tree.Node, prefix string)
	walk = func(nodes []*tree.Node, prefix string) {
		for i, n := range nodes {
			path := fmt.Sprintf("%s%d", prefix, i+1)
			FormatNode(w, path, n)
			if n.Expanded || all {
				walk(n.Children, path+".")
			}
		}
	}
	walk(t.Roots, "")
}

// FormatNode formats a single node line.
func FormatNode(w io.Writer, path string, n *tree.Node) {
	check := "[ ]"
	if n.Completed {
		check = "[x]"
	}
	line := fmt.Sprintf("%-8s%s%s %s %s", path, strings.Repeat("  ", n.Depth), Marker(n), check, NormalizeTitle(n.Content))
	if n.HasChildren() {
		line += " (" + Progress(n) + ")"
	}
	fmt.Fprintln(w, line)
}

// Marker returns the expand marker of a node.
func Marker(n *tree.Node) string {
	switch {
	case !n.HasChildren():
		return MarkerLeaf
	case n.Expanded:
		return MarkerExpanded
	default:
		return MarkerCollapsed
	}
}

// Progress returns "done/total completed" over the immediate children.
func Progress(n *tree.Node) string {
	done, total := n.Progress()
	return fmt.Sprintf("%d/%d completed", done, total)
}

// NormalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func NormalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}

// normalizeListTitle normalizes a list title for display.
// Empty or whitespace-only titles become "(untitled)".
func normalizeListTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
