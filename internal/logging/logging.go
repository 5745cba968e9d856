// Package logging builds the structured logger shared by the dispatcher,
// the backends and the terminal UI.
package logging

import (
	"io"
	"log/slog"
)

// New returns a debug-level text logger writing to w when debug is set,
// and a logger that discards everything otherwise.
func New(w io.Writer, debug bool) *slog.Logger {
	if !debug || w == nil {
		return Discard()
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Discard()
	}
	return l
}
