package logging_test

import (
	"bytes"
	"strings"
	"testing"

	"tasktree/internal/logging"
)

func TestNewDebugWritesRecords(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(&buf, true)

	log.Debug("fetch", "list", "A")

	got := buf.String()
	if !strings.Contains(got, "msg=fetch") || !strings.Contains(got, "list=A") {
		t.Errorf("expected debug record, got %q", got)
	}
}

func TestNewWithoutDebugDiscards(t *testing.T) {
	var buf bytes.Buffer
	log := logging.New(&buf, false)

	log.Error("boom")

	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestOrDiscardNil(t *testing.T) {
	if logging.OrDiscard(nil) == nil {
		t.Fatal("expected a logger")
	}
}
