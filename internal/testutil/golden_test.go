package testutil_test

import (
	"testing"

	"tasktree/internal/testutil"
)

func TestGoldenDiff(t *testing.T) {
	tests := []struct {
		name string
		want string
		got  string
		msg  string
	}{
		{"equal", "a\nb\n", "a\nb\n", ""},
		{"changed line", "1       • [ ] Garden\n", "1       • [x] Garden\n", `line 1: want "1       • [ ] Garden", got "1       • [x] Garden"`},
		{"extra line", "a\n", "a\nb\n", `line 2: want "", got "b"`},
		{"missing line", "a\nb", "a", `line 2: want "b", got ""`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testutil.GoldenDiff([]byte(tt.want), []byte(tt.got)); got != tt.msg {
				t.Errorf("expected %q, got %q", tt.msg, got)
			}
		})
	}
}
