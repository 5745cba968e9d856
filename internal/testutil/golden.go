package testutil

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// GoldenUpdateEnv names the variable that rewrites golden files instead of
// comparing against them.
const GoldenUpdateEnv = "GOLDEN_UPDATE"

// Golden compares got against testdata/<name>.golden.
func Golden(t *testing.T, name string, got []byte) {
	t.Helper()

	path := filepath.Join("testdata", name+".golden")

	if os.Getenv(GoldenUpdateEnv) != "" {
		if err := os.MkdirAll("testdata", 0o755); err != nil {
			t.Fatalf("golden %s: %v", name, err)
		}
		if err := os.WriteFile(path, got, 0o644); err != nil {
			t.Fatalf("golden %s: %v", name, err)
		}
		return
	}

	want, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("golden %s: %v (run with %s=1 to create it)\ngot:\n%s", name, err, GoldenUpdateEnv, got)
	}
	if msg := GoldenDiff(want, got); msg != "" {
		t.Errorf("golden %s: %s\nrun with %s=1 to accept the new tree output", name, msg, GoldenUpdateEnv)
	}
}

// GoldenDiff describes the first line where got departs from want, or
// returns "" when they are equal.
func GoldenDiff(want, got []byte) string {
	if bytes.Equal(want, got) {
		return ""
	}
	wl := bytes.Split(want, []byte("\n"))
	gl := bytes.Split(got, []byte("\n"))
	for i := 0; i < max(len(wl), len(gl)); i++ {
		var w, g []byte
		if i < len(wl) {
			w = wl[i]
		}
		if i < len(gl) {
			g = gl[i]
		}
		if i >= len(wl) || i >= len(gl) || !bytes.Equal(w, g) {
			return fmt.Sprintf("line %d: want %q, got %q", i+1, w, g)
		}
	}
	return fmt.Sprintf("want %d bytes, got %d", len(want), len(got))
}
