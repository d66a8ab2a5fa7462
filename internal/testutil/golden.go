// Package testutil provides test doubles and golden-file helpers for wdlplay.
package testutil

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// update rewrites golden files instead of comparing: go test ./... -update
var update = flag.Bool("update", false, "update golden files")

// GoldenPath returns the testdata path of a golden file.
func GoldenPath(name string) string {
	return filepath.Join("testdata", name)
}

// AssertGolden compares rendered console output against testdata/name.
// Windows line endings in the golden file are ignored.
func AssertGolden(t testing.TB, got, name string) {
	t.Helper()

	path := GoldenPath(name)

	if *update {
		if err := writeGolden(path, got); err != nil {
			t.Fatalf("update %s: %v", path, err)
			return
		}

		t.Logf("updated %s", path)

		return
	}

	data, err := os.ReadFile(path)

	switch {
	case errors.Is(err, fs.ErrNotExist):
		t.Fatalf("%s does not exist; run with -update to create it", path)
		return
	case err != nil:
		t.Fatalf("read %s: %v", path, err)
		return
	}

	want := strings.ReplaceAll(string(data), "\r\n", "\n")
	if got == want {
		return
	}

	t.Errorf("%s mismatch at %s\n\ngot:\n%s\nwant:\n%s\nrun with -update to refresh", path, firstDiff(got, want), got, want)
}

func writeGolden(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, []byte(content), 0o644)
}

// firstDiff names the first line where got and want disagree.
func firstDiff(got, want string) string {
	g := strings.Split(got, "\n")
	w := strings.Split(want, "\n")

	for i := 0; i < max(len(g), len(w)); i++ {
		var gl, wl string
		if i < len(g) {
			gl = g[i]
		}

		if i < len(w) {
			wl = w[i]
		}

		if gl != wl {
			return fmt.Sprintf("line %d: got %q, want %q", i+1, gl, wl)
		}
	}

	return "trailing newline"
}
