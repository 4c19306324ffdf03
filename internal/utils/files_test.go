package utils_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/solardash-cli/internal/utils"
)

func TestSafeWriteFileCreatesParent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.txt")
	if err := utils.SafeWriteFile(path, []byte("hello")); err != nil {
		t.Fatalf("SafeWriteFile: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "hello" {
		t.Fatalf("read back %q, %v", b, err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestSafeName(t *testing.T) {
	cases := map[string]string{
		"Sierra Leone": "Sierra-Leone",
		"GHI vs Tamb":  "GHI-vs-Tamb",
		"a/b\\c":       "a-b-c",
		"  ":           "unnamed",
		"wind-rose":    "wind-rose",
	}
	for in, want := range cases {
		if got := utils.SafeName(in); got != want {
			t.Errorf("SafeName(%q) = %q, want %q", in, got, want)
		}
	}
}
