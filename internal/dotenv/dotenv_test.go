package dotenv

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_SetsAndSkips(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := `# comment
export FOO=bar
QUOTED="with spaces"
SINGLE='single'
EXISTING=from_file

MALFORMED
=nokey
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}

	t.Setenv("EXISTING", "from_env")
	for _, key := range []string{"FOO", "QUOTED", "SINGLE"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	if err := Load(path); err != nil {
		t.Fatalf("load: %v", err)
	}

	if got := os.Getenv("FOO"); got != "bar" {
		t.Fatalf("FOO=%q, want bar", got)
	}
	if got := os.Getenv("QUOTED"); got != "with spaces" {
		t.Fatalf("QUOTED=%q", got)
	}
	if got := os.Getenv("SINGLE"); got != "single" {
		t.Fatalf("SINGLE=%q", got)
	}
	if got := os.Getenv("EXISTING"); got != "from_env" {
		t.Fatalf("EXISTING=%q, environment must win", got)
	}
}

func TestLoad_MissingFileIsNotAnError(t *testing.T) {
	if err := Load(filepath.Join(t.TempDir(), "nope.env")); err != nil {
		t.Fatalf("load missing: %v", err)
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line string
		key  string
		val  string
		ok   bool
	}{
		{"A=1", "A", "1", true},
		{"export B=2", "B", "2", true},
		{`C="quoted"`, "C", "quoted", true},
		{"# comment", "", "", false},
		{"", "", "", false},
		{"NOEQUALS", "", "", false},
		{"=bare", "", "", false},
	}
	for _, tc := range tests {
		key, val, ok := parseLine(tc.line)
		if key != tc.key || val != tc.val || ok != tc.ok {
			t.Fatalf("parseLine(%q)=%q/%q/%v, want %q/%q/%v", tc.line, key, val, ok, tc.key, tc.val, tc.ok)
		}
	}
}
