package main

import (
	"os"
	"path/filepath"
	"testing"

	"galley/internal/config"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("text\n"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCollectFilesFromDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"))
	writeFile(t, filepath.Join(dir, "notes", "b.txt"))
	writeFile(t, filepath.Join(dir, "skip.go"))

	files, err := collectFiles([]string{dir}, config.Default())
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("files = %v, want a.md and notes/b.txt", files)
	}
}

func TestCollectFilesDeduplicates(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.md")
	writeFile(t, path)

	files, err := collectFiles([]string{path, path, dir}, config.Default())
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 {
		t.Fatalf("files = %v, want one entry", files)
	}
}

func TestCollectFilesExclude(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.md"))
	writeFile(t, filepath.Join(dir, "vendor", "b.md"))

	cfg := config.Default()
	cfg.Files.Exclude = []string{"**/vendor/**"}
	files, err := collectFiles([]string{dir}, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "a.md" {
		t.Fatalf("files = %v, want only a.md", files)
	}
}

func TestCollectFilesMissingPath(t *testing.T) {
	if _, err := collectFiles([]string{"/no/such/file.md"}, config.Default()); err == nil {
		t.Error("missing path did not error")
	}
}

func TestIsGlob(t *testing.T) {
	tests := []struct {
		arg  string
		want bool
	}{
		{"draft.md", false},
		{"chapters/*.md", true},
		{"**/*.txt", true},
		{"ch0?.md", true},
		{"{a,b}.md", true},
	}
	for _, tt := range tests {
		if got := isGlob(tt.arg); got != tt.want {
			t.Errorf("isGlob(%q) = %v, want %v", tt.arg, got, tt.want)
		}
	}
}

func TestReadColorMode(t *testing.T) {
	for value, want := range map[string]colorMode{
		"":       colorModeAuto,
		"auto":   colorModeAuto,
		"ON":     colorModeOn,
		"always": colorModeOn,
		"off":    colorModeOff,
		"never":  colorModeOff,
	} {
		got, err := readColorMode(value)
		if err != nil || got != want {
			t.Errorf("readColorMode(%q) = %v, %v", value, got, err)
		}
	}
	if _, err := readColorMode("sometimes"); err == nil {
		t.Error("invalid mode did not error")
	}
}
