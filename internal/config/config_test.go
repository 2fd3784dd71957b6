package config

import (
	"os"
	"path/filepath"
	"testing"

	"galley/internal/rules"
)

func writeManifest(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
[lint]
lint_on_auto_save = false
context_lines = 5

[lint.rules]
max-commas = false
long-sentence = { severity = "error", max = 90 }
repeated-word = true

[files]
include = ["drafts/**/*.md"]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Lint.Enabled {
		t.Error("enabled should keep its default true")
	}
	if cfg.Lint.LintOnAutoSave {
		t.Error("lint_on_auto_save = false not applied")
	}
	if cfg.Lint.ContextLines != 5 {
		t.Errorf("ContextLines = %d, want 5", cfg.Lint.ContextLines)
	}
	if cfg.Lint.MaxDiagnostics != 100 {
		t.Errorf("MaxDiagnostics = %d, want default 100", cfg.Lint.MaxDiagnostics)
	}

	o, ok := cfg.Lint.Rules["max-commas"]
	if !ok || o.Enabled == nil || *o.Enabled {
		t.Errorf("max-commas override = %+v, want disabled", o)
	}
	o = cfg.Lint.Rules["long-sentence"]
	if o.Severity != "error" || o.MaxLength != 90 {
		t.Errorf("long-sentence override = %+v, want severity=error max=90", o)
	}
	o = cfg.Lint.Rules["repeated-word"]
	if o.Enabled == nil || !*o.Enabled {
		t.Errorf("repeated-word override = %+v, want enabled", o)
	}

	if len(cfg.Files.Include) != 1 || cfg.Files.Include[0] != "drafts/**/*.md" {
		t.Errorf("Include = %v", cfg.Files.Include)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "[lint]\ntypo_key = 1\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an unknown key")
	}
}

func TestLoadRejectsUnknownRuleOptionKeys(t *testing.T) {
	// Unknown keys inside a rule table are caught by the override
	// unmarshaler itself, not by the undecoded-key sweep.
	dir := t.TempDir()
	path := writeManifest(t, dir, "[lint.rules]\nlong-sentence = { bogus = 1 }\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an unknown rule option key")
	}
}

func TestFindWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[lint]\nenabled = true\n")
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	path, found, err := Find(nested)
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("manifest not found from nested directory")
	}
	if filepath.Dir(path) != root {
		t.Errorf("found %s, want manifest in %s", path, root)
	}
}

func TestDiscoverFallsBackToDefaults(t *testing.T) {
	cfg, path, err := Discover(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if path != "" {
		t.Errorf("path = %q, want empty for fallback", path)
	}
	if cfg.Lint.ContextLines != Default().Lint.ContextLines {
		t.Error("fallback should be Default()")
	}
}

func TestApplyOverlay(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, `
[lint]
context_lines = 5

[lint.rules]
long-sentence = { max = 90 }
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	off := false
	three := 3
	disabled := false
	cfg.Apply(Settings{
		LintOnAutoSave: &off,
		ContextLines:   &three,
		Rules: rules.Overrides{
			"long-sentence": {Enabled: &disabled},
		},
		WorkerCommand: []string{"galley-dev", "worker"},
	})

	if cfg.Lint.LintOnAutoSave {
		t.Error("overlay lintOnAutoSave = false not applied")
	}
	if cfg.Lint.ContextLines != 3 {
		t.Errorf("ContextLines = %d, want overlay value 3", cfg.Lint.ContextLines)
	}
	o := cfg.Lint.Rules["long-sentence"]
	if o.Enabled == nil || *o.Enabled {
		t.Error("overlay should win over galley.toml for long-sentence")
	}
	if len(cfg.Worker.Command) != 2 || cfg.Worker.Command[0] != "galley-dev" {
		t.Errorf("Worker.Command = %v", cfg.Worker.Command)
	}
}
