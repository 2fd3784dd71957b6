// Package config loads galley.toml and applies the editor's settings
// overlay on top of it.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"galley/internal/rules"
)

// ManifestName is the file discovered by walking up from the working
// directory, the same way a project manifest is found.
const ManifestName = "galley.toml"

// Config is the full configuration surface. Zero values are filled by
// Default; Load decodes galley.toml over those defaults so omitted keys
// keep them.
type Config struct {
	Lint   LintConfig   `toml:"lint"`
	Worker WorkerConfig `toml:"worker"`
	Files  FilesConfig  `toml:"files"`
}

type LintConfig struct {
	Enabled        bool            `toml:"enabled"`
	LintOnAutoSave bool            `toml:"lint_on_auto_save"`
	ContextLines   int             `toml:"context_lines"`
	MaxDiagnostics int             `toml:"max_diagnostics"`
	Rules          rules.Overrides `toml:"rules"`
}

type WorkerConfig struct {
	// Command overrides the worker argv. Empty means the engine decides:
	// the LSP server spawns the current executable with "worker", the
	// one-shot CLI runs the rules in-process.
	Command []string `toml:"command"`
}

type FilesConfig struct {
	Include []string `toml:"include"`
	Exclude []string `toml:"exclude"`
}

// Default returns the configuration used when no galley.toml exists.
func Default() Config {
	return Config{
		Lint: LintConfig{
			Enabled:        true,
			LintOnAutoSave: true,
			ContextLines:   2,
			MaxDiagnostics: 100,
		},
		Files: FilesConfig{
			Include: []string{"**/*.md", "**/*.txt"},
		},
	}
}

// Find walks up from startDir looking for galley.toml.
func Find(startDir string) (string, bool, error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// Load decodes one file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: parse TOML: %w", path, err)
	}
	for _, key := range meta.Undecoded() {
		// Keys consumed by Override.UnmarshalTOML still show up as
		// undecoded; that unmarshaler rejects unknown keys itself.
		if strings.HasPrefix(key.String(), "lint.rules.") {
			continue
		}
		return Config{}, fmt.Errorf("%s: unknown key %q", path, key.String())
	}
	return cfg, nil
}

// Discover finds and loads galley.toml from startDir upward, falling
// back to defaults when there is none. The returned path is empty in the
// fallback case.
func Discover(startDir string) (Config, string, error) {
	path, found, err := Find(startDir)
	if err != nil {
		return Config{}, "", err
	}
	if !found {
		return Default(), "", nil
	}
	cfg, err := Load(path)
	if err != nil {
		return Config{}, path, err
	}
	return cfg, path, nil
}

// Settings is the editor-side overlay sent through
// workspace/didChangeConfiguration, nested under a "galley" key. Nil
// fields leave the file-derived value alone.
type Settings struct {
	Enabled        *bool           `json:"enabled"`
	LintOnAutoSave *bool           `json:"lintOnAutoSave"`
	ContextLines   *int            `json:"contextLines"`
	MaxDiagnostics *int            `json:"maxDiagnostics"`
	Rules          rules.Overrides `json:"rules"`
	WorkerCommand  []string        `json:"workerCommand"`
}

// Apply overlays s onto c, field by field. Rule overrides merge by id,
// with the overlay winning on conflicts.
func (c *Config) Apply(s Settings) {
	if s.Enabled != nil {
		c.Lint.Enabled = *s.Enabled
	}
	if s.LintOnAutoSave != nil {
		c.Lint.LintOnAutoSave = *s.LintOnAutoSave
	}
	if s.ContextLines != nil {
		c.Lint.ContextLines = *s.ContextLines
	}
	if s.MaxDiagnostics != nil {
		c.Lint.MaxDiagnostics = *s.MaxDiagnostics
	}
	if len(s.Rules) > 0 {
		if c.Lint.Rules == nil {
			c.Lint.Rules = make(rules.Overrides, len(s.Rules))
		}
		for id, o := range s.Rules {
			c.Lint.Rules[id] = o
		}
	}
	if len(s.WorkerCommand) > 0 {
		c.Worker.Command = s.WorkerCommand
	}
}
