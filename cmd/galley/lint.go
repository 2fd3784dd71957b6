package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"galley/internal/config"
	"galley/internal/diagfmt"
	"galley/internal/lint"
	"galley/internal/textutil"
	"galley/internal/ui"
)

var (
	lintFormat  string
	lintCached  bool
	lintJobs    int
	lintMaxDiag int
	lintContext int
	lintUI      string
)

func init() {
	lintCmd.Flags().StringVar(&lintFormat, "format", "pretty", "output format (pretty|json)")
	lintCmd.Flags().BoolVar(&lintCached, "cached", false, "reuse results for unchanged files from the disk cache")
	lintCmd.Flags().IntVar(&lintJobs, "jobs", 0, "files analyzed in parallel (0 = number of CPUs)")
	lintCmd.Flags().IntVar(&lintMaxDiag, "max-diagnostics", -1, "diagnostics cap per file (-1 = from config)")
	lintCmd.Flags().IntVar(&lintContext, "context", 0, "source lines shown above each finding")
	lintCmd.Flags().StringVar(&lintUI, "ui", "auto", "interactive progress (auto|on|off)")
}

var lintCmd = &cobra.Command{
	Use:          "lint [paths...]",
	Short:        "Lint drafts in one shot",
	Long: `Lint analyzes the given files, directories or globs and prints every
finding. Without arguments the include patterns from galley.toml are
used. The exit status is 1 when any finding has error severity.`,
	SilenceUsage: true,
	RunE:         runLint,
}

func runLint(cmd *cobra.Command, args []string) error {
	log, closeLog, err := setupLogger(cmd)
	if err != nil {
		return err
	}
	defer closeLog()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	color, err := useColor(cmd)
	if err != nil {
		return err
	}
	if lintFormat != "pretty" && lintFormat != "json" {
		return fmt.Errorf("unsupported format %q (must be pretty or json)", lintFormat)
	}

	files, err := collectFiles(args, cfg)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no files matched")
	}
	log.Debug().Int("files", len(files)).Msg("lint run")

	opts := lint.RunOptions{
		Rules:          cfg.Lint.Rules,
		MaxDiagnostics: cfg.Lint.MaxDiagnostics,
	}
	if lintMaxDiag >= 0 {
		opts.MaxDiagnostics = lintMaxDiag
	}
	if lintCached {
		disk, err := lint.OpenDiskCache("galley")
		if err != nil {
			return fmt.Errorf("open disk cache: %w", err)
		}
		opts.Disk = disk
	}

	quiet, _ := cmd.Flags().GetBool("quiet")
	results, err := analyzeAll(cmd.Context(), files, opts, shouldUseUI(quiet))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	rendered := make([]diagfmt.FileDiagnostics, 0, len(results))
	hasErrors := false
	total := 0
	for _, res := range results {
		fd := diagfmt.FileDiagnostics{
			Path:        res.Path,
			Diagnostics: res.Diagnostics,
			FromCache:   res.FromCache,
		}
		if lintFormat == "pretty" && len(res.Diagnostics) > 0 {
			fd.Lines = readLines(res.Path)
		}
		rendered = append(rendered, fd)
		total += len(res.Diagnostics)
		if res.HasErrors() {
			hasErrors = true
		}
	}

	if lintFormat == "json" {
		if err := diagfmt.JSON(out, rendered, diagfmt.JSONOpts{PathMode: diagfmt.PathModeAuto}); err != nil {
			return err
		}
	} else {
		diagfmt.Pretty(out, rendered, diagfmt.PrettyOpts{
			Color:      color,
			PathMode:   diagfmt.PathModeAuto,
			Context:    lintContext,
			ShowSource: true,
		})
		if !quiet {
			fmt.Fprintf(out, "%d findings in %d files\n", total, len(files))
		}
	}

	if hasErrors {
		cmd.SilenceErrors = true
		cmd.Root().SilenceErrors = true
		return fmt.Errorf("findings with error severity")
	}
	return nil
}

// analyzeAll runs every file through the engine, bounded by --jobs. With
// the interactive UI on, a Bubble Tea program consumes progress events
// while the analysis runs underneath it.
func analyzeAll(ctx context.Context, files []string, opts lint.RunOptions, withUI bool) ([]lint.FileResult, error) {
	if !withUI || len(files) < 2 {
		return analyze(ctx, files, opts, nil)
	}
	return runLintWithUI(ctx, files, opts)
}

func analyze(ctx context.Context, files []string, opts lint.RunOptions, events chan<- ui.Event) ([]lint.FileResult, error) {
	jobs := lintJobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	results := make([]lint.FileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))

	for i, path := range files {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			emit(events, ui.Event{Path: path, Status: ui.StatusRunning})
			res, err := lint.AnalyzeFile(path, opts)
			if err != nil {
				emit(events, ui.Event{Path: path, Status: ui.StatusError})
				return err
			}
			results[i] = res
			status := ui.StatusDone
			if res.FromCache {
				status = ui.StatusCached
			}
			emit(events, ui.Event{Path: path, Status: status, Diagnostics: len(res.Diagnostics)})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func emit(events chan<- ui.Event, ev ui.Event) {
	if events != nil {
		events <- ev
	}
}

func shouldUseUI(quiet bool) bool {
	mode := strings.TrimSpace(strings.ToLower(lintUI))
	switch mode {
	case "on":
		return true
	case "off":
		return false
	default:
		return !quiet && lintFormat == "pretty" && isTerminal(os.Stdout)
	}
}

// collectFiles resolves the lint targets. Arguments may be files,
// directories (searched with the include patterns) or doublestar globs;
// with no arguments the working directory is searched. Exclude patterns
// from the manifest drop matches at the end.
func collectFiles(args []string, cfg config.Config) ([]string, error) {
	if len(args) == 0 {
		args = []string{"."}
	}
	seen := make(map[string]struct{})
	var files []string
	add := func(path string) {
		path = filepath.Clean(path)
		if _, dup := seen[path]; dup {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, arg := range args {
		switch {
		case isGlob(arg):
			matches, err := doublestar.FilepathGlob(arg)
			if err != nil {
				return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
			}
			for _, m := range matches {
				add(m)
			}
		default:
			info, err := os.Stat(arg)
			if err != nil {
				return nil, err
			}
			if !info.IsDir() {
				add(arg)
				continue
			}
			matched, err := globDir(arg, cfg.Files.Include)
			if err != nil {
				return nil, err
			}
			for _, m := range matched {
				add(m)
			}
		}
	}

	if len(cfg.Files.Exclude) > 0 {
		files = dropExcluded(files, cfg.Files.Exclude)
	}
	sort.Strings(files)
	return files, nil
}

func isGlob(arg string) bool {
	return strings.ContainsAny(arg, "*?[{")
}

func globDir(dir string, include []string) ([]string, error) {
	var out []string
	for _, pattern := range include {
		matches, err := doublestar.Glob(os.DirFS(dir), pattern)
		if err != nil {
			return nil, fmt.Errorf("bad include pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			out = append(out, filepath.Join(dir, filepath.FromSlash(m)))
		}
	}
	return out, nil
}

func dropExcluded(files, exclude []string) []string {
	kept := files[:0]
	for _, f := range files {
		slashed := filepath.ToSlash(f)
		excluded := false
		for _, pattern := range exclude {
			if ok, err := doublestar.Match(pattern, slashed); err == nil && ok {
				excluded = true
				break
			}
		}
		if !excluded {
			kept = append(kept, f)
		}
	}
	return kept
}

// readLines loads a file for source display in the pretty renderer. A
// read failure just drops the context lines.
func readLines(path string) []string {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	return textutil.SplitLines(textutil.NormalizeNewlines(string(content)))
}
