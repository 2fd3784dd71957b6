package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"galley/internal/lint"
	"galley/internal/ui"
)

type lintOutcome struct {
	results []lint.FileResult
	err     error
}

// runLintWithUI runs the analysis behind a Bubble Tea progress view.
// The analysis goroutine owns the event channel and closes it when the
// run finishes, which quits the program.
func runLintWithUI(ctx context.Context, files []string, opts lint.RunOptions) ([]lint.FileResult, error) {
	events := make(chan ui.Event, 256)
	outcomeCh := make(chan lintOutcome, 1)

	go func() {
		results, err := analyze(ctx, files, opts, events)
		outcomeCh <- lintOutcome{results: results, err: err}
		close(events)
	}()

	model := ui.NewProgressModel("linting", files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.results, uiErr
	}
	return outcome.results, outcome.err
}
