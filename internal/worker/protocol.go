// Package worker connects the orchestrator to the persistent analysis
// process hosting the remote rule set. The two sides speak
// newline-delimited JSON over the worker's stdin and stdout; a monotonic
// request id is the only correlation between them.
package worker

import (
	"galley/internal/diag"
	"galley/internal/rules"
)

// Command discriminates every message on the wire.
type Command string

const (
	// CmdLint asks the worker to analyze one text slice.
	CmdLint Command = "lint"
	// CmdLintResult carries the messages for an earlier CmdLint id.
	CmdLintResult Command = "lint_result"
	// CmdError reports that analysis of an id failed.
	CmdError Command = "error"
	// CmdAbort withdraws an id; fire-and-forget, no reply.
	CmdAbort Command = "abort"
	// CmdLog is an advisory worker-side log line.
	CmdLog Command = "log"
)

// Envelope is the single message shape for both directions; unused fields
// stay empty for a given command.
type Envelope struct {
	Command    Command         `json:"command"`
	ID         int64           `json:"id,omitempty"`
	Text       string          `json:"text,omitempty"`
	FileKind   string          `json:"fileKind,omitempty"`
	FilePath   string          `json:"filePath,omitempty"`
	RuleConfig rules.Overrides `json:"ruleConfig,omitempty"`
	Result     *LintResult     `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	Message    string          `json:"message,omitempty"`
}

type LintResult struct {
	Messages []RuleMessage `json:"messages"`
}

// Position is one-based on the wire, in lines and rune columns.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type Span struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// RuleMessage is the raw finding shape the worker emits. Severity is
// 0, 1 or 2, where 2 is an error.
type RuleMessage struct {
	Loc      Span   `json:"loc"`
	Message  string `json:"message"`
	Severity int    `json:"severity"`
	RuleID   string `json:"ruleId"`
}

// MessagesFromDiagnostics converts model diagnostics to wire messages,
// shifting coordinates to one-based.
func MessagesFromDiagnostics(ds []diag.Diagnostic) []RuleMessage {
	out := make([]RuleMessage, 0, len(ds))
	for _, d := range ds {
		sev := 0
		switch d.Severity {
		case diag.SevError:
			sev = 2
		case diag.SevWarning:
			sev = 1
		}
		out = append(out, RuleMessage{
			Loc: Span{
				Start: Position{Line: d.StartLine + 1, Column: d.StartCol + 1},
				End:   Position{Line: d.EndLine + 1, Column: d.EndCol + 1},
			},
			Message:  d.Message,
			Severity: sev,
			RuleID:   d.Rule,
		})
	}
	return out
}

// DiagnosticsFromMessages converts wire messages back to model
// diagnostics, shifting to zero-based coordinates. Out-of-range wire
// positions clamp to zero rather than go negative.
func DiagnosticsFromMessages(ms []RuleMessage) []diag.Diagnostic {
	out := make([]diag.Diagnostic, 0, len(ms))
	for _, m := range ms {
		sev := diag.SevInfo
		switch m.Severity {
		case 2:
			sev = diag.SevError
		case 1:
			sev = diag.SevWarning
		}
		out = append(out, diag.Diagnostic{
			Rule:      m.RuleID,
			Severity:  sev,
			Message:   m.Message,
			StartLine: clampZero(m.Loc.Start.Line - 1),
			StartCol:  clampZero(m.Loc.Start.Column - 1),
			EndLine:   clampZero(m.Loc.End.Line - 1),
			EndCol:    clampZero(m.Loc.End.Column - 1),
		})
	}
	return out
}

func clampZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
