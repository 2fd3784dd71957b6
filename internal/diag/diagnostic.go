package diag

import "fmt"

type Diagnostic struct {
	Rule      string   `json:"rule"`
	Severity  Severity `json:"severity"`
	Message   string   `json:"message"`
	StartLine int      `json:"startLine"`
	StartCol  int      `json:"startCol"`
	EndLine   int      `json:"endLine"`
	EndCol    int      `json:"endCol"`
}

func New(rule string, sev Severity, msg string, startLine, startCol, endLine, endCol int) Diagnostic {
	return Diagnostic{
		Rule:      rule,
		Severity:  sev,
		Message:   msg,
		StartLine: startLine,
		StartCol:  startCol,
		EndLine:   endLine,
		EndCol:    endCol,
	}
}

func NewError(rule, msg string, startLine, startCol, endLine, endCol int) Diagnostic {
	return New(rule, SevError, msg, startLine, startCol, endLine, endCol)
}

// PosString renders the start position one-based for human output.
func (d Diagnostic) PosString() string {
	return fmt.Sprintf("%d:%d", d.StartLine+1, d.StartCol+1)
}

// Before orders diagnostics by start position, then end position, then
// severity (errors first), then rule id for a deterministic tie-break.
func (d Diagnostic) Before(o Diagnostic) bool {
	if d.StartLine != o.StartLine {
		return d.StartLine < o.StartLine
	}
	if d.StartCol != o.StartCol {
		return d.StartCol < o.StartCol
	}
	if d.EndLine != o.EndLine {
		return d.EndLine < o.EndLine
	}
	if d.EndCol != o.EndCol {
		return d.EndCol < o.EndCol
	}
	if d.Severity != o.Severity {
		return d.Severity > o.Severity
	}
	return d.Rule < o.Rule
}
