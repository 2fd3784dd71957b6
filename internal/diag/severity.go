package diag

// Severity defines the importance of a diagnostic.
type Severity uint8

const (
	// SevInfo is for informational diagnostics.
	SevInfo Severity = iota
	// SevWarning is for warning diagnostics.
	SevWarning
	SevError
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "INFO"
	case SevWarning:
		return "WARNING"
	case SevError:
		return "ERROR"
	}
	return "UNKNOWN"
}

// LSPCode maps the severity onto the LSP DiagnosticSeverity scale,
// where 1 is Error, 2 is Warning and 3 is Information.
func (s Severity) LSPCode() int {
	switch s {
	case SevError:
		return 1
	case SevWarning:
		return 2
	default:
		return 3
	}
}

// ParseSeverity reads the textual forms used in configuration files.
// Unknown strings fall back to SevWarning so a typo cannot silence a rule.
func ParseSeverity(s string) Severity {
	switch s {
	case "error", "ERROR":
		return SevError
	case "warning", "warn", "WARNING":
		return SevWarning
	case "info", "INFO":
		return SevInfo
	}
	return SevWarning
}
