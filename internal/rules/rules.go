// Package rules holds the prose checks galley runs over masked text.
//
// Rules come in two flavours. Local rules are cheap single-regex scans the
// orchestrator runs in-process for every region. Remote rules are the
// heavier checks hosted by the analysis worker and reached through the
// worker channel. Both kinds share one shape: a stateless function over a
// line slice that reports diagnostics in document coordinates, offset by
// the base line of the slice.
package rules

import (
	"encoding/json"
	"fmt"

	"galley/internal/diag"
)

// Rule describes one check. Severity, MaxLength and MaxCount are the
// knobs overrides may turn; Check reads them from the receiver so a
// configured copy carries its own settings.
type Rule struct {
	ID          string
	Description string
	Remote      bool
	Severity    diag.Severity

	// MaxLength bounds sentence length for long-sentence.
	MaxLength int
	// MaxCount bounds commas per sentence for max-commas.
	MaxCount int

	Check func(r *Rule, lines []string, baseLine int) []diag.Diagnostic
}

// Override adjusts one rule by id. Nil or zero fields keep the default.
type Override struct {
	Enabled   *bool  `json:"enabled" toml:"enabled"`
	Severity  string `json:"severity" toml:"severity"`
	MaxLength int    `json:"max_length" toml:"max_length"`
	MaxCount  int    `json:"max_count" toml:"max_count"`
}

// Overrides maps rule ids to adjustments. On the wire a value may be a
// bare bool meaning enabled/disabled, or an object.
type Overrides map[string]Override

// UnmarshalJSON accepts both the bare-bool and the object form.
func (o *Override) UnmarshalJSON(data []byte) error {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		o.Enabled = &b
		return nil
	}
	type plain Override
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*o = Override(p)
	return nil
}

// UnmarshalTOML accepts the same two forms from galley.toml: a bare bool
// or a table with enabled/severity/max keys. The generic "max" key sets
// whichever threshold the rule reads.
func (o *Override) UnmarshalTOML(v any) error {
	switch t := v.(type) {
	case bool:
		o.Enabled = &t
		return nil
	case map[string]any:
		for key, raw := range t {
			switch key {
			case "enabled":
				b, ok := raw.(bool)
				if !ok {
					return fmt.Errorf("rule override: enabled must be a bool")
				}
				o.Enabled = &b
			case "severity":
				s, ok := raw.(string)
				if !ok {
					return fmt.Errorf("rule override: severity must be a string")
				}
				o.Severity = s
			case "max":
				n, ok := raw.(int64)
				if !ok {
					return fmt.Errorf("rule override: max must be an integer")
				}
				o.MaxLength = int(n)
				o.MaxCount = int(n)
			case "max_length":
				n, ok := raw.(int64)
				if !ok {
					return fmt.Errorf("rule override: max_length must be an integer")
				}
				o.MaxLength = int(n)
			case "max_count":
				n, ok := raw.(int64)
				if !ok {
					return fmt.Errorf("rule override: max_count must be an integer")
				}
				o.MaxCount = int(n)
			default:
				return fmt.Errorf("rule override: unknown key %q", key)
			}
		}
		return nil
	default:
		return fmt.Errorf("rule override: want bool or table, got %T", v)
	}
}

// All returns fresh default instances of every rule, local and remote.
// Callers own the returned values and may adjust them freely.
func All() []*Rule {
	return []*Rule{
		{
			ID:          "punct-spacing",
			Description: "terminal ！ or ？ must be followed by spacing or closing punctuation",
			Severity:    diag.SevError,
			Check:       checkPunctSpacing,
		},
		{
			ID:          "repeated-punct",
			Description: "repeated 。 or 、 is almost always a typo",
			Severity:    diag.SevError,
			Check:       checkRepeatedPunct,
		},
		{
			ID:          "half-width-kana",
			Description: "half-width katakana should be written full-width",
			Remote:      true,
			Severity:    diag.SevWarning,
			Check:       checkHalfWidthKana,
		},
		{
			ID:          "nfc-normalization",
			Description: "text should be NFC-normalized",
			Remote:      true,
			Severity:    diag.SevWarning,
			Check:       checkNFC,
		},
		{
			ID:          "ellipsis-style",
			Description: "ellipses should use … in pairs, not dots or middle dots",
			Remote:      true,
			Severity:    diag.SevInfo,
			Check:       checkEllipsisStyle,
		},
		{
			ID:          "repeated-word",
			Description: "the same word twice in a row",
			Remote:      true,
			Severity:    diag.SevWarning,
			Check:       checkRepeatedWord,
		},
		{
			ID:          "long-sentence",
			Description: "sentence exceeds the configured rune length",
			Remote:      true,
			Severity:    diag.SevInfo,
			MaxLength:   120,
			Check:       checkLongSentence,
		},
		{
			ID:          "max-commas",
			Description: "sentence carries too many commas",
			Remote:      true,
			Severity:    diag.SevInfo,
			MaxCount:    4,
			Check:       checkMaxCommas,
		},
		{
			ID:          "todo-marker",
			Description: "leftover TODO or FIXME marker in the draft",
			Remote:      true,
			Severity:    diag.SevInfo,
			Check:       checkTodoMarker,
		},
	}
}

// Configure applies overrides to the default set and splits it into the
// local and remote halves. Disabled rules are dropped. Unknown override
// ids are ignored so a config written for a newer rule set still loads.
func Configure(ov Overrides) (local, remote []*Rule) {
	for _, r := range All() {
		if o, found := ov[r.ID]; found {
			if o.Enabled != nil && !*o.Enabled {
				continue
			}
			if o.Severity != "" {
				r.Severity = diag.ParseSeverity(o.Severity)
			}
			if o.MaxLength > 0 {
				r.MaxLength = o.MaxLength
			}
			if o.MaxCount > 0 {
				r.MaxCount = o.MaxCount
			}
		}
		if r.Remote {
			remote = append(remote, r)
		} else {
			local = append(local, r)
		}
	}
	return local, remote
}

// Run applies every rule to the slice and concatenates the results.
func Run(rs []*Rule, lines []string, baseLine int) []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, r := range rs {
		out = append(out, r.Check(r, lines, baseLine)...)
	}
	return out
}

// Lookup finds a default rule by id, for help output.
func Lookup(id string) *Rule {
	for _, r := range All() {
		if r.ID == id {
			return r
		}
	}
	return nil
}
