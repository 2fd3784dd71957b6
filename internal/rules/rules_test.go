package rules

import (
	"encoding/json"
	"testing"

	"galley/internal/diag"
)

func ruleIDs(rs []*Rule) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}

func TestConfigureSplitsLocalAndRemote(t *testing.T) {
	local, remote := Configure(nil)
	for _, r := range local {
		if r.Remote {
			t.Errorf("remote rule %q in local set", r.ID)
		}
	}
	for _, r := range remote {
		if !r.Remote {
			t.Errorf("local rule %q in remote set", r.ID)
		}
	}
	if len(local) == 0 || len(remote) == 0 {
		t.Fatalf("Configure(nil) = %d local, %d remote, want both non-empty", len(local), len(remote))
	}
	found := false
	for _, id := range ruleIDs(local) {
		if id == "punct-spacing" {
			found = true
		}
	}
	if !found {
		t.Error("punct-spacing missing from local set")
	}
}

func TestConfigureDisables(t *testing.T) {
	off := false
	local, remote := Configure(Overrides{
		"punct-spacing": {Enabled: &off},
		"todo-marker":   {Enabled: &off},
	})
	for _, id := range append(ruleIDs(local), ruleIDs(remote)...) {
		if id == "punct-spacing" || id == "todo-marker" {
			t.Errorf("disabled rule %q still present", id)
		}
	}
}

func TestConfigureAppliesKnobs(t *testing.T) {
	_, remote := Configure(Overrides{
		"long-sentence": {MaxLength: 50, Severity: "error"},
		"max-commas":    {MaxCount: 9},
	})
	for _, r := range remote {
		switch r.ID {
		case "long-sentence":
			if r.MaxLength != 50 {
				t.Errorf("long-sentence MaxLength = %d, want 50", r.MaxLength)
			}
			if r.Severity != diag.SevError {
				t.Errorf("long-sentence severity = %v, want error", r.Severity)
			}
		case "max-commas":
			if r.MaxCount != 9 {
				t.Errorf("max-commas MaxCount = %d, want 9", r.MaxCount)
			}
		}
	}
}

func TestConfigureIgnoresUnknownIDs(t *testing.T) {
	local, remote := Configure(Overrides{"future-rule": {}})
	if len(local)+len(remote) != len(All()) {
		t.Errorf("unknown override changed the rule count")
	}
}

func TestOverrideJSONForms(t *testing.T) {
	var ov Overrides
	data := []byte(`{"repeated-word": false, "long-sentence": {"max_length": 50}, "punct-spacing": true}`)
	if err := json.Unmarshal(data, &ov); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if ov["repeated-word"].Enabled == nil || *ov["repeated-word"].Enabled {
		t.Error("bare false did not disable repeated-word")
	}
	if ov["punct-spacing"].Enabled == nil || !*ov["punct-spacing"].Enabled {
		t.Error("bare true did not enable punct-spacing")
	}
	if ov["long-sentence"].MaxLength != 50 {
		t.Errorf("object form MaxLength = %d, want 50", ov["long-sentence"].MaxLength)
	}
}

func TestRunConcatenates(t *testing.T) {
	local, _ := Configure(nil)
	lines := []string{"a!b", "です。。"}
	got := Run(local, lines, 7)
	if len(got) != 2 {
		t.Fatalf("Run() returned %d diagnostics, want 2: %+v", len(got), got)
	}
	for _, d := range got {
		if d.StartLine < 7 || d.StartLine > 8 {
			t.Errorf("diagnostic line %d outside offset slice", d.StartLine)
		}
	}
}

func TestAllReturnsFreshInstances(t *testing.T) {
	first := Lookup("long-sentence")
	first.MaxLength = 1
	second := Lookup("long-sentence")
	if second.MaxLength != 120 {
		t.Errorf("default MaxLength = %d after mutating a previous instance, want 120", second.MaxLength)
	}
}
