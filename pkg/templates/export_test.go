package templates

import (
	"encoding/json"
	"reflect"
	"testing"
)

// stubState is a hand-rolled ResolvedState for exporter tests.
type stubState struct {
	fields map[string]struct{ source, expression string }
	extras []string
	lookup map[string]string
	expr   string
}

func (s *stubState) FieldMapping(_ int, key string) (string, string, bool) {
	f, ok := s.fields[key]
	if !ok {
		return "", "", false
	}
	return f.source, f.expression, true
}
func (s *stubState) ExtraFields(int) []string { return s.extras }

func (s *stubState) LookupMapping(int) map[string]string { return s.lookup }
func (s *stubState) ComputedExpression(int) (string, bool) {
	return s.expr, s.expr != ""
}

func exportState() *stubState {
	return &stubState{
		fields: map[string]struct{ source, expression string }{
			"Origin Zip": {source: "Origin Postal"},
			"Balance":    {expression: "[Rate] * [Miles]"},
			"Custom 1":   {source: "Notes"},
		},
		extras: []string{"Custom 1"},
		lookup: map[string]string{"yes": "Yes", "nah": ""},
		expr:   "[RPM] * [Miles]",
	}
}

func TestBuildOutput(t *testing.T) {
	tmpl, err := ParseJSON([]byte(sampleTemplate), "sample")
	if err != nil {
		t.Fatal(err)
	}

	doc, err := BuildOutput(tmpl, exportState(), "proc-123")
	if err != nil {
		t.Fatalf("BuildOutput failed: %v", err)
	}

	if doc["process_guid"] != "proc-123" {
		t.Errorf("Expected process_guid, got %v", doc["process_guid"])
	}
	if doc["custom_flag"] != true {
		t.Error("Unknown template keys must survive export")
	}

	layers := doc["layers"].([]any)
	header := layers[0].(map[string]any)
	fields := header["fields"].([]any)

	byKey := make(map[string]map[string]any)
	for _, f := range fields {
		fm := f.(map[string]any)
		byKey[fm["key"].(string)] = fm
	}

	if byKey["Origin Zip"]["source"] != "Origin Postal" {
		t.Errorf("Expected source on mapped field, got %v", byKey["Origin Zip"])
	}
	if byKey["Balance"]["expression"] != "[Rate] * [Miles]" {
		t.Errorf("Expected expression on derived field, got %v", byKey["Balance"])
	}
	if _, hasSource := byKey["Balance"]["source"]; hasSource {
		t.Error("Expression and source are mutually exclusive")
	}
	if _, ok := byKey["ADHOC_INFO1"]; !ok {
		t.Error("Unmapped declared fields stay present")
	}
	extra, ok := byKey["Custom 1"]
	if !ok {
		t.Fatal("Session-added extra field must be appended")
	}
	if extra["source"] != "Notes" || extra["required"] != false {
		t.Errorf("Extra field shape wrong: %v", extra)
	}

	lookup := layers[1].(map[string]any)
	mapping := lookup["mapping"].(map[string]any)
	if mapping["yes"] != "Yes" || mapping["nah"] != "" {
		t.Errorf("Lookup mapping wrong: %v", mapping)
	}

	computed := layers[2].(map[string]any)
	formula := computed["formula"].(map[string]any)
	if formula["expression"] != "[RPM] * [Miles]" {
		t.Errorf("Computed expression wrong: %v", formula)
	}

	pivot := layers[3].(map[string]any)
	if pivot["type"] != "pivot" {
		t.Error("Unknown layers pass through the exporter unchanged")
	}
}

func TestBuildOutputIdempotent(t *testing.T) {
	tmpl, err := ParseJSON([]byte(sampleTemplate), "sample")
	if err != nil {
		t.Fatal(err)
	}
	state := exportState()

	first, err := BuildOutput(tmpl, state, "proc-1")
	if err != nil {
		t.Fatal(err)
	}
	second, err := BuildOutput(tmpl, state, "proc-2")
	if err != nil {
		t.Fatal(err)
	}

	if first["process_guid"] == second["process_guid"] {
		t.Error("Process IDs should differ")
	}
	delete(first, "process_guid")
	delete(second, "process_guid")
	if !reflect.DeepEqual(first, second) {
		t.Error("Exports with identical inputs must be structurally identical")
	}
}

func TestBuildOutputNeverMutatesTemplate(t *testing.T) {
	tmpl, err := ParseJSON([]byte(sampleTemplate), "sample")
	if err != nil {
		t.Fatal(err)
	}
	before, _ := json.Marshal(tmpl)

	if _, err := BuildOutput(tmpl, exportState(), "proc-1"); err != nil {
		t.Fatal(err)
	}

	after, _ := json.Marshal(tmpl)
	if string(before) != string(after) {
		t.Error("Export must not mutate the template")
	}
}
