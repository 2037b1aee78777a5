package templates

import (
	"encoding/json"
	"testing"

	"github.com/fieldmap/fieldmap/pkg/errors"
)

const sampleTemplate = `{
  "template_guid": "0b92ba3c-6a2f-4a3e-9c44-111111111111",
  "template_name": "Carrier Rates",
  "custom_flag": true,
  "layers": [
    {
      "type": "header",
      "sheet": "Rates",
      "fields": [
        {"key": "Origin Zip", "required": true},
        {"key": "Balance"},
        {"key": "ADHOC_INFO1"}
      ]
    },
    {
      "type": "lookup",
      "source_field": "Hazmat",
      "target_field": "Hazmat Flag",
      "dictionary": "yes_no"
    },
    {
      "type": "computed",
      "target_field": "Linehaul Total",
      "formula": {
        "strategy": "first_available",
        "candidates": [
          {"type": "direct", "source_candidates": ["Total Miles", "Miles"]}
        ]
      }
    },
    {
      "type": "pivot",
      "mystery_setting": [1, 2, 3]
    }
  ],
  "dictionaries": {"yes_no": ["Yes", "No"]}
}`

func TestParseJSON(t *testing.T) {
	tmpl, err := ParseJSON([]byte(sampleTemplate), "sample")
	if err != nil {
		t.Fatalf("ParseJSON failed: %v", err)
	}

	if tmpl.Name != "Carrier Rates" {
		t.Errorf("Expected name 'Carrier Rates', got %q", tmpl.Name)
	}
	if len(tmpl.Layers) != 4 {
		t.Fatalf("Expected 4 layers, got %d", len(tmpl.Layers))
	}
	if tmpl.Layers[0].Header == nil || len(tmpl.Layers[0].Header.Fields) != 3 {
		t.Error("Header layer did not decode")
	}
	if tmpl.Layers[1].Lookup == nil || tmpl.Layers[1].Lookup.Dictionary != "yes_no" {
		t.Error("Lookup layer did not decode")
	}
	if tmpl.Layers[2].Computed == nil || tmpl.Layers[2].Computed.TargetField != "Linehaul Total" {
		t.Error("Computed layer did not decode")
	}
	if tmpl.Layers[3].Known() {
		t.Error("Unknown layer type must not decode a variant")
	}

	values, err := tmpl.Dictionary("yes_no")
	if err != nil || len(values) != 2 {
		t.Errorf("Dictionary lookup failed: %v %v", values, err)
	}
	if _, err := tmpl.Dictionary("missing"); !errors.IsNotFound(err) {
		t.Errorf("Expected not-found for missing dictionary, got %v", err)
	}
}

func TestTemplateRoundTripPreservesUnknownContent(t *testing.T) {
	tmpl, err := ParseJSON([]byte(sampleTemplate), "sample")
	if err != nil {
		t.Fatalf("ParseJSON failed: %v", err)
	}

	out, err := json.Marshal(tmpl)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("Re-decode failed: %v", err)
	}

	if doc["custom_flag"] != true {
		t.Error("Unknown top-level key must round-trip")
	}
	layers := doc["layers"].([]any)
	pivot := layers[3].(map[string]any)
	if pivot["type"] != "pivot" {
		t.Error("Unknown layer type must round-trip")
	}
	if _, ok := pivot["mystery_setting"]; !ok {
		t.Error("Unknown layer keys must round-trip")
	}
}

func TestLookupDictionarySheetAlias(t *testing.T) {
	doc := `{
	  "template_name": "T",
	  "layers": [
	    {"type": "lookup", "source_field": "A", "target_field": "B", "dictionary_sheet": "codes"}
	  ]
	}`

	tmpl, err := ParseJSON([]byte(doc), "alias")
	if err != nil {
		t.Fatalf("ParseJSON failed: %v", err)
	}
	if tmpl.Layers[0].Lookup.Dictionary != "codes" {
		t.Fatalf("Expected alias to populate Dictionary, got %q", tmpl.Layers[0].Lookup.Dictionary)
	}

	out, err := json.Marshal(tmpl)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var round map[string]any
	if err := json.Unmarshal(out, &round); err != nil {
		t.Fatal(err)
	}
	layer := round["layers"].([]any)[0].(map[string]any)
	if _, ok := layer["dictionary"]; ok {
		t.Error("Alias-populated dictionary must not duplicate on output")
	}
	if layer["dictionary_sheet"] != "codes" {
		t.Error("Original alias spelling must survive the round trip")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing name", `{"layers": [{"type": "header", "fields": []}]}`},
		{"bad guid", `{"template_guid": "nope", "template_name": "T", "layers": [{"type": "header", "fields": [{"key": "A"}]}]}`},
		{"no layers", `{"template_name": "T", "layers": []}`},
		{"missing layer type", `{"template_name": "T", "layers": [{}]}`},
		{"header without fields", `{"template_name": "T", "layers": [{"type": "header"}]}`},
		{"duplicate field keys", `{"template_name": "T", "layers": [{"type": "header", "fields": [{"key": "A"}, {"key": "A"}]}]}`},
		{"empty field key", `{"template_name": "T", "layers": [{"type": "header", "fields": [{"key": ""}]}]}`},
		{"lookup without source", `{"template_name": "T", "layers": [{"type": "lookup", "target_field": "B", "dictionary": "d"}]}`},
		{"lookup without dictionary", `{"template_name": "T", "layers": [{"type": "lookup", "source_field": "A", "target_field": "B"}]}`},
		{"computed without target", `{"template_name": "T", "layers": [{"type": "computed", "formula": {}}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseJSON([]byte(tt.doc), tt.name); !errors.IsValidationError(err) {
				t.Errorf("Expected validation error, got %v", err)
			}
		})
	}
}

func TestValidateNeverMutates(t *testing.T) {
	tmpl, err := ParseJSON([]byte(sampleTemplate), "sample")
	if err != nil {
		t.Fatal(err)
	}
	before, _ := json.Marshal(tmpl)
	_ = tmpl.Validate()
	after, _ := json.Marshal(tmpl)
	if string(before) != string(after) {
		t.Error("Validate must not mutate the template")
	}
}

func TestParseYAML(t *testing.T) {
	doc := []byte(`
template_name: Carrier Rates
layers:
  - type: header
    fields:
      - key: Origin Zip
        required: true
dictionaries:
  yes_no: ["Yes", "No"]
`)
	tmpl, err := ParseYAML(doc, "sample.yaml")
	if err != nil {
		t.Fatalf("ParseYAML failed: %v", err)
	}
	if tmpl.Name != "Carrier Rates" {
		t.Errorf("Expected name from YAML, got %q", tmpl.Name)
	}
	if tmpl.Layers[0].Header == nil || !tmpl.Layers[0].Header.Fields[0].Required {
		t.Error("YAML header layer did not decode")
	}
}
