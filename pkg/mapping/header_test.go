package mapping

import (
	"context"
	"testing"

	"github.com/fieldmap/fieldmap/pkg/errors"
)

func TestSuggestFieldMappingIdentity(t *testing.T) {
	result := SuggestFieldMapping([]string{"Balance"}, []string{"balance", "amount"}, HeaderConfig{})

	m := result["Balance"]
	if m.Source != "balance" {
		t.Fatalf("Expected source 'balance', got %q", m.Source)
	}
	if m.Confidence != 1.0 {
		t.Errorf("Expected confidence 1.0, got %v", m.Confidence)
	}
}

func TestSuggestFieldMappingAdHocAlwaysUnmapped(t *testing.T) {
	result := SuggestFieldMapping(
		[]string{"ADHOC_INFO1", "ADHOC_INFO1 ignore"},
		[]string{"ADHOC_INFO1", "anything"},
		HeaderConfig{},
	)

	for key, m := range result {
		if m.Mapped() {
			t.Errorf("Ad-hoc key %q should never map, got %+v", key, m)
		}
	}
}

func TestSuggestFieldMappingCustomAdHocPrefix(t *testing.T) {
	cfg := HeaderConfig{AdHocPrefix: "XTRA"}
	result := SuggestFieldMapping([]string{"XTRA_1", "ADHOC_INFO1"}, []string{"XTRA_1", "ADHOC_INFO1"}, cfg)

	if result["XTRA_1"].Mapped() {
		t.Error("Custom-prefixed key should be exempt")
	}
	if !result["ADHOC_INFO1"].Mapped() {
		t.Error("Default prefix no longer applies once overridden")
	}
}

func TestSuggestFieldMappingNeverAutoMap(t *testing.T) {
	cfg := HeaderConfig{NeverAutoMap: []string{"LH Rate"}}
	result := SuggestFieldMapping([]string{"LH Rate"}, []string{"LH Rate"}, cfg)

	if result["LH Rate"].Mapped() {
		t.Errorf("Blocklisted key should never auto-map, got %+v", result["LH Rate"])
	}
}

func TestSuggestFieldMappingTokenStageAbbreviations(t *testing.T) {
	result := SuggestFieldMapping([]string{"Zip Code"}, []string{"Postal"}, HeaderConfig{})

	m := result["Zip Code"]
	if m.Source != "Postal" {
		t.Fatalf("Expected token stage to map 'Zip Code' to 'Postal', got %q", m.Source)
	}
	if m.Confidence < tokenMatchCutoff {
		t.Errorf("Confidence %v below token cutoff", m.Confidence)
	}
}

func TestSuggestFieldMappingTieBreakEarliestColumn(t *testing.T) {
	// Both columns are one edit away from the key; the earlier one must win.
	result := SuggestFieldMapping([]string{"Rate"}, []string{"Rater", "Ratex"}, HeaderConfig{})

	if got := result["Rate"].Source; got != "Rater" {
		t.Errorf("Expected earliest column 'Rater' on tie, got %q", got)
	}
}

func TestSuggestFieldMappingUnresolved(t *testing.T) {
	result := SuggestFieldMapping([]string{"Carrier SCAC"}, []string{"Quantity", "Weight"}, HeaderConfig{})

	if result["Carrier SCAC"].Mapped() {
		t.Errorf("Expected no mapping, got %+v", result["Carrier SCAC"])
	}
}

func TestApplyCompleterFallback(t *testing.T) {
	mapping := map[string]FieldMapping{
		"Origin":    {Source: "Origin City", Confidence: 0.9},
		"Carrier":   {},
		"ADHOC_TAG": {},
	}

	var gotItems []string
	completer := CompleterFunc(func(_ context.Context, items, candidates []string) (map[string]string, error) {
		gotItems = items
		return map[string]string{"Carrier": "SCAC"}, nil
	})

	ApplyCompleterFallback(context.Background(), completer, mapping,
		[]string{"Origin City", "SCAC"}, []string{"Carrier", "ADHOC_TAG"}, HeaderConfig{})

	if len(gotItems) != 1 || gotItems[0] != "Carrier" {
		t.Fatalf("Expected only 'Carrier' in the request payload, got %v", gotItems)
	}
	if mapping["Carrier"].Source != "SCAC" {
		t.Errorf("Expected fallback to fill 'Carrier', got %+v", mapping["Carrier"])
	}
	if mapping["Origin"].Source != "Origin City" {
		t.Errorf("Fallback must not touch already-mapped fields")
	}
}

func TestApplyCompleterFallbackSwallowsFailure(t *testing.T) {
	mapping := map[string]FieldMapping{"Carrier": {}}
	completer := CompleterFunc(func(context.Context, []string, []string) (map[string]string, error) {
		return nil, errors.NewCapabilityError("completion", "boom", nil)
	})

	ApplyCompleterFallback(context.Background(), completer, mapping,
		[]string{"SCAC"}, []string{"Carrier"}, HeaderConfig{})

	if mapping["Carrier"].Mapped() {
		t.Errorf("Failed fallback must leave the cascade result, got %+v", mapping["Carrier"])
	}
}

func TestApplyCompleterFallbackNilCompleter(t *testing.T) {
	mapping := map[string]FieldMapping{"Carrier": {}}
	ApplyCompleterFallback(context.Background(), nil, mapping, []string{"SCAC"}, []string{"Carrier"}, HeaderConfig{})

	if mapping["Carrier"].Mapped() {
		t.Errorf("Nil completer must be a no-op")
	}
}
