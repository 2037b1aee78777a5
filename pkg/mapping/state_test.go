package mapping

import (
	"testing"
)

func TestStateAdHocLabelDefaults(t *testing.T) {
	s := NewState()
	s.RegisterAdHoc("ADHOC_INFO1", 1)
	s.RegisterAdHoc("ADHOC_INFO2", 2)

	if label, _ := s.AdHocLabel("ADHOC_INFO1"); label != "AdHoc1" {
		t.Errorf("Expected default label 'AdHoc1', got %q", label)
	}
	if label, _ := s.AdHocLabel("ADHOC_INFO2"); label != "AdHoc2" {
		t.Errorf("Expected default label 'AdHoc2', got %q", label)
	}
	if !s.AdHocAutogenerated("ADHOC_INFO1") {
		t.Error("Labels start autogenerated")
	}
}

func TestStateAdHocLabelTracksSource(t *testing.T) {
	s := NewState()
	s.RegisterAdHoc("ADHOC_INFO1", 1)

	s.SetFieldMapping(0, "ADHOC_INFO1", FieldMapping{Source: "Commodity"})
	if label, _ := s.AdHocLabel("ADHOC_INFO1"); label != "Commodity" {
		t.Errorf("Autogenerated label should track the source column, got %q", label)
	}

	s.SetFieldMapping(0, "ADHOC_INFO1", FieldMapping{Source: "Equipment"})
	if label, _ := s.AdHocLabel("ADHOC_INFO1"); label != "Equipment" {
		t.Errorf("Label should follow a source change, got %q", label)
	}
}

func TestStateAdHocLabelPinned(t *testing.T) {
	s := NewState()
	s.RegisterAdHoc("ADHOC_INFO1", 1)

	s.SetAdHocLabel("ADHOC_INFO1", "Commodity Type")
	s.SetFieldMapping(0, "ADHOC_INFO1", FieldMapping{Source: "Equipment"})

	if label, _ := s.AdHocLabel("ADHOC_INFO1"); label != "Commodity Type" {
		t.Errorf("Edited label must stay pinned, got %q", label)
	}
	if s.AdHocAutogenerated("ADHOC_INFO1") {
		t.Error("Editing the label clears the autogenerated flag")
	}
}

func TestStateResetFieldRevertsAdHoc(t *testing.T) {
	s := NewState()
	s.RegisterAdHoc("ADHOC_INFO1", 1)
	s.SetAdHocLabel("ADHOC_INFO1", "Pinned")
	s.SetFieldMapping(0, "ADHOC_INFO1", FieldMapping{Source: "Equipment"})

	s.ResetField(0, "ADHOC_INFO1")

	if m, _ := s.FieldMappingFor(0, "ADHOC_INFO1"); m.Mapped() {
		t.Errorf("Reset must clear the mapping, got %+v", m)
	}
	if label, _ := s.AdHocLabel("ADHOC_INFO1"); label != "AdHoc1" {
		t.Errorf("Reset must revert the label to default, got %q", label)
	}
	if !s.AdHocAutogenerated("ADHOC_INFO1") {
		t.Error("Reset must re-enable autogeneration")
	}
}

func TestStateExtraFields(t *testing.T) {
	s := NewState()
	s.AddExtraField(0, "Custom 1")
	s.AddExtraField(0, "Custom 2")
	s.AddExtraField(0, "Custom 1")

	extras := s.ExtraFields(0)
	if len(extras) != 2 || extras[0] != "Custom 1" || extras[1] != "Custom 2" {
		t.Fatalf("Expected deduped ordered extras, got %v", extras)
	}

	s.RemoveExtraField(0, "Custom 1")
	extras = s.ExtraFields(0)
	if len(extras) != 1 || extras[0] != "Custom 2" {
		t.Errorf("Expected removal to keep others intact, got %v", extras)
	}
}

func TestStateResolvedStateView(t *testing.T) {
	s := NewState()
	s.SetFieldMapping(0, "Balance", FieldMapping{Source: "balance", Confidence: 1})
	s.SetFieldMapping(0, "Total", FieldMapping{Expression: "[Rate] * [Miles]"})
	s.SetLookupMapping(1, map[string]string{"yes": "Yes"})
	s.SetComputed(2, Resolution{Resolved: true, Method: MethodDerived, Expression: "[A] + [B]"})

	if src, _, ok := s.FieldMapping(0, "Balance"); !ok || src != "balance" {
		t.Errorf("FieldMapping view wrong: %q %v", src, ok)
	}
	if _, expr, ok := s.FieldMapping(0, "Total"); !ok || expr != "[Rate] * [Miles]" {
		t.Errorf("Expression view wrong: %q %v", expr, ok)
	}
	if _, _, ok := s.FieldMapping(0, "Missing"); ok {
		t.Error("Unknown field must report unmapped")
	}
	if m := s.LookupMapping(1); m["yes"] != "Yes" {
		t.Errorf("Lookup view wrong: %v", m)
	}
	if expr, ok := s.ComputedExpression(2); !ok || expr != "[A] + [B]" {
		t.Errorf("Computed view wrong: %q %v", expr, ok)
	}
	if _, ok := s.ComputedExpression(5); ok {
		t.Error("Unresolved computed layer must report no expression")
	}
}
