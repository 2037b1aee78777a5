package mapping

import (
	"strconv"

	"github.com/fieldmap/fieldmap/pkg/templates"
)

// State is the mapping state of one session: one template against one
// uploaded dataset. It is exclusively owned by its session and mutated only
// by the cascades and explicit user overrides; it implements
// templates.ResolvedState for export.
type State struct {
	header   map[int]map[string]FieldMapping
	extras   map[int][]string
	lookup   map[int]map[string]string
	computed map[int]Resolution

	adhocLabels  map[string]string
	adhocAutogen map[string]bool
	adhocDefault map[string]string
}

var _ templates.ResolvedState = (*State)(nil)

// NewState creates an empty mapping state.
func NewState() *State {
	return &State{
		header:       make(map[int]map[string]FieldMapping),
		extras:       make(map[int][]string),
		lookup:       make(map[int]map[string]string),
		computed:     make(map[int]Resolution),
		adhocLabels:  make(map[string]string),
		adhocAutogen: make(map[string]bool),
		adhocDefault: make(map[string]string),
	}
}

// RegisterAdHoc registers an ad-hoc field with its 1-based ordinal among the
// layer's ad-hoc fields. The default user-visible label is derived from the
// ordinal; registration is idempotent and keeps an existing label.
func (s *State) RegisterAdHoc(fieldKey string, ordinal int) {
	def := "AdHoc" + strconv.Itoa(ordinal)
	s.adhocDefault[fieldKey] = def
	if _, ok := s.adhocLabels[fieldKey]; !ok {
		s.adhocLabels[fieldKey] = def
		s.adhocAutogen[fieldKey] = true
	}
}

// AdHocLabel returns the user-visible label for a registered ad-hoc field.
func (s *State) AdHocLabel(fieldKey string) (string, bool) {
	label, ok := s.adhocLabels[fieldKey]
	return label, ok
}

// AdHocLabels returns all ad-hoc labels keyed by field key.
func (s *State) AdHocLabels() map[string]string {
	out := make(map[string]string, len(s.adhocLabels))
	for k, v := range s.adhocLabels {
		out[k] = v
	}
	return out
}

// AdHocAutogenerated reports whether the field's label still tracks its
// resolved source column.
func (s *State) AdHocAutogenerated(fieldKey string) bool {
	return s.adhocAutogen[fieldKey]
}

// SetAdHocLabel pins a user-edited label; it no longer tracks the mapping
// until the field is reset.
func (s *State) SetAdHocLabel(fieldKey, label string) {
	s.adhocLabels[fieldKey] = label
	s.adhocAutogen[fieldKey] = false
}

// SetFieldMapping records the mapping for a header field. While an ad-hoc
// field's label is autogenerated, a change of resolved source column resets
// the label to the new column name.
func (s *State) SetFieldMapping(layer int, fieldKey string, m FieldMapping) {
	if s.header[layer] == nil {
		s.header[layer] = make(map[string]FieldMapping)
	}
	prev := s.header[layer][fieldKey]
	s.header[layer][fieldKey] = m

	if _, isAdHoc := s.adhocDefault[fieldKey]; isAdHoc && s.adhocAutogen[fieldKey] {
		if m.Source != "" && m.Source != prev.Source {
			s.adhocLabels[fieldKey] = m.Source
		}
	}
}

// FieldMappingFor returns the recorded mapping for a header field.
func (s *State) FieldMappingFor(layer int, fieldKey string) (FieldMapping, bool) {
	m, ok := s.header[layer][fieldKey]
	return m, ok
}

// HeaderMappings returns the full mapping for a header layer.
func (s *State) HeaderMappings(layer int) map[string]FieldMapping {
	out := make(map[string]FieldMapping, len(s.header[layer]))
	for k, v := range s.header[layer] {
		out[k] = v
	}
	return out
}

// ResetField clears a header field's mapping. A registered ad-hoc field also
// reverts to its default label with autogeneration re-enabled.
func (s *State) ResetField(layer int, fieldKey string) {
	if s.header[layer] != nil {
		s.header[layer][fieldKey] = FieldMapping{}
	}
	if def, ok := s.adhocDefault[fieldKey]; ok {
		s.adhocLabels[fieldKey] = def
		s.adhocAutogen[fieldKey] = true
	}
}

// AddExtraField records a session-added field on a header layer.
func (s *State) AddExtraField(layer int, fieldKey string) {
	for _, existing := range s.extras[layer] {
		if existing == fieldKey {
			return
		}
	}
	s.extras[layer] = append(s.extras[layer], fieldKey)
	s.SetFieldMapping(layer, fieldKey, FieldMapping{})
}

// RemoveExtraField removes a session-added field and its mapping.
func (s *State) RemoveExtraField(layer int, fieldKey string) {
	kept := s.extras[layer][:0:0]
	for _, existing := range s.extras[layer] {
		if existing != fieldKey {
			kept = append(kept, existing)
		}
	}
	s.extras[layer] = kept
	delete(s.header[layer], fieldKey)
}

// SetLookupMapping records the resolved value map for a lookup layer.
func (s *State) SetLookupMapping(layer int, mapping map[string]string) {
	s.lookup[layer] = mapping
}

// SetLookupValue overrides a single resolved lookup value.
func (s *State) SetLookupValue(layer int, sourceValue, dictionaryValue string) {
	if s.lookup[layer] == nil {
		s.lookup[layer] = make(map[string]string)
	}
	s.lookup[layer][sourceValue] = dictionaryValue
}

// SetComputed records the resolution for a computed layer.
func (s *State) SetComputed(layer int, res Resolution) {
	s.computed[layer] = res
}

// ComputedFor returns the recorded resolution for a computed layer.
func (s *State) ComputedFor(layer int) (Resolution, bool) {
	res, ok := s.computed[layer]
	return res, ok
}

// FieldMapping implements templates.ResolvedState.
func (s *State) FieldMapping(layer int, fieldKey string) (source, expression string, ok bool) {
	m, ok := s.header[layer][fieldKey]
	if !ok || !m.Mapped() {
		return "", "", false
	}
	return m.Source, m.Expression, true
}

// ExtraFields implements templates.ResolvedState.
func (s *State) ExtraFields(layer int) []string {
	return s.extras[layer]
}

// LookupMapping implements templates.ResolvedState.
func (s *State) LookupMapping(layer int) map[string]string {
	return s.lookup[layer]
}

// ComputedExpression implements templates.ResolvedState.
func (s *State) ComputedExpression(layer int) (string, bool) {
	res, ok := s.computed[layer]
	if !ok || !res.Resolved || res.Expression == "" {
		return "", false
	}
	return res.Expression, true
}
