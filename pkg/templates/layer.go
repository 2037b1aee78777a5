package templates

import (
	"encoding/json"
)

// Layer type tags recognized by the engine.
const (
	TypeHeader   = "header"
	TypeLookup   = "lookup"
	TypeComputed = "computed"
)

// FieldSpec declares one target field of a header layer. Key is the
// canonical display/target name and must be unique within its layer.
type FieldSpec struct {
	Key      string `json:"key"`
	Type     string `json:"type,omitempty"`
	Required bool   `json:"required,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

// HeaderLayer maps a set of declared target fields against source columns.
type HeaderLayer struct {
	Sheet  string      `json:"sheet,omitempty"`
	Fields []FieldSpec `json:"fields"`
}

// LookupLayer translates the distinct values of one source column into
// canonical dictionary values. Dictionary names a list stored under the
// template's dictionaries map.
type LookupLayer struct {
	Sheet       string `json:"sheet,omitempty"`
	SourceField string `json:"source_field"`
	TargetField string `json:"target_field"`
	Dictionary  string `json:"dictionary,omitempty"`
}

// ComputedLayer derives one target field from source columns via a formula.
type ComputedLayer struct {
	Sheet       string          `json:"sheet,omitempty"`
	TargetField string          `json:"target_field"`
	Formula     ComputedFormula `json:"formula"`
}

// Layer is a tagged union over the recognized layer variants. Layers with an
// unrecognized type tag are preserved verbatim and round-trip unmodified, so
// templates produced by newer producers still load.
type Layer struct {
	Type     string
	Header   *HeaderLayer
	Lookup   *LookupLayer
	Computed *ComputedLayer

	// raw holds every key of the source document, recognized or not, so
	// re-encoding preserves fields this version doesn't know about.
	raw map[string]json.RawMessage

	// dictFromAlias records that Dictionary was populated from the legacy
	// dictionary_sheet spelling, which then must not be duplicated on output.
	dictFromAlias bool
}

// Known reports whether the layer carries a variant this engine understands.
func (l *Layer) Known() bool {
	return l.Header != nil || l.Lookup != nil || l.Computed != nil
}

// UnmarshalJSON decodes the tagged union, keeping the raw document for
// forward-compatible round-tripping.
func (l *Layer) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	l.raw = raw

	if t, ok := raw["type"]; ok {
		if err := json.Unmarshal(t, &l.Type); err != nil {
			return err
		}
	}

	switch l.Type {
	case TypeHeader:
		l.Header = &HeaderLayer{}
		if err := json.Unmarshal(data, l.Header); err != nil {
			return err
		}
	case TypeLookup:
		l.Lookup = &LookupLayer{}
		if err := json.Unmarshal(data, l.Lookup); err != nil {
			return err
		}
		if l.Lookup.Dictionary == "" {
			if alias, ok := raw["dictionary_sheet"]; ok {
				if err := json.Unmarshal(alias, &l.Lookup.Dictionary); err != nil {
					return err
				}
				l.dictFromAlias = true
			}
		}
	case TypeComputed:
		l.Computed = &ComputedLayer{}
		if err := json.Unmarshal(data, l.Computed); err != nil {
			return err
		}
	}
	return nil
}

// MarshalJSON re-encodes the layer: unrecognized keys from the source
// document pass through, recognized fields overwrite them.
func (l Layer) MarshalJSON() ([]byte, error) {
	merged := make(map[string]json.RawMessage, len(l.raw)+1)
	for k, v := range l.raw {
		merged[k] = v
	}

	var typed any
	switch {
	case l.Header != nil:
		typed = l.Header
	case l.Lookup != nil:
		typed = l.Lookup
	case l.Computed != nil:
		typed = l.Computed
	}

	if typed != nil {
		b, err := json.Marshal(typed)
		if err != nil {
			return nil, err
		}
		var m map[string]json.RawMessage
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, err
		}
		for k, v := range m {
			merged[k] = v
		}
	}

	if l.dictFromAlias {
		delete(merged, "dictionary")
	}
	if l.Type != "" {
		t, err := json.Marshal(l.Type)
		if err != nil {
			return nil, err
		}
		merged["type"] = t
	}
	return json.Marshal(merged)
}

// encodeMap returns the fully merged layer document as a mutable map.
// Used by the exporter, which never mutates the Layer itself.
func (l Layer) encodeMap() (map[string]any, error) {
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}
