// Package templates defines the mapping template data model: a named,
// ordered sequence of layers (header, lookup, computed) plus the lookup
// dictionaries they reference. Templates load from JSON or YAML, validate
// their structural invariants, and round-trip unrecognized content verbatim
// so documents written by newer producers still load and re-export intact.
package templates

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/fieldmap/fieldmap/pkg/errors"
)

// Template is the typed, validated representation of a mapping template.
// It is immutable once loaded for a mapping session.
type Template struct {
	GUID         string              `json:"template_guid,omitempty"`
	Name         string              `json:"template_name"`
	Layers       []Layer             `json:"layers"`
	Dictionaries map[string][]string `json:"dictionaries,omitempty"`

	// extra preserves unknown top-level keys verbatim.
	extra map[string]json.RawMessage
}

// knownTopLevelKeys are the template keys decoded into typed fields;
// everything else passes through via extra.
var knownTopLevelKeys = map[string]bool{
	"template_guid": true,
	"template_name": true,
	"layers":        true,
	"dictionaries":  true,
}

// UnmarshalJSON decodes the template while preserving unknown top-level keys.
func (t *Template) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	type alias Template
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*t = Template(a)

	for k, v := range raw {
		if knownTopLevelKeys[k] {
			continue
		}
		if t.extra == nil {
			t.extra = make(map[string]json.RawMessage)
		}
		t.extra[k] = v
	}
	return nil
}

// MarshalJSON re-encodes the template, merging preserved unknown keys back in.
func (t Template) MarshalJSON() ([]byte, error) {
	merged := make(map[string]json.RawMessage, len(t.extra)+4)
	for k, v := range t.extra {
		merged[k] = v
	}

	put := func(key string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		merged[key] = b
		return nil
	}
	if t.GUID != "" {
		if err := put("template_guid", t.GUID); err != nil {
			return nil, err
		}
	}
	if err := put("template_name", t.Name); err != nil {
		return nil, err
	}
	if err := put("layers", t.Layers); err != nil {
		return nil, err
	}
	if len(t.Dictionaries) > 0 {
		if err := put("dictionaries", t.Dictionaries); err != nil {
			return nil, err
		}
	}
	return json.Marshal(merged)
}

// Dictionary returns the named lookup dictionary, or ErrNotFound.
func (t *Template) Dictionary(name string) ([]string, error) {
	values, ok := t.Dictionaries[name]
	if !ok {
		return nil, errors.NewNotFoundError("dictionary", name)
	}
	return values, nil
}

// Validate checks the template's structural invariants. It returns a
// *errors.ValidationError describing the first violation found, and never
// mutates the template.
func (t *Template) Validate() error {
	if t.Name == "" {
		return errors.NewValidationError("template_name", t.Name, "template name is required")
	}
	if t.GUID != "" {
		if _, err := uuid.Parse(t.GUID); err != nil {
			return errors.NewValidationError("template_guid", t.GUID, "not a valid UUID")
		}
	}
	if len(t.Layers) == 0 {
		return errors.NewValidationError("layers", nil, "template must contain at least one layer")
	}

	for i := range t.Layers {
		if err := t.validateLayer(i); err != nil {
			return err
		}
	}
	return nil
}

func (t *Template) validateLayer(i int) error {
	layer := &t.Layers[i]
	field := func(name string) string {
		return fmt.Sprintf("layers[%d].%s", i, name)
	}

	switch layer.Type {
	case TypeHeader:
		if layer.Header == nil || layer.Header.Fields == nil {
			return errors.NewValidationError(field("fields"), nil, "header layer requires fields")
		}
		seen := make(map[string]bool, len(layer.Header.Fields))
		for _, f := range layer.Header.Fields {
			if f.Key == "" {
				return errors.NewValidationError(field("fields"), f, "field key is required")
			}
			if seen[f.Key] {
				return errors.NewValidationError(field("fields"), f.Key, "duplicate field key")
			}
			seen[f.Key] = true
		}
	case TypeLookup:
		lk := layer.Lookup
		if lk == nil || lk.SourceField == "" {
			return errors.NewValidationError(field("source_field"), nil, "lookup layer requires source_field")
		}
		if lk.TargetField == "" {
			return errors.NewValidationError(field("target_field"), nil, "lookup layer requires target_field")
		}
		if lk.Dictionary == "" {
			return errors.NewValidationError(field("dictionary"), nil, "lookup layer requires a dictionary name")
		}
	case TypeComputed:
		cp := layer.Computed
		if cp == nil || cp.TargetField == "" {
			return errors.NewValidationError(field("target_field"), nil, "computed layer requires target_field")
		}
	case "":
		return errors.NewValidationError(field("type"), nil, "layer type is required")
	default:
		// Unknown layer types are forward-compatible passthrough.
	}
	return nil
}
