package templates

import (
	"encoding/json"

	"github.com/fieldmap/fieldmap/pkg/errors"
)

// ResolvedState is the view of a mapping session's results the exporter
// needs. It is implemented by mapping.State; defining it here keeps the
// exporter free of a dependency on the cascade packages.
type ResolvedState interface {
	// FieldMapping returns the resolved source column and/or expression for
	// a header field, with ok=false when the field is unmapped.
	FieldMapping(layer int, fieldKey string) (source, expression string, ok bool)

	// ExtraFields lists session-added ad-hoc/extra field keys for a header
	// layer, in the order they were added.
	ExtraFields(layer int) []string

	// LookupMapping returns the resolved value map for a lookup layer, or
	// nil when the layer was never resolved.
	LookupMapping(layer int) map[string]string

	// ComputedExpression returns the resolved expression for a computed
	// layer, with ok=false when the layer did not resolve to an expression.
	ComputedExpression(layer int) (string, bool)
}

// BuildOutput merges the template's structural definition with the resolved
// mapping state into a self-contained output document: the same shape as the
// template with source/expression/mapping populated, plus the process ID for
// end-to-end traceability. The input template is never mutated; the document
// is built from a deep copy. Unknown layer types pass through unchanged.
func BuildOutput(t *Template, state ResolvedState, processID string) (map[string]any, error) {
	// Marshal-then-unmarshal gives a deep copy with all preserved unknown
	// keys merged in.
	encoded, err := json.Marshal(t)
	if err != nil {
		return nil, errors.WrapParse("json", "template", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(encoded, &doc); err != nil {
		return nil, errors.WrapParse("json", "template", err)
	}

	layers, _ := doc["layers"].([]any)
	for i := range t.Layers {
		if i >= len(layers) {
			break
		}
		layerDoc, ok := layers[i].(map[string]any)
		if !ok {
			continue
		}
		switch {
		case t.Layers[i].Header != nil:
			applyHeaderState(layerDoc, i, state)
		case t.Layers[i].Lookup != nil:
			if m := state.LookupMapping(i); m != nil {
				layerDoc["mapping"] = lookupToAny(m)
			}
		case t.Layers[i].Computed != nil:
			if expr, ok := state.ComputedExpression(i); ok {
				formula, _ := layerDoc["formula"].(map[string]any)
				if formula == nil {
					formula = make(map[string]any)
					layerDoc["formula"] = formula
				}
				formula["expression"] = expr
			}
		}
	}

	doc["process_guid"] = processID
	return doc, nil
}

// applyHeaderState attaches source/expression to every declared field and
// appends session-added extra fields. Fields with neither remain present but
// unmapped; the downstream renderer treats them as empty columns.
func applyHeaderState(layerDoc map[string]any, idx int, state ResolvedState) {
	fields, _ := layerDoc["fields"].([]any)

	declared := make(map[string]bool, len(fields))
	for _, f := range fields {
		if fm, ok := f.(map[string]any); ok {
			if key, ok := fm["key"].(string); ok {
				declared[key] = true
			}
		}
	}
	for _, name := range state.ExtraFields(idx) {
		if !declared[name] {
			fields = append(fields, map[string]any{"key": name, "required": false})
			declared[name] = true
		}
	}

	for _, f := range fields {
		fm, ok := f.(map[string]any)
		if !ok {
			continue
		}
		key, _ := fm["key"].(string)
		source, expression, ok := state.FieldMapping(idx, key)
		if !ok {
			continue
		}
		if expression != "" {
			fm["expression"] = expression
			delete(fm, "source")
		} else if source != "" {
			fm["source"] = source
		}
	}
	layerDoc["fields"] = fields
}

func lookupToAny(m map[string]string) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
