// Package fieldmap resolves a declarative mapping template against an
// uploaded tabular dataset whose column names, order, and casing are unknown
// in advance. A Session ties one template to one dataset and orchestrates
// suggestion-store preemption, the deterministic matching cascades, AI
// fallback, user overrides, and export of the resolved mapping document.
package fieldmap

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/fieldmap/fieldmap/pkg/errors"
	"github.com/fieldmap/fieldmap/pkg/logging"
	"github.com/fieldmap/fieldmap/pkg/mapping"
	"github.com/fieldmap/fieldmap/pkg/suggest"
	"github.com/fieldmap/fieldmap/pkg/templates"
)

// Session is one mapping session: one template resolved against one dataset.
// It exclusively owns its mapping state; sessions are not safe for concurrent
// use.
type Session struct {
	config *config
	state  *mapping.State
}

// New creates a mapping session. WithTemplate and WithColumns are required;
// the template is validated before the session is returned.
func New(opts ...Option) (*Session, error) {
	c := defaultConfig()
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.template == nil {
		return nil, errors.NewValidationError("template", nil, "a template is required")
	}
	if len(c.columns) == 0 {
		return nil, errors.NewValidationError("columns", nil, "source columns are required")
	}
	if err := c.template.Validate(); err != nil {
		return nil, err
	}

	s := &Session{config: c, state: mapping.NewState()}
	s.registerAdHocFields()
	return s, nil
}

// Template returns the session's immutable template.
func (s *Session) Template() *templates.Template { return s.config.template }

// Columns returns the dataset's source column names in source order.
func (s *Session) Columns() []string { return s.config.columns }

// State returns the session's mapping state.
func (s *Session) State() *mapping.State { return s.state }

// registerAdHocFields assigns each ad-hoc field its default ordinal label.
func (s *Session) registerAdHocFields() {
	cfg := s.headerConfig()
	prefix := cfg.AdHocPrefix
	if prefix == "" {
		prefix = mapping.DefaultAdHocPrefix
	}
	for _, layer := range s.config.template.Layers {
		if layer.Header == nil {
			continue
		}
		ordinal := 0
		for _, f := range layer.Header.Fields {
			if strings.HasPrefix(f.Key, prefix) {
				ordinal++
				s.state.RegisterAdHoc(f.Key, ordinal)
			}
		}
	}
}

func (s *Session) headerConfig() mapping.HeaderConfig {
	return mapping.HeaderConfig{
		AdHocPrefix:  s.config.adhocPrefix,
		NeverAutoMap: s.config.neverAutoMap,
	}
}

// Resolve runs suggestion-store preemption and the matching cascades for
// every layer, accumulating results in the session's state. Cascade stages
// and AI fallback never fail the run; only template authoring bugs (an
// unsupported computed strategy, a missing dictionary) are returned as
// errors.
func (s *Session) Resolve(ctx context.Context) error {
	if s.config.logger != nil {
		ctx = logging.WithLogger(ctx, s.config.logger)
	}
	ctx = logging.WithTemplate(ctx, s.config.template.Name)

	for i := range s.config.template.Layers {
		layer := &s.config.template.Layers[i]
		layerCtx := logging.WithLayer(ctx, i)
		switch {
		case layer.Header != nil:
			s.resolveHeaderLayer(layerCtx, i, layer.Header)
		case layer.Lookup != nil:
			if err := s.resolveLookupLayer(layerCtx, i, layer.Lookup); err != nil {
				return err
			}
		case layer.Computed != nil:
			if err := s.resolveComputedLayer(layerCtx, i, layer.Computed); err != nil {
				return err
			}
		default:
			logging.Ctx(layerCtx).Debug().Str("type", layer.Type).
				Msg("Skipping unrecognized layer type")
		}
	}
	return nil
}

// resolveHeaderLayer runs the header cascade for one layer: store preemption
// first, then the deterministic cascade for everything not preempted, then
// the AI fallback for required fields still unresolved.
func (s *Session) resolveHeaderLayer(ctx context.Context, idx int, layer *templates.HeaderLayer) {
	cfg := s.headerConfig()

	fieldKeys := make([]string, 0, len(layer.Fields))
	required := make(map[string]bool, len(layer.Fields))
	for _, f := range layer.Fields {
		fieldKeys = append(fieldKeys, f.Key)
		required[f.Key] = f.Required
	}

	result := mapping.SuggestFieldMapping(fieldKeys, s.config.columns, cfg)

	preempted := 0
	for _, key := range fieldKeys {
		if m, ok := s.storedMapping(ctx, key); ok {
			result[key] = m
			preempted++
		}
	}
	if preempted > 0 {
		logging.Ctx(ctx).Debug().Int("fields", preempted).
			Msg("Stored suggestions preempted the cascade")
	}

	var targets []string
	for _, key := range fieldKeys {
		if required[key] && !result[key].Mapped() {
			targets = append(targets, key)
		}
	}
	if len(targets) > 0 {
		mapping.ApplyCompleterFallback(ctx, s.config.completer, result, s.config.columns, targets, cfg)
	}

	for _, key := range fieldKeys {
		s.state.SetFieldMapping(idx, key, result[key])
	}
}

// storedMapping consults the suggestion store for a field. A direct
// suggestion applies only when its stored column still exists among the
// current source columns (case-insensitively); a formula suggestion always
// applies. Store read failure downgrades to cascade-only resolution.
func (s *Session) storedMapping(ctx context.Context, fieldKey string) (mapping.FieldMapping, bool) {
	if s.config.store == nil {
		return mapping.FieldMapping{}, false
	}

	suggestions, err := s.config.store.Get(s.config.template.Name, fieldKey, s.config.columns)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("field", fieldKey).
			Msg("Suggestion store read failed, falling back to cascade")
		return mapping.FieldMapping{}, false
	}

	for _, sg := range suggestions {
		switch sg.Kind {
		case suggest.KindDirect:
			for _, col := range sg.Columns {
				if actual, ok := s.findColumn(col); ok {
					return mapping.FieldMapping{Source: actual, Confidence: 1.0}, true
				}
			}
		case suggest.KindFormula:
			if sg.Formula == "" {
				continue
			}
			display := sg.Display
			if display == "" {
				display = sg.Formula
			}
			return mapping.FieldMapping{Expression: sg.Formula, DisplayExpression: display}, true
		}
	}
	return mapping.FieldMapping{}, false
}

// findColumn locates a source column by case-insensitive name, returning the
// column's actual casing.
func (s *Session) findColumn(name string) (string, bool) {
	for _, col := range s.config.columns {
		if strings.EqualFold(col, name) {
			return col, true
		}
	}
	return "", false
}

func (s *Session) resolveLookupLayer(ctx context.Context, idx int, layer *templates.LookupLayer) error {
	dictionary, err := s.config.template.Dictionary(layer.Dictionary)
	if err != nil {
		return err
	}

	values := s.distinctValues(layer.SourceField)
	result := mapping.SuggestLookupMapping(ctx, values, dictionary, mapping.LookupOptions{
		Embedder: s.config.embedder,
	})
	mapping.ApplyLookupCompleterFallback(ctx, s.config.completer, result, dictionary)
	s.state.SetLookupMapping(idx, result)
	return nil
}

// distinctValues returns the distinct non-empty values of a column across the
// dataset rows, in first-seen order.
func (s *Session) distinctValues(column string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, row := range s.config.rows {
		v := row[column]
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func (s *Session) resolveComputedLayer(ctx context.Context, idx int, layer *templates.ComputedLayer) error {
	res, err := mapping.ResolveComputed(layer.Formula, s.config.columns)
	if err != nil {
		return err
	}
	if !res.Resolved {
		logging.Ctx(ctx).Info().Str("target", layer.TargetField).
			Msg("Computed field did not resolve against available columns")
	}
	s.state.SetComputed(idx, res)
	return nil
}

// Confirm applies a user-confirmed or user-overridden mapping for a header
// field and persists it as a suggestion, fingerprinted against the current
// source columns, so future runs on similar data resolve it silently. A
// session without a store applies the override to state only.
func (s *Session) Confirm(layer int, fieldKey string, m mapping.FieldMapping) error {
	if !m.Mapped() {
		return errors.NewValidationError("mapping", m, "a confirmed mapping needs a source column or an expression")
	}
	if m.Expression != "" {
		if _, err := mapping.ParseExpr(m.Expression); err != nil {
			return err
		}
	}
	s.state.SetFieldMapping(layer, fieldKey, m)

	if s.config.store == nil {
		return nil
	}

	sg := suggest.Suggestion{
		Template: s.config.template.Name,
		Field:    fieldKey,
	}
	if m.Expression != "" {
		sg.Kind = suggest.KindFormula
		sg.Formula = m.Expression
		sg.Display = m.DisplayExpression
		if sg.Display == "" {
			sg.Display = m.Expression
		}
	} else {
		sg.Kind = suggest.KindDirect
		sg.Columns = []string{m.Source}
		sg.Display = m.Source
	}
	if err := s.config.store.Add(sg, s.config.columns); err != nil {
		return errors.WrapIO("persist", "suggestion", err)
	}
	return nil
}

// Forget deletes the stored suggestion backing a field's mapping, identified
// by its columns or formula text. The in-session mapping is untouched.
func (s *Session) Forget(fieldKey string, sel suggest.Selector) (bool, error) {
	if s.config.store == nil {
		return false, nil
	}
	return s.config.store.Delete(s.config.template.Name, fieldKey, sel)
}

// ResetField clears a header field's mapping; an ad-hoc field also reverts
// to its default label.
func (s *Session) ResetField(layer int, fieldKey string) {
	s.state.ResetField(layer, fieldKey)
}

// AddExtraField adds a session-scoped extra field to a header layer; it is
// exported alongside the declared fields.
func (s *Session) AddExtraField(layer int, fieldKey string) {
	s.state.AddExtraField(layer, fieldKey)
}

// SetAdHocLabel pins a user-edited display label on an ad-hoc field.
func (s *Session) SetAdHocLabel(fieldKey, label string) {
	s.state.SetAdHocLabel(fieldKey, label)
}

// Export merges the template's structure with the resolved mapping state into
// a self-contained output document carrying the given process ID. The
// template is never mutated; exporting twice with the same state yields
// documents differing only in process ID.
func (s *Session) Export(processID string) (map[string]any, error) {
	return templates.BuildOutput(s.config.template, s.state, processID)
}

// ExportJSON is Export rendered as indented JSON.
func (s *Session) ExportJSON(processID string) ([]byte, error) {
	doc, err := s.Export(processID)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(doc, "", "  ")
}
