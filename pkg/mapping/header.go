package mapping

import (
	"context"
	"strings"

	"github.com/agext/levenshtein"

	"github.com/fieldmap/fieldmap/pkg/logging"
)

// DefaultAdHocPrefix marks fields exempt from automatic matching.
const DefaultAdHocPrefix = "ADHOC"

// Header cascade thresholds.
const (
	closeMatchCutoff = 0.75
	tokenMatchCutoff = 0.6
)

// FieldMapping is the resolved state of one header field. Source and
// Expression are mutually exclusive; a zero FieldMapping means unmapped.
type FieldMapping struct {
	Source            string  `json:"source,omitempty"`
	Confidence        float64 `json:"confidence,omitempty"`
	Expression        string  `json:"expression,omitempty"`
	DisplayExpression string  `json:"display_expression,omitempty"`
}

// Mapped reports whether the field resolved to a column or an expression.
func (m FieldMapping) Mapped() bool {
	return m.Source != "" || m.Expression != ""
}

// HeaderConfig tunes the header cascade's exemptions. The never-auto-map
// list is domain configuration, not an engine constant.
type HeaderConfig struct {
	// AdHocPrefix marks ad-hoc fields; empty means DefaultAdHocPrefix.
	AdHocPrefix string

	// NeverAutoMap lists field keys that must never be auto-populated.
	NeverAutoMap []string
}

// IsExempt reports whether a field key is exempt from automatic matching:
// either ad-hoc-prefixed or on the never-auto-map list. Exempt keys are also
// never sent to the AI completion fallback.
func (c HeaderConfig) IsExempt(fieldKey string) bool {
	prefix := c.AdHocPrefix
	if prefix == "" {
		prefix = DefaultAdHocPrefix
	}
	if strings.HasPrefix(fieldKey, prefix) {
		return true
	}
	for _, blocked := range c.NeverAutoMap {
		if fieldKey == blocked {
			return true
		}
	}
	return false
}

// SuggestFieldMapping resolves each field key to a source column, or leaves
// it unmapped. Per key, first success wins: ad-hoc exemption, then
// edit-distance close match against case-folded columns (cutoff 0.75), then
// abbreviation-expanded token-set Jaccard similarity (cutoff 0.6). Ties
// break deterministically in favor of the earliest source column.
func SuggestFieldMapping(fieldKeys, sourceColumns []string, cfg HeaderConfig) map[string]FieldMapping {
	out := make(map[string]FieldMapping, len(fieldKeys))

	folded := make([]string, len(sourceColumns))
	for i, col := range sourceColumns {
		folded[i] = fold(col)
	}

	params := levenshtein.NewParams()
	for _, key := range fieldKeys {
		if cfg.IsExempt(key) {
			out[key] = FieldMapping{}
			continue
		}

		keyFolded := fold(key)
		bestIdx, bestRatio := -1, 0.0
		for i, col := range folded {
			if ratio := levenshtein.Similarity(keyFolded, col, params); ratio > bestRatio {
				bestIdx, bestRatio = i, ratio
			}
		}
		if bestIdx >= 0 && bestRatio >= closeMatchCutoff {
			out[key] = FieldMapping{Source: sourceColumns[bestIdx], Confidence: bestRatio}
			continue
		}

		keyTokens := tokenize(key)
		bestIdx, bestScore := -1, 0.0
		for i, col := range sourceColumns {
			if score := tokenSimilarity(keyTokens, tokenize(col)); score > bestScore {
				bestIdx, bestScore = i, score
			}
		}
		if bestIdx >= 0 && bestScore >= tokenMatchCutoff {
			out[key] = FieldMapping{Source: sourceColumns[bestIdx], Confidence: bestScore}
			continue
		}

		out[key] = FieldMapping{}
	}
	return out
}

// ApplyCompleterFallback fills still-unmapped fields from the AI completion
// capability. Only the targeted keys are sent, and exempt keys never are.
// Capability failure is swallowed: the deterministic mapping stands.
func ApplyCompleterFallback(ctx context.Context, completer Completer, mapping map[string]FieldMapping, sourceColumns, targets []string, cfg HeaderConfig) {
	if completer == nil {
		return
	}

	targetSet := make(map[string]bool, len(targets))
	for _, t := range targets {
		targetSet[t] = true
	}

	var unmapped []string
	for key, m := range mapping {
		if m.Mapped() || cfg.IsExempt(key) {
			continue
		}
		if targets != nil && !targetSet[key] {
			continue
		}
		unmapped = append(unmapped, key)
	}
	if len(unmapped) == 0 {
		return
	}

	suggestions, err := completer.CompleteUnmapped(ctx, unmapped, sourceColumns)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Int("fields", len(unmapped)).
			Msg("Completion fallback failed, keeping cascade results")
		return
	}

	for _, key := range unmapped {
		if col := suggestions[key]; col != "" {
			mapping[key] = FieldMapping{Source: col}
		}
	}
}
