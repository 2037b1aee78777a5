package mapping

import (
	"sort"
	"strings"

	"github.com/fieldmap/fieldmap/pkg/errors"
	"github.com/fieldmap/fieldmap/pkg/templates"
)

// Method identifies how a computed field resolved.
type Method string

// Computed resolution methods.
const (
	MethodDirect  Method = "direct"
	MethodDerived Method = "derived"
)

// Resolution records the outcome of resolving a computed layer's formula
// against the available source columns.
type Resolution struct {
	Resolved      bool     `json:"resolved"`
	Method        Method   `json:"method,omitempty"`
	SourceColumns []string `json:"source_columns"`
	Expression    string   `json:"expression,omitempty"`
}

// ResolveComputed evaluates a formula's candidates in declared order against
// the available columns and returns the first viable candidate's resolution.
// Only the first_available strategy is implemented; any other strategy is a
// template authoring bug and fails with an unsupported-strategy error. The
// function is pure and performs no I/O.
func ResolveComputed(formula templates.ComputedFormula, availableColumns []string) (Resolution, error) {
	if strategy := formula.EffectiveStrategy(); strategy != templates.StrategyFirstAvailable {
		return Resolution{}, errors.NewStrategyError(strategy, "")
	}

	available := make(map[string]bool, len(availableColumns))
	for _, col := range availableColumns {
		available[col] = true
	}

	for _, cand := range formula.Candidates {
		switch cand.Type {
		case templates.CandidateDirect:
			if src, ok := firstAvailable(cand.SourceCandidates, available); ok {
				return Resolution{
					Resolved:      true,
					Method:        MethodDirect,
					SourceColumns: []string{src},
				}, nil
			}
		case templates.CandidateDerived:
			if res, ok := resolveDerived(cand, available); ok {
				return res, nil
			}
		}
	}

	return Resolution{SourceColumns: []string{}}, nil
}

// firstAvailable returns the first alias present among available columns.
func firstAvailable(aliases []string, available map[string]bool) (string, bool) {
	for _, alias := range aliases {
		if available[alias] {
			return alias, true
		}
	}
	return "", false
}

// resolveDerived checks that every named dependency has an acceptable alias
// available, then substitutes each $placeholder with a column reference to
// the chosen alias. Placeholders substitute longest-first so a name is never
// clobbered by a shorter prefix.
func resolveDerived(cand templates.Candidate, available map[string]bool) (Resolution, bool) {
	placeholders := make([]string, 0, len(cand.Dependencies))
	for ph := range cand.Dependencies {
		placeholders = append(placeholders, ph)
	}
	sort.Strings(placeholders)

	chosen := make(map[string]string, len(placeholders))
	sourceColumns := make([]string, 0, len(placeholders))
	for _, ph := range placeholders {
		alias, ok := firstAvailable(cand.Dependencies[ph], available)
		if !ok {
			return Resolution{}, false
		}
		chosen[ph] = alias
		sourceColumns = append(sourceColumns, alias)
	}

	byLength := make([]string, len(placeholders))
	copy(byLength, placeholders)
	sort.Slice(byLength, func(i, j int) bool { return len(byLength[i]) > len(byLength[j]) })

	expr := cand.Expression
	for _, ph := range byLength {
		expr = strings.ReplaceAll(expr, "$"+ph, ColumnRef(chosen[ph]))
	}
	// A candidate whose substituted expression doesn't parse is not viable.
	if _, err := ParseExpr(expr); err != nil {
		return Resolution{}, false
	}

	return Resolution{
		Resolved:      true,
		Method:        MethodDerived,
		SourceColumns: sourceColumns,
		Expression:    expr,
	}, true
}
