package templates

// Formula strategies. Only StrategyFirstAvailable is implemented by the
// computed-field resolver; templates declaring anything else fail resolution
// with an unsupported-strategy error.
const (
	StrategyFirstAvailable = "first_available"
	StrategyAlways         = "always"
)

// Candidate type tags.
const (
	CandidateDirect  = "direct"
	CandidateDerived = "derived"
)

// Candidate is one possible way to derive a computed field's value.
// Candidates are evaluated strictly in declared order; the first viable
// candidate wins.
//
// A direct candidate is viable when any of its SourceCandidates aliases is
// present among the available columns. A derived candidate is viable when
// every named dependency has at least one acceptable alias present; its
// Expression contains $placeholder tokens substituted at resolution time.
type Candidate struct {
	Type             string              `json:"type"`
	SourceCandidates []string            `json:"source_candidates,omitempty"`
	Expression       string              `json:"expression,omitempty"`
	Dependencies     map[string][]string `json:"dependencies,omitempty"`
}

// ComputedFormula declares how a computed layer derives its target field.
type ComputedFormula struct {
	Strategy     string              `json:"strategy,omitempty"`
	Candidates   []Candidate         `json:"candidates,omitempty"`
	Expression   string              `json:"expression,omitempty"`
	Dependencies map[string][]string `json:"dependencies,omitempty"`
}

// EffectiveStrategy returns the declared strategy, defaulting to
// first_available when the template omits it.
func (f ComputedFormula) EffectiveStrategy() string {
	if f.Strategy == "" {
		return StrategyFirstAvailable
	}
	return f.Strategy
}
