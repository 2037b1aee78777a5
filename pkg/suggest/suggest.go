// Package suggest persists confirmed field-mapping suggestions so that a
// user's confirmed or overridden mappings silently pre-empt the automatic
// cascade on future uploads of similar data.
package suggest

import (
	"crypto/sha1"
	"encoding/hex"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// Kind distinguishes direct column suggestions from formula suggestions.
type Kind string

// Suggestion kinds.
const (
	KindDirect  Kind = "direct"
	KindFormula Kind = "formula"
)

// Suggestion is a persisted, human-confirmed field mapping. It never
// expires; it may be deleted explicitly.
type Suggestion struct {
	Template string   `json:"template"`
	Field    string   `json:"field"`
	Kind     Kind     `json:"type"`
	Formula  string   `json:"formula,omitempty"`
	Columns  []string `json:"columns,omitempty"`
	Display  string   `json:"display,omitempty"`

	// HeaderID is an optional fingerprint of the source headers the
	// suggestion was confirmed against; lookups against the same headers
	// rank these suggestions first.
	HeaderID string `json:"header_id,omitempty"`
}

// Selector identifies a single suggestion within a template/field pair by
// its columns or its formula text. At least one must be set.
type Selector struct {
	Columns []string
	Formula string
}

// Update describes a partial modification to a stored suggestion.
type Update struct {
	Display *string
	Columns []string
}

// Store is the persistence contract for suggestions. Lookups normalize
// template and field (trim whitespace, case-fold); Add is idempotent per the
// duplicate rule: two suggestions are duplicates iff they share template,
// normalized field, kind, and columns/formula. Implementations must never
// leave a partially written store behind.
type Store interface {
	// Get returns all suggestions for a template/field pair. When headers
	// are supplied, suggestions fingerprinted against the same headers sort
	// first.
	Get(template, field string, headers []string) ([]Suggestion, error)

	// Add persists a suggestion unless an equal one already exists. The
	// optional headers fingerprint the source columns it was confirmed
	// against.
	Add(s Suggestion, headers []string) error

	// Update modifies the display text or columns of the suggestion matched
	// by sel. It reports whether a suggestion was updated.
	Update(template, field string, sel Selector, upd Update) (bool, error)

	// Delete removes the single suggestion matched by sel. It reports
	// whether a suggestion was removed.
	Delete(template, field string, sel Selector) (bool, error)

	// Remove deletes all suggestions for a template/field pair of the given
	// kind; an empty kind removes all kinds.
	Remove(template, field string, kind Kind) error
}

var foldCaser = cases.Fold()

// canon lowercases text and strips all whitespace, the normalization applied
// to template and field names on every lookup.
func canon(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return foldCaser.String(b.String())
}

func canonAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = canon(v)
	}
	return out
}

func canonEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if canon(a[i]) != canon(b[i]) {
			return false
		}
	}
	return true
}

// HeadersID fingerprints a set of source headers: sha1 of the sorted,
// canonicalized header names, truncated to 8 hex characters. Returns "" for
// no headers.
func HeadersID(headers []string) string {
	if len(headers) == 0 {
		return ""
	}
	c := canonAll(headers)
	sort.Strings(c)
	sum := sha1.Sum([]byte(strings.Join(c, "|")))
	return hex.EncodeToString(sum[:])[:8]
}

// identity is the duplicate-detection key for a suggestion.
type identity struct {
	template string
	field    string
	kind     Kind
	formula  string
	columns  string
}

func identityOf(s Suggestion) identity {
	return identity{
		template: canon(s.Template),
		field:    canon(s.Field),
		kind:     s.Kind,
		formula:  s.Formula,
		columns:  strings.Join(canonAll(s.Columns), "|"),
	}
}

// matches reports whether s belongs to the template/field pair and is
// identified by sel.
func matches(s Suggestion, template, field string, sel Selector) bool {
	if canon(s.Template) != canon(template) || canon(s.Field) != canon(field) {
		return false
	}
	if sel.Formula != "" && s.Formula == sel.Formula {
		return true
	}
	if sel.Columns != nil && canonEqual(s.Columns, sel.Columns) {
		return true
	}
	return false
}

// dedupe drops suggestions whose identity repeats, keeping first occurrence.
func dedupe(all []Suggestion) []Suggestion {
	seen := make(map[identity]bool, len(all))
	out := make([]Suggestion, 0, len(all))
	for _, s := range all {
		id := identityOf(s)
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, s)
	}
	return out
}

// filter returns the suggestions for a template/field pair, ranked so that
// entries fingerprinted against headerID come first.
func filter(all []Suggestion, template, field, headerID string) []Suggestion {
	tc, fc := canon(template), canon(field)
	var out []Suggestion
	for _, s := range all {
		if canon(s.Template) == tc && canon(s.Field) == fc {
			out = append(out, s)
		}
	}
	if headerID != "" {
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].HeaderID == headerID && out[j].HeaderID != headerID
		})
	}
	return out
}
