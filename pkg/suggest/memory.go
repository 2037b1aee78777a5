package suggest

import (
	"sync"
)

// MemoryStore is an in-memory Store for tests and hosts that manage
// persistence themselves. Semantics mirror FileStore exactly.
type MemoryStore struct {
	mu  sync.Mutex
	all []Suggestion
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get returns all suggestions for a template/field pair.
func (ms *MemoryStore) Get(template, field string, headers []string) ([]Suggestion, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return filter(ms.all, template, field, HeadersID(headers)), nil
}

// Add persists a suggestion unless an equal one already exists.
func (ms *MemoryStore) Add(s Suggestion, headers []string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if s.HeaderID == "" {
		s.HeaderID = HeadersID(headers)
	}

	id := identityOf(s)
	for i, existing := range ms.all {
		if identityOf(existing) != id {
			continue
		}
		if s.HeaderID != "" {
			ms.all[i].HeaderID = s.HeaderID
		}
		return nil
	}
	ms.all = append(ms.all, s)
	return nil
}

// Update modifies the display text or columns of the matched suggestion.
func (ms *MemoryStore) Update(template, field string, sel Selector, upd Update) (bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	for i := range ms.all {
		if !matches(ms.all[i], template, field, sel) {
			continue
		}
		if upd.Display != nil {
			ms.all[i].Display = *upd.Display
		}
		if upd.Columns != nil {
			ms.all[i].Columns = upd.Columns
		}
		return true, nil
	}
	return false, nil
}

// Delete removes the single suggestion matched by sel.
func (ms *MemoryStore) Delete(template, field string, sel Selector) (bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	kept := ms.all[:0:0]
	removed := false
	for _, s := range ms.all {
		if !removed && matches(s, template, field, sel) {
			removed = true
			continue
		}
		kept = append(kept, s)
	}
	ms.all = kept
	return removed, nil
}

// Remove deletes all suggestions for a template/field pair of the given kind.
func (ms *MemoryStore) Remove(template, field string, kind Kind) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	tc, fc := canon(template), canon(field)
	kept := ms.all[:0:0]
	for _, s := range ms.all {
		if canon(s.Template) == tc && canon(s.Field) == fc && (kind == "" || s.Kind == kind) {
			continue
		}
		kept = append(kept, s)
	}
	ms.all = kept
	return nil
}
