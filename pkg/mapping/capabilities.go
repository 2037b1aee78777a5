// Package mapping implements the mapping resolution cascades: header field
// matching, lookup value matching, computed-field candidate resolution, the
// per-session mapping state, and the scoped arithmetic expression language
// used by derived mappings. The cascades are deterministic; AI assistance is
// consumed through the Completer and Embedder capabilities injected by the
// host, and its failure is never fatal.
package mapping

import (
	"context"
)

// Completer is the externally injected free-text AI completion capability.
// The engine uses it as a last-resort fallback after the deterministic
// cascades and swallows any error it returns.
type Completer interface {
	// CompleteUnmapped asks for a best-effort assignment of each item to one
	// of the candidates, returning a partial map of item to candidate. An
	// empty string means no assignment.
	CompleteUnmapped(ctx context.Context, items, candidates []string) (map[string]string, error)
}

// Embedder is the externally injected embedding capability used by the
// lookup cascade's similarity stage. Implementations are expected to memoize
// so identical inputs do not re-incur cost.
type Embedder interface {
	// Embed returns the embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float64, error)
}

// CompleterFunc adapts a function to the Completer interface.
type CompleterFunc func(ctx context.Context, items, candidates []string) (map[string]string, error)

// CompleteUnmapped implements Completer.
func (f CompleterFunc) CompleteUnmapped(ctx context.Context, items, candidates []string) (map[string]string, error) {
	return f(ctx, items, candidates)
}

// EmbedderFunc adapts a function to the Embedder interface.
type EmbedderFunc func(ctx context.Context, text string) ([]float64, error)

// Embed implements Embedder.
func (f EmbedderFunc) Embed(ctx context.Context, text string) ([]float64, error) {
	return f(ctx, text)
}
