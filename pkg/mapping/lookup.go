package mapping

import (
	"context"
	"math"

	"github.com/agext/levenshtein"

	"github.com/fieldmap/fieldmap/pkg/logging"
)

// Lookup cascade thresholds.
const (
	lookupFuzzyCutoff     = 0.85
	lookupEmbeddingCutoff = 0.60
)

// LookupOptions configures one lookup cascade run.
type LookupOptions struct {
	// Embedder enables the embedding-similarity stage; nil skips it.
	Embedder Embedder

	// Prior holds previously confirmed value corrections. Values present
	// here are pre-resolved with maximum confidence and bypass all stages.
	Prior map[string]string
}

// SuggestLookupMapping resolves each distinct source value to a canonical
// dictionary value, or "" when unresolved. Per value, first success wins:
// exact case-insensitive match, edit-distance close match (cutoff 0.85),
// then embedding cosine similarity (cutoff 0.60).
func SuggestLookupMapping(ctx context.Context, sourceValues, dictionaryValues []string, opts LookupOptions) map[string]string {
	mapping := make(map[string]string, len(sourceValues))

	lowered := make(map[string]string, len(dictionaryValues))
	for _, d := range dictionaryValues {
		if _, ok := lowered[fold(d)]; !ok {
			lowered[fold(d)] = d
		}
	}

	params := levenshtein.NewParams()
	for _, val := range sourceValues {
		if prior, ok := opts.Prior[val]; ok {
			mapping[val] = prior
			continue
		}

		if exact, ok := lowered[fold(val)]; ok {
			mapping[val] = exact
			continue
		}

		best, bestRatio := "", 0.0
		for _, d := range dictionaryValues {
			if ratio := levenshtein.Similarity(val, d, params); ratio > bestRatio {
				best, bestRatio = d, ratio
			}
		}
		if bestRatio >= lookupFuzzyCutoff {
			mapping[val] = best
			continue
		}

		mapping[val] = bestEmbeddingMatch(ctx, opts.Embedder, val, dictionaryValues)
	}
	return mapping
}

// bestEmbeddingMatch returns the dictionary value with the highest cosine
// similarity to val, or "" when below the cutoff or when the embedding
// capability is absent or failing.
func bestEmbeddingMatch(ctx context.Context, embedder Embedder, val string, candidates []string) string {
	if embedder == nil {
		return ""
	}

	valEmb, err := embedder.Embed(ctx, val)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("value", val).
			Msg("Embedding failed, leaving value unresolved")
		return ""
	}

	best, bestSim := "", 0.0
	for _, c := range candidates {
		emb, err := embedder.Embed(ctx, c)
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("value", c).
				Msg("Embedding failed for dictionary value")
			continue
		}
		if sim := cosine(valEmb, emb); sim > bestSim {
			best, bestSim = c, sim
		}
	}
	if bestSim >= lookupEmbeddingCutoff {
		return best
	}
	return ""
}

// ApplyLookupCompleterFallback fills still-unresolved values from the AI
// completion capability; failure is swallowed.
func ApplyLookupCompleterFallback(ctx context.Context, completer Completer, mapping map[string]string, dictionaryValues []string) {
	if completer == nil {
		return
	}

	var unresolved []string
	for val, resolved := range mapping {
		if resolved == "" {
			unresolved = append(unresolved, val)
		}
	}
	if len(unresolved) == 0 {
		return
	}

	suggestions, err := completer.CompleteUnmapped(ctx, unresolved, dictionaryValues)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Int("values", len(unresolved)).
			Msg("Completion fallback failed, keeping cascade results")
		return
	}
	for _, val := range unresolved {
		if match := suggestions[val]; match != "" {
			mapping[val] = match
		}
	}
}

// cosine computes cosine similarity between two vectors.
func cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, magA, magB float64
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	mag := math.Sqrt(magA) * math.Sqrt(magB)
	if mag == 0 {
		return 0
	}
	return dot / mag
}
