// Package gemini implements the engine's injected AI capabilities on the
// official genai client: free-text completion for unmapped fields and values,
// and text embeddings for the lookup cascade's similarity stage.
package gemini

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"sync"

	genai "google.golang.org/genai"

	"github.com/fieldmap/fieldmap/pkg/errors"
)

// Default models. Completion wants cheap-and-fast; matching prompts are tiny.
const (
	DefaultModel          = "gemini-2.5-flash"
	DefaultEmbeddingModel = "gemini-embedding-001"
)

// Client implements mapping.Completer and mapping.Embedder. Calls are a
// single attempt with no retries; callers treat failure as non-fatal and
// supply their own timeouts via context.
type Client struct {
	cli            *genai.Client
	model          string
	embeddingModel string

	// embedCache memoizes embeddings by input text so re-resolving the same
	// values does not re-incur API cost.
	embedCache sync.Map
}

// NewClient builds a Gemini-backed capability client. The API key comes from
// the GEMINI_API_KEY environment variable; a missing key is a construction
// error, not a call-time surprise.
func NewClient(ctx context.Context, model string) (*Client, error) {
	if os.Getenv("GEMINI_API_KEY") == "" {
		return nil, errors.ErrAPIKeyRequired
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, errors.WrapCapability("completion", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{cli: cli, model: model, embeddingModel: DefaultEmbeddingModel}, nil
}

const completePrompt = `You are matching target names to source candidates.
For each item in "items", pick the single best-matching entry from
"candidates", or "" if none is a reasonable match. Respond with a JSON object
mapping every item to its chosen candidate string.`

// CompleteUnmapped implements mapping.Completer: one JSON-mode request, one
// attempt, parsed as a {item: candidate} object.
func (c *Client) CompleteUnmapped(ctx context.Context, items, candidates []string) (map[string]string, error) {
	input, err := json.MarshalIndent(map[string][]string{
		"items":      items,
		"candidates": candidates,
	}, "", "  ")
	if err != nil {
		return nil, errors.WrapCapability("completion", err)
	}
	full := completePrompt + "\n\n[INPUT JSON]\n" + string(input)

	resp, err := c.cli.Models.GenerateContent(ctx, c.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: full}}}},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return nil, errors.WrapCapability("completion", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, errors.NewCapabilityError("completion", "empty model response", nil)
	}

	var out map[string]string
	if err := json.Unmarshal([]byte(resp.Candidates[0].Content.Parts[0].Text), &out); err != nil {
		return nil, errors.NewCapabilityError("completion", "model returned invalid JSON", err)
	}
	restrictChoices(out, candidates)
	return out, nil
}

// restrictChoices keeps only choices that name one of the candidates;
// anything else is dropped rather than written into the mapping. An exact
// match wins before the case-insensitive fallback, so candidates differing
// only in case stay individually reachable.
func restrictChoices(out map[string]string, candidates []string) {
	exact := make(map[string]bool, len(candidates))
	folded := make(map[string]string, len(candidates))
	for _, cand := range candidates {
		exact[cand] = true
		key := strings.ToLower(cand)
		if _, ok := folded[key]; !ok {
			folded[key] = cand
		}
	}
	for item, choice := range out {
		if choice == "" || exact[choice] {
			continue
		}
		if actual, ok := folded[strings.ToLower(choice)]; ok {
			out[item] = actual
		} else {
			out[item] = ""
		}
	}
}

// Embed implements mapping.Embedder with per-text memoization.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	if cached, ok := c.embedCache.Load(text); ok {
		return cached.([]float64), nil
	}

	resp, err := c.cli.Models.EmbedContent(ctx, c.embeddingModel,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}},
		nil,
	)
	if err != nil {
		return nil, errors.WrapCapability("embedding", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, errors.NewCapabilityError("embedding", "empty embedding response", nil)
	}

	values := resp.Embeddings[0].Values
	vec := make([]float64, len(values))
	for i, v := range values {
		vec[i] = float64(v)
	}
	c.embedCache.Store(text, vec)
	return vec, nil
}
