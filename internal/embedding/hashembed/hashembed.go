// Package hashembed provides a deterministic, dependency-free embedding
// provider. It is not semantically meaningful in the way a real model's
// embeddings are, but it is stable across calls and reacts to shared
// words, which is enough to exercise the registry's search algorithm
// in tests without a network dependency.
package hashembed

import (
	"context"
	"hash/fnv"
	"strings"

	"github.com/fentz26/toolrouter/internal/embedding"
)

const dimensions = 64

// Provider is a hashing-based embedding.Provider.
type Provider struct{}

var _ embedding.Provider = Provider{}

// New returns a ready-to-use Provider.
func New() Provider { return Provider{} }

// Dimensions implements embedding.Provider.
func (Provider) Dimensions() int { return dimensions }

// EmbedBatch implements embedding.Provider. Each text is tokenized on
// whitespace; every token increments the bucket its hash falls into, giving
// texts that share vocabulary a nonzero cosine similarity.
func (Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = embedOne(t)
	}
	return out, nil
}

func embedOne(text string) []float32 {
	vec := make([]float32, dimensions)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[int(h.Sum32())%dimensions]++
	}
	return vec
}
