// Package catalog holds the immutable server catalog and performs
// embedding-backed semantic search over it.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/fentz26/toolrouter/internal/embedding"
	"github.com/fentz26/toolrouter/internal/toolapi"
)

// ErrEmbeddingProvider is the stable kind surfaced when the embedding
// provider rejects an embedding batch. At startup this is fatal; inside
// discovery it is caught and logged by the caller.
var ErrEmbeddingProvider = errors.New("embedding provider error")

// Registry holds the immutable server catalog and, once Initialize has run,
// the embedding for each entry.
type Registry struct {
	provider embedding.Provider

	mu          sync.RWMutex
	entries     []ServerEntry
	embeddings  []embeddedEntry
	initialized bool

	similarityThreshold float64
	relativeScoreCutoff float64
	searchTopK          int
}

// New constructs a Registry over a fixed, caller-supplied catalog. The slice
// is copied; later mutation by the caller does not affect the registry.
func New(entries []ServerEntry, provider embedding.Provider, similarityThreshold, relativeScoreCutoff float64, searchTopK int) *Registry {
	cp := make([]ServerEntry, len(entries))
	for i, e := range entries {
		cp[i] = e.clone()
	}
	return &Registry{
		provider:             provider,
		entries:              cp,
		similarityThreshold:  similarityThreshold,
		relativeScoreCutoff:  relativeScoreCutoff,
		searchTopK:           searchTopK,
	}
}

// Initialize computes an embedding for every catalog entry. Safe to call
// once; a second call is a no-op after the first succeeds.
func (r *Registry) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.initialized {
		return nil
	}
	if len(r.entries) == 0 {
		r.initialized = true
		return nil
	}

	texts := make([]string, len(r.entries))
	for i, e := range r.entries {
		texts[i] = embedText(e)
	}

	vectors, err := r.provider.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEmbeddingProvider, err)
	}
	if len(vectors) != len(r.entries) {
		return fmt.Errorf("%w: expected %d vectors, got %d", ErrEmbeddingProvider, len(r.entries), len(vectors))
	}

	r.embeddings = make([]embeddedEntry, len(r.entries))
	for i, e := range r.entries {
		r.embeddings[i] = embeddedEntry{entry: e, embedding: vectors[i]}
	}
	r.initialized = true
	return nil
}

// Get returns a deep copy of the catalog entry for handle, if present.
func (r *Registry) Get(h toolapi.Handle) (ServerEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.Handle == h {
			return e.clone(), true
		}
	}
	return ServerEntry{}, false
}

// List returns a deep copy of every catalog entry, in catalog order.
func (r *Registry) List() []ServerEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ServerEntry, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.clone()
	}
	return out
}

// Search performs semantic search over the catalog following §4.1 exactly:
// max cosine similarity across all queries per entry, an absolute
// similarity_threshold floor, a relative_score_cutoff against the top score,
// descending sort with catalog-order tie-break, and a search_top_k cap
// (0 = unbounded).
func (r *Registry) Search(ctx context.Context, queries []string, excluded map[toolapi.Handle]bool, healthy func(toolapi.Handle) bool) ([]toolapi.SearchResult, error) {
	if len(queries) == 0 {
		return nil, nil
	}

	r.mu.RLock()
	embeddings := make([]embeddedEntry, len(r.embeddings))
	copy(embeddings, r.embeddings)
	r.mu.RUnlock()

	if len(embeddings) == 0 {
		return nil, nil
	}

	queryVectors, err := r.provider.EmbedBatch(ctx, queries)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingProvider, err)
	}

	type scored struct {
		idx   int
		score float64
	}

	var candidates []scored
	for i, ee := range embeddings {
		if excluded[ee.entry.Handle] {
			continue
		}
		if healthy != nil && !healthy(ee.entry.Handle) {
			continue
		}
		best := 0.0
		for _, qv := range queryVectors {
			s := cosineSimilarity(qv, ee.embedding)
			if s > best {
				best = s
			}
		}
		if best < r.similarityThreshold {
			continue
		}
		candidates = append(candidates, scored{idx: i, score: best})
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	topScore := candidates[0].score
	for _, c := range candidates {
		if c.score > topScore {
			topScore = c.score
		}
	}
	cutoff := topScore * r.relativeScoreCutoff

	var survivors []scored
	for _, c := range candidates {
		if c.score >= cutoff {
			survivors = append(survivors, c)
		}
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		if survivors[i].score != survivors[j].score {
			return survivors[i].score > survivors[j].score
		}
		return survivors[i].idx < survivors[j].idx
	})

	if r.searchTopK > 0 && len(survivors) > r.searchTopK {
		survivors = survivors[:r.searchTopK]
	}

	results := make([]toolapi.SearchResult, len(survivors))
	for i, s := range survivors {
		e := embeddings[s.idx].entry
		results[i] = toolapi.SearchResult{Handle: e.Handle, Score: s.score, Description: e.Description}
	}
	return results, nil
}

// cosineSimilarity computes the cosine similarity between two vectors. It
// returns 0 if either vector has zero norm (mirroring the zero-division
// guard used by the reference registry this was adapted from).
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	for _, v := range a {
		normA += float64(v) * float64(v)
	}
	for _, v := range b {
		normB += float64(v) * float64(v)
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
