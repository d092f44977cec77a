// Package embedding defines the Provider interface consumed by the catalog
// registry, plus reference adapters.
package embedding

import "context"

// Provider is the abstraction over any text-embedding backend. All vectors
// returned by one Provider instance share the same dimensionality.
//
// Implementations must be safe for concurrent use.
type Provider interface {
	// EmbedBatch computes one embedding vector per input text, in the same
	// order. Returns an error if any single embedding fails or ctx is
	// cancelled; on error the returned slice is nil.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the fixed length of every vector this provider
	// produces.
	Dimensions() int
}
