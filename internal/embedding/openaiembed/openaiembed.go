// Package openaiembed provides an embedding.Provider backed by the OpenAI
// embeddings API.
package openaiembed

import (
	"context"
	"fmt"
	"strings"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/fentz26/toolrouter/internal/embedding"
)

// DefaultModel is the default OpenAI embeddings model used when the
// configured embedding_model is empty or "default".
const DefaultModel = oai.EmbeddingModelTextEmbedding3Small

var _ embedding.Provider = (*Provider)(nil)

// Provider implements embedding.Provider using the OpenAI API.
type Provider struct {
	client oai.Client
	model  string
}

// New constructs a Provider. If model is empty or "default", DefaultModel is
// used.
func New(apiKey, model string) (*Provider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openaiembed: apiKey must not be empty")
	}
	if model == "" || model == "default" {
		model = DefaultModel
	}
	client := oai.NewClient(option.WithAPIKey(apiKey))
	return &Provider{client: client, model: model}, nil
}

// EmbedBatch implements embedding.Provider.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := p.client.Embeddings.New(ctx, oai.EmbeddingNewParams{
		Model: p.model,
		Input: oai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openaiembed: embed batch: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openaiembed: expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	out := make([][]float32, len(texts))
	for _, e := range resp.Data {
		if int(e.Index) >= len(texts) {
			return nil, fmt.Errorf("openaiembed: unexpected index %d", e.Index)
		}
		out[e.Index] = float64ToFloat32(e.Embedding)
	}
	return out, nil
}

// Dimensions implements embedding.Provider.
func (p *Provider) Dimensions() int {
	return modelDimensions(p.model)
}

func modelDimensions(model string) int {
	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "text-embedding-3-large"):
		return 3072
	case strings.Contains(lower, "text-embedding-3-small"):
		return 1536
	case strings.Contains(lower, "text-embedding-ada-002"):
		return 1536
	default:
		return 1536
	}
}

func float64ToFloat32(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
