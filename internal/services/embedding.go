// Package services holds the retrieval-side collaborators: embedding
// generation and semantic search over reference documents.
package services

import (
	"context"
	"fmt"
	"os"

	"github.com/pgvector/pgvector-go"
	"github.com/sashabaranov/go-openai"

	log "github.com/sirupsen/logrus"

	"coursegen/internal/store"
)

// OpenAIEmbedder implements store.EmbeddingService over the OpenAI
// embeddings API.
type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
	dim    int
}

// NewOpenAIEmbedder creates the embedding provider. When no API key is
// available the embedder is disabled rather than failing construction.
func NewOpenAIEmbedder(apiKey, modelID string) *OpenAIEmbedder {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		log.Warn("OpenAI API key not provided. Embedding provider will be disabled.")
		return &OpenAIEmbedder{}
	}

	var dim int
	switch modelID {
	case string(openai.AdaEmbeddingV2), "text-embedding-3-small":
		dim = 1536
	case "text-embedding-3-large":
		dim = 3072
	default:
		log.Warnf("Unknown embedding model '%s', defaulting dimension to 1536", modelID)
		dim = 1536
	}

	return &OpenAIEmbedder{
		client: openai.NewClient(apiKey),
		model:  openai.EmbeddingModel(modelID),
		dim:    dim,
	}
}

func (p *OpenAIEmbedder) Name() string      { return "openai" }
func (p *OpenAIEmbedder) ModelName() string { return string(p.model) }

// Dimension returns the vector width of the configured model.
func (p *OpenAIEmbedder) Dimension() int { return p.dim }

func (p *OpenAIEmbedder) GenerateEmbedding(ctx context.Context, text string) (pgvector.Vector, error) {
	if p.client == nil {
		return pgvector.Vector{}, fmt.Errorf("embedding provider is not initialized (missing API key)")
	}
	if text == "" {
		return pgvector.NewVector(make([]float32, p.dim)), nil
	}

	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: []string{text},
		Model: p.model,
	})
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("generating embedding: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return pgvector.Vector{}, fmt.Errorf("embedding API returned no data")
	}
	if got := len(resp.Data[0].Embedding); got != p.dim {
		return pgvector.Vector{}, fmt.Errorf("unexpected embedding dimension: got %d, want %d", got, p.dim)
	}
	return pgvector.NewVector(resp.Data[0].Embedding), nil
}

var _ store.EmbeddingService = (*OpenAIEmbedder)(nil)
