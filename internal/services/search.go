package services

import (
	"context"
	"fmt"

	"coursegen/internal/models"
	"coursegen/internal/store"
)

// SearchResult pairs a matching chunk with its parent document title.
type SearchResult struct {
	Chunk         *models.DocumentChunk `json:"chunk"`
	DocumentTitle string                `json:"document_title"`
}

// SearchService answers semantic queries against the reference document
// corpus. Course planning uses it to let users find which documents to
// anchor a course on.
type SearchService struct {
	docs      store.DocumentStore
	vectors   store.VectorStore
	embedding store.EmbeddingService
}

func NewSearchService(docs store.DocumentStore, vectors store.VectorStore, embedding store.EmbeddingService) *SearchService {
	return &SearchService{docs: docs, vectors: vectors, embedding: embedding}
}

// SemanticSearch embeds the query and returns the closest chunks.
func (s *SearchService) SemanticSearch(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	if limit <= 0 {
		limit = 10
	}

	vec, err := s.embedding.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	chunks, err := s.vectors.SearchSimilarChunks(ctx, vec, limit)
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}

	results := make([]SearchResult, 0, len(chunks))
	for _, chunk := range chunks {
		res := SearchResult{Chunk: chunk}
		if doc, err := s.docs.GetDocument(ctx, chunk.DocumentID); err == nil {
			res.DocumentTitle = doc.Title
		}
		results = append(results, res)
	}
	return results, nil
}
