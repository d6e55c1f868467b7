package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	log "github.com/sirupsen/logrus"

	"coursegen/internal/store"
	"coursegen/internal/tasks"
)

// EmbedDeps are the collaborators of the document embedding handler.
type EmbedDeps struct {
	Documents store.DocumentStore
	Vectors   store.VectorStore
	Embedding store.EmbeddingService
}

// RegisterEmbedHandlers attaches the embedding handler to the mux. Callers
// skip this when no vector store is configured.
func RegisterEmbedHandlers(mux *asynq.ServeMux, deps EmbedDeps) {
	mux.HandleFunc(tasks.TypeDocumentEmbedding, HandleDocumentEmbedding(deps))
}

// HandleDocumentEmbedding embeds every chunk of one document into the
// vector store. Already-embedded chunks are overwritten, so retries are
// safe.
func HandleDocumentEmbedding(deps EmbedDeps) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload tasks.DocumentEmbeddingPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("unmarshal document embedding payload: %w", asynq.SkipRetry)
		}

		chunks, err := deps.Documents.GetChunksByDocumentID(ctx, payload.DocumentID)
		if err != nil {
			return fmt.Errorf("loading chunks for document %d: %w", payload.DocumentID, err)
		}
		if len(chunks) == 0 {
			log.Warnf("Document %d has no chunks to embed", payload.DocumentID)
			return nil
		}

		for _, chunk := range chunks {
			vec, err := deps.Embedding.GenerateEmbedding(ctx, chunk.Text)
			if err != nil {
				return fmt.Errorf("embedding chunk %d of document %d: %w", chunk.ChunkIndex, payload.DocumentID, err)
			}
			if err := deps.Vectors.AddEmbedding(ctx, chunk.ID, vec); err != nil {
				return fmt.Errorf("storing embedding for chunk %d: %w", chunk.ID, err)
			}
		}

		log.WithFields(log.Fields{"document_id": payload.DocumentID, "chunks": len(chunks)}).
			Info("Document embedded")
		return nil
	}
}
