package vector

import (
	"context"
	"fmt"

	"coursegen/internal/models"
	"coursegen/internal/store"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	log "github.com/sirupsen/logrus"
)

// StoreImpl stores document chunk embeddings in Postgres with pgvector.
type StoreImpl struct {
	db *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (store.VectorStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("vector store DSN cannot be empty")
	}
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse vector store DSN: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping vector store: %w", err)
	}
	log.Info("Connected to PostgreSQL vector store")
	return &StoreImpl{db: pool}, nil
}

func (vs *StoreImpl) Close() error {
	if vs.db != nil {
		vs.db.Close()
	}
	return nil
}

func (vs *StoreImpl) Ping(ctx context.Context) error {
	if vs.db == nil {
		return fmt.Errorf("vector store connection is not initialized")
	}
	return vs.db.Ping(ctx)
}

// AddEmbedding stores or replaces the embedding for a document chunk.
func (vs *StoreImpl) AddEmbedding(ctx context.Context, chunkID int64, vector pgvector.Vector) error {
	query := `
		INSERT INTO chunk_embeddings (chunk_id, vector) VALUES ($1, $2)
		ON CONFLICT (chunk_id) DO UPDATE SET vector = EXCLUDED.vector`
	if _, err := vs.db.Exec(ctx, query, chunkID, vector); err != nil {
		return fmt.Errorf("add embedding for chunk %d: %w", chunkID, err)
	}
	return nil
}

// SearchSimilarChunks returns the chunks nearest to the query vector by
// cosine distance.
func (vs *StoreImpl) SearchSimilarChunks(ctx context.Context, vector pgvector.Vector, limit int) ([]*models.DocumentChunk, error) {
	query := `
		SELECT c.id, c.document_id, c.chunk_index, c.chunk_text, c.summary, c.created_at
		FROM chunk_embeddings e
		JOIN document_chunks c ON c.id = e.chunk_id
		ORDER BY e.vector <=> $1
		LIMIT $2`
	rows, err := vs.db.Query(ctx, query, vector, limit)
	if err != nil {
		return nil, fmt.Errorf("search similar chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*models.DocumentChunk
	for rows.Next() {
		chunk := &models.DocumentChunk{}
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.ChunkIndex, &chunk.Text, &chunk.Summary, &chunk.CreatedAt); err != nil {
			return chunks, fmt.Errorf("scan similar chunk row: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return chunks, fmt.Errorf("iterate similar chunk rows: %w", err)
	}
	return chunks, nil
}
