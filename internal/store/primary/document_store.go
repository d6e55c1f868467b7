package primary

import (
	"context"
	"errors"
	"fmt"

	"coursegen/internal/models"
	"coursegen/internal/store"

	"github.com/jackc/pgx/v5"
)

// --- Document Store ---

// CreateDocument inserts a document and fills in its generated ID.
func (s *StoreImpl) CreateDocument(ctx context.Context, doc *models.Document) error {
	query := `INSERT INTO documents (title, summary)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at`
	err := s.db.QueryRow(ctx, query, doc.Title, doc.Summary).
		Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create document %q: %w", doc.Title, err)
	}
	return nil
}

// CreateChunks inserts a document's chunks and fills in their IDs.
func (s *StoreImpl) CreateChunks(ctx context.Context, chunks []*models.DocumentChunk) error {
	query := `INSERT INTO document_chunks (document_id, chunk_index, chunk_text, summary)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	for _, chunk := range chunks {
		err := s.db.QueryRow(ctx, query, chunk.DocumentID, chunk.ChunkIndex, chunk.Text, chunk.Summary).
			Scan(&chunk.ID, &chunk.CreatedAt)
		if err != nil {
			return fmt.Errorf("create chunk %d of document %d: %w", chunk.ChunkIndex, chunk.DocumentID, err)
		}
	}
	return nil
}

// GetDocument retrieves a single document by ID.
func (s *StoreImpl) GetDocument(ctx context.Context, id int64) (*models.Document, error) {
	query := `SELECT id, title, summary, created_at, updated_at FROM documents WHERE id = $1`
	doc := &models.Document{}
	err := s.db.QueryRow(ctx, query, id).Scan(&doc.ID, &doc.Title, &doc.Summary, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get document %d: %w", id, err)
	}
	return doc, nil
}

// GetDocumentsByIDs retrieves documents in bulk. Missing IDs are skipped,
// not errors, matching the pipeline's tolerance of absent inputs.
func (s *StoreImpl) GetDocumentsByIDs(ctx context.Context, ids []int64) ([]*models.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT id, title, summary, created_at, updated_at FROM documents WHERE id = ANY($1) ORDER BY id`
	rows, err := s.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("get documents by ids: %w", err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// ListDocuments returns documents, newest first.
func (s *StoreImpl) ListDocuments(ctx context.Context, limit, offset int) ([]*models.Document, error) {
	query := `SELECT id, title, summary, created_at, updated_at FROM documents ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := s.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// GetChunksByDocumentID returns a document's chunks in order.
func (s *StoreImpl) GetChunksByDocumentID(ctx context.Context, documentID int64) ([]*models.DocumentChunk, error) {
	query := `SELECT id, document_id, chunk_index, chunk_text, summary, created_at
		FROM document_chunks WHERE document_id = $1 ORDER BY chunk_index`
	rows, err := s.db.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("get chunks for document %d: %w", documentID, err)
	}
	defer rows.Close()

	var chunks []*models.DocumentChunk
	for rows.Next() {
		chunk := &models.DocumentChunk{}
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.ChunkIndex, &chunk.Text, &chunk.Summary, &chunk.CreatedAt); err != nil {
			return chunks, fmt.Errorf("scan document chunk row: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return chunks, fmt.Errorf("iterate document chunk rows: %w", err)
	}
	return chunks, nil
}

func scanDocuments(rows pgx.Rows) ([]*models.Document, error) {
	var docs []*models.Document
	for rows.Next() {
		doc := &models.Document{}
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.Summary, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return docs, fmt.Errorf("scan document row: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return docs, fmt.Errorf("iterate document rows: %w", err)
	}
	return docs, nil
}

// Ensure StoreImpl satisfies the DocumentStore interface
var _ store.DocumentStore = (*StoreImpl)(nil)
