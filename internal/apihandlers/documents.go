package apihandlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"coursegen/internal/models"
	"coursegen/internal/store"

	"github.com/gin-gonic/gin"
)

type documentResponse struct {
	ID      int64   `json:"id"`
	Title   string  `json:"title"`
	Summary *string `json:"summary,omitempty"`
}

func documentItem(doc *models.Document) documentResponse {
	return documentResponse{ID: doc.ID, Title: doc.Title, Summary: doc.Summary}
}

// IngestDocumentRequest is the body of POST /documents. The server ingests
// files it can reach on its own filesystem.
type IngestDocumentRequest struct {
	Path string `json:"path" binding:"required"`
}

// IngestDocumentHandler chunks and stores a document from a local file.
func (h *APIHandler) IngestDocumentHandler(c *gin.Context) {
	var req IngestDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if h.App.IngestService == nil {
		Unavailable(c, "document ingestion is not configured")
		return
	}

	doc, chunkCount, err := h.App.IngestService.IngestFile(c.Request.Context(), req.Path)
	if err != nil {
		BadRequest(c, fmt.Sprintf("IngestDocumentHandler: %v", err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": gin.H{
		"document": documentItem(doc),
		"chunks":   chunkCount,
	}})
}

// ListDocumentsHandler pages through the source documents available as
// planning context.
func (h *APIHandler) ListDocumentsHandler(c *gin.Context) {
	limit, offset := parsePagination(c)

	docs, err := h.App.DocumentStore.ListDocuments(c.Request.Context(), limit, offset)
	if err != nil {
		Internal(c, fmt.Sprintf("ListDocumentsHandler: failed to list documents: %v", err))
		return
	}

	resp := make([]documentResponse, 0, len(docs))
	for _, doc := range docs {
		resp = append(resp, documentItem(doc))
	}
	c.JSON(http.StatusOK, gin.H{"data": resp, "limit": limit, "offset": offset})
}

// GetDocumentHandler returns one document with its chunks.
func (h *APIHandler) GetDocumentHandler(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "Invalid document ID: "+c.Param("id"))
		return
	}

	doc, err := h.App.DocumentStore.GetDocument(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(c, "Document not found: "+c.Param("id"))
			return
		}
		Internal(c, fmt.Sprintf("GetDocumentHandler: failed to load document: %v", err))
		return
	}
	chunks, err := h.App.DocumentStore.GetChunksByDocumentID(c.Request.Context(), id)
	if err != nil {
		Internal(c, fmt.Sprintf("GetDocumentHandler: failed to load chunks: %v", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"document": documentItem(doc),
		"chunks":   len(chunks),
	}})
}

// SearchDocumentsHandler runs semantic search over document chunks. Requires
// the vector store; without one the endpoint reports unavailable.
func (h *APIHandler) SearchDocumentsHandler(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		BadRequest(c, "Missing required query parameter 'q'")
		return
	}
	if h.App.SearchService == nil {
		Unavailable(c, "semantic search requires a vector database")
		return
	}
	limit, _ := parsePagination(c)

	results, err := h.App.SearchService.SemanticSearch(c.Request.Context(), query, limit)
	if err != nil {
		Internal(c, fmt.Sprintf("SearchDocumentsHandler: search failed: %v", err))
		return
	}

	type hit struct {
		DocumentID    int64   `json:"document_id"`
		DocumentTitle string  `json:"document_title"`
		ChunkIndex    int     `json:"chunk_index"`
		Text          string  `json:"text"`
		Summary       *string `json:"summary,omitempty"`
	}
	resp := make([]hit, 0, len(results))
	for _, r := range results {
		resp = append(resp, hit{
			DocumentID:    r.Chunk.DocumentID,
			DocumentTitle: r.DocumentTitle,
			ChunkIndex:    r.Chunk.ChunkIndex,
			Text:          r.Chunk.Text,
			Summary:       r.Chunk.Summary,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": resp, "query": query})
}
