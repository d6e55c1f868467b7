package store

import (
	"context"

	"coursegen/internal/models"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/pgvector/pgvector-go"
)

// --- Job Client ---

// JobClient enqueues background work. The worker binary consumes what this
// enqueues.
type JobClient interface {
	Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	EnqueueCourseGeneration(ctx context.Context, jobID uuid.UUID) error
	EnqueueDocumentEmbedding(ctx context.Context, documentID int64) error
	Close() error
}

// --- Job Store ---

// JobStore persists GenerationJob records. Each job has a single writer,
// the orchestrator driving it, so implementations need no cross-job locking.
type JobStore interface {
	CreateJob(ctx context.Context, job *models.GenerationJob) error
	GetJob(ctx context.Context, jobID uuid.UUID) (*models.GenerationJob, error)
	// UpdateJobProgress persists a non-terminal status/progress pair.
	UpdateJobProgress(ctx context.Context, jobID uuid.UUID, status string, progress int) error
	// CompleteJob finalizes the job with its result reference.
	CompleteJob(ctx context.Context, jobID uuid.UUID, resultPath string) error
	// FailJob finalizes the job with an error message.
	FailJob(ctx context.Context, jobID uuid.UUID, errorMessage string) error
	ListJobs(ctx context.Context, limit, offset int) ([]*models.GenerationJob, error)
}

// --- Document Store ---

// DocumentStore serves the source documents whose summaries seed planning.
// The pipeline reads only; writes come from the ingestion path.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *models.Document) error
	CreateChunks(ctx context.Context, chunks []*models.DocumentChunk) error
	GetDocument(ctx context.Context, id int64) (*models.Document, error)
	GetDocumentsByIDs(ctx context.Context, ids []int64) ([]*models.Document, error)
	ListDocuments(ctx context.Context, limit, offset int) ([]*models.Document, error)
	GetChunksByDocumentID(ctx context.Context, documentID int64) ([]*models.DocumentChunk, error)
}

// --- Vector Store ---

// VectorStore holds chunk embeddings for the document retrieval subsystem.
type VectorStore interface {
	AddEmbedding(ctx context.Context, chunkID int64, vector pgvector.Vector) error
	SearchSimilarChunks(ctx context.Context, vector pgvector.Vector, limit int) ([]*models.DocumentChunk, error)
	Ping(ctx context.Context) error
	Close() error
}

// --- Embedding Service ---

// EmbeddingService turns text into vectors. Implemented by the OpenAI
// provider; consumed only by the retrieval subsystem.
type EmbeddingService interface {
	Name() string
	ModelName() string
	GenerateEmbedding(ctx context.Context, text string) (pgvector.Vector, error)
}
