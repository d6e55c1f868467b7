package tasks

// Defines constants and payload shapes for task types used in Asynq.

import "github.com/google/uuid"

const (
	// TypeCourseGeneration is the task type for running a full course
	// generation pipeline for one job.
	TypeCourseGeneration = "course:generate"

	// TypeDocumentEmbedding is the task type for embedding document chunks
	// in the retrieval subsystem.
	TypeDocumentEmbedding = "document:embed"
)

// Queue names.
const (
	QueueCourses   = "courses"
	QueueDocuments = "documents"
)

// CourseGenerationPayload identifies the job a worker should process.
type CourseGenerationPayload struct {
	JobID uuid.UUID `json:"job_id"`
}

// DocumentEmbeddingPayload identifies the document chunk to embed.
type DocumentEmbeddingPayload struct {
	DocumentID int64 `json:"document_id"`
}
