// Package memory provides in-process store implementations used by tests
// and by inline (test-mode) generation runs that have no database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"coursegen/internal/models"
	"coursegen/internal/store"

	"github.com/google/uuid"
)

// Store implements JobStore and DocumentStore in memory. Safe for
// concurrent use; each job still has a single logical writer.
type Store struct {
	mu     sync.Mutex
	nextID int64
	jobs   map[uuid.UUID]*models.GenerationJob
	docs   map[int64]*models.Document
	chunks map[int64][]*models.DocumentChunk
}

var (
	_ store.JobStore      = (*Store)(nil)
	_ store.DocumentStore = (*Store)(nil)
)

func NewStore() *Store {
	return &Store{
		jobs:   make(map[uuid.UUID]*models.GenerationJob),
		docs:   make(map[int64]*models.Document),
		chunks: make(map[int64][]*models.DocumentChunk),
	}
}

func (s *Store) CreateJob(ctx context.Context, job *models.GenerationJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.JobID == uuid.Nil {
		job.JobID = uuid.New()
	}
	if job.Status == "" {
		job.Status = models.JobStatusPending
	}
	s.nextID++
	job.ID = s.nextID
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now

	clone := *job
	s.jobs[job.JobID] = &clone
	return nil
}

func (s *Store) GetJob(ctx context.Context, jobID uuid.UUID) (*models.GenerationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *job
	return &clone, nil
}

func (s *Store) UpdateJobProgress(ctx context.Context, jobID uuid.UUID, status string, progress int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return store.ErrNotFound
	}
	if models.IsTerminalStatus(job.Status) {
		return store.ErrConflict
	}
	job.Status = status
	job.Progress = progress
	job.UpdatedAt = time.Now()
	return nil
}

func (s *Store) CompleteJob(ctx context.Context, jobID uuid.UUID, resultPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return store.ErrNotFound
	}
	if models.IsTerminalStatus(job.Status) {
		return store.ErrConflict
	}
	now := time.Now()
	job.Status = models.JobStatusCompleted
	job.Progress = 100
	job.ResultPath = &resultPath
	job.UpdatedAt = now
	job.CompletedAt = &now
	return nil
}

func (s *Store) FailJob(ctx context.Context, jobID uuid.UUID, errorMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return store.ErrNotFound
	}
	if models.IsTerminalStatus(job.Status) {
		return store.ErrConflict
	}
	now := time.Now()
	job.Status = models.JobStatusFailed
	job.ErrorMessage = &errorMessage
	job.UpdatedAt = now
	job.CompletedAt = &now
	return nil
}

func (s *Store) ListJobs(ctx context.Context, limit, offset int) ([]*models.GenerationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]*models.GenerationJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		clone := *job
		all = append(all, &clone)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// CreateDocument stores a document, assigning its ID and timestamps.
func (s *Store) CreateDocument(ctx context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	doc.ID = s.nextID
	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	s.docs[doc.ID] = doc
	return nil
}

// CreateChunks stores chunks under their documents.
func (s *Store) CreateChunks(ctx context.Context, chunks []*models.DocumentChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, chunk := range chunks {
		s.nextID++
		chunk.ID = s.nextID
		chunk.CreatedAt = time.Now()
		s.chunks[chunk.DocumentID] = append(s.chunks[chunk.DocumentID], chunk)
	}
	return nil
}

// AddDocument seeds a document (test helper).
func (s *Store) AddDocument(doc *models.Document, chunks ...*models.DocumentChunk) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.ID == 0 {
		s.nextID++
		doc.ID = s.nextID
	}
	s.docs[doc.ID] = doc
	for _, chunk := range chunks {
		chunk.DocumentID = doc.ID
		s.chunks[doc.ID] = append(s.chunks[doc.ID], chunk)
	}
}

func (s *Store) GetDocument(ctx context.Context, id int64) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return doc, nil
}

func (s *Store) GetDocumentsByIDs(ctx context.Context, ids []int64) ([]*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var docs []*models.Document
	for _, id := range ids {
		if doc, ok := s.docs[id]; ok {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (s *Store) ListDocuments(ctx context.Context, limit, offset int) ([]*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]*models.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		all = append(all, doc)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (s *Store) GetChunksByDocumentID(ctx context.Context, documentID int64) ([]*models.DocumentChunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunks[documentID], nil
}
