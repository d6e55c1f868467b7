package primary

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coursegen/internal/models"
	"coursegen/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// --- Generation Job Store ---

const jobColumns = `id, job_id, topic, document_ids, status, progress, result_path, error_message, created_at, updated_at, completed_at`

// CreateJob inserts a new generation job in PENDING state.
func (s *StoreImpl) CreateJob(ctx context.Context, job *models.GenerationJob) error {
	if job.JobID == uuid.Nil {
		job.JobID = uuid.New()
	}
	if job.Status == "" {
		job.Status = models.JobStatusPending
	}
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now

	query := `
		INSERT INTO generation_jobs (job_id, topic, document_ids, status, progress, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	err := s.db.QueryRow(ctx, query,
		job.JobID, job.Topic, job.DocumentIDs, job.Status, job.Progress, job.CreatedAt, job.UpdatedAt,
	).Scan(&job.ID)
	if err != nil {
		return fmt.Errorf("create generation job %s: %w", job.JobID, err)
	}
	return nil
}

// GetJob retrieves a job by its public UUID.
func (s *StoreImpl) GetJob(ctx context.Context, jobID uuid.UUID) (*models.GenerationJob, error) {
	query := `SELECT ` + jobColumns + ` FROM generation_jobs WHERE job_id = $1`
	job := &models.GenerationJob{}
	err := s.db.QueryRow(ctx, query, jobID).Scan(
		&job.ID, &job.JobID, &job.Topic, &job.DocumentIDs, &job.Status, &job.Progress,
		&job.ResultPath, &job.ErrorMessage, &job.CreatedAt, &job.UpdatedAt, &job.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get generation job %s: %w", jobID, err)
	}
	return job, nil
}

// UpdateJobProgress persists a non-terminal status/progress pair. Terminal
// rows are never updated here; the state machine guards transitions before
// calling in, and the WHERE clause backstops it.
func (s *StoreImpl) UpdateJobProgress(ctx context.Context, jobID uuid.UUID, status string, progress int) error {
	query := `
		UPDATE generation_jobs SET status = $1, progress = $2, updated_at = $3
		WHERE job_id = $4 AND status NOT IN ($5, $6)`
	cmdTag, err := s.db.Exec(ctx, query, status, progress, time.Now(), jobID,
		models.JobStatusCompleted, models.JobStatusFailed)
	if err != nil {
		return fmt.Errorf("update progress for job %s: %w", jobID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("job %s not found or already terminal: %w", jobID, store.ErrConflict)
	}
	return nil
}

// CompleteJob finalizes a job as COMPLETED with its result path.
func (s *StoreImpl) CompleteJob(ctx context.Context, jobID uuid.UUID, resultPath string) error {
	now := time.Now()
	query := `
		UPDATE generation_jobs SET status = $1, progress = 100, result_path = $2, updated_at = $3, completed_at = $3
		WHERE job_id = $4 AND status NOT IN ($1, $5)`
	cmdTag, err := s.db.Exec(ctx, query, models.JobStatusCompleted, resultPath, now, jobID, models.JobStatusFailed)
	if err != nil {
		return fmt.Errorf("complete job %s: %w", jobID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("job %s not found or already terminal: %w", jobID, store.ErrConflict)
	}
	return nil
}

// FailJob finalizes a job as FAILED with an error message. Progress is left
// at its last recorded value.
func (s *StoreImpl) FailJob(ctx context.Context, jobID uuid.UUID, errorMessage string) error {
	now := time.Now()
	query := `
		UPDATE generation_jobs SET status = $1, error_message = $2, updated_at = $3, completed_at = $3
		WHERE job_id = $4 AND status NOT IN ($1, $5)`
	cmdTag, err := s.db.Exec(ctx, query, models.JobStatusFailed, errorMessage, now, jobID, models.JobStatusCompleted)
	if err != nil {
		return fmt.Errorf("fail job %s: %w", jobID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("job %s not found or already terminal: %w", jobID, store.ErrConflict)
	}
	return nil
}

// ListJobs returns recent jobs, newest first.
func (s *StoreImpl) ListJobs(ctx context.Context, limit, offset int) ([]*models.GenerationJob, error) {
	query := `SELECT ` + jobColumns + ` FROM generation_jobs ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	rows, err := s.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list generation jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*models.GenerationJob
	for rows.Next() {
		job := &models.GenerationJob{}
		err := rows.Scan(
			&job.ID, &job.JobID, &job.Topic, &job.DocumentIDs, &job.Status, &job.Progress,
			&job.ResultPath, &job.ErrorMessage, &job.CreatedAt, &job.UpdatedAt, &job.CompletedAt,
		)
		if err != nil {
			return jobs, fmt.Errorf("scan generation job row: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return jobs, fmt.Errorf("iterate generation job rows: %w", err)
	}
	return jobs, nil
}

// Ensure StoreImpl satisfies the JobStore interface
var _ store.JobStore = (*StoreImpl)(nil)
