// Package jobstate tracks one generation job's lifecycle through its
// terminal states. Every transition is persisted synchronously; each job has
// exactly one writer, the orchestrator driving it.
package jobstate

import (
	"context"
	"fmt"

	"coursegen/internal/models"
	"coursegen/internal/store"

	log "github.com/sirupsen/logrus"
)

// Machine enforces the PENDING -> PROCESSING -> {COMPLETED, FAILED}
// transition graph. Attempted mutation after a terminal state is an error
// reported to the caller, never silently ignored.
type Machine struct {
	store store.JobStore
	job   *models.GenerationJob
}

// New wraps an existing job record in a state machine.
func New(jobStore store.JobStore, job *models.GenerationJob) *Machine {
	return &Machine{store: jobStore, job: job}
}

// Status returns the current status string.
func (m *Machine) Status() string { return m.job.Status }

// Progress returns the current progress value.
func (m *Machine) Progress() int { return m.job.Progress }

// Job returns the tracked job record.
func (m *Machine) Job() *models.GenerationJob { return m.job }

// CheckLive re-reads the persisted record and reports whether another
// writer moved the job to a terminal state, which happens when a user
// cancels it through the API while generation is running. A terminal
// store status is synced into the machine and reported as
// models.ErrJobCancelled; transient read errors are logged and ignored so
// a store hiccup cannot fail an otherwise healthy run.
func (m *Machine) CheckLive(ctx context.Context) error {
	stored, err := m.store.GetJob(ctx, m.job.JobID)
	if err != nil {
		log.WithField("job_id", m.job.JobID).Warnf("Could not refresh job status: %v", err)
		return nil
	}
	if models.IsTerminalStatus(stored.Status) && !models.IsTerminalStatus(m.job.Status) {
		m.job.Status = stored.Status
		m.job.ErrorMessage = stored.ErrorMessage
		return fmt.Errorf("job %s stopped externally: %w", m.job.JobID, models.ErrJobCancelled)
	}
	return nil
}

// Start transitions PENDING -> PROCESSING.
func (m *Machine) Start(ctx context.Context) error {
	if m.job.Status != models.JobStatusPending {
		return fmt.Errorf("start job %s from status %q: %w", m.job.JobID, m.job.Status, models.ErrInvalidTransition)
	}
	if err := m.store.UpdateJobProgress(ctx, m.job.JobID, models.JobStatusProcessing, m.job.Progress); err != nil {
		return fmt.Errorf("persist start of job %s: %w", m.job.JobID, err)
	}
	m.job.Status = models.JobStatusProcessing
	log.WithField("job_id", m.job.JobID).Info("Job processing started")
	return nil
}

// Advance sets progress while PROCESSING. Progress must be non-decreasing;
// a regression is a programmer error and is rejected rather than clamped so
// tests can catch it.
func (m *Machine) Advance(ctx context.Context, progress int) error {
	if models.IsTerminalStatus(m.job.Status) {
		return fmt.Errorf("advance job %s: %w", m.job.JobID, models.ErrTerminalState)
	}
	if m.job.Status != models.JobStatusProcessing {
		return fmt.Errorf("advance job %s from status %q: %w", m.job.JobID, m.job.Status, models.ErrInvalidTransition)
	}
	if progress < m.job.Progress {
		return fmt.Errorf("advance job %s from %d to %d: %w", m.job.JobID, m.job.Progress, progress, models.ErrProgressRegression)
	}
	if progress > 100 {
		progress = 100
	}
	if err := m.store.UpdateJobProgress(ctx, m.job.JobID, models.JobStatusProcessing, progress); err != nil {
		return fmt.Errorf("persist progress of job %s: %w", m.job.JobID, err)
	}
	m.job.Progress = progress
	return nil
}

// Complete transitions PROCESSING -> COMPLETED, forcing progress to 100 and
// recording the result reference.
func (m *Machine) Complete(ctx context.Context, resultPath string) error {
	if models.IsTerminalStatus(m.job.Status) {
		return fmt.Errorf("complete job %s: %w", m.job.JobID, models.ErrTerminalState)
	}
	if m.job.Status != models.JobStatusProcessing {
		return fmt.Errorf("complete job %s from status %q: %w", m.job.JobID, m.job.Status, models.ErrInvalidTransition)
	}
	if err := m.store.CompleteJob(ctx, m.job.JobID, resultPath); err != nil {
		return fmt.Errorf("persist completion of job %s: %w", m.job.JobID, err)
	}
	m.job.Status = models.JobStatusCompleted
	m.job.Progress = 100
	m.job.ResultPath = &resultPath
	log.WithFields(log.Fields{"job_id": m.job.JobID, "result": resultPath}).Info("Job completed")
	return nil
}

// Fail transitions PROCESSING -> FAILED, leaving progress at its last value
// and recording the cause.
func (m *Machine) Fail(ctx context.Context, cause error) error {
	if models.IsTerminalStatus(m.job.Status) {
		return fmt.Errorf("fail job %s: %w", m.job.JobID, models.ErrTerminalState)
	}
	if m.job.Status != models.JobStatusProcessing {
		return fmt.Errorf("fail job %s from status %q: %w", m.job.JobID, m.job.Status, models.ErrInvalidTransition)
	}
	msg := cause.Error()
	if err := m.store.FailJob(ctx, m.job.JobID, msg); err != nil {
		return fmt.Errorf("persist failure of job %s: %w", m.job.JobID, err)
	}
	m.job.Status = models.JobStatusFailed
	m.job.ErrorMessage = &msg
	log.WithFields(log.Fields{"job_id": m.job.JobID}).Errorf("Job failed: %v", cause)
	return nil
}
