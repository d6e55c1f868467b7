// Package worker holds the asynq task handlers that run course generation
// jobs in the background.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	log "github.com/sirupsen/logrus"

	"coursegen/internal/jobstate"
	"coursegen/internal/models"
	"coursegen/internal/pipeline"
	"coursegen/internal/store"
	"coursegen/internal/tasks"
)

// Deps are the collaborators a course generation handler needs.
type Deps struct {
	JobStore     store.JobStore
	Orchestrator *pipeline.Orchestrator
}

// RegisterHandlers attaches every task handler to the mux.
func RegisterHandlers(mux *asynq.ServeMux, deps Deps) {
	mux.HandleFunc(tasks.TypeCourseGeneration, HandleCourseGeneration(deps))
}

// HandleCourseGeneration loads the job record and drives the pipeline.
// Failures are recorded on the job itself, so asynq-level retries are
// suppressed: re-running a FAILED job would only trip the terminal-state
// guard.
func HandleCourseGeneration(deps Deps) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload tasks.CourseGenerationPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("unmarshal course generation payload: %v: %w", err, asynq.SkipRetry)
		}

		job, err := deps.JobStore.GetJob(ctx, payload.JobID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("job %s not found: %w", payload.JobID, asynq.SkipRetry)
			}
			return fmt.Errorf("loading job %s: %w", payload.JobID, err)
		}
		if models.IsTerminalStatus(job.Status) {
			log.WithField("job_id", job.JobID).Info("Job already terminal, skipping")
			return nil
		}

		machine := jobstate.New(deps.JobStore, job)
		_, err = deps.Orchestrator.Run(ctx, machine, pipeline.Request{
			Topic:       job.Topic,
			DocumentIDs: job.DocumentIDs,
		})
		if err != nil {
			return fmt.Errorf("course generation for job %s: %v: %w", payload.JobID, err, asynq.SkipRetry)
		}

		log.WithField("job_id", job.JobID).Info("Course generation completed")
		return nil
	}
}
