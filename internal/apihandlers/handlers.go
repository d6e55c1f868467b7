package apihandlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"coursegen/internal/app"
	"coursegen/internal/models"
	"coursegen/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type APIHandler struct {
	App *app.App
}

func NewAPIHandler(a *app.App) *APIHandler {
	return &APIHandler{App: a}
}

// RegisterRoutes wires every handler under /api/v1 plus the health probe.
func (h *APIHandler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		courses := v1.Group("/courses")
		{
			courses.POST("/generate", h.GenerateCourseHandler)
			courses.GET("", h.ListJobsHandler)
			courses.GET("/:job_id/status", h.GetStatusHandler)
			courses.POST("/:job_id/cancel", h.CancelJobHandler)
		}
		documents := v1.Group("/documents")
		{
			documents.POST("", h.IngestDocumentHandler)
			documents.GET("", h.ListDocumentsHandler)
			documents.GET("/search", h.SearchDocumentsHandler)
			documents.GET("/:id", h.GetDocumentHandler)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// GenerateCourseRequest is the body of POST /courses/generate.
type GenerateCourseRequest struct {
	Topic       string  `json:"topic" binding:"required"`
	DocumentIDs []int64 `json:"document_ids"`
}

// jobResponse is the wire shape of a generation job. The verbose fields are
// only populated by the status endpoint when ?verbose=true.
type jobResponse struct {
	JobID       uuid.UUID  `json:"job_id"`
	Status      string     `json:"status"`
	Progress    int        `json:"progress"`
	Topic       string     `json:"topic,omitempty"`
	DocumentIDs []int64    `json:"document_ids,omitempty"`
	ResultPath  *string    `json:"result_path,omitempty"`
	Error       *string    `json:"error,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// Course carries the packaged course_metadata.json of a completed job.
	Course map[string]any `json:"course,omitempty"`
}

func briefJob(job *models.GenerationJob) jobResponse {
	return jobResponse{
		JobID:    job.JobID,
		Status:   job.Status,
		Progress: job.Progress,
	}
}

func verboseJob(job *models.GenerationJob) jobResponse {
	resp := briefJob(job)
	resp.Topic = job.Topic
	resp.DocumentIDs = job.DocumentIDs
	resp.ResultPath = job.ResultPath
	resp.Error = job.ErrorMessage
	resp.CreatedAt = &job.CreatedAt
	resp.UpdatedAt = &job.UpdatedAt
	resp.CompletedAt = job.CompletedAt
	return resp
}

// GenerateCourseHandler creates a pending job and enqueues it for the worker.
func (h *APIHandler) GenerateCourseHandler(c *gin.Context) {
	var req GenerateCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}
	if h.App.JobClient == nil {
		Unavailable(c, "job queue is not connected")
		return
	}

	job := &models.GenerationJob{
		JobID:       uuid.New(),
		Topic:       req.Topic,
		DocumentIDs: req.DocumentIDs,
		Status:      models.JobStatusPending,
		Progress:    0,
	}
	if err := h.App.JobStore.CreateJob(c.Request.Context(), job); err != nil {
		Internal(c, fmt.Sprintf("GenerateCourseHandler: failed to create job: %v", err))
		return
	}
	if err := h.App.JobClient.EnqueueCourseGeneration(c.Request.Context(), job.JobID); err != nil {
		// The job stays pending in the store; surface the enqueue failure so
		// the caller can retry.
		log.Errorf("Failed to enqueue job %s: %v", job.JobID, err)
		Internal(c, fmt.Sprintf("GenerateCourseHandler: failed to enqueue job: %v", err))
		return
	}

	log.Infof("API GenerateCourse: job_id=%s topic=%q documents=%d", job.JobID, job.Topic, len(job.DocumentIDs))
	c.JSON(http.StatusAccepted, gin.H{"data": briefJob(job)})
}

// GetStatusHandler reports the state of one job.
func (h *APIHandler) GetStatusHandler(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		BadRequest(c, "Invalid job ID: "+c.Param("job_id"))
		return
	}

	job, err := h.App.JobStore.GetJob(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(c, "Job not found: "+jobID.String())
			return
		}
		Internal(c, fmt.Sprintf("GetStatusHandler: failed to load job: %v", err))
		return
	}

	resp := briefJob(job)
	if c.Query("verbose") == "true" {
		resp = verboseJob(job)
		resp.Course = courseMetadata(job)
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// courseMetadata loads the packaged metadata of a completed job. The package
// directory sits beside its zip archive; a missing or unreadable file just
// leaves the field empty.
func courseMetadata(job *models.GenerationJob) map[string]any {
	if job.Status != models.JobStatusCompleted || job.ResultPath == nil {
		return nil
	}
	pkgDir := strings.TrimSuffix(*job.ResultPath, ".zip")
	raw, err := os.ReadFile(filepath.Join(pkgDir, "course_metadata.json"))
	if err != nil {
		return nil
	}
	var metadata map[string]any
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return nil
	}
	return metadata
}

// CancelJobHandler marks a not-yet-finished job as failed with a
// cancellation message. A job already in a terminal state cannot change.
func (h *APIHandler) CancelJobHandler(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		BadRequest(c, "Invalid job ID: "+c.Param("job_id"))
		return
	}

	job, err := h.App.JobStore.GetJob(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			NotFound(c, "Job not found: "+jobID.String())
			return
		}
		Internal(c, fmt.Sprintf("CancelJobHandler: failed to load job: %v", err))
		return
	}
	if models.IsTerminalStatus(job.Status) {
		Conflict(c, fmt.Sprintf("Job %s is already %s", jobID, job.Status))
		return
	}

	if err := h.App.JobStore.FailJob(c.Request.Context(), jobID, "cancelled by user"); err != nil {
		Internal(c, fmt.Sprintf("CancelJobHandler: failed to cancel job: %v", err))
		return
	}
	log.Infof("API CancelJob: job_id=%s previous_status=%s", jobID, job.Status)

	job, err = h.App.JobStore.GetJob(c.Request.Context(), jobID)
	if err != nil {
		Internal(c, fmt.Sprintf("CancelJobHandler: failed to reload job: %v", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": verboseJob(job)})
}

// ListJobsHandler pages through generation jobs, newest first.
func (h *APIHandler) ListJobsHandler(c *gin.Context) {
	limit, offset := parsePagination(c)

	jobs, err := h.App.JobStore.ListJobs(c.Request.Context(), limit, offset)
	if err != nil {
		Internal(c, fmt.Sprintf("ListJobsHandler: failed to list jobs: %v", err))
		return
	}

	resp := make([]jobResponse, 0, len(jobs))
	for _, job := range jobs {
		resp = append(resp, verboseJob(job))
	}
	c.JSON(http.StatusOK, gin.H{"data": resp, "limit": limit, "offset": offset})
}

// parsePagination reads limit/offset query params with sane defaults.
func parsePagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
