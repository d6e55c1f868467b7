package apihandlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"coursegen/internal/app"
	"coursegen/internal/models"
	"coursegen/internal/store/memory"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeJobClient struct {
	enqueued []uuid.UUID
	err      error
}

func (f *fakeJobClient) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	return nil, f.err
}

func (f *fakeJobClient) EnqueueCourseGeneration(ctx context.Context, jobID uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, jobID)
	return nil
}

func (f *fakeJobClient) EnqueueDocumentEmbedding(ctx context.Context, documentID int64) error {
	return f.err
}

func (f *fakeJobClient) Close() error { return nil }

func newTestRouter(t *testing.T) (*gin.Engine, *memory.Store, *fakeJobClient) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem := memory.NewStore()
	client := &fakeJobClient{}
	handler := NewAPIHandler(&app.App{
		JobStore:      mem,
		DocumentStore: mem,
		JobClient:     client,
	})

	router := gin.New()
	handler.RegisterRoutes(router)
	return router, mem, client
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope.Data
}

func TestGenerateCourseCreatesAndEnqueues(t *testing.T) {
	router, mem, client := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/courses/generate", GenerateCourseRequest{
		Topic:       "Docker Fundamentals",
		DocumentIDs: []int64{1, 2},
	})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	data := decodeData(t, rec)
	assert.Equal(t, models.JobStatusPending, data["status"])
	assert.EqualValues(t, 0, data["progress"])

	jobID, err := uuid.Parse(data["job_id"].(string))
	require.NoError(t, err)
	require.Len(t, client.enqueued, 1)
	assert.Equal(t, jobID, client.enqueued[0])

	job, err := mem.GetJob(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, "Docker Fundamentals", job.Topic)
	assert.Equal(t, []int64{1, 2}, job.DocumentIDs)
}

func TestGenerateCourseRejectsMissingTopic(t *testing.T) {
	router, _, client := newTestRouter(t)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/courses/generate", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, client.enqueued)
}

func TestGenerateCourseWithoutQueueIsUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mem := memory.NewStore()
	handler := NewAPIHandler(&app.App{JobStore: mem, DocumentStore: mem})
	router := gin.New()
	handler.RegisterRoutes(router)

	rec := doJSON(t, router, http.MethodPost, "/api/v1/courses/generate", GenerateCourseRequest{Topic: "Go"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetStatusBriefAndVerbose(t *testing.T) {
	router, mem, _ := newTestRouter(t)

	job := &models.GenerationJob{JobID: uuid.New(), Topic: "Kubernetes", Status: models.JobStatusPending}
	require.NoError(t, mem.CreateJob(context.Background(), job))

	rec := doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/v1/courses/%s/status", job.JobID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	assert.Equal(t, models.JobStatusPending, data["status"])
	assert.NotContains(t, data, "topic")

	rec = doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/v1/courses/%s/status?verbose=true", job.JobID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data = decodeData(t, rec)
	assert.Equal(t, "Kubernetes", data["topic"])
}

func TestGetStatusVerboseIncludesCourseMetadata(t *testing.T) {
	router, mem, _ := newTestRouter(t)

	pkgDir := filepath.Join(t.TempDir(), "course_package_Go_20260101_000000")
	require.NoError(t, os.MkdirAll(pkgDir, 0o755))
	metadata := []byte(`{"course_info":{"title":"Go Course","total_lessons":2}}`)
	require.NoError(t, os.WriteFile(filepath.Join(pkgDir, "course_metadata.json"), metadata, 0o644))

	job := &models.GenerationJob{JobID: uuid.New(), Topic: "Go", Status: models.JobStatusPending}
	require.NoError(t, mem.CreateJob(context.Background(), job))
	require.NoError(t, mem.UpdateJobProgress(context.Background(), job.JobID, models.JobStatusProcessing, 9))
	require.NoError(t, mem.CompleteJob(context.Background(), job.JobID, pkgDir+".zip"))

	rec := doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/v1/courses/%s/status?verbose=true", job.JobID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)

	course, ok := data["course"].(map[string]any)
	require.True(t, ok, "course metadata missing from verbose response")
	info := course["course_info"].(map[string]any)
	assert.Equal(t, "Go Course", info["title"])
	assert.EqualValues(t, 2, info["total_lessons"])
}

func TestGetStatusUnknownJob(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, fmt.Sprintf("/api/v1/courses/%s/status", uuid.New()), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/courses/not-a-uuid/status", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelPendingJob(t *testing.T) {
	router, mem, _ := newTestRouter(t)

	job := &models.GenerationJob{JobID: uuid.New(), Topic: "Rust", Status: models.JobStatusPending}
	require.NoError(t, mem.CreateJob(context.Background(), job))

	rec := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/courses/%s/cancel", job.JobID), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	data := decodeData(t, rec)
	assert.Equal(t, models.JobStatusFailed, data["status"])
	assert.Contains(t, data["error"], "cancelled")
}

func TestCancelTerminalJobConflicts(t *testing.T) {
	router, mem, _ := newTestRouter(t)

	job := &models.GenerationJob{JobID: uuid.New(), Topic: "Rust", Status: models.JobStatusPending}
	require.NoError(t, mem.CreateJob(context.Background(), job))
	require.NoError(t, mem.UpdateJobProgress(context.Background(), job.JobID, models.JobStatusProcessing, 9))
	require.NoError(t, mem.CompleteJob(context.Background(), job.JobID, "/tmp/out.zip"))

	rec := doJSON(t, router, http.MethodPost, fmt.Sprintf("/api/v1/courses/%s/cancel", job.JobID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	got, err := mem.GetJob(context.Background(), job.JobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
}

func TestListJobs(t *testing.T) {
	router, mem, _ := newTestRouter(t)

	for i := 0; i < 3; i++ {
		job := &models.GenerationJob{JobID: uuid.New(), Topic: fmt.Sprintf("Topic %d", i), Status: models.JobStatusPending}
		require.NoError(t, mem.CreateJob(context.Background(), job))
	}

	rec := doJSON(t, router, http.MethodGet, "/api/v1/courses?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data  []jobResponse `json:"data"`
		Limit int           `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data, 2)
	assert.Equal(t, 2, envelope.Limit)
}

func TestListDocuments(t *testing.T) {
	router, mem, _ := newTestRouter(t)

	summary := "All about containers."
	mem.AddDocument(&models.Document{ID: 1, Title: "Docker Deep Dive", Summary: &summary})

	rec := doJSON(t, router, http.MethodGet, "/api/v1/documents", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope struct {
		Data []documentResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "Docker Deep Dive", envelope.Data[0].Title)
}

func TestSearchWithoutVectorStoreIsUnavailable(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/documents/search?q=docker", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/documents/search", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := doJSON(t, router, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
