package store

import (
	"context"
	"encoding/json"
	"fmt"

	"coursegen/internal/tasks"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"
)

// AsynqJobClient enqueues generation tasks onto Redis via asynq.
type AsynqJobClient struct {
	client *asynq.Client
}

var _ JobClient = (*AsynqJobClient)(nil)

func NewAsynqJobClient(redisAddr, password string, db int) *AsynqJobClient {
	cli := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     redisAddr,
		Password: password,
		DB:       db,
	})
	return &AsynqJobClient{client: cli}
}

func (jc *AsynqJobClient) Close() error {
	return jc.client.Close()
}

// Enqueue submits a task for background execution.
func (jc *AsynqJobClient) Enqueue(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if jc.client == nil {
		return nil, fmt.Errorf("asynq client is not initialized")
	}
	info, err := jc.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return nil, fmt.Errorf("enqueue task %s: %w", task.Type(), err)
	}
	log.Debugf("Enqueued task type %q id=%s queue=%s", task.Type(), info.ID, info.Queue)
	return info, nil
}

// EnqueueCourseGeneration schedules background processing of a pending job.
func (jc *AsynqJobClient) EnqueueCourseGeneration(ctx context.Context, jobID uuid.UUID) error {
	payload, err := json.Marshal(tasks.CourseGenerationPayload{JobID: jobID})
	if err != nil {
		return fmt.Errorf("marshal course generation payload: %w", err)
	}
	task := asynq.NewTask(tasks.TypeCourseGeneration, payload)
	if _, err := jc.Enqueue(ctx, task, asynq.Queue(tasks.QueueCourses)); err != nil {
		return fmt.Errorf("enqueue course generation for job %s: %w", jobID, err)
	}
	return nil
}

// EnqueueDocumentEmbedding schedules embedding of an ingested document's
// chunks.
func (jc *AsynqJobClient) EnqueueDocumentEmbedding(ctx context.Context, documentID int64) error {
	payload, err := json.Marshal(tasks.DocumentEmbeddingPayload{DocumentID: documentID})
	if err != nil {
		return fmt.Errorf("marshal document embedding payload: %w", err)
	}
	task := asynq.NewTask(tasks.TypeDocumentEmbedding, payload)
	if _, err := jc.Enqueue(ctx, task, asynq.Queue(tasks.QueueDocuments)); err != nil {
		return fmt.Errorf("enqueue embedding for document %d: %w", documentID, err)
	}
	return nil
}
