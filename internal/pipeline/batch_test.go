package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursegen/internal/models"
)

func lessonSpecs(n int) []models.LessonSpec {
	specs := make([]models.LessonSpec, n)
	for i := range specs {
		specs[i] = models.LessonSpec{LessonNumber: i + 1, Title: fmt.Sprintf("Lesson %d", i+1), Type: models.LessonTheory}
	}
	return specs
}

func TestRunBatchOmitsFailedItems(t *testing.T) {
	results, err := RunBatch(context.Background(), "test", lessonSpecs(5), 0, nil,
		func(ctx context.Context, spec models.LessonSpec) (string, error) {
			if spec.LessonNumber == 3 {
				return "", fmt.Errorf("provider exploded")
			}
			return fmt.Sprintf("artifact-%d", spec.LessonNumber), nil
		})
	require.NoError(t, err)

	assert.Len(t, results, 4)
	_, ok := results[3]
	assert.False(t, ok)
	assert.Equal(t, "artifact-5", results[5])
}

func TestRunBatchIsolatesPanics(t *testing.T) {
	results, err := RunBatch(context.Background(), "test", lessonSpecs(3), 0, nil,
		func(ctx context.Context, spec models.LessonSpec) (int, error) {
			if spec.LessonNumber == 2 {
				panic("boom")
			}
			return spec.LessonNumber, nil
		})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRunBatchStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	_, err := RunBatch(ctx, "test", lessonSpecs(5), 0, nil,
		func(ctx context.Context, spec models.LessonSpec) (int, error) {
			calls++
			if calls == 2 {
				cancel()
			}
			return calls, nil
		})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, calls)
}

func TestRunBatchGateStopsBatch(t *testing.T) {
	var calls int
	results, err := RunBatch(context.Background(), "test", lessonSpecs(5), 0,
		func(ctx context.Context) error {
			if calls >= 2 {
				return models.ErrJobCancelled
			}
			return nil
		},
		func(ctx context.Context, spec models.LessonSpec) (int, error) {
			calls++
			return spec.LessonNumber, nil
		})

	// The gate fired before the third item, so no further work was launched
	// and the partial results survive.
	assert.ErrorIs(t, err, models.ErrJobCancelled)
	assert.Equal(t, 2, calls)
	assert.Len(t, results, 2)
}

func TestRunBatchPacingSkippedWhenZero(t *testing.T) {
	start := time.Now()
	_, err := RunBatch(context.Background(), "test", lessonSpecs(4), 0, nil,
		func(ctx context.Context, spec models.LessonSpec) (int, error) {
			return spec.LessonNumber, nil
		})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestRunBatchPacesAfterSuccesses(t *testing.T) {
	start := time.Now()
	_, err := RunBatch(context.Background(), "test", lessonSpecs(3), 20*time.Millisecond, nil,
		func(ctx context.Context, spec models.LessonSpec) (int, error) {
			return spec.LessonNumber, nil
		})
	require.NoError(t, err)
	// Two gaps between three items; the last success is not followed by one.
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestRunBatchSkipsPacingAfterFailure(t *testing.T) {
	start := time.Now()
	_, err := RunBatch(context.Background(), "test", lessonSpecs(3), 150*time.Millisecond, nil,
		func(ctx context.Context, spec models.LessonSpec) (int, error) {
			if spec.LessonNumber < 3 {
				return 0, fmt.Errorf("provider exploded")
			}
			return spec.LessonNumber, nil
		})
	require.NoError(t, err)
	// The two failures burned their rate budget already; only successes
	// are paced, and the final one has nothing after it.
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}
