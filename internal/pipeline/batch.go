package pipeline

import (
	"fmt"
	"time"

	"context"

	log "github.com/sirupsen/logrus"

	"coursegen/internal/models"
)

// RunBatch applies fn to every lesson sequentially, pacing successful
// calls apart to stay under provider rate limits; a failed item already
// burned its rate budget on errors, so the next one starts immediately.
// A failing or panicking item is logged and omitted from the result map.
// The batch aborts only on caller cancellation or when gate reports the
// job was stopped externally; gate runs before every item and may be nil.
// Downstream stages treat missing keys as "nothing to do".
func RunBatch[T any](ctx context.Context, stage string, lessons []models.LessonSpec, pacing time.Duration, gate func(context.Context) error, fn func(context.Context, models.LessonSpec) (T, error)) (map[int]T, error) {
	results := make(map[int]T, len(lessons))

	for i, spec := range lessons {
		if err := ctx.Err(); err != nil {
			return results, fmt.Errorf("batch %s: %w", stage, err)
		}
		if gate != nil {
			if err := gate(ctx); err != nil {
				return results, fmt.Errorf("batch %s: %w", stage, err)
			}
		}

		value, err := runIsolated(ctx, spec, fn)
		if err != nil {
			log.WithFields(log.Fields{
				"stage":  stage,
				"lesson": spec.LessonNumber,
			}).Warnf("Lesson failed, continuing batch: %v", err)
			continue
		}
		results[spec.LessonNumber] = value

		if pacing > 0 && i < len(lessons)-1 {
			if err := sleepCtx(ctx, pacing); err != nil {
				return results, fmt.Errorf("batch %s: %w", stage, err)
			}
		}
	}
	return results, nil
}

// runIsolated converts a panic in fn into an ordinary error so one broken
// lesson cannot take down the batch.
func runIsolated[T any](ctx context.Context, spec models.LessonSpec, fn func(context.Context, models.LessonSpec) (T, error)) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic processing lesson %d: %v", spec.LessonNumber, r)
		}
	}()
	return fn(ctx, spec)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
