package pipeline

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"coursegen/internal/fallback"
	"coursegen/internal/providers"
)

// renderPresenter drives one asynchronous video rendering: submit, poll on
// a fixed interval until the budget runs out, then fetch. Transient poll
// errors are retried but still consume the budget, so a flapping provider
// cannot stall a job forever.
func renderPresenter(ctx context.Context, vp providers.VideoProvider, scriptText, avatarRef, destPath string, interval, budget time.Duration) *fallback.Failure {
	jobID, err := vp.Submit(ctx, scriptText, avatarRef)
	if err != nil {
		return classify(err, "submitting rendering job")
	}

	deadline := time.Now().Add(budget)
	for {
		status, err := vp.Poll(ctx, jobID)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return fallback.Fail(fallback.FailureProvider, ctx.Err())
			}
			log.Warnf("Transient poll failure for rendering %s: %v", jobID, err)
		case status.State == providers.VideoDone:
			if err := vp.Fetch(ctx, status.ResultURL, destPath); err != nil {
				return classify(err, "fetching rendered video")
			}
			return nil
		case status.State == providers.VideoError:
			return fallback.Failf(fallback.FailureProvider, "rendering %s failed: %s", jobID, status.Error)
		}

		if time.Now().Add(interval).After(deadline) {
			return fallback.Failf(fallback.FailureTimeout, "rendering %s exceeded %s polling budget", jobID, budget)
		}
		if err := sleepCtx(ctx, interval); err != nil {
			return fallback.Fail(fallback.FailureProvider, err)
		}
	}
}

// classify maps a provider error onto the tagged failure taxonomy.
func classify(err error, action string) *fallback.Failure {
	wrapped := fmt.Errorf("%s: %w", action, err)
	switch {
	case err == nil:
		return nil
	case isConfigErr(err):
		return fallback.Fail(fallback.FailureConfiguration, wrapped)
	case isTimeoutErr(err):
		return fallback.Fail(fallback.FailureTimeout, wrapped)
	default:
		return fallback.Fail(fallback.FailureProvider, wrapped)
	}
}
