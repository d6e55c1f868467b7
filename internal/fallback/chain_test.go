package fallback_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"coursegen/internal/fallback"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pureProducer(name, value string) fallback.Producer[string, string] {
	return fallback.Producer[string, string]{
		Name: name,
		Pure: true,
		Run: func(ctx context.Context, in string) (string, *fallback.Failure) {
			return value, nil
		},
	}
}

func failingProducer(name string, kind fallback.FailureKind) fallback.Producer[string, string] {
	return fallback.Producer[string, string]{
		Name: name,
		Run: func(ctx context.Context, in string) (string, *fallback.Failure) {
			return "", fallback.Failf(kind, "%s is down", name)
		},
	}
}

func TestNewChainRequiresPureTerminal(t *testing.T) {
	_, err := fallback.NewChain("audio", failingProducer("tts", fallback.FailureProvider))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be pure")

	_, err = fallback.NewChain[string, string]("audio")
	require.Error(t, err)
}

func TestExecuteFirstTierSuccess(t *testing.T) {
	chain, err := fallback.NewChain("text",
		fallback.Producer[string, string]{
			Name: "llm",
			Run: func(ctx context.Context, in string) (string, *fallback.Failure) {
				return "hello " + in, nil
			},
		},
		pureProducer("template", "template"),
	)
	require.NoError(t, err)

	out, err := chain.Execute(context.Background(), "world")
	require.NoError(t, err)
	assert.Equal(t, "hello world", out.Value)
	assert.Equal(t, 1, out.Tier)
	assert.Equal(t, 1, out.Attempts)
	assert.False(t, out.Degraded)
	assert.Equal(t, "llm", out.Provider)
	assert.Empty(t, out.Failures)
}

func TestExecuteFallsThroughToTerminal(t *testing.T) {
	// First two producers always fail; the chain must still return a value
	// from the third.
	chain, err := fallback.NewChain("video",
		failingProducer("animator", fallback.FailureProvider),
		failingProducer("compositor", fallback.FailureTimeout),
		pureProducer("placeholder", "placeholder.mp4"),
	)
	require.NoError(t, err)

	out, err := chain.Execute(context.Background(), "script")
	require.NoError(t, err)
	assert.Equal(t, "placeholder.mp4", out.Value)
	assert.Equal(t, 3, out.Tier)
	assert.Equal(t, 3, out.Attempts)
	assert.True(t, out.Degraded)
	require.Len(t, out.Failures, 2)
	assert.Equal(t, fallback.FailureProvider, out.Failures[0].Kind)
	assert.Equal(t, fallback.FailureTimeout, out.Failures[1].Kind)
}

func TestExecuteConfigurationCheckSkipsWithoutRunning(t *testing.T) {
	ran := false
	chain, err := fallback.NewChain("image",
		fallback.Producer[string, string]{
			Name:    "dalle",
			Timeout: time.Minute,
			Check: func() *fallback.Failure {
				return fallback.Failf(fallback.FailureConfiguration, "missing api key")
			},
			Run: func(ctx context.Context, in string) (string, *fallback.Failure) {
				ran = true
				return "", nil
			},
		},
		pureProducer("flat-color", "bg.png"),
	)
	require.NoError(t, err)

	start := time.Now()
	out, err := chain.Execute(context.Background(), "prompt")
	require.NoError(t, err)
	assert.False(t, ran, "unconfigured producer must not run")
	assert.Less(t, time.Since(start), time.Second, "configuration skip must not consume the timeout budget")
	assert.Equal(t, 2, out.Tier)
	assert.True(t, out.Degraded)
	require.Len(t, out.Failures, 1)
	assert.Equal(t, fallback.FailureConfiguration, out.Failures[0].Kind)
}

func TestExecuteTierTimeout(t *testing.T) {
	chain, err := fallback.NewChain("audio",
		fallback.Producer[string, string]{
			Name:    "slow-tts",
			Timeout: 20 * time.Millisecond,
			Run: func(ctx context.Context, in string) (string, *fallback.Failure) {
				select {
				case <-ctx.Done():
					return "", fallback.Fail(fallback.FailureProvider, ctx.Err())
				case <-time.After(time.Second):
					return "audio.wav", nil
				}
			},
		},
		pureProducer("sine-wave", "sine.wav"),
	)
	require.NoError(t, err)

	out, err := chain.Execute(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, "sine.wav", out.Value)
	require.Len(t, out.Failures, 1)
	assert.Equal(t, fallback.FailureTimeout, out.Failures[0].Kind, "deadline failures are reclassified as timeouts")
}

func TestExecuteHonorsCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chain, err := fallback.NewChain("text", pureProducer("template", "t"))
	require.NoError(t, err)

	_, err = chain.Execute(ctx, "in")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestExecuteReportsPurityViolation(t *testing.T) {
	chain, err := fallback.NewChain("text",
		fallback.Producer[string, string]{
			Name: "lying-terminal",
			Pure: true,
			Run: func(ctx context.Context, in string) (string, *fallback.Failure) {
				return "", fallback.Failf(fallback.FailureProvider, "boom")
			},
		},
	)
	require.NoError(t, err)

	_, err = chain.Execute(context.Background(), "in")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pure producer")
}
