// Package providers holds the external AI/media collaborator clients. Each
// provider kind has live implementations and a mock, selected at
// construction time via dependency injection; nothing inspects types at
// runtime.
package providers

import (
	"context"
	"errors"
)

// ErrNotConfigured marks a provider that is missing its credential or
// capability. Fallback chains skip such tiers immediately, without
// consuming any timeout budget.
var ErrNotConfigured = errors.New("provider not configured")

// TextProvider generates prose or JSON from a prompt.
type TextProvider interface {
	Name() string
	Configured() bool
	Generate(ctx context.Context, prompt string) (string, error)
}

// ImageProvider renders an image for a prompt at the given size ("WxH").
type ImageProvider interface {
	Name() string
	Configured() bool
	Generate(ctx context.Context, prompt, size string) ([]byte, error)
}

// TTSProvider synthesizes speech audio from text.
type TTSProvider interface {
	Name() string
	Configured() bool
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// VideoState is the lifecycle of a submitted rendering job.
type VideoState string

const (
	VideoPending VideoState = "pending"
	VideoDone    VideoState = "done"
	VideoError   VideoState = "error"
)

// VideoStatus is one poll observation of a rendering job.
type VideoStatus struct {
	State     VideoState
	ResultURL string
	Error     string
}

// VideoProvider renders presenter videos asynchronously: submit once, then
// poll until done or the caller's budget runs out.
type VideoProvider interface {
	Name() string
	Configured() bool
	Submit(ctx context.Context, script, avatarRef string) (string, error)
	Poll(ctx context.Context, jobID string) (VideoStatus, error)
	// Fetch downloads the finished rendering to a local file.
	Fetch(ctx context.Context, resultURL, destPath string) error
}
