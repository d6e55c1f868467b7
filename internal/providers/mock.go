package providers

import (
	"context"
	"fmt"
	"os"
	"sync"
)

// MockText returns a canned response without network access. Used in test
// mode and as the deterministic layer in unit tests.
type MockText struct {
	mu        sync.Mutex
	Response  string
	Err       error
	FailFirst int // fail this many calls before succeeding
	Calls     int
}

func (p *MockText) Name() string     { return "mock-text" }
func (p *MockText) Configured() bool { return true }

func (p *MockText) Generate(ctx context.Context, prompt string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls++
	if p.Err != nil {
		return "", p.Err
	}
	if p.Calls <= p.FailFirst {
		return "", fmt.Errorf("mock text failure %d", p.Calls)
	}
	if p.Response != "" {
		return p.Response, nil
	}
	return fmt.Sprintf("mock response for prompt of %d chars", len(prompt)), nil
}

// MockImage returns a tiny fixed payload.
type MockImage struct {
	Payload []byte
	Err     error
}

func (p *MockImage) Name() string     { return "mock-image" }
func (p *MockImage) Configured() bool { return true }

func (p *MockImage) Generate(ctx context.Context, prompt, size string) ([]byte, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	if p.Payload != nil {
		return p.Payload, nil
	}
	return []byte("mock-image-bytes"), nil
}

// MockTTS returns fixed audio bytes.
type MockTTS struct {
	Payload []byte
	Err     error
}

func (p *MockTTS) Name() string     { return "mock-tts" }
func (p *MockTTS) Configured() bool { return true }

func (p *MockTTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	if p.Payload != nil {
		return p.Payload, nil
	}
	return []byte("mock-audio-bytes"), nil
}

// MockVideo simulates an asynchronous rendering backend: jobs stay pending
// for PendingPolls observations, then finish.
type MockVideo struct {
	mu           sync.Mutex
	PendingPolls int
	SubmitErr    error
	FailRender   bool
	polls        map[string]int
	nextID       int
}

func (p *MockVideo) Name() string     { return "mock-video" }
func (p *MockVideo) Configured() bool { return true }

func (p *MockVideo) Submit(ctx context.Context, script, avatarRef string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.SubmitErr != nil {
		return "", p.SubmitErr
	}
	p.nextID++
	id := fmt.Sprintf("mock-talk-%d", p.nextID)
	if p.polls == nil {
		p.polls = make(map[string]int)
	}
	p.polls[id] = 0
	return id, nil
}

func (p *MockVideo) Poll(ctx context.Context, jobID string) (VideoStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	seen, ok := p.polls[jobID]
	if !ok {
		return VideoStatus{}, fmt.Errorf("unknown mock talk %q", jobID)
	}
	p.polls[jobID] = seen + 1
	if seen < p.PendingPolls {
		return VideoStatus{State: VideoPending}, nil
	}
	if p.FailRender {
		return VideoStatus{State: VideoError, Error: "mock rendering failure"}, nil
	}
	return VideoStatus{State: VideoDone, ResultURL: "mock://" + jobID}, nil
}

func (p *MockVideo) Fetch(ctx context.Context, resultURL, destPath string) error {
	return os.WriteFile(destPath, []byte("mock-video-bytes"), 0o644)
}
