package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/avast/retry-go/v4"

	log "github.com/sirupsen/logrus"
)

const defaultDIDBaseURL = "https://api.d-id.com"

// DIDVideo renders presenter videos through the D-ID talks API. Rendering
// is asynchronous: Submit creates a talk, Poll reports its state, Fetch
// downloads the finished clip.
type DIDVideo struct {
	apiKey    string
	baseURL   string
	presenter string
	http      *http.Client
}

func NewDIDVideo(apiKey, baseURL, presenter string) *DIDVideo {
	if apiKey == "" {
		apiKey = os.Getenv("DID_API_KEY")
	}
	if apiKey == "" {
		log.Warn("D-ID API key not provided. Presenter video provider will be disabled.")
	}
	if baseURL == "" {
		baseURL = defaultDIDBaseURL
	}
	return &DIDVideo{
		apiKey:    apiKey,
		baseURL:   baseURL,
		presenter: presenter,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *DIDVideo) Name() string     { return "d-id" }
func (p *DIDVideo) Configured() bool { return p.apiKey != "" }

type didTalkRequest struct {
	Script    didScript `json:"script"`
	SourceURL string    `json:"source_url"`
}

type didScript struct {
	Type  string `json:"type"`
	Input string `json:"input"`
}

type didTalkResponse struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	ResultURL string `json:"result_url"`
	Error     struct {
		Description string `json:"description"`
	} `json:"error"`
}

func (p *DIDVideo) Submit(ctx context.Context, script, avatarRef string) (string, error) {
	if p.apiKey == "" {
		return "", ErrNotConfigured
	}
	if avatarRef == "" {
		avatarRef = p.presenter
	}
	body, err := json.Marshal(didTalkRequest{
		Script:    didScript{Type: "text", Input: script},
		SourceURL: avatarRef,
	})
	if err != nil {
		return "", fmt.Errorf("encoding talk request: %w", err)
	}
	var talk didTalkResponse
	if err := p.do(ctx, http.MethodPost, "/talks", bytes.NewReader(body), &talk); err != nil {
		return "", fmt.Errorf("submitting talk: %w", err)
	}
	if talk.ID == "" {
		return "", fmt.Errorf("d-id did not return a talk id")
	}
	return talk.ID, nil
}

func (p *DIDVideo) Poll(ctx context.Context, jobID string) (VideoStatus, error) {
	if p.apiKey == "" {
		return VideoStatus{}, ErrNotConfigured
	}
	var talk didTalkResponse
	if err := p.do(ctx, http.MethodGet, "/talks/"+jobID, nil, &talk); err != nil {
		return VideoStatus{}, fmt.Errorf("polling talk %s: %w", jobID, err)
	}
	switch talk.Status {
	case "done":
		return VideoStatus{State: VideoDone, ResultURL: talk.ResultURL}, nil
	case "error", "rejected":
		return VideoStatus{State: VideoError, Error: talk.Error.Description}, nil
	default:
		return VideoStatus{State: VideoPending}, nil
	}
}

// Fetch downloads the finished rendering, retrying transient failures.
func (p *DIDVideo) Fetch(ctx context.Context, resultURL, destPath string) error {
	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, resultURL, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := p.http.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("fetching video: unexpected status %d", resp.StatusCode)
			}
			f, err := os.Create(destPath)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			defer f.Close()
			if _, err := io.Copy(f, resp.Body); err != nil {
				return err
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(2*time.Second),
	)
}

func (p *DIDVideo) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Basic "+p.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := p.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("d-id API returned %d: %s", resp.StatusCode, payload)
	}
	return json.Unmarshal(payload, out)
}
