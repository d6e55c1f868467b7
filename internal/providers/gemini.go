package providers

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	log "github.com/sirupsen/logrus"
)

// GeminiText is the second-tier text provider, used when OpenAI is down or
// unconfigured.
type GeminiText struct {
	client *genai.Client
	model  string
}

// NewGeminiText creates the Gemini text provider. A missing API key yields
// a disabled provider, not an error.
func NewGeminiText(ctx context.Context, apiKey, model string) (*GeminiText, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		log.Warn("Gemini API key not provided. Gemini text provider will be disabled.")
		return &GeminiText{}, nil
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	log.Infof("Gemini text provider initialized with model %s", model)
	return &GeminiText{client: client, model: model}, nil
}

func (p *GeminiText) Name() string     { return "gemini" }
func (p *GeminiText) Configured() bool { return p.client != nil }

func (p *GeminiText) Generate(ctx context.Context, prompt string) (string, error) {
	if p.client == nil {
		return "", ErrNotConfigured
	}
	gm := p.client.GenerativeModel(p.model)
	resp, err := gm.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini content generation: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini returned no candidates")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("gemini candidate contained no text parts")
	}
	return sb.String(), nil
}

// Close releases the underlying gRPC connection.
func (p *GeminiText) Close() error {
	if p.client == nil {
		return nil
	}
	return p.client.Close()
}
