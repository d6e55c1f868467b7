package providers

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"github.com/sashabaranov/go-openai"

	log "github.com/sirupsen/logrus"
)

// OpenAIText generates lesson content, curricula and marketing copy via
// chat completions.
type OpenAIText struct {
	client *openai.Client
	model  string
}

// NewOpenAIText creates the chat-completion provider. When no API key is
// available the provider is returned disabled rather than failing, so the
// fallback chain can route around it.
func NewOpenAIText(apiKey, model string) *OpenAIText {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		log.Warn("OpenAI API key not provided. OpenAI text provider will be disabled.")
		return &OpenAIText{}
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIText{client: openai.NewClient(apiKey), model: model}
}

func (p *OpenAIText) Name() string     { return "openai" }
func (p *OpenAIText) Configured() bool { return p.client != nil }

func (p *OpenAIText) Generate(ctx context.Context, prompt string) (string, error) {
	if p.client == nil {
		return "", ErrNotConfigured
	}
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// OpenAIImage renders backgrounds and thumbnails with DALL-E.
type OpenAIImage struct {
	client *openai.Client
	model  string
}

func NewOpenAIImage(apiKey, model string) *OpenAIImage {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		log.Warn("OpenAI API key not provided. DALL-E image provider will be disabled.")
		return &OpenAIImage{}
	}
	if model == "" {
		model = openai.CreateImageModelDallE3
	}
	return &OpenAIImage{client: openai.NewClient(apiKey), model: model}
}

func (p *OpenAIImage) Name() string     { return "dall-e" }
func (p *OpenAIImage) Configured() bool { return p.client != nil }

func (p *OpenAIImage) Generate(ctx context.Context, prompt, size string) ([]byte, error) {
	if p.client == nil {
		return nil, ErrNotConfigured
	}
	if size == "" {
		size = openai.CreateImageSize1792x1024
	}
	resp, err := p.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          p.model,
		Size:           size,
		N:              1,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("dall-e image generation: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("dall-e returned no image data")
	}
	img, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decoding dall-e image payload: %w", err)
	}
	return img, nil
}

// OpenAITTS synthesizes narration audio for speech scripts.
type OpenAITTS struct {
	client *openai.Client
	voice  openai.SpeechVoice
}

func NewOpenAITTS(apiKey, voice string) *OpenAITTS {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		log.Warn("OpenAI API key not provided. TTS provider will be disabled.")
		return &OpenAITTS{}
	}
	v := openai.SpeechVoice(voice)
	if v == "" {
		v = openai.VoiceNova
	}
	return &OpenAITTS{client: openai.NewClient(apiKey), voice: v}
}

func (p *OpenAITTS) Name() string     { return "openai-tts" }
func (p *OpenAITTS) Configured() bool { return p.client != nil }

func (p *OpenAITTS) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if p.client == nil {
		return nil, ErrNotConfigured
	}
	resp, err := p.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model: openai.TTSModel1,
		Input: text,
		Voice: p.voice,
	})
	if err != nil {
		return nil, fmt.Errorf("openai speech synthesis: %w", err)
	}
	defer resp.Close()
	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("reading speech payload: %w", err)
	}
	return audio, nil
}
