// Package app wires configuration, stores, providers and the pipeline into
// one application object shared by the CLI, the API server and the worker.
package app

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"coursegen/internal/config"
	"coursegen/internal/media"
	"coursegen/internal/packager"
	"coursegen/internal/pipeline"
	"coursegen/internal/providers"
	"coursegen/internal/repair"
	"coursegen/internal/script"
	"coursegen/internal/services"
	"coursegen/internal/store"
	"coursegen/internal/store/memory"
	"coursegen/internal/store/primary"
	"coursegen/internal/store/vector"
)

type App struct {
	Config *config.Config

	JobStore      store.JobStore
	DocumentStore store.DocumentStore
	JobClient     store.JobClient
	VectorStore   store.VectorStore

	EmbeddingService *services.OpenAIEmbedder
	SearchService    *services.SearchService
	IngestService    *services.IngestService

	Orchestrator *pipeline.Orchestrator

	geminiCloser interface{ Close() error }
}

// NewApp builds the full application. Stores degrade gracefully: without a
// database DSN an in-memory store backs job tracking, which is enough for
// one-shot CLI generation.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	a := &App{Config: cfg}

	if err := a.initStores(ctx); err != nil {
		return nil, err
	}
	if err := a.initRetrieval(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.initPipeline(ctx); err != nil {
		a.Close()
		return nil, err
	}

	log.Info("Application initialization complete.")
	return a, nil
}

func (a *App) initStores(ctx context.Context) error {
	if a.Config.Database.Primary.DSN == "" {
		log.Warn("No primary database configured, using in-memory job store.")
		mem := memory.NewStore()
		a.JobStore = mem
		a.DocumentStore = mem
		return nil
	}
	ps, err := primary.NewPrimaryStore(ctx, a.Config.Database.Primary.DSN)
	if err != nil {
		return fmt.Errorf("init primary store: %w", err)
	}
	a.JobStore = ps
	a.DocumentStore = ps
	return nil
}

func (a *App) initRetrieval(ctx context.Context) error {
	a.EmbeddingService = services.NewOpenAIEmbedder(a.Config.Providers.OpenAIAPIKey, a.Config.Embedding.Model)

	if a.Config.Database.Vector.DSN == "" {
		log.Warn("No vector database configured, semantic search disabled.")
		return nil
	}
	vs, err := vector.NewStore(ctx, a.Config.Database.Vector.DSN)
	if err != nil {
		return fmt.Errorf("init vector store: %w", err)
	}
	a.VectorStore = vs
	a.SearchService = services.NewSearchService(a.DocumentStore, vs, a.EmbeddingService)
	return nil
}

func (a *App) initPipeline(ctx context.Context) error {
	p := a.Config.Providers

	deps := pipeline.Deps{
		Renderer: media.NewRenderer(a.Config.Pipeline.FontPath),
		Writer:   script.NewWriter(),
		Repairer: repair.New(),
		Packager: packager.New(a.Config.Pipeline.OutputDir),
		Docs:     a.DocumentStore,
	}

	if p.Mock {
		log.Info("Mock providers enabled, no external AI calls will be made.")
		deps.Text = []providers.TextProvider{&providers.MockText{}}
		deps.Image = &providers.MockImage{}
		deps.TTS = &providers.MockTTS{}
		deps.Video = &providers.MockVideo{}
	} else {
		openaiText := providers.NewOpenAIText(p.OpenAIAPIKey, p.OpenAIModel)
		geminiText, err := providers.NewGeminiText(ctx, p.GeminiAPIKey, p.GeminiModel)
		if err != nil {
			return fmt.Errorf("init gemini provider: %w", err)
		}
		a.geminiCloser = geminiText

		deps.Text = []providers.TextProvider{openaiText, geminiText}
		deps.Image = providers.NewOpenAIImage(p.OpenAIAPIKey, "")
		deps.TTS = providers.NewOpenAITTS(p.OpenAIAPIKey, p.TTSVoice)
		deps.Video = providers.NewDIDVideo(p.DIDAPIKey, p.DIDBaseURL, p.DIDPresenter)
	}

	a.IngestService = services.NewIngestService(
		a.DocumentStore, deps.Text[0], nil,
		a.Config.Chunking.MaxTokens, a.Config.Chunking.Overlap)

	a.Orchestrator = pipeline.New(pipeline.Config{
		WorkDir:      a.Config.Pipeline.WorkDir,
		TestMode:     p.Mock,
		PacingDelay:  time.Duration(a.Config.Pipeline.PacingSeconds) * time.Second,
		PollInterval: time.Duration(a.Config.Pipeline.PollIntervalSeconds) * time.Second,
		PollBudget:   time.Duration(a.Config.Pipeline.PollBudgetSeconds) * time.Second,
		TierTimeout:  time.Duration(a.Config.Pipeline.TierTimeoutSeconds) * time.Second,
		AvatarRef:    p.DIDPresenter,
	}, deps)
	return nil
}

// InitJobClient connects the asynq producer. Only the API server needs it;
// the CLI path runs jobs inline.
func (a *App) InitJobClient() {
	a.JobClient = store.NewAsynqJobClient(a.Config.Redis.Address, a.Config.Redis.Password, a.Config.Redis.DB)
	if a.IngestService != nil {
		a.IngestService.SetJobClient(a.JobClient)
	}
}

// Close releases every connected resource. Safe on a partially built app.
func (a *App) Close() {
	if a.JobClient != nil {
		if err := a.JobClient.Close(); err != nil {
			log.Warnf("Closing job client: %v", err)
		}
	}
	if a.VectorStore != nil {
		if err := a.VectorStore.Close(); err != nil {
			log.Warnf("Closing vector store: %v", err)
		}
	}
	if closer, ok := a.JobStore.(interface{ Close() }); ok {
		closer.Close()
	}
	if a.geminiCloser != nil {
		if err := a.geminiCloser.Close(); err != nil {
			log.Warnf("Closing gemini client: %v", err)
		}
	}
}
