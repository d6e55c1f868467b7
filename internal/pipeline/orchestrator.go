// Package pipeline drives course generation through its ten stages, from
// curriculum planning to the packaged archive. Each stage reads the shared
// CourseData aggregate and adds its own artifacts; per-lesson work runs
// through fallback chains so a degraded provider landscape still yields a
// complete course.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"coursegen/internal/fallback"
	"coursegen/internal/jobstate"
	"coursegen/internal/media"
	"coursegen/internal/models"
	"coursegen/internal/notebook"
	"coursegen/internal/packager"
	"coursegen/internal/planner"
	"coursegen/internal/providers"
	"coursegen/internal/repair"
	"coursegen/internal/script"
	"coursegen/internal/store"
)

// Config carries the orchestrator's tunables. Zero values fall back to
// production defaults; TestMode drops the pacing delay so suites run fast.
type Config struct {
	WorkDir      string
	TestMode     bool
	PacingDelay  time.Duration
	PollInterval time.Duration
	PollBudget   time.Duration
	TierTimeout  time.Duration
	AvatarRef    string
}

func (c Config) withDefaults() Config {
	if c.WorkDir == "" {
		c.WorkDir = "work"
	}
	if c.PacingDelay == 0 {
		c.PacingDelay = 30 * time.Second
	}
	if c.PollInterval == 0 {
		c.PollInterval = 10 * time.Second
	}
	if c.PollBudget == 0 {
		c.PollBudget = 300 * time.Second
	}
	if c.TierTimeout == 0 {
		c.TierTimeout = 120 * time.Second
	}
	if c.TestMode {
		c.PacingDelay = 0
	}
	return c
}

// Deps are the orchestrator's injected collaborators. Text tiers are tried
// in slice order; any provider may be a mock.
type Deps struct {
	Text     []providers.TextProvider
	Image    providers.ImageProvider
	TTS      providers.TTSProvider
	Video    providers.VideoProvider
	Renderer *media.Renderer
	Writer   *script.Writer
	Repairer *repair.Repairer
	Packager *packager.Packager
	Docs     store.DocumentStore
}

// Request is one course generation order.
type Request struct {
	Topic       string
	DocumentIDs []int64
}

// Result is what a completed run produced.
type Result struct {
	Data    *models.CourseData
	Package *packager.Result
}

// Orchestrator runs the generation pipeline for one job at a time.
type Orchestrator struct {
	cfg  Config
	deps Deps
}

func New(cfg Config, deps Deps) *Orchestrator {
	return &Orchestrator{cfg: cfg.withDefaults(), deps: deps}
}

// Run executes all stages for a job, advancing its state machine as each
// stage lands. Per-lesson provider failures degrade artifacts but do not
// fail the job; cancellation and packaging errors do.
func (o *Orchestrator) Run(ctx context.Context, m *jobstate.Machine, req Request) (*Result, error) {
	if err := m.Start(ctx); err != nil {
		return nil, err
	}

	data := models.NewCourseData(req.Topic)
	workDir := filepath.Join(o.cfg.WorkDir, m.Job().JobID.String())
	for _, d := range []string{"backgrounds", "videos", "final"} {
		if err := os.MkdirAll(filepath.Join(workDir, d), 0o755); err != nil {
			failErr := fmt.Errorf("creating work directory: %w", err)
			m.Fail(ctx, failErr)
			return nil, failErr
		}
	}

	// The gate lets batched stages notice an API-side cancellation between
	// lessons instead of at the next stage boundary.
	gate := m.CheckLive

	var pkg *packager.Result
	for i, stage := range models.StageOrder {
		log.WithFields(log.Fields{"job_id": m.Job().JobID, "stage": stage}).Info("Starting stage")

		var err error
		switch stage {
		case models.StagePlanCurriculum:
			err = o.planCurriculum(ctx, data, req)
		case models.StageLessonContent:
			err = o.generateContent(ctx, data, gate)
		case models.StageDescription:
			err = o.generateDescription(ctx, data)
		case models.StageSpeechScripts:
			err = o.generateScripts(ctx, data, gate)
		case models.StageNotebooks:
			o.generateNotebooks(data)
		case models.StageBackgrounds:
			err = o.generateBackgrounds(ctx, data, workDir, gate)
		case models.StageThumbnail:
			err = o.generateThumbnail(ctx, data, workDir)
		case models.StagePresenterVideos:
			err = o.renderVideos(ctx, data, workDir, gate)
		case models.StageFinalVideos:
			o.assembleFinalVideos(data, workDir)
		case models.StagePackage:
			pkg, err = o.deps.Packager.CreatePackage(data)
		}
		if err != nil {
			if errors.Is(err, models.ErrJobCancelled) {
				// The API already failed the job in the store; there is
				// nothing left to persist.
				return nil, fmt.Errorf("generation cancelled during stage %s", stage)
			}
			failErr := fmt.Errorf("stage %s: %w", stage, err)
			if errors.Is(err, context.Canceled) {
				failErr = fmt.Errorf("generation cancelled during stage %s", stage)
			}
			m.Fail(ctx, failErr)
			return nil, failErr
		}

		if err := m.Advance(ctx, stageProgress(i)); err != nil {
			return nil, err
		}
	}

	if err := m.Complete(ctx, pkg.ArchivePath); err != nil {
		return nil, err
	}
	return &Result{Data: data, Package: pkg}, nil
}

// stageProgress maps a completed stage index onto the 0-90 progress band;
// Complete owns the final jump to 100.
func stageProgress(stageIdx int) int {
	return (stageIdx + 1) * 90 / len(models.StageOrder)
}

type planInput struct {
	topic     string
	summaries []string
}

func (o *Orchestrator) planCurriculum(ctx context.Context, data *models.CourseData, req Request) error {
	summaries := o.documentSummaries(ctx, req.DocumentIDs)

	var producers []fallback.Producer[planInput, *models.Curriculum]
	for _, tp := range o.deps.Text {
		tp := tp
		producers = append(producers, fallback.Producer[planInput, *models.Curriculum]{
			Name:    tp.Name(),
			Timeout: o.cfg.TierTimeout,
			Check:   configCheck(tp.Configured),
			Run: func(ctx context.Context, in planInput) (*models.Curriculum, *fallback.Failure) {
				raw, err := generateText(ctx, tp, planner.Prompt(in.topic, in.summaries))
				if err != nil {
					return nil, classify(err, "planning curriculum")
				}
				cur, err := planner.Parse(raw, in.topic)
				if err != nil {
					return nil, fallback.Fail(fallback.FailureValidation, err)
				}
				return cur, nil
			},
		})
	}
	producers = append(producers, fallback.Producer[planInput, *models.Curriculum]{
		Name: "deterministic-planner",
		Pure: true,
		Run: func(ctx context.Context, in planInput) (*models.Curriculum, *fallback.Failure) {
			return planner.Fallback(in.topic, in.summaries), nil
		},
	})

	chain, err := fallback.NewChain("curriculum", producers...)
	if err != nil {
		return err
	}
	outcome, err := chain.Execute(ctx, planInput{topic: data.Topic, summaries: summaries})
	if err != nil {
		return err
	}
	data.Curriculum = outcome.Value
	return nil
}

// documentSummaries resolves reference document summaries for planning.
// Missing documents or a missing store degrade to an unanchored plan.
func (o *Orchestrator) documentSummaries(ctx context.Context, ids []int64) []string {
	if o.deps.Docs == nil || len(ids) == 0 {
		return nil
	}
	docs, err := o.deps.Docs.GetDocumentsByIDs(ctx, ids)
	if err != nil {
		log.Warnf("Could not load reference documents, planning without them: %v", err)
		return nil
	}
	var summaries []string
	for _, d := range docs {
		if d.Summary != nil && *d.Summary != "" {
			summaries = append(summaries, *d.Summary)
		}
	}
	return summaries
}

func (o *Orchestrator) generateContent(ctx context.Context, data *models.CourseData, gate func(context.Context) error) error {
	results, err := RunBatch(ctx, models.StageLessonContent, data.Curriculum.Lessons, o.cfg.PacingDelay, gate,
		func(ctx context.Context, spec models.LessonSpec) (*models.LessonContent, error) {
			return o.lessonContent(ctx, data.Topic, spec)
		})
	if err != nil {
		return err
	}
	data.Content = results
	return nil
}

func (o *Orchestrator) lessonContent(ctx context.Context, topic string, spec models.LessonSpec) (*models.LessonContent, error) {
	var producers []fallback.Producer[models.LessonSpec, *models.LessonContent]
	for _, tp := range o.deps.Text {
		tp := tp
		producers = append(producers, fallback.Producer[models.LessonSpec, *models.LessonContent]{
			Name:    tp.Name(),
			Timeout: o.cfg.TierTimeout,
			Check:   configCheck(tp.Configured),
			Run: func(ctx context.Context, in models.LessonSpec) (*models.LessonContent, *fallback.Failure) {
				raw, err := generateText(ctx, tp, contentPrompt(topic, in))
				if err != nil {
					return nil, classify(err, "generating lesson content")
				}
				content, err := o.deps.Repairer.Parse(raw, in)
				if err != nil {
					return nil, fallback.Fail(fallback.FailureValidation, err)
				}
				return content, nil
			},
		})
	}
	producers = append(producers, fallback.Producer[models.LessonSpec, *models.LessonContent]{
		Name: "content-template",
		Pure: true,
		Run: func(ctx context.Context, in models.LessonSpec) (*models.LessonContent, *fallback.Failure) {
			return repair.TemplateContent(in), nil
		},
	})

	chain, err := fallback.NewChain("lesson-content", producers...)
	if err != nil {
		return nil, err
	}
	outcome, err := chain.Execute(ctx, spec)
	if err != nil {
		return nil, err
	}
	return outcome.Value, nil
}

func (o *Orchestrator) generateDescription(ctx context.Context, data *models.CourseData) error {
	var producers []fallback.Producer[*models.Curriculum, string]
	for _, tp := range o.deps.Text {
		tp := tp
		producers = append(producers, fallback.Producer[*models.Curriculum, string]{
			Name:    tp.Name(),
			Timeout: o.cfg.TierTimeout,
			Check:   configCheck(tp.Configured),
			Run: func(ctx context.Context, in *models.Curriculum) (string, *fallback.Failure) {
				raw, err := generateText(ctx, tp, descriptionPrompt(in))
				if err != nil {
					return "", classify(err, "generating description")
				}
				if strings.TrimSpace(raw) == "" {
					return "", fallback.Failf(fallback.FailureValidation, "empty description response")
				}
				return strings.TrimSpace(raw), nil
			},
		})
	}
	producers = append(producers, fallback.Producer[*models.Curriculum, string]{
		Name: "description-template",
		Pure: true,
		Run: func(ctx context.Context, in *models.Curriculum) (string, *fallback.Failure) {
			return fallbackDescription(in), nil
		},
	})

	chain, err := fallback.NewChain("description", producers...)
	if err != nil {
		return err
	}
	outcome, err := chain.Execute(ctx, data.Curriculum)
	if err != nil {
		return err
	}
	data.Description = outcome.Value
	return nil
}

func (o *Orchestrator) generateScripts(ctx context.Context, data *models.CourseData, gate func(context.Context) error) error {
	results, err := RunBatch(ctx, models.StageSpeechScripts, data.Curriculum.Lessons, o.cfg.PacingDelay, gate,
		func(ctx context.Context, spec models.LessonSpec) (models.StageArtifact, error) {
			content, ok := data.Content[spec.LessonNumber]
			if !ok {
				return models.StageArtifact{}, fmt.Errorf("no content for lesson %d", spec.LessonNumber)
			}
			return o.lessonScript(ctx, spec, content)
		})
	if err != nil {
		return err
	}
	data.Scripts = results
	return nil
}

func (o *Orchestrator) lessonScript(ctx context.Context, spec models.LessonSpec, content *models.LessonContent) (models.StageArtifact, error) {
	var producers []fallback.Producer[*models.LessonContent, string]
	for _, tp := range o.deps.Text {
		tp := tp
		producers = append(producers, fallback.Producer[*models.LessonContent, string]{
			Name:    tp.Name(),
			Timeout: o.cfg.TierTimeout,
			Check:   configCheck(tp.Configured),
			Run: func(ctx context.Context, in *models.LessonContent) (string, *fallback.Failure) {
				raw, err := generateText(ctx, tp, o.deps.Writer.Prompt(in))
				if err != nil {
					return "", classify(err, "generating speech script")
				}
				if strings.TrimSpace(raw) == "" {
					return "", fallback.Failf(fallback.FailureValidation, "empty script response")
				}
				return o.deps.Writer.AddTimingCues(raw), nil
			},
		})
	}
	producers = append(producers, fallback.Producer[*models.LessonContent, string]{
		Name: "script-composer",
		Pure: true,
		Run: func(ctx context.Context, in *models.LessonContent) (string, *fallback.Failure) {
			return o.deps.Writer.Compose(in), nil
		},
	})

	chain, err := fallback.NewChain("speech-script", producers...)
	if err != nil {
		return models.StageArtifact{}, err
	}
	outcome, err := chain.Execute(ctx, content)
	if err != nil {
		return models.StageArtifact{}, err
	}
	return artifactFrom(spec.LessonNumber, models.StageSpeechScripts, outcome), nil
}

// generateNotebooks builds exercise notebooks for coding lessons only.
// Non-coding lessons simply have no key; that is not an error.
func (o *Orchestrator) generateNotebooks(data *models.CourseData) {
	for _, spec := range data.Curriculum.Lessons {
		if !spec.HasCoding() {
			continue
		}
		content, ok := data.Content[spec.LessonNumber]
		if !ok {
			continue
		}
		payload, err := notebook.Build(content)
		if err != nil {
			log.Warnf("Could not build notebook for lesson %d: %v", spec.LessonNumber, err)
			continue
		}
		data.Notebooks[spec.LessonNumber] = models.StageArtifact{
			LessonNumber: spec.LessonNumber,
			Stage:        models.StageNotebooks,
			Value:        string(payload),
			Provider:     "notebook-builder",
			Tier:         1,
			Attempts:     1,
		}
	}
}

func (o *Orchestrator) generateBackgrounds(ctx context.Context, data *models.CourseData, workDir string, gate func(context.Context) error) error {
	results, err := RunBatch(ctx, models.StageBackgrounds, data.Curriculum.Lessons, o.cfg.PacingDelay, gate,
		func(ctx context.Context, spec models.LessonSpec) (models.StageArtifact, error) {
			outcome, err := o.imageChain("background", backgroundPrompt(data.Topic, spec), func() ([]byte, error) {
				return o.deps.Renderer.Background(data.Topic, spec.Title)
			}).Execute(ctx, struct{}{})
			if err != nil {
				return models.StageArtifact{}, err
			}
			dest := filepath.Join(workDir, "backgrounds", fmt.Sprintf("lesson_%02d.png", spec.LessonNumber))
			if err := os.WriteFile(dest, outcome.Value, 0o644); err != nil {
				return models.StageArtifact{}, fmt.Errorf("writing background: %w", err)
			}
			art := artifactFrom(spec.LessonNumber, models.StageBackgrounds, outcome)
			art.Value = dest
			return art, nil
		})
	if err != nil {
		return err
	}
	data.Backgrounds = results
	return nil
}

func (o *Orchestrator) generateThumbnail(ctx context.Context, data *models.CourseData, workDir string) error {
	outcome, err := o.imageChain("thumbnail", thumbnailPrompt(data.Curriculum), func() ([]byte, error) {
		return o.deps.Renderer.Thumbnail(data.Curriculum.CourseTitle, len(data.Curriculum.Lessons))
	}).Execute(ctx, struct{}{})
	if err != nil {
		return err
	}
	dest := filepath.Join(workDir, "thumbnail.png")
	if err := os.WriteFile(dest, outcome.Value, 0o644); err != nil {
		return fmt.Errorf("writing thumbnail: %w", err)
	}
	art := artifactFrom(0, models.StageThumbnail, outcome)
	art.Value = dest
	data.Thumbnail = &art
	return nil
}

// imageChain wires the provider tier over the gradient renderer terminal.
func (o *Orchestrator) imageChain(name, prompt string, render func() ([]byte, error)) *fallback.Chain[struct{}, []byte] {
	var producers []fallback.Producer[struct{}, []byte]
	if o.deps.Image != nil {
		ip := o.deps.Image
		producers = append(producers, fallback.Producer[struct{}, []byte]{
			Name:    ip.Name(),
			Timeout: o.cfg.TierTimeout,
			Check:   configCheck(ip.Configured),
			Run: func(ctx context.Context, _ struct{}) ([]byte, *fallback.Failure) {
				img, err := ip.Generate(ctx, prompt, "1792x1024")
				if err != nil {
					return nil, classify(err, "generating image")
				}
				return img, nil
			},
		})
	}
	producers = append(producers, fallback.Producer[struct{}, []byte]{
		Name: "gradient-renderer",
		Pure: true,
		Run: func(ctx context.Context, _ struct{}) ([]byte, *fallback.Failure) {
			img, err := render()
			if err != nil {
				return nil, fallback.Fail(fallback.FailureValidation, err)
			}
			return img, nil
		},
	})

	// Construction cannot fail: the terminal producer is pure.
	chain, _ := fallback.NewChain(name, producers...)
	return chain
}

func (o *Orchestrator) renderVideos(ctx context.Context, data *models.CourseData, workDir string, gate func(context.Context) error) error {
	results, err := RunBatch(ctx, models.StagePresenterVideos, data.Curriculum.Lessons, o.cfg.PacingDelay, gate,
		func(ctx context.Context, spec models.LessonSpec) (models.StageArtifact, error) {
			scriptArt, ok := data.Scripts[spec.LessonNumber]
			if !ok {
				return models.StageArtifact{}, fmt.Errorf("no script for lesson %d", spec.LessonNumber)
			}
			return o.lessonVideo(ctx, spec, scriptArt.Value, workDir)
		})
	if err != nil {
		return err
	}
	data.Videos = results
	return nil
}

func (o *Orchestrator) lessonVideo(ctx context.Context, spec models.LessonSpec, scriptText, workDir string) (models.StageArtifact, error) {
	dest := filepath.Join(workDir, "videos", fmt.Sprintf("lesson_%02d.mp4", spec.LessonNumber))

	var producers []fallback.Producer[string, string]
	if o.deps.Video != nil {
		vp := o.deps.Video
		producers = append(producers, fallback.Producer[string, string]{
			Name:  vp.Name(),
			Check: configCheck(vp.Configured),
			Run: func(ctx context.Context, in string) (string, *fallback.Failure) {
				if f := renderPresenter(ctx, vp, in, o.cfg.AvatarRef, dest, o.cfg.PollInterval, o.cfg.PollBudget); f != nil {
					return "", f
				}
				return dest, nil
			},
		})
	}
	if o.deps.TTS != nil {
		tts := o.deps.TTS
		producers = append(producers, fallback.Producer[string, string]{
			Name:    tts.Name(),
			Timeout: o.cfg.TierTimeout,
			Check:   configCheck(tts.Configured),
			Run: func(ctx context.Context, in string) (string, *fallback.Failure) {
				audio, err := tts.Synthesize(ctx, stripCues(in))
				if err != nil {
					return "", classify(err, "synthesizing narration")
				}
				audioPath := strings.TrimSuffix(dest, ".mp4") + ".mp3"
				if err := os.WriteFile(audioPath, audio, 0o644); err != nil {
					return "", fallback.Failf(fallback.FailureProvider, "writing narration: %v", err)
				}
				if err := media.PlaceholderVideo(dest, spec.Title); err != nil {
					return "", fallback.Failf(fallback.FailureProvider, "writing placeholder clip: %v", err)
				}
				return dest, nil
			},
		})
	}
	producers = append(producers, fallback.Producer[string, string]{
		Name: "placeholder-video",
		Pure: true,
		Run: func(ctx context.Context, in string) (string, *fallback.Failure) {
			tone := media.SynthesizeTone(5, 440)
			audioPath := strings.TrimSuffix(dest, ".mp4") + ".wav"
			if err := os.WriteFile(audioPath, tone, 0o644); err != nil {
				return "", fallback.Failf(fallback.FailureValidation, "writing tone track: %v", err)
			}
			if err := media.PlaceholderVideo(dest, spec.Title); err != nil {
				return "", fallback.Failf(fallback.FailureValidation, "writing placeholder clip: %v", err)
			}
			return dest, nil
		},
	})

	chain, err := fallback.NewChain("presenter-video", producers...)
	if err != nil {
		return models.StageArtifact{}, err
	}
	outcome, err := chain.Execute(ctx, scriptText)
	if err != nil {
		return models.StageArtifact{}, err
	}
	return artifactFrom(spec.LessonNumber, models.StagePresenterVideos, outcome), nil
}

// assembleFinalVideos composes backgrounds and presenter clips. Lessons
// without a presenter clip are skipped; a missing background degrades to a
// straight passthrough.
func (o *Orchestrator) assembleFinalVideos(data *models.CourseData, workDir string) {
	for _, spec := range data.Curriculum.Lessons {
		presenter, ok := data.Videos[spec.LessonNumber]
		if !ok {
			continue
		}
		var bgPath string
		if bg, ok := data.Backgrounds[spec.LessonNumber]; ok {
			bgPath = bg.Value
		}
		dest := filepath.Join(workDir, "final", fmt.Sprintf("lesson_%02d.mp4", spec.LessonNumber))
		if err := media.ComposeFinal(presenter.Value, bgPath, dest); err != nil {
			log.Warnf("Could not assemble final video for lesson %d: %v", spec.LessonNumber, err)
			continue
		}
		data.FinalVideos[spec.LessonNumber] = models.StageArtifact{
			LessonNumber: spec.LessonNumber,
			Stage:        models.StageFinalVideos,
			Value:        dest,
			Provider:     "assembler",
			Tier:         1,
			Attempts:     1,
			Degraded:     presenter.Degraded || bgPath == "",
		}
	}
}

// cueRe matches bracketed stage directions like [PAUSE:1s] or
// [VISUAL_CUE: Show code].
var cueRe = regexp.MustCompile(`\[[A-Z_]+(:[^\]]*)?\]`)

// stripCues removes presenter stage directions before TTS synthesis.
func stripCues(scriptText string) string {
	out := cueRe.ReplaceAllString(scriptText, "")
	out = strings.ReplaceAll(out, "[/EMPHASIS]", "")
	return strings.TrimSpace(out)
}

// artifactFrom copies chain provenance onto an artifact. String-valued
// outcomes carry their value across; byte-valued outcomes are written to
// disk by the caller, which then sets Value to the path.
func artifactFrom[O any](lessonNumber int, stage string, outcome fallback.Outcome[O]) models.StageArtifact {
	art := models.StageArtifact{
		LessonNumber: lessonNumber,
		Stage:        stage,
		Provider:     outcome.Provider,
		Tier:         outcome.Tier,
		Attempts:     outcome.Attempts,
		Degraded:     outcome.Degraded,
	}
	if v, ok := any(outcome.Value).(string); ok {
		art.Value = v
	}
	return art
}

func configCheck(configured func() bool) func() *fallback.Failure {
	return func() *fallback.Failure {
		if !configured() {
			return fallback.Failf(fallback.FailureConfiguration, "provider not configured")
		}
		return nil
	}
}
