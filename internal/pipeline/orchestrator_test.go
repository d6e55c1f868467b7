package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursegen/internal/jobstate"
	"coursegen/internal/media"
	"coursegen/internal/models"
	"coursegen/internal/packager"
	"coursegen/internal/providers"
	"coursegen/internal/repair"
	"coursegen/internal/script"
	"coursegen/internal/store/memory"
)

// fakeText routes canned responses by prompt content, standing in for a
// healthy LLM across all text stages.
type fakeText struct {
	name string
	fn   func(prompt string) (string, error)
}

func (f *fakeText) Name() string     { return f.name }
func (f *fakeText) Configured() bool { return true }
func (f *fakeText) Generate(ctx context.Context, prompt string) (string, error) {
	return f.fn(prompt)
}

const twoLessonCurriculum = `{
	"course_title": "Complete Docker Course",
	"difficulty": "intermediate",
	"lessons": [
		{"lesson_number": 1, "title": "Containers 101", "type": "theory", "duration_minutes": 30, "learning_objectives": ["Understand containers"]},
		{"lesson_number": 2, "title": "Building Images", "type": "hands-on", "duration_minutes": 30, "learning_objectives": ["Write a Dockerfile"]}
	]
}`

const validLessonJSON = `{
	"introduction": "Welcome to the lesson.",
	"main_concept": "Containers isolate processes.",
	"key_takeaways": ["Containers share the host kernel"],
	"summary": "You now understand containers.",
	"code_examples": [{"title": "Run a container", "description": "Start nginx.", "code": "docker run nginx"}],
	"exercises": [{"title": "Run your own", "description": "Start a redis container."}]
}`

// healthyText answers every stage prompt with a usable response.
func healthyText() providers.TextProvider {
	return &fakeText{name: "fake-llm", fn: func(prompt string) (string, error) {
		switch {
		case strings.Contains(prompt, "course curriculum"):
			return twoLessonCurriculum, nil
		case strings.Contains(prompt, "Write the content for lesson"):
			return validLessonJSON, nil
		case strings.Contains(prompt, "marketing description"):
			return "A hands-on journey into Docker, from first container to production image.", nil
		case strings.Contains(prompt, "speech script"):
			return "Welcome to this lesson. Let's dive right in. We will cover a lot of ground today.", nil
		default:
			return "", errors.New("unexpected prompt")
		}
	}}
}

func newMachine(t *testing.T) (*jobstate.Machine, *memory.Store) {
	t.Helper()
	st := memory.NewStore()
	job := &models.GenerationJob{Topic: "Docker"}
	require.NoError(t, st.CreateJob(context.Background(), job))
	return jobstate.New(st, job), st
}

func newOrchestrator(t *testing.T, deps Deps) *Orchestrator {
	t.Helper()
	if deps.Renderer == nil {
		deps.Renderer = media.NewRenderer("")
	}
	if deps.Writer == nil {
		deps.Writer = script.NewWriter()
	}
	if deps.Repairer == nil {
		deps.Repairer = repair.New()
	}
	if deps.Packager == nil {
		deps.Packager = packager.New(t.TempDir())
	}
	return New(Config{
		WorkDir:      t.TempDir(),
		TestMode:     true,
		PollInterval: 2 * time.Millisecond,
		PollBudget:   40 * time.Millisecond,
		TierTimeout:  time.Second,
	}, deps)
}

func TestRunHappyPath(t *testing.T) {
	o := newOrchestrator(t, Deps{
		Text:  []providers.TextProvider{healthyText()},
		Image: &providers.MockImage{},
		TTS:   &providers.MockTTS{},
		Video: &providers.MockVideo{PendingPolls: 2},
	})
	m, _ := newMachine(t)

	res, err := o.Run(context.Background(), m, Request{Topic: "Docker"})
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusCompleted, m.Status())
	assert.Equal(t, 100, m.Progress())
	require.NotNil(t, m.Job().ResultPath)
	assert.Equal(t, res.Package.ArchivePath, *m.Job().ResultPath)

	// Two lessons in, two of every per-lesson artifact out.
	require.Len(t, res.Data.Curriculum.Lessons, 2)
	assert.Len(t, res.Data.Content, 2)
	assert.Len(t, res.Data.Scripts, 2)
	assert.Len(t, res.Data.Videos, 2)
	assert.Len(t, res.Data.FinalVideos, 2)

	// Only the hands-on lesson gets a notebook.
	require.Len(t, res.Data.Notebooks, 1)
	_, ok := res.Data.Notebooks[2]
	assert.True(t, ok)

	// Everything came from tier 1.
	for _, s := range res.Data.Scripts {
		assert.Equal(t, 1, s.Tier)
		assert.False(t, s.Degraded)
	}
	for _, v := range res.Data.Videos {
		assert.Equal(t, "mock-video", v.Provider)
		assert.False(t, v.Degraded)
	}

	// Package metadata reflects the generated course.
	raw, err := os.ReadFile(filepath.Join(res.Package.PackageDir, "course_metadata.json"))
	require.NoError(t, err)
	var meta struct {
		CourseInfo struct {
			Title        string `json:"title"`
			TotalLessons int    `json:"total_lessons"`
		} `json:"course_info"`
	}
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, "Complete Docker Course", meta.CourseInfo.Title)
	assert.Equal(t, 2, meta.CourseInfo.TotalLessons)
	assert.Equal(t, "complete", res.Package.Validation.OverallStatus)
}

func TestRunVideoFallbackToPlaceholder(t *testing.T) {
	o := newOrchestrator(t, Deps{
		Text:  []providers.TextProvider{healthyText()},
		Image: &providers.MockImage{},
		TTS:   &providers.MockTTS{Err: errors.New("tts quota exhausted")},
		Video: &providers.MockVideo{SubmitErr: errors.New("rendering backend down")},
	})
	m, _ := newMachine(t)

	res, err := o.Run(context.Background(), m, Request{Topic: "Docker"})
	require.NoError(t, err)

	// Both external tiers failed, so the placeholder tier served every
	// lesson and the job still completed.
	assert.Equal(t, models.JobStatusCompleted, m.Status())
	require.Len(t, res.Data.Videos, 2)
	for _, v := range res.Data.Videos {
		assert.Equal(t, "placeholder-video", v.Provider)
		assert.Equal(t, 3, v.Tier)
		assert.True(t, v.Degraded)
		assert.Equal(t, 3, v.Attempts)
		assert.FileExists(t, v.Value)
	}
}

func TestRunVideoPollBudgetExhausted(t *testing.T) {
	o := newOrchestrator(t, Deps{
		Text: []providers.TextProvider{healthyText()},
		TTS:  &providers.MockTTS{},
		// Never finishes within the tiny test budget.
		Video: &providers.MockVideo{PendingPolls: 1000},
	})
	m, _ := newMachine(t)

	res, err := o.Run(context.Background(), m, Request{Topic: "Docker"})
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusCompleted, m.Status())
	for _, v := range res.Data.Videos {
		assert.Equal(t, "mock-tts", v.Provider)
		assert.Equal(t, 2, v.Tier)
		assert.True(t, v.Degraded)
	}
}

func TestRunDegradedTextStillCompletes(t *testing.T) {
	broken := &fakeText{name: "broken-llm", fn: func(string) (string, error) {
		return "", errors.New("upstream 500")
	}}
	o := newOrchestrator(t, Deps{
		Text:  []providers.TextProvider{broken},
		Image: &providers.MockImage{},
		TTS:   &providers.MockTTS{},
		Video: &providers.MockVideo{},
	})
	m, _ := newMachine(t)

	res, err := o.Run(context.Background(), m, Request{Topic: "Docker"})
	require.NoError(t, err)

	assert.Equal(t, models.JobStatusCompleted, m.Status())

	// The deterministic planner pins the full ten-lesson arc.
	require.NotNil(t, res.Data.Curriculum)
	assert.Len(t, res.Data.Curriculum.Lessons, 10)
	assert.Len(t, res.Data.Content, 10)
	for _, c := range res.Data.Content {
		assert.NotEmpty(t, c.Introduction)
	}
	assert.NotEmpty(t, res.Data.Description)
}

func TestRunCancellationFailsJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := newOrchestrator(t, Deps{Text: []providers.TextProvider{healthyText()}})
	m, st := newMachine(t)

	_, err := o.Run(ctx, m, Request{Topic: "Docker"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled")

	assert.Equal(t, models.JobStatusFailed, m.Status())
	persisted, gerr := st.GetJob(context.Background(), m.Job().JobID)
	require.NoError(t, gerr)
	assert.Equal(t, models.JobStatusFailed, persisted.Status)
	require.NotNil(t, persisted.ErrorMessage)
	assert.Contains(t, *persisted.ErrorMessage, "cancelled")
}

func TestRunStopsBatchWhenJobFailedExternally(t *testing.T) {
	m, st := newMachine(t)

	// Cancel the job through the store after the first lesson's content
	// call, the way the API cancel endpoint does while a run is live.
	var contentCalls int
	text := &fakeText{name: "fake-llm", fn: func(prompt string) (string, error) {
		if strings.Contains(prompt, "Write the content for lesson") {
			contentCalls++
			if contentCalls == 1 {
				require.NoError(t, st.FailJob(context.Background(), m.Job().JobID, "cancelled by user"))
			}
		}
		return healthyText().Generate(context.Background(), prompt)
	}}
	o := newOrchestrator(t, Deps{Text: []providers.TextProvider{text}})

	_, err := o.Run(context.Background(), m, Request{Topic: "Docker"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled during stage "+models.StageLessonContent)

	// No further lesson work was launched after the cancellation landed.
	assert.Equal(t, 1, contentCalls)

	// The store record keeps the user's cancellation message; the run must
	// not overwrite it with its own failure.
	persisted, gerr := st.GetJob(context.Background(), m.Job().JobID)
	require.NoError(t, gerr)
	assert.Equal(t, models.JobStatusFailed, persisted.Status)
	require.NotNil(t, persisted.ErrorMessage)
	assert.Equal(t, "cancelled by user", *persisted.ErrorMessage)
	assert.Equal(t, models.JobStatusFailed, m.Status())
}

func TestRunUsesDocumentSummaries(t *testing.T) {
	st := memory.NewStore()
	summary := "A deep reference on container networking."
	st.AddDocument(&models.Document{ID: 1, Title: "Networking", Summary: &summary})

	var sawSummary bool
	text := &fakeText{name: "fake-llm", fn: func(prompt string) (string, error) {
		if strings.Contains(prompt, summary) {
			sawSummary = true
		}
		return healthyText().Generate(context.Background(), prompt)
	}}

	o := newOrchestrator(t, Deps{
		Text:  []providers.TextProvider{text},
		Image: &providers.MockImage{},
		TTS:   &providers.MockTTS{},
		Video: &providers.MockVideo{},
		Docs:  st,
	})
	job := &models.GenerationJob{Topic: "Docker", DocumentIDs: []int64{1}}
	require.NoError(t, st.CreateJob(context.Background(), job))
	m := jobstate.New(st, job)

	_, err := o.Run(context.Background(), m, Request{Topic: "Docker", DocumentIDs: []int64{1}})
	require.NoError(t, err)
	assert.True(t, sawSummary)
}

func TestStageProgressIsMonotonic(t *testing.T) {
	prev := 0
	for i := range models.StageOrder {
		p := stageProgress(i)
		assert.Greater(t, p, prev)
		prev = p
	}
	assert.Equal(t, 90, prev)
}

func TestStripCues(t *testing.T) {
	in := "[OPENING: Friendly wave]\nWelcome. [PAUSE:1s] [EMPHASIS]Key point[/EMPHASIS] here. [VISUAL_CUE: Show code]"
	out := stripCues(in)
	assert.NotContains(t, out, "[")
	assert.Contains(t, out, "Key point")
}
