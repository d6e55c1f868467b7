package script

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"coursegen/internal/models"
)

func sampleContent() *models.LessonContent {
	return &models.LessonContent{
		LessonNumber: 3,
		Title:        "Working with the Docker API",
		Type:         models.LessonHandsOn,
		HasCoding:    true,
		Introduction: "In this lesson we connect to the Docker API.",
		MainConcept:  "The API exposes container lifecycle operations over HTTP.",
		KeyTakeaways: []string{"The API is versioned"},
		Summary:      "You can now drive Docker programmatically.",
		CodeExamples: []models.CodeExample{
			{Title: "List containers", Code: "curl --unix-socket /var/run/docker.sock http://localhost/containers/json", Description: "This call lists running containers."},
		},
	}
}

func TestComposeIncludesStructure(t *testing.T) {
	w := NewWriter()
	s := w.Compose(sampleContent())

	assert.Contains(t, s, "Welcome to lesson 3")
	assert.Contains(t, s, "[PAUSE:2s]")
	assert.Contains(t, s, "[EMPHASIS]")
	assert.Contains(t, s, "put what we've learned into practice")
	assert.Contains(t, s, "I'll see you in the next one!")
}

func TestComposeAppliesPronunciations(t *testing.T) {
	w := NewWriter()
	s := w.Compose(sampleContent())

	assert.NotContains(t, s, "the API ")
	assert.Contains(t, s, "A-P-I")
	assert.Contains(t, s, "H-T-T-P")
}

func TestComposeSkipsCodeWalkthroughForTheory(t *testing.T) {
	w := NewWriter()
	content := sampleContent()
	content.Type = models.LessonTheory
	content.HasCoding = false
	s := w.Compose(content)

	assert.NotContains(t, s, "VISUAL_CUE")
}

func TestAddTimingCues(t *testing.T) {
	w := NewWriter()
	raw := "This is the first sentence. This is the second sentence.\n\nRemember this paragraph is important."
	cued := w.AddTimingCues(raw)

	assert.Contains(t, cued, "[PAUSE:0.5s]")
	assert.Contains(t, cued, "[PAUSE:1s]")
	assert.Contains(t, cued, "[EMPHASIS]Remember[/EMPHASIS]")
	assert.Contains(t, cued, "[EMPHASIS]important[/EMPHASIS]")
}

func TestEstimateDuration(t *testing.T) {
	w := NewWriter()

	// 300 words at 150wpm is two minutes.
	s := strings.Repeat("word ", 300)
	assert.InDelta(t, 2.0, w.EstimateDuration(s), 0.01)

	// Pauses add their seconds.
	s += "[PAUSE:30s] [PAUSE:30s]"
	assert.InDelta(t, 3.0, w.EstimateDuration(s), 0.1)
}

func TestEstimateDurationEmpty(t *testing.T) {
	w := NewWriter()
	assert.Zero(t, w.EstimateDuration(""))
}
