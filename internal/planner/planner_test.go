package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursegen/internal/models"
)

func TestFallbackShape(t *testing.T) {
	cur := Fallback("Docker", nil)

	assert.Equal(t, "Complete Docker Course", cur.CourseTitle)
	require.Len(t, cur.Lessons, LessonCount)
	assert.InDelta(t, 5.0, cur.TotalDurationHours, 0.01)

	for i, l := range cur.Lessons {
		assert.Equal(t, i+1, l.LessonNumber)
		assert.NotEmpty(t, l.Title)
		assert.NotEmpty(t, l.Objectives)
		assert.Positive(t, l.DurationMinutes)
	}

	// The arc opens with theory and closes with a project lesson.
	assert.Equal(t, models.LessonTheory, cur.Lessons[0].Type)
	assert.Equal(t, models.LessonHandsOn, cur.Lessons[LessonCount-1].Type)
	assert.Contains(t, cur.Lessons[LessonCount-1].Title, "Final Project")
}

func TestFallbackHasCodingLessons(t *testing.T) {
	cur := Fallback("Docker", nil)

	var coding int
	for _, l := range cur.Lessons {
		if l.HasCoding() {
			coding++
		}
	}
	assert.Equal(t, 7, coding)

	// Lesson 8 blends theory with guided coding; it gets code examples
	// and a notebook like the pure hands-on lessons.
	require.Equal(t, models.LessonMixed, cur.Lessons[7].Type)
	assert.True(t, cur.Lessons[7].HasCoding())
}

func TestParseValidResponse(t *testing.T) {
	raw := "```json\n" + `{
		"course_title": "Docker Deep Dive",
		"difficulty": "intermediate",
		"lessons": [
			{"lesson_number": 1, "title": "Containers 101", "type": "theory", "duration_minutes": 20, "learning_objectives": ["Understand containers"]}
		]
	}` + "\n```"

	cur, err := Parse(raw, "Docker")
	require.NoError(t, err)
	assert.Equal(t, "Docker Deep Dive", cur.CourseTitle)

	// The model's lesson count is preserved as-is.
	require.Len(t, cur.Lessons, 1)
	assert.Equal(t, "Containers 101", cur.Lessons[0].Title)
	assert.Equal(t, 20, cur.Lessons[0].DurationMinutes)
	assert.InDelta(t, 20.0/60, cur.TotalDurationHours, 0.01)
}

func TestParseNormalizesBadFields(t *testing.T) {
	raw := `{"lessons": [
		{"title": "A", "type": "lecture", "duration_minutes": 0},
		{"title": "", "type": "hands-on", "duration_minutes": 45}
	]}`

	cur, err := Parse(raw, "Docker")
	require.NoError(t, err)
	assert.Equal(t, "Complete Docker Course", cur.CourseTitle)
	assert.Equal(t, models.LessonTheory, cur.Lessons[0].Type)
	assert.Equal(t, defaultLessonMinutes, cur.Lessons[0].DurationMinutes)
	assert.Equal(t, "Lesson 2", cur.Lessons[1].Title)
	assert.Equal(t, models.LessonHandsOn, cur.Lessons[1].Type)
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse("not json at all", "Docker")
	assert.Error(t, err)

	_, err = Parse(`{"course_title": "Empty", "lessons": []}`, "Docker")
	assert.Error(t, err)
}

func TestPromptIncludesSummaries(t *testing.T) {
	p := Prompt("Docker", []string{"Doc one summary", "Doc two summary"})
	assert.Contains(t, p, "Doc one summary")
	assert.Contains(t, p, "10-lesson")
	assert.Contains(t, p, `"Docker"`)
}
