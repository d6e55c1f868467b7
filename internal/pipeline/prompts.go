package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"coursegen/internal/models"
	"coursegen/internal/providers"
)

func contentPrompt(topic string, spec models.LessonSpec) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write the content for lesson %d of an online %s course.\n\n", spec.LessonNumber, topic)
	fmt.Fprintf(&sb, "Title: %s\nType: %s\nDuration: %d minutes\n", spec.Title, spec.Type, spec.DurationMinutes)
	if len(spec.Objectives) > 0 {
		fmt.Fprintf(&sb, "Learning objectives: %s\n", strings.Join(spec.Objectives, "; "))
	}
	sb.WriteString(`
Respond with JSON only, in this shape:
{
  "introduction": "...",
  "main_concept": "...",
  "analogy": "...",
  "real_world_example": "...",
  "step_by_step_explanation": ["..."],
  "key_takeaways": ["..."],
  "summary": "..."`)
	if spec.HasCoding() {
		sb.WriteString(`,
  "code_examples": [{"title": "...", "description": "...", "code": "..."}],
  "exercises": [{"title": "...", "description": "...", "difficulty": "easy|medium|hard", "starter_code": "...", "solution": "..."}]`)
	}
	sb.WriteString("\n}")
	return sb.String()
}

func descriptionPrompt(cur *models.Curriculum) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a compelling 2-3 paragraph marketing description for the online course %q (%s level, %.1f hours).\n\nLessons:\n",
		cur.CourseTitle, cur.Difficulty, cur.TotalDurationHours)
	for _, l := range cur.Lessons {
		fmt.Fprintf(&sb, "- %s\n", l.Title)
	}
	sb.WriteString("\nRespond with plain prose only, no markdown headers.")
	return sb.String()
}

// fallbackDescription is the terminal description tier.
func fallbackDescription(cur *models.Curriculum) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s is a %s-level course spanning %d lessons (%.1f hours). ",
		cur.CourseTitle, orDefault(cur.Difficulty, "intermediate"), len(cur.Lessons), cur.TotalDurationHours)
	sb.WriteString("You will move from fundamentals through hands-on practice to a final project, ")
	sb.WriteString("with downloadable notebooks, exercises and full video lessons for every step of the way.")
	if cur.TargetAudience != "" {
		sb.WriteString(" Designed for " + strings.TrimSuffix(cur.TargetAudience, ".") + ".")
	}
	return sb.String()
}

func backgroundPrompt(topic string, spec models.LessonSpec) string {
	return fmt.Sprintf("Abstract professional slide background for a lesson titled %q in a %s course. Subtle gradient, no text, 16:9.", spec.Title, topic)
}

func thumbnailPrompt(cur *models.Curriculum) string {
	return fmt.Sprintf("Course thumbnail illustration for %q. Bold, modern, high contrast, no text.", cur.CourseTitle)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// generateText is the shared text-tier body: gate on configuration, call
// the provider, classify the error.
func generateText(ctx context.Context, tp providers.TextProvider, prompt string) (string, error) {
	if !tp.Configured() {
		return "", providers.ErrNotConfigured
	}
	return tp.Generate(ctx, prompt)
}

func isConfigErr(err error) bool {
	return errors.Is(err, providers.ErrNotConfigured)
}

func isTimeoutErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
