// Package planner produces the course curriculum: an LLM tier builds it
// from the topic plus reference document summaries, and a deterministic
// planner terminates the chain.
package planner

import (
	"encoding/json"
	"fmt"
	"strings"

	"coursegen/internal/models"
	"coursegen/internal/repair"
)

// Every course plans to this many lessons.
const LessonCount = 10

const defaultLessonMinutes = 30

// lessonTypeByPosition fixes the pedagogical arc: fundamentals first,
// practice in the middle, synthesis at the end.
var lessonTypeByPosition = [LessonCount]models.LessonType{
	models.LessonTheory,
	models.LessonTheory,
	models.LessonHandsOn,
	models.LessonHandsOn,
	models.LessonHandsOn,
	models.LessonHandsOn,
	models.LessonHandsOn,
	models.LessonMixed,
	models.LessonTheory,
	models.LessonHandsOn,
}

// Prompt builds the LLM instruction for curriculum planning. Document
// summaries, when present, anchor the plan to the user's own material.
func Prompt(topic string, summaries []string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Design a %d-lesson online course curriculum for the topic %q.\n\n", LessonCount, topic)
	if len(summaries) > 0 {
		sb.WriteString("Ground the curriculum in these reference documents:\n")
		for i, s := range summaries {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, s)
		}
		sb.WriteString("\n")
	}
	sb.WriteString(`Respond with JSON only, in this shape:
{
  "course_title": "...",
  "difficulty": "beginner|intermediate|advanced",
  "total_duration_hours": <number>,
  "prerequisites": ["..."],
  "learning_objectives": ["..."],
  "target_audience": "...",
  "lessons": [
    {"lesson_number": 1, "title": "...", "type": "theory|hands-on|mixed", "duration_minutes": 30, "learning_objectives": ["..."]}
  ]
}`)
	return sb.String()
}

// Parse decodes an LLM curriculum response and normalizes it so downstream
// stages can rely on its shape: sequential numbering, recognized types,
// positive durations. The lesson count is the model's call; only the
// deterministic fallback pins it to LessonCount.
func Parse(raw, topic string) (*models.Curriculum, error) {
	cleaned := repair.StripControlChars(repair.StripCodeFences(raw))
	var cur models.Curriculum
	if err := json.Unmarshal([]byte(cleaned), &cur); err != nil {
		return nil, fmt.Errorf("decoding curriculum JSON: %w", err)
	}
	if len(cur.Lessons) == 0 {
		return nil, fmt.Errorf("curriculum has no lessons")
	}
	if cur.CourseTitle == "" {
		cur.CourseTitle = courseTitle(topic)
	}
	normalize(&cur)
	return &cur, nil
}

// Fallback builds a deterministic curriculum without any provider. It
// cannot fail, so it terminates the planning chain.
func Fallback(topic string, summaries []string) *models.Curriculum {
	topics := lessonTopics(topic)
	cur := &models.Curriculum{
		CourseTitle:    courseTitle(topic),
		Difficulty:     "intermediate",
		Prerequisites:  []string{"Basic computer literacy", "Eagerness to learn"},
		TargetAudience: fmt.Sprintf("Developers and practitioners interested in %s", topic),
		LearningObjectives: []string{
			fmt.Sprintf("Understand %s concepts", topic),
			fmt.Sprintf("Implement %s solutions", topic),
			fmt.Sprintf("Apply %s best practices", topic),
		},
	}
	for i := 0; i < LessonCount; i++ {
		lt := lessonTypeByPosition[i]
		cur.Lessons = append(cur.Lessons, models.LessonSpec{
			LessonNumber:    i + 1,
			Title:           topics[i],
			Type:            lt,
			DurationMinutes: defaultLessonMinutes,
			Objectives:      objectivesFor(topics[i], lt),
			Prerequisites:   prerequisitesFor(i + 1),
		})
	}
	cur.TotalDurationHours = float64(LessonCount*defaultLessonMinutes) / 60
	_ = summaries // summaries shape the LLM tiers; the fallback arc is fixed
	return cur
}

func normalize(cur *models.Curriculum) {
	total := 0
	for i := range cur.Lessons {
		l := &cur.Lessons[i]
		l.LessonNumber = i + 1
		switch l.Type {
		case models.LessonTheory, models.LessonHandsOn, models.LessonMixed:
		default:
			l.Type = lessonTypeByPosition[i%LessonCount]
		}
		if l.DurationMinutes <= 0 {
			l.DurationMinutes = defaultLessonMinutes
		}
		if l.Title == "" {
			l.Title = fmt.Sprintf("Lesson %d", i+1)
		}
		if len(l.Prerequisites) == 0 {
			l.Prerequisites = prerequisitesFor(i + 1)
		}
		total += l.DurationMinutes
	}
	cur.TotalDurationHours = float64(total) / 60
}

func courseTitle(topic string) string {
	return fmt.Sprintf("Complete %s Course", topic)
}

func lessonTopics(topic string) [LessonCount]string {
	return [LessonCount]string{
		fmt.Sprintf("Introduction to %s", topic),
		"Core Concepts and Fundamentals",
		"Practical Applications and Use Cases",
		"Advanced Techniques and Methods",
		"Best Practices and Standards",
		"Tools and Technologies",
		"Problem-Solving Approaches",
		"Integration and Deployment",
		"Troubleshooting and Optimization",
		fmt.Sprintf("Final Project: Comprehensive %s Solution", topic),
	}
}

func objectivesFor(topic string, lt models.LessonType) []string {
	switch lt {
	case models.LessonHandsOn:
		return []string{
			fmt.Sprintf("Apply %s concepts in practical scenarios", topic),
			"Practice implementation techniques and methods",
			"Build working examples and solutions",
		}
	case models.LessonMixed:
		return []string{
			fmt.Sprintf("Connect %s theory to working code", topic),
			"Explore complex scenarios and edge cases",
			"Optimize performance and efficiency",
		}
	default:
		return []string{
			fmt.Sprintf("Understand the fundamental concepts of %s", topic),
			"Learn the theoretical foundations and principles",
			"Identify key components and their relationships",
		}
	}
}

func prerequisitesFor(lessonNumber int) []string {
	switch {
	case lessonNumber == 1:
		return []string{"Basic computer literacy", "Eagerness to learn"}
	case lessonNumber <= 3:
		return []string{fmt.Sprintf("Completion of Lesson %d", lessonNumber-1)}
	default:
		return []string{"Completion of previous lessons", "Understanding of fundamental concepts"}
	}
}
