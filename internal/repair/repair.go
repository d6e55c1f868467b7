// Package repair salvages malformed JSON returned by generative text
// providers. Repaired documents are only accepted when they validate against
// the lesson content schema; anything that still fails is replaced by a
// deterministic template keyed by the lesson title.
package repair

import (
	"encoding/json"
	"fmt"
	"strings"

	"coursegen/internal/models"

	"github.com/santhosh-tekuri/jsonschema/v5"
	log "github.com/sirupsen/logrus"
)

// lessonContentSchema is the post-hoc gate for heuristic repair. The quote
// parity heuristic can silently corrupt a document into something that still
// parses; validation keeps corrupted output from flowing downstream.
const lessonContentSchema = `{
	"type": "object",
	"required": ["introduction", "main_concept", "key_takeaways", "summary"],
	"properties": {
		"introduction": {"type": "string", "minLength": 1},
		"main_concept": {"type": "string", "minLength": 1},
		"analogy": {"type": "string"},
		"real_world_example": {"type": "string"},
		"step_by_step_explanation": {"type": "array", "items": {"type": "string"}},
		"key_takeaways": {"type": "array", "items": {"type": "string"}, "minItems": 1},
		"summary": {"type": "string", "minLength": 1},
		"code_examples": {"type": "array"},
		"exercises": {"type": "array"}
	}
}`

// Repairer cleans and parses raw provider output into lesson content.
type Repairer struct {
	schema *jsonschema.Schema
}

// New compiles the lesson content schema. Compilation of the embedded schema
// cannot fail at runtime, so a panic here means the schema literal is broken.
func New() *Repairer {
	schema, err := jsonschema.CompileString("lesson_content.json", lessonContentSchema)
	if err != nil {
		panic(fmt.Sprintf("repair: invalid embedded schema: %v", err))
	}
	return &Repairer{schema: schema}
}

// Parse attempts to turn raw provider text into validated lesson content.
// Valid JSON input is returned as-is after schema validation; malformed
// input goes through the repair heuristics first. The error return means
// the caller should fall back to TemplateContent.
func (r *Repairer) Parse(raw string, spec models.LessonSpec) (*models.LessonContent, error) {
	cleaned := StripCodeFences(raw)
	cleaned = StripControlChars(cleaned)

	content, err := r.decode(cleaned, spec)
	if err == nil {
		return content, nil
	}

	repaired := EscapeMultilineStrings(cleaned)
	repaired = StripControlChars(repaired)
	content, repairErr := r.decode(repaired, spec)
	if repairErr != nil {
		log.WithField("lesson", spec.LessonNumber).Debugf("Content repair failed: %v (original parse: %v)", repairErr, err)
		return nil, fmt.Errorf("repair lesson %d content: %w", spec.LessonNumber, repairErr)
	}
	log.WithField("lesson", spec.LessonNumber).Info("Lesson content recovered by JSON repair")
	return content, nil
}

func (r *Repairer) decode(text string, spec models.LessonSpec) (*models.LessonContent, error) {
	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("parse JSON: %w", err)
	}
	if err := r.schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("validate content schema: %w", err)
	}

	var content models.LessonContent
	if err := json.Unmarshal([]byte(text), &content); err != nil {
		return nil, fmt.Errorf("decode lesson content: %w", err)
	}
	applySpec(&content, spec)
	return &content, nil
}

// applySpec stamps the planned lesson metadata onto parsed content, which
// providers routinely omit or get wrong.
func applySpec(content *models.LessonContent, spec models.LessonSpec) {
	content.LessonNumber = spec.LessonNumber
	if content.Title == "" {
		content.Title = spec.Title
	}
	content.Type = spec.Type
	content.DurationMinutes = spec.DurationMinutes
	content.HasCoding = spec.HasCoding()
}

// StripCodeFences removes surrounding markdown code-fence markers.
// Idempotent: already-clean input passes through unchanged.
func StripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = text[len("```json"):]
	} else if strings.HasPrefix(text, "```") {
		text = text[len("```"):]
	}
	if strings.HasSuffix(text, "```") {
		text = text[:len(text)-len("```")]
	}
	return strings.TrimSpace(text)
}

// StripControlChars removes control characters outside the printable and
// whitespace ranges. Tabs and newlines survive; escaping them inside string
// values is EscapeMultilineStrings' job.
func StripControlChars(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if r == '\n' || r == '\t' || r == '\r' || r >= 0x20 && r != 0x7F {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// EscapeMultilineStrings re-escapes quotes and tabs that a provider emitted
// raw inside multi-line JSON string values. It scans line by line keeping an
// "inside an open string" flag toggled by quote parity: a line with an odd
// number of unescaped quotes opens or closes a string. While the flag is set
// embedded quotes and tabs are escaped and the raw line break is replaced by
// a literal newline escape. The heuristic is fragile by nature, which is why
// callers must schema-validate the result.
func EscapeMultilineStrings(text string) string {
	// Unescape pre-escaped quotes first so the parity count sees every quote.
	text = strings.ReplaceAll(text, `\"`, `"`)

	lines := strings.Split(text, "\n")
	var b strings.Builder
	b.Grow(len(text))
	insideString := false

	for i, line := range lines {
		if insideString {
			if idx := firstUnescapedQuote(line); idx >= 0 {
				// The first quote closes the open string; only the text
				// before it needs escaping.
				tail := line[idx:]
				line = escapeEmbedded(line[:idx]) + tail
				insideString = countUnescapedQuotes(tail)%2 == 0
			} else {
				line = strings.TrimRight(escapeEmbedded(line), " ")
			}
		} else if countUnescapedQuotes(line)%2 == 1 {
			insideString = true
			line = strings.TrimRight(line, " ")
		}

		b.WriteString(line)
		if i < len(lines)-1 {
			if insideString {
				// The raw line break falls inside a string value.
				b.WriteString(`\n`)
			} else {
				b.WriteByte('\n')
			}
		}
	}
	return b.String()
}

func escapeEmbedded(s string) string {
	s = strings.ReplaceAll(s, `"`, `\"`)
	return strings.ReplaceAll(s, "\t", `\t`)
}

func firstUnescapedQuote(line string) int {
	for i := 0; i < len(line); i++ {
		if line[i] == '"' && (i == 0 || line[i-1] != '\\') {
			return i
		}
	}
	return -1
}

func countUnescapedQuotes(line string) int {
	count := 0
	for i := 0; i < len(line); i++ {
		if line[i] == '"' && (i == 0 || line[i-1] != '\\') {
			count++
		}
	}
	return count
}

// TemplateContent is the terminal content producer: a deterministic,
// structurally valid lesson keyed only by the planned lesson. It must stay
// pure so the content fallback chain can guarantee completion.
func TemplateContent(spec models.LessonSpec) *models.LessonContent {
	title := spec.Title
	if title == "" {
		title = fmt.Sprintf("Lesson %d", spec.LessonNumber)
	}

	content := &models.LessonContent{
		Introduction: fmt.Sprintf("Welcome to %s. In this lesson we explore the topic step by step and connect it to problems you already know.", title),
		MainConcept:  fmt.Sprintf("%s is the core idea of this lesson. We break it into small pieces and build each one up from first principles.", title),
		Analogy:      fmt.Sprintf("Think of %s like assembling furniture from a kit: each part has a place, and the instructions matter.", title),
		Steps: []string{
			fmt.Sprintf("Understand what %s is and when to use it", title),
			fmt.Sprintf("Walk through a worked example of %s", title),
			fmt.Sprintf("Practice applying %s on your own", title),
		},
		KeyTakeaways: []string{
			fmt.Sprintf("%s solves a concrete, recurring problem", title),
			"Start from the simplest working version",
			"Practice is what turns understanding into skill",
		},
		Summary: fmt.Sprintf("You now know what %s is, why it matters, and how to take the first practical steps with it.", title),
	}

	if spec.HasCoding() {
		content.CodeExamples = []models.CodeExample{{
			Title:       fmt.Sprintf("A first look at %s", title),
			Description: "A minimal, runnable starting point for the lesson topic.",
			Code:        fmt.Sprintf("# %s\n# Replace this starter with your own experiment.\nprint(%q)\n", title, title),
		}}
		content.Exercises = []models.Exercise{{
			Title:       fmt.Sprintf("Try it yourself: %s", title),
			Description: "Reproduce the worked example, then extend it with one change of your own.",
			Difficulty:  "beginner",
			StarterCode: fmt.Sprintf("# Exercise: %s\n# TODO(student): implement the steps from the lesson.\n", title),
			Solution:    fmt.Sprintf("# Solution sketch for %s\nprint(%q)\n", title, title),
		}}
	}

	applySpec(content, spec)
	return content
}
