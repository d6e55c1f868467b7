// Package script turns lesson content into presenter speech scripts with
// timing cues, and estimates their spoken duration.
package script

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/neurosnap/sentences"

	"coursegen/internal/models"
)

// Words-per-minute assumed for spoken narration.
const speechWPM = 150

// techPronunciations maps technical terms to the spelled-out form a TTS
// voice should receive.
var techPronunciations = map[string]string{
	"API":        "A-P-I",
	"APIs":       "A-P-I-s",
	"SQL":        "S-Q-L",
	"JSON":       "J-S-O-N",
	"HTML":       "H-T-M-L",
	"CSS":        "C-S-S",
	"JavaScript": "Java-Script",
	"TypeScript": "Type-Script",
	"GraphQL":    "Graph-Q-L",
	"OAuth":      "O-Auth",
	"JWT":        "J-W-T",
	"CRUD":       "C-R-U-D",
	"HTTP":       "H-T-T-P",
	"HTTPS":      "H-T-T-P-S",
	"URL":        "U-R-L",
	"UUID":       "U-U-I-D",
	"AI":         "A-I",
	"ML":         "M-L",
	"GPU":        "G-P-U",
	"CPU":        "C-P-U",
	"RAM":        "R-A-M",
}

var (
	pauseCueRe = regexp.MustCompile(`\[PAUSE:(\d+\.?\d*)s\]`)
	wordRe     = regexp.MustCompile(`\b\w+\b`)
	emphasisRe = regexp.MustCompile(`(?i)\b(important|key|critical|essential|remember)\b`)
)

// Writer composes speech scripts. It is deterministic and serves as the
// terminal tier of the script generation chain; the LLM tiers use Prompt
// and pass their output through AddTimingCues.
type Writer struct {
	tokenizer *sentences.DefaultSentenceTokenizer
}

func NewWriter() *Writer {
	return &Writer{tokenizer: sentences.NewSentenceTokenizer(nil)}
}

// Prompt builds the LLM instruction for converting a lesson to a script.
func (w *Writer) Prompt(content *models.LessonContent) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Convert this lesson content into a natural, conversational speech script for an AI presenter.\n\n")
	fmt.Fprintf(&sb, "Lesson Title: %s\n", content.Title)
	fmt.Fprintf(&sb, "Duration: %d minutes\n", content.DurationMinutes)
	fmt.Fprintf(&sb, "Introduction: %s\n", content.Introduction)
	fmt.Fprintf(&sb, "Main Concept: %s\n", content.MainConcept)
	fmt.Fprintf(&sb, "Key Takeaways: %s\n\n", strings.Join(content.KeyTakeaways, "; "))
	if content.HasCoding {
		sb.WriteString("The lesson is hands-on: guide students through the code examples step by step.\n")
	}
	sb.WriteString("Use conversational language, insert pauses as [PAUSE:1s] cues, ")
	sb.WriteString("mark key points as [EMPHASIS]like this[/EMPHASIS], and add clear transitions between sections.")
	return sb.String()
}

// Compose writes a deterministic script straight from the lesson content.
// It never fails, so it can terminate a fallback chain.
func (w *Writer) Compose(content *models.LessonContent) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[OPENING: Friendly wave]\nWelcome to lesson %d: %s.\n\n", content.LessonNumber, content.Title)
	sb.WriteString("[PAUSE:2s]\n\n")

	if content.Introduction != "" {
		sb.WriteString(content.Introduction)
		sb.WriteString("\n\n[PAUSE:1.5s]\n\n")
	}
	if content.MainConcept != "" {
		sb.WriteString(content.MainConcept)
		sb.WriteString("\n\n[PAUSE:1s]\n\n")
	}
	if content.Analogy != "" {
		sb.WriteString("Here is a way to think about it. ")
		sb.WriteString(content.Analogy)
		sb.WriteString("\n\n[PAUSE:1s]\n\n")
	}
	if content.HasCoding && len(content.CodeExamples) > 0 {
		sb.WriteString("Now let's put what we've learned into practice!\n\n[PAUSE:2s]\n\n")
		for _, ex := range content.CodeExamples {
			fmt.Fprintf(&sb, "[VISUAL_CUE: Show code]\n%s\n\n[PAUSE:1s]\n\n", ex.Description)
		}
	}
	for _, takeaway := range content.KeyTakeaways {
		fmt.Fprintf(&sb, "[EMPHASIS]%s[/EMPHASIS]\n\n[PAUSE:0.5s]\n\n", takeaway)
	}
	if content.Summary != "" {
		sb.WriteString("To wrap up: ")
		sb.WriteString(content.Summary)
		sb.WriteString("\n\n[PAUSE:2s]\n\n")
	}
	sb.WriteString("Thanks for joining me in this lesson. I'll see you in the next one!\n[CLOSING: Thank you gesture]")

	return w.ApplyPronunciations(sb.String())
}

// AddTimingCues post-processes an LLM script: sentence pauses, paragraph
// pauses and emphasis markers on signal words.
func (w *Writer) AddTimingCues(raw string) string {
	paragraphs := strings.Split(raw, "\n\n")
	for pi, para := range paragraphs {
		if strings.TrimSpace(para) == "" {
			continue
		}
		sents := w.tokenizer.Tokenize(para)
		if len(sents) > 1 {
			var parts []string
			for _, s := range sents {
				text := strings.TrimSpace(s.Text)
				if text == "" {
					continue
				}
				parts = append(parts, text)
			}
			para = strings.Join(parts, " [PAUSE:0.5s] ")
		}
		paragraphs[pi] = emphasisRe.ReplaceAllString(para, "[EMPHASIS]$1[/EMPHASIS]")
	}
	withPauses := strings.Join(paragraphs, "\n\n[PAUSE:1s]\n\n")
	return w.ApplyPronunciations(withPauses)
}

// ApplyPronunciations rewrites technical terms into their spoken form.
func (w *Writer) ApplyPronunciations(text string) string {
	for term, spoken := range techPronunciations {
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(term) + `\b`)
		text = re.ReplaceAllString(text, spoken)
	}
	return text
}

// EstimateDuration returns the expected spoken length in minutes: word
// count at the standard pace plus the accumulated pause cues.
func (w *Writer) EstimateDuration(scriptText string) float64 {
	words := len(wordRe.FindAllString(scriptText, -1))
	minutes := float64(words) / speechWPM

	var pauseSeconds float64
	for _, m := range pauseCueRe.FindAllStringSubmatch(scriptText, -1) {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			pauseSeconds += v
		}
	}
	return minutes + pauseSeconds/60
}
