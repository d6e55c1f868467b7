// Package notebook builds Jupyter notebooks (nbformat 4) for hands-on
// lessons.
package notebook

import (
	"encoding/json"
	"fmt"
	"strings"

	"coursegen/internal/models"
)

type cell struct {
	CellType string         `json:"cell_type"`
	Metadata map[string]any `json:"metadata"`
	Source   []string       `json:"source"`
	// Code cells additionally carry execution state.
	ExecutionCount *int  `json:"execution_count,omitempty"`
	Outputs        []any `json:"outputs,omitempty"`
}

type document struct {
	Cells         []cell         `json:"cells"`
	Metadata      map[string]any `json:"metadata"`
	NBFormat      int            `json:"nbformat"`
	NBFormatMinor int            `json:"nbformat_minor"`
}

// Build renders the exercise notebook for one lesson as nbformat-4 JSON.
// Callers gate on HasCoding; Build itself accepts any lesson.
func Build(content *models.LessonContent) ([]byte, error) {
	doc := document{
		Metadata: map[string]any{
			"kernelspec": map[string]any{
				"display_name": "Python 3",
				"language":     "python",
				"name":         "python3",
			},
			"language_info": map[string]any{
				"name":    "python",
				"version": "3.11",
			},
		},
		NBFormat:      4,
		NBFormatMinor: 5,
	}

	doc.addMarkdown(fmt.Sprintf("# %s\n\n## Overview\n%s", content.Title, content.Introduction))

	if len(content.KeyTakeaways) > 0 {
		var b strings.Builder
		b.WriteString("## Key Concepts\n\n")
		for _, k := range content.KeyTakeaways {
			fmt.Fprintf(&b, "- **%s**\n", k)
		}
		doc.addMarkdown(b.String())
	}

	for i, ex := range content.CodeExamples {
		title := ex.Title
		if title == "" {
			title = "Code Example"
		}
		doc.addMarkdown(fmt.Sprintf("### Example %d: %s\n\n%s", i+1, title, ex.Description))
		code := ex.Code
		if code == "" {
			code = "# Your code here"
		}
		doc.addCode(code)
	}

	if len(content.Exercises) > 0 {
		doc.addMarkdown("## Hands-On Practice\n\nWork through each exercise before peeking at the solution.")
		for i, ex := range content.Exercises {
			doc.addExercise(i+1, ex)
		}
	}

	if content.Summary != "" {
		doc.addMarkdown("## Summary\n\n" + content.Summary)
	}
	doc.addMarkdown("## Next Steps\n\n- Practice the concepts covered\n- Try the exercises\n- Experiment with variations\n- Review the key takeaways")

	return json.MarshalIndent(doc, "", " ")
}

func (d *document) addExercise(num int, ex models.Exercise) {
	header := fmt.Sprintf("### Exercise %d: %s", num, ex.Title)
	if ex.Difficulty != "" {
		header += fmt.Sprintf(" (%s)", ex.Difficulty)
	}
	if ex.Description != "" {
		header += "\n\n" + ex.Description
	}
	d.addMarkdown(header)

	starter := ex.StarterCode
	if starter == "" {
		starter = fmt.Sprintf("# Exercise %d: %s\n# Your solution here\n", num, ex.Title)
	}
	d.addCode(starter)

	if ex.Solution != "" {
		d.addMarkdown(fmt.Sprintf("<details><summary>Solution</summary>\n\n```python\n%s\n```\n\n</details>", ex.Solution))
	}
}

func (d *document) addMarkdown(text string) {
	d.Cells = append(d.Cells, cell{
		CellType: "markdown",
		Metadata: map[string]any{},
		Source:   splitSource(text),
	})
}

func (d *document) addCode(code string) {
	d.Cells = append(d.Cells, cell{
		CellType: "code",
		Metadata: map[string]any{},
		Source:   splitSource(code),
		Outputs:  []any{},
	})
}

// splitSource converts text into nbformat's line-array form, keeping the
// trailing newline on every line but the last.
func splitSource(text string) []string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for i, line := range lines {
		if i < len(lines)-1 {
			line += "\n"
		}
		out = append(out, line)
	}
	return out
}
