// Package packager assembles the final upload-ready course package: the
// directory tree, metadata and README, the validation report and the zip
// archive.
package packager

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	log "github.com/sirupsen/logrus"

	"coursegen/internal/models"
)

// packageDirs is the standard layout. Empty subtrees are still created so
// the package shape is predictable for uploaders.
var packageDirs = []string{
	"videos",
	"notebooks",
	"resources/lesson_materials",
	"resources/slides",
	"resources/datasets",
	"marketing",
	"scripts",
	"backgrounds",
	"assessments/quizzes",
	"assessments/exercises",
	"assessments/projects",
}

// Report is the persisted package validation result.
type Report struct {
	PackagePath    string          `json:"package_path"`
	ValidationDate string          `json:"validation_date"`
	Checks         map[string]bool `json:"checks"`
	OverallStatus  string          `json:"overall_status"`
	Valid          bool            `json:"valid"`
	ChecksPassed   int             `json:"checks_passed"`
	TotalChecks    int             `json:"total_checks"`
	Issues         []string        `json:"issues"`
}

// Result points at what packaging produced.
type Result struct {
	PackageDir  string
	ArchivePath string
	Validation  Report
}

// Packager writes course packages under a fixed output directory.
type Packager struct {
	outputDir string
	now       func() time.Time
}

func New(outputDir string) *Packager {
	return &Packager{outputDir: outputDir, now: time.Now}
}

// CreatePackage lays out the package for the generated course, validates
// it and compresses it. Missing per-lesson artifacts are skipped, not
// fatal; packaging fails only on I/O errors.
func (p *Packager) CreatePackage(data *models.CourseData) (*Result, error) {
	if data.Curriculum == nil {
		return nil, models.ErrNoCurriculum
	}

	domain := SanitizeDomain(data.Curriculum.CourseTitle)
	pkgName := fmt.Sprintf("course_package_%s_%s", domain, p.now().Format("20060102_150405"))
	pkgDir := filepath.Join(p.outputDir, pkgName)

	for _, d := range packageDirs {
		if err := os.MkdirAll(filepath.Join(pkgDir, d), 0o755); err != nil {
			return nil, fmt.Errorf("creating package directory %s: %w", d, err)
		}
	}

	p.organizeScripts(data, pkgDir)
	p.organizeNotebooks(data, pkgDir)
	p.organizeMedia(data, pkgDir)
	p.organizeResources(data, pkgDir)
	p.organizeAssessments(data, pkgDir)

	if err := p.writeMetadata(data, pkgDir); err != nil {
		return nil, err
	}
	if err := p.writeCurriculum(data, pkgDir); err != nil {
		return nil, err
	}
	if err := p.writeREADME(data, pkgDir); err != nil {
		return nil, err
	}
	if err := p.writeSetupInstructions(pkgDir); err != nil {
		return nil, err
	}

	report, err := p.validate(pkgDir)
	if err != nil {
		return nil, err
	}
	log.Infof("Package validation complete. %d/%d checks passed", report.ChecksPassed, report.TotalChecks)

	archive, err := p.compress(pkgDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrPackagingFailed, err)
	}

	return &Result{PackageDir: pkgDir, ArchivePath: archive, Validation: report}, nil
}

func (p *Packager) organizeScripts(data *models.CourseData, pkgDir string) {
	for n, art := range data.Scripts {
		dest := filepath.Join(pkgDir, "scripts", fmt.Sprintf("lesson_%02d_script.txt", n))
		if err := os.WriteFile(dest, []byte(art.Value), 0o644); err != nil {
			log.Warnf("Could not write script for lesson %d: %v", n, err)
		}
	}
}

func (p *Packager) organizeNotebooks(data *models.CourseData, pkgDir string) {
	for n, art := range data.Notebooks {
		dest := filepath.Join(pkgDir, "notebooks", fmt.Sprintf("lesson_%02d.ipynb", n))
		if err := os.WriteFile(dest, []byte(art.Value), 0o644); err != nil {
			log.Warnf("Could not write notebook for lesson %d: %v", n, err)
		}
	}
}

// organizeMedia copies path-valued artifacts (backgrounds, thumbnail and
// videos) into the package. Final renders win over raw presenter clips.
func (p *Packager) organizeMedia(data *models.CourseData, pkgDir string) {
	for n, art := range data.Backgrounds {
		copyInto(art.Value, filepath.Join(pkgDir, "backgrounds", fmt.Sprintf("lesson_%02d_background.png", n)))
	}
	if data.Thumbnail != nil {
		copyInto(data.Thumbnail.Value, filepath.Join(pkgDir, "marketing", "course_thumbnail.png"))
	}
	for n := range data.Curriculum.Lessons {
		lessonNum := n + 1
		art, ok := data.FinalVideos[lessonNum]
		if !ok {
			art, ok = data.Videos[lessonNum]
		}
		if !ok {
			continue
		}
		copyInto(art.Value, filepath.Join(pkgDir, "videos", fmt.Sprintf("lesson_%02d.mp4", lessonNum)))
		if sidecar := art.Value + ".json"; fileExists(sidecar) {
			copyInto(sidecar, filepath.Join(pkgDir, "videos", fmt.Sprintf("lesson_%02d.mp4.json", lessonNum)))
		}
	}
}

func (p *Packager) organizeResources(data *models.CourseData, pkgDir string) {
	for n, content := range data.Content {
		var b strings.Builder
		fmt.Fprintf(&b, "# %s\n\n%s\n\n## Main Concept\n\n%s\n", content.Title, content.Introduction, content.MainConcept)
		if len(content.KeyTakeaways) > 0 {
			b.WriteString("\n## Key Takeaways\n\n")
			for _, k := range content.KeyTakeaways {
				fmt.Fprintf(&b, "- %s\n", k)
			}
		}
		if content.Summary != "" {
			fmt.Fprintf(&b, "\n## Summary\n\n%s\n", content.Summary)
		}
		dest := filepath.Join(pkgDir, "resources", "lesson_materials", fmt.Sprintf("lesson_%02d.md", n))
		if err := os.WriteFile(dest, []byte(b.String()), 0o644); err != nil {
			log.Warnf("Could not write lesson material %d: %v", n, err)
		}
	}
}

func (p *Packager) organizeAssessments(data *models.CourseData, pkgDir string) {
	for n, content := range data.Content {
		if len(content.Exercises) == 0 {
			continue
		}
		payload, err := json.MarshalIndent(content.Exercises, "", "  ")
		if err != nil {
			continue
		}
		dest := filepath.Join(pkgDir, "assessments", "exercises", fmt.Sprintf("lesson_%02d_exercises.json", n))
		if err := os.WriteFile(dest, payload, 0o644); err != nil {
			log.Warnf("Could not write exercises for lesson %d: %v", n, err)
		}
	}
}

func (p *Packager) writeMetadata(data *models.CourseData, pkgDir string) error {
	cur := data.Curriculum
	metadata := map[string]any{
		"course_info": map[string]any{
			"title":               cur.CourseTitle,
			"description":         data.Description,
			"difficulty":          cur.Difficulty,
			"duration_hours":      cur.TotalDurationHours,
			"prerequisites":       cur.Prerequisites,
			"learning_objectives": cur.LearningObjectives,
			"target_audience":     cur.TargetAudience,
			"total_lessons":       len(cur.Lessons),
		},
		"technical_info": map[string]any{
			"video_format":     "MP4",
			"video_resolution": "1920x1080",
			"audio_format":     "AAC",
			"notebook_format":  "Jupyter (.ipynb)",
		},
		"platform_info": map[string]any{
			"ready_for_upload":      true,
			"recommended_platforms": []string{"Udemy", "Coursera", "Teachable"},
			"category":              "Technology",
		},
		"generation_info": map[string]any{
			"created_date":      p.now().UTC().Format(time.RFC3339),
			"generator_version": "1.0",
			"artifact_counts":   data.Summary(),
		},
	}
	payload, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(pkgDir, "course_metadata.json"), payload, 0o644); err != nil {
		return fmt.Errorf("writing course metadata: %w", err)
	}
	return nil
}

func (p *Packager) writeCurriculum(data *models.CourseData, pkgDir string) error {
	payload, err := json.MarshalIndent(data.Curriculum, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(pkgDir, "curriculum.json"), payload, 0o644); err != nil {
		return fmt.Errorf("writing curriculum: %w", err)
	}
	return nil
}

func (p *Packager) writeREADME(data *models.CourseData, pkgDir string) error {
	cur := data.Curriculum
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n%s\n\n", cur.CourseTitle, data.Description)
	fmt.Fprintf(&b, "- **Difficulty:** %s\n- **Duration:** %.1f hours\n- **Lessons:** %d\n\n", cur.Difficulty, cur.TotalDurationHours, len(cur.Lessons))

	b.WriteString("## Curriculum\n\n")
	for _, l := range cur.Lessons {
		fmt.Fprintf(&b, "%d. %s (%s, %d min)\n", l.LessonNumber, l.Title, l.Type, l.DurationMinutes)
	}

	b.WriteString("\n## Package Contents\n\n")
	b.WriteString("- `videos/` lesson videos\n")
	b.WriteString("- `notebooks/` hands-on Jupyter notebooks\n")
	b.WriteString("- `scripts/` presenter speech scripts\n")
	b.WriteString("- `backgrounds/` lesson slide backgrounds\n")
	b.WriteString("- `resources/` written lesson materials\n")
	b.WriteString("- `assessments/` exercises and quizzes\n")
	b.WriteString("- `marketing/` thumbnail and promotional assets\n")

	if err := os.WriteFile(filepath.Join(pkgDir, "README.md"), []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("writing README: %w", err)
	}
	return nil
}

func (p *Packager) writeSetupInstructions(pkgDir string) error {
	const setup = `# Setup Instructions

1. Install Python 3.10 or newer.
2. Install Jupyter: pip install jupyter
3. Open a notebook: jupyter notebook notebooks/lesson_01.ipynb
4. Watch each lesson video before working through its notebook.

## Support

- Check the course metadata for additional information
- Review the lesson materials under resources/
`
	if err := os.WriteFile(filepath.Join(pkgDir, "setup_instructions.md"), []byte(setup), 0o644); err != nil {
		return fmt.Errorf("writing setup instructions: %w", err)
	}
	return nil
}

// validate checks the package tree and persists validation_report.json.
// Status is complete when everything passed, mostly_complete at 80% or
// better, incomplete below that.
func (p *Packager) validate(pkgDir string) (Report, error) {
	report := Report{
		PackagePath:    pkgDir,
		ValidationDate: p.now().UTC().Format(time.RFC3339),
		Checks:         make(map[string]bool),
		Issues:         []string{},
	}

	check := func(name, rel string) {
		ok := fileExists(filepath.Join(pkgDir, rel))
		report.Checks[name] = ok
		report.TotalChecks++
		if ok {
			report.ChecksPassed++
		} else {
			report.Issues = append(report.Issues, fmt.Sprintf("missing %s", rel))
		}
	}

	for _, d := range []string{"videos", "notebooks", "resources", "marketing", "scripts", "backgrounds", "assessments"} {
		check("directory_"+d, d)
	}
	check("metadata_file", "course_metadata.json")
	check("readme_file", "README.md")
	check("setup_instructions", "setup_instructions.md")

	switch {
	case report.ChecksPassed == report.TotalChecks:
		report.OverallStatus = "complete"
		report.Valid = true
	case float64(report.ChecksPassed) >= float64(report.TotalChecks)*0.8:
		report.OverallStatus = "mostly_complete"
		report.Valid = true
	default:
		report.OverallStatus = "incomplete"
	}

	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return report, err
	}
	if err := os.WriteFile(filepath.Join(pkgDir, "validation_report.json"), payload, 0o644); err != nil {
		return report, fmt.Errorf("writing validation report: %w", err)
	}
	return report, nil
}

// compress zips the package next to it; entries are rooted at the package
// directory name.
func (p *Packager) compress(pkgDir string) (string, error) {
	archivePath := pkgDir + ".zip"
	f, err := os.Create(archivePath)
	if err != nil {
		return "", err
	}
	zw := zip.NewWriter(f)
	base := filepath.Dir(pkgDir)
	err = filepath.Walk(pkgDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(base, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(filepath.ToSlash(rel))
		if err != nil {
			return err
		}
		src, err := os.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()
		_, err = io.Copy(w, src)
		return err
	})
	if err != nil {
		zw.Close()
		f.Close()
		return "", err
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return "", err
	}
	return archivePath, f.Close()
}

// SanitizeDomain turns a course title into a filesystem-safe directory
// fragment.
func SanitizeDomain(courseTitle string) string {
	title := strings.ReplaceAll(courseTitle, "Complete ", "")
	title = strings.ReplaceAll(title, " Course", "")
	title = strings.ReplaceAll(title, "Master ", "")

	if len(title) > 50 {
		words := strings.Fields(title)
		var truncated string
		for _, w := range words {
			if len(truncated)+len(w) > 50 {
				break
			}
			truncated += w + " "
		}
		title = strings.TrimSpace(truncated)
	}

	var b strings.Builder
	for _, r := range title {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	safe := b.String()
	if safe == "" {
		safe = "course"
	}
	return safe
}

func copyInto(src, dest string) {
	if src == "" {
		return
	}
	in, err := os.Open(src)
	if err != nil {
		log.Warnf("Could not copy %s into package: %v", src, err)
		return
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		log.Warnf("Could not create %s: %v", dest, err)
		return
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		log.Warnf("Could not copy %s: %v", src, err)
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
