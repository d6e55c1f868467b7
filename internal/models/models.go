package models

import (
	"time"

	"github.com/google/uuid"
)

// LessonType classifies how a lesson is taught. HasCoding is derived from
// it, never stored independently.
type LessonType string

const (
	LessonTheory  LessonType = "theory"
	LessonHandsOn LessonType = "hands-on"
	LessonMixed   LessonType = "mixed"
)

// HasCoding reports whether lessons of this type carry runnable code and
// therefore get a notebook. Mixed lessons pair theory with guided coding,
// so they count.
func (t LessonType) HasCoding() bool {
	return t == LessonHandsOn || t == LessonMixed
}

// GenerationJob mirrors the generation_jobs table. One row per course
// request; mutated only by the orchestrator that owns it.
type GenerationJob struct {
	ID           int64      `db:"id"`
	JobID        uuid.UUID  `db:"job_id"`
	Topic        string     `db:"topic"`
	DocumentIDs  []int64    `db:"document_ids"`
	Status       string     `db:"status"`
	Progress     int        `db:"progress"`
	ResultPath   *string    `db:"result_path"`
	ErrorMessage *string    `db:"error_message"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
	CompletedAt  *time.Time `db:"completed_at"`
}

// LessonSpec is one planned lesson. Lesson numbers are 1-based and unique
// within a curriculum; specs are immutable once planned.
type LessonSpec struct {
	LessonNumber    int        `json:"lesson_number"`
	Title           string     `json:"title"`
	Type            LessonType `json:"type"`
	DurationMinutes int        `json:"duration_minutes"`
	Objectives      []string   `json:"learning_objectives"`
	Prerequisites   []string   `json:"prerequisites,omitempty"`
}

// HasCoding is derived from the lesson type.
func (l LessonSpec) HasCoding() bool { return l.Type.HasCoding() }

// Curriculum is the stage-1 output: the full course plan.
type Curriculum struct {
	CourseTitle        string       `json:"course_title"`
	Difficulty         string       `json:"difficulty"`
	TotalDurationHours float64      `json:"total_duration_hours"`
	Prerequisites      []string     `json:"prerequisites"`
	LearningObjectives []string     `json:"learning_objectives"`
	TargetAudience     string       `json:"target_audience"`
	Lessons            []LessonSpec `json:"lessons"`
}

// CodeExample is one worked example inside hands-on lesson content.
type CodeExample struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Code        string `json:"code"`
}

// Exercise is one practice task inside lesson content.
type Exercise struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Difficulty  string `json:"difficulty,omitempty"`
	StarterCode string `json:"starter_code,omitempty"`
	Solution    string `json:"solution,omitempty"`
}

// LessonContent is the parsed stage-2 artifact for one lesson. Field names
// match the JSON object the text providers are asked to return.
type LessonContent struct {
	LessonNumber    int        `json:"lesson_number"`
	Title           string     `json:"title"`
	Type            LessonType `json:"type"`
	DurationMinutes int        `json:"duration_minutes"`
	HasCoding       bool       `json:"has_coding"`

	Introduction     string        `json:"introduction"`
	MainConcept      string        `json:"main_concept"`
	Analogy          string        `json:"analogy,omitempty"`
	RealWorldExample string        `json:"real_world_example,omitempty"`
	Steps            []string      `json:"step_by_step_explanation,omitempty"`
	KeyTakeaways     []string      `json:"key_takeaways"`
	Summary          string        `json:"summary"`
	CodeExamples     []CodeExample `json:"code_examples,omitempty"`
	Exercises        []Exercise    `json:"exercises,omitempty"`
}

// StageArtifact records what one (lesson, stage) attempt produced and how
// degraded the production was. Artifacts are replaced, never edited.
type StageArtifact struct {
	LessonNumber int    `json:"lesson_number"`
	Stage        string `json:"stage"`
	Value        string `json:"value"`
	Provider     string `json:"provider_used"`
	Tier         int    `json:"tier"`
	Attempts     int    `json:"attempt_count"`
	Degraded     bool   `json:"degraded"`
}

// CourseData is the in-memory aggregate the orchestrator builds stage by
// stage. All per-lesson maps are keyed by lesson number; a later stage may
// legitimately have fewer keys than an earlier one.
type CourseData struct {
	Topic       string                 `json:"topic"`
	Curriculum  *Curriculum            `json:"curriculum"`
	Description string                 `json:"description"`
	Content     map[int]*LessonContent `json:"content"`
	Scripts     map[int]StageArtifact  `json:"scripts"`
	Notebooks   map[int]StageArtifact  `json:"notebooks"`
	Backgrounds map[int]StageArtifact  `json:"backgrounds"`
	Thumbnail   *StageArtifact         `json:"thumbnail,omitempty"`
	Videos      map[int]StageArtifact  `json:"videos"`
	FinalVideos map[int]StageArtifact  `json:"final_videos"`
}

// NewCourseData returns an aggregate with all lesson maps allocated.
func NewCourseData(topic string) *CourseData {
	return &CourseData{
		Topic:       topic,
		Content:     make(map[int]*LessonContent),
		Scripts:     make(map[int]StageArtifact),
		Notebooks:   make(map[int]StageArtifact),
		Backgrounds: make(map[int]StageArtifact),
		Videos:      make(map[int]StageArtifact),
		FinalVideos: make(map[int]StageArtifact),
	}
}

// Summary reports per-category artifact counts for the verbose status
// surface and the CLI table.
func (d *CourseData) Summary() map[string]int {
	s := map[string]int{
		"content":      len(d.Content),
		"scripts":      len(d.Scripts),
		"notebooks":    len(d.Notebooks),
		"backgrounds":  len(d.Backgrounds),
		"videos":       len(d.Videos),
		"final_videos": len(d.FinalVideos),
	}
	if d.Curriculum != nil {
		s["lessons"] = len(d.Curriculum.Lessons)
	}
	return s
}

// Document is a source document whose chunk summaries seed course planning.
type Document struct {
	ID        int64     `db:"id"`
	Title     string    `db:"title"`
	Summary   *string   `db:"summary"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// DocumentChunk is one summarized slice of a document, embedded for the
// retrieval subsystem.
type DocumentChunk struct {
	ID         int64     `db:"id"`
	DocumentID int64     `db:"document_id"`
	ChunkIndex int       `db:"chunk_index"`
	Text       string    `db:"chunk_text"`
	Summary    *string   `db:"summary"`
	CreatedAt  time.Time `db:"created_at"`
}
