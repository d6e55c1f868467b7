package models

/*
Job status and pipeline stage constants used throughout the codebase.
Centralizing these avoids magic strings and improves maintainability.
*/

// Job status constants. The only legal transitions are
// pending -> processing -> {completed, failed}.
const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// IsTerminalStatus reports whether a status accepts no further transitions.
func IsTerminalStatus(status string) bool {
	return status == JobStatusCompleted || status == JobStatusFailed
}

// Pipeline stage names, in execution order.
const (
	StagePlanCurriculum  = "plan_curriculum"
	StageLessonContent   = "lesson_content"
	StageDescription     = "course_description"
	StageSpeechScripts   = "speech_scripts"
	StageNotebooks       = "notebooks"
	StageBackgrounds     = "background_images"
	StageThumbnail       = "course_thumbnail"
	StagePresenterVideos = "presenter_videos"
	StageFinalVideos     = "final_videos"
	StagePackage         = "package"
)

// StageOrder lists every stage in declared execution order. Progress
// increments are derived from its length, never hand-tuned per stage.
var StageOrder = []string{
	StagePlanCurriculum,
	StageLessonContent,
	StageDescription,
	StageSpeechScripts,
	StageNotebooks,
	StageBackgrounds,
	StageThumbnail,
	StagePresenterVideos,
	StageFinalVideos,
	StagePackage,
}
