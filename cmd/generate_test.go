package cmd

import (
	"bytes"
	"testing"

	"coursegen/internal/config"
	"coursegen/internal/models"
	"coursegen/internal/packager"
	"coursegen/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTestFlagForcesMockProviders(t *testing.T) {
	cfg := &config.Config{}
	applyTestMode(generateCmd, cfg)
	assert.False(t, cfg.Providers.Mock, "flag unset leaves config alone")

	require.NoError(t, generateCmd.Flags().Set("test", "true"))
	t.Cleanup(func() { _ = generateCmd.Flags().Set("test", "false") })

	applyTestMode(generateCmd, cfg)
	assert.True(t, cfg.Providers.Mock)

	// Commands without the flag never flip the setting.
	other := &config.Config{}
	applyTestMode(doctorCmd, other)
	assert.False(t, other.Providers.Mock)
}

func TestPrintCourseSummary(t *testing.T) {
	data := models.NewCourseData("Docker")
	data.Curriculum = &models.Curriculum{
		CourseTitle: "Complete Docker Course",
		Lessons:     []models.LessonSpec{{LessonNumber: 1, Title: "Intro", Type: models.LessonTheory}},
	}
	data.Scripts[1] = models.StageArtifact{Value: "script"}

	result := &pipeline.Result{
		Data: data,
		Package: &packager.Result{
			ArchivePath: "/tmp/out/course.zip",
			Validation: packager.Report{
				OverallStatus: "mostly_complete",
				ChecksPassed:  8,
				TotalChecks:   10,
			},
		},
	}

	var buf bytes.Buffer
	printCourseSummary(&buf, result)

	out := buf.String()
	assert.Contains(t, out, "Course generated successfully.")
	assert.Contains(t, out, "/tmp/out/course.zip")
	assert.Contains(t, out, "mostly_complete")
	assert.Contains(t, out, "(8/10 checks)")
	assert.Contains(t, out, "scripts")
}
