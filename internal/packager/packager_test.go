package packager

import (
	"archive/zip"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coursegen/internal/models"
)

func sampleCourseData(t *testing.T) *models.CourseData {
	t.Helper()
	data := models.NewCourseData("Docker")
	data.Description = "Learn Docker from the ground up."
	data.Curriculum = &models.Curriculum{
		CourseTitle:        "Complete Docker Course",
		Difficulty:         "intermediate",
		TotalDurationHours: 1.0,
		Lessons: []models.LessonSpec{
			{LessonNumber: 1, Title: "Containers 101", Type: models.LessonTheory, DurationMinutes: 30},
			{LessonNumber: 2, Title: "Building Images", Type: models.LessonHandsOn, DurationMinutes: 30},
		},
	}
	data.Content[1] = &models.LessonContent{LessonNumber: 1, Title: "Containers 101", Introduction: "Intro", MainConcept: "Concept", Summary: "Done"}
	data.Content[2] = &models.LessonContent{
		LessonNumber: 2, Title: "Building Images", Introduction: "Intro", MainConcept: "Concept",
		Exercises: []models.Exercise{{Title: "Build one", Description: "Write a Dockerfile"}},
	}
	data.Scripts[1] = models.StageArtifact{LessonNumber: 1, Value: "Welcome to lesson 1."}
	data.Scripts[2] = models.StageArtifact{LessonNumber: 2, Value: "Welcome to lesson 2."}
	data.Notebooks[2] = models.StageArtifact{LessonNumber: 2, Value: `{"nbformat": 4, "cells": []}`}

	work := t.TempDir()
	video := filepath.Join(work, "lesson_01.mp4")
	require.NoError(t, os.WriteFile(video, []byte("clip"), 0o644))
	data.FinalVideos[1] = models.StageArtifact{LessonNumber: 1, Value: video}
	thumb := filepath.Join(work, "thumb.png")
	require.NoError(t, os.WriteFile(thumb, []byte("png"), 0o644))
	data.Thumbnail = &models.StageArtifact{Value: thumb}
	return data
}

func TestCreatePackageLayout(t *testing.T) {
	out := t.TempDir()
	res, err := New(out).CreatePackage(sampleCourseData(t))
	require.NoError(t, err)

	for _, rel := range []string{
		"scripts/lesson_01_script.txt",
		"scripts/lesson_02_script.txt",
		"notebooks/lesson_02.ipynb",
		"videos/lesson_01.mp4",
		"marketing/course_thumbnail.png",
		"resources/lesson_materials/lesson_01.md",
		"assessments/exercises/lesson_02_exercises.json",
		"course_metadata.json",
		"curriculum.json",
		"README.md",
		"setup_instructions.md",
		"validation_report.json",
	} {
		assert.FileExists(t, filepath.Join(res.PackageDir, rel), rel)
	}

	// Lesson 1 has no exercises, so no assessment file.
	assert.NoFileExists(t, filepath.Join(res.PackageDir, "assessments/exercises/lesson_01_exercises.json"))
}

func TestCreatePackageMetadata(t *testing.T) {
	out := t.TempDir()
	res, err := New(out).CreatePackage(sampleCourseData(t))
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(res.PackageDir, "course_metadata.json"))
	require.NoError(t, err)
	var meta struct {
		CourseInfo struct {
			Title        string `json:"title"`
			TotalLessons int    `json:"total_lessons"`
		} `json:"course_info"`
	}
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, "Complete Docker Course", meta.CourseInfo.Title)
	assert.Equal(t, 2, meta.CourseInfo.TotalLessons)
}

func TestCreatePackageValidationComplete(t *testing.T) {
	out := t.TempDir()
	res, err := New(out).CreatePackage(sampleCourseData(t))
	require.NoError(t, err)

	assert.Equal(t, "complete", res.Validation.OverallStatus)
	assert.True(t, res.Validation.Valid)
	assert.Equal(t, res.Validation.TotalChecks, res.Validation.ChecksPassed)
	assert.Empty(t, res.Validation.Issues)
}

func TestCreatePackageArchive(t *testing.T) {
	out := t.TempDir()
	res, err := New(out).CreatePackage(sampleCourseData(t))
	require.NoError(t, err)
	require.FileExists(t, res.ArchivePath)

	zr, err := zip.OpenReader(res.ArchivePath)
	require.NoError(t, err)
	defer zr.Close()

	names := make(map[string]bool)
	for _, f := range zr.File {
		names[f.Name] = true
	}
	base := filepath.Base(res.PackageDir)
	assert.True(t, names[base+"/README.md"])
	assert.True(t, names[base+"/videos/lesson_01.mp4"])
}

func TestCreatePackageRequiresCurriculum(t *testing.T) {
	data := models.NewCourseData("Docker")
	_, err := New(t.TempDir()).CreatePackage(data)
	assert.ErrorIs(t, err, models.ErrNoCurriculum)
}

func TestSanitizeDomain(t *testing.T) {
	assert.Equal(t, "Docker", SanitizeDomain("Complete Docker Course"))
	assert.Equal(t, "WebDev", SanitizeDomain("Web/Dev"))
	assert.Equal(t, "Data_Science", SanitizeDomain("Data Science"))
	assert.Equal(t, "course", SanitizeDomain("???"))
	long := "A Very Long Title That Goes On And On Forever And Ever Without End"
	assert.LessOrEqual(t, len(SanitizeDomain(long)), 51)
}

func TestMissingArtifactsAreSkipped(t *testing.T) {
	data := sampleCourseData(t)
	data.FinalVideos = map[int]models.StageArtifact{}
	data.Videos = map[int]models.StageArtifact{}
	data.Thumbnail = nil

	res, err := New(t.TempDir()).CreatePackage(data)
	require.NoError(t, err)

	// Directories still exist, so validation stays complete.
	assert.Equal(t, "complete", res.Validation.OverallStatus)
	assert.NoFileExists(t, filepath.Join(res.PackageDir, "videos/lesson_01.mp4"))
}
