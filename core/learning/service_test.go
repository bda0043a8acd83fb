package learning

import (
	"testing"
	"time"
)

func TestPointsForPercentage(t *testing.T) {
	tests := []struct {
		percentage int
		want       int
	}{
		{0, 0},
		{4, 0},
		{5, 1}, // rounds half up
		{50, 5},
		{80, 8},
		{99, 10},
		{100, 10},
	}
	for _, tt := range tests {
		if got := PointsForPercentage(tt.percentage); got != tt.want {
			t.Errorf("PointsForPercentage(%d) = %d; want %d", tt.percentage, got, tt.want)
		}
	}
}

func TestCatalog_CompletedModules(t *testing.T) {
	cat := Catalog{
		Modules: []ModuleSpec{
			{ID: 1, ExpectedLessons: 2},
			{ID: 2, ExpectedLessons: 0}, // placeholder, can never complete
		},
	}

	row := func(moduleID int, done bool) Progress {
		return Progress{ModuleID: moduleID, ExerciseCompleted: done}
	}

	tests := []struct {
		name string
		rows []Progress
		want int
	}{
		{"no rows", nil, 0},
		{"half done", []Progress{row(1, true), row(1, false)}, 0},
		{"exactly expected", []Progress{row(1, true), row(1, true)}, 1},
		{"placeholder never completes", []Progress{row(2, true), row(2, true)}, 0},
		{"extra incomplete rows keep it complete", []Progress{row(1, true), row(1, true), row(1, false)}, 1},
		{"unknown module ignored", []Progress{row(9, true)}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cat.CompletedModules(tt.rows); got != tt.want {
				t.Errorf("CompletedModules() = %d; want %d", got, tt.want)
			}
		})
	}
}

func TestCatalog_lessonTitles(t *testing.T) {
	cat := DefaultCatalog()

	if got := cat.FirstLessonTitle(); got != "Aula 01: Introdução à UML" {
		t.Errorf("FirstLessonTitle() = %q", got)
	}
	if got := cat.NextLessonTitle(1); got != "Aula 02: O que é um Diagrama de Classes" {
		t.Errorf("NextLessonTitle(1) = %q", got)
	}
	if got := cat.NextLessonTitle(4); got != "" {
		t.Errorf("NextLessonTitle(4) = %q; want empty past the last lesson", got)
	}
	if got := cat.ExpectedLessons(99); got != 0 {
		t.Errorf("ExpectedLessons(99) = %d; want 0", got)
	}
}

func TestLastAccessedLesson(t *testing.T) {
	cat := DefaultCatalog()
	now := time.Now()

	rows := []Progress{
		{LessonID: 1, UpdatedAt: now.Add(-2 * time.Hour)},
		{LessonID: 3, UpdatedAt: now}, // newest
		{LessonID: 2, UpdatedAt: now.Add(-1 * time.Hour)},
	}

	title, ok := lastAccessedLesson(rows, cat)
	if !ok || title != "Aula 03: Diagrama de Casos de Uso" {
		t.Errorf("lastAccessedLesson() = %q, %v", title, ok)
	}

	if _, ok := lastAccessedLesson(nil, cat); ok {
		t.Error("lastAccessedLesson() reported a lesson for no rows")
	}

	// lesson id outside the catalog falls back to the first lesson
	title, ok = lastAccessedLesson([]Progress{{LessonID: 42, UpdatedAt: now}}, cat)
	if !ok || title != cat.FirstLessonTitle() {
		t.Errorf("lastAccessedLesson() fallback = %q, %v", title, ok)
	}
}
