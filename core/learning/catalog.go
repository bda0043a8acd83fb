package learning

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

type (
	// Catalog declares the expected shape of the course: which modules exist,
	// how many lessons each one must have for completion, and the ordered
	// lesson titles. Completion math never hard-codes these numbers.
	Catalog struct {
		TotalExercises int          `json:"total_exercises"`
		Certificates   int          `json:"certificates"`
		Modules        []ModuleSpec `json:"modules"`
	}

	ModuleSpec struct {
		ID              int      `json:"id"`
		Title           string   `json:"title"`
		ExpectedLessons int      `json:"expected_lessons"`
		Lessons         []string `json:"lessons"` // ordered; index+1 is the lesson id
	}
)

// DefaultCatalog mirrors the published course: only module 1 has content so
// far, the other three are placeholders with no expected lessons (and are
// therefore never considered complete).
func DefaultCatalog() Catalog {
	return Catalog{
		TotalExercises: 40,
		Certificates:   1,
		Modules: []ModuleSpec{
			{
				ID:              1,
				Title:           "Modelagem com UML",
				ExpectedLessons: 10,
				Lessons: []string{
					"Aula 01: Introdução à UML",
					"Aula 02: O que é um Diagrama de Classes",
					"Aula 03: Diagrama de Casos de Uso",
					"Aula 04: Diagrama de Sequência",
				},
			},
			{ID: 2, Title: "Módulo 2"},
			{ID: 3, Title: "Módulo 3"},
			{ID: 4, Title: "Módulo 4"},
		},
	}
}

// LoadCatalog reads a catalog override from a JSON file; an empty path yields
// the default catalog.
func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Catalog{}, errors.Wrap(err, "opening catalog file")
	}
	defer f.Close()

	var cat Catalog
	if err = json.NewDecoder(f).Decode(&cat); err != nil {
		return Catalog{}, errors.Wrap(err, "decoding catalog file")
	}
	return cat, nil
}

func (c Catalog) TotalModules() int { return len(c.Modules) }

func (c Catalog) Module(id int) (ModuleSpec, bool) {
	for _, m := range c.Modules {
		if m.ID == id {
			return m, true
		}
	}
	return ModuleSpec{}, false
}

// ExpectedLessons is 0 for unknown modules, so they can never be complete.
func (c Catalog) ExpectedLessons(moduleID int) int {
	m, ok := c.Module(moduleID)
	if !ok {
		return 0
	}
	return m.ExpectedLessons
}

// LessonTitle resolves a lesson id against the first module that has it.
func (c Catalog) LessonTitle(lessonID int) (string, bool) {
	for _, m := range c.Modules {
		if lessonID >= 1 && lessonID <= len(m.Lessons) {
			return m.Lessons[lessonID-1], true
		}
	}
	return "", false
}

// FirstLessonTitle is the fallback "current lesson" for fresh users.
func (c Catalog) FirstLessonTitle() string {
	for _, m := range c.Modules {
		if len(m.Lessons) > 0 {
			return m.Lessons[0]
		}
	}
	return ""
}

// NextLessonTitle returns the lesson following the given one, if any.
func (c Catalog) NextLessonTitle(lessonID int) string {
	if title, ok := c.LessonTitle(lessonID + 1); ok {
		return title
	}
	return ""
}
