package learning

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/modelaedu/modela/core"
)

// Score types distinguishing the origin of a point grant.
const (
	ScoreTypeExercise   = "exercise"
	ScoreTypeModule     = "module"
	ScoreTypeForumTopic = "forum_topic"
	ScoreTypeForumReply = "forum_reply"
)

type (
	// Progress is one row per (user, lesson). The overall completed flag is
	// derived from the three sub-flags at write time; completed_at is the only
	// independently persisted completion fact.
	Progress struct {
		ID                 int64      `json:"-" db:"id"`
		UserID             int64      `json:"-" db:"user_id"`
		ModuleID           int        `json:"module_id" db:"module_id"`
		LessonID           int        `json:"lesson_id" db:"lesson_id"`
		LessonTitle        string     `json:"lesson_title" db:"lesson_title"`
		VideoCompleted     bool       `json:"video_completed" db:"video_completed"`
		ExerciseCompleted  bool       `json:"exercise_completed" db:"exercise_completed"`
		PracticalCompleted bool       `json:"practical_completed" db:"practical_completed"`
		Completed          bool       `json:"completed" db:"completed"`
		CompletedAt        *time.Time `json:"completed_at,omitempty" db:"completed_at"`
		UpdatedAt          time.Time  `json:"-" db:"updated_at"`
	}

	// Attempt is an append-only record of a single exercise submission.
	Attempt struct {
		ID             int64     `json:"id" db:"id"`
		UserID         int64     `json:"-" db:"user_id"`
		LessonID       int       `json:"lesson_id" db:"lesson_id"`
		LessonTitle    string    `json:"lesson_title" db:"lesson_title"`
		Score          int       `json:"score" db:"score"`
		TotalQuestions int       `json:"total_questions" db:"total_questions"`
		Percentage     int       `json:"percentage" db:"percentage"`
		IsFirstAttempt bool      `json:"is_first_attempt" db:"is_first_attempt"`
		CreatedAt      time.Time `json:"created_at" db:"created_at"`
	}

	// ScoreEntry is an append-only point grant, at most one per
	// (user, score_type, source_id).
	ScoreEntry struct {
		ID        int64     `json:"id" db:"id"`
		UserID    int64     `json:"-" db:"user_id"`
		ScoreType string    `json:"score_type" db:"score_type"`
		SourceID  string    `json:"source_id" db:"source_id"`
		Points    int       `json:"points" db:"points"`
		CreatedAt time.Time `json:"created_at" db:"created_at"`
	}

	// ExerciseState caches the latest UI feedback snapshot per (user, lesson).
	// It is not authoritative for scoring.
	ExerciseState struct {
		ID             int64     `db:"id"`
		UserID         int64     `db:"user_id"`
		LessonID       int       `db:"lesson_id"`
		LessonTitle    string    `db:"lesson_title"`
		IsCompleted    bool      `db:"is_completed"`
		Score          int       `db:"score"`
		TotalQuestions int       `db:"total_questions"`
		Percentage     int       `db:"percentage"`
		PointsAwarded  int       `db:"points_awarded"`
		IsFirstAttempt bool      `db:"is_first_attempt"`
		FeedbackData   []byte    `db:"feedback_data"` // JSON blob
		CreatedAt      time.Time `db:"created_at"`
		UpdatedAt      time.Time `db:"updated_at"`
	}
)

// ProgressInput is the payload for the progress upsert.
type ProgressInput struct {
	ModuleID           int    `json:"moduleId" validate:"required"`
	LessonID           int    `json:"lessonId" validate:"required"`
	LessonTitle        string `json:"lessonTitle" validate:"required"`
	VideoCompleted     bool   `json:"videoCompleted"`
	ExerciseCompleted  bool   `json:"exerciseCompleted"`
	PracticalCompleted bool   `json:"practicalCompleted"`
	Completed          bool   `json:"completed"`
}

func (pi *ProgressInput) Validate(validate *validator.Validate) error {
	pi.LessonTitle = core.CleanString(pi.LessonTitle)
	return validate.Struct(pi)
}

// LessonPatch updates only the supplied fields of a lesson's progress.
type LessonPatch struct {
	LessonTitle        string `json:"lessonTitle" validate:"required"`
	ExerciseCompleted  *bool  `json:"exerciseCompleted"`
	PracticalCompleted *bool  `json:"practicalCompleted"`
	Completed          *bool  `json:"completed"`
}

func (lp *LessonPatch) Validate(validate *validator.Validate) error {
	lp.LessonTitle = core.CleanString(lp.LessonTitle)
	return validate.Struct(lp)
}

func (lp *LessonPatch) IsEmpty() bool {
	return lp.ExerciseCompleted == nil && lp.PracticalCompleted == nil && lp.Completed == nil
}

// AttemptInput is a single exercise submission. Score and Percentage are
// pointers so that zero is a valid submitted value.
type AttemptInput struct {
	LessonID       int    `json:"lessonId" validate:"required"`
	LessonTitle    string `json:"lessonTitle" validate:"required"`
	Score          *int   `json:"score" validate:"required"`
	TotalQuestions int    `json:"totalQuestions" validate:"required"`
	Percentage     *int   `json:"percentage" validate:"required"`
}

func (ai *AttemptInput) Validate(validate *validator.Validate) error {
	ai.LessonTitle = core.CleanString(ai.LessonTitle)
	return validate.Struct(ai)
}

// AttemptResult is what a submission earned.
type AttemptResult struct {
	IsFirstAttempt bool `json:"isFirstAttempt"`
	PointsAwarded  int  `json:"pointsAwarded"`
	Percentage     int  `json:"percentage"`
}

// ScoreInput is an arbitrary point grant request.
type ScoreInput struct {
	ScoreType string `json:"scoreType" validate:"required"`
	SourceID  string `json:"sourceId" validate:"required"`
	Points    int    `json:"points" validate:"required"`
}

func (si *ScoreInput) Validate(validate *validator.Validate) error {
	si.ScoreType = core.CleanString(si.ScoreType)
	si.SourceID = core.CleanString(si.SourceID)
	return validate.Struct(si)
}

// ScoreResult reports the outcome of a grant request.
type ScoreResult struct {
	PointsAdded   int  `json:"pointsAdded"`
	AlreadyExists bool `json:"alreadyExists,omitempty"`
}

// StateInput is the exercise UI feedback snapshot to persist.
type StateInput struct {
	LessonID       int                    `json:"lessonId" validate:"required"`
	LessonTitle    string                 `json:"lessonTitle" validate:"required"`
	IsCompleted    bool                   `json:"isCompleted"`
	Score          *int                   `json:"score" validate:"required"`
	TotalQuestions int                    `json:"totalQuestions" validate:"required"`
	Percentage     *int                   `json:"percentage" validate:"required"`
	PointsAwarded  int                    `json:"pointsAwarded"`
	IsFirstAttempt bool                   `json:"isFirstAttempt"`
	FeedbackData   map[string]interface{} `json:"feedbackData"`
}

func (si *StateInput) Validate(validate *validator.Validate) error {
	si.LessonTitle = core.CleanString(si.LessonTitle)
	return validate.Struct(si)
}

// StateView is the snapshot as returned to clients.
type StateView struct {
	ID             int64                  `json:"id"`
	LessonID       int                    `json:"lessonId"`
	LessonTitle    string                 `json:"lessonTitle"`
	IsCompleted    bool                   `json:"isCompleted"`
	Score          int                    `json:"score"`
	TotalQuestions int                    `json:"totalQuestions"`
	Percentage     int                    `json:"percentage"`
	PointsAwarded  int                    `json:"pointsAwarded"`
	IsFirstAttempt bool                   `json:"isFirstAttempt"`
	FeedbackData   map[string]interface{} `json:"feedbackData"`
	CreatedAt      time.Time              `json:"createdAt"`
	UpdatedAt      time.Time              `json:"updatedAt"`
}

// Dashboard aggregates a user's standing across the whole course.
type (
	Dashboard struct {
		Exercises     Counter       `json:"exercises"`
		Modules       Counter       `json:"modules"`
		Certificates  Certificates  `json:"certificates"`
		CurrentModule CurrentModule `json:"currentModule"`
	}

	Counter struct {
		Completed int `json:"completed"`
		Total     int `json:"total"`
	}

	Certificates struct {
		Available int `json:"available"`
		Total     int `json:"total"`
	}

	CurrentModule struct {
		ID            int    `json:"id"`
		Title         string `json:"title"`
		Progress      int    `json:"progress"`
		CurrentLesson string `json:"currentLesson"`
		NextLesson    string `json:"nextLesson"`
	}
)

// TotalScore is a user's point total with a per-origin breakdown.
type (
	TotalScore struct {
		TotalPoints int            `json:"totalPoints"`
		Breakdown   ScoreBreakdown `json:"breakdown"`
	}

	ScoreBreakdown struct {
		Exercises int `json:"exercises"`
		Modules   int `json:"modules"`
		Forum     int `json:"forum"`
	}
)

// RankingEntry is one row of the general points ranking.
type RankingEntry struct {
	UserID      int64  `json:"userId" db:"userId"`
	Nome        string `json:"nome" db:"nome"`
	Username    string `json:"username" db:"username"`
	TotalPoints int    `json:"totalPoints" db:"totalPoints"`
}
