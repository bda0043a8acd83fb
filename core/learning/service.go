package learning

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/modelaedu/modela/core"
)

var (
	// errors
	ErrStateNotFound = errors.New("exercise state not found")
)

type (
	Repository interface {
		UpsertProgress(ctx context.Context, p Progress) error
		// PatchLessonProgress updates only the non-nil fields of patch on the
		// row matching (userID, lessonTitle).
		PatchLessonProgress(ctx context.Context, userID int64, lessonTitle string, patch LessonPatch) error
		ListProgress(ctx context.Context, userID int64) ([]Progress, error)
		ListModuleProgress(ctx context.Context, userID int64, moduleID int) ([]Progress, error)

		HasAttempt(ctx context.Context, userID int64, lessonID int) (bool, error)
		CreateAttempt(ctx context.Context, a Attempt) error
		// PerfectAnswerTotal sums total_questions over attempts where
		// percentage = 100 or score = total_questions.
		PerfectAnswerTotal(ctx context.Context, userID int64) (int, error)

		// GrantScore conditionally inserts e; reports false when a grant for
		// the same (user, score_type, source_id) already exists.
		GrantScore(ctx context.Context, e ScoreEntry) (bool, error)
		ScoreTotalsByType(ctx context.Context, userID int64) (map[string]int, error)
		Ranking(ctx context.Context, limit int) ([]RankingEntry, error)

		UpsertState(ctx context.Context, s ExerciseState) error
		GetState(ctx context.Context, userID int64, lessonID int) (ExerciseState, error)
		DeleteState(ctx context.Context, userID int64, lessonID int) error

		// PurgeUserData removes all learning rows for a user (admin tooling).
		PurgeUserData(ctx context.Context, userID int64) error
	}

	Service struct {
		repo    Repository
		catalog Catalog
		logger  core.Logger
	}
)

func NewService(repo Repository, catalog Catalog, logger core.Logger) *Service {
	return &Service{repo: repo, catalog: catalog, logger: logger}
}

func (svc *Service) Catalog() Catalog { return svc.catalog }

// PointsForPercentage is the proportional first-attempt award: a perfect
// score is worth 10 points.
func PointsForPercentage(percentage int) int {
	return int(math.Round(float64(percentage) / 100 * 10))
}

// SaveProgress upserts the (user, lesson) row. The stored completed flag is
// the conjunction of the three sub-flags; the client's overall flag only
// matters as the timestamp trigger when it agrees with them.
func (svc *Service) SaveProgress(ctx context.Context, userID int64, in ProgressInput) error {
	completed := in.VideoCompleted && in.ExerciseCompleted && in.PracticalCompleted
	p := Progress{
		UserID:             userID,
		ModuleID:           in.ModuleID,
		LessonID:           in.LessonID,
		LessonTitle:        in.LessonTitle,
		VideoCompleted:     in.VideoCompleted,
		ExerciseCompleted:  in.ExerciseCompleted,
		PracticalCompleted: in.PracticalCompleted,
		Completed:          completed,
		UpdatedAt:          time.Now().UTC(),
	}
	if completed {
		now := time.Now().UTC()
		p.CompletedAt = &now
	}
	return svc.repo.UpsertProgress(ctx, p)
}

// PatchLessonProgress applies a partial update; an empty patch is a no-op success.
func (svc *Service) PatchLessonProgress(ctx context.Context, userID int64, patch LessonPatch) error {
	if patch.IsEmpty() {
		return nil
	}
	return svc.repo.PatchLessonProgress(ctx, userID, patch.LessonTitle, patch)
}

func (svc *Service) ListProgress(ctx context.Context, userID int64) ([]Progress, error) {
	return svc.repo.ListProgress(ctx, userID)
}

func (svc *Service) ModuleProgress(ctx context.Context, userID int64, moduleID int) ([]Progress, error) {
	return svc.repo.ListModuleProgress(ctx, userID, moduleID)
}

// RecordAttempt appends the attempt and, on the first attempt for the lesson,
// grants proportional points. The grant is a conditional insert so a racing
// duplicate can never double-award.
func (svc *Service) RecordAttempt(ctx context.Context, userID int64, in AttemptInput) (AttemptResult, error) {
	exists, err := svc.repo.HasAttempt(ctx, userID, in.LessonID)
	if err != nil {
		return AttemptResult{}, errors.Wrap(err, "checking prior attempts")
	}
	isFirst := !exists

	var points int
	if isFirst {
		points = PointsForPercentage(*in.Percentage)
	}

	err = svc.repo.CreateAttempt(ctx, Attempt{
		UserID:         userID,
		LessonID:       in.LessonID,
		LessonTitle:    in.LessonTitle,
		Score:          *in.Score,
		TotalQuestions: in.TotalQuestions,
		Percentage:     *in.Percentage,
		IsFirstAttempt: isFirst,
		CreatedAt:      time.Now().UTC(),
	})
	if err != nil {
		return AttemptResult{}, errors.Wrap(err, "recording attempt")
	}

	if points > 0 {
		granted, err := svc.repo.GrantScore(ctx, ScoreEntry{
			UserID:    userID,
			ScoreType: ScoreTypeExercise,
			SourceID:  strconv.Itoa(in.LessonID),
			Points:    points,
		})
		if err != nil {
			return AttemptResult{}, errors.Wrap(err, "granting exercise points")
		}
		if !granted {
			svc.logger.Warn("exercise points already granted", map[string]interface{}{
				"user_id": userID, "lesson_id": in.LessonID,
			})
		}
	}

	return AttemptResult{IsFirstAttempt: isFirst, PointsAwarded: points, Percentage: *in.Percentage}, nil
}

// AddScore grants arbitrary points at most once per (user, type, source).
func (svc *Service) AddScore(ctx context.Context, userID int64, in ScoreInput) (ScoreResult, error) {
	granted, err := svc.repo.GrantScore(ctx, ScoreEntry{
		UserID:    userID,
		ScoreType: in.ScoreType,
		SourceID:  in.SourceID,
		Points:    in.Points,
	})
	if err != nil {
		return ScoreResult{}, errors.Wrap(err, "granting points")
	}
	if !granted {
		return ScoreResult{PointsAdded: 0, AlreadyExists: true}, nil
	}
	return ScoreResult{PointsAdded: in.Points}, nil
}

// GrantScore is the raw conditional grant, for sibling services (forum).
func (svc *Service) GrantScore(ctx context.Context, userID int64, scoreType, sourceID string, points int) (bool, error) {
	return svc.repo.GrantScore(ctx, ScoreEntry{
		UserID:    userID,
		ScoreType: scoreType,
		SourceID:  sourceID,
		Points:    points,
	})
}

// Dashboard derives the user's summary: perfect-attempt exercise counter,
// module completion against the catalog, certificate availability, and the
// current module's progress with the last accessed lesson.
func (svc *Service) Dashboard(ctx context.Context, userID int64) (Dashboard, error) {
	rows, err := svc.repo.ListProgress(ctx, userID)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "listing progress")
	}
	perfect, err := svc.repo.PerfectAnswerTotal(ctx, userID)
	if err != nil {
		return Dashboard{}, errors.Wrap(err, "summing perfect attempts")
	}

	d := Dashboard{
		Exercises:    Counter{Completed: perfect, Total: svc.catalog.TotalExercises},
		Modules:      Counter{Completed: svc.catalog.CompletedModules(rows), Total: svc.catalog.TotalModules()},
		Certificates: Certificates{Total: svc.catalog.Certificates},
	}
	if d.Modules.Completed == d.Modules.Total {
		d.Certificates.Available = svc.catalog.Certificates
	}
	d.CurrentModule = svc.currentModule(rows)
	return d, nil
}

func (svc *Service) currentModule(rows []Progress) CurrentModule {
	first, _ := svc.catalog.Module(1)
	cm := CurrentModule{
		ID:            first.ID,
		Title:         first.Title,
		CurrentLesson: svc.catalog.FirstLessonTitle(),
		NextLesson:    svc.catalog.NextLessonTitle(1),
	}

	var seen, done int
	for _, row := range rows {
		if row.ModuleID != first.ID {
			continue
		}
		seen++
		if row.ExerciseCompleted {
			done++
		}
	}
	if seen > 0 {
		cm.Progress = int(math.Round(float64(done) / float64(seen) * 100))
	}

	if lesson, ok := lastAccessedLesson(rows, svc.catalog); ok {
		cm.CurrentLesson = lesson
	}
	return cm
}

// lastAccessedLesson picks the most recently touched progress row and maps
// its lesson id through the catalog titles.
func lastAccessedLesson(rows []Progress, cat Catalog) (string, bool) {
	if len(rows) == 0 {
		return "", false
	}
	sorted := make([]Progress, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt) })

	if title, ok := cat.LessonTitle(sorted[0].LessonID); ok {
		return title, true
	}
	return cat.FirstLessonTitle(), true
}

// CompletedModules counts modules whose completed-lesson count exactly meets
// the expected lesson count; modules with no expected count never complete.
func (c Catalog) CompletedModules(rows []Progress) int {
	type tally struct{ total, completed int }
	byModule := make(map[int]*tally)
	for _, row := range rows {
		t, ok := byModule[row.ModuleID]
		if !ok {
			t = &tally{}
			byModule[row.ModuleID] = t
		}
		t.total++
		if row.ExerciseCompleted {
			t.completed++
		}
	}

	var completed int
	for id, t := range byModule {
		expected := c.ExpectedLessons(id)
		if expected > 0 && t.completed == expected && t.total >= expected {
			completed++
		}
	}
	return completed
}

// TotalScore sums a user's grants with a per-origin breakdown.
func (svc *Service) TotalScore(ctx context.Context, userID int64) (TotalScore, error) {
	totals, err := svc.repo.ScoreTotalsByType(ctx, userID)
	if err != nil {
		return TotalScore{}, errors.Wrap(err, "summing scores")
	}

	var ts TotalScore
	for scoreType, total := range totals {
		ts.TotalPoints += total
		switch scoreType {
		case ScoreTypeExercise:
			ts.Breakdown.Exercises = total
		case ScoreTypeModule:
			ts.Breakdown.Modules = total
		case ScoreTypeForumTopic, ScoreTypeForumReply:
			ts.Breakdown.Forum += total
		}
	}
	return ts, nil
}

func (svc *Service) Ranking(ctx context.Context, limit int) ([]RankingEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	return svc.repo.Ranking(ctx, limit)
}

// SaveState upserts the exercise UI snapshot for (user, lesson).
func (svc *Service) SaveState(ctx context.Context, userID int64, in StateInput) error {
	var blob []byte
	if in.FeedbackData != nil {
		var err error
		if blob, err = json.Marshal(in.FeedbackData); err != nil {
			return errors.Wrap(err, "serializing feedback")
		}
	}
	now := time.Now().UTC()
	return svc.repo.UpsertState(ctx, ExerciseState{
		UserID:         userID,
		LessonID:       in.LessonID,
		LessonTitle:    in.LessonTitle,
		IsCompleted:    in.IsCompleted,
		Score:          *in.Score,
		TotalQuestions: in.TotalQuestions,
		Percentage:     *in.Percentage,
		PointsAwarded:  in.PointsAwarded,
		IsFirstAttempt: in.IsFirstAttempt,
		FeedbackData:   blob,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

// LoadState returns the stored snapshot, or ErrStateNotFound. A corrupt
// feedback blob degrades to an empty object rather than an error.
func (svc *Service) LoadState(ctx context.Context, userID int64, lessonID int) (StateView, error) {
	s, err := svc.repo.GetState(ctx, userID, lessonID)
	if err != nil {
		return StateView{}, err
	}

	feedback := map[string]interface{}{}
	if len(s.FeedbackData) > 0 {
		if err := json.Unmarshal(s.FeedbackData, &feedback); err != nil {
			svc.logger.Warn("discarding corrupt feedback blob", map[string]interface{}{
				"user_id": userID, "lesson_id": lessonID,
			})
			feedback = map[string]interface{}{}
		}
	}
	return StateView{
		ID:             s.ID,
		LessonID:       s.LessonID,
		LessonTitle:    s.LessonTitle,
		IsCompleted:    s.IsCompleted,
		Score:          s.Score,
		TotalQuestions: s.TotalQuestions,
		Percentage:     s.Percentage,
		PointsAwarded:  s.PointsAwarded,
		IsFirstAttempt: s.IsFirstAttempt,
		FeedbackData:   feedback,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}, nil
}

func (svc *Service) ClearState(ctx context.Context, userID int64, lessonID int) error {
	return svc.repo.DeleteState(ctx, userID, lessonID)
}

func (svc *Service) PurgeUserData(ctx context.Context, userID int64) error {
	return svc.repo.PurgeUserData(ctx, userID)
}
