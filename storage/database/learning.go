package database

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/modelaedu/modela/core/learning"
)

type LearningRepository struct {
	store *Store
}

func NewLearningRepository(store *Store) *LearningRepository {
	return &LearningRepository{store: store}
}

// UpsertProgress writes the (user, lesson) row in a single statement so two
// concurrent saves cannot interleave. The first completion timestamp wins.
func (repo *LearningRepository) UpsertProgress(ctx context.Context, p learning.Progress) error {
	_, err := repo.store.exec(ctx,
		`INSERT INTO user_progress
			(user_id, module_id, lesson_id, lesson_title, video_completed,
			 exercise_completed, practical_completed, completed, completed_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, lesson_id) DO UPDATE SET
			module_id = excluded.module_id,
			lesson_title = excluded.lesson_title,
			video_completed = excluded.video_completed,
			exercise_completed = excluded.exercise_completed,
			practical_completed = excluded.practical_completed,
			completed = excluded.completed,
			completed_at = COALESCE(user_progress.completed_at, excluded.completed_at),
			updated_at = excluded.updated_at`,
		p.UserID, p.ModuleID, p.LessonID, p.LessonTitle, p.VideoCompleted,
		p.ExerciseCompleted, p.PracticalCompleted, p.Completed, p.CompletedAt, p.UpdatedAt)
	return errors.Wrap(err, "upserting progress")
}

func (repo *LearningRepository) PatchLessonProgress(ctx context.Context, userID int64, lessonTitle string, patch learning.LessonPatch) error {
	sets := make([]string, 0, 4)
	args := make([]interface{}, 0, 6)
	if patch.ExerciseCompleted != nil {
		sets = append(sets, "exercise_completed = ?")
		args = append(args, *patch.ExerciseCompleted)
	}
	if patch.PracticalCompleted != nil {
		sets = append(sets, "practical_completed = ?")
		args = append(args, *patch.PracticalCompleted)
	}
	if patch.Completed != nil {
		sets = append(sets, "completed = ?")
		args = append(args, *patch.Completed)
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), userID, lessonTitle)

	// matching zero rows is fine; the client patches titles it may not have
	// saved yet
	_, err := repo.store.exec(ctx,
		`UPDATE user_progress SET `+strings.Join(sets, ", ")+` WHERE user_id = ? AND lesson_title = ?`,
		args...)
	return errors.Wrap(err, "patching progress")
}

func (repo *LearningRepository) ListProgress(ctx context.Context, userID int64) ([]learning.Progress, error) {
	rows := make([]learning.Progress, 0)
	err := repo.store.selectAll(ctx, &rows,
		`SELECT * FROM user_progress WHERE user_id = ? ORDER BY module_id, lesson_id`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "listing progress")
	}
	return rows, nil
}

func (repo *LearningRepository) ListModuleProgress(ctx context.Context, userID int64, moduleID int) ([]learning.Progress, error) {
	rows := make([]learning.Progress, 0)
	err := repo.store.selectAll(ctx, &rows,
		`SELECT * FROM user_progress WHERE user_id = ? AND module_id = ? ORDER BY lesson_id`, userID, moduleID)
	if err != nil {
		return nil, errors.Wrap(err, "listing module progress")
	}
	return rows, nil
}

func (repo *LearningRepository) HasAttempt(ctx context.Context, userID int64, lessonID int) (bool, error) {
	var count int
	err := repo.store.get(ctx, &count,
		`SELECT COUNT(*) FROM exercise_attempts WHERE user_id = ? AND lesson_id = ?`, userID, lessonID)
	if err != nil {
		return false, errors.Wrap(err, "counting attempts")
	}
	return count > 0, nil
}

func (repo *LearningRepository) CreateAttempt(ctx context.Context, a learning.Attempt) error {
	_, err := repo.store.exec(ctx,
		`INSERT INTO exercise_attempts
			(user_id, lesson_id, lesson_title, score, total_questions, percentage, is_first_attempt, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.UserID, a.LessonID, a.LessonTitle, a.Score, a.TotalQuestions, a.Percentage, a.IsFirstAttempt, a.CreatedAt)
	return errors.Wrap(err, "inserting attempt")
}

func (repo *LearningRepository) PerfectAnswerTotal(ctx context.Context, userID int64) (int, error) {
	var total int
	err := repo.store.get(ctx, &total,
		`SELECT COALESCE(SUM(total_questions), 0) FROM exercise_attempts
		 WHERE user_id = ? AND (percentage = 100 OR score = total_questions)`, userID)
	if err != nil {
		return 0, errors.Wrap(err, "summing perfect attempts")
	}
	return total, nil
}

// GrantScore is a conditional insert; the unique index on
// (user_id, score_type, source_id) makes double-granting impossible even
// under concurrent requests.
func (repo *LearningRepository) GrantScore(ctx context.Context, e learning.ScoreEntry) (bool, error) {
	res, err := repo.store.exec(ctx,
		`INSERT INTO user_scores (user_id, score_type, source_id, points, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, score_type, source_id) DO NOTHING`,
		e.UserID, e.ScoreType, e.SourceID, e.Points, time.Now().UTC())
	if err != nil {
		return false, errors.Wrap(err, "granting score")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "granting score")
	}
	return n > 0, nil
}

func (repo *LearningRepository) ScoreTotalsByType(ctx context.Context, userID int64) (map[string]int, error) {
	rows := make([]struct {
		ScoreType string `db:"score_type"`
		Total     int    `db:"total"`
	}, 0)
	err := repo.store.selectAll(ctx, &rows,
		`SELECT score_type, COALESCE(SUM(points), 0) AS total
		 FROM user_scores WHERE user_id = ? GROUP BY score_type`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "summing scores")
	}

	totals := make(map[string]int, len(rows))
	for _, row := range rows {
		totals[row.ScoreType] = row.Total
	}
	return totals, nil
}

// Ranking lists every user; those without grants show up with zero points.
// Ties break on user id so the order is stable across requests.
func (repo *LearningRepository) Ranking(ctx context.Context, limit int) ([]learning.RankingEntry, error) {
	entries := make([]learning.RankingEntry, 0)
	err := repo.store.selectAll(ctx, &entries,
		`SELECT u.id AS "userId", u.nome, u.username, COALESCE(SUM(s.points), 0) AS "totalPoints"
		 FROM users u
		 LEFT JOIN user_scores s ON s.user_id = u.id
		 GROUP BY u.id, u.nome, u.username
		 ORDER BY "totalPoints" DESC, u.id ASC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "querying ranking")
	}
	return entries, nil
}

func (repo *LearningRepository) UpsertState(ctx context.Context, s learning.ExerciseState) error {
	_, err := repo.store.exec(ctx,
		`INSERT INTO exercise_states
			(user_id, lesson_id, lesson_title, is_completed, score, total_questions,
			 percentage, points_awarded, is_first_attempt, feedback_data, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, lesson_id) DO UPDATE SET
			lesson_title = excluded.lesson_title,
			is_completed = excluded.is_completed,
			score = excluded.score,
			total_questions = excluded.total_questions,
			percentage = excluded.percentage,
			points_awarded = excluded.points_awarded,
			is_first_attempt = excluded.is_first_attempt,
			feedback_data = excluded.feedback_data,
			updated_at = excluded.updated_at`,
		s.UserID, s.LessonID, s.LessonTitle, s.IsCompleted, s.Score, s.TotalQuestions,
		s.Percentage, s.PointsAwarded, s.IsFirstAttempt, s.FeedbackData, s.CreatedAt, s.UpdatedAt)
	return errors.Wrap(err, "upserting exercise state")
}

func (repo *LearningRepository) GetState(ctx context.Context, userID int64, lessonID int) (learning.ExerciseState, error) {
	var state learning.ExerciseState
	err := repo.store.get(ctx, &state,
		`SELECT * FROM exercise_states WHERE user_id = ? AND lesson_id = ?`, userID, lessonID)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return learning.ExerciseState{}, learning.ErrStateNotFound
		}
		return learning.ExerciseState{}, errors.Wrap(err, "getting exercise state")
	}
	return state, nil
}

func (repo *LearningRepository) DeleteState(ctx context.Context, userID int64, lessonID int) error {
	_, err := repo.store.exec(ctx,
		`DELETE FROM exercise_states WHERE user_id = ? AND lesson_id = ?`, userID, lessonID)
	return errors.Wrap(err, "deleting exercise state")
}

// PurgeUserData clears a user's learning rows. Forum posts stay; they are
// content other users replied to, not per-user state.
func (repo *LearningRepository) PurgeUserData(ctx context.Context, userID int64) error {
	for _, table := range []string{"user_progress", "exercise_attempts", "user_scores", "exercise_states"} {
		if _, err := repo.store.exec(ctx, `DELETE FROM `+table+` WHERE user_id = ?`, userID); err != nil {
			return errors.Wrapf(err, "purging %s", table)
		}
	}
	return nil
}
