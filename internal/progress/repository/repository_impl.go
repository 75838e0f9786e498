package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/pathshala-labs/pathshala/internal/progress/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertCompletion(ctx context.Context, db *gorm.DB, completion *domain.LessonCompletion) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO lesson_completions (id, user_id, course_id, lesson_id, completed_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, course_id, lesson_id) DO NOTHING`,
		completion.ID,
		completion.UserID,
		completion.CourseID,
		completion.LessonID,
		completion.CompletedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) CountCompletions(ctx context.Context, db *gorm.DB, userID, courseID snowflake.ID) (int, error) {
	var count int
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM lesson_completions WHERE user_id = ? AND course_id = ?`,
		userID,
		courseID,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) UpsertProgress(ctx context.Context, db *gorm.DB, progress *domain.CourseProgress) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO course_progress (id, user_id, course_id, completed_lessons, total_lessons, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, course_id) DO UPDATE
		 SET completed_lessons = EXCLUDED.completed_lessons,
		     total_lessons = EXCLUDED.total_lessons,
		     updated_at = EXCLUDED.updated_at`,
		progress.ID,
		progress.UserID,
		progress.CourseID,
		progress.CompletedLessons,
		progress.TotalLessons,
		progress.UpdatedAt,
	).Error
}

func (r *repo) FindProgress(ctx context.Context, db *gorm.DB, userID, courseID snowflake.ID) (*domain.CourseProgress, error) {
	var progress domain.CourseProgress
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, course_id, completed_lessons, total_lessons, updated_at
		 FROM course_progress
		 WHERE user_id = ? AND course_id = ?
		 LIMIT 1`,
		userID,
		courseID,
	).Scan(&progress).Error
	if err != nil {
		return nil, err
	}
	if progress.ID == 0 {
		return nil, nil
	}
	return &progress, nil
}
