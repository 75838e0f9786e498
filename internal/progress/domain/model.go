package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// LessonCompletion is one completed lesson per user. The unique constraint on
// (user_id, course_id, lesson_id) makes completion idempotent.
type LessonCompletion struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	UserID      snowflake.ID `json:"user_id" gorm:"not null;uniqueIndex:idx_lesson_completion"`
	CourseID    snowflake.ID `json:"course_id" gorm:"not null;uniqueIndex:idx_lesson_completion"`
	LessonID    snowflake.ID `json:"lesson_id" gorm:"not null;uniqueIndex:idx_lesson_completion"`
	CompletedAt time.Time    `json:"completed_at" gorm:"not null"`
}

func (LessonCompletion) TableName() string { return "lesson_completions" }

// CourseProgress is the denormalized per-course rollup, recomputed after every
// completion.
type CourseProgress struct {
	ID               snowflake.ID `json:"id" gorm:"primaryKey"`
	UserID           snowflake.ID `json:"user_id" gorm:"not null;uniqueIndex:idx_course_progress"`
	CourseID         snowflake.ID `json:"course_id" gorm:"not null;uniqueIndex:idx_course_progress"`
	CompletedLessons int          `json:"completed_lessons" gorm:"not null;default:0"`
	TotalLessons     int          `json:"total_lessons" gorm:"not null;default:0"`
	UpdatedAt        time.Time    `json:"updated_at" gorm:"not null"`
}

func (CourseProgress) TableName() string { return "course_progress" }

// Percent returns completion in whole percent, capped at 100.
func (p *CourseProgress) Percent() int {
	if p.TotalLessons <= 0 {
		return 0
	}
	pct := p.CompletedLessons * 100 / p.TotalLessons
	if pct > 100 {
		return 100
	}
	return pct
}

func (p *CourseProgress) Complete() bool {
	return p.TotalLessons > 0 && p.CompletedLessons >= p.TotalLessons
}

var (
	ErrNotEnrolled = errors.New("not_enrolled")
)

type Repository interface {
	InsertCompletion(ctx context.Context, db *gorm.DB, completion *LessonCompletion) (bool, error)
	CountCompletions(ctx context.Context, db *gorm.DB, userID, courseID snowflake.ID) (int, error)
	UpsertProgress(ctx context.Context, db *gorm.DB, progress *CourseProgress) error
	FindProgress(ctx context.Context, db *gorm.DB, userID, courseID snowflake.ID) (*CourseProgress, error)
}

type Service interface {
	CompleteLesson(ctx context.Context, userID, courseID, lessonID snowflake.ID) (*CourseProgress, error)
	Get(ctx context.Context, userID, courseID snowflake.ID) (*CourseProgress, error)
}
