package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Enrollment is one access grant for a (user, course) pair. At most one active
// row (revoked_at IS NULL) may exist per pair; the partial unique index is the
// source of truth. Rows are never deleted.
type Enrollment struct {
	ID               snowflake.ID `json:"id" gorm:"primaryKey"`
	UserID           snowflake.ID `json:"user_id" gorm:"not null"`
	CourseID         snowflake.ID `json:"course_id" gorm:"not null"`
	EnrolledAt       time.Time    `json:"enrolled_at" gorm:"not null"`
	RevokedAt        *time.Time   `json:"revoked_at"`
	RevocationReason *string      `json:"revocation_reason"`
	CompletedAt      *time.Time   `json:"completed_at"`
}

func (Enrollment) TableName() string { return "enrollments" }

var (
	ErrAlreadyEnrolled = errors.New("already_enrolled")
	ErrNotEnrolled     = errors.New("not_enrolled")
)

type ListFilter struct {
	UserID    snowflake.ID
	PageToken string
	PageSize  int
}

type Repository interface {
	// Grant inserts an active enrollment, treating a duplicate-key violation
	// as "already enrolled". Safe to call concurrently and inside any
	// transaction; created reports whether a new row was written.
	Grant(ctx context.Context, db *gorm.DB, id, userID, courseID snowflake.ID, at time.Time) (created bool, err error)
	FindActive(ctx context.Context, db *gorm.DB, userID, courseID snowflake.ID) (*Enrollment, error)
	// Revoke marks the active enrollment revoked and reports whether one existed.
	Revoke(ctx context.Context, db *gorm.DB, userID, courseID snowflake.ID, at time.Time, reason string) (bool, error)
	MarkCompleted(ctx context.Context, db *gorm.DB, userID, courseID snowflake.ID, at time.Time) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Enrollment, error)
}
