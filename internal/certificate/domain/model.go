package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Certificate is the proof of course completion. One per (user, course); its
// number is the public verification handle.
type Certificate struct {
	ID       snowflake.ID `json:"id" gorm:"primaryKey"`
	UserID   snowflake.ID `json:"user_id" gorm:"not null;uniqueIndex:idx_certificate_user_course"`
	CourseID snowflake.ID `json:"course_id" gorm:"not null;uniqueIndex:idx_certificate_user_course"`
	Number   string       `json:"number" gorm:"type:text;not null;uniqueIndex"`
	IssuedAt time.Time    `json:"issued_at" gorm:"not null"`
}

func (Certificate) TableName() string { return "certificates" }

var (
	ErrNotFound      = errors.New("certificate_not_found")
	ErrNotEligible   = errors.New("certificate_not_eligible")
	ErrCourseNotDone = errors.New("course_not_completed")
)

type Repository interface {
	// Insert treats a duplicate (user, course) as already issued.
	Insert(ctx context.Context, db *gorm.DB, cert *Certificate) (created bool, err error)
	FindByUserCourse(ctx context.Context, db *gorm.DB, userID, courseID snowflake.ID) (*Certificate, error)
	FindByNumber(ctx context.Context, db *gorm.DB, number string) (*Certificate, error)
	Exists(ctx context.Context, db *gorm.DB, userID, courseID snowflake.ID) (bool, error)
}

type Service interface {
	Issue(ctx context.Context, userID, courseID snowflake.ID) (*Certificate, error)
	VerifyByNumber(ctx context.Context, number string) (*Certificate, error)
	Exists(ctx context.Context, userID, courseID snowflake.ID) (bool, error)
}
