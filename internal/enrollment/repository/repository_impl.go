package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pathshala-labs/pathshala/internal/enrollment/domain"
	"github.com/pathshala-labs/pathshala/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Grant(ctx context.Context, tx *gorm.DB, id, userID, courseID snowflake.ID, at time.Time) (bool, error) {
	err := tx.WithContext(ctx).Exec(
		`INSERT INTO enrollments (id, user_id, course_id, enrolled_at)
		 VALUES (?, ?, ?, ?)`,
		id,
		userID,
		courseID,
		at,
	).Error
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *repo) FindActive(ctx context.Context, tx *gorm.DB, userID, courseID snowflake.ID) (*domain.Enrollment, error) {
	var enrollment domain.Enrollment
	err := tx.WithContext(ctx).Raw(
		`SELECT id, user_id, course_id, enrolled_at, revoked_at, revocation_reason, completed_at
		 FROM enrollments
		 WHERE user_id = ? AND course_id = ? AND revoked_at IS NULL
		 LIMIT 1`,
		userID,
		courseID,
	).Scan(&enrollment).Error
	if err != nil {
		return nil, err
	}
	if enrollment.ID == 0 {
		return nil, nil
	}
	return &enrollment, nil
}

func (r *repo) Revoke(ctx context.Context, tx *gorm.DB, userID, courseID snowflake.ID, at time.Time, reason string) (bool, error) {
	res := tx.WithContext(ctx).Exec(
		`UPDATE enrollments
		 SET revoked_at = ?, revocation_reason = ?
		 WHERE user_id = ? AND course_id = ? AND revoked_at IS NULL`,
		at,
		reason,
		userID,
		courseID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) MarkCompleted(ctx context.Context, tx *gorm.DB, userID, courseID snowflake.ID, at time.Time) error {
	return tx.WithContext(ctx).Exec(
		`UPDATE enrollments
		 SET completed_at = ?
		 WHERE user_id = ? AND course_id = ? AND revoked_at IS NULL`,
		at,
		userID,
		courseID,
	).Error
}

func (r *repo) List(ctx context.Context, tx *gorm.DB, filter domain.ListFilter) ([]*domain.Enrollment, error) {
	limit := filter.PageSize
	if limit <= 0 {
		limit = 15
	}

	stmt := tx.WithContext(ctx).
		Model(&domain.Enrollment{}).
		Where("user_id = ?", filter.UserID).
		Order("enrolled_at DESC, id DESC").
		Limit(limit + 1)
	if filter.PageToken != "" {
		stmt = stmt.Where("enrolled_at < ?", filter.PageToken)
	}

	var enrollments []*domain.Enrollment
	if err := stmt.Find(&enrollments).Error; err != nil {
		return nil, err
	}
	return enrollments, nil
}
