package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/pathshala-labs/pathshala/internal/certificate/domain"
	"github.com/pathshala-labs/pathshala/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, tx *gorm.DB, cert *domain.Certificate) (bool, error) {
	err := tx.WithContext(ctx).Exec(
		`INSERT INTO certificates (id, user_id, course_id, number, issued_at)
		 VALUES (?, ?, ?, ?, ?)`,
		cert.ID,
		cert.UserID,
		cert.CourseID,
		cert.Number,
		cert.IssuedAt,
	).Error
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *repo) FindByUserCourse(ctx context.Context, tx *gorm.DB, userID, courseID snowflake.ID) (*domain.Certificate, error) {
	var cert domain.Certificate
	err := tx.WithContext(ctx).Raw(
		`SELECT id, user_id, course_id, number, issued_at
		 FROM certificates
		 WHERE user_id = ? AND course_id = ?
		 LIMIT 1`,
		userID,
		courseID,
	).Scan(&cert).Error
	if err != nil {
		return nil, err
	}
	if cert.ID == 0 {
		return nil, nil
	}
	return &cert, nil
}

func (r *repo) FindByNumber(ctx context.Context, tx *gorm.DB, number string) (*domain.Certificate, error) {
	var cert domain.Certificate
	err := tx.WithContext(ctx).Raw(
		`SELECT id, user_id, course_id, number, issued_at
		 FROM certificates
		 WHERE number = ?
		 LIMIT 1`,
		number,
	).Scan(&cert).Error
	if err != nil {
		return nil, err
	}
	if cert.ID == 0 {
		return nil, nil
	}
	return &cert, nil
}

func (r *repo) Exists(ctx context.Context, tx *gorm.DB, userID, courseID snowflake.ID) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM certificates WHERE user_id = ? AND course_id = ?`,
		userID,
		courseID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
