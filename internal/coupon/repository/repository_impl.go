package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/pathshala-labs/pathshala/internal/coupon/domain"
	pkgdb "github.com/pathshala-labs/pathshala/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, coupon *domain.Coupon) error {
	err := db.WithContext(ctx).Exec(
		`INSERT INTO coupons (id, code, discount_type, discount_value, course_id, is_active, expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		coupon.ID,
		coupon.Code,
		coupon.DiscountType,
		coupon.DiscountValue,
		coupon.CourseID,
		coupon.IsActive,
		coupon.ExpiresAt,
		coupon.CreatedAt,
		coupon.UpdatedAt,
	).Error
	if err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return domain.ErrCodeExists
		}
		return err
	}
	return nil
}

func (r *repo) FindActiveByCode(ctx context.Context, db *gorm.DB, code string, courseID snowflake.ID) (*domain.Coupon, error) {
	var coupon domain.Coupon
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, discount_type, discount_value, course_id, is_active, expires_at, created_at, updated_at
		 FROM coupons
		 WHERE code = ? AND course_id = ? AND is_active = ?
		 LIMIT 1`,
		code,
		courseID,
		true,
	).Scan(&coupon).Error
	if err != nil {
		return nil, err
	}
	if coupon.ID == 0 {
		return nil, nil
	}
	return &coupon, nil
}

func (r *repo) UsageExists(ctx context.Context, db *gorm.DB, couponID, userID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM coupon_usages WHERE coupon_id = ? AND user_id = ?`,
		couponID,
		userID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) InsertUsage(ctx context.Context, db *gorm.DB, usage *domain.CouponUsage) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO coupon_usages (id, coupon_id, user_id, used_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (coupon_id, user_id) DO NOTHING`,
		usage.ID,
		usage.CouponID,
		usage.UserID,
		usage.UsedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
