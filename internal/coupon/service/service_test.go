package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	catalogdomain "github.com/pathshala-labs/pathshala/internal/catalog/domain"
	"github.com/pathshala-labs/pathshala/internal/clock"
	"github.com/pathshala-labs/pathshala/internal/coupon/domain"
	"github.com/pathshala-labs/pathshala/internal/coupon/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const testSchema = `
CREATE TABLE coupons (
	id INTEGER PRIMARY KEY,
	code TEXT NOT NULL UNIQUE,
	discount_type TEXT NOT NULL,
	discount_value NUMERIC,
	course_id INTEGER NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	expires_at DATETIME,
	created_at DATETIME,
	updated_at DATETIME
);
CREATE TABLE coupon_usages (
	id INTEGER PRIMARY KEY,
	coupon_id INTEGER NOT NULL,
	user_id INTEGER NOT NULL,
	used_at DATETIME NOT NULL,
	CONSTRAINT uq_coupon_usage UNIQUE (coupon_id, user_id)
);
`

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := conn.Exec(testSchema).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	svc := NewService(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	}).(*Service)
	return svc, conn
}

func seedCoupon(t *testing.T, conn *gorm.DB, id snowflake.ID, code, discountType string, value any, courseID snowflake.ID, expiresAt *time.Time) {
	t.Helper()
	err := conn.Exec(
		`INSERT INTO coupons (id, code, discount_type, discount_value, course_id, is_active, expires_at)
		 VALUES (?, ?, ?, ?, ?, TRUE, ?)`,
		id, code, discountType, value, courseID, expiresAt,
	).Error
	if err != nil {
		t.Fatalf("seed coupon: %v", err)
	}
}

func testCourse(id snowflake.ID, price int64) *catalogdomain.Course {
	return &catalogdomain.Course{
		ID:       id,
		Title:    "Test Course",
		Price:    decimal.NewFromInt(price),
		Currency: "BDT",
		IsPaid:   true,
		Status:   catalogdomain.StatusPublished,
	}
}

func TestValidateFreeCouponZeroesPrice(t *testing.T) {
	svc, conn := newTestService(t)
	course := testCourse(100, 1000)
	seedCoupon(t, conn, 1, "FREEPASS", domain.DiscountTypeFree, nil, course.ID, nil)

	v, err := svc.Validate(context.Background(), domain.ValidateRequest{
		Code:   "FREEPASS",
		Course: course,
		Now:    time.Now(),
	})
	require.NoError(t, err)
	require.True(t, v.Valid)
	require.True(t, v.FinalPrice.IsZero(), "final price = %s", v.FinalPrice)
	require.True(t, v.DiscountAmount.Equal(course.Price))
}

func TestValidatePercentageRoundsToTwoDecimals(t *testing.T) {
	svc, conn := newTestService(t)
	course := testCourse(200, 1000)
	seedCoupon(t, conn, 2, "HALF", domain.DiscountTypePercentage, 50, course.ID, nil)

	v, err := svc.Validate(context.Background(), domain.ValidateRequest{
		Code:   "HALF",
		Course: course,
		Now:    time.Now(),
	})
	require.NoError(t, err)
	require.True(t, v.Valid)
	require.Equal(t, "500.00", v.FinalPrice.StringFixed(2))
	require.Equal(t, "500.00", v.DiscountAmount.StringFixed(2))
}

func TestValidateFixedNeverGoesNegative(t *testing.T) {
	svc, conn := newTestService(t)
	course := testCourse(300, 100)
	seedCoupon(t, conn, 3, "BIGOFF", domain.DiscountTypeFixed, 500, course.ID, nil)

	v, err := svc.Validate(context.Background(), domain.ValidateRequest{
		Code:   "BIGOFF",
		Course: course,
		Now:    time.Now(),
	})
	require.NoError(t, err)
	require.True(t, v.Valid)
	require.True(t, v.FinalPrice.IsZero(), "final price = %s", v.FinalPrice)
}

func TestValidateUnknownCode(t *testing.T) {
	svc, _ := newTestService(t)
	course := testCourse(400, 1000)

	v, err := svc.Validate(context.Background(), domain.ValidateRequest{
		Code:   "NOPE",
		Course: course,
		Now:    time.Now(),
	})
	require.NoError(t, err)
	require.False(t, v.Valid)
	require.Equal(t, domain.ReasonInvalidCode, v.Reason)
}

func TestValidateCodeScopedToCourse(t *testing.T) {
	svc, conn := newTestService(t)
	seedCoupon(t, conn, 4, "SCOPED", domain.DiscountTypeFree, nil, 500, nil)
	otherCourse := testCourse(501, 1000)

	v, err := svc.Validate(context.Background(), domain.ValidateRequest{
		Code:   "SCOPED",
		Course: otherCourse,
		Now:    time.Now(),
	})
	require.NoError(t, err)
	require.False(t, v.Valid)
	require.Equal(t, domain.ReasonInvalidCode, v.Reason)
}

func TestValidateExpiredCoupon(t *testing.T) {
	svc, conn := newTestService(t)
	course := testCourse(600, 1000)
	expired := time.Now().Add(-time.Hour)
	seedCoupon(t, conn, 5, "OLD", domain.DiscountTypeFree, nil, course.ID, &expired)

	v, err := svc.Validate(context.Background(), domain.ValidateRequest{
		Code:   "OLD",
		Course: course,
		Now:    time.Now(),
	})
	require.NoError(t, err)
	require.False(t, v.Valid)
	require.Equal(t, domain.ReasonExpired, v.Reason)
}

func TestValidateRejectsSecondUse(t *testing.T) {
	svc, conn := newTestService(t)
	course := testCourse(700, 1000)
	seedCoupon(t, conn, 6, "ONCE", domain.DiscountTypeFree, nil, course.ID, nil)
	if err := conn.Exec(
		`INSERT INTO coupon_usages (id, coupon_id, user_id, used_at) VALUES (1, 6, 42, ?)`,
		time.Now(),
	).Error; err != nil {
		t.Fatalf("seed usage: %v", err)
	}

	v, err := svc.Validate(context.Background(), domain.ValidateRequest{
		Code:   "ONCE",
		Course: course,
		UserID: 42,
		Now:    time.Now(),
	})
	require.NoError(t, err)
	require.False(t, v.Valid)
	require.Equal(t, domain.ReasonAlreadyUsed, v.Reason)
}

func TestInsertUsageIsIdempotent(t *testing.T) {
	svc, conn := newTestService(t)
	_ = svc

	repo := repository.Provide()
	usage := &domain.CouponUsage{ID: 10, CouponID: 6, UserID: 42, UsedAt: time.Now()}

	inserted, err := repo.InsertUsage(context.Background(), conn, usage)
	require.NoError(t, err)
	require.True(t, inserted)

	usage.ID = 11
	inserted, err = repo.InsertUsage(context.Background(), conn, usage)
	require.NoError(t, err)
	require.False(t, inserted, "second insert must be a no-op")

	var count int64
	require.NoError(t, conn.Raw(`SELECT COUNT(1) FROM coupon_usages`).Scan(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestCreateCouponNormalizesCode(t *testing.T) {
	svc, conn := newTestService(t)

	coupon, err := svc.Create(context.Background(), domain.CreateRequest{
		Code:          "  welcome50 ",
		DiscountType:  domain.DiscountTypePercentage,
		DiscountValue: decimal.NewFromInt(50),
		CourseID:      100,
	})
	require.NoError(t, err)
	require.Equal(t, "WELCOME50", coupon.Code)
	require.True(t, coupon.IsActive)

	found, err := repository.Provide().FindActiveByCode(context.Background(), conn, "WELCOME50", 100)
	require.NoError(t, err)
	require.NotNil(t, found)
}

func TestCreateCouponRejectsDuplicateCode(t *testing.T) {
	svc, _ := newTestService(t)
	req := domain.CreateRequest{
		Code:         "ONCE",
		DiscountType: domain.DiscountTypeFree,
		CourseID:     100,
	}

	_, err := svc.Create(context.Background(), req)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), req)
	require.ErrorIs(t, err, domain.ErrCodeExists)
}

func TestCreateCouponValidatesDiscount(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), domain.CreateRequest{
		Code:          "TOOMUCH",
		DiscountType:  domain.DiscountTypePercentage,
		DiscountValue: decimal.NewFromInt(150),
		CourseID:      100,
	})
	require.ErrorIs(t, err, domain.ErrInvalidDiscount)

	_, err = svc.Create(context.Background(), domain.CreateRequest{
		Code:          "ZEROOFF",
		DiscountType:  domain.DiscountTypeFixed,
		DiscountValue: decimal.Zero,
		CourseID:      100,
	})
	require.ErrorIs(t, err, domain.ErrInvalidDiscount)

	_, err = svc.Create(context.Background(), domain.CreateRequest{
		Code:         "MYSTERY",
		DiscountType: "mystery",
		CourseID:     100,
	})
	require.ErrorIs(t, err, domain.ErrInvalidDiscount)
}

func TestDiscountUnknownTypeIsZero(t *testing.T) {
	coupon := &domain.Coupon{DiscountType: "mystery"}
	d := Discount(coupon, decimal.NewFromInt(500))
	require.True(t, d.IsZero())
}
