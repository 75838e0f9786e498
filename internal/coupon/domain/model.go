package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/pathshala-labs/pathshala/internal/catalog/domain"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	DiscountTypeFree       = "free"
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

type Coupon struct {
	ID            snowflake.ID        `json:"id" gorm:"primaryKey"`
	Code          string              `json:"code" gorm:"type:text;not null;uniqueIndex"`
	DiscountType  string              `json:"discount_type" gorm:"type:text;not null"`
	DiscountValue decimal.NullDecimal `json:"discount_value" gorm:"type:decimal(10,2)"`
	CourseID      snowflake.ID        `json:"course_id" gorm:"not null;index"`
	IsActive      bool                `json:"is_active" gorm:"not null;default:true"`
	ExpiresAt     *time.Time          `json:"expires_at"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

func (Coupon) TableName() string { return "coupons" }

// CouponUsage records a single redemption. One row per (coupon, user), never
// mutated after insert.
type CouponUsage struct {
	ID       snowflake.ID `json:"id" gorm:"primaryKey"`
	CouponID snowflake.ID `json:"coupon_id" gorm:"not null"`
	UserID   snowflake.ID `json:"user_id" gorm:"not null"`
	UsedAt   time.Time    `json:"used_at" gorm:"not null"`
}

func (CouponUsage) TableName() string { return "coupon_usages" }

// Rejection reasons surfaced to the caller.
const (
	ReasonInvalidCode = "invalid coupon code"
	ReasonExpired     = "coupon has expired"
	ReasonAlreadyUsed = "coupon already used"
)

var (
	ErrAlreadyUsed     = errors.New("coupon_already_used")
	ErrInvalidDiscount = errors.New("invalid_discount")
	ErrCodeExists      = errors.New("coupon_code_exists")
)

// Validation is the outcome of validating a code against a course. Expected
// business rejections are carried in Valid/Reason, not as errors.
type Validation struct {
	Valid          bool            `json:"valid"`
	Reason         string          `json:"message,omitempty"`
	CouponID       snowflake.ID    `json:"coupon_id,omitempty"`
	DiscountType   string          `json:"discount_type,omitempty"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalPrice     decimal.Decimal `json:"final_price"`
}

type ValidateRequest struct {
	Code   string
	Course *catalogdomain.Course
	// UserID is optional; when set the one-redemption-per-user rule is checked
	// for early feedback. The check is repeated at redemption time inside the
	// redeeming transaction.
	UserID snowflake.ID
	Now    time.Time
}

// CreateRequest is the admin/instructor coupon creation input. The course is
// resolved and authorized by the caller before it reaches the service.
type CreateRequest struct {
	Code          string
	DiscountType  string
	DiscountValue decimal.Decimal
	CourseID      snowflake.ID
	ExpiresAt     *time.Time
}

type Service interface {
	Validate(ctx context.Context, req ValidateRequest) (Validation, error)
	Create(ctx context.Context, req CreateRequest) (*Coupon, error)
}

type Repository interface {
	// Insert writes a new coupon; a duplicate code surfaces as ErrCodeExists.
	Insert(ctx context.Context, db *gorm.DB, coupon *Coupon) error
	FindActiveByCode(ctx context.Context, db *gorm.DB, code string, courseID snowflake.ID) (*Coupon, error)
	UsageExists(ctx context.Context, db *gorm.DB, couponID, userID snowflake.ID) (bool, error)
	// InsertUsage inserts if absent and reports whether a row was written.
	// Callers run it inside the transaction that grants the benefit.
	InsertUsage(ctx context.Context, db *gorm.DB, usage *CouponUsage) (bool, error)
}
