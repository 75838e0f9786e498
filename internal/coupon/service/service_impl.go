package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/pathshala-labs/pathshala/internal/clock"
	"github.com/pathshala-labs/pathshala/internal/coupon/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("coupon.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// Create registers a coupon for a course. Codes are unique across all courses.
func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Coupon, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return nil, fmt.Errorf("%w: empty code", domain.ErrInvalidDiscount)
	}

	value := decimal.NullDecimal{}
	switch req.DiscountType {
	case domain.DiscountTypeFree:
	case domain.DiscountTypePercentage:
		if !req.DiscountValue.IsPositive() || req.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
			return nil, fmt.Errorf("%w: percentage must be in (0, 100]", domain.ErrInvalidDiscount)
		}
		value = decimal.NullDecimal{Decimal: req.DiscountValue, Valid: true}
	case domain.DiscountTypeFixed:
		if !req.DiscountValue.IsPositive() {
			return nil, fmt.Errorf("%w: fixed amount must be positive", domain.ErrInvalidDiscount)
		}
		value = decimal.NullDecimal{Decimal: req.DiscountValue, Valid: true}
	default:
		return nil, fmt.Errorf("%w: unknown discount type %q", domain.ErrInvalidDiscount, req.DiscountType)
	}

	now := s.clock.Now()
	coupon := &domain.Coupon{
		ID:            s.genID.Generate(),
		Code:          code,
		DiscountType:  req.DiscountType,
		DiscountValue: value,
		CourseID:      req.CourseID,
		IsActive:      true,
		ExpiresAt:     req.ExpiresAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Insert(ctx, s.db, coupon); err != nil {
		return nil, err
	}

	s.log.Info("coupon created",
		zap.String("code", coupon.Code),
		zap.String("discount_type", coupon.DiscountType),
		zap.Int64("course_id", int64(coupon.CourseID)),
	)
	return coupon, nil
}

// Validate is read-only. It never consumes the coupon; redemption happens in
// the transaction that grants the enrollment or payment it is attributed to.
func (s *Service) Validate(ctx context.Context, req domain.ValidateRequest) (domain.Validation, error) {
	code := strings.TrimSpace(req.Code)
	if code == "" || req.Course == nil {
		return rejected(domain.ReasonInvalidCode), nil
	}

	coupon, err := s.repo.FindActiveByCode(ctx, s.db, code, req.Course.ID)
	if err != nil {
		return domain.Validation{}, err
	}
	if coupon == nil {
		return rejected(domain.ReasonInvalidCode), nil
	}

	if coupon.ExpiresAt != nil && req.Now.After(*coupon.ExpiresAt) {
		return rejected(domain.ReasonExpired), nil
	}

	if req.UserID != 0 {
		used, err := s.repo.UsageExists(ctx, s.db, coupon.ID, req.UserID)
		if err != nil {
			return domain.Validation{}, err
		}
		if used {
			return rejected(domain.ReasonAlreadyUsed), nil
		}
	}

	price := req.Course.Price
	discount := Discount(coupon, price)

	return domain.Validation{
		Valid:          true,
		CouponID:       coupon.ID,
		DiscountType:   coupon.DiscountType,
		DiscountAmount: discount,
		FinalPrice:     FinalPrice(price, discount),
	}, nil
}

// Discount computes the discount amount for a coupon against a price.
// Unknown discount types yield zero discount.
func Discount(coupon *domain.Coupon, price decimal.Decimal) decimal.Decimal {
	switch coupon.DiscountType {
	case domain.DiscountTypeFree:
		return price
	case domain.DiscountTypePercentage:
		if !coupon.DiscountValue.Valid {
			return decimal.Zero
		}
		return price.Mul(coupon.DiscountValue.Decimal).Div(decimal.NewFromInt(100)).Round(2)
	case domain.DiscountTypeFixed:
		if !coupon.DiscountValue.Valid {
			return decimal.Zero
		}
		if coupon.DiscountValue.Decimal.GreaterThan(price) {
			return price
		}
		return coupon.DiscountValue.Decimal
	default:
		return decimal.Zero
	}
}

// FinalPrice is price minus discount, floored at zero.
func FinalPrice(price, discount decimal.Decimal) decimal.Decimal {
	final := price.Sub(discount)
	if final.IsNegative() {
		return decimal.Zero
	}
	return final
}

func rejected(reason string) domain.Validation {
	return domain.Validation{
		Valid:          false,
		Reason:         reason,
		DiscountAmount: decimal.Zero,
		FinalPrice:     decimal.Zero,
	}
}
