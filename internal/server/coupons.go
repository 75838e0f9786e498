package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pathshala-labs/pathshala/internal/authz"
	catalogdomain "github.com/pathshala-labs/pathshala/internal/catalog/domain"
	coupondomain "github.com/pathshala-labs/pathshala/internal/coupon/domain"
	"github.com/shopspring/decimal"
)

type validateCouponRequest struct {
	Code     string `json:"code" binding:"required"`
	CourseID string `json:"course_id" binding:"required"`
}

type validateCouponResponse struct {
	Valid          bool   `json:"valid"`
	Reason         string `json:"reason,omitempty"`
	DiscountType   string `json:"discount_type,omitempty"`
	DiscountAmount string `json:"discount_amount,omitempty"`
	FinalPrice     string `json:"final_price,omitempty"`
}

type createCouponRequest struct {
	Code          string     `json:"code" binding:"required"`
	DiscountType  string     `json:"discount_type" binding:"required"`
	DiscountValue string     `json:"discount_value"`
	CourseID      string     `json:"course_id" binding:"required"`
	ExpiresAt     *time.Time `json:"expires_at"`
}

// CreateCoupon registers a coupon for a course. Admin or instructor only.
func (s *Server) CreateCoupon(c *gin.Context) {
	if _, ok := s.requireAction(c, authz.ActionCouponAdminister); !ok {
		return
	}

	var body createCouponRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	courseID, err := parseID(body.CourseID)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	course, err := s.catalogRepo.FindByID(c.Request.Context(), s.db, courseID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if course == nil {
		AbortWithError(c, catalogdomain.ErrNotFound)
		return
	}

	value := decimal.Zero
	if body.DiscountValue != "" {
		value, err = decimal.NewFromString(body.DiscountValue)
		if err != nil {
			AbortWithError(c, ErrInvalidRequest)
			return
		}
	}

	coupon, err := s.couponSvc.Create(c.Request.Context(), coupondomain.CreateRequest{
		Code:          body.Code,
		DiscountType:  body.DiscountType,
		DiscountValue: value,
		CourseID:      course.ID,
		ExpiresAt:     body.ExpiresAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, coupon)
}

// ValidateCoupon is the public pre-checkout price preview. It never consumes
// the coupon.
func (s *Server) ValidateCoupon(c *gin.Context) {
	var body validateCouponRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	courseID, err := parseID(body.CourseID)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	course, err := s.catalogRepo.FindByID(c.Request.Context(), s.db, courseID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if course == nil {
		AbortWithError(c, catalogdomain.ErrNotFound)
		return
	}

	validation, err := s.couponSvc.Validate(c.Request.Context(), coupondomain.ValidateRequest{
		Code:   body.Code,
		Course: course,
		Now:    s.clock.Now(),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := validateCouponResponse{
		Valid:  validation.Valid,
		Reason: validation.Reason,
	}
	if validation.Valid {
		resp.DiscountType = validation.DiscountType
		resp.DiscountAmount = validation.DiscountAmount.StringFixed(2)
		resp.FinalPrice = validation.FinalPrice.StringFixed(2)
	}
	c.JSON(http.StatusOK, resp)
}
