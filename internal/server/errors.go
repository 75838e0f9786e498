package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/pathshala-labs/pathshala/internal/catalog/domain"
	certificatedomain "github.com/pathshala-labs/pathshala/internal/certificate/domain"
	checkoutdomain "github.com/pathshala-labs/pathshala/internal/checkout/domain"
	coupondomain "github.com/pathshala-labs/pathshala/internal/coupon/domain"
	enrollmentdomain "github.com/pathshala-labs/pathshala/internal/enrollment/domain"
	paymentdomain "github.com/pathshala-labs/pathshala/internal/payment/domain"
	progressdomain "github.com/pathshala-labs/pathshala/internal/progress/domain"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrRateLimited    = errors.New("rate_limited")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, paymentdomain.ErrUnknownGateway),
		errors.Is(err, paymentdomain.ErrMalformedResponse):
		return http.StatusBadRequest, errorPayload{
			Type:    "invalid_request",
			Message: "invalid request",
		}
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden),
		errors.Is(err, catalogdomain.ErrNotPurchasable),
		errors.Is(err, paymentdomain.ErrInvalidSignature),
		errors.Is(err, paymentdomain.ErrSecretMissing),
		errors.Is(err, paymentdomain.ErrCertificateIssued):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: forbiddenMessage(err),
		}
	case errors.Is(err, enrollmentdomain.ErrAlreadyEnrolled):
		return http.StatusConflict, errorPayload{
			Type:    "already_enrolled",
			Message: "already enrolled in this course",
		}
	case errors.Is(err, coupondomain.ErrCodeExists):
		return http.StatusConflict, errorPayload{
			Type:    "coupon_code_exists",
			Message: "coupon code already exists",
		}
	case errors.Is(err, checkoutdomain.ErrInvalidCoupon),
		errors.Is(err, coupondomain.ErrAlreadyUsed),
		errors.Is(err, coupondomain.ErrInvalidDiscount),
		errors.Is(err, paymentdomain.ErrNotRefundable),
		errors.Is(err, certificatedomain.ErrNotEligible),
		errors.Is(err, certificatedomain.ErrCourseNotDone):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "unprocessable",
			Message: err.Error(),
		}
	case errors.Is(err, paymentdomain.ErrGatewayUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "gateway_unavailable",
			Message: "payment gateway unavailable, no charge was made",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func forbiddenMessage(err error) string {
	switch {
	case errors.Is(err, paymentdomain.ErrCertificateIssued):
		return "refund blocked: certificate already issued"
	case errors.Is(err, catalogdomain.ErrNotPurchasable):
		return "course is not available for purchase"
	default:
		return "forbidden"
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, catalogdomain.ErrNotFound),
		errors.Is(err, paymentdomain.ErrNotFound),
		errors.Is(err, certificatedomain.ErrNotFound),
		errors.Is(err, enrollmentdomain.ErrNotEnrolled),
		errors.Is(err, progressdomain.ErrNotEnrolled),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}
