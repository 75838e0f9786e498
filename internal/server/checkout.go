package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/pathshala-labs/pathshala/internal/authz"
	checkoutdomain "github.com/pathshala-labs/pathshala/internal/checkout/domain"
	paymentdomain "github.com/pathshala-labs/pathshala/internal/payment/domain"
)

type checkoutRequest struct {
	CouponCode string `json:"coupon_code"`
	PayerName  string `json:"payer_name"`
	PayerEmail string `json:"payer_email"`
}

func (s *Server) Checkout(c *gin.Context) {
	actor, ok := s.requireAction(c, authz.ActionCourseCheckout)
	if !ok {
		return
	}

	courseID, err := parseID(c.Param("course_id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	gatewayName := c.Param("gateway")
	switch gatewayName {
	case paymentdomain.GatewayInternal, paymentdomain.GatewayBkash, paymentdomain.GatewaySSLCommerz:
	default:
		AbortWithError(c, paymentdomain.ErrUnknownGateway)
		return
	}

	var body checkoutRequest
	if err := c.ShouldBindJSON(&body); err != nil && c.Request.ContentLength > 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.checkoutSvc.Checkout(c.Request.Context(), checkoutdomain.CheckoutRequest{
		UserID:     snowflake.ID(actor.UserID),
		PayerName:  body.PayerName,
		PayerEmail: body.PayerEmail,
		CourseID:   courseID,
		CouponCode: body.CouponCode,
		Gateway:    gatewayName,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
