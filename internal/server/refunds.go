package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pathshala-labs/pathshala/internal/authz"
	"github.com/pathshala-labs/pathshala/internal/refund"
)

type refundRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) RefundPayment(c *gin.Context) {
	if _, ok := s.requireAction(c, authz.ActionPaymentRefund); !ok {
		return
	}

	paymentID, err := parseID(c.Param("payment_id"))
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var body refundRequest
	if err := c.ShouldBindJSON(&body); err != nil && c.Request.ContentLength > 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	payment, err := s.refundSvc.Refund(c.Request.Context(), refund.Request{
		PaymentID: paymentID,
		Reason:    body.Reason,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "refund processed",
		"payment": payment,
	})
}
