package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const signatureHeader = "X-Signature"

// PushWebhook is the signed server-to-server settlement notification.
func (s *Server) PushWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.reconcileSvc.HandlePush(c.Request.Context(), body, c.GetHeader(signatureHeader))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":            result.Status,
		"already_processed": result.AlreadyProcessed,
	})
}

// BkashCallback handles the customer's return from the hosted page. The query
// only names the gateway payment; settlement comes from the execute call.
func (s *Server) BkashCallback(c *gin.Context) {
	paymentID := c.Query("paymentID")
	if paymentID == "" {
		paymentID = c.PostForm("paymentID")
	}
	if paymentID == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if status := c.Query("status"); status != "" && !strings.EqualFold(status, "success") {
		// Abandoned checkout: fail the payment right away so the user can
		// retry without waiting for the sweeper.
		result, err := s.reconcileSvc.HandleBkashCancel(c.Request.Context(), paymentID, []byte(c.Request.URL.RawQuery))
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":            "cancelled",
			"already_processed": result.AlreadyProcessed,
		})
		return
	}

	result, err := s.reconcileSvc.HandleBkash(c.Request.Context(), paymentID, []byte(c.Request.URL.RawQuery))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":            result.Status,
		"already_processed": result.AlreadyProcessed,
	})
}

// SSLCommerzIPN handles the form-encoded instant payment notification. The
// val_id is replayed against the validator API before anything settles.
func (s *Server) SSLCommerzIPN(c *gin.Context) {
	tranID := c.PostForm("tran_id")
	valID := c.PostForm("val_id")
	if tranID == "" || valID == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	raw := []byte(c.Request.PostForm.Encode())
	result, err := s.reconcileSvc.HandleSSLCommerz(c.Request.Context(), tranID, valID, raw)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":            result.Status,
		"already_processed": result.AlreadyProcessed,
	})
}
