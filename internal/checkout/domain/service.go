package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type CheckoutRequest struct {
	UserID     snowflake.ID
	PayerName  string
	PayerEmail string
	CourseID   snowflake.ID
	CouponCode string
	Gateway    string
}

// CheckoutResult is either an immediate enrollment (zero-amount path) or a
// pending payment with a gateway redirect.
type CheckoutResult struct {
	Enrolled      bool            `json:"enrolled"`
	Message       string          `json:"message,omitempty"`
	PaymentID     snowflake.ID    `json:"payment_id,omitempty"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	RedirectURL   string          `json:"redirect_url,omitempty"`
}

var (
	// ErrInvalidCoupon wraps the coupon rejection reason for the caller.
	ErrInvalidCoupon = errors.New("invalid_coupon")
)

type Service interface {
	Checkout(ctx context.Context, req CheckoutRequest) (CheckoutResult, error)
}
