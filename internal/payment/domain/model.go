package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Gateway identifiers. "internal" payments carry no hosted checkout session and
// are settled by the push-style webhook alone.
const (
	GatewayInternal   = "internal"
	GatewayBkash      = "bkash"
	GatewaySSLCommerz = "sslcommerz"
)

const (
	StatusPending  = "pending"
	StatusSuccess  = "success"
	StatusFailed   = "failed"
	StatusRefunded = "refunded"
)

// Payment is one purchase attempt. Rows are never deleted; refunds mutate
// status only. TransactionID is the internal correlation id generated at
// checkout, unique and immutable; GatewayPaymentID is assigned later by the
// gateway and may stay null for internal payments.
type Payment struct {
	ID               snowflake.ID        `json:"id" gorm:"primaryKey"`
	UserID           snowflake.ID        `json:"user_id" gorm:"not null;index"`
	CourseID         snowflake.ID        `json:"course_id" gorm:"not null;index"`
	CouponID         *snowflake.ID       `json:"coupon_id"`
	Amount           decimal.Decimal     `json:"amount" gorm:"type:decimal(10,2);not null"`
	Currency         string              `json:"currency" gorm:"type:varchar(3);not null"`
	Gateway          string              `json:"gateway" gorm:"type:text;not null"`
	TransactionID    string              `json:"transaction_id" gorm:"type:text;not null;uniqueIndex"`
	GatewayPaymentID *string             `json:"gateway_payment_id" gorm:"type:text"`
	Status           string              `json:"status" gorm:"type:text;not null"`
	RefundedAt       *time.Time          `json:"refunded_at"`
	RefundAmount     decimal.NullDecimal `json:"refund_amount" gorm:"type:decimal(10,2)"`
	RefundReason     *string             `json:"refund_reason" gorm:"type:text"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }

// GatewayEvent is the append-only log of every inbound callback, kept for
// forensics regardless of processing outcome.
type GatewayEvent struct {
	ID         snowflake.ID   `json:"id" gorm:"primaryKey"`
	Gateway    string         `json:"gateway" gorm:"type:text;not null"`
	Kind       string         `json:"kind" gorm:"type:text;not null"`
	Reference  string         `json:"reference" gorm:"type:text;not null;index"`
	Payload    datatypes.JSON `json:"payload" gorm:"type:jsonb"`
	ReceivedAt time.Time      `json:"received_at" gorm:"not null"`
}

func (GatewayEvent) TableName() string { return "gateway_events" }

const (
	EventKindPushWebhook    = "push_webhook"
	EventKindBkashCallback  = "bkash_callback"
	EventKindSSLCommerzIPN  = "sslcommerz_ipn"
)

var (
	ErrNotFound           = errors.New("payment_not_found")
	ErrNotRefundable      = errors.New("payment_not_refundable")
	ErrCertificateIssued  = errors.New("certificate_already_issued")
	ErrGatewayUnavailable = errors.New("gateway_unavailable")
	ErrMalformedResponse  = errors.New("gateway_response_invalid")
	ErrUnknownGateway     = errors.New("unknown_gateway")
	ErrInvalidSignature   = errors.New("invalid_webhook_signature")
	ErrSecretMissing      = errors.New("webhook_secret_missing")
)
