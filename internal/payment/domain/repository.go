package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Payment, error)
	FindByTransactionID(ctx context.Context, db *gorm.DB, transactionID string) (*Payment, error)
	FindByGatewayPaymentID(ctx context.Context, db *gorm.DB, gateway, gatewayPaymentID string) (*Payment, error)
	SetGatewayPaymentID(ctx context.Context, db *gorm.DB, id snowflake.ID, gatewayPaymentID string, at time.Time) error
	// Transition moves status from→to and reports whether a row changed.
	// A false return means the payment was not in the expected state; callers
	// use this as the idempotency gate.
	Transition(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to string, at time.Time) (bool, error)
	// MarkRefunded transitions success→refunded with refund metadata, guarded
	// the same way as Transition.
	MarkRefunded(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time, amount decimal.Decimal, reason string) (bool, error)
	// SweepStalePending fails payments stuck in pending since before the cutoff.
	SweepStalePending(ctx context.Context, db *gorm.DB, before, at time.Time) (int64, error)
	InsertEvent(ctx context.Context, db *gorm.DB, event *GatewayEvent) error
}
