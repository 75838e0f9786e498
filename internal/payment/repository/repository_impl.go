package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/pathshala-labs/pathshala/internal/payment/domain"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const paymentColumns = `id, user_id, course_id, coupon_id, amount, currency, gateway,
	transaction_id, gateway_payment_id, status, refunded_at, refund_amount, refund_reason,
	created_at, updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (
			id, user_id, course_id, coupon_id, amount, currency, gateway,
			transaction_id, gateway_payment_id, status, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.UserID,
		payment.CourseID,
		payment.CouponID,
		payment.Amount,
		payment.Currency,
		payment.Gateway,
		payment.TransactionID,
		payment.GatewayPaymentID,
		payment.Status,
		payment.CreatedAt,
		payment.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Payment, error) {
	return r.findOne(ctx, db, `SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
}

func (r *repo) FindByTransactionID(ctx context.Context, db *gorm.DB, transactionID string) (*domain.Payment, error) {
	return r.findOne(ctx, db, `SELECT `+paymentColumns+` FROM payments WHERE transaction_id = ?`, transactionID)
}

func (r *repo) FindByGatewayPaymentID(ctx context.Context, db *gorm.DB, gateway, gatewayPaymentID string) (*domain.Payment, error) {
	return r.findOne(ctx, db,
		`SELECT `+paymentColumns+` FROM payments WHERE gateway = ? AND gateway_payment_id = ?`,
		gateway, gatewayPaymentID,
	)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, args ...any) (*domain.Payment, error) {
	var payment domain.Payment
	err := db.WithContext(ctx).Raw(query, args...).Scan(&payment).Error
	if err != nil {
		return nil, err
	}
	if payment.ID == 0 {
		return nil, nil
	}
	return &payment, nil
}

func (r *repo) SetGatewayPaymentID(ctx context.Context, db *gorm.DB, id snowflake.ID, gatewayPaymentID string, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payments SET gateway_payment_id = ?, updated_at = ? WHERE id = ?`,
		gatewayPaymentID,
		at,
		id,
	).Error
}

func (r *repo) Transition(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to string, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payments SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to,
		at,
		id,
		from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) MarkRefunded(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time, amount decimal.Decimal, reason string) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET status = ?, refunded_at = ?, refund_amount = ?, refund_reason = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusRefunded,
		at,
		amount,
		reason,
		at,
		id,
		domain.StatusSuccess,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) SweepStalePending(ctx context.Context, db *gorm.DB, before, at time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payments SET status = ?, updated_at = ? WHERE status = ? AND created_at < ?`,
		domain.StatusFailed,
		at,
		domain.StatusPending,
		before,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *repo) InsertEvent(ctx context.Context, db *gorm.DB, event *domain.GatewayEvent) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO gateway_events (id, gateway, kind, reference, payload, received_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		event.ID,
		event.Gateway,
		event.Kind,
		event.Reference,
		event.Payload,
		event.ReceivedAt,
	).Error
}
