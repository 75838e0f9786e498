package reconcile

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/pathshala-labs/pathshala/internal/clock"
	"github.com/pathshala-labs/pathshala/internal/config"
	coupondomain "github.com/pathshala-labs/pathshala/internal/coupon/domain"
	enrollmentdomain "github.com/pathshala-labs/pathshala/internal/enrollment/domain"
	"github.com/pathshala-labs/pathshala/internal/metrics"
	paymentdomain "github.com/pathshala-labs/pathshala/internal/payment/domain"
	"github.com/pathshala-labs/pathshala/internal/payment/gateway"
	paymentservice "github.com/pathshala-labs/pathshala/internal/payment/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	Config         config.Config
	GenID          *snowflake.Node
	Clock          clock.Clock
	PaymentRepo    paymentdomain.Repository
	PaymentLedger  *paymentservice.Service
	EnrollmentRepo enrollmentdomain.Repository
	CouponRepo     coupondomain.Repository
	Gateways       *gateway.Registry
	Metrics        *metrics.Metrics `optional:"true"`
}

// Service settles pending payments from gateway callbacks. Every settlement
// runs payment transition and enrollment grant in one transaction, keyed on
// the pending->success guard so replays are no-ops.
type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	cfg            config.Config
	genID          *snowflake.Node
	clock          clock.Clock
	paymentRepo    paymentdomain.Repository
	paymentLedger  *paymentservice.Service
	enrollmentRepo enrollmentdomain.Repository
	couponRepo     coupondomain.Repository
	gateways       *gateway.Registry
	metrics        *metrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("reconcile.service"),
		cfg:            p.Config,
		genID:          p.GenID,
		clock:          p.Clock,
		paymentRepo:    p.PaymentRepo,
		paymentLedger:  p.PaymentLedger,
		enrollmentRepo: p.EnrollmentRepo,
		couponRepo:     p.CouponRepo,
		gateways:       p.Gateways,
		metrics:        p.Metrics,
	}
}

// PushPayload is the signed server-to-server notification body.
type PushPayload struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

// Result reports what a callback delivery did.
type Result struct {
	PaymentID        snowflake.ID
	TransactionID    string
	Status           string
	AlreadyProcessed bool
	Enrolled         bool
}

// VerifySignature checks the HMAC-SHA256 hex signature over the raw body.
// Missing secret fails closed in production and passes with a warning in
// development.
func (s *Service) VerifySignature(rawBody []byte, signature string) error {
	if s.cfg.WebhookSecret == "" {
		if s.cfg.IsProduction() {
			s.log.Error("webhook secret not configured, rejecting callback")
			return paymentdomain.ErrSecretMissing
		}
		s.log.Warn("webhook secret not configured, accepting unsigned callback")
		return nil
	}

	mac := hmac.New(sha256.New, []byte(s.cfg.WebhookSecret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		s.log.Warn("webhook signature mismatch",
			zap.String("signature_prefix", truncate(signature, 8)),
		)
		return paymentdomain.ErrInvalidSignature
	}
	return nil
}

// HandlePush settles a payment from the signed push webhook.
func (s *Service) HandlePush(ctx context.Context, rawBody []byte, signature string) (*Result, error) {
	if err := s.VerifySignature(rawBody, signature); err != nil {
		s.count("push", "rejected_signature")
		return nil, err
	}

	var payload PushPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		s.count("push", "malformed")
		return nil, fmt.Errorf("%w: %v", paymentdomain.ErrMalformedResponse, err)
	}
	if payload.TransactionID == "" {
		s.count("push", "malformed")
		return nil, fmt.Errorf("%w: missing transaction_id", paymentdomain.ErrMalformedResponse)
	}

	payment, err := s.paymentRepo.FindByTransactionID(ctx, s.db, payload.TransactionID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		s.count("push", "unknown_payment")
		return nil, paymentdomain.ErrNotFound
	}

	s.paymentLedger.LogEvent(ctx, payment.Gateway, paymentdomain.EventKindPushWebhook, payload.TransactionID, rawBody)

	if payload.Status != paymentdomain.StatusSuccess {
		s.count("push", "reported_failure")
		return s.settleFailure(ctx, payment)
	}
	return s.settleSuccess(ctx, payment, "push")
}

// HandleBkash settles a payment by executing the gateway payment after the
// customer returns from the hosted page.
func (s *Service) HandleBkash(ctx context.Context, gatewayPaymentID string, rawQuery []byte) (*Result, error) {
	payment, err := s.paymentRepo.FindByGatewayPaymentID(ctx, s.db, paymentdomain.GatewayBkash, gatewayPaymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		s.count("bkash", "unknown_payment")
		return nil, paymentdomain.ErrNotFound
	}

	s.paymentLedger.LogEvent(ctx, paymentdomain.GatewayBkash, paymentdomain.EventKindBkashCallback, gatewayPaymentID, rawQuery)

	if payment.Status == paymentdomain.StatusSuccess {
		return &Result{PaymentID: payment.ID, TransactionID: payment.TransactionID, Status: payment.Status, AlreadyProcessed: true}, nil
	}

	client, err := s.gateways.Get(paymentdomain.GatewayBkash)
	if err != nil {
		return nil, err
	}
	ok, err := client.VerifyPayment(ctx, gatewayPaymentID)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.count("bkash", "verify_failed")
		return s.settleFailure(ctx, payment)
	}
	return s.settleSuccess(ctx, payment, "bkash")
}

// HandleBkashCancel fails a payment the customer abandoned on the hosted page,
// freeing them to retry checkout without waiting for the sweeper.
func (s *Service) HandleBkashCancel(ctx context.Context, gatewayPaymentID string, rawQuery []byte) (*Result, error) {
	payment, err := s.paymentRepo.FindByGatewayPaymentID(ctx, s.db, paymentdomain.GatewayBkash, gatewayPaymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		s.count("bkash", "unknown_payment")
		return nil, paymentdomain.ErrNotFound
	}

	s.paymentLedger.LogEvent(ctx, paymentdomain.GatewayBkash, paymentdomain.EventKindBkashCallback, gatewayPaymentID, rawQuery)

	if payment.Status != paymentdomain.StatusPending {
		return &Result{PaymentID: payment.ID, TransactionID: payment.TransactionID, Status: payment.Status, AlreadyProcessed: true}, nil
	}

	s.count("bkash", "cancelled")
	return s.settleFailure(ctx, payment)
}

// HandleSSLCommerz settles a payment after a validator round-trip. The IPN body
// is never trusted on its own.
func (s *Service) HandleSSLCommerz(ctx context.Context, transactionID, validationID string, rawBody []byte) (*Result, error) {
	payment, err := s.paymentRepo.FindByTransactionID(ctx, s.db, transactionID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		s.count("sslcommerz", "unknown_payment")
		return nil, paymentdomain.ErrNotFound
	}

	s.paymentLedger.LogEvent(ctx, paymentdomain.GatewaySSLCommerz, paymentdomain.EventKindSSLCommerzIPN, transactionID, rawBody)

	if payment.Status == paymentdomain.StatusSuccess {
		return &Result{PaymentID: payment.ID, TransactionID: payment.TransactionID, Status: payment.Status, AlreadyProcessed: true}, nil
	}

	client, err := s.gateways.Get(paymentdomain.GatewaySSLCommerz)
	if err != nil {
		return nil, err
	}
	ok, err := client.VerifyPayment(ctx, validationID)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.count("sslcommerz", "verify_failed")
		// A confirmed-invalid notification fails the payment before the 403.
		if _, err := s.settleFailure(ctx, payment); err != nil {
			return nil, err
		}
		return nil, paymentdomain.ErrInvalidSignature
	}
	return s.settleSuccess(ctx, payment, "sslcommerz")
}

// settleSuccess moves the payment to success and grants the enrollment in one
// transaction. Losing the status guard means another delivery already settled
// this payment.
func (s *Service) settleSuccess(ctx context.Context, payment *paymentdomain.Payment, source string) (*Result, error) {
	now := s.clock.Now()
	result := &Result{PaymentID: payment.ID, TransactionID: payment.TransactionID}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		changed, err := s.paymentRepo.Transition(ctx, tx, payment.ID, paymentdomain.StatusPending, paymentdomain.StatusSuccess, now)
		if err != nil {
			return err
		}
		if !changed {
			result.AlreadyProcessed = true
			result.Status = paymentdomain.StatusSuccess
			return nil
		}

		created, err := s.enrollmentRepo.Grant(ctx, tx, s.genID.Generate(), payment.UserID, payment.CourseID, now)
		if err != nil {
			return err
		}
		result.Enrolled = created
		result.Status = paymentdomain.StatusSuccess

		if payment.CouponID != nil {
			// Insert-if-absent; the allowance may have been consumed at
			// checkout time already.
			if _, err := s.couponRepo.InsertUsage(ctx, tx, &coupondomain.CouponUsage{
				ID:       s.genID.Generate(),
				CouponID: *payment.CouponID,
				UserID:   payment.UserID,
				UsedAt:   now,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.AlreadyProcessed {
		s.count(source, "replay")
		s.log.Info("settlement replayed, no-op",
			zap.Int64("payment_id", int64(payment.ID)),
			zap.String("source", source),
		)
		return result, nil
	}

	s.count(source, "settled")
	s.log.Info("payment settled",
		zap.Int64("payment_id", int64(payment.ID)),
		zap.Int64("user_id", int64(payment.UserID)),
		zap.Int64("course_id", int64(payment.CourseID)),
		zap.String("source", source),
		zap.Bool("enrollment_created", result.Enrolled),
	)
	return result, nil
}

func (s *Service) settleFailure(ctx context.Context, payment *paymentdomain.Payment) (*Result, error) {
	changed, err := s.paymentRepo.Transition(ctx, s.db, payment.ID, paymentdomain.StatusPending, paymentdomain.StatusFailed, s.clock.Now())
	if err != nil {
		return nil, err
	}
	return &Result{
		PaymentID:        payment.ID,
		TransactionID:    payment.TransactionID,
		Status:           paymentdomain.StatusFailed,
		AlreadyProcessed: !changed,
	}, nil
}

func (s *Service) count(source, outcome string) {
	if s.metrics != nil {
		s.metrics.WebhookTotal.WithLabelValues(source, outcome).Inc()
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var Module = fx.Module("reconcile",
	fx.Provide(NewService),
)
