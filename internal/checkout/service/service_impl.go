package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/pathshala-labs/pathshala/internal/catalog/domain"
	checkoutdomain "github.com/pathshala-labs/pathshala/internal/checkout/domain"
	"github.com/pathshala-labs/pathshala/internal/clock"
	coupondomain "github.com/pathshala-labs/pathshala/internal/coupon/domain"
	enrollmentdomain "github.com/pathshala-labs/pathshala/internal/enrollment/domain"
	"github.com/pathshala-labs/pathshala/internal/metrics"
	paymentdomain "github.com/pathshala-labs/pathshala/internal/payment/domain"
	"github.com/pathshala-labs/pathshala/internal/payment/gateway"
	paymentservice "github.com/pathshala-labs/pathshala/internal/payment/service"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Clock          clock.Clock
	CatalogRepo    catalogdomain.Repository
	CouponSvc      coupondomain.Service
	CouponRepo     coupondomain.Repository
	EnrollmentRepo enrollmentdomain.Repository
	PaymentLedger  *paymentservice.Service
	Gateways       *gateway.Registry
	Metrics        *metrics.Metrics `optional:"true"`
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	clock          clock.Clock
	catalogRepo    catalogdomain.Repository
	couponSvc      coupondomain.Service
	couponRepo     coupondomain.Repository
	enrollmentRepo enrollmentdomain.Repository
	paymentLedger  *paymentservice.Service
	gateways       *gateway.Registry
	metrics        *metrics.Metrics
}

func NewService(p Params) checkoutdomain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("checkout.service"),
		genID:          p.GenID,
		clock:          p.Clock,
		catalogRepo:    p.CatalogRepo,
		couponSvc:      p.CouponSvc,
		couponRepo:     p.CouponRepo,
		enrollmentRepo: p.EnrollmentRepo,
		paymentLedger:  p.PaymentLedger,
		gateways:       p.Gateways,
		metrics:        p.Metrics,
	}
}

// Checkout decides between free auto-enroll and paid checkout via a gateway.
// Gateway calls always happen outside the local write transaction.
func (s *Service) Checkout(ctx context.Context, req checkoutdomain.CheckoutRequest) (checkoutdomain.CheckoutResult, error) {
	course, err := s.catalogRepo.FindByID(ctx, s.db, req.CourseID)
	if err != nil {
		return checkoutdomain.CheckoutResult{}, err
	}
	if course == nil {
		return checkoutdomain.CheckoutResult{}, catalogdomain.ErrNotFound
	}
	if !course.Purchasable() {
		s.count("rejected")
		return checkoutdomain.CheckoutResult{}, catalogdomain.ErrNotPurchasable
	}

	enrolled, err := s.enrollmentRepo.FindActive(ctx, s.db, req.UserID, req.CourseID)
	if err != nil {
		return checkoutdomain.CheckoutResult{}, err
	}
	if enrolled != nil {
		return checkoutdomain.CheckoutResult{}, enrollmentdomain.ErrAlreadyEnrolled
	}

	finalAmount := course.Price
	var couponID *snowflake.ID

	if code := strings.TrimSpace(req.CouponCode); code != "" {
		validation, err := s.couponSvc.Validate(ctx, coupondomain.ValidateRequest{
			Code:   code,
			Course: course,
			UserID: req.UserID,
			Now:    s.clock.Now(),
		})
		if err != nil {
			return checkoutdomain.CheckoutResult{}, err
		}
		if !validation.Valid {
			s.count("invalid_coupon")
			return checkoutdomain.CheckoutResult{}, fmt.Errorf("%w: %s", checkoutdomain.ErrInvalidCoupon, validation.Reason)
		}
		finalAmount = validation.FinalPrice
		id := validation.CouponID
		couponID = &id
	}

	if finalAmount.IsZero() {
		return s.enrollWithoutPayment(ctx, req, couponID)
	}

	return s.paidCheckout(ctx, req, course, finalAmount, couponID)
}

// enrollWithoutPayment grants the enrollment and consumes the coupon allowance
// in one transaction. The usage insert re-checks one-time-use under the unique
// constraint, closing the validate-then-redeem race.
func (s *Service) enrollWithoutPayment(ctx context.Context, req checkoutdomain.CheckoutRequest, couponID *snowflake.ID) (checkoutdomain.CheckoutResult, error) {
	now := s.clock.Now()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		created, err := s.enrollmentRepo.Grant(ctx, tx, s.genID.Generate(), req.UserID, req.CourseID, now)
		if err != nil {
			return err
		}
		if !created {
			return enrollmentdomain.ErrAlreadyEnrolled
		}

		if couponID != nil {
			inserted, err := s.couponRepo.InsertUsage(ctx, tx, &coupondomain.CouponUsage{
				ID:       s.genID.Generate(),
				CouponID: *couponID,
				UserID:   req.UserID,
				UsedAt:   now,
			})
			if err != nil {
				return err
			}
			if !inserted {
				// Lost the race against a concurrent redemption; roll the
				// enrollment back with the transaction.
				return coupondomain.ErrAlreadyUsed
			}
		}
		return nil
	})
	if err != nil {
		return checkoutdomain.CheckoutResult{}, err
	}

	s.count("enrolled_free")
	s.log.Info("coupon enrollment completed",
		zap.Int64("user_id", int64(req.UserID)),
		zap.Int64("course_id", int64(req.CourseID)),
	)

	return checkoutdomain.CheckoutResult{
		Enrolled: true,
		Message:  "enrolled",
		Amount:   decimal.Zero,
	}, nil
}

func (s *Service) paidCheckout(
	ctx context.Context,
	req checkoutdomain.CheckoutRequest,
	course *catalogdomain.Course,
	amount decimal.Decimal,
	couponID *snowflake.ID,
) (checkoutdomain.CheckoutResult, error) {
	payment, err := s.paymentLedger.CreatePending(ctx, paymentservice.CreatePendingRequest{
		UserID:   req.UserID,
		CourseID: req.CourseID,
		CouponID: couponID,
		Amount:   amount,
		Currency: course.Currency,
		Gateway:  req.Gateway,
	})
	if err != nil {
		return checkoutdomain.CheckoutResult{}, err
	}

	// Internal payments have no hosted session; the push webhook settles them.
	if req.Gateway == paymentdomain.GatewayInternal {
		s.count("pending_internal")
		return checkoutdomain.CheckoutResult{
			PaymentID:     payment.ID,
			TransactionID: payment.TransactionID,
			Amount:        amount,
		}, nil
	}

	client, err := s.gateways.Get(req.Gateway)
	if err != nil {
		_ = s.paymentLedger.Fail(ctx, payment.ID)
		return checkoutdomain.CheckoutResult{}, err
	}

	session, err := client.CreateSession(ctx, gateway.CreateSessionRequest{
		TransactionID: payment.TransactionID,
		Amount:        amount,
		Currency:      course.Currency,
		PayerName:     req.PayerName,
		PayerEmail:    req.PayerEmail,
	})
	if err != nil {
		// Never leave the payment hanging in pending; the user retries with a
		// fresh payment row.
		if failErr := s.paymentLedger.Fail(ctx, payment.ID); failErr != nil {
			s.log.Error("payment not marked failed after gateway error",
				zap.Int64("payment_id", int64(payment.ID)),
				zap.Error(failErr),
			)
		}
		s.count("gateway_error")
		s.log.Warn("gateway session creation failed",
			zap.String("gateway", req.Gateway),
			zap.Int64("user_id", int64(req.UserID)),
			zap.Int64("course_id", int64(req.CourseID)),
			zap.Int64("payment_id", int64(payment.ID)),
			zap.Error(err),
		)
		return checkoutdomain.CheckoutResult{}, paymentdomain.ErrGatewayUnavailable
	}

	if err := s.paymentLedger.AttachGatewaySession(ctx, payment.ID, session.GatewayPaymentID); err != nil {
		return checkoutdomain.CheckoutResult{}, err
	}

	s.count("redirected")
	return checkoutdomain.CheckoutResult{
		PaymentID:     payment.ID,
		TransactionID: payment.TransactionID,
		Amount:        amount,
		RedirectURL:   session.RedirectURL,
	}, nil
}

func (s *Service) count(outcome string) {
	if s.metrics != nil {
		s.metrics.CheckoutTotal.WithLabelValues(outcome).Inc()
	}
}
