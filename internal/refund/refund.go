package refund

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	certificatedomain "github.com/pathshala-labs/pathshala/internal/certificate/domain"
	"github.com/pathshala-labs/pathshala/internal/clock"
	enrollmentdomain "github.com/pathshala-labs/pathshala/internal/enrollment/domain"
	"github.com/pathshala-labs/pathshala/internal/metrics"
	paymentdomain "github.com/pathshala-labs/pathshala/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const revocationReason = "Refund issued"

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	Clock          clock.Clock
	PaymentRepo    paymentdomain.Repository
	EnrollmentRepo enrollmentdomain.Repository
	CertificateSvc certificatedomain.Service
	Metrics        *metrics.Metrics `optional:"true"`
}

// Service reverses settled payments. A refund moves the payment to refunded
// and revokes the enrollment in one transaction; an issued certificate blocks
// the refund entirely.
type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	clock          clock.Clock
	paymentRepo    paymentdomain.Repository
	enrollmentRepo enrollmentdomain.Repository
	certificateSvc certificatedomain.Service
	metrics        *metrics.Metrics
}

func NewService(p Params) *Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("refund.service"),
		clock:          p.Clock,
		paymentRepo:    p.PaymentRepo,
		enrollmentRepo: p.EnrollmentRepo,
		certificateSvc: p.CertificateSvc,
		metrics:        p.Metrics,
	}
}

type Request struct {
	PaymentID snowflake.ID
	Reason    string
}

func (s *Service) Refund(ctx context.Context, req Request) (*paymentdomain.Payment, error) {
	payment, err := s.paymentRepo.FindByID(ctx, s.db, req.PaymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		s.count("not_found")
		return nil, paymentdomain.ErrNotFound
	}
	if payment.Status != paymentdomain.StatusSuccess {
		s.count("not_refundable")
		return nil, paymentdomain.ErrNotRefundable
	}

	certified, err := s.certificateSvc.Exists(ctx, payment.UserID, payment.CourseID)
	if err != nil {
		return nil, err
	}
	if certified {
		s.count("blocked_certificate")
		s.log.Warn("refund blocked by issued certificate",
			zap.Int64("payment_id", int64(payment.ID)),
			zap.Int64("user_id", int64(payment.UserID)),
			zap.Int64("course_id", int64(payment.CourseID)),
		)
		return nil, paymentdomain.ErrCertificateIssued
	}

	now := s.clock.Now()
	reason := strings.TrimSpace(req.Reason)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		changed, err := s.paymentRepo.MarkRefunded(ctx, tx, payment.ID, now, payment.Amount, reason)
		if err != nil {
			return err
		}
		if !changed {
			// Another refund won the status guard.
			return paymentdomain.ErrNotRefundable
		}
		if _, err := s.enrollmentRepo.Revoke(ctx, tx, payment.UserID, payment.CourseID, now, revocationReason); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.count("refunded")
	s.log.Info("payment refunded",
		zap.Int64("payment_id", int64(payment.ID)),
		zap.Int64("user_id", int64(payment.UserID)),
		zap.Int64("course_id", int64(payment.CourseID)),
		zap.String("amount", payment.Amount.String()),
	)

	refunded, err := s.paymentRepo.FindByID(ctx, s.db, payment.ID)
	if err != nil {
		return nil, err
	}
	return refunded, nil
}

func (s *Service) count(outcome string) {
	if s.metrics != nil {
		s.metrics.RefundTotal.WithLabelValues(outcome).Inc()
	}
}

var Module = fx.Module("refund",
	fx.Provide(NewService),
)
