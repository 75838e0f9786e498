package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/pathshala-labs/pathshala/internal/clock"
	"github.com/pathshala-labs/pathshala/internal/payment/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

// Service is the payment ledger: it owns the Payment lifecycle and its
// idempotency guarantees. Cross-entity transitions (success + enrollment)
// belong to the reconciler, which drives the repository inside one
// transaction.
type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func NewService(p Params) *Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("payment.ledger"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

type CreatePendingRequest struct {
	UserID   snowflake.ID
	CourseID snowflake.ID
	CouponID *snowflake.ID
	Amount   decimal.Decimal
	Currency string
	Gateway  string
}

// CreatePending opens a new purchase attempt with a freshly generated internal
// transaction id.
func (s *Service) CreatePending(ctx context.Context, req CreatePendingRequest) (*domain.Payment, error) {
	now := s.clock.Now()
	payment := &domain.Payment{
		ID:            s.genID.Generate(),
		UserID:        req.UserID,
		CourseID:      req.CourseID,
		CouponID:      req.CouponID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		Gateway:       req.Gateway,
		TransactionID: uuid.NewString(),
		Status:        domain.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Insert(ctx, s.db, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// AttachGatewaySession persists the gateway-assigned payment id once the
// checkout session exists.
func (s *Service) AttachGatewaySession(ctx context.Context, id snowflake.ID, gatewayPaymentID string) error {
	return s.repo.SetGatewayPaymentID(ctx, s.db, id, gatewayPaymentID, s.clock.Now())
}

// Fail moves a pending payment to failed. A payment already past pending is
// left untouched.
func (s *Service) Fail(ctx context.Context, id snowflake.ID) error {
	changed, err := s.repo.Transition(ctx, s.db, id, domain.StatusPending, domain.StatusFailed, s.clock.Now())
	if err != nil {
		return err
	}
	if !changed {
		s.log.Warn("fail skipped, payment not pending", zap.Int64("payment_id", int64(id)))
	}
	return nil
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*domain.Payment, error) {
	payment, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domain.ErrNotFound
	}
	return payment, nil
}

// LogEvent appends a callback payload to the forensics log. Failures are
// logged and swallowed; the event log never blocks reconciliation.
func (s *Service) LogEvent(ctx context.Context, gatewayName, kind, reference string, payload []byte) {
	event := &domain.GatewayEvent{
		ID:         s.genID.Generate(),
		Gateway:    gatewayName,
		Kind:       kind,
		Reference:  reference,
		Payload:    datatypes.JSON(payload),
		ReceivedAt: s.clock.Now(),
	}
	if err := s.repo.InsertEvent(ctx, s.db, event); err != nil {
		s.log.Warn("gateway event not recorded",
			zap.String("gateway", gatewayName),
			zap.String("kind", kind),
			zap.Error(err),
		)
	}
}
