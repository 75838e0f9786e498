package sweeper

import (
	"context"
	"time"

	"github.com/pathshala-labs/pathshala/internal/clock"
	"github.com/pathshala-labs/pathshala/internal/config"
	"github.com/pathshala-labs/pathshala/internal/metrics"
	paymentdomain "github.com/pathshala-labs/pathshala/internal/payment/domain"
	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const sweepSchedule = "@every 5m"

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Config      config.Config
	Clock       clock.Clock
	PaymentRepo paymentdomain.Repository
	Metrics     *metrics.Metrics `optional:"true"`
}

// Sweeper fails payments stuck in pending past the TTL. Abandoned hosted
// checkout sessions otherwise hold their pending rows forever.
type Sweeper struct {
	db          *gorm.DB
	log         *zap.Logger
	ttl         time.Duration
	clock       clock.Clock
	paymentRepo paymentdomain.Repository
	metrics     *metrics.Metrics
	cron        *cron.Cron
}

func New(p Params) *Sweeper {
	ttl := time.Duration(p.Config.PendingPaymentTTLMinutes) * time.Minute
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Sweeper{
		db:          p.DB,
		log:         p.Log.Named("payment.sweeper"),
		ttl:         ttl,
		clock:       p.Clock,
		paymentRepo: p.PaymentRepo,
		metrics:     p.Metrics,
	}
}

// Sweep runs one pass and returns how many payments it failed.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	now := s.clock.Now()
	cutoff := now.Add(-s.ttl)

	swept, err := s.paymentRepo.SweepStalePending(ctx, s.db, cutoff, now)
	if err != nil {
		s.log.Error("pending payment sweep failed", zap.Error(err))
		return 0, err
	}
	if swept > 0 {
		if s.metrics != nil {
			s.metrics.SweptPayments.Add(float64(swept))
		}
		s.log.Info("stale pending payments failed",
			zap.Int64("count", swept),
			zap.Time("cutoff", cutoff),
		)
	}
	return swept, nil
}

func (s *Sweeper) start() error {
	s.cron = cron.New()
	_, err := s.cron.AddFunc(sweepSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		_, _ = s.Sweep(ctx)
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *Sweeper) stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

var Module = fx.Module("sweeper",
	fx.Provide(New),
	fx.Invoke(Register),
)

func Register(lc fx.Lifecycle, s *Sweeper) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return s.start()
		},
		OnStop: func(context.Context) error {
			s.stop()
			return nil
		},
	})
}
