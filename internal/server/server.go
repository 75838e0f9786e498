package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	catalogdomain "github.com/pathshala-labs/pathshala/internal/catalog/domain"
	"github.com/pathshala-labs/pathshala/internal/clock"
	certificatedomain "github.com/pathshala-labs/pathshala/internal/certificate/domain"
	checkoutdomain "github.com/pathshala-labs/pathshala/internal/checkout/domain"
	"github.com/pathshala-labs/pathshala/internal/config"
	coupondomain "github.com/pathshala-labs/pathshala/internal/coupon/domain"
	enrollmentservice "github.com/pathshala-labs/pathshala/internal/enrollment/service"
	progressdomain "github.com/pathshala-labs/pathshala/internal/progress/domain"
	"github.com/pathshala-labs/pathshala/internal/ratelimit"
	"github.com/pathshala-labs/pathshala/internal/reconcile"
	"github.com/pathshala-labs/pathshala/internal/refund"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	log            *zap.Logger
	db             *gorm.DB
	genID          *snowflake.Node
	clock          clock.Clock
	catalogRepo    catalogdomain.Repository
	couponSvc      coupondomain.Service
	checkoutSvc    checkoutdomain.Service
	enrollmentSvc  *enrollmentservice.Service
	progressSvc    progressdomain.Service
	certificateSvc certificatedomain.Service
	reconcileSvc   *reconcile.Service
	refundSvc      *refund.Service
	couponLimiter  ratelimit.Limiter
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	Log            *zap.Logger
	DB             *gorm.DB
	GenID          *snowflake.Node
	Clock          clock.Clock
	CatalogRepo    catalogdomain.Repository
	CouponSvc      coupondomain.Service
	CheckoutSvc    checkoutdomain.Service
	EnrollmentSvc  *enrollmentservice.Service
	ProgressSvc    progressdomain.Service
	CertificateSvc certificatedomain.Service
	ReconcileSvc   *reconcile.Service
	RefundSvc      *refund.Service
	CouponLimiter  ratelimit.Limiter
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		log:            p.Log.Named("http"),
		db:             p.DB,
		genID:          p.GenID,
		clock:          p.Clock,
		catalogRepo:    p.CatalogRepo,
		couponSvc:      p.CouponSvc,
		checkoutSvc:    p.CheckoutSvc,
		enrollmentSvc:  p.EnrollmentSvc,
		progressSvc:    p.ProgressSvc,
		certificateSvc: p.CertificateSvc,
		reconcileSvc:   p.ReconcileSvc,
		refundSvc:      p.RefundSvc,
		couponLimiter:  p.CouponLimiter,
	}

	svc.registerPublicRoutes()
	svc.registerAPIRoutes()
	svc.registerWebhookRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) registerPublicRoutes() {
	s.engine.POST("/api/coupons/validate", s.RateLimitByIP(s.couponLimiter), s.ValidateCoupon)
	s.engine.GET("/api/courses/:course_id", s.GetCourse)
	s.engine.GET("/api/certificates/:number/verify", s.VerifyCertificate)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.AuthRequired())

	api.POST("/courses/:course_id/checkout/:gateway", s.Checkout)
	api.POST("/courses/:course_id/enroll", s.EnrollFree)
	api.GET("/enrollments", s.ListEnrollments)
	api.POST("/courses/:course_id/lessons/:lesson_id/complete", s.CompleteLesson)
	api.GET("/courses/:course_id/progress", s.GetProgress)
	api.POST("/courses/:course_id/certificate", s.IssueCertificate)
	api.GET("/courses/:course_id/certificate", s.GetCertificate)
}

func (s *Server) registerWebhookRoutes() {
	hooks := s.engine.Group("/webhooks")
	hooks.POST("/payment", s.PushWebhook)
	hooks.POST("/bkash/callback", s.BkashCallback)
	hooks.POST("/sslcommerz/ipn", s.SSLCommerzIPN)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/api/admin")
	admin.Use(s.AuthRequired())

	admin.POST("/payments/:payment_id/refund", s.RefundPayment)
	admin.POST("/coupons", s.CreateCoupon)
}
