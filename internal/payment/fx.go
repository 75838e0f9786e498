package payment

import (
	"github.com/pathshala-labs/pathshala/internal/config"
	"github.com/pathshala-labs/pathshala/internal/metrics"
	"github.com/pathshala-labs/pathshala/internal/payment/gateway"
	"github.com/pathshala-labs/pathshala/internal/payment/gateway/bkash"
	"github.com/pathshala-labs/pathshala/internal/payment/gateway/sslcommerz"
	"github.com/pathshala-labs/pathshala/internal/payment/repository"
	paymentservice "github.com/pathshala-labs/pathshala/internal/payment/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("payment",
	fx.Provide(repository.Provide),
	fx.Provide(func(cfg config.Config, log *zap.Logger, m *metrics.Metrics) *gateway.Registry {
		return gateway.NewRegistry(
			bkash.NewClient(cfg.Bkash, log, m),
			sslcommerz.NewClient(cfg.SSLCommerz, log, m),
		)
	}),
	fx.Provide(paymentservice.NewService),
)
