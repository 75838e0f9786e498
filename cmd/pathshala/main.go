package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/pathshala-labs/pathshala/internal/catalog"
	"github.com/pathshala-labs/pathshala/internal/certificate"
	"github.com/pathshala-labs/pathshala/internal/checkout"
	"github.com/pathshala-labs/pathshala/internal/clock"
	"github.com/pathshala-labs/pathshala/internal/config"
	"github.com/pathshala-labs/pathshala/internal/coupon"
	"github.com/pathshala-labs/pathshala/internal/enrollment"
	"github.com/pathshala-labs/pathshala/internal/metrics"
	"github.com/pathshala-labs/pathshala/internal/migration"
	"github.com/pathshala-labs/pathshala/internal/payment"
	"github.com/pathshala-labs/pathshala/internal/progress"
	"github.com/pathshala-labs/pathshala/internal/ratelimit"
	"github.com/pathshala-labs/pathshala/internal/reconcile"
	"github.com/pathshala-labs/pathshala/internal/refund"
	"github.com/pathshala-labs/pathshala/internal/server"
	"github.com/pathshala-labs/pathshala/internal/sweeper"
	"github.com/pathshala-labs/pathshala/pkg/db"
	"github.com/pathshala-labs/pathshala/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		log.Module,
		fx.Provide(newSnowflakeNode),
		fx.Provide(newDBConfig),
		db.Module,
		clock.Module,
		metrics.Module,
		migration.Module,

		catalog.Module,
		coupon.Module,
		payment.Module,
		enrollment.Module,
		checkout.Module,
		reconcile.Module,
		refund.Module,
		progress.Module,
		certificate.Module,
		ratelimit.Module,
		sweeper.Module,

		server.Module,
	)
	app.Run()
}

func newSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}

func newDBConfig(cfg config.Config) db.Config {
	return db.Config{
		Type:            cfg.DBType,
		Host:            cfg.DBHost,
		Port:            cfg.DBPort,
		Name:            cfg.DBName,
		User:            cfg.DBUser,
		Password:        cfg.DBPassword,
		SSLMode:         cfg.DBSSLMode,
		MaxIdleConn:     cfg.DBMaxIdleConn,
		MaxOpenConn:     cfg.DBMaxOpenConn,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
		ConnMaxIdleTime: cfg.DBConnMaxIdleTime,
	}
}
