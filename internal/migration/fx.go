package migration

import (
	"github.com/pathshala-labs/pathshala/internal/config"
	"github.com/pathshala-labs/pathshala/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}

		if err := RunMigrations(sqlDB); err != nil {
			return err
		}

		if !cfg.IsProduction() {
			return seed.EnsureDemoCatalog(conn)
		}
		return nil
	}),
)
