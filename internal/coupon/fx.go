package coupon

import (
	"github.com/pathshala-labs/pathshala/internal/coupon/repository"
	"github.com/pathshala-labs/pathshala/internal/coupon/service"
	"go.uber.org/fx"
)

var Module = fx.Module("coupon",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
