package checkout

import (
	"github.com/pathshala-labs/pathshala/internal/checkout/service"
	"go.uber.org/fx"
)

var Module = fx.Module("checkout",
	fx.Provide(service.NewService),
)
