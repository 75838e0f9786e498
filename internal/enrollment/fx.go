package enrollment

import (
	"github.com/pathshala-labs/pathshala/internal/enrollment/repository"
	"github.com/pathshala-labs/pathshala/internal/enrollment/service"
	"go.uber.org/fx"
)

var Module = fx.Module("enrollment",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
