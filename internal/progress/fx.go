package progress

import (
	"github.com/pathshala-labs/pathshala/internal/progress/repository"
	"github.com/pathshala-labs/pathshala/internal/progress/service"
	"go.uber.org/fx"
)

var Module = fx.Module("progress",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
