package certificate

import (
	"github.com/pathshala-labs/pathshala/internal/certificate/repository"
	"github.com/pathshala-labs/pathshala/internal/certificate/service"
	"go.uber.org/fx"
)

var Module = fx.Module("certificate",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
