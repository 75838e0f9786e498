package catalog

import (
	"github.com/pathshala-labs/pathshala/internal/catalog/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("catalog",
	fx.Provide(repository.ProvideCached),
)
