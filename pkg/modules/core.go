package modules

import (
	"github.com/Sokol111/newsletter-publisher/pkg/core"
	"go.uber.org/fx"
)

// NewCoreModule provides configuration, the logger and readiness tracking.
func NewCoreModule(opts ...core.Option) fx.Option {
	return core.NewCoreModule(opts...)
}
