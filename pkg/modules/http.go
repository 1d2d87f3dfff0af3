package modules

import (
	"github.com/Sokol111/newsletter-publisher/pkg/http/health"
	"github.com/Sokol111/newsletter-publisher/pkg/http/middleware"
	"github.com/Sokol111/newsletter-publisher/pkg/http/server"
	"go.uber.org/fx"
)

// NewHTTPModule serves the shared mux behind the built-in middlewares and
// registers the health probes. Application routes are registered by their
// own modules.
func NewHTTPModule(opts ...middleware.Option) fx.Option {
	return fx.Options(
		server.NewHTTPServerModule(),
		health.NewHealthRoutesModule(),
		middleware.NewMiddlewareModule(opts...),
	)
}
