package server

import (
	"context"
	"net/http"

	"github.com/Sokol111/newsletter-publisher/pkg/core/health"
	"github.com/Sokol111/newsletter-publisher/pkg/http/middleware"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type serverParams struct {
	fx.In

	Lc          fx.Lifecycle
	Log         *zap.Logger
	Conf        Config
	Mux         *http.ServeMux
	Middlewares []middleware.Middleware `group:"http_mw"`
	Readiness   health.ComponentManager
	Shutdowner  fx.Shutdowner
}

// NewHTTPServerModule provides the shared *http.ServeMux and serves it behind
// the http_mw middleware group.
func NewHTTPServerModule() fx.Option {
	return fx.Module("http-server",
		fx.Provide(
			newConfig,
			http.NewServeMux,
		),
		fx.Invoke(startHTTPServer),
	)
}

func startHTTPServer(p serverParams) {
	var srv Server
	markReady := p.Readiness.AddComponent("http-server")
	p.Lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// Routes are registered by invokes that ran before OnStart.
			srv = newServer(p.Log, p.Conf, middleware.Chain(p.Mux, p.Middlewares))

			go func() {
				if err := srv.ServeWithReadyCallback(markReady); err != nil {
					p.Log.Error("HTTP server failed, shutting down application", zap.Error(err))
					_ = p.Shutdowner.Shutdown() //nolint:errcheck // shutdown is best-effort
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			if srv != nil {
				return srv.Shutdown(ctx)
			}
			return nil
		},
	})
}
