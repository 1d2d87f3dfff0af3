package health

import (
	"net/http"

	"go.uber.org/fx"
)

// NewHealthRoutesModule registers the liveness and readiness probes on the
// shared mux.
func NewHealthRoutesModule() fx.Option {
	return fx.Module("health-routes",
		fx.Provide(newHealthHandler),
		fx.Invoke(registerHealthRoutes),
	)
}

func registerHealthRoutes(mux *http.ServeMux, handler *healthHandler) {
	mux.HandleFunc("GET /health/ready", handler.IsReady)
	mux.HandleFunc("GET /health/live", handler.IsLive)
}
