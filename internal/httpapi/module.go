package httpapi

import (
	"net/http"

	"go.uber.org/fx"
)

// NewHTTPAPIModule registers the newsletter routes on the shared mux.
func NewHTTPAPIModule() fx.Option {
	return fx.Module("httpapi",
		fx.Provide(newHandler),
		fx.Invoke(registerRoutes),
	)
}

func registerRoutes(mux *http.ServeMux, h *handler) {
	mux.HandleFunc("POST /admin/newsletters", h.Publish)
	mux.HandleFunc("GET /admin/newsletters/{issueId}", h.GetIssue)
}
