package health

import (
	"encoding/json"
	"io"
	"net/http"

	coreHealth "github.com/Sokol111/newsletter-publisher/pkg/core/health"
)

type healthHandler struct {
	readiness      coreHealth.ReadinessChecker
	trafficControl coreHealth.TrafficController
}

func newHealthHandler(r coreHealth.ReadinessChecker, t coreHealth.TrafficController) *healthHandler {
	return &healthHandler{readiness: r, trafficControl: t}
}

func (h *healthHandler) IsReady(w http.ResponseWriter, r *http.Request) {
	ready := h.readiness.IsReady()
	// A successful probe is what lets the orchestrator route traffic here.
	if ready {
		h.trafficControl.MarkTrafficReady()
	}

	if r.URL.Query().Get("format") == "json" || r.Header.Get("Accept") == "application/json" {
		status := http.StatusOK
		if !ready {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(h.readiness.GetStatus())
		return
	}

	if ready {
		writeText(w, http.StatusOK, "ready")
		return
	}
	writeText(w, http.StatusServiceUnavailable, "not ready")
}

func (h *healthHandler) IsLive(w http.ResponseWriter, _ *http.Request) {
	writeText(w, http.StatusOK, "alive")
}

func writeText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}
