package api

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/V4T54L/string-analyzer/internal/adapter/api/handler"
	"github.com/V4T54L/string-analyzer/internal/adapter/api/middleware"
)

// NewAdminRouter creates and configures the HTTP router for admin operations.
// streams may be nil when the service runs without an event stream.
func NewAdminRouter(streams handler.StreamInspector, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	adminHandler := handler.NewAdminHandler(streams, logger)

	mux.HandleFunc("GET /health", adminHandler.HealthCheck)
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Stream Info
	mux.HandleFunc("GET /admin/stream", adminHandler.GetStreamStatus)
	mux.HandleFunc("GET /admin/stream/groups/{groupName}/pending", adminHandler.GetPendingSummary)

	return middleware.Recover(logger)(mux)
}
