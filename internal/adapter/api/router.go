package api

import (
	"log/slog"
	"net/http"

	"github.com/klauspost/compress/gzhttp"

	"github.com/V4T54L/string-analyzer/internal/adapter/api/handler"
	"github.com/V4T54L/string-analyzer/internal/adapter/api/middleware"
	"github.com/V4T54L/string-analyzer/internal/adapter/metrics"
	"github.com/V4T54L/string-analyzer/internal/pkg/config"
)

// NewRouter creates and configures the public HTTP router. broker may be nil,
// in which case the event stream route is not registered.
func NewRouter(
	cfg *config.Config,
	logger *slog.Logger,
	m *metrics.Metrics,
	svc handler.StringService,
	broker *handler.SSEBroker,
) http.Handler {
	mux := http.NewServeMux()

	stringHandler := handler.NewStringHandler(svc, logger, cfg.MaxBodySize)

	// Routes. The literal paths take precedence over /strings/{value}.
	// Listings can be large and are gzip-compressed; the event stream is not.
	mux.HandleFunc("POST /strings", stringHandler.Create)
	mux.Handle("GET /strings", gzhttp.GzipHandler(http.HandlerFunc(stringHandler.List)))
	mux.Handle("GET /strings/filter-by-natural-language", gzhttp.GzipHandler(http.HandlerFunc(stringHandler.FilterByNaturalLanguage)))
	mux.HandleFunc("GET /strings/{value}", stringHandler.Get)
	mux.HandleFunc("DELETE /strings/{value}", stringHandler.Delete)
	if broker != nil {
		mux.Handle("GET /strings/events", broker)
	}

	// Health check
	mux.HandleFunc("GET /health", stringHandler.Health)

	var h http.Handler = mux
	if m != nil {
		h = middleware.Metrics(m)(h)
	}
	h = middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, m)(h)
	h = middleware.Logging(logger)(h)
	h = middleware.Recover(logger)(h)
	return h
}
