package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/V4T54L/string-analyzer/internal/domain"
)

// StreamInspector is the subset of usecase.AdminStreamUseCase the admin
// handler needs.
type StreamInspector interface {
	Status(ctx context.Context) (domain.StreamStatus, error)
	GetPendingSummary(ctx context.Context, group string) (*domain.PendingMessageSummary, error)
}

// AdminHandler handles HTTP requests on the admin server.
type AdminHandler struct {
	streams StreamInspector
	logger  *slog.Logger
}

// NewAdminHandler creates a new AdminHandler. streams may be nil when no event
// stream is configured.
func NewAdminHandler(streams StreamInspector, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{streams: streams, logger: logger.With("component", "admin_handler")}
}

// HealthCheck is a simple health check endpoint.
func (h *AdminHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, h.logger, http.StatusOK, map[string]string{"status": "ok"})
}

// GetStreamStatus reports the event stream length and consumer groups.
// GET /admin/stream
func (h *AdminHandler) GetStreamStatus(w http.ResponseWriter, r *http.Request) {
	if !h.streamEnabled(w) {
		return
	}

	status, err := h.streams.Status(r.Context())
	if err != nil {
		h.logger.Error("failed to get stream status", "error", err)
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, status)
}

// GetPendingSummary handles requests to get a summary of pending messages.
// GET /admin/stream/groups/{groupName}/pending
func (h *AdminHandler) GetPendingSummary(w http.ResponseWriter, r *http.Request) {
	if !h.streamEnabled(w) {
		return
	}

	summary, err := h.streams.GetPendingSummary(r.Context(), r.PathValue("groupName"))
	if err != nil {
		h.logger.Error("failed to get pending summary", "error", err)
		respondWithError(w, h.logger, err)
		return
	}
	respondWithJSON(w, h.logger, http.StatusOK, summary)
}

func (h *AdminHandler) streamEnabled(w http.ResponseWriter) bool {
	if h.streams != nil {
		return true
	}
	respondWithJSON(w, h.logger, http.StatusServiceUnavailable, ErrorResponse{
		Error:   ClassUnavailable,
		Message: "event stream is not configured",
	})
	return false
}
