package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"inkwell/internal/domain"
	"inkwell/internal/domain/models"
	"inkwell/internal/domain/services"
	"inkwell/internal/httputil"
)

// GenerationHandler serves summary and grammar-fix requests
type GenerationHandler struct {
	service services.GenerationService
	logger  *slog.Logger
}

// NewGenerationHandler creates a new generation handler
func NewGenerationHandler(service services.GenerationService, logger *slog.Logger) *GenerationHandler {
	return &GenerationHandler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes mounts the generation route on mux
func (h *GenerationHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/ai/generate", h.Generate)
}

// Generate runs one generation request
// POST /api/ai/generate
func (h *GenerationHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateRequest
	if !parseBody(w, r, &req) {
		return
	}

	resp, err := h.service.Generate(r.Context(), &req)
	if err != nil {
		var genErr *domain.GenerationError
		if errors.As(err, &genErr) {
			h.logger.Error("generation failed", "mode", req.Type, "error", err)
		}
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, resp)
}
