package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/pattern-catalog/pkg/auth"
	"github.com/ekaya-inc/pattern-catalog/pkg/export"
	"github.com/ekaya-inc/pattern-catalog/pkg/services"
)

// exportFilename is the attachment name of every export download.
const exportFilename = "pattern-catalog-export.zip"

// ExportRequest for POST /api/export
type ExportRequest struct {
	Selections map[string]uuid.UUID `json:"selections"`
}

// ExportHandler packages explicit selections without touching any stored basket.
type ExportHandler struct {
	exportService services.ExportService
	logger        *zap.Logger
}

// NewExportHandler creates a new export handler.
func NewExportHandler(exportService services.ExportService, logger *zap.Logger) *ExportHandler {
	return &ExportHandler{exportService: exportService, logger: logger}
}

// RegisterRoutes registers the export handler's routes on the given mux.
func (h *ExportHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	mux.HandleFunc("POST /api/export", authMiddleware.Authenticate(scope(h.Export)))
}

// Export handles POST /api/export
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	bundle, err := h.exportService.Export(r.Context(), auth.PrincipalFromContext(r.Context()), normalizeSelections(req.Selections))
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	writeBundle(w, bundle, h.logger)
}

// writeBundle streams bundle as a zip attachment. The archive is built in
// memory first so a failure can still be answered with an error status.
func writeBundle(w http.ResponseWriter, bundle *export.Bundle, logger *zap.Logger) {
	data, err := bundle.Zip()
	if err != nil {
		WriteServiceError(w, err, logger)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilename+`"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logger.Warn("Failed to write export archive", zap.Error(err))
	}
}
