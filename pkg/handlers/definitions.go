package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/pattern-catalog/pkg/auth"
	"github.com/ekaya-inc/pattern-catalog/pkg/models"
	"github.com/ekaya-inc/pattern-catalog/pkg/services"
)

// ScopeMiddleware attaches per-request persistence state to the context.
type ScopeMiddleware func(http.HandlerFunc) http.HandlerFunc

// ============================================================================
// Request/Response Types
// ============================================================================

// DefinitionListResponse for GET /api/definitions
type DefinitionListResponse struct {
	Definitions []*models.PatternDefinition `json:"definitions"`
	Total       int                         `json:"total"`
}

// CreateDefinitionRequest for POST /api/definitions
type CreateDefinitionRequest struct {
	ID        string `json:"id"`
	Category  string `json:"category"`
	Title     string `json:"title"`
	Problem   string `json:"problem"`
	WhenToUse string `json:"when_to_use"`
}

// ============================================================================
// Handler
// ============================================================================

// DefinitionHandler handles pattern definition HTTP requests.
type DefinitionHandler struct {
	definitionService services.DefinitionService
	exportService     services.ExportService
	logger            *zap.Logger
}

// NewDefinitionHandler creates a new definition handler.
func NewDefinitionHandler(
	definitionService services.DefinitionService,
	exportService services.ExportService,
	logger *zap.Logger,
) *DefinitionHandler {
	return &DefinitionHandler{
		definitionService: definitionService,
		exportService:     exportService,
		logger:            logger,
	}
}

// RegisterRoutes registers the definition handler's routes on the given mux.
func (h *DefinitionHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	base := "/api/definitions"

	mux.HandleFunc("GET "+base, authMiddleware.Authenticate(scope(h.List)))
	mux.HandleFunc("GET "+base+"/{id}", authMiddleware.Authenticate(scope(h.Get)))
	mux.HandleFunc("GET "+base+"/{id}/document", authMiddleware.Authenticate(scope(h.Document)))

	mux.HandleFunc("POST "+base, authMiddleware.RequireAuth(scope(h.Create)))
	mux.HandleFunc("PATCH "+base+"/{id}", authMiddleware.RequireAuth(scope(h.Update)))
	mux.HandleFunc("DELETE "+base+"/{id}", authMiddleware.RequireAuth(scope(h.Delete)))
}

// List handles GET /api/definitions?category=IMP&include_deleted=true
func (h *DefinitionHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := auth.PrincipalFromContext(r.Context())
	filter := services.DefinitionListFilter{
		Category:       r.URL.Query().Get("category"),
		IncludeDeleted: queryBool(r, "include_deleted"),
	}

	defs, err := h.definitionService.List(r.Context(), actor, filter)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	response := DefinitionListResponse{Definitions: defs, Total: len(defs)}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Create handles POST /api/definitions
func (h *DefinitionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateDefinitionRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	def := &models.PatternDefinition{
		ID:        req.ID,
		Category:  models.Category(req.Category),
		Title:     req.Title,
		Problem:   req.Problem,
		WhenToUse: req.WhenToUse,
	}

	created, err := h.definitionService.Create(r.Context(), auth.PrincipalFromContext(r.Context()), def)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: created}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/definitions/{id}?include_deleted=true
func (h *DefinitionHandler) Get(w http.ResponseWriter, r *http.Request) {
	def, err := h.definitionService.Get(r.Context(), auth.PrincipalFromContext(r.Context()),
		ParsePatternID(r), queryBool(r, "include_deleted"))
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: def}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PATCH /api/definitions/{id}
func (h *DefinitionHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req services.DefinitionUpdate
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	updated, err := h.definitionService.Update(r.Context(), auth.PrincipalFromContext(r.Context()), ParsePatternID(r), req)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: updated}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/definitions/{id}
func (h *DefinitionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.definitionService.SoftDelete(r.Context(), auth.PrincipalFromContext(r.Context()), ParsePatternID(r)); err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Document handles GET /api/definitions/{id}/document?implementation={uuid}
// and returns the rendered markdown document.
func (h *DefinitionHandler) Document(w http.ResponseWriter, r *http.Request) {
	var implID *uuid.UUID
	if raw := r.URL.Query().Get("implementation"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			if err := ErrorResponse(w, http.StatusBadRequest, "invalid_implementation_id", "Invalid implementation ID format"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		implID = &parsed
	}

	doc, err := h.exportService.RenderPattern(r.Context(), auth.PrincipalFromContext(r.Context()), ParsePatternID(r), implID)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("X-Implementation-UUID", doc.ImplementationUUID.String())
	_, _ = w.Write([]byte(doc.Content))
}
