package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/pattern-catalog/pkg/auth"
	"github.com/ekaya-inc/pattern-catalog/pkg/models"
	"github.com/ekaya-inc/pattern-catalog/pkg/services"
)

// ImplementationListResponse for GET /api/implementations
type ImplementationListResponse struct {
	Implementations []*models.PatternImplementation `json:"implementations"`
	Total           int                             `json:"total"`
}

// SetStatusRequest for PUT /api/implementations/{uuid}/status
type SetStatusRequest struct {
	Status string `json:"status"`
}

// ImplementationHandler handles pattern implementation HTTP requests.
type ImplementationHandler struct {
	implementationService services.ImplementationService
	logger                *zap.Logger
}

// NewImplementationHandler creates a new implementation handler.
func NewImplementationHandler(implementationService services.ImplementationService, logger *zap.Logger) *ImplementationHandler {
	return &ImplementationHandler{
		implementationService: implementationService,
		logger:                logger,
	}
}

// RegisterRoutes registers the implementation handler's routes on the given mux.
func (h *ImplementationHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	base := "/api/implementations"

	mux.HandleFunc("GET "+base, authMiddleware.Authenticate(scope(h.List)))
	mux.HandleFunc("GET "+base+"/{uuid}", authMiddleware.Authenticate(scope(h.Get)))

	// Writes reject guests before a database scope is acquired.
	mux.HandleFunc("POST "+base, authMiddleware.RequireAuth(scope(h.Create)))
	mux.HandleFunc("PATCH "+base+"/{uuid}", authMiddleware.RequireAuth(scope(h.Update)))
	mux.HandleFunc("DELETE "+base+"/{uuid}", authMiddleware.RequireAuth(scope(h.Delete)))
	mux.HandleFunc("PUT "+base+"/{uuid}/status", authMiddleware.RequireAuth(scope(h.SetStatus)))
}

// List handles GET /api/implementations?pattern_id=&status=&author_id=&include_deleted=
func (h *ImplementationHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := services.ImplementationListFilter{
		PatternID:      q.Get("pattern_id"),
		Status:         q.Get("status"),
		AuthorID:       q.Get("author_id"),
		IncludeDeleted: queryBool(r, "include_deleted"),
	}

	impls, err := h.implementationService.List(r.Context(), auth.PrincipalFromContext(r.Context()), filter)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	response := ImplementationListResponse{Implementations: impls, Total: len(impls)}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: response}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Create handles POST /api/implementations
func (h *ImplementationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.CreateImplementationInput
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	created, err := h.implementationService.Create(r.Context(), auth.PrincipalFromContext(r.Context()), req)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: created}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/implementations/{uuid}?include_deleted=true
func (h *ImplementationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseImplementationID(w, r, h.logger)
	if !ok {
		return
	}

	impl, err := h.implementationService.Get(r.Context(), auth.PrincipalFromContext(r.Context()), id, queryBool(r, "include_deleted"))
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: impl}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PATCH /api/implementations/{uuid}
func (h *ImplementationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseImplementationID(w, r, h.logger)
	if !ok {
		return
	}

	var req services.ImplementationUpdate
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	updated, err := h.implementationService.Update(r.Context(), auth.PrincipalFromContext(r.Context()), id, req)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: updated}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// SetStatus handles PUT /api/implementations/{uuid}/status
func (h *ImplementationHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseImplementationID(w, r, h.logger)
	if !ok {
		return
	}

	var req SetStatusRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	updated, err := h.implementationService.SetStatus(r.Context(), auth.PrincipalFromContext(r.Context()), id, req.Status)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: updated}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/implementations/{uuid}
func (h *ImplementationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseImplementationID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.implementationService.SoftDelete(r.Context(), auth.PrincipalFromContext(r.Context()), id); err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
