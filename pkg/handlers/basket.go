package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/pattern-catalog/pkg/auth"
	"github.com/ekaya-inc/pattern-catalog/pkg/curation"
	"github.com/ekaya-inc/pattern-catalog/pkg/services"
)

// SelectRequest for PUT /api/basket/{patternId}
type SelectRequest struct {
	ImplementationUUID uuid.UUID `json:"implementation_uuid"`
}

// BasketHandler serves the caller's curation session. Every request replays
// the stored selections against the catalog as the caller currently sees it.
type BasketHandler struct {
	basketService services.BasketService
	store         curation.Store
	logger        *zap.Logger
}

// NewBasketHandler creates a new basket handler.
func NewBasketHandler(basketService services.BasketService, store curation.Store, logger *zap.Logger) *BasketHandler {
	return &BasketHandler{
		basketService: basketService,
		store:         store,
		logger:        logger,
	}
}

// RegisterRoutes registers the basket handler's routes on the given mux.
func (h *BasketHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope ScopeMiddleware) {
	base := "/api/basket"

	mux.HandleFunc("GET "+base, authMiddleware.Authenticate(scope(h.Get)))
	mux.HandleFunc("POST "+base+"/export", authMiddleware.Authenticate(scope(h.Export)))
	mux.HandleFunc("PUT "+base+"/{patternId}", authMiddleware.Authenticate(scope(h.Select)))
	mux.HandleFunc("DELETE "+base+"/{patternId}", authMiddleware.Authenticate(scope(h.Remove)))
	mux.HandleFunc("POST "+base+"/{patternId}/reset", authMiddleware.Authenticate(scope(h.Reset)))
}

// Get handles GET /api/basket. A caller without a stored basket gets one
// seeded with system defaults, which is saved immediately.
func (h *BasketHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, dropped, ok := h.open(w, r)
	if !ok {
		return
	}
	h.respond(w, r, session, dropped)
}

// Select handles PUT /api/basket/{patternId}
func (h *BasketHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	session, dropped, ok := h.open(w, r)
	if !ok {
		return
	}
	if err := session.Select(patternIDParam(r), req.ImplementationUUID); err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	h.respond(w, r, session, dropped)
}

// Remove handles DELETE /api/basket/{patternId}
func (h *BasketHandler) Remove(w http.ResponseWriter, r *http.Request) {
	session, dropped, ok := h.open(w, r)
	if !ok {
		return
	}
	session.Remove(patternIDParam(r))
	h.respond(w, r, session, dropped)
}

// Reset handles POST /api/basket/{patternId}/reset
func (h *BasketHandler) Reset(w http.ResponseWriter, r *http.Request) {
	session, dropped, ok := h.open(w, r)
	if !ok {
		return
	}
	session.ResetToSystemDefault(patternIDParam(r))
	h.respond(w, r, session, dropped)
}

// Export handles POST /api/basket/export
func (h *BasketHandler) Export(w http.ResponseWriter, r *http.Request) {
	session, _, ok := h.open(w, r)
	if !ok {
		return
	}

	bundle, err := h.basketService.Export(r.Context(), auth.PrincipalFromContext(r.Context()), session)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return
	}
	writeBundle(w, bundle, h.logger)
}

func (h *BasketHandler) open(w http.ResponseWriter, r *http.Request) (*curation.Session, []string, bool) {
	stored, found, err := h.store.Load(r)
	if err != nil {
		h.logger.Error("Failed to load basket", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "basket_unavailable", "Basket storage is unavailable"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return nil, nil, false
	}

	session, dropped, err := h.basketService.Open(r.Context(), auth.PrincipalFromContext(r.Context()), stored, found)
	if err != nil {
		WriteServiceError(w, err, h.logger)
		return nil, nil, false
	}
	return session, dropped, true
}

// respond saves the session and renders it.
func (h *BasketHandler) respond(w http.ResponseWriter, r *http.Request, session *curation.Session, dropped []string) {
	if err := h.store.Save(w, r, session.Changes()); err != nil {
		if errors.Is(err, curation.ErrBasketTooLarge) {
			if err := ErrorResponse(w, http.StatusUnprocessableEntity, "basket_too_large",
				"Basket differs from the system defaults in too many places to store; reset or remove some selections"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}
		h.logger.Error("Failed to save basket", zap.Error(err))
		if err := ErrorResponse(w, http.StatusInternalServerError, "basket_unavailable", "Basket storage is unavailable"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: h.basketService.View(session, dropped)}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

func patternIDParam(r *http.Request) string {
	return strings.ToUpper(strings.TrimSpace(r.PathValue("patternId")))
}

// normalizeSelections upper-cases pattern ids supplied by clients.
func normalizeSelections(sel map[string]uuid.UUID) map[string]uuid.UUID {
	out := make(map[string]uuid.UUID, len(sel))
	for k, v := range sel {
		out[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return out
}
