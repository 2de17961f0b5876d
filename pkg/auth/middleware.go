package auth

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// Middleware provides HTTP authentication middleware.
// It is thin and delegates authentication logic to AuthService.
type Middleware struct {
	authService AuthService
	logger      *zap.Logger
}

// NewMiddleware creates a new auth middleware with the given AuthService.
func NewMiddleware(authService AuthService, logger *zap.Logger) *Middleware {
	return &Middleware{
		authService: authService,
		logger:      logger,
	}
}

// Authenticate resolves the principal and stores it in context. Requests
// without a credential continue as guests; requests with an invalid
// credential are rejected with 401.
func (m *Middleware) Authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, _, err := m.authService.Authenticate(r)
		if err != nil {
			m.unauthorized(w, "Invalid credentials")
			return
		}
		next(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	}
}

// RequireAuth rejects guests with 401. Use for endpoints that are meaningless
// without an identity.
func (m *Middleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return m.Authenticate(func(w http.ResponseWriter, r *http.Request) {
		if PrincipalFromContext(r.Context()).IsGuest() {
			m.unauthorized(w, "Authentication required")
			return
		}
		next(w, r)
	})
}

// unauthorized returns a 401 response with JSON error body.
func (m *Middleware) unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="pattern-catalog"`)
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": message,
	})
}
