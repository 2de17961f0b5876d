package auth

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/pattern-catalog/pkg/models"
)

// JWTCookieName is the cookie browser clients carry their identity token in.
const JWTCookieName = "catalog_jwt"

// Common authentication errors.
var (
	ErrInvalidAuthFormat = errors.New("invalid authorization header format")
	ErrInvalidToken      = errors.New("invalid token")
)

// AuthService resolves the principal behind a request.
// This abstraction enables clean separation between HTTP handling
// and authentication logic, making both easier to test.
type AuthService interface {
	// Authenticate extracts and validates a JWT from the request.
	// It checks for the token in:
	//   1. Cookie named "catalog_jwt" (browser clients)
	//   2. Authorization header with "Bearer" scheme (API clients)
	// A request carrying neither is a guest. A request carrying a credential
	// that fails validation is an error, never a guest.
	Authenticate(r *http.Request) (models.Principal, *Claims, error)
}

type authService struct {
	validator TokenValidator
	logger    *zap.Logger
}

// NewAuthService creates a new AuthService with the given token validator and logger.
func NewAuthService(validator TokenValidator, logger *zap.Logger) AuthService {
	return &authService{
		validator: validator,
		logger:    logger,
	}
}

func (s *authService) Authenticate(r *http.Request) (models.Principal, *Claims, error) {
	var tokenString string
	var tokenSource string

	if cookie, err := r.Cookie(JWTCookieName); err == nil && cookie.Value != "" {
		tokenString = cookie.Value
		tokenSource = "cookie"
	} else {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			return models.Guest(), nil, nil
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			s.logger.Debug("Invalid Authorization header format",
				zap.String("path", r.URL.Path))
			return models.Guest(), nil, ErrInvalidAuthFormat
		}
		tokenString = parts[1]
		tokenSource = "header"
	}

	claims, err := s.validator.ValidateToken(r.Context(), tokenString)
	if err != nil {
		s.logger.Debug("JWT validation failed",
			zap.Error(err),
			zap.String("path", r.URL.Path),
			zap.String("token_source", tokenSource))
		return models.Guest(), nil, errors.Join(ErrInvalidToken, err)
	}

	principal := claims.Principal()
	if principal.IsGuest() {
		s.logger.Debug("JWT carries no subject",
			zap.String("path", r.URL.Path),
			zap.String("token_source", tokenSource))
		return models.Guest(), nil, ErrInvalidToken
	}

	return principal, claims, nil
}

var _ AuthService = (*authService)(nil)
