package app

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/pattern-catalog/pkg/auth"
	"github.com/ekaya-inc/pattern-catalog/pkg/config"
	"github.com/ekaya-inc/pattern-catalog/pkg/curation"
	"github.com/ekaya-inc/pattern-catalog/pkg/database"
	"github.com/ekaya-inc/pattern-catalog/pkg/handlers"
	"github.com/ekaya-inc/pattern-catalog/pkg/mcp"
	"github.com/ekaya-inc/pattern-catalog/pkg/mcp/tools"
	"github.com/ekaya-inc/pattern-catalog/pkg/middleware"
)

// Handler builds the HTTP surface: REST routes, the basket, health probes and
// the MCP endpoint, wrapped in panic recovery and request logging.
// The returned cleanup releases the token validator.
func (a *App) Handler(ctx context.Context) (http.Handler, func(), error) {
	validator, err := auth.NewJWKSClient(ctx, &auth.JWKSConfig{
		EnableVerification: a.Config.Auth.EnableVerification,
		JWKSEndpoints:      a.Config.Auth.JWKSEndpoints,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("initialize token validator: %w", err)
	}
	if !a.Config.Auth.EnableVerification {
		a.Logger.Warn("JWT signature verification is disabled; do not run like this outside development")
	}

	authMiddleware := auth.NewMiddleware(auth.NewAuthService(validator, a.Logger), a.Logger)
	scope := handlers.ScopeMiddleware(database.WithScope(a.DB, a.Logger))

	mux := http.NewServeMux()
	handlers.NewHealthHandler(a.Config, a.DB, a.Logger).RegisterRoutes(mux)
	handlers.NewDefinitionHandler(a.Services.Definitions, a.Services.Export, a.Logger).
		RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewImplementationHandler(a.Services.Implementations, a.Logger).
		RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewExportHandler(a.Services.Export, a.Logger).
		RegisterRoutes(mux, authMiddleware, scope)
	handlers.NewBasketHandler(a.Services.Basket, a.basketStore(), a.Logger).
		RegisterRoutes(mux, authMiddleware, scope)

	if a.Config.MCP.Enabled {
		mcpServer := mcp.NewServer("pattern-catalog", a.Config.Version, a.Logger)
		tools.RegisterHealthTool(mcpServer.MCP(), a.Config.Version)
		tools.RegisterPatternTools(mcpServer.MCP(), &tools.PatternToolDeps{
			DefinitionService:     a.Services.Definitions,
			ImplementationService: a.Services.Implementations,
			ExportService:         a.Services.Export,
			Logger:                a.Logger,
		})
		handlers.NewMCPHandler(mcpServer, a.Logger).RegisterRoutes(mux, authMiddleware, scope)
	}

	var h http.Handler = mux
	h = middleware.RequestLogger(a.Logger.Named("http"))(h)
	h = middleware.Recover(a.Logger)(h)
	return h, validator.Close, nil
}

// basketStore picks the basket persistence backend.
func (a *App) basketStore() curation.Store {
	cookies := auth.DeriveCookieSettings(a.Config.BaseURL, a.Config.CookieDomain)
	ttl := a.Config.Session.TTL()

	if a.Config.Session.BasketBackend == config.BasketBackendRedis && a.Redis != nil {
		a.Logger.Info("Baskets are stored in redis", zap.Duration("ttl", ttl))
		return curation.NewRedisStore(a.Redis, ttl, func(r *http.Request) string {
			return auth.GetUserIDFromContext(r.Context())
		}, cookies.Secure)
	}
	a.Logger.Info("Baskets are stored in signed cookies", zap.Duration("ttl", ttl))
	return curation.NewCookieStore(a.Config.Session.Secret, ttl, cookies.Secure)
}
