// Package app wires configuration, storage and services into a runnable catalog.
// The HTTP server and the patternctl CLI both build on it.
package app

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver for migrations
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ekaya-inc/pattern-catalog/pkg/audit"
	"github.com/ekaya-inc/pattern-catalog/pkg/config"
	"github.com/ekaya-inc/pattern-catalog/pkg/database"
	"github.com/ekaya-inc/pattern-catalog/pkg/logging"
	"github.com/ekaya-inc/pattern-catalog/pkg/repositories"
	"github.com/ekaya-inc/pattern-catalog/pkg/services"
)

// Services groups the catalog's domain services.
type Services struct {
	Definitions     services.DefinitionService
	Implementations services.ImplementationService
	Export          services.ExportService
	Basket          services.BasketService
}

// App holds the long-lived resources of one catalog process.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	DB       *database.DB
	Redis    *redis.Client // nil unless the redis basket backend is configured
	Scopes   *database.ScopeProvider
	Services Services
}

// Options tunes New.
type Options struct {
	// Migrate applies pending schema migrations before services are built.
	Migrate bool
}

// New connects to PostgreSQL (and Redis when baskets live there), optionally
// migrates the schema and wires the services. The caller must call Close.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts Options) (*App, error) {
	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.URL(),
		MaxConnections: cfg.Database.MaxConnections,
		Logger:         logger.Named("database"),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %s", logging.SanitizeError(err))
	}
	logger.Info("Connected to database", zap.String("url", logging.SanitizeConnectionString(cfg.Database.URL())))

	a := &App{
		Config: cfg,
		Logger: logger,
		DB:     db,
		Scopes: database.NewScopeProvider(db),
	}

	if opts.Migrate {
		if err := a.Migrate(); err != nil {
			a.Close()
			return nil, err
		}
	}

	if cfg.Session.BasketBackend == config.BasketBackendRedis {
		client, err := database.NewRedisClient(ctx, &cfg.Redis, logger.Named("redis"))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to redis: %s", logging.SanitizeError(err))
		}
		a.Redis = client
	}

	a.Services = NewServices(cfg, logger)
	return a, nil
}

// NewServices builds the service graph over the PostgreSQL repositories.
func NewServices(cfg *config.Config, logger *zap.Logger) Services {
	auditor := audit.NewSecurityAuditor(logger)
	defRepo := repositories.NewDefinitionRepository()
	implRepo := repositories.NewImplementationRepository()

	definitions := services.NewDefinitionService(&services.DefinitionServiceDeps{
		Repo:    defRepo,
		Auditor: auditor,
		Logger:  logger,
	})
	implementations := services.NewImplementationService(&services.ImplementationServiceDeps{
		Repo:           implRepo,
		DefinitionRepo: defRepo,
		Auditor:        auditor,
		Logger:         logger,
	})
	exporter := services.NewExportService(&services.ExportServiceDeps{
		DefinitionRepo:     defRepo,
		ImplementationRepo: implRepo,
		Title:              cfg.Export.ManifestTitle,
		MaxParallel:        cfg.Export.MaxParallel,
		Logger:             logger,
	})
	basket := services.NewBasketService(&services.BasketServiceDeps{
		Definitions:     definitions,
		Implementations: implementations,
		Exporter:        exporter,
		Logger:          logger,
	})

	return Services{
		Definitions:     definitions,
		Implementations: implementations,
		Export:          exporter,
		Basket:          basket,
	}
}

// Migrate applies pending schema migrations over a dedicated database/sql
// connection, as golang-migrate requires.
func (a *App) Migrate() error {
	sqlDB, err := sql.Open("pgx", a.Config.Database.URL())
	if err != nil {
		return fmt.Errorf("open migration connection: %s", logging.SanitizeError(err))
	}
	defer func() { _ = sqlDB.Close() }()

	if err := database.RunMigrations(sqlDB, a.Logger.Named("migrations")); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	return nil
}

// Close releases the database pool and the Redis client.
func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
