package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/tickerql/config"
	"github.com/guttosm/tickerql/internal/api"
	"github.com/guttosm/tickerql/internal/auth"
	"github.com/guttosm/tickerql/internal/graph"
	"github.com/guttosm/tickerql/internal/logger"
	"github.com/guttosm/tickerql/internal/service"
	"github.com/guttosm/tickerql/internal/storage"
)

// InitializeApp sets up all application dependencies and returns
// a fully configured Gin router, a cleanup function for graceful shutdown,
// and any error encountered during initialization.
//
// Responsibilities:
//   - Connects to PostgreSQL using InitPostgres().
//   - Builds the repository, credential service, gate and market service.
//   - Builds the GraphQL schema and the HTTP handler.
//   - Selects the rate limit backend (memory or redis).
//   - Configures the Gin router and registers health and readiness probes.
//
// Parameters:
//   - cfg (config.Config): loaded configuration, usually config.AppConfig.
//
// Returns:
//   - *gin.Engine: the configured Gin HTTP router.
//   - func(): cleanup function to be executed on shutdown.
//   - error: any initialization error that occurred.
func InitializeApp(cfg config.Config) (*gin.Engine, func(), error) {
	// indirection for unit testing
	db, err := postgresOpener(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	repo := storage.NewTickerRepository(db)
	creds := auth.NewCredentialService(cfg.Auth)
	svc := service.NewMarketService(repo, creds, cfg.Auth.DemoUser)

	schema, err := graph.NewSchema(svc, auth.NewBearerGate(creds))
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to build graphql schema: %w", err)
	}

	limiter, redisPing, closeRedis, err := newLimiter(context.Background(), cfg.RateLimit)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to initialize rate limiter: %w", err)
	}

	router := api.NewRouter(api.NewHandler(schema), limiter)

	health := api.NewHealthHandler(db.PingContext)
	if redisPing != nil {
		health.AddCheck("redis", redisPing)
	}
	health.Register(router)

	logger.L().Info().
		Str("rate_limit_backend", cfg.RateLimit.Backend).
		Int("rate_limit_requests", cfg.RateLimit.Requests).
		Dur("rate_limit_window", cfg.RateLimit.Window).
		Msg("application initialized")

	cleanup := func() {
		if closeRedis != nil {
			closeRedis()
		}
		_ = db.Close()
	}

	return router, cleanup, nil
}
