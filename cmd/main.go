package main

//
//  @title           tickerql API
//  @version         1.0
//  @description     Financial ticker and price history served over GraphQL.
//  @termsOfService  https://github.com/guttosm/tickerql
//  @contact.name    API Support
//  @contact.url     https://github.com/guttosm/tickerql
//  @contact.email   support@example.com
//  @license.name    MIT
//  @license.url     https://opensource.org/licenses/MIT
//  @host            localhost:8080
//  @BasePath        /
//  @schemes         http
//
//  @tag.name        graphql
//  @tag.description GraphQL queries and mutations
//
//  @tag.name        health
//  @tag.description Liveness and readiness probes

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guttosm/tickerql/config"
	migrations "github.com/guttosm/tickerql/db"
	_ "github.com/guttosm/tickerql/docs" // swagger docs
	"github.com/guttosm/tickerql/internal/app"
	"github.com/guttosm/tickerql/internal/auth"
	"github.com/guttosm/tickerql/internal/ingestion"
	"github.com/guttosm/tickerql/internal/logger"
	"github.com/guttosm/tickerql/internal/service"
	"github.com/guttosm/tickerql/internal/storage"
)

// startServer initializes and starts the HTTP server in a separate goroutine.
//
// Parameters:
//   - router (http.Handler): The HTTP router (Gin Engine) configured with all routes.
//   - port (string): The port where the server will listen for incoming requests.
//
// Returns:
//   - *http.Server: The initialized HTTP server instance.
func startServer(router http.Handler, port string) *http.Server {
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.L().Info().Str("port", port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.L().Fatal().Err(err).Msg("server failed to start")
		}
	}()

	return server
}

// gracefulShutdown waits for SIGINT or SIGTERM, shuts the server down and
// runs cleanup to release resources (e.g., DB connections).
func gracefulShutdown(ctx context.Context, server *http.Server, cleanup func()) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)

	<-quit
	logger.L().Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.L().Error().Err(err).Msg("server forced to shutdown")
	}

	cleanup()
	logger.L().Info().Msg("server exited gracefully")
}

// options are the command line flags.
type options struct {
	mode     string
	dir      string
	parallel int
	port     string
	migrate  bool
}

func parseFlags(args []string, defaultPort string) (options, error) {
	var o options
	fs := flag.NewFlagSet("tickerql", flag.ContinueOnError)
	fs.StringVar(&o.mode, "mode", "api", "Mode: api, migrate or import")
	fs.StringVar(&o.dir, "dir", "./data/input", "Directory with .csv files (import mode)")
	fs.IntVar(&o.parallel, "parallel", 0, "How many files to import concurrently (0=auto up to CPU, max 8)")
	fs.StringVar(&o.port, "port", defaultPort, "Port for API mode")
	fs.BoolVar(&o.migrate, "migrate", false, "Apply migrations before serving (api mode)")
	err := fs.Parse(args)
	return o, err
}

// runMigrations applies the embedded schema migrations.
func runMigrations(cfg config.Config) error {
	conn, err := app.InitPostgres(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	if err := migrations.Migrate(conn); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.L().Info().Msg("migrations applied")
	return nil
}

// runImport loads CSV files through the same write path as addMarketData.
func runImport(ctx context.Context, cfg config.Config, dir string, parallel int) error {
	conn, err := app.InitPostgres(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()

	svc := service.NewMarketService(
		storage.NewTickerRepository(conn),
		auth.NewCredentialService(cfg.Auth),
		cfg.Auth.DemoUser,
	)
	sum, err := ingestion.ImportDirectory(ctx, dir, svc, parallel)
	if err != nil {
		return err
	}
	logger.L().Info().Int("files", sum.Files).Int("symbols", sum.Symbols).Int("prices", sum.Prices).Msg("import completed successfully")
	return nil
}

// main is the entry point of the tickerql application.
//
// Modes (selected via --mode flag):
//   - api:     Starts the GraphQL API (default).
//   - migrate: Applies the embedded SQL migrations and exits.
//   - import:  Loads every .csv file in --dir and exits.
func main() {
	ctx := context.Background()

	// Load configuration from environment or .env file
	config.LoadConfig()
	cfg := config.AppConfig

	logger.Init(cfg.Log)

	opts, err := parseFlags(os.Args[1:], cfg.Server.Port)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("invalid flags")
	}

	switch opts.mode {
	case "migrate":
		if err := runMigrations(cfg); err != nil {
			logger.L().Fatal().Err(err).Msg("migration failed")
		}

	case "import":
		logger.L().Info().Str("dir", opts.dir).Msg("running import")
		if err := runImport(ctx, cfg, opts.dir, opts.parallel); err != nil {
			logger.L().Fatal().Err(err).Msg("import failed")
		}

	case "api":
		if opts.migrate {
			if err := runMigrations(cfg); err != nil {
				logger.L().Fatal().Err(err).Msg("migration failed")
			}
		}

		logger.L().Info().Msg("starting API server")
		router, cleanup, err := app.InitializeApp(cfg)
		if err != nil {
			logger.L().Fatal().Err(err).Msg("app init error")
		}

		server := startServer(router, opts.port)
		gracefulShutdown(ctx, server, cleanup)

	default:
		logger.L().Fatal().Str("mode", opts.mode).Msg("unknown mode")
	}
}
