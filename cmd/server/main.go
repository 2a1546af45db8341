package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HammerMeetNail/fridgemate/internal/config"
	"github.com/HammerMeetNail/fridgemate/internal/database"
	"github.com/HammerMeetNail/fridgemate/internal/handlers"
	"github.com/HammerMeetNail/fridgemate/internal/logging"
	"github.com/HammerMeetNail/fridgemate/internal/metrics"
	"github.com/HammerMeetNail/fridgemate/internal/middleware"
	"github.com/HammerMeetNail/fridgemate/internal/models"
	"github.com/HammerMeetNail/fridgemate/internal/scheduler"
	"github.com/HammerMeetNail/fridgemate/internal/services"
)

func main() {
	if err := run(); err != nil {
		logging.Error("Application error", map[string]interface{}{"error": err.Error()})
		os.Exit(1)
	}
}

func run() error {
	logger := logging.New()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := logging.ParseLevel(cfg.Server.LogLevel)
	if cfg.Server.Debug {
		level = logging.LevelDebug
	}
	logger.SetLevel(level)
	logging.SetDefaultLevel(level)

	logger.Info("Starting FridgeMate server...", map[string]interface{}{
		"env": cfg.Server.Environment,
	})

	logger.Info("Connecting to PostgreSQL", map[string]interface{}{
		"host": cfg.Database.Host,
		"port": cfg.Database.Port,
	})
	db, err := database.NewPostgresDB(cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()

	schemaVersion, err := migrate(cfg.Database, logger)
	if err != nil {
		return err
	}

	logger.Info("Connecting to Redis", map[string]interface{}{
		"addr": cfg.Redis.Addr(),
	})
	redisDB, err := database.NewRedisDB(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() { _ = redisDB.Close() }()

	dbAdapter := services.NewPoolAdapter(db.Pool)
	redisAdapter := services.NewRedisAdapter(redisDB.Client)
	layout := models.Layout{
		Capacity: cfg.Fridge.Capacity,
		ItemSize: cfg.Fridge.ItemSize,
		Gap:      cfg.Fridge.Gap,
	}

	accountService := services.NewAccountService(dbAdapter)
	friendCodeService := services.NewFriendCodeService(dbAdapter, cfg.FriendCode.TTL)
	friendCodeService.SetLogger(logger)
	fridgeService := services.NewFridgeService(dbAdapter, layout)
	artifactService := services.NewArtifactService(dbAdapter)
	sessionService := services.NewSessionService(redisAdapter)

	healthHandler := handlers.NewHealthHandler(db, redisDB)
	healthHandler.SetSchemaVersion(schemaVersion)
	accountHandler := handlers.NewAccountHandler(accountService)
	friendCodeHandler := handlers.NewFriendCodeHandler(friendCodeService)
	fridgeHandler := handlers.NewFridgeHandler(fridgeService)
	artifactHandler := handlers.NewArtifactHandler(artifactService)

	authMiddleware := middleware.NewAuthMiddleware(sessionService)
	securityHeaders := middleware.NewSecurityHeaders(cfg.Server.Secure)
	requestLogger := middleware.NewRequestLogger(logger, "/live", "/ready", "/metrics")
	redeemLimiter := middleware.NewRedeemRateLimiter(redisDB.Client, cfg.FriendCode.RedeemRateLimit, cfg.FriendCode.RedeemWindow)

	requireAuth := authMiddleware.RequireAuth

	mux := http.NewServeMux()
	handle := func(pattern string, h http.Handler) {
		mux.Handle(pattern, h)
		metrics.RegisterRoute(pattern)
	}
	handleFunc := func(pattern string, h http.HandlerFunc) {
		handle(pattern, h)
	}

	// Health and metrics (no auth)
	handleFunc("GET /health", healthHandler.Health)
	handleFunc("GET /ready", healthHandler.Ready)
	handleFunc("GET /live", healthHandler.Live)
	handle("GET /metrics", metrics.Handler())

	// Accounts
	handle("POST /api/accounts", requireAuth(http.HandlerFunc(accountHandler.Create)))
	handle("GET /api/me", requireAuth(http.HandlerFunc(accountHandler.Me)))

	// Friend codes and friends
	handle("POST /api/friends/code", requireAuth(http.HandlerFunc(friendCodeHandler.GenerateCode)))
	handle("GET /api/friends/code", requireAuth(http.HandlerFunc(friendCodeHandler.GetCode)))
	handle("POST /api/friends/redeem", requireAuth(redeemLimiter.Middleware(http.HandlerFunc(friendCodeHandler.Redeem))))
	handle("GET /api/friends", requireAuth(http.HandlerFunc(friendCodeHandler.List)))
	handle("DELETE /api/friends/{id}", requireAuth(http.HandlerFunc(friendCodeHandler.Remove)))

	// Fridge
	handle("GET /api/fridge", requireAuth(http.HandlerFunc(fridgeHandler.Get)))
	handle("POST /api/fridge/slots", requireAuth(http.HandlerFunc(fridgeHandler.Place)))
	handle("DELETE /api/fridge/artifacts/{id}", requireAuth(http.HandlerFunc(fridgeHandler.Remove)))

	// Artifacts
	handle("POST /api/artifacts", requireAuth(http.HandlerFunc(artifactHandler.Create)))
	handle("GET /api/artifacts", requireAuth(http.HandlerFunc(artifactHandler.List)))
	handle("GET /api/artifacts/received", requireAuth(http.HandlerFunc(artifactHandler.ListReceived)))
	handle("GET /api/artifacts/{id}", requireAuth(http.HandlerFunc(artifactHandler.Get)))
	handle("POST /api/artifacts/{id}/share", requireAuth(http.HandlerFunc(artifactHandler.Share)))
	handle("POST /api/artifacts/{id}/purchase", requireAuth(http.HandlerFunc(artifactHandler.Purchase)))

	// Middleware chain, innermost first. Authenticate wraps the logger so
	// request logs carry the account id.
	var handler http.Handler = mux
	handler = requestLogger.Apply(handler)
	handler = authMiddleware.Authenticate(handler)
	handler = metrics.InstrumentHandler(handler)
	handler = securityHeaders.Apply(handler)

	var sweeper *scheduler.Sweeper
	if cfg.FriendCode.SweepSchedule != "" {
		sweeper, err = scheduler.New(friendCodeService, cfg.FriendCode.SweepSchedule, logger)
		if err != nil {
			return err
		}
		sweeper.Start()
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		logger.Info("Server is shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if sweeper != nil {
			if err := sweeper.Stop(ctx); err != nil {
				logger.Warn("Sweeper did not stop cleanly", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("Could not gracefully shutdown the server", map[string]interface{}{
				"error": err.Error(),
			})
		}
		close(done)
	}()

	logger.Info("Server listening", map[string]interface{}{
		"addr": addr,
	})
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("Server stopped")
	return nil
}

// migrate applies pending migrations and returns the resulting schema version.
func migrate(cfg config.DatabaseConfig, logger *logging.Logger) (uint, error) {
	logger.Info("Running database migrations...", map[string]interface{}{
		"path": cfg.MigrationsPath,
	})
	migrator, err := database.NewMigrator(cfg.DSN(), cfg.MigrationsPath)
	if err != nil {
		return 0, fmt.Errorf("creating migrator: %w", err)
	}
	defer func() { _ = migrator.Close() }()

	if err := migrator.Up(); err != nil {
		return 0, fmt.Errorf("running migrations: %w", err)
	}
	version, err := migrator.CurrentVersion()
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	logger.Info("Migrations completed", map[string]interface{}{"version": version})
	return version, nil
}
