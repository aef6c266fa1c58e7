package main

import (
	"context"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"dptmirror/internal/auth"
	"dptmirror/internal/config"
	"dptmirror/internal/device"
	"dptmirror/internal/domain/repositories"
	"dptmirror/internal/handler"
	"dptmirror/internal/middleware"
	"dptmirror/internal/repository/postgres"
	"dptmirror/internal/service"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	var logOut io.Writer = os.Stdout
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, 10)
		if err != nil {
			log.Fatalf("Failed to setup log file: %v", err)
		}
		defer logFile.Close()
		logOut = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("mirror starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"device", cfg.Device,
	)

	// Device client from the selected profile
	profile, err := cfg.ResolveDevice()
	if err != nil {
		log.Fatalf("Failed to resolve device profile: %v", err)
	}
	key, err := device.LoadPrivateKey(profile.KeyPath)
	if err != nil {
		log.Fatalf("Failed to load device key: %v", err)
	}
	deviceClient, err := device.New(device.Config{
		Address:  profile.Address,
		ClientID: profile.ClientID,
		Key:      key,
		Insecure: profile.Insecure,
	}, logger)
	if err != nil {
		log.Fatalf("Failed to create device client: %v", err)
	}

	ctx := context.Background()

	// Snapshot archive is optional; without a database the mirror is
	// memory-only.
	var snapshotRepo repositories.SnapshotRepository
	if cfg.DatabaseURL != "" {
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to create connection pool: %v", err)
		}
		defer pool.Close()

		repoConfig := &postgres.RepositoryConfig{
			Pool:   pool,
			Tables: postgres.NewTableNames(cfg.TablePrefix),
			Logger: logger,
		}
		if err := postgres.EnsureSchema(ctx, repoConfig); err != nil {
			log.Fatalf("Failed to ensure schema: %v", err)
		}
		snapshotRepo = postgres.NewSnapshotRepository(repoConfig)
		logger.Info("snapshot archive enabled", "table_prefix", cfg.TablePrefix)
	}

	// Bearer-token auth is optional; without a JWKS URL the API is open.
	var verifier auth.Verifier
	if cfg.JWKSURL != "" {
		verifier, err = auth.NewVerifier(ctx, cfg.JWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create token verifier: %v", err)
		}
	}

	mirror := service.NewMirrorService(deviceClient, snapshotRepo, logger)

	if cfg.SyncOnStart {
		syncCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		if _, err := mirror.Sync(syncCtx); err != nil {
			// The device may be asleep or off-network; the API still
			// serves and a later POST /api/sync can catch up.
			logger.Warn("initial sync failed", "error", err)
		}
		cancel()
	}

	mirrorHandler := handler.NewMirrorHandler(mirror, logger)

	// API routes sit behind the auth guard; the health endpoint does not.
	apiMux := http.NewServeMux()
	mirrorHandler.Register(apiMux)

	root := http.NewServeMux()
	root.Handle("/api/", middleware.RequireAuth(verifier)(apiMux))
	root.HandleFunc("GET /healthz", mirrorHandler.Health)

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → RequestLog → Routes
	var h http.Handler = root
	h = middleware.RequestLog(logger)(h)
	h = middleware.Recovery(logger)(h)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3 * time.Minute, // a sync against a slow device rides this request
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "port", cfg.Port)
		serverErr <- server.ListenAndServe()
	}()

	stop, cancelStop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancelStop()

	select {
	case err := <-serverErr:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	case <-stop.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown did not finish cleanly", "error", err)
		}
	}
}
