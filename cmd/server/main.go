package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"thoughtbox/internal/auth"
	"thoughtbox/internal/config"
	"thoughtbox/internal/handler"
	"thoughtbox/internal/handler/sse"
	"thoughtbox/internal/middleware"
	"thoughtbox/internal/repository/postgres"
	postgresThought "thoughtbox/internal/repository/postgres/thought"
	serviceAuth "thoughtbox/internal/service/auth"
	"thoughtbox/internal/service/refine"
	"thoughtbox/internal/service/session"
	serviceThought "thoughtbox/internal/service/thought"
	"thoughtbox/internal/service/transcription"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
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
		logFile, err := config.SetupLogFile(cfg.LogDir, config.MaxLogFiles)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer logFile.Close()
		logOut = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// Create JWT verifier for Supabase authentication
	jwtVerifier, err := auth.NewJWTVerifier(cfg.SupabaseJWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", pool.Config().MaxConns,
		"min_conns", pool.Config().MinConns,
	)

	tables := postgres.NewTableNames(cfg.TablePrefix)
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	thoughtRepo := postgresThought.NewThoughtRepository(repoConfig)
	versionRepo := postgresThought.NewVersionRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool, logger)

	clock := clockwork.NewRealClock()
	authorizer := serviceAuth.NewOwnerBasedAuthorizer(thoughtRepo)

	thoughtService := serviceThought.NewThoughtService(thoughtRepo, versionRepo, txManager, authorizer, clock, cfg.PublicBaseURL, logger)
	versionService := serviceThought.NewVersionService(thoughtRepo, versionRepo, txManager, authorizer, clock, logger)

	sessions := session.NewManager(thoughtService, versionService, clock, cfg.SessionTTL, logger)
	defer sessions.Shutdown()

	transcriber := transcription.NewClient(cfg.TranscriptionURL, cfg.TranscriptionAPIKey, clock, logger)

	prompts, err := refine.LoadPrompts()
	if err != nil {
		log.Fatalf("Failed to load refine prompts: %v", err)
	}
	provider, err := refine.NewProvider(cfg.RefineProvider, cfg.AnthropicAPIKey)
	if err != nil {
		log.Fatalf("Failed to setup refine provider: %v", err)
	}
	model := cfg.RefineModel
	if model == "" {
		if model, err = prompts.Model(cfg.RefineProvider); err != nil {
			log.Fatalf("Failed to pick refine model: %v", err)
		}
	}
	refiner := refine.NewRefiner(provider, model, prompts, logger)

	logger.Info("services initialized",
		"refine_provider", cfg.RefineProvider,
		"refine_model", model,
		"session_ttl", cfg.SessionTTL,
		"dictation_rpm", cfg.DictationRPM,
	)

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, handler.Handlers{
		Health:         handler.NewHealthHandler(pool, sessions.Count, logger),
		Thoughts:       handler.NewThoughtHandler(thoughtService, versionService, logger),
		Sessions:       handler.NewSessionHandler(sessions, refiner, sse.DefaultConfig(), clock, logger),
		Dictation:      handler.NewDictationHandler(transcriber, refiner, logger),
		DictationLimit: middleware.RateLimit(middleware.NewUserRateLimiter(cfg.DictationRPM), logger),
	})

	// Build middleware chain
	var h http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → RequestLogger → Recovery → Auth → Routes
	h = middleware.AuthMiddleware(jwtVerifier, logger)(h)
	h = middleware.Recovery(logger)(h)
	h = middleware.RequestLogger(logger)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", "Last-Event-ID"},
		ExposedHeaders:   []string{"Retry-After", "X-Request-ID"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // Disabled to allow status streams and long transcriptions
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", server.Addr)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}
}
