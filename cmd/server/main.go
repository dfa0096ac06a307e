package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inkwell/internal/auth"
	"inkwell/internal/config"
	"inkwell/internal/domain/repositories"
	"inkwell/internal/domain/services"
	"inkwell/internal/handler"
	"inkwell/internal/middleware"
	"inkwell/internal/repository/memory"
	"inkwell/internal/repository/postgres"
	"inkwell/internal/service"
	"inkwell/internal/search"
	"inkwell/internal/service/generation"
	"inkwell/internal/storage"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

// devJWTSecret signs tokens in dev when neither JWKS_URL nor JWT_SECRET is set.
const devJWTSecret = "inkwell-dev-secret"

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jwtVerifier, err := newVerifier(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	healthChecks := map[string]handler.HealthCheck{}

	// Post storage: Postgres when configured, in-memory otherwise
	var postRepo repositories.PostRepository
	var txManager repositories.TransactionManager
	if cfg.DatabaseURL != "" {
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to create connection pool: %v", err)
		}
		defer pool.Close()

		tables := postgres.NewTableNames(cfg.TablePrefix)
		if err := postgres.EnsureSchema(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to ensure schema: %v", err)
		}

		repoConfig := &postgres.RepositoryConfig{
			Pool:   pool,
			Tables: tables,
			Logger: logger,
		}
		postRepo = postgres.NewPostRepository(repoConfig)
		txManager = postgres.NewTransactionManager(repoConfig)
		healthChecks["database"] = pool.Ping
		logger.Info("database connected", "posts_table", tables.Posts)
	} else {
		postRepo = memory.NewPostRepository()
		txManager = memory.NewTransactionManager()
		logger.Warn("DATABASE_URL not set, posts are kept in memory")
	}

	// Generation: provider, prompts and optional cache
	modelInfo, err := generation.ParseModel(cfg.LLMModel, cfg.LLMProvider)
	if err != nil {
		log.Fatalf("Invalid LLM_MODEL: %v", err)
	}
	provider, err := generation.NewProvider(cfg, modelInfo)
	if err != nil {
		log.Fatalf("Failed to setup LLM provider: %v", err)
	}
	prompts, err := generation.NewPromptRegistry()
	if err != nil {
		log.Fatalf("Failed to load prompts: %v", err)
	}

	var cache services.GenerationCache
	if cfg.RedisURL != "" {
		redisCache, err := generation.NewRedisCache(cfg.RedisURL, cfg.GenerationCacheTTL)
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		defer redisCache.Close()
		cache = redisCache
		healthChecks["cache"] = redisCache.Ping
		logger.Info("generation cache enabled", "ttl", cfg.GenerationCacheTTL)
	}

	logger.Info("llm provider ready", "provider", modelInfo.Provider, "model", modelInfo.Model)

	// Optional post search index and published post archive
	var postOpts []service.PostServiceOption
	if cfg.MeiliURL != "" {
		index, err := search.NewMeiliIndex(cfg.MeiliURL, cfg.MeiliAPIKey, cfg.MeiliIndex, logger)
		if err != nil {
			// Search falls back to scanning posts
			logger.Warn("search index unavailable", "error", err)
		} else {
			defer index.Close()
			postOpts = append(postOpts, service.WithSearchIndex(index))
			healthChecks["search"] = index.Ping
			logger.Info("search index enabled", "index", cfg.MeiliIndex)
		}
	}
	if cfg.S3Endpoint != "" {
		archive, err := storage.NewMinioArchive(ctx, storage.ArchiveConfig{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		}, logger)
		if err != nil {
			log.Fatalf("Failed to setup archive storage: %v", err)
		}
		postOpts = append(postOpts, service.WithArchive(archive))
		healthChecks["archive"] = archive.Ping
		logger.Info("published post archive enabled", "bucket", cfg.S3Bucket)
	}

	postService := service.NewPostService(postRepo, txManager, logger, postOpts...)
	generationService := generation.NewService(provider, modelInfo.Model, prompts, cache, logger)

	logger.Info("services initialized")

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handler.NewHealthHandler(healthChecks).Health)
	handler.NewPostHandler(postService, logger).RegisterRoutes(mux)
	handler.NewGenerationHandler(generationService, logger).RegisterRoutes(mux)

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Logging → Recovery → Auth → Routes
	var h http.Handler = mux
	h = middleware.AuthMiddleware(jwtVerifier, logger)(h)
	h = middleware.Recovery(logger)(h)
	h = middleware.RequestLogger(logger)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOriginList(),
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second, // generation calls can be slow
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
	logger.Info("server stopped")
}

// newVerifier prefers JWKS, then a shared secret. In dev with neither, it
// falls back to a fixed secret and logs a token for local clients.
func newVerifier(cfg *config.Config, logger *slog.Logger) (auth.JWTVerifier, error) {
	if cfg.JWKSURL != "" {
		return auth.NewJWKSVerifier(cfg.JWKSURL, logger)
	}
	if cfg.JWTSecret != "" {
		return auth.NewSecretVerifier(cfg.JWTSecret, logger)
	}
	if cfg.Environment != "dev" {
		return nil, errors.New("JWKS_URL or JWT_SECRET must be set outside dev")
	}

	token, err := auth.IssueToken(devJWTSecret, "dev-user", "", 30*24*time.Hour)
	if err != nil {
		return nil, err
	}
	logger.Warn("DEV MODE: using built-in JWT secret (NEVER use in production!)", "token", token)
	return auth.NewSecretVerifier(devJWTSecret, logger)
}
