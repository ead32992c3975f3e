package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/archivist/internal/config"
	"github.com/kailas-cloud/archivist/internal/db"
	dbRedis "github.com/kailas-cloud/archivist/internal/db/redis"
	"github.com/kailas-cloud/archivist/internal/domain"
	"github.com/kailas-cloud/archivist/internal/domain/search/namespace"
	logpkg "github.com/kailas-cloud/archivist/internal/logger"
	"github.com/kailas-cloud/archivist/internal/metrics"
	"github.com/kailas-cloud/archivist/internal/repository/embcache"
	chiTransport "github.com/kailas-cloud/archivist/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/archivist/internal/transport/openai"
	compileuc "github.com/kailas-cloud/archivist/internal/usecase/compile"
	embeddinguc "github.com/kailas-cloud/archivist/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/archivist/internal/usecase/health"
	"github.com/kailas-cloud/archivist/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting archivist API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("rules", cfg.Rules.Path),
		zap.Strings("cache_addrs", cfg.Cache.Addrs),
	)

	registry, err := config.LoadRules(cfg.Rules.Path)
	if err != nil {
		logger.Fatal("Failed to load rules", zap.Error(err))
	}
	logger.Info("Rules loaded",
		zap.Int("namespaces", len(registry.Namespaces())),
		zap.Strings("languages", registry.Languages()),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterCompileMetrics()

	// Embedding cache is optional
	ctx := context.Background()
	var store db.Store
	if cfg.Cache.Enabled() {
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			logger.Fatal("Failed to create cache store", zap.Error(err))
		}
		defer s.Close()

		if err := s.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Cache not ready", zap.Error(err))
		}
		logger.Info("Connected to embedding cache")
		store = s
	}

	models, checkers := buildModels(cfg, store, logger)
	warnUnservedModels(registry, models, logger)

	compileSvc := compileuc.New(registry)
	embeddingSvc := embeddinguc.New(models)

	// Pass a nil interface (not a typed nil pointer) when the cache is disabled.
	var cachePinger healthuc.CachePinger
	if store != nil {
		cachePinger = store
	}
	healthSvc := healthuc.New(cachePinger, checkers)

	server := chiTransport.NewServer(compileSvc, embeddingSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware("/metrics"))
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildModels assembles one embedder chain per model tag and one health
// checker per provider.
func buildModels(
	cfg config.Config, store db.Store, logger *zap.Logger,
) (map[string]embeddinguc.Model, map[string]healthuc.EmbeddingChecker) {
	models := make(map[string]embeddinguc.Model, len(cfg.Embedding.Models))
	checkers := make(map[string]healthuc.EmbeddingChecker)

	for tag, mc := range cfg.Embedding.Models {
		provCfg := cfg.Embedding.Providers[mc.Provider]
		base := openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     provCfg.APIKey,
			BaseURL:    provCfg.BaseURL,
			Model:      mc.Model,
			Dimensions: mc.Dimensions,
			Provider:   mc.Provider,
			Logger:     logger,
		})
		if _, ok := checkers[mc.Provider]; !ok {
			checkers[mc.Provider] = base
		}

		models[tag] = embeddinguc.Model{
			Embedder:   buildEmbedder(tag, mc, base, store, cfg.Cache, logger),
			Dimensions: mc.Dimensions,
		}
		logger.Info("Embedding model configured",
			zap.String("tag", tag),
			zap.String("provider", mc.Provider),
			zap.String("model", mc.Model),
			zap.Int("dimensions", mc.Dimensions),
		)
	}
	return models, checkers
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	tag string,
	mc config.ModelConfig,
	base domain.Embedder,
	store db.Store,
	cacheCfg config.CacheConfig,
	logger *zap.Logger,
) domain.Embedder {
	embedder := base
	if store != nil {
		embedder = embcache.New(base, store, embcache.Options{
			KeyPrefix: cacheCfg.KeyPrefix,
			Model:     tag,
			TTL:       time.Duration(cacheCfg.TTLSec) * time.Second,
		}, metrics.EmbeddingCacheTotal, logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, tag, mc.Provider, mc.Model, logger)

	// Instruction prefix (outermost, so the cache key includes the instruction)
	if mc.QueryInstruction != "" {
		return domain.NewInstructionEmbedder(embedder, mc.QueryInstruction)
	}
	return embedder
}

// warnUnservedModels logs model tags the rules accept but no embedder serves.
// Such references can still be compiled; they just cannot be produced here.
func warnUnservedModels(registry *namespace.Registry, models map[string]embeddinguc.Model, logger *zap.Logger) {
	for _, ns := range registry.Namespaces() {
		env, err := registry.Env(ns)
		if err != nil {
			continue
		}
		for tag := range env.Embeddings {
			if _, ok := models[tag]; !ok {
				logger.Warn("Embedding model has no provider",
					zap.String("namespace", string(ns)),
					zap.String("model", tag),
				)
			}
		}
	}
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Code:    chiTransport.ErrorCodeInternalError,
						Message: "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			}
			if ns := chi.URLParamFromCtx(r.Context(), "namespace"); ns != "" {
				fields = append(fields, zap.String("namespace", ns))
			}

			// Canonical log line, one per request
			reqLogger.Info("http_request", fields...)
		})
	}
}
