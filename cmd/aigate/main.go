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

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/aigate/internal/config"
	dbRedis "github.com/kailas-cloud/aigate/internal/db/redis"
	"github.com/kailas-cloud/aigate/internal/domain"
	logpkg "github.com/kailas-cloud/aigate/internal/logger"
	"github.com/kailas-cloud/aigate/internal/metrics"
	"github.com/kailas-cloud/aigate/internal/repository/docindex"
	"github.com/kailas-cloud/aigate/internal/repository/respcache"
	usagerepo "github.com/kailas-cloud/aigate/internal/repository/usage"
	chiTransport "github.com/kailas-cloud/aigate/internal/transport/chi"
	localProv "github.com/kailas-cloud/aigate/internal/transport/local"
	openaiProv "github.com/kailas-cloud/aigate/internal/transport/openai"
	"github.com/kailas-cloud/aigate/internal/upstream"
	dispatchuc "github.com/kailas-cloud/aigate/internal/usecase/dispatch"
	healthuc "github.com/kailas-cloud/aigate/internal/usecase/health"
	indexeruc "github.com/kailas-cloud/aigate/internal/usecase/indexer"
	retrievaluc "github.com/kailas-cloud/aigate/internal/usecase/retrieval"
	"github.com/kailas-cloud/aigate/internal/usecase/router"
	usageuc "github.com/kailas-cloud/aigate/internal/usecase/usage"
	"github.com/kailas-cloud/aigate/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting aigate API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
		DB:       cfg.Database.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterDispatchMetrics()

	// Providers
	primary := openaiProv.New(&openaiProv.Config{
		APIKey:         cfg.Providers.Primary.APIKey,
		BaseURL:        cfg.Providers.Primary.BaseURL,
		ChatModel:      cfg.Providers.Primary.ChatModel,
		EmbeddingModel: cfg.Providers.Primary.EmbeddingModel,
		Dimensions:     cfg.Providers.Primary.Dimensions,
		Logger:         logger,
	})
	var secondary *openaiProv.Provider
	if cfg.Providers.Secondary != nil {
		secondary = openaiProv.New(&openaiProv.Config{
			APIKey:         cfg.Providers.Secondary.APIKey,
			BaseURL:        cfg.Providers.Secondary.BaseURL,
			ChatModel:      cfg.Providers.Secondary.ChatModel,
			EmbeddingModel: cfg.Providers.Secondary.EmbeddingModel,
			Dimensions:     cfg.Providers.Secondary.Dimensions,
			Logger:         logger,
		})
	}
	local := localProv.New()

	// Routing
	routerCfg, err := buildRouterConfig(cfg)
	if err != nil {
		logger.Fatal("Invalid routing config", zap.Error(err))
	}
	rt := router.New(routerCfg)
	if err := rt.ValidateChain(); err != nil {
		logger.Fatal("Invalid fallback chain", zap.Error(err))
	}

	// Quota ledger
	limits, err := tierLimits(cfg.Tiers.DailyLimits)
	if err != nil {
		logger.Fatal("Invalid tier limits", zap.Error(err))
	}
	retention := time.Duration(cfg.Tiers.RetentionDays) * 24 * time.Hour
	ledger := usagerepo.New(store, limits, retention, logger)

	// Response cache
	ttls := respcache.DefaultTTLs()
	for name, sec := range cfg.Cache.TTLSec {
		reqType := domain.RequestType(name)
		if !reqType.IsValid() {
			logger.Fatal("Unknown request type in cache config", zap.String("type", name))
		}
		ttls[reqType] = time.Duration(sec) * time.Second
	}
	cache := respcache.New(store, ttls, metrics.ResponseCacheTotal, logger)

	// Dispatch
	registry := dispatchuc.Registry{Primary: primary, Local: local}
	if secondary != nil {
		registry.Secondary = secondary
	}
	dispatcher := dispatchuc.New(ledger, cache, rt, registry,
		time.Duration(cfg.Providers.AttemptTimeoutSec)*time.Second, logger)

	// Search indexes
	lexical := docindex.NewLexical(store)
	vector := docindex.NewVector(store, cfg.Providers.Primary.Dimensions)
	if err := lexical.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to create document index", zap.Error(err))
	}
	if err := vector.EnsureIndex(ctx); err != nil {
		logger.Fatal("Failed to create chunk index", zap.Error(err))
	}

	// Upstream admin API
	adminAPI := upstream.NewClient(cfg.Upstream.BaseURL, cfg.Upstream.Token,
		time.Duration(cfg.Upstream.TimeoutSec)*time.Second)

	// Use cases
	searchSvc := retrievaluc.New(lexical, vector, dispatcher, cfg.Retrieval.MinVectorScore, logger)
	indexerSvc := indexeruc.New(adminAPI, lexical, vector, primary,
		cfg.Chunking.TargetSize, cfg.Chunking.Overlap, logger)
	usageSvc := usageuc.New(ledger)

	providerChecks := map[string]healthuc.ProviderChecker{"primary": primary}
	if secondary != nil {
		providerChecks["secondary"] = secondary
	}
	healthSvc := healthuc.New(store, providerChecks)

	server := chiTransport.NewServer(
		dispatcher, searchSvc, indexerSvc, usageSvc, healthSvc,
		adminAPI, adminAPI, logger,
	).WithSearchLimits(cfg.Retrieval.DefaultLimit, cfg.Retrieval.MaxLimit)

	handler := server.Routes(
		jsonRecoverer(logger),
		chiMiddleware.RequestID,
		wideEventMiddleware(logger),
		chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys),
		metrics.Middleware(),
	)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
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

// buildRouterConfig translates the YAML routing section into domain terms.
func buildRouterConfig(cfg config.Config) (router.Config, error) {
	rcfg := router.Config{
		HasSecondary:     cfg.Providers.Secondary != nil,
		FreePrimaryQuota: cfg.Routing.FreePrimaryQuota,
	}

	if len(cfg.Routing.EnterprisePrefs) > 0 {
		rcfg.EnterprisePrefs = make(map[domain.RequestType]domain.ProviderID)
		for typ, name := range cfg.Routing.EnterprisePrefs {
			rt := domain.RequestType(typ)
			if !rt.IsValid() {
				return router.Config{}, fmt.Errorf("unknown request type %q", typ)
			}
			id, err := parseProvider(name)
			if err != nil {
				return router.Config{}, err
			}
			rcfg.EnterprisePrefs[rt] = id
		}
	}

	if len(cfg.Routing.Fallback) > 0 {
		rcfg.Fallback = make(map[domain.ProviderID]domain.ProviderID)
		for from, to := range cfg.Routing.Fallback {
			fromID, err := parseProvider(from)
			if err != nil {
				return router.Config{}, err
			}
			toID, err := parseProvider(to)
			if err != nil {
				return router.Config{}, err
			}
			rcfg.Fallback[fromID] = toID
		}
	}

	return rcfg, nil
}

func parseProvider(name string) (domain.ProviderID, error) {
	switch name {
	case "primary":
		return domain.ProviderPrimary, nil
	case "secondary":
		return domain.ProviderSecondary, nil
	case "local":
		return domain.ProviderLocal, nil
	default:
		return domain.ProviderNone, fmt.Errorf("unknown provider %q", name)
	}
}

func tierLimits(limits map[string]int64) (map[domain.Tier]int64, error) {
	out := make(map[domain.Tier]int64, len(limits))
	for name, limit := range limits {
		tier, err := domain.ParseTier(name)
		if err != nil {
			return nil, err
		}
		if limit < 0 {
			limit = domain.Unlimited
		}
		out[tier] = limit
	}
	return out, nil
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
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
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

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
