package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/kailas-cloud/seqsearch/internal/config"
	dbOpenSearch "github.com/kailas-cloud/seqsearch/internal/db/opensearch"
	dbRedis "github.com/kailas-cloud/seqsearch/internal/db/redis"
	"github.com/kailas-cloud/seqsearch/internal/domain"
	"github.com/kailas-cloud/seqsearch/internal/domain/search/request"
	"github.com/kailas-cloud/seqsearch/internal/domain/search/translate"
	"github.com/kailas-cloud/seqsearch/internal/domain/session"
	logpkg "github.com/kailas-cloud/seqsearch/internal/logger"
	"github.com/kailas-cloud/seqsearch/internal/metrics"
	companyrepo "github.com/kailas-cloud/seqsearch/internal/repository/company"
	"github.com/kailas-cloud/seqsearch/internal/repository/embcache"
	profilerepo "github.com/kailas-cloud/seqsearch/internal/repository/profile"
	specialtyrepo "github.com/kailas-cloud/seqsearch/internal/repository/specialty"
	chiTransport "github.com/kailas-cloud/seqsearch/internal/transport/chi"
	openaiEmb "github.com/kailas-cloud/seqsearch/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/seqsearch/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/seqsearch/internal/usecase/health"
	profileuc "github.com/kailas-cloud/seqsearch/internal/usecase/profile"
	sequentialuc "github.com/kailas-cloud/seqsearch/internal/usecase/sequential"
	specialtyuc "github.com/kailas-cloud/seqsearch/internal/usecase/specialty"
	"github.com/kailas-cloud/seqsearch/internal/version"
)

var (
	_ sequentialuc.Observer = (*metrics.SearchObserver)(nil)
	_ profileuc.Observer    = (*metrics.SearchObserver)(nil)
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(logpkg.Options{
		Env:     env,
		Level:   cfg.Logging.Level,
		Service: "seqsearch",
		Version: version.Version,
	})
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting seqsearch API server", append(version.Fields(),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("search_endpoints", cfg.Search.Endpoints),
		zap.String("search_auth", cfg.Search.Auth),
		zap.Bool("vector_enabled", cfg.Vector.Enabled),
	)...)

	ctx := context.Background()

	searchStore, err := dbOpenSearch.NewStore(ctx, dbOpenSearch.Config{
		Addresses:  cfg.Search.Endpoints,
		Auth:       cfg.Search.Auth,
		Region:     cfg.Search.Region,
		Service:    cfg.Search.Service,
		Username:   cfg.Search.Username,
		Password:   cfg.Search.Password,
		MaxRetries: cfg.Search.MaxRetries,
	})
	if err != nil {
		logger.Fatal("Failed to create search client", zap.Error(err))
	}

	metrics.RegisterSearchMetrics()
	observer := metrics.DefaultSearchObserver()

	codec, err := session.NewCodec(cfg.Session.Secret, cfg.Session.SessionTTL())
	if err != nil {
		logger.Fatal("Failed to create session codec", zap.Error(err))
	}

	tr := translate.New(translate.Limits{
		CompanyLimit:    cfg.Search.CompanyLimit,
		CompanyTotalCap: cfg.Search.CompanyTotalCap,
		CompanyTimeout:  seconds(cfg.Search.CompanyTimeout),
		ProfileTotalCap: cfg.Search.ProfileTotalCap,
		ProfileTimeout:  seconds(cfg.Search.ProfileTimeout),
	})

	companies := companyrepo.New(searchStore, cfg.Search.CompaniesIndex)
	profiles := profilerepo.New(searchStore, cfg.Search.ProfilesIndex)

	seqSvc := sequentialuc.New(companies, profiles, tr, codec, sequentialuc.Options{
		OffsetCeiling:        cfg.Pagination.OffsetPageCeiling,
		LargeResultThreshold: cfg.Pagination.LargeResultWarning,
		CompanyTimeout:       seconds(cfg.Search.CompanyTimeout),
		ProfileTimeout:       seconds(cfg.Search.ProfileTimeout),
	}).WithObserver(observer)
	profileSvc := profileuc.New(profiles, tr, seconds(cfg.Search.LookupTimeout)).WithObserver(observer)

	// Vector search is optional. Keep the interfaces nil (not typed nil
	// pointers) when it is disabled so health reports "disabled".
	var (
		vectorPinger healthuc.Pinger
		embChecker   healthuc.EmbeddingChecker
		specialtySvc = specialtyuc.New(nil, nil)
	)
	if cfg.Vector.Enabled {
		vectorStore, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:      cfg.Vector.Addrs,
			Username:   cfg.Vector.Username,
			Password:   cfg.Vector.Password,
			ClientName: "seqsearch",
		})
		if err != nil {
			logger.Fatal("Failed to create vector store", zap.Error(err))
		}
		defer vectorStore.Close()

		if err := vectorStore.WaitForReady(ctx, seconds(cfg.Vector.ReadinessTimeout)); err != nil {
			logger.Fatal("Vector store not ready", zap.Error(err))
		}
		logger.Info("Connected to vector store", zap.Strings("addrs", cfg.Vector.Addrs))

		metrics.RegisterEmbeddingMetrics()
		embedder := buildEmbedder(cfg, vectorStore, logger)

		specRepo := specialtyrepo.New(vectorStore, cfg.Vector.IndexName, cfg.Vector.KeyPrefix)
		specialtySvc = specialtyuc.New(specRepo, embedder)
		seqSvc.WithExpander(specialtySvc)

		vectorPinger = vectorStore
		embChecker = newEmbeddingHealthChecker(embedder)

		logger.Info("Specialty search enabled",
			zap.String("index", cfg.Vector.IndexName),
			zap.String("model", cfg.Embedding.Model),
			zap.Int("dimensions", cfg.Embedding.Dimensions),
		)
	}

	healthSvc := healthuc.New(searchStore, vectorPinger, embChecker).
		WithTimeout(seconds(cfg.Search.LookupTimeout))

	server := chiTransport.NewServer(seqSvc, profileSvc, specialtySvc, healthSvc, request.Bounds{
		DefaultPageSize: cfg.Pagination.DefaultPageSize,
		MinPageSize:     cfg.Pagination.MinPageSize,
		MaxPageSize:     cfg.Pagination.MaxPageSize,
		OffsetCeiling:   cfg.Pagination.OffsetPageCeiling,
	}, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(metrics.Middleware())
	server.Mount(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  seconds(cfg.HTTP.ReadTimeoutSec),
		WriteTimeout: seconds(cfg.HTTP.WriteTimeoutSec),
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), seconds(cfg.HTTP.ShutdownSec))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Prefixed.
// The prefix is outermost so the cache key includes the query instruction.
func buildEmbedder(cfg config.Config, store *dbRedis.Store, logger *zap.Logger) domain.Embedder {
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   providerName(cfg.Embedding.BaseURL),
		Logger:     logger,
	})

	cached := embcache.New(base, store, embcache.Options{
		KeyPrefix: cfg.Vector.KeyPrefix,
		TTL:       time.Duration(cfg.Vector.EmbeddingCacheTTLHr) * time.Hour,
	}, metrics.EmbeddingCacheTotal, logger)

	var embedder domain.Embedder = embeddinguc.NewInstrumentedEmbedder(
		cached, providerName(cfg.Embedding.BaseURL), cfg.Embedding.Model, 0, logger,
	).WithBatchSizes(metrics.EmbeddingBatchSize)

	if cfg.Embedding.QueryInstruction != "" {
		embedder = domain.NewPrefixedEmbedder(embedder, cfg.Embedding.QueryInstruction)
	}
	return embedder
}

// embeddingHealthChecker adapts domain.Embedder to health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

func providerName(baseURL string) string {
	if baseURL == "" {
		return "openai"
	}
	return "openai_compatible"
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
