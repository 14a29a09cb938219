// Command specialty-loader embeds company specialties from a JSONL file
// and stores them in the vector index used for specialty expansion.
//
// Usage:
//
//	specialty-loader -input specialties.jsonl -workers 4 -batch-size 64
//
// -reset drops the index and all stored terms before loading.
//
// Each input line is {"specialty": "saas", "count": 1200, "rank": 1}.
// Connection and embedding settings come from the service config (ENV).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/seqsearch/internal/config"
	dbRedis "github.com/kailas-cloud/seqsearch/internal/db/redis"
	logpkg "github.com/kailas-cloud/seqsearch/internal/logger"
	"github.com/kailas-cloud/seqsearch/internal/metrics"
	specialtyrepo "github.com/kailas-cloud/seqsearch/internal/repository/specialty"
	openaiEmb "github.com/kailas-cloud/seqsearch/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/seqsearch/internal/usecase/embedding"
	"github.com/kailas-cloud/seqsearch/internal/version"
)

type flags struct {
	input       string
	workers     int
	batchSize   int
	metricsPort string
	reset       bool
}

func parseFlags() flags {
	f := flags{}
	flag.StringVar(&f.input, "input", "specialties.jsonl", "JSONL file with specialties")
	flag.IntVar(&f.workers, "workers", 4, "parallel embed/upsert workers")
	flag.IntVar(&f.batchSize, "batch-size", 64, "specialties per embedding batch")
	flag.StringVar(&f.metricsPort, "metrics-port", "", "serve loader metrics on this port (empty disables)")
	flag.BoolVar(&f.reset, "reset", false, "drop the specialty index and its terms before loading")
	flag.Parse()
	return f
}

func main() {
	f := parseFlags()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(logpkg.Options{
		Env:     env,
		Level:   cfg.Logging.Level,
		Service: "specialty-loader",
		Version: version.Version,
	})
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting specialty loader", append(version.Fields(),
		zap.String("input", f.input),
		zap.Int("workers", f.workers),
		zap.Bool("reset", f.reset),
	)...)

	if err := run(ctx, f, cfg, logger); err != nil {
		logger.Fatal("Load failed", zap.Error(err))
	}
}

func run(ctx context.Context, f flags, cfg config.Config, logger *zap.Logger) error {
	if len(cfg.Vector.Addrs) == 0 {
		return errors.New("vector.addrs is required")
	}
	if cfg.Embedding.Model == "" || cfg.Embedding.Dimensions <= 0 {
		return errors.New("embedding.model and embedding.dimensions are required")
	}

	reg := prometheus.NewRegistry()
	lm := newLoaderMetrics(reg)
	if f.metricsPort != "" {
		srv := serveMetrics(f.metricsPort, reg, logger)
		defer func() {
			shutCtx, shutCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutCancel()
			_ = srv.Shutdown(shutCtx)
		}()
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:      cfg.Vector.Addrs,
		Username:   cfg.Vector.Username,
		Password:   cfg.Vector.Password,
		ClientName: "specialty-loader",
	})
	if err != nil {
		return fmt.Errorf("vector store: %w", err)
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Vector.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("vector store not ready: %w", err)
	}

	repo := specialtyrepo.New(store, cfg.Vector.IndexName, cfg.Vector.KeyPrefix)
	if f.reset {
		if err := repo.Reset(ctx); err != nil {
			return err
		}
		logger.Warn("Specialty index dropped", zap.String("index", repo.Index()))
	}
	created, err := repo.EnsureIndex(ctx, cfg.Embedding.Dimensions)
	if err != nil {
		return err
	}
	logger.Info("Specialty index ready", zap.String("index", repo.Index()), zap.Bool("created", created))

	metrics.RegisterEmbeddingMetrics()
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   "loader",
		Logger:     logger,
	})
	embedder := embeddinguc.NewInstrumentedEmbedder(base, "loader", cfg.Embedding.Model, f.batchSize, logger).
		WithBatchSizes(metrics.EmbeddingBatchSize)

	file, err := os.Open(filepath.Clean(f.input))
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer func() { _ = file.Close() }()

	ing := &ingester{
		embedder:  embedder,
		sink:      repo,
		workers:   max(1, f.workers),
		batchSize: max(1, f.batchSize),
		metrics:   lm,
		logger:    logger,
	}
	res, err := ing.Run(ctx, file)

	total, countErr := repo.Count(ctx)
	logger.Info("Load finished",
		zap.Int64("processed", res.Processed),
		zap.Int64("failed", res.Failed),
		zap.Int64("skipped", res.Skipped),
		zap.Duration("took", res.Duration),
		zap.Int("indexed_total", total),
		zap.NamedError("count_error", countErr),
	)
	if err != nil {
		return err
	}
	if res.Failed > 0 {
		return fmt.Errorf("%d specialties failed to load", res.Failed)
	}
	return nil
}

func serveMetrics(port string, reg *prometheus.Registry, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	// Loader series live on reg; embedding series on the default registry.
	gatherers := prometheus.Gatherers{reg, prometheus.DefaultGatherer}
	mux.Handle("/metrics", promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: ":" + port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()
	return srv
}
