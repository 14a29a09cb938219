package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/seqsearch/internal/domain"
	"github.com/kailas-cloud/seqsearch/internal/domain/specialty"
)

// sink persists embedded specialties.
type sink interface {
	Upsert(ctx context.Context, entries []specialty.Entry, vectors [][]float32) error
}

type loaderMetrics struct {
	rowsProcessed prometheus.Counter
	rowsFailed    *prometheus.CounterVec
	batchDuration prometheus.Histogram
}

func newLoaderMetrics(reg prometheus.Registerer) *loaderMetrics {
	m := &loaderMetrics{
		rowsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "specialty_loader",
			Name:      "rows_processed_total",
			Help:      "Specialties embedded and stored",
		}),
		rowsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "specialty_loader",
			Name:      "rows_failed_total",
			Help:      "Specialties that could not be loaded",
		}, []string{"reason"}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "specialty_loader",
			Name:      "batch_duration_seconds",
			Help:      "Embed and upsert duration per batch",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}
	reg.MustRegister(m.rowsProcessed, m.rowsFailed, m.batchDuration)
	return m
}

// ingester embeds specialty batches and writes them through a worker pool.
type ingester struct {
	embedder  domain.Embedder
	sink      sink
	workers   int
	batchSize int
	metrics   *loaderMetrics
	logger    *zap.Logger
}

type ingestResult struct {
	Processed int64
	Failed    int64
	Skipped   int64
	Duration  time.Duration
}

// Run reads JSONL entries from r and loads them.
func (ing *ingester) Run(ctx context.Context, r io.Reader) (ingestResult, error) {
	batches := make(chan []specialty.Entry, ing.workers*2)
	var wg sync.WaitGroup
	var processed, failed, skipped atomic.Int64

	start := time.Now()

	for i := range ing.workers {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for batch := range batches {
				ing.processBatch(ctx, workerID, batch, &processed, &failed)
			}
		}(i)
	}

	readErr := ing.produce(ctx, r, batches, &skipped)
	close(batches)
	wg.Wait()

	res := ingestResult{
		Processed: processed.Load(),
		Failed:    failed.Load(),
		Skipped:   skipped.Load(),
		Duration:  time.Since(start),
	}
	return res, readErr
}

func (ing *ingester) produce(
	ctx context.Context,
	r io.Reader,
	out chan<- []specialty.Entry,
	skipped *atomic.Int64,
) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	seen := make(map[string]struct{})
	batch := make([]specialty.Entry, 0, ing.batchSize)
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("read specialties: %w", err)
		}

		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		entry, ok := parseEntry(raw)
		if !ok {
			ing.logger.Warn("skipping malformed line", zap.Int("line", line))
			ing.metrics.rowsFailed.WithLabelValues("malformed").Inc()
			skipped.Add(1)
			continue
		}
		key := strings.ToLower(entry.Term)
		if _, dup := seen[key]; dup {
			skipped.Add(1)
			continue
		}
		seen[key] = struct{}{}

		batch = append(batch, entry)
		if len(batch) >= ing.batchSize {
			out <- batch
			batch = make([]specialty.Entry, 0, ing.batchSize)
		}
	}
	if len(batch) > 0 {
		out <- batch
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read specialties: %w", err)
	}
	return nil
}

func (ing *ingester) processBatch(
	ctx context.Context,
	workerID int,
	batch []specialty.Entry,
	processed, failed *atomic.Int64,
) {
	start := time.Now()
	defer func() { ing.metrics.batchDuration.Observe(time.Since(start).Seconds()) }()

	texts := make([]string, len(batch))
	for i, e := range batch {
		texts[i] = e.Term
	}

	res, err := domain.EmbedAll(ctx, ing.embedder, texts)
	if err != nil {
		ing.fail(workerID, batch, "embed_error", err, failed)
		return
	}
	if err := ing.sink.Upsert(ctx, batch, res.Embeddings); err != nil {
		ing.fail(workerID, batch, "upsert_error", err, failed)
		return
	}

	processed.Add(int64(len(batch)))
	ing.metrics.rowsProcessed.Add(float64(len(batch)))
}

func (ing *ingester) fail(workerID int, batch []specialty.Entry, reason string, err error, failed *atomic.Int64) {
	ing.logger.Error("batch failed",
		zap.Int("worker", workerID),
		zap.String("reason", reason),
		zap.Int("size", len(batch)),
		zap.Error(err),
	)
	failed.Add(int64(len(batch)))
	ing.metrics.rowsFailed.WithLabelValues(reason).Add(float64(len(batch)))
}

// parseEntry accepts {"specialty":..., "count":..., "rank":...}.
func parseEntry(raw string) (specialty.Entry, bool) {
	var e specialty.Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return specialty.Entry{}, false
	}
	e.Term = strings.TrimSpace(e.Term)
	if e.Term == "" || e.Count < 0 || e.Rank < 0 {
		return specialty.Entry{}, false
	}
	return e, true
}
