package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-originality/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-originality/internal/adapters/driven/auth"
	"github.com/custodia-labs/sercha-originality/internal/adapters/driven/memory"
	"github.com/custodia-labs/sercha-originality/internal/adapters/driven/postgres"
	redisadapter "github.com/custodia-labs/sercha-originality/internal/adapters/driven/redis"
	"github.com/custodia-labs/sercha-originality/internal/adapters/driven/sqlite"
	"github.com/custodia-labs/sercha-originality/internal/adapters/driving/http"
	"github.com/custodia-labs/sercha-originality/internal/config"
	"github.com/custodia-labs/sercha-originality/internal/core/domain"
	"github.com/custodia-labs/sercha-originality/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-originality/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-originality/internal/core/services"
	"github.com/custodia-labs/sercha-originality/internal/detection"
	"github.com/custodia-labs/sercha-originality/internal/normalisers"
	"github.com/custodia-labs/sercha-originality/internal/runtime"
	"github.com/custodia-labs/sercha-originality/internal/worker"
)

// app holds the assembled adapters and services for one process
type app struct {
	cfg    *config.Config
	logger *slog.Logger

	corpus  driven.CorpusStore
	vectors driven.VectorIndex
	reports driven.ReportStore
	lock    driven.DistributedLock
	queue   driven.TaskQueue
	cache   driven.EmbeddingCache

	runtime *runtime.Services

	authService   driving.AuthService
	checkService  driving.CheckService
	corpusService driving.CorpusService
	reportService driving.ReportService

	closers []func() error
}

// newApp connects the configured backends and builds the services
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, logger: cfg.Logger()}
	slog.SetDefault(a.logger)

	if err := a.initStorage(ctx); err != nil {
		a.close()
		return nil, err
	}
	if err := a.initCoordination(ctx); err != nil {
		a.close()
		return nil, err
	}

	cacheBackend := "memory"
	if cfg.RedisURL != "" {
		cacheBackend = "redis"
	}
	a.runtime = runtime.NewServices(domain.NewRuntimeConfig(cfg.Storage, cacheBackend))
	a.closers = append(a.closers, a.runtime.Close)
	a.initEmbedding(ctx)

	embedder := detection.NewEmbedder(a.embedderConfig(), a.cache, a.logger)
	indexes, err := detection.NewIndexCache(cfg.IndexCacheSize)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("failed to create index cache: %w", err)
	}

	params := cfg.CorpusParams()
	formats := normalisers.DefaultRegistry()
	tokens := auth.NewAdapter(cfg.JWTSecret)
	a.authService = services.NewAuthService(tokens, cfg.TokenTTL)
	a.checkService = services.NewCheckService(a.corpus, a.vectors, embedder, indexes, a.runtime, formats, cfg.Detection, a.logger)
	a.corpusService = services.NewCorpusService(a.corpus, a.lock, a.queue, embedder, a.runtime, formats, params, a.logger)
	if cfg.History {
		a.reportService = services.NewReportService(a.reports, a.logger)
	}

	rc := a.runtime.Config()
	log.Printf("Runtime config: store_backend=%s, cache_backend=%s, embedding=%t, history=%t",
		rc.StoreBackend, rc.CacheBackend, rc.EmbeddingAvailable(), cfg.History)

	return a, nil
}

// initStorage opens the corpus, vector and report stores
func (a *app) initStorage(ctx context.Context) error {
	params := a.cfg.CorpusParams()

	switch a.cfg.Storage {
	case config.StoragePostgres:
		log.Println("Connecting to PostgreSQL...")
		db, err := postgres.Connect(ctx, postgres.Config{
			URL:             a.cfg.DatabaseURL,
			MaxOpenConns:    a.cfg.DB.MaxOpenConns,
			MaxIdleConns:    a.cfg.DB.MaxIdleConns,
			ConnMaxLifetime: a.cfg.DB.ConnMaxLifetime,
			ConnMaxIdleTime: a.cfg.DB.ConnMaxIdleTime,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)

		// Initialize schema (idempotent)
		if err := db.InitSchema(ctx); err != nil {
			return err
		}
		log.Println("PostgreSQL connected and schema initialized")

		a.corpus = postgres.NewCorpusStore(db, params)
		a.vectors = postgres.NewVectorIndex(db)
		a.reports = postgres.NewReportStore(db)
		a.lock = postgres.NewAdvisoryLock(db)

	case config.StorageSQLite:
		store, err := sqlite.NewStore(a.cfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("failed to open sqlite store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		log.Printf("Using SQLite store at %s", store.Path())

		vectors := memory.NewVectorIndex()
		a.corpus = store.CorpusStore(params).WithVectorIndex(vectors)
		a.vectors = vectors
		a.reports = store.ReportStore()
		if err := a.warmVectors(ctx, vectors); err != nil {
			return err
		}

	default:
		log.Println("Using in-memory store (corpus is lost on restart)")
		vectors := memory.NewVectorIndex()
		a.corpus = memory.NewCorpusStore(params).WithVectorIndex(vectors)
		a.vectors = vectors
		a.reports = memory.NewReportStore()
	}
	return nil
}

// warmVectors reads the persisted corpus once, which loads its embeddings
// into the in-process index
func (a *app) warmVectors(ctx context.Context, vectors *memory.VectorIndex) error {
	snap, err := a.corpus.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to read corpus: %w", err)
	}
	log.Printf("Loaded %d of %d source vectors", vectors.Len(), len(snap.Sources))
	return nil
}

// initCoordination picks the lock, task queue and shared embedding cache:
// Redis when REDIS_URL is set, otherwise in-process implementations.
func (a *app) initCoordination(ctx context.Context) error {
	if a.cfg.RedisURL == "" {
		if a.lock == nil {
			a.lock = memory.NewLock()
			log.Println("Using in-memory lock")
		} else {
			log.Println("Using PostgreSQL advisory lock")
		}
		a.queue = memory.NewTaskQueue(a.cfg.QueueCapacity)
		ec := a.embedderConfig()
		a.cache = memory.NewEmbeddingCache(ec.CacheSize, ec.CacheTTL)
		log.Println("Using in-memory task queue and embedding cache")
		return nil
	}

	log.Println("Connecting to Redis...")
	opts, err := redis.ParseURL(a.cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	a.closers = append(a.closers, client.Close)
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Println("Redis connected")

	queue, err := redisadapter.NewTaskQueue(ctx, client, fmt.Sprintf("worker-%d", os.Getpid()))
	if err != nil {
		return fmt.Errorf("failed to create task queue: %w", err)
	}
	a.queue = queue
	a.lock = redisadapter.NewLock(client)
	a.cache = redisadapter.NewEmbeddingCache(client, a.embedderConfig().CacheTTL)
	log.Println("Using Redis task queue, lock and embedding cache")
	return nil
}

// initEmbedding configures the embedding provider. A provider that fails its
// health check is logged and left unset so checks run without the semantic
// layer.
func (a *app) initEmbedding(ctx context.Context) {
	svc, err := ai.NewFactory().CreateEmbeddingService(&a.cfg.Embedding)
	if err != nil {
		log.Printf("Warning: embedding provider not created: %v", err)
		return
	}
	if svc == nil {
		log.Println("No embedding provider configured, semantic layer disabled")
		return
	}
	if err := a.runtime.ValidateAndSetEmbedding(ctx, svc); err != nil {
		log.Printf("Warning: embedding provider health check failed: %v (semantic layer disabled)", err)
		return
	}
	log.Printf("Embedding provider %s ready (model=%s, dimensions=%d)", a.cfg.Embedding.Provider, svc.Model(), svc.Dimensions())
}

func (a *app) embedderConfig() detection.EmbedderConfig {
	cfg := detection.DefaultEmbedderConfig()
	p := a.cfg.Embedder
	if p.BatchSize > 0 {
		cfg.BatchSize = p.BatchSize
	}
	if p.Concurrency > 0 {
		cfg.Concurrency = p.Concurrency
	}
	if p.CacheSize > 0 {
		cfg.CacheSize = p.CacheSize
	}
	if p.CacheTTL > 0 {
		cfg.CacheTTL = p.CacheTTL
	}
	return cfg
}

// dependencies lists the backends reported by /ready
func (a *app) dependencies() map[string]http.Pinger {
	return map[string]http.Pinger{
		"corpus":          a.corpus,
		"vectors":         a.vectors,
		"lock":            a.lock,
		"queue":           a.queue,
		"embedding_cache": a.cache,
	}
}

func (a *app) newServer() *http.Server {
	return http.NewServer(
		http.Config{
			Host:           a.cfg.Host,
			Port:           a.cfg.Port,
			Version:        version,
			MaxBodyBytes:   a.cfg.MaxBodyBytes,
			AllowedOrigins: a.cfg.AllowedOrigins,
			Logger:         a.logger,
			Semantic:       a.runtime,
		},
		a.authService,
		a.checkService,
		a.corpusService,
		a.reportService,
		a.dependencies(),
	)
}

func (a *app) newWorker() *worker.Worker {
	return worker.NewWorker(worker.WorkerConfig{
		TaskQueue:      a.queue,
		Corpus:         a.corpusService,
		Reports:        a.reportService,
		Logger:         a.logger,
		Concurrency:    a.cfg.WorkerConcurrency,
		DequeueTimeout: a.cfg.WorkerDequeueTimeout,
	})
}

// newScheduler returns the retention scheduler, or nil when check history
// is disabled or kept forever
func (a *app) newScheduler() *services.Scheduler {
	if a.reportService == nil || a.cfg.HistoryRetention <= 0 {
		return nil
	}
	return services.NewScheduler(services.SchedulerConfig{
		TaskQueue: a.queue,
		Lock:      a.lock,
		Logger:    a.logger,
		Jobs:      []services.Job{services.RetentionJob(a.cfg.HistoryRetention, a.cfg.RetentionInterval)},
	})
}

// close releases backends in reverse order of acquisition
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
