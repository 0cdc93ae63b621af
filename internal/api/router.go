package api

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/Harshitk-cp/memora/internal/api/handlers"
	mw "github.com/Harshitk-cp/memora/internal/api/middleware"
	"github.com/Harshitk-cp/memora/internal/buildconfig"
	"github.com/Harshitk-cp/memora/internal/config"
	"github.com/Harshitk-cp/memora/internal/domain"
	"github.com/Harshitk-cp/memora/internal/embedding"
	"github.com/Harshitk-cp/memora/internal/llm"
	"github.com/Harshitk-cp/memora/internal/metrics"
	"github.com/Harshitk-cp/memora/internal/service"
	"github.com/Harshitk-cp/memora/internal/store"
	"github.com/Harshitk-cp/memora/internal/tasks"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	rateLimitCleanupInterval = 5 * time.Minute
	redisPingTimeout         = 2 * time.Second
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the router is built from. NewApp fills them
// from config; tests supply fakes.
type Deps struct {
	DB        pinger
	Tenants   domain.TenantStore
	Agents    domain.AgentStore
	Facts     domain.FactStore
	LLM       domain.LLMClient
	Embedding domain.EmbeddingClient
	Tasks     tasks.Backend
	Metrics   *metrics.Metrics

	RateLimitRPS         float64
	RateLimitBurst       int
	OpinionMinConfidence float64
}

// App holds the router and background services for lifecycle management.
type App struct {
	Router       *chi.Mux
	Tasks        tasks.Backend
	Metrics      *metrics.Metrics
	limiter      *mw.RateLimiter
	redis        *redis.Client
	cancel       context.CancelFunc
	startTime    time.Time
	requestCount atomic.Int64
	errorCount   atomic.Int64
}

func NewApp(db *pgxpool.Pool, logger *zap.Logger) *App {
	m := metrics.New()

	llmProvider := config.LLMProvider()
	llmClient, err := llm.NewClient(llm.Config{
		Provider: llmProvider,
		APIKey:   config.LLMAPIKey(),
		Model:    config.LLMModel(),
		BaseURL:  config.LLMBaseURL(),
	})
	if err != nil {
		logger.Warn("LLM client initialization failed", zap.String("provider", llmProvider), zap.Error(err))
	} else {
		logger.Info("LLM client initialized", zap.String("provider", llmProvider))
	}

	embeddingProvider := config.EmbeddingProvider()
	embeddingClient, err := embedding.NewClient(embeddingProvider, config.EmbeddingAPIKey())
	if err != nil {
		logger.Warn("Embedding client initialization failed", zap.String("provider", embeddingProvider), zap.Error(err))
	} else {
		logger.Info("Embedding client initialized", zap.String("provider", embeddingProvider))
	}

	backend, rdb := newTaskBackend(logger, m)

	app := newApp(Deps{
		DB:                   db,
		Tenants:              store.NewTenantStore(db),
		Agents:               store.NewAgentStore(db),
		Facts:                store.NewFactStore(db),
		LLM:                  llmClient,
		Embedding:            embeddingClient,
		Tasks:                backend,
		Metrics:              m,
		RateLimitRPS:         config.RateLimitRPS(),
		RateLimitBurst:       config.RateLimitBurst(),
		OpinionMinConfidence: config.OpinionMinConfidence(),
	}, logger)
	app.redis = rdb
	return app
}

// newTaskBackend picks the configured task backend. A Redis backend that
// cannot be reached at startup falls back to the in-process queue.
func newTaskBackend(logger *zap.Logger, m *metrics.Metrics) (tasks.Backend, *redis.Client) {
	memoryBackend := func() tasks.Backend {
		return tasks.NewMemoryBackend(tasks.MemoryConfig{
			Workers:     config.TaskWorkers(),
			QueueSize:   config.TaskQueueSize(),
			TaskTimeout: config.TaskTimeout(),
		}, logger, m)
	}

	if config.TaskBackend() != "redis" {
		logger.Info("task backend initialized", zap.String("backend", "memory"))
		return memoryBackend(), nil
	}

	opts, err := redis.ParseURL(config.RedisURL())
	if err != nil {
		logger.Warn("invalid REDIS_URL, using in-process task queue", zap.Error(err))
		return memoryBackend(), nil
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, using in-process task queue", zap.Error(err))
		_ = rdb.Close()
		return memoryBackend(), nil
	}

	logger.Info("task backend initialized", zap.String("backend", "redis"), zap.String("stream", config.TaskStream()))
	return tasks.NewRedisBackend(rdb, tasks.RedisConfig{
		Stream:      config.TaskStream(),
		Group:       config.TaskGroup(),
		Workers:     config.TaskWorkers(),
		TaskTimeout: config.TaskTimeout(),
	}, logger, m), rdb
}

func newApp(d Deps, logger *zap.Logger) *App {
	// Services
	agentSvc := service.NewAgentService(d.Agents, d.Facts)
	factSvc := service.NewFactService(d.Facts, d.Embedding, logger)
	searchSvc := service.NewSearchService(d.Facts, d.Embedding, logger)

	opinionCfg := service.DefaultOpinionConfig()
	opinionCfg.MinConfidence = d.OpinionMinConfidence
	opinionSvc := service.NewOpinionService(d.LLM, factSvc, opinionCfg, logger)
	opinionSvc.SetMetrics(d.Metrics)

	thinkSvc := service.NewThinkService(searchSvc, d.LLM, d.Tasks, service.DefaultThinkConfig(), logger)
	thinkSvc.SetMetrics(d.Metrics)

	d.Tasks.Register(domain.TaskTypeFormOpinion, opinionSvc.HandleTask)

	// Handlers
	tenantHandler := handlers.NewTenantHandler(d.Tenants)
	agentHandler := handlers.NewAgentHandler(agentSvc, factSvc)
	memoryHandler := handlers.NewMemoryHandler(factSvc, agentSvc)
	searchHandler := handlers.NewSearchHandler(searchSvc, agentSvc)
	thinkHandler := handlers.NewThinkHandler(thinkSvc, agentSvc)

	r := chi.NewRouter()

	app := &App{
		Router:    r,
		Tasks:     d.Tasks,
		Metrics:   d.Metrics,
		limiter:   mw.NewRateLimiter(d.RateLimitRPS, d.RateLimitBurst),
		startTime: time.Now(),
	}

	metricsCollector := mw.NewMetricsCollector(&app.requestCount, &app.errorCount, d.Metrics)

	// Global middleware (order matters)
	r.Use(mw.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metricsCollector.Middleware)
	r.Use(mw.Logging(logger))
	r.Use(middleware.Recoverer)

	// Health, metrics and stats (no auth)
	r.Get("/health", healthHandler(d.DB))
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	r.Get("/stats", app.statsHandler())

	r.Route("/v1", func(r chi.Router) {
		// Tenant creation is the bootstrap endpoint, limited per client IP.
		r.With(app.limiter.Middleware).Post("/tenants", tenantHandler.Create)

		r.Group(func(r chi.Router) {
			r.Use(mw.APIKeyAuth(d.Tenants))
			r.Use(app.limiter.Middleware)

			r.Route("/agents", func(r chi.Router) {
				r.Post("/", agentHandler.Create)
				r.Get("/", agentHandler.List)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", agentHandler.GetByID)
					r.Delete("/", agentHandler.Delete)
					r.Delete("/memories", agentHandler.ClearMemories)
				})
			})

			r.Route("/memories", func(r chi.Router) {
				r.Post("/", memoryHandler.Put)
				r.Post("/batch", memoryHandler.PutBatch)
			})

			r.Post("/search", searchHandler.Search)
			r.Post("/think", thinkHandler.Think)
		})
	})

	return app
}

// Start launches the task workers and the rate limiter cleanup loop.
func (app *App) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	app.cancel = cancel
	app.Tasks.Start()
	go app.limiter.Run(ctx, rateLimitCleanupInterval)
}

// Stop drains the task backend and releases the Redis connection.
func (app *App) Stop() {
	if app.cancel != nil {
		app.cancel()
	}
	app.Tasks.Stop()
	if app.redis != nil {
		_ = app.redis.Close()
	}
}

func healthHandler(db pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_ = json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}

func (app *App) statsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var memStats runtime.MemStats
		runtime.ReadMemStats(&memStats)

		uptime := time.Since(app.startTime)

		response := map[string]any{
			"uptime_seconds": uptime.Seconds(),
			"uptime_human":   uptime.Round(time.Second).String(),
			"request_count":  app.requestCount.Load(),
			"error_count":    app.errorCount.Load(),
			"goroutines":     runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       float64(memStats.Alloc) / 1024 / 1024,
				"total_alloc_mb": float64(memStats.TotalAlloc) / 1024 / 1024,
				"sys_mb":         float64(memStats.Sys) / 1024 / 1024,
				"num_gc":         memStats.NumGC,
			},
			"go_version": runtime.Version(),
			"build":      buildconfig.VersionInfo(),
		}
		if mb, ok := app.Tasks.(*tasks.MemoryBackend); ok {
			response["tasks_pending"] = mb.Pending()
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(response)
	}
}

// Ensure stores, clients and backends satisfy interfaces at compile time.
var (
	_ domain.TenantStore     = (*store.TenantStore)(nil)
	_ domain.AgentStore      = (*store.AgentStore)(nil)
	_ domain.FactStore       = (*store.FactStore)(nil)
	_ domain.EmbeddingClient = (*embedding.OpenAIClient)(nil)
	_ domain.EmbeddingClient = (*embedding.MockClient)(nil)
	_ domain.LLMClient       = (*llm.OpenAIClient)(nil)
	_ domain.LLMClient       = (*llm.AnthropicClient)(nil)
	_ domain.LLMClient       = (*llm.GeminiClient)(nil)
	_ domain.LLMClient       = (*llm.MockClient)(nil)
	_ tasks.Backend          = (*tasks.MemoryBackend)(nil)
	_ tasks.Backend          = (*tasks.RedisBackend)(nil)
	_ service.TaskSink       = (tasks.Backend)(nil)
	_ service.Retriever      = (*service.SearchService)(nil)
	_ service.FactWriter     = (*service.FactService)(nil)
)
