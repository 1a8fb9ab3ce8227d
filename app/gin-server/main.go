package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/yoockh/voicedesk/config"
	"github.com/yoockh/voicedesk/internal/api/handlers"
	"github.com/yoockh/voicedesk/internal/api/middleware"
	"github.com/yoockh/voicedesk/internal/api/routes"
	"github.com/yoockh/voicedesk/internal/cache"
	"github.com/yoockh/voicedesk/internal/logger"
	"github.com/yoockh/voicedesk/internal/metrics"
	"github.com/yoockh/voicedesk/internal/providers/chatkit"
	"github.com/yoockh/voicedesk/internal/providers/llm"
	"github.com/yoockh/voicedesk/internal/providers/telephony"
	"github.com/yoockh/voicedesk/internal/repositories"
	"github.com/yoockh/voicedesk/internal/repositories/cached"
	mongorepo "github.com/yoockh/voicedesk/internal/repositories/mongo"
	pgrepo "github.com/yoockh/voicedesk/internal/repositories/postgres"
	"github.com/yoockh/voicedesk/internal/services"
	"github.com/yoockh/voicedesk/internal/storage"
	"github.com/yoockh/voicedesk/internal/workers"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			log.WithError(err).Warn("sentry init failed")
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}

func run(ctx context.Context, cfg config.Config, log *logrus.Logger) error {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	// Redis is optional: without it there is no cache, no prefetch queue and
	// no status websocket.
	var rdb *redis.Client
	if cfg.RedisURL != "" {
		c, err := config.OpenRedis(ctx, cfg)
		if err != nil {
			log.WithError(err).Warn("redis unavailable, continuing without cache and queue")
		} else {
			rdb = c
			defer rdb.Close()
			log.Info("redis connected")
		}
	}

	durable, closeStore := openStore(ctx, cfg, log)
	defer closeStore()

	var store repositories.AnalysisRepository
	switch {
	case rdb != nil:
		store = cached.NewAnalysisRepo(durable, cache.NewRedisCache(rdb, ""), cfg.CacheTTL, log)
	case durable != nil:
		store = durable
	default:
		log.Warn("no analysis store configured, every analysis request will be generated")
	}

	completion, err := openLLM(ctx, cfg)
	if err != nil {
		log.WithError(err).Warn("completion provider unavailable, analysis requests will fail")
	} else {
		defer completion.Close()
		log.WithField("provider", completion.Name()).Info("completion provider ready")
	}

	var (
		hamsa     *telephony.HamsaClient
		chat      *chatkit.Client
		calls     services.ConversationSource
		callList  services.CallLister
		threads   services.ThreadSource
		threadLst services.ThreadLister
		chatAPI   handlers.ChatKitAPI
		voiceAPI  handlers.VoiceAgentAPI
	)
	if cfg.HamsaAPIKey != "" {
		hamsa = telephony.NewHamsaClient(telephony.HamsaConfig{
			APIKey:    cfg.HamsaAPIKey,
			BaseURL:   cfg.HamsaBaseURL,
			ProjectID: cfg.HamsaProjectID,
		})
		calls, callList, voiceAPI = hamsa, hamsa, hamsa
	} else {
		log.Warn("HAMSA_API_KEY not set, voice call endpoints disabled")
	}
	if cfg.OpenAIAPIKey != "" {
		chat = chatkit.NewClient(chatkit.Config{
			APIKey:     cfg.OpenAIAPIKey,
			BaseURL:    cfg.ChatKitBaseURL,
			WorkflowID: cfg.ChatKitWorkflowID,
			DemoUser:   cfg.ChatKitDemoUser,
		})
		threads, threadLst, chatAPI = chat, chat, chat
	} else {
		log.Warn("OPENAI_API_KEY not set, chat endpoints disabled")
	}

	analysisSvc := services.NewAnalysisService(services.AnalysisConfig{
		Store:    store,
		LLM:      completion,
		Logger:   log,
		Metrics:  m,
		Coalesce: cfg.AnalysisCoalesce,
	})
	transcriptSvc := services.NewTranscriptService(calls, threads)
	historySvc := services.NewHistoryService(callList, threadLst, log)

	var (
		uploader storage.Uploader
		signer   storage.Signer
	)
	if cfg.GCSBucket != "" {
		u, err := storage.NewGCSUploader(ctx, cfg.GCSBucket)
		if err != nil {
			log.WithError(err).Warn("gcs unavailable, export disabled")
		} else {
			defer u.Close()
			uploader, signer = u, u
		}
	}
	archiveSvc := services.NewArchiveService(store, uploader, signer, log)

	var (
		queue handlers.AnalysisEnqueuer
		feed  handlers.StatusSubscriber
	)
	if rdb != nil {
		queue = &workers.AnalysisQueue{Redis: rdb}
		feed = &workers.StatusFeed{Redis: rdb}
		pool := &workers.AnalysisWorkerPool{
			Redis:       rdb,
			Analysis:    analysisSvc,
			Transcripts: transcriptSvc,
			NumWorkers:  cfg.AnalysisWorkers,
			Logger:      log,
		}
		if err := pool.Start(ctx); err != nil {
			return err
		}
	}

	checks := map[string]handlers.Pinger{"store": nil, "redis": nil}
	if store != nil {
		checks["store"] = store
	}
	if rdb != nil {
		checks["redis"] = cache.NewRedisCache(rdb, "")
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestLogger(log), middleware.Recovery(log), middleware.CORS(), middleware.Metrics(m))
	routes.RegisterRoutes(r, routes.Deps{
		Health:   handlers.NewHealthHandler(checks),
		Analysis: handlers.NewAnalysisHandler(analysisSvc, transcriptSvc, archiveSvc, queue),
		Proxy:    handlers.NewProxyHandler(chatAPI, voiceAPI),
		History:  handlers.NewHistoryHandler(historySvc, cfg.ChatKitDemoUser),
		WS:       handlers.NewWSHandler(feed, log),
		Metrics:  m.Handler(),
		Auth: middleware.JWTConfig{
			Secret:   cfg.JWTSecret,
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", srv.Addr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore returns the durable analysis store selected by ANALYSIS_STORE,
// or nil when it cannot be reached. The returned func releases connections.
func openStore(ctx context.Context, cfg config.Config, log *logrus.Logger) (repositories.AnalysisRepository, func()) {
	noop := func() {}

	switch cfg.AnalysisStore {
	case "mongo":
		if cfg.MongoURI == "" {
			log.Warn("MONGO_URI not set, no durable analysis store")
			return nil, noop
		}
		client, err := config.OpenMongo(ctx, cfg)
		if err != nil {
			log.WithError(err).Warn("mongo unavailable, no durable analysis store")
			return nil, noop
		}
		db := client.Database(cfg.MongoDB)
		if err := config.EnsureAnalysisIndexes(ctx, db); err != nil {
			log.WithError(err).Warn("failed to ensure analysis indexes")
		}
		log.Info("mongo connected")
		return mongorepo.NewAnalysisRepo(db), disconnect(client)

	case "postgres", "":
		if cfg.DatabaseURL == "" {
			log.Warn("DATABASE_URL not set, no durable analysis store")
			return nil, noop
		}
		db, err := config.OpenPostgres(cfg)
		if err != nil {
			log.WithError(err).Warn("postgres unavailable, no durable analysis store")
			return nil, noop
		}
		log.Info("postgres connected")
		closeDB := noop
		if sqlDB, err := db.DB(); err == nil {
			closeDB = func() { _ = sqlDB.Close() }
		}
		return pgrepo.NewAnalysisRepo(db), closeDB

	default:
		log.WithField("store", cfg.AnalysisStore).Warn("unknown ANALYSIS_STORE, no durable analysis store")
		return nil, noop
	}
}

func disconnect(c *mongo.Client) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = c.Disconnect(ctx)
	}
}

func openLLM(ctx context.Context, cfg config.Config) (llm.Provider, error) {
	switch cfg.LLMProvider {
	case "vertex", "gemini", "vertex-gemini":
		if cfg.VertexProject == "" {
			return nil, errors.New("VERTEX_PROJECT_ID is not set")
		}
		v, err := llm.NewVertexGemini(ctx, cfg.VertexProject, cfg.VertexLocation, cfg.VertexModel)
		if err != nil {
			return nil, err
		}
		return v, nil
	case "openai", "":
		if cfg.OpenAIAPIKey == "" {
			return nil, errors.New("OPENAI_API_KEY is not set")
		}
		return llm.NewOpenAI(llm.OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		}), nil
	default:
		return nil, errors.New("unknown LLM_PROVIDER " + cfg.LLMProvider)
	}
}
