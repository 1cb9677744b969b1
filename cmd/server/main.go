package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"market-intel/internal/backup"
	"market-intel/internal/cache"
	"market-intel/internal/config"
	"market-intel/internal/db"
	"market-intel/internal/domain"
	"market-intel/internal/handler"
	"market-intel/internal/job"
	"market-intel/internal/notify"
	"market-intel/internal/pipeline"
	"market-intel/internal/provider"
	"market-intel/internal/sentiment"
	"market-intel/internal/store"
	"market-intel/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"
)

var (
	loadEnvFunc      = godotenv.Load
	loadConfigFunc   = config.Load
	initPostgresFunc = db.InitPostgres
	initRedisFunc    = cache.InitRedis
	initTracerFunc   = tracing.InitTracer
	newStoreFunc     = store.New
	newPipelineFunc  = pipeline.New
	newSchedulerFunc = job.NewScheduler
	newHandlerFunc   = handler.New
	newRouterFunc    = gin.Default

	startSchedulerFunc = func(s *job.Scheduler, ctx context.Context) { go s.Start(ctx) }

	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Market Intel API
// @version         1.0
// @description     Crypto market data ingestion pipeline with daily snapshots.

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	os.Setenv("DATABASE_URL", cfg.DatabaseURL)
	os.Setenv("REDIS_URL", cfg.RedisURL)
	initPostgresFunc(ctx)
	initRedisFunc(ctx)

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	st := newStoreFunc(db.Pool, tracer)
	if db.Pool != nil {
		if err := st.EnsureSchema(ctx); err != nil {
			log.Fatalf("failed to ensure schema: %v", err)
		}
	}

	pipe := buildPipeline(cfg, tracer, st)

	notifier, err := notify.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
	if err != nil {
		log.Printf("Warning: telegram notifier disabled: %v", err)
	}
	afterRun := func(ctx context.Context, result domain.RunResult) {
		if err := cache.StoreRunReport(ctx, result); err != nil {
			log.Printf("failed to cache run report: %v", err)
		}
		if err := notifier.NotifyRunSummary(result); err != nil {
			log.Printf("failed to send run summary: %v", err)
		}
	}

	scheduler := newSchedulerFunc(tracer, pipe, cfg.SyncHourUTC)
	scheduler.OnRunComplete(afterRun)
	startSchedulerFunc(scheduler, ctx)

	h := newHandlerFunc(tracer, pipe, st, cfg)
	h.OnRunComplete(afterRun)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("market-intel"))
	h.RegisterRoutes(r, cfg.APIKey)

	srv := &http.Server{
		Addr:    cfg.HTTPBind + ":" + strconv.Itoa(cfg.HTTPPort),
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}

func buildPipeline(cfg *config.Config, tracer trace.Tracer, st *store.Store) *pipeline.Pipeline {
	scorer := sentiment.NewAnalyzer(nil, cfg.SentimentBatch)
	if llm := sentiment.NewOpenAIScorer(cfg.OpenAIAPIKey, cfg.OpenAIModel); llm != nil {
		scorer = sentiment.NewAnalyzer(llm, cfg.SentimentBatch)
	}

	opts := pipeline.Options{
		Derivatives: provider.NewBinanceFuturesProvider(tracer),
		Reddit:      provider.NewRedditProvider(tracer),
		Trends:      provider.NewTrendsProvider(tracer),
	}
	// credential-gated providers return nil; assigning a typed nil to
	// the interface field would defeat the pipeline's skip check
	if etf := provider.NewETFFlowsProvider(cfg.SoSoValueAPIKey, tracer); etf != nil {
		opts.ETFFlows = etf
	}
	if news := provider.NewNewsProvider(cfg.NewsAPIKey, tracer); news != nil {
		opts.News = news
	}
	if tw := provider.NewTwitterProvider(cfg.TwitterBearerToken, tracer); tw != nil {
		opts.Twitter = tw
	}
	if b, err := backup.NewCSVBackup(cfg.BackupDir); err != nil {
		log.Printf("Warning: csv backups disabled: %v", err)
	} else {
		opts.Backup = b
	}

	return newPipelineFunc(tracer, st,
		scorer,
		provider.NewCoinGeckoProvider(tracer),
		provider.NewFearGreedProvider(tracer),
		opts,
	)
}
