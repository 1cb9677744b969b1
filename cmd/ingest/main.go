package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"market-intel/internal/backup"
	"market-intel/internal/cache"
	"market-intel/internal/config"
	"market-intel/internal/db"
	"market-intel/internal/domain"
	"market-intel/internal/notify"
	"market-intel/internal/pipeline"
	"market-intel/internal/provider"
	"market-intel/internal/sentiment"
	"market-intel/internal/store"
	"market-intel/pkg/tracing"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/trace"
)

var (
	loadEnvFunc      = godotenv.Load
	loadConfigFunc   = config.Load
	initPostgresFunc = db.InitPostgres
	initRedisFunc    = cache.InitRedis
	initTracerFunc   = tracing.InitTracer
	exitFunc         = os.Exit
)

func main() {
	exitFunc(run(os.Args[1:]))
}

func run(args []string) int {
	loadEnvFunc()

	if len(args) == 0 || (args[0] != "run" && args[0] != "status") {
		printUsage()
		return 1
	}

	cfg := loadConfigFunc()
	if err := cfg.Validate(); err != nil {
		log.Printf("invalid configuration: %v", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Setenv("DATABASE_URL", cfg.DatabaseURL)
	os.Setenv("REDIS_URL", cfg.RedisURL)
	initPostgresFunc(ctx)
	initRedisFunc(ctx)

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Printf("failed to initialize tracer: %v", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	st := store.New(db.Pool, tracer)
	if db.Pool == nil {
		log.Println("no database connection, aborting")
		return 1
	}
	if err := st.EnsureSchema(ctx); err != nil {
		log.Printf("failed to ensure schema: %v", err)
		return 1
	}

	if args[0] == "status" {
		version, err := st.CurrentVersion(ctx)
		if err != nil {
			log.Printf("failed to read schema version: %v", err)
			return 1
		}
		counts, err := st.RecordCounts(ctx)
		if err != nil {
			log.Printf("failed to read record counts: %v", err)
			return 1
		}
		printStatus(cfg, version, counts)
		return 0
	}

	mode := domain.ModeDailySync
	for _, arg := range args[1:] {
		if arg == "--backfill" {
			mode = domain.ModeBackfill
		}
	}
	return runPipeline(ctx, cfg, tracer, st, mode)
}

func runPipeline(ctx context.Context, cfg *config.Config, tracer trace.Tracer, st *store.Store, mode string) int {
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

	pipe := pipeline.New(tracer, st,
		scorer,
		provider.NewCoinGeckoProvider(tracer),
		provider.NewFearGreedProvider(tracer),
		opts,
	)

	result, err := pipe.Run(ctx, mode)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			log.Println("interrupted")
			return 130
		}
		log.Printf("run failed: %v", err)
		return 1
	}

	if err := cache.StoreRunReport(ctx, result); err != nil {
		log.Printf("failed to cache run report: %v", err)
	}
	notifier, err := notify.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
	if err != nil {
		log.Printf("Warning: telegram notifier disabled: %v", err)
	}
	if err := notifier.NotifyRunSummary(result); err != nil {
		log.Printf("failed to send run summary: %v", err)
	}

	printSummary(result)
	if errors.Is(ctx.Err(), context.Canceled) {
		return 130
	}
	if !result.OverallSuccess {
		return 1
	}
	return 0
}

func printStatus(cfg *config.Config, version int, counts map[string]int64) {
	fmt.Printf("schema version: %d\n", version)

	tables := make([]string, 0, len(counts))
	for table := range counts {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	fmt.Println("table counts:")
	for _, table := range tables {
		fmt.Printf("  %-28s %d\n", table, counts[table])
	}

	display := cfg.Display()
	keys := make([]string, 0, len(display))
	for key := range display {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	fmt.Println("active configuration:")
	for _, key := range keys {
		fmt.Printf("  %-28s %v\n", key, display[key])
	}
}

func printSummary(result domain.RunResult) {
	status := "FAILED"
	if result.OverallSuccess {
		status = "OK"
	}
	fmt.Printf("%s run %s in %s\n", result.Mode, status, result.Duration.Round(time.Millisecond))
	for _, stage := range result.Stages() {
		switch {
		case stage.Skipped:
			fmt.Printf("  %-16s skipped\n", stage.Name)
		case stage.Success:
			fmt.Printf("  %-16s %d records", stage.Name, stage.Records)
			if len(stage.Errors) > 0 {
				fmt.Printf(" (%d warnings)", len(stage.Errors))
			}
			fmt.Println()
		default:
			fmt.Printf("  %-16s FAILED\n", stage.Name)
		}
	}
	for _, e := range result.AllErrors() {
		fmt.Println("  warning:", e)
	}
}

func printUsage() {
	fmt.Println("usage: ingest <command>")
	fmt.Println()
	fmt.Println("commands:")
	fmt.Println("  run              run the daily sync")
	fmt.Println("  run --backfill   run with widened historical windows")
	fmt.Println("  status           print per-table record counts")
}
