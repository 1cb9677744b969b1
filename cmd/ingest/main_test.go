package main

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"market-intel/internal/config"
	"market-intel/internal/domain"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func stubIngestDeps(t *testing.T) func() {
	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origInitPostgres := initPostgresFunc
	origInitRedis := initRedisFunc
	origInitTracer := initTracerFunc

	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func() *config.Config {
		return &config.Config{
			DatabaseURL:    "postgres://example",
			BackupDir:      t.TempDir(),
			SentimentBatch: 24,
		}
	}
	initPostgresFunc = func(context.Context) {}
	initRedisFunc = func(context.Context) {}
	initTracerFunc = func(ctx context.Context) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}

	return func() {
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		initPostgresFunc = origInitPostgres
		initRedisFunc = origInitRedis
		initTracerFunc = origInitTracer
	}
}

func TestRunRejectsMissingCommand(t *testing.T) {
	restore := stubIngestDeps(t)
	defer restore()

	if code := run(nil); code != 1 {
		t.Fatalf("expected exit 1 without a command, got %d", code)
	}
}

func TestRunRejectsUnknownCommand(t *testing.T) {
	restore := stubIngestDeps(t)
	defer restore()

	if code := run([]string{"bogus"}); code != 1 {
		t.Fatalf("expected exit 1 for unknown command, got %d", code)
	}
}

func TestRunFailsWithoutDatabase(t *testing.T) {
	restore := stubIngestDeps(t)
	defer restore()

	// stubbed init leaves db.Pool nil
	if code := run([]string{"run"}); code != 1 {
		t.Fatalf("expected exit 1 without a database, got %d", code)
	}
}

func TestRunValidatesConfig(t *testing.T) {
	restore := stubIngestDeps(t)
	defer restore()
	loadConfigFunc = func() *config.Config {
		return &config.Config{BackupDir: t.TempDir()}
	}

	if code := run([]string{"run"}); code != 1 {
		t.Fatalf("expected exit 1 without DATABASE_URL, got %d", code)
	}
}

func TestPrintStatusShowsCountsAndConfig(t *testing.T) {
	cfg := &config.Config{
		DatabaseURL: "postgres://example",
		BackupDir:   "backups",
		HTTPPort:    8080,
	}

	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w
	printStatus(cfg, 4, map[string]int64{"ohlc_hourly": 42, "sentiment_daily": 7})
	w.Close()
	os.Stdout = orig

	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatal(err)
	}
	got := string(out)
	for _, want := range []string{
		"schema version: 4",
		"ohlc_hourly",
		"active configuration:",
		"database_configured",
		"backup_dir",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("status output missing %q:\n%s", want, got)
		}
	}
}

func TestPrintSummaryDoesNotPanic(t *testing.T) {
	printSummary(domain.RunResult{
		Mode:           domain.ModeDailySync,
		Duration:       3 * time.Second,
		OverallSuccess: true,
		OHLC:           domain.StageResult{Name: "ohlc", Success: true, Records: 336},
		ETFFlows:       domain.SkippedStage("etf-flows"),
		News:           domain.StageResult{Name: "news", Errors: []string{"fetch: 401"}},
	})
}
