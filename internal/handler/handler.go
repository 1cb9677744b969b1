package handler

import (
	"context"

	"market-intel/internal/config"
	"market-intel/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

// PipelineRunner triggers ingestion runs and reports table counts.
type PipelineRunner interface {
	Run(ctx context.Context, mode string) (domain.RunResult, error)
	Status(ctx context.Context) (map[string]int64, error)
}

// SnapshotReader serves the terminal daily fact rows.
type SnapshotReader interface {
	LatestSnapshots(ctx context.Context, asset string, limit int) ([]domain.DailySnapshot, error)
}

type Handler struct {
	tracer    trace.Tracer
	runner    PipelineRunner
	snapshots SnapshotReader
	cfg       *config.Config

	// afterRun receives every successful manual run, for caching and
	// notifications. Optional.
	afterRun func(context.Context, domain.RunResult)
}

func New(tracer trace.Tracer, runner PipelineRunner, snapshots SnapshotReader, cfg *config.Config) *Handler {
	return &Handler{
		tracer:    tracer,
		runner:    runner,
		snapshots: snapshots,
		cfg:       cfg,
	}
}

// OnRunComplete registers the post-run hook.
func (h *Handler) OnRunComplete(fn func(context.Context, domain.RunResult)) {
	h.afterRun = fn
}

func (h *Handler) RegisterRoutes(r *gin.Engine, apiKey string) {
	r.GET("/health", h.Health)

	api := r.Group("/api", APIKeyAuth(apiKey))
	api.GET("/status", h.Status)
	api.POST("/ingest/run", h.TriggerRun)
	api.GET("/snapshots/:asset", h.GetSnapshots)
}
