package handler

import (
	"net/http"

	"market-intel/internal/domain"

	"github.com/gin-gonic/gin"
)

// TriggerRun executes one full pipeline pass synchronously and returns
// the per-stage report. The mode query selects backfill; anything else
// runs a daily sync.
func (h *Handler) TriggerRun(c *gin.Context) {
	if h.runner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "pipeline unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.trigger-run")
	defer span.End()

	mode := c.Query("mode")
	if mode != domain.ModeBackfill {
		mode = domain.ModeDailySync
	}

	result, err := h.runner.Run(ctx, mode)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if h.afterRun != nil {
		h.afterRun(ctx, result)
	}

	c.JSON(http.StatusOK, gin.H{
		"status":          runStatus(result),
		"mode":            result.Mode,
		"duration_ms":     result.Duration.Milliseconds(),
		"overall_success": result.OverallSuccess,
		"stages":          result.Stages(),
		"errors":          result.AllErrors(),
		"record_counts":   result.RecordCounts,
	})
}

func runStatus(result domain.RunResult) string {
	if result.OverallSuccess {
		return "ok"
	}
	return "failed"
}
