package handler

import (
	"net/http"

	"market-intel/internal/cache"

	"github.com/gin-gonic/gin"
)

// Status returns per-table record counts, the sanitized active config
// and the last cached run report. Counts come from the cache when
// fresh, otherwise straight from the store.
func (h *Handler) Status(c *gin.Context) {
	if h.runner == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "pipeline unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.status")
	defer span.End()

	counts, err := cache.CachedStatus(ctx)
	if err != nil || counts == nil {
		counts, err = h.runner.Status(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if cacheErr := cache.StoreStatus(ctx, counts); cacheErr != nil {
			span.RecordError(cacheErr)
		}
	}

	payload := gin.H{"record_counts": counts}
	if h.cfg != nil {
		payload["config"] = h.cfg.Display()
	}
	if lastRun, err := cache.LatestRunReport(ctx); err == nil && lastRun != nil {
		payload["last_run"] = lastRun
	}

	c.JSON(http.StatusOK, payload)
}
