package handler

import (
	"net/http"
	"strconv"
	"strings"

	"market-intel/internal/domain"

	"github.com/gin-gonic/gin"
)

// GetSnapshots returns the most recent daily market snapshots for a
// tracked asset, newest first. Unknown assets are a 400 with the
// supported list.
func (h *Handler) GetSnapshots(c *gin.Context) {
	if h.snapshots == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage unavailable"})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-snapshots")
	defer span.End()

	asset := strings.ToUpper(strings.TrimSpace(c.Param("asset")))
	if !isTrackedAsset(asset) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "unknown asset: " + asset,
			"supported": domain.TrackedAssets,
		})
		return
	}

	limit := 30
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 365 {
			limit = n
		}
	}

	rows, err := h.snapshots.LatestSnapshots(ctx, asset, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"asset": asset, "count": len(rows), "snapshots": rows})
}

func isTrackedAsset(asset string) bool {
	for _, a := range domain.TrackedAssets {
		if a == asset {
			return true
		}
	}
	return false
}
