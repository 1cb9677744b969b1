package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health reports liveness. It is registered outside the authenticated
// group so load balancers can probe it.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
