package handler

import (
	"net/http"

	"github.com/aman-churiwal/exchange-governor/internal/config"
	"github.com/aman-churiwal/exchange-governor/internal/service"
	"github.com/gin-gonic/gin"
)

// StatusHandler exposes the governor's read model to the dashboard
type StatusHandler struct {
	snapshots *service.SnapshotService
	profiles  []config.RequestProfile
}

func NewStatusHandler(snapshots *service.SnapshotService, profiles []config.RequestProfile) *StatusHandler {
	return &StatusHandler{
		snapshots: snapshots,
		profiles:  profiles,
	}
}

// Handles GET /api/v1/ratelimit/status
func (h *StatusHandler) GetStatus(c *gin.Context) {
	snap := h.snapshots.Snapshot(c.Request.Context())
	c.JSON(http.StatusOK, snap)
}

// Handles GET /api/v1/ratelimit/usage
func (h *StatusHandler) GetUsage(c *gin.Context) {
	snap := h.snapshots.Snapshot(c.Request.Context())
	c.JSON(http.StatusOK, snap.Usage)
}

// Handles GET /api/v1/ratelimit/queue
func (h *StatusHandler) GetQueue(c *gin.Context) {
	snap := h.snapshots.Snapshot(c.Request.Context())
	c.JSON(http.StatusOK, snap.Queue)
}

// Handles GET /api/v1/ratelimit/capacity
func (h *StatusHandler) GetCapacity(c *gin.Context) {
	snap := h.snapshots.Snapshot(c.Request.Context())
	c.JSON(http.StatusOK, snap.Capacity)
}

// Handles GET /api/v1/ratelimit/recommendations
func (h *StatusHandler) GetRecommendations(c *gin.Context) {
	snap := h.snapshots.Snapshot(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"recommendations": snap.Recommendations,
		"timestamp":       snap.Timestamp,
	})
}

// Handles GET /api/v1/ratelimit/profiles
func (h *StatusHandler) GetProfiles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"profiles": h.profiles,
	})
}
