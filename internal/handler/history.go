package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/aman-churiwal/exchange-governor/internal/repository"
	"github.com/gin-gonic/gin"
)

// HistoryHandler serves the ticket resolution audit log
type HistoryHandler struct {
	repo *repository.TicketLogRepository
}

func NewHistoryHandler(repo *repository.TicketLogRepository) *HistoryHandler {
	return &HistoryHandler{repo: repo}
}

// Handles GET /api/v1/history
func (h *HistoryHandler) GetHistory(c *gin.Context) {
	from, to, err := parseTimeRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Parse pagination
	limit := 100
	if limitStr := c.Query("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 1000 {
			limit = l
		}
	}

	offset := 0
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	ctx := c.Request.Context()

	var logs interface{}
	if outcome := c.Query("outcome"); outcome != "" {
		logs, err = h.repo.FindByOutcome(ctx, outcome, from, to, limit, offset)
	} else {
		logs, err = h.repo.FindByTimeRange(ctx, from, to, limit, offset)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":   logs,
		"limit":  limit,
		"offset": offset,
	})
}

// Handles GET /api/v1/history/summary
func (h *HistoryHandler) GetSummary(c *gin.Context) {
	from, to, err := parseTimeRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	total, err := h.repo.CountByTimeRange(ctx, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	byTierAndOutcome, err := h.repo.CountByTierAndOutcome(ctx, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	avgWait, err := h.repo.GetAverageWaitMs(ctx, from, to)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	p95Wait, err := h.repo.GetWaitPercentile(ctx, from, to, 0.95)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"from":                from,
		"to":                  to,
		"total":               total,
		"by_tier_and_outcome": byTierAndOutcome,
		"avg_wait_ms":         avgWait,
		"p95_wait_ms":         p95Wait,
	})
}

// Handles DELETE /admin/history
func (h *HistoryHandler) PruneHistory(c *gin.Context) {
	beforeStr := c.Query("before")
	if beforeStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "'before' parameter is required"})
		return
	}

	before, err := time.Parse(time.RFC3339, beforeStr)
	if err != nil {
		// Try Unix timestamp
		timestamp, err2 := strconv.ParseInt(beforeStr, 10, 64)
		if err2 != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid 'before' timestamp"})
			return
		}
		before = time.Unix(timestamp, 0)
	}

	deleted, err := h.repo.DeleteOldLogs(c.Request.Context(), before)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"deleted": deleted,
		"before":  before,
	})
}

// Parses 'from' and 'to' query parameters, defaulting to the last hour
func parseTimeRange(c *gin.Context) (time.Time, time.Time, error) {
	to := time.Now()
	from := to.Add(-time.Hour)

	if fromStr := c.Query("from"); fromStr != "" {
		parsedFrom, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			// Try Unix timestamp
			if timestamp, err := strconv.ParseInt(fromStr, 10, 64); err == nil {
				parsedFrom = time.Unix(timestamp, 0)
			} else {
				return time.Time{}, time.Time{}, err
			}
		}
		from = parsedFrom
	}

	if toStr := c.Query("to"); toStr != "" {
		parsedTo, err := time.Parse(time.RFC3339, toStr)
		if err != nil {
			// Try Unix timestamp
			if timestamp, err := strconv.ParseInt(toStr, 10, 64); err == nil {
				parsedTo = time.Unix(timestamp, 0)
			} else {
				return time.Time{}, time.Time{}, err
			}
		}
		to = parsedTo
	}

	return from, to, nil
}
