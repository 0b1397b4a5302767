package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
	"github.com/ItaloOlivier/ayonne-sub000/internal/governance"
	"github.com/ItaloOlivier/ayonne-sub000/internal/producer"
	"github.com/ItaloOlivier/ayonne-sub000/internal/protocol"
)

type GovernanceHandler struct {
	engine *governance.Engine
	router *protocol.Router
}

func NewGovernanceHandler(engine *governance.Engine, router *protocol.Router) *GovernanceHandler {
	return &GovernanceHandler{engine: engine, router: router}
}

// RunChecks fetches a fresh summary and runs the full governance pass
// against it: anomalies, compliance, health, alerts.
func (h *GovernanceHandler) RunChecks(c *gin.Context) {
	summary, ok := h.fetchSummary(c)
	if !ok {
		return
	}

	result, err := h.engine.RunChecks(summary)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *GovernanceHandler) Compliance(c *gin.Context) {
	summary, ok := h.fetchSummary(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, h.engine.CheckCompliance(summary.Campaigns))
}

func (h *GovernanceHandler) Health(c *gin.Context) {
	summary, ok := h.fetchSummary(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, h.engine.ScoreHealth(summary))
}

// Alerts returns open alerts by default; ?recent=N returns the N newest
// regardless of acknowledgement.
func (h *GovernanceHandler) Alerts(c *gin.Context) {
	if raw := c.Query("recent"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recent"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"alerts": h.engine.Alerts().Recent(limit)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"alerts": h.engine.Alerts().Open()})
}

func (h *GovernanceHandler) AcknowledgeAlert(c *gin.Context) {
	alert, err := h.engine.Alerts().Acknowledge(c.Param("id"))
	if err != nil {
		if errors.Is(err, governance.ErrAlertNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to acknowledge alert"})
		return
	}

	c.JSON(http.StatusOK, alert)
}

func (h *GovernanceHandler) ChangeLog(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	c.JSON(http.StatusOK, gin.H{"entries": h.engine.Changes().Entries(limit)})
}

func (h *GovernanceHandler) fetchSummary(c *gin.Context) (*domain.PerformanceSummary, bool) {
	var summary domain.PerformanceSummary
	if err := queryUnit(c.Request.Context(), h.router, domain.UnitPerformance, producer.ActionFetchSummary, nil, &summary); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("fetch performance summary: %v", err)})
		return nil, false
	}
	return &summary, true
}
