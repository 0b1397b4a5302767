package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
	"github.com/ItaloOlivier/ayonne-sub000/internal/orchestrator"
)

type LoopHandler struct {
	orch *orchestrator.Orchestrator
}

func NewLoopHandler(orch *orchestrator.Orchestrator) *LoopHandler {
	return &LoopHandler{orch: orch}
}

// Run triggers one loop iteration synchronously. A 409 means an
// iteration is already in flight.
func (h *LoopHandler) Run(c *gin.Context) {
	result, err := h.orch.RunLoop(c.Request.Context())
	if err != nil {
		if errors.Is(err, orchestrator.ErrLoopRunning) {
			c.JSON(http.StatusConflict, gin.H{"error": "loop iteration already running"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "loop iteration failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *LoopHandler) History(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	c.JSON(http.StatusOK, gin.H{"results": h.orch.History(limit)})
}

func (h *LoopHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.orch.Status(c.Request.Context()))
}

type SetPhaseRequest struct {
	Phase string `json:"phase"`
}

func (h *LoopHandler) SetPhase(c *gin.Context) {
	var req SetPhaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.orch.SetPhase(domain.PipelinePhase(req.Phase)); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"phase": req.Phase})
}
