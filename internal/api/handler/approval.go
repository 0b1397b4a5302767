package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ItaloOlivier/ayonne-sub000/internal/orchestrator"
)

type ApprovalHandler struct {
	orch *orchestrator.Orchestrator
}

func NewApprovalHandler(orch *orchestrator.Orchestrator) *ApprovalHandler {
	return &ApprovalHandler{orch: orch}
}

// List returns pending approvals by default; ?all=true includes
// resolved entries still retained in memory.
func (h *ApprovalHandler) List(c *gin.Context) {
	store := h.orch.Approvals()

	if c.Query("all") == "true" {
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
				return
			}
			limit = parsed
		}
		c.JSON(http.StatusOK, gin.H{"approvals": store.All(limit)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"approvals": store.Pending()})
}

func (h *ApprovalHandler) GetByID(c *gin.Context) {
	id := c.Param("id")

	approval, err := h.orch.Approvals().Get(id)
	if err != nil {
		if errors.Is(err, orchestrator.ErrApprovalNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "approval not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve approval"})
		return
	}

	c.JSON(http.StatusOK, approval)
}

type ApprovalDecisionRequest struct {
	By     string `json:"by"`
	Notes  string `json:"notes,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func (h *ApprovalHandler) Approve(c *gin.Context) {
	id := c.Param("id")

	var req ApprovalDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.By == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "by is required"})
		return
	}

	approval, err := h.orch.Approve(c.Request.Context(), id, req.By, req.Notes)
	if err != nil {
		respondApprovalError(c, err)
		return
	}

	c.JSON(http.StatusOK, approval)
}

func (h *ApprovalHandler) Reject(c *gin.Context) {
	id := c.Param("id")

	var req ApprovalDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.By == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "by is required"})
		return
	}

	approval, err := h.orch.Reject(c.Request.Context(), id, req.By, req.Reason)
	if err != nil {
		respondApprovalError(c, err)
		return
	}

	c.JSON(http.StatusOK, approval)
}

func respondApprovalError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrApprovalNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "approval not found"})
	case errors.Is(err, orchestrator.ErrApprovalNotPending):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to resolve approval"})
	}
}
