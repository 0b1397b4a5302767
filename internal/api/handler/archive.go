package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
	"github.com/ItaloOlivier/ayonne-sub000/internal/storage"
)

// ArchiveHandler serves persisted history. In-memory endpoints cover the
// recent window; these read whatever the database has kept.
type ArchiveHandler struct {
	archive *storage.Archive
}

func NewArchiveHandler(archive *storage.Archive) *ArchiveHandler {
	return &ArchiveHandler{archive: archive}
}

func (h *ArchiveHandler) LoopResults(c *gin.Context) {
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}

	results, err := h.archive.LoopResults.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query loop results"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *ArchiveHandler) Approvals(c *gin.Context) {
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}

	approvals, err := h.archive.Approvals.ListByStatus(c.Request.Context(), domain.ApprovalStatus(c.Query("status")), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query approvals"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"approvals": approvals})
}

func (h *ArchiveHandler) ChangeLog(c *gin.Context) {
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}

	if entityType := c.Query("entity_type"); entityType != "" {
		entries, err := h.archive.Changes.ListByEntity(c.Request.Context(), entityType, c.Query("entity_id"), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query change log"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"entries": entries})
		return
	}

	entries, err := h.archive.Changes.ListRecent(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query change log"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

func (h *ArchiveHandler) Experiments(c *gin.Context) {
	limit, offset, ok := pagination(c)
	if !ok {
		return
	}

	designs, err := h.archive.Experiments.List(c.Request.Context(), domain.ExperimentStatus(c.Query("status")), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query experiments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"experiments": designs})
}

func pagination(c *gin.Context) (limit, offset int, ok bool) {
	limit, offset = 50, 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return 0, 0, false
		}
		limit = parsed
	}
	if raw := c.Query("offset"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset"})
			return 0, 0, false
		}
		offset = parsed
	}
	return limit, offset, true
}
