package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ItaloOlivier/ayonne-sub000/internal/meta"
)

// MetaHandler serves decision-quality views: how the engines' confidence
// scores hold up against reviewer decisions.
type MetaHandler struct {
	tracker *meta.Tracker
}

func NewMetaHandler(tracker *meta.Tracker) *MetaHandler {
	return &MetaHandler{tracker: tracker}
}

func (h *MetaHandler) Calibration(c *gin.Context) {
	c.JSON(http.StatusOK, h.tracker.Calibration())
}

// Accuracy returns the confusion matrices. ?threshold= overrides the
// confidence cutoff, exclusive (0, 1).
func (h *MetaHandler) Accuracy(c *gin.Context) {
	threshold := 0.0
	if raw := c.Query("threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 || parsed >= 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid threshold"})
			return
		}
		threshold = parsed
	}

	c.JSON(http.StatusOK, h.tracker.Accuracy(threshold))
}

func (h *MetaHandler) BlindSpots(c *gin.Context) {
	report := h.tracker.Accuracy(0)
	c.JSON(http.StatusOK, gin.H{
		"confidence_threshold": report.ConfidenceThreshold,
		"blind_spots":          report.BlindSpots,
	})
}
