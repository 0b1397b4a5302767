package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
	"github.com/ItaloOlivier/ayonne-sub000/internal/experiment"
	"github.com/ItaloOlivier/ayonne-sub000/internal/storage"
)

type ExperimentHandler struct {
	engine  *experiment.Engine
	archive *storage.Archive
	log     *logrus.Entry
}

// NewExperimentHandler serves the experiment lifecycle. archive may be
// nil; persistence is best-effort and never fails a request.
func NewExperimentHandler(engine *experiment.Engine, archive *storage.Archive, log *logrus.Entry) *ExperimentHandler {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &ExperimentHandler{engine: engine, archive: archive, log: log}
}

func (h *ExperimentHandler) Create(c *gin.Context) {
	var req experiment.DesignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	design, err := h.engine.Design(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.archiveDesign(c, design)
	c.JSON(http.StatusCreated, design)
}

func (h *ExperimentHandler) List(c *gin.Context) {
	designs := h.engine.List()

	if status := c.Query("status"); status != "" {
		filtered := designs[:0]
		for _, d := range designs {
			if string(d.Status) == status {
				filtered = append(filtered, d)
			}
		}
		designs = filtered
	}

	c.JSON(http.StatusOK, gin.H{"experiments": designs})
}

func (h *ExperimentHandler) GetByID(c *gin.Context) {
	design, err := h.engine.Get(c.Param("id"))
	if err != nil {
		respondExperimentError(c, err)
		return
	}

	c.JSON(http.StatusOK, design)
}

func (h *ExperimentHandler) Start(c *gin.Context) {
	h.transition(c, h.engine.Start)
}

func (h *ExperimentHandler) Pause(c *gin.Context) {
	h.transition(c, h.engine.Pause)
}

func (h *ExperimentHandler) Resume(c *gin.Context) {
	h.transition(c, h.engine.Resume)
}

func (h *ExperimentHandler) transition(c *gin.Context, op func(string) error) {
	id := c.Param("id")
	if err := op(id); err != nil {
		respondExperimentError(c, err)
		return
	}

	design, err := h.engine.Get(id)
	if err != nil {
		respondExperimentError(c, err)
		return
	}

	h.archiveDesign(c, design)
	c.JSON(http.StatusOK, design)
}

type CancelExperimentRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (h *ExperimentHandler) Cancel(c *gin.Context) {
	id := c.Param("id")

	var req CancelExperimentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.engine.Cancel(id, req.Reason); err != nil {
		respondExperimentError(c, err)
		return
	}

	design, err := h.engine.Get(id)
	if err != nil {
		respondExperimentError(c, err)
		return
	}

	h.archiveDesign(c, design)
	c.JSON(http.StatusOK, design)
}

type ConcludeExperimentRequest struct {
	Conclusion string `json:"conclusion,omitempty"`
}

func (h *ExperimentHandler) Conclude(c *gin.Context) {
	id := c.Param("id")

	var req ConcludeExperimentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	design, err := h.engine.Conclude(id, req.Conclusion)
	if err != nil {
		respondExperimentError(c, err)
		return
	}

	h.archiveDesign(c, design)
	c.JSON(http.StatusOK, design)
}

type ObserveRequest struct {
	Control   domain.VariantMetrics `json:"control"`
	Treatment domain.VariantMetrics `json:"treatment"`
}

func (h *ExperimentHandler) Observe(c *gin.Context) {
	id := c.Param("id")

	var req ObserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	obs, err := h.engine.RecordObservation(id, req.Control, req.Treatment)
	if err != nil {
		respondExperimentError(c, err)
		return
	}

	if h.archive != nil {
		if err := h.archive.Experiments.AddObservation(c.Request.Context(), obs); err != nil {
			h.log.WithError(err).WithField("experiment_id", id).Warn("Failed to archive observation")
		}
	}

	c.JSON(http.StatusOK, obs)
}

func (h *ExperimentHandler) Observations(c *gin.Context) {
	observations, err := h.engine.Observations(c.Param("id"))
	if err != nil {
		respondExperimentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"observations": observations})
}

func (h *ExperimentHandler) Recommendation(c *gin.Context) {
	rec, err := h.engine.RolloutRecommendation(c.Param("id"))
	if err != nil {
		respondExperimentError(c, err)
		return
	}

	c.JSON(http.StatusOK, rec)
}

func (h *ExperimentHandler) archiveDesign(c *gin.Context, design *domain.ExperimentDesign) {
	if h.archive == nil {
		return
	}
	if err := h.archive.Experiments.Upsert(c.Request.Context(), design); err != nil {
		h.log.WithError(err).WithField("experiment_id", design.ID).Warn("Failed to archive experiment")
	}
}

func respondExperimentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, experiment.ErrExperimentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "experiment not found"})
	case errors.Is(err, experiment.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
