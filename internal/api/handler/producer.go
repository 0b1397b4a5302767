package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
	"github.com/ItaloOlivier/ayonne-sub000/internal/producer"
	"github.com/ItaloOlivier/ayonne-sub000/internal/protocol"
)

// ProducerHandler fronts the performance, creative, keyword and
// strategy units.
type ProducerHandler struct {
	router *protocol.Router
}

func NewProducerHandler(router *protocol.Router) *ProducerHandler {
	return &ProducerHandler{router: router}
}

func (h *ProducerHandler) Summary(c *gin.Context) {
	var summary domain.PerformanceSummary
	if err := queryUnit(c.Request.Context(), h.router, domain.UnitPerformance, producer.ActionFetchSummary, nil, &summary); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("fetch performance summary: %v", err)})
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *ProducerHandler) Campaign(c *gin.Context) {
	req := struct {
		CampaignID string `json:"campaign_id"`
	}{CampaignID: c.Param("id")}

	var snapshot domain.CampaignSnapshot
	if err := queryUnit(c.Request.Context(), h.router, domain.UnitPerformance, producer.ActionGetCampaign, domain.MarshalPayload(req), &snapshot); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("fetch campaign: %v", err)})
		return
	}

	c.JSON(http.StatusOK, snapshot)
}

func (h *ProducerHandler) DraftAds(c *gin.Context) {
	var req producer.DraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var out struct {
		Drafts []producer.AdDraft `json:"drafts"`
	}
	if err := queryUnit(c.Request.Context(), h.router, domain.UnitCreative, producer.ActionDraftAds, domain.MarshalPayload(req), &out); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("draft ads: %v", err)})
		return
	}

	c.JSON(http.StatusOK, out)
}

func (h *ProducerHandler) SuggestKeywords(c *gin.Context) {
	var req producer.KeywordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var proposals producer.KeywordProposals
	if err := queryUnit(c.Request.Context(), h.router, domain.UnitKeyword, producer.ActionSuggestKeywords, domain.MarshalPayload(req), &proposals); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("suggest keywords: %v", err)})
		return
	}

	c.JSON(http.StatusOK, proposals)
}

func (h *ProducerHandler) BudgetSplit(c *gin.Context) {
	var req producer.BudgetSplitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var split producer.BudgetSplit
	if err := queryUnit(c.Request.Context(), h.router, domain.UnitStrategy, producer.ActionBudgetSplit, domain.MarshalPayload(req), &split); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("budget split: %v", err)})
		return
	}

	c.JSON(http.StatusOK, split)
}
