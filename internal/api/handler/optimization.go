package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
	"github.com/ItaloOlivier/ayonne-sub000/internal/optimizer"
	"github.com/ItaloOlivier/ayonne-sub000/internal/producer"
	"github.com/ItaloOlivier/ayonne-sub000/internal/protocol"
)

// apiSender is the From identity on messages originating from HTTP
// ingress.
const apiSender = "api"

type OptimizationHandler struct {
	router *protocol.Router
}

// NewOptimizationHandler serves read-only optimization views. Plans are
// generated on demand; applying them goes through the approval queue,
// never through this handler.
func NewOptimizationHandler(router *protocol.Router) *OptimizationHandler {
	return &OptimizationHandler{router: router}
}

// Plan fetches a fresh performance summary and returns the rule
// engine's prioritized plan for it.
func (h *OptimizationHandler) Plan(c *gin.Context) {
	ctx := c.Request.Context()

	var summary domain.PerformanceSummary
	if err := queryUnit(ctx, h.router, domain.UnitPerformance, producer.ActionFetchSummary, nil, &summary); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("fetch performance summary: %v", err)})
		return
	}

	var plan domain.OptimizationPlan
	if err := queryUnit(ctx, h.router, domain.UnitOptimizer, optimizer.ActionGeneratePlan, domain.MarshalPayload(summary), &plan); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("generate plan: %v", err)})
		return
	}

	c.JSON(http.StatusOK, plan)
}

type ScalingRequest struct {
	CampaignID string                      `json:"campaign_id"`
	History    []domain.PerformanceMetrics `json:"history,omitempty"`
}

// Scaling classifies one campaign's readiness to scale.
func (h *OptimizationHandler) Scaling(c *gin.Context) {
	var req ScalingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.CampaignID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "campaign_id is required"})
		return
	}

	ctx := c.Request.Context()

	var snapshot domain.CampaignSnapshot
	campaignReq := struct {
		CampaignID string `json:"campaign_id"`
	}{CampaignID: req.CampaignID}
	if err := queryUnit(ctx, h.router, domain.UnitPerformance, producer.ActionGetCampaign, domain.MarshalPayload(campaignReq), &snapshot); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": fmt.Sprintf("fetch campaign: %v", err)})
		return
	}

	scalingReq := struct {
		Snapshot domain.CampaignSnapshot     `json:"snapshot"`
		History  []domain.PerformanceMetrics `json:"history"`
	}{Snapshot: snapshot, History: req.History}

	var decision domain.ScalingDecision
	if err := queryUnit(ctx, h.router, domain.UnitOptimizer, optimizer.ActionScaling, domain.MarshalPayload(scalingReq), &decision); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("scaling decision: %v", err)})
		return
	}

	c.JSON(http.StatusOK, decision)
}

// queryUnit sends one request through the router and decodes the
// response payload into out.
func queryUnit(ctx context.Context, router *protocol.Router, to, action string, payload json.RawMessage, out any) error {
	resp, err := router.Dispatch(ctx, domain.NewRequest(apiSender, to, action, payload))
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if resp == nil {
		return fmt.Errorf("no response from %s", to)
	}
	return json.Unmarshal(resp.Payload, out)
}
