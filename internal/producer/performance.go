// Package producer holds the units that feed the decision pipeline:
// the performance reporter plus the creative, keyword and strategy
// proposal generators.
package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ItaloOlivier/ayonne-sub000/internal/ads"
	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
	"github.com/ItaloOlivier/ayonne-sub000/internal/protocol"
)

// Actions the performance unit answers over the message protocol.
const (
	ActionFetchSummary = "fetch_summary"
	ActionGetCampaign  = "get_campaign"
)

const defaultReportWindow = 24 * time.Hour

// PerformanceProducer assembles the account-wide summary every loop
// iteration starts from.
type PerformanceProducer struct {
	client ads.Client
	window time.Duration
	log    *logrus.Entry
}

// NewPerformanceProducer builds a producer reporting over the given
// window. window <= 0 selects 24 hours.
func NewPerformanceProducer(client ads.Client, window time.Duration, log *logrus.Entry) *PerformanceProducer {
	if window <= 0 {
		window = defaultReportWindow
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &PerformanceProducer{client: client, window: window, log: log}
}

// FetchSummary pages through every campaign and overlays the report's
// per-campaign metrics for the window.
func (p *PerformanceProducer) FetchSummary(ctx context.Context) (*domain.PerformanceSummary, error) {
	var snapshots []domain.CampaignSnapshot
	token := ""
	for {
		page, err := p.client.ListCampaigns(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("list campaigns: %w", err)
		}
		snapshots = append(snapshots, page.Campaigns...)
		if page.NextPageToken == "" {
			break
		}
		token = page.NextPageToken
	}

	to := time.Now()
	report, err := p.client.Report(ctx, ads.ReportRequest{From: to.Add(-p.window), To: to})
	if err != nil {
		return nil, fmt.Errorf("fetch report: %w", err)
	}

	for i := range snapshots {
		if m, ok := report.Campaigns[snapshots[i].Campaign.ID]; ok {
			snapshots[i].Metrics = m
		}
	}

	summary := &domain.PerformanceSummary{
		Period:    report.Period,
		Totals:    report.Totals,
		Campaigns: snapshots,
		FetchedAt: time.Now(),
	}
	p.log.WithFields(logrus.Fields{
		"campaigns": len(summary.Campaigns),
		"cost":      summary.Totals.Cost,
	}).Info("Performance summary assembled")
	return summary, nil
}

// PerformanceUnit adapts the producer to the message protocol.
type PerformanceUnit struct {
	producer *PerformanceProducer
	tracker  *protocol.StateTracker
}

// NewPerformanceUnit wraps a producer as a protocol unit.
func NewPerformanceUnit(producer *PerformanceProducer) *PerformanceUnit {
	return &PerformanceUnit{
		producer: producer,
		tracker:  protocol.NewStateTracker(domain.UnitPerformance, "Performance Producer"),
	}
}

func (u *PerformanceUnit) ID() string { return domain.UnitPerformance }

func (u *PerformanceUnit) State() domain.AgentState { return u.tracker.Snapshot() }

type campaignRequest struct {
	CampaignID string `json:"campaign_id"`
}

// HandleMessage serves one protocol request.
func (u *PerformanceUnit) HandleMessage(ctx context.Context, msg *domain.AgentMessage) (*domain.AgentMessage, error) {
	u.tracker.Begin(msg.Action)

	payload, err := u.handle(ctx, msg)
	if err != nil {
		u.tracker.Fail(msg.Action, err, true)
		return nil, err
	}
	u.tracker.Done()
	return domain.ResponseTo(msg, domain.UnitPerformance, payload), nil
}

func (u *PerformanceUnit) handle(ctx context.Context, msg *domain.AgentMessage) (json.RawMessage, error) {
	switch msg.Action {
	case ActionFetchSummary:
		summary, err := u.producer.FetchSummary(ctx)
		if err != nil {
			return nil, err
		}
		return domain.MarshalPayload(summary), nil

	case ActionGetCampaign:
		var req campaignRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return nil, fmt.Errorf("decode campaign request: %w", err)
		}
		if req.CampaignID == "" {
			return nil, fmt.Errorf("campaign_id is required")
		}
		snap, err := u.producer.client.GetCampaign(ctx, req.CampaignID)
		if err != nil {
			return nil, err
		}
		return domain.MarshalPayload(snap), nil

	default:
		return nil, fmt.Errorf("unknown performance action %q", msg.Action)
	}
}
