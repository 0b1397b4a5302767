package producer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ItaloOlivier/ayonne-sub000/internal/ads"
	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

func seedSnapshot(id string, cost float64) domain.CampaignSnapshot {
	return domain.CampaignSnapshot{
		Campaign: domain.Campaign{ID: id, Name: id, Status: domain.CampaignStatusEnabled, DailyBudget: 100},
		Metrics:  domain.PerformanceMetrics{Impressions: 1000, Clicks: 50, Cost: cost, Conversions: 2},
	}
}

func TestFetchSummaryPagesThroughAccount(t *testing.T) {
	client := ads.NewMockClient(
		seedSnapshot("c1", 100),
		seedSnapshot("c2", 200),
		seedSnapshot("c3", 300),
		seedSnapshot("c4", 400),
		seedSnapshot("c5", 500),
	)
	client.SetPageSize(2)

	p := NewPerformanceProducer(client, time.Hour, nil)
	summary, err := p.FetchSummary(context.Background())
	if err != nil {
		t.Fatalf("fetch summary: %v", err)
	}
	if len(summary.Campaigns) != 5 {
		t.Fatalf("got %d campaigns, want all 5 across pages", len(summary.Campaigns))
	}
	if summary.Totals.Cost != 1500 {
		t.Errorf("total cost = %v, want 1500", summary.Totals.Cost)
	}
	if summary.FetchedAt.IsZero() {
		t.Error("FetchedAt must be stamped")
	}
	if !summary.Period.From.Before(summary.Period.To) {
		t.Errorf("period %+v must span the window", summary.Period)
	}
	for _, snap := range summary.Campaigns {
		if snap.Metrics.Cost == 0 {
			t.Errorf("campaign %s metrics not overlaid from report", snap.Campaign.ID)
		}
	}
}

func TestFetchSummaryListFailure(t *testing.T) {
	client := ads.NewMockClient(seedSnapshot("c1", 100))
	client.FailNext(errors.New("quota exhausted"))

	p := NewPerformanceProducer(client, time.Hour, nil)
	_, err := p.FetchSummary(context.Background())
	if err == nil || !strings.Contains(err.Error(), "list campaigns") {
		t.Fatalf("err = %v, want list campaigns failure", err)
	}
}

type reportFailClient struct {
	*ads.MockClient
}

func (c *reportFailClient) Report(ctx context.Context, req ads.ReportRequest) (*ads.Report, error) {
	return nil, errors.New("report backend down")
}

func TestFetchSummaryReportFailure(t *testing.T) {
	client := &reportFailClient{ads.NewMockClient(seedSnapshot("c1", 100))}

	p := NewPerformanceProducer(client, time.Hour, nil)
	_, err := p.FetchSummary(context.Background())
	if err == nil || !strings.Contains(err.Error(), "fetch report") {
		t.Fatalf("err = %v, want fetch report failure", err)
	}
}
