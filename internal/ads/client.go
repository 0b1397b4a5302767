// Package ads defines the boundary to the advertising platform. The
// pipeline never talks to platform SDKs directly; every engine goes
// through Client so that real and simulated accounts are
// interchangeable.
package ads

import (
	"context"
	"errors"
	"time"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

// ErrNotFound is returned when a campaign, keyword or ad does not exist
// in the account.
var ErrNotFound = errors.New("ads: entity not found")

// CampaignPage is one page of campaign snapshots. An empty NextPageToken
// means the listing is complete.
type CampaignPage struct {
	Campaigns     []domain.CampaignSnapshot `json:"campaigns"`
	NextPageToken string                    `json:"next_page_token,omitempty"`
}

// ReportRequest selects the reporting window and scope for Report calls.
type ReportRequest struct {
	From        time.Time `json:"from"`
	To          time.Time `json:"to"`
	CampaignIDs []string  `json:"campaign_ids,omitempty"`
}

// Report is an aggregated metrics report over the requested window.
type Report struct {
	Period    domain.Period                        `json:"period"`
	Totals    domain.PerformanceMetrics            `json:"totals"`
	Campaigns map[string]domain.PerformanceMetrics `json:"campaigns"`
}

// Client is the capability surface the engines need from the ad
// platform. Implementations hold no business logic: they fetch and
// mutate, nothing else.
type Client interface {
	// ListCampaigns returns one page of campaigns with their current
	// metrics, keywords and ads. Pass the previous page's
	// NextPageToken to continue; pass "" for the first page.
	ListCampaigns(ctx context.Context, pageToken string) (*CampaignPage, error)

	// GetCampaign returns a single campaign snapshot.
	GetCampaign(ctx context.Context, campaignID string) (*domain.CampaignSnapshot, error)

	// UpdateBudget sets a campaign's daily budget.
	UpdateBudget(ctx context.Context, campaignID string, dailyBudget float64) error

	// UpdateKeywordBid sets a keyword's max CPC bid.
	UpdateKeywordBid(ctx context.Context, campaignID, keywordID string, bid float64) error

	// PauseCampaign pauses a campaign.
	PauseCampaign(ctx context.Context, campaignID string) error

	// ResumeCampaign re-enables a paused campaign.
	ResumeCampaign(ctx context.Context, campaignID string) error

	// PauseKeyword pauses a keyword.
	PauseKeyword(ctx context.Context, campaignID, keywordID string) error

	// AddKeyword adds a keyword to a campaign and returns its id.
	AddKeyword(ctx context.Context, campaignID, text, matchType string, bid float64) (string, error)

	// AddNegativeKeyword excludes a search term from a campaign.
	AddNegativeKeyword(ctx context.Context, campaignID, text string) error

	// PauseAd pauses an ad.
	PauseAd(ctx context.Context, campaignID, adID string) error

	// Report aggregates performance over a window.
	Report(ctx context.Context, req ReportRequest) (*Report, error)
}
