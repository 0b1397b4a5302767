package domain

import "time"

// PerformanceMetrics is the per-period metrics tuple supplied by the
// report producer. Rates are fractions: a CTR of 0.005 is 0.5%.
// AveragePosition, ImpressionShare and QualityScore are zero when the
// platform did not report them.
type PerformanceMetrics struct {
	Impressions     int64   `json:"impressions"`
	Clicks          int64   `json:"clicks"`
	CTR             float64 `json:"ctr"`
	Cost            float64 `json:"cost"`
	Conversions     float64 `json:"conversions"`
	ConversionValue float64 `json:"conversion_value"`
	ConversionRate  float64 `json:"conversion_rate"`
	CPA             float64 `json:"cpa"`
	ROAS            float64 `json:"roas"`
	AverageCPC      float64 `json:"average_cpc"`
	AveragePosition float64 `json:"average_position,omitempty"`
	ImpressionShare float64 `json:"impression_share,omitempty"`
	QualityScore    float64 `json:"quality_score,omitempty"`
}

type EntityType string

const (
	EntityCampaign EntityType = "campaign"
	EntityKeyword  EntityType = "keyword"
	EntityAd       EntityType = "ad"
	EntityAccount  EntityType = "account"
)

// Target identifies the entity an action, anomaly or violation refers
// to. CampaignID scopes keyword and ad targets to their owning
// campaign.
type Target struct {
	Type       EntityType `json:"type"`
	ID         string     `json:"id"`
	Name       string     `json:"name,omitempty"`
	CampaignID string     `json:"campaign_id,omitempty"`
}

type CampaignStatus string

const (
	CampaignStatusEnabled CampaignStatus = "enabled"
	CampaignStatusPaused  CampaignStatus = "paused"
	CampaignStatusRemoved CampaignStatus = "removed"
)

// Campaign is the configuration slice of a campaign the pipeline reasons
// about. TargetCPA overrides the account-level target when non-zero.
type Campaign struct {
	ID                string         `json:"id"`
	Name              string         `json:"name"`
	Status            CampaignStatus `json:"status"`
	DailyBudget       float64        `json:"daily_budget"`
	LocationTargeting []string       `json:"location_targeting,omitempty"`
	TargetCPA         float64        `json:"target_cpa,omitempty"`
}

type KeywordSnapshot struct {
	ID        string             `json:"id"`
	Text      string             `json:"text"`
	MatchType string             `json:"match_type"`
	Bid       float64            `json:"bid"`
	Metrics   PerformanceMetrics `json:"metrics"`
}

type AdSnapshot struct {
	ID          string             `json:"id"`
	Headline    string             `json:"headline"`
	Description string             `json:"description"`
	Status      string             `json:"status"`
	Metrics     PerformanceMetrics `json:"metrics"`
}

// CampaignSnapshot couples a campaign's configuration with its observed
// metrics for one period. It is the input shape for the optimization and
// governance passes.
type CampaignSnapshot struct {
	Campaign Campaign           `json:"campaign"`
	Metrics  PerformanceMetrics `json:"metrics"`
	Keywords []KeywordSnapshot  `json:"keywords,omitempty"`
	Ads      []AdSnapshot       `json:"ads,omitempty"`
}

type Period struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// PerformanceSummary is one period's account-wide view, produced by the
// performance producer and consumed by every engine in the loop.
type PerformanceSummary struct {
	Period    Period             `json:"period"`
	Totals    PerformanceMetrics `json:"totals"`
	Campaigns []CampaignSnapshot `json:"campaigns"`
	FetchedAt time.Time          `json:"fetched_at"`
}
