package ads

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

// Mutation records one write issued against the mock account.
type Mutation struct {
	Op         string    `json:"op"`
	CampaignID string    `json:"campaign_id"`
	EntityID   string    `json:"entity_id,omitempty"`
	Value      float64   `json:"value,omitempty"`
	AppliedAt  time.Time `json:"applied_at"`
}

// MockClient is an in-memory Client backed by fixture campaigns. It
// records every mutation so tests and dry runs can assert on what the
// pipeline would have done to a live account.
type MockClient struct {
	mu        sync.Mutex
	order     []string
	campaigns map[string]*domain.CampaignSnapshot
	mutations []Mutation
	pageSize  int
	failNext  error
}

// NewMockClient builds a mock account from the given snapshots. With no
// arguments the account starts empty; use Seed to add campaigns later.
func NewMockClient(snapshots ...domain.CampaignSnapshot) *MockClient {
	m := &MockClient{
		campaigns: make(map[string]*domain.CampaignSnapshot),
		pageSize:  50,
	}
	m.Seed(snapshots...)
	return m
}

// Seed adds or replaces campaigns in the mock account.
func (m *MockClient) Seed(snapshots ...domain.CampaignSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range snapshots {
		snap := snapshots[i]
		if _, seen := m.campaigns[snap.Campaign.ID]; !seen {
			m.order = append(m.order, snap.Campaign.ID)
		}
		m.campaigns[snap.Campaign.ID] = &snap
	}
}

// SetPageSize overrides the default ListCampaigns page size.
func (m *MockClient) SetPageSize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n > 0 {
		m.pageSize = n
	}
}

// FailNext makes the next client call return err instead of running.
func (m *MockClient) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

// Mutations returns a copy of every recorded write, oldest first.
func (m *MockClient) Mutations() []Mutation {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Mutation, len(m.mutations))
	copy(out, m.mutations)
	return out
}

func (m *MockClient) takeFailure() error {
	if err := m.failNext; err != nil {
		m.failNext = nil
		return err
	}
	return nil
}

func (m *MockClient) record(op, campaignID, entityID string, value float64) {
	m.mutations = append(m.mutations, Mutation{
		Op:         op,
		CampaignID: campaignID,
		EntityID:   entityID,
		Value:      value,
		AppliedAt:  time.Now(),
	})
}

// ListCampaigns returns campaigns in seed order, one page at a time.
func (m *MockClient) ListCampaigns(ctx context.Context, pageToken string) (*CampaignPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}

	start := 0
	if pageToken != "" {
		var err error
		start, err = parsePageToken(pageToken)
		if err != nil {
			return nil, err
		}
	}
	if start > len(m.order) {
		start = len(m.order)
	}

	end := start + m.pageSize
	if end > len(m.order) {
		end = len(m.order)
	}

	page := &CampaignPage{Campaigns: make([]domain.CampaignSnapshot, 0, end-start)}
	for _, id := range m.order[start:end] {
		page.Campaigns = append(page.Campaigns, cloneSnapshot(m.campaigns[id]))
	}
	if end < len(m.order) {
		page.NextPageToken = fmt.Sprintf("offset:%d", end)
	}
	return page, nil
}

// GetCampaign returns a copy of one campaign snapshot.
func (m *MockClient) GetCampaign(ctx context.Context, campaignID string) (*domain.CampaignSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}
	snap, ok := m.campaigns[campaignID]
	if !ok {
		return nil, fmt.Errorf("get campaign %s: %w", campaignID, ErrNotFound)
	}
	out := cloneSnapshot(snap)
	return &out, nil
}

// UpdateBudget sets a campaign's daily budget.
func (m *MockClient) UpdateBudget(ctx context.Context, campaignID string, dailyBudget float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	snap, ok := m.campaigns[campaignID]
	if !ok {
		return fmt.Errorf("update budget for %s: %w", campaignID, ErrNotFound)
	}
	snap.Campaign.DailyBudget = dailyBudget
	m.record("update_budget", campaignID, "", dailyBudget)
	return nil
}

// UpdateKeywordBid sets a keyword's max CPC bid.
func (m *MockClient) UpdateKeywordBid(ctx context.Context, campaignID, keywordID string, bid float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	snap, ok := m.campaigns[campaignID]
	if !ok {
		return fmt.Errorf("update bid in %s: %w", campaignID, ErrNotFound)
	}
	for i := range snap.Keywords {
		if snap.Keywords[i].ID == keywordID {
			snap.Keywords[i].Bid = bid
			m.record("update_keyword_bid", campaignID, keywordID, bid)
			return nil
		}
	}
	return fmt.Errorf("update bid for keyword %s: %w", keywordID, ErrNotFound)
}

// PauseCampaign pauses a campaign.
func (m *MockClient) PauseCampaign(ctx context.Context, campaignID string) error {
	return m.setCampaignStatus(campaignID, domain.CampaignStatusPaused, "pause_campaign")
}

// ResumeCampaign re-enables a paused campaign.
func (m *MockClient) ResumeCampaign(ctx context.Context, campaignID string) error {
	return m.setCampaignStatus(campaignID, domain.CampaignStatusEnabled, "resume_campaign")
}

func (m *MockClient) setCampaignStatus(campaignID string, status domain.CampaignStatus, op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	snap, ok := m.campaigns[campaignID]
	if !ok {
		return fmt.Errorf("%s %s: %w", op, campaignID, ErrNotFound)
	}
	snap.Campaign.Status = status
	m.record(op, campaignID, "", 0)
	return nil
}

// PauseKeyword pauses a keyword by dropping its bid to zero and
// recording the mutation.
func (m *MockClient) PauseKeyword(ctx context.Context, campaignID, keywordID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	snap, ok := m.campaigns[campaignID]
	if !ok {
		return fmt.Errorf("pause keyword in %s: %w", campaignID, ErrNotFound)
	}
	for i := range snap.Keywords {
		if snap.Keywords[i].ID == keywordID {
			snap.Keywords[i].Bid = 0
			m.record("pause_keyword", campaignID, keywordID, 0)
			return nil
		}
	}
	return fmt.Errorf("pause keyword %s: %w", keywordID, ErrNotFound)
}

// AddKeyword adds a keyword to a campaign with zeroed metrics.
func (m *MockClient) AddKeyword(ctx context.Context, campaignID, text, matchType string, bid float64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return "", err
	}
	snap, ok := m.campaigns[campaignID]
	if !ok {
		return "", fmt.Errorf("add keyword to %s: %w", campaignID, ErrNotFound)
	}
	id := fmt.Sprintf("kw-%d", len(snap.Keywords)+1)
	snap.Keywords = append(snap.Keywords, domain.KeywordSnapshot{
		ID:        id,
		Text:      text,
		MatchType: matchType,
		Bid:       bid,
	})
	m.record("add_keyword", campaignID, id, bid)
	return id, nil
}

// AddNegativeKeyword records the exclusion. The mock keeps negatives
// only in the mutation log.
func (m *MockClient) AddNegativeKeyword(ctx context.Context, campaignID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	if _, ok := m.campaigns[campaignID]; !ok {
		return fmt.Errorf("add negative to %s: %w", campaignID, ErrNotFound)
	}
	m.record("add_negative_keyword", campaignID, text, 0)
	return nil
}

// PauseAd pauses an ad.
func (m *MockClient) PauseAd(ctx context.Context, campaignID, adID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	snap, ok := m.campaigns[campaignID]
	if !ok {
		return fmt.Errorf("pause ad in %s: %w", campaignID, ErrNotFound)
	}
	for i := range snap.Ads {
		if snap.Ads[i].ID == adID {
			snap.Ads[i].Status = string(domain.CampaignStatusPaused)
			m.record("pause_ad", campaignID, adID, 0)
			return nil
		}
	}
	return fmt.Errorf("pause ad %s: %w", adID, ErrNotFound)
}

// Report aggregates the fixture metrics over the requested scope. The
// mock has no per-day history, so the window only labels the report.
func (m *MockClient) Report(ctx context.Context, req ReportRequest) (*Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return nil, err
	}

	ids := req.CampaignIDs
	if len(ids) == 0 {
		ids = m.order
	}

	report := &Report{
		Period:    domain.Period{From: req.From, To: req.To},
		Campaigns: make(map[string]domain.PerformanceMetrics, len(ids)),
	}
	for _, id := range ids {
		snap, ok := m.campaigns[id]
		if !ok {
			return nil, fmt.Errorf("report campaign %s: %w", id, ErrNotFound)
		}
		report.Campaigns[id] = snap.Metrics
		report.Totals = addMetrics(report.Totals, snap.Metrics)
	}
	report.Totals = deriveRates(report.Totals)
	return report, nil
}

func parsePageToken(token string) (int, error) {
	var offset int
	if _, err := fmt.Sscanf(token, "offset:%d", &offset); err != nil {
		return 0, fmt.Errorf("invalid page token %q", token)
	}
	return offset, nil
}

func cloneSnapshot(snap *domain.CampaignSnapshot) domain.CampaignSnapshot {
	out := *snap
	out.Keywords = make([]domain.KeywordSnapshot, len(snap.Keywords))
	copy(out.Keywords, snap.Keywords)
	out.Ads = make([]domain.AdSnapshot, len(snap.Ads))
	copy(out.Ads, snap.Ads)
	return out
}

func addMetrics(a, b domain.PerformanceMetrics) domain.PerformanceMetrics {
	a.Impressions += b.Impressions
	a.Clicks += b.Clicks
	a.Cost += b.Cost
	a.Conversions += b.Conversions
	a.ConversionValue += b.ConversionValue
	return a
}

func deriveRates(m domain.PerformanceMetrics) domain.PerformanceMetrics {
	if m.Impressions > 0 {
		m.CTR = float64(m.Clicks) / float64(m.Impressions)
	}
	if m.Clicks > 0 {
		m.ConversionRate = m.Conversions / float64(m.Clicks)
		m.AverageCPC = m.Cost / float64(m.Clicks)
	}
	if m.Conversions > 0 {
		m.CPA = m.Cost / m.Conversions
	}
	if m.Cost > 0 {
		m.ROAS = m.ConversionValue / m.Cost
	}
	return m
}
