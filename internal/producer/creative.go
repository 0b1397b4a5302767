package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
	"github.com/ItaloOlivier/ayonne-sub000/internal/governance"
	"github.com/ItaloOlivier/ayonne-sub000/internal/llm"
	"github.com/ItaloOlivier/ayonne-sub000/internal/protocol"
)

// ActionDraftAds asks the creative unit for ad copy candidates.
const ActionDraftAds = "draft_ads"

// Completer is the slice of the LLM client the producers need.
type Completer interface {
	Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error)
}

const (
	defaultDraftCount = 3
	maxHeadlineLen    = 30
	maxDescriptionLen = 90
)

// AdDraft is one proposed piece of ad copy. Drafts that trip the
// prohibited-terms scan are kept but marked non-compliant, so reviewers
// see what was filtered and why.
type AdDraft struct {
	Headline     string   `json:"headline"`
	Description  string   `json:"description"`
	Compliant    bool     `json:"compliant"`
	FlaggedTerms []string `json:"flagged_terms,omitempty"`
}

// DraftRequest describes the campaign the copy is for.
type DraftRequest struct {
	CampaignName string   `json:"campaign_name"`
	Product      string   `json:"product"`
	Audience     string   `json:"audience,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
	Count        int      `json:"count,omitempty"`
}

// CreativeProducer drafts ad copy with the configured LLM and scans
// every draft before it can reach the platform.
type CreativeProducer struct {
	client Completer
	log    *logrus.Entry
}

// NewCreativeProducer builds a creative producer over the LLM client.
func NewCreativeProducer(client Completer, log *logrus.Entry) *CreativeProducer {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &CreativeProducer{client: client, log: log}
}

// DraftAds generates count copy candidates for the campaign.
func (p *CreativeProducer) DraftAds(ctx context.Context, req DraftRequest) ([]AdDraft, error) {
	if req.Product == "" {
		return nil, fmt.Errorf("product is required")
	}
	if req.Count <= 0 {
		req.Count = defaultDraftCount
	}

	resp, err := p.client.Complete(ctx, &llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: "system", Content: "You are a senior paid-search copywriter. Always respond with valid JSON."},
			{Role: "user", Content: p.buildPrompt(req)},
		},
		MaxTokens:   1024,
		Temperature: 0.7,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("llm completion: %w", err)
	}

	drafts, err := p.parseResponse(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	compliant := 0
	for i := range drafts {
		flagged := governance.ScanCopy(drafts[i].Headline + " " + drafts[i].Description)
		drafts[i].FlaggedTerms = flagged
		drafts[i].Compliant = len(flagged) == 0
		if drafts[i].Compliant {
			compliant++
		}
	}

	p.log.WithFields(logrus.Fields{
		"campaign":  req.CampaignName,
		"drafts":    len(drafts),
		"compliant": compliant,
	}).Info("Ad copy drafted")
	return drafts, nil
}

func (p *CreativeProducer) buildPrompt(req DraftRequest) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Write %d search ad variants for the product below.\n\n", req.Count)
	fmt.Fprintf(&sb, "Product: %s\n", req.Product)
	if req.CampaignName != "" {
		fmt.Fprintf(&sb, "Campaign: %s\n", req.CampaignName)
	}
	if req.Audience != "" {
		fmt.Fprintf(&sb, "Audience: %s\n", req.Audience)
	}
	if len(req.Keywords) > 0 {
		fmt.Fprintf(&sb, "Target keywords: %s\n", strings.Join(req.Keywords, ", "))
	}

	fmt.Fprintf(&sb, "\nConstraints: headlines at most %d characters, descriptions at most %d characters. ", maxHeadlineLen, maxDescriptionLen)
	sb.WriteString("Never promise cures, guarantees, miracles or instant results.\n\n")
	sb.WriteString(`Respond with JSON: {"ads": [{"headline": "...", "description": "..."}]}`)

	return sb.String()
}

func (p *CreativeProducer) parseResponse(content string) ([]AdDraft, error) {
	var parsed struct {
		Ads []struct {
			Headline    string `json:"headline"`
			Description string `json:"description"`
		} `json:"ads"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Ads) == 0 {
		return nil, fmt.Errorf("no ads in response")
	}

	drafts := make([]AdDraft, 0, len(parsed.Ads))
	for _, ad := range parsed.Ads {
		headline := strings.TrimSpace(ad.Headline)
		description := strings.TrimSpace(ad.Description)
		if headline == "" || description == "" {
			continue
		}
		drafts = append(drafts, AdDraft{Headline: headline, Description: description})
	}
	if len(drafts) == 0 {
		return nil, fmt.Errorf("no usable ads in response")
	}
	return drafts, nil
}

// CreativeUnit adapts the producer to the message protocol.
type CreativeUnit struct {
	producer *CreativeProducer
	tracker  *protocol.StateTracker
}

// NewCreativeUnit wraps a producer as a protocol unit.
func NewCreativeUnit(producer *CreativeProducer) *CreativeUnit {
	return &CreativeUnit{
		producer: producer,
		tracker:  protocol.NewStateTracker(domain.UnitCreative, "Creative Producer"),
	}
}

func (u *CreativeUnit) ID() string { return domain.UnitCreative }

func (u *CreativeUnit) State() domain.AgentState { return u.tracker.Snapshot() }

// HandleMessage serves one protocol request.
func (u *CreativeUnit) HandleMessage(ctx context.Context, msg *domain.AgentMessage) (*domain.AgentMessage, error) {
	u.tracker.Begin(msg.Action)

	payload, err := u.handle(ctx, msg)
	if err != nil {
		u.tracker.Fail(msg.Action, err, true)
		return nil, err
	}
	u.tracker.Done()
	return domain.ResponseTo(msg, domain.UnitCreative, payload), nil
}

func (u *CreativeUnit) handle(ctx context.Context, msg *domain.AgentMessage) (json.RawMessage, error) {
	switch msg.Action {
	case ActionDraftAds:
		var req DraftRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return nil, fmt.Errorf("decode draft request: %w", err)
		}
		drafts, err := u.producer.DraftAds(ctx, req)
		if err != nil {
			return nil, err
		}
		return domain.MarshalPayload(map[string]any{"drafts": drafts}), nil

	default:
		return nil, fmt.Errorf("unknown creative action %q", msg.Action)
	}
}
