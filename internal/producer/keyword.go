package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
	"github.com/ItaloOlivier/ayonne-sub000/internal/llm"
	"github.com/ItaloOlivier/ayonne-sub000/internal/protocol"
)

// ActionSuggestKeywords asks the keyword unit for expansion candidates.
const ActionSuggestKeywords = "suggest_keywords"

const (
	defaultKeywordCount  = 10
	defaultSuggestedBid  = 1.0
	keywordAddConfidence = 0.6
)

var validMatchTypes = map[string]bool{
	"exact":  true,
	"phrase": true,
	"broad":  true,
}

// KeywordRequest scopes an expansion round to one campaign.
type KeywordRequest struct {
	CampaignID   string   `json:"campaign_id"`
	CampaignName string   `json:"campaign_name"`
	Product      string   `json:"product"`
	Existing     []string `json:"existing,omitempty"`
	Count        int      `json:"count,omitempty"`
	SuggestedBid float64  `json:"suggested_bid,omitempty"`
}

// KeywordProposals is one expansion round: additions and negatives, both
// expressed as optimization actions so they flow through the same
// approval gate as every other change.
type KeywordProposals struct {
	Additions []domain.OptimizationAction `json:"additions"`
	Negatives []domain.OptimizationAction `json:"negatives"`
}

// KeywordProducer expands campaigns with LLM-suggested keywords.
type KeywordProducer struct {
	client Completer
	log    *logrus.Entry
}

// NewKeywordProducer builds a keyword producer over the LLM client.
func NewKeywordProducer(client Completer, log *logrus.Entry) *KeywordProducer {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &KeywordProducer{client: client, log: log}
}

// SuggestKeywords asks the LLM for expansion candidates and converts
// them into proposed actions. Suggestions that duplicate existing
// keywords or carry an unknown match type are dropped.
func (p *KeywordProducer) SuggestKeywords(ctx context.Context, req KeywordRequest) (*KeywordProposals, error) {
	if req.CampaignID == "" {
		return nil, fmt.Errorf("campaign_id is required")
	}
	if req.Product == "" {
		return nil, fmt.Errorf("product is required")
	}
	if req.Count <= 0 {
		req.Count = defaultKeywordCount
	}
	if req.SuggestedBid <= 0 {
		req.SuggestedBid = defaultSuggestedBid
	}

	resp, err := p.client.Complete(ctx, &llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: "system", Content: "You are a paid-search keyword strategist. Always respond with valid JSON."},
			{Role: "user", Content: p.buildPrompt(req)},
		},
		MaxTokens:   1024,
		Temperature: 0.5,
		JSONMode:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("llm completion: %w", err)
	}

	parsed, err := p.parseResponse(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	existing := make(map[string]bool, len(req.Existing))
	for _, kw := range req.Existing {
		existing[strings.ToLower(strings.TrimSpace(kw))] = true
	}

	proposals := &KeywordProposals{}
	now := time.Now()
	for _, kw := range parsed.Keywords {
		text := strings.ToLower(strings.TrimSpace(kw.Text))
		matchType := strings.ToLower(strings.TrimSpace(kw.MatchType))
		if text == "" || existing[text] || !validMatchTypes[matchType] {
			continue
		}
		existing[text] = true
		proposals.Additions = append(proposals.Additions, domain.OptimizationAction{
			ID:   uuid.New().String(),
			Type: domain.ActionKeywordAdd,
			Target: domain.Target{
				Type:       domain.EntityKeyword,
				Name:       text,
				CampaignID: req.CampaignID,
			},
			ProposedValue: req.SuggestedBid,
			Impact:        domain.ExpectedImpact{Metric: "conversions", ExpectedChange: 10, Direction: domain.DirectionIncrease},
			Confidence:    keywordAddConfidence,
			Justification: fmt.Sprintf("expansion candidate (%s match) for %s", matchType, req.Product),
			Status:        domain.ActionStatusProposed,
			CreatedAt:     now,
		})
	}
	for _, neg := range parsed.Negatives {
		text := strings.ToLower(strings.TrimSpace(neg))
		if text == "" {
			continue
		}
		proposals.Negatives = append(proposals.Negatives, domain.OptimizationAction{
			ID:   uuid.New().String(),
			Type: domain.ActionNegativeAdd,
			Target: domain.Target{
				Type:       domain.EntityKeyword,
				Name:       text,
				CampaignID: req.CampaignID,
			},
			Impact:        domain.ExpectedImpact{Metric: "waste", ExpectedChange: -5, Direction: domain.DirectionDecrease},
			Confidence:    keywordAddConfidence,
			Justification: fmt.Sprintf("irrelevant traffic blocker for %s", req.Product),
			Status:        domain.ActionStatusProposed,
			CreatedAt:     now,
		})
	}

	p.log.WithFields(logrus.Fields{
		"campaign_id": req.CampaignID,
		"additions":   len(proposals.Additions),
		"negatives":   len(proposals.Negatives),
	}).Info("Keyword expansion proposed")
	return proposals, nil
}

func (p *KeywordProducer) buildPrompt(req KeywordRequest) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Suggest up to %d new search keywords for the product below, plus negative keywords to block irrelevant traffic.\n\n", req.Count)
	fmt.Fprintf(&sb, "Product: %s\n", req.Product)
	if req.CampaignName != "" {
		fmt.Fprintf(&sb, "Campaign: %s\n", req.CampaignName)
	}
	if len(req.Existing) > 0 {
		fmt.Fprintf(&sb, "Already targeted (do not repeat): %s\n", strings.Join(req.Existing, ", "))
	}
	sb.WriteString("\nMatch types must be one of exact, phrase, broad.\n\n")
	sb.WriteString(`Respond with JSON: {"keywords": [{"text": "...", "match_type": "..."}], "negatives": ["..."]}`)

	return sb.String()
}

type keywordResponse struct {
	Keywords []struct {
		Text      string `json:"text"`
		MatchType string `json:"match_type"`
	} `json:"keywords"`
	Negatives []string `json:"negatives"`
}

func (p *KeywordProducer) parseResponse(content string) (*keywordResponse, error) {
	var parsed keywordResponse
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Keywords) == 0 && len(parsed.Negatives) == 0 {
		return nil, fmt.Errorf("no suggestions in response")
	}
	return &parsed, nil
}

// KeywordUnit adapts the producer to the message protocol.
type KeywordUnit struct {
	producer *KeywordProducer
	tracker  *protocol.StateTracker
}

// NewKeywordUnit wraps a producer as a protocol unit.
func NewKeywordUnit(producer *KeywordProducer) *KeywordUnit {
	return &KeywordUnit{
		producer: producer,
		tracker:  protocol.NewStateTracker(domain.UnitKeyword, "Keyword Producer"),
	}
}

func (u *KeywordUnit) ID() string { return domain.UnitKeyword }

func (u *KeywordUnit) State() domain.AgentState { return u.tracker.Snapshot() }

// HandleMessage serves one protocol request.
func (u *KeywordUnit) HandleMessage(ctx context.Context, msg *domain.AgentMessage) (*domain.AgentMessage, error) {
	u.tracker.Begin(msg.Action)

	payload, err := u.handle(ctx, msg)
	if err != nil {
		u.tracker.Fail(msg.Action, err, true)
		return nil, err
	}
	u.tracker.Done()
	return domain.ResponseTo(msg, domain.UnitKeyword, payload), nil
}

func (u *KeywordUnit) handle(ctx context.Context, msg *domain.AgentMessage) (json.RawMessage, error) {
	switch msg.Action {
	case ActionSuggestKeywords:
		var req KeywordRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return nil, fmt.Errorf("decode keyword request: %w", err)
		}
		proposals, err := u.producer.SuggestKeywords(ctx, req)
		if err != nil {
			return nil, err
		}
		return domain.MarshalPayload(proposals), nil

	default:
		return nil, fmt.Errorf("unknown keyword action %q", msg.Action)
	}
}
