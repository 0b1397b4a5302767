package producer

import (
	"context"
	"testing"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

func TestSuggestKeywordsFiltersAndConverts(t *testing.T) {
	stub := &stubCompleter{content: `{
		"keywords": [
			{"text": "Trail Running Shoes", "match_type": "Exact"},
			{"text": "trail running shoes", "match_type": "phrase"},
			{"text": "running shoes", "match_type": "broad"},
			{"text": "cheap sneakers", "match_type": "negative"}
		],
		"negatives": ["free", " "]
	}`}

	p := NewKeywordProducer(stub, nil)
	proposals, err := p.SuggestKeywords(context.Background(), KeywordRequest{
		CampaignID:   "c1",
		Product:      "running shoes",
		Existing:     []string{"Running Shoes"},
		SuggestedBid: 1.5,
	})
	if err != nil {
		t.Fatalf("suggest keywords: %v", err)
	}

	if len(proposals.Additions) != 1 {
		t.Fatalf("got %d additions, want 1 after dedupe and match-type filtering: %+v", len(proposals.Additions), proposals.Additions)
	}
	add := proposals.Additions[0]
	if add.Type != domain.ActionKeywordAdd {
		t.Errorf("type = %s, want keyword_add", add.Type)
	}
	if add.Target.Name != "trail running shoes" {
		t.Errorf("keyword = %q, want lowercased trail running shoes", add.Target.Name)
	}
	if add.Target.CampaignID != "c1" || add.Target.Type != domain.EntityKeyword {
		t.Errorf("target = %+v, want keyword scoped to c1", add.Target)
	}
	if add.ProposedValue != 1.5 {
		t.Errorf("bid = %v, want the suggested 1.5", add.ProposedValue)
	}
	if add.Status != domain.ActionStatusProposed {
		t.Errorf("status = %s, want proposed", add.Status)
	}

	if len(proposals.Negatives) != 1 {
		t.Fatalf("got %d negatives, want 1 after dropping the blank: %+v", len(proposals.Negatives), proposals.Negatives)
	}
	neg := proposals.Negatives[0]
	if neg.Type != domain.ActionNegativeAdd || neg.Target.Name != "free" {
		t.Errorf("negative = %+v, want negative_add for free", neg)
	}
}

func TestSuggestKeywordsValidation(t *testing.T) {
	p := NewKeywordProducer(&stubCompleter{}, nil)

	if _, err := p.SuggestKeywords(context.Background(), KeywordRequest{Product: "x"}); err == nil {
		t.Error("missing campaign_id must error")
	}
	if _, err := p.SuggestKeywords(context.Background(), KeywordRequest{CampaignID: "c1"}); err == nil {
		t.Error("missing product must error")
	}
}

func TestSuggestKeywordsRejectsEmptyResponse(t *testing.T) {
	p := NewKeywordProducer(&stubCompleter{content: `{"keywords": [], "negatives": []}`}, nil)
	if _, err := p.SuggestKeywords(context.Background(), KeywordRequest{CampaignID: "c1", Product: "x"}); err == nil {
		t.Fatal("empty suggestion set must error")
	}
}
