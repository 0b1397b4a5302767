package producer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ItaloOlivier/ayonne-sub000/internal/llm"
)

type stubCompleter struct {
	content string
	err     error
	lastReq *llm.CompletionRequest
}

func (s *stubCompleter) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &llm.CompletionResponse{Content: s.content}, nil
}

func TestDraftAdsScansEveryDraft(t *testing.T) {
	stub := &stubCompleter{content: `{"ads": [
		{"headline": "Run Faster Today", "description": "Shoes built for tempo work and race day."},
		{"headline": "Guaranteed PR Shoes", "description": "Instant results for every runner."},
		{"headline": "  ", "description": "dropped for empty headline"}
	]}`}

	p := NewCreativeProducer(stub, nil)
	drafts, err := p.DraftAds(context.Background(), DraftRequest{Product: "running shoes", CampaignName: "c1"})
	if err != nil {
		t.Fatalf("draft ads: %v", err)
	}
	if len(drafts) != 2 {
		t.Fatalf("got %d drafts, want 2 after dropping the blank one", len(drafts))
	}

	clean := drafts[0]
	if !clean.Compliant || len(clean.FlaggedTerms) != 0 {
		t.Errorf("clean draft = %+v, want compliant with no flags", clean)
	}

	flagged := drafts[1]
	if flagged.Compliant {
		t.Fatalf("draft %+v must be non-compliant", flagged)
	}
	joined := strings.Join(flagged.FlaggedTerms, " ")
	if !strings.Contains(joined, "guaranteed") || !strings.Contains(joined, "instant results") {
		t.Errorf("flagged terms %v must include guaranteed and instant results", flagged.FlaggedTerms)
	}

	if !stub.lastReq.JSONMode {
		t.Error("draft request must use JSON mode")
	}
}

func TestDraftAdsRequiresProduct(t *testing.T) {
	p := NewCreativeProducer(&stubCompleter{}, nil)
	if _, err := p.DraftAds(context.Background(), DraftRequest{}); err == nil {
		t.Fatal("missing product must error")
	}
}

func TestDraftAdsCompletionFailure(t *testing.T) {
	p := NewCreativeProducer(&stubCompleter{err: errors.New("provider down")}, nil)
	_, err := p.DraftAds(context.Background(), DraftRequest{Product: "running shoes"})
	if err == nil || !strings.Contains(err.Error(), "llm completion") {
		t.Fatalf("err = %v, want llm completion failure", err)
	}
}

func TestDraftAdsRejectsUnparseableResponse(t *testing.T) {
	p := NewCreativeProducer(&stubCompleter{content: "sorry, no json today"}, nil)
	_, err := p.DraftAds(context.Background(), DraftRequest{Product: "running shoes"})
	if err == nil || !strings.Contains(err.Error(), "parse response") {
		t.Fatalf("err = %v, want parse failure", err)
	}
}

func TestDraftAdsRejectsEmptyAdList(t *testing.T) {
	p := NewCreativeProducer(&stubCompleter{content: `{"ads": []}`}, nil)
	if _, err := p.DraftAds(context.Background(), DraftRequest{Product: "running shoes"}); err == nil {
		t.Fatal("empty ad list must error")
	}
}
