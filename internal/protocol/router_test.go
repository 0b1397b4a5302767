package protocol

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

type stubUnit struct {
	id     string
	handle func(ctx context.Context, msg *domain.AgentMessage) (*domain.AgentMessage, error)
}

func (s *stubUnit) ID() string { return s.id }

func (s *stubUnit) HandleMessage(ctx context.Context, msg *domain.AgentMessage) (*domain.AgentMessage, error) {
	if s.handle == nil {
		return nil, nil
	}
	return s.handle(ctx, msg)
}

func (s *stubUnit) State() domain.AgentState {
	return domain.AgentState{ID: s.id, Name: s.id, Status: domain.AgentStatusIdle}
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRouter(nil)
	if err := r.Register(&stubUnit{id: "optimizer"}); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	err := r.Register(&stubUnit{id: "optimizer"})
	if !errors.Is(err, ErrDuplicateUnit) {
		t.Fatalf("got %v, want ErrDuplicateUnit", err)
	}
}

func TestDispatchUnknownRecipient(t *testing.T) {
	r := NewRouter(nil)
	msg := domain.NewRequest("orchestrator", "nobody", "status", nil)
	if _, err := r.Dispatch(context.Background(), msg); !errors.Is(err, ErrUnknownRecipient) {
		t.Fatalf("got %v, want ErrUnknownRecipient", err)
	}
}

func TestDispatchRequestResponse(t *testing.T) {
	r := NewRouter(nil)
	echo := &stubUnit{
		id: "governance",
		handle: func(_ context.Context, msg *domain.AgentMessage) (*domain.AgentMessage, error) {
			return domain.ResponseTo(msg, "governance", domain.MarshalPayload(map[string]string{"ok": "yes"})), nil
		},
	}
	if err := r.Register(echo); err != nil {
		t.Fatalf("register: %v", err)
	}

	req := domain.NewRequest(domain.RecipientOrchestrator, "governance", "check", nil)
	resp, err := r.Dispatch(context.Background(), req)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if resp == nil {
		t.Fatal("expected a response, got nil")
	}
	if resp.CorrelationID != req.CorrelationID {
		t.Errorf("correlation id = %q, want %q", resp.CorrelationID, req.CorrelationID)
	}
	if resp.To != domain.RecipientOrchestrator {
		t.Errorf("response addressed to %q, want %q", resp.To, domain.RecipientOrchestrator)
	}
	if r.PendingCorrelations() != 0 {
		t.Errorf("pending correlations = %d, want 0 after response", r.PendingCorrelations())
	}
}

func TestDuplicateResponseDropped(t *testing.T) {
	r := NewRouter(nil)
	sink := &stubUnit{id: domain.RecipientOrchestrator}
	unit := &stubUnit{
		id: "optimizer",
		handle: func(_ context.Context, msg *domain.AgentMessage) (*domain.AgentMessage, error) {
			return domain.ResponseTo(msg, "optimizer", nil), nil
		},
	}
	if err := r.Register(sink); err != nil {
		t.Fatalf("register sink: %v", err)
	}
	if err := r.Register(unit); err != nil {
		t.Fatalf("register unit: %v", err)
	}

	req := domain.NewRequest(domain.RecipientOrchestrator, "optimizer", "optimize", nil)
	first, err := r.Dispatch(context.Background(), req)
	if err != nil {
		t.Fatalf("dispatch request: %v", err)
	}
	if first == nil {
		t.Fatal("expected inline response")
	}

	// A second response on the same correlation must not be delivered.
	late := domain.ResponseTo(req, "optimizer", nil)
	got, err := r.Dispatch(context.Background(), late)
	if err != nil {
		t.Fatalf("dispatch late response: %v", err)
	}
	if got != nil {
		t.Fatalf("late response was delivered: %+v", got)
	}
}

func TestUnsolicitedResponseDropped(t *testing.T) {
	r := NewRouter(nil)
	delivered := false
	sink := &stubUnit{
		id: domain.RecipientOrchestrator,
		handle: func(_ context.Context, _ *domain.AgentMessage) (*domain.AgentMessage, error) {
			delivered = true
			return nil, nil
		},
	}
	if err := r.Register(sink); err != nil {
		t.Fatalf("register: %v", err)
	}

	stray := &domain.AgentMessage{
		ID:            "m1",
		From:          "optimizer",
		To:            domain.RecipientOrchestrator,
		Type:          domain.MessageTypeResponse,
		CorrelationID: "never-requested",
		CreatedAt:     time.Now(),
	}
	got, err := r.Dispatch(context.Background(), stray)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if got != nil || delivered {
		t.Fatalf("stray response reached the unit (resp=%v delivered=%v)", got, delivered)
	}
}

func TestDispatchRecoversPanic(t *testing.T) {
	r := NewRouter(nil)
	bomb := &stubUnit{
		id: "experiment",
		handle: func(_ context.Context, _ *domain.AgentMessage) (*domain.AgentMessage, error) {
			panic("boom")
		},
	}
	if err := r.Register(bomb); err != nil {
		t.Fatalf("register: %v", err)
	}

	msg := domain.NewRequest(domain.RecipientOrchestrator, "experiment", "observe", nil)
	_, err := r.Dispatch(context.Background(), msg)
	if err == nil {
		t.Fatal("expected an error from a panicking unit")
	}
}

func TestSweepDropsExpired(t *testing.T) {
	r := NewRouter(nil)
	r.SetResponseTTL(time.Millisecond)
	noop := &stubUnit{id: "governance"}
	if err := r.Register(noop); err != nil {
		t.Fatalf("register: %v", err)
	}

	req := domain.NewRequest(domain.RecipientOrchestrator, "governance", "check", nil)
	if _, err := r.Dispatch(context.Background(), req); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if r.PendingCorrelations() != 1 {
		t.Fatalf("pending = %d, want 1", r.PendingCorrelations())
	}

	removed := r.Sweep(time.Now().Add(time.Second))
	if removed != 1 {
		t.Errorf("swept %d entries, want 1", removed)
	}
	if r.PendingCorrelations() != 0 {
		t.Errorf("pending = %d, want 0 after sweep", r.PendingCorrelations())
	}
}

func TestStatesSorted(t *testing.T) {
	r := NewRouter(nil)
	for _, id := range []string{"optimizer", "experiment", "governance"} {
		if err := r.Register(&stubUnit{id: id}); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}
	states := r.States()
	if len(states) != 3 {
		t.Fatalf("got %d states, want 3", len(states))
	}
	want := []string{"experiment", "governance", "optimizer"}
	for i, s := range states {
		if s.ID != want[i] {
			t.Errorf("states[%d].ID = %q, want %q", i, s.ID, want[i])
		}
	}
}
