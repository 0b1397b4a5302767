package orchestrator

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

var (
	// ErrApprovalNotFound is returned for an unknown approval id.
	ErrApprovalNotFound = errors.New("approval not found")
	// ErrApprovalNotPending is returned when resolving an approval that
	// was already decided or has expired.
	ErrApprovalNotPending = errors.New("approval is not pending")
)

const (
	defaultApprovalExpiry = 24 * time.Hour

	// approvalRetention bounds resolved entries kept for inspection.
	// Pending entries are never evicted.
	approvalRetention = 500
)

// ApprovalStore is the human approval gate. Entries expire lazily: any
// read or resolution first marks overdue pending entries as expired.
type ApprovalStore struct {
	mu        sync.Mutex
	expiry    time.Duration
	approvals map[string]*domain.PendingApproval
	order     []string
}

// NewApprovalStore builds an empty gate. expiry <= 0 selects the
// 24-hour default.
func NewApprovalStore(expiry time.Duration) *ApprovalStore {
	if expiry <= 0 {
		expiry = defaultApprovalExpiry
	}
	return &ApprovalStore{
		expiry:    expiry,
		approvals: make(map[string]*domain.PendingApproval),
	}
}

// Enqueue adds a proposal to the gate and returns the stored copy.
func (s *ApprovalStore) Enqueue(kind, requestedBy, description, impact string, payload json.RawMessage) domain.PendingApproval {
	now := time.Now()
	approval := &domain.PendingApproval{
		ID:          uuid.New().String(),
		Kind:        kind,
		RequestedBy: requestedBy,
		Description: description,
		Payload:     payload,
		Impact:      impact,
		Status:      domain.ApprovalStatusPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.expiry),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.approvals[approval.ID] = approval
	s.order = append(s.order, approval.ID)
	s.evictLocked()
	return *approval
}

// Get returns the approval with the given id.
func (s *ApprovalStore) Get(id string) (domain.PendingApproval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(time.Now())
	a, ok := s.approvals[id]
	if !ok {
		return domain.PendingApproval{}, ErrApprovalNotFound
	}
	return *a, nil
}

// Approve marks a pending approval as approved.
func (s *ApprovalStore) Approve(id, by, notes string) (domain.PendingApproval, error) {
	return s.resolve(id, domain.ApprovalStatusApproved, by, notes)
}

// Reject marks a pending approval as rejected.
func (s *ApprovalStore) Reject(id, by, reason string) (domain.PendingApproval, error) {
	return s.resolve(id, domain.ApprovalStatusRejected, by, reason)
}

func (s *ApprovalStore) resolve(id string, status domain.ApprovalStatus, by, reason string) (domain.PendingApproval, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(time.Now())

	a, ok := s.approvals[id]
	if !ok {
		return domain.PendingApproval{}, ErrApprovalNotFound
	}
	if a.Status != domain.ApprovalStatusPending {
		return *a, fmt.Errorf("%w: status is %s", ErrApprovalNotPending, a.Status)
	}
	now := time.Now()
	a.Status = status
	a.ResolvedAt = &now
	a.ResolvedBy = by
	a.Reason = reason
	return *a, nil
}

// Pending returns pending approvals in enqueue order.
func (s *ApprovalStore) Pending() []domain.PendingApproval {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(time.Now())

	var pending []domain.PendingApproval
	for _, id := range s.order {
		if a := s.approvals[id]; a.Status == domain.ApprovalStatusPending {
			pending = append(pending, *a)
		}
	}
	return pending
}

// PendingCount reports how many approvals await a decision.
func (s *ApprovalStore) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(time.Now())

	n := 0
	for _, a := range s.approvals {
		if a.Status == domain.ApprovalStatusPending {
			n++
		}
	}
	return n
}

// All returns up to limit of the newest entries regardless of status,
// oldest first. limit <= 0 returns everything retained.
func (s *ApprovalStore) All(limit int) []domain.PendingApproval {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(time.Now())

	start := 0
	if limit > 0 && len(s.order) > limit {
		start = len(s.order) - limit
	}
	out := make([]domain.PendingApproval, 0, len(s.order)-start)
	for _, id := range s.order[start:] {
		out = append(out, *s.approvals[id])
	}
	return out
}

// TakeApproved removes and returns every approved entry in enqueue
// order. The execution pass owns them from here.
func (s *ApprovalStore) TakeApproved() []domain.PendingApproval {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expireLocked(time.Now())

	var taken []domain.PendingApproval
	remaining := s.order[:0]
	for _, id := range s.order {
		a := s.approvals[id]
		if a.Status == domain.ApprovalStatusApproved {
			taken = append(taken, *a)
			delete(s.approvals, id)
			continue
		}
		remaining = append(remaining, id)
	}
	s.order = remaining
	return taken
}

// Sweep marks overdue pending entries as expired and returns how many
// it flipped.
func (s *ApprovalStore) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expireLocked(now)
}

func (s *ApprovalStore) expireLocked(now time.Time) int {
	n := 0
	for _, a := range s.approvals {
		if a.Expired(now) {
			a.Status = domain.ApprovalStatusExpired
			expiredAt := a.ExpiresAt
			a.ResolvedAt = &expiredAt
			n++
		}
	}
	return n
}

func (s *ApprovalStore) evictLocked() {
	if len(s.order) <= approvalRetention {
		return
	}
	remaining := s.order[:0]
	excess := len(s.order) - approvalRetention
	for _, id := range s.order {
		if excess > 0 && s.approvals[id].Status != domain.ApprovalStatusPending {
			delete(s.approvals, id)
			excess--
			continue
		}
		remaining = append(remaining, id)
	}
	s.order = remaining
}
