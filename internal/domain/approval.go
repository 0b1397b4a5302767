package domain

import (
	"encoding/json"
	"time"
)

type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "pending"
	ApprovalStatusApproved ApprovalStatus = "approved"
	ApprovalStatusRejected ApprovalStatus = "rejected"
	ApprovalStatusExpired  ApprovalStatus = "expired"
)

// PendingApproval wraps a proposal waiting on a human decision. The payload
// is the originating unit's proposal, round-tripped untouched.
type PendingApproval struct {
	ID          string          `json:"id"`
	Kind        string          `json:"kind"`
	RequestedBy string          `json:"requested_by"`
	Description string          `json:"description"`
	Payload     json.RawMessage `json:"payload"`
	Impact      string          `json:"impact"`
	Status      ApprovalStatus  `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	ExpiresAt   time.Time       `json:"expires_at"`
	ResolvedAt  *time.Time      `json:"resolved_at,omitempty"`
	ResolvedBy  string          `json:"resolved_by,omitempty"`
	Reason      string          `json:"reason,omitempty"`
}

// Expired reports whether the approval's window has passed at t.
func (p *PendingApproval) Expired(t time.Time) bool {
	return p.Status == ApprovalStatusPending && t.After(p.ExpiresAt)
}

// DecisionVerdict pairs a proposal's confidence with the human call on
// it. Resolved approvals emit one verdict each; expiries emit none.
type DecisionVerdict struct {
	ApprovalID string    `json:"approval_id"`
	Kind       string    `json:"kind"`
	ActionType string    `json:"action_type,omitempty"`
	Confidence float64   `json:"confidence"`
	Approved   bool      `json:"approved"`
	DecidedBy  string    `json:"decided_by"`
	DecidedAt  time.Time `json:"decided_at"`
}
