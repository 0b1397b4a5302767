package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RecipientOrchestrator addresses a message to the orchestrator itself
// rather than to one of the decision units.
const RecipientOrchestrator = "orchestrator"

// Well-known unit ids. Units register under these names and messages
// address them by the same strings.
const (
	UnitExperiment  = "experiment"
	UnitOptimizer   = "optimizer"
	UnitGovernance  = "governance"
	UnitPerformance = "performance"
	UnitCreative    = "creative"
	UnitKeyword     = "keyword"
	UnitStrategy    = "strategy"
)

type MessageType string

const (
	MessageTypeRequest        MessageType = "request"
	MessageTypeResponse       MessageType = "response"
	MessageTypeAlert          MessageType = "alert"
	MessageTypeRecommendation MessageType = "recommendation"
	MessageTypeAction         MessageType = "action"
	MessageTypeStatus         MessageType = "status"
)

type MessagePriority string

const (
	PriorityLow      MessagePriority = "low"
	PriorityNormal   MessagePriority = "normal"
	PriorityHigh     MessagePriority = "high"
	PriorityCritical MessagePriority = "critical"
)

// AgentMessage is the envelope every unit speaks. The payload is opaque to
// the router; only the addressed unit interprets it.
type AgentMessage struct {
	ID            string          `json:"id"`
	From          string          `json:"from"`
	To            string          `json:"to"`
	Type          MessageType     `json:"type"`
	Action        string          `json:"action,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	Priority      MessagePriority `json:"priority"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

func NewRequest(from, to, action string, payload json.RawMessage) *AgentMessage {
	return &AgentMessage{
		ID:            uuid.New().String(),
		From:          from,
		To:            to,
		Type:          MessageTypeRequest,
		Action:        action,
		Payload:       payload,
		Priority:      PriorityNormal,
		CorrelationID: uuid.New().String(),
		CreatedAt:     time.Now(),
	}
}

// ResponseTo builds a response envelope addressed back to the sender of req,
// carrying the request's correlation id.
func ResponseTo(req *AgentMessage, from string, payload json.RawMessage) *AgentMessage {
	return &AgentMessage{
		ID:            uuid.New().String(),
		From:          from,
		To:            req.From,
		Type:          MessageTypeResponse,
		Payload:       payload,
		Priority:      req.Priority,
		CorrelationID: req.CorrelationID,
		CreatedAt:     time.Now(),
	}
}

// MarshalPayload is a convenience for units answering requests with a struct.
func MarshalPayload(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return data
}
