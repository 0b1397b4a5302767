package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
	"github.com/ItaloOlivier/ayonne-sub000/internal/protocol"
	"github.com/ItaloOlivier/ayonne-sub000/internal/queue"
)

type MessageHandler struct {
	router *protocol.Router
	queue  *queue.RedisQueue
}

// NewMessageHandler exposes the message protocol to external callers.
// q may be nil, in which case async delivery is unavailable.
func NewMessageHandler(router *protocol.Router, q *queue.RedisQueue) *MessageHandler {
	return &MessageHandler{router: router, queue: q}
}

type SendMessageRequest struct {
	To       string          `json:"to"`
	Action   string          `json:"action"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Priority string          `json:"priority,omitempty"`
	Async    bool            `json:"async,omitempty"`
}

// Send delivers one message to a unit. Synchronous sends return the
// unit's response; async sends are queued for a worker and return 202.
func (h *MessageHandler) Send(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.To == "" || req.Action == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to and action are required"})
		return
	}

	msg := domain.NewRequest(apiSender, req.To, req.Action, req.Payload)
	if req.Priority != "" {
		msg.Priority = domain.MessagePriority(req.Priority)
	}

	if req.Async {
		if h.queue == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "async delivery is not configured"})
			return
		}
		if err := h.queue.Publish(c.Request.Context(), msg); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue message"})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"message_id": msg.ID, "status": "queued"})
		return
	}

	resp, err := h.router.Dispatch(c.Request.Context(), msg)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if resp == nil {
		c.JSON(http.StatusAccepted, gin.H{"message_id": msg.ID, "status": "delivered"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Agents returns every registered unit's state snapshot.
func (h *MessageHandler) Agents(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"agents": h.router.States()})
}
