package protocol

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

// defaultResponseTTL bounds how long an unanswered request correlation
// stays live before Sweep drops it.
const defaultResponseTTL = 10 * time.Minute

type pendingRequest struct {
	requestID string
	from      string
	expiresAt time.Time
}

// Router delivers messages to registered units and tracks outstanding
// request correlations. At most one response is accepted per
// correlation id; late or duplicate responses are dropped, not
// delivered.
type Router struct {
	mu          sync.RWMutex
	units       map[string]Unit
	pending     map[string]pendingRequest
	responseTTL time.Duration
	log         *logrus.Entry
}

// NewRouter builds an empty router.
func NewRouter(log *logrus.Entry) *Router {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Router{
		units:       make(map[string]Unit),
		pending:     make(map[string]pendingRequest),
		responseTTL: defaultResponseTTL,
		log:         log,
	}
}

// SetResponseTTL overrides how long request correlations stay live.
func (r *Router) SetResponseTTL(ttl time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ttl > 0 {
		r.responseTTL = ttl
	}
}

// Register adds a unit. Registering the same ID twice is an error.
func (r *Router) Register(u Unit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.units[u.ID()]; exists {
		return fmt.Errorf("register %s: %w", u.ID(), ErrDuplicateUnit)
	}
	r.units[u.ID()] = u
	return nil
}

// Unit returns a registered unit by ID.
func (r *Router) Unit(id string) (Unit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.units[id]
	return u, ok
}

// States snapshots every registered unit's state, sorted by unit ID.
func (r *Router) States() []domain.AgentState {
	r.mu.RLock()
	units := make([]Unit, 0, len(r.units))
	for _, u := range r.units {
		units = append(units, u)
	}
	r.mu.RUnlock()

	states := make([]domain.AgentState, 0, len(units))
	for _, u := range units {
		states = append(states, u.State())
	}
	sort.Slice(states, func(i, j int) bool { return states[i].ID < states[j].ID })
	return states
}

// Dispatch routes msg to its recipient and returns the recipient's
// response, if any. Requests with a correlation id are tracked so a
// later response can be matched; responses whose correlation is
// unknown or already answered are dropped and Dispatch returns
// (nil, nil).
func (r *Router) Dispatch(ctx context.Context, msg *domain.AgentMessage) (*domain.AgentMessage, error) {
	r.mu.RLock()
	unit, ok := r.units[msg.To]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("dispatch to %q: %w", msg.To, ErrUnknownRecipient)
	}

	switch msg.Type {
	case domain.MessageTypeRequest:
		r.expect(msg)
	case domain.MessageTypeResponse:
		if !r.accept(msg.CorrelationID) {
			r.log.WithFields(logrus.Fields{
				"message_id":     msg.ID,
				"correlation_id": msg.CorrelationID,
				"from":           msg.From,
			}).Warn("Dropping response with no live correlation")
			return nil, nil
		}
	}

	resp, err := r.safeHandle(ctx, unit, msg)
	if err != nil {
		return nil, fmt.Errorf("unit %s handling %s: %w", msg.To, msg.Action, err)
	}
	if resp == nil {
		return nil, nil
	}

	if resp.Type == domain.MessageTypeResponse && !r.accept(resp.CorrelationID) {
		r.log.WithFields(logrus.Fields{
			"message_id":     resp.ID,
			"correlation_id": resp.CorrelationID,
			"from":           resp.From,
		}).Warn("Dropping duplicate response")
		return nil, nil
	}
	return resp, nil
}

// expect records a request correlation so its response can be matched
// later. Requests without a correlation id are fire-and-forget.
func (r *Router) expect(msg *domain.AgentMessage) {
	if msg.CorrelationID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[msg.CorrelationID] = pendingRequest{
		requestID: msg.ID,
		from:      msg.From,
		expiresAt: time.Now().Add(r.responseTTL),
	}
}

// accept consumes a live correlation. It returns false when the
// correlation is unknown, expired or already answered.
func (r *Router) accept(correlationID string) bool {
	if correlationID == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.pending[correlationID]
	if !ok {
		return false
	}
	delete(r.pending, correlationID)
	return time.Now().Before(req.expiresAt)
}

// Sweep drops request correlations whose TTL has passed and returns how
// many were removed.
func (r *Router) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, req := range r.pending {
		if now.After(req.expiresAt) {
			delete(r.pending, id)
			removed++
		}
	}
	return removed
}

// PendingCorrelations reports how many requests still await a response.
func (r *Router) PendingCorrelations() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pending)
}

// safeHandle invokes the unit and recovers from panics, so one
// misbehaving unit cannot take the loop down.
func (r *Router) safeHandle(ctx context.Context, unit Unit, msg *domain.AgentMessage) (resp *domain.AgentMessage, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.WithFields(logrus.Fields{
				"unit":       unit.ID(),
				"message_id": msg.ID,
				"panic":      fmt.Sprint(rec),
			}).Error(string(debug.Stack()))
			resp = nil
			err = fmt.Errorf("unit %s panicked: %v", unit.ID(), rec)
		}
	}()
	return unit.HandleMessage(ctx, msg)
}
