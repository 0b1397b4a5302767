// Package protocol routes typed messages between the pipeline's
// decision units. Units never hold references to each other; everything
// crosses the router so that transports, tracing and recovery live in
// one place.
package protocol

import (
	"context"
	"errors"

	"github.com/ItaloOlivier/ayonne-sub000/internal/domain"
)

var (
	// ErrUnknownRecipient is returned when a message names a unit the
	// router has never seen.
	ErrUnknownRecipient = errors.New("protocol: unknown recipient")

	// ErrDuplicateUnit is returned when two units register the same ID.
	ErrDuplicateUnit = errors.New("protocol: unit already registered")
)

// Unit is one addressable participant in the pipeline. HandleMessage
// may return a response message, nil for fire-and-forget handling, or
// an error when the message cannot be served.
type Unit interface {
	ID() string
	HandleMessage(ctx context.Context, msg *domain.AgentMessage) (*domain.AgentMessage, error)
	State() domain.AgentState
}
