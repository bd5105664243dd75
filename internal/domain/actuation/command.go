// Package actuation describes the command sent to field controllers after a
// prediction, so the sprinklers can be switched to the predicted states.
package actuation

import (
	"context"
	"errors"
	"time"

	"github.com/okian/sprinkler/internal/domain/inference"
)

// ErrEmptyCommand is returned for a command without states.
var ErrEmptyCommand = errors.New("actuation command has no sprinkler states")

// Outcome of handing a command to the actuation pipeline, as reported to
// the caller of a prediction.
const (
	OutcomeDisabled = "disabled"
	OutcomeQueued   = "queued"
	OutcomeDropped  = "dropped"
)

// Command carries the full, ordered on/off set of one prediction.
type Command struct {
	RequestID string    `json:"request_id"`
	Model     string    `json:"model,omitempty"`
	States    []bool    `json:"states"`
	IssuedAt  time.Time `json:"issued_at"`
}

// NewCommand builds a command from a prediction result.
func NewCommand(requestID, model string, res inference.Result, at time.Time) Command {
	return Command{
		RequestID: requestID,
		Model:     model,
		States:    res.Labels(),
		IssuedAt:  at.UTC(),
	}
}

// Validate rejects commands that would leave controllers in an undefined state.
func (c Command) Validate() error {
	if len(c.States) == 0 {
		return ErrEmptyCommand
	}
	return nil
}

// OnCount returns how many sprinklers the command switches on.
func (c Command) OnCount() int {
	n := 0
	for _, on := range c.States {
		if on {
			n++
		}
	}
	return n
}

// Publisher delivers commands to field controllers.
type Publisher interface {
	Publish(ctx context.Context, cmd Command) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, cmd Command) error

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, cmd Command) error { return f(ctx, cmd) }
