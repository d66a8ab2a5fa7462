// Package decision correlates router decision requests from the engine with
// the single reply the user gives for each of them.
//
// A Correlator holds at most one outstanding request. It is confined to the
// event loop and must not be shared across goroutines.
package decision

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/musher-dev/wdlplay/internal/model"
	"github.com/musher-dev/wdlplay/internal/surface"
)

var (
	// ErrAlreadyPending is returned by Request while another request is outstanding.
	ErrAlreadyPending = errors.New("a decision request is already pending")
	// ErrNoPendingRequest is returned by Reply when there is nothing to answer.
	ErrNoPendingRequest = errors.New("no decision request is pending")
)

// SendFunc transmits a reply for the request with the given id.
type SendFunc func(id string, reply model.DecisionReply) error

// Correlator tracks the outstanding decision request of one session.
type Correlator struct {
	send   SendFunc
	logger *slog.Logger

	pending    bool
	pendingID  string
	request    model.DecisionRequest
	generation uint64
}

// New creates a correlator that forwards replies to send.
func New(send SendFunc, logger *slog.Logger) *Correlator {
	if logger == nil {
		logger = slog.Default()
	}

	return &Correlator{send: send, logger: logger}
}

// Request occupies the slot with req. The returned reply function answers
// exactly this request and works at most once.
func (c *Correlator) Request(id string, req model.DecisionRequest) (surface.ReplyFunc, error) {
	if c.pending {
		c.logger.Error("decision request rejected",
			slog.String("decision.id", id),
			slog.String("decision.kind", req.Kind.String()),
			slog.String("decision.pending_id", c.pendingID),
		)

		return nil, fmt.Errorf("request %s: %w", id, ErrAlreadyPending)
	}

	c.generation++
	c.pending = true
	c.pendingID = id
	c.request = req

	gen := c.generation

	c.logger.Debug("decision request pending",
		slog.String("decision.id", id),
		slog.String("decision.kind", req.Kind.String()),
	)

	return func(reply model.DecisionReply) error {
		if !c.pending || c.generation != gen {
			return ErrNoPendingRequest
		}

		return c.Reply(reply)
	}, nil
}

// Reply answers the outstanding request and clears the slot. Calling it with
// no outstanding request is a caller bug and returns ErrNoPendingRequest.
func (c *Correlator) Reply(reply model.DecisionReply) error {
	if !c.pending {
		return ErrNoPendingRequest
	}

	id := c.pendingID
	c.clear()

	c.logger.Debug("decision reply",
		slog.String("decision.id", id),
		slog.String("decision.reply", reply.String()),
	)

	if err := c.send(id, reply); err != nil {
		return fmt.Errorf("send reply for %s: %w", id, err)
	}

	return nil
}

// Cancel drops any outstanding request without replying.
func (c *Correlator) Cancel() {
	if c.pending {
		c.logger.Debug("decision request dropped", slog.String("decision.id", c.pendingID))
	}

	c.clear()
}

// Pending returns the outstanding request, if any.
func (c *Correlator) Pending() (model.DecisionRequest, bool) {
	return c.request, c.pending
}

func (c *Correlator) clear() {
	c.pending = false
	c.pendingID = ""
	c.request = model.DecisionRequest{}
}
