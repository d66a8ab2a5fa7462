// Package session runs one order at a time against the engine.
//
// The Controller owns the order channel and the decision correlator of the
// current session. Every method, and every callback it installs, runs on the
// event loop. Channel events are tagged with the generation of the channel
// they came from so late events of a finished order are dropped.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/musher-dev/wdlplay/internal/decision"
	"github.com/musher-dev/wdlplay/internal/eventloop"
	"github.com/musher-dev/wdlplay/internal/marker"
	"github.com/musher-dev/wdlplay/internal/model"
	"github.com/musher-dev/wdlplay/internal/observability"
	"github.com/musher-dev/wdlplay/internal/protocol"
	"github.com/musher-dev/wdlplay/internal/surface"
	"github.com/musher-dev/wdlplay/internal/transport"
)

// DefaultDialTimeout bounds how long opening the order channel may take.
const DefaultDialTimeout = 10 * time.Second

// Log messages written by the controller.
const (
	MsgStart            = "Start order."
	MsgDone             = "Order done."
	MsgCanceled         = "Order canceled."
	MsgCanceledByErrors = "Order canceled due to previous error(s)."
	MsgCanceledByUser   = "Order canceled by user."
	msgDialFailed       = "Failed to open session channel: "
	msgSendFailed       = "Failed to send router status: "
	msgChannelFailed    = "Session channel failed: "
	msgInvalidMessage   = "Received invalid message from order channel: "
	msgClosedEarly      = "Session channel closed before the order finished."
	msgDuplicateRequest = "Received a router request while another one is pending."
)

var (
	// ErrSessionActive is returned by Start while an order is already running.
	ErrSessionActive = errors.New("an order is already running")
	// ErrDial marks an order that failed because its channel never opened.
	ErrDial = errors.New("open order channel")
)

// State is the controller's position in the session lifecycle.
type State int

// State values.
const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateTerminal
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateStarting:
		return "Starting"
	case StateRunning:
		return "Running"
	case StateTerminal:
		return "Terminal"
	default:
		return "Unknown"
	}
}

// Quieter switches the diagnostics pipeline between quiet and loud.
type Quieter interface {
	SetQuiet(quiet bool)
}

// Options tunes a Controller.
type Options struct {
	// Pipeline is silenced while an order runs. Optional.
	Pipeline    Quieter
	DialTimeout time.Duration
	// Spawn runs the dial off the loop. Defaults to a new goroutine.
	Spawn func(func())
	// OnOutcome is called on the loop after every return to Idle.
	OnOutcome func(model.Outcome)
	Logger    *slog.Logger
}

// Controller drives the order lifecycle.
type Controller struct {
	loop     eventloop.Dispatcher
	dialer   transport.Dialer
	surface  surface.Surface
	pipeline Quieter

	dialTimeout time.Duration
	spawn       func(func())
	onOutcome   func(model.Outcome)
	baseLogger  *slog.Logger
	logger      *slog.Logger

	state      State
	generation uint64
	orderID    string
	channel    transport.Channel
	cancelDial context.CancelFunc
	correlator *decision.Correlator
	span       trace.Span
	last       *model.Outcome
}

// New creates an idle controller.
func New(loop eventloop.Dispatcher, dialer transport.Dialer, surf surface.Surface, opts Options) *Controller {
	c := &Controller{
		loop:        loop,
		dialer:      dialer,
		surface:     surf,
		pipeline:    opts.Pipeline,
		dialTimeout: opts.DialTimeout,
		spawn:       opts.Spawn,
		onOutcome:   opts.OnOutcome,
		logger:      opts.Logger,
	}

	if c.dialTimeout <= 0 {
		c.dialTimeout = DefaultDialTimeout
	}

	if c.spawn == nil {
		c.spawn = func(f func()) { go f() }
	}

	if c.logger == nil {
		c.logger = slog.Default()
	}

	c.baseLogger = c.logger

	return c
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	return c.state
}

// LastOutcome returns how the most recent order ended.
func (c *Controller) LastOutcome() (model.Outcome, bool) {
	if c.last == nil {
		return model.Outcome{}, false
	}

	return *c.last, true
}

// Pending returns the decision request awaiting a reply, if any.
func (c *Controller) Pending() (model.DecisionRequest, bool) {
	if c.correlator == nil {
		return model.DecisionRequest{}, false
	}

	return c.correlator.Pending()
}

// Start begins an order for source. The channel is dialed off the loop and
// the start message goes out once it is open.
func (c *Controller) Start(ctx context.Context, source string) error {
	if c.state != StateIdle {
		return ErrSessionActive
	}

	c.generation++
	gen := c.generation

	c.state = StateStarting
	c.orderID = uuid.NewString()
	c.logger = c.baseLogger.With(slog.String("order.id", c.orderID))
	c.correlator = decision.New(c.sendReply(gen), c.logger)

	_, c.span = observability.Tracer("wdlplay.session").Start(ctx, "session.order",
		trace.WithAttributes(
			attribute.String("order.id", c.orderID),
			attribute.Int("order.source_bytes", len(source)),
		),
	)

	if c.pipeline != nil {
		c.pipeline.SetQuiet(true)
	}

	c.surface.ClearMarkers()
	c.surface.ClearLog()
	c.surface.AppendLog(model.InfoEntry(MsgStart))
	c.surface.SetBusy(true)

	dialCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.dialTimeout)
	c.cancelDial = cancel

	recv := &receiver{c: c, gen: gen}

	c.logger.Info("order starting")

	c.spawn(func() {
		ch, err := c.dialer.Dial(dialCtx, recv)
		c.loop.Post(func() { c.dialed(gen, source, ch, err) })
	})

	return nil
}

// Cancel ends the running order locally. Nothing is sent to the engine; the
// channel is simply closed. Without a running order Cancel does nothing.
func (c *Controller) Cancel() {
	if !c.active() {
		return
	}

	c.logger.Info("order canceled by user")

	c.finish(model.CanceledLocally(), func() {
		c.surface.AppendLog(model.WarnEntry(MsgCanceledByUser))
	})
}

// Reply answers the pending decision request.
func (c *Controller) Reply(reply model.DecisionReply) error {
	if !c.active() || c.correlator == nil {
		return decision.ErrNoPendingRequest
	}

	if err := c.correlator.Reply(reply); err != nil {
		return err
	}

	c.surface.HideDecisionPrompt()

	return nil
}

// Close cancels any running order. Closing an idle controller is a no-op.
func (c *Controller) Close() {
	c.Cancel()
}

func (c *Controller) active() bool {
	return c.state == StateStarting || c.state == StateRunning
}

func (c *Controller) current(gen uint64) bool {
	return gen == c.generation && c.active()
}

func (c *Controller) dialed(gen uint64, source string, ch transport.Channel, err error) {
	if !c.current(gen) {
		if ch != nil {
			_ = ch.Close()
		}

		return
	}

	if c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}

	if err != nil {
		c.logger.Error("open order channel", slog.String("error", err.Error()))
		c.fail(fmt.Errorf("%w: %w", ErrDial, err), msgDialFailed+err.Error())

		return
	}

	c.channel = ch

	if err := ch.Send(protocol.StartMessage{Source: source}); err != nil {
		c.logger.Error("send start", slog.String("error", err.Error()))
		c.fail(err, msgChannelFailed+err.Error())
	}
}

func (c *Controller) handle(gen uint64, ev protocol.Event) {
	if !c.current(gen) {
		c.logger.Debug("dropping late event", slog.String("event", protocol.Name(ev)))
		return
	}

	switch e := ev.(type) {
	case protocol.LogEvent:
		c.state = StateRunning
		c.surface.AppendLog(e.Entry)

	case protocol.DecisionRequestEvent:
		c.state = StateRunning
		c.request(gen, e)

	case protocol.ErrorEvent:
		c.finish(model.Failed(e.Diagnostics), func() {
			c.surface.SetMarkers(marker.FromDiagnostics(e.Diagnostics))

			for _, d := range e.Diagnostics {
				c.surface.AppendLog(model.DiagnosticEntry(d))
			}

			c.surface.AppendLog(model.WarnEntry(MsgCanceledByErrors))
		})

	case protocol.DoneEvent:
		c.finish(model.Done(e.Position), func() {
			c.surface.AppendLog(model.InfoEntry(MsgDone))
			c.showPosition(marker.SeverityInfo, MsgDone, e.Position)
		})

	case protocol.CanceledEvent:
		c.finish(model.Canceled(e.Position), func() {
			c.surface.AppendLog(model.WarnEntry(MsgCanceled))
			c.showPosition(marker.SeverityWarning, MsgCanceled, e.Position)
		})

	default:
		err := fmt.Errorf("%w: %T", protocol.ErrUnknownEvent, ev)
		c.fail(err, msgInvalidMessage+err.Error())
	}
}

func (c *Controller) request(gen uint64, e protocol.DecisionRequestEvent) {
	reply, err := c.correlator.Request(e.ID, e.Request)
	if err != nil {
		c.surface.AppendLog(model.ErrorEntry(msgDuplicateRequest))
		return
	}

	c.surface.ShowDecisionPrompt(e.Request, func(v model.DecisionReply) error {
		if !c.current(gen) {
			return decision.ErrNoPendingRequest
		}

		if err := reply(v); err != nil {
			return err
		}

		c.surface.HideDecisionPrompt()

		return nil
	})
}

func (c *Controller) sendReply(gen uint64) decision.SendFunc {
	return func(id string, reply model.DecisionReply) error {
		if !c.current(gen) || c.channel == nil {
			return transport.ErrClosed
		}

		err := c.channel.Send(protocol.DecisionReplyMessage{ID: id, Reply: reply})
		if err != nil {
			c.logger.Error("send decision reply", slog.String("error", err.Error()))
			c.fail(err, msgSendFailed+err.Error())
		}

		return err
	}
}

func (c *Controller) channelFailed(gen uint64, err error) {
	if !c.current(gen) {
		return
	}

	c.logger.Error("order channel failed", slog.String("error", err.Error()))

	switch {
	case errors.Is(err, transport.ErrClosedByRemote):
		c.fail(err, msgClosedEarly)
	case errors.Is(err, protocol.ErrMalformed), errors.Is(err, protocol.ErrUnknownEvent):
		c.fail(err, msgInvalidMessage+err.Error())
	default:
		c.fail(err, msgChannelFailed+err.Error())
	}
}

func (c *Controller) fail(err error, summary string) {
	if c.span != nil {
		c.span.RecordError(err)
	}

	outcome := model.Failed(nil)
	outcome.Cause = err

	c.finish(outcome, func() {
		c.surface.AppendLog(model.ErrorEntry(summary))
	})
}

// finish releases the channel and correlator, renders the outcome and
// returns to Idle.
func (c *Controller) finish(outcome model.Outcome, render func()) {
	c.state = StateTerminal

	c.correlator.Cancel()
	c.release()

	render()

	c.last = &outcome

	if c.span != nil {
		c.span.SetAttributes(
			attribute.String("order.outcome", outcome.Kind.String()),
			attribute.Bool("order.local", outcome.Local),
		)

		if outcome.Kind == model.OutcomeFailed {
			c.span.SetStatus(codes.Error, "order failed")
		}

		c.span.End()
		c.span = nil
	}

	c.logger.Info("order finished",
		slog.String("order.outcome", outcome.Kind.String()),
		slog.Bool("order.local", outcome.Local),
	)

	if c.pipeline != nil {
		c.pipeline.SetQuiet(false)
	}

	c.surface.HideDecisionPrompt()
	c.surface.SetBusy(false)

	c.state = StateIdle

	if c.onOutcome != nil {
		c.onOutcome(outcome)
	}
}

func (c *Controller) release() {
	if c.cancelDial != nil {
		c.cancelDial()
		c.cancelDial = nil
	}

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			c.logger.Debug("close order channel", slog.String("error", err.Error()))
		}

		c.channel = nil
	}
}

// showPosition marks where the engine stopped. Without a position the
// editor markers are left alone.
func (c *Controller) showPosition(sev marker.Severity, msg string, pos *model.Position) {
	if pos == nil {
		return
	}

	c.surface.SetMarkers([]marker.Marker{marker.AtPosition(sev, msg, *pos)})
}

// receiver posts channel callbacks to the loop, tagged with the channel's
// generation.
type receiver struct {
	c   *Controller
	gen uint64
}

func (r *receiver) Receive(ev protocol.Event) {
	r.c.loop.Post(func() { r.c.handle(r.gen, ev) })
}

func (r *receiver) Fail(err error) {
	r.c.loop.Post(func() { r.c.channelFailed(r.gen, err) })
}
