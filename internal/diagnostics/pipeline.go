// Package diagnostics turns editor text changes into checker calls and routes
// the verdicts to the marker and log surfaces.
//
// Edits are debounced: each OnTextChanged re-arms a timer and cancels any
// pending or in-flight check, so only the last text within the window is
// checked. Verdicts for superseded edits are discarded.
//
// All Pipeline methods must be called on the event loop.
package diagnostics

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/musher-dev/wdlplay/internal/eventloop"
	"github.com/musher-dev/wdlplay/internal/marker"
	"github.com/musher-dev/wdlplay/internal/model"
	"github.com/musher-dev/wdlplay/internal/oracle"
	"github.com/musher-dev/wdlplay/internal/protocol"
	"github.com/musher-dev/wdlplay/internal/surface"
)

// DefaultDelay is the debounce window.
const DefaultDelay = 100 * time.Millisecond

// Log messages written by the pipeline.
const (
	MsgNoProblems     = "No problems found."
	MsgInvalidStatus  = "Received invalid status from source code checker!"
	msgCheckFailedFmt = "Source code check failed: "
)

// Options tunes a Pipeline. Zero values select the defaults.
type Options struct {
	Delay     time.Duration
	Scheduler eventloop.Scheduler
	// Spawn runs a checker call off the loop. Defaults to a new goroutine.
	Spawn  func(func())
	Logger *slog.Logger
}

// Pipeline debounces edits and applies checker verdicts.
type Pipeline struct {
	loop    eventloop.Dispatcher
	checker oracle.Checker
	markers surface.Markers
	log     surface.Log

	delay  time.Duration
	sched  eventloop.Scheduler
	spawn  func(func())
	logger *slog.Logger

	seq    uint64
	timer  eventloop.Timer
	cancel context.CancelFunc
	quiet  bool
	closed bool
}

// New creates a loud pipeline.
func New(loop eventloop.Dispatcher, checker oracle.Checker, markers surface.Markers, log surface.Log, opts Options) *Pipeline {
	p := &Pipeline{
		loop:    loop,
		checker: checker,
		markers: markers,
		log:     log,
		delay:   opts.Delay,
		sched:   opts.Scheduler,
		spawn:   opts.Spawn,
		logger:  opts.Logger,
	}

	if p.delay <= 0 {
		p.delay = DefaultDelay
	}

	if p.sched == nil {
		p.sched = eventloop.WallClock{}
	}

	if p.spawn == nil {
		p.spawn = func(f func()) { go f() }
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// OnTextChanged schedules a check of text after the debounce delay.
func (p *Pipeline) OnTextChanged(text string) {
	if p.closed {
		return
	}

	seq := p.supersede()

	p.timer = p.sched.AfterFunc(p.delay, func() {
		p.loop.Post(func() { p.fire(seq, text) })
	})
}

// CheckNow checks text immediately, superseding any pending edit.
func (p *Pipeline) CheckNow(text string) {
	if p.closed {
		return
	}

	p.start(p.supersede(), text)
}

// SetQuiet switches log output off (true) or on (false). Markers are
// updated either way.
func (p *Pipeline) SetQuiet(quiet bool) {
	p.quiet = quiet
}

// Quiet reports whether log output is suppressed.
func (p *Pipeline) Quiet() bool {
	return p.quiet
}

// Close stops the timer and cancels in-flight work. Later calls are no-ops.
func (p *Pipeline) Close() {
	if p.closed {
		return
	}

	p.closed = true
	p.supersede()
}

// supersede invalidates the pending timer and in-flight check and returns the
// sequence number of the new edit.
func (p *Pipeline) supersede() uint64 {
	p.seq++

	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}

	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}

	return p.seq
}

func (p *Pipeline) fire(seq uint64, text string) {
	if p.closed || seq != p.seq {
		return
	}

	p.timer = nil
	p.start(seq, text)
}

func (p *Pipeline) start(seq uint64, text string) {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	p.logger.Debug("source check started", slog.Uint64("check.seq", seq), slog.Int("source.bytes", len(text)))

	p.spawn(func() {
		result, err := p.checker.Check(ctx, text)
		p.loop.Post(func() { p.apply(seq, result, err) })
	})
}

func (p *Pipeline) apply(seq uint64, result oracle.Result, err error) {
	if p.closed || seq != p.seq {
		p.logger.Debug("stale check result discarded", slog.Uint64("check.seq", seq))
		return
	}

	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}

	switch {
	case err != nil:
		p.fail(seq, err)
	case result.OK():
		p.markers.ClearMarkers()
		p.write(model.InfoEntry(MsgNoProblems))
	default:
		diags := result.Diagnostics()
		p.markers.SetMarkers(marker.FromDiagnostics(diags))

		entries := make([]model.LogEntry, 0, len(diags))
		for _, d := range diags {
			entries = append(entries, model.DiagnosticEntry(d))
		}

		p.write(entries...)
		p.logger.Debug("source check reported problems",
			slog.Uint64("check.seq", seq),
			slog.Int("check.diagnostics", len(diags)),
		)
	}
}

// fail closes the pipeline over an unusable verdict: markers are cleared and
// the caller never sees the error.
func (p *Pipeline) fail(seq uint64, err error) {
	p.markers.ClearMarkers()

	msg := msgCheckFailedFmt + err.Error()
	if errors.Is(err, protocol.ErrInvalidStatus) {
		msg = MsgInvalidStatus
	}

	p.logger.Error("source check failed", slog.Uint64("check.seq", seq), slog.String("error", err.Error()))
	p.write(model.ErrorEntry(msg))
}

// write replaces the log with entries unless the pipeline is quiet.
func (p *Pipeline) write(entries ...model.LogEntry) {
	if p.quiet {
		return
	}

	p.log.ClearLog()

	for _, e := range entries {
		p.log.AppendLog(e)
	}
}
