// Package console renders markers, log entries and decision prompts as lines
// on a terminal for the non-interactive commands.
package console

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"github.com/musher-dev/wdlplay/internal/eventloop"
	"github.com/musher-dev/wdlplay/internal/marker"
	"github.com/musher-dev/wdlplay/internal/model"
	"github.com/musher-dev/wdlplay/internal/output"
	"github.com/musher-dev/wdlplay/internal/surface"
)

const (
	ellipsis  = "…"
	ruleWidth = 40
)

// Decider picks the reply to a decision request. It may block; the renderer
// calls it off the event loop.
type Decider interface {
	Decide(ctx context.Context, req model.DecisionRequest) (model.DecisionReply, error)
}

// DeciderFunc adapts a function to Decider.
type DeciderFunc func(ctx context.Context, req model.DecisionRequest) (model.DecisionReply, error)

// Decide calls f.
func (f DeciderFunc) Decide(ctx context.Context, req model.DecisionRequest) (model.DecisionReply, error) {
	return f(ctx, req)
}

// Options configures a Renderer.
type Options struct {
	// Decider answers decision prompts. Without one, prompts are shown and
	// left unanswered.
	Decider Decider
	// Loop receives the decided reply. Required with a Decider.
	Loop eventloop.Dispatcher
	// Spawn runs the Decider. Defaults to a new goroutine.
	Spawn  func(func())
	Logger *slog.Logger
}

// Renderer implements surface.Surface on an output.Writer.
type Renderer struct {
	out     *output.Writer
	decider Decider
	loop    eventloop.Dispatcher
	spawn   func(func())
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	markers []marker.Marker
	written int
	busy    bool
	levels  map[model.Level]*color.Color
	muted   *color.Color
}

var _ surface.Surface = (*Renderer)(nil)

// New creates a renderer writing to out.
func New(out *output.Writer, opts Options) *Renderer {
	r := &Renderer{
		out:     out,
		decider: opts.Decider,
		loop:    opts.Loop,
		spawn:   opts.Spawn,
		logger:  opts.Logger,
		levels: map[model.Level]*color.Color{
			model.LevelTrace: color.New(color.FgHiBlack),
			model.LevelDebug: color.New(color.FgBlue),
			model.LevelInfo:  color.New(color.FgGreen),
			model.LevelWarn:  color.New(color.FgYellow),
			model.LevelError: color.New(color.FgRed),
		},
		muted: color.New(color.FgHiBlack),
	}

	if r.spawn == nil {
		r.spawn = func(f func()) { go f() }
	}

	if r.logger == nil {
		r.logger = slog.Default()
	}

	r.ctx, r.cancel = context.WithCancel(context.Background())

	return r
}

// Close abandons any decision still being asked.
func (r *Renderer) Close() {
	r.cancel()
}

// Line formats entry as `[LEVEL][line:col][user]: message` with a 1-based
// position.
func Line(entry model.LogEntry) string {
	return prefix(entry) + entry.Message
}

func prefix(entry model.LogEntry) string {
	var b strings.Builder

	b.WriteString("[" + strings.ToUpper(entry.Level.String()) + "]")

	if entry.Span != nil {
		fmt.Fprintf(&b, "[%d:%d]", entry.Span.Start.Line+1, entry.Span.Start.Column+1)
	}

	if entry.FromUser() {
		b.WriteString("[user]")
	}

	b.WriteString(": ")

	return b.String()
}

// SetMarkers remembers markers and lists them in verbose mode.
func (r *Renderer) SetMarkers(markers []marker.Marker) {
	r.markers = append(r.markers[:0], markers...)

	for _, m := range markers {
		rg := m.Range()
		r.out.Debug("marker %s %d:%d-%d:%d %s", m.Severity, rg.StartLine, rg.StartColumn, rg.EndLine, rg.EndColumn, m.Message)
	}
}

// ClearMarkers forgets all markers.
func (r *Renderer) ClearMarkers() {
	r.markers = r.markers[:0]
}

// Markers returns the markers last set.
func (r *Renderer) Markers() []marker.Marker {
	return append([]marker.Marker(nil), r.markers...)
}

// AppendLog prints one entry. The message is cut to the terminal width; the
// rendered excerpt follows on its own lines.
func (r *Renderer) AppendLog(entry model.LogEntry) {
	head := prefix(entry)
	msg := strings.TrimRight(entry.Message, "\n")

	if width := r.width(); width > 0 {
		room := width - runewidth.StringWidth(head)
		if room > runewidth.StringWidth(ellipsis) && runewidth.StringWidth(msg) > room {
			msg = runewidth.Truncate(msg, room, ellipsis)
		}
	}

	tone := r.levels[entry.Level]

	if r.colored() && tone != nil {
		r.out.Print("%s%s\n", tone.Sprint(head), msg)
	} else {
		r.out.Print("%s%s\n", head, msg)
	}

	if excerpt := strings.TrimRight(entry.Rendered, "\n"); excerpt != "" {
		for line := range strings.SplitSeq(excerpt, "\n") {
			if r.colored() {
				r.out.Print("%s\n", r.muted.Sprint(line))
			} else {
				r.out.Print("%s\n", line)
			}
		}
	}

	r.written++
}

// ClearLog separates the next batch of entries from what was already printed.
func (r *Renderer) ClearLog() {
	if r.written == 0 {
		return
	}

	r.written = 0
	r.out.Rule(ruleWidth)
}

// ShowDecisionPrompt prints the request and, with a Decider, answers it.
func (r *Renderer) ShowDecisionPrompt(req model.DecisionRequest, reply surface.ReplyFunc) {
	r.out.Info("Router request: %s %s", req.Kind, payloadText(req))

	if r.decider == nil {
		return
	}

	ctx := r.ctx

	r.spawn(func() {
		choice, err := r.decider.Decide(ctx, req)
		if err != nil {
			if ctx.Err() == nil {
				r.logger.Error("decide router request", slog.String("decision.kind", req.Kind.String()), slog.String("error", err.Error()))
			}

			return
		}

		r.loop.Post(func() {
			if err := reply(choice); err != nil {
				r.logger.Warn("decision reply not delivered", slog.String("error", err.Error()))
				return
			}

			r.out.Muted("  replied %s", choice)
		})
	})
}

// HideDecisionPrompt has nothing to take down on a line terminal.
func (r *Renderer) HideDecisionPrompt() {}

// SetBusy records whether an order is running.
func (r *Renderer) SetBusy(busy bool) {
	r.busy = busy
}

// Busy reports whether an order is running.
func (r *Renderer) Busy() bool {
	return r.busy
}

func (r *Renderer) colored() bool {
	term := r.out.Terminal()
	return term != nil && term.ColorEnabled()
}

func (r *Renderer) width() int {
	term := r.out.Terminal()
	if term == nil || !term.IsTTY {
		return 0
	}

	return term.Width
}

func payloadText(req model.DecisionRequest) string {
	text := strings.TrimSpace(string(req.Payload))
	if text == "" || text == "null" {
		return ""
	}

	return text
}
