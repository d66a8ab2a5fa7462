package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/musher-dev/wdlplay/internal/console"
	clierrors "github.com/musher-dev/wdlplay/internal/errors"
	"github.com/musher-dev/wdlplay/internal/eventloop"
	"github.com/musher-dev/wdlplay/internal/marker"
	"github.com/musher-dev/wdlplay/internal/model"
	"github.com/musher-dev/wdlplay/internal/observability"
	"github.com/musher-dev/wdlplay/internal/output"
	"github.com/musher-dev/wdlplay/internal/prompt"
	"github.com/musher-dev/wdlplay/internal/script"
	"github.com/musher-dev/wdlplay/internal/session"
	"github.com/musher-dev/wdlplay/internal/surface"
	"github.com/musher-dev/wdlplay/internal/transport"
)

// RunEvent is one line of run's JSON output.
type RunEvent struct {
	Event   string       `json:"event"`
	Log     *LogLine     `json:"log,omitempty"`
	Kind    string       `json:"kind,omitempty"`
	Payload string       `json:"payload,omitempty"`
	Outcome string       `json:"outcome,omitempty"`
	Local   bool         `json:"local,omitempty"`
	Markers []MarkerInfo `json:"markers,omitempty"`
}

func newRunCmd() *cobra.Command {
	var repliesPath string

	cmd := &cobra.Command{
		Use:   "run <file>",
		Short: "Run an order and answer its router decisions",
		Long: `Start the order in the file on the playground engine and stream its log.
Router decisions are asked on the terminal, or answered from a reply
script given with --replies. Ctrl+C stops the order locally. The exit
code tells whether the order finished, was canceled or failed.`,
		Example: `  wdlplay run order.wdl
  wdlplay run order.wdl --replies replies.yaml
  wdlplay run order.wdl --replies replies.yaml --json`,
		Args: exactlyOneFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)
			logger := observability.FromContext(ctx)

			source, err := readSource(args[0])
			if err != nil {
				return err
			}

			var decider console.Decider

			if repliesPath != "" {
				replies, err := script.Load(repliesPath)
				if err != nil {
					return clierrors.InvalidReplyScript(repliesPath, err)
				}

				decider = replies
			} else {
				prompter := prompt.New(out)
				if prompter.CanPrompt() && !out.JSON {
					decider = prompter
				} else {
					decider = console.DeciderFunc(func(context.Context, model.DecisionRequest) (model.DecisionReply, error) {
						return model.ReplyDone, clierrors.CannotPrompt("--replies")
					})
				}
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			dialer, err := newDialer(cfg, logger)
			if err != nil {
				return err
			}

			sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
			defer stop()

			outcome, err := runOrder(ctx, sigCtx, out, logger, dialer, decider, source, cfg.DialTimeout())
			if err != nil {
				return err
			}

			return outcomeError(outcome, repliesPath, dialer.URL)
		},
	}

	cmd.Flags().StringVar(&repliesPath, "replies", "", "YAML reply script answering router decisions")

	return cmd
}

// orderResult is what runOrder hands back from the loop.
type orderResult struct {
	outcome   model.Outcome
	decideErr error
}

// runOrder runs one order to its outcome. The order is canceled locally when
// interrupt ends; ctx bounds the whole run.
func runOrder(
	ctx, interrupt context.Context,
	out *output.Writer,
	logger *slog.Logger,
	dialer transport.Dialer,
	decider console.Decider,
	source string,
	dialTimeout time.Duration,
) (orderResult, error) {
	loop := eventloop.New(logger)
	loopDone := make(chan struct{})

	var (
		result     orderResult
		controller *session.Controller
	)

	// A decider failure leaves the request unanswerable, so the order is
	// stopped rather than left waiting.
	guarded := console.DeciderFunc(func(ctx context.Context, req model.DecisionRequest) (model.DecisionReply, error) {
		reply, err := decider.Decide(ctx, req)
		if err != nil && ctx.Err() == nil {
			loop.Post(func() {
				if result.decideErr == nil {
					result.decideErr = err
				}

				controller.Cancel()
			})
		}

		return reply, err
	})

	renderOut := out
	if out.JSON {
		renderOut = output.NewWriter(io.Discard, out.Err, out.Terminal())
	}

	renderer := console.New(renderOut, console.Options{
		Decider: guarded,
		Loop:    loop,
		Logger:  logger,
	})
	defer renderer.Close()

	var surf surface.Surface = renderer
	if out.JSON {
		surf = &jsonSurface{Renderer: renderer, out: out}
	}

	controller = session.New(loop, dialer, surf, session.Options{
		DialTimeout: dialTimeout,
		Logger:      logger,
		OnOutcome: func(outcome model.Outcome) {
			result.outcome = outcome

			if out.JSON {
				emit(out, RunEvent{Event: "outcome", Outcome: outcome.Kind.String(), Local: outcome.Local})
			}

			loop.Stop()
		},
	})

	var startErr error

	loop.Post(func() {
		if err := controller.Start(ctx, source); err != nil {
			startErr = err
			loop.Stop()
		}
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(loopDone)
		return loop.Run(gctx)
	})

	g.Go(func() error {
		select {
		case <-loopDone:
		case <-interrupt.Done():
			loop.Post(controller.Cancel)
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return result, fmt.Errorf("run order: %w", err)
	}

	if startErr != nil {
		return result, fmt.Errorf("start order: %w", startErr)
	}

	return result, nil
}

// outcomeError maps an order outcome to the command's exit status.
func outcomeError(result orderResult, repliesPath, channelURL string) error {
	if result.decideErr != nil {
		var cliErr *clierrors.CLIError
		if errors.As(result.decideErr, &cliErr) {
			return cliErr
		}

		return clierrors.InvalidReplyScript(repliesPath, result.decideErr)
	}

	switch result.outcome.Kind {
	case model.OutcomeDone:
		return nil
	case model.OutcomeCanceled:
		return clierrors.OrderCanceled()
	}

	if errors.Is(result.outcome.Cause, session.ErrDial) {
		return clierrors.ChannelUnavailable(channelURL, result.outcome.Cause)
	}

	return clierrors.OrderFailed(len(result.outcome.Diagnostics))
}

// jsonSurface writes the session log as JSON lines. Decisions are still
// answered by the renderer.
type jsonSurface struct {
	*console.Renderer
	out *output.Writer
}

func (s *jsonSurface) AppendLog(entry model.LogEntry) {
	line := newLogLine(entry)
	emit(s.out, RunEvent{Event: "log", Log: &line})
}

func (s *jsonSurface) ClearLog() {}

func (s *jsonSurface) SetMarkers(markers []marker.Marker) {
	s.Renderer.SetMarkers(markers)

	if len(markers) > 0 {
		emit(s.out, RunEvent{Event: "markers", Markers: newMarkerInfos(markers)})
	}
}

func (s *jsonSurface) ShowDecisionPrompt(req model.DecisionRequest, reply surface.ReplyFunc) {
	emit(s.out, RunEvent{Event: "decision_request", Kind: req.Kind.String(), Payload: string(req.Payload)})
	s.Renderer.ShowDecisionPrompt(req, reply)
}

func emit(out *output.Writer, ev RunEvent) {
	if err := out.JSONLine(ev); err != nil {
		slog.Default().Warn("write json event", slog.String("error", err.Error()))
	}
}
