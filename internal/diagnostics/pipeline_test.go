package diagnostics_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/musher-dev/wdlplay/internal/diagnostics"
	"github.com/musher-dev/wdlplay/internal/eventloop"
	"github.com/musher-dev/wdlplay/internal/marker"
	"github.com/musher-dev/wdlplay/internal/model"
	"github.com/musher-dev/wdlplay/internal/oracle"
	"github.com/musher-dev/wdlplay/internal/protocol"
	"github.com/musher-dev/wdlplay/internal/testutil"
)

// fakeChecker answers from a function and records every source it saw.
type fakeChecker struct {
	calls  []string
	answer func(source string) (oracle.Result, error)
}

func (f *fakeChecker) Check(_ context.Context, source string) (oracle.Result, error) {
	f.calls = append(f.calls, source)
	return f.answer(source)
}

type harness struct {
	queue   *eventloop.Queue
	clock   *testutil.FakeScheduler
	checker *fakeChecker
	rec     *testutil.Recorder
	p       *diagnostics.Pipeline
}

func newHarness(answer func(string) (oracle.Result, error)) *harness {
	h := &harness{
		queue:   &eventloop.Queue{},
		clock:   &testutil.FakeScheduler{},
		checker: &fakeChecker{answer: answer},
		rec:     &testutil.Recorder{},
	}

	h.p = diagnostics.New(h.queue, h.checker, h.rec, h.rec, diagnostics.Options{
		Scheduler: h.clock,
		Spawn:     func(f func()) { f() },
	})

	return h
}

// settle lets the debounce window elapse and runs everything it triggered.
func (h *harness) settle() {
	h.clock.Advance(diagnostics.DefaultDelay)
	h.queue.Drain()
}

func missingSemicolon() model.Diagnostic {
	return model.Diagnostic{
		Title: "expected `;`",
		Position: &model.Position{
			Span:     model.Span{Start: model.Location{Line: 0, Column: 12}, End: model.Location{Line: 0, Column: 13}},
			Rendered: "global x = 1",
		},
	}
}

func scenarioOracle(source string) (oracle.Result, error) {
	if source == "global x = 1;" {
		return oracle.Ok(), nil
	}

	return oracle.ErrorList([]model.Diagnostic{missingSemicolon()}), nil
}

func TestPipeline_DebounceChecksLastTextOnce(t *testing.T) {
	h := newHarness(scenarioOracle)

	for _, text := range []string{"g", "gl", "global", "global x = 1;"} {
		h.p.OnTextChanged(text)
		h.clock.Advance(diagnostics.DefaultDelay / 2)
		h.queue.Drain()
	}

	if len(h.checker.calls) != 0 {
		t.Fatalf("checker called %d times inside the window, want 0", len(h.checker.calls))
	}

	h.settle()

	if len(h.checker.calls) != 1 {
		t.Fatalf("checker called %d times, want 1", len(h.checker.calls))
	}

	if h.checker.calls[0] != "global x = 1;" {
		t.Errorf("checked %q, want the last text", h.checker.calls[0])
	}

	if armed := h.clock.Armed(); armed != 0 {
		t.Errorf("Armed() = %d, want 0", armed)
	}
}

func TestPipeline_ScenarioA(t *testing.T) {
	h := newHarness(scenarioOracle)

	h.p.OnTextChanged("global x = 1")
	h.settle()

	markers := h.rec.Markers()
	if len(markers) != 1 {
		t.Fatalf("len(markers) = %d, want 1", len(markers))
	}

	if markers[0].Severity != marker.SeverityError {
		t.Errorf("Severity = %v, want Error", markers[0].Severity)
	}

	if got := markers[0].Range(); got.StartLine != 1 || got.StartColumn != 13 {
		t.Errorf("Range() = %+v, want start 1:13", got)
	}

	log := h.rec.Log()
	if len(log) != 1 || log[0].Level != model.LevelError || log[0].Message != "expected `;`" {
		t.Fatalf("log = %+v, want one Error entry", log)
	}

	h.p.OnTextChanged("global x = 1;")
	h.settle()

	if markers := h.rec.Markers(); len(markers) != 0 {
		t.Errorf("markers = %+v, want none", markers)
	}

	log = h.rec.Log()
	if len(log) != 1 || log[0].Level != model.LevelInfo || log[0].Message != diagnostics.MsgNoProblems {
		t.Errorf("log = %+v, want one Info entry", log)
	}
}

func TestPipeline_OnlyPositionedDiagnosticsBecomeMarkers(t *testing.T) {
	h := newHarness(func(string) (oracle.Result, error) {
		return oracle.ErrorList([]model.Diagnostic{
			missingSemicolon(),
			{Title: "program has no order block"},
		}), nil
	})

	h.p.OnTextChanged("global x = 1")
	h.settle()

	if got := len(h.rec.Markers()); got != 1 {
		t.Errorf("len(markers) = %d, want 1", got)
	}

	if got := len(h.rec.Log()); got != 2 {
		t.Errorf("len(log) = %d, want 2", got)
	}
}

func TestPipeline_InvalidResultFailsClosed(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "invalid status",
			err:     fmt.Errorf("decode check result: %w", protocol.ErrInvalidStatus),
			wantMsg: diagnostics.MsgInvalidStatus,
		},
		{
			name:    "transport",
			err:     errors.New("connection refused"),
			wantMsg: "Source code check failed: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fail := false

			h := newHarness(func(source string) (oracle.Result, error) {
				if fail {
					return oracle.Result{}, tt.err
				}

				return scenarioOracle(source)
			})

			h.p.OnTextChanged("global x = 1")
			h.settle()

			if len(h.rec.Markers()) != 1 {
				t.Fatal("expected a marker before the failure")
			}

			fail = true

			h.p.OnTextChanged("global x = 12")
			h.settle()

			if markers := h.rec.Markers(); len(markers) != 0 {
				t.Errorf("markers = %+v, want cleared", markers)
			}

			msgs := h.rec.LogMessages()
			if len(msgs) != 1 || msgs[0] != tt.wantMsg {
				t.Errorf("log = %q, want [%q]", msgs, tt.wantMsg)
			}
		})
	}
}

func TestPipeline_QuietStillUpdatesMarkers(t *testing.T) {
	h := newHarness(scenarioOracle)

	h.p.SetQuiet(true)

	h.p.OnTextChanged("global x = 1")
	h.settle()

	if got := len(h.rec.Markers()); got != 1 {
		t.Errorf("len(markers) = %d, want 1", got)
	}

	if got := h.rec.LogClears(); got != 0 {
		t.Errorf("LogClears() = %d, want 0 while quiet", got)
	}

	if got := len(h.rec.Log()); got != 0 {
		t.Errorf("len(log) = %d, want 0 while quiet", got)
	}

	h.p.SetQuiet(false)

	h.p.OnTextChanged("global x = 1;")
	h.settle()

	if msgs := h.rec.LogMessages(); len(msgs) != 1 || msgs[0] != diagnostics.MsgNoProblems {
		t.Errorf("log = %q after going loud", msgs)
	}
}

func TestPipeline_StaleResultDiscarded(t *testing.T) {
	queue := &eventloop.Queue{}
	clock := &testutil.FakeScheduler{}
	rec := &testutil.Recorder{}

	var deferred []func()

	checker := oracle.CheckerFunc(func(_ context.Context, source string) (oracle.Result, error) {
		return scenarioOracle(source)
	})

	p := diagnostics.New(queue, checker, rec, rec, diagnostics.Options{
		Scheduler: clock,
		Spawn:     func(f func()) { deferred = append(deferred, f) },
	})

	p.OnTextChanged("global x = 1")
	clock.Advance(diagnostics.DefaultDelay)
	queue.Drain()

	if len(deferred) != 1 {
		t.Fatalf("spawned %d checks, want 1", len(deferred))
	}

	// A new edit arrives while the first check is still running.
	p.OnTextChanged("global x = 1;")

	deferred[0]()
	queue.Drain()

	if rec.MarkerWrites() != 0 {
		t.Errorf("MarkerWrites() = %d, want stale verdict ignored", rec.MarkerWrites())
	}

	clock.Advance(diagnostics.DefaultDelay)
	queue.Drain()
	deferred[1]()
	queue.Drain()

	if msgs := rec.LogMessages(); len(msgs) != 1 || msgs[0] != diagnostics.MsgNoProblems {
		t.Errorf("log = %q, want the fresh verdict", msgs)
	}
}

func TestPipeline_CloseStopsPendingWork(t *testing.T) {
	h := newHarness(scenarioOracle)

	h.p.OnTextChanged("global x = 1")
	h.p.Close()
	h.p.Close()
	h.settle()

	if len(h.checker.calls) != 0 {
		t.Errorf("checker called %d times after Close, want 0", len(h.checker.calls))
	}

	h.p.OnTextChanged("global x = 1;")
	h.settle()

	if len(h.checker.calls) != 0 {
		t.Errorf("OnTextChanged after Close triggered a check")
	}
}

func TestPipeline_CheckNowSkipsDebounce(t *testing.T) {
	h := newHarness(scenarioOracle)

	h.p.OnTextChanged("draft")
	h.p.CheckNow("global x = 1;")
	h.queue.Drain()

	if len(h.checker.calls) != 1 || h.checker.calls[0] != "global x = 1;" {
		t.Fatalf("calls = %q, want one immediate check", h.checker.calls)
	}

	h.clock.Advance(time.Second)
	h.queue.Drain()

	if len(h.checker.calls) != 1 {
		t.Errorf("pending edit still fired after CheckNow")
	}
}

func TestPipeline_WallClock(t *testing.T) {
	loop := eventloop.New(nil)
	rec := &testutil.Recorder{}

	done := make(chan struct{})

	checker := oracle.CheckerFunc(func(_ context.Context, source string) (oracle.Result, error) {
		return scenarioOracle(source)
	})

	p := diagnostics.New(loop, checker, rec, rec, diagnostics.Options{Delay: 5 * time.Millisecond})

	loop.Post(func() { p.OnTextChanged("global x = 1;") })

	go func() {
		deadline := time.After(2 * time.Second)

		for {
			select {
			case <-deadline:
				close(done)
				loop.Stop()

				return
			case <-time.After(2 * time.Millisecond):
				if len(rec.Log()) > 0 {
					close(done)
					loop.Stop()

					return
				}
			}
		}
	}()

	if err := loop.Run(t.Context()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	<-done

	if msgs := rec.LogMessages(); len(msgs) != 1 || msgs[0] != diagnostics.MsgNoProblems {
		t.Errorf("log = %q", msgs)
	}
}
