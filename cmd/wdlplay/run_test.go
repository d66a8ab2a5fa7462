package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/musher-dev/wdlplay/internal/console"
	clierrors "github.com/musher-dev/wdlplay/internal/errors"
	"github.com/musher-dev/wdlplay/internal/model"
	"github.com/musher-dev/wdlplay/internal/protocol"
	"github.com/musher-dev/wdlplay/internal/script"
	"github.com/musher-dev/wdlplay/internal/session"
	"github.com/musher-dev/wdlplay/internal/transport"
)

// fakeEngine answers the start message with a user log line and one pickup
// request, and any reply with done.
type fakeEngine struct {
	mu     sync.Mutex
	recv   transport.Receiver
	sent   []protocol.Outbound
	silent bool
}

func (e *fakeEngine) Dial(_ context.Context, recv transport.Receiver) (transport.Channel, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.recv = recv

	return e, nil
}

func (e *fakeEngine) Send(msg protocol.Outbound) error {
	e.mu.Lock()
	e.sent = append(e.sent, msg)
	recv, silent := e.recv, e.silent
	e.mu.Unlock()

	if silent {
		return nil
	}

	go func() {
		switch msg.(type) {
		case protocol.StartMessage:
			recv.Receive(protocol.LogEvent{Entry: model.LogEntry{Level: model.LevelInfo, Message: "hello", Origin: model.OriginUser}})
			recv.Receive(protocol.DecisionRequestEvent{
				ID:      "r1",
				Request: model.DecisionRequest{Kind: model.DecisionPickup, Payload: json.RawMessage(`{"name":"A"}`)},
			})
		case protocol.DecisionReplyMessage:
			recv.Receive(protocol.DoneEvent{})
		}
	}()

	return nil
}

func (e *fakeEngine) Close() error { return nil }

func (e *fakeEngine) Sent() []protocol.Outbound {
	e.mu.Lock()
	defer e.mu.Unlock()

	return append([]protocol.Outbound(nil), e.sent...)
}

func replies(t *testing.T, text string) console.Decider {
	t.Helper()

	s, err := script.Parse([]byte(text))
	if err != nil {
		t.Fatalf("script.Parse() error = %v", err)
	}

	return s
}

func TestRunOrder_AnswersDecisionFromScript(t *testing.T) {
	out, buf := testWriter()
	engine := &fakeEngine{}

	result, err := runOrder(t.Context(), context.Background(), out, discardLogger(), engine,
		replies(t, "replies:\n  - kind: Pickup\n    reply: NoStationLeft\n"), "order { pickup(A); }", 0)
	if err != nil {
		t.Fatalf("runOrder() error = %v", err)
	}

	if result.outcome.Kind != model.OutcomeDone {
		t.Fatalf("outcome = %v, want Done", result.outcome.Kind)
	}

	sent := engine.Sent()
	if len(sent) != 2 {
		t.Fatalf("sent %d messages, want start and reply", len(sent))
	}

	if reply, ok := sent[1].(protocol.DecisionReplyMessage); !ok || reply.ID != "r1" || reply.Reply != model.ReplyNoStationLeft {
		t.Errorf("sent[1] = %#v", sent[1])
	}

	got := buf.String()
	for _, want := range []string{
		"[INFO]: Start order.\n",
		"[INFO][user]: hello\n",
		"Router request: Pickup {\"name\":\"A\"}",
		"  replied NoStationLeft\n",
		"[INFO]: Order done.\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output %q does not contain %q", got, want)
		}
	}

	if err := outcomeError(result, "", "ws://x"); err != nil {
		t.Errorf("outcomeError() = %v, want nil", err)
	}
}

func TestRunOrder_JSONLines(t *testing.T) {
	out, buf := testWriter()
	out.JSON = true

	result, err := runOrder(t.Context(), context.Background(), out, discardLogger(), &fakeEngine{},
		replies(t, "default: Done\n"), "order {}", 0)
	if err != nil {
		t.Fatalf("runOrder() error = %v", err)
	}

	if result.outcome.Kind != model.OutcomeDone {
		t.Fatalf("outcome = %v, want Done", result.outcome.Kind)
	}

	var events []RunEvent

	for line := range strings.SplitSeq(strings.TrimSpace(buf.String()), "\n") {
		var ev RunEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("line %q is not JSON: %v", line, err)
		}

		events = append(events, ev)
	}

	if len(events) == 0 {
		t.Fatal("no events written")
	}

	if first := events[0]; first.Event != "log" || first.Log.Message != "Start order." {
		t.Errorf("first event = %+v", first)
	}

	if last := events[len(events)-1]; last.Event != "outcome" || last.Outcome != "Done" {
		t.Errorf("last event = %+v", last)
	}

	found := false

	for _, ev := range events {
		if ev.Event == "decision_request" && ev.Kind == "Pickup" {
			found = true
		}
	}

	if !found {
		t.Errorf("no decision_request event in %+v", events)
	}
}

func TestRunOrder_UndecidableRequestStopsOrder(t *testing.T) {
	out, _ := testWriter()
	engine := &fakeEngine{}

	noPrompt := console.DeciderFunc(func(context.Context, model.DecisionRequest) (model.DecisionReply, error) {
		return model.ReplyDone, clierrors.CannotPrompt("--replies")
	})

	result, err := runOrder(t.Context(), context.Background(), out, discardLogger(), engine, noPrompt, "order {}", 0)
	if err != nil {
		t.Fatalf("runOrder() error = %v", err)
	}

	if result.outcome.Kind != model.OutcomeCanceled || !result.outcome.Local {
		t.Errorf("outcome = %+v, want local cancel", result.outcome)
	}

	if len(engine.Sent()) != 1 {
		t.Errorf("sent %d messages, want only start", len(engine.Sent()))
	}

	var cliErr *clierrors.CLIError
	if !clierrors.As(outcomeError(result, "", "ws://x"), &cliErr) || cliErr.Code != clierrors.ExitUsage {
		t.Errorf("outcomeError() = %v, want CannotPrompt", cliErr)
	}
}

func TestRunOrder_InterruptCancelsLocally(t *testing.T) {
	out, buf := testWriter()
	engine := &fakeEngine{silent: true}

	interrupt, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := runOrder(t.Context(), interrupt, out, discardLogger(), engine, replies(t, "default: Done\n"), "order {}", 0)
	if err != nil {
		t.Fatalf("runOrder() error = %v", err)
	}

	if result.outcome.Kind != model.OutcomeCanceled || !result.outcome.Local {
		t.Errorf("outcome = %+v, want local cancel", result.outcome)
	}

	if !strings.Contains(buf.String(), "[WARN]: Order canceled by user.\n") {
		t.Errorf("output = %q", buf.String())
	}

	var cliErr *clierrors.CLIError
	if !clierrors.As(outcomeError(result, "", "ws://x"), &cliErr) || cliErr.Code != clierrors.ExitTimeout {
		t.Errorf("outcomeError() = %v, want OrderCanceled", cliErr)
	}
}

func TestRunOrder_InterruptWhileDialing(t *testing.T) {
	out, _ := testWriter()

	dialStarted := make(chan struct{})
	dialReturned := make(chan struct{})

	// The dial only gives up once the local cancel aborts it, after runOrder
	// may already have returned.
	dialer := transport.DialerFunc(func(ctx context.Context, _ transport.Receiver) (transport.Channel, error) {
		close(dialStarted)
		defer close(dialReturned)

		<-ctx.Done()

		return nil, fmt.Errorf("dial engine: %w", ctx.Err())
	})

	interrupt, cancel := context.WithCancel(context.Background())

	go func() {
		<-dialStarted
		cancel()
	}()

	result, err := runOrder(t.Context(), interrupt, out, discardLogger(), dialer, replies(t, "default: Done\n"), "order {}", time.Minute)
	if err != nil {
		t.Fatalf("runOrder() error = %v", err)
	}

	select {
	case <-dialReturned:
	case <-time.After(5 * time.Second):
		t.Fatal("dial was not aborted by the cancel")
	}

	if result.outcome.Kind != model.OutcomeCanceled || !result.outcome.Local || result.outcome.Cause != nil {
		t.Errorf("outcome = %+v, want a clean local cancel", result.outcome)
	}

	var cliErr *clierrors.CLIError
	if !clierrors.As(outcomeError(result, "", "ws://x"), &cliErr) || cliErr.Code != clierrors.ExitTimeout {
		t.Errorf("outcomeError() = %v, want OrderCanceled", cliErr)
	}
}

func TestRunOrder_DialFailure(t *testing.T) {
	out, _ := testWriter()
	refused := errors.New("connection refused")

	dialer := transport.DialerFunc(func(context.Context, transport.Receiver) (transport.Channel, error) {
		return nil, refused
	})

	result, err := runOrder(t.Context(), context.Background(), out, discardLogger(), dialer, replies(t, "default: Done\n"), "order {}", 0)
	if err != nil {
		t.Fatalf("runOrder() error = %v", err)
	}

	if result.outcome.Kind != model.OutcomeFailed {
		t.Fatalf("outcome = %v, want Failed", result.outcome.Kind)
	}

	var cliErr *clierrors.CLIError
	if !clierrors.As(outcomeError(result, "", "ws://x/session"), &cliErr) || cliErr.Code != clierrors.ExitNetwork {
		t.Fatalf("outcomeError() = %v, want ChannelUnavailable", cliErr)
	}

	if !errors.Is(cliErr, refused) {
		t.Errorf("cause = %v, want %v", cliErr.Cause, refused)
	}
}

func TestOutcomeError(t *testing.T) {
	tests := []struct {
		name     string
		result   orderResult
		wantCode int
	}{
		{name: "done", result: orderResult{outcome: model.Done(nil)}},
		{name: "canceled by engine", result: orderResult{outcome: model.Canceled(nil)}, wantCode: clierrors.ExitTimeout},
		{name: "failed", result: orderResult{outcome: model.Failed([]model.Diagnostic{{Title: "x"}})}, wantCode: clierrors.ExitExecution},
		{
			name:     "channel never opened",
			result:   orderResult{outcome: model.Outcome{Kind: model.OutcomeFailed, Cause: fmt.Errorf("%w: refused", session.ErrDial)}},
			wantCode: clierrors.ExitNetwork,
		},
		{
			name:     "channel broke mid-order",
			result:   orderResult{outcome: model.Outcome{Kind: model.OutcomeFailed, Cause: errors.New("broken pipe")}},
			wantCode: clierrors.ExitExecution,
		},
		{
			name:     "script out of step",
			result:   orderResult{outcome: model.CanceledLocally(), decideErr: script.ErrKindMismatch},
			wantCode: clierrors.ExitUsage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := outcomeError(tt.result, "replies.yaml", "ws://x")

			if tt.wantCode == 0 {
				if err != nil {
					t.Fatalf("outcomeError() = %v, want nil", err)
				}

				return
			}

			var cliErr *clierrors.CLIError
			if !clierrors.As(err, &cliErr) {
				t.Fatalf("outcomeError() = %T %v, want CLIError", err, err)
			}

			if cliErr.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", cliErr.Code, tt.wantCode)
			}
		})
	}
}
