package console

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"

	"github.com/musher-dev/wdlplay/internal/eventloop"
	"github.com/musher-dev/wdlplay/internal/marker"
	"github.com/musher-dev/wdlplay/internal/model"
	"github.com/musher-dev/wdlplay/internal/output"
	"github.com/musher-dev/wdlplay/internal/terminal"
	"github.com/musher-dev/wdlplay/internal/testutil"
)

func newTestRenderer(width int, opts Options) (*Renderer, *bytes.Buffer) {
	var buf bytes.Buffer

	term := &terminal.Info{IsTTY: width > 0, NoColor: true, Width: width}

	return New(output.NewWriter(&buf, &buf, term), opts), &buf
}

func TestLine(t *testing.T) {
	span := model.Span{Start: model.Location{Line: 0, Column: 12}, End: model.Location{Line: 0, Column: 13}}

	tests := []struct {
		name  string
		entry model.LogEntry
		want  string
	}{
		{name: "plain", entry: model.InfoEntry("Order done."), want: "[INFO]: Order done."},
		{name: "user", entry: model.LogEntry{Level: model.LevelDebug, Message: "x = 3", Origin: model.OriginUser}, want: "[DEBUG][user]: x = 3"},
		{name: "positioned", entry: model.LogEntry{Level: model.LevelError, Message: "expected `;`", Span: &span}, want: "[ERROR][1:13]: expected `;`"},
		{
			name:  "positioned user",
			entry: model.LogEntry{Level: model.LevelTrace, Message: "tick", Origin: model.OriginUser, Span: &span},
			want:  "[TRACE][1:13][user]: tick",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Line(tt.entry); got != tt.want {
				t.Errorf("Line() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderer_Session(t *testing.T) {
	r, buf := newTestRenderer(0, Options{})

	r.ClearLog()
	r.AppendLog(model.InfoEntry("Start order."))
	r.AppendLog(model.LogEntry{
		Level:    model.LevelInfo,
		Message:  "loading A",
		Origin:   model.OriginUser,
		Span:     &model.Span{Start: model.Location{Line: 2, Column: 4}, End: model.Location{Line: 2, Column: 9}},
		Rendered: "  3 | pickup(A);\n    |     ^^^^^\n",
	})
	r.ShowDecisionPrompt(model.DecisionRequest{Kind: model.DecisionPickup, Payload: json.RawMessage(`{"name":"A"}`)}, nil)
	r.AppendLog(model.WarnEntry("Order canceled by user."))
	r.ClearLog()
	r.AppendLog(model.DiagnosticEntry(model.Diagnostic{
		Title: "expected `;`",
		Position: &model.Position{
			Span:     model.Span{Start: model.Location{Line: 0, Column: 12}, End: model.Location{Line: 0, Column: 13}},
			Rendered: "global x = 1",
		},
	}))

	testutil.AssertGolden(t, buf.String(), "session.golden")
}

func TestRenderer_TruncatesToWidth(t *testing.T) {
	r, buf := newTestRenderer(30, Options{})

	r.AppendLog(model.InfoEntry(strings.Repeat("a", 60)))

	line := strings.TrimSuffix(buf.String(), "\n")

	if !strings.HasSuffix(line, ellipsis) {
		t.Errorf("line = %q, want an ellipsis", line)
	}

	if w := runewidth.StringWidth(line); w > 30 {
		t.Errorf("width = %d, want <= 30", w)
	}
}

func TestRenderer_MarkersKept(t *testing.T) {
	r, _ := newTestRenderer(0, Options{})

	pos := model.Position{Span: model.Span{End: model.Location{Column: 1}}}
	r.SetMarkers(nil)

	if len(r.Markers()) != 0 {
		t.Fatal("expected no markers")
	}

	r.SetMarkers([]marker.Marker{marker.AtPosition(marker.SeverityInfo, "Order done.", pos)})

	if got := len(r.Markers()); got != 1 {
		t.Fatalf("len(Markers()) = %d, want 1", got)
	}

	r.ClearMarkers()

	if got := len(r.Markers()); got != 0 {
		t.Errorf("len(Markers()) = %d after clear, want 0", got)
	}
}

func TestRenderer_DeciderAnswersOnLoop(t *testing.T) {
	queue := &eventloop.Queue{}

	var asked []model.DecisionKind

	decider := DeciderFunc(func(_ context.Context, req model.DecisionRequest) (model.DecisionReply, error) {
		asked = append(asked, req.Kind)
		return model.ReplyNoStationLeft, nil
	})

	r, buf := newTestRenderer(0, Options{
		Decider: decider,
		Loop:    queue,
		Spawn:   func(f func()) { f() },
	})

	var replies []model.DecisionReply

	r.ShowDecisionPrompt(model.DecisionRequest{Kind: model.DecisionDrop}, func(v model.DecisionReply) error {
		replies = append(replies, v)
		return nil
	})

	if len(replies) != 0 {
		t.Fatal("reply delivered before the loop ran")
	}

	queue.Drain()

	if len(asked) != 1 || asked[0] != model.DecisionDrop {
		t.Errorf("asked = %v, want [Drop]", asked)
	}

	if len(replies) != 1 || replies[0] != model.ReplyNoStationLeft {
		t.Errorf("replies = %v, want [NoStationLeft]", replies)
	}

	if !strings.Contains(buf.String(), "replied NoStationLeft") {
		t.Errorf("output = %q, want the reply echoed", buf.String())
	}
}

func TestRenderer_DeciderErrorLeavesRequestOpen(t *testing.T) {
	queue := &eventloop.Queue{}

	r, _ := newTestRenderer(0, Options{
		Decider: DeciderFunc(func(context.Context, model.DecisionRequest) (model.DecisionReply, error) {
			return 0, errors.New("stdin closed")
		}),
		Loop:  queue,
		Spawn: func(f func()) { f() },
	})

	called := false

	r.ShowDecisionPrompt(model.DecisionRequest{Kind: model.DecisionDrive}, func(model.DecisionReply) error {
		called = true
		return nil
	})

	if n := queue.Drain(); n != 0 {
		t.Errorf("Drain() ran %d closures, want 0", n)
	}

	if called {
		t.Error("reply sent after the decider failed")
	}
}
