package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/musher-dev/wdlplay/internal/marker"
	"github.com/musher-dev/wdlplay/internal/model"
)

// fakeTB records failures instead of stopping the test.
type fakeTB struct {
	testing.TB

	errors []string
	fatals []string
}

func (f *fakeTB) Helper() {}

func (f *fakeTB) Logf(string, ...any) {}

func (f *fakeTB) Errorf(format string, args ...any) {
	f.errors = append(f.errors, fmt.Sprintf(format, args...))
}

func (f *fakeTB) Fatalf(format string, args ...any) {
	f.fatals = append(f.fatals, fmt.Sprintf(format, args...))
}

func withGolden(t *testing.T, name, content string) {
	t.Helper()

	t.Chdir(t.TempDir())

	if err := os.MkdirAll("testdata", 0o755); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join("testdata", name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestAssertGolden(t *testing.T) {
	tests := []struct {
		name       string
		golden     string
		got        string
		wantErrors int
		wantDiff   string
	}{
		{name: "match", golden: "[INFO]: Order done.\n", got: "[INFO]: Order done.\n"},
		{name: "crlf golden", golden: "a\r\nb\r\n", got: "a\nb\n"},
		{
			name:       "mismatch",
			golden:     "[INFO]: Start order.\n[INFO]: Order done.\n",
			got:        "[INFO]: Start order.\n[WARN]: Order canceled by user.\n",
			wantErrors: 1,
			wantDiff:   `line 2: got "[WARN]: Order canceled by user.", want "[INFO]: Order done."`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withGolden(t, "out.golden", tt.golden)

			tb := &fakeTB{}
			AssertGolden(tb, tt.got, "out.golden")

			if len(tb.errors) != tt.wantErrors || len(tb.fatals) != 0 {
				t.Fatalf("errors = %q, fatals = %q", tb.errors, tb.fatals)
			}

			if tt.wantDiff != "" && !strings.Contains(tb.errors[0], tt.wantDiff) {
				t.Errorf("error = %q, want it to contain %q", tb.errors[0], tt.wantDiff)
			}
		})
	}
}

func TestAssertGolden_MissingFile(t *testing.T) {
	t.Chdir(t.TempDir())

	tb := &fakeTB{}
	AssertGolden(tb, "anything", "absent.golden")

	if len(tb.fatals) != 1 || !strings.Contains(tb.fatals[0], "-update") {
		t.Errorf("fatals = %q, want a hint to run with -update", tb.fatals)
	}
}

func TestGoldenPath(t *testing.T) {
	if got, want := GoldenPath("check.golden"), filepath.Join("testdata", "check.golden"); got != want {
		t.Errorf("GoldenPath() = %q, want %q", got, want)
	}
}

func TestFakeScheduler(t *testing.T) {
	var clock FakeScheduler

	var fired []string

	clock.AfterFunc(200*time.Millisecond, func() { fired = append(fired, "late") })
	clock.AfterFunc(100*time.Millisecond, func() { fired = append(fired, "early") })
	stopped := clock.AfterFunc(150*time.Millisecond, func() { fired = append(fired, "stopped") })

	if !stopped.Stop() {
		t.Fatal("Stop() = false for an armed timer")
	}

	clock.Advance(99 * time.Millisecond)

	if len(fired) != 0 {
		t.Fatalf("fired %v before any deadline", fired)
	}

	clock.Advance(time.Second)

	if strings.Join(fired, ",") != "early,late" {
		t.Errorf("fired = %v, want deadline order without the stopped timer", fired)
	}

	if clock.Armed() != 0 {
		t.Errorf("Armed() = %d, want 0", clock.Armed())
	}

	if stopped.Stop() {
		t.Error("Stop() = true for a stopped timer")
	}
}

func TestRecorder(t *testing.T) {
	rec := &Recorder{}

	rec.SetMarkers([]marker.Marker{{Severity: marker.SeverityError, Message: "x"}})
	rec.AppendLog(model.InfoEntry("Start order."))
	rec.ClearLog()
	rec.AppendLog(model.InfoEntry("Order done."))
	rec.ClearMarkers()
	rec.SetBusy(true)
	rec.SetBusy(false)

	if got := rec.MarkerWrites(); got != 2 {
		t.Errorf("MarkerWrites() = %d, want 2", got)
	}

	if len(rec.Markers()) != 0 {
		t.Errorf("Markers() = %v, want none after clear", rec.Markers())
	}

	if got := rec.LogMessages(); len(got) != 1 || got[0] != "Order done." {
		t.Errorf("LogMessages() = %q", got)
	}

	if rec.LogClears() != 1 {
		t.Errorf("LogClears() = %d, want 1", rec.LogClears())
	}

	if h := rec.BusyHistory(); len(h) != 2 || !h[0] || h[1] {
		t.Errorf("BusyHistory() = %v, want [true false]", h)
	}

	rec.ShowDecisionPrompt(model.DecisionRequest{Kind: model.DecisionPickup}, func(model.DecisionReply) error { return nil })

	if req, reply := rec.Prompt(); req == nil || reply == nil || rec.PromptShows() != 1 {
		t.Fatal("prompt not recorded")
	}

	rec.HideDecisionPrompt()

	if req, _ := rec.Prompt(); req != nil {
		t.Error("prompt still visible after hide")
	}
}
