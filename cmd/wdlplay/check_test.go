package main

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/musher-dev/wdlplay/internal/model"
	"github.com/musher-dev/wdlplay/internal/oracle"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func checkerReturning(result oracle.Result, err error) oracle.Checker {
	return oracle.CheckerFunc(func(context.Context, string) (oracle.Result, error) {
		return result, err
	})
}

func TestCheckSource_NoProblems(t *testing.T) {
	out, buf := testWriter()

	report, err := checkSource(t.Context(), out, discardLogger(), checkerReturning(oracle.Ok(), nil), "order.wdl", "order {}")
	if err != nil {
		t.Fatalf("checkSource() error = %v", err)
	}

	if !report.OK || report.Problems != 0 || len(report.Markers) != 0 {
		t.Errorf("report = %+v, want ok without markers", report)
	}

	if !strings.Contains(buf.String(), "[INFO]: No problems found.\n") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestCheckSource_ReportsProblems(t *testing.T) {
	out, buf := testWriter()

	diags := []model.Diagnostic{
		{
			Title: "expected `;`",
			Position: &model.Position{
				Span: model.Span{
					Start: model.Location{Line: 0, Column: 4},
					End:   model.Location{Line: 0, Column: 5},
				},
			},
		},
		{Title: "unknown station B"},
	}

	report, err := checkSource(t.Context(), out, discardLogger(), checkerReturning(oracle.ErrorList(diags), nil), "order.wdl", "order")
	if err != nil {
		t.Fatalf("checkSource() error = %v", err)
	}

	if report.OK || report.Problems != 2 {
		t.Errorf("OK = %v, Problems = %d, want false, 2", report.OK, report.Problems)
	}

	if len(report.Markers) != 1 {
		t.Fatalf("len(Markers) = %d, want 1 positioned marker", len(report.Markers))
	}

	if m := report.Markers[0]; m.StartLine != 1 || m.StartColumn != 5 || m.EndColumn != 6 {
		t.Errorf("marker = %+v, want 1:5-1:6", m)
	}

	got := buf.String()
	for _, want := range []string{"[ERROR][1:5]: expected `;`\n", "[ERROR]: unknown station B\n"} {
		if !strings.Contains(got, want) {
			t.Errorf("output %q does not contain %q", got, want)
		}
	}
}

func TestCheckSource_CheckerFailure(t *testing.T) {
	out, buf := testWriter()
	boom := errors.New("connection refused")

	_, err := checkSource(t.Context(), out, discardLogger(), checkerReturning(oracle.Result{}, boom), "order.wdl", "order {}")
	if !errors.Is(err, boom) {
		t.Fatalf("checkSource() error = %v, want %v", err, boom)
	}

	if !strings.Contains(buf.String(), "[ERROR]: Source code check failed: connection refused") {
		t.Errorf("output = %q", buf.String())
	}
}

func TestCheckSource_JSONKeepsStdoutClean(t *testing.T) {
	out, buf := testWriter()
	out.JSON = true

	report, err := checkSource(t.Context(), out, discardLogger(), checkerReturning(oracle.Ok(), nil), "order.wdl", "order {}")
	if err != nil {
		t.Fatalf("checkSource() error = %v", err)
	}

	if buf.Len() != 0 {
		t.Errorf("output = %q, want nothing before the report", buf.String())
	}

	if len(report.Log) != 1 || report.Log[0].Level != "Info" {
		t.Errorf("Log = %+v", report.Log)
	}
}
