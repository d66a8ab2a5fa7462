package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/spf13/cobra"

	"github.com/musher-dev/wdlplay/internal/console"
	"github.com/musher-dev/wdlplay/internal/diagnostics"
	clierrors "github.com/musher-dev/wdlplay/internal/errors"
	"github.com/musher-dev/wdlplay/internal/eventloop"
	"github.com/musher-dev/wdlplay/internal/marker"
	"github.com/musher-dev/wdlplay/internal/model"
	"github.com/musher-dev/wdlplay/internal/observability"
	"github.com/musher-dev/wdlplay/internal/oracle"
	"github.com/musher-dev/wdlplay/internal/output"
	"github.com/musher-dev/wdlplay/internal/surface"
)

// CheckReport is the JSON output of check.
type CheckReport struct {
	File     string       `json:"file"`
	OK       bool         `json:"ok"`
	Problems int          `json:"problems"`
	Markers  []MarkerInfo `json:"markers"`
	Log      []LogLine    `json:"log"`
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Check an order file once",
		Long: `Send the file to the playground checker and print its verdict.
Problems are listed with 1-based line and column numbers. The command
exits non-zero when the checker reports problems or cannot be reached.`,
		Example: `  wdlplay check order.wdl
  wdlplay check order.wdl --json`,
		Args: exactlyOneFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)

			source, err := readSource(args[0])
			if err != nil {
				return err
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			checker, err := newChecker(cfg)
			if err != nil {
				return err
			}

			report, err := checkSource(ctx, out, observability.FromContext(ctx), checker, args[0], source)
			if err != nil {
				var cliErr *clierrors.CLIError
				if !clierrors.As(err, &cliErr) {
					err = clierrors.OracleUnavailable(cfg.ServerURL(), err)
				}

				return err
			}

			if out.JSON {
				if err := out.PrintJSON(report); err != nil {
					return fmt.Errorf("print check report: %w", err)
				}
			}

			if !report.OK {
				return clierrors.ProblemsFound(report.Problems)
			}

			return nil
		},
	}
}

// verdict records what one pipeline check wrote. Setting or clearing markers
// is the first thing the pipeline does with a verdict, so it ends the loop;
// the log entries of the same verdict are written before the loop returns.
type verdict struct {
	log     surface.Log
	done    func()
	markers []marker.Marker
	entries []model.LogEntry
}

func (v *verdict) SetMarkers(markers []marker.Marker) {
	v.markers = append(v.markers[:0], markers...)
	v.done()
}

func (v *verdict) ClearMarkers() {
	v.markers = v.markers[:0]
	v.done()
}

func (v *verdict) AppendLog(entry model.LogEntry) {
	v.entries = append(v.entries, entry)

	if v.log != nil {
		v.log.AppendLog(entry)
	}
}

func (v *verdict) ClearLog() {
	v.entries = v.entries[:0]

	if v.log != nil {
		v.log.ClearLog()
	}
}

// checkSource runs a single immediate check through the diagnostics pipeline.
// A checker failure is returned as an error after it has been logged.
func checkSource(ctx context.Context, out *output.Writer, logger *slog.Logger, checker oracle.Checker, path, source string) (*CheckReport, error) {
	var (
		mu       sync.Mutex
		checkErr error
	)

	recording := oracle.CheckerFunc(func(ctx context.Context, src string) (oracle.Result, error) {
		result, err := checker.Check(ctx, src)

		mu.Lock()
		checkErr = err
		mu.Unlock()

		return result, err
	})

	loop := eventloop.New(logger)
	spin := out.Spinner("Checking " + path)

	var once sync.Once

	finish := func() {
		once.Do(func() {
			spin.Stop()
			loop.Stop()
		})
	}

	v := &verdict{done: finish}

	if !out.JSON {
		v.log = console.New(out, console.Options{Logger: logger})
	}

	pipeline := diagnostics.New(loop, recording, v, v, diagnostics.Options{Logger: logger})
	defer pipeline.Close()

	spin.Start()
	loop.Post(func() { pipeline.CheckNow(source) })

	if err := loop.Run(ctx); err != nil {
		finish()
		return nil, err
	}

	mu.Lock()
	err := checkErr
	mu.Unlock()

	if err != nil {
		return nil, err
	}

	report := &CheckReport{
		File:    path,
		Markers: newMarkerInfos(v.markers),
		Log:     make([]LogLine, 0, len(v.entries)),
	}

	for _, entry := range v.entries {
		report.Log = append(report.Log, newLogLine(entry))

		if entry.Level == model.LevelError {
			report.Problems++
		}
	}

	report.OK = report.Problems == 0

	return report, nil
}
