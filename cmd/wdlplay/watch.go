package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/musher-dev/wdlplay/internal/console"
	"github.com/musher-dev/wdlplay/internal/diagnostics"
	clierrors "github.com/musher-dev/wdlplay/internal/errors"
	"github.com/musher-dev/wdlplay/internal/eventloop"
	"github.com/musher-dev/wdlplay/internal/observability"
	"github.com/musher-dev/wdlplay/internal/oracle"
	"github.com/musher-dev/wdlplay/internal/output"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <file>",
		Short: "Re-check an order file whenever it is saved",
		Long: `Check the file, then check it again every time it changes on disk,
so another editor can be used with live diagnostics. Saves in quick
succession are checked once. Press Ctrl+C to stop.`,
		Example: `  wdlplay watch order.wdl`,
		Args:    exactlyOneFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			out := output.FromContext(ctx)
			logger := observability.FromContext(ctx)

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

			out.Info("Watching %s (Ctrl+C to stop)", args[0])

			return watchFile(ctx, out, logger, checker, args[0], source, cfg.CheckDebounce())
		},
	}
}

// watchFile feeds every change of path into a diagnostics pipeline until ctx
// ends. The parent directory is watched so editors that save by renaming are
// still seen.
func watchFile(ctx context.Context, out *output.Writer, logger *slog.Logger, checker oracle.Checker, path, source string, debounce time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return clierrors.SourceUnreadable(path, err)
	}

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return clierrors.SourceUnreadable(path, err)
	}

	loop := eventloop.New(logger)
	renderer := console.New(out, console.Options{Logger: logger})
	pipeline := diagnostics.New(loop, checker, renderer, renderer, diagnostics.Options{
		Delay:  debounce,
		Logger: logger,
	})

	loop.Post(func() { pipeline.CheckNow(source) })

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return loop.Run(gctx)
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil

			case ev, ok := <-watcher.Events:
				if !ok {
					return nil
				}

				if filepath.Clean(ev.Name) != abs || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
					continue
				}

				data, err := os.ReadFile(abs)
				if err != nil {
					logger.Warn("read watched file", slog.String("path", abs), slog.String("error", err.Error()))
					continue
				}

				text := string(data)
				loop.Post(func() { pipeline.OnTextChanged(text) })

			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}

				logger.Warn("file watcher error", slog.String("error", err.Error()))
			}
		}
	})

	err = g.Wait()

	// The loop has stopped, so the pipeline can be closed from here.
	pipeline.Close()

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	return nil
}
