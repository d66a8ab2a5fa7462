package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	clierrors "github.com/musher-dev/wdlplay/internal/errors"
	"github.com/musher-dev/wdlplay/internal/observability"
	"github.com/musher-dev/wdlplay/internal/output"
	"github.com/musher-dev/wdlplay/internal/tui"
)

func newEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit [file]",
		Short: "Open the full-screen order editor",
		Long: `Edit an order with live diagnostics from the playground checker.
Ctrl+R starts the order and stops it again; router decisions are
answered with F1 (Done) and F2 (NoStationLeft). Ctrl+S saves the file,
which is created if it does not exist yet.`,
		Example: `  wdlplay edit order.wdl
  wdlplay edit`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)
			logger := observability.FromContext(ctx)

			if !out.Terminal().FullScreenEnabled() {
				return &clierrors.CLIError{
					Message: "The editor needs an interactive terminal",
					Hint:    "Use 'wdlplay watch <file>' with another editor, or 'wdlplay check <file>'",
					Code:    clierrors.ExitUsage,
				}
			}

			var path, source string

			if len(args) == 1 {
				path = args[0]

				data, err := os.ReadFile(path)
				if err != nil && !errors.Is(err, fs.ErrNotExist) {
					return clierrors.SourceUnreadable(path, err)
				}

				source = string(data)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			checker, err := newChecker(cfg)
			if err != nil {
				return err
			}

			dialer, err := newDialer(cfg, logger)
			if err != nil {
				return err
			}

			bridge := tui.NewBridge(logger)

			editor := tui.New(tui.Options{
				Context:     ctx,
				Path:        path,
				Source:      source,
				Theme:       cfg.Theme(),
				Loop:        bridge,
				Checker:     checker,
				Dialer:      dialer,
				Debounce:    cfg.CheckDebounce(),
				DialTimeout: cfg.DialTimeout(),
				Logger:      logger,
			})

			program := tea.NewProgram(editor, tea.WithAltScreen(), tea.WithContext(ctx))

			g, gctx := errgroup.WithContext(ctx)

			g.Go(func() error {
				if err := bridge.Run(gctx, program); err != nil && !errors.Is(err, context.Canceled) {
					return err
				}

				return nil
			})

			g.Go(func() error {
				defer bridge.Stop()

				if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
					return fmt.Errorf("run editor: %w", err)
				}

				return nil
			})

			err = g.Wait()

			// Both loops have stopped. Quitting from the editor already closed
			// it; this covers a killed program.
			editor.Close()

			return err
		},
	}
}
