package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/musher-dev/wdlplay/internal/auth"
	"github.com/musher-dev/wdlplay/internal/config"
	"github.com/musher-dev/wdlplay/internal/doctor"
	"github.com/musher-dev/wdlplay/internal/observability"
	"github.com/musher-dev/wdlplay/internal/oracle"
	"github.com/musher-dev/wdlplay/internal/output"
	"github.com/musher-dev/wdlplay/internal/paths"
	"github.com/musher-dev/wdlplay/internal/transport"
)

// DoctorReport is the JSON output of doctor.
type DoctorReport struct {
	Results  []doctor.Result `json:"results"`
	Passed   int             `json:"passed"`
	Failed   int             `json:"failed"`
	Warnings int             `json:"warnings"`
}

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose common issues",
		Long: `Run diagnostic checks to identify configuration and connectivity issues.

Checks performed:
  - Configuration values
  - Checker reachability and response time
  - Token status and credential source
  - Order channel reachability
  - CLI build`,
		Example: `  wdlplay doctor
  wdlplay doctor --json`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)

			results := doctor.New(doctorEnv(ctx, config.Load())).Run(ctx)

			if out.JSON {
				passed, failed, warnings := doctor.Summary(results)

				if err := out.PrintJSON(DoctorReport{
					Results:  results,
					Passed:   passed,
					Failed:   failed,
					Warnings: warnings,
				}); err != nil {
					return fmt.Errorf("print doctor report: %w", err)
				}

				return nil
			}

			renderDoctor(out, results)

			return nil
		},
	}
}

// doctorEnv wires the checks to the live configuration. Invalid settings are
// reported by the Configuration check rather than failing the command.
func doctorEnv(ctx context.Context, cfg *config.Config) doctor.Env {
	logger := observability.FromContext(ctx)
	serverURL := cfg.ServerURL()

	env := doctor.Env{
		ServerURL: serverURL,
		Validate:  cfg.Validate,
		Oracle: func(token string) doctor.Pinger {
			return oracle.New(serverURL).WithToken(token)
		},
		Token: func() (auth.CredentialSource, string) {
			return auth.GetToken(serverURL)
		},
	}

	if file, err := paths.ConfigFile(); err == nil {
		if _, statErr := os.Stat(file); statErr == nil {
			env.ConfigFile = file
		}
	}

	u, err := sessionURL(cfg)
	if err != nil {
		env.SessionURL = cfg.SessionURL()
		env.Dialer = transport.DialerFunc(func(context.Context, transport.Receiver) (transport.Channel, error) {
			return nil, err
		})

		return env
	}

	_, token := auth.GetToken(serverURL)

	env.SessionURL = u
	env.Dialer = &transport.WebSocketDialer{URL: u, Token: token, Logger: logger}

	return env
}

func renderDoctor(out *output.Writer, results []doctor.Result) {
	out.Println("wdlplay doctor")
	out.Rule(len("wdlplay doctor"))
	out.Println()

	doctor.RenderResults(results, out.Print, out.Success, out.Warning, out.Failure, out.Muted)

	passed, failed, warnings := doctor.Summary(results)

	out.Println()
	out.Print("%d passed", passed)

	if failed > 0 {
		out.Print(", %d failed", failed)
	}

	if warnings > 0 {
		out.Print(", %d warning(s)", warnings)
	}

	out.Println()
}
