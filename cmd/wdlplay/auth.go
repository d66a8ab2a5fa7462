package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/musher-dev/wdlplay/internal/auth"
	clierrors "github.com/musher-dev/wdlplay/internal/errors"
	"github.com/musher-dev/wdlplay/internal/oracle"
	"github.com/musher-dev/wdlplay/internal/output"
	"github.com/musher-dev/wdlplay/internal/prompt"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage checker tokens",
		Long:  `Store, inspect and remove the token sent to the playground server.`,
	}

	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthStatusCmd())
	cmd.AddCommand(newAuthLogoutCmd())

	return cmd
}

func tokenRejected() *clierrors.CLIError {
	return &clierrors.CLIError{
		Message: "Token rejected by the checker",
		Hint:    "Check the token and run 'wdlplay auth login' again",
		Code:    clierrors.ExitAuth,
	}
}

func newAuthLoginCmd() *cobra.Command {
	var tokenFlag string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store a token for the playground server",
		Long: `Verify a token against the configured server and store it.

The token is kept in your system's keyring (macOS Keychain, Windows
Credential Manager, or Linux Secret Service), or in the credentials
file when no keyring is available. Tokens are stored per server.

You can also set the WDLPLAY_TOKEN environment variable.`,
		Example: `  wdlplay auth login
  wdlplay auth login --server https://play.example.com`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)
			prompter := prompt.New(out)

			if os.Getenv(auth.EnvVarName) != "" {
				out.Info("%s environment variable is set", auth.EnvVarName)
				out.Muted("Environment variable takes precedence over stored tokens")
				out.Println()
			}

			token := tokenFlag
			if token == "" {
				if !prompter.CanPrompt() {
					return clierrors.CannotPrompt(auth.EnvVarName + " or --token")
				}

				var err error

				token, err = prompter.Password(ctx, "Enter your playground token")
				if err != nil {
					return fmt.Errorf("read token prompt: %w", err)
				}
			}

			if token == "" {
				return clierrors.TokenEmpty()
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			spin := out.Spinner("Validating token")
			spin.Start()

			if _, err := oracle.New(cfg.ServerURL()).WithToken(token).Ping(ctx); err != nil {
				spin.StopWithFailure("Token not accepted")

				if errors.Is(err, oracle.ErrUnauthorized) {
					return tokenRejected()
				}

				return clierrors.OracleUnavailable(cfg.ServerURL(), err)
			}

			spin.Stop()

			source, err := auth.StoreToken(cfg.ServerURL(), token)
			if err != nil {
				return clierrors.ConfigFailed("store credentials", err)
			}

			out.Success("Token stored for %s (in %s)", cfg.ServerURL(), source)

			return nil
		},
	}

	cmd.Flags().StringVar(&tokenFlag, "token", "", "Token for non-interactive login (prefer WDLPLAY_TOKEN to avoid shell history exposure)")

	return cmd
}

// AuthStatus represents authentication status for JSON output.
type AuthStatus struct {
	Server string `json:"server"`
	Source string `json:"source"`
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		Short:   "Show token status",
		Long:    `Show where the token for the configured server comes from and check that the server accepts it.`,
		Example: `  wdlplay auth status`,
		Args:    noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := output.FromContext(ctx)

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			source, token := auth.GetToken(cfg.ServerURL())
			if token == "" {
				return clierrors.NotAuthenticated()
			}

			spin := out.Spinner("Checking token")
			spin.Start()

			if _, err := oracle.New(cfg.ServerURL()).WithToken(token).Ping(ctx); err != nil {
				spin.StopWithFailure("Token not accepted")

				if errors.Is(err, oracle.ErrUnauthorized) {
					return tokenRejected()
				}

				return clierrors.OracleUnavailable(cfg.ServerURL(), err)
			}

			spin.StopWithSuccess("Authenticated")

			if out.JSON {
				if err := out.PrintJSON(AuthStatus{
					Server: cfg.ServerURL(),
					Source: string(source),
				}); err != nil {
					return fmt.Errorf("print auth status json: %w", err)
				}

				return nil
			}

			out.Print("Server: %s\n", cfg.ServerURL())
			out.Print("Source: %s\n", source)

			return nil
		},
	}
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "logout",
		Short:   "Remove the stored token",
		Long:    `Remove the token stored for the configured server from the keyring and the credentials file.`,
		Example: `  wdlplay auth logout`,
		Args:    noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			if err := auth.DeleteToken(cfg.ServerURL()); err != nil {
				if errors.Is(err, auth.ErrNoCredentials) {
					out.Muted("No stored token for %s", cfg.ServerURL())
					return nil
				}

				return clierrors.ConfigFailed("clear credentials", err)
			}

			out.Success("Logged out of %s", cfg.ServerURL())

			if os.Getenv(auth.EnvVarName) != "" {
				out.Println()
				out.Warning("%s environment variable is still set", auth.EnvVarName)
			}

			return nil
		},
	}
}
