package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/musher-dev/wdlplay/internal/config"
	clierrors "github.com/musher-dev/wdlplay/internal/errors"
	"github.com/musher-dev/wdlplay/internal/output"
)

// settingHelp describes each key for config list.
var settingHelp = map[string]string{
	"server.url":           "Checker and engine endpoint",
	"session.url":          "Order channel URL (derived from server.url when empty)",
	"check.debounce":       "Quiet time after an edit before checking",
	"check.timeout":        "Timeout of one check",
	"check.cache_size":     "Remembered verdicts, 0 disables the cache",
	"session.dial_timeout": "Timeout for opening the order channel",
	"ui.theme":             "Editor colors: auto, dark, light",
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long:  `View and modify wdlplay configuration settings.`,
	}

	cmd.AddCommand(newConfigListCmd())
	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigSetCmd())

	return cmd
}

func unknownKey(key string) *clierrors.CLIError {
	return &clierrors.CLIError{
		Message: fmt.Sprintf("Unknown setting %q", key),
		Hint:    "Known settings: " + strings.Join(config.Keys, ", "),
		Code:    clierrors.ExitUsage,
	}
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		Long:  `Display every configuration setting with its current value and what it controls.`,
		Example: `  wdlplay config list
  wdlplay config list --json`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			cfg := config.Load()

			if out.JSON {
				settings := make(map[string]any, len(config.Keys))
				for _, key := range config.Keys {
					settings[key] = cfg.Get(key)
				}

				return out.PrintJSON(settings)
			}

			width := 0
			for _, key := range config.Keys {
				width = max(width, len(key))
			}

			for _, key := range config.Keys {
				out.Print("%-*s = %v\n", width, key, cfg.Get(key))
				out.Muted("%-*s   %s", width, "", settingHelp[key])
			}

			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "get <key>",
		Short:   "Get a configuration value",
		Long:    `Retrieve and display the current value of a single configuration key.`,
		Example: `  wdlplay config get server.url`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			key := args[0]

			if !config.Known(key) {
				return unknownKey(key)
			}

			value := config.Load().Get(key)

			if out.JSON {
				return out.PrintJSON(map[string]any{key: value})
			}

			if s, ok := value.(string); ok && s == "" {
				out.Muted("%s is not set", key)
				return nil
			}

			out.Print("%s = %v\n", key, value)

			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long:  `Set a configuration key to the given value. The value is checked, then persisted to the config file.`,
		Example: `  wdlplay config set server.url https://play.example.com
  wdlplay config set check.debounce 250ms`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := output.FromContext(cmd.Context())
			key, value := args[0], args[1]

			if !config.Known(key) {
				return unknownKey(key)
			}

			if err := config.Load().Set(key, value); err != nil {
				return clierrors.ConfigFailed("set config", err)
			}

			out.Success("Set %s = %s", key, value)

			return nil
		},
	}
}
