// Package app provides the command tree of the minos CLI.
package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/minos/internal/config"
	"github.com/stacklok/minos/internal/syncerr"
	"github.com/stacklok/minos/internal/versions"
)

// Exit codes of the rulesync commands
const (
	ExitOK               = 0
	ExitFailure          = 1
	ExitChecksumMismatch = 2
)

const (
	flagConfig   = "config"
	flagCacheDir = "cache-dir"
)

// ExitCode maps a command error to the process exit code
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, syncerr.ErrChecksumMismatch):
		return ExitChecksumMismatch
	default:
		return ExitFailure
	}
}

// NewRootCmd creates a new root command for the minos CLI.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(config.EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:               "minos",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "Minos compliance rule package manager",
		Long: `Minos keeps versioned compliance rule packages in a local cache.

Packages are fetched from local archives, HTTP(S) URLs, git repositories or OCI
registries, verified, and activated one version at a time per cache directory.`,
		Run: func(cmd *cobra.Command, _ []string) {
			// If no subcommand is provided, print help
			if err := cmd.Help(); err != nil {
				slog.Error("Error displaying help", "error", err)
			}
		},
	}

	rootCmd.PersistentFlags().String(flagConfig, "", "Path to configuration file (YAML format)")
	rootCmd.PersistentFlags().String(flagCacheDir, "", "Rule cache directory (default ~/.minos/rules)")
	for _, name := range []string{flagConfig, flagCacheDir} {
		if err := v.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name)); err != nil {
			slog.Error("Error binding flag", "flag", name, "error", err)
		}
	}

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newRulesyncCmd(v))
	rootCmd.AddCommand(newRulesCmd(v))

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := versions.GetVersionInfo()
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return fmt.Errorf("failed to retrieve format flag: %w", err)
			}

			if format == "json" {
				output, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to format version info as JSON: %w", err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(output))
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "minos %s (commit %s, built %s, %s, %s)\n",
				info.Version, info.Commit, info.BuildDate, info.GoVersion, info.Platform)
			return err
		},
	}
	cmd.Flags().String("format", "", "Output format (json)")
	return cmd
}
