package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/minos/internal/config"
	"github.com/stacklok/minos/internal/status"
	"github.com/stacklok/minos/internal/sync/coordinator"
)

func newRulesCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and manage cached rule packages",
	}
	cmd.AddCommand(newRulesListCmd(v))
	cmd.AddCommand(newRulesActivateCmd(v))
	cmd.AddCommand(newRulesSyncAllCmd(v))
	cmd.AddCommand(newRulesStatusCmd(v))
	return cmd
}

// regulationDir returns the cache directory of regulation, or the cache root when empty
func regulationDir(cacheRoot, regulation string) (string, error) {
	if regulation == "" {
		return cacheRoot, nil
	}
	if err := config.ValidateRegulation(regulation); err != nil {
		return "", err
	}
	return filepath.Join(cacheRoot, regulation), nil
}

func newRulesListCmd(v *viper.Viper) *cobra.Command {
	var regulation string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx, v)
			if err != nil {
				return err
			}
			defer rt.Close(context.WithoutCancel(ctx))

			dir, err := regulationDir(rt.cfg.CacheDir, regulation)
			if err != nil {
				return err
			}
			cached, err := rt.manager.ListVersions(ctx, dir)
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.Header("VERSION", "ACTIVE", "SHA256", "INSTALLED", "SOURCE")
			for _, version := range cached {
				meta, err := rt.manager.Metadata(ctx, dir, version)
				if err != nil {
					if err := table.Append(version, "?", "", "", ""); err != nil {
						return err
					}
					continue
				}
				if err := table.Append(version, activeMark(meta.Active), shortDigest(meta.SHA256),
					meta.InstalledAt.Format(time.RFC3339), meta.Source); err != nil {
					return err
				}
			}
			return table.Render()
		},
	}
	cmd.Flags().StringVar(&regulation, "regulation", "", "List the namespace of this regulation")
	return cmd
}

func newRulesActivateCmd(v *viper.Viper) *cobra.Command {
	var regulation string
	cmd := &cobra.Command{
		Use:   "activate VERSION",
		Short: "Activate a cached version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx, v)
			if err != nil {
				return err
			}
			defer rt.Close(context.WithoutCancel(ctx))

			dir, err := regulationDir(rt.cfg.CacheDir, regulation)
			if err != nil {
				return err
			}
			path, err := rt.manager.Activate(ctx, dir, args[0])
			if err != nil {
				return fmt.Errorf("activation failed: %w", err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "[rulesync] active rules: %s\n", path)
			return err
		},
	}
	cmd.Flags().StringVar(&regulation, "regulation", "", "Activate within the namespace of this regulation")
	return cmd
}

type syncAllOptions struct {
	regulations []string
	version     string
	offline     bool
	retries     int
	cleanupKeep int
	gpgKey      string
}

func newRulesSyncAllCmd(v *viper.Viper) *cobra.Command {
	opts := &syncAllOptions{}
	cmd := &cobra.Command{
		Use:   "sync-all",
		Short: "Sync one version of several regulations",
		Long: `Sync one version for each regulation into <cache-dir>/<regulation>.

Sources come from regulations.sources or regulations.sourceTemplate in the configuration,
with {regulation} and {version} substituted. Regulations are processed in order and the
first failure stops the run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSyncAll(cmd, v, opts)
		},
	}
	cmd.Flags().StringSliceVar(&opts.regulations, "regulations", nil, "Regulations to sync (default from configuration)")
	cmd.Flags().StringVar(&opts.version, "version", "", "Version to sync")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Only use cached versions")
	cmd.Flags().IntVar(&opts.retries, "retries", 0, "Retries per regulation (default from configuration)")
	cmd.Flags().IntVar(&opts.cleanupKeep, "cleanup-keep", 0, "Versions kept per regulation, 0 keeps all (default from configuration)")
	cmd.Flags().StringVar(&opts.gpgKey, "gpg-key", "", "GPG key recorded with each version (not verified)")
	if err := cmd.MarkFlagRequired("version"); err != nil {
		slog.Error("Error marking version flag as required", "error", err)
	}
	return cmd
}

func runSyncAll(cmd *cobra.Command, v *viper.Viper, opts *syncAllOptions) error {
	ctx := cmd.Context()
	rt, err := newRuntime(ctx, v)
	if err != nil {
		return err
	}
	defer rt.Close(context.WithoutCancel(ctx))

	regs := &rt.cfg.Regulations
	req := coordinator.Request{
		Regulations: opts.regulations,
		Version:     opts.version,
		CacheRoot:   rt.cfg.CacheDir,
		Offline:     opts.offline,
		Retries:     regs.Retries,
		CleanupKeep: regs.GetCleanupKeep(),
	}
	if cmd.Flags().Changed("retries") {
		req.Retries = opts.retries
	}
	if cmd.Flags().Changed("cleanup-keep") {
		req.CleanupKeep = opts.cleanupKeep
	}
	if !opts.offline {
		req.Downloader = coordinator.DownloaderFromTemplate(rt.manager, regs, opts.gpgKey)
	}

	coord := coordinator.New(rt.manager,
		coordinator.WithDefaultRegulations(regs.Defaults),
		coordinator.WithSyncMetrics(rt.metrics),
		coordinator.WithTracer(rt.telemetry.Tracer()),
	)
	results, syncErr := coord.SyncAll(ctx, req)

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("REGULATION", "VERSION", "SHA256", "ATTEMPTS", "PRUNED", "PATH")
	for _, r := range results {
		if err := table.Append(r.Regulation, r.Version, shortDigest(r.Digest),
			fmt.Sprint(r.Attempts), fmt.Sprint(len(r.Pruned)), r.Path); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	if syncErr != nil {
		return fmt.Errorf("regulation sync failed: %w", syncErr)
	}
	return nil
}

func newRulesStatusCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the last sync outcome of each regulation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := newRuntime(ctx, v)
			if err != nil {
				return err
			}
			defer rt.Close(context.WithoutCancel(ctx))

			all, err := status.ForCacheRoot(rt.cfg.CacheDir).LoadAll(ctx)
			if err != nil {
				return err
			}
			return writeStatusTable(cmd.OutOrStdout(), all)
		},
	}
}

func writeStatusTable(w io.Writer, all map[string]*status.SyncStatus) error {
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	table := tablewriter.NewWriter(w)
	table.Header("REGULATION", "PHASE", "VERSION", "SHA256", "ATTEMPTS", "LAST SYNC", "MESSAGE")
	for _, name := range names {
		s := all[name]
		lastSync := ""
		if s.LastSyncTime != nil {
			lastSync = s.LastSyncTime.UTC().Format(time.RFC3339)
		}
		if err := table.Append(name, string(s.Phase), s.LastVersion, shortDigest(s.LastDigest),
			fmt.Sprint(s.AttemptCount), lastSync, s.Message); err != nil {
			return err
		}
	}
	return table.Render()
}

func activeMark(active bool) string {
	if active {
		return "*"
	}
	return ""
}

func shortDigest(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}
