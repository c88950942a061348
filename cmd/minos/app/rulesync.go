package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	pkgsync "github.com/stacklok/minos/internal/sync"
	"github.com/stacklok/minos/internal/syncerr"
)

type rulesyncOptions struct {
	sha256      string
	offline     bool
	gpgKey      string
	retries     int
	rollbackTo  string
	cleanupKeep int
}

func newRulesyncCmd(v *viper.Viper) *cobra.Command {
	opts := &rulesyncOptions{}
	cmd := &cobra.Command{
		Use:   "rulesync SOURCE VERSION",
		Short: "Sync a rule package version into the cache",
		Long: `Fetch, verify and activate one rule package version.

SOURCE is a local .tar.gz path, an http(s) URL, git+<repo-url>[#path=<file-or-dir>]
or oci://<reference>[#path=<file>]. With --rollback-to the cache is rolled back instead
and SOURCE is ignored.

Exit status is 2 when checksum verification fails and 1 for every other failure.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRulesync(cmd, v, args[0], args[1], opts)
		},
	}

	cmd.Flags().StringVar(&opts.sha256, "sha256", "", "Expected SHA-256 of the package archive")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Only activate an already cached version")
	cmd.Flags().StringVar(&opts.gpgKey, "gpg-key", "", "GPG key recorded with the version (not verified)")
	cmd.Flags().IntVar(&opts.retries, "retries", 0, "Number of retries after a failed attempt")
	cmd.Flags().StringVar(&opts.rollbackTo, "rollback-to", "", "Activate this cached version instead of syncing")
	cmd.Flags().IntVar(&opts.cleanupKeep, "cleanup-keep", 0, "Versions to keep after a sync (0 keeps all)")
	return cmd
}

func runRulesync(cmd *cobra.Command, v *viper.Viper, rawSource, version string, opts *rulesyncOptions) error {
	ctx := cmd.Context()
	if opts.retries < 0 {
		opts.retries = 0
	}

	rt, err := newRuntime(ctx, v)
	if err != nil {
		return err
	}
	defer rt.Close(context.WithoutCancel(ctx))
	cacheDir := rt.cfg.CacheDir

	attempt := 0
	operation := func() (string, error) {
		attempt++
		start := time.Now()
		path, err := rulesyncOnce(ctx, rt, rawSource, version, cacheDir, opts)
		rt.metrics.RecordSyncDuration(ctx, "", time.Since(start), err == nil)
		return path, err
	}
	notify := func(err error, _ time.Duration) {
		kind := string(syncerr.KindOf(err))
		rt.metrics.RecordRetry(ctx, "", kind)
		slog.Warn("Rule sync attempt failed, retrying", "attempt", attempt, "error_kind", kind, "error", err)
	}

	path, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(&backoff.ZeroBackOff{}),
		backoff.WithMaxTries(uint(opts.retries+1)),
		backoff.WithNotify(notify),
	)
	if err != nil {
		if errors.Is(err, syncerr.ErrChecksumMismatch) {
			return fmt.Errorf("checksum verification failed: %w", err)
		}
		if opts.rollbackTo != "" {
			return fmt.Errorf("rollback failed: %w", err)
		}
		return fmt.Errorf("rule sync failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if opts.rollbackTo != "" {
		_, err = fmt.Fprintf(out, "[rulesync] rolled back: %s\n", path)
		return err
	}
	if _, err := fmt.Fprintf(out, "[rulesync] rules synced: %s\n", path); err != nil {
		return err
	}
	if active, ok, err := rt.manager.ActivePath(ctx, cacheDir); err == nil && ok {
		_, err = fmt.Fprintf(out, "[rulesync] active rules: %s\n", active)
		return err
	}
	return nil
}

func rulesyncOnce(
	ctx context.Context, rt *runtime, rawSource, version, cacheDir string, opts *rulesyncOptions,
) (string, error) {
	if opts.rollbackTo != "" {
		return rt.manager.Rollback(ctx, cacheDir, version, opts.rollbackTo)
	}

	path, err := rt.manager.Sync(ctx, rawSource, version, cacheDir, pkgsync.Options{
		ExpectedSHA256: opts.sha256,
		GPGKey:         opts.gpgKey,
		Offline:        opts.offline,
	})
	if err != nil {
		return "", err
	}

	if opts.cleanupKeep > 0 {
		pruned, err := rt.manager.Cleanup(ctx, cacheDir, opts.cleanupKeep)
		if err != nil {
			return "", err
		}
		rt.metrics.RecordPruned(ctx, "", len(pruned))
	}
	return path, nil
}
