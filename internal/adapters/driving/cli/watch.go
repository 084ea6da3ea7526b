package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/archivo-labs/archivo-cli/internal/adapters/driven/source/filesystem"
	"github.com/archivo-labs/archivo-cli/internal/core/domain"
	"github.com/archivo-labs/archivo-cli/internal/logger"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Watch a directory and re-ingest on changes",
	Long: `Performs an initial ingest of the directory, then watches it for
changes and re-ingests after each burst of filesystem events. Unchanged
chunks are skipped, so only modified documents do real work. Stop with
Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", filesystem.DefaultDebounce, "quiet period before re-ingesting")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}
	path := args[0]

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Watch always covers a whole directory, so deletions purge.
	opts := domain.IngestOptions{
		ChunkSize:    appConfig.Chunking.Size,
		ChunkOverlap: appConfig.Chunking.Overlap,
		Prune:        true,
	}

	if err := ingestOnce(ctx, cmd, path, opts); err != nil {
		return err
	}

	cmd.Printf("Watching %s for changes...\n", path)
	watcher := filesystem.NewWatcher(path, watchDebounce)
	err := watcher.Watch(ctx, func() {
		if err := ingestOnce(ctx, cmd, path, opts); err != nil {
			logger.Warn("re-ingest failed: %v", err)
		}
	})
	if errors.Is(err, context.Canceled) {
		cmd.Println("Stopped.")
		return nil
	}
	return err
}

func ingestOnce(ctx context.Context, cmd *cobra.Command, path string, opts domain.IngestOptions) error {
	refs, err := scanPath(ctx, path)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		return nil
	}

	report, err := ingestService.Ingest(ctx, refs, opts)
	if report != nil && (report.ChunksAdded > 0 || len(report.Failures) > 0) {
		printReport(cmd, report)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("ingest failed: %w", err)
	}
	return nil
}
