package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/archivo-labs/archivo-cli/internal/adapters/driven/source/filesystem"
	"github.com/archivo-labs/archivo-cli/internal/core/domain"
)

var (
	ingestForce        bool
	ingestChunkSize    int
	ingestChunkOverlap int
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Ingest documents into the index",
	Long: `Scans a file or directory, extracts text from supported formats
(plain text, Markdown, PDF, DOCX), chunks it and stores embeddings in the
local index. Unchanged chunks are skipped, so re-running over the same
tree is cheap.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVarP(&ingestForce, "force", "f", false, "re-embed documents even if unchanged")
	ingestCmd.Flags().IntVar(&ingestChunkSize, "chunk-size", 0, "chunk window in characters (default from config)")
	ingestCmd.Flags().IntVar(&ingestChunkOverlap, "chunk-overlap", -1, "overlap between chunks in characters (default from config)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	opts := domain.IngestOptions{
		Force:        ingestForce,
		ChunkSize:    appConfig.Chunking.Size,
		ChunkOverlap: appConfig.Chunking.Overlap,
	}
	if ingestChunkSize > 0 {
		opts.ChunkSize = ingestChunkSize
	}
	if ingestChunkOverlap >= 0 {
		opts.ChunkOverlap = ingestChunkOverlap
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// A directory scan covers the whole source, so documents gone from
	// disk can be purged. A single file says nothing about the rest.
	if info, err := os.Stat(args[0]); err == nil && info.IsDir() {
		opts.Prune = true
	}

	refs, err := scanPath(ctx, args[0])
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		cmd.Println("No supported documents found.")
		return nil
	}
	cmd.Printf("Ingesting %d document(s)...\n", len(refs))

	report, err := ingestService.Ingest(ctx, refs, opts)
	if report != nil {
		printReport(cmd, report)
	}
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	return nil
}

func scanPath(ctx context.Context, path string) ([]domain.DocumentRef, error) {
	scanner, err := filesystem.NewScanner(path)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	refs, err := scanner.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return refs, nil
}

func printReport(cmd *cobra.Command, report *domain.IngestReport) {
	cmd.Printf("Processed %d document(s): %d chunk(s) added, %d unchanged.\n",
		report.DocumentsProcessed, report.ChunksAdded, report.ChunksSkipped)

	if report.DocumentsPurged > 0 {
		cmd.Printf("Purged %d document(s) no longer present at the source.\n", report.DocumentsPurged)
	}

	if len(report.Failures) > 0 {
		cmd.Printf("%d document(s) failed:\n", len(report.Failures))
		for _, f := range report.Failures {
			cmd.Printf("  %s: %s\n", f.Source, f.Reason)
		}
	}
}
