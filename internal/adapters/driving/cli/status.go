package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index contents and retrieval mode",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if statusService == nil {
		return errors.New("status service not configured")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	status, err := statusService(ctx)
	if err != nil {
		return fmt.Errorf("reading index status: %w", err)
	}

	cmd.Printf("Documents:  %d\n", status.DocumentCount)
	cmd.Printf("Chunks:     %d\n", status.ChunkCount)
	if status.Model != "" {
		cmd.Printf("Model:      %s (%d dimensions)\n", status.Model, status.Dimensions)
	}
	if retrieveService != nil {
		cmd.Printf("Mode:       %s\n", retrieveService.Mode().Description())
	}
	cmd.Printf("Index:      %s\n", status.IndexPath)
	cmd.Printf("Lexical:    %s\n", status.LexicalPath)
	return nil
}
