package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/archivo-labs/archivo-cli/internal/core/domain"
)

var (
	queryTopK          int
	queryMaxPerDoc     int
	queryLexicalWeight float64
	queryJSON          bool
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Retrieve context passages for a question",
	Long: `Embeds the question, ranks indexed chunks by similarity blended with
lexical overlap, and prints the top passages with their sources. When the
embedding backend is down, results come from keyword search instead and
are marked as degraded.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "maximum number of passages (default from config)")
	queryCmd.Flags().IntVar(&queryMaxPerDoc, "max-per-document", 0, "cap on passages from one document (default from config)")
	queryCmd.Flags().Float64Var(&queryLexicalWeight, "lexical-weight", -1, "lexical blend weight, 0 to 1 (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	if retrieveService == nil {
		return errors.New("retrieval service not configured")
	}

	opts := domain.RetrievalOptions{
		TopK:                 queryTopK,
		MaxChunksPerDocument: queryMaxPerDoc,
		LexicalWeight:        appConfig.Retrieval.LexicalWeight,
	}
	if queryLexicalWeight >= 0 {
		if queryLexicalWeight > 1 {
			return fmt.Errorf("lexical weight %g out of range [0, 1]", queryLexicalWeight)
		}
		opts.LexicalWeight = queryLexicalWeight
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	results, err := retrieveService.Retrieve(ctx, args[0], opts)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if queryJSON {
		return outputResultsJSON(cmd, results)
	}
	return outputResultsText(cmd, results)
}

func outputResultsJSON(cmd *cobra.Command, results []domain.RetrievalResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputResultsText(cmd *cobra.Command, results []domain.RetrievalResult) error {
	if len(results) == 0 {
		cmd.Println("No passages found.")
		return nil
	}

	if results[0].Degraded {
		cmd.Println("Warning: embedding backend unavailable, serving keyword results (reduced quality).")
		cmd.Println()
	}

	for i, r := range results {
		cmd.Printf("  [%d] %s #%d (%.2f)\n", i+1, r.Source, r.ChunkIndex, r.Score)
		cmd.Printf("      %s\n", r.Text)
		cmd.Println()
	}
	return nil
}
