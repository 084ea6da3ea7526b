// Package cli implements the archivo command-line interface. Commands
// are thin: they parse flags, call a core service and format the result.
// Services are injected once at startup via SetServices.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/archivo-labs/archivo-cli/internal/config"
	"github.com/archivo-labs/archivo-cli/internal/core/ports/driving"
	"github.com/archivo-labs/archivo-cli/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Status describes the index state for the status command.
type Status struct {
	ChunkCount    int
	DocumentCount int
	Dimensions    int
	Model         string
	IndexPath     string
	LexicalPath   string
}

// Services carries the wired core services into the command handlers.
type Services struct {
	Ingestor  driving.Ingestor
	Retriever driving.Retriever

	// Status reports index state; nil disables the status command body.
	Status func(ctx context.Context) (*Status, error)

	// Config supplies defaults for flags the user did not set.
	Config config.Config
}

var (
	ingestService   driving.Ingestor
	retrieveService driving.Retriever
	statusService   func(ctx context.Context) (*Status, error)
	appConfig       config.Config
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "archivo",
	Short: "Local document retrieval for generative pipelines",
	Long: `Archivo ingests local documents into a searchable index and answers
questions with ranked, cited context passages. Retrieval combines vector
similarity with lexical scoring, and falls back to lexical-only search
when the embedding backend is unavailable.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetServices injects the core services before Execute.
func SetServices(s Services) {
	ingestService = s.Ingestor
	retrieveService = s.Retriever
	statusService = s.Status
	appConfig = s.Config
}

// SetVersion overrides the reported version string.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
