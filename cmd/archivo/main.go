// Command archivo is the entry point for the document retrieval CLI. It
// loads configuration, wires the adapters to the core services and hands
// control to the command tree.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/archivo-labs/archivo-cli/internal/adapters/driven/embedding/ollama"
	"github.com/archivo-labs/archivo-cli/internal/adapters/driven/embedding/openai"
	"github.com/archivo-labs/archivo-cli/internal/adapters/driven/index/sqlite"
	"github.com/archivo-labs/archivo-cli/internal/adapters/driven/search/bleve"
	"github.com/archivo-labs/archivo-cli/internal/adapters/driving/cli"
	"github.com/archivo-labs/archivo-cli/internal/config"
	"github.com/archivo-labs/archivo-cli/internal/core/domain"
	"github.com/archivo-labs/archivo-cli/internal/core/ports/driven"
	"github.com/archivo-labs/archivo-cli/internal/core/ports/driving"
	"github.com/archivo-labs/archivo-cli/internal/core/services"
	"github.com/archivo-labs/archivo-cli/internal/extractors"
	"github.com/archivo-labs/archivo-cli/internal/extractors/docx"
	"github.com/archivo-labs/archivo-cli/internal/extractors/pdf"
	"github.com/archivo-labs/archivo-cli/internal/extractors/plaintext"
	"github.com/archivo-labs/archivo-cli/internal/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadDefault()
	if err != nil {
		return err
	}

	registry := extractors.NewRegistry()
	registry.Register(plaintext.New())
	registry.Register(docx.New())
	registry.Register(pdf.New(nil))

	embedder := buildEmbedder(cfg)
	index, search := openStores(cfg, embedder)
	defer closeStores(index, search)

	mode := services.ProbeBackend(context.Background(), embedder, asVectorIndex(index))

	var searchEngine driven.SearchEngine
	if search != nil {
		searchEngine = search
	}
	if mode == domain.ModeDegraded && searchEngine == nil {
		return errors.New("no retrieval backend available: embedding service and lexical index both unavailable")
	}

	// Ingestion is only wired when the full backend is up; the CLI
	// reports it as not configured otherwise.
	var ingestor driving.Ingestor
	if embedder != nil && index != nil {
		ingestor = services.NewIngestService(
			registry, embedder, asVectorIndex(index), searchEngine, cfg.Embedding.BatchSize)
	}
	retriever := services.NewRetrieveService(
		embedder, asVectorIndex(index), searchEngine, mode,
		domain.RetrievalOptions{
			TopK:                 cfg.Retrieval.TopK,
			MaxChunksPerDocument: cfg.Retrieval.MaxChunksPerDocument,
			OversampleFactor:     cfg.Retrieval.OversampleFactor,
			LexicalWeight:        cfg.Retrieval.LexicalWeight,
		})

	cli.SetServices(cli.Services{
		Ingestor:  ingestor,
		Retriever: retriever,
		Status:    statusFunc(cfg, index, search),
		Config:    cfg,
	})
	return cli.Execute()
}

// buildEmbedder constructs the configured embedding provider. A broken
// embedding configuration is not fatal; retrieval degrades to lexical.
func buildEmbedder(cfg config.Config) driven.EmbeddingService {
	switch cfg.Embedding.Provider {
	case config.ProviderOpenAI:
		svc, err := openai.NewEmbeddingService(openai.Config{
			APIKey:            cfg.ResolveAPIKey(),
			BaseURL:           cfg.Embedding.BaseURL,
			Model:             cfg.Embedding.Model,
			Dimensions:        cfg.Embedding.Dimensions,
			MaxBatchSize:      cfg.Embedding.BatchSize,
			RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
		})
		if err != nil {
			logger.Warn("openai embedding unavailable: %v", err)
			return nil
		}
		return svc
	default:
		return ollama.NewEmbeddingService(ollama.Config{
			BaseURL:           cfg.Embedding.BaseURL,
			Model:             cfg.Embedding.Model,
			Dimensions:        cfg.Embedding.Dimensions,
			RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
		})
	}
}

// openStores opens the vector index and the lexical engine. A corrupted
// or mismatched vector index is not fatal; a nil index triggers the
// degraded retrieval mode downstream.
func openStores(cfg config.Config, embedder driven.EmbeddingService) (*sqlite.Index, *bleve.Engine) {
	var index *sqlite.Index

	indexPath, err := cfg.IndexPath()
	if err != nil {
		logger.Warn("resolving index path: %v", err)
	} else {
		model := cfg.Embedding.Model
		if embedder != nil {
			model = embedder.ModelName()
		}
		index, err = sqlite.Open(sqlite.Config{Path: indexPath, Model: model})
		if err != nil {
			logger.Warn("vector index unavailable: %v", err)
			index = nil
		}
	}

	var search *bleve.Engine
	lexicalPath, err := cfg.LexicalPath()
	if err != nil {
		logger.Warn("resolving lexical index path: %v", err)
	} else {
		search, err = bleve.Open(lexicalPath)
		if err != nil {
			logger.Warn("lexical index unavailable: %v", err)
			search = nil
		}
	}

	return index, search
}

func closeStores(index *sqlite.Index, search *bleve.Engine) {
	if index != nil {
		if err := index.Close(); err != nil {
			logger.Warn("closing vector index: %v", err)
		}
	}
	if search != nil {
		if err := search.Close(); err != nil {
			logger.Warn("closing lexical index: %v", err)
		}
	}
}

func statusFunc(cfg config.Config, index *sqlite.Index, search *bleve.Engine) func(context.Context) (*cli.Status, error) {
	return func(ctx context.Context) (*cli.Status, error) {
		status := &cli.Status{}
		status.IndexPath, _ = cfg.IndexPath()
		status.LexicalPath, _ = cfg.LexicalPath()

		if index != nil {
			count, err := index.Count(ctx)
			if err != nil {
				return nil, err
			}
			docs, err := index.CountDocuments(ctx)
			if err != nil {
				return nil, err
			}
			status.ChunkCount = count
			status.DocumentCount = docs
			status.Dimensions = index.Dimensions()
			status.Model = index.Model()
			return status, nil
		}

		if search != nil {
			count, err := search.Count()
			if err != nil {
				return nil, err
			}
			status.ChunkCount = int(count)
		}
		return status, nil
	}
}

// asVectorIndex converts a possibly-nil *sqlite.Index without producing
// a non-nil interface wrapping a nil pointer.
func asVectorIndex(i *sqlite.Index) driven.VectorIndex {
	if i == nil {
		return nil
	}
	return i
}
