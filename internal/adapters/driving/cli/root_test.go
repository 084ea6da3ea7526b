package cli

import (
	"context"
	"errors"

	"github.com/archivo-labs/archivo-cli/internal/config"
	"github.com/archivo-labs/archivo-cli/internal/core/domain"
)

// setupTestServices wires mock services and returns a cleanup func that
// restores the previous wiring.
func setupTestServices() func() {
	oldIngest := ingestService
	oldRetrieve := retrieveService
	oldStatus := statusService
	oldConfig := appConfig

	ingestService = &mockIngestor{}
	retrieveService = &mockRetriever{
		results: []domain.RetrievalResult{
			{
				Text:       "Deployments roll out in waves of three.",
				Score:      0.91,
				Source:     "runbook.md",
				DocumentID: "doc-runbook",
				ChunkIndex: 2,
			},
			{
				Text:       "Rollbacks reuse the previous image tag.",
				Score:      0.74,
				Source:     "runbook.md",
				DocumentID: "doc-runbook",
				ChunkIndex: 5,
			},
		},
	}
	statusService = func(context.Context) (*Status, error) {
		return &Status{
			ChunkCount:    42,
			DocumentCount: 7,
			Dimensions:    768,
			Model:         "nomic-embed-text",
			IndexPath:     "/tmp/archivo/index.db",
			LexicalPath:   "/tmp/archivo/lexical.bleve",
		}, nil
	}
	appConfig = config.Default()

	return func() {
		ingestService = oldIngest
		retrieveService = oldRetrieve
		statusService = oldStatus
		appConfig = oldConfig
	}
}

// mockIngestor records the last call and returns a canned report.
type mockIngestor struct {
	lastRefs []domain.DocumentRef
	lastOpts domain.IngestOptions
	err      error
}

func (m *mockIngestor) Ingest(
	_ context.Context, refs []domain.DocumentRef, opts domain.IngestOptions,
) (*domain.IngestReport, error) {
	m.lastRefs = refs
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	return &domain.IngestReport{
		RunID:              "run-1",
		DocumentsProcessed: len(refs),
		ChunksAdded:        len(refs) * 2,
	}, nil
}

// mockRetriever returns canned results.
type mockRetriever struct {
	results  []domain.RetrievalResult
	lastOpts domain.RetrievalOptions
	mode     domain.RetrievalMode
	err      error
}

func (m *mockRetriever) Retrieve(
	_ context.Context, _ string, opts domain.RetrievalOptions,
) ([]domain.RetrievalResult, error) {
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

func (m *mockRetriever) Mode() domain.RetrievalMode {
	if m.mode == "" {
		return domain.ModeOptimized
	}
	return m.mode
}

var errMockService = errors.New("backend exploded")
