package services

import (
	"context"

	"github.com/archivo-labs/archivo-cli/internal/core/domain"
	"github.com/archivo-labs/archivo-cli/internal/core/ports/driven"
	"github.com/archivo-labs/archivo-cli/internal/logger"
)

// ProbeBackend decides the retrieval mode for this process. It runs once
// at startup: the embedding service must answer a ping and the vector
// index must be open, otherwise retrieval falls back to lexical-only
// scoring for the lifetime of the process. There is no mid-session
// recovery; restarting is the way back to optimized mode.
func ProbeBackend(ctx context.Context, embedder driven.EmbeddingService, index driven.VectorIndex) domain.RetrievalMode {
	if embedder == nil {
		logger.Warn("no embedding service configured, falling back to lexical retrieval")
		return domain.ModeDegraded
	}
	if index == nil {
		logger.Warn("vector index unavailable, falling back to lexical retrieval")
		return domain.ModeDegraded
	}

	if err := embedder.Ping(ctx); err != nil {
		logger.Warn("embedding service unreachable (%v), falling back to lexical retrieval", err)
		return domain.ModeDegraded
	}

	logger.Info("retrieval backend: %s (model %s, %d dimensions)",
		domain.ModeOptimized, embedder.ModelName(), embedder.Dimensions())
	return domain.ModeOptimized
}
