// Package domain defines the core business entities for Archivo.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - DocumentRef: A source file handed over by the sync collaborator
//   - Document: A document after text extraction and normalisation
//   - Chunk: A bounded text span produced by the chunker
//   - IndexEntry: The persisted (chunk, vector, metadata) tuple
//   - RetrievalResult: A scored chunk returned at query time
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
