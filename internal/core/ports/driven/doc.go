// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - Extractor: Converts a raw document file into normalised text
//   - ExtractorRegistry: Selects the appropriate extractor by MIME type
//   - SearchEngine: Lexical (BM25) search. Always required; it is the
//     retrieval backend of last resort.
//
// # Optional Interfaces
//
// These can fail to initialise - retrieval degrades gracefully:
//
//   - EmbeddingService: Generates vector embeddings.
//   - VectorIndex: Persistent vector storage and similarity search. Only
//     usable when EmbeddingService is healthy and dimensions agree.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or extractor package
package driven
