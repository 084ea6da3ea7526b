// Package extractors provides implementations of the Extractor interface
// for various document formats. Each extractor knows how to pull plain
// text out of a specific MIME type and normalise it for chunking.
//
// Extractors are registered with the Registry at startup.
package extractors
