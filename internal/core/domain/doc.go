// Package domain defines the core business entities for FusionQA.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Source: Raw bytes of one ingestible input
//   - Chunk: A bounded span of normalised text within a source
//   - Entity, Relation: The knowledge graph vocabulary
//   - Answer: A fused, cited response to a question
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
