// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Normaliser: Decodes one source kind into text segments
//   - Normalizer: Turns a source into bounded chunks (normaliser + pipeline)
//   - GraphStore: Entity/relation persistence and bounded traversal
//   - VectorStore: Chunk embedding persistence and nearest-neighbour query
//   - EmbeddingService: Text to fixed-length vectors
//   - LLMService: Prompt completion for extraction and synthesis
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
//   - PromptStore: Overridable prompt templates. Defaults are used when nil.
//   - EntityResolver: Folds near-duplicate names. Exact canonical keys when nil.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
