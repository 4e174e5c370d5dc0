// Package normalisers provides the Normalizer: it selects a per-kind
// Normaliser for a source, decodes it into text segments, and runs the
// post-processing pipeline to produce bounded chunks.
//
// Per-kind normalisers live in subpackages and are registered at startup
// with RegisterDefaults.
package normalisers
