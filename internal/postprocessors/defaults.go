package postprocessors

import (
	"github.com/custodia-labs/fusionqa/internal/core/domain"
	"github.com/custodia-labs/fusionqa/internal/core/ports/driven"
	"github.com/custodia-labs/fusionqa/internal/logger"
	"github.com/custodia-labs/fusionqa/internal/postprocessors/chunker"
	"github.com/custodia-labs/fusionqa/internal/postprocessors/sections"
)

// RegisterDefaults registers all built-in processors with the registry.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("sections", buildSections)
}

// DefaultPipeline builds the standard chunker + section labeller pipeline.
func DefaultPipeline(settings domain.ChunkerSettings) (*Pipeline, error) {
	r := NewRegistry()
	RegisterDefaults(r)
	return r.BuildPipeline(domain.PipelineConfigFrom(settings))
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): Units per chunk (default: 1000)
//   - overlap (int): Overlapping units between chunks (default: 200)
//   - unit (string): "chars" or "tokens" (default: chars)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if cfg != nil {
		if size := getIntFromConfig(cfg, "chunk_size"); size > 0 {
			opts = append(opts, chunker.WithChunkSize(size))
		}
		if _, ok := cfg["overlap"]; ok {
			opts = append(opts, chunker.WithOverlap(getIntFromConfig(cfg, "overlap")))
		}
		if unit, _ := cfg["unit"].(string); unit == string(domain.ChunkUnitTokens) {
			measurer, err := chunker.NewTokenMeasurer(chunker.DefaultEncoding)
			if err != nil {
				logger.Warn("token measurement unavailable, falling back to characters: %v", err)
			} else {
				opts = append(opts, chunker.WithMeasurer(measurer))
			}
		}
	}

	return chunker.New(opts...), nil
}

func buildSections(_ map[string]any) (driven.PostProcessor, error) {
	return sections.New(), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
