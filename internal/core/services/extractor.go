package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
	"github.com/custodia-labs/fusionqa/internal/core/ports/driven"
	"github.com/custodia-labs/fusionqa/internal/logger"
)

// Ensure Extractor implements the interfaces.
var (
	_ driven.Extractor        = (*Extractor)(nil)
	_ driven.PromptStoreAware = (*Extractor)(nil)
)

// Default extraction limits.
const (
	DefaultMinChars      = 20
	DefaultMaxInputChars = 8000
)

// Extractor asks the LLM for entities and relations in a chunk and
// sanitises the answer against the type vocabularies.
type Extractor struct {
	llm           *LLMCaller
	prompts       driven.PromptStore
	minChars      int
	maxInputChars int
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithMinChars skips chunks shorter than n characters.
func WithMinChars(n int) ExtractorOption {
	return func(e *Extractor) {
		if n >= 0 {
			e.minChars = n
		}
	}
}

// WithMaxInputChars truncates chunk text sent to the LLM.
func WithMaxInputChars(n int) ExtractorOption {
	return func(e *Extractor) {
		if n > 0 {
			e.maxInputChars = n
		}
	}
}

// NewExtractor creates an extractor that calls llm.
func NewExtractor(llm *LLMCaller, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		llm:           llm,
		minChars:      DefaultMinChars,
		maxInputChars: DefaultMaxInputChars,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (e *Extractor) SetPromptStore(store driven.PromptStore) {
	e.prompts = store
}

// rawExtraction is the JSON shape requested from the LLM.
type rawExtraction struct {
	Entities []struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"entities"`
	Relations []struct {
		Source   string `json:"source"`
		Relation string `json:"relation"`
		Type     string `json:"type"`
		Target   string `json:"target"`
	} `json:"relations"`
}

// Extract returns the entities and relations found in the chunk. Unparseable
// output is retried once with a repair prompt before failing with
// domain.ErrExtraction.
func (e *Extractor) Extract(ctx context.Context, chunk domain.Chunk) (domain.Extraction, error) {
	text := strings.TrimSpace(chunk.Text)
	if utf8.RuneCountInString(text) < e.minChars {
		logger.Debug("Skipping extraction for %s: %d chars below minimum", chunk.ID, utf8.RuneCountInString(text))
		return domain.Extraction{}, nil
	}
	text = truncateRunes(text, e.maxInputChars)

	entityTypes := joinTypes(domain.EntityTypes())
	relationTypes := joinTypes(domain.RelationTypes())
	opts := driven.GenerateOptions{Temperature: 0, JSON: true, MaxTokens: 2048}

	tmpl := loadPrompt(e.prompts, driven.PromptExtraction, defaultExtractionPrompt)
	out, err := e.llm.Generate(ctx, fmt.Sprintf(tmpl, entityTypes, relationTypes, text), opts)
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("%w: %s: %w", domain.ErrExtraction, chunk.ID, err)
	}

	raw, parseErr := parseExtraction(out)
	if parseErr != nil {
		logger.Debug("Extraction output for %s unparseable, repairing: %v", chunk.ID, parseErr)

		tmpl = loadPrompt(e.prompts, driven.PromptExtractionRepair, defaultExtractionRepairPrompt)
		out, err = e.llm.Generate(ctx, fmt.Sprintf(tmpl, entityTypes, relationTypes, text, out), opts)
		if err != nil {
			return domain.Extraction{}, fmt.Errorf("%w: %s: repair: %w", domain.ErrExtraction, chunk.ID, err)
		}
		raw, parseErr = parseExtraction(out)
		if parseErr != nil {
			return domain.Extraction{}, fmt.Errorf("%w: %s: %v", domain.ErrExtraction, chunk.ID, parseErr)
		}
	}

	return sanitiseExtraction(raw, domain.Provenance{SourceID: chunk.SourceID, ChunkID: chunk.ID}), nil
}

// parseExtraction decodes the outermost JSON object in s.
func parseExtraction(s string) (rawExtraction, error) {
	var raw rawExtraction

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end <= start {
		return raw, errors.New("no JSON object in output")
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), &raw); err != nil {
		return raw, fmt.Errorf("decode extraction: %w", err)
	}
	return raw, nil
}

// sanitiseExtraction normalises names, maps unknown types to CONCEPT and
// RELATED_TO, deduplicates by canonical key, and drops relations whose
// endpoints are not among the extracted entities.
func sanitiseExtraction(raw rawExtraction, prov domain.Provenance) domain.Extraction {
	var out domain.Extraction

	entityIndex := make(map[string]int)
	byName := make(map[string]domain.EntityRef)
	for _, re := range raw.Entities {
		name := domain.NormaliseName(re.Name)
		if name == "" {
			continue
		}
		t, ok := domain.ParseEntityType(re.Type)
		if !ok {
			t = domain.EntityConcept
		}
		ent := domain.Entity{Name: name, Type: t}
		if _, dup := entityIndex[ent.Key()]; dup {
			continue
		}
		entityIndex[ent.Key()] = len(out.Entities)
		out.Entities = append(out.Entities, ent)

		folded := strings.ToLower(name)
		if _, seen := byName[folded]; !seen {
			byName[folded] = ent.Ref()
		}
	}

	relationIndex := make(map[string]int)
	for _, rr := range raw.Relations {
		src, okSrc := byName[strings.ToLower(domain.NormaliseName(rr.Source))]
		tgt, okTgt := byName[strings.ToLower(domain.NormaliseName(rr.Target))]
		if !okSrc || !okTgt || src.Key() == tgt.Key() {
			continue
		}
		label := rr.Relation
		if label == "" {
			label = rr.Type
		}
		t, ok := domain.ParseRelationType(label)
		if !ok {
			t = domain.RelationRelatedTo
		}
		rel := domain.Relation{Source: src, Type: t, Target: tgt, Provenance: []domain.Provenance{prov}}
		if _, dup := relationIndex[rel.Key()]; dup {
			continue
		}
		relationIndex[rel.Key()] = len(out.Relations)
		out.Relations = append(out.Relations, rel)
	}

	return out
}

func joinTypes[T ~string](types []T) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}

// truncateRunes cuts s to at most n runes, marking the cut with "...".
func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
