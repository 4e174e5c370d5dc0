package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
	"github.com/custodia-labs/fusionqa/internal/core/ports/driven"
	"github.com/custodia-labs/fusionqa/internal/core/ports/driving"
	"github.com/custodia-labs/fusionqa/internal/logger"
)

// Ensure QAService implements the interfaces.
var (
	_ driving.QAService       = (*QAService)(nil)
	_ driven.PromptStoreAware = (*QAService)(nil)
)

// Context assembly limits.
const (
	maxCitationChars = 1500
	maxContextChars  = 6000
	maxKeywords      = 5

	// DefaultSeedsPerKeyword bounds FindEntities matches per question keyword.
	DefaultSeedsPerKeyword = 3
)

// stopwords are dropped when extracting question keywords.
var stopwords = map[string]struct{}{
	"what": {}, "who": {}, "where": {}, "when": {}, "why": {}, "how": {}, "is": {}, "are": {}, "was": {},
	"were": {}, "the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {}, "on": {}, "at": {},
	"to": {}, "for": {}, "of": {}, "with": {}, "by": {}, "about": {}, "tell": {}, "me": {}, "show": {},
	"give": {}, "explain": {}, "describe": {}, "does": {}, "did": {}, "which": {}, "their": {}, "its": {},
	"quel": {}, "quelle": {}, "quels": {}, "quelles": {}, "est": {}, "sont": {}, "le": {}, "la": {},
	"les": {}, "un": {}, "une": {}, "des": {}, "du": {}, "de": {}, "et": {}, "ou": {}, "mais": {}, "dans": {},
	"sur": {}, "pour": {}, "avec": {}, "par": {},
}

// QAService answers questions by fusing vector similarity, graph traversal
// and LLM synthesis into one cited answer.
type QAService struct {
	embedder driven.EmbeddingService
	vectors  driven.VectorStore
	graph    driven.GraphStore
	llm      *LLMCaller
	prompts  driven.PromptStore

	pathQuery       domain.PathQuery
	seedsPerKeyword int
}

// QAOption configures a QAService.
type QAOption func(*QAService)

// WithPathQuery sets the traversal limits.
func WithPathQuery(q domain.PathQuery) QAOption {
	return func(s *QAService) {
		s.pathQuery = q.WithDefaults()
	}
}

// WithSeedsPerKeyword bounds keyword seed matches.
func WithSeedsPerKeyword(n int) QAOption {
	return func(s *QAService) {
		if n > 0 {
			s.seedsPerKeyword = n
		}
	}
}

// NewQAService creates a new fusion QA engine. The graph store is optional.
func NewQAService(
	embedder driven.EmbeddingService,
	vectors driven.VectorStore,
	graph driven.GraphStore,
	llm *LLMCaller,
	opts ...QAOption,
) *QAService {
	s := &QAService{
		embedder:        embedder,
		vectors:         vectors,
		graph:           graph,
		llm:             llm,
		pathQuery:       domain.PathQuery{}.WithDefaults(),
		seedsPerKeyword: DefaultSeedsPerKeyword,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetPromptStore sets the prompt store for loading customisable prompts.
func (s *QAService) SetPromptStore(store driven.PromptStore) {
	s.prompts = store
}

// Answer retrieves evidence for the question and synthesises an answer.
// Synthesis failure is not an error: the ranked evidence is returned with
// Degraded set.
func (s *QAService) Answer(ctx context.Context, q domain.Question) (*domain.Answer, error) {
	logger.Section("Question Answering")

	question := strings.TrimSpace(q.Text)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}
	if s.embedder == nil || s.vectors == nil {
		return nil, fmt.Errorf("%w: vector retrieval is not configured", domain.ErrInvalidInput)
	}
	k := q.NResults
	if k <= 0 {
		k = domain.DefaultNResults
	}
	logger.Debug("Question: %q (k=%d, graph=%v)", question, k, q.IncludeGraph)

	// 1. VECTOR RETRIEVAL
	vec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	hits, err := s.vectors.Query(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	citations := citationsFromHits(hits)
	logger.Debug("Vector retrieval: %d hits", len(citations))

	// 2. GRAPH RETRIEVAL
	var (
		paths []domain.GraphPath
		seeds []domain.EntityRef
	)
	if q.IncludeGraph && s.graph != nil {
		seeds, paths, err = s.graphEvidence(ctx, question, hits)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("Graph retrieval failed, continuing with vector evidence: %v", err)
			seeds, paths = nil, nil
		}
		logger.Debug("Graph retrieval: %d seeds, %d paths", len(seeds), len(paths))
	}

	// 3. RANK
	rankCitations(citations)
	rankPaths(paths)

	answer := &domain.Answer{
		Question:   question,
		Citations:  citations,
		GraphPaths: paths,
		Sources: domain.AnswerSources{
			VectorResults: len(citations),
			GraphEntities: len(seeds),
		},
	}

	if len(citations) == 0 && len(paths) == 0 {
		answer.Text = domain.NoInformationAnswer
		return answer, nil
	}

	// 4. SYNTHESISE
	evidence := buildContext(citations, paths)
	tmpl := loadPrompt(s.prompts, driven.PromptSynthesis, defaultSynthesisPrompt)
	text, err := s.llm.Generate(ctx, fmt.Sprintf(tmpl, evidence, question), driven.GenerateOptions{Temperature: 0.1})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		logger.Warn("Synthesis unavailable, returning evidence only: %v", err)
		answer.Degraded = true
		answer.Error = domain.AsError(fmt.Errorf("%w: %v", domain.ErrSynthesisUnavailable, err))
		return answer, nil
	}

	answer.Text = strings.TrimSpace(text)
	return answer, nil
}

// graphEvidence collects seed entities from the vector hits' chunks and the
// question keywords, then traverses from them.
func (s *QAService) graphEvidence(ctx context.Context, question string, hits []domain.VectorHit) ([]domain.EntityRef, []domain.GraphPath, error) {
	chunkIDs := make([]string, 0, len(hits))
	for _, h := range hits {
		chunkIDs = append(chunkIDs, h.ChunkID)
	}

	var seeds []domain.EntityRef
	seen := make(map[string]struct{})
	addSeed := func(ref domain.EntityRef) {
		if _, ok := seen[ref.Key()]; ok {
			return
		}
		seen[ref.Key()] = struct{}{}
		seeds = append(seeds, ref)
	}

	if len(chunkIDs) > 0 {
		refs, err := s.graph.EntitiesForChunks(ctx, chunkIDs)
		if err != nil {
			return nil, nil, fmt.Errorf("entities for chunks: %w", err)
		}
		for _, ref := range refs {
			addSeed(ref)
		}
	}

	if keywords := extractKeywords(question); len(keywords) > 0 {
		found, err := s.graph.FindEntities(ctx, keywords, s.seedsPerKeyword)
		if err != nil {
			return nil, nil, fmt.Errorf("find entities: %w", err)
		}
		for _, e := range found {
			addSeed(e.Ref())
		}
	}

	if len(seeds) == 0 {
		return nil, nil, nil
	}

	paths, err := s.graph.QueryPaths(ctx, seeds, s.pathQuery)
	if err != nil {
		return nil, nil, fmt.Errorf("query paths: %w", err)
	}
	return seeds, paths, nil
}

// extractKeywords lower-cases the question, strips punctuation, and keeps
// up to five distinct non-stopwords longer than two characters.
func extractKeywords(question string) []string {
	fields := strings.FieldsFunc(strings.ToLower(question), func(r rune) bool {
		return !(r == '-' || r == '.' || r == '&' || r == '\'' || isWordRune(r))
	})

	var keywords []string
	seen := make(map[string]struct{})
	for _, w := range fields {
		w = strings.Trim(w, ".-'&")
		if len([]rune(w)) <= 2 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		keywords = append(keywords, w)
		if len(keywords) == maxKeywords {
			break
		}
	}
	return keywords
}

func isWordRune(r rune) bool {
	return r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127
}

func citationsFromHits(hits []domain.VectorHit) []domain.Citation {
	citations := make([]domain.Citation, 0, len(hits))
	for i, h := range hits {
		citations = append(citations, domain.Citation{
			SourceID:   h.Metadata.SourceID,
			Locator:    h.Metadata.Locator,
			Section:    h.Metadata.Section,
			ChunkID:    h.ChunkID,
			Text:       h.Metadata.Text,
			Relevance:  clamp01(h.Similarity),
			VectorRank: i,
		})
	}
	return citations
}

// rankCitations orders by relevance descending, then vector rank.
func rankCitations(c []domain.Citation) {
	sort.SliceStable(c, func(i, j int) bool {
		if c[i].Relevance != c[j].Relevance {
			return c[i].Relevance > c[j].Relevance
		}
		return c[i].VectorRank < c[j].VectorRank
	})
}

// rankPaths orders by relevance descending, then hops ascending; ties keep
// traversal order.
func rankPaths(p []domain.GraphPath) {
	sort.SliceStable(p, func(i, j int) bool {
		if p[i].Relevance != p[j].Relevance {
			return p[i].Relevance > p[j].Relevance
		}
		return p[i].Hops < p[j].Hops
	})
}

// buildContext renders the evidence bundle for the synthesis prompt.
func buildContext(citations []domain.Citation, paths []domain.GraphPath) string {
	var b strings.Builder

	if len(citations) > 0 {
		b.WriteString("=== DOCUMENT CONTEXT ===\n")
		for i, c := range citations {
			label := c.Locator
			if label == "" {
				label = c.SourceID
			}
			if c.Section != "" {
				label += " (" + c.Section + ")"
			}
			fmt.Fprintf(&b, "\n[Source %d: %s]\n%s\n", i+1, label, truncateRunes(c.Text, maxCitationChars))
		}
	}

	if len(paths) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString("=== KNOWLEDGE GRAPH ===\n")
		for _, p := range paths {
			fmt.Fprintf(&b, "%s (%s) -[%s]-> %s (%s)\n", p.Source, p.SourceType, p.Relation, p.Target, p.TargetType)
		}
	}

	return truncateRunes(b.String(), maxContextChars)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
