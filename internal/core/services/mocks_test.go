package services

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
	"github.com/custodia-labs/fusionqa/internal/core/ports/driven"
)

// mockLLMService answers prompts through a scripted function.
type mockLLMService struct {
	respond func(ctx context.Context, prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
	calls   atomic.Int32
}

func (m *mockLLMService) Generate(ctx context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.respond == nil {
		return "", errors.New("no response scripted")
	}
	return m.respond(ctx, prompt)
}

func (m *mockLLMService) ModelName() string            { return "mock-llm" }
func (m *mockLLMService) Ping(_ context.Context) error { return nil }
func (m *mockLLMService) Close() error                 { return nil }

// mockEmbeddingService hashes words into a fixed-size bag-of-words vector,
// so texts sharing words are similar.
type mockEmbeddingService struct {
	dims   int
	failOn string
	calls  atomic.Int32
}

func newMockEmbedder() *mockEmbeddingService {
	return &mockEmbeddingService{dims: 64}
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	m.calls.Add(1)
	if m.failOn != "" && strings.Contains(text, m.failOn) {
		return nil, errors.New("embedding backend refused input")
	}
	vec := make([]float32, m.dims)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%uint32(m.dims)]++
	}
	return vec, nil
}

func (m *mockEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int              { return m.dims }
func (m *mockEmbeddingService) ModelName() string            { return "mock-embed" }
func (m *mockEmbeddingService) Ping(_ context.Context) error { return nil }
func (m *mockEmbeddingService) Close() error                 { return nil }

// mockNormalizer returns canned chunks per source ID.
type mockNormalizer struct {
	chunks map[string][]string
	errs   map[string]error
}

func (m *mockNormalizer) Normalize(_ context.Context, src *domain.Source) ([]domain.Chunk, error) {
	if err, ok := m.errs[src.ID]; ok {
		return nil, err
	}
	var out []domain.Chunk
	for i, text := range m.chunks[src.ID] {
		out = append(out, domain.Chunk{ID: domain.ChunkID(src.ID, i), SourceID: src.ID, Index: i, Text: text})
	}
	return out, nil
}

func (m *mockNormalizer) Register(_ driven.Normaliser)        {}
func (m *mockNormalizer) SupportedKinds() []domain.SourceKind { return domain.AllSourceKinds() }

// mockExtractor returns a fixed extraction for chunks containing a phrase.
type mockExtractor struct {
	byPhrase map[string]domain.Extraction
	failOn   string
}

func (m *mockExtractor) Extract(_ context.Context, c domain.Chunk) (domain.Extraction, error) {
	if m.failOn != "" && strings.Contains(c.Text, m.failOn) {
		return domain.Extraction{}, domain.ErrExtraction
	}
	for phrase, ex := range m.byPhrase {
		if strings.Contains(c.Text, phrase) {
			rels := make([]domain.Relation, len(ex.Relations))
			copy(rels, ex.Relations)
			for i := range rels {
				rels[i].Provenance = []domain.Provenance{{SourceID: c.SourceID, ChunkID: c.ID}}
			}
			return domain.Extraction{Entities: ex.Entities, Relations: rels}, nil
		}
	}
	return domain.Extraction{}, nil
}

// mockPromptStore serves templates from a map.
type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if p, ok := m.prompts[name]; ok {
		return p, nil
	}
	return "", errors.New("not found")
}

func (m *mockPromptStore) Reload() {}

// mockConfigStore is a map-backed ConfigStore. Values are kept as given.
type mockConfigStore struct {
	mu      sync.Mutex
	values  map[string]any
	failSet bool
}

func newMockConfigStore(values map[string]any) *mockConfigStore {
	if values == nil {
		values = make(map[string]any)
	}
	return &mockConfigStore{values: values}
}

func (m *mockConfigStore) Get(key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *mockConfigStore) GetString(key string) string {
	v, _ := m.Get(key)
	s, _ := v.(string)
	return s
}

func (m *mockConfigStore) GetInt(key string) int {
	v, _ := m.Get(key)
	n, _ := v.(int)
	return n
}

func (m *mockConfigStore) GetFloat(key string) float64 {
	v, _ := m.Get(key)
	switch f := v.(type) {
	case float64:
		return f
	case int:
		return float64(f)
	}
	return 0
}

func (m *mockConfigStore) GetBool(key string) bool {
	v, _ := m.Get(key)
	b, _ := v.(bool)
	return b
}

func (m *mockConfigStore) GetDuration(key string) time.Duration {
	d, _ := time.ParseDuration(m.GetString(key))
	return d
}

func (m *mockConfigStore) GetStringSlice(key string) []string {
	v, _ := m.Get(key)
	s, _ := v.([]string)
	return s
}

func (m *mockConfigStore) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	return keys
}

func (m *mockConfigStore) Set(key string, value any) error {
	if m.failSet {
		return errors.New("disk full")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *mockConfigStore) Save() error  { return nil }
func (m *mockConfigStore) Load() error  { return nil }
func (m *mockConfigStore) Path() string { return "mock://config.toml" }
