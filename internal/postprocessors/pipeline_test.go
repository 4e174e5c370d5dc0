package postprocessors

import (
	"context"
	"errors"
	"testing"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
)

// mockProcessor is a test processor that returns predefined chunks.
type mockProcessor struct {
	name   string
	chunks []domain.Chunk
	err    error
	calls  int
}

func (m *mockProcessor) Name() string {
	return m.name
}

func (m *mockProcessor) Process(_ context.Context, _ *domain.Source, _ []domain.Segment, chunks []domain.Chunk) ([]domain.Chunk, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.chunks != nil {
		return m.chunks, nil
	}
	return chunks, nil
}

var testSource = &domain.Source{ID: "src", Kind: domain.KindText}

func TestNewPipeline(t *testing.T) {
	p := NewPipeline()
	if p == nil {
		t.Fatal("expected non-nil pipeline")
	}
	if p.Len() != 0 {
		t.Errorf("expected 0 processors, got %d", p.Len())
	}
}

func TestPipeline_Add(t *testing.T) {
	p := NewPipeline()
	p.Add(&mockProcessor{name: "test"})

	if p.Len() != 1 {
		t.Errorf("expected 1 processor, got %d", p.Len())
	}
}

func TestPipeline_Process_NilSource(t *testing.T) {
	p := NewPipeline()

	_, err := p.Process(context.Background(), nil, nil)
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for nil source, got %v", err)
	}
}

func TestPipeline_Process_EmptyPipeline(t *testing.T) {
	p := NewPipeline()

	chunks, err := p.Process(context.Background(), testSource, []domain.Segment{{Text: "x"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if chunks != nil {
		t.Errorf("expected nil chunks from empty pipeline, got %v", chunks)
	}
}

func TestPipeline_Process_ChainsProcessors(t *testing.T) {
	created := []domain.Chunk{{ID: "src#0", Text: "first"}}
	first := &mockProcessor{name: "chunker", chunks: created}
	second := &mockProcessor{name: "passthrough"}

	p := NewPipeline(first, second)

	chunks, err := p.Process(context.Background(), testSource, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 || chunks[0].Text != "first" {
		t.Errorf("expected passthrough of created chunks, got %v", chunks)
	}
	if first.calls != 1 || second.calls != 1 {
		t.Errorf("expected each processor to run once, got %d and %d", first.calls, second.calls)
	}
}

func TestPipeline_Process_ProcessorError(t *testing.T) {
	expectedErr := errors.New("processor failed")
	after := &mockProcessor{name: "after"}

	p := NewPipeline(&mockProcessor{name: "failing", err: expectedErr}, after)

	_, err := p.Process(context.Background(), testSource, nil)
	if !errors.Is(err, expectedErr) {
		t.Errorf("expected wrapped error, got: %v", err)
	}
	if after.calls != 0 {
		t.Error("processors after a failure must not run")
	}
}

func TestDefaultPipeline_EndToEnd(t *testing.T) {
	p, err := DefaultPipeline(domain.ChunkerSettings{Size: 60, Overlap: 0, Unit: domain.ChunkUnitChars})
	if err != nil {
		t.Fatalf("DefaultPipeline failed: %v", err)
	}
	if p.Len() != 2 {
		t.Fatalf("expected chunker and sections, got %d processors", p.Len())
	}

	segments := []domain.Segment{
		{Text: "Competition may reduce margins.", Section: "Item 1A. Risk Factors"},
		{Text: "We design phones and services.", Section: "Item 1. Business"},
	}

	chunks, err := p.Process(context.Background(), testSource, segments)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Section != "risk" || chunks[1].Section != "business" {
		t.Errorf("unexpected sections %q, %q", chunks[0].Section, chunks[1].Section)
	}
}

func TestPipeline_Process_DropsBlankChunksAndRenumbers(t *testing.T) {
	created := []domain.Chunk{
		{ID: "x", Text: "alpha"},
		{ID: "y", Text: "   \n"},
		{ID: "z", Text: "gamma", Section: "risk"},
	}
	p := NewPipeline(&mockProcessor{name: "chunker", chunks: created})

	chunks, err := p.Process(context.Background(), testSource, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Index != i || c.ID != domain.ChunkID("src", i) || c.SourceID != "src" {
			t.Errorf("chunk %d not renumbered: %+v", i, c)
		}
	}
	if chunks[1].Text != "gamma" || chunks[1].Section != "risk" {
		t.Errorf("unexpected second chunk %+v", chunks[1])
	}
}

func TestPipeline_Process_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	proc := &mockProcessor{name: "chunker"}

	_, err := NewPipeline(proc).Process(ctx, testSource, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if proc.calls != 0 {
		t.Error("processor must not run after cancellation")
	}
}
