package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnsupportedKind", ErrUnsupportedKind},
		{"ErrParse", ErrParse},
		{"ErrExtraction", ErrExtraction},
		{"ErrDimensionMismatch", ErrDimensionMismatch},
		{"ErrSynthesisUnavailable", ErrSynthesisUnavailable},
		{"ErrLLMUnavailable", ErrLLMUnavailable},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrStoreUnavailable", ErrStoreUnavailable},
		{"ErrRateLimited", ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"unsupported kind", fmt.Errorf("normalise: %w", ErrUnsupportedKind), KindUnsupportedKind},
		{"parse", fmt.Errorf("csv: %w", ErrParse), KindParseError},
		{"extraction", ErrExtraction, KindExtractionError},
		{"dimension", fmt.Errorf("upsert: %w", ErrDimensionMismatch), KindDimensionMismatch},
		{"synthesis", ErrSynthesisUnavailable, KindSynthesisUnavailable},
		{"invalid input", ErrInvalidInput, KindInvalidInput},
		{"llm", ErrLLMUnavailable, KindUnavailable},
		{"structured", NewError(KindIngestionFailed, "boom"), KindIngestionFailed},
		{"unknown", errors.New("something else"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestAsError(t *testing.T) {
	assert.Nil(t, AsError(nil))

	wrapped := fmt.Errorf("vector query: %w", ErrDimensionMismatch)
	structured := AsError(wrapped)
	require.NotNil(t, structured)
	assert.Equal(t, KindDimensionMismatch, structured.Kind)
	assert.Equal(t, wrapped.Error(), structured.Message)

	original := NewError(KindParseError, "bad csv")
	assert.Same(t, original, AsError(fmt.Errorf("wrap: %w", original)))
}

func TestError_Error(t *testing.T) {
	err := NewError(KindSynthesisUnavailable, "llm returned empty content")
	assert.Equal(t, "synthesis_unavailable: llm returned empty content", err.Error())
}
