package chunker

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding is the BPE encoding used for token measurement.
const DefaultEncoding = "cl100k_base"

// TokenMeasurer measures text in BPE tokens.
type TokenMeasurer struct {
	enc *tiktoken.Tiktoken
}

// NewTokenMeasurer loads the named encoding.
func NewTokenMeasurer(encoding string) (*TokenMeasurer, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", encoding, err)
	}
	return &TokenMeasurer{enc: enc}, nil
}

// Measure returns the token count.
func (m *TokenMeasurer) Measure(text string) int {
	return len(m.enc.Encode(text, nil, nil))
}
