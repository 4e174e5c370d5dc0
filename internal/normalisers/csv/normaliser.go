// Package csv provides a Normaliser for comma-separated sources.
// Each data row becomes one segment rendered as "header: value" pairs.
package csv

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
	"github.com/custodia-labs/fusionqa/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles CSV sources.
type Normaliser struct {
	comma rune
}

// Option configures the CSV normaliser.
type Option func(*Normaliser)

// WithComma sets the field delimiter.
func WithComma(r rune) Option {
	return func(n *Normaliser) {
		n.comma = r
	}
}

// New creates a new CSV normaliser.
func New(opts ...Option) *Normaliser {
	n := &Normaliser{comma: ','}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// SupportedKinds returns the source kinds this normaliser handles.
func (n *Normaliser) SupportedKinds() []domain.SourceKind {
	return []domain.SourceKind{domain.KindCSV}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise reads the header row and renders each record as a segment.
// Empty values are omitted.
func (n *Normaliser) Normalise(_ context.Context, src *domain.Source) (*driven.NormaliseResult, error) {
	if src == nil {
		return nil, domain.ErrInvalidInput
	}
	if !utf8.Valid(src.Content) {
		return nil, fmt.Errorf("%w: csv is not valid UTF-8", domain.ErrParse)
	}

	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(src.Content, []byte("\xef\xbb\xbf"))))
	r.Comma = n.comma
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return &driven.NormaliseResult{Title: src.DisplayName()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: csv header: %v", domain.ErrParse, err)
	}

	var segments []domain.Segment
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: csv: %v", domain.ErrParse, err)
		}
		if text := renderRow(header, record); text != "" {
			segments = append(segments, domain.Segment{Text: text})
		}
	}

	return &driven.NormaliseResult{
		Title:    src.DisplayName(),
		Segments: segments,
	}, nil
}

// renderRow joins non-empty "header: value" pairs with " | ".
// Extra fields without a header are keyed by position.
func renderRow(header, record []string) string {
	parts := make([]string, 0, len(record))
	for i, v := range record {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		key := fmt.Sprintf("column_%d", i+1)
		if i < len(header) && strings.TrimSpace(header[i]) != "" {
			key = strings.TrimSpace(header[i])
		}
		parts = append(parts, key+": "+v)
	}
	return strings.Join(parts, " | ")
}
