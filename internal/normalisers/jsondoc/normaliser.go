// Package jsondoc provides a Normaliser for JSON sources.
// A top-level array yields one segment per element; a top-level object
// yields one segment per key.
package jsondoc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
	"github.com/custodia-labs/fusionqa/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles JSON sources.
type Normaliser struct{}

// New creates a new JSON normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedKinds returns the source kinds this normaliser handles.
func (n *Normaliser) SupportedKinds() []domain.SourceKind {
	return []domain.SourceKind{domain.KindJSON}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise decodes the document and renders records as indented text.
func (n *Normaliser) Normalise(_ context.Context, src *domain.Source) (*driven.NormaliseResult, error) {
	if src == nil {
		return nil, domain.ErrInvalidInput
	}

	dec := json.NewDecoder(bytes.NewReader(src.Content))
	dec.UseNumber()

	var data any
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("%w: json: %v", domain.ErrParse, err)
	}
	if dec.More() {
		return nil, fmt.Errorf("%w: json: trailing data after top-level value", domain.ErrParse)
	}

	var segments []domain.Segment
	switch v := data.(type) {
	case []any:
		for i, item := range v {
			segments = appendSegment(segments, fmt.Sprintf("[%d]", i), item)
		}
	case map[string]any:
		for _, key := range sortedKeys(v) {
			segments = appendSegment(segments, key, v[key])
		}
	default:
		segments = appendSegment(segments, "", v)
	}

	return &driven.NormaliseResult{
		Title:    src.DisplayName(),
		Segments: segments,
	}, nil
}

func appendSegment(segments []domain.Segment, label string, v any) []domain.Segment {
	var b strings.Builder
	switch v.(type) {
	case map[string]any, []any:
		if label != "" && !strings.HasPrefix(label, "[") {
			b.WriteString(label + ":\n")
			render(&b, v, "  ")
		} else {
			render(&b, v, "")
		}
	default:
		if label != "" && !strings.HasPrefix(label, "[") {
			b.WriteString(label + ": ")
		}
		b.WriteString(scalar(v))
	}

	text := strings.TrimRight(b.String(), "\n")
	if strings.TrimSpace(text) == "" {
		return segments
	}
	return append(segments, domain.Segment{Text: text})
}

// render writes v as "key: value" lines, indenting nested structures.
func render(b *strings.Builder, v any, prefix string) {
	switch t := v.(type) {
	case map[string]any:
		for _, key := range sortedKeys(t) {
			switch child := t[key].(type) {
			case map[string]any, []any:
				fmt.Fprintf(b, "%s%s:\n", prefix, key)
				render(b, child, prefix+"  ")
			default:
				fmt.Fprintf(b, "%s%s: %s\n", prefix, key, scalar(child))
			}
		}
	case []any:
		for i, item := range t {
			switch item.(type) {
			case map[string]any, []any:
				fmt.Fprintf(b, "%s[%d]:\n", prefix, i)
				render(b, item, prefix+"  ")
			default:
				fmt.Fprintf(b, "%s- %s\n", prefix, scalar(item))
			}
		}
	default:
		fmt.Fprintf(b, "%s%s\n", prefix, scalar(t))
	}
}

func scalar(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprint(v)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
