package plaintext

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
	"github.com/custodia-labs/fusionqa/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// blankLines separates paragraphs.
var blankLines = regexp.MustCompile(`\n\s*\n`)

// Normaliser handles plain text sources.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedKinds returns the source kinds this normaliser handles.
func (n *Normaliser) SupportedKinds() []domain.SourceKind {
	return []domain.SourceKind{domain.KindText}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 5 // Fallback normaliser
}

// Normalise splits the text into paragraphs.
// Chunking is handled by the PostProcessor pipeline.
func (n *Normaliser) Normalise(_ context.Context, src *domain.Source) (*driven.NormaliseResult, error) {
	if src == nil {
		return nil, domain.ErrInvalidInput
	}
	if !utf8.Valid(src.Content) {
		return nil, fmt.Errorf("%w: text is not valid UTF-8", domain.ErrParse)
	}

	content := strings.ReplaceAll(string(src.Content), "\r\n", "\n")

	var segments []domain.Segment
	for _, para := range blankLines.Split(content, -1) {
		if para = strings.TrimSpace(para); para != "" {
			segments = append(segments, domain.Segment{Text: para})
		}
	}

	return &driven.NormaliseResult{
		Title:    extractTitle(src.Locator),
		Segments: segments,
	}, nil
}

// extractTitle extracts a human-readable title from a locator.
func extractTitle(locator string) string {
	filename := filepath.Base(locator)

	// Remove common extensions for cleaner title
	if ext := filepath.Ext(filename); ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}

	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")

	return filename
}
