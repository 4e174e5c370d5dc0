package markdown

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

// Normaliser handles Markdown sources.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedKinds returns the source kinds this normaliser handles.
func (n *Normaliser) SupportedKinds() []domain.SourceKind {
	return []domain.SourceKind{domain.KindMarkdown}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic kind normaliser, higher than plaintext
}

// Pre-compiled regular expressions for markdown stripping.
var (
	headingLine  = regexp.MustCompile(`^(#{1,6})\s+(.*?)\s*#*\s*$`)
	codeBlock    = regexp.MustCompile("(?s)```[^`]*```")
	inlineCode   = regexp.MustCompile("`([^`]+)`")
	images       = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	links        = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	blockquote   = regexp.MustCompile(`(?m)^>\s*`)
	hr           = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	listMarkers  = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	numberedList = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	emphasis     = regexp.MustCompile(`(\*\*|__|\*|_)([^*_\n]+)(\*\*|__|\*|_)`)
	blankLines   = regexp.MustCompile(`\n\s*\n`)
)

// Normalise splits the markdown into paragraphs labelled with their
// nearest preceding heading.
func (n *Normaliser) Normalise(_ context.Context, src *domain.Source) (*driven.NormaliseResult, error) {
	if src == nil {
		return nil, domain.ErrInvalidInput
	}
	if !utf8.Valid(src.Content) {
		return nil, fmt.Errorf("%w: markdown is not valid UTF-8", domain.ErrParse)
	}

	content := strings.ReplaceAll(string(src.Content), "\r\n", "\n")
	content = codeBlock.ReplaceAllString(content, "")

	var (
		title    string
		section  string
		segments []domain.Segment
		buf      []string
	)

	flush := func() {
		if len(buf) == 0 {
			return
		}
		for _, para := range blankLines.Split(strings.Join(buf, "\n"), -1) {
			if text := stripMarkdown(para); text != "" {
				segments = append(segments, domain.Segment{Text: text, Section: section})
			}
		}
		buf = buf[:0]
	}

	for _, line := range strings.Split(content, "\n") {
		if m := headingLine.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			flush()
			section = stripMarkdown(m[2])
			if title == "" && len(m[1]) == 1 {
				title = section
			}
			continue
		}
		buf = append(buf, line)
	}
	flush()

	if title == "" {
		title = titleFromLocator(src.Locator)
	}

	return &driven.NormaliseResult{
		Title:    title,
		Segments: segments,
	}, nil
}

// stripMarkdown removes common inline markdown formatting.
func stripMarkdown(content string) string {
	content = images.ReplaceAllString(content, "")
	content = links.ReplaceAllString(content, "$1")
	content = inlineCode.ReplaceAllString(content, "$1")
	content = emphasis.ReplaceAllString(content, "$2")
	content = blockquote.ReplaceAllString(content, "")
	content = hr.ReplaceAllString(content, "")
	content = listMarkers.ReplaceAllString(content, "")
	content = numberedList.ReplaceAllString(content, "")
	return strings.TrimSpace(content)
}

func titleFromLocator(locator string) string {
	filename := filepath.Base(locator)
	if ext := filepath.Ext(filename); ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}
