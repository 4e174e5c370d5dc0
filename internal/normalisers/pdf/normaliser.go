// Package pdf provides a Normaliser for PDF sources.
// pdfcpu checks document structure; page text is decoded with
// ledongthuc/pdf, which maps glyphs through font encodings and ToUnicode
// CMaps.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	lpdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
	"github.com/custodia-labs/fusionqa/internal/core/ports/driven"
	"github.com/custodia-labs/fusionqa/internal/logger"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// maxTitleLen bounds the first-line title heuristic.
const maxTitleLen = 200

// Normaliser handles PDF sources.
type Normaliser struct {
	conf *model.Configuration
}

// New creates a new PDF normaliser with relaxed validation.
func New() *Normaliser {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Normaliser{conf: conf}
}

// SupportedKinds returns the source kinds this normaliser handles.
func (n *Normaliser) SupportedKinds() []domain.SourceKind {
	return []domain.SourceKind{domain.KindPDF}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts text page by page. Each page with text becomes one
// segment. A document without any extractable text is a parse error.
func (n *Normaliser) Normalise(_ context.Context, src *domain.Source) (*driven.NormaliseResult, error) {
	if src == nil {
		return nil, domain.ErrInvalidInput
	}
	if !bytes.HasPrefix(bytes.TrimSpace(src.Content), []byte("%PDF")) {
		return nil, fmt.Errorf("%w: missing PDF header", domain.ErrParse)
	}

	pdfCtx, err := api.ReadContext(bytes.NewReader(src.Content), n.conf)
	if err != nil {
		return nil, fmt.Errorf("%w: read pdf: %v", domain.ErrParse, err)
	}

	reader, err := openTextLayer(src.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: open pdf text layer: %v", domain.ErrParse, err)
	}

	var segments []domain.Segment
	for page := 1; page <= reader.NumPage(); page++ {
		text, err := pageText(reader, page)
		if err != nil {
			logger.Debug("pdf %s: page %d text: %v", src.DisplayName(), page, err)
			continue
		}
		if text != "" {
			segments = append(segments, domain.Segment{Text: text})
		}
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: no extractable text in %d pages", domain.ErrParse, pdfCtx.PageCount)
	}

	return &driven.NormaliseResult{
		Title:    extractTitle(segments[0].Text, src.Locator),
		Segments: segments,
	}, nil
}

func openTextLayer(content []byte) (r *lpdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%v", rec)
		}
	}()
	return lpdf.NewReader(bytes.NewReader(content), int64(len(content)))
}

// pageText decodes one page. The decoder panics on some malformed
// content streams; that page is reported as an error instead.
func pageText(r *lpdf.Reader, num int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("decode page: %v", rec)
		}
	}()

	p := r.Page(num)
	if p.V.IsNull() {
		return "", nil
	}
	raw, err := p.GetPlainText(nil)
	if err != nil {
		return "", err
	}
	return cleanText(raw), nil
}

// cleanText drops NUL and control runes left by unmapped glyphs and trims
// trailing space on every line.
func cleanText(raw string) string {
	raw = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r < 0x20 || r == 0x7f || r == '\uFFFD':
			return -1
		}
		return r
	}, raw)

	lines := strings.Split(raw, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimRight(line, " \t"); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// extractTitle uses the first short non-empty line, falling back to the filename.
func extractTitle(content, locator string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.Trim(line, "\x00"))
		if line != "" && len(line) <= maxTitleLen {
			return line
		}
	}

	filename := filepath.Base(locator)
	if ext := filepath.Ext(filename); ext != "" {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}
