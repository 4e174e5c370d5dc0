// Package chunker packs normalised segments into bounded, overlapping chunks.
package chunker

import (
	"context"
	"strings"
	"unicode"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
)

// DefaultChunkSize is the default chunk bound in measurement units.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default overlap in measurement units.
const DefaultChunkOverlap = 200

// segmentSeparator joins segments in the normalised text that chunk
// offsets refer to.
const segmentSeparator = "\n\n"

// Measurer reports the size of a span of text.
type Measurer interface {
	Measure(text string) int
}

// RuneMeasurer measures text in characters.
type RuneMeasurer struct{}

// Measure returns the rune count.
func (RuneMeasurer) Measure(text string) int {
	return len([]rune(text))
}

// Processor packs segments into chunks bounded by chunkSize, preferring
// segment boundaries, then sentence boundaries, then whitespace.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
	measurer  Measurer
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the maximum chunk size.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap carried between consecutive chunks.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithMeasurer sets how sizes are measured (characters by default).
func WithMeasurer(m Measurer) Option {
	return func(p *Processor) {
		if m != nil {
			p.measurer = m
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		measurer:  RuneMeasurer{},
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// piece is an unbreakable span of the normalised text.
type piece struct {
	start, end int
	section    string
}

// Process packs segments into chunks. Input chunks are ignored.
func (p *Processor) Process(_ context.Context, src *domain.Source, segments []domain.Segment, _ []domain.Chunk) ([]domain.Chunk, error) {
	text, pieces := p.split(segments)
	if len(pieces) == 0 {
		return nil, nil
	}

	var chunks []domain.Chunk
	first, fresh := 0, 0
	for first < len(pieces) {
		last := first
		for last+1 < len(pieces) && p.fits(text, pieces[first].start, pieces[last+1].end) {
			last++
		}

		chunks = append(chunks, domain.Chunk{
			ID:       domain.ChunkID(src.ID, len(chunks)),
			SourceID: src.ID,
			Index:    len(chunks),
			Text:     string(text[pieces[first].start:pieces[last].end]),
			Section:  pieces[fresh].section,
			Start:    pieces[first].start,
			End:      pieces[last].end,
		})

		if last == len(pieces)-1 {
			break
		}
		first = p.overlapStart(text, pieces, first, last)
		fresh = last + 1
	}

	return chunks, nil
}

// overlapStart returns the first piece of the next chunk: the earliest
// trailing piece of the current chunk such that the carried pieces fit in
// the overlap and still leave room for the following piece. The result is
// always past first.
func (p *Processor) overlapStart(text []rune, pieces []piece, first, last int) int {
	next := last + 1
	if p.overlap == 0 {
		return next
	}
	for i := last; i > first; i-- {
		if p.measurer.Measure(string(text[pieces[i].start:pieces[last].end])) > p.overlap {
			break
		}
		if !p.fits(text, pieces[i].start, pieces[last+1].end) {
			break
		}
		next = i
	}
	return next
}

func (p *Processor) fits(text []rune, start, end int) bool {
	return p.measurer.Measure(string(text[start:end])) <= p.chunkSize
}

// split joins segment texts and breaks them into pieces no larger than
// chunkSize, descending from segment to sentence to word to hard cut.
func (p *Processor) split(segments []domain.Segment) ([]rune, []piece) {
	var b strings.Builder
	var pieces []piece
	offset := 0

	for _, seg := range segments {
		segText := strings.TrimSpace(seg.Text)
		if segText == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(segmentSeparator)
			offset += len([]rune(segmentSeparator))
		}
		b.WriteString(segText)

		runes := []rune(segText)
		for _, span := range p.breakSpan(runes, 0, len(runes), levelSentence) {
			pieces = append(pieces, piece{start: offset + span[0], end: offset + span[1], section: seg.Section})
		}
		offset += len(runes)
	}

	return []rune(b.String()), pieces
}

// Split levels, coarsest first.
const (
	levelSentence = iota
	levelWord
	levelHard
)

// breakSpan returns [start,end) if it fits, otherwise splits it at the
// given level and recurses into oversized parts with the next finer level.
func (p *Processor) breakSpan(runes []rune, start, end, level int) [][2]int {
	if p.measurer.Measure(string(runes[start:end])) <= p.chunkSize {
		return [][2]int{{start, end}}
	}

	var parts [][2]int
	switch level {
	case levelSentence:
		parts = sentenceSpans(runes, start, end)
	case levelWord:
		parts = wordSpans(runes, start, end)
	default:
		return p.hardCut(runes, start, end)
	}

	var out [][2]int
	for _, part := range parts {
		out = append(out, p.breakSpan(runes, part[0], part[1], level+1)...)
	}
	return out
}

// hardCut splits a span with no usable boundary into the largest
// prefixes that fit. Measures grow with prefix length, so each cut is
// found by binary search. A prefix is at least one rune.
func (p *Processor) hardCut(runes []rune, start, end int) [][2]int {
	var out [][2]int
	for start < end {
		lo, hi := start+1, end
		for lo < hi {
			mid := lo + (hi-lo+1)/2
			if p.fits(runes, start, mid) {
				lo = mid
			} else {
				hi = mid - 1
			}
		}
		out = append(out, [2]int{start, lo})
		start = lo
	}
	return out
}

// sentenceSpans splits after terminal punctuation followed by whitespace.
func sentenceSpans(runes []rune, start, end int) [][2]int {
	var out [][2]int
	from := start
	for i := start; i < end; i++ {
		if !isSentenceEnd(runes, i, end) {
			continue
		}
		out = appendTrimmed(out, runes, from, i+1)
		from = i + 1
	}
	return appendTrimmed(out, runes, from, end)
}

func isSentenceEnd(runes []rune, i, end int) bool {
	switch runes[i] {
	case '\n':
		return true
	case '.', '!', '?':
		return i+1 == end || unicode.IsSpace(runes[i+1])
	default:
		return false
	}
}

// wordSpans splits on runs of whitespace.
func wordSpans(runes []rune, start, end int) [][2]int {
	var out [][2]int
	from := -1
	for i := start; i < end; i++ {
		if unicode.IsSpace(runes[i]) {
			if from >= 0 {
				out = append(out, [2]int{from, i})
				from = -1
			}
			continue
		}
		if from < 0 {
			from = i
		}
	}
	if from >= 0 {
		out = append(out, [2]int{from, end})
	}
	return out
}

// appendTrimmed appends [start,end) with surrounding whitespace removed,
// skipping empty spans.
func appendTrimmed(out [][2]int, runes []rune, start, end int) [][2]int {
	for start < end && unicode.IsSpace(runes[start]) {
		start++
	}
	for end > start && unicode.IsSpace(runes[end-1]) {
		end--
	}
	if start == end {
		return out
	}
	return append(out, [2]int{start, end})
}
