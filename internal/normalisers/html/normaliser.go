package html

import (
	"context"
	"html"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
	"github.com/custodia-labs/fusionqa/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// headingMarker prefixes heading lines between stripping and segmenting.
const headingMarker = "\x00h:"

// Normaliser handles HTML sources.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedKinds returns the source kinds this normaliser handles.
func (n *Normaliser) SupportedKinds() []domain.SourceKind {
	return []domain.SourceKind{domain.KindHTML}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic kind normaliser, higher than plaintext
}

// Normalise strips markup and emits one segment per block element,
// labelled with the nearest preceding heading.
func (n *Normaliser) Normalise(_ context.Context, src *domain.Source) (*driven.NormaliseResult, error) {
	if src == nil {
		return nil, domain.ErrInvalidInput
	}

	rawContent := string(src.Content)
	title := extractHTMLTitle(rawContent, src.Locator)

	var (
		section  string
		segments []domain.Segment
	)
	for _, line := range strings.Split(stripHTML(rawContent), "\n") {
		if strings.HasPrefix(line, headingMarker) {
			section = strings.TrimSpace(strings.TrimPrefix(line, headingMarker))
			continue
		}
		segments = append(segments, domain.Segment{Text: line, Section: section})
	}

	return &driven.NormaliseResult{
		Title:    title,
		Segments: segments,
	}, nil
}

// Pre-compiled regular expressions for HTML parsing performance.
var (
	titleTag          = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	scriptTag         = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag          = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag       = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	headTag           = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	svgTag            = regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`)
	navTag            = regexp.MustCompile(`(?is)<nav[^>]*>.*?</nav>`)
	footerTag         = regexp.MustCompile(`(?is)<footer[^>]*>.*?</footer>`)
	headerTag         = regexp.MustCompile(`(?is)<header[^>]*>.*?</header>`)
	headingTag        = regexp.MustCompile(`(?is)<h[1-6][^>]*>(.*?)</h[1-6]>`)
	htmlComments      = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockElements     = regexp.MustCompile(`(?i)</(p|div|li|tr|blockquote|pre|table|section|article)>`)
	openBlockElements = regexp.MustCompile(`(?i)<(p|div|li|tr|blockquote|pre|table|section|article)[^>]*>`)
	brTags            = regexp.MustCompile(`(?i)<br\s*/?>`)
	hrTags            = regexp.MustCompile(`(?i)<hr\s*/?>`)
	allTags           = regexp.MustCompile(`<[^>]+>`)
	multiSpaces       = regexp.MustCompile(`[ \t]+`)
)

// extractHTMLTitle extracts a title from the HTML content or falls back to filename.
func extractHTMLTitle(content, locator string) string {
	matches := titleTag.FindStringSubmatch(content)
	if len(matches) > 1 {
		title := html.UnescapeString(strings.TrimSpace(matches[1]))
		if title != "" {
			return title
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

// stripHTML removes markup and returns one trimmed line per block.
// Heading lines carry headingMarker.
func stripHTML(content string) string {
	// Remove non-content elements entirely
	for _, re := range []*regexp.Regexp{scriptTag, styleTag, noscriptTag, headTag, svgTag, navTag, footerTag, headerTag, htmlComments} {
		content = re.ReplaceAllString(content, "")
	}

	content = headingTag.ReplaceAllStringFunc(content, func(m string) string {
		inner := headingTag.FindStringSubmatch(m)[1]
		inner = allTags.ReplaceAllString(inner, "")
		return "\n" + headingMarker + strings.Join(strings.Fields(inner), " ") + "\n"
	})

	content = openBlockElements.ReplaceAllString(content, "\n")
	content = blockElements.ReplaceAllString(content, "\n")
	content = brTags.ReplaceAllString(content, "\n")
	content = hrTags.ReplaceAllString(content, "\n")
	content = allTags.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	content = multiSpaces.ReplaceAllString(content, " ")

	lines := strings.Split(content, "\n")
	var result []string
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" && line != headingMarker {
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}
