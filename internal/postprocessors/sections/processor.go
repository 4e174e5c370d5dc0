// Package sections labels chunks with a canonical section name.
package sections

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
)

// Canonical section labels.
const (
	LabelRisk       = "risk"
	LabelBusiness   = "business"
	LabelMDA        = "mda"
	LabelFinancials = "financials"
	LabelLegal      = "legal"
)

// rule maps heading keywords to a label. Rules are checked in order.
type rule struct {
	label    string
	keywords []string
}

var defaultRules = []rule{
	{LabelMDA, []string{"management's discussion", "management’s discussion", "md&a", "results of operations"}},
	{LabelRisk, []string{"risk factor", "risks", "risk"}},
	{LabelFinancials, []string{"financial statements", "balance sheet", "income statement", "cash flow"}},
	{LabelLegal, []string{"legal proceedings", "litigation"}},
	{LabelBusiness, []string{"business", "overview", "company profile"}},
}

// itemHeading matches headings like "Item 1A. Risk Factors" at line start.
var itemHeading = regexp.MustCompile(`(?im)^\s*item\s+\d+[a-z]?\.?\s+(.{3,80})$`)

// Processor assigns canonical section labels.
// A section already set by the normaliser is mapped onto a canonical label
// when a rule matches, and kept (lower-cased) otherwise. Chunks without a
// section are labelled from an "Item N." heading in their text.
type Processor struct {
	rules []rule
}

// New creates a section labeller with the default rules.
func New() *Processor {
	return &Processor{rules: defaultRules}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "sections"
}

// Process labels chunks in place and returns them.
func (p *Processor) Process(_ context.Context, _ *domain.Source, _ []domain.Segment, chunks []domain.Chunk) ([]domain.Chunk, error) {
	for i := range chunks {
		chunks[i].Section = p.label(chunks[i])
	}
	return chunks, nil
}

func (p *Processor) label(c domain.Chunk) string {
	if c.Section != "" {
		if label, ok := p.match(c.Section); ok {
			return label
		}
		return strings.ToLower(strings.TrimSpace(c.Section))
	}
	if m := itemHeading.FindStringSubmatch(c.Text); m != nil {
		if label, ok := p.match(m[1]); ok {
			return label
		}
	}
	return ""
}

// match returns the canonical label for a heading.
func (p *Processor) match(heading string) (string, bool) {
	h := strings.ToLower(heading)
	for _, r := range p.rules {
		for _, kw := range r.keywords {
			if strings.Contains(h, kw) {
				return r.label, true
			}
		}
	}
	return "", false
}
