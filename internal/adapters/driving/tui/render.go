package tui

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/fusionqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/fusionqa/internal/core/domain"
)

// exchange is one question with its outcome.
type exchange struct {
	question string
	answer   *domain.Answer
	err      error
}

// renderTranscript renders every exchange, oldest first.
func renderTranscript(s *styles.Styles, history []exchange, width int) string {
	if len(history) == 0 {
		return s.Muted.Render("Ask a question about your ingested documents.")
	}

	blocks := make([]string, 0, len(history))
	for _, ex := range history {
		blocks = append(blocks, renderExchange(s, ex, width))
	}
	return strings.Join(blocks, "\n\n")
}

func renderExchange(s *styles.Styles, ex exchange, width int) string {
	var b strings.Builder
	b.WriteString(s.Question.Render("> " + ex.question))
	b.WriteString("\n")

	if ex.err != nil {
		e := domain.AsError(ex.err)
		b.WriteString(s.Error.Render(fmt.Sprintf("Error: %s: %s", e.Kind, e.Message)))
		return b.String()
	}

	view := ex.answer.Present()
	answerStyle := s.Answer
	if width > 8 {
		answerStyle = answerStyle.Width(width - 4)
	}
	b.WriteString(answerStyle.Render(view.Answer))

	if view.Degraded {
		reason := "synthesis unavailable"
		if view.Error != nil {
			reason = view.Error.Message
		}
		b.WriteString("\n")
		b.WriteString(s.Degraded.Render("  (degraded: " + reason + ")"))
	}

	if len(view.Citations) > 0 {
		b.WriteString("\n")
		b.WriteString(s.Muted.Render("  Citations"))
		for i, c := range view.Citations {
			line := fmt.Sprintf("[%d] %s", i+1, c.Source)
			if c.Section != "" {
				line += " / " + c.Section
			}
			line += fmt.Sprintf(" (%.3f)", c.Relevance)
			b.WriteString("\n")
			b.WriteString(s.Citation.Render(line))
		}
	}

	if len(view.GraphPaths) > 0 {
		b.WriteString("\n")
		b.WriteString(s.Muted.Render("  Graph"))
		for _, p := range view.GraphPaths {
			b.WriteString("\n")
			b.WriteString(s.GraphPath.Render(fmt.Sprintf("%s -[%s]-> %s", p.Source, p.Relation, p.Target)))
		}
	}

	b.WriteString("\n")
	b.WriteString(s.Muted.Render(fmt.Sprintf("  %d chunks, %d graph entities",
		view.Sources.VectorResults, view.Sources.GraphEntities)))
	return b.String()
}
