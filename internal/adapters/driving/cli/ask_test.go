package cli

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
)

func TestAskCmd_Metadata(t *testing.T) {
	assert.Equal(t, "ask [question]", askCmd.Use)

	flag := askCmd.Flags().Lookup("n-results")
	require.NotNil(t, flag)
	assert.Equal(t, "n", flag.Shorthand)
	assert.NotNil(t, askCmd.Flags().Lookup("no-graph"))
}

func TestAskCmd_UsesConfigDefaults(t *testing.T) {
	m, cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "ask", "Where", "is", "Acme?")

	require.NoError(t, err)
	assert.Equal(t, "Where is Acme?", m.qa.last.Text)
	assert.Equal(t, 5, m.qa.last.NResults)
	assert.True(t, m.qa.last.IncludeGraph)
	assert.Contains(t, out, "Acme is headquartered in Berlin.")
	assert.Contains(t, out, "Sources: 0 chunks, 0 graph entities")
}

func TestAskCmd_Flags(t *testing.T) {
	m, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, "ask", "-n", "3", "--no-graph", "question")

	require.NoError(t, err)
	assert.Equal(t, 3, m.qa.last.NResults)
	assert.False(t, m.qa.last.IncludeGraph)
}

func TestAskCmd_RejectsOutOfRangeResults(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	for _, n := range []string{"-1", "21"} {
		_, err := execute(t, "ask", "-n", n, "question")
		assert.ErrorIs(t, err, domain.ErrInvalidInput, n)
	}
}

func TestAskCmd_PrintsEvidence(t *testing.T) {
	m, cleanup := setupTestServices()
	defer cleanup()
	m.qa.answer = &domain.Answer{
		Question: "q",
		Text:     "Acme is in Berlin [1].",
		Citations: []domain.Citation{
			{SourceID: "src_1", Locator: "/docs/report.md", Section: "Overview", Relevance: 0.87654},
		},
		GraphPaths: []domain.GraphPath{
			{Source: "Acme", Relation: domain.RelationLocatedIn, Target: "Berlin"},
		},
		Sources: domain.AnswerSources{VectorResults: 1, GraphEntities: 2},
	}

	out, err := execute(t, "ask", "q")

	require.NoError(t, err)
	assert.Contains(t, out, "[1] /docs/report.md / Overview (relevance 0.877)")
	assert.Contains(t, out, fmt.Sprintf("Acme -[%s]-> Berlin", domain.RelationLocatedIn))
	assert.Contains(t, out, "Sources: 1 chunks, 2 graph entities")
	assert.NotContains(t, out, "degraded")
}

func TestAskCmd_Degraded(t *testing.T) {
	m, cleanup := setupTestServices()
	defer cleanup()
	m.qa.answer = &domain.Answer{
		Text:     "Top evidence",
		Degraded: true,
		Error:    domain.NewError(domain.KindSynthesisUnavailable, "llm timed out"),
	}

	out, err := execute(t, "ask", "q")

	require.NoError(t, err)
	assert.Contains(t, out, "(degraded: llm timed out)")
}

func TestAskCmd_JSON(t *testing.T) {
	m, cleanup := setupTestServices()
	defer cleanup()
	m.qa.answer = &domain.Answer{
		Question:  "q",
		Text:      "a",
		Citations: []domain.Citation{{SourceID: "src_1", Relevance: 0.12345}},
	}

	out, err := execute(t, "ask", "--json", "q")

	require.NoError(t, err)
	var view domain.AnswerView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, "a", view.Answer)
	require.Len(t, view.Citations, 1)
	assert.Equal(t, "src_1", view.Citations[0].Source)
	assert.InDelta(t, 0.123, view.Citations[0].Relevance, 1e-9)
}

func TestAskCmd_PropagatesErrors(t *testing.T) {
	m, cleanup := setupTestServices()
	defer cleanup()
	m.qa.err = fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)

	_, err := execute(t, "ask", " ")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
