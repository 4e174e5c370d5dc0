package domain

import "math"

// Default question-answering parameters.
const (
	DefaultNResults = 5
	MaxNResults     = 20

	// NoInformationAnswer is returned when there is no evidence at all.
	NoInformationAnswer = "I don't have enough information in the knowledge base to answer this question."
)

// Question is a request to the QA engine.
type Question struct {
	Text         string
	NResults     int
	IncludeGraph bool
}

// Citation is a ranked piece of vector evidence.
type Citation struct {
	SourceID string
	Locator  string
	Section  string
	ChunkID  string
	Text     string

	// Relevance is the unrounded cosine similarity in [0,1].
	Relevance float64

	// VectorRank is the zero-based position in the vector query result.
	VectorRank int
}

// AnswerSources counts the evidence that fed an answer.
type AnswerSources struct {
	VectorResults int `json:"vector_results"`
	GraphEntities int `json:"graph_entities"`
}

// Answer is a fused, cited response. It is never persisted.
type Answer struct {
	Question   string
	Text       string
	Citations  []Citation
	GraphPaths []GraphPath
	Sources    AnswerSources

	// Degraded is set when synthesis failed and only raw evidence is returned.
	Degraded bool

	// Error describes why the answer is degraded.
	Error *Error
}

// CitationView is the presented form of a citation.
type CitationView struct {
	Source    string  `json:"source"`
	Section   string  `json:"section"`
	URL       string  `json:"url,omitempty"`
	Relevance float64 `json:"relevance"`
}

// GraphPathView is the presented form of a graph path.
type GraphPathView struct {
	Source     string `json:"source"`
	Relation   string `json:"relation"`
	Target     string `json:"target"`
	TargetType string `json:"target_type,omitempty"`
}

// AnswerView is the presented form of an answer.
type AnswerView struct {
	Question   string          `json:"question"`
	Answer     string          `json:"answer"`
	Citations  []CitationView  `json:"citations"`
	GraphPaths []GraphPathView `json:"graph_paths"`
	Sources    AnswerSources   `json:"sources"`
	Degraded   bool            `json:"degraded,omitempty"`
	Error      *Error          `json:"error,omitempty"`
}

// RoundRelevance rounds a relevance score to three decimals for display.
func RoundRelevance(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Present converts the answer to its presentation form.
// Relevance is rounded here and only here.
func (a *Answer) Present() AnswerView {
	view := AnswerView{
		Question:   a.Question,
		Answer:     a.Text,
		Citations:  make([]CitationView, 0, len(a.Citations)),
		GraphPaths: make([]GraphPathView, 0, len(a.GraphPaths)),
		Sources:    a.Sources,
		Degraded:   a.Degraded,
		Error:      a.Error,
	}
	for _, c := range a.Citations {
		source := c.SourceID
		if c.Locator != "" {
			source = c.Locator
		}
		view.Citations = append(view.Citations, CitationView{
			Source:    source,
			Section:   c.Section,
			Relevance: RoundRelevance(c.Relevance),
		})
	}
	for _, p := range a.GraphPaths {
		view.GraphPaths = append(view.GraphPaths, GraphPathView{
			Source:     p.Source,
			Relation:   string(p.Relation),
			Target:     p.Target,
			TargetType: string(p.TargetType),
		})
	}
	return view
}
