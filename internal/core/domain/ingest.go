package domain

import "time"

// IngestState is the lifecycle state of one source within a batch.
type IngestState string

// Ingestion states. FAILED is absorbing.
const (
	StatePending     IngestState = "PENDING"
	StateNormalizing IngestState = "NORMALIZING"
	StateExtracting  IngestState = "EXTRACTING"
	StateIndexing    IngestState = "INDEXING"
	StateDone        IngestState = "DONE"
	StateFailed      IngestState = "FAILED"
)

// IsTerminal returns true for DONE and FAILED.
func (s IngestState) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// SourceStatus tracks one source through a batch.
type SourceStatus struct {
	SourceID  string
	Locator   string
	State     IngestState
	Chunks    int
	Entities  int
	Relations int
	Reason    string
	StartedAt time.Time
	EndedAt   time.Time
}

// FailedSource records why a source did not make it into the stores.
type FailedSource struct {
	Source string `json:"source"`
	Reason string `json:"reason"`
}

// ChunkFailure records a non-fatal per-chunk extraction failure.
type ChunkFailure struct {
	SourceID string `json:"source_id"`
	ChunkID  string `json:"chunk_id"`
	Reason   string `json:"reason"`
}

// IngestResult aggregates the outcome of a batch.
type IngestResult struct {
	BatchID            string
	SourcesIngested    int
	EntitiesExtracted  int
	RelationsExtracted int
	DocumentsIndexed   int
	ChunksIndexed      int
	Failed             []FailedSource
	ChunkFailures      []ChunkFailure
	Sources            []SourceStatus
	Duration           time.Duration
}

// PipelineStats counts sources by final state.
type PipelineStats struct {
	Total      int            `json:"total"`
	ByState    map[string]int `json:"by_state"`
	DurationMS int64          `json:"duration_ms"`
}

// IngestResultView is the presented form of an ingest result.
type IngestResultView struct {
	SourcesIngested    int            `json:"sources_ingested"`
	EntitiesExtracted  int            `json:"entities_extracted"`
	RelationsExtracted int            `json:"relations_extracted"`
	DocumentsIndexed   int            `json:"documents_indexed"`
	ChunksIndexed      int            `json:"chunks_indexed"`
	Failed             []FailedSource `json:"failed"`
	ChunkFailures      []ChunkFailure `json:"chunk_failures,omitempty"`
}

// Present converts the result to its presentation form.
func (r *IngestResult) Present() IngestResultView {
	failed := r.Failed
	if failed == nil {
		failed = []FailedSource{}
	}
	return IngestResultView{
		SourcesIngested:    r.SourcesIngested,
		EntitiesExtracted:  r.EntitiesExtracted,
		RelationsExtracted: r.RelationsExtracted,
		DocumentsIndexed:   r.DocumentsIndexed,
		ChunksIndexed:      r.ChunksIndexed,
		Failed:             failed,
		ChunkFailures:      r.ChunkFailures,
	}
}

// PipelineStats summarises source states for the batch.
func (r *IngestResult) PipelineStats() PipelineStats {
	stats := PipelineStats{
		Total:      len(r.Sources),
		ByState:    make(map[string]int),
		DurationMS: r.Duration.Milliseconds(),
	}
	for _, s := range r.Sources {
		stats.ByState[string(s.State)]++
	}
	return stats
}
