package domain

import "fmt"

// Segment is a natural unit of normalised text (paragraph, row, record)
// produced by a normaliser before chunking.
type Segment struct {
	// Text is the plain text of the segment.
	Text string

	// Section is an optional label such as "risk" or "business".
	Section string
}

// Chunk is a bounded span of normalised text derived from one Source.
type Chunk struct {
	// ID is stable for a given source and position.
	ID string

	// SourceID links to the parent source.
	SourceID string

	// Index is the zero-based sequence number within the source.
	Index int

	// Text is the chunk content.
	Text string

	// Section is an optional section label.
	Section string

	// Start and End are rune offsets into the source's normalised text.
	Start int
	End   int
}

// ChunkID builds the stable identifier of the chunk at index within a source.
func ChunkID(sourceID string, index int) string {
	return fmt.Sprintf("%s#%d", sourceID, index)
}

// ChunkMetadata is denormalised alongside each embedding so a vector query
// can be presented without a join.
type ChunkMetadata struct {
	SourceID string
	ChunkID  string
	Section  string
	Locator  string
	Text     string
}

// EmbeddingRecord is one chunk's embedding plus its metadata.
type EmbeddingRecord struct {
	ChunkID  string
	Vector   []float32
	Metadata ChunkMetadata
}

// VectorHit is one result of a nearest-neighbour query.
type VectorHit struct {
	ChunkID    string
	Metadata   ChunkMetadata
	Similarity float64
}

// VectorStats summarises the contents of a vector store.
type VectorStats struct {
	Embeddings int    `json:"embeddings"`
	Sources    int    `json:"sources"`
	Dimensions int    `json:"dimensions"`
	Backend    string `json:"backend"`
}
