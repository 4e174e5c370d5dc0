package domain

// Default traversal limits.
const (
	DefaultMaxHops  = 2
	DefaultMaxEdges = 50
)

// PathQuery bounds a graph traversal.
type PathQuery struct {
	// MaxHops is the maximum BFS depth from any seed.
	MaxHops int

	// MaxEdges caps the number of distinct edges returned.
	MaxEdges int
}

// WithDefaults fills unset limits.
func (q PathQuery) WithDefaults() PathQuery {
	if q.MaxHops <= 0 {
		q.MaxHops = DefaultMaxHops
	}
	if q.MaxEdges <= 0 {
		q.MaxEdges = DefaultMaxEdges
	}
	return q
}

// GraphPath is one directed edge offered as evidence.
type GraphPath struct {
	Source     string
	SourceType EntityType
	Relation   RelationType
	Target     string
	TargetType EntityType

	// Hops is the BFS depth at which the edge was discovered (1 = touches a seed).
	Hops int

	// Support is the number of distinct provenance records on the edge.
	Support int

	// Relevance is Support normalised by the best-supported returned edge.
	Relevance float64

	Provenance []Provenance
}

// NormaliseRelevance sets each path's Relevance to Support divided by the
// highest Support in the slice.
func NormaliseRelevance(paths []GraphPath) {
	maxSupport := 0
	for _, p := range paths {
		if p.Support > maxSupport {
			maxSupport = p.Support
		}
	}
	if maxSupport == 0 {
		return
	}
	for i := range paths {
		paths[i].Relevance = float64(paths[i].Support) / float64(maxSupport)
	}
}

// GraphStats summarises the knowledge graph.
type GraphStats struct {
	NodeCount        int            `json:"node_count"`
	EdgeCount        int            `json:"edge_count"`
	EntityTypeCounts map[string]int `json:"entity_type_counts"`
}

// GraphNode is an entity in a graph snapshot.
type GraphNode struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Type EntityType `json:"type"`
}

// GraphEdge is a relation in a graph snapshot.
type GraphEdge struct {
	Source   string       `json:"source"`
	Target   string       `json:"target"`
	Relation RelationType `json:"relation"`
	Support  int          `json:"support"`
}

// GraphSnapshot is a bounded view of the graph for visualisation.
type GraphSnapshot struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}
