// Package graphwalk implements the bounded breadth-first traversal shared by
// the embedded graph stores.
package graphwalk

import (
	"context"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
)

// Node is a stored entity addressed by canonical key.
type Node struct {
	Key  string
	Name string
	Type domain.EntityType
}

// Edge is a stored relation between two canonical keys.
type Edge struct {
	Key        string
	Source     string
	Target     string
	Relation   domain.RelationType
	Provenance []domain.Provenance
}

// Graph is the read access a traversal needs.
type Graph interface {
	// Node looks up a node by canonical key.
	Node(ctx context.Context, key string) (Node, bool, error)

	// Incident returns edges touching key in either direction, in insertion order.
	Incident(ctx context.Context, key string) ([]Edge, error)
}

// Walk traverses from the seeds up to q.MaxHops levels, treating edges as
// undirected for discovery. Each node is expanded at most once, at its
// shallowest depth. Edges are reported in stored direction, at most
// q.MaxEdges of them, with Hops set to the level that reached them and
// Relevance normalised by support.
func Walk(ctx context.Context, g Graph, seeds []domain.EntityRef, q domain.PathQuery) ([]domain.GraphPath, error) {
	q = q.WithDefaults()

	expanded := make(map[string]struct{})
	var frontier []string
	for _, s := range seeds {
		key := s.Key()
		if _, ok := expanded[key]; ok {
			continue
		}
		_, found, err := g.Node(ctx, key)
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		expanded[key] = struct{}{}
		frontier = append(frontier, key)
	}

	nodes := make(map[string]Node)
	lookup := func(key string) (Node, error) {
		if n, ok := nodes[key]; ok {
			return n, nil
		}
		n, found, err := g.Node(ctx, key)
		if err != nil {
			return Node{}, err
		}
		if !found {
			n = Node{Key: key, Name: key}
		}
		nodes[key] = n
		return n, nil
	}

	var paths []domain.GraphPath
	emitted := make(map[string]struct{})

	for depth := 1; depth <= q.MaxHops && len(frontier) > 0; depth++ {
		var next []string
		for _, key := range frontier {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			edges, err := g.Incident(ctx, key)
			if err != nil {
				return nil, err
			}
			for _, e := range edges {
				if _, ok := emitted[e.Key]; !ok {
					emitted[e.Key] = struct{}{}
					src, err := lookup(e.Source)
					if err != nil {
						return nil, err
					}
					tgt, err := lookup(e.Target)
					if err != nil {
						return nil, err
					}
					paths = append(paths, domain.GraphPath{
						Source:     src.Name,
						SourceType: src.Type,
						Relation:   e.Relation,
						Target:     tgt.Name,
						TargetType: tgt.Type,
						Hops:       depth,
						Support:    len(domain.MergeProvenance(nil, e.Provenance)),
						Provenance: append([]domain.Provenance(nil), e.Provenance...),
					})
					if len(paths) >= q.MaxEdges {
						domain.NormaliseRelevance(paths)
						return paths, nil
					}
				}

				other := e.Target
				if other == key {
					other = e.Source
				}
				if _, ok := expanded[other]; !ok {
					expanded[other] = struct{}{}
					next = append(next, other)
				}
			}
		}
		frontier = next
	}

	domain.NormaliseRelevance(paths)
	return paths, nil
}
