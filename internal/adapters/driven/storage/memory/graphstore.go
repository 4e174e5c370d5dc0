package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
	"github.com/custodia-labs/fusionqa/internal/core/ports/driven"
	"github.com/custodia-labs/fusionqa/internal/graphwalk"
	"github.com/custodia-labs/fusionqa/internal/keylock"
)

// Ensure GraphStore implements the interfaces.
var (
	_ driven.GraphStore = (*GraphStore)(nil)
	_ graphwalk.Graph   = (*GraphStore)(nil)
)

// DefaultSeedsPerName bounds FindEntities when no limit is given.
const DefaultSeedsPerName = 3

type graphNode struct {
	entity domain.Entity
	seq    uint64
}

type graphEdge struct {
	relation domain.Relation
	source   string
	target   string
	seq      uint64
}

// GraphStore is an in-memory knowledge graph. Merges are serialised per
// canonical key; reads share a lock.
type GraphStore struct {
	locks *keylock.Map

	mu    sync.RWMutex
	nodes map[string]*graphNode
	edges map[string]*graphEdge
	adj   map[string][]string
	seq   uint64
}

// NewGraphStore creates an empty graph.
func NewGraphStore() *GraphStore {
	return &GraphStore{
		locks: keylock.New(),
		nodes: make(map[string]*graphNode),
		edges: make(map[string]*graphEdge),
		adj:   make(map[string][]string),
	}
}

// Upsert merges entities and relations.
func (s *GraphStore) Upsert(ctx context.Context, entities []domain.Entity, relations []domain.Relation) error {
	keys := make([]string, 0, len(entities)+2*len(relations))
	for _, e := range entities {
		keys = append(keys, e.Key())
	}
	for _, r := range relations {
		keys = append(keys, r.Source.Key(), r.Target.Key(), r.Key())
	}
	unlock := s.locks.LockAll(keys)
	defer unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	for _, e := range entities {
		if domain.NormaliseName(e.Name) == "" {
			return fmt.Errorf("%w: entity with empty name", domain.ErrInvalidInput)
		}
		s.mergeEntity(e)
	}
	for _, r := range relations {
		s.mergeEntity(domain.Entity{Name: r.Source.Name, Type: r.Source.Type})
		s.mergeEntity(domain.Entity{Name: r.Target.Name, Type: r.Target.Type})
		s.mergeRelation(r)
	}
	return nil
}

// mergeEntity reads the current node, merges, and writes it back. The
// caller holds the key lock.
func (s *GraphStore) mergeEntity(e domain.Entity) {
	key := e.Key()
	e.Name = domain.NormaliseName(e.Name)

	s.mu.RLock()
	existing, ok := s.nodes[key]
	var merged domain.Entity
	if ok {
		merged = existing.entity
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if !ok {
		s.seq++
		e.Aliases = domain.MergeAliases(nil, e.Aliases)
		s.nodes[key] = &graphNode{entity: e, seq: s.seq}
		return
	}
	var extra []string
	if e.Name != merged.Name {
		extra = []string{e.Name}
	}
	merged.Aliases = domain.MergeAliases(merged.Aliases, append(extra, e.Aliases...))
	s.nodes[key].entity = merged
}

func (s *GraphStore) mergeRelation(r domain.Relation) {
	key := r.Key()

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.edges[key]; ok {
		existing.relation.Provenance = domain.MergeProvenance(existing.relation.Provenance, r.Provenance)
		return
	}
	s.seq++
	r.Provenance = domain.MergeProvenance(nil, r.Provenance)
	edge := &graphEdge{relation: r, source: r.Source.Key(), target: r.Target.Key(), seq: s.seq}
	s.edges[key] = edge
	s.adj[edge.source] = append(s.adj[edge.source], key)
	if edge.target != edge.source {
		s.adj[edge.target] = append(s.adj[edge.target], key)
	}
}

// QueryPaths performs a bounded breadth-first traversal from seeds.
func (s *GraphStore) QueryPaths(ctx context.Context, seeds []domain.EntityRef, q domain.PathQuery) ([]domain.GraphPath, error) {
	return graphwalk.Walk(ctx, s, seeds, q)
}

// Node looks up a node by canonical key.
func (s *GraphStore) Node(_ context.Context, key string) (graphwalk.Node, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.nodes[key]
	if !ok {
		return graphwalk.Node{}, false, nil
	}
	return graphwalk.Node{Key: key, Name: n.entity.Name, Type: n.entity.Type}, true, nil
}

// Incident returns the edges touching key in insertion order.
func (s *GraphStore) Incident(_ context.Context, key string) ([]graphwalk.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]graphwalk.Edge, 0, len(s.adj[key]))
	for _, ek := range s.adj[key] {
		e := s.edges[ek]
		out = append(out, graphwalk.Edge{
			Key:        ek,
			Source:     e.source,
			Target:     e.target,
			Relation:   e.relation.Type,
			Provenance: append([]domain.Provenance(nil), e.relation.Provenance...),
		})
	}
	return out, nil
}

// FindEntities returns entities whose name or an alias contains one of the
// names, case-insensitively, in insertion order.
func (s *GraphStore) FindEntities(_ context.Context, names []string, limitPerName int) ([]domain.Entity, error) {
	if limitPerName <= 0 {
		limitPerName = DefaultSeedsPerName
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ordered := s.sortedNodes()
	seen := make(map[string]struct{})
	var out []domain.Entity
	for _, name := range names {
		needle := strings.ToLower(domain.NormaliseName(name))
		if needle == "" {
			continue
		}
		matched := 0
		for _, n := range ordered {
			if matched >= limitPerName {
				break
			}
			if !entityMatches(n.entity, needle) {
				continue
			}
			matched++
			key := n.entity.Key()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, copyEntity(n.entity))
		}
	}
	return out, nil
}

func entityMatches(e domain.Entity, needle string) bool {
	if strings.Contains(strings.ToLower(e.Name), needle) {
		return true
	}
	for _, a := range e.Aliases {
		if strings.Contains(strings.ToLower(a), needle) {
			return true
		}
	}
	return false
}

// EntitiesForChunks returns endpoints of edges citing any of the chunks.
func (s *GraphStore) EntitiesForChunks(_ context.Context, chunkIDs []string) ([]domain.EntityRef, error) {
	wanted := make(map[string]struct{}, len(chunkIDs))
	for _, id := range chunkIDs {
		wanted[id] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var out []domain.EntityRef
	for _, e := range s.sortedEdges() {
		if !citesAny(e.relation.Provenance, wanted) {
			continue
		}
		for _, key := range []string{e.source, e.target} {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			if n, ok := s.nodes[key]; ok {
				out = append(out, n.entity.Ref())
			}
		}
	}
	return out, nil
}

func citesAny(prov []domain.Provenance, chunks map[string]struct{}) bool {
	for _, p := range prov {
		if _, ok := chunks[p.ChunkID]; ok {
			return true
		}
	}
	return false
}

// RemoveSource drops a source's provenance and any edge left without any.
func (s *GraphStore) RemoveSource(_ context.Context, sourceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, e := range s.edges {
		kept := e.relation.Provenance[:0:0]
		for _, p := range e.relation.Provenance {
			if p.SourceID != sourceID {
				kept = append(kept, p)
			}
		}
		if len(kept) > 0 {
			e.relation.Provenance = kept
			continue
		}
		delete(s.edges, key)
		s.adj[e.source] = removeKey(s.adj[e.source], key)
		s.adj[e.target] = removeKey(s.adj[e.target], key)
	}
	return nil
}

func removeKey(keys []string, key string) []string {
	out := keys[:0]
	for _, k := range keys {
		if k != key {
			out = append(out, k)
		}
	}
	return out
}

// Stats returns node, edge and entity type counts.
func (s *GraphStore) Stats(_ context.Context) (domain.GraphStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, n := range s.nodes {
		counts[string(n.entity.Type)]++
	}
	return domain.GraphStats{
		NodeCount:        len(s.nodes),
		EdgeCount:        len(s.edges),
		EntityTypeCounts: counts,
	}, nil
}

// Snapshot returns up to limit edges with their endpoints. A graph without
// edges yields up to limit isolated nodes.
func (s *GraphStore) Snapshot(_ context.Context, limit int) (domain.GraphSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := domain.GraphSnapshot{Nodes: []domain.GraphNode{}, Edges: []domain.GraphEdge{}}
	included := make(map[string]struct{})
	addNode := func(key string) {
		if _, ok := included[key]; ok {
			return
		}
		n, ok := s.nodes[key]
		if !ok {
			return
		}
		included[key] = struct{}{}
		snap.Nodes = append(snap.Nodes, domain.GraphNode{ID: key, Name: n.entity.Name, Type: n.entity.Type})
	}

	for _, e := range s.sortedEdges() {
		if len(snap.Edges) >= limit {
			break
		}
		addNode(e.source)
		addNode(e.target)
		snap.Edges = append(snap.Edges, domain.GraphEdge{
			Source:   e.source,
			Target:   e.target,
			Relation: e.relation.Type,
			Support:  len(e.relation.Provenance),
		})
	}
	if len(snap.Edges) == 0 {
		for _, n := range s.sortedNodes() {
			if len(snap.Nodes) >= limit {
				break
			}
			addNode(n.entity.Key())
		}
	}
	return snap, nil
}

// Close is a no-op.
func (s *GraphStore) Close() error {
	return nil
}

func (s *GraphStore) sortedNodes() []*graphNode {
	out := make([]*graphNode, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func (s *GraphStore) sortedEdges() []*graphEdge {
	out := make([]*graphEdge, 0, len(s.edges))
	for _, e := range s.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func copyEntity(e domain.Entity) domain.Entity {
	e.Aliases = append([]string(nil), e.Aliases...)
	return e
}
