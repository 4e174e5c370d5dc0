package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

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

// GraphStore persists the knowledge graph in SQLite. Insertion order is
// the table rowid.
type GraphStore struct {
	store *Store
	locks *keylock.Map
}

func newGraphStore(s *Store) *GraphStore {
	return &GraphStore{store: s, locks: keylock.New()}
}

// Upsert merges entities and relations in one transaction.
func (g *GraphStore) Upsert(ctx context.Context, entities []domain.Entity, relations []domain.Relation) error {
	keys := make([]string, 0, len(entities)+3*len(relations))
	for _, e := range entities {
		if domain.NormaliseName(e.Name) == "" {
			return fmt.Errorf("%w: entity with empty name", domain.ErrInvalidInput)
		}
		keys = append(keys, e.Key())
	}
	for _, r := range relations {
		keys = append(keys, r.Source.Key(), r.Target.Key(), r.Key())
	}
	unlock := g.locks.LockAll(keys)
	defer unlock()

	tx, err := g.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin graph upsert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, e := range entities {
		if err := mergeEntity(ctx, tx, e); err != nil {
			return err
		}
	}
	for _, r := range relations {
		if err := mergeEntity(ctx, tx, domain.Entity{Name: r.Source.Name, Type: r.Source.Type}); err != nil {
			return err
		}
		if err := mergeEntity(ctx, tx, domain.Entity{Name: r.Target.Name, Type: r.Target.Type}); err != nil {
			return err
		}
		if err := mergeRelation(ctx, tx, r); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit graph upsert: %w", err)
	}
	return nil
}

func mergeEntity(ctx context.Context, tx *sql.Tx, e domain.Entity) error {
	key := e.Key()
	name := domain.NormaliseName(e.Name)

	var current, aliasesJSON string
	err := tx.QueryRowContext(ctx, `SELECT name, aliases FROM entities WHERE key = ?`, key).Scan(&current, &aliasesJSON)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		aliases, err := json.Marshal(domain.MergeAliases(nil, e.Aliases))
		if err != nil {
			return fmt.Errorf("encode aliases: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO entities (key, name, type, aliases) VALUES (?, ?, ?, ?)`,
			key, name, string(e.Type), string(aliases))
		if err != nil {
			return fmt.Errorf("insert entity %s: %w", key, err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("read entity %s: %w", key, err)
	}

	var existing []string
	if err := json.Unmarshal([]byte(aliasesJSON), &existing); err != nil {
		return fmt.Errorf("decode aliases of %s: %w", key, err)
	}
	var extra []string
	if name != current {
		extra = []string{name}
	}
	merged := domain.MergeAliases(existing, append(extra, e.Aliases...))
	if len(merged) == len(existing) {
		return nil
	}
	encoded, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("encode aliases: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE entities SET aliases = ? WHERE key = ?`, string(encoded), key); err != nil {
		return fmt.Errorf("update entity %s: %w", key, err)
	}
	return nil
}

func mergeRelation(ctx context.Context, tx *sql.Tx, r domain.Relation) error {
	key := r.Key()
	_, err := tx.ExecContext(ctx, `
		INSERT INTO relations (key, type, source_key, target_key) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO NOTHING
	`, key, string(r.Type), r.Source.Key(), r.Target.Key())
	if err != nil {
		return fmt.Errorf("insert relation %s: %w", key, err)
	}

	for _, p := range r.Provenance {
		_, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO relation_provenance (relation_key, source_id, chunk_id) VALUES (?, ?, ?)
		`, key, p.SourceID, p.ChunkID)
		if err != nil {
			return fmt.Errorf("insert provenance for %s: %w", key, err)
		}
	}
	return nil
}

// QueryPaths performs a bounded breadth-first traversal from seeds.
func (g *GraphStore) QueryPaths(ctx context.Context, seeds []domain.EntityRef, q domain.PathQuery) ([]domain.GraphPath, error) {
	return graphwalk.Walk(ctx, g, seeds, q)
}

// Node looks up a node by canonical key.
func (g *GraphStore) Node(ctx context.Context, key string) (graphwalk.Node, bool, error) {
	var name, typ string
	err := g.store.db.QueryRowContext(ctx, `SELECT name, type FROM entities WHERE key = ?`, key).Scan(&name, &typ)
	if errors.Is(err, sql.ErrNoRows) {
		return graphwalk.Node{}, false, nil
	}
	if err != nil {
		return graphwalk.Node{}, false, fmt.Errorf("read entity %s: %w", key, err)
	}
	return graphwalk.Node{Key: key, Name: name, Type: domain.EntityType(typ)}, true, nil
}

// Incident returns the edges touching key in insertion order.
func (g *GraphStore) Incident(ctx context.Context, key string) ([]graphwalk.Edge, error) {
	rows, err := g.store.db.QueryContext(ctx, `
		SELECT key, source_key, target_key, type FROM relations
		WHERE source_key = ? OR target_key = ?
		ORDER BY rowid
	`, key, key)
	if err != nil {
		return nil, fmt.Errorf("query incident edges: %w", err)
	}

	var edges []graphwalk.Edge
	for rows.Next() {
		var e graphwalk.Edge
		var typ string
		if err := rows.Scan(&e.Key, &e.Source, &e.Target, &typ); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		e.Relation = domain.RelationType(typ)
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if len(edges) == 0 {
		return edges, nil
	}

	edgeKeys := make([]string, len(edges))
	for i, e := range edges {
		edgeKeys[i] = e.Key
	}
	prov, err := g.provenance(ctx, edgeKeys)
	if err != nil {
		return nil, err
	}
	for i := range edges {
		edges[i].Provenance = prov[edges[i].Key]
	}
	return edges, nil
}

// provenance loads the provenance of each relation key in insertion order.
func (g *GraphStore) provenance(ctx context.Context, relationKeys []string) (map[string][]domain.Provenance, error) {
	rows, err := g.store.db.QueryContext(ctx, `
		SELECT relation_key, source_id, chunk_id FROM relation_provenance
		WHERE relation_key IN (`+placeholders(len(relationKeys))+`)
		ORDER BY rowid
	`, stringArgs(relationKeys)...)
	if err != nil {
		return nil, fmt.Errorf("query provenance: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.Provenance, len(relationKeys))
	for rows.Next() {
		var key string
		var p domain.Provenance
		if err := rows.Scan(&key, &p.SourceID, &p.ChunkID); err != nil {
			return nil, fmt.Errorf("scan provenance: %w", err)
		}
		out[key] = append(out[key], p)
	}
	return out, rows.Err()
}

type entityRow struct {
	key    string
	entity domain.Entity
}

// FindEntities returns entities whose name or an alias contains one of the
// names, case-insensitively, in insertion order.
func (g *GraphStore) FindEntities(ctx context.Context, names []string, limitPerName int) ([]domain.Entity, error) {
	if limitPerName <= 0 {
		limitPerName = DefaultSeedsPerName
	}

	var needles []string
	for _, name := range names {
		if n := strings.ToLower(domain.NormaliseName(name)); n != "" {
			needles = append(needles, n)
		}
	}
	if len(needles) == 0 {
		return nil, nil
	}

	// Matching happens here rather than in SQL: SQLite's lower() and LIKE
	// only fold ASCII.
	all, err := g.allEntities(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var out []domain.Entity
	for _, needle := range needles {
		matched := 0
		for _, row := range all {
			if matched >= limitPerName {
				break
			}
			if !entityMatches(row.entity, needle) {
				continue
			}
			matched++
			if _, ok := seen[row.key]; ok {
				continue
			}
			seen[row.key] = struct{}{}
			out = append(out, row.entity)
		}
	}
	return out, nil
}

func (g *GraphStore) allEntities(ctx context.Context) ([]entityRow, error) {
	rows, err := g.store.db.QueryContext(ctx, `SELECT key, name, type, aliases FROM entities ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer rows.Close()

	var out []entityRow
	for rows.Next() {
		var row entityRow
		var typ, aliases string
		if err := rows.Scan(&row.key, &row.entity.Name, &typ, &aliases); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		row.entity.Type = domain.EntityType(typ)
		if err := json.Unmarshal([]byte(aliases), &row.entity.Aliases); err != nil {
			return nil, fmt.Errorf("decode aliases of %s: %w", row.key, err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
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
func (g *GraphStore) EntitiesForChunks(ctx context.Context, chunkIDs []string) ([]domain.EntityRef, error) {
	if len(chunkIDs) == 0 {
		return nil, nil
	}

	rows, err := g.store.db.QueryContext(ctx, `
		SELECT s.key, s.name, s.type, t.key, t.name, t.type
		FROM relations r
		JOIN entities s ON s.key = r.source_key
		JOIN entities t ON t.key = r.target_key
		WHERE r.key IN (
			SELECT relation_key FROM relation_provenance
			WHERE chunk_id IN (`+placeholders(len(chunkIDs))+`)
		)
		ORDER BY r.rowid
	`, stringArgs(chunkIDs)...)
	if err != nil {
		return nil, fmt.Errorf("query chunk entities: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	var out []domain.EntityRef
	add := func(key, name, typ string) {
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, domain.EntityRef{Name: name, Type: domain.EntityType(typ)})
	}
	for rows.Next() {
		var sk, sn, st, tk, tn, tt string
		if err := rows.Scan(&sk, &sn, &st, &tk, &tn, &tt); err != nil {
			return nil, fmt.Errorf("scan chunk entities: %w", err)
		}
		add(sk, sn, st)
		add(tk, tn, tt)
	}
	return out, rows.Err()
}

// RemoveSource drops a source's provenance and any edge left without any.
func (g *GraphStore) RemoveSource(ctx context.Context, sourceID string) error {
	tx, err := g.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin remove source: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM relation_provenance WHERE source_id = ?`, sourceID); err != nil {
		return fmt.Errorf("delete provenance: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		DELETE FROM relations
		WHERE NOT EXISTS (SELECT 1 FROM relation_provenance p WHERE p.relation_key = relations.key)
	`)
	if err != nil {
		return fmt.Errorf("delete orphaned relations: %w", err)
	}
	return tx.Commit()
}

// Stats returns node, edge and entity type counts.
func (g *GraphStore) Stats(ctx context.Context) (domain.GraphStats, error) {
	stats := domain.GraphStats{EntityTypeCounts: make(map[string]int)}

	if err := g.store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM entities`).Scan(&stats.NodeCount); err != nil {
		return domain.GraphStats{}, fmt.Errorf("count entities: %w", err)
	}
	if err := g.store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM relations`).Scan(&stats.EdgeCount); err != nil {
		return domain.GraphStats{}, fmt.Errorf("count relations: %w", err)
	}

	rows, err := g.store.db.QueryContext(ctx, `SELECT type, COUNT(*) FROM entities GROUP BY type`)
	if err != nil {
		return domain.GraphStats{}, fmt.Errorf("count entity types: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return domain.GraphStats{}, fmt.Errorf("scan entity type count: %w", err)
		}
		stats.EntityTypeCounts[typ] = n
	}
	return stats, rows.Err()
}

// Snapshot returns up to limit edges with their endpoints. A graph without
// edges yields up to limit isolated nodes.
func (g *GraphStore) Snapshot(ctx context.Context, limit int) (domain.GraphSnapshot, error) {
	snap := domain.GraphSnapshot{Nodes: []domain.GraphNode{}, Edges: []domain.GraphEdge{}}
	if limit <= 0 {
		return snap, nil
	}

	rows, err := g.store.db.QueryContext(ctx, `
		SELECT r.source_key, r.target_key, r.type,
			(SELECT COUNT(*) FROM relation_provenance p WHERE p.relation_key = r.key)
		FROM relations r
		ORDER BY r.rowid
		LIMIT ?
	`, limit)
	if err != nil {
		return snap, fmt.Errorf("query snapshot edges: %w", err)
	}
	for rows.Next() {
		var e domain.GraphEdge
		var typ string
		if err := rows.Scan(&e.Source, &e.Target, &typ, &e.Support); err != nil {
			rows.Close()
			return snap, fmt.Errorf("scan snapshot edge: %w", err)
		}
		e.Relation = domain.RelationType(typ)
		snap.Edges = append(snap.Edges, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return snap, err
	}
	rows.Close()

	if len(snap.Edges) == 0 {
		all, err := g.allEntities(ctx)
		if err != nil {
			return snap, err
		}
		for _, row := range all {
			if len(snap.Nodes) >= limit {
				break
			}
			snap.Nodes = append(snap.Nodes, domain.GraphNode{ID: row.key, Name: row.entity.Name, Type: row.entity.Type})
		}
		return snap, nil
	}

	included := make(map[string]struct{})
	for _, e := range snap.Edges {
		for _, key := range []string{e.Source, e.Target} {
			if _, ok := included[key]; ok {
				continue
			}
			included[key] = struct{}{}
			n, ok, err := g.Node(ctx, key)
			if err != nil {
				return snap, err
			}
			if ok {
				snap.Nodes = append(snap.Nodes, domain.GraphNode{ID: key, Name: n.Name, Type: n.Type})
			}
		}
	}
	return snap, nil
}

// Close releases this store's reference to the database.
func (g *GraphStore) Close() error {
	return g.store.release()
}
