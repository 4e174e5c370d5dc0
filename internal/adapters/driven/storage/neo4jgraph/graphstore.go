// Package neo4jgraph stores the knowledge graph in Neo4j.
//
// Entities are (:Entity {key, name, type, aliases}) nodes with a secondary
// label equal to their type; relations are relationships whose type is the
// relation type and whose provenance is a list of "source\x1fchunk" strings.
// Merges are single MERGE statements, so concurrent writers need no
// client-side locking.
package neo4jgraph

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
	"github.com/custodia-labs/fusionqa/internal/core/ports/driven"
	"github.com/custodia-labs/fusionqa/internal/graphwalk"
	"github.com/custodia-labs/fusionqa/internal/logger"
)

// Ensure GraphStore implements the interfaces.
var (
	_ driven.GraphStore = (*GraphStore)(nil)
	_ graphwalk.Graph   = (*GraphStore)(nil)
)

const (
	// DefaultSeedsPerName bounds FindEntities when no limit is given.
	DefaultSeedsPerName = 3

	provenanceSep  = "\x1f"
	connectTimeout = 10 * time.Second
)

// identifier guards label and relationship types interpolated into Cypher.
var identifier = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// Config holds connection settings.
type Config struct {
	URI      string
	User     string
	Password string
	Database string
}

// GraphStore is a Neo4j-backed knowledge graph.
type GraphStore struct {
	driver   neo4j.DriverWithContext
	database string
}

// NewGraphStore connects, verifies connectivity and ensures constraints.
func NewGraphStore(ctx context.Context, cfg Config) (*GraphStore, error) {
	if strings.TrimSpace(cfg.URI) == "" {
		return nil, fmt.Errorf("%w: neo4j uri is required", domain.ErrInvalidInput)
	}
	user := cfg.User
	if user == "" {
		user = "neo4j"
	}

	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(user, cfg.Password, ""), func(c *neo4j.Config) {
		c.SocketConnectTimeout = connectTimeout
	})
	if err != nil {
		return nil, fmt.Errorf("%w: init neo4j driver: %w", domain.ErrStoreUnavailable, err)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := driver.VerifyConnectivity(verifyCtx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("%w: verify neo4j connectivity: %w", domain.ErrStoreUnavailable, err)
	}

	g := &GraphStore{driver: driver, database: cfg.Database}
	g.ensureSchema(ctx)
	return g, nil
}

// ensureSchema creates the key constraint. Failures are logged and ignored.
func (g *GraphStore) ensureSchema(ctx context.Context) {
	stmts := []string{
		`CREATE CONSTRAINT fusionqa_entity_key IF NOT EXISTS FOR (e:Entity) REQUIRE e.key IS UNIQUE`,
	}
	for _, q := range stmts {
		if _, err := g.run(ctx, q, nil, false); err != nil {
			logger.Warn("neo4j schema init failed (continuing): %v", err)
		}
	}
}

func (g *GraphStore) run(ctx context.Context, query string, params map[string]any, read bool) (*neo4j.EagerResult, error) {
	opts := []neo4j.ExecuteQueryConfigurationOption{neo4j.ExecuteQueryWithDatabase(g.database)}
	if read {
		opts = append(opts, neo4j.ExecuteQueryWithReadersRouting())
	}
	res, err := neo4j.ExecuteQuery(ctx, g.driver, query, params, neo4j.EagerResultTransformer, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return res, nil
}

// Upsert merges entities, then relations grouped by type, in one write
// transaction.
func (g *GraphStore) Upsert(ctx context.Context, entities []domain.Entity, relations []domain.Relation) error {
	entityParams, err := entityRows(entities, relations)
	if err != nil {
		return err
	}
	relationGroups, err := relationRows(relations)
	if err != nil {
		return err
	}
	if len(entityParams) == 0 && len(relationGroups) == 0 {
		return nil
	}

	session := g.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: g.database,
	})
	defer session.Close(ctx)

	_, err = session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, group := range groupEntitiesByType(entityParams) {
			res, err := tx.Run(ctx, mergeEntitiesQuery(group.label), map[string]any{"entities": group.rows})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		for _, group := range relationGroups {
			res, err := tx.Run(ctx, mergeRelationsQuery(group.label), map[string]any{"relations": group.rows})
			if err != nil {
				return nil, err
			}
			if _, err := res.Consume(ctx); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("%w: neo4j upsert: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func mergeEntitiesQuery(label string) string {
	return `
UNWIND $entities AS e
MERGE (n:Entity {key: e.key})
ON CREATE SET n.name = e.name, n.type = e.type, n.aliases = e.aliases, n.created_at = timestamp()
ON MATCH SET n.aliases = reduce(acc = coalesce(n.aliases, []),
	a IN (CASE WHEN e.name <> n.name THEN [e.name] ELSE [] END) + e.aliases |
	CASE WHEN toLower(a) IN [x IN acc | toLower(x)] THEN acc ELSE acc + a END)
SET n:` + label
}

func mergeRelationsQuery(relType string) string {
	return `
UNWIND $relations AS r
MATCH (s:Entity {key: r.source_key})
MATCH (t:Entity {key: r.target_key})
MERGE (s)-[rel:` + relType + ` {key: r.key}]->(t)
ON CREATE SET rel.provenance = [], rel.created_at = timestamp()
SET rel.provenance = reduce(acc = rel.provenance, p IN r.provenance |
	CASE WHEN p IN acc THEN acc ELSE acc + p END)`
}

type entityGroup struct {
	label string
	rows  []map[string]any
}

// entityRows flattens entities and relation endpoints, in order, into
// query parameters.
func entityRows(entities []domain.Entity, relations []domain.Relation) ([]map[string]any, error) {
	all := make([]domain.Entity, 0, len(entities)+2*len(relations))
	all = append(all, entities...)
	for _, r := range relations {
		all = append(all,
			domain.Entity{Name: r.Source.Name, Type: r.Source.Type},
			domain.Entity{Name: r.Target.Name, Type: r.Target.Type})
	}

	rows := make([]map[string]any, 0, len(all))
	for _, e := range all {
		name := domain.NormaliseName(e.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: entity with empty name", domain.ErrInvalidInput)
		}
		if !identifier.MatchString(string(e.Type)) {
			return nil, fmt.Errorf("%w: entity type %q", domain.ErrInvalidInput, e.Type)
		}
		rows = append(rows, map[string]any{
			"key":     e.Key(),
			"name":    name,
			"type":    string(e.Type),
			"aliases": domain.MergeAliases(nil, e.Aliases),
		})
	}
	return rows, nil
}

func groupEntitiesByType(rows []map[string]any) []entityGroup {
	var groups []entityGroup
	index := make(map[string]int)
	for _, row := range rows {
		label := row["type"].(string)
		i, ok := index[label]
		if !ok {
			i = len(groups)
			index[label] = i
			groups = append(groups, entityGroup{label: label})
		}
		groups[i].rows = append(groups[i].rows, row)
	}
	return groups
}

func relationRows(relations []domain.Relation) ([]entityGroup, error) {
	var groups []entityGroup
	index := make(map[string]int)
	for _, r := range relations {
		label := string(r.Type)
		if !identifier.MatchString(label) {
			return nil, fmt.Errorf("%w: relation type %q", domain.ErrInvalidInput, r.Type)
		}
		i, ok := index[label]
		if !ok {
			i = len(groups)
			index[label] = i
			groups = append(groups, entityGroup{label: label})
		}
		groups[i].rows = append(groups[i].rows, map[string]any{
			"key":        r.Key(),
			"source_key": r.Source.Key(),
			"target_key": r.Target.Key(),
			"provenance": encodeProvenance(r.Provenance),
		})
	}
	return groups, nil
}

func encodeProvenance(prov []domain.Provenance) []string {
	out := make([]string, 0, len(prov))
	for _, p := range domain.MergeProvenance(nil, prov) {
		out = append(out, p.SourceID+provenanceSep+p.ChunkID)
	}
	return out
}

func decodeProvenance(raw any) []domain.Provenance {
	list, _ := raw.([]any)
	out := make([]domain.Provenance, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			continue
		}
		source, chunk, _ := strings.Cut(s, provenanceSep)
		out = append(out, domain.Provenance{SourceID: source, ChunkID: chunk})
	}
	return out
}

// QueryPaths performs a bounded breadth-first traversal from seeds.
func (g *GraphStore) QueryPaths(ctx context.Context, seeds []domain.EntityRef, q domain.PathQuery) ([]domain.GraphPath, error) {
	return graphwalk.Walk(ctx, g, seeds, q)
}

// Node looks up a node by canonical key.
func (g *GraphStore) Node(ctx context.Context, key string) (graphwalk.Node, bool, error) {
	res, err := g.run(ctx, `MATCH (n:Entity {key: $key}) RETURN n.name AS name, n.type AS type`,
		map[string]any{"key": key}, true)
	if err != nil {
		return graphwalk.Node{}, false, err
	}
	if len(res.Records) == 0 {
		return graphwalk.Node{}, false, nil
	}
	rec := res.Records[0]
	return graphwalk.Node{
		Key:  key,
		Name: stringValue(rec, "name"),
		Type: domain.EntityType(stringValue(rec, "type")),
	}, true, nil
}

// Incident returns the edges touching key in creation order.
func (g *GraphStore) Incident(ctx context.Context, key string) ([]graphwalk.Edge, error) {
	res, err := g.run(ctx, `
MATCH (n:Entity {key: $key})-[r]-(:Entity)
RETURN DISTINCT r.key AS key, startNode(r).key AS source, endNode(r).key AS target,
	type(r) AS type, r.provenance AS provenance, r.created_at AS created_at
ORDER BY created_at, key`, map[string]any{"key": key}, true)
	if err != nil {
		return nil, err
	}

	edges := make([]graphwalk.Edge, 0, len(res.Records))
	for _, rec := range res.Records {
		prov, _ := rec.Get("provenance")
		edges = append(edges, graphwalk.Edge{
			Key:        stringValue(rec, "key"),
			Source:     stringValue(rec, "source"),
			Target:     stringValue(rec, "target"),
			Relation:   domain.RelationType(stringValue(rec, "type")),
			Provenance: decodeProvenance(prov),
		})
	}
	return edges, nil
}

// FindEntities returns entities whose name or an alias contains one of the
// names, case-insensitively, in creation order.
func (g *GraphStore) FindEntities(ctx context.Context, names []string, limitPerName int) ([]domain.Entity, error) {
	if limitPerName <= 0 {
		limitPerName = DefaultSeedsPerName
	}

	seen := make(map[string]struct{})
	var out []domain.Entity
	for _, name := range names {
		needle := strings.ToLower(domain.NormaliseName(name))
		if needle == "" {
			continue
		}
		res, err := g.run(ctx, `
MATCH (n:Entity)
WHERE toLower(n.name) CONTAINS $needle OR any(a IN coalesce(n.aliases, []) WHERE toLower(a) CONTAINS $needle)
RETURN n.key AS key, n.name AS name, n.type AS type, n.aliases AS aliases
ORDER BY n.created_at, n.key
LIMIT $limit`, map[string]any{"needle": needle, "limit": limitPerName}, true)
		if err != nil {
			return nil, err
		}
		for _, rec := range res.Records {
			key := stringValue(rec, "key")
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, domain.Entity{
				Name:    stringValue(rec, "name"),
				Type:    domain.EntityType(stringValue(rec, "type")),
				Aliases: stringList(rec, "aliases"),
			})
		}
	}
	return out, nil
}

// EntitiesForChunks returns endpoints of edges citing any of the chunks.
func (g *GraphStore) EntitiesForChunks(ctx context.Context, chunkIDs []string) ([]domain.EntityRef, error) {
	if len(chunkIDs) == 0 {
		return nil, nil
	}
	res, err := g.run(ctx, `
MATCH (s:Entity)-[r]->(t:Entity)
WHERE any(p IN coalesce(r.provenance, []) WHERE split(p, $sep)[1] IN $chunks)
RETURN s.key AS skey, s.name AS sname, s.type AS stype, t.key AS tkey, t.name AS tname, t.type AS ttype
ORDER BY r.created_at, r.key`, map[string]any{"sep": provenanceSep, "chunks": chunkIDs}, true)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var out []domain.EntityRef
	for _, rec := range res.Records {
		for _, prefix := range []string{"s", "t"} {
			key := stringValue(rec, prefix+"key")
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, domain.EntityRef{
				Name: stringValue(rec, prefix+"name"),
				Type: domain.EntityType(stringValue(rec, prefix+"type")),
			})
		}
	}
	return out, nil
}

// RemoveSource drops a source's provenance and any edge left without any.
func (g *GraphStore) RemoveSource(ctx context.Context, sourceID string) error {
	_, err := g.run(ctx, `
MATCH (:Entity)-[r]->(:Entity)
WHERE any(p IN coalesce(r.provenance, []) WHERE split(p, $sep)[0] = $source)
SET r.provenance = [p IN r.provenance WHERE split(p, $sep)[0] <> $source]
WITH r WHERE size(r.provenance) = 0
DELETE r`, map[string]any{"sep": provenanceSep, "source": sourceID}, false)
	return err
}

// Stats returns node, edge and entity type counts.
func (g *GraphStore) Stats(ctx context.Context) (domain.GraphStats, error) {
	stats := domain.GraphStats{EntityTypeCounts: make(map[string]int)}

	res, err := g.run(ctx, `
MATCH (n:Entity)
RETURN n.type AS type, count(n) AS count`, nil, true)
	if err != nil {
		return domain.GraphStats{}, err
	}
	for _, rec := range res.Records {
		n := intValue(rec, "count")
		stats.EntityTypeCounts[stringValue(rec, "type")] = n
		stats.NodeCount += n
	}

	res, err = g.run(ctx, `MATCH (:Entity)-[r]->(:Entity) RETURN count(r) AS count`, nil, true)
	if err != nil {
		return domain.GraphStats{}, err
	}
	if len(res.Records) > 0 {
		stats.EdgeCount = intValue(res.Records[0], "count")
	}
	return stats, nil
}

// Snapshot returns up to limit edges with their endpoints. A graph without
// edges yields up to limit isolated nodes.
func (g *GraphStore) Snapshot(ctx context.Context, limit int) (domain.GraphSnapshot, error) {
	snap := domain.GraphSnapshot{Nodes: []domain.GraphNode{}, Edges: []domain.GraphEdge{}}
	if limit <= 0 {
		return snap, nil
	}

	res, err := g.run(ctx, `
MATCH (s:Entity)-[r]->(t:Entity)
RETURN s.key AS skey, s.name AS sname, s.type AS stype,
	t.key AS tkey, t.name AS tname, t.type AS ttype,
	type(r) AS type, size(coalesce(r.provenance, [])) AS support
ORDER BY r.created_at, r.key
LIMIT $limit`, map[string]any{"limit": limit}, true)
	if err != nil {
		return snap, err
	}

	included := make(map[string]struct{})
	addNode := func(rec *neo4j.Record, prefix string) {
		key := stringValue(rec, prefix+"key")
		if _, ok := included[key]; ok {
			return
		}
		included[key] = struct{}{}
		snap.Nodes = append(snap.Nodes, domain.GraphNode{
			ID:   key,
			Name: stringValue(rec, prefix+"name"),
			Type: domain.EntityType(stringValue(rec, prefix+"type")),
		})
	}
	for _, rec := range res.Records {
		addNode(rec, "s")
		addNode(rec, "t")
		snap.Edges = append(snap.Edges, domain.GraphEdge{
			Source:   stringValue(rec, "skey"),
			Target:   stringValue(rec, "tkey"),
			Relation: domain.RelationType(stringValue(rec, "type")),
			Support:  intValue(rec, "support"),
		})
	}
	if len(snap.Edges) > 0 {
		return snap, nil
	}

	res, err = g.run(ctx, `
MATCH (n:Entity)
RETURN n.key AS key, n.name AS name, n.type AS type
ORDER BY n.created_at, n.key
LIMIT $limit`, map[string]any{"limit": limit}, true)
	if err != nil {
		return snap, err
	}
	for _, rec := range res.Records {
		snap.Nodes = append(snap.Nodes, domain.GraphNode{
			ID:   stringValue(rec, "key"),
			Name: stringValue(rec, "name"),
			Type: domain.EntityType(stringValue(rec, "type")),
		})
	}
	return snap, nil
}

// Close closes the driver.
func (g *GraphStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	return g.driver.Close(ctx)
}

func stringValue(rec *neo4j.Record, key string) string {
	v, _ := rec.Get(key)
	s, _ := v.(string)
	return s
}

func intValue(rec *neo4j.Record, key string) int {
	v, _ := rec.Get(key)
	n, _ := v.(int64)
	return int(n)
}

func stringList(rec *neo4j.Record, key string) []string {
	v, _ := rec.Get(key)
	list, _ := v.([]any)
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
