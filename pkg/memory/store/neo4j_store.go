package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jxitc/info-agent-sub000/pkg/memory/model"
)

// Neo4jAccessMode controls whether a session is opened for read or write
// operations.
type Neo4jAccessMode string

const (
	AccessModeWrite Neo4jAccessMode = "write"
	AccessModeRead  Neo4jAccessMode = "read"
)

// Neo4jSessionConfig mirrors the minimal subset of Neo4j session
// configuration we require.
type Neo4jSessionConfig struct {
	AccessMode   Neo4jAccessMode
	DatabaseName string
}

// neo4jDriver abstracts the Neo4j driver capabilities used by the store so
// tests can provide lightweight fakes. The real driver sits behind the
// optional "neo4j" build tag.
type neo4jDriver interface {
	NewSession(ctx context.Context, config Neo4jSessionConfig) (neo4jSession, error)
	Close(ctx context.Context) error
}

type neo4jSession interface {
	BeginTransaction(ctx context.Context) (neo4jTransaction, error)
	Run(ctx context.Context, query string, params map[string]any) (neo4jResult, error)
	Close(ctx context.Context) error
}

type neo4jTransaction interface {
	Run(ctx context.Context, query string, params map[string]any) (neo4jResult, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
	Close(ctx context.Context) error
}

type neo4jResult interface {
	Next(ctx context.Context) bool
	Record() neo4jRecord
	Err() error
	Close(ctx context.Context) error
}

type neo4jRecord interface {
	Get(key string) (any, bool)
}

// ErrNeo4jUnavailable is returned when graph operations are attempted
// without a configured driver.
var ErrNeo4jUnavailable = errors.New("neo4j driver not configured")

// Neo4jStore composes a base backend with a Neo4j-resident knowledge graph.
// Structured and vector lookups stay delegated to the base store; seed
// resolution and neighborhood walks run as Cypher.
type Neo4jStore struct {
	base     Backend
	driver   neo4jDriver
	database string
	nowFn    func() time.Time
}

var _ Backend = (*Neo4jStore)(nil)

func NewNeo4jStore(base Backend, driver neo4jDriver, database string) (*Neo4jStore, error) {
	if base == nil {
		return nil, errors.New("base store is nil")
	}
	if driver == nil {
		return nil, errors.New("neo4j driver is nil")
	}
	return &Neo4jStore{base: base, driver: driver, database: database, nowFn: time.Now}, nil
}

// PutMemory stores the record in the base backend and mirrors the node plus
// its outgoing edges into the graph.
func (s *Neo4jStore) PutMemory(ctx context.Context, rec model.MemoryRecord, edges []model.GraphEdge) (int64, error) {
	id, err := s.base.PutMemory(ctx, rec, edges)
	if err != nil {
		return id, err
	}
	rec.ID = id
	if upErr := s.upsertGraph(ctx, rec, edges); upErr != nil {
		return id, fmt.Errorf("memory %d stored but graph sync failed: %w", id, upErr)
	}
	return id, nil
}

func (s *Neo4jStore) SearchFields(ctx context.Context, terms []string, limit int) ([]FieldMatch, error) {
	return s.base.SearchFields(ctx, terms, limit)
}

func (s *Neo4jStore) SearchByVector(ctx context.Context, queryEmbedding []float32, limit int) ([]model.MemoryRecord, error) {
	return s.base.SearchByVector(ctx, queryEmbedding, limit)
}

func (s *Neo4jStore) GetMemories(ctx context.Context, ids []int64) (map[int64]model.MemoryRecord, error) {
	return s.base.GetMemories(ctx, ids)
}

func (s *Neo4jStore) Count(ctx context.Context) (int, error) {
	return s.base.Count(ctx)
}

// CreateSchema delegates to the base store when it supports bootstrap and
// ensures the graph constraints exist.
func (s *Neo4jStore) CreateSchema(ctx context.Context) error {
	if initializer, ok := s.base.(SchemaInitializer); ok {
		if err := initializer.CreateSchema(ctx); err != nil {
			return err
		}
	}
	if s.driver == nil {
		return nil
	}
	session, err := s.driver.NewSession(ctx, Neo4jSessionConfig{AccessMode: AccessModeWrite, DatabaseName: s.database})
	if err != nil {
		return fmt.Errorf("neo4j new session: %w", err)
	}
	defer session.Close(ctx)
	queries := []string{
		"CREATE CONSTRAINT IF NOT EXISTS FOR (m:Memory) REQUIRE m.id IS UNIQUE",
		"CREATE INDEX IF NOT EXISTS FOR ()-[r:LINKS]-() ON (r.target_id)",
	}
	for _, query := range queries {
		res, runErr := session.Run(ctx, query, nil)
		if runErr != nil {
			return fmt.Errorf("neo4j schema query: %w", runErr)
		}
		if res != nil {
			_ = res.Close(ctx)
		}
	}
	return nil
}

func (s *Neo4jStore) Close() error {
	var errs []string
	if err := s.base.Close(); err != nil {
		errs = append(errs, err.Error())
	}
	if s.driver != nil {
		if err := s.driver.Close(context.Background()); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func (s *Neo4jStore) upsertGraph(ctx context.Context, rec model.MemoryRecord, edges []model.GraphEdge) error {
	if s.driver == nil {
		return ErrNeo4jUnavailable
	}
	if rec.ID == 0 {
		return nil
	}
	session, err := s.driver.NewSession(ctx, Neo4jSessionConfig{AccessMode: AccessModeWrite, DatabaseName: s.database})
	if err != nil {
		return fmt.Errorf("neo4j new session: %w", err)
	}
	defer session.Close(ctx)
	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		return fmt.Errorf("neo4j begin tx: %w", err)
	}
	defer tx.Close(ctx)

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	params := map[string]any{
		"id":           rec.ID,
		"title":        rec.Title,
		"content":      rec.Content,
		"fields":       model.EncodeFields(rec.DynamicFields),
		"content_hash": rec.ContentHash,
		"created_at":   createdAt.UTC().Format(time.RFC3339Nano),
		"updated_at":   s.now().UTC().Format(time.RFC3339Nano),
	}
	res, err := tx.Run(ctx, neo4jUpsertNodeCypher, params)
	if err != nil {
		tx.Rollback(ctx)
		return fmt.Errorf("neo4j upsert node: %w", err)
	}
	if res != nil {
		_ = res.Close(ctx)
	}
	res, err = tx.Run(ctx, "MATCH (m:Memory {id: $id})-[r:LINKS]->() DELETE r", map[string]any{"id": rec.ID})
	if err != nil {
		tx.Rollback(ctx)
		return fmt.Errorf("neo4j delete edges: %w", err)
	}
	if res != nil {
		_ = res.Close(ctx)
	}
	for _, edge := range model.ValidEdges(edges) {
		res, err = tx.Run(ctx, neo4jUpsertEdgeCypher, map[string]any{
			"from":      rec.ID,
			"target":    edge.Target,
			"edge_type": string(edge.Type),
		})
		if err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("neo4j upsert edge: %w", err)
		}
		if res != nil {
			_ = res.Close(ctx)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		tx.Rollback(ctx)
		return fmt.Errorf("neo4j commit: %w", err)
	}
	return nil
}

func (s *Neo4jStore) Seeds(ctx context.Context, terms []string, limit int) ([]int64, error) {
	if s.driver == nil {
		return nil, ErrNeo4jUnavailable
	}
	terms = NormalizeTerms(terms)
	if len(terms) == 0 || limit <= 0 {
		return nil, nil
	}
	session, err := s.driver.NewSession(ctx, Neo4jSessionConfig{AccessMode: AccessModeRead, DatabaseName: s.database})
	if err != nil {
		return nil, fmt.Errorf("neo4j new session: %w", err)
	}
	defer session.Close(ctx)
	result, err := session.Run(ctx, neo4jSeedQuery, map[string]any{
		"terms": terms,
		"limit": limit,
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j seeds: %w", err)
	}
	defer result.Close(ctx)
	var ids []int64
	for result.Next(ctx) {
		rec := result.Record()
		if rec == nil {
			continue
		}
		if v, ok := rec.Get("id"); ok {
			if id := toInt64(v); id != 0 {
				ids = append(ids, id)
			}
		}
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// Neighborhood returns the shortest-path neighbors of the seeds, with the
// traversed edge types stitched into a readable path.
func (s *Neo4jStore) Neighborhood(ctx context.Context, seedIDs []int64, maxHops, limit int) ([]GraphNeighbor, error) {
	if s.driver == nil {
		return nil, ErrNeo4jUnavailable
	}
	if len(seedIDs) == 0 || maxHops <= 0 || limit <= 0 {
		return nil, nil
	}
	session, err := s.driver.NewSession(ctx, Neo4jSessionConfig{AccessMode: AccessModeRead, DatabaseName: s.database})
	if err != nil {
		return nil, fmt.Errorf("neo4j new session: %w", err)
	}
	defer session.Close(ctx)
	query := fmt.Sprintf(neo4jNeighborhoodQuery, maxHops)
	result, err := session.Run(ctx, query, map[string]any{
		"seed_ids": seedIDs,
		"limit":    limit,
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j neighborhood: %w", err)
	}
	defer result.Close(ctx)

	var neighbors []GraphNeighbor
	for result.Next(ctx) {
		rec := result.Record()
		if rec == nil {
			continue
		}
		neighbor, mapErr := mapNeo4jNeighbor(rec)
		if mapErr != nil {
			return nil, mapErr
		}
		neighbors = append(neighbors, neighbor)
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	return neighbors, nil
}

func (s *Neo4jStore) now() time.Time {
	if s == nil || s.nowFn == nil {
		return time.Now().UTC()
	}
	return s.nowFn().UTC()
}

const (
	neo4jUpsertNodeCypher = `
MERGE (m:Memory {id: $id})
ON CREATE SET m.created_at = $created_at
SET m.title = $title,
    m.content = $content,
    m.fields = $fields,
    m.content_hash = $content_hash,
    m.updated_at = $updated_at
`
	neo4jUpsertEdgeCypher = `
MATCH (m:Memory {id: $from})
MERGE (target:Memory {id: $target})
MERGE (m)-[r:LINKS {target_id: $target}]->(target)
SET r.edge_type = $edge_type
`
	neo4jSeedQuery = `
MATCH (m:Memory)
WHERE any(term IN $terms WHERE
	toLower(m.title) CONTAINS term OR
	toLower(m.content) CONTAINS term OR
	toLower(m.fields) CONTAINS term)
RETURN m.id AS id
ORDER BY m.id ASC
LIMIT $limit
`
	// The variable-length bound cannot be a parameter, so the hop cap is
	// inlined with %d.
	neo4jNeighborhoodQuery = `
UNWIND $seed_ids AS seed
MATCH (start:Memory {id: seed})
MATCH path = (start)-[:LINKS*1..%d]-(neighbor:Memory)
WHERE NOT neighbor.id IN $seed_ids
WITH neighbor, path ORDER BY length(path) ASC
WITH neighbor, collect(path)[0] AS shortest
RETURN neighbor.id AS id,
       neighbor.title AS title,
       neighbor.content AS content,
       neighbor.fields AS fields,
       neighbor.content_hash AS content_hash,
       neighbor.created_at AS created_at,
       length(shortest) AS hops,
       [n IN nodes(shortest) | coalesce(n.title, '')] AS node_titles,
       [n IN nodes(shortest) | n.id] AS node_ids,
       [r IN relationships(shortest) | r.edge_type] AS edge_types
ORDER BY hops ASC, neighbor.created_at DESC
LIMIT $limit
`
)

func mapNeo4jNeighbor(rec neo4jRecord) (GraphNeighbor, error) {
	if rec == nil {
		return GraphNeighbor{}, errors.New("neo4j record is nil")
	}
	var out GraphNeighbor
	if v, ok := rec.Get("id"); ok {
		out.Record.ID = toInt64(v)
	}
	if v, ok := rec.Get("title"); ok {
		out.Record.Title = toString(v)
	}
	if v, ok := rec.Get("content"); ok {
		out.Record.Content = toString(v)
	}
	if v, ok := rec.Get("fields"); ok {
		out.Record.DynamicFields = model.DecodeFields(toString(v))
	}
	if v, ok := rec.Get("content_hash"); ok {
		out.Record.ContentHash = toString(v)
	}
	if v, ok := rec.Get("created_at"); ok {
		out.Record.CreatedAt = model.TimeFromAny(toString(v))
	}
	if v, ok := rec.Get("hops"); ok {
		out.Hops = int(toInt64(v))
	}
	out.Path = stitchNeo4jPath(rec)
	return out, nil
}

// stitchNeo4jPath renders "a -type-> b -type-> c" from the node and edge
// lists the neighborhood query returns.
func stitchNeo4jPath(rec neo4jRecord) string {
	titles := anySlice(rec, "node_titles")
	ids := anySlice(rec, "node_ids")
	edges := anySlice(rec, "edge_types")
	if len(titles) == 0 || len(edges) != len(titles)-1 {
		return ""
	}
	label := func(i int) string {
		if t := toString(titles[i]); t != "" && t != "<nil>" {
			return t
		}
		if i < len(ids) {
			return fmt.Sprintf("#%d", toInt64(ids[i]))
		}
		return "?"
	}
	var b strings.Builder
	b.WriteString(label(0))
	for i, edge := range edges {
		fmt.Fprintf(&b, " -%s-> %s", toString(edge), label(i+1))
	}
	return b.String()
}

func anySlice(rec neo4jRecord, key string) []any {
	v, ok := rec.Get(key)
	if !ok {
		return nil
	}
	s, _ := v.([]any)
	return s
}

func toString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	}
	return fmt.Sprintf("%v", v)
}

func toInt64(v any) int64 {
	switch t := v.(type) {
	case int:
		return int64(t)
	case int32:
		return int64(t)
	case int64:
		return t
	case float32:
		return int64(t)
	case float64:
		return int64(t)
	}
	return 0
}
