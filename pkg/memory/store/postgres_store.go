package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jxitc/info-agent-sub000/pkg/memory/model"
)

// PostgresStore runs on Postgres with the pgvector extension. Semantic
// search happens in the database; structured ranking reuses the shared
// matcher over ILIKE-narrowed candidates; the neighborhood walk is a
// recursive CTE over memory_edges.
type PostgresStore struct {
	DB *pgxpool.Pool
}

var (
	_ Backend           = (*PostgresStore)(nil)
	_ SchemaInitializer = (*PostgresStore)(nil)
)

const postgresSchema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS memories (
	id BIGSERIAL PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL,
	fields JSONB NOT NULL DEFAULT '{}'::jsonb,
	embedding vector(768),
	content_hash TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS memory_edges (
	from_id BIGINT NOT NULL REFERENCES memories(id) ON DELETE CASCADE,
	to_id BIGINT NOT NULL,
	edge_type TEXT NOT NULL,
	UNIQUE(from_id, to_id, edge_type)
);

CREATE INDEX IF NOT EXISTS idx_memories_fields ON memories USING gin (fields);
CREATE INDEX IF NOT EXISTS idx_edges_from ON memory_edges(from_id);
CREATE INDEX IF NOT EXISTS idx_edges_to ON memory_edges(to_id);
`

func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return &PostgresStore{DB: db}, nil
}

func (ps *PostgresStore) CreateSchema(ctx context.Context) error {
	if ps == nil || ps.DB == nil {
		return nil
	}
	if _, err := ps.DB.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (ps *PostgresStore) PutMemory(ctx context.Context, rec model.MemoryRecord, edges []model.GraphEdge) (int64, error) {
	if ps == nil || ps.DB == nil {
		return 0, errors.New("postgres store is not open")
	}
	if rec.Content == "" {
		return 0, errors.New("memory content is empty")
	}
	hash := rec.ContentHash
	if hash == "" {
		hash = model.HashContent(rec.Content)
	}
	var existing int64
	err := ps.DB.QueryRow(ctx, `SELECT id FROM memories WHERE content_hash = $1`, hash).Scan(&existing)
	if err == nil {
		return existing, ErrDuplicateContent
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	tx, err := ps.DB.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO memories (title, content, fields, embedding, content_hash, created_at)
		VALUES ($1, $2, $3::jsonb, $4::vector, $5, $6)
		RETURNING id`,
		rec.Title, rec.Content, model.EncodeFields(rec.DynamicFields),
		vectorLiteral(rec.Embedding), hash, createdAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert memory: %w", err)
	}
	for _, edge := range model.ValidEdges(edges) {
		if _, err := tx.Exec(ctx, `
			INSERT INTO memory_edges (from_id, to_id, edge_type) VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING`,
			id, edge.Target, string(edge.Type)); err != nil {
			return 0, fmt.Errorf("insert edge: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return id, nil
}

func (ps *PostgresStore) SearchFields(ctx context.Context, terms []string, limit int) ([]FieldMatch, error) {
	terms = NormalizeTerms(terms)
	if ps == nil || ps.DB == nil || len(terms) == 0 || limit <= 0 {
		return nil, nil
	}
	conds := make([]string, 0, len(terms))
	args := make([]any, 0, len(terms))
	for i, term := range terms {
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR content ILIKE $%d OR fields::text ILIKE $%d)", i+1, i+1, i+1))
		args = append(args, "%"+term+"%")
	}
	rows, err := ps.DB.Query(ctx, `
		SELECT id, title, content, fields, content_hash, created_at
		FROM memories WHERE `+strings.Join(conds, " OR "), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]FieldMatch, 0, limit)
	for rows.Next() {
		var rec model.MemoryRecord
		var fields string
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Content, &fields, &rec.ContentHash, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.DynamicFields = model.DecodeFields(fields)
		if m, ok := BestFieldMatch(rec, terms); ok {
			matches = append(matches, m)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Exact != matches[j].Exact {
			return matches[i].Exact
		}
		return matches[i].Record.CreatedAt.After(matches[j].Record.CreatedAt)
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (ps *PostgresStore) SearchByVector(ctx context.Context, queryEmbedding []float32, limit int) ([]model.MemoryRecord, error) {
	if ps == nil || ps.DB == nil || len(queryEmbedding) == 0 || limit <= 0 {
		return nil, nil
	}
	rows, err := ps.DB.Query(ctx, `
		SELECT id, title, content, fields, content_hash, created_at,
		       1 - (embedding <=> $1::vector) AS score
		FROM memories
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1::vector
		LIMIT $2`, vectorLiteral(queryEmbedding), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.MemoryRecord
	for rows.Next() {
		var rec model.MemoryRecord
		var fields string
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Content, &fields, &rec.ContentHash, &rec.CreatedAt, &rec.Score); err != nil {
			return nil, err
		}
		rec.DynamicFields = model.DecodeFields(fields)
		rec.Score = ClampUnit(rec.Score)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (ps *PostgresStore) Seeds(ctx context.Context, terms []string, limit int) ([]int64, error) {
	matches, err := ps.SearchFields(ctx, terms, limit)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(matches))
	for i, m := range matches {
		ids[i] = m.Record.ID
	}
	return ids, nil
}

const postgresNeighborhoodQuery = `
WITH RECURSIVE walk(id, depth, path, seen) AS (
	SELECT m.id, 0, ARRAY[m.title], ARRAY[m.id]
	FROM memories m WHERE m.id = ANY($1)
	UNION ALL
	SELECT e.other, w.depth + 1,
	       w.path || (e.edge_type || ' -> ' || COALESCE(NULLIF(m.title, ''), '#' || m.id::text)),
	       w.seen || e.other
	FROM walk w
	JOIN LATERAL (
		SELECT to_id AS other, edge_type FROM memory_edges WHERE from_id = w.id
		UNION
		SELECT from_id AS other, edge_type FROM memory_edges WHERE to_id = w.id
	) e ON NOT e.other = ANY(w.seen)
	JOIN memories m ON m.id = e.other
	WHERE w.depth < $2
)
SELECT m.id, m.title, m.content, m.fields, m.content_hash, m.created_at,
       MIN(w.depth) AS hops,
       MIN(array_to_string(w.path, ' -')) AS path
FROM walk w
JOIN memories m ON m.id = w.id
WHERE w.depth > 0 AND NOT (m.id = ANY($1))
GROUP BY m.id, m.title, m.content, m.fields, m.content_hash, m.created_at
ORDER BY hops ASC, m.created_at DESC
LIMIT $3`

func (ps *PostgresStore) Neighborhood(ctx context.Context, seedIDs []int64, maxHops, limit int) ([]GraphNeighbor, error) {
	if ps == nil || ps.DB == nil || len(seedIDs) == 0 || maxHops <= 0 || limit <= 0 {
		return nil, nil
	}
	rows, err := ps.DB.Query(ctx, postgresNeighborhoodQuery, seedIDs, maxHops, limit)
	if err != nil {
		return nil, fmt.Errorf("neighborhood walk: %w", err)
	}
	defer rows.Close()

	var neighbors []GraphNeighbor
	for rows.Next() {
		var rec model.MemoryRecord
		var fields, path string
		var hops int
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Content, &fields, &rec.ContentHash, &rec.CreatedAt, &hops, &path); err != nil {
			return nil, err
		}
		rec.DynamicFields = model.DecodeFields(fields)
		neighbors = append(neighbors, GraphNeighbor{Record: rec, Hops: hops, Path: path})
	}
	return neighbors, rows.Err()
}

func (ps *PostgresStore) GetMemories(ctx context.Context, ids []int64) (map[int64]model.MemoryRecord, error) {
	if ps == nil || ps.DB == nil || len(ids) == 0 {
		return map[int64]model.MemoryRecord{}, nil
	}
	rows, err := ps.DB.Query(ctx, `
		SELECT id, title, content, fields, content_hash, created_at
		FROM memories WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]model.MemoryRecord, len(ids))
	for rows.Next() {
		var rec model.MemoryRecord
		var fields string
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Content, &fields, &rec.ContentHash, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.DynamicFields = model.DecodeFields(fields)
		out[rec.ID] = rec
	}
	return out, rows.Err()
}

func (ps *PostgresStore) Count(ctx context.Context) (int, error) {
	if ps == nil || ps.DB == nil {
		return 0, nil
	}
	var n int
	err := ps.DB.QueryRow(ctx, `SELECT COUNT(*) FROM memories`).Scan(&n)
	return n, err
}

func (ps *PostgresStore) Close() error {
	if ps == nil || ps.DB == nil {
		return nil
	}
	ps.DB.Close()
	return nil
}

// vectorLiteral renders a pgvector input literal, nil for empty vectors so
// the column stays NULL.
func vectorLiteral(vec []float32) any {
	if len(vec) == 0 {
		return nil
	}
	data, _ := json.Marshal(vec)
	return "[" + strings.Trim(string(data), "[]") + "]"
}
