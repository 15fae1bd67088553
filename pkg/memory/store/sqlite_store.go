package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jxitc/info-agent-sub000/pkg/memory/model"
)

// SQLiteStore is the default persistent backend. Embeddings are stored as
// JSON arrays and compared in process; structured and graph lookups run on
// the memories and memory_edges tables.
type SQLiteStore struct {
	db *sql.DB
}

var (
	_ Backend           = (*SQLiteStore)(nil)
	_ SchemaInitializer = (*SQLiteStore)(nil)
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS memories (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL,
	fields TEXT NOT NULL DEFAULT '{}',
	embedding TEXT,
	content_hash TEXT NOT NULL UNIQUE,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS memory_edges (
	from_id INTEGER NOT NULL,
	to_id INTEGER NOT NULL,
	edge_type TEXT NOT NULL,
	UNIQUE(from_id, to_id, edge_type),
	FOREIGN KEY (from_id) REFERENCES memories(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_memories_hash ON memories(content_hash);
CREATE INDEX IF NOT EXISTS idx_edges_from ON memory_edges(from_id);
CREATE INDEX IF NOT EXISTS idx_edges_to ON memory_edges(to_id);
`

// NewSQLiteStore opens (or creates) the database at path. Pass ":memory:"
// for an ephemeral database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.CreateSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) CreateSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) PutMemory(ctx context.Context, rec model.MemoryRecord, edges []model.GraphEdge) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("sqlite store is not open")
	}
	if rec.Content == "" {
		return 0, errors.New("memory content is empty")
	}
	hash := rec.ContentHash
	if hash == "" {
		hash = model.HashContent(rec.Content)
	}
	var existing int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM memories WHERE content_hash = ?`, hash).Scan(&existing)
	if err == nil {
		return existing, ErrDuplicateContent
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, err
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	var embedding any
	if len(rec.Embedding) > 0 {
		data, merr := json.Marshal(rec.Embedding)
		if merr != nil {
			return 0, merr
		}
		embedding = string(data)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO memories (title, content, fields, embedding, content_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.Title, rec.Content, model.EncodeFields(rec.DynamicFields), embedding, hash,
		createdAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("insert memory: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for _, edge := range model.ValidEdges(edges) {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO memory_edges (from_id, to_id, edge_type) VALUES (?, ?, ?)`,
			id, edge.Target, string(edge.Type)); err != nil {
			return 0, fmt.Errorf("insert edge: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// SearchFields narrows candidates with LIKE over the serialized row, then
// ranks them with the shared field matcher.
func (s *SQLiteStore) SearchFields(ctx context.Context, terms []string, limit int) ([]FieldMatch, error) {
	terms = NormalizeTerms(terms)
	if s == nil || s.db == nil || len(terms) == 0 || limit <= 0 {
		return nil, nil
	}
	conds := make([]string, 0, len(terms))
	args := make([]any, 0, len(terms)*3)
	for _, term := range terms {
		pattern := "%" + term + "%"
		conds = append(conds, "(title LIKE ? OR content LIKE ? OR fields LIKE ?)")
		args = append(args, pattern, pattern, pattern)
	}
	query := `SELECT id, title, content, fields, content_hash, created_at FROM memories WHERE ` +
		strings.Join(conds, " OR ")
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]FieldMatch, 0, limit)
	for rows.Next() {
		rec, err := scanSQLiteRecord(rows, false)
		if err != nil {
			return nil, err
		}
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

// SearchByVector scans every stored embedding. Fine for the personal-scale
// datasets this backend targets.
func (s *SQLiteStore) SearchByVector(ctx context.Context, queryEmbedding []float32, limit int) ([]model.MemoryRecord, error) {
	if s == nil || s.db == nil || len(queryEmbedding) == 0 || limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, content, fields, embedding, content_hash, created_at
		FROM memories WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scored := make([]model.MemoryRecord, 0, limit)
	for rows.Next() {
		rec, err := scanSQLiteRecord(rows, true)
		if err != nil {
			return nil, err
		}
		if len(rec.Embedding) == 0 {
			continue
		}
		rec.Score = ClampUnit(model.CosineSimilarity(queryEmbedding, rec.Embedding))
		scored = append(scored, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].CreatedAt.After(scored[j].CreatedAt)
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

func (s *SQLiteStore) Seeds(ctx context.Context, terms []string, limit int) ([]int64, error) {
	matches, err := s.SearchFields(ctx, terms, limit)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(matches))
	for i, m := range matches {
		ids[i] = m.Record.ID
	}
	return ids, nil
}

// Neighborhood loads the edge table and walks it breadth first in process.
func (s *SQLiteStore) Neighborhood(ctx context.Context, seedIDs []int64, maxHops, limit int) ([]GraphNeighbor, error) {
	if s == nil || s.db == nil || len(seedIDs) == 0 || maxHops <= 0 || limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT from_id, to_id, edge_type FROM memory_edges`)
	if err != nil {
		return nil, err
	}
	adjacency := make(map[int64][]model.GraphEdge)
	for rows.Next() {
		var from, to int64
		var edgeType string
		if err := rows.Scan(&from, &to, &edgeType); err != nil {
			rows.Close()
			return nil, err
		}
		adjacency[from] = append(adjacency[from], model.GraphEdge{Target: to, Type: model.EdgeType(edgeType)})
		adjacency[to] = append(adjacency[to], model.GraphEdge{Target: from, Type: model.EdgeType(edgeType)})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	type frontier struct {
		id   int64
		hops int
	}
	type reached struct {
		id     int64
		parent int64
		hops   int
		via    model.EdgeType
	}
	visited := make(map[int64]bool, len(seedIDs))
	queue := make([]frontier, 0, len(seedIDs))
	for _, id := range seedIDs {
		if visited[id] {
			continue
		}
		visited[id] = true
		queue = append(queue, frontier{id: id})
	}

	reachedNodes := make([]reached, 0)
	reachedBy := make(map[int64]reached)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.hops >= maxHops {
			continue
		}
		for _, edge := range adjacency[cur.id] {
			if visited[edge.Target] {
				continue
			}
			visited[edge.Target] = true
			r := reached{id: edge.Target, parent: cur.id, hops: cur.hops + 1, via: edge.Type}
			reachedNodes = append(reachedNodes, r)
			reachedBy[edge.Target] = r
			queue = append(queue, frontier{id: edge.Target, hops: r.hops})
		}
	}
	if len(reachedNodes) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(reachedNodes))
	for i, r := range reachedNodes {
		ids[i] = r.id
	}
	records, err := s.GetMemories(ctx, ids)
	if err != nil {
		return nil, err
	}

	// Paths render after the fetch so every node on the chain, intermediate
	// hops included, carries its title label.
	paths, err := s.labelsFor(ctx, seedIDs)
	if err != nil {
		return nil, err
	}
	var pathFor func(id int64) string
	pathFor = func(id int64) string {
		if p, ok := paths[id]; ok {
			return p
		}
		r := reachedBy[id]
		label := fmt.Sprintf("#%d", id)
		if rec, ok := records[id]; ok {
			label = PathLabel(rec)
		}
		p := fmt.Sprintf("%s -%s-> %s", pathFor(r.parent), r.via, label)
		paths[id] = p
		return p
	}

	neighbors := make([]GraphNeighbor, 0, len(reachedNodes))
	for _, r := range reachedNodes {
		rec, ok := records[r.id]
		if !ok {
			continue
		}
		neighbors = append(neighbors, GraphNeighbor{
			Record: rec,
			Hops:   r.hops,
			Path:   pathFor(r.id),
		})
	}
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Hops != neighbors[j].Hops {
			return neighbors[i].Hops < neighbors[j].Hops
		}
		return neighbors[i].Record.CreatedAt.After(neighbors[j].Record.CreatedAt)
	})
	if len(neighbors) > limit {
		neighbors = neighbors[:limit]
	}
	return neighbors, nil
}

func (s *SQLiteStore) GetMemories(ctx context.Context, ids []int64) (map[int64]model.MemoryRecord, error) {
	if s == nil || s.db == nil || len(ids) == 0 {
		return map[int64]model.MemoryRecord{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, content, fields, embedding, content_hash, created_at
		FROM memories WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]model.MemoryRecord, len(ids))
	for rows.Next() {
		rec, err := scanSQLiteRecord(rows, true)
		if err != nil {
			return nil, err
		}
		out[rec.ID] = rec
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories`).Scan(&n)
	return n, err
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) labelsFor(ctx context.Context, ids []int64) (map[int64]string, error) {
	records, err := s.GetMemories(ctx, ids)
	if err != nil {
		return nil, err
	}
	labels := make(map[int64]string, len(ids))
	for _, id := range ids {
		if rec, ok := records[id]; ok {
			labels[id] = PathLabel(rec)
		} else {
			labels[id] = fmt.Sprintf("#%d", id)
		}
	}
	return labels, nil
}

func scanSQLiteRecord(rows *sql.Rows, withEmbedding bool) (model.MemoryRecord, error) {
	var rec model.MemoryRecord
	var fields, createdAt string
	var embedding sql.NullString
	var err error
	if withEmbedding {
		err = rows.Scan(&rec.ID, &rec.Title, &rec.Content, &fields, &embedding, &rec.ContentHash, &createdAt)
	} else {
		err = rows.Scan(&rec.ID, &rec.Title, &rec.Content, &fields, &rec.ContentHash, &createdAt)
	}
	if err != nil {
		return rec, err
	}
	rec.DynamicFields = model.DecodeFields(fields)
	if embedding.Valid && embedding.String != "" {
		_ = json.Unmarshal([]byte(embedding.String), &rec.Embedding)
	}
	rec.CreatedAt = model.TimeFromAny(createdAt)
	return rec, nil
}
