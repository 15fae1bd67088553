package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jxitc/info-agent-sub000/pkg/memory/model"
)

type runCall struct {
	query  string
	params map[string]any
}

type fakeDriver struct {
	writeSession *fakeSession
	readSession  *fakeSession
	closed       bool
}

func (d *fakeDriver) NewSession(_ context.Context, config Neo4jSessionConfig) (neo4jSession, error) {
	switch config.AccessMode {
	case AccessModeWrite:
		if d.writeSession == nil {
			d.writeSession = &fakeSession{}
		}
		return d.writeSession, nil
	case AccessModeRead:
		if d.readSession == nil {
			d.readSession = &fakeSession{}
		}
		return d.readSession, nil
	default:
		return nil, errors.New("unknown access mode")
	}
}

func (d *fakeDriver) Close(context.Context) error {
	d.closed = true
	return nil
}

type fakeSession struct {
	tx       *fakeTx
	runCalls []runCall
	result   neo4jResult
	closed   bool
}

func (s *fakeSession) BeginTransaction(context.Context) (neo4jTransaction, error) {
	if s.tx == nil {
		s.tx = &fakeTx{}
	}
	return s.tx, nil
}

func (s *fakeSession) Run(_ context.Context, query string, params map[string]any) (neo4jResult, error) {
	s.runCalls = append(s.runCalls, runCall{query: query, params: params})
	if s.result != nil {
		return s.result, nil
	}
	return &fakeResult{}, nil
}

func (s *fakeSession) Close(context.Context) error {
	s.closed = true
	return nil
}

type fakeTx struct {
	runs       []runCall
	committed  bool
	rolledBack bool
}

func (tx *fakeTx) Run(_ context.Context, query string, params map[string]any) (neo4jResult, error) {
	tx.runs = append(tx.runs, runCall{query: query, params: params})
	return &fakeResult{}, nil
}

func (tx *fakeTx) Commit(context.Context) error {
	tx.committed = true
	return nil
}

func (tx *fakeTx) Rollback(context.Context) error {
	tx.rolledBack = true
	return nil
}

func (tx *fakeTx) Close(context.Context) error { return nil }

type fakeResult struct {
	records []map[string]any
	idx     int
}

func (r *fakeResult) Next(context.Context) bool {
	if r.idx >= len(r.records) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeResult) Record() neo4jRecord {
	if r.idx == 0 || r.idx > len(r.records) {
		return fakeRecord(nil)
	}
	return fakeRecord(r.records[r.idx-1])
}

func (r *fakeResult) Err() error { return nil }

func (r *fakeResult) Close(context.Context) error { return nil }

type fakeRecord map[string]any

func (r fakeRecord) Get(key string) (any, bool) {
	if r == nil {
		return nil, false
	}
	v, ok := r[key]
	return v, ok
}

func TestNeo4jPutMemoryMirrorsGraph(t *testing.T) {
	driver := &fakeDriver{}
	base := NewInMemoryStore()
	s, err := NewNeo4jStore(base, driver, "memories")
	if err != nil {
		t.Fatalf("NewNeo4jStore: %v", err)
	}

	id, err := s.PutMemory(context.Background(), model.MemoryRecord{
		Title:   "Standup notes",
		Content: "Standup notes for Tuesday.",
	}, []model.GraphEdge{{Target: 7, Type: model.EdgeFollows}})
	if err != nil {
		t.Fatalf("PutMemory: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected id from base store")
	}

	tx := driver.writeSession.tx
	if tx == nil || !tx.committed {
		t.Fatalf("expected a committed graph transaction")
	}
	// node upsert, stale-edge delete, one edge upsert
	if len(tx.runs) != 3 {
		t.Fatalf("expected 3 tx statements, got %d", len(tx.runs))
	}
	if tx.runs[0].params["id"] != id {
		t.Fatalf("node upsert used id %v, want %v", tx.runs[0].params["id"], id)
	}
	if tx.runs[2].params["edge_type"] != string(model.EdgeFollows) {
		t.Fatalf("edge upsert carried type %v", tx.runs[2].params["edge_type"])
	}
}

func TestNeo4jSeeds(t *testing.T) {
	driver := &fakeDriver{
		readSession: &fakeSession{
			result: &fakeResult{records: []map[string]any{
				{"id": int64(3)},
				{"id": int64(9)},
			}},
		},
	}
	s, err := NewNeo4jStore(NewInMemoryStore(), driver, "")
	if err != nil {
		t.Fatalf("NewNeo4jStore: %v", err)
	}
	ids, err := s.Seeds(context.Background(), []string{"Sarah"}, 5)
	if err != nil {
		t.Fatalf("Seeds: %v", err)
	}
	if len(ids) != 2 || ids[0] != 3 || ids[1] != 9 {
		t.Fatalf("unexpected seed ids %v", ids)
	}
	params := driver.readSession.runCalls[0].params
	terms, _ := params["terms"].([]string)
	if len(terms) != 1 || terms[0] != "sarah" {
		t.Fatalf("terms should be normalized, got %v", params["terms"])
	}
}

func TestNeo4jNeighborhoodStitchesPath(t *testing.T) {
	driver := &fakeDriver{
		readSession: &fakeSession{
			result: &fakeResult{records: []map[string]any{
				{
					"id":          int64(12),
					"title":       "Atlas retro",
					"content":     "Retro notes.",
					"fields":      `{"project":"Atlas"}`,
					"created_at":  "2026-03-01T10:00:00Z",
					"hops":        int64(2),
					"node_titles": []any{"Meeting with Sarah", "", "Atlas retro"},
					"node_ids":    []any{int64(1), int64(5), int64(12)},
					"edge_types":  []any{"mentions", "follows"},
				},
			}},
		},
	}
	s, err := NewNeo4jStore(NewInMemoryStore(), driver, "")
	if err != nil {
		t.Fatalf("NewNeo4jStore: %v", err)
	}
	neighbors, err := s.Neighborhood(context.Background(), []int64{1}, 2, 10)
	if err != nil {
		t.Fatalf("Neighborhood: %v", err)
	}
	if len(neighbors) != 1 {
		t.Fatalf("expected 1 neighbor, got %d", len(neighbors))
	}
	n := neighbors[0]
	if n.Record.ID != 12 || n.Hops != 2 {
		t.Fatalf("unexpected neighbor %+v", n)
	}
	want := "Meeting with Sarah -mentions-> #5 -follows-> Atlas retro"
	if n.Path != want {
		t.Fatalf("path %q, want %q", n.Path, want)
	}
	if model.StringFromAny(n.Record.Field("project")) != "Atlas" {
		t.Fatalf("dynamic fields not decoded: %v", n.Record.DynamicFields)
	}
	if !strings.Contains(driver.readSession.runCalls[0].query, "*1..2") {
		t.Fatalf("hop cap not inlined into query")
	}
}

func TestNeo4jRequiresDriver(t *testing.T) {
	if _, err := NewNeo4jStore(NewInMemoryStore(), nil, ""); err == nil {
		t.Fatalf("expected error for nil driver")
	}
	if _, err := NewNeo4jStore(nil, &fakeDriver{}, ""); err == nil {
		t.Fatalf("expected error for nil base store")
	}
}
