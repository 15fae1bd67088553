package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jxitc/info-agent-sub000/pkg/memory/retrieve"
)

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend != "sqlite" {
		t.Fatalf("default backend should be sqlite, got %q", cfg.Backend)
	}
	if cfg.Retrieve.RRFK != retrieve.DefaultRRFK {
		t.Fatalf("default rrf_k should be %v, got %v", retrieve.DefaultRRFK, cfg.Retrieve.RRFK)
	}
	if cfg.Retrieve.HalfLife != 30*24*time.Hour {
		t.Fatalf("default half-life should be 30d, got %v", cfg.Retrieve.HalfLife)
	}
	if cfg.Retrieve.SourceTimeout != 3*time.Second {
		t.Fatalf("default source timeout should be 3s, got %v", cfg.Retrieve.SourceTimeout)
	}
}

func TestLoadFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "infoagent.yaml")
	yaml := `
backend: postgres
postgres:
  dsn: postgres://localhost/memories
embed:
  provider: ollama
  model: nomic-embed-text
retrieve:
  max_hops: 3
  relationship_phrases: ["quien", "conoce a"]
  weights:
    semantic: 0.3
    exact_match: 0.2
    recency: 0.1
    centrality: 0.1
    relationship: 0.1
    entity: 0.1
    reliability: 0.1
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("INFOAGENT_BACKEND", "mongo")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend != "mongo" {
		t.Fatalf("env must override file, got backend %q", cfg.Backend)
	}
	if cfg.Postgres.DSN != "postgres://localhost/memories" {
		t.Fatalf("dsn not read: %q", cfg.Postgres.DSN)
	}
	if cfg.Embed.Provider != "ollama" || cfg.Embed.Model != "nomic-embed-text" {
		t.Fatalf("embed config not read: %+v", cfg.Embed)
	}

	opts := cfg.EngineOptions()
	if opts.MaxHops != 3 {
		t.Fatalf("max hops should flow into options, got %d", opts.MaxHops)
	}
	if len(opts.RelationshipPhrases) != 2 || opts.RelationshipPhrases[0] != "quien" {
		t.Fatalf("relationship phrases not mapped: %v", opts.RelationshipPhrases)
	}
	if opts.Weights.Semantic != 0.3 {
		t.Fatalf("weights not mapped: %+v", opts.Weights)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load("/definitely/not/here.yaml"); err == nil {
		t.Fatal("explicit missing config file must error")
	}
}
