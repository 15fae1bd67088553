package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jxitc/info-agent-sub000/internal/config"
	"github.com/jxitc/info-agent-sub000/pkg/memory/store"
)

// openBackend builds the configured storage backend. When neo4j is enabled
// the base backend keeps structured and vector duties while the graph moves
// to Neo4j.
func openBackend(cmd *cobra.Command, cfg *config.Config) (store.Backend, error) {
	ctx := cmd.Context()

	var (
		base store.Backend
		err  error
	)
	switch cfg.Backend {
	case "memory":
		base = store.NewInMemoryStore()
	case "sqlite", "":
		base, err = store.NewSQLiteStore(cfg.SQLite.Path)
	case "postgres":
		base, err = store.NewPostgresStore(ctx, cfg.Postgres.DSN)
	case "mongo":
		base, err = store.NewMongoStore(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
	default:
		return nil, fmt.Errorf("unknown backend %q (want memory|sqlite|postgres|mongo)", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", cfg.Backend, err)
	}

	if cfg.Neo4j.Enabled {
		wrapped, err := openNeo4j(cfg, base)
		if err != nil {
			base.Close()
			return nil, err
		}
		return wrapped, nil
	}
	return base, nil
}
