//go:build neo4j

package main

import (
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/jxitc/info-agent-sub000/internal/config"
	"github.com/jxitc/info-agent-sub000/pkg/memory/store"
)

func openNeo4j(cfg *config.Config, base store.Backend) (store.Backend, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.Neo4j.URI,
		neo4j.BasicAuth(cfg.Neo4j.Username, cfg.Neo4j.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("connect neo4j: %w", err)
	}
	return store.NewNeo4jStore(base, store.WrapNeo4jDriver(driver), cfg.Neo4j.Database)
}
