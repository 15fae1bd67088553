//go:build !neo4j

package main

import (
	"errors"

	"github.com/jxitc/info-agent-sub000/internal/config"
	"github.com/jxitc/info-agent-sub000/pkg/memory/store"
)

func openNeo4j(*config.Config, store.Backend) (store.Backend, error) {
	return nil, errors.New("neo4j graph support requires building with -tags neo4j")
}
