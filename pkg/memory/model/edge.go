package model

import (
	"errors"
	"fmt"
)

// EdgeType enumerates the relationship kinds tracked between memories.
type EdgeType string

const (
	EdgeMentions  EdgeType = "mentions"
	EdgeMeets     EdgeType = "meets"
	EdgeWorksOn   EdgeType = "works_on"
	EdgeRelatesTo EdgeType = "relates_to"
	EdgeFollows   EdgeType = "follows"
)

var validEdgeTypes = map[EdgeType]struct{}{
	EdgeMentions:  {},
	EdgeMeets:     {},
	EdgeWorksOn:   {},
	EdgeRelatesTo: {},
	EdgeFollows:   {},
}

// GraphEdge is a typed, directed connection between two memory nodes.
type GraphEdge struct {
	Target int64    `json:"target"`
	Type   EdgeType `json:"type"`
}

// Validate ensures the edge definition is usable.
func (g GraphEdge) Validate() error {
	if g.Target == 0 {
		return errors.New("graph edge target is zero")
	}
	if _, ok := validEdgeTypes[g.Type]; !ok {
		return fmt.Errorf("unsupported edge type %q", g.Type)
	}
	return nil
}

// ValidEdges filters a slice down to the edges that pass validation.
func ValidEdges(edges []GraphEdge) []GraphEdge {
	if len(edges) == 0 {
		return nil
	}
	out := make([]GraphEdge, 0, len(edges))
	for _, edge := range edges {
		if err := edge.Validate(); err != nil {
			continue
		}
		out = append(out, edge)
	}
	return out
}
