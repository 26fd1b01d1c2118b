package controller

import (
	"github.com/ritzau/flow-editor/pkg/model"
)

// NodeDegree describes how connected a node is
type NodeDegree struct {
	ID   string         `json:"id"`
	Kind model.NodeKind `json:"type"`
	In   int            `json:"in"`
	Out  int            `json:"out"`
}

// Stats summarizes the current graph
type Stats struct {
	Version      int          `json:"version"`
	Nodes        int          `json:"nodes"`
	Edges        int          `json:"edges"`
	Sources      int          `json:"sources"`
	Destinations int          `json:"destinations"`
	Degrees      []NodeDegree `json:"degrees"`
	Isolated     []string     `json:"isolated"`
}

// Stats computes counts and per-node degrees from the adjacency index
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		Version:  c.version,
		Nodes:    len(c.nodes),
		Edges:    len(c.edges),
		Degrees:  make([]NodeDegree, 0, len(c.nodes)),
		Isolated: c.index.Isolated(),
	}

	for _, n := range c.nodes {
		switch n.Kind {
		case model.KindSource:
			s.Sources++
		case model.KindDestination:
			s.Destinations++
		}
		s.Degrees = append(s.Degrees, NodeDegree{
			ID:   n.ID,
			Kind: n.Kind,
			In:   c.index.InDegree(n.ID),
			Out:  c.index.OutDegree(n.ID),
		})
	}

	if s.Isolated == nil {
		s.Isolated = []string{}
	}
	return s
}
