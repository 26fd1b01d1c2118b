// Package graph keeps a gonum adjacency index over the editor's nodes and edges.
package graph

import (
	"fmt"
	"sort"

	"github.com/ritzau/flow-editor/pkg/model"
	"gonum.org/v1/gonum/graph/simple"
)

// Index mirrors the node and edge collections as a directed graph so that
// incidence, duplicate and degree queries don't need to scan the edge list.
type Index struct {
	graph  *simple.DirectedGraph
	ids    map[string]int64    // Map from node ID to graph ID
	edges  map[[2]int64]string // Map from (from, to) graph IDs to edge ID
	nextID int64
}

// NewIndex creates an empty index
func NewIndex() *Index {
	return &Index{
		graph: simple.NewDirectedGraph(),
		ids:   make(map[string]int64),
		edges: make(map[[2]int64]string),
	}
}

// Build creates an index for the given collections.
// Edges whose endpoints are missing, and a second edge on the same ordered pair,
// are reported as an error.
func Build(nodes []model.Node, edges []model.Edge) (*Index, error) {
	ix := NewIndex()
	for _, n := range nodes {
		ix.AddNode(n.ID)
	}
	for _, e := range edges {
		if err := ix.AddEdge(e); err != nil {
			return nil, err
		}
	}
	return ix, nil
}

// AddNode adds a node to the index
func (ix *Index) AddNode(id string) {
	if _, exists := ix.ids[id]; exists {
		return
	}

	gid := ix.nextID
	ix.nextID++
	ix.ids[id] = gid
	ix.graph.AddNode(simple.Node(gid))
}

// HasNode returns true if the node is indexed
func (ix *Index) HasNode(id string) bool {
	_, exists := ix.ids[id]
	return exists
}

// AddEdge indexes an edge. Both endpoints must already be indexed and the pair
// must not be connected yet.
func (ix *Index) AddEdge(e model.Edge) error {
	from, ok := ix.ids[e.Source]
	if !ok {
		return fmt.Errorf("edge %s: source %s not indexed", e.ID, e.Source)
	}
	to, ok := ix.ids[e.Target]
	if !ok {
		return fmt.Errorf("edge %s: target %s not indexed", e.ID, e.Target)
	}
	if from == to {
		return fmt.Errorf("edge %s: self loops are not supported", e.ID)
	}

	if existing, ok := ix.edges[[2]int64{from, to}]; ok {
		return fmt.Errorf("edge %s: %s -> %s already indexed as %s", e.ID, e.Source, e.Target, existing)
	}

	ix.graph.SetEdge(ix.graph.NewEdge(ix.graph.Node(from), ix.graph.Node(to)))
	ix.edges[[2]int64{from, to}] = e.ID
	return nil
}

// RemoveEdge drops the edge between source and target, if any
func (ix *Index) RemoveEdge(source, target string) {
	from, ok := ix.ids[source]
	if !ok {
		return
	}
	to, ok := ix.ids[target]
	if !ok {
		return
	}
	ix.graph.RemoveEdge(from, to)
	delete(ix.edges, [2]int64{from, to})
}

// EdgeBetween returns the ID of the edge from source to target
func (ix *Index) EdgeBetween(source, target string) (string, bool) {
	from, ok := ix.ids[source]
	if !ok {
		return "", false
	}
	to, ok := ix.ids[target]
	if !ok {
		return "", false
	}
	id, exists := ix.edges[[2]int64{from, to}]
	return id, exists
}

// Incident returns the IDs of all edges that start or end at the node, sorted
func (ix *Index) Incident(id string) []string {
	gid, ok := ix.ids[id]
	if !ok {
		return nil
	}

	var out []string
	succ := ix.graph.From(gid)
	for succ.Next() {
		out = append(out, ix.edges[[2]int64{gid, succ.Node().ID()}])
	}
	pred := ix.graph.To(gid)
	for pred.Next() {
		out = append(out, ix.edges[[2]int64{pred.Node().ID(), gid}])
	}

	sort.Strings(out)
	return out
}

// RemoveNode drops the node and all its edges, returning the removed edge IDs
func (ix *Index) RemoveNode(id string) []string {
	gid, ok := ix.ids[id]
	if !ok {
		return nil
	}

	removed := ix.Incident(id)
	for key := range ix.edges {
		if key[0] == gid || key[1] == gid {
			delete(ix.edges, key)
		}
	}

	ix.graph.RemoveNode(gid)
	delete(ix.ids, id)
	return removed
}

// OutDegree returns the number of edges leaving the node
func (ix *Index) OutDegree(id string) int {
	gid, ok := ix.ids[id]
	if !ok {
		return 0
	}
	return ix.graph.From(gid).Len()
}

// InDegree returns the number of edges entering the node
func (ix *Index) InDegree(id string) int {
	gid, ok := ix.ids[id]
	if !ok {
		return 0
	}
	return ix.graph.To(gid).Len()
}

// NodeCount returns the number of indexed nodes
func (ix *Index) NodeCount() int {
	return ix.graph.Nodes().Len()
}

// EdgeCount returns the number of indexed edges
func (ix *Index) EdgeCount() int {
	return ix.graph.Edges().Len()
}

// Isolated returns the IDs of nodes without any edge, sorted
func (ix *Index) Isolated() []string {
	var out []string
	for id, gid := range ix.ids {
		if ix.graph.From(gid).Len() == 0 && ix.graph.To(gid).Len() == 0 {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
