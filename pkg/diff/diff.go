package diff

import (
	"sort"

	"github.com/ritzau/flow-editor/pkg/model"
)

// GraphDiff represents the difference between two graph states
type GraphDiff struct {
	AddedNodes    []model.Node `json:"addedNodes"`
	RemovedNodes  []string     `json:"removedNodes"`  // Node IDs
	ModifiedNodes []model.Node `json:"modifiedNodes"` // Label changed
	MovedNodes    []model.Node `json:"movedNodes"`    // Only position changed
	AddedEdges    []model.Edge `json:"addedEdges"`
	RemovedEdges  []string     `json:"removedEdges"` // Edge IDs
}

// Empty reports whether the two graph states were structurally identical
func (d GraphDiff) Empty() bool {
	return len(d.AddedNodes) == 0 && len(d.RemovedNodes) == 0 &&
		len(d.ModifiedNodes) == 0 && len(d.MovedNodes) == 0 &&
		len(d.AddedEdges) == 0 && len(d.RemovedEdges) == 0
}

// Compute computes the difference between two snapshots. Selection is surface
// state and is ignored. Results are sorted by id.
func Compute(old, next model.Snapshot) GraphDiff {
	d := GraphDiff{}

	oldNodes := make(map[string]model.Node, len(old.Nodes))
	for _, n := range old.Nodes {
		oldNodes[n.ID] = n
	}
	newNodes := make(map[string]bool, len(next.Nodes))

	for _, n := range next.Nodes {
		newNodes[n.ID] = true
		prev, exists := oldNodes[n.ID]
		switch {
		case !exists:
			d.AddedNodes = append(d.AddedNodes, n)
		case prev.Kind != n.Kind || prev.Label != n.Label:
			// A kind change can only come from a re-seed that reused the id
			d.ModifiedNodes = append(d.ModifiedNodes, n)
		case prev.Position != n.Position:
			d.MovedNodes = append(d.MovedNodes, n)
		}
	}
	for id := range oldNodes {
		if !newNodes[id] {
			d.RemovedNodes = append(d.RemovedNodes, id)
		}
	}

	// Edges are keyed by endpoints, the id is derived from them
	oldEdges := make(map[[2]string]model.Edge, len(old.Edges))
	for _, e := range old.Edges {
		oldEdges[edgeKey(e)] = e
	}
	newEdges := make(map[[2]string]bool, len(next.Edges))
	for _, e := range next.Edges {
		newEdges[edgeKey(e)] = true
		if _, exists := oldEdges[edgeKey(e)]; !exists {
			d.AddedEdges = append(d.AddedEdges, e)
		}
	}
	for key, e := range oldEdges {
		if !newEdges[key] {
			d.RemovedEdges = append(d.RemovedEdges, e.ID)
		}
	}

	sortNodes(d.AddedNodes)
	sortNodes(d.ModifiedNodes)
	sortNodes(d.MovedNodes)
	sort.Strings(d.RemovedNodes)
	sort.Slice(d.AddedEdges, func(i, j int) bool { return d.AddedEdges[i].ID < d.AddedEdges[j].ID })
	sort.Strings(d.RemovedEdges)

	return d
}

func edgeKey(e model.Edge) [2]string {
	return [2]string{e.Source, e.Target}
}

func sortNodes(nodes []model.Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
}
