package diff

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ritzau/flow-editor/pkg/model"
	"github.com/ritzau/flow-editor/pkg/seed"
)

func TestComputeIdentical(t *testing.T) {
	s := seed.Default()
	snap := model.Snapshot{Nodes: s.Nodes, Edges: s.Edges}

	if d := Compute(snap, snap); !d.Empty() {
		t.Errorf("Expected empty diff, got %+v", d)
	}
}

func TestCompute(t *testing.T) {
	s := seed.Default()
	old := model.Snapshot{Nodes: model.CloneNodes(s.Nodes), Edges: model.CloneEdges(s.Edges)}

	next := model.Snapshot{Nodes: model.CloneNodes(s.Nodes), Edges: model.CloneEdges(s.Edges)}
	next.Nodes[0].Position = model.Position{X: 99, Y: 99}
	next.Nodes[1].Label = "Renamed"
	// Selection alone is not a change
	next.Nodes[2].Selected = true
	next.Nodes = append(next.Nodes[:4], model.NewNode("6", model.KindDestination, "Destination 6", model.Position{}))
	next.Edges = []model.Edge{
		model.NewEdge("1", "4"),
		model.NewEdge("2", "4"),
		model.NewEdge("3", "4"),
		model.NewEdge("3", "6"),
	}

	got := Compute(old, next)
	want := GraphDiff{
		AddedNodes:    []model.Node{model.NewNode("6", model.KindDestination, "Destination 6", model.Position{})},
		RemovedNodes:  []string{"5"},
		ModifiedNodes: []model.Node{next.Nodes[1]},
		MovedNodes:    []model.Node{next.Nodes[0]},
		AddedEdges:    []model.Edge{model.NewEdge("3", "6")},
		RemovedEdges:  []string{"e3-5"},
	}

	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("Compute mismatch (-want +got):\n%s", diff)
	}
}
