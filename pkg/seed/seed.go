// Package seed provides the initial node and edge set the editor starts with.
package seed

import (
	"fmt"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/ritzau/flow-editor/pkg/model"
	"github.com/ritzau/flow-editor/pkg/validate"
)

// Set is a complete initial state
type Set struct {
	Nodes []model.Node
	Edges []model.Edge
}

// Validate checks the set against the editor invariants
func (s Set) Validate() error {
	return validate.Graph(s.Nodes, s.Edges)
}

// Default returns the built-in seed: three sources on the left feeding two
// destinations on the right.
func Default() Set {
	return Set{
		Nodes: []model.Node{
			model.NewNode("1", model.KindSource, "Source 1", model.Position{X: 10, Y: 20}),
			model.NewNode("2", model.KindSource, "Source 2", model.Position{X: 10, Y: 200}),
			model.NewNode("3", model.KindSource, "Source 3", model.Position{X: 10, Y: 400}),
			model.NewNode("4", model.KindDestination, "Destination 1", model.Position{X: 1000, Y: 100}),
			model.NewNode("5", model.KindDestination, "Destination 2", model.Position{X: 1000, Y: 300}),
		},
		Edges: []model.Edge{
			model.NewEdge("1", "4"),
			model.NewEdge("2", "4"),
			model.NewEdge("3", "4"),
			model.NewEdge("3", "5"),
		},
	}
}

// fileNode and fileEdge are the TOML shapes of a seed file:
//
//	[[nodes]]
//	id = "1"
//	kind = "source"
//	label = "Source 1"
//	x = 10
//	y = 20
//
//	[[edges]]
//	source = "1"
//	target = "4"
type fileNode struct {
	ID    string  `koanf:"id"`
	Kind  string  `koanf:"kind"`
	Label string  `koanf:"label"`
	X     float64 `koanf:"x"`
	Y     float64 `koanf:"y"`
}

type fileEdge struct {
	ID     string `koanf:"id"` // Optional, derived from the endpoints when empty
	Source string `koanf:"source"`
	Target string `koanf:"target"`
}

type seedFile struct {
	Nodes []fileNode `koanf:"nodes"`
	Edges []fileEdge `koanf:"edges"`
}

// Load reads and validates a TOML seed file
func Load(path string) (Set, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return Set{}, fmt.Errorf("reading seed %s: %w", path, err)
	}

	var f seedFile
	if err := k.Unmarshal("", &f); err != nil {
		return Set{}, fmt.Errorf("decoding seed %s: %w", path, err)
	}

	set, err := f.toSet()
	if err != nil {
		return Set{}, fmt.Errorf("seed %s: %w", path, err)
	}
	if err := set.Validate(); err != nil {
		return Set{}, fmt.Errorf("seed %s: %w", path, err)
	}
	return set, nil
}

func (f seedFile) toSet() (Set, error) {
	set := Set{
		Nodes: make([]model.Node, 0, len(f.Nodes)),
		Edges: make([]model.Edge, 0, len(f.Edges)),
	}

	for _, n := range f.Nodes {
		kind, err := model.ParseNodeKind(n.Kind)
		if err != nil {
			return Set{}, fmt.Errorf("node %s: %w", n.ID, err)
		}
		label := n.Label
		if label == "" {
			label = kind.Title() + " " + n.ID
		}
		set.Nodes = append(set.Nodes, model.NewNode(n.ID, kind, label, model.Position{X: n.X, Y: n.Y}))
	}

	for _, e := range f.Edges {
		edge := model.NewEdge(e.Source, e.Target)
		if e.ID != "" {
			edge.ID = e.ID
		}
		set.Edges = append(set.Edges, edge)
	}

	return set, nil
}

// Resolve returns the seed from path, or the built-in default when path is empty
func Resolve(path string) (Set, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}
