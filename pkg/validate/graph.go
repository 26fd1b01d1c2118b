package validate

import (
	"errors"
	"fmt"

	"github.com/ritzau/flow-editor/pkg/model"
)

// ErrDuplicateConnection is returned when a seed connects the same ordered pair twice
var ErrDuplicateConnection = errors.New("duplicate connection")

// Graph checks a complete node and edge set, as supplied by a seed, against the
// editor invariants. Every problem found is reported in the joined error.
func Graph(nodes []model.Node, edges []model.Edge) error {
	var errs []error

	seenNodes := make(map[string]bool, len(nodes))
	for i, n := range nodes {
		switch {
		case n.ID == "":
			errs = append(errs, fmt.Errorf("node %d: empty id", i))
		case seenNodes[n.ID]:
			errs = append(errs, fmt.Errorf("node %s: duplicate id", n.ID))
		}
		seenNodes[n.ID] = true

		if !n.Kind.Valid() {
			errs = append(errs, fmt.Errorf("node %s: %w: %q", n.ID, model.ErrUnknownKind, n.Kind))
		}
		if !n.Position.Finite() {
			errs = append(errs, fmt.Errorf("node %s: %w (%g, %g)", n.ID, model.ErrInvalidPosition, n.Position.X, n.Position.Y))
		}
	}

	seenEdges := make(map[string]bool, len(edges))
	seenPairs := make(map[[2]string]string, len(edges))
	for _, e := range edges {
		pair := [2]string{e.Source, e.Target}
		switch first, connected := seenPairs[pair]; {
		case seenEdges[e.ID]:
			errs = append(errs, fmt.Errorf("edge %s: duplicate id", e.ID))
		case connected:
			errs = append(errs, fmt.Errorf("edge %s: %w: %s -> %s already joined by %s",
				e.ID, ErrDuplicateConnection, e.Source, e.Target, first))
		default:
			seenPairs[pair] = e.ID
		}
		seenEdges[e.ID] = true

		if err := Validate(Request{Source: e.Source, Target: e.Target}, nodes).Err(); err != nil {
			errs = append(errs, fmt.Errorf("edge %s: %w", e.ID, err))
		}
	}

	return errors.Join(errs...)
}
