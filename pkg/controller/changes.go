package controller

import (
	"errors"
	"fmt"

	"github.com/ritzau/flow-editor/pkg/logging"
	"github.com/ritzau/flow-editor/pkg/model"
)

// ChangeType identifies what a change record does
type ChangeType string

const (
	ChangePosition ChangeType = "position" // Drag update, absolute Position or relative Delta
	ChangeSelect   ChangeType = "select"   // Focus change
	ChangeRemove   ChangeType = "remove"   // Deletion (node removals cascade)
)

// NodeChange is a single structural delta reported by the rendering surface
type NodeChange struct {
	ID       string          `json:"id"`
	Type     ChangeType      `json:"type"`
	Position *model.Position `json:"position,omitempty"`
	Delta    *model.Position `json:"delta,omitempty"`
	Selected bool            `json:"selected,omitempty"`
	Dragging bool            `json:"dragging,omitempty"`
}

// EdgeChange is a single edge delta reported by the rendering surface
type EdgeChange struct {
	ID       string     `json:"id"`
	Type     ChangeType `json:"type"`
	Selected bool       `json:"selected,omitempty"`
}

// SkippedChange records a change that could not be applied
type SkippedChange struct {
	Index  int    `json:"index"`
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// BatchResult summarizes a folded batch
type BatchResult struct {
	Applied      int             `json:"applied"`
	Skipped      []SkippedChange `json:"skipped,omitempty"`
	RemovedNodes []string        `json:"removedNodes,omitempty"`
	RemovedEdges []string        `json:"removedEdges,omitempty"`
}

// errNoChange marks a change record that is valid but leaves the state as it is
var errNoChange = errors.New("no change")

func (r *BatchResult) skip(index int, id string, err error) {
	r.Skipped = append(r.Skipped, SkippedChange{Index: index, ID: id, Reason: err.Error()})
}

// ApplyNodeChanges folds node changes into the state in order.
// Changes that reference unknown nodes are skipped; the rest of the batch still applies
// and observers see a single update.
func (c *Controller) ApplyNodeChanges(changes []NodeChange) BatchResult {
	var res BatchResult
	c.update(func() bool {
		for i, ch := range changes {
			err := c.applyNodeChangeLocked(ch, &res)
			if errors.Is(err, errNoChange) {
				continue
			}
			if err != nil {
				res.skip(i, ch.ID, err)
				continue
			}
			res.Applied++
		}
		return res.Applied > 0
	})

	if len(res.Skipped) > 0 {
		logging.Debug("node changes skipped", "applied", res.Applied, "skipped", len(res.Skipped))
	}
	return res
}

func (c *Controller) applyNodeChangeLocked(ch NodeChange, res *BatchResult) error {
	switch ch.Type {
	case ChangePosition:
		i := c.nodeIndex(ch.ID)
		if i < 0 {
			return fmt.Errorf("position %s: %w", ch.ID, ErrNotFound)
		}
		switch {
		case ch.Position != nil:
			return c.moveLocked(ch.ID, *ch.Position)
		case ch.Delta != nil:
			return c.moveLocked(ch.ID, c.nodes[i].Position.Add(*ch.Delta))
		default:
			// End of drag carries no coordinates
			return errNoChange
		}
	case ChangeSelect:
		return c.selectNodeLocked(ch.ID, ch.Selected)
	case ChangeRemove:
		removed, err := c.removeNodeLocked(ch.ID)
		if err != nil {
			return err
		}
		res.RemovedNodes = append(res.RemovedNodes, ch.ID)
		res.RemovedEdges = append(res.RemovedEdges, removed...)
		return nil
	default:
		return fmt.Errorf("unsupported node change type %q", ch.Type)
	}
}

// ApplyEdgeChanges folds edge changes into the state in order
func (c *Controller) ApplyEdgeChanges(changes []EdgeChange) BatchResult {
	var res BatchResult
	c.update(func() bool {
		for i, ch := range changes {
			if err := c.applyEdgeChangeLocked(ch, &res); err != nil {
				res.skip(i, ch.ID, err)
				continue
			}
			res.Applied++
		}
		return res.Applied > 0
	})

	if len(res.Skipped) > 0 {
		logging.Debug("edge changes skipped", "applied", res.Applied, "skipped", len(res.Skipped))
	}
	return res
}

func (c *Controller) applyEdgeChangeLocked(ch EdgeChange, res *BatchResult) error {
	switch ch.Type {
	case ChangeSelect:
		return c.selectEdgeLocked(ch.ID, ch.Selected)
	case ChangeRemove:
		if err := c.removeEdgeLocked(ch.ID); err != nil {
			return err
		}
		res.RemovedEdges = append(res.RemovedEdges, ch.ID)
		return nil
	default:
		return fmt.Errorf("unsupported edge change type %q", ch.Type)
	}
}

// DeleteSelected is the delete-key action: it removes every selected edge and every
// selected node, cascading to the edges of removed nodes.
func (c *Controller) DeleteSelected() BatchResult {
	var res BatchResult
	c.update(func() bool {
		var edgeIDs, nodeIDs []string
		for _, e := range c.edges {
			if e.Selected {
				edgeIDs = append(edgeIDs, e.ID)
			}
		}
		for _, n := range c.nodes {
			if n.Selected {
				nodeIDs = append(nodeIDs, n.ID)
			}
		}

		for _, id := range edgeIDs {
			if err := c.removeEdgeLocked(id); err == nil {
				res.RemovedEdges = append(res.RemovedEdges, id)
				res.Applied++
			}
		}
		for _, id := range nodeIDs {
			removed, err := c.removeNodeLocked(id)
			if err != nil {
				continue
			}
			res.RemovedNodes = append(res.RemovedNodes, id)
			res.RemovedEdges = append(res.RemovedEdges, removed...)
			res.Applied++
		}
		return res.Applied > 0
	})

	if res.Applied > 0 {
		logging.Debug("selection deleted", "nodes", len(res.RemovedNodes), "edges", len(res.RemovedEdges))
	}
	return res
}
