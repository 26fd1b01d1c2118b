package controller

import (
	"fmt"
	"strconv"

	"github.com/ritzau/flow-editor/pkg/logging"
	"github.com/ritzau/flow-editor/pkg/model"
	"github.com/ritzau/flow-editor/pkg/validate"
)

// AddNode appends a new node of the given kind at a free spot inside the viewport.
// The label is "<Kind> <n>" where n is the node count plus one.
func (c *Controller) AddNode(kind model.NodeKind) (model.Node, error) {
	if !kind.Valid() {
		return model.Node{}, fmt.Errorf("add node: %w: %q", model.ErrUnknownKind, kind)
	}

	var node model.Node
	c.update(func() bool {
		node = c.addNodeLocked(kind)
		return true
	})

	logging.Debug("node added", "id", node.ID, "kind", string(kind), "x", node.Position.X, "y", node.Position.Y)
	return node, nil
}

func (c *Controller) addNodeLocked(kind model.NodeKind) model.Node {
	id := c.ids.NextID(kind, c.nodes)
	label := kind.Title() + " " + strconv.Itoa(len(c.nodes)+1)
	node := model.NewNode(id, kind, label, c.placer.Place(c.nodes))

	c.nodes = append(c.nodes, node)
	c.index.AddNode(id)
	return node
}

// RequestConnect validates a connection and appends the edge when accepted.
// A rejection is returned as a *validate.RejectionError and leaves the state unchanged.
func (c *Controller) RequestConnect(source, target string) (model.Edge, error) {
	var (
		edge model.Edge
		err  error
	)
	c.update(func() bool {
		edge, err = c.connectLocked(source, target)
		return err == nil
	})

	if err != nil {
		logging.Info("connection rejected", "source", source, "target", target, "error", err)
		return model.Edge{}, err
	}

	logging.Debug("edge added", "id", edge.ID, "source", source, "target", target)
	return edge, nil
}

func (c *Controller) connectLocked(source, target string) (model.Edge, error) {
	req := validate.Request{Source: source, Target: target}
	if err := validate.Validate(req, c.nodes).Err(); err != nil {
		return model.Edge{}, err
	}

	if existing, ok := c.index.EdgeBetween(source, target); ok {
		return model.Edge{}, fmt.Errorf("connect %s -> %s: %w (%s)", source, target, ErrDuplicateEdge, existing)
	}

	edge := model.NewEdge(source, target)
	// Node IDs containing '-' can make two pairs derive the same ID
	for n := 2; c.edgeIndex(edge.ID) >= 0; n++ {
		edge.ID = model.EdgeID(source, target) + "#" + strconv.Itoa(n)
	}
	if err := c.index.AddEdge(edge); err != nil {
		return model.Edge{}, err
	}

	c.edges = append(c.edges, edge)
	return edge, nil
}

// MoveNode sets the position of a node
func (c *Controller) MoveNode(id string, pos model.Position) error {
	var err error
	c.update(func() bool {
		err = c.moveLocked(id, pos)
		return err == nil
	})
	return err
}

func (c *Controller) moveLocked(id string, pos model.Position) error {
	i := c.nodeIndex(id)
	if i < 0 {
		return fmt.Errorf("move node %s: %w", id, ErrNotFound)
	}
	if !pos.Finite() {
		return fmt.Errorf("move node %s: %w (%g, %g)", id, model.ErrInvalidPosition, pos.X, pos.Y)
	}
	c.nodes[i].Position = pos
	return nil
}

// RemoveEdge deletes a single edge
func (c *Controller) RemoveEdge(id string) error {
	var err error
	c.update(func() bool {
		err = c.removeEdgeLocked(id)
		return err == nil
	})

	if err == nil {
		logging.Debug("edge removed", "id", id)
	}
	return err
}

func (c *Controller) removeEdgeLocked(id string) error {
	i := c.edgeIndex(id)
	if i < 0 {
		return fmt.Errorf("remove edge %s: %w", id, ErrNotFound)
	}

	edge := c.edges[i]
	c.edges = append(c.edges[:i], c.edges[i+1:]...)
	c.index.RemoveEdge(edge.Source, edge.Target)
	return nil
}

// RemoveNode deletes a node together with every edge that references it
func (c *Controller) RemoveNode(id string) error {
	var (
		removedEdges []string
		err          error
	)
	c.update(func() bool {
		removedEdges, err = c.removeNodeLocked(id)
		return err == nil
	})

	if err == nil {
		logging.Debug("node removed", "id", id, "cascadedEdges", len(removedEdges))
	}
	return err
}

func (c *Controller) removeNodeLocked(id string) ([]string, error) {
	i := c.nodeIndex(id)
	if i < 0 {
		return nil, fmt.Errorf("remove node %s: %w", id, ErrNotFound)
	}

	c.nodes = append(c.nodes[:i], c.nodes[i+1:]...)
	removed := c.index.RemoveNode(id)

	kept := c.edges[:0]
	for _, e := range c.edges {
		if !e.References(id) {
			kept = append(kept, e)
		}
	}
	c.edges = kept

	return removed, nil
}

func (c *Controller) selectNodeLocked(id string, selected bool) error {
	i := c.nodeIndex(id)
	if i < 0 {
		return fmt.Errorf("select node %s: %w", id, ErrNotFound)
	}
	c.nodes[i].Selected = selected
	return nil
}

func (c *Controller) selectEdgeLocked(id string, selected bool) error {
	i := c.edgeIndex(id)
	if i < 0 {
		return fmt.Errorf("select edge %s: %w", id, ErrNotFound)
	}
	c.edges[i].Selected = selected
	return nil
}
