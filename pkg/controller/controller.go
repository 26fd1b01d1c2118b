// Package controller owns the editor state: the node list and the edge list.
//
// Every operation runs under a single mutex and either commits a new consistent
// state or leaves the state unchanged. Observers registered with Subscribe receive
// a copy of the state after each commit, in commit order.
package controller

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"sync"

	"github.com/ritzau/flow-editor/pkg/graph"
	"github.com/ritzau/flow-editor/pkg/logging"
	"github.com/ritzau/flow-editor/pkg/model"
	"github.com/ritzau/flow-editor/pkg/validate"
)

var (
	// ErrNotFound is returned when an operation references an unknown node or edge
	ErrNotFound = errors.New("not found")
	// ErrDuplicateEdge is returned when the ordered node pair is already connected
	ErrDuplicateEdge = errors.New("duplicate edge")
)

// Options configures a Controller
type Options struct {
	IDs      model.IDGenerator // Defaults to model.NewCounterIDs()
	Viewport Viewport          // Defaults to DefaultViewport
	Rand     *rand.Rand        // Placement randomness; seeded from the runtime when nil
}

// Controller is the single owner of the editor's nodes and edges
type Controller struct {
	mu       sync.Mutex
	notifyMu sync.Mutex // held while observers run, acquired before mu is released

	nodes   []model.Node
	edges   []model.Edge
	index   *graph.Index
	version int

	ids    model.IDGenerator
	placer *Placer

	listeners    map[int]func(model.Snapshot)
	nextListener int
}

// New creates a controller holding the given seed set
func New(nodes []model.Node, edges []model.Edge, opts Options) (*Controller, error) {
	if opts.IDs == nil {
		opts.IDs = model.NewCounterIDs()
	}
	if opts.Viewport == (Viewport{}) {
		opts.Viewport = DefaultViewport
	}
	if err := opts.Viewport.Validate(); err != nil {
		return nil, err
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	c := &Controller{
		ids:       opts.IDs,
		placer:    NewPlacer(opts.Rand, opts.Viewport),
		listeners: make(map[int]func(model.Snapshot)),
	}
	if err := c.load(nodes, edges); err != nil {
		return nil, err
	}

	logging.Debug("controller initialized", "nodes", len(c.nodes), "edges", len(c.edges))
	return c, nil
}

// load validates and installs a seed set. Caller must hold mu (or own c exclusively).
func (c *Controller) load(nodes []model.Node, edges []model.Edge) error {
	if err := validate.Graph(nodes, edges); err != nil {
		return fmt.Errorf("invalid seed: %w", err)
	}

	index, err := graph.Build(nodes, edges)
	if err != nil {
		return fmt.Errorf("indexing seed: %w", err)
	}

	c.nodes = model.CloneNodes(nodes)
	c.edges = model.CloneEdges(edges)
	c.index = index
	return nil
}

// Snapshot returns a copy of the current state
func (c *Controller) Snapshot() model.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() model.Snapshot {
	return model.Snapshot{
		Version: c.version,
		Nodes:   model.CloneNodes(c.nodes),
		Edges:   model.CloneEdges(c.edges),
	}
}

// Subscribe registers fn to be called with a snapshot after every committed change.
// fn runs synchronously and must not call mutating controller methods.
// The returned function removes the subscription.
func (c *Controller) Subscribe(fn func(model.Snapshot)) (cancel func()) {
	c.mu.Lock()
	id := c.nextListener
	c.nextListener++
	c.listeners[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// update runs fn under the state lock and, if fn reports a change, bumps the
// version and notifies observers before any later operation can commit.
func (c *Controller) update(fn func() bool) {
	c.mu.Lock()
	if !fn() {
		c.mu.Unlock()
		return
	}

	c.version++
	snap := c.snapshotLocked()

	ids := make([]int, 0, len(c.listeners))
	for id := range c.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	listeners := make([]func(model.Snapshot), 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, c.listeners[id])
	}

	c.notifyMu.Lock()
	c.mu.Unlock()
	defer c.notifyMu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

// Reset atomically replaces both collections with a new seed set
func (c *Controller) Reset(nodes []model.Node, edges []model.Edge) error {
	var err error
	c.update(func() bool {
		err = c.load(nodes, edges)
		return err == nil
	})
	if err != nil {
		return err
	}

	logging.Info("editor state reset", "nodes", len(nodes), "edges", len(edges))
	return nil
}

// SetViewport records the visible canvas size used to place new nodes
func (c *Controller) SetViewport(v Viewport) error {
	if err := v.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.placer.SetViewport(v)
	logging.Trace("viewport updated", "width", v.Width, "height", v.Height)
	return nil
}

// Viewport returns the current placement viewport
func (c *Controller) Viewport() Viewport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.placer.Viewport()
}

func (c *Controller) nodeIndex(id string) int {
	for i := range c.nodes {
		if c.nodes[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Controller) edgeIndex(id string) int {
	for i := range c.edges {
		if c.edges[i].ID == id {
			return i
		}
	}
	return -1
}
