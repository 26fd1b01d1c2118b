package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	// ErrUnknownKind is returned when a node kind is neither source nor destination
	ErrUnknownKind = errors.New("unknown node kind")
	// ErrInvalidPosition is returned for NaN or infinite coordinates, which JSON cannot carry
	ErrInvalidPosition = errors.New("invalid position")
)

// NodeKind represents the role of a node on the canvas
type NodeKind string

const (
	KindSource      NodeKind = "source"      // Nodes that may only feed destinations
	KindDestination NodeKind = "destination" // Nodes that may only be fed by sources
)

// ParseNodeKind converts user input into a NodeKind
func ParseNodeKind(s string) (NodeKind, error) {
	switch NodeKind(strings.ToLower(strings.TrimSpace(s))) {
	case KindSource:
		return KindSource, nil
	case KindDestination:
		return KindDestination, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Valid reports whether k is one of the known kinds
func (k NodeKind) Valid() bool {
	switch k {
	case KindSource, KindDestination:
		return true
	default:
		return false
	}
}

// Title returns the capitalized display form used in generated labels
func (k NodeKind) Title() string {
	switch k {
	case KindSource:
		return "Source"
	case KindDestination:
		return "Destination"
	default:
		return string(k)
	}
}

// Position is a canvas coordinate
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by d
func (p Position) Add(d Position) Position {
	return Position{X: p.X + d.X, Y: p.Y + d.Y}
}

// Finite reports whether both coordinates are real numbers
func (p Position) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Node represents a placed entity on the canvas
type Node struct {
	ID       string   `json:"id"`
	Kind     NodeKind `json:"type"` // Matches the node type names of the rendering surface
	Label    string   `json:"label"`
	Position Position `json:"position"`
	Selected bool     `json:"selected,omitempty"` // Focus state reported by the surface
}

// NewNode creates a node with the given identity and placement
func NewNode(id string, kind NodeKind, label string, pos Position) Node {
	return Node{
		ID:       id,
		Kind:     kind,
		Label:    label,
		Position: pos,
	}
}

// Edge represents a directed connection from a source node to a destination node
type Edge struct {
	ID       string `json:"id"`
	Source   string `json:"source"` // Source node ID
	Target   string `json:"target"` // Destination node ID
	Selected bool   `json:"selected,omitempty"`
}

// EdgeID derives the deterministic edge ID for an endpoint pair (e.g., "e1-4")
func EdgeID(source, target string) string {
	return "e" + source + "-" + target
}

// NewEdge creates an edge between two node IDs
func NewEdge(source, target string) Edge {
	return Edge{
		ID:     EdgeID(source, target),
		Source: source,
		Target: target,
	}
}

// References returns true if the edge has nodeID as either endpoint
func (e Edge) References(nodeID string) bool {
	return e.Source == nodeID || e.Target == nodeID
}

// Snapshot is a point-in-time copy of the editor state handed to observers
type Snapshot struct {
	Version int    `json:"version"`
	Nodes   []Node `json:"nodes"`
	Edges   []Edge `json:"edges"`
}

// FindNode returns the node with the given ID
func FindNode(nodes []Node, id string) (Node, bool) {
	for _, n := range nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// CloneNodes returns a copy of nodes that never aliases the input
func CloneNodes(nodes []Node) []Node {
	out := make([]Node, len(nodes))
	copy(out, nodes)
	return out
}

// CloneEdges returns a copy of edges that never aliases the input
func CloneEdges(edges []Edge) []Edge {
	out := make([]Edge, len(edges))
	copy(out, edges)
	return out
}
