package model

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// IDGenerator assigns node IDs that are unique for the process lifetime.
// Implementations are not safe for concurrent use; the controller serializes calls.
type IDGenerator interface {
	NextID(kind NodeKind, existing []Node) string
}

// NewIDGenerator returns the generator for a configured strategy ("counter" or "uuid")
func NewIDGenerator(strategy string) (IDGenerator, error) {
	switch strategy {
	case "", "counter":
		return NewCounterIDs(), nil
	case "uuid":
		return NewUUIDIDs(), nil
	default:
		return nil, fmt.Errorf("unknown id strategy %q (want counter or uuid)", strategy)
	}
}

// CounterIDs produces "<kind>-<n>" IDs, starting at the node count plus one
type CounterIDs struct {
	issued map[string]bool
}

// NewCounterIDs creates a counter based generator
func NewCounterIDs() *CounterIDs {
	return &CounterIDs{issued: make(map[string]bool)}
}

// NextID returns the first "<kind>-<n>" not used now or earlier in this session
func (g *CounterIDs) NextID(kind NodeKind, existing []Node) string {
	used := usedIDs(existing)
	for n := len(existing) + 1; ; n++ {
		id := string(kind) + "-" + strconv.Itoa(n)
		if !used[id] && !g.issued[id] {
			g.issued[id] = true
			return id
		}
	}
}

// UUIDIDs produces "<kind>-<uuid>" IDs
type UUIDIDs struct {
	issued map[string]bool
	newID  func() string
}

// NewUUIDIDs creates a uuid based generator
func NewUUIDIDs() *UUIDIDs {
	return &UUIDIDs{
		issued: make(map[string]bool),
		newID:  uuid.NewString,
	}
}

// NextID returns a random ID, retrying on the (practically impossible) collision
func (g *UUIDIDs) NextID(kind NodeKind, existing []Node) string {
	used := usedIDs(existing)
	for {
		id := string(kind) + "-" + g.newID()
		if !used[id] && !g.issued[id] {
			g.issued[id] = true
			return id
		}
	}
}

func usedIDs(nodes []Node) map[string]bool {
	used := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		used[n.ID] = true
	}
	return used
}
