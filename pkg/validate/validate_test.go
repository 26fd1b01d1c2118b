package validate

import (
	"errors"
	"math"
	"testing"

	"github.com/ritzau/flow-editor/pkg/model"
)

func testNodes() []model.Node {
	return []model.Node{
		{ID: "1", Kind: model.KindSource},
		{ID: "2", Kind: model.KindSource},
		{ID: "4", Kind: model.KindDestination},
		{ID: "5", Kind: model.KindDestination},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		want    Reason
		wantErr error
	}{
		{"source to destination", Request{"1", "4"}, ReasonNone, nil},
		{"destination to source", Request{"4", "1"}, ReasonInvalidKindPair, ErrInvalidKindPair},
		{"source to source", Request{"1", "2"}, ReasonInvalidKindPair, ErrInvalidKindPair},
		{"destination to destination", Request{"4", "5"}, ReasonInvalidKindPair, ErrInvalidKindPair},
		{"self loop", Request{"1", "1"}, ReasonInvalidKindPair, ErrInvalidKindPair},
		{"unknown source", Request{"9", "4"}, ReasonUnknownEndpoint, ErrUnknownEndpoint},
		{"unknown target", Request{"1", "9"}, ReasonUnknownEndpoint, ErrUnknownEndpoint},
		{"empty ids", Request{"", ""}, ReasonUnknownEndpoint, ErrUnknownEndpoint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(tt.req, testNodes())
			if res.Reason != tt.want {
				t.Errorf("Expected reason %q, got %q", tt.want, res.Reason)
			}
			if res.Accepted != (tt.wantErr == nil) {
				t.Errorf("Expected accepted=%v, got %v", tt.wantErr == nil, res.Accepted)
			}

			err := res.Err()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected error wrapping %v, got %v", tt.wantErr, err)
			}
			var rejection *RejectionError
			if !errors.As(err, &rejection) {
				t.Fatalf("Expected *RejectionError, got %T", err)
			}
			if rejection.Request != tt.req {
				t.Errorf("Expected request %+v, got %+v", tt.req, rejection.Request)
			}
		})
	}
}

func TestValidateDoesNotMutateNodes(t *testing.T) {
	nodes := testNodes()
	before := model.CloneNodes(nodes)

	Validate(Request{"1", "4"}, nodes)
	Validate(Request{"4", "1"}, nodes)

	for i := range nodes {
		if nodes[i] != before[i] {
			t.Errorf("Node %d changed: %+v -> %+v", i, before[i], nodes[i])
		}
	}
}

func TestRejectionMessage(t *testing.T) {
	err := Validate(Request{"4", "1"}, testNodes()).Err()
	var rejection *RejectionError
	if !errors.As(err, &rejection) {
		t.Fatalf("Expected *RejectionError, got %v", err)
	}
	if rejection.Message() != "You can only connect a Source to a Destination." {
		t.Errorf("Unexpected message: %s", rejection.Message())
	}
}

func TestGraph(t *testing.T) {
	nodes := testNodes()
	edges := []model.Edge{model.NewEdge("1", "4"), model.NewEdge("2", "5")}
	if err := Graph(nodes, edges); err != nil {
		t.Errorf("Expected valid graph, got %v", err)
	}
}

func TestGraphReportsEveryProblem(t *testing.T) {
	nodes := append(testNodes(),
		model.Node{ID: "1", Kind: model.KindDestination},
		model.Node{ID: "7", Kind: "sink"},
	)
	edges := []model.Edge{
		model.NewEdge("4", "5"),
		model.NewEdge("2", "9"),
		model.NewEdge("2", "9"),
	}

	err := Graph(nodes, edges)
	if err == nil {
		t.Fatal("Expected error")
	}

	if !errors.Is(err, model.ErrUnknownKind) {
		t.Errorf("Expected unknown kind in %v", err)
	}
	if !errors.Is(err, ErrInvalidKindPair) {
		t.Errorf("Expected invalid kind pair in %v", err)
	}
	if !errors.Is(err, ErrUnknownEndpoint) {
		t.Errorf("Expected unknown endpoint in %v", err)
	}

	joined, ok := err.(interface{ Unwrap() []error })
	if !ok {
		t.Fatalf("Expected joined error, got %T", err)
	}
	// duplicate node 1, unknown kind, 4->5, 2->9 twice, duplicate edge id
	if got := len(joined.Unwrap()); got != 6 {
		t.Errorf("Expected 6 problems, got %d: %v", got, err)
	}
}

func TestGraphRejectsSecondConnectionOfPair(t *testing.T) {
	edges := []model.Edge{
		{ID: "a", Source: "1", Target: "4"},
		{ID: "b", Source: "1", Target: "4"},
	}

	err := Graph(testNodes(), edges)
	if !errors.Is(err, ErrDuplicateConnection) {
		t.Errorf("Expected ErrDuplicateConnection, got %v", err)
	}
}

func TestGraphRejectsNonFinitePositions(t *testing.T) {
	for _, pos := range []model.Position{
		{X: math.NaN(), Y: 0},
		{X: 0, Y: math.Inf(1)},
		{X: math.Inf(-1), Y: math.Inf(-1)},
	} {
		nodes := testNodes()
		nodes[0].Position = pos
		if err := Graph(nodes, nil); !errors.Is(err, model.ErrInvalidPosition) {
			t.Errorf("Position %v: expected ErrInvalidPosition, got %v", pos, err)
		}
	}
}
