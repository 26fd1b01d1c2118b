package web

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ritzau/flow-editor/pkg/controller"
	"github.com/ritzau/flow-editor/pkg/model"
	"github.com/ritzau/flow-editor/pkg/pubsub"
	"github.com/ritzau/flow-editor/pkg/seed"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	s := seed.Default()
	ctrl, err := controller.New(s.Nodes, s.Edges, controller.Options{})
	if err != nil {
		t.Fatalf("controller.New failed: %v", err)
	}

	server := NewServer(ctrl)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(func() {
		server.Close()
		ts.Close()
	})
	return server, ts
}

func doJSON(t *testing.T, method, url string, body interface{}) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func TestGetGraph(t *testing.T) {
	_, ts := newTestServer(t)

	resp := doJSON(t, "GET", ts.URL+"/api/graph", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header")
	}

	snap := decode[model.Snapshot](t, resp)
	if len(snap.Nodes) != 5 || len(snap.Edges) != 4 {
		t.Errorf("Expected seed graph, got %d nodes and %d edges", len(snap.Nodes), len(snap.Edges))
	}
}

func TestAddNode(t *testing.T) {
	_, ts := newTestServer(t)

	resp := doJSON(t, "POST", ts.URL+"/api/nodes", AddNodeRequest{Kind: "source"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
	node := decode[model.Node](t, resp)
	if node.Kind != model.KindSource || node.Label != "Source 6" {
		t.Errorf("Unexpected node %+v", node)
	}

	resp = doJSON(t, "POST", ts.URL+"/api/nodes", AddNodeRequest{Kind: "sink"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown kind, got %d", resp.StatusCode)
	}
}

func TestConnect(t *testing.T) {
	_, ts := newTestServer(t)

	tests := []struct {
		name       string
		source     string
		target     string
		wantStatus int
		wantReason string
	}{
		{"accepted", "1", "5", http.StatusCreated, ""},
		{"duplicate", "1", "5", http.StatusConflict, "duplicate_edge"},
		{"wrong direction", "4", "1", http.StatusUnprocessableEntity, "invalid_kind_pair"},
		{"unknown node", "1", "99", http.StatusUnprocessableEntity, "unknown_endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := doJSON(t, "POST", ts.URL+"/api/connect", map[string]string{"source": tt.source, "target": tt.target})
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("Expected %d, got %d", tt.wantStatus, resp.StatusCode)
			}

			if tt.wantReason == "" {
				edge := decode[model.Edge](t, resp)
				if edge.ID != model.EdgeID(tt.source, tt.target) {
					t.Errorf("Unexpected edge %+v", edge)
				}
				return
			}

			errResp := decode[ErrorResponse](t, resp)
			if errResp.Reason != tt.wantReason {
				t.Errorf("Expected reason %s, got %s", tt.wantReason, errResp.Reason)
			}
		})
	}

	resp := doJSON(t, "POST", ts.URL+"/api/connect", map[string]string{"source": "4", "target": "1"})
	errResp := decode[ErrorResponse](t, resp)
	if errResp.Message != "You can only connect a Source to a Destination." {
		t.Errorf("Unexpected notice message %q", errResp.Message)
	}

	snap := decode[model.Snapshot](t, doJSON(t, "GET", ts.URL+"/api/graph", nil))
	if len(snap.Edges) != 5 {
		t.Errorf("Expected 5 edges after one accepted connect, got %d", len(snap.Edges))
	}
}

func TestRemoveNodeCascades(t *testing.T) {
	_, ts := newTestServer(t)

	resp := doJSON(t, "DELETE", ts.URL+"/api/nodes/3", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", resp.StatusCode)
	}

	snap := decode[model.Snapshot](t, doJSON(t, "GET", ts.URL+"/api/graph", nil))
	for _, e := range snap.Edges {
		if e.References("3") {
			t.Errorf("Edge %s still references node 3", e.ID)
		}
	}

	resp = doJSON(t, "DELETE", ts.URL+"/api/nodes/3", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 on second delete, got %d", resp.StatusCode)
	}
}

func TestMoveNode(t *testing.T) {
	_, ts := newTestServer(t)

	resp := doJSON(t, "PUT", ts.URL+"/api/nodes/1/position", model.Position{X: 42, Y: 7})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", resp.StatusCode)
	}

	resp = doJSON(t, "PUT", ts.URL+"/api/nodes/nope/position", model.Position{X: 1, Y: 1})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}

	snap := decode[model.Snapshot](t, doJSON(t, "GET", ts.URL+"/api/graph", nil))
	n, _ := model.FindNode(snap.Nodes, "1")
	if n.Position != (model.Position{X: 42, Y: 7}) {
		t.Errorf("Unexpected position %+v", n.Position)
	}
}

func TestEdgeActivateIsIdempotent(t *testing.T) {
	_, ts := newTestServer(t)

	for i := 0; i < 2; i++ {
		resp := doJSON(t, "POST", ts.URL+"/api/edges/e1-4/activate", nil)
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("Attempt %d: expected 204, got %d", i+1, resp.StatusCode)
		}
	}

	snap := decode[model.Snapshot](t, doJSON(t, "GET", ts.URL+"/api/graph", nil))
	if len(snap.Edges) != 3 {
		t.Errorf("Expected 3 edges, got %d", len(snap.Edges))
	}
}

func TestBatchChangesAndDeleteSelected(t *testing.T) {
	_, ts := newTestServer(t)

	resp := doJSON(t, "POST", ts.URL+"/api/changes/nodes", []controller.NodeChange{
		{ID: "4", Type: controller.ChangeSelect, Selected: true},
		{ID: "missing", Type: controller.ChangeRemove},
	})
	res := decode[controller.BatchResult](t, resp)
	if res.Applied != 1 || len(res.Skipped) != 1 {
		t.Errorf("Unexpected node batch result %+v", res)
	}

	resp = doJSON(t, "POST", ts.URL+"/api/changes/edges", []controller.EdgeChange{
		{ID: "e3-5", Type: controller.ChangeSelect, Selected: true},
	})
	if res := decode[controller.BatchResult](t, resp); res.Applied != 1 {
		t.Errorf("Unexpected edge batch result %+v", res)
	}

	resp = doJSON(t, "POST", ts.URL+"/api/delete-selected", nil)
	res = decode[controller.BatchResult](t, resp)
	if len(res.RemovedNodes) != 1 || len(res.RemovedEdges) != 4 {
		t.Errorf("Expected node 4 and 4 edges removed, got %+v", res)
	}

	snap := decode[model.Snapshot](t, doJSON(t, "GET", ts.URL+"/api/graph", nil))
	if len(snap.Nodes) != 4 || len(snap.Edges) != 0 {
		t.Errorf("Unexpected graph %+v", snap)
	}
}

func TestViewport(t *testing.T) {
	server, ts := newTestServer(t)

	resp := doJSON(t, "PUT", ts.URL+"/api/viewport", controller.Viewport{Width: 800, Height: 600})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("Expected 204, got %d", resp.StatusCode)
	}
	if v := server.ctrl.Viewport(); v.Width != 800 || v.Height != 600 {
		t.Errorf("Viewport not applied: %+v", v)
	}

	resp = doJSON(t, "PUT", ts.URL+"/api/viewport", controller.Viewport{Width: -1, Height: 600})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
}

func TestStats(t *testing.T) {
	_, ts := newTestServer(t)

	stats := decode[controller.Stats](t, doJSON(t, "GET", ts.URL+"/api/graph/stats", nil))
	if stats.Sources != 3 || stats.Destinations != 2 || stats.Edges != 4 {
		t.Errorf("Unexpected stats %+v", stats)
	}
}

func TestSubscribeGraphSSE(t *testing.T) {
	server, ts := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, "GET", ts.URL+"/api/subscribe/graph", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Expected text/event-stream, got %s", ct)
	}

	reader := bufio.NewReader(resp.Body)
	next := func() pubsub.Event {
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("read stream: %v", err)
			}
			if strings.HasPrefix(line, "data: ") {
				var event pubsub.Event
				if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
					t.Fatalf("decode event: %v", err)
				}
				return event
			}
		}
	}

	// The current snapshot is replayed on subscribe
	var snap model.Snapshot
	if err := json.Unmarshal(next().Data, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snap.Edges) != 4 {
		t.Errorf("Expected seed snapshot, got %d edges", len(snap.Edges))
	}

	if err := server.ctrl.RemoveEdge("e1-4"); err != nil {
		t.Fatalf("RemoveEdge failed: %v", err)
	}
	if err := json.Unmarshal(next().Data, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snap.Edges) != 3 {
		t.Errorf("Expected updated snapshot with 3 edges, got %d", len(snap.Edges))
	}
}

func TestWebSocketSurface(t *testing.T) {
	_, ts := newTestServer(t)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	read := func() Message {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read failed: %v", err)
		}
		return msg
	}
	send := func(typ string, data interface{}) {
		raw, _ := json.Marshal(data)
		if err := conn.WriteJSON(Message{Type: typ, Data: raw}); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}

	msg := read()
	if msg.Type != MsgGraph {
		t.Fatalf("Expected initial graph message, got %s", msg.Type)
	}

	// Rejected connection surfaces as a notice, state untouched
	send(MsgConnect, map[string]string{"source": "5", "target": "1"})
	msg = read()
	if msg.Type != MsgNotice {
		t.Fatalf("Expected notice, got %s", msg.Type)
	}
	var notice pubsub.Notice
	json.Unmarshal(msg.Data, &notice)
	if notice.Reason != "invalid_kind_pair" || notice.Source != "5" {
		t.Errorf("Unexpected notice %+v", notice)
	}

	// Accepted connection produces a new snapshot
	send(MsgConnect, map[string]string{"source": "1", "target": "5"})
	msg = read()
	if msg.Type != MsgGraph {
		t.Fatalf("Expected graph update, got %s", msg.Type)
	}
	var snap model.Snapshot
	json.Unmarshal(msg.Data, &snap)
	if len(snap.Edges) != 5 {
		t.Errorf("Expected 5 edges, got %d", len(snap.Edges))
	}

	// Palette action
	send(MsgAddNode, AddNodeRequest{Kind: "destination"})
	msg = read()
	json.Unmarshal(msg.Data, &snap)
	if msg.Type != MsgGraph || len(snap.Nodes) != 6 {
		t.Errorf("Expected snapshot with 6 nodes, got %s with %d", msg.Type, len(snap.Nodes))
	}

	// Click-to-remove
	send(MsgEdgeActivated, map[string]string{"id": "e1-5"})
	msg = read()
	json.Unmarshal(msg.Data, &snap)
	if len(snap.Edges) != 4 {
		t.Errorf("Expected 4 edges after click-to-remove, got %d", len(snap.Edges))
	}

	// Activating an edge that is already gone is not an error
	send(MsgEdgeActivated, map[string]string{"id": "e1-5"})
	send(MsgAddNode, AddNodeRequest{Kind: "source"})
	msg = read()
	if msg.Type != MsgGraph {
		t.Fatalf("Expected graph after repeated activation, got %s: %s", msg.Type, msg.Data)
	}
	json.Unmarshal(msg.Data, &snap)
	if len(snap.Nodes) != 7 || len(snap.Edges) != 4 {
		t.Errorf("Expected 7 nodes and 4 edges, got %d and %d", len(snap.Nodes), len(snap.Edges))
	}

	// Malformed messages get an error reply
	send("teleport", nil)
	if msg = read(); msg.Type != MsgError {
		t.Errorf("Expected error message, got %s", msg.Type)
	}
}
