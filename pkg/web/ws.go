package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ritzau/flow-editor/pkg/controller"
	"github.com/ritzau/flow-editor/pkg/logging"
	"github.com/ritzau/flow-editor/pkg/model"
	"github.com/ritzau/flow-editor/pkg/pubsub"
	"github.com/ritzau/flow-editor/pkg/validate"
)

// Inbound message types sent by a rendering surface over the WebSocket
const (
	MsgAddNode       = "addNode"       // data: AddNodeRequest
	MsgConnect       = "connect"       // data: validate.Request
	MsgNodesChanged  = "nodesChanged"  // data: []controller.NodeChange
	MsgEdgesChanged  = "edgesChanged"  // data: []controller.EdgeChange
	MsgEdgeActivated = "edgeActivated" // data: {"id": ...}
	MsgDeleteKey     = "deleteKey"     // no data
	MsgViewport      = "viewport"      // data: controller.Viewport
)

// Outbound message types
const (
	MsgGraph  = "graph"  // data: model.Snapshot
	MsgNotice = "notice" // data: pubsub.Notice
	MsgError  = "error"  // data: ErrorResponse, for malformed messages
)

// Message is the envelope for both directions of the WebSocket channel
type Message struct {
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data,omitempty"`
	Version int             `json:"version,omitempty"`
}

type edgeRef struct {
	ID string `json:"id"`
}

// surfaceConn serializes writes to a websocket.Conn, which allows a single writer only
type surfaceConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *surfaceConn) send(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", msg.Type, err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *surfaceConn) sendError(err error) {
	data, _ := json.Marshal(ErrorResponse{Error: err.Error()})
	if werr := c.send(Message{Type: MsgError, Data: data}); werr != nil {
		logging.Debug("failed to send error to surface", "error", werr)
	}
}

// handleWebSocket attaches a rendering surface: snapshots and notices flow out,
// user intent flows in
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error
		logging.WarnContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	surface := &surfaceConn{conn: conn}

	graphSub, err := s.broker.Subscribe(ctx, pubsub.TopicGraph)
	if err != nil {
		surface.sendError(err)
		return
	}
	noticeSub, err := s.broker.Subscribe(ctx, pubsub.TopicNotices)
	if err != nil {
		graphSub.Close()
		surface.sendError(err)
		return
	}

	logging.InfoContext(ctx, "surface attached", "remoteAddr", r.RemoteAddr)
	go s.forward(ctx, surface, graphSub, noticeSub)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logging.WarnContext(ctx, "surface read failed", "error", err)
			}
			break
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			surface.sendError(fmt.Errorf("invalid message: %w", err))
			continue
		}
		if err := s.dispatch(ctx, msg); err != nil {
			surface.sendError(err)
		}
	}

	logging.InfoContext(ctx, "surface detached", "remoteAddr", r.RemoteAddr)
}

// forward relays broker events to the surface until either subscription ends
func (s *Server) forward(ctx context.Context, surface *surfaceConn, graphSub, noticeSub pubsub.Subscription) {
	defer graphSub.Close()
	defer noticeSub.Close()
	// Unblocks the read loop when the broker shuts down first
	defer surface.conn.Close()

	for {
		var (
			event pubsub.Event
			ok    bool
			typ   string
		)
		select {
		case <-ctx.Done():
			return
		case event, ok = <-graphSub.Events():
			typ = MsgGraph
		case event, ok = <-noticeSub.Events():
			typ = MsgNotice
		}
		if !ok {
			return
		}

		if err := surface.send(Message{Type: typ, Data: event.Data, Version: event.Version}); err != nil {
			logging.DebugContext(ctx, "surface write failed", "error", err)
			return
		}
	}
}

// dispatch applies one inbound message. Rejected connections are not errors here:
// they reach the surface through the notices topic.
func (s *Server) dispatch(ctx context.Context, msg Message) error {
	logging.TraceContext(ctx, "surface message", "type", msg.Type)

	switch msg.Type {
	case MsgAddNode:
		var req AddNodeRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return fmt.Errorf("%s: %w", msg.Type, err)
		}
		kind, err := model.ParseNodeKind(req.Kind)
		if err != nil {
			return err
		}
		_, err = s.ctrl.AddNode(kind)
		return err

	case MsgConnect:
		var req validate.Request
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			return fmt.Errorf("%s: %w", msg.Type, err)
		}
		if _, err := s.connect(ctx, req); err != nil {
			if _, isNotice := noticeFor(req, err); !isNotice {
				return err
			}
		}
		return nil

	case MsgNodesChanged:
		var changes []controller.NodeChange
		if err := json.Unmarshal(msg.Data, &changes); err != nil {
			return fmt.Errorf("%s: %w", msg.Type, err)
		}
		s.ctrl.ApplyNodeChanges(changes)
		return nil

	case MsgEdgesChanged:
		var changes []controller.EdgeChange
		if err := json.Unmarshal(msg.Data, &changes); err != nil {
			return fmt.Errorf("%s: %w", msg.Type, err)
		}
		s.ctrl.ApplyEdgeChanges(changes)
		return nil

	case MsgEdgeActivated:
		var ref edgeRef
		if err := json.Unmarshal(msg.Data, &ref); err != nil {
			return fmt.Errorf("%s: %w", msg.Type, err)
		}
		// Clicking an edge another surface just removed is fine
		if err := s.ctrl.RemoveEdge(ref.ID); err != nil && !errors.Is(err, controller.ErrNotFound) {
			return err
		}
		return nil

	case MsgDeleteKey:
		s.ctrl.DeleteSelected()
		return nil

	case MsgViewport:
		var v controller.Viewport
		if err := json.Unmarshal(msg.Data, &v); err != nil {
			return fmt.Errorf("%s: %w", msg.Type, err)
		}
		return s.ctrl.SetViewport(v)

	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
}
