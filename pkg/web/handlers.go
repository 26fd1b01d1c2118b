package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ritzau/flow-editor/pkg/controller"
	"github.com/ritzau/flow-editor/pkg/logging"
	"github.com/ritzau/flow-editor/pkg/model"
	"github.com/ritzau/flow-editor/pkg/pubsub"
	"github.com/ritzau/flow-editor/pkg/validate"
)

// maxBodyBytes bounds request bodies; batches from a drag are small
const maxBodyBytes = 1 << 20

// AddNodeRequest is the palette action payload
type AddNodeRequest struct {
	Kind string `json:"kind"` // "source" or "destination"
}

// ErrorResponse is returned for every non-2xx API response
type ErrorResponse struct {
	Error   string `json:"error"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"` // User-facing notice text
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Snapshot())
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.ctrl.Stats())
}

func (s *Server) handleAddNode(w http.ResponseWriter, r *http.Request) {
	var req AddNodeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	kind, err := model.ParseNodeKind(req.Kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	node, err := s.ctrl.AddNode(kind)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	logging.InfoContext(r.Context(), "node added", "id", node.ID, "kind", string(kind))
	writeJSON(w, http.StatusCreated, node)
}

func (s *Server) handleMoveNode(w http.ResponseWriter, r *http.Request) {
	var pos model.Position
	if !decodeBody(w, r, &pos) {
		return
	}

	id := mux.Vars(r)["id"]
	if err := s.ctrl.MoveNode(id, pos); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRemoveNode(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.ctrl.RemoveNode(id); err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	logging.InfoContext(r.Context(), "node removed", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req validate.Request
	if !decodeBody(w, r, &req) {
		return
	}

	edge, err := s.connect(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, edge)
}

// connect runs a connection request and broadcasts a notice when it is rejected
func (s *Server) connect(ctx context.Context, req validate.Request) (model.Edge, error) {
	edge, err := s.ctrl.RequestConnect(req.Source, req.Target)
	if err != nil {
		if notice, ok := noticeFor(req, err); ok {
			s.publishNotice(notice)
		}
		return model.Edge{}, err
	}

	logging.InfoContext(ctx, "edge added", "id", edge.ID)
	return edge, nil
}

// handleRemoveEdge serves click-to-remove; an edge that is already gone is not an error
func (s *Server) handleRemoveEdge(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.ctrl.RemoveEdge(id); err != nil && !errors.Is(err, controller.ErrNotFound) {
		writeError(w, statusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleNodeChanges(w http.ResponseWriter, r *http.Request) {
	var changes []controller.NodeChange
	if !decodeBody(w, r, &changes) {
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.ApplyNodeChanges(changes))
}

func (s *Server) handleEdgeChanges(w http.ResponseWriter, r *http.Request) {
	var changes []controller.EdgeChange
	if !decodeBody(w, r, &changes) {
		return
	}
	writeJSON(w, http.StatusOK, s.ctrl.ApplyEdgeChanges(changes))
}

func (s *Server) handleDeleteSelected(w http.ResponseWriter, r *http.Request) {
	res := s.ctrl.DeleteSelected()
	if res.Applied > 0 {
		logging.InfoContext(r.Context(), "selection deleted", "nodes", len(res.RemovedNodes), "edges", len(res.RemovedEdges))
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleViewport(w http.ResponseWriter, r *http.Request) {
	var v controller.Viewport
	if !decodeBody(w, r, &v) {
		return
	}
	if err := s.ctrl.SetViewport(v); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSubscribe streams a topic as Server-Sent Events
func (s *Server) handleSubscribe(topic string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		sub, err := s.broker.Subscribe(r.Context(), topic)
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		defer sub.Close()

		// Initial comment establishes the stream (Safari compatibility)
		fmt.Fprintf(w, ": connected\n\n")
		flush(w)

		for event := range sub.Events() {
			if err := pubsub.WriteSSE(w, event); err != nil {
				logging.DebugContext(r.Context(), "SSE client gone", "topic", topic, "error", err)
				return
			}
			flush(w)
		}
	}
}

func flush(w http.ResponseWriter) {
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
}

// noticeFor turns a connect error into the notice shown to users
func noticeFor(req validate.Request, err error) (pubsub.Notice, bool) {
	var rejection *validate.RejectionError
	switch {
	case errors.As(err, &rejection):
		return pubsub.Notice{
			Reason:  string(rejection.Reason),
			Message: rejection.Message(),
			Source:  req.Source,
			Target:  req.Target,
		}, true
	case errors.Is(err, controller.ErrDuplicateEdge):
		return pubsub.Notice{
			Reason:  "duplicate_edge",
			Message: "These nodes are already connected.",
			Source:  req.Source,
			Target:  req.Target,
		}, true
	default:
		return pubsub.Notice{}, false
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, controller.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, controller.ErrDuplicateEdge):
		return http.StatusConflict
	case errors.Is(err, validate.ErrInvalidKindPair), errors.Is(err, validate.ErrUnknownEndpoint):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrUnknownKind), errors.Is(err, model.ErrInvalidPosition):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	resp := ErrorResponse{Error: err.Error()}

	var rejection *validate.RejectionError
	switch {
	case errors.As(err, &rejection):
		resp.Reason = string(rejection.Reason)
		resp.Message = rejection.Message()
	case errors.Is(err, controller.ErrDuplicateEdge):
		resp.Reason = "duplicate_edge"
	case errors.Is(err, controller.ErrNotFound):
		resp.Reason = "not_found"
	}

	writeJSON(w, status, resp)
}
