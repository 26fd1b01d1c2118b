package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/ritzau/flow-editor/pkg/controller"
	"github.com/ritzau/flow-editor/pkg/logging"
	"github.com/ritzau/flow-editor/pkg/model"
	"github.com/ritzau/flow-editor/pkg/pubsub"
)

const shutdownTimeout = 5 * time.Second

// Server adapts the controller to rendering surfaces over HTTP, SSE and WebSocket.
// Surfaces only ever receive snapshots; every mutation goes through the controller.
type Server struct {
	router      *mux.Router
	ctrl        *controller.Controller
	broker      *pubsub.Broker
	upgrader    websocket.Upgrader
	unsubscribe func()
}

// NewServer creates a server for ctrl and starts publishing its snapshots
func NewServer(ctrl *controller.Controller) *Server {
	broker := pubsub.NewBroker()

	s := &Server{
		router: mux.NewRouter(),
		ctrl:   ctrl,
		broker: broker,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Surfaces are served from their own dev servers, like the JSON API (see CORS header)
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	s.unsubscribe = ctrl.Subscribe(s.publishSnapshot)
	s.publishSnapshot(ctrl.Snapshot())

	s.setupRoutes()
	return s
}

func (s *Server) publishSnapshot(snap model.Snapshot) {
	if err := s.broker.Publish(pubsub.TopicGraph, "snapshot", snap); err != nil {
		logging.Warn("failed to publish snapshot", "version", snap.Version, "error", err)
	}
}

func (s *Server) publishNotice(notice pubsub.Notice) {
	if err := s.broker.Publish(pubsub.TopicNotices, "notice", notice); err != nil {
		logging.Warn("failed to publish notice", "reason", notice.Reason, "error", err)
	}
}

func (s *Server) setupRoutes() {
	s.router.Use(logging.RequestIDMiddleware)
	s.router.Use(corsMiddleware)

	// Streams to rendering surfaces
	s.router.HandleFunc("/api/subscribe/graph", s.handleSubscribe(pubsub.TopicGraph)).Methods("GET")
	s.router.HandleFunc("/api/subscribe/notices", s.handleSubscribe(pubsub.TopicNotices)).Methods("GET")
	s.router.HandleFunc("/api/ws", s.handleWebSocket).Methods("GET")

	// State
	s.router.HandleFunc("/api/graph", s.handleGraph).Methods("GET")
	s.router.HandleFunc("/api/graph/stats", s.handleStats).Methods("GET")

	// Palette and single-item operations
	s.router.HandleFunc("/api/nodes", s.handleAddNode).Methods("POST")
	s.router.HandleFunc("/api/nodes/{id}/position", s.handleMoveNode).Methods("PUT")
	s.router.HandleFunc("/api/nodes/{id}", s.handleRemoveNode).Methods("DELETE")
	s.router.HandleFunc("/api/connect", s.handleConnect).Methods("POST")
	s.router.HandleFunc("/api/edges/{id}/activate", s.handleRemoveEdge).Methods("POST")
	s.router.HandleFunc("/api/edges/{id}", s.handleRemoveEdge).Methods("DELETE")

	// Batches reported by the surface
	s.router.HandleFunc("/api/changes/nodes", s.handleNodeChanges).Methods("POST")
	s.router.HandleFunc("/api/changes/edges", s.handleEdgeChanges).Methods("POST")
	s.router.HandleFunc("/api/delete-selected", s.handleDeleteSelected).Methods("POST")
	s.router.HandleFunc("/api/viewport", s.handleViewport).Methods("PUT")
}

// Handler returns the HTTP handler serving all routes
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close detaches the server from the controller and ends all streams
func (s *Server) Close() error {
	s.unsubscribe()
	return s.broker.Close()
}

// Run serves on the given port until ctx is cancelled
func (s *Server) Run(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("serving editor", "url", fmt.Sprintf("http://localhost:%d", port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logging.Info("shutting down server")
		// Closing the broker ends SSE loops and WebSocket forwarders, which Shutdown doesn't track
		s.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}
