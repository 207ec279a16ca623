// Package debugserver exposes a read-only HTTP+WebSocket introspection
// surface over a running MEP process: the current state of a named
// endpoint, and a live stream of trace records. It is additive to
// spec.md's scope (see SPEC_FULL.md), not a gateway control-plane
// endpoint, so it does not reopen the wire-protocol Non-goal.
package debugserver

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"github.com/arcology-network/mep/internal/mep"
	"github.com/arcology-network/mep/internal/trace"
)

// Registry looks up a live endpoint by the id the owning PSM gave it.
type Registry interface {
	Lookup(id string) (*mep.Base, bool)
}

// Server serves the debug surface over HTTP.
type Server struct {
	registry Registry
	tracer   *trace.Tracer
	upgrader websocket.Upgrader
	handler  http.Handler
}

// New builds a Server. registry resolves endpoint ids for GET /mep/{id};
// tracer is streamed to GET /trace/stream.
func New(registry Registry, tracer *trace.Tracer) *Server {
	s := &Server{
		registry: registry,
		tracer:   tracer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	router := http.NewServeMux()
	router.HandleFunc("/mep/", s.handleGetEndpoint)
	router.HandleFunc("/trace/stream", s.handleTraceStream)

	s.handler = cors.AllowAll().Handler(router)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

type endpointView struct {
	Psm      mep.PsmID      `json:"psm"`
	State    string         `json:"state"`
	Disabled bool           `json:"disabled"`
	Channel  string         `json:"channel"`
}

func (s *Server) handleGetEndpoint(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/mep/")
	if id == "" {
		http.NotFound(w, r)
		return
	}
	ep, ok := s.registry.Lookup(id)
	if !ok {
		http.Error(w, "unknown endpoint", http.StatusNotFound)
		return
	}
	view := endpointView{
		Psm:      ep.Psm(),
		State:    ep.State().String(),
		Disabled: ep.Disabled(),
		Channel:  ep.LocalChannelAttributes().String(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(view)
}

// handleTraceStream pushes every currently-buffered trace record to the
// client, then polls for new ones until the connection closes. It is a
// debugging aid, not a guaranteed-delivery stream.
func (s *Server) handleTraceStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sent := 0
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			records := s.tracer.Records()
			for ; sent < len(records); sent++ {
				if err := conn.WriteJSON(map[string]string{
					"event":   records[sent].EventString(),
					"display": records[sent].Display(),
				}); err != nil {
					return
				}
			}
		}
	}
}
