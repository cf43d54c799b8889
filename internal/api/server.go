package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/AaronLay10/SceneEngine/internal/bus"
	"github.com/AaronLay10/SceneEngine/internal/events"
	"github.com/AaronLay10/SceneEngine/internal/orchestrator"
)

// Source is the runtime as seen from HTTP handlers. Both methods are safe
// from any goroutine.
type Source interface {
	Snapshot() *orchestrator.Snapshot
	PostCommand(cmd bus.Command) bool
}

// OverrideSource exposes the override command stream.
type OverrideSource interface {
	Commands() []string
	Compact() []string
}

// Server serves the inspection and operator API.
type Server struct {
	src       Source
	overrides OverrideSource
}

// NewServer creates a server. overrides may be nil.
func NewServer(src Source, overrides OverrideSource) *Server {
	return &Server{src: src, overrides: overrides}
}

func (s *Server) snapshot() *orchestrator.Snapshot {
	if s.src == nil {
		return nil
	}
	return s.src.Snapshot()
}

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Hostname  string `json:"hostname"`
	Timestamp string `json:"ts"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	host, _ := os.Hostname()
	resp := HealthResponse{
		Status:    "ok",
		Service:   "sceneengine",
		Hostname:  host,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func eventsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(events.Snapshot())
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// sceneHandler returns the whole snapshot.
func (s *Server) sceneHandler(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot()
	if snap == nil {
		writeJSON(w, http.StatusServiceUnavailable, OperatorResponse{Error: "runtime not started"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) objectsHandler(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot()
	if snap == nil {
		writeJSON(w, http.StatusServiceUnavailable, OperatorResponse{Error: "runtime not started"})
		return
	}
	objs := snap.Objects
	if objs == nil {
		objs = []orchestrator.ObjectView{}
	}
	writeJSON(w, http.StatusOK, objs)
}

func (s *Server) objectHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, OperatorResponse{Error: "invalid object id"})
		return
	}
	v, ok := s.findObject(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, OperatorResponse{Error: "object not found"})
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) findObject(id int) (orchestrator.ObjectView, bool) {
	snap := s.snapshot()
	if snap == nil {
		return orchestrator.ObjectView{}, false
	}
	for _, v := range snap.Objects {
		if v.ID == id {
			return v, true
		}
	}
	return orchestrator.ObjectView{}, false
}

type OperatorRequest struct {
	ObjectID *int `json:"object_id"`
}

type OperatorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// operatorHandler builds a POST handler that posts kind for the requested
// object and emits event.
func (s *Server) operatorHandler(kind bus.Kind, event string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSON(w, http.StatusMethodNotAllowed, OperatorResponse{Error: "method not allowed"})
			return
		}

		var req OperatorRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, OperatorResponse{Error: "invalid JSON"})
			return
		}
		if req.ObjectID == nil {
			writeJSON(w, http.StatusBadRequest, OperatorResponse{Error: "object_id required"})
			return
		}
		id := *req.ObjectID
		if _, ok := s.findObject(id); !ok {
			writeJSON(w, http.StatusNotFound, OperatorResponse{Error: "object not found"})
			return
		}

		var payload interface{} = bus.ObjectRef{ObjectID: id}
		if kind == bus.KindInteractObject {
			payload = bus.Interact{ObjectID: id}
		}
		if !s.src.PostCommand(bus.Command{Kind: kind, Payload: payload}) {
			writeJSON(w, http.StatusServiceUnavailable, OperatorResponse{Error: "runtime busy"})
			return
		}

		events.Emit("info", event, "", map[string]interface{}{
			"object_id": id,
		})
		writeJSON(w, http.StatusAccepted, OperatorResponse{OK: true})
	}
}

// OverridesResponse is the /overrides body.
type OverridesResponse struct {
	Compacted bool     `json:"compacted"`
	Commands  []string `json:"commands"`
}

// overridesHandler dumps the override command stream. ?compact=1 returns
// the minimal equivalent stream.
func (s *Server) overridesHandler(w http.ResponseWriter, r *http.Request) {
	if s.overrides == nil {
		writeJSON(w, http.StatusServiceUnavailable, OperatorResponse{Error: "no override store"})
		return
	}
	compact := r.URL.Query().Get("compact") != ""
	cmds := s.overrides.Commands()
	if compact {
		cmds = s.overrides.Compact()
	}
	if cmds == nil {
		cmds = []string{}
	}
	writeJSON(w, http.StatusOK, OverridesResponse{Compacted: compact, Commands: cmds})
}

// Handler returns the routed API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", readyHandler)
	mux.HandleFunc("GET /metrics", s.metricsHandler)
	mux.HandleFunc("GET /events", RequireAnyRole(eventsHandler))
	mux.HandleFunc("GET /ws/events", RequireAnyRole(wsEventsHandler))
	mux.HandleFunc("GET /scene", RequireAnyRole(s.sceneHandler))
	mux.HandleFunc("GET /objects", RequireAnyRole(s.objectsHandler))
	mux.HandleFunc("GET /objects/{id}", RequireAnyRole(s.objectHandler))
	mux.HandleFunc("/operator/interact", RequireAnyRole(s.operatorHandler(bus.KindInteractObject, "operator.interact")))
	mux.HandleFunc("/operator/activate", RequireAdmin(s.operatorHandler(bus.KindActivateObject, "operator.activate")))
	mux.HandleFunc("/operator/deactivate", RequireAdmin(s.operatorHandler(bus.KindDeactivateObject, "operator.deactivate")))
	mux.HandleFunc("GET /overrides", RequireAdmin(s.overridesHandler))
	return mux
}

// ListenAndServe starts the API server on the given port, over TLS when
// configured. It blocks until the server exits.
func (s *Server) ListenAndServe(port int) error {
	addr := fmt.Sprintf(":%d", port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if tlsCfg := LoadTLSConfig(); tlsCfg != nil {
		srv.TLSConfig = tlsCfg
		log.Printf("API listening on %s (TLS)\n", addr)
		return srv.ListenAndServeTLS("", "")
	}
	log.Printf("API listening on %s\n", addr)
	return srv.ListenAndServe()
}

// Start starts the API server in a goroutine.
// Errors are logged but do not stop the caller.
func (s *Server) Start(port int) {
	go func() {
		if err := s.ListenAndServe(port); err != nil && err != http.ErrServerClosed {
			log.Printf("api server error: %v", err)
		}
	}()
}
