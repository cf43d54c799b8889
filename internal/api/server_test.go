package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/AaronLay10/SceneEngine/internal/bus"
	"github.com/AaronLay10/SceneEngine/internal/events"
	"github.com/AaronLay10/SceneEngine/internal/objects"
	"github.com/AaronLay10/SceneEngine/internal/orchestrator"
)

// fakeSource serves a fixed snapshot and records posted commands.
type fakeSource struct {
	mu     sync.Mutex
	snap   *orchestrator.Snapshot
	posted []bus.Command
	full   bool
}

func (f *fakeSource) Snapshot() *orchestrator.Snapshot { return f.snap }

func (f *fakeSource) PostCommand(cmd bus.Command) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.full {
		return false
	}
	f.posted = append(f.posted, cmd)
	return true
}

type fakeOverrides struct{}

func (fakeOverrides) Commands() []string {
	return []string{"switch harbor dock 1 1", "switch harbor dock 1 0"}
}

func (fakeOverrides) Compact() []string { return []string{"switch harbor dock 1 0"} }

func newTestServer() (*Server, *fakeSource) {
	resetAuth()
	src := &fakeSource{snap: &orchestrator.Snapshot{
		Location:  "harbor",
		Scene:     "dock",
		Activated: []int{1},
		Objects: []orchestrator.ObjectView{
			{ID: 1, Type: "switch", Lifecycle: "activated", Pose: "off", Interactable: true, State: objects.RuntimeState{Switch: 0}},
			{ID: 2, Type: "door", Lifecycle: "inactive"},
		},
	}}
	return NewServer(src, fakeOverrides{}), src
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	s, _ := newTestServer()
	w := do(t, s.Handler(), "GET", "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("expected status 'ok', got '%s'", resp.Status)
	}
}

func setReadiness(runtime, mqttConnected, mqttOptional, pgConnected, pgOptional bool) {
	SetRuntimeReady(runtime)
	SetMQTTState(mqttConnected, mqttOptional)
	SetPostgresState(pgConnected, pgOptional)
}

func readyResponse(t *testing.T) (int, ReadinessResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	readyHandler(w, httptest.NewRequest("GET", "/ready", nil))
	var resp ReadinessResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return w.Code, resp
}

func TestReadyEndpoint_AllReady(t *testing.T) {
	setReadiness(true, true, false, true, false)
	code, resp := readyResponse(t)
	if code != http.StatusOK || !resp.Ready {
		t.Fatalf("expected ready, got %d %+v", code, resp)
	}
	for _, name := range []string{"runtime", "mqtt", "postgres"} {
		if resp.Checks[name].Status != "ok" {
			t.Errorf("%s status %q", name, resp.Checks[name].Status)
		}
	}
}

func TestReadyEndpoint_NoScene(t *testing.T) {
	setReadiness(false, true, false, true, false)
	code, resp := readyResponse(t)
	if code != http.StatusServiceUnavailable || resp.Ready {
		t.Fatalf("expected not ready, got %d", code)
	}
	if resp.Checks["runtime"].Status != "not_ready" || resp.NotReadyMsg == "" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestReadyEndpoint_OptionalDependencies(t *testing.T) {
	setReadiness(true, false, true, false, true)
	code, resp := readyResponse(t)
	if code != http.StatusOK || !resp.Ready {
		t.Fatalf("optional dependencies must not fail readiness: %d", code)
	}
	if resp.Checks["mqtt"].Status != "unavailable" || !resp.Checks["mqtt"].Optional {
		t.Errorf("mqtt check %+v", resp.Checks["mqtt"])
	}
	if resp.Checks["postgres"].Status != "unavailable" {
		t.Errorf("postgres check %+v", resp.Checks["postgres"])
	}
}

func TestReadyEndpoint_RequiredMQTTDown(t *testing.T) {
	setReadiness(false, false, false, true, false)
	code, resp := readyResponse(t)
	if code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", code)
	}
	if resp.Checks["mqtt"].Status != "not_ready" {
		t.Errorf("mqtt check %+v", resp.Checks["mqtt"])
	}
	if !strings.Contains(resp.NotReadyMsg, "mqtt") || !strings.Contains(resp.NotReadyMsg, "scene") {
		t.Errorf("message should list both reasons: %q", resp.NotReadyMsg)
	}
}

func TestObjectsEndpoints(t *testing.T) {
	s, _ := newTestServer()
	h := s.Handler()

	w := do(t, h, "GET", "/objects", "")
	var views []orchestrator.ObjectView
	if err := json.NewDecoder(w.Body).Decode(&views); err != nil {
		t.Fatal(err)
	}
	if len(views) != 2 || views[0].Pose != "off" {
		t.Errorf("unexpected objects: %+v", views)
	}

	w = do(t, h, "GET", "/objects/2", "")
	var v orchestrator.ObjectView
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	if w.Code != http.StatusOK || v.Type != "door" {
		t.Errorf("unexpected object: %d %+v", w.Code, v)
	}

	if w := do(t, h, "GET", "/objects/9", ""); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if w := do(t, h, "GET", "/objects/abc", ""); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}

	w = do(t, h, "GET", "/scene", "")
	var snap orchestrator.Snapshot
	if err := json.NewDecoder(w.Body).Decode(&snap); err != nil {
		t.Fatal(err)
	}
	if snap.Location != "harbor" || snap.Scene != "dock" {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
}

func TestOperatorInteract(t *testing.T) {
	events.Clear()
	s, src := newTestServer()
	h := s.Handler()

	w := do(t, h, "POST", "/operator/interact", `{"object_id": 1}`)
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", w.Code, w.Body.String())
	}
	if len(src.posted) != 1 || src.posted[0].Kind != bus.KindInteractObject {
		t.Fatalf("command not posted: %+v", src.posted)
	}
	if p := src.posted[0].Payload.(bus.Interact); p.ObjectID != 1 {
		t.Errorf("wrong object: %+v", p)
	}
	if len(events.Find("operator.interact")) != 1 {
		t.Error("expected operator.interact event")
	}
}

func TestOperatorErrors(t *testing.T) {
	s, src := newTestServer()
	h := s.Handler()

	cases := []struct {
		method, path, body string
		want               int
	}{
		{"GET", "/operator/interact", "", http.StatusMethodNotAllowed},
		{"POST", "/operator/interact", "{", http.StatusBadRequest},
		{"POST", "/operator/interact", `{}`, http.StatusBadRequest},
		{"POST", "/operator/activate", `{"object_id": 42}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		if w := do(t, h, tc.method, tc.path, tc.body); w.Code != tc.want {
			t.Errorf("%s %s %s: expected %d, got %d", tc.method, tc.path, tc.body, tc.want, w.Code)
		}
	}
	if len(src.posted) != 0 {
		t.Errorf("rejected requests must not post: %+v", src.posted)
	}

	src.full = true
	if w := do(t, h, "POST", "/operator/deactivate", `{"object_id": 0}`); w.Code != http.StatusNotFound {
		t.Errorf("object 0 is not in the scene, got %d", w.Code)
	}
	if w := do(t, h, "POST", "/operator/deactivate", `{"object_id": 2}`); w.Code != http.StatusServiceUnavailable {
		t.Errorf("full inbox: expected 503, got %d", w.Code)
	}
}

func TestOperatorActivateRequiresAdmin(t *testing.T) {
	s, src := newTestServer()
	auth = newAuth("admin", "secret", "op", "pw")
	defer resetAuth()
	h := s.Handler()

	req := httptest.NewRequest("POST", "/operator/activate", strings.NewReader(`{"object_id": 2}`))
	req.SetBasicAuth("op", "pw")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("operator should be forbidden, got %d", w.Code)
	}

	req = httptest.NewRequest("POST", "/operator/activate", strings.NewReader(`{"object_id": 2}`))
	req.SetBasicAuth("admin", "secret")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusAccepted {
		t.Fatalf("admin should be accepted, got %d", w.Code)
	}
	if p, ok := src.posted[0].Payload.(bus.ObjectRef); !ok || p.ObjectID != 2 || src.posted[0].Kind != bus.KindActivateObject {
		t.Errorf("unexpected command %+v", src.posted[0])
	}
}

func TestOverridesEndpoint(t *testing.T) {
	s, _ := newTestServer()
	h := s.Handler()

	var resp OverridesResponse
	w := do(t, h, "GET", "/overrides", "")
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Compacted || len(resp.Commands) != 2 {
		t.Errorf("unexpected full stream: %+v", resp)
	}

	w = do(t, h, "GET", "/overrides?compact=1", "")
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Compacted || len(resp.Commands) != 1 || resp.Commands[0] != "switch harbor dock 1 0" {
		t.Errorf("unexpected compacted stream: %+v", resp)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	InitMetrics("dev")
	s, _ := newTestServer()
	events.Emit("info", "interaction.started", "", nil)

	w := do(t, s.Handler(), "GET", "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		"scene_uptime_seconds{",
		"scene_interactions_started_total{",
		"scene_objects_activated{",
		`engine="dev"`,
		"# TYPE scene_events_total counter",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
	if !strings.Contains(body, "scene_objects_activated{") || !strings.Contains(body, "} 1\n") {
		t.Errorf("expected one activated object in:\n%s", body)
	}
}
