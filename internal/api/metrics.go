package api

import (
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/AaronLay10/SceneEngine/internal/events"
	"github.com/AaronLay10/SceneEngine/internal/version"
)

// Metrics state
var (
	metricsState = &MetricsState{}
)

// MetricsState holds process metadata for the /metrics endpoint.
type MetricsState struct {
	mu        sync.RWMutex
	startTime time.Time
	engineID  string
}

// InitMetrics initializes the metrics system. Must be called at startup.
func InitMetrics(engineID string) {
	metricsState.mu.Lock()
	defer metricsState.mu.Unlock()
	metricsState.startTime = time.Now()
	metricsState.engineID = engineID
}

// counted maps metric names onto the event they count.
var counted = []struct {
	metric, event, help string
}{
	{"scene_interactions_started_total", "interaction.started", "Interactions started"},
	{"scene_interactions_completed_total", "interaction.completed", "Interactions completed"},
	{"scene_interactions_cancelled_total", "interaction.cancelled", "Interactions cancelled by teardown"},
	{"scene_interactions_dropped_total", "interaction.dropped", "Interactions rejected by the guard, lifecycle or times gate"},
	{"scene_overrides_written_total", "override.set", "Override writes applied"},
	{"scene_loads_total", "scene.loaded", "Scenes loaded"},
	{"scene_script_errors_total", "script.error", "Scripts that failed to compile or run"},
}

// metricsHandler returns Prometheus-compatible metrics in text format.
func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	metricsState.mu.RLock()
	startTime := metricsState.startTime
	engineID := metricsState.engineID
	metricsState.mu.RUnlock()

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	writeMetric := func(name, mtype, help string, value interface{}, labels string) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
		if labels != "" {
			fmt.Fprintf(w, "%s{%s} %v\n", name, labels, value)
		} else {
			fmt.Fprintf(w, "%s %v\n", name, value)
		}
	}

	labels := fmt.Sprintf(`engine="%s",instance="%s",version="%s"`, engineID, hostname, version.Version)

	writeMetric("scene_uptime_seconds", "gauge",
		"Number of seconds since the engine started", time.Since(startTime).Seconds(), labels)

	writeMetric("scene_events_total", "counter",
		"Total number of events emitted since startup", events.TotalCount(), labels)

	for _, c := range counted {
		writeMetric(c.metric, "counter", c.help, events.Count(c.event), labels)
	}

	var activated, tasks, overrides int
	if snap := s.snapshot(); snap != nil {
		activated = len(snap.Activated)
		tasks = snap.Tasks
		overrides = snap.Overrides
	}
	writeMetric("scene_objects_activated", "gauge",
		"Objects currently activated in the loaded scene", activated, labels)
	writeMetric("scene_tasks_running", "gauge",
		"Interaction and script tasks currently suspended", tasks, labels)
	writeMetric("scene_override_entries", "gauge",
		"Objects with at least one override field", overrides, labels)

	writeMetric("scene_ws_clients", "gauge",
		"Number of active WebSocket client connections", events.SubscriberCount(), labels)
	writeMetric("scene_ws_dropped_total", "counter",
		"Events skipped for WebSocket clients that fell behind", events.DroppedCount(), labels)
}
