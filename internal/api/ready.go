package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
)

// readiness holds the dependency state reported by /ready.
var readiness = &readinessState{}

type readinessState struct {
	mu                sync.RWMutex
	runtimeReady      bool
	mqttConnected     bool
	mqttOptional      bool
	postgresConnected bool
	postgresOptional  bool
}

// CheckResult is one dependency in a readiness response.
type CheckResult struct {
	Status   string `json:"status"`
	Optional bool   `json:"optional,omitempty"`
}

// ReadinessResponse is the /ready body.
type ReadinessResponse struct {
	Ready       bool                   `json:"ready"`
	Checks      map[string]CheckResult `json:"checks"`
	NotReadyMsg string                 `json:"message,omitempty"`
}

// SetRuntimeReady marks whether the first scene has loaded.
func SetRuntimeReady(ready bool) {
	readiness.mu.Lock()
	readiness.runtimeReady = ready
	readiness.mu.Unlock()
}

// SetMQTTState records the collaborator link state. An optional link that is
// down does not fail readiness.
func SetMQTTState(connected, optional bool) {
	readiness.mu.Lock()
	readiness.mqttConnected = connected
	readiness.mqttOptional = optional
	readiness.mu.Unlock()
}

// SetPostgresState records the journal database state.
func SetPostgresState(connected, optional bool) {
	readiness.mu.Lock()
	readiness.postgresConnected = connected
	readiness.postgresOptional = optional
	readiness.mu.Unlock()
}

func dependencyCheck(connected, optional bool) (CheckResult, bool) {
	switch {
	case connected:
		return CheckResult{Status: "ok", Optional: optional}, true
	case optional:
		return CheckResult{Status: "unavailable", Optional: true}, true
	default:
		return CheckResult{Status: "not_ready"}, false
	}
}

func readyHandler(w http.ResponseWriter, r *http.Request) {
	readiness.mu.RLock()
	runtimeReady := readiness.runtimeReady
	mqttConnected, mqttOptional := readiness.mqttConnected, readiness.mqttOptional
	pgConnected, pgOptional := readiness.postgresConnected, readiness.postgresOptional
	readiness.mu.RUnlock()

	resp := ReadinessResponse{Ready: true, Checks: make(map[string]CheckResult)}
	var reasons []string

	if runtimeReady {
		resp.Checks["runtime"] = CheckResult{Status: "ok"}
	} else {
		resp.Checks["runtime"] = CheckResult{Status: "not_ready"}
		reasons = append(reasons, "no scene loaded")
	}

	mqttCheck, ok := dependencyCheck(mqttConnected, mqttOptional)
	resp.Checks["mqtt"] = mqttCheck
	if !ok {
		reasons = append(reasons, "mqtt not connected")
	}

	pgCheck, ok := dependencyCheck(pgConnected, pgOptional)
	resp.Checks["postgres"] = pgCheck
	if !ok {
		reasons = append(reasons, "postgres not connected")
	}

	w.Header().Set("Content-Type", "application/json")
	if len(reasons) > 0 {
		resp.Ready = false
		resp.NotReadyMsg = strings.Join(reasons, "; ")
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}
