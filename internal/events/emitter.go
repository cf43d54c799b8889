package events

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AaronLay10/SceneEngine/internal/storage/postgres"
)

var buffer = NewRingBuffer(256)

var totalCount atomic.Int64

// nameCounts maps event name to *atomic.Int64.
var nameCounts sync.Map

var (
	pgClient      *postgres.Client
	pgMu          sync.RWMutex
	pgErrorLogged bool
)

var (
	outMu  sync.Mutex
	output io.Writer
)

// SetPostgresClient sets the Postgres client for event persistence.
func SetPostgresClient(client *postgres.Client) {
	pgMu.Lock()
	pgClient = client
	pgErrorLogged = false
	pgMu.Unlock()
}

// GetPostgresClient returns the current Postgres client (for API queries).
func GetPostgresClient() *postgres.Client {
	pgMu.RLock()
	defer pgMu.RUnlock()
	return pgClient
}

// SetOutput mirrors every emitted event as a JSON line to w. nil disables it.
func SetOutput(w io.Writer) {
	outMu.Lock()
	output = w
	outMu.Unlock()
}

type Event struct {
	Timestamp string                 `json:"ts"`
	Level     string                 `json:"level"`
	Name      string                 `json:"event"`
	Message   string                 `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

func Emit(level, name, msg string, fields map[string]interface{}) ([]byte, error) {
	if err := Validate(name); err != nil {
		return nil, err
	}

	ts := time.Now().UTC()
	e := Event{
		Timestamp: ts.Format(time.RFC3339Nano),
		Level:     level,
		Name:      name,
		Message:   msg,
		Fields:    fields,
	}

	buffer.Add(e)
	totalCount.Add(1)
	counter(name).Add(1)
	broadcast(e)

	// Persist to Postgres (error-resistant)
	pgMu.RLock()
	client := pgClient
	errorLogged := pgErrorLogged
	pgMu.RUnlock()

	if client != nil {
		if err := client.Append(ts, level, name, msg, fields, ""); err != nil {
			// Log error once to avoid spam.
			// IMPORTANT: We add directly to buffer.Add() here, NOT Emit(),
			// to avoid infinite recursion if Postgres keeps failing.
			if !errorLogged {
				pgMu.Lock()
				if !pgErrorLogged {
					pgErrorLogged = true
					pgMu.Unlock()
					errEvent := Event{
						Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
						Level:     "error",
						Name:      "system.error",
						Message:   "postgres append failed",
						Fields: map[string]interface{}{
							"error": err.Error(),
						},
					}
					buffer.Add(errEvent) // Direct add, no recursion
				} else {
					pgMu.Unlock()
				}
			}
		}
	}

	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	outMu.Lock()
	if output != nil {
		_, _ = output.Write(append(b, '\n'))
	}
	outMu.Unlock()

	return b, nil
}

func Snapshot() []Event {
	return buffer.Snapshot()
}

// TotalCount returns the number of events emitted since startup.
func TotalCount() int64 {
	return totalCount.Load()
}

// Count returns how many events named name were emitted since startup.
func Count(name string) int64 {
	return counter(name).Load()
}

func counter(name string) *atomic.Int64 {
	if c, ok := nameCounts.Load(name); ok {
		return c.(*atomic.Int64)
	}
	c, _ := nameCounts.LoadOrStore(name, new(atomic.Int64))
	return c.(*atomic.Int64)
}

// Clear resets the event buffer. Used for testing.
func Clear() {
	buffer.Clear()
}

// Find returns buffered events with the given name, oldest first.
func Find(name string) []Event {
	var out []Event
	for _, e := range buffer.Snapshot() {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}
