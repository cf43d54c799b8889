package mqtt

import (
	"sort"
	"sync"
	"time"

	"github.com/AaronLay10/SceneEngine/internal/events"
)

// DefaultHeartbeat is assumed when a collaborator does not announce one.
const DefaultHeartbeat = 5 * time.Second

// CollaboratorState tracks one collaborator's health.
type CollaboratorState struct {
	ID        string
	LastSeen  time.Time
	Interval  time.Duration
	Connected bool
}

// Monitor tracks collaborator heartbeats received on <prefix>/notify/heartbeat.
type Monitor struct {
	mu            sync.RWMutex
	collaborators map[string]*CollaboratorState
	tolerance     float64 // multiplier for the heartbeat interval
	now           func() time.Time
	stopCh        chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
}

// NewMonitor creates a collaborator monitor. tolerance is how many heartbeat
// intervals may pass before a collaborator counts as gone.
func NewMonitor(tolerance float64) *Monitor {
	if tolerance <= 1.0 {
		tolerance = 2.0 // miss one heartbeat
	}
	return &Monitor{
		collaborators: make(map[string]*CollaboratorState),
		tolerance:     tolerance,
		now:           time.Now,
		stopCh:        make(chan struct{}),
	}
}

// Beat records a heartbeat. The first beat, and the first after a timeout,
// emits collaborator.connected.
func (m *Monitor) Beat(id string, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultHeartbeat
	}

	m.mu.Lock()
	st, known := m.collaborators[id]
	if !known {
		st = &CollaboratorState{ID: id}
		m.collaborators[id] = st
	}
	wasConnected := st.Connected
	st.LastSeen = m.now()
	st.Interval = interval
	st.Connected = true
	m.mu.Unlock()

	if !wasConnected {
		events.Emit("info", "collaborator.connected", "", map[string]interface{}{
			"collaborator": id,
			"reconnect":    known,
		})
	}
}

// Start begins the background health check loop.
func (m *Monitor) Start(checkInterval time.Duration) {
	m.wg.Add(1)
	go m.healthCheckLoop(checkInterval)
}

// Stop stops the background health check loop. It is safe to call twice.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
}

func (m *Monitor) healthCheckLoop(interval time.Duration) {
	defer m.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.checkHealth()
		}
	}
}

func (m *Monitor) checkHealth() {
	now := m.now()
	var lost []CollaboratorState

	m.mu.Lock()
	for _, st := range m.collaborators {
		if !st.Connected {
			continue
		}
		timeout := time.Duration(float64(st.Interval) * m.tolerance)
		if now.Sub(st.LastSeen) > timeout {
			st.Connected = false
			lost = append(lost, *st)
		}
	}
	m.mu.Unlock()

	for _, st := range lost {
		events.Emit("warn", "collaborator.disconnected", "heartbeat timeout", map[string]interface{}{
			"collaborator": st.ID,
			"last_seen":    st.LastSeen.Format(time.RFC3339),
			"timeout_sec":  (time.Duration(float64(st.Interval) * m.tolerance)).Seconds(),
		})
	}
}

// State returns a copy of a collaborator's state, nil when unknown.
func (m *Monitor) State(id string) *CollaboratorState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if st, ok := m.collaborators[id]; ok {
		cpy := *st
		return &cpy
	}
	return nil
}

// Connected lists the ids of collaborators currently alive, sorted.
func (m *Monitor) Connected() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var ids []string
	for id, st := range m.collaborators {
		if st.Connected {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
