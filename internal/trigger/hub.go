package trigger

import "time"

// Hub fans actor updates out to every registered detector. Single-threaded.
type Hub struct {
	detectors []Detector
	actors    map[int]Actor
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{actors: make(map[int]Actor)}
}

// Add registers d.
func (h *Hub) Add(d Detector) {
	h.detectors = append(h.detectors, d)
}

// Remove unregisters d.
func (h *Hub) Remove(d Detector) {
	for i, x := range h.detectors {
		if x == d {
			h.detectors = append(h.detectors[:i:i], h.detectors[i+1:]...)
			return
		}
	}
}

// Len is the number of registered detectors.
func (h *Hub) Len() int { return len(h.detectors) }

// Update records the actor's state and tests it against every detector.
// Detectors added or removed by listeners take effect on the next update.
func (h *Hub) Update(a Actor, now time.Time) {
	h.actors[a.ID] = a
	for _, d := range append([]Detector(nil), h.detectors...) {
		d.Update(a, now)
	}
}

// Actor returns the last state seen for id.
func (h *Hub) Actor(id int) (Actor, bool) {
	a, ok := h.actors[id]
	return a, ok
}

// Reset drops every detector and actor.
func (h *Hub) Reset() {
	h.detectors = nil
	h.actors = make(map[int]Actor)
}
