// Package trigger detects actors entering and leaving tile rectangles,
// bounding volumes and standing surfaces.
package trigger

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/AaronLay10/SceneEngine/internal/events"
	"github.com/AaronLay10/SceneEngine/internal/scene"
)

// Nothing is the StandingOn value of an actor not on any object.
const Nothing = -1

// Actor is the per-frame state the detectors test against.
type Actor struct {
	ID         int
	Position   mgl32.Vec3
	Layer      int
	StandingOn int
}

// Tile returns the tile under the actor. One world unit per tile on the XZ plane.
func (a Actor) Tile() (x, y int) {
	return int(math.Floor(float64(a.Position.X()))), int(math.Floor(float64(a.Position.Z())))
}

// Kind is enter or exit.
type Kind int

const (
	Enter Kind = iota
	Exit
)

func (k Kind) String() string {
	if k == Enter {
		return "enter"
	}
	return "exit"
}

// Event is delivered to listeners on an occupancy change.
type Event struct {
	Kind    Kind
	ActorID int
	OwnerID int
}

// Listener receives trigger events.
type Listener func(Event)

// Window suppresses events for Effective after Since.
type Window struct {
	Since     time.Time
	Effective time.Duration
}

func (w Window) suppressed(now time.Time) bool {
	return w.Effective > 0 && now.Sub(w.Since) < w.Effective
}

// Detector is implemented by every trigger shape.
type Detector interface {
	Owner() int
	Update(a Actor, now time.Time)
	Subscribe(l Listener) *Subscription
	Destroy()
}

// Subscription is returned by Subscribe.
type Subscription struct {
	d  *detector
	id int
}

// Unsubscribe detaches the listener. Safe to call more than once.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.d == nil {
		return
	}
	delete(s.d.listeners, s.id)
	s.d = nil
}

type detector struct {
	kind      string
	owner     int
	window    Window
	inside    func(Actor) bool
	listeners map[int]Listener
	order     []int
	nextID    int
	occupants map[int]bool
	destroyed bool
}

func newDetector(kind string, owner int, w Window, inside func(Actor) bool) *detector {
	return &detector{
		kind:      kind,
		owner:     owner,
		window:    w,
		inside:    inside,
		listeners: make(map[int]Listener),
		occupants: make(map[int]bool),
	}
}

func (d *detector) Owner() int { return d.owner }

func (d *detector) Subscribe(l Listener) *Subscription {
	d.nextID++
	d.listeners[d.nextID] = l
	d.order = append(d.order, d.nextID)
	return &Subscription{d: d, id: d.nextID}
}

// Occupied reports whether the actor is currently inside.
func (d *detector) Occupied(actorID int) bool { return d.occupants[actorID] }

func (d *detector) Update(a Actor, now time.Time) {
	if d.destroyed {
		return
	}
	in := d.inside(a)
	if in == d.occupants[a.ID] {
		return
	}
	if in {
		d.occupants[a.ID] = true
	} else {
		delete(d.occupants, a.ID)
	}

	kind := Exit
	if in {
		kind = Enter
	}
	if d.window.suppressed(now) {
		events.Emit("debug", "trigger.suppressed", "", map[string]interface{}{
			"trigger":  d.kind,
			"owner_id": d.owner,
			"actor_id": a.ID,
			"kind":     kind.String(),
		})
		return
	}

	name := "trigger.entered"
	if kind == Exit {
		name = "trigger.exited"
	}
	events.Emit("debug", name, "", map[string]interface{}{
		"trigger":  d.kind,
		"owner_id": d.owner,
		"actor_id": a.ID,
	})

	ev := Event{Kind: kind, ActorID: a.ID, OwnerID: d.owner}
	ids := append([]int(nil), d.order...)
	live := d.order[:0]
	for _, id := range d.order {
		if _, ok := d.listeners[id]; ok {
			live = append(live, id)
		}
	}
	d.order = live
	for _, id := range ids {
		if l, ok := d.listeners[id]; ok {
			l(ev)
		}
	}
}

// Destroy stops the detector. Subscriptions still attached are reported
// as dangling and dropped.
func (d *detector) Destroy() {
	if d.destroyed {
		return
	}
	d.destroyed = true
	if n := len(d.listeners); n > 0 {
		events.Emit("warn", "trigger.dangling", "trigger destroyed with live subscriptions", map[string]interface{}{
			"trigger":       d.kind,
			"owner_id":      d.owner,
			"subscriptions": n,
		})
	}
	d.listeners = make(map[int]Listener)
	d.order = nil
	d.occupants = make(map[int]bool)
}

// Subscribers returns the number of attached listeners.
func (d *detector) Subscribers() int { return len(d.listeners) }

// TileTrigger fires when an actor on Layer steps into Rect.
type TileTrigger struct {
	*detector
	Rect  scene.Rect
	Layer int
}

// NewTileTrigger builds a tile trigger owned by object owner.
func NewTileTrigger(owner int, rect scene.Rect, layer int, w Window) *TileTrigger {
	t := &TileTrigger{Rect: rect, Layer: layer}
	t.detector = newDetector("tile", owner, w, func(a Actor) bool {
		if a.Layer != t.Layer {
			return false
		}
		x, y := a.Tile()
		return t.Rect.Contains(x, y)
	})
	return t
}

// VolumeTrigger fires when an actor's position enters an axis-aligned box.
type VolumeTrigger struct {
	*detector
	Min, Max mgl32.Vec3
}

// NewVolumeTrigger builds a box trigger centred on center.
func NewVolumeTrigger(owner int, center, halfExtents mgl32.Vec3, w Window) *VolumeTrigger {
	v := &VolumeTrigger{Min: center.Sub(halfExtents), Max: center.Add(halfExtents)}
	v.detector = newDetector("volume", owner, w, func(a Actor) bool {
		p := a.Position
		for i := 0; i < 3; i++ {
			if p[i] < v.Min[i] || p[i] > v.Max[i] {
				return false
			}
		}
		return true
	})
	return v
}

// SurfaceDetector fires when an actor starts or stops standing on its owner.
type SurfaceDetector struct {
	*detector
}

// NewSurfaceDetector builds a detector for actors standing on owner.
func NewSurfaceDetector(owner int, w Window) *SurfaceDetector {
	return &SurfaceDetector{detector: newDetector("surface", owner, w, func(a Actor) bool {
		return a.StandingOn == owner
	})}
}
