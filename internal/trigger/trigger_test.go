package trigger

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/AaronLay10/SceneEngine/internal/events"
	"github.com/AaronLay10/SceneEngine/internal/scene"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func at(x, z float32, layer int) Actor {
	return Actor{ID: 1, Position: mgl32.Vec3{x, 0, z}, Layer: layer, StandingOn: Nothing}
}

func TestTileTriggerEnterExit(t *testing.T) {
	tr := NewTileTrigger(5, scene.Rect{X: 2, Y: 2, W: 2, H: 1}, 0, Window{})
	var got []Event
	tr.Subscribe(func(e Event) { got = append(got, e) })

	tr.Update(at(0.5, 0.5, 0), t0)
	tr.Update(at(2.5, 2.5, 0), t0)
	tr.Update(at(3.5, 2.5, 0), t0)
	tr.Update(at(4.5, 2.5, 0), t0)

	if len(got) != 2 {
		t.Fatalf("expected enter+exit, got %v", got)
	}
	if got[0].Kind != Enter || got[1].Kind != Exit || got[0].OwnerID != 5 {
		t.Errorf("unexpected events %v", got)
	}
}

func TestTileTriggerIgnoresOtherLayer(t *testing.T) {
	tr := NewTileTrigger(5, scene.Rect{X: 0, Y: 0, W: 1, H: 1}, 1, Window{})
	fired := false
	tr.Subscribe(func(Event) { fired = true })
	tr.Update(at(0.5, 0.5, 0), t0)
	if fired {
		t.Fatal("trigger fired for actor on another layer")
	}
}

func TestEffectiveWindowSuppressesButTracksOccupancy(t *testing.T) {
	events.Clear()
	tr := NewTileTrigger(9, scene.Rect{X: 0, Y: 0, W: 1, H: 1}, 0, Window{Since: t0, Effective: 800 * time.Millisecond})
	var got []Event
	tr.Subscribe(func(e Event) { got = append(got, e) })

	// Actor delivered onto the trigger while the window is open.
	tr.Update(at(0.5, 0.5, 0), t0.Add(100*time.Millisecond))
	if len(got) != 0 {
		t.Fatal("event delivered inside the effective window")
	}
	if len(events.Find("trigger.suppressed")) != 1 {
		t.Error("expected trigger.suppressed")
	}

	// Standing still after the window: no new enter.
	tr.Update(at(0.5, 0.5, 0), t0.Add(time.Second))
	if len(got) != 0 {
		t.Fatal("standing on the trigger must not re-fire")
	}

	// Leave and re-enter.
	tr.Update(at(3, 3, 0), t0.Add(2*time.Second))
	tr.Update(at(0.5, 0.5, 0), t0.Add(3*time.Second))
	if len(got) != 2 || got[1].Kind != Enter {
		t.Fatalf("expected exit then enter, got %v", got)
	}
}

func TestVolumeTrigger(t *testing.T) {
	v := NewVolumeTrigger(2, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{1, 1, 1}, Window{})
	n := 0
	v.Subscribe(func(Event) { n++ })
	v.Update(Actor{ID: 3, Position: mgl32.Vec3{0.5, 0, -0.5}}, t0)
	v.Update(Actor{ID: 3, Position: mgl32.Vec3{2, 0, 0}}, t0)
	if n != 2 {
		t.Fatalf("expected 2 events, got %d", n)
	}
}

func TestSurfaceDetector(t *testing.T) {
	s := NewSurfaceDetector(7, Window{})
	var kinds []Kind
	s.Subscribe(func(e Event) { kinds = append(kinds, e.Kind) })
	s.Update(Actor{ID: 1, StandingOn: 7}, t0)
	s.Update(Actor{ID: 1, StandingOn: Nothing}, t0)
	if len(kinds) != 2 || kinds[0] != Enter || kinds[1] != Exit {
		t.Fatalf("unexpected kinds %v", kinds)
	}
}

func TestUnsubscribeThenDestroyIsClean(t *testing.T) {
	events.Clear()
	tr := NewSurfaceDetector(1, Window{})
	sub := tr.Subscribe(func(Event) {})
	sub.Unsubscribe()
	sub.Unsubscribe()
	tr.Destroy()
	if len(events.Find("trigger.dangling")) != 0 {
		t.Fatal("clean teardown reported dangling subscriptions")
	}
}

func TestDestroyReportsDangling(t *testing.T) {
	events.Clear()
	tr := NewSurfaceDetector(1, Window{})
	fired := false
	tr.Subscribe(func(Event) { fired = true })
	tr.Destroy()
	if len(events.Find("trigger.dangling")) != 1 {
		t.Fatal("expected trigger.dangling")
	}
	tr.Update(Actor{ID: 1, StandingOn: 1}, t0)
	if fired {
		t.Error("destroyed detector delivered an event")
	}
}

func TestHubFansOut(t *testing.T) {
	h := NewHub()
	a := NewSurfaceDetector(1, Window{})
	b := NewSurfaceDetector(2, Window{})
	var owners []int
	a.Subscribe(func(e Event) { owners = append(owners, e.OwnerID) })
	b.Subscribe(func(e Event) { owners = append(owners, e.OwnerID) })
	h.Add(a)
	h.Add(b)

	h.Update(Actor{ID: 1, StandingOn: 2}, t0)
	h.Remove(b)
	h.Update(Actor{ID: 1, StandingOn: 1}, t0)

	if len(owners) != 2 || owners[0] != 2 || owners[1] != 1 {
		t.Fatalf("unexpected owners %v", owners)
	}
	if h.Len() != 1 {
		t.Errorf("expected 1 detector, got %d", h.Len())
	}
	if got, ok := h.Actor(1); !ok || got.StandingOn != 1 {
		t.Errorf("last actor state not recorded: %+v", got)
	}
}
