package objects

import (
	"time"

	"github.com/AaronLay10/SceneEngine/internal/scene"
	"github.com/AaronLay10/SceneEngine/internal/task"
)

// Base provides the defaults behaviors embed.
type Base struct{}

func (Base) Pose(*Object) string { return "idle" }

func (Base) Attach(*Object) {}

func (Base) Sequence(o *Object, ic *InteractionContext) []task.Step {
	return []task.Step{o.RunScript(), o.Chain(ic)}
}

// Interactable requires the actor on the same layer and within the interact
// radius. A zero radius means any distance.
func (Base) Interactable(o *Object, a Actor) bool {
	if a.Layer != o.state.Layer {
		return false
	}
	r := o.env.InteractRadius
	return r <= 0 || o.state.Position.Sub(a.Position).Len() <= r
}

// notInteractable is embedded by objects only reachable through triggers or chains.
type notInteractable struct{}

func (notInteractable) Interactable(*Object, Actor) bool { return false }

func toggle(o *Object) func() int {
	return func() int {
		if o.state.Switch != 0 {
			return 0
		}
		return 1
	}
}

func onOff(o *Object, on, off string) string {
	if o.state.Switch != 0 {
		return on
	}
	return off
}

// paramDuration reads a millisecond parameter.
func paramDuration(d scene.Descriptor, i int, def time.Duration) time.Duration {
	ms := d.Param(i, -1)
	if ms < 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}
