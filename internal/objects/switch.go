package objects

import (
	"time"

	"github.com/AaronLay10/SceneEngine/internal/scene"
	"github.com/AaronLay10/SceneEngine/internal/task"
	"github.com/AaronLay10/SceneEngine/internal/trigger"
)

// switchBehavior toggles between on and off. With a trigger rect it acts as
// a pressure plate fired by stepping onto it.
//
// Params: [0] animation ms.
type switchBehavior struct {
	Base
	anim time.Duration
}

func newSwitch(d scene.Descriptor) Behavior {
	return &switchBehavior{anim: paramDuration(d, 0, 300*time.Millisecond)}
}

func (b *switchBehavior) Pose(o *Object) string { return onOff(o, "on", "off") }

func (b *switchBehavior) Attach(o *Object) {
	if o.Desc.Trigger.Empty() {
		return
	}
	tr := trigger.NewTileTrigger(o.ID(), o.Desc.Trigger, o.state.Layer, o.TriggerWindow())
	o.Own(tr, func(ev trigger.Event) {
		if ev.Kind == trigger.Enter {
			o.reg.InteractFromTrigger(o, ev)
		}
	})
}

func (b *switchBehavior) Sequence(o *Object, ic *InteractionContext) []task.Step {
	return []task.Step{
		o.FaceActor(ic, "reach"),
		o.PlaySound(0),
		o.SetSwitch(toggle(o)),
		o.Animate(b.anim),
		o.RunScript(),
		o.Chain(ic),
	}
}
