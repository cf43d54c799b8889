package objects

import (
	"github.com/AaronLay10/SceneEngine/internal/bus"
	"github.com/AaronLay10/SceneEngine/internal/scene"
	"github.com/AaronLay10/SceneEngine/internal/task"
	"github.com/AaronLay10/SceneEngine/internal/trigger"
)

// portal moves the player to the scene named by its ref when they step on
// its tile rect. The ref's object id is the spawn point. Input stays off
// until the runtime has loaded the destination.
type portal struct {
	Base
	notInteractable
}

func newPortal(scene.Descriptor) Behavior { return &portal{} }

func (b *portal) Interactable(o *Object, a Actor) bool {
	return b.notInteractable.Interactable(o, a)
}

func (b *portal) Attach(o *Object) {
	if o.Desc.Trigger.Empty() {
		return
	}
	tr := trigger.NewTileTrigger(o.ID(), o.Desc.Trigger, o.state.Layer, o.TriggerWindow())
	o.Own(tr, func(ev trigger.Event) {
		if ev.Kind == trigger.Enter && ev.ActorID == PlayerActor {
			o.reg.InteractFromTrigger(o, ev)
		}
	})
}

func (b *portal) Sequence(o *Object, ic *InteractionContext) []task.Step {
	return []task.Step{
		o.Input(false),
		o.PlaySound(0),
		o.RunScript(),
		task.Do(func() {
			ref := o.Desc.Ref
			if ref == nil {
				o.publish(bus.KindInputEnable, nil)
				return
			}
			o.publish(bus.KindSceneTransition, bus.SceneTransition{
				Location: ref.Location,
				Scene:    ref.Scene,
				SpawnID:  ref.Object,
			})
		}),
	}
}
