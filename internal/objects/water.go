package objects

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/AaronLay10/SceneEngine/internal/bus"
	"github.com/AaronLay10/SceneEngine/internal/scene"
	"github.com/AaronLay10/SceneEngine/internal/task"
	"github.com/AaronLay10/SceneEngine/internal/trigger"
)

// waterSurface is a water plane whose level is raised and lowered through
// chains. Actors entering the water splash. Switch 1 is the high level.
//
// Params: [0] level change in centimetres, [1] [2] half extents of the
// surface in centimetres along x and z.
type waterSurface struct {
	Base
	notInteractable
	rise float32
	half mgl32.Vec3
}

func newWaterSurface(d scene.Descriptor) Behavior {
	return &waterSurface{
		rise: float32(d.Param(0, 100)) / 100,
		half: mgl32.Vec3{float32(d.Param(1, 200)) / 100, 0.5, float32(d.Param(2, 200)) / 100},
	}
}

func (b *waterSurface) Pose(o *Object) string { return onOff(o, "high", "low") }

func (b *waterSurface) Interactable(o *Object, a Actor) bool {
	return b.notInteractable.Interactable(o, a)
}

func (b *waterSurface) Attach(o *Object) {
	v := trigger.NewVolumeTrigger(o.ID(), o.state.Position, b.half, o.TriggerWindow())
	o.Own(v, func(ev trigger.Event) {
		if ev.Kind != trigger.Enter || o.Desc.Sound == "" {
			return
		}
		o.publish(bus.KindPlaySound, bus.PlaySound{Name: o.Desc.Sound, ObjectID: o.ID()})
	})
}

func (b *waterSurface) Sequence(o *Object, ic *InteractionContext) []task.Step {
	rising := o.state.Switch == 0
	return []task.Step{
		o.Camera(true),
		o.Animate(time.Second),
		o.MoveTo(func() mgl32.Vec3 {
			p := o.state.Position
			if rising {
				return mgl32.Vec3{p.X(), p.Y() + b.rise, p.Z()}
			}
			return mgl32.Vec3{p.X(), p.Y() - b.rise, p.Z()}
		}),
		o.SetSwitch(toggle(o)),
		o.Camera(false),
		o.RunScript(),
		o.Chain(ic),
	}
}
